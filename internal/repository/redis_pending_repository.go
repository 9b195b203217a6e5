package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/models"
)

// consumeScript deletes the challenge hash only while its id field still matches,
// so two concurrent verifications of the same code cannot both succeed.
var consumeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'id') == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisPendingRepository stores signup challenges as Redis hashes with a TTL equal to
// the retention window. Records survive process restarts and are shared by all instances.
type RedisPendingRepository struct {
	client    *redis.Client
	retention time.Duration
	logger    *logrus.Logger
}

func NewRedisPendingRepository(client *redis.Client, retention time.Duration, logger *logrus.Logger) *RedisPendingRepository {
	return &RedisPendingRepository{
		client:    client,
		retention: retention,
		logger:    logger,
	}
}

func (r *RedisPendingRepository) Put(ctx context.Context, p *models.PendingVerification) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pending verification: %w", err)
	}

	key := r.key(p.Kind, p.Phone)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "id", p.ID, "data", data)
		pipe.Expire(ctx, key, r.retention)
		return nil
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to store pending verification in Redis")
		return fmt.Errorf("failed to store pending verification: %w", err)
	}

	return nil
}

func (r *RedisPendingRepository) Get(ctx context.Context, kind models.Kind, phone string) (*models.PendingVerification, error) {
	data, err := r.client.HGet(ctx, r.key(kind, phone), "data").Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to get pending verification from Redis")
		return nil, fmt.Errorf("failed to get pending verification: %w", err)
	}

	var p models.PendingVerification
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending verification: %w", err)
	}

	return &p, nil
}

func (r *RedisPendingRepository) Consume(ctx context.Context, kind models.Kind, phone, id string) (bool, error) {
	deleted, err := consumeScript.Run(ctx, r.client, []string{r.key(kind, phone)}, id).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume pending verification: %w", err)
	}
	return deleted == 1, nil
}

func (r *RedisPendingRepository) key(kind models.Kind, phone string) string {
	return "otp:pending:" + pendingKey(kind, phone)
}
