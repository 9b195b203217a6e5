package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ganatech/academy/internal/models"
)

const adminCollection = "admins"

type MongoAdminRepository struct {
	col *mongo.Collection
}

func NewMongoAdminRepository(db *mongo.Database) *MongoAdminRepository {
	return &MongoAdminRepository{col: db.Collection(adminCollection)}
}

func (r *MongoAdminRepository) findOne(ctx context.Context, filter bson.M) (*models.Admin, error) {
	var admin models.Admin
	err := r.col.FindOne(ctx, filter).Decode(&admin)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	return &admin, nil
}

func (r *MongoAdminRepository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoAdminRepository) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = uuid.New().String()
	}
	admin.CreatedAt = time.Now().UTC()
	if _, err := r.col.InsertOne(ctx, admin); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

type MemoryAdminRepository struct {
	mu     sync.RWMutex
	admins map[string]models.Admin
}

func NewMemoryAdminRepository() *MemoryAdminRepository {
	return &MemoryAdminRepository{admins: make(map[string]models.Admin)}
}

func (r *MemoryAdminRepository) FindByUsername(_ context.Context, username string) (*models.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, admin := range r.admins {
		if admin.Username == username {
			a := admin
			return &a, nil
		}
	}
	return nil, nil
}

func (r *MemoryAdminRepository) FindByID(_ context.Context, id string) (*models.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	admin, ok := r.admins[id]
	if !ok {
		return nil, nil
	}
	return &admin, nil
}

func (r *MemoryAdminRepository) Create(_ context.Context, admin *models.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.admins {
		if existing.Username == admin.Username {
			return ErrDuplicateUsername
		}
	}
	if admin.ID == "" {
		admin.ID = uuid.New().String()
	}
	admin.CreatedAt = time.Now().UTC()
	r.admins[admin.ID] = *admin
	return nil
}
