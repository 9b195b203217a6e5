package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ganatech/academy/internal/models"
)

// MongoIdentityRepository stores one identity kind in its own collection.
// Phone uniqueness is enforced by the uniq_phone index.
type MongoIdentityRepository struct {
	col    *mongo.Collection
	kind   models.Kind
	logger *logrus.Logger
}

func NewMongoIdentityRepository(db *mongo.Database, kind models.Kind, logger *logrus.Logger) *MongoIdentityRepository {
	return &MongoIdentityRepository{
		col:    db.Collection(kind.Collection()),
		kind:   kind,
		logger: logger,
	}
}

func (r *MongoIdentityRepository) findOne(ctx context.Context, filter bson.M) (*models.Identity, error) {
	var identity models.Identity
	err := r.col.FindOne(ctx, filter).Decode(&identity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithError(err).WithField("collection", r.col.Name()).Error("Failed to find identity in MongoDB")
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	return &identity, nil
}

func (r *MongoIdentityRepository) FindByPhone(ctx context.Context, phone string) (*models.Identity, error) {
	return r.findOne(ctx, bson.M{"phone": phone})
}

func (r *MongoIdentityRepository) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoIdentityRepository) FindAll(ctx context.Context) ([]models.Identity, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer cur.Close(ctx)

	identities := []models.Identity{}
	if err := cur.All(ctx, &identities); err != nil {
		return nil, fmt.Errorf("failed to decode identities: %w", err)
	}
	return identities, nil
}

func (r *MongoIdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	identity.Kind = r.kind
	identity.CreatedAt = now
	identity.UpdatedAt = now

	if _, err := r.col.InsertOne(ctx, identity); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicatePhone
		}
		r.logger.WithError(err).Error("Failed to create identity in MongoDB")
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

func (r *MongoIdentityRepository) Save(ctx context.Context, identity *models.Identity) error {
	identity.UpdatedAt = time.Now().UTC()

	result, err := r.col.ReplaceOne(ctx, bson.M{"_id": identity.ID}, identity)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicatePhone
		}
		r.logger.WithError(err).Error("Failed to save identity in MongoDB")
		return fmt.Errorf("failed to save identity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoIdentityRepository) UpdateByID(ctx context.Context, id string, update models.ProfileUpdate) (*models.Identity, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	var scratch models.Identity
	update.Apply(&scratch)
	if update.Name != nil {
		set["name"] = scratch.Name
	}
	if update.Email != nil {
		set["email"] = scratch.Email
	}
	if update.Course != nil {
		set["course"] = scratch.Course
	}
	if update.Message != nil {
		set["message"] = scratch.Message
	}
	if update.Technology != nil {
		set["technology"] = scratch.Technology
	}
	if update.Experience != nil {
		set["experience"] = scratch.Experience
	}

	var identity models.Identity
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&identity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update identity: %w", err)
	}
	return &identity, nil
}

func (r *MongoIdentityRepository) DeleteByID(ctx context.Context, id string) error {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoIdentityRepository) ClearOTP(ctx context.Context, identity *models.Identity) (bool, error) {
	if identity.OTP == nil {
		return false, nil
	}

	result, err := r.col.UpdateOne(ctx,
		bson.M{"_id": identity.ID, "otp.code_hash": identity.OTP.CodeHash},
		bson.M{
			"$unset": bson.M{"otp": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		r.logger.WithError(err).Error("Failed to clear OTP in MongoDB")
		return false, fmt.Errorf("failed to clear OTP: %w", err)
	}
	return result.MatchedCount == 1, nil
}
