package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ganatech/academy/internal/models"
)

const courseCollection = "courses"

// MongoCourseRepository stores courses with their curriculum modules embedded.
type MongoCourseRepository struct {
	col *mongo.Collection
}

func NewMongoCourseRepository(db *mongo.Database) *MongoCourseRepository {
	return &MongoCourseRepository{col: db.Collection(courseCollection)}
}

func (r *MongoCourseRepository) FindAll(ctx context.Context) ([]models.Course, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer cur.Close(ctx)

	courses := []models.Course{}
	if err := cur.All(ctx, &courses); err != nil {
		return nil, fmt.Errorf("failed to decode courses: %w", err)
	}
	return courses, nil
}

func (r *MongoCourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&course)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	return &course, nil
}

func (r *MongoCourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, course); err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

func (r *MongoCourseRepository) Save(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	result, err := r.col.ReplaceOne(ctx, bson.M{"_id": course.ID}, course)
	if err != nil {
		return fmt.Errorf("failed to save course: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCourseRepository) DeleteByID(ctx context.Context, id string) error {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type MemoryCourseRepository struct {
	mu      sync.RWMutex
	courses map[string]models.Course
	seq     int
}

func NewMemoryCourseRepository() *MemoryCourseRepository {
	return &MemoryCourseRepository{courses: make(map[string]models.Course)}
}

func (r *MemoryCourseRepository) FindAll(_ context.Context) ([]models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Course, 0, len(r.courses))
	for _, c := range r.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryCourseRepository) FindByID(_ context.Context, id string) (*models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *MemoryCourseRepository) Create(_ context.Context, course *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if course.ID == "" {
		course.ID = uuid.New().String()
	}
	// seq keeps ordering stable when two courses share a clock tick.
	r.seq++
	now := time.Now().UTC().Add(time.Duration(r.seq) * time.Nanosecond)
	course.CreatedAt = now
	course.UpdatedAt = now
	r.courses[course.ID] = *course
	return nil
}

func (r *MemoryCourseRepository) Save(_ context.Context, course *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[course.ID]; !ok {
		return ErrNotFound
	}
	course.UpdatedAt = time.Now().UTC()
	r.courses[course.ID] = *course
	return nil
}

func (r *MemoryCourseRepository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return ErrNotFound
	}
	delete(r.courses, id)
	return nil
}
