package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ganatech/academy/internal/models"
)

func newPending(id string, createdAt time.Time) *models.PendingVerification {
	return &models.PendingVerification{
		ID:        id,
		Kind:      models.KindStudent,
		Phone:     "9876543210",
		Profile:   models.Profile{Name: "A", Course: "X"},
		CodeHash:  "hash-" + id,
		Purpose:   models.PurposeSignup,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(5 * time.Minute),
	}
}

func TestMemoryPendingRepository_PutReplaces(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := NewMemoryPendingRepository(15*time.Minute, logger)
	ctx := context.Background()
	now := time.Now()

	if err := repo.Put(ctx, newPending("first", now)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Put(ctx, newPending("second", now)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	p, err := repo.Get(ctx, models.KindStudent, "9876543210")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p == nil || p.ID != "second" {
		t.Fatalf("Get = %+v, want second", p)
	}
	if repo.Len() != 1 {
		t.Errorf("Len = %d, want 1", repo.Len())
	}

	other, _ := repo.Get(ctx, models.KindTrainer, "9876543210")
	if other != nil {
		t.Error("pending records must be scoped by kind")
	}
}

func TestMemoryPendingRepository_ConsumeComparesID(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := NewMemoryPendingRepository(15*time.Minute, logger)
	ctx := context.Background()

	_ = repo.Put(ctx, newPending("current", time.Now()))

	if ok, _ := repo.Consume(ctx, models.KindStudent, "9876543210", "stale"); ok {
		t.Fatal("Consume with a stale id should fail")
	}
	if ok, _ := repo.Consume(ctx, models.KindStudent, "9876543210", "current"); !ok {
		t.Fatal("Consume with the current id should succeed")
	}
	if ok, _ := repo.Consume(ctx, models.KindStudent, "9876543210", "current"); ok {
		t.Fatal("second Consume should fail")
	}
}

func TestMemoryPendingRepository_PassiveExpiryAndSweep(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := NewMemoryPendingRepository(15*time.Minute, logger)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	repo.SetClock(func() time.Time { return now })

	_ = repo.Put(ctx, newPending("a", base))
	other := newPending("b", base.Add(10*time.Minute))
	other.Phone = "1111111111"
	_ = repo.Put(ctx, other)

	now = base.Add(14 * time.Minute)
	if p, _ := repo.Get(ctx, models.KindStudent, "9876543210"); p == nil {
		t.Fatal("record inside retention should still be readable after code expiry")
	}

	now = base.Add(15 * time.Minute)
	if p, _ := repo.Get(ctx, models.KindStudent, "9876543210"); p != nil {
		t.Fatal("record past retention should expire on read")
	}

	now = base.Add(30 * time.Minute)
	if removed := repo.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
	if repo.Len() != 0 {
		t.Errorf("Len = %d, want 0", repo.Len())
	}
}

func TestMemoryPendingRepository_RunStopsOnCancel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := NewMemoryPendingRepository(time.Millisecond, logger)
	_ = repo.Put(context.Background(), newPending("a", time.Now().Add(-time.Second)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		repo.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for repo.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if repo.Len() != 0 {
		t.Fatal("Run should sweep expired entries")
	}
}
