package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ganatech/academy/internal/models"
)

func TestMemoryIdentityRepository_CreateAndFind(t *testing.T) {
	repo := NewMemoryIdentityRepository()
	ctx := context.Background()

	identity := models.NewIdentity(models.KindStudent, "9876543210", models.Profile{Name: "A", Course: "X"})
	if err := repo.Create(ctx, identity); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if identity.ID == "" {
		t.Fatal("Create should assign an ID")
	}
	if identity.CreatedAt.IsZero() {
		t.Fatal("Create should set CreatedAt")
	}

	byPhone, err := repo.FindByPhone(ctx, "9876543210")
	if err != nil {
		t.Fatalf("FindByPhone: %v", err)
	}
	if byPhone == nil || byPhone.ID != identity.ID {
		t.Fatalf("FindByPhone = %+v, want id %s", byPhone, identity.ID)
	}

	byID, err := repo.FindByID(ctx, identity.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if byID == nil || byID.Name != "A" || byID.Course != "X" {
		t.Fatalf("FindByID = %+v", byID)
	}

	missing, err := repo.FindByPhone(ctx, "0000000000")
	if err != nil || missing != nil {
		t.Fatalf("FindByPhone(missing) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestMemoryIdentityRepository_CreateDuplicatePhone(t *testing.T) {
	repo := NewMemoryIdentityRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Identity{Phone: "1111111111", Name: "A"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, &models.Identity{Phone: "1111111111", Name: "B"})
	if !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("Create duplicate: err = %v, want ErrDuplicatePhone", err)
	}
}

func TestMemoryIdentityRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryIdentityRepository()
	ctx := context.Background()

	identity := &models.Identity{Phone: "1111111111", Name: "A"}
	if err := repo.Create(ctx, identity); err != nil {
		t.Fatalf("Create: %v", err)
	}
	identity.Name = "mutated"

	stored, _ := repo.FindByID(ctx, identity.ID)
	if stored.Name != "A" {
		t.Errorf("stored name = %q, want A", stored.Name)
	}
}

func TestMemoryIdentityRepository_SaveUpdateDelete(t *testing.T) {
	repo := NewMemoryIdentityRepository()
	ctx := context.Background()

	identity := &models.Identity{Phone: "1111111111", Name: "A"}
	if err := repo.Create(ctx, identity); err != nil {
		t.Fatalf("Create: %v", err)
	}

	identity.Email = "a@example.com"
	if err := repo.Save(ctx, identity); err != nil {
		t.Fatalf("Save: %v", err)
	}

	name := "  Renamed "
	updated, err := repo.UpdateByID(ctx, identity.ID, models.ProfileUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	if updated.Name != "Renamed" || updated.Email != "a@example.com" {
		t.Errorf("UpdateByID = %+v", updated)
	}

	none, err := repo.UpdateByID(ctx, "missing", models.ProfileUpdate{Name: &name})
	if err != nil || none != nil {
		t.Errorf("UpdateByID(missing) = %+v, %v; want nil, nil", none, err)
	}

	if err := repo.Save(ctx, &models.Identity{ID: "missing", Phone: "2"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Save(missing) err = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteByID(ctx, identity.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if err := repo.DeleteByID(ctx, identity.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteByID twice err = %v, want ErrNotFound", err)
	}
	if found, _ := repo.FindByPhone(ctx, "1111111111"); found != nil {
		t.Error("phone index should be cleared on delete")
	}

	all, err := repo.FindAll(ctx)
	if err != nil || len(all) != 0 {
		t.Errorf("FindAll = %v, %v; want empty", all, err)
	}
}

func TestMemoryIdentityRepository_ClearOTPOnlyOnce(t *testing.T) {
	repo := NewMemoryIdentityRepository()
	ctx := context.Background()

	identity := &models.Identity{Phone: "1111111111", Name: "A"}
	if err := repo.Create(ctx, identity); err != nil {
		t.Fatalf("Create: %v", err)
	}
	identity.OTP = &models.EmbeddedOTP{CodeHash: "h1", Purpose: models.PurposeLogin, ExpiresAt: time.Now().Add(time.Minute)}
	if err := repo.Save(ctx, identity); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stale := &models.Identity{ID: identity.ID, OTP: &models.EmbeddedOTP{CodeHash: "other"}}
	if cleared, _ := repo.ClearOTP(ctx, stale); cleared {
		t.Fatal("ClearOTP should not clear when the hash differs")
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cleared, err := repo.ClearOTP(ctx, identity); err == nil && cleared {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("ClearOTP succeeded %d times, want exactly 1", wins)
	}
	stored, _ := repo.FindByID(ctx, identity.ID)
	if stored.OTP != nil {
		t.Error("OTP should be cleared")
	}
}
