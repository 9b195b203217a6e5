package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/ganatech/academy/internal/models"
)

func TestMemoryCourseRepository_NewestFirst(t *testing.T) {
	repo := NewMemoryCourseRepository()
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		if err := repo.Create(ctx, &models.Course{Title: title, Description: "d"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	courses, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(courses) != 3 || courses[0].Title != "third" || courses[2].Title != "first" {
		t.Fatalf("order = %v", []string{courses[0].Title, courses[1].Title, courses[2].Title})
	}

	course := courses[1]
	course.Title = "renamed"
	if err := repo.Save(ctx, &course); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ := repo.FindByID(ctx, course.ID)
	if got == nil || got.Title != "renamed" {
		t.Errorf("FindByID = %+v", got)
	}

	if err := repo.DeleteByID(ctx, course.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if err := repo.DeleteByID(ctx, course.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteByID twice = %v, want ErrNotFound", err)
	}
	if err := repo.Save(ctx, &course); !errors.Is(err, ErrNotFound) {
		t.Errorf("Save deleted = %v, want ErrNotFound", err)
	}
}

func TestMemoryAdminRepository(t *testing.T) {
	repo := NewMemoryAdminRepository()
	ctx := context.Background()

	admin := &models.Admin{Username: "root", PasswordHash: "hash"}
	if err := repo.Create(ctx, admin); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if admin.ID == "" {
		t.Fatal("Create should assign an ID")
	}
	if err := repo.Create(ctx, &models.Admin{Username: "root"}); !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("duplicate Create = %v, want ErrDuplicateUsername", err)
	}

	byName, _ := repo.FindByUsername(ctx, "root")
	byID, _ := repo.FindByID(ctx, admin.ID)
	if byName == nil || byID == nil || byName.ID != byID.ID {
		t.Errorf("lookups = %+v, %+v", byName, byID)
	}
	if missing, _ := repo.FindByUsername(ctx, "nobody"); missing != nil {
		t.Error("unknown username should return nil")
	}
}
