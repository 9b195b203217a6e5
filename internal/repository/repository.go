package repository

import (
	"context"
	"errors"

	"github.com/ganatech/academy/internal/models"
)

var (
	// ErrNotFound is returned by mutations that target a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicatePhone is returned by Create when the phone is already registered.
	ErrDuplicatePhone = errors.New("phone number already registered")
	// ErrDuplicateUsername is returned by admin Create when the username is taken.
	ErrDuplicateUsername = errors.New("username already registered")
)

// IdentityRepository is the persistent store for one identity kind.
// Lookups return (nil, nil) when no record matches.
type IdentityRepository interface {
	FindByPhone(ctx context.Context, phone string) (*models.Identity, error)
	FindByID(ctx context.Context, id string) (*models.Identity, error)
	FindAll(ctx context.Context) ([]models.Identity, error)
	// Create assigns ID and timestamps and fails with ErrDuplicatePhone on collision.
	Create(ctx context.Context, identity *models.Identity) error
	// Save replaces the stored record with the same ID.
	Save(ctx context.Context, identity *models.Identity) error
	UpdateByID(ctx context.Context, id string, update models.ProfileUpdate) (*models.Identity, error)
	DeleteByID(ctx context.Context, id string) error
	// ClearOTP removes the embedded OTP of identity only if the stored hash still equals
	// identity.OTP.CodeHash. It reports whether this call performed the removal.
	ClearOTP(ctx context.Context, identity *models.Identity) (bool, error)
}

// PendingRepository stages signup challenges keyed by kind and phone.
type PendingRepository interface {
	// Put stores p, replacing any previous challenge for the same kind and phone.
	Put(ctx context.Context, p *models.PendingVerification) error
	Get(ctx context.Context, kind models.Kind, phone string) (*models.PendingVerification, error)
	// Consume deletes the challenge only if its ID still equals id.
	// It reports whether this call performed the deletion.
	Consume(ctx context.Context, kind models.Kind, phone, id string) (bool, error)
}

type AdminRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	FindByID(ctx context.Context, id string) (*models.Admin, error)
	Create(ctx context.Context, admin *models.Admin) error
}

type CourseRepository interface {
	// FindAll returns courses newest first.
	FindAll(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Save(ctx context.Context, course *models.Course) error
	DeleteByID(ctx context.Context, id string) error
}

func pendingKey(kind models.Kind, phone string) string {
	return string(kind) + ":" + phone
}
