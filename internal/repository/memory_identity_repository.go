package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ganatech/academy/internal/models"
)

// MemoryIdentityRepository keeps identities in process memory. Used by tests and
// local development.
type MemoryIdentityRepository struct {
	mu      sync.RWMutex
	byID    map[string]models.Identity
	byPhone map[string]string
	nowF    func() time.Time
}

func NewMemoryIdentityRepository() *MemoryIdentityRepository {
	return &MemoryIdentityRepository{
		byID:    make(map[string]models.Identity),
		byPhone: make(map[string]string),
		nowF:    time.Now,
	}
}

func (r *MemoryIdentityRepository) FindByPhone(_ context.Context, phone string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPhone[phone]
	if !ok {
		return nil, nil
	}
	identity := cloneIdentity(r.byID[id])
	return &identity, nil
}

func (r *MemoryIdentityRepository) FindByID(_ context.Context, id string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	identity := cloneIdentity(stored)
	return &identity, nil
}

func (r *MemoryIdentityRepository) FindAll(_ context.Context) ([]models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Identity, 0, len(r.byID))
	for _, identity := range r.byID {
		out = append(out, cloneIdentity(identity))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryIdentityRepository) Create(_ context.Context, identity *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byPhone[identity.Phone]; exists {
		return ErrDuplicatePhone
	}
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	now := r.nowF().UTC()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	r.byID[identity.ID] = cloneIdentity(*identity)
	r.byPhone[identity.Phone] = identity.ID
	return nil
}

func (r *MemoryIdentityRepository) Save(_ context.Context, identity *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[identity.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Phone != identity.Phone {
		if _, taken := r.byPhone[identity.Phone]; taken {
			return ErrDuplicatePhone
		}
		delete(r.byPhone, stored.Phone)
		r.byPhone[identity.Phone] = identity.ID
	}
	identity.UpdatedAt = r.nowF().UTC()
	r.byID[identity.ID] = cloneIdentity(*identity)
	return nil
}

func (r *MemoryIdentityRepository) UpdateByID(_ context.Context, id string, update models.ProfileUpdate) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	update.Apply(&stored)
	stored.UpdatedAt = r.nowF().UTC()
	r.byID[id] = stored
	identity := cloneIdentity(stored)
	return &identity, nil
}

func (r *MemoryIdentityRepository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byPhone, stored.Phone)
	return nil
}

func (r *MemoryIdentityRepository) ClearOTP(_ context.Context, identity *models.Identity) (bool, error) {
	if identity.OTP == nil {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[identity.ID]
	if !ok || stored.OTP == nil || stored.OTP.CodeHash != identity.OTP.CodeHash {
		return false, nil
	}
	stored.OTP = nil
	stored.UpdatedAt = r.nowF().UTC()
	r.byID[identity.ID] = stored
	return true, nil
}

func cloneIdentity(identity models.Identity) models.Identity {
	if identity.OTP != nil {
		otp := *identity.OTP
		identity.OTP = &otp
	}
	return identity
}
