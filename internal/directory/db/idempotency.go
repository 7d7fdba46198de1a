package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	rows "github.com/gartstein/directory/internal/directory/db/models"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KeyStore keeps create idempotency keys in the idempotency_keys table.
type KeyStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// KeyStore returns an idempotency key store sharing the repository's
// connection. Keys older than ttl are forgotten.
func (r *Repository) KeyStore(ttl time.Duration) *KeyStore {
	return &KeyStore{db: r.db, ttl: ttl, now: time.Now}
}

// Reserve claims key for a new create. It returns the binding of a key
// that already completed, a zero binding when the caller now owns the key,
// and ErrConflict when another create holds it.
func (s *KeyStore) Reserve(ctx context.Context, key string) (models.KeyBinding, error) {
	now := s.now()
	db := s.db.WithContext(ctx)

	if err := db.Where("idempotency_key = ? AND expires_at < ?", key, now).
		Delete(&rows.IdempotencyKey{}).Error; err != nil {
		return models.KeyBinding{}, err
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows.IdempotencyKey{
		Key:       key,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	if result.Error != nil {
		return models.KeyBinding{}, result.Error
	}
	if result.RowsAffected == 1 {
		return models.KeyBinding{}, nil
	}

	var existing rows.IdempotencyKey
	if err := db.First(&existing, "idempotency_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.KeyBinding{}, fmt.Errorf("%w: idempotency key %q changed hands, retry", e.ErrConflict, key)
		}
		return models.KeyBinding{}, err
	}
	if existing.EmployeeID == "" {
		return models.KeyBinding{}, fmt.Errorf("%w: create with idempotency key %q is in progress", e.ErrConflict, key)
	}
	return models.KeyBinding{EmployeeID: existing.EmployeeID, ID: existing.EmployeeUUID}, nil
}

// Complete binds key to the employee it created.
func (s *KeyStore) Complete(ctx context.Context, key string, b models.KeyBinding) error {
	return s.db.WithContext(ctx).Model(&rows.IdempotencyKey{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{"employee_id": b.EmployeeID, "employee_uuid": b.ID}).Error
}

// Release drops a reservation that never completed.
func (s *KeyStore) Release(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).
		Where("idempotency_key = ? AND employee_id = ?", key, "").
		Delete(&rows.IdempotencyKey{}).Error
}
