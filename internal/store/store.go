package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"openair-backend/internal/model"
)

// ErrNotFound is returned when a subscription does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	GetFlag(ctx context.Context, clientID, key string) (string, bool, error)
	SetFlag(ctx context.Context, clientID, key, value string) error
	DeleteFlag(ctx context.Context, clientID, key string) error

	UpsertSubscription(ctx context.Context, sub model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// GetFlag returns a client's flag and whether it exists.
func (s *gormStore) GetFlag(ctx context.Context, clientID, key string) (string, bool, error) {
	var flag model.ClientFlag
	err := s.db.WithContext(ctx).
		Where(&model.ClientFlag{ClientID: clientID, Key: key}).
		Take(&flag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read flag %q for client %s: %w", key, clientID, err)
	}
	return flag.Value, true, nil
}

// SetFlag creates or replaces a client's flag.
func (s *gormStore) SetFlag(ctx context.Context, clientID, key, value string) error {
	flag := model.ClientFlag{
		ClientID:  clientID,
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&flag).Error; err != nil {
		return fmt.Errorf("failed to write flag %q for client %s: %w", key, clientID, err)
	}
	return nil
}

// DeleteFlag removes a client's flag. Deleting a missing flag is not an error.
func (s *gormStore) DeleteFlag(ctx context.Context, clientID, key string) error {
	if err := s.db.WithContext(ctx).
		Where(&model.ClientFlag{ClientID: clientID, Key: key}).
		Delete(&model.ClientFlag{}).Error; err != nil {
		return fmt.Errorf("failed to delete flag %q for client %s: %w", key, clientID, err)
	}
	return nil
}

// UpsertSubscription creates or replaces a push subscription.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now().UTC()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(&sub).Error
}

// GetSubscription returns ErrNotFound for an unknown endpoint.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PushSubscription{}, ErrNotFound
	}
	return sub, err
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
