package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ringer-dashboard/internal/model"
	"ringer-dashboard/internal/timeline"
)

var (
	// ErrSessionNotFound is returned for unknown session tokens.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned for sessions past their expiry; the row is removed.
	ErrSessionExpired = errors.New("session expired")
	// ErrSubscriptionNotFound is returned when no subscription matches.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrSubscriptionOwned is returned when an endpoint belongs to another user.
	ErrSubscriptionOwned = errors.New("subscription endpoint belongs to another account")
)

// Store defines the interface for all database operations.
type Store interface {
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, token string, now time.Time) (model.Session, error)
	DeleteSession(ctx context.Context, token string) error
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	PutSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, userID, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, userID, endpoint string) error
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
	SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
	WatchedUsers(ctx context.Context) ([]string, error)

	UpdateDeviceState(ctx context.Context, userID string, latest timeline.StatusRecord, now time.Time) (bool, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// CreateSession persists a new login session.
func (s *gormStore) CreateSession(ctx context.Context, session *model.Session) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session for user %s: %w", session.UserID, err)
	}
	return nil
}

// GetSession loads a session by token. Expired sessions are deleted on sight.
func (s *gormStore) GetSession(ctx context.Context, token string, now time.Time) (model.Session, error) {
	var session model.Session
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	if session.Expired(now) {
		if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&model.Session{}).Error; err != nil {
			return model.Session{}, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return model.Session{}, ErrSessionExpired
	}
	return session, nil
}

// DeleteSession removes a session. Deleting an unknown token is not an error.
func (s *gormStore) DeleteSession(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes every session that expired before now.
func (s *gormStore) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PutSubscription creates a push subscription or refreshes the keys of one the
// same user already owns. An endpoint registered to another user is left
// untouched and ErrSubscriptionOwned is returned.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PushSubscription
		err := tx.Where("endpoint = ?", sub.Endpoint).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(sub).Error; err != nil {
				return fmt.Errorf("failed to create subscription: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to load subscription: %w", err)
		case existing.UserID != sub.UserID:
			return ErrSubscriptionOwned
		}

		err = tx.Model(&existing).Updates(map[string]any{"p256dh": sub.P256DH, "auth": sub.Auth}).Error
		if err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		return nil
	})
}

// GetSubscription returns the subscription for endpoint owned by userID.
func (s *gormStore) GetSubscription(ctx context.Context, userID, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Where("endpoint = ? AND user_id = ?", endpoint, userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PushSubscription{}, ErrSubscriptionNotFound
	}
	if err != nil {
		return model.PushSubscription{}, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

// DeleteSubscription removes the subscription for endpoint owned by userID.
func (s *gormStore) DeleteSubscription(ctx context.Context, userID, endpoint string) error {
	err := s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", endpoint, userID).
		Delete(&model.PushSubscription{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// DeleteSubscriptionByEndpoint removes a subscription regardless of owner.
func (s *gormStore) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", endpoint, err)
	}
	return nil
}

// SubscriptionsForUser lists the push subscriptions registered by userID.
func (s *gormStore) SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for user %s: %w", userID, err)
	}
	return subs, nil
}

// WatchedUsers returns the distinct users holding at least one push subscription.
func (s *gormStore) WatchedUsers(ctx context.Context) ([]string, error) {
	var users []string
	err := s.db.WithContext(ctx).
		Model(&model.PushSubscription{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list watched users: %w", err)
	}
	return users, nil
}

// UpdateDeviceState records the latest status observed for userID and reports
// whether it is a plug state change relative to what was stored. The first
// observation for a user only seeds the row. Records older than the stored
// one are ignored.
func (s *gormStore) UpdateDeviceState(ctx context.Context, userID string, latest timeline.StatusRecord, now time.Time) (bool, error) {
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.DeviceState
		err := tx.Where("user_id = ?", userID).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			seed := model.DeviceState{
				UserID:     userID,
				PluggedIn:  latest.PluggedIn,
				StatusTime: latest.Instant,
				Location:   latest.Location,
				ObservedAt: now,
			}
			if err := tx.Create(&seed).Error; err != nil {
				return fmt.Errorf("failed to create device state for user %s: %w", userID, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load device state for user %s: %w", userID, err)
		}

		if latest.Instant.Before(current.StatusTime) {
			return nil
		}

		changed = latest.PluggedIn != current.PluggedIn && latest.Instant.After(current.StatusTime)
		current.PluggedIn = latest.PluggedIn
		current.StatusTime = latest.Instant
		current.Location = latest.Location
		current.ObservedAt = now
		if err := tx.Save(&current).Error; err != nil {
			return fmt.Errorf("failed to update device state for user %s: %w", userID, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}
