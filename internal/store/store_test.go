package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ringer-dashboard/internal/model"
	"ringer-dashboard/internal/timeline"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteStore opens a private in-memory database with the schema migrated.
func newSQLiteStore(t *testing.T) Store {
	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gormDB.AutoMigrate(&model.Session{}, &model.PushSubscription{}, &model.DeviceState{}))
	return NewGormStore(gormDB)
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

func TestGormStore_GetSession_ExpiredIsDeleted(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sessions" WHERE token = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "identifier", "created_at", "expires_at"}).
			AddRow("tok", "user-1", "a@b.c", now.Add(-48*time.Hour), now.Add(-time.Hour)))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "sessions" WHERE token = $1`)).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := s.GetSession(context.Background(), "tok", now)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Sessions(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	live := &model.Session{Token: "live", UserID: "user-1", Identifier: "a@b.c", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := &model.Session{Token: "stale", UserID: "user-2", Identifier: "d@e.f", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, s.CreateSession(ctx, live))
	require.NoError(t, s.CreateSession(ctx, stale))

	got, err := s.GetSession(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)

	_, err = s.GetSession(ctx, "missing", now)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	purged, err := s.PurgeExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, s.DeleteSession(ctx, "live"))
	_, err = s.GetSession(ctx, "live", now)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// deleting twice is fine
	assert.NoError(t, s.DeleteSession(ctx, "live"))
}

func TestGormStore_Subscriptions(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/a", P256DH: "k1", Auth: "a1", UserID: "user-1"}))
	require.NoError(t, s.PutSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/b", P256DH: "k2", Auth: "a2", UserID: "user-2"}))
	// replacing keys keeps a single row
	require.NoError(t, s.PutSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/a", P256DH: "k3", Auth: "a3", UserID: "user-1"}))

	sub, err := s.GetSubscription(ctx, "user-1", "https://push/a")
	require.NoError(t, err)
	assert.Equal(t, "k3", sub.P256DH)

	// another user cannot take the endpoint over
	err = s.PutSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/a", P256DH: "evil", Auth: "evil", UserID: "user-2"})
	assert.ErrorIs(t, err, ErrSubscriptionOwned)
	sub, err = s.GetSubscription(ctx, "user-1", "https://push/a")
	require.NoError(t, err)
	assert.Equal(t, "k3", sub.P256DH)
	assert.Equal(t, "a3", sub.Auth)

	_, err = s.GetSubscription(ctx, "user-2", "https://push/a")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	users, err := s.WatchedUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "user-2"}, users)

	subs, err := s.SubscriptionsForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	// another user's delete does not touch the row
	require.NoError(t, s.DeleteSubscription(ctx, "user-2", "https://push/a"))
	_, err = s.GetSubscription(ctx, "user-1", "https://push/a")
	assert.NoError(t, err)

	require.NoError(t, s.DeleteSubscriptionByEndpoint(ctx, "https://push/a"))
	users, err = s.WatchedUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-2"}, users)
}

func TestGormStore_UpdateDeviceState(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2025, time.March, 26, 10, 0, 0, 0, time.UTC)
	now := base.Add(time.Hour)

	testCases := []struct {
		name     string
		latest   timeline.StatusRecord
		expected bool
	}{
		{name: "First observation seeds without change", latest: timeline.StatusRecord{Instant: base, PluggedIn: true}, expected: false},
		{name: "Same state again", latest: timeline.StatusRecord{Instant: base, PluggedIn: true}, expected: false},
		{name: "Newer unplug is a change", latest: timeline.StatusRecord{Instant: base.Add(10 * time.Minute), PluggedIn: false, Location: "Home"}, expected: true},
		{name: "Older record is ignored", latest: timeline.StatusRecord{Instant: base.Add(5 * time.Minute), PluggedIn: true}, expected: false},
		{name: "Newer plug in is a change", latest: timeline.StatusRecord{Instant: base.Add(20 * time.Minute), PluggedIn: true}, expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			changed, err := s.UpdateDeviceState(ctx, "user-1", tc.latest, now)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, changed)
		})
	}

	var state model.DeviceState
	require.NoError(t, s.DB().Where("user_id = ?", "user-1").First(&state).Error)
	assert.True(t, state.PluggedIn)
	assert.True(t, base.Add(20*time.Minute).Equal(state.StatusTime))
}
