package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ringer-dashboard/internal/store"
	"ringer-dashboard/internal/timeline"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestStore(t *testing.T) (store.Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return store.NewGormStore(gormDB), mock
}

func response(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewBufferString(""))}
}

var changeAt = time.Date(2024, 3, 1, 14, 3, 0, 0, time.UTC)

func TestWorkerPool_Dispatch(t *testing.T) {
	st, _ := newTestStore(t)
	wp := NewWorkerPool(1, st, &webpush.Options{}, timeline.NewFormatter(time.UTC, false), nil)

	require.NoError(t, wp.Dispatch(context.Background(), Job{UserID: "u-1"}))

	select {
	case job := <-wp.jobs:
		assert.Equal(t, "u-1", job.UserID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_Dispatch_FullQueueHonoursContext(t *testing.T) {
	st, _ := newTestStore(t)
	wp := NewWorkerPool(1, st, &webpush.Options{}, timeline.NewFormatter(time.UTC, false), nil)
	require.NoError(t, wp.Dispatch(context.Background(), Job{UserID: "u-1"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- wp.Dispatch(ctx, Job{UserID: "u-2"}) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a full queue after cancellation")
	}
	assert.Len(t, wp.jobs, 1)
}

func TestWorkerPool_BuildPayload(t *testing.T) {
	st, _ := newTestStore(t)
	wp := NewWorkerPool(1, st, &webpush.Options{}, timeline.NewFormatter(time.UTC, false), nil)

	raw, err := wp.BuildPayload(timeline.StatusRecord{Instant: changeAt, PluggedIn: true, Location: "Garage"})
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, "Device plugged in", p.Title)
	assert.Equal(t, "Plugged in at 01/03/2024 14:03:00 (Garage)", p.Body)
	assert.True(t, p.PluggedIn)
	assert.True(t, changeAt.Equal(p.At))

	raw, err = wp.BuildPayload(timeline.StatusRecord{Instant: changeAt})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, "Device unplugged", p.Title)
	assert.Equal(t, "Unplugged at 01/03/2024 14:03:00", p.Body)
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	st, mock := newTestStore(t)
	wp := NewWorkerPool(1, st, &webpush.Options{}, timeline.NewFormatter(time.UTC, false), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	subscriptionsQuery := `SELECT \* FROM "push_subscriptions" WHERE user_id = \$1`

	t.Run("sends notification for every subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)

		var mu sync.Mutex
		var endpoints []string
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				mu.Lock()
				endpoints = append(endpoints, sub.Endpoint)
				mu.Unlock()
				assert.Contains(t, string(payload), `"pluggedIn":false`)
				wg.Done()
				return response(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(subscriptionsQuery).
			WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "user_id", "created_at"}).
				AddRow("https://example.com/push/a", "k1", "a1", "u-1", time.Now()).
				AddRow("https://example.com/push/b", "k2", "a2", "u-1", time.Now()))

		require.NoError(t, wp.Dispatch(ctx, Job{UserID: "u-1", Record: timeline.StatusRecord{Instant: changeAt}}))
		wg.Wait()
		assert.ElementsMatch(t, []string{"https://example.com/push/a", "https://example.com/push/b"}, endpoints)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}

		mock.ExpectQuery(subscriptionsQuery).
			WithArgs("u-2").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "user_id", "created_at"}).
				AddRow("https://example.com/expired", "k", "a", "u-2", time.Now()))

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, wp.Dispatch(ctx, Job{UserID: "u-2", Record: timeline.StatusRecord{Instant: changeAt, PluggedIn: true}}))

		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("no subscriptions sends nothing", func(t *testing.T) {
		sent := make(chan struct{}, 1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				sent <- struct{}{}
				return response(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(subscriptionsQuery).
			WithArgs("u-3").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "user_id", "created_at"}))

		require.NoError(t, wp.Dispatch(ctx, Job{UserID: "u-3"}))

		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
		select {
		case <-sent:
			t.Fatal("notification sent without subscriptions")
		case <-time.After(50 * time.Millisecond):
		}
	})
}
