package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	json "github.com/goccy/go-json"

	"ringer-dashboard/internal/metrics"
	"ringer-dashboard/internal/model"
	"ringer-dashboard/internal/store"
	"ringer-dashboard/internal/timeline"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Job announces a plug state change of one user's device.
type Job struct {
	UserID string
	Record timeline.StatusRecord
}

// Payload is the JSON body delivered to the browser's service worker.
type Payload struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	PluggedIn bool      `json:"pluggedIn"`
	At        time.Time `json:"at"`
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size      int
	jobs      chan Job
	store     store.Store
	webpush   *webpush.Options
	sender    NotificationSender
	formatter timeline.Formatter
	metrics   metrics.Recorder
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, st store.Store, webpushOptions *webpush.Options, formatter timeline.Formatter, rec metrics.Recorder) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if rec == nil {
		rec = metrics.Noop()
	}
	return &WorkerPool{
		size:      size,
		jobs:      make(chan Job, size), // Buffered channel
		store:     st,
		webpush:   webpushOptions,
		sender:    &WebPushSender{}, // Use the real sender by default
		formatter: formatter,
		metrics:   rec,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			log.Printf("Worker %d processing state change for user %s", id, job.UserID)
			wp.sendNotificationsForUser(ctx, job)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a job for the workers. It blocks while the queue is full
// and gives up with ctx's error once ctx is done.
func (wp *WorkerPool) Dispatch(ctx context.Context, job Job) error {
	select {
	case wp.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

// BuildPayload renders the notification for a state change.
func (wp *WorkerPool) BuildPayload(rec timeline.StatusRecord) ([]byte, error) {
	entry := wp.formatter.Format(rec)
	p := Payload{
		Title:     "Device unplugged",
		Body:      fmt.Sprintf("Unplugged at %s %s", entry.Date, entry.Time),
		PluggedIn: rec.PluggedIn,
		At:        rec.Instant.UTC(),
	}
	if rec.PluggedIn {
		p.Title = "Device plugged in"
		p.Body = fmt.Sprintf("Plugged in at %s %s", entry.Date, entry.Time)
	}
	if rec.Location != "" {
		p.Body += " (" + rec.Location + ")"
	}
	return json.Marshal(p)
}

func (wp *WorkerPool) sendNotificationsForUser(ctx context.Context, job Job) {
	subscriptions, err := wp.store.SubscriptionsForUser(ctx, job.UserID)
	if err != nil {
		log.Printf("Error fetching subscriptions for user %s: %v", job.UserID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := wp.BuildPayload(job.Record)
	if err != nil {
		log.Printf("Error building notification for user %s: %v", job.UserID, err)
		return
	}

	log.Printf("Sending %d notifications for user %s", len(subscriptions), job.UserID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		wp.metrics.IncNotifications("failed")
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		wp.metrics.IncNotifications("expired")
		if err := wp.store.DeleteSubscriptionByEndpoint(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return
	}
	if resp.StatusCode >= 400 {
		log.Printf("Push service rejected notification to %s: status %d", sub.Endpoint, resp.StatusCode)
		wp.metrics.IncNotifications("failed")
		return
	}
	wp.metrics.IncNotifications("sent")
}

// WithSender replaces the push transport, e.g. with a recording fake.
func (wp *WorkerPool) WithSender(sender NotificationSender) *WorkerPool {
	wp.sender = sender
	return wp
}
