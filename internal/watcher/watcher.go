// Package watcher polls the status API for users with push subscriptions and
// raises a notification job whenever a device's plug state flips.
package watcher

import (
	"context"
	"log"
	"time"

	"ringer-dashboard/config"
	"ringer-dashboard/internal/dashboard"
	"ringer-dashboard/internal/metrics"
	"ringer-dashboard/internal/notification"
	"ringer-dashboard/internal/store"
	"ringer-dashboard/internal/timeline"
)

// Dispatcher accepts notification jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, job notification.Job) error
}

// Service runs the polling loop.
type Service struct {
	cfg     config.WatcherConfig
	store   store.Store
	fetcher dashboard.StatusFetcher
	jobs    Dispatcher
	metrics metrics.Recorder
	now     func() time.Time
}

// NewService creates a watcher. A nil recorder disables metrics.
func NewService(cfg config.WatcherConfig, st store.Store, fetcher dashboard.StatusFetcher, jobs Dispatcher, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Noop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	return &Service{
		cfg:     cfg,
		store:   st,
		fetcher: fetcher,
		jobs:    jobs,
		metrics: rec,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Watcher is disabled. Not starting.")
		return
	}
	log.Println("Starting watcher service...")

	s.PollOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Watcher service shutting down.")
			return
		case <-timer.C:
			s.PollOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// PollOnce checks every watched user once and returns the users whose state changed.
func (s *Service) PollOnce(ctx context.Context) []string {
	users, err := s.store.WatchedUsers(ctx)
	if err != nil {
		log.Printf("Error listing watched users: %v", err)
		return nil
	}

	var changed []string
	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}
		if s.pollUser(ctx, userID) {
			changed = append(changed, userID)
		}
	}

	if len(changed) > 0 {
		log.Printf("Watch cycle finished: %d of %d users changed state", len(changed), len(users))
	}
	return changed
}

func (s *Service) pollUser(ctx context.Context, userID string) bool {
	now := s.now()
	records, err := s.fetcher.FetchStatus(ctx, userID, now.Add(-s.cfg.Lookback), now)
	if err != nil {
		log.Printf("Error fetching status for user %s: %v", userID, err)
		return false
	}

	latest, ok := Latest(records)
	if !ok {
		return false
	}

	changed, err := s.store.UpdateDeviceState(ctx, userID, latest, now)
	if err != nil {
		log.Printf("Error updating device state for user %s: %v", userID, err)
		return false
	}
	if !changed {
		return false
	}

	s.metrics.IncStateChanges()
	if err := s.jobs.Dispatch(ctx, notification.Job{UserID: userID, Record: latest}); err != nil {
		log.Printf("Dropped notification for user %s: %v", userID, err)
	}
	return true
}

// Latest returns the record with the greatest instant. Ties keep the later element.
func Latest(records []timeline.StatusRecord) (timeline.StatusRecord, bool) {
	if len(records) == 0 {
		return timeline.StatusRecord{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if !r.Instant.Before(best.Instant) {
			best = r
		}
	}
	return best, true
}
