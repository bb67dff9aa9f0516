package dashboard

import (
	"context"
	"sync/atomic"
	"time"

	"ringer-dashboard/internal/timeline"
)

// RefresherOptions configures a Refresher.
type RefresherOptions struct {
	// AutoRefresh re-fetches periodically when positive.
	AutoRefresh time.Duration
	// Tick is how often the live "now" advances; defaults to one second.
	Tick time.Duration
	// RangeFor computes the range to fetch at a given instant.
	RangeFor func(now time.Time) Range
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Frame is one rendered state of a live dashboard.
type Frame struct {
	View View
	// Err is the most recent fetch error; View keeps the last good data.
	Err error
}

type fetchResult struct {
	records []timeline.StatusRecord
	rng     Range
	err     error
}

// Refresher keeps a user's dashboard live. One fetch runs at a time; triggers
// arriving while a fetch is in flight are dropped. Between fetches the last
// records are recomputed every tick so the open interval keeps growing.
type Refresher struct {
	svc    *Service
	userID string
	opts   RefresherOptions
	render func(Frame)

	busy   atomic.Bool
	manual chan struct{}
}

// NewRefresher creates a Refresher that hands every frame to render.
func NewRefresher(svc *Service, userID string, opts RefresherOptions, render func(Frame)) *Refresher {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.RangeFor == nil {
		lookback := svc.lookback
		opts.RangeFor = func(now time.Time) Range {
			return Range{Start: now.Add(-lookback), End: now, Live: true}
		}
	}
	return &Refresher{
		svc:    svc,
		userID: userID,
		opts:   opts,
		render: render,
		manual: make(chan struct{}, 1),
	}
}

// RequestRefresh asks the running loop for a fetch. It never blocks.
func (r *Refresher) RequestRefresh() {
	select {
	case r.manual <- struct{}{}:
	default:
	}
}

// Busy reports whether a fetch is in flight.
func (r *Refresher) Busy() bool {
	return r.busy.Load()
}

// Run fetches once and then serves refresh and tick events until ctx is done.
// Both timers are stopped on return.
func (r *Refresher) Run(ctx context.Context) error {
	results := make(chan fetchResult, 1)
	r.trigger(ctx, results)

	nowTicker := time.NewTicker(r.opts.Tick)
	defer nowTicker.Stop()

	var refreshC <-chan time.Time
	if r.opts.AutoRefresh > 0 {
		refreshTicker := time.NewTicker(r.opts.AutoRefresh)
		defer refreshTicker.Stop()
		refreshC = refreshTicker.C
	}

	var (
		records []timeline.StatusRecord
		rng     Range
		loaded  bool
		lastErr error
	)
	emit := func() {
		view := View{UserID: r.userID, Range: rng, Now: r.opts.Clock()}
		if loaded {
			view = r.svc.Compose(r.userID, records, rng, view.Now)
		}
		r.render(Frame{View: view, Err: lastErr})
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-results:
			r.busy.Store(false)
			lastErr = res.err
			if res.err == nil {
				records, rng, loaded = res.records, res.rng, true
			}
			emit()
		case <-refreshC:
			r.trigger(ctx, results)
		case <-r.manual:
			r.trigger(ctx, results)
		case <-nowTicker.C:
			if loaded {
				emit()
			}
		}
	}
}

// trigger starts a fetch unless one is already running.
func (r *Refresher) trigger(ctx context.Context, results chan<- fetchResult) bool {
	if !r.busy.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		rng := r.opts.RangeFor(r.opts.Clock())
		records, err := r.svc.fetcher.FetchStatus(ctx, r.userID, rng.Start, rng.End)
		results <- fetchResult{records: records, rng: rng, err: err}
	}()
	return true
}
