package watcher

import (
	"context"
	"time"

	"slotwatch/internal/slot"
	logx "slotwatch/pkg/logx"
)

const (
	DefaultCheckInterval = 15 * time.Minute
	DefaultErrorInterval = time.Minute
)

type Watcher struct {
	cfg    Config
	locs   []slot.Location
	fetch  Fetcher
	notify Notifier
	seen   *slot.SeenSet

	log      logx.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	onReport func(Report)

	iter int
}

type Option func(*Watcher)

func WithLogger(log logx.Logger) Option { return func(w *Watcher) { w.log = log } }

// WithClock replaces time.Now (horizon filter and timings).
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		if now != nil {
			w.now = now
		}
	}
}

// WithSleep replaces the inter-iteration sleep. The function must return
// ctx.Err() when ctx ends first.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.sleep = fn
		}
	}
}

// WithReportHook is called after every iteration, before sleeping.
func WithReportHook(fn func(Report)) Option { return func(w *Watcher) { w.onReport = fn } }

// New builds a watcher for the given locations. The order of locs is the
// fetch order.
func New(cfg Config, locs []slot.Location, f Fetcher, n Notifier, opts ...Option) *Watcher {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.ErrorInterval <= 0 {
		cfg.ErrorInterval = DefaultErrorInterval
	}
	if cfg.Display == nil {
		if tz, err := time.LoadLocation("America/Chicago"); err == nil {
			cfg.Display = tz
		} else {
			cfg.Display = time.UTC
		}
	}
	w := &Watcher{
		cfg:    cfg,
		locs:   append([]slot.Location(nil), locs...),
		fetch:  f,
		notify: n,
		seen:   slot.NewSeenSet(),
		now:    time.Now,
		sleep:  sleepCtx,
	}
	for _, o := range opts {
		o(w)
	}
	if w.log.IsZero() {
		w.log = logx.Nop()
	}
	return w
}

// Seen exposes the seen-set for inspection. It must not be mutated while
// Run is active.
func (w *Watcher) Seen() *slot.SeenSet { return w.seen }

// Run loops until ctx ends. It always returns nil: cancellation is the only
// way out and it is not an error.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("⏰ checking for appointments", logx.Int("locations", len(w.locs)),
		logx.Duration("check_interval", w.cfg.CheckInterval),
		logx.Duration("error_interval", w.cfg.ErrorInterval))
	for {
		r := w.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		w.log.Info("⏰ waiting before next check", logx.Duration("next", r.Next), logx.Bool("errored", r.Errored))
		if err := w.sleep(ctx, r.Next); err != nil {
			return nil
		}
	}
}

// RunOnce performs a single iteration over all locations.
func (w *Watcher) RunOnce(ctx context.Context) Report {
	w.iter++
	start := w.now()
	r := Report{Iteration: w.iter, Locations: len(w.locs)}

	for _, loc := range w.locs {
		if ctx.Err() != nil {
			r.Errored = true
			break
		}
		w.checkLocation(ctx, loc, &r)
	}

	r.Next = w.cfg.CheckInterval
	if r.Errored {
		r.Next = w.cfg.ErrorInterval
	}
	r.Took = w.now().Sub(start)
	if w.onReport != nil {
		w.onReport(r)
	}
	return r
}

func (w *Watcher) checkLocation(ctx context.Context, loc slot.Location, r *Report) {
	log := w.log.With(logx.Int("location", loc.ID), logx.String("name", loc.Name))

	slots, err := w.fetch.FetchSlots(ctx, loc)
	if err != nil {
		log.Error("fetch failed", logx.Err(err))
		r.Errored = true
		r.Failed = append(r.Failed, loc.ID)
		return
	}
	r.Fetched += len(slots)
	if len(slots) == 0 {
		log.Info("no appointments found")
		return
	}

	var horizon time.Time
	if w.cfg.NotifyWithin > 0 {
		horizon = w.now().Add(w.cfg.NotifyWithin)
	}

	for _, s := range w.seen.Unseen(loc.ID, slots) {
		if !horizon.IsZero() && absStart(s, w.cfg.Display).After(horizon) {
			log.Debug("slot beyond horizon", logx.String("slot", s.Key()))
			continue
		}
		r.Notified++
		if err := w.notify.Notify(ctx, FormatMessage(loc, s, w.cfg.Display)); err != nil {
			r.NotifyFailed++
			log.Warn("notification failed", logx.String("slot", s.Key()), logx.Err(err))
		}
		// at most one attempt per slot, whatever the outcome
		w.seen.Mark(loc.ID, s)
	}

	log.Info("known appointments", logx.Strings("slots", w.seen.Keys(loc.ID)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
