package watcher

import (
	"context"
	"time"

	"slotwatch/internal/notifier"
	"slotwatch/internal/slot"
)

// Fetcher returns the currently open slots of a location.
type Fetcher interface {
	FetchSlots(ctx context.Context, loc slot.Location) ([]slot.Slot, error)
}

// Notifier delivers one message.
type Notifier interface {
	Notify(ctx context.Context, m notifier.Message) error
}

// Config controls loop timing and message rendering.
//
// Defaults (when zero):
//   - CheckInterval: 15m
//   - ErrorInterval: 1m
//   - NotifyWithin: 0 (no horizon)
//   - Display: America/Chicago, falling back to UTC
type Config struct {
	CheckInterval time.Duration
	ErrorInterval time.Duration

	// NotifyWithin skips slots starting later than now+NotifyWithin.
	// Skipped slots are not marked seen, so they notify once they come
	// within range.
	NotifyWithin time.Duration

	// Display is the zone zoned timestamps are rendered in.
	Display *time.Location
}

// Report summarizes one iteration.
type Report struct {
	Iteration    int
	Locations    int
	Fetched      int // slots returned across locations
	Notified     int // notification attempts
	NotifyFailed int
	Failed       []int // location ids whose fetch failed
	Errored      bool
	Next         time.Duration
	Took         time.Duration
}
