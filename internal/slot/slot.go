// Package slot holds the appointment data model: monitored locations, the
// slots reported for them, and the in-memory record of slots already
// notified.
package slot

import (
	"fmt"
	"sort"
	"time"
)

// KeyLayout renders a wall-clock slot start into its identity key.
// Zoned starts are keyed as RFC 3339 in UTC instead.
const KeyLayout = "2006-01-02T15:04:05"

// Location is a monitored appointment site.
type Location struct {
	ID   int
	Name string
}

func (l Location) String() string {
	if l.Name == "" {
		return fmt.Sprintf("#%d", l.ID)
	}
	return fmt.Sprintf("%s (#%d)", l.Name, l.ID)
}

// Slot is a bookable start time at a location.
//
// When WallClock is set the API reported no UTC offset: Start holds the
// site's local wall-clock time in a UTC container and must not be converted.
type Slot struct {
	LocationID int
	Start      time.Time
	End        time.Time
	WallClock  bool
}

// Key is the identity of the slot within its location. Zoned starts are
// normalized to UTC so one instant has one key whatever offset it was
// reported with.
func (s Slot) Key() string {
	if s.WallClock {
		return s.Start.Format(KeyLayout)
	}
	return s.Start.UTC().Format(time.RFC3339Nano)
}

// Sort orders slots ascending by start time. Equal starts keep input order.
func Sort(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
}
