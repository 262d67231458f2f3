package watcher

import (
	"fmt"
	"time"

	"slotwatch/internal/notifier"
	"slotwatch/internal/slot"
)

const (
	subject         = "Appointment Available"
	wallClockLayout = "2006-01-02 15:04"
	zonedLayout     = "2006-01-02 15:04 MST"
)

// FormatMessage renders the notification for a new slot.
func FormatMessage(loc slot.Location, s slot.Slot, display *time.Location) notifier.Message {
	name := loc.Name
	if name == "" {
		name = loc.String()
	}
	return notifier.Message{
		Subject: subject,
		Body:    fmt.Sprintf("New appointment available on %s in %s", FormatStart(s, display), name),
	}
}

// FormatStart renders a slot start. Wall-clock times are shown as reported;
// zoned times are converted to display.
func FormatStart(s slot.Slot, display *time.Location) string {
	if s.WallClock {
		return s.Start.Format(wallClockLayout)
	}
	if display == nil {
		display = time.UTC
	}
	return s.Start.In(display).Format(zonedLayout)
}

// absStart places a slot on the absolute timeline. Wall-clock starts are
// read in display.
func absStart(s slot.Slot, display *time.Location) time.Time {
	if !s.WallClock {
		return s.Start
	}
	if display == nil {
		display = time.UTC
	}
	t := s.Start
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), display)
}
