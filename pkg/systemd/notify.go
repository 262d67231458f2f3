// Package systemd reports service state through the sd_notify protocol.
// Outside systemd (no NOTIFY_SOCKET) every call is a no-op.
package systemd

import (
	"context"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

type Notifier struct {
	send     func(state string) (bool, error)
	interval func() (time.Duration, error)
}

func New() *Notifier {
	return &Notifier{
		send:     func(state string) (bool, error) { return daemon.SdNotify(false, state) },
		interval: func() (time.Duration, error) { return daemon.SdWatchdogEnabled(false) },
	}
}

// NewWith routes notifications to fn instead of the systemd socket. The
// watchdog is disabled.
func NewWith(fn func(state string) (bool, error)) *Notifier {
	return &Notifier{send: fn}
}

func (n *Notifier) Ready() (bool, error)    { return n.notify(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() (bool, error) { return n.notify(daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(msg string) (bool, error) {
	msg = strings.ReplaceAll(msg, "\n", " ")
	return n.notify("STATUS=" + msg)
}

// RunWatchdog pings the watchdog at half the interval systemd asked for
// (WatchdogSec) until ctx ends. Without a watchdog it returns at once.
func (n *Notifier) RunWatchdog(ctx context.Context) error {
	if n == nil || n.interval == nil {
		return nil
	}
	every, err := n.interval()
	if err != nil || every <= 0 {
		return err
	}
	every /= 2

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if _, err := n.notify(daemon.SdNotifyWatchdog); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (n *Notifier) notify(state string) (bool, error) {
	if n == nil || n.send == nil {
		return false, nil
	}
	return n.send(state)
}
