package systemd

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	states []string
}

func (r *recorder) send(s string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
	return true, nil
}

func (r *recorder) count(state string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.states {
		if s == state {
			n++
		}
	}
	return n
}

func TestNotifierStates(t *testing.T) {
	r := &recorder{}
	n := NewWith(r.send)
	n.Ready()
	n.Status("checked 2 locations\nnext in 15m")
	n.Stopping()

	want := []string{"READY=1", "STATUS=checked 2 locations next in 15m", "STOPPING=1"}
	if !reflect.DeepEqual(r.states, want) {
		t.Fatalf("got %v want %v", r.states, want)
	}
}

func TestNilNotifierIsNoop(t *testing.T) {
	var n *Notifier
	if sent, err := n.Ready(); sent || err != nil {
		t.Fatalf("sent=%v err=%v", sent, err)
	}
	if err := n.RunWatchdog(context.Background()); err != nil {
		t.Fatalf("RunWatchdog: %v", err)
	}
}

func TestOutsideSystemdIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")
	n := New()
	if sent, err := n.Ready(); sent || err != nil {
		t.Fatalf("sent=%v err=%v", sent, err)
	}
	done := make(chan error, 1)
	go func() { done <- n.RunWatchdog(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunWatchdog: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWatchdog blocked without a watchdog")
	}
}

func TestRunWatchdogPingsUntilCancel(t *testing.T) {
	r := &recorder{}
	n := NewWith(r.send)
	n.interval = func() (time.Duration, error) { return 20 * time.Millisecond, nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.RunWatchdog(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for r.count("WATCHDOG=1") < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("pings=%d", r.count("WATCHDOG=1"))
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("RunWatchdog: %v", err)
	}
}

func TestRunWatchdogIntervalError(t *testing.T) {
	n := NewWith((&recorder{}).send)
	boom := errors.New("bad WATCHDOG_USEC")
	n.interval = func() (time.Duration, error) { return 0, boom }
	if err := n.RunWatchdog(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}
