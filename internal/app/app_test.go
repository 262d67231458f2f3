package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"slotwatch/internal/config"
	"slotwatch/internal/slot"
	"slotwatch/internal/ttp"
	"slotwatch/internal/watcher"
	logx "slotwatch/pkg/logx"
	"slotwatch/pkg/systemd"
)

func envManager(env map[string]string) *config.Manager {
	m := config.NewManager("")
	m.SetDotEnv()
	m.SetLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	return m
}

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/slots", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("locationId") {
		case "5446":
			fmt.Fprint(w, `[{"locationId":5446,"startTimestamp":"2024-03-01T09:00","endTimestamp":"2024-03-01T09:15","active":true}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})
	mux.HandleFunc("/locations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":5446,"name":"Test Airport Enrollment","city":"Test Airport"},{"id":7,"name":"Other","city":"Springfield"}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func baseEnv(srv *httptest.Server) map[string]string {
	return map[string]string{
		"API_URL":       srv.URL + "/slots?locationId={location}&limit={limit}",
		"LOCATIONS_URL": srv.URL + "/locations",
		"LOG_CONSOLE":   "false",
		"TIMEZONE":      "UTC",
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(envManager(map[string]string{"LOG_CONSOLE": "false"}))
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("err=%v want ErrInvalid", err)
	}
}

func TestNewRejectsPartialChannel(t *testing.T) {
	_, err := New(envManager(map[string]string{
		"LOCATIONS":   "5446:Test Airport",
		"LOG_CONSOLE": "false",
		"ACCOUNT_SID": "AC123",
	}))
	if !errors.Is(err, config.ErrInvalid) || !strings.Contains(err.Error(), "sms") {
		t.Fatalf("err=%v", err)
	}
}

func TestBuildChannels(t *testing.T) {
	cfg := config.Defaults()
	cfg.SMS = config.SMSConfig{AccountSID: "AC1", AuthToken: "tok", From: "+1555", To: "+1666"}
	cfg.Email = config.EmailConfig{From: "a@example.com", To: "b@example.com", SendGridAPIKey: "SG.key"}
	cfg.Telegram = config.TelegramConfig{Token: "123:abc", ChatID: 42}

	chs, err := buildChannels(&cfg, logx.Nop())
	if err != nil {
		t.Fatalf("buildChannels: %v", err)
	}
	var names []string
	for _, ch := range chs {
		names = append(names, ch.Name())
	}
	if want := []string{"sms", "email", "telegram"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("names=%v want %v", names, want)
	}

	empty := config.Defaults()
	chs, err = buildChannels(&empty, logx.Nop())
	if err != nil || len(chs) != 0 {
		t.Fatalf("defaults: chs=%d err=%v", len(chs), err)
	}
}

type fakeResolver map[string]slot.Location

func (f fakeResolver) Cities(context.Context) ([]string, error) {
	out := make([]string, 0, len(f))
	for _, l := range f {
		out = append(out, l.Name)
	}
	return out, nil
}

func (f fakeResolver) LookupCity(_ context.Context, city string) (slot.Location, error) {
	if l, ok := f[strings.ToLower(city)]; ok {
		return l, nil
	}
	return slot.Location{}, fmt.Errorf("%w: %q", ttp.ErrUnknownCity, city)
}

func TestResolveLocations(t *testing.T) {
	r := fakeResolver{
		"test airport": {ID: 5446, Name: "Test Airport"},
		"springfield":  {ID: 7, Name: "Springfield"},
	}
	cfg := config.Defaults()
	cfg.Locations = []config.LocationConfig{{ID: 5446, Name: "Configured"}, {ID: 9, Name: "Nine"}}
	cfg.Cities = []string{"Springfield", "Test Airport"}

	got, err := resolveLocations(context.Background(), &cfg, r, logx.Nop())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []slot.Location{{ID: 5446, Name: "Configured"}, {ID: 9, Name: "Nine"}, {ID: 7, Name: "Springfield"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	cfg.Cities = []string{"Atlantis"}
	if _, err := resolveLocations(context.Background(), &cfg, r, logx.Nop()); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("unknown city err=%v", err)
	}
}

func TestMapWatchConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Watch.CheckInterval = "5m"
	cfg.Watch.ErrorInterval = "30s"
	cfg.Watch.NotifyWithin = "720h"
	wc, err := mapWatchConfig(&cfg)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if wc.CheckInterval != 5*time.Minute || wc.ErrorInterval != 30*time.Second || wc.NotifyWithin != 720*time.Hour {
		t.Fatalf("wc=%+v", wc)
	}
	if wc.Display == nil || wc.Display.String() != "America/Chicago" {
		t.Fatalf("display=%v", wc.Display)
	}
}

type recordSD struct {
	mu     sync.Mutex
	states []string
}

func (r *recordSD) send(s string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
	return true, nil
}

func (r *recordSD) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

func TestRunEndToEnd(t *testing.T) {
	srv := fakeAPI(t)
	env := baseEnv(srv)
	env["CITIES"] = "test airport"
	env["LOCATIONS"] = "1:Empty Place"
	env["CHECK_INTERVAL"] = "3600"

	sd := &recordSD{}
	reports := make(chan watcher.Report, 4)
	a, err := New(envManager(env),
		WithSystemd(systemd.NewWith(sd.send)),
		WithReportHook(func(r watcher.Report) { reports <- r }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.RunID() == "" {
		t.Fatalf("empty run id")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var r watcher.Report
	select {
	case r = <-reports:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatalf("no iteration report")
	}
	if r.Errored || r.Locations != 2 || r.Notified != 1 || r.Next != time.Hour {
		t.Fatalf("report=%+v", r)
	}
	if !a.Watcher().Seen().Has(5446, slot.Slot{LocationID: 5446, Start: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), WallClock: true}) {
		t.Fatalf("slot not marked seen: %v", a.Watcher().Seen().Keys(5446))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	states := sd.snapshot()
	if len(states) < 3 || states[0] != "READY=1" || states[len(states)-1] != "STOPPING=1" {
		t.Fatalf("sd states=%v", states)
	}
	if !strings.HasPrefix(states[1], "STATUS=iteration 1: 2 locations, 1 new slots") {
		t.Fatalf("status=%q", states[1])
	}
}

func TestStartFailsOnUnknownCity(t *testing.T) {
	srv := fakeAPI(t)
	env := baseEnv(srv)
	env["CITIES"] = "Atlantis"

	a, err := New(envManager(env), WithSystemd(systemd.NewWith(func(string) (bool, error) { return false, nil })))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Run(context.Background()); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("Run err=%v", err)
	}
}

func TestRestartNeeded(t *testing.T) {
	a := config.Defaults()
	a.Locations = []config.LocationConfig{{ID: 1, Name: "x"}}
	b := a
	b.Logging.Level = "debug"
	if restartNeeded(&a, &b) {
		t.Fatalf("logging-only change flagged")
	}
	b.Watch.CheckInterval = "1m"
	if !restartNeeded(&a, &b) {
		t.Fatalf("watch change not flagged")
	}
}

func TestStartListsCitiesAndSuggests(t *testing.T) {
	srv := fakeAPI(t)
	env := baseEnv(srv)
	env["CITIES"] = "Springfeld"
	env["LOG_FILE"] = filepath.Join(t.TempDir(), "slotwatch.log")

	a, err := New(envManager(env), WithSystemd(systemd.NewWith(func(string) (bool, error) { return false, nil })))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = a.Run(context.Background())
	if !errors.Is(err, config.ErrInvalid) || !errors.Is(err, ttp.ErrUnknownCity) {
		t.Fatalf("Run err=%v", err)
	}
	if !strings.Contains(err.Error(), "did you mean Springfield?") {
		t.Fatalf("no suggestion in %v", err)
	}

	raw, rerr := os.ReadFile(env["LOG_FILE"])
	if rerr != nil {
		t.Fatalf("read log: %v", rerr)
	}
	var listed bool
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		var rec struct {
			Message string   `json:"message"`
			Cities  []string `json:"cities"`
		}
		if json.Unmarshal([]byte(line), &rec) != nil || rec.Message != "available cities" {
			continue
		}
		listed = reflect.DeepEqual(rec.Cities, []string{"Springfield", "Test Airport"})
	}
	if !listed {
		t.Fatalf("available cities not logged:\n%s", raw)
	}
}
