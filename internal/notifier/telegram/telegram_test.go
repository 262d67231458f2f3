package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"slotwatch/internal/notifier"
	logx "slotwatch/pkg/logx"
)

func TestSplitText(t *testing.T) {
	t.Parallel()
	if got := splitText("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("unexpected %v", got)
	}

	long := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	got := splitText(long, 8)
	if len(got) != 2 || got[0] != "aaaaaa" || got[1] != "bbbbbb" {
		t.Fatalf("unexpected chunks %q", got)
	}

	noBreak := strings.Repeat("x", 25)
	got = splitText(noBreak, 10)
	if len(got) != 3 || len(got[2]) != 5 {
		t.Fatalf("unexpected chunks %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	if err := (Config{Token: "123:abc"}).Validate(); err == nil {
		t.Fatal("expected error for missing chat id")
	}
	if err := (Config{Token: "123:abc", ChatID: 42}).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSendPostsMessage(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		paths  []string
		params []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		params = append(params, p)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":1700000000,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
	}))
	t.Cleanup(srv.Close)

	ch, err := New(Config{Token: "123:abc", ChatID: 42, APIURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ch.Send(context.Background(), notifier.Message{Body: "New appointment available"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 1 || paths[0] != "/bot123:abc/sendMessage" {
		t.Fatalf("paths = %v", paths)
	}
	if params[0]["chat_id"] != "42" || params[0]["text"] != "New appointment available" {
		t.Fatalf("params = %v", params[0])
	}
}

func TestSendReportsAPIError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	t.Cleanup(srv.Close)

	ch, err := New(Config{Token: "123:abc", ChatID: 42, APIURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ch.Send(context.Background(), notifier.Message{Body: "x"}); err == nil {
		t.Fatal("expected error from API")
	}
}
