package sms

import (
	"context"
	"errors"
	"testing"

	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"slotwatch/internal/notifier"
	logx "slotwatch/pkg/logx"
)

type fakeAPI struct {
	params *openapi.CreateMessageParams
	err    error
}

func (f *fakeAPI) CreateMessage(p *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = p
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

var validCfg = Config{AccountSID: "AC1", AuthToken: "tok", From: "+15550000001", To: "+15550000002"}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	if err := validCfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	partial := validCfg
	partial.AuthToken = ""
	if err := partial.Validate(); err == nil {
		t.Fatal("expected error for missing auth token")
	}
	if (Config{}).Enabled() {
		t.Fatal("empty config must be disabled")
	}
	if !partial.Enabled() {
		t.Fatal("partial config counts as enabled so it can be reported")
	}
}

func TestSendBuildsMessage(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	ch := newChannel(validCfg, api, logx.Nop())

	if err := ch.Send(context.Background(), notifier.Message{Body: "New appointment"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if api.params == nil {
		t.Fatal("CreateMessage not called")
	}
	if *api.params.To != validCfg.To || *api.params.From != validCfg.From || *api.params.Body != "New appointment" {
		t.Fatalf("unexpected params to=%s from=%s body=%s", *api.params.To, *api.params.From, *api.params.Body)
	}
}

func TestSendPropagatesError(t *testing.T) {
	t.Parallel()
	boom := errors.New("21211 invalid number")
	ch := newChannel(validCfg, &fakeAPI{err: boom}, logx.Nop())
	if err := ch.Send(context.Background(), notifier.Message{Body: "x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestSendEmptyBody(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	ch := newChannel(validCfg, api, logx.Nop())
	if err := ch.Send(context.Background(), notifier.Message{}); !errors.Is(err, notifier.ErrEmptyMessage) {
		t.Fatalf("err = %v", err)
	}
	if api.params != nil {
		t.Fatal("API must not be called")
	}
}
