package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/samirrijal/busticket/internal/adapters/notify"
	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/pkg/config"
)

func notice() domain.CancellationNotice {
	return domain.CancellationNotice{
		Phone:         "+34600000000",
		Name:          "Ane",
		TicketID:      "t-1",
		RefundAmount:  decimal.RequireFromString("20"),
		PaymentMethod: domain.PaymentCard,
	}
}

func fastRetry() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
}

func TestMessage(t *testing.T) {
	got := notify.Message(notice())
	want := "Hello Ane, your ticket t-1 has been cancelled. Refund: 20.00 (CARD)."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		cfg     config.NotifierConfig
		wantErr bool
	}{
		{config.NotifierConfig{Provider: "log"}, false},
		{config.NotifierConfig{Provider: "noop"}, false},
		{config.NotifierConfig{Provider: "webhook", WebhookURL: "http://localhost:1"}, false},
		{config.NotifierConfig{Provider: "webhook"}, true},
		{config.NotifierConfig{Provider: "carrier-pigeon"}, true},
	}
	for _, tt := range tests {
		_, err := notify.NewProvider(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewProvider(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
	}
}

func TestWebhook_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := notify.NewWebhookProvider(srv.URL, "secret", time.Second, notify.WithRetryBackOff(fastRetry))
	if err := p.Send(context.Background(), notice()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if got["recipient"] != "+34600000000" {
		t.Errorf("unexpected payload %v", got)
	}
	if !strings.Contains(got["message"].(string), "t-1") {
		t.Errorf("message does not name the ticket: %v", got["message"])
	}
}

func TestWebhook_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := notify.NewWebhookProvider(srv.URL, "", time.Second, notify.WithRetryBackOff(fastRetry))
	if err := p.Send(context.Background(), notice()); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not be retried, got %d attempts", calls.Load())
	}
}

type mockProvider struct {
	sendFn func(ctx context.Context, n domain.CancellationNotice) error
}

func (m *mockProvider) Send(ctx context.Context, n domain.CancellationNotice) error {
	return m.sendFn(ctx, n)
}

func TestDirect(t *testing.T) {
	var sent []string
	d := notify.NewDirect(&mockProvider{sendFn: func(_ context.Context, n domain.CancellationNotice) error {
		sent = append(sent, n.TicketID)
		return nil
	}})

	if err := d.SendTicketCancellation(context.Background(), notice()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sent) != 1 || sent[0] != "t-1" {
		t.Errorf("expected one notice for t-1, got %v", sent)
	}

	noPhone := notice()
	noPhone.Phone = ""
	if err := d.SendTicketCancellation(context.Background(), noPhone); err == nil {
		t.Error("expected error for passenger without phone")
	}
	if len(sent) != 1 {
		t.Error("notice without phone must not reach the provider")
	}
}

func TestDirect_PropagatesProviderError(t *testing.T) {
	boom := errors.New("sms gateway down")
	d := notify.NewDirect(&mockProvider{sendFn: func(context.Context, domain.CancellationNotice) error { return boom }})
	if err := d.SendTicketCancellation(context.Background(), notice()); !errors.Is(err, boom) {
		t.Errorf("expected provider error, got %v", err)
	}
}
