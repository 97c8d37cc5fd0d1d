package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/valyala/fasthttp"

	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/pkg/config"
)

// Provider delivers one cancellation notice to a passenger.
type Provider interface {
	Send(ctx context.Context, notice domain.CancellationNotice) error
}

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(cfg config.NotifierConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "log":
		return LogProvider{}, nil
	case "noop":
		return NoopProvider{}, nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, errors.New("webhook provider needs a url")
		}
		return NewWebhookProvider(cfg.WebhookURL, cfg.WebhookToken, cfg.Timeout), nil
	}
	return nil, fmt.Errorf("unknown notification provider %q", cfg.Provider)
}

// Message renders the text a passenger receives.
func Message(n domain.CancellationNotice) string {
	return fmt.Sprintf("Hello %s, your ticket %s has been cancelled. Refund: %s (%s).",
		n.Name, n.TicketID, n.RefundAmount.StringFixed(2), n.PaymentMethod)
}

// LogProvider writes notices to the structured log.
type LogProvider struct{}

func (LogProvider) Send(ctx context.Context, n domain.CancellationNotice) error {
	slog.InfoContext(ctx, "cancellation notice", "phone", n.Phone, "ticket_id", n.TicketID, "message", Message(n))
	return nil
}

// NoopProvider drops every notice.
type NoopProvider struct{}

func (NoopProvider) Send(context.Context, domain.CancellationNotice) error { return nil }

// WebhookProvider posts notices as JSON, retrying server errors.
type WebhookProvider struct {
	url     string
	token   string
	timeout time.Duration
	client  *fasthttp.Client
	backoff func() backoff.BackOff
}

// WebhookOption tunes a WebhookProvider.
type WebhookOption func(*WebhookProvider)

// WithRetryBackOff replaces the retry schedule.
func WithRetryBackOff(b func() backoff.BackOff) WebhookOption {
	return func(p *WebhookProvider) { p.backoff = b }
}

// NewWebhookProvider creates a provider posting to url.
func NewWebhookProvider(url, token string, timeout time.Duration, opts ...WebhookOption) *WebhookProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &WebhookProvider{
		url:     url,
		token:   token,
		timeout: timeout,
		client:  &fasthttp.Client{Name: "busticket-notifier"},
		backoff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type webhookPayload struct {
	Recipient string                    `json:"recipient"`
	Message   string                    `json:"message"`
	Notice    domain.CancellationNotice `json:"notice"`
}

func (p *WebhookProvider) Send(ctx context.Context, n domain.CancellationNotice) error {
	body, err := json.Marshal(webhookPayload{Recipient: n.Phone, Message: Message(n), Notice: n})
	if err != nil {
		return err
	}
	return backoff.Retry(func() error { return p.post(body) }, backoff.WithContext(p.backoff(), ctx))
}

func (p *WebhookProvider) post(body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	req.SetBody(body)

	if err := p.client.DoTimeout(req, resp, p.timeout); err != nil {
		return err
	}
	status := resp.StatusCode()
	switch {
	case status < 300:
		return nil
	case status >= 500 || status == fasthttp.StatusTooManyRequests:
		return fmt.Errorf("webhook returned %d", status)
	default:
		return backoff.Permanent(fmt.Errorf("webhook rejected notice: %d", status))
	}
}
