package notify

import (
	"context"
	"errors"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// Direct implements ports.NotificationService by calling a provider inline.
type Direct struct {
	provider Provider
}

// NewDirect creates a new Direct notifier.
func NewDirect(p Provider) *Direct {
	return &Direct{provider: p}
}

func (d *Direct) SendTicketCancellation(ctx context.Context, notice domain.CancellationNotice) error {
	if notice.Phone == "" {
		return errors.New("passenger has no phone number")
	}
	return d.provider.Send(ctx, notice)
}
