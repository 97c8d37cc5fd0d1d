package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/busticket/internal/adapters/notify"
	"github.com/samirrijal/busticket/internal/core/domain"
)

// Activities holds the activity implementations for the notice workflow.
type Activities struct {
	Provider notify.Provider
}

// SendCancellationNotice hands the notice to the configured provider.
func (a *Activities) SendCancellationNotice(ctx context.Context, notice domain.CancellationNotice) error {
	if notice.Phone == "" {
		return temporal.NewNonRetryableApplicationError("passenger has no phone number", "MissingPhone", nil)
	}
	if a.Provider == nil {
		return errors.New("no notification provider configured")
	}
	return a.Provider.Send(ctx, notice)
}
