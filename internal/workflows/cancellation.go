package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// CancellationNoticeWorkflow delivers a cancellation notice to the passenger,
// retrying the delivery activity until it succeeds or the attempts run out.
func CancellationNoticeWorkflow(ctx workflow.Context, notice domain.CancellationNotice) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Sending cancellation notice", "ticketID", notice.TicketID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var a *Activities
	if err := workflow.ExecuteActivity(ctx, a.SendCancellationNotice, notice).Get(ctx, nil); err != nil {
		logger.Warn("cancellation notice not delivered", "ticketID", notice.TicketID, "error", err)
		return err
	}

	logger.Info("Cancellation notice delivered", "ticketID", notice.TicketID)
	return nil
}
