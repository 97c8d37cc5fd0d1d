package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// Notifier implements ports.NotificationService by starting a
// CancellationNoticeWorkflow. The call returns once Temporal has accepted
// the workflow; delivery happens on the notifier worker.
type Notifier struct {
	client    client.Client
	taskQueue string
}

// NewNotifier creates a new Notifier.
func NewNotifier(c client.Client, taskQueue string) *Notifier {
	return &Notifier{client: c, taskQueue: taskQueue}
}

// NoticeWorkflowID is one workflow per ticket, so a repeated start for the
// same cancellation is rejected by Temporal.
func NoticeWorkflowID(ticketID string) string {
	return "cancellation-notice-" + ticketID
}

func (n *Notifier) SendTicketCancellation(ctx context.Context, notice domain.CancellationNotice) error {
	opts := client.StartWorkflowOptions{
		ID:        NoticeWorkflowID(notice.TicketID),
		TaskQueue: n.taskQueue,
	}
	if _, err := n.client.ExecuteWorkflow(ctx, opts, CancellationNoticeWorkflow, notice); err != nil {
		return fmt.Errorf("start notice workflow: %w", err)
	}
	return nil
}
