package activation

import (
	"context"
	"log/slog"

	"github.com/clinicdesk/payverify/internal/store"
)

// LogNotifier writes an admin notification to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

func (n *LogNotifier) SendConfirmation(ctx context.Context, sub *store.Subscription) error {
	n.logger.InfoContext(ctx, "subscription activated",
		"payment_id", sub.PaymentID,
		"order_id", sub.OrderID,
		"clinic_name", sub.ClinicName,
		"contact_name", sub.ContactName,
		"plan", sub.Plan,
		"amount", sub.Amount,
	)
	return nil
}
