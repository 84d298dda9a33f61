// Package activation runs the follow-up work for a verified payment: record
// the subscription and notify the clinic admin.
package activation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/payverify/internal/store"
)

// SubscriptionStore persists activated subscriptions. SaveSubscription must
// be idempotent on PaymentID and report whether a new row was written.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub *store.Subscription) (bool, error)
}

// Notifier announces a newly activated subscription.
type Notifier interface {
	SendConfirmation(ctx context.Context, sub *store.Subscription) error
}

// Payment is the verified callback plus its passthrough metadata.
type Payment struct {
	PaymentID   string
	OrderID     string
	ClinicName  string
	ContactName string
	Email       string
	Phone       string
	Plan        string
	Amount      string
}

// Activator records verified payments. Both collaborators are optional; with
// neither set it only logs the payment.
type Activator struct {
	subs     SubscriptionStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Activator. A nil store or notifier disables that step.
func New(subs SubscriptionStore, n Notifier, logger *slog.Logger) *Activator {
	return &Activator{
		subs:     subs,
		notifier: n,
		logger:   logger.With("component", "activation"),
		now:      time.Now,
	}
}

// Activate records p as an active subscription. It returns an error only when
// the store fails; notification failures are logged. A payment that was
// already recorded is not notified again.
func (a *Activator) Activate(ctx context.Context, p Payment) error {
	a.logger.Info("payment verified",
		"payment_id", p.PaymentID,
		"clinic_name", p.ClinicName,
		"email", p.Email,
		"plan", p.Plan,
		"amount", p.Amount,
	)

	sub := &store.Subscription{
		ID:          uuid.New().String(),
		PaymentID:   p.PaymentID,
		OrderID:     p.OrderID,
		ClinicName:  p.ClinicName,
		ContactName: p.ContactName,
		Email:       p.Email,
		Phone:       p.Phone,
		Plan:        p.Plan,
		Amount:      p.Amount,
		Status:      "active",
		CreatedAt:   a.now(),
	}

	if a.subs != nil {
		created, err := a.subs.SaveSubscription(ctx, sub)
		if err != nil {
			return fmt.Errorf("save subscription %s: %w", p.PaymentID, err)
		}
		if !created {
			a.logger.Info("duplicate payment delivery, subscription already active", "payment_id", p.PaymentID)
			return nil
		}
	}

	if a.notifier != nil {
		if err := a.notifier.SendConfirmation(ctx, sub); err != nil {
			a.logger.Warn("confirmation notification failed", "payment_id", p.PaymentID, "error", err)
		}
	}
	return nil
}
