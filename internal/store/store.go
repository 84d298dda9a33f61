// Package store defines persistence for activated subscriptions and the
// verification audit trail, with SQLite and PostgreSQL implementations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface.
type Store interface {
	// Subscriptions
	SaveSubscription(ctx context.Context, sub *Subscription) (bool, error)
	GetSubscription(ctx context.Context, paymentID string) (*Subscription, error)
	ListSubscriptions(ctx context.Context, limit int) ([]Subscription, error)

	// Audit
	LogAuditEvent(ctx context.Context, event *AuditEvent) error
	ListAuditEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
	PurgeOldAuditEvents(ctx context.Context, before time.Time) (int64, error)

	// Health
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Subscription is a plan activation recorded after a verified payment.
// PaymentID is unique; saving the same payment twice is a no-op.
type Subscription struct {
	ID          string    `json:"id"`
	PaymentID   string    `json:"payment_id"`
	OrderID     string    `json:"order_id"`
	ClinicName  string    `json:"clinic_name,omitempty"`
	ContactName string    `json:"contact_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Plan        string    `json:"plan,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Status      string    `json:"status"` // "active"
	CreatedAt   time.Time `json:"created_at"`
}

// AuditEvent is a log entry for one verification attempt.
type AuditEvent struct {
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	PaymentID  string          `json:"payment_id,omitempty"`
	OrderID    string          `json:"order_id,omitempty"`
	RemoteAddr string          `json:"remote_addr,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Audit actions.
const (
	ActionVerified         = "payment.verified"
	ActionSignatureInvalid = "payment.signature_invalid"
	ActionRejected         = "payment.rejected"
)

// AuditFilter specifies criteria for filtering audit events.
type AuditFilter struct {
	Action    string
	PaymentID string
	Limit     int
	Offset    int
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
