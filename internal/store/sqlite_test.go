package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestSubscription builds a subscription with a unique payment id.
func newTestSubscription(plan string, createdAt time.Time) *Subscription {
	return &Subscription{
		ID:          uuid.New().String(),
		PaymentID:   "pay_" + uuid.New().String()[:8],
		OrderID:     "order_" + uuid.New().String()[:8],
		ClinicName:  "Bright Smiles",
		ContactName: "Dr. Rao",
		Email:       "frontdesk@brightsmiles.example",
		Phone:       "+91-90000-00000",
		Plan:        plan,
		Amount:      "4999",
		Status:      "active",
		CreatedAt:   createdAt,
	}
}

func TestSaveAndGetSubscription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := newTestSubscription("pro", time.Now())
	created, err := s.SaveSubscription(ctx, sub)
	if err != nil {
		t.Fatalf("SaveSubscription: %v", err)
	}
	if !created {
		t.Fatal("expected first save to create")
	}

	got, err := s.GetSubscription(ctx, sub.PaymentID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if got.ID != sub.ID || got.OrderID != sub.OrderID || got.ClinicName != sub.ClinicName ||
		got.Email != sub.Email || got.Plan != "pro" || got.Amount != "4999" || got.Status != "active" {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, sub)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestSaveSubscriptionIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := newTestSubscription("basic", time.Now())
	if _, err := s.SaveSubscription(ctx, sub); err != nil {
		t.Fatal(err)
	}

	dup := *sub
	dup.ID = uuid.New().String()
	dup.Plan = "enterprise"
	created, err := s.SaveSubscription(ctx, &dup)
	if err != nil {
		t.Fatalf("duplicate save: %v", err)
	}
	if created {
		t.Error("expected duplicate payment id not to create a row")
	}

	got, err := s.GetSubscription(ctx, sub.PaymentID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != sub.ID || got.Plan != "basic" {
		t.Errorf("duplicate overwrote original: %+v", got)
	}
}

func TestGetSubscriptionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSubscription(context.Background(), "pay_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListSubscriptionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		sub := newTestSubscription("pro", base.Add(time.Duration(i)*time.Minute))
		if _, err := s.SaveSubscription(ctx, sub); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, sub.PaymentID)
	}

	subs, err := s.ListSubscriptions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSubscriptions: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 subscriptions, got %d", len(subs))
	}
	if subs[0].PaymentID != ids[2] || subs[2].PaymentID != ids[0] {
		t.Errorf("unexpected order: %s, %s, %s", subs[0].PaymentID, subs[1].PaymentID, subs[2].PaymentID)
	}

	limited, err := s.ListSubscriptions(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit 2: got %d", len(limited))
	}
}

func TestAuditEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	events := []*AuditEvent{
		{ID: uuid.New().String(), Action: ActionVerified, PaymentID: "pay_1", OrderID: "order_1",
			RemoteAddr: "10.0.0.1", Detail: json.RawMessage(`{"plan":"pro"}`), CreatedAt: now.Add(-2 * time.Minute)},
		{ID: uuid.New().String(), Action: ActionSignatureInvalid, PaymentID: "pay_2", OrderID: "order_2",
			CreatedAt: now.Add(-time.Minute)},
		{ID: uuid.New().String(), Action: ActionSignatureInvalid, PaymentID: "pay_1", OrderID: "order_1",
			CreatedAt: now},
	}
	for _, ev := range events {
		if err := s.LogAuditEvent(ctx, ev); err != nil {
			t.Fatalf("LogAuditEvent: %v", err)
		}
	}

	all, err := s.ListAuditEvents(ctx, AuditFilter{})
	if err != nil {
		t.Fatalf("ListAuditEvents: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].ID != events[2].ID {
		t.Errorf("expected newest first, got %s", all[0].ID)
	}
	if string(all[2].Detail) != `{"plan":"pro"}` {
		t.Errorf("detail: got %s", all[2].Detail)
	}
	if all[0].Detail != nil {
		t.Errorf("expected nil detail, got %s", all[0].Detail)
	}

	invalid, err := s.ListAuditEvents(ctx, AuditFilter{Action: ActionSignatureInvalid})
	if err != nil {
		t.Fatal(err)
	}
	if len(invalid) != 2 {
		t.Errorf("action filter: got %d", len(invalid))
	}

	both, err := s.ListAuditEvents(ctx, AuditFilter{Action: ActionSignatureInvalid, PaymentID: "pay_1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(both) != 1 || both[0].ID != events[2].ID {
		t.Errorf("combined filter: got %+v", both)
	}

	page, err := s.ListAuditEvents(ctx, AuditFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != events[1].ID {
		t.Errorf("pagination: got %+v", page)
	}
}

func TestPurgeOldAuditEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := &AuditEvent{ID: uuid.New().String(), Action: ActionVerified, CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &AuditEvent{ID: uuid.New().String(), Action: ActionVerified, CreatedAt: time.Now()}
	for _, ev := range []*AuditEvent{old, fresh} {
		if err := s.LogAuditEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.PurgeOldAuditEvents(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeOldAuditEvents: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged, got %d", n)
	}

	left, err := s.ListAuditEvents(ctx, AuditFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].ID != fresh.ID {
		t.Errorf("unexpected remaining events: %+v", left)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{{0, 50}, {-3, 50}, {10, 10}, {900, 500}}
	for _, tt := range tests {
		if got := clampLimit(tt.in, 50, 500); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
