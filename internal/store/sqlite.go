package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite store and runs migrations.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	// For in-memory databases, use shared cache so all connections in the pool
	// see the same data. Without this, each pooled connection gets a separate
	// empty database.
	if dsn == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			payment_id TEXT NOT NULL UNIQUE,
			order_id TEXT NOT NULL,
			clinic_name TEXT NOT NULL DEFAULT '',
			contact_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			plan TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_created_at ON subscriptions(created_at)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			payment_id TEXT NOT NULL DEFAULT '',
			order_id TEXT NOT NULL DEFAULT '',
			remote_addr TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_action ON audit_events(action)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_payment_id ON audit_events(payment_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n  SQL: %s", err, m)
		}
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Subscriptions ---

func (s *SQLiteStore) SaveSubscription(ctx context.Context, sub *Subscription) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, payment_id, order_id, clinic_name, contact_name, email, phone, plan, amount, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(payment_id) DO NOTHING`,
		sub.ID, sub.PaymentID, sub.OrderID, sub.ClinicName, sub.ContactName, sub.Email,
		sub.Phone, sub.Plan, sub.Amount, sub.Status, sub.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert subscription: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) GetSubscription(ctx context.Context, paymentID string) (*Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, payment_id, order_id, clinic_name, contact_name, email, phone, plan, amount, status, created_at
		 FROM subscriptions WHERE payment_id = ?`, paymentID)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

func (s *SQLiteStore) ListSubscriptions(ctx context.Context, limit int) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payment_id, order_id, clinic_name, contact_name, email, phone, plan, amount, status, created_at
		 FROM subscriptions ORDER BY created_at DESC, id LIMIT ?`, clampLimit(limit, 50, 500))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// --- Audit ---

func (s *SQLiteStore) LogAuditEvent(ctx context.Context, event *AuditEvent) error {
	detail := ""
	if event.Detail != nil {
		detail = string(event.Detail)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, action, payment_id, order_id, remote_addr, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Action, event.PaymentID, event.OrderID, event.RemoteAddr, detail, event.CreatedAt.UTC())
	return err
}

func (s *SQLiteStore) ListAuditEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	var (
		where []string
		args  []any
	)
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.PaymentID != "" {
		where = append(where, "payment_id = ?")
		args = append(args, filter.PaymentID)
	}

	query := `SELECT id, action, payment_id, order_id, remote_addr, detail, created_at FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, clampLimit(filter.Limit, 100, 1000), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		ev, err := scanAuditEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) PurgeOldAuditEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var sub Subscription
	if err := row.Scan(&sub.ID, &sub.PaymentID, &sub.OrderID, &sub.ClinicName, &sub.ContactName,
		&sub.Email, &sub.Phone, &sub.Plan, &sub.Amount, &sub.Status, &sub.CreatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}

func scanAuditEvent(row rowScanner) (*AuditEvent, error) {
	var (
		ev     AuditEvent
		detail string
	)
	if err := row.Scan(&ev.ID, &ev.Action, &ev.PaymentID, &ev.OrderID, &ev.RemoteAddr, &detail, &ev.CreatedAt); err != nil {
		return nil, err
	}
	if detail != "" {
		ev.Detail = []byte(detail)
	}
	return &ev, nil
}
