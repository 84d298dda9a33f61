package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a new PostgreSQL store and runs migrations.
func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) migrate() error {
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
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_created_at ON subscriptions(created_at)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			payment_id TEXT NOT NULL DEFAULT '',
			order_id TEXT NOT NULL DEFAULT '',
			remote_addr TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// --- Subscriptions ---

func (s *PostgresStore) SaveSubscription(ctx context.Context, sub *Subscription) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, payment_id, order_id, clinic_name, contact_name, email, phone, plan, amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (payment_id) DO NOTHING`,
		sub.ID, sub.PaymentID, sub.OrderID, sub.ClinicName, sub.ContactName, sub.Email,
		sub.Phone, sub.Plan, sub.Amount, sub.Status, sub.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert subscription: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) GetSubscription(ctx context.Context, paymentID string) (*Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, payment_id, order_id, clinic_name, contact_name, email, phone, plan, amount, status, created_at
		 FROM subscriptions WHERE payment_id = $1`, paymentID)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

func (s *PostgresStore) ListSubscriptions(ctx context.Context, limit int) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payment_id, order_id, clinic_name, contact_name, email, phone, plan, amount, status, created_at
		 FROM subscriptions ORDER BY created_at DESC, id LIMIT $1`, clampLimit(limit, 50, 500))
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

func (s *PostgresStore) LogAuditEvent(ctx context.Context, event *AuditEvent) error {
	detail := ""
	if event.Detail != nil {
		detail = string(event.Detail)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, action, payment_id, order_id, remote_addr, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Action, event.PaymentID, event.OrderID, event.RemoteAddr, detail, event.CreatedAt)
	return err
}

func (s *PostgresStore) ListAuditEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	var (
		where []string
		args  []any
	)
	if filter.Action != "" {
		args = append(args, filter.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.PaymentID != "" {
		args = append(args, filter.PaymentID)
		where = append(where, fmt.Sprintf("payment_id = $%d", len(args)))
	}

	query := `SELECT id, action, payment_id, order_id, remote_addr, detail, created_at FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, clampLimit(filter.Limit, 100, 1000), max(filter.Offset, 0))
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

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

func (s *PostgresStore) PurgeOldAuditEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
