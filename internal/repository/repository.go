// Package repository persists the cloud-side rows: lure analyses, their
// catches, the mirrored subscription state, and the monthly scan usage
// counters, all scoped to an authenticated identity.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a row does not exist or is owned by
// another identity. Ownership misses are indistinguishable from missing
// rows on purpose.
var ErrNotFound = errors.New("row not found")

// Postgres implements persistence against a PostgreSQL database.
type Postgres struct {
	DB *sql.DB
}

// NewPostgres creates a repository using the provided *sql.DB.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{DB: db}, nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	return p.DB.Close()
}

// Subscription is the entitlement state mirrored from the billing
// provider onto the identity.
type Subscription struct {
	UserID    string
	IsPro     bool
	Type      string
	ProductID string
	ExpiresAt *time.Time
	WillRenew bool
	UpdatedAt time.Time
}

// GetSubscription returns the mirrored subscription for the identity.
// Identities that never synced have no row and report ErrNotFound.
func (p *Postgres) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	var sub Subscription
	err := p.DB.QueryRowContext(ctx, `
		SELECT user_id, is_pro, COALESCE(subscription_type, ''), COALESCE(product_identifier, ''), expires_at, will_renew, updated_at
		FROM user_subscriptions WHERE user_id = $1
	`, userID).Scan(&sub.UserID, &sub.IsPro, &sub.Type, &sub.ProductID, &sub.ExpiresAt, &sub.WillRenew, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetSubscription: %w", err)
	}
	return &sub, nil
}

// UpsertSubscription writes the mirrored subscription state.
func (p *Postgres) UpsertSubscription(ctx context.Context, sub Subscription) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO user_subscriptions (user_id, is_pro, subscription_type, product_identifier, expires_at, will_renew, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			is_pro = EXCLUDED.is_pro,
			subscription_type = EXCLUDED.subscription_type,
			product_identifier = EXCLUDED.product_identifier,
			expires_at = EXCLUDED.expires_at,
			will_renew = EXCLUDED.will_renew,
			updated_at = NOW()
	`, sub.UserID, sub.IsPro, sub.Type, sub.ProductID, sub.ExpiresAt, sub.WillRenew)
	if err != nil {
		return fmt.Errorf("UpsertSubscription: %w", err)
	}
	return nil
}

// UsageCount returns the identification count for the identity in the
// billing period containing month. Missing rows count as zero.
func (p *Postgres) UsageCount(ctx context.Context, userID string, month time.Time) (int, error) {
	var used int
	err := p.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(used), 0) FROM scan_usage WHERE user_id = $1 AND month = $2
	`, userID, periodStart(month)).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("UsageCount: %w", err)
	}
	return used, nil
}

// IncrementUsage adds one successful identification to the period counter
// and returns the new count.
func (p *Postgres) IncrementUsage(ctx context.Context, userID string, month time.Time) (int, error) {
	var used int
	err := p.DB.QueryRowContext(ctx, `
		INSERT INTO scan_usage (user_id, month, used)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, month) DO UPDATE SET used = scan_usage.used + 1
		RETURNING used
	`, userID, periodStart(month)).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("IncrementUsage: %w", err)
	}
	return used, nil
}

// periodStart normalizes a point in time to its billing period key.
func periodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
