package database

import (
	"context"
	"fmt"
	"time"
)

// PeriodFunc maps a point in time to the usage period it is counted in.
type PeriodFunc func(time.Time) string

// Monthly counts usage per calendar month (UTC).
func Monthly(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Daily counts usage per calendar day (UTC).
func Daily(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// UsageStore is a persistent usage counter backed by the usage_counters
// table. Counters reset when the period changes.
type UsageStore struct {
	adb    *AuditDB
	period PeriodFunc
	now    func() time.Time
}

// UsageOption configures a UsageStore.
type UsageOption func(*UsageStore)

// WithPeriod sets how counters are bucketed. The default is Monthly.
func WithPeriod(period PeriodFunc) UsageOption {
	return func(u *UsageStore) {
		if period != nil {
			u.period = period
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) UsageOption {
	return func(u *UsageStore) {
		if now != nil {
			u.now = now
		}
	}
}

// NewUsageStore creates a usage store sharing the connection of adb.
func NewUsageStore(adb *AuditDB, opts ...UsageOption) *UsageStore {
	u := &UsageStore{
		adb:    adb,
		period: Monthly,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Increment adds n to the counter of key in the current period and returns
// the new value.
func (u *UsageStore) Increment(ctx context.Context, key string, n int64) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	now := u.now()
	period := u.period(now)

	tx, err := u.adb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert := `
	INSERT INTO usage_counters (key, period, count, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(key, period) DO UPDATE SET
		count = count + excluded.count,
		updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, upsert, key, period, n, formatTimestamp(now)); err != nil {
		return 0, fmt.Errorf("failed to increment usage counter: %w", err)
	}

	var count int64
	query := `SELECT count FROM usage_counters WHERE key = ? AND period = ?`
	if err := tx.QueryRowContext(ctx, query, key, period).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit usage counter: %w", err)
	}
	return count, nil
}

// Get returns the counter of key in the current period. Unknown keys
// count zero.
func (u *UsageStore) Get(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	query := `SELECT COALESCE(SUM(count), 0) FROM usage_counters WHERE key = ? AND period = ?`

	var count int64
	if err := u.adb.db.QueryRowContext(ctx, query, key, u.period(u.now())).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return count, nil
}
