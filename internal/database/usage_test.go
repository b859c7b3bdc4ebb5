package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestUsageStore tests persistent usage counters.
func TestUsageStore(t *testing.T) {
	t.Parallel()

	t.Run("increments per key", func(t *testing.T) {
		t.Parallel()

		store := NewUsageStore(setupTestDB(t))
		ctx := context.Background()

		if n, err := store.Increment(ctx, "keywords", 2); err != nil || n != 2 {
			t.Fatalf("expected 2, got %d (%v)", n, err)
		}
		if n, err := store.Increment(ctx, "keywords", 3); err != nil || n != 5 {
			t.Fatalf("expected 5, got %d (%v)", n, err)
		}
		if n, err := store.Get(ctx, "keywords"); err != nil || n != 5 {
			t.Errorf("expected 5, got %d (%v)", n, err)
		}
		if n, err := store.Get(ctx, "competitors"); err != nil || n != 0 {
			t.Errorf("expected 0 for unknown key, got %d (%v)", n, err)
		}
	})

	t.Run("resets when the period changes", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)
		store := NewUsageStore(setupTestDB(t), WithClock(func() time.Time { return now }))
		ctx := context.Background()

		if _, err := store.Increment(ctx, "critic", 4); err != nil {
			t.Fatal(err)
		}
		now = now.Add(2 * time.Hour)
		if n, err := store.Get(ctx, "critic"); err != nil || n != 0 {
			t.Errorf("expected a fresh counter in February, got %d (%v)", n, err)
		}
		if n, err := store.Increment(ctx, "critic", 1); err != nil || n != 1 {
			t.Errorf("expected 1, got %d (%v)", n, err)
		}
	})

	t.Run("daily period", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		store := NewUsageStore(setupTestDB(t), WithPeriod(Daily), WithClock(func() time.Time { return now }))
		ctx := context.Background()

		if _, err := store.Increment(ctx, "k", 1); err != nil {
			t.Fatal(err)
		}
		now = now.Add(24 * time.Hour)
		if n, _ := store.Get(ctx, "k"); n != 0 {
			t.Errorf("expected 0 on the next day, got %d", n)
		}
	})

	t.Run("counts survive reopening", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx := context.Background()
		db1, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := NewUsageStore(db1).Increment(ctx, "keywords", 7); err != nil {
			t.Fatal(err)
		}
		db1.Close()

		db2, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db2.Close()
		if n, err := NewUsageStore(db2).Get(ctx, "keywords"); err != nil || n != 7 {
			t.Errorf("expected 7 after reopen, got %d (%v)", n, err)
		}
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		t.Parallel()

		store := NewUsageStore(setupTestDB(t))
		ctx := context.Background()

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.Increment(ctx, "k", 1); err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()
		if n, _ := store.Get(ctx, "k"); n != 20 {
			t.Errorf("expected 20, got %d", n)
		}
	})

	t.Run("rejects an empty key", func(t *testing.T) {
		t.Parallel()

		store := NewUsageStore(setupTestDB(t))
		if _, err := store.Increment(context.Background(), "", 1); !errors.Is(err, ErrEmptyKey) {
			t.Errorf("expected ErrEmptyKey, got %v", err)
		}
		if _, err := store.Get(context.Background(), ""); !errors.Is(err, ErrEmptyKey) {
			t.Errorf("expected ErrEmptyKey, got %v", err)
		}
	})
}
