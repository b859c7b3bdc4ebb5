package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/siteaudit/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *AuditDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleResult(jobID, site string, started time.Time, score float64) *model.AuditResult {
	r := model.NewAuditResult(jobID, site)
	r.StartedAt = started
	r.CompletedAt = started.Add(time.Minute)
	r.Score = score
	r.Category = model.CategoryFor(score)
	r.Pages = []model.PageScore{{URL: site, Role: model.PageRoleHomepage, Score: score}}
	r.IssueGroups = []model.IssueGroup{{Type: "missing_title", Severity: model.SeverityHigh, IssueCount: 1}}
	return r
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Fatalf("expected ErrDatabaseNotFound, got %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		ctx := context.Background()
		if err := db1.SaveAuditResult(ctx, sampleResult("job-1", "https://example.com", time.Now(), 80)); err != nil {
			t.Fatalf("failed to save result: %v", err)
		}
		db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		got, err := db2.GetAuditResult(ctx, "job-1")
		if err != nil {
			t.Fatalf("failed to get result: %v", err)
		}
		if got == nil {
			t.Error("expected result to persist")
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

// TestAuditResults tests saving and loading audit results.
func TestAuditResults(t *testing.T) {
	t.Parallel()

	t.Run("saves and loads a result", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		want := sampleResult("job-1", "https://example.com", time.Now(), 72.5)
		want.MarkIncomplete("time budget reached")

		if err := db.SaveAuditResult(ctx, want); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		got, err := db.GetAuditResult(ctx, "job-1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got.Site != want.Site || got.Score != want.Score || got.Category != want.Category {
			t.Errorf("got %+v", got)
		}
		if !got.Incomplete || len(got.IncompleteReasons) != 1 {
			t.Errorf("incomplete flags lost: %+v", got.IncompleteReasons)
		}
		if len(got.Pages) != 1 || len(got.IssueGroups) != 1 {
			t.Errorf("pages or groups lost: %d, %d", len(got.Pages), len(got.IssueGroups))
		}
	})

	t.Run("saving again replaces the result", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		r := sampleResult("job-1", "https://example.com", time.Now(), 40)
		if err := db.SaveAuditResult(ctx, r); err != nil {
			t.Fatal(err)
		}
		r.Score = 90
		if err := db.SaveAuditResult(ctx, r); err != nil {
			t.Fatal(err)
		}
		got, err := db.GetAuditResult(ctx, "job-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.Score != 90 {
			t.Errorf("expected replaced score 90, got %v", got.Score)
		}
		list, err := db.ListAudits(ctx, "", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 {
			t.Errorf("expected 1 stored audit, got %d", len(list))
		}
	})

	t.Run("unknown job returns nil", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		got, err := db.GetAuditResult(context.Background(), "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("nil result is rejected", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if err := db.SaveAuditResult(context.Background(), nil); !errors.Is(err, ErrNilResult) {
			t.Errorf("expected ErrNilResult, got %v", err)
		}
	})
}

// TestListAudits tests audit history queries.
func TestListAudits(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, r := range []*model.AuditResult{
		sampleResult("a1", "https://a.example", base, 50),
		sampleResult("b1", "https://b.example", base.Add(time.Hour), 60),
		sampleResult("a2", "https://a.example", base.Add(2*time.Hour), 70),
		sampleResult("a3", "https://a.example", base.Add(3*time.Hour), 80),
	} {
		if err := db.SaveAuditResult(ctx, r); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	t.Run("lists a site most recent first", func(t *testing.T) {
		t.Parallel()

		list, err := db.ListAudits(ctx, "https://a.example", 0)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"a3", "a2", "a1"}
		if len(list) != len(want) {
			t.Fatalf("expected %d audits, got %d", len(want), len(list))
		}
		for i, s := range list {
			if s.JobID != want[i] {
				t.Errorf("position %d: got %s, want %s", i, s.JobID, want[i])
			}
		}
		if !list[0].StartedAt.Equal(base.Add(3 * time.Hour)) {
			t.Errorf("unexpected started_at %v", list[0].StartedAt)
		}
		if list[0].Score != 80 || list[0].PageCount != 1 || list[0].IssueGroups != 1 {
			t.Errorf("unexpected summary %+v", list[0])
		}
	})

	t.Run("applies the limit", func(t *testing.T) {
		t.Parallel()

		list, err := db.ListAudits(ctx, "https://a.example", 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 2 || list[0].JobID != "a3" {
			t.Errorf("unexpected list %+v", list)
		}
	})

	t.Run("empty site lists every audit", func(t *testing.T) {
		t.Parallel()

		list, err := db.ListAudits(ctx, "", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 4 {
			t.Errorf("expected 4 audits, got %d", len(list))
		}
	})
}

// TestJobStatus tests job progress persistence.
func TestJobStatus(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	progress := model.JobProgress{
		JobID:        "job-1",
		Site:         "https://example.com",
		Status:       model.JobRunning,
		Phase:        "crawl",
		PagesCrawled: 3,
		MaxPages:     10,
		Percent:      30,
	}
	if err := db.SaveJobStatus(ctx, progress); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	progress.Status = model.JobFailed
	progress.Error = "seed unreachable"
	if err := db.SaveJobStatus(ctx, progress); err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	got, err := db.GetJobStatus(ctx, "job-1")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if got.Status != model.JobFailed || got.Error != "seed unreachable" || got.Phase != "crawl" {
		t.Errorf("unexpected progress %+v", got)
	}
	if got.PagesCrawled != 3 || got.MaxPages != 10 || got.Percent != 30 {
		t.Errorf("unexpected counters %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}

	missing, err := db.GetJobStatus(ctx, "missing")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown job, got %v, %v", missing, err)
	}
}
