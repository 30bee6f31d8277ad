package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/wordscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// newReport builds a finished report started at the given time.
func newReport(seed string, started time.Time, words ...model.WordFrequency) *model.CrawlReport {
	r := model.NewCrawlReport(seed, 30, 5, 5)
	r.StartedAt = started
	r.PagesCrawled = 3
	r.PagesSkipped = 1
	r.URLsVisited = 4
	r.Complete(words)
	r.FinishedAt = started.Add(2 * time.Second)
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

		if _, err := os.Stat(filepath.Join(dbDir, DBFileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, DBFileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		report := newReport("http://example.com", time.Now())
		if err := db.SaveReport(context.Background(), report); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		got, err := db.GetReport(context.Background(), report.ID)
		if err != nil || got == nil {
			t.Fatalf("expected stored report, got %v, %v", got, err)
		}
	})
}

// TestSaveAndGetReport tests report round trips.
func TestSaveAndGetReport(t *testing.T) {
	t.Parallel()

	t.Run("stores report and ranked words", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		report := newReport("http://example.com", time.Now(),
			model.WordFrequency{Word: "testing", Frequency: 10},
			model.WordFrequency{Word: "golang", Frequency: 4},
		)
		if err := db.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}

		got, err := db.GetReport(ctx, report.ID)
		if err != nil {
			t.Fatalf("GetReport: %v", err)
		}
		if got.Seed != report.Seed || got.PagesCrawled != 3 || len(got.TopWords) != 2 {
			t.Errorf("unexpected report: %+v", got)
		}
		if got.TopWords[0].Word != "testing" {
			t.Errorf("expected testing first, got %v", got.TopWords)
		}
	})

	t.Run("missing ID returns nil", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		got, err := db.GetReport(context.Background(), "does-not-exist")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("saving twice replaces the run", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		report := newReport("http://example.com", time.Now(), model.WordFrequency{Word: "first", Frequency: 1})
		if err := db.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
		report.TopWords = []model.WordFrequency{{Word: "second", Frequency: 2}}
		if err := db.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport again: %v", err)
		}

		runs, err := db.ListRuns(ctx, "")
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 1 || runs[0].TopWord != "second" {
			t.Errorf("unexpected runs: %+v", runs)
		}
	})

	t.Run("failed run keeps error", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		report := model.NewCrawlReport("http://down.example", 30, 5, 5)
		report.Fail(errors.New("maximum number of retries reached"))
		if err := db.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}

		runs, err := db.ListRuns(ctx, "http://down.example")
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 1 || runs[0].Status != model.StatusFailed || runs[0].Error == "" {
			t.Errorf("unexpected runs: %+v", runs)
		}
		if runs[0].TopWord != "" {
			t.Errorf("expected no top word, got %q", runs[0].TopWord)
		}
	})

	t.Run("nil report is rejected", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if err := db.SaveReport(context.Background(), nil); err == nil {
			t.Error("expected error for nil report")
		}
	})
}

// TestListRunsAndSeeds tests history listing.
func TestListRunsAndSeeds(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	reports := []*model.CrawlReport{
		newReport("http://b.example", base, model.WordFrequency{Word: "bravo", Frequency: 2}),
		newReport("http://a.example", base.Add(time.Hour), model.WordFrequency{Word: "alpha", Frequency: 5}),
		newReport("http://a.example", base.Add(2*time.Hour), model.WordFrequency{Word: "alpha", Frequency: 7}),
	}
	for _, r := range reports {
		if err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
	}

	t.Run("all runs newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "")
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].ID != reports[2].ID || runs[2].ID != reports[0].ID {
			t.Errorf("unexpected order: %+v", runs)
		}
		if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("timestamp not preserved: %v", runs[0].StartedAt)
		}
		if runs[0].TopWord != "alpha" || runs[0].TopFrequency != 7 {
			t.Errorf("unexpected top word: %+v", runs[0])
		}
	})

	t.Run("filter by seed", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "http://b.example")
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 1 || runs[0].Seed != "http://b.example" {
			t.Errorf("unexpected runs: %+v", runs)
		}
	})

	t.Run("seeds are distinct and sorted", func(t *testing.T) {
		t.Parallel()

		seeds, err := db.ListSeeds(ctx)
		if err != nil {
			t.Fatalf("ListSeeds: %v", err)
		}
		if len(seeds) != 2 || seeds[0] != "http://a.example" || seeds[1] != "http://b.example" {
			t.Errorf("unexpected seeds: %v", seeds)
		}
	})

	t.Run("word history oldest first", func(t *testing.T) {
		t.Parallel()

		points, err := db.WordHistory(ctx, "http://a.example", "alpha")
		if err != nil {
			t.Fatalf("WordHistory: %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("expected 2 points, got %d", len(points))
		}
		if points[0].Frequency != 5 || points[1].Frequency != 7 || points[0].Rank != 1 {
			t.Errorf("unexpected points: %+v", points)
		}
	})
}

// TestParseTimestamp tests timestamp parsing with various formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		zero  bool
	}{
		{input: "2026-01-02T03:04:05.123456789Z"},
		{input: "2026-01-02T03:04:05Z"},
		{input: "2026-01-02 03:04:05"},
		{input: "", zero: true},
		{input: "not a time", zero: true},
	}

	for _, tt := range tests {
		got := parseTimestamp(tt.input)
		if got.IsZero() != tt.zero {
			t.Errorf("parseTimestamp(%q) = %v, zero expected %v", tt.input, got, tt.zero)
		}
	}

	if formatTimestamp(time.Time{}) != "" {
		t.Error("zero time should be stored as empty string")
	}
}
