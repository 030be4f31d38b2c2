package prescription

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"guidance-desk/internal/db"
	"guidance-desk/internal/weekly"

	"github.com/shopspring/decimal"
)

func newGormLog(t *testing.T) *GormLog {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "prescriptions.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGormLog(conn)
}

func recordAt(issue string, at time.Time) *Record {
	week := weekly.Of(at, time.UTC)
	return &Record{
		Issue:     issue,
		Context:   map[string]any{"grade": "10"},
		Solution:  Solution{Severity: "low", Solutions: []SolutionOption{{Title: "Check-ins"}}},
		WeekKey:   week.Key(),
		Year:      week.Year,
		Week:      week.Number,
		WeekStart: week.Start,
		Provider:  "fake",
		Model:     "fake-1",
		Cost:      decimal.RequireFromString("0.0123"),
		CreatedAt: at,
	}
}

func TestGormLogAppendOncePerWeek(t *testing.T) {
	log := newGormLog(t)
	ctx := context.Background()

	inserted, err := log.Append(ctx, recordAt("bullying", monday))
	if err != nil || !inserted {
		t.Fatalf("expected first append to insert, got %v %v", inserted, err)
	}
	inserted, err = log.Append(ctx, recordAt("truancy", monday.Add(48*time.Hour)))
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if inserted {
		t.Fatalf("expected second append in the same week to be refused")
	}

	rec, err := log.ForWeek(ctx, "2026-W42")
	if err != nil || rec == nil {
		t.Fatalf("for week: %v %v", rec, err)
	}
	if rec.Issue != "bullying" || rec.Context["grade"] != "10" || rec.Solution.Solutions[0].Title != "Check-ins" {
		t.Fatalf("unexpected stored record: %+v", rec)
	}
	if !rec.Cost.Equal(decimal.RequireFromString("0.0123")) {
		t.Fatalf("expected cost 0.0123, got %s", rec.Cost)
	}
}

func TestGormLogOrdering(t *testing.T) {
	log := newGormLog(t)
	ctx := context.Background()

	if last, err := log.MostRecent(ctx); err != nil || last != nil {
		t.Fatalf("expected empty log, got %+v %v", last, err)
	}
	for i, issue := range []string{"first", "second", "third"} {
		at := monday.Add(time.Duration(i) * 7 * 24 * time.Hour)
		if inserted, err := log.Append(ctx, recordAt(issue, at)); err != nil || !inserted {
			t.Fatalf("append %s: %v %v", issue, inserted, err)
		}
	}
	last, err := log.MostRecent(ctx)
	if err != nil || last == nil || last.Issue != "third" {
		t.Fatalf("expected third as most recent, got %+v %v", last, err)
	}
	records, err := log.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 || records[0].Issue != "third" || records[2].Issue != "first" {
		t.Fatalf("expected newest first, got %+v", records)
	}
}

func TestGormLogConcurrentAppend(t *testing.T) {
	log := newGormLog(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := log.Append(ctx, recordAt("race", monday.Add(time.Duration(i)*time.Minute)))
			if err != nil {
				t.Errorf("append: %v", err)
				return
			}
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if inserted != 1 {
		t.Fatalf("expected exactly one insert, got %d", inserted)
	}
	records, err := log.List(ctx)
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one stored record, got %d %v", len(records), err)
	}
}
