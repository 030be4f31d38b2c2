package weekly

import (
	"testing"
	"time"
)

func TestDecideEmptyLogAllowsFirstAction(t *testing.T) {
	now := time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC)
	decision := Decide(now, time.UTC, nil)
	if !decision.Allowed || decision.Reason != ReasonFirstAction {
		t.Fatalf("expected first action allowed, got %+v", decision)
	}
	if !decision.NextAvailableAt.IsZero() {
		t.Fatalf("expected no next available time when allowed")
	}
}

func TestDecideSameWeekDenies(t *testing.T) {
	recorded := time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.October, 14, 15, 30, 0, 0, time.UTC)
	last := &Action{WeekKey: Of(recorded, time.UTC).Key(), RecordedAt: recorded}

	decision := Decide(now, time.UTC, last)
	if decision.Allowed || decision.Reason != ReasonLimitReached {
		t.Fatalf("expected limit reached, got %+v", decision)
	}
	wantNext := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	if !decision.NextAvailableAt.Equal(wantNext) {
		t.Fatalf("expected next window %s, got %s", wantNext, decision.NextAvailableAt)
	}
	if !decision.LastActionAt.Equal(recorded) {
		t.Fatalf("expected last action %s, got %s", recorded, decision.LastActionAt)
	}
	if !decision.WeekStart().Equal(time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week start %s", decision.WeekStart())
	}
	if !decision.WeekEnd().Equal(wantNext.Add(-time.Nanosecond)) {
		t.Fatalf("unexpected week end %s", decision.WeekEnd())
	}
}

func TestDecideFollowingMondayAllowsNewWeek(t *testing.T) {
	recorded := time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	last := &Action{WeekKey: "2026-W42", RecordedAt: recorded}

	decision := Decide(now, time.UTC, last)
	if !decision.Allowed || decision.Reason != ReasonNewWeek {
		t.Fatalf("expected new week allowed, got %+v", decision)
	}
}

func TestDecideNextAvailableIsFutureMonday(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	start := time.Date(2025, time.December, 22, 0, 0, 0, 0, loc)
	for i := 0; i < 24*21; i += 5 {
		now := start.Add(time.Duration(i) * time.Hour)
		last := &Action{WeekKey: Of(now, loc).Key(), RecordedAt: now}
		decision := Decide(now, loc, last)
		if decision.Allowed {
			t.Fatalf("expected denial at %s", now)
		}
		next := decision.NextAvailableAt
		if !next.After(now) {
			t.Fatalf("next window %s is not after %s", next, now)
		}
		if next.Weekday() != time.Monday || next.Hour() != 0 || next.Minute() != 0 || next.Second() != 0 {
			t.Fatalf("next window %s is not Monday midnight", next)
		}
		if Of(next, loc).Key() == Of(now, loc).Key() {
			t.Fatalf("next window %s is still in week %s", next, Of(now, loc).Key())
		}
	}
}

func TestRemainingCountdown(t *testing.T) {
	now := time.Date(2026, time.October, 17, 21, 15, 0, 0, time.UTC)
	decision := Decide(now, time.UTC, &Action{WeekKey: "2026-W42", RecordedAt: now})
	left := decision.Remaining()
	if left.Days != 1 || left.Hours != 2 || left.Minutes != 45 {
		t.Fatalf("unexpected countdown %+v", left)
	}
	if !left.Until.Equal(decision.NextAvailableAt) {
		t.Fatalf("countdown target %s differs from next window %s", left.Until, decision.NextAvailableAt)
	}
}
