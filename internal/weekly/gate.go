package weekly

import "time"

type Reason string

const (
	ReasonFirstAction  Reason = "first_action"
	ReasonNewWeek      Reason = "new_week"
	ReasonLimitReached Reason = "limit_reached"
)

// Action is the part of a past log entry the gate looks at.
type Action struct {
	WeekKey    string
	RecordedAt time.Time
}

// Decision is the outcome of one gate evaluation. When Allowed is false the
// LastActionAt and NextAvailableAt fields are set.
type Decision struct {
	Allowed         bool
	Reason          Reason
	Now             time.Time
	Week            Week
	LastActionAt    time.Time
	NextAvailableAt time.Time
}

// Decide evaluates the once-per-week rule for now against the most recent
// recorded action (nil when the log is empty).
func Decide(now time.Time, loc *time.Location, last *Action) Decision {
	week := Of(now, loc)
	decision := Decision{Now: now, Week: week}
	if last == nil {
		decision.Allowed = true
		decision.Reason = ReasonFirstAction
		return decision
	}
	if last.WeekKey == week.Key() {
		decision.Reason = ReasonLimitReached
		decision.LastActionAt = last.RecordedAt
		decision.NextAvailableAt = week.Next()
		return decision
	}
	decision.Allowed = true
	decision.Reason = ReasonNewWeek
	return decision
}

func (d Decision) WeekStart() time.Time { return d.Week.Start }

func (d Decision) WeekEnd() time.Time { return d.Week.End() }

// Countdown is the time left until the next window, split for display.
type Countdown struct {
	Days    int       `json:"days"`
	Hours   int       `json:"hours"`
	Minutes int       `json:"minutes"`
	Until   time.Time `json:"nextMonday"`
}

// Remaining returns the countdown from d.Now to the start of the next week.
func (d Decision) Remaining() Countdown {
	next := d.Week.Next()
	left := next.Sub(d.Now)
	if left < 0 {
		left = 0
	}
	return Countdown{
		Days:    int(left / (24 * time.Hour)),
		Hours:   int(left % (24 * time.Hour) / time.Hour),
		Minutes: int(left % time.Hour / time.Minute),
		Until:   next,
	}
}
