package prescription

import (
	"time"

	"guidance-desk/internal/weekly"

	"github.com/shopspring/decimal"
)

// Record is one entry of the prescription log. Records are never modified once appended.
type Record struct {
	ID           uint
	Issue        string
	Context      map[string]any
	Solution     Solution
	WeekKey      string
	Year         int
	Week         int
	WeekStart    time.Time
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	Cost         decimal.Decimal
	CreatedBy    *uint
	CreatedAt    time.Time
}

func (r Record) TokensUsed() int {
	return r.InputTokens + r.OutputTokens
}

func (r Record) action() *weekly.Action {
	return &weekly.Action{WeekKey: r.WeekKey, RecordedAt: r.CreatedAt}
}

// Solution is the structured advice returned by the model.
type Solution struct {
	Severity  string           `json:"severity"`
	RootCause string           `json:"root_cause"`
	Solutions []SolutionOption `json:"solutions"`
	QuickWins []string         `json:"quick_wins"`
}

type SolutionOption struct {
	Title  string   `json:"title"`
	Steps  []string `json:"steps"`
	Impact string   `json:"impact"`
}
