// Package prescription produces the weekly AI prescription: at most one per
// ISO week, recorded only after the model call succeeds.
package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guidance-desk/internal/llm"
	"guidance-desk/internal/logging"
	"guidance-desk/internal/weekly"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var perMillion = decimal.NewFromInt(1_000_000)

// Pricing is the cost per million input and output tokens.
type Pricing struct {
	InputPerMTok  decimal.Decimal
	OutputPerMTok decimal.Decimal
}

func (p Pricing) Cost(inputTokens, outputTokens int) decimal.Decimal {
	in := decimal.NewFromInt(int64(inputTokens)).Div(perMillion).Mul(p.InputPerMTok)
	out := decimal.NewFromInt(int64(outputTokens)).Div(perMillion).Mul(p.OutputPerMTok)
	return in.Add(out).Round(4)
}

type Options struct {
	Log       Log
	Generator llm.Generator
	Location  *time.Location
	Pricing   Pricing
	// Template is the prompt template; empty means the built-in one.
	Template string
	Logger   *zap.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

type Service struct {
	log      Log
	gen      llm.Generator
	loc      *time.Location
	pricing  Pricing
	template string
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(opts Options) *Service {
	s := &Service{
		log:      opts.Log,
		gen:      opts.Generator,
		loc:      opts.Location,
		pricing:  opts.Pricing,
		template: opts.Template,
		logger:   logging.OrNop(opts.Logger),
		now:      opts.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.template == "" {
		s.template = defaultPromptTemplate
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Request is one prescribe call.
type Request struct {
	Issue     string
	Context   map[string]any
	CreatedBy *uint
}

// Result is a freshly recorded prescription.
type Result struct {
	Record   Record
	Decision weekly.Decision
}

// Location is the zone weeks are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Check evaluates the weekly gate without side effects.
func (s *Service) Check(ctx context.Context) (weekly.Decision, error) {
	last, err := s.log.MostRecent(ctx)
	if err != nil {
		return weekly.Decision{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	var action *weekly.Action
	if last != nil {
		action = last.action()
	}
	return weekly.Decide(s.now(), s.loc, action), nil
}

// Prescribe runs the gate, calls the model once when permitted, and appends the
// result. Generation failures leave the log untouched. If another caller records
// this week's prescription first, the append is refused and QuotaExceededError
// is returned.
func (s *Service) Prescribe(ctx context.Context, req Request) (Result, error) {
	issue := strings.TrimSpace(req.Issue)
	if issue == "" {
		return Result{}, ErrIssueRequired
	}
	decision, err := s.Check(ctx)
	if err != nil {
		return Result{}, err
	}
	if !decision.Allowed {
		return Result{}, &QuotaExceededError{Decision: decision}
	}
	if s.gen == nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUpstream, llm.ErrNotConfigured)
	}

	// Callers that raced past Check all pay for a generation before the append
	// picks one winner. Re-reading this week's slot right before the call
	// trims that window; the unique append still decides.
	if existing, err := s.log.ForWeek(ctx, decision.Week.Key()); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	} else if existing != nil {
		return Result{}, &QuotaExceededError{Decision: weekly.Decide(decision.Now, s.loc, existing.action())}
	}

	prompt := BuildPrompt(s.template, issue, req.Context)
	completion, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("prescription generation failed", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	solution, err := ParseSolution(completion.Text)
	if err != nil {
		s.logger.Warn("prescription response unusable", zap.Error(err), zap.Int("length", len(completion.Text)))
		return Result{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	createdAt := s.now()
	week := weekly.Of(createdAt, s.loc)
	rec := Record{
		Issue:        issue,
		Context:      req.Context,
		Solution:     solution,
		WeekKey:      week.Key(),
		Year:         week.Year,
		Week:         week.Number,
		WeekStart:    week.Start,
		Provider:     completion.Provider,
		Model:        completion.Model,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		Cost:         s.pricing.Cost(completion.InputTokens, completion.OutputTokens),
		CreatedBy:    req.CreatedBy,
		CreatedAt:    createdAt.UTC(),
	}
	inserted, err := s.log.Append(ctx, &rec)
	if err != nil {
		s.logger.Error("prescription append failed", zap.String("week", rec.WeekKey), zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !inserted {
		s.logger.Info("prescription lost the weekly race", zap.String("week", rec.WeekKey))
		denied, checkErr := s.Check(ctx)
		if checkErr != nil {
			return Result{}, checkErr
		}
		if denied.Allowed {
			// The conflicting row belongs to the week we bucketed into, which
			// differs from the current week only across a Monday boundary.
			denied = weekly.Decide(createdAt, s.loc, rec.action())
		}
		return Result{}, &QuotaExceededError{Decision: denied}
	}
	s.logger.Info("prescription recorded",
		zap.String("week", rec.WeekKey),
		zap.Int("tokens", rec.TokensUsed()),
		zap.String("cost", rec.Cost.StringFixed(4)),
	)
	decision.Week = week
	return Result{Record: rec, Decision: decision}, nil
}

// ThisWeek returns the current week's prescription, or nil.
func (s *Service) ThisWeek(ctx context.Context) (*Record, error) {
	week := weekly.Of(s.now(), s.loc)
	rec, err := s.log.ForWeek(ctx, week.Key())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return rec, nil
}

// History returns all prescriptions, newest first.
func (s *Service) History(ctx context.Context) ([]Record, error) {
	records, err := s.log.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return records, nil
}

// IsQuotaExceeded unwraps a QuotaExceededError.
func IsQuotaExceeded(err error) (*QuotaExceededError, bool) {
	var quota *QuotaExceededError
	if errors.As(err, &quota) {
		return quota, true
	}
	return nil, false
}
