package prescription

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"guidance-desk/internal/llm"
	"guidance-desk/internal/weekly"

	"github.com/shopspring/decimal"
)

const validSolution = `{"severity":"high","root_cause":"Exam pressure","solutions":[{"title":"Study hall hours","steps":["Open library","Assign tutors"],"impact":"Lower stress"}],"quick_wins":["Breathing breaks"]}`

type fakeGenerator struct {
	mu     sync.Mutex
	calls  int
	text   string
	err    error
	prompt string
	delay  time.Duration
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (llm.Completion, error) {
	f.mu.Lock()
	f.calls++
	f.prompt = prompt
	text, err, delay := f.text, f.err, f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return llm.Completion{}, err
	}
	return llm.Completion{Text: text, Provider: "fake", Model: "fake-1", InputTokens: 1200, OutputTokens: 300}, nil
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestService(t *testing.T, log Log, gen llm.Generator, start time.Time) (*Service, *clock) {
	t.Helper()
	clk := &clock{now: start}
	svc := NewService(Options{
		Log:       log,
		Generator: gen,
		Location:  time.UTC,
		Pricing: Pricing{
			InputPerMTok:  decimal.NewFromInt(3),
			OutputPerMTok: decimal.NewFromInt(15),
		},
		Now: clk.Now,
	})
	return svc, clk
}

// 2026-10-12 is a Monday (ISO 2026-W42).
var monday = time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC)

func TestPrescribeFirstActionRecords(t *testing.T) {
	log := NewMemoryLog()
	gen := &fakeGenerator{text: validSolution}
	svc, _ := newTestService(t, log, gen, monday)

	decision, err := svc.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !decision.Allowed || decision.Reason != weekly.ReasonFirstAction {
		t.Fatalf("expected first_action, got %+v", decision)
	}

	result, err := svc.Prescribe(context.Background(), Request{Issue: "  exam anxiety ", Context: map[string]any{"level": "SHS"}})
	if err != nil {
		t.Fatalf("prescribe: %v", err)
	}
	if result.Record.WeekKey != "2026-W42" {
		t.Fatalf("expected week 2026-W42, got %s", result.Record.WeekKey)
	}
	if result.Record.Issue != "exam anxiety" {
		t.Fatalf("expected trimmed issue, got %q", result.Record.Issue)
	}
	if result.Record.Solution.Severity != "high" || len(result.Record.Solution.Solutions) != 1 {
		t.Fatalf("unexpected solution: %+v", result.Record.Solution)
	}
	if result.Record.TokensUsed() != 1500 {
		t.Fatalf("expected 1500 tokens, got %d", result.Record.TokensUsed())
	}
	// 1200/1e6*3 + 300/1e6*15 = 0.0036 + 0.0045
	if !result.Record.Cost.Equal(decimal.RequireFromString("0.0081")) {
		t.Fatalf("expected cost 0.0081, got %s", result.Record.Cost)
	}
	if !strings.Contains(gen.prompt, "exam anxiety") || !strings.Contains(gen.prompt, `level="SHS"`) {
		t.Fatalf("prompt missing issue or context: %s", gen.prompt)
	}
	records, _ := log.List(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestPrescribeDeniedLaterSameWeek(t *testing.T) {
	log := NewMemoryLog()
	gen := &fakeGenerator{text: validSolution}
	svc, clk := newTestService(t, log, gen, monday)
	if _, err := svc.Prescribe(context.Background(), Request{Issue: "bullying"}); err != nil {
		t.Fatalf("prescribe: %v", err)
	}

	wednesday := monday.Add(2*24*time.Hour + 5*time.Hour)
	clk.Set(wednesday)
	_, err := svc.Prescribe(context.Background(), Request{Issue: "truancy"})
	quota, ok := IsQuotaExceeded(err)
	if !ok {
		t.Fatalf("expected quota error, got %v", err)
	}
	wantNext := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	if !quota.Decision.NextAvailableAt.Equal(wantNext) {
		t.Fatalf("expected next %s, got %s", wantNext, quota.Decision.NextAvailableAt)
	}
	if !quota.Decision.LastActionAt.Equal(monday) {
		t.Fatalf("expected last action %s, got %s", monday, quota.Decision.LastActionAt)
	}
	if quota.RetryAfter() != wantNext.Sub(wednesday) {
		t.Fatalf("unexpected retry after %s", quota.RetryAfter())
	}
	if gen.Calls() != 1 {
		t.Fatalf("denied request must not call the generator, calls=%d", gen.Calls())
	}
	records, _ := log.List(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestPrescribeAllowedNextWeek(t *testing.T) {
	log := NewMemoryLog()
	gen := &fakeGenerator{text: validSolution}
	svc, clk := newTestService(t, log, gen, monday.Add(4*24*time.Hour))
	if _, err := svc.Prescribe(context.Background(), Request{Issue: "bullying"}); err != nil {
		t.Fatalf("prescribe: %v", err)
	}
	clk.Set(time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC))
	decision, err := svc.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !decision.Allowed || decision.Reason != weekly.ReasonNewWeek {
		t.Fatalf("expected new_week, got %+v", decision)
	}
	result, err := svc.Prescribe(context.Background(), Request{Issue: "vaping"})
	if err != nil {
		t.Fatalf("prescribe: %v", err)
	}
	if result.Record.WeekKey != "2026-W43" {
		t.Fatalf("expected 2026-W43, got %s", result.Record.WeekKey)
	}
	history, err := svc.History(context.Background())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Issue != "vaping" {
		t.Fatalf("expected newest first, got %+v", history)
	}
}

func TestPrescribeGenerationFailureKeepsQuota(t *testing.T) {
	log := NewMemoryLog()
	gen := &fakeGenerator{err: errors.New("connection reset")}
	svc, _ := newTestService(t, log, gen, monday)

	_, err := svc.Prescribe(context.Background(), Request{Issue: "bullying"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if last, _ := log.MostRecent(context.Background()); last != nil {
		t.Fatalf("expected empty log, got %+v", last)
	}
	decision, err := svc.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected allowed after failure, got %+v", decision)
	}
}

func TestPrescribeMalformedResponse(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{name: "prose", text: "I think the school should talk to students."},
		{name: "bad json", text: "{severity: high"},
		{name: "unknown severity", text: `{"severity":"extreme","solutions":[{"title":"x"}]}`},
		{name: "no solutions", text: `{"severity":"low","solutions":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log := NewMemoryLog()
			svc, _ := newTestService(t, log, &fakeGenerator{text: tc.text}, monday)
			_, err := svc.Prescribe(context.Background(), Request{Issue: "bullying"})
			if !errors.Is(err, ErrUpstream) {
				t.Fatalf("expected upstream error, got %v", err)
			}
			if last, _ := log.MostRecent(context.Background()); last != nil {
				t.Fatalf("expected nothing appended")
			}
		})
	}
}

func TestPrescribeRequiresIssue(t *testing.T) {
	gen := &fakeGenerator{text: validSolution}
	svc, _ := newTestService(t, NewMemoryLog(), gen, monday)
	if _, err := svc.Prescribe(context.Background(), Request{Issue: "   "}); !errors.Is(err, ErrIssueRequired) {
		t.Fatalf("expected ErrIssueRequired, got %v", err)
	}
	if gen.Calls() != 0 {
		t.Fatalf("generator should not be called")
	}
}

func TestPrescribeWithoutGenerator(t *testing.T) {
	svc, _ := newTestService(t, NewMemoryLog(), nil, monday)
	_, err := svc.Prescribe(context.Background(), Request{Issue: "bullying"})
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected not configured upstream error, got %v", err)
	}
}

type failingLog struct {
	MemoryLog
}

func (f *failingLog) MostRecent(context.Context) (*Record, error) {
	return nil, errors.New("disk on fire")
}

func TestCheckPersistenceFailure(t *testing.T) {
	svc, _ := newTestService(t, &failingLog{}, &fakeGenerator{text: validSolution}, monday)
	if _, err := svc.Check(context.Background()); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestPrescribeConcurrentSingleAppend(t *testing.T) {
	log := NewMemoryLog()
	gen := &fakeGenerator{text: validSolution, delay: 20 * time.Millisecond}
	svc, _ := newTestService(t, log, gen, monday)

	const callers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		denied    atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Prescribe(context.Background(), Request{Issue: "bullying"})
			if err == nil {
				succeeded.Add(1)
				return
			}
			if _, ok := IsQuotaExceeded(err); ok {
				denied.Add(1)
			}
		}()
	}
	wg.Wait()
	if succeeded.Load() != 1 {
		t.Fatalf("expected exactly one success, got %d", succeeded.Load())
	}
	if denied.Load() != callers-1 {
		t.Fatalf("expected %d denials, got %d", callers-1, denied.Load())
	}
	records, _ := log.List(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

// laggingLog reports an empty log to the gate while the week's slot is
// already taken, as a caller that passed Check just before a winner's append.
type laggingLog struct {
	MemoryLog
}

func (l *laggingLog) MostRecent(context.Context) (*Record, error) {
	return nil, nil
}

func TestPrescribeSkipsGenerationWhenWeekTaken(t *testing.T) {
	log := &laggingLog{}
	winner := Record{Issue: "first", WeekKey: "2026-W42", CreatedAt: monday}
	if _, err := log.Append(context.Background(), &winner); err != nil {
		t.Fatalf("seed: %v", err)
	}
	gen := &fakeGenerator{text: validSolution}
	svc, clk := newTestService(t, log, gen, monday)
	clk.Set(monday.Add(2 * time.Hour))

	_, err := svc.Prescribe(context.Background(), Request{Issue: "vaping"})
	quota, ok := IsQuotaExceeded(err)
	if !ok {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
	if gen.Calls() != 0 {
		t.Fatalf("expected no generation, got %d calls", gen.Calls())
	}
	want := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	if !quota.Decision.NextAvailableAt.Equal(want) || !quota.Decision.LastActionAt.Equal(monday) {
		t.Fatalf("unexpected denial: %+v", quota.Decision)
	}
}

func TestThisWeek(t *testing.T) {
	log := NewMemoryLog()
	svc, clk := newTestService(t, log, &fakeGenerator{text: validSolution}, monday)
	rec, err := svc.ThisWeek(context.Background())
	if err != nil || rec != nil {
		t.Fatalf("expected no record, got %+v %v", rec, err)
	}
	if _, err := svc.Prescribe(context.Background(), Request{Issue: "bullying"}); err != nil {
		t.Fatalf("prescribe: %v", err)
	}
	rec, err = svc.ThisWeek(context.Background())
	if err != nil || rec == nil || rec.Issue != "bullying" {
		t.Fatalf("expected this week's record, got %+v %v", rec, err)
	}
	clk.Set(monday.Add(7 * 24 * time.Hour))
	rec, err = svc.ThisWeek(context.Background())
	if err != nil || rec != nil {
		t.Fatalf("expected no record next week, got %+v %v", rec, err)
	}
}
