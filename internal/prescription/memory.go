package prescription

import (
	"context"
	"sync"
	"time"
)

// MemoryLog keeps the log in process memory.
type MemoryLog struct {
	mu      sync.Mutex
	records []Record
	nextID  uint
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{nextID: 1}
}

func (m *MemoryLog) Append(_ context.Context, rec *Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.WeekKey == rec.WeekKey {
			return false, nil
		}
	}
	rec.ID = m.nextID
	m.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.records = append(m.records, *rec)
	return true, nil
}

func (m *MemoryLog) MostRecent(_ context.Context) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil, nil
	}
	last := m.records[len(m.records)-1]
	return &last, nil
}

func (m *MemoryLog) ForWeek(_ context.Context, weekKey string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.WeekKey == weekKey {
			found := existing
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryLog) List(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}
