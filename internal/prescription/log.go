package prescription

import "context"

// Log is the append-only store of prescriptions.
type Log interface {
	// Append inserts rec unless a record with the same WeekKey exists, in which
	// case it returns false and leaves the log unchanged. The check and the
	// insert are one atomic step in the backing store. On success rec.ID and
	// rec.CreatedAt are filled in.
	Append(ctx context.Context, rec *Record) (bool, error)
	// MostRecent returns the last appended record, or nil for an empty log.
	MostRecent(ctx context.Context) (*Record, error)
	// ForWeek returns the record for a week key, or nil.
	ForWeek(ctx context.Context, weekKey string) (*Record, error)
	// List returns every record, newest first.
	List(ctx context.Context) ([]Record, error)
}
