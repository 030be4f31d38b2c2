package prescription

import (
	"context"
	"encoding/json"
	"fmt"

	"guidance-desk/internal/db"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLog stores prescriptions in the prescriptions table. The unique index on
// week_key is what makes Append conditional.
type GormLog struct {
	db *gorm.DB
}

func NewGormLog(conn *gorm.DB) *GormLog {
	return &GormLog{db: conn}
}

func (g *GormLog) Append(ctx context.Context, rec *Record) (bool, error) {
	row, err := toRow(rec)
	if err != nil {
		return false, err
	}
	result := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "week_key"}}, DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		if db.IsDuplicateKey(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	rec.ID = row.ID
	rec.CreatedAt = row.CreatedAt
	return true, nil
}

func (g *GormLog) MostRecent(ctx context.Context) (*Record, error) {
	var row db.Prescription
	err := g.db.WithContext(ctx).Order("id desc").Limit(1).Take(&row).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec, err := fromRow(row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (g *GormLog) ForWeek(ctx context.Context, weekKey string) (*Record, error) {
	var row db.Prescription
	err := g.db.WithContext(ctx).Where("week_key = ?", weekKey).Take(&row).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec, err := fromRow(row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (g *GormLog) List(ctx context.Context) ([]Record, error) {
	var rows []db.Prescription
	if err := g.db.WithContext(ctx).Order("created_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toRow(rec *Record) (db.Prescription, error) {
	contextJSON, err := json.Marshal(nonNilContext(rec.Context))
	if err != nil {
		return db.Prescription{}, fmt.Errorf("encode context: %w", err)
	}
	solutionJSON, err := json.Marshal(rec.Solution)
	if err != nil {
		return db.Prescription{}, fmt.Errorf("encode solution: %w", err)
	}
	return db.Prescription{
		Issue:        rec.Issue,
		Context:      datatypes.JSON(contextJSON),
		Solution:     datatypes.JSON(solutionJSON),
		WeekKey:      rec.WeekKey,
		ISOYear:      rec.Year,
		ISOWeek:      rec.Week,
		WeekStart:    rec.WeekStart,
		Provider:     rec.Provider,
		Model:        rec.Model,
		InputTokens:  rec.InputTokens,
		OutputTokens: rec.OutputTokens,
		TokensUsed:   rec.TokensUsed(),
		Cost:         rec.Cost,
		CreatedByID:  rec.CreatedBy,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func fromRow(row db.Prescription) (Record, error) {
	rec := Record{
		ID:           row.ID,
		Issue:        row.Issue,
		WeekKey:      row.WeekKey,
		Year:         row.ISOYear,
		Week:         row.ISOWeek,
		WeekStart:    row.WeekStart,
		Provider:     row.Provider,
		Model:        row.Model,
		InputTokens:  row.InputTokens,
		OutputTokens: row.OutputTokens,
		Cost:         row.Cost,
		CreatedBy:    row.CreatedByID,
		CreatedAt:    row.CreatedAt,
	}
	if len(row.Context) > 0 {
		if err := json.Unmarshal(row.Context, &rec.Context); err != nil {
			return Record{}, fmt.Errorf("decode context of prescription %d: %w", row.ID, err)
		}
	}
	if len(row.Solution) > 0 {
		if err := json.Unmarshal(row.Solution, &rec.Solution); err != nil {
			return Record{}, fmt.Errorf("decode solution of prescription %d: %w", row.ID, err)
		}
	}
	return rec, nil
}

func nonNilContext(ctx map[string]any) map[string]any {
	if ctx == nil {
		return map[string]any{}
	}
	return ctx
}
