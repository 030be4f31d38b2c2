package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sequence holds the last number handed out for a named counter.
type Sequence struct {
	Name      string    `gorm:"primaryKey;size:64"`
	Seq       int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// NextSequence atomically increments the named counter and returns the new value.
// The upsert takes the row lock, so the read inside the same transaction sees
// this caller's increment.
func NextSequence(ctx context.Context, conn *gorm.DB, name string) (int64, error) {
	if conn == nil {
		return 0, errors.New("db connection is nil")
	}
	var value int64
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := Sequence{Name: name, Seq: 1, UpdatedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{
				"seq":        gorm.Expr("seq + 1"),
				"updated_at": row.UpdatedAt,
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		var current Sequence
		if err := tx.Where("name = ?", name).First(&current).Error; err != nil {
			return err
		}
		value = current.Seq
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", name, err)
	}
	return value, nil
}

// DailyID builds ids like SUB-20261017-001 from a per-day counter.
func DailyID(ctx context.Context, conn *gorm.DB, prefix string, now time.Time) (string, error) {
	day := now.Format("20060102")
	name := prefix + "-" + day
	n, err := NextSequence(ctx, conn, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%03d", prefix, day, n), nil
}
