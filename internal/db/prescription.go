package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Prescription rows are append-only. WeekKey carries the one-per-week constraint.
type Prescription struct {
	ID           uint            `gorm:"primaryKey"`
	Issue        string          `gorm:"type:text;not null"`
	Context      datatypes.JSON  `gorm:"not null"`
	Solution     datatypes.JSON  `gorm:"not null"`
	WeekKey      string          `gorm:"size:10;uniqueIndex;not null"`
	ISOYear      int             `gorm:"not null"`
	ISOWeek      int             `gorm:"not null"`
	WeekStart    time.Time       `gorm:"not null"`
	Provider     string          `gorm:"size:32;not null"`
	Model        string          `gorm:"size:64;not null"`
	InputTokens  int             `gorm:"not null;default:0"`
	OutputTokens int             `gorm:"not null;default:0"`
	TokensUsed   int             `gorm:"not null;default:0"`
	Cost         decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	CreatedByID  *uint           `gorm:"index"`
	CreatedAt    time.Time       `gorm:"not null;index"`
}
