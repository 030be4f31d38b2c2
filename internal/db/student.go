package db

import (
	"strings"
	"time"
)

const (
	LevelElementary = "Elementary"
	LevelJHS        = "JHS"
	LevelSHS        = "SHS"
)

type Student struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StudentID     string    `gorm:"size:32;uniqueIndex;not null" json:"studentId"`
	FirstName     string    `gorm:"size:64;not null" json:"firstName"`
	MiddleName    string    `gorm:"size:64" json:"middleName"`
	LastName      string    `gorm:"size:64;not null" json:"lastName"`
	Level         string    `gorm:"size:16;not null;index" json:"level"`
	Grade         string    `gorm:"size:16;not null" json:"grade"`
	Section       string    `gorm:"size:64" json:"section"`
	ContactNumber string    `gorm:"size:32" json:"contactNumber"`
	AdviserID     *uint     `gorm:"index" json:"adviserId"`
	Adviser       *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt     time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"not null" json:"updatedAt"`
}

func (s Student) FullName() string {
	parts := []string{s.FirstName}
	if s.MiddleName != "" {
		parts = append(parts, s.MiddleName)
	}
	parts = append(parts, s.LastName)
	return strings.Join(parts, " ")
}

func ValidLevel(level string) bool {
	switch level {
	case LevelElementary, LevelJHS, LevelSHS:
		return true
	}
	return false
}
