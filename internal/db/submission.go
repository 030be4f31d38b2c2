package db

import "time"

const (
	NameOptionRealName  = "realName"
	NameOptionAnonymous = "anonymous"
	NameOptionPreferNot = "preferNot"
)

const (
	SubmissionPending  = "Pending"
	SubmissionReviewed = "Reviewed"
	SubmissionResolved = "Resolved"
	SubmissionClosed   = "Closed"
)

type StudentSubmission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SubmissionID string     `gorm:"size:32;uniqueIndex;not null" json:"submissionId"`
	StudentName  string     `gorm:"size:128;not null;default:'Anonymous'" json:"studentName"`
	Concern      string     `gorm:"type:text;not null" json:"concern"`
	NameOption   string     `gorm:"size:16;not null;default:'preferNot'" json:"studentNameOption"`
	Status       string     `gorm:"size:16;not null;default:'Pending';index" json:"status"`
	ReviewNotes  string     `gorm:"type:text" json:"reviewNotes"`
	ReviewedByID *uint      `gorm:"index" json:"reviewedById"`
	ReviewedBy   *User      `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	ReviewedAt   *time.Time `json:"reviewedAt"`
	ReferralID   *uint      `gorm:"index" json:"referralId"`
	CreatedAt    time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updatedAt"`
}

func ValidNameOption(value string) bool {
	switch value {
	case NameOptionRealName, NameOptionAnonymous, NameOptionPreferNot:
		return true
	}
	return false
}

func ValidSubmissionStatus(value string) bool {
	switch value {
	case SubmissionPending, SubmissionReviewed, SubmissionResolved, SubmissionClosed:
		return true
	}
	return false
}
