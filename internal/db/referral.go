package db

import "time"

const (
	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"
)

const (
	ReferralPending         = "Pending"
	ReferralUnderReview     = "Under Review"
	ReferralForConsultation = "For Consultation"
	ReferralComplete        = "Complete"
)

// PendingStudentID marks referrals whose student has not been matched to a roster entry.
const PendingStudentID = "PENDING"

type Referral struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	ReferralID         string    `gorm:"size:32;uniqueIndex;not null" json:"referralId"`
	StudentID          string    `gorm:"size:32;not null;index" json:"studentId"`
	StudentName        string    `gorm:"size:128;not null" json:"studentName"`
	Level              string    `gorm:"size:16;not null;index" json:"level"`
	Grade              string    `gorm:"size:16;not null" json:"grade"`
	ReferralDate       time.Time `gorm:"not null;index" json:"referralDate"`
	Reason             string    `gorm:"size:280;not null" json:"reason"`
	Description        string    `gorm:"type:text" json:"description"`
	CategoryID         *uint     `gorm:"index" json:"categoryId"`
	Category           *Category `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Severity           string    `gorm:"size:16;not null;index" json:"severity"`
	Status             string    `gorm:"size:32;not null;index" json:"status"`
	ReferredBy         string    `gorm:"size:128;not null" json:"referredBy"`
	Notes              string    `gorm:"type:text" json:"notes"`
	IsStudentSubmitted bool      `gorm:"not null;default:false" json:"isStudentSubmitted"`
	SubmissionID       *uint     `gorm:"uniqueIndex" json:"submissionId"`
	CreatedByID        *uint     `gorm:"index" json:"createdById"`
	CreatedBy          *User     `gorm:"constraint:OnDelete:SET NULL" json:"createdBy,omitempty"`
	CreatedAt          time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt          time.Time `gorm:"not null" json:"updatedAt"`
}

func ValidSeverity(value string) bool {
	switch value {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

func ValidReferralStatus(value string) bool {
	switch value {
	case ReferralPending, ReferralUnderReview, ReferralForConsultation, ReferralComplete:
		return true
	}
	return false
}
