package db

import "time"

const (
	RoleAdmin     = "admin"
	RoleCounselor = "counselor"
	RoleAdviser   = "adviser"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:128;uniqueIndex;not null" json:"email"`
	FullName     string    `gorm:"size:128;not null" json:"fullName"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:32;not null;index" json:"role"`
	Department   string    `gorm:"size:128" json:"department"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCounselor, RoleAdviser:
		return true
	}
	return false
}
