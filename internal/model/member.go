package model

import (
	"time"

	"gorm.io/gorm"
)

// Member represents a person who gives contributions. A member may exist
// without a linked user (directory-only) or with one (login-enabled).
// The ID is either a generated "M-XXXXXX" code or, for self-registered
// members, the opaque id of their user record.
type Member struct {
	ID                string         `json:"memberId" gorm:"type:varchar(36);primaryKey"`
	ChurchID          string         `json:"churchId" gorm:"type:varchar(12);index;not null"`
	Name              string         `json:"name" gorm:"type:varchar(100);not null"`
	Phone             string         `json:"phone" gorm:"type:varchar(30);not null"`
	Email             string         `json:"email,omitempty" gorm:"type:varchar(100)"`
	PartnershipStatus bool           `json:"partnershipStatus" gorm:"default:false"`
	UserID            *string        `json:"-" gorm:"type:varchar(36);index"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

// LoginEnabled reports whether the member has a linked identity.
func (m *Member) LoginEnabled() bool {
	return m.UserID != nil && *m.UserID != ""
}
