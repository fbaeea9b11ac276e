package model

import (
	"time"

	"gorm.io/gorm"
)

// Roles a user can hold within their church.
const (
	RoleChurchAdmin = "Church Admin"
	RoleMember      = "Member"
)

// User represents an authentication identity: a credential plus its
// role/church/member linkage. Every user belongs to exactly one church.
type User struct {
	ID        string         `json:"uid" gorm:"type:varchar(36);primaryKey"`
	Email     string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password  string         `json:"-" gorm:"type:varchar(255)"`
	Name      string         `json:"name" gorm:"type:varchar(100)"`
	Role      string         `json:"role" gorm:"type:varchar(50);not null"`
	ChurchID  string         `json:"churchId" gorm:"type:varchar(12);index"`
	MemberID  *string        `json:"memberId,omitempty" gorm:"type:varchar(36);index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
