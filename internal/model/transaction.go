package model

import (
	"time"

	"gorm.io/gorm"
)

// Contribution types.
const (
	TypeTithe       = "Tithe"
	TypeOffering    = "Offering"
	TypePartnership = "Partnership"
)

// GuestMemberID is the sentinel stored for anonymous general offerings.
const GuestMemberID = "GUEST"

// ValidTransactionType reports whether t is one of the three contribution kinds.
func ValidTransactionType(t string) bool {
	return t == TypeTithe || t == TypeOffering || t == TypePartnership
}

// Transaction is an immutable record of one contribution. There is no
// update or delete path; corrections are handled by recording again.
type Transaction struct {
	ID         string         `json:"transactionId" gorm:"type:varchar(36);primaryKey"`
	ChurchID   string         `json:"churchId" gorm:"type:varchar(12);index;not null"`
	MemberID   string         `json:"memberId" gorm:"type:varchar(36);index;not null"`
	Type       string         `json:"type" gorm:"type:varchar(20);not null"`
	Amount     float64        `json:"amount" gorm:"not null"`
	Date       string         `json:"date" gorm:"type:varchar(10);not null"` // YYYY-MM-DD
	Notes      string         `json:"notes,omitempty" gorm:"type:text"`
	RecordedBy string         `json:"recordedBy" gorm:"type:varchar(36)"`
	CreatedAt  time.Time      `json:"createdAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
