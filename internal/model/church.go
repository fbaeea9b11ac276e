package model

import (
	"time"

	"gorm.io/gorm"
)

// Church represents one church's isolated data partition.
// Every member and transaction row carries its ID.
type Church struct {
	ID          string         `json:"churchId" gorm:"type:varchar(12);primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	LogoURL     string         `json:"logoUrl,omitempty" gorm:"type:varchar(255)"`
	SMSProvider string         `json:"smsProvider,omitempty" gorm:"type:varchar(50)"`
	SMSAPIKey   string         `json:"-" gorm:"type:varchar(255)"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
