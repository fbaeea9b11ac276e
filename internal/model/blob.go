package model

import "time"

// Blob stores uploaded binary content (church logos) in the database.
// Keyed by the owning church so re-uploading replaces the previous logo.
type Blob struct {
	Key         string    `json:"key" gorm:"type:varchar(64);primaryKey"`
	ContentType string    `json:"contentType" gorm:"type:varchar(100)"`
	Data        []byte    `json:"-" gorm:"type:bytea"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
