package models

import (
	"time"
)

// Device is bound 1:1 to an access token, created lazily on the token's first
// authenticated use. The unique index on AccessTokenID is what makes the lazy
// bind idempotent under concurrent requests.
type Device struct {
	ID            string `gorm:"primaryKey"`
	AccessTokenID string `gorm:"uniqueIndex;not null"`

	Vendor      string
	Model       string
	Name        string
	Description string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Device) TableName() string {
	return "devices"
}
