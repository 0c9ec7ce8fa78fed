package models

import (
	"time"
)

// AccessToken is the long-lived credential produced by exchanging a granted
// request token. Realm and OwnerUserID are copied verbatim from the request
// token at exchange time. Immutable once issued; revocation deletes the row.
type AccessToken struct {
	ID     string `gorm:"primaryKey"`
	Token  string `gorm:"uniqueIndex;not null"`
	Secret string `gorm:"not null"`

	ClientID    string `gorm:"not null;index"`
	OwnerUserID string `gorm:"not null;index"`
	Realm       Realm

	CreatedAt time.Time
}

func (AccessToken) TableName() string {
	return "access_tokens"
}
