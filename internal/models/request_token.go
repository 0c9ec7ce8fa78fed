package models

import (
	"time"
)

// RequestToken carries a pending authorization grant through the redirect
// based approval step. It is transient: exchanged exactly once for an access
// token, or abandoned and left to expire.
type RequestToken struct {
	ID     string `gorm:"primaryKey"`
	Token  string `gorm:"uniqueIndex;not null"`
	Secret string `gorm:"not null"`

	ClientID    string `gorm:"not null;index"`
	CallbackURI string `gorm:"not null"`
	Realm       Realm

	// Verifier and OwnerUserID stay empty until the resource owner grants
	// the token. Both must be set before an exchange is allowed.
	Verifier    string
	OwnerUserID string

	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsGranted reports whether the owner-grant step has completed.
func (t *RequestToken) IsGranted() bool {
	return t.Verifier != "" && t.OwnerUserID != ""
}

func (t *RequestToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (RequestToken) TableName() string {
	return "request_tokens"
}
