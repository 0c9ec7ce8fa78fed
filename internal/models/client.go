package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Client is a registered application or device class. The client key is its
// public identifier; the shared secret is stored as a bcrypt digest and never
// exposed after creation.
type Client struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null;uniqueIndex:idx_clients_owner_name"`
	Description string `gorm:"type:text"`

	ClientKey  string `gorm:"uniqueIndex;not null"`
	SecretHash string `gorm:"not null"`

	// CallbackURIs is the non-empty set of allowed redirect targets. When
	// exactly one is registered a grant request may omit the redirect and
	// have it default to that value.
	CallbackURIs StringArray `gorm:"type:json"`

	OwnerUserID string `gorm:"not null;index;uniqueIndex:idx_clients_owner_name"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateSecret checks the presented secret against the stored digest.
func (c *Client) ValidateSecret(secret []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.SecretHash), secret) == nil
}

// DefaultCallback returns the single registered callback when exactly one
// exists, otherwise "".
func (c *Client) DefaultCallback() string {
	if len(c.CallbackURIs) == 1 {
		return c.CallbackURIs[0]
	}
	return ""
}

func (Client) TableName() string {
	return "clients"
}
