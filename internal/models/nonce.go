package models

import (
	"time"
)

// Nonce is a write-once audit record of a signed request. The composite
// unique index over (client_id, value, timestamp) is the replay detector: a
// second insert of the same triple fails at the storage layer.
type Nonce struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Value     string `gorm:"not null;uniqueIndex:idx_nonces_client_value_ts"`
	Timestamp int64  `gorm:"not null;uniqueIndex:idx_nonces_client_value_ts"`
	ClientID  string `gorm:"not null;uniqueIndex:idx_nonces_client_value_ts"`

	// Optional back references to the token the signed request presented.
	RequestTokenID string
	AccessTokenID  string

	CreatedAt time.Time
}

func (Nonce) TableName() string {
	return "nonces"
}
