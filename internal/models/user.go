package models

import (
	"time"
)

// User is a resource owner. Anonymous device-class users created through the
// seeding flow carry an empty email and an empty password digest.
type User struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	Email        string `gorm:"index"` // unique when set; "" is shared by anonymous users
	PasswordHash string // bcrypt digest; empty for anonymous users

	// Ownership lists. Membership is the only relationship; the rows
	// themselves live in their own tables.
	ClientIDs StringArray `gorm:"type:json"`
	DeviceIDs StringArray `gorm:"type:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPreAuthorizedAnonymous reports whether this user is a device-class
// principal minted by the seeding flow. Such users are auto-granted in the
// direct-authorize shortcut without an interactive login. This must never
// apply to a user that carries either an email or a password digest.
func (u *User) IsPreAuthorizedAnonymous() bool {
	return u.Email == "" && u.PasswordHash == ""
}

func (User) TableName() string {
	return "users"
}
