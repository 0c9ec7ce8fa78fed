package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateRecord is returned when an insert violates a unique
	// index. Callers use it as the atomic "someone got there first"
	// signal: a replayed nonce, a concurrently bound device, a taken
	// (owner, name) client pair.
	ErrDuplicateRecord = errors.New("duplicate record")

	// ErrAlreadyConsumed is returned when consuming a request token that
	// a concurrent exchange already deleted (0 rows affected).
	ErrAlreadyConsumed = errors.New("request token already consumed")

	// ErrEmailTaken is returned when creating or updating a user with an
	// email another user already claimed.
	ErrEmailTaken = errors.New("email already signed up")
)

// translate maps driver-level errors onto the store's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	if isDuplicateKey(err) {
		return ErrDuplicateRecord
	}
	return err
}

// isDuplicateKey detects unique constraint violations across the supported
// drivers. GORM's TranslateError covers the common cases; the message sniff
// keeps older driver versions honest.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}
