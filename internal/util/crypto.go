package util

import (
	"crypto/rand"
	"encoding/hex"
)

// CryptoRandomBytes generates cryptographically secure random bytes
func CryptoRandomBytes(length int64) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// CryptoRandomHex returns a hex string carrying length*8 bits of entropy from
// a cryptographically secure source. Token, secret and verifier material all
// come from here.
func CryptoRandomHex(length int64) (string, error) {
	bytes, err := CryptoRandomBytes(length)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
