// Package otp gates the unattended provisioning path. A factory-programmed
// device proves physical possession of the shared secret by presenting a
// time-based one-time code; the algorithm itself is standard TOTP (RFC 6238)
// supplied by pquerna/otp.
package otp

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Verifier checks one-time codes. The seeding service depends on this
// interface only, so tests can swap in a fixed verdict.
type Verifier interface {
	Verify(code string) bool
}

// TOTPVerifier validates codes against a shared base32 secret and refresh
// interval. Configuration is read-only after construction; the verifier is
// safe for concurrent use.
type TOTPVerifier struct {
	secret   string
	interval time.Duration
}

func NewTOTPVerifier(secret string, interval time.Duration) *TOTPVerifier {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &TOTPVerifier{secret: secret, interval: interval}
}

// Verify reports whether code is valid for the current interval. One
// interval of clock skew is tolerated in each direction, matching what
// out-of-band provisioners generate.
func (v *TOTPVerifier) Verify(code string) bool {
	if v.secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, v.secret, time.Now(), totp.ValidateOpts{
		Period:    uint(v.interval / time.Second),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
