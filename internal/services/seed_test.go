package services

import (
	"testing"
	"time"

	"github.com/Avamagic/mgserver-web-api/internal/metrics"
	"github.com/Avamagic/mgserver-web-api/internal/otp"

	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedTestSecret = "JBSWY3DPEHPK3PXP"

func validSeedCode(t *testing.T) string {
	code, err := totp.GenerateCodeCustom(seedTestSecret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    potp.DigitsSix,
		Algorithm: potp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func newSeedService(t *testing.T) (*SeedService, string) {
	s := setupTestStore(t)
	user := createTestUser(t, s)
	client := createTestClient(t, s, user)
	client.ClientKey = "abc123"
	require.NoError(t, s.DB().Save(client).Error)

	verifier := otp.NewTOTPVerifier(seedTestSecret, 30*time.Second)
	return NewSeedService(s, verifier, metrics.NewNoopMetrics()), "abc123"
}

func TestSeed_ValidCode(t *testing.T) {
	svc, clientKey := newSeedService(t)

	user, err := svc.Seed(validSeedCode(t), clientKey)
	require.NoError(t, err)

	// A fresh anonymous device-class principal bound to the client.
	assert.True(t, user.IsPreAuthorizedAnonymous())
	assert.Empty(t, user.Email)
	assert.Empty(t, user.PasswordHash)

	stored, err := svc.store.GetUserByID(user.ID)
	require.NoError(t, err)
	client, err := svc.store.GetClientByKey(clientKey)
	require.NoError(t, err)
	assert.True(t, stored.ClientIDs.Contains(client.ID))
}

func TestSeed_WrongCode(t *testing.T) {
	svc, clientKey := newSeedService(t)

	user, err := svc.Seed("000000", clientKey)
	assert.ErrorIs(t, err, ErrInvalidOtp)
	assert.Nil(t, user)
}

func TestSeed_UnknownClient(t *testing.T) {
	svc, _ := newSeedService(t)

	user, err := svc.Seed(validSeedCode(t), "no-such-key")
	assert.ErrorIs(t, err, ErrUnknownClient)
	assert.Nil(t, user)
}

func TestSeed_EachCallMintsAFreshUser(t *testing.T) {
	svc, clientKey := newSeedService(t)

	a, err := svc.Seed(validSeedCode(t), clientKey)
	require.NoError(t, err)
	b, err := svc.Seed(validSeedCode(t), clientKey)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}
