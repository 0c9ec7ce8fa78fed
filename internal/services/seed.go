package services

import (
	"errors"

	"github.com/Avamagic/mgserver-web-api/internal/metrics"
	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/otp"
	"github.com/Avamagic/mgserver-web-api/internal/store"

	"github.com/google/uuid"
)

var ErrInvalidOtp = errors.New("otp incorrect")

// SeedService is the unattended provisioning path: a device that can produce
// a valid one-time code for the shared secret mints itself a fresh anonymous
// account slot bound to a known client registration. No password is involved;
// the OTP proves physical possession of the factory-programmed secret.
type SeedService struct {
	store    *store.Store
	verifier otp.Verifier
	metrics  metrics.Recorder
}

func NewSeedService(s *store.Store, verifier otp.Verifier, recorder metrics.Recorder) *SeedService {
	return &SeedService{store: s, verifier: verifier, metrics: recorder}
}

// Seed validates the one-time code and creates a new anonymous user whose
// client list contains the resolved client. The error for a bad code never
// echoes secret material.
func (s *SeedService) Seed(otpCode, clientKey string) (*models.User, error) {
	if !s.verifier.Verify(otpCode) {
		s.metrics.RecordSeed(false)
		return nil, ErrInvalidOtp
	}

	client, err := s.store.GetClientByKey(clientKey)
	if err != nil {
		s.metrics.RecordSeed(false)
		return nil, ErrUnknownClient
	}

	user := &models.User{
		ID:        uuid.New().String(),
		ClientIDs: models.StringArray{},
		DeviceIDs: models.StringArray{},
	}
	if err := s.store.CreateUser(user); err != nil {
		return nil, err
	}
	if err := s.store.AppendUserClientID(user.ID, client.ID); err != nil {
		return nil, err
	}
	user.ClientIDs = append(user.ClientIDs, client.ID)

	s.metrics.RecordSeed(true)
	return user, nil
}
