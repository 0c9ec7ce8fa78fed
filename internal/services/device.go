package services

import (
	"errors"

	"github.com/Avamagic/mgserver-web-api/internal/metrics"
	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/store"

	"github.com/google/uuid"
)

var (
	ErrDeviceNotFound       = errors.New("device not found")
	ErrOrphanedAccessToken  = errors.New("no user associated with access token")
	ErrDeviceNotOwnedByUser = errors.New("device does not belong to user")
)

// DeviceService binds devices to access tokens: at most one device per
// token, created the first time the token is used and bound for the token's
// whole lifetime.
type DeviceService struct {
	store   *store.Store
	metrics metrics.Recorder
}

func NewDeviceService(s *store.Store, recorder metrics.Recorder) *DeviceService {
	return &DeviceService{store: s, metrics: recorder}
}

// ResolveDevice returns the device bound to the access token, creating it on
// first use. Idempotent under concurrent invocation: a duplicate-key failure
// on insert means another request already bound it, so the existing row is
// re-read and returned.
func (s *DeviceService) ResolveDevice(token *models.AccessToken) (*models.Device, error) {
	if device, err := s.store.GetDeviceByAccessTokenID(token.ID); err == nil {
		s.metrics.RecordDeviceResolved(false)
		return device, nil
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}

	user, err := s.store.GetUserByID(token.OwnerUserID)
	if err != nil {
		return nil, ErrOrphanedAccessToken
	}

	device := &models.Device{
		ID:            uuid.New().String(),
		AccessTokenID: token.ID,
	}
	if err := s.store.CreateDevice(device); err != nil {
		if errors.Is(err, store.ErrDuplicateRecord) {
			s.metrics.RecordDeviceResolved(false)
			return s.store.GetDeviceByAccessTokenID(token.ID)
		}
		return nil, err
	}

	if err := s.store.AppendUserDeviceID(user.ID, device.ID); err != nil {
		return nil, err
	}

	s.metrics.RecordDeviceResolved(true)
	return device, nil
}

// CreateDevice registers a device explicitly with vendor/model metadata and
// appends it to the owner's device list.
func (s *DeviceService) CreateDevice(
	user *models.User,
	token *models.AccessToken,
	vendor, model string,
) (*models.Device, error) {
	device := &models.Device{
		ID:            uuid.New().String(),
		AccessTokenID: token.ID,
		Vendor:        vendor,
		Model:         model,
	}
	if err := s.store.CreateDevice(device); err != nil {
		if errors.Is(err, store.ErrDuplicateRecord) {
			// The token already carries a device; update it in place.
			existing, lookupErr := s.store.GetDeviceByAccessTokenID(token.ID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			existing.Vendor = vendor
			existing.Model = model
			if saveErr := s.store.SaveDevice(existing); saveErr != nil {
				return nil, saveErr
			}
			return existing, nil
		}
		return nil, err
	}

	if err := s.store.AppendUserDeviceID(user.ID, device.ID); err != nil {
		return nil, err
	}
	s.metrics.RecordDeviceResolved(true)
	return device, nil
}

// GetDevice fetches a device by id.
func (s *DeviceService) GetDevice(id string) (*models.Device, error) {
	device, err := s.store.GetDeviceByID(id)
	if err != nil {
		return nil, ErrDeviceNotFound
	}
	return device, nil
}

// GetDeviceForUser fetches a device by id and verifies it is reachable
// through the user's device list.
func (s *DeviceService) GetDeviceForUser(user *models.User, id string) (*models.Device, error) {
	device, err := s.GetDevice(id)
	if err != nil {
		return nil, err
	}
	if !user.DeviceIDs.Contains(device.ID) {
		return nil, ErrDeviceNotOwnedByUser
	}
	return device, nil
}

// ListDevicesForUser returns the devices reachable through the user's list.
func (s *DeviceService) ListDevicesForUser(user *models.User) ([]models.Device, error) {
	return s.store.GetDevicesByIDs(user.DeviceIDs)
}

// UpdateDevice applies non-empty fields to the device row.
func (s *DeviceService) UpdateDevice(
	device *models.Device,
	name, description, vendor, model string,
) error {
	if name != "" {
		device.Name = name
	}
	if description != "" {
		device.Description = description
	}
	if vendor != "" {
		device.Vendor = vendor
	}
	if model != "" {
		device.Model = model
	}
	return s.store.SaveDevice(device)
}
