package store

import (
	"github.com/Avamagic/mgserver-web-api/internal/models"
)

// Request token operations

func (s *Store) CreateRequestToken(token *models.RequestToken) error {
	return translate(s.db.Create(token).Error)
}

func (s *Store) GetRequestTokenByToken(token string) (*models.RequestToken, error) {
	var t models.RequestToken
	if err := s.db.Where("token = ?", token).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) GetRequestTokenForClient(token, clientID string) (*models.RequestToken, error) {
	var t models.RequestToken
	err := s.db.Where("token = ? AND client_id = ?", token, clientID).First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) SaveRequestToken(token *models.RequestToken) error {
	return translate(s.db.Save(token).Error)
}

// ConsumeRequestToken deletes the request token row, making the exchange
// single-use. A concurrent exchange that already consumed it sees 0 rows
// affected and gets ErrAlreadyConsumed.
func (s *Store) ConsumeRequestToken(id string) error {
	res := s.db.Where("id = ?", id).Delete(&models.RequestToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyConsumed
	}
	return nil
}

// Access token operations

func (s *Store) CreateAccessToken(token *models.AccessToken) error {
	return translate(s.db.Create(token).Error)
}

func (s *Store) GetAccessToken(token string) (*models.AccessToken, error) {
	var t models.AccessToken
	if err := s.db.Where("token = ?", token).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) GetAccessTokenForClient(token, clientID string) (*models.AccessToken, error) {
	var t models.AccessToken
	err := s.db.Where("token = ? AND client_id = ?", token, clientID).First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// DeleteAccessToken revokes a token. Deleting a missing token is a no-op so
// revocation stays idempotent.
func (s *Store) DeleteAccessToken(token string) error {
	return s.db.Where("token = ?", token).Delete(&models.AccessToken{}).Error
}

// Nonce operations

// CreateNonce inserts the write-once nonce row. A unique index violation on
// (client_id, value, timestamp) surfaces as ErrDuplicateRecord: the replay
// signal. The insert is the check; there is no read-then-write window.
func (s *Store) CreateNonce(nonce *models.Nonce) error {
	return translate(s.db.Create(nonce).Error)
}

func (s *Store) GetNonce(clientID, value string, timestamp int64) (*models.Nonce, error) {
	var n models.Nonce
	err := s.db.Where("client_id = ? AND value = ? AND timestamp = ?",
		clientID, value, timestamp).First(&n).Error
	if err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

// Device operations

// CreateDevice inserts a device row. The unique index on access_token_id
// turns a concurrent double-create into ErrDuplicateRecord; the caller
// re-reads the winner's row.
func (s *Store) CreateDevice(device *models.Device) error {
	return translate(s.db.Create(device).Error)
}

func (s *Store) GetDeviceByID(id string) (*models.Device, error) {
	var d models.Device
	if err := s.db.Where("id = ?", id).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) GetDeviceByAccessTokenID(accessTokenID string) (*models.Device, error) {
	var d models.Device
	err := s.db.Where("access_token_id = ?", accessTokenID).First(&d).Error
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *Store) GetDevicesByIDs(ids []string) ([]models.Device, error) {
	if len(ids) == 0 {
		return []models.Device{}, nil
	}
	var devices []models.Device
	if err := s.db.Where("id IN ?", ids).Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *Store) SaveDevice(device *models.Device) error {
	return translate(s.db.Save(device).Error)
}
