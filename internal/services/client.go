package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/store"
	"github.com/Avamagic/mgserver-web-api/internal/util"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateClient    = errors.New("client name already registered for this owner")
	ErrClientNameRequired = errors.New("client name is required")
	ErrCallbackRequired   = errors.New("at least one callback uri is required")
)

// ClientService manages client registrations.
type ClientService struct {
	store *store.Store
}

func NewClientService(s *store.Store) *ClientService {
	return &ClientService{store: s}
}

// ClientResponse carries the plaintext secret exactly once, at creation.
type ClientResponse struct {
	*models.Client
	ClientSecretPlain string
}

// Register creates a client owned by the user and appends it to the owner's
// client list. (owner, name) pairs are unique; a duplicate registration is
// rejected.
func (s *ClientService) Register(
	owner *models.User,
	name, description, callback string,
) (*ClientResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrClientNameRequired
	}
	if strings.TrimSpace(callback) == "" {
		return nil, ErrCallbackRequired
	}

	clientKey := uuid.New().String()
	clientSecret, err := util.CryptoRandomHex(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate client secret: %w", err)
	}
	secretHash, err := bcrypt.GenerateFromPassword([]byte(clientSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	client := &models.Client{
		ID:           uuid.New().String(),
		Name:         name,
		Description:  strings.TrimSpace(description),
		ClientKey:    clientKey,
		SecretHash:   string(secretHash),
		CallbackURIs: models.StringArray{callback},
		OwnerUserID:  owner.ID,
	}
	if err := s.store.CreateClient(client); err != nil {
		if errors.Is(err, store.ErrDuplicateRecord) {
			return nil, ErrDuplicateClient
		}
		return nil, err
	}

	if err := s.store.AppendUserClientID(owner.ID, client.ID); err != nil {
		return nil, err
	}

	return &ClientResponse{Client: client, ClientSecretPlain: clientSecret}, nil
}

// ListForOwner returns the clients registered by the user.
func (s *ClientService) ListForOwner(owner *models.User) ([]models.Client, error) {
	return s.store.ListClientsByOwner(owner.ID)
}

// GetByKey resolves a client by its public key.
func (s *ClientService) GetByKey(clientKey string) (*models.Client, error) {
	client, err := s.store.GetClientByKey(clientKey)
	if err != nil {
		return nil, ErrUnknownClient
	}
	return client, nil
}
