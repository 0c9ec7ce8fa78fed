package services

import (
	"errors"

	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnknownAccessToken = errors.New("access token doesn't associate with any user")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email address already signed up")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserService covers signup, profile updates, and the accessor contracts the
// protected-resource handlers resolve principals through.
type UserService struct {
	store *store.Store
}

func NewUserService(s *store.Store) *UserService {
	return &UserService{store: s}
}

// Signup creates a credentialed resource owner.
func (s *UserService) Signup(email, password, name string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		ClientIDs:    models.StringArray{},
		DeviceIDs:    models.StringArray{},
	}
	if err := s.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Authenticate verifies email/password credentials. The interactive login
// surface in front of this core is the only intended caller.
func (s *UserService) Authenticate(email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.PasswordHash == "" {
		// Anonymous device-class users have no password to present.
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(id string) (*models.User, error) {
	user, err := s.store.GetUserByID(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUserByAccessToken resolves the acting principal behind a presented
// access token. Raised from an authentication context, so a miss maps to 401
// at the boundary.
func (s *UserService) GetUserByAccessToken(tokenValue string) (*models.User, error) {
	token, err := s.store.GetAccessToken(tokenValue)
	if err != nil {
		return nil, ErrUnknownAccessToken
	}
	user, err := s.store.GetUserByID(token.OwnerUserID)
	if err != nil {
		return nil, ErrUnknownAccessToken
	}
	return user, nil
}

// GetAccessTokenByValue fetches the access token row behind a presented
// token value.
func (s *UserService) GetAccessTokenByValue(tokenValue string) (*models.AccessToken, error) {
	token, err := s.store.GetAccessToken(tokenValue)
	if err != nil {
		return nil, ErrUnknownAccessToken
	}
	return token, nil
}

// GetClientByAccessToken resolves the client registration the presented
// access token was issued to.
func (s *UserService) GetClientByAccessToken(tokenValue string) (*models.Client, error) {
	token, err := s.store.GetAccessToken(tokenValue)
	if err != nil {
		return nil, ErrUnknownAccessToken
	}
	client, err := s.store.GetClientByID(token.ClientID)
	if err != nil {
		return nil, ErrUnknownClient
	}
	return client, nil
}

// UpdateProfile applies non-empty fields to the user. A new password is
// re-digested; a new email re-runs the uniqueness check in the store.
func (s *UserService) UpdateProfile(user *models.User, name, email, password string) error {
	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = email
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hash)
	}
	if err := s.store.SaveUser(user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}
