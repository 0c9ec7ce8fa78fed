package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/Avamagic/mgserver-web-api/internal/config"
	"github.com/Avamagic/mgserver-web-api/internal/metrics"
	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/store"
	"github.com/Avamagic/mgserver-web-api/internal/util"

	"github.com/google/uuid"
)

var (
	ErrInvalidClient       = errors.New("invalid consumer key")
	ErrUnknownClient       = errors.New("client not registered")
	ErrInvalidCallback     = errors.New("callback uri not registered for client")
	ErrInvalidRealm        = errors.New("unknown realm requested")
	ErrUnknownRequestToken = errors.New("request token not found")
	ErrInvalidVerifier     = errors.New("verifier mismatch")
)

// TokenService drives the request-token lifecycle:
// issued -> granted (verifier attached) -> exchanged (access token exists).
// Tokens that are never exchanged expire after the configured TTL.
type TokenService struct {
	store   *store.Store
	config  *config.Config
	devices *DeviceService
	metrics metrics.Recorder
}

func NewTokenService(
	s *store.Store,
	cfg *config.Config,
	devices *DeviceService,
	recorder metrics.Recorder,
) *TokenService {
	return &TokenService{store: s, config: cfg, devices: devices, metrics: recorder}
}

// IssueRequestToken validates the client and callback and mints a fresh
// request token. callbackURI may be empty only when the client has exactly
// one registered callback, which then applies as the default.
func (s *TokenService) IssueRequestToken(
	clientKey, callbackURI string,
	realm models.Realm,
) (*models.RequestToken, error) {
	client, err := s.store.GetClientByKey(clientKey)
	if err != nil {
		s.metrics.RecordRequestTokenIssued("invalid_client")
		return nil, ErrInvalidClient
	}

	callback, ok := resolveCallback(client, callbackURI)
	if !ok {
		s.metrics.RecordRequestTokenIssued("invalid_callback")
		return nil, ErrInvalidCallback
	}

	if _, ok := models.ParseRealm(string(realm)); !ok {
		s.metrics.RecordRequestTokenIssued("invalid_realm")
		return nil, ErrInvalidRealm
	}

	tokenValue, err := util.CryptoRandomHex(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate request token: %w", err)
	}
	secret, err := util.CryptoRandomHex(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}

	token := &models.RequestToken{
		ID:          uuid.New().String(),
		Token:       tokenValue,
		Secret:      secret,
		ClientID:    client.ID,
		CallbackURI: callback,
		Realm:       realm,
		ExpiresAt:   time.Now().Add(s.config.RequestTokenTTL),
	}
	if err := s.store.CreateRequestToken(token); err != nil {
		return nil, err
	}

	s.metrics.RecordRequestTokenIssued("success")
	return token, nil
}

// resolveCallback applies the defaulting rule: a missing redirect target is
// allowed only when exactly one callback is registered; otherwise the
// presented target must exactly match a registered one.
func resolveCallback(client *models.Client, callbackURI string) (string, bool) {
	if callbackURI == "" {
		if def := client.DefaultCallback(); def != "" {
			return def, true
		}
		return "", false
	}
	if client.CallbackURIs.Contains(callbackURI) {
		return callbackURI, true
	}
	return "", false
}

// PendingGrant pairs a live request token with the client that asked for it.
type PendingGrant struct {
	Token  *models.RequestToken
	Client *models.Client
}

// DescribeGrant loads a request token and its client so a consent surface
// can present the pending authorization.
func (s *TokenService) DescribeGrant(tokenValue string) (*PendingGrant, error) {
	token, err := s.store.GetRequestTokenByToken(tokenValue)
	if err != nil {
		return nil, ErrUnknownRequestToken
	}
	if token.IsExpired() {
		return nil, ErrUnknownRequestToken
	}
	client, err := s.store.GetClientByID(token.ClientID)
	if err != nil {
		return nil, ErrUnknownClient
	}
	return &PendingGrant{Token: token, Client: client}, nil
}

// RecordGrant attaches a generated verifier and the granting user to the
// request token. The returned token carries the verifier and the callback
// the boundary layer redirects to.
func (s *TokenService) RecordGrant(tokenValue string, grantingUser *models.User) (*models.RequestToken, error) {
	token, err := s.store.GetRequestTokenByToken(tokenValue)
	if err != nil {
		return nil, ErrUnknownRequestToken
	}
	if token.IsExpired() {
		return nil, ErrUnknownRequestToken
	}

	verifier, err := util.CryptoRandomHex(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verifier: %w", err)
	}

	token.Verifier = verifier
	token.OwnerUserID = grantingUser.ID
	if err := s.store.SaveRequestToken(token); err != nil {
		return nil, err
	}

	s.metrics.RecordGrant()
	return token, nil
}

// ExchangeForAccessToken turns a granted request token into an access token.
// Realm and owner are copied verbatim from the request token, the request
// token is consumed so a second exchange fails, and the device bind for the
// new access token happens before returning.
func (s *TokenService) ExchangeForAccessToken(
	clientKey, tokenValue, verifier string,
) (*models.AccessToken, error) {
	client, err := s.store.GetClientByKey(clientKey)
	if err != nil {
		s.metrics.RecordTokenExchange("unknown_client")
		return nil, ErrUnknownClient
	}

	reqToken, err := s.store.GetRequestTokenForClient(tokenValue, client.ID)
	if err != nil {
		s.metrics.RecordTokenExchange("unknown_token")
		return nil, ErrUnknownRequestToken
	}
	if reqToken.IsExpired() {
		s.metrics.RecordTokenExchange("expired")
		return nil, ErrUnknownRequestToken
	}
	if !reqToken.IsGranted() {
		s.metrics.RecordTokenExchange("not_granted")
		return nil, ErrInvalidVerifier
	}
	if subtle.ConstantTimeCompare([]byte(reqToken.Verifier), []byte(verifier)) != 1 {
		s.metrics.RecordTokenExchange("bad_verifier")
		return nil, ErrInvalidVerifier
	}

	// Consume first: whichever exchange deletes the row wins, the loser
	// sees 0 rows affected and fails before any access token exists.
	if err := s.store.ConsumeRequestToken(reqToken.ID); err != nil {
		s.metrics.RecordTokenExchange("consumed")
		return nil, ErrUnknownRequestToken
	}

	accessValue, err := util.CryptoRandomHex(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	secret, err := util.CryptoRandomHex(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}

	accessToken := &models.AccessToken{
		ID:          uuid.New().String(),
		Token:       accessValue,
		Secret:      secret,
		ClientID:    client.ID,
		OwnerUserID: reqToken.OwnerUserID,
		Realm:       reqToken.Realm,
	}
	if err := s.store.CreateAccessToken(accessToken); err != nil {
		return nil, err
	}

	// Bind the device eagerly so the first protected request already finds
	// it. ResolveDevice is idempotent, so a concurrent first use races
	// harmlessly.
	if _, err := s.devices.ResolveDevice(accessToken); err != nil {
		return nil, err
	}

	s.metrics.RecordTokenExchange("success")
	return accessToken, nil
}

// Revoke deletes the access token. Safe to call on a token that never
// existed or was already revoked.
func (s *TokenService) Revoke(tokenValue string) error {
	if err := s.store.DeleteAccessToken(tokenValue); err != nil {
		return err
	}
	s.metrics.RecordTokenRevoked()
	return nil
}
