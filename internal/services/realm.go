package services

import (
	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/store"
)

// RealmService decides whether an access token's realm satisfies a protected
// operation's required realm set.
type RealmService struct {
	store *store.Store
}

func NewRealmService(s *store.Store) *RealmService {
	return &RealmService{store: s}
}

// Authorize passes unconditionally when required is empty. Otherwise the
// client must resolve by key, the token must belong to that client, and the
// token's realm must be a member of required. Realms are flat labels; an
// endpoint that accepts several must list them all.
func (s *RealmService) Authorize(
	clientKey, accessToken string,
	required []models.Realm,
) bool {
	if len(required) == 0 {
		return true
	}

	client, err := s.store.GetClientByKey(clientKey)
	if err != nil {
		return false
	}

	token, err := s.store.GetAccessTokenForClient(accessToken, client.ID)
	if err != nil {
		return false
	}

	return token.Realm.In(required)
}
