package services

import (
	"errors"

	"github.com/Avamagic/mgserver-web-api/internal/metrics"
	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/store"
)

// ReplayService is the replay guard: every signed request checks in its
// (client, nonce, timestamp) triple exactly once, before any secret-bearing
// work happens downstream.
type ReplayService struct {
	store   *store.Store
	metrics metrics.Recorder
}

func NewReplayService(s *store.Store, recorder metrics.Recorder) *ReplayService {
	return &ReplayService{store: s, metrics: recorder}
}

// CheckAndRecord returns true when the triple is fresh and has been recorded.
// Unknown clients fail closed. The record is the check: the nonce insert
// races against concurrent identical requests on the store's unique index,
// so exactly one caller observes true for any given triple.
func (s *ReplayService) CheckAndRecord(
	clientKey string,
	timestamp int64,
	nonce string,
	requestToken, accessToken string,
) bool {
	client, err := s.store.GetClientByKey(clientKey)
	if err != nil {
		return false
	}

	row := &models.Nonce{
		Value:     nonce,
		Timestamp: timestamp,
		ClientID:  client.ID,
	}

	// Tie the audit record to the token the request presented, when the
	// token resolves. A prior record with a different token under the same
	// triple is still a replay; the unique index does not care which token
	// rode along.
	if requestToken != "" {
		if t, err := s.store.GetRequestTokenForClient(requestToken, client.ID); err == nil {
			row.RequestTokenID = t.ID
		}
	}
	if accessToken != "" {
		if t, err := s.store.GetAccessTokenForClient(accessToken, client.ID); err == nil {
			row.AccessTokenID = t.ID
		}
	}

	if err := s.store.CreateNonce(row); err != nil {
		if errors.Is(err, store.ErrDuplicateRecord) {
			s.metrics.RecordReplayRejected()
		}
		return false
	}
	return true
}
