package services

import (
	"sync"
	"testing"

	"github.com/Avamagic/mgserver-web-api/internal/metrics"
	"github.com/Avamagic/mgserver-web-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDevice_LazyBind(t *testing.T) {
	s := setupTestStore(t)
	tokenSvc := newTokenService(s)
	svc := NewDeviceService(s, metrics.NewNoopMetrics())
	user := createTestUser(t, s)
	client := createTestClient(t, s, user)

	access := issueAccessToken(t, tokenSvc, client, user, models.RealmUsers)

	// Exchange already bound one device; resolving again returns it.
	first, err := svc.ResolveDevice(access)
	require.NoError(t, err)
	second, err := svc.ResolveDevice(access)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	owner, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringArray{first.ID}, owner.DeviceIDs)
}

func TestResolveDevice_OrphanedAccessToken(t *testing.T) {
	s := setupTestStore(t)
	svc := NewDeviceService(s, metrics.NewNoopMetrics())

	orphan := &models.AccessToken{
		ID:          "orphan-token-id",
		Token:       "orphan-token",
		Secret:      "secret",
		ClientID:    "client-1",
		OwnerUserID: "deleted-user",
		Realm:       models.RealmUsers,
	}
	require.NoError(t, s.CreateAccessToken(orphan))

	_, err := svc.ResolveDevice(orphan)
	assert.ErrorIs(t, err, ErrOrphanedAccessToken)
}

func TestResolveDevice_ConcurrentFirstUse(t *testing.T) {
	s := setupTestStore(t)
	svc := NewDeviceService(s, metrics.NewNoopMetrics())
	user := createTestUser(t, s)

	access := &models.AccessToken{
		ID:          "fresh-token-id",
		Token:       "fresh-token",
		Secret:      "secret",
		ClientID:    "client-1",
		OwnerUserID: user.ID,
		Realm:       models.RealmUsers,
	}
	require.NoError(t, s.CreateAccessToken(access))

	const workers = 50
	ids := make([]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			device, err := svc.ResolveDevice(access)
			if assert.NoError(t, err) {
				ids[i] = device.ID
			}
		}(i)
	}
	wg.Wait()

	// Every call resolved the same single device row.
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	devices, err := s.GetDevicesByIDs([]string{ids[0]})
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestCreateDevice_WithMetadata(t *testing.T) {
	s := setupTestStore(t)
	tokenSvc := newTokenService(s)
	svc := NewDeviceService(s, metrics.NewNoopMetrics())
	user := createTestUser(t, s)
	client := createTestClient(t, s, user)

	access := issueAccessToken(t, tokenSvc, client, user, models.RealmUsers)

	// The exchange already bound a bare device; explicit registration
	// fills in vendor/model on the same row.
	device, err := svc.CreateDevice(user, access, "Acme", "X-1000")
	require.NoError(t, err)
	assert.Equal(t, "Acme", device.Vendor)
	assert.Equal(t, "X-1000", device.Model)

	again, err := s.GetDeviceByAccessTokenID(access.ID)
	require.NoError(t, err)
	assert.Equal(t, device.ID, again.ID)
}

func TestGetDeviceForUser_OwnershipCheck(t *testing.T) {
	s := setupTestStore(t)
	tokenSvc := newTokenService(s)
	svc := NewDeviceService(s, metrics.NewNoopMetrics())
	user := createTestUser(t, s)
	stranger := createTestUser(t, s)
	client := createTestClient(t, s, user)

	access := issueAccessToken(t, tokenSvc, client, user, models.RealmUsers)
	device, err := svc.ResolveDevice(access)
	require.NoError(t, err)

	owner, err := s.GetUserByID(user.ID)
	require.NoError(t, err)

	got, err := svc.GetDeviceForUser(owner, device.ID)
	require.NoError(t, err)
	assert.Equal(t, device.ID, got.ID)

	_, err = svc.GetDeviceForUser(stranger, device.ID)
	assert.ErrorIs(t, err, ErrDeviceNotOwnedByUser)

	_, err = svc.GetDeviceForUser(owner, "no-such-device")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestUpdateDevice(t *testing.T) {
	s := setupTestStore(t)
	tokenSvc := newTokenService(s)
	svc := NewDeviceService(s, metrics.NewNoopMetrics())
	user := createTestUser(t, s)
	client := createTestClient(t, s, user)

	access := issueAccessToken(t, tokenSvc, client, user, models.RealmUsers)
	device, err := svc.ResolveDevice(access)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateDevice(device, "living room", "", "Acme", ""))

	got, err := svc.GetDevice(device.ID)
	require.NoError(t, err)
	assert.Equal(t, "living room", got.Name)
	assert.Equal(t, "Acme", got.Vendor)
	assert.Empty(t, got.Model)
}

func TestListDevicesForUser(t *testing.T) {
	s := setupTestStore(t)
	tokenSvc := newTokenService(s)
	svc := NewDeviceService(s, metrics.NewNoopMetrics())
	user := createTestUser(t, s)
	client := createTestClient(t, s, user)

	a := issueAccessToken(t, tokenSvc, client, user, models.RealmUsers)
	b := issueAccessToken(t, tokenSvc, client, user, models.RealmUsers)

	da, err := svc.ResolveDevice(a)
	require.NoError(t, err)
	db, err := svc.ResolveDevice(b)
	require.NoError(t, err)

	owner, err := s.GetUserByID(user.ID)
	require.NoError(t, err)

	devices, err := svc.ListDevicesForUser(owner)
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	ids := []string{devices[0].ID, devices[1].ID}
	assert.Contains(t, ids, da.ID)
	assert.Contains(t, ids, db.ID)
}
