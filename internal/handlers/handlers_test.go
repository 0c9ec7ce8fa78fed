package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Avamagic/mgserver-web-api/internal/config"
	"github.com/Avamagic/mgserver-web-api/internal/metrics"
	"github.com/Avamagic/mgserver-web-api/internal/middleware"
	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/services"
	"github.com/Avamagic/mgserver-web-api/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticVerifier accepts exactly one code.
type staticVerifier struct {
	code string
}

func (v staticVerifier) Verify(code string) bool {
	return code == v.code
}

// testEnv wires the full stack against an in-memory database so requests can
// be driven end to end through the router.
type testEnv struct {
	store   *store.Store
	router  *gin.Engine
	users   *services.UserService
	clients *services.ClientService
	tokens  *services.TokenService
	devices *services.DeviceService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.New("sqlite", ":memory:", store.Options{})
	require.NoError(t, err)

	cfg := &config.Config{RequestTokenTTL: 15 * time.Minute}
	recorder := metrics.NewNoopMetrics()

	userService := services.NewUserService(s)
	clientService := services.NewClientService(s)
	deviceService := services.NewDeviceService(s, recorder)
	tokenService := services.NewTokenService(s, cfg, deviceService, recorder)
	replayService := services.NewReplayService(s, recorder)
	realmService := services.NewRealmService(s)
	seedService := services.NewSeedService(s, staticVerifier{code: "123456"}, recorder)

	seedHandler := NewSeedHandler(seedService)
	oauthHandler := NewOAuthHandler(tokenService, userService)
	meHandler := NewMeHandler(userService)
	deviceHandler := NewDeviceHandler(deviceService, userService)
	userHandler := NewUserHandler(userService)
	clientHandler := NewClientHandler(clientService)

	validator := middleware.PresenceValidator{}
	signed := middleware.RequireSignedRequest(replayService, validator)
	usersRealm := middleware.RequireOAuth(
		replayService, realmService, userService, validator,
		models.RealmUsers,
	)
	usersOrAdmins := middleware.RequireOAuth(
		replayService, realmService, userService, validator,
		models.RealmUsers, models.RealmAdmins,
	)

	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))

	v1 := r.Group("/v1")
	{
		v1.POST("/seeds", seedHandler.Create)
		v1.POST("/request_token", signed, oauthHandler.RequestToken)
		v1.GET("/authorize", oauthHandler.ShowAuthorization)
		v1.POST("/authorize", oauthHandler.Authorize)
		v1.POST("/access_token", signed, oauthHandler.AccessToken)
		v1.GET("/me", usersRealm, meHandler.Show)
		v1.PUT("/me", usersRealm, meHandler.Update)
		v1.GET("/devices", usersRealm, deviceHandler.List)
		v1.POST("/devices", usersRealm, deviceHandler.Create)
		v1.GET("/devices/:id", usersOrAdmins, deviceHandler.Show)
		v1.PUT("/devices/:id", usersRealm, deviceHandler.Update)
		v1.GET("/device", usersRealm, deviceHandler.ShowCurrent)
		v1.PUT("/device", usersRealm, deviceHandler.UpdateCurrent)
		v1.POST("/users", userHandler.Signup)
		v1.POST("/login", userHandler.Login)

		clients := v1.Group("/clients")
		clients.Use(middleware.RequireSession(userService))
		{
			clients.GET("", clientHandler.List)
			clients.POST("", clientHandler.Create)
		}
	}

	return &testEnv{
		store:   s,
		router:  r,
		users:   userService,
		clients: clientService,
		tokens:  tokenService,
		devices: deviceService,
	}
}

func (env *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := env.users.Signup(email, "secret-password", "Test User")
	require.NoError(t, err)
	return user
}

func (env *testEnv) createAnonymousUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{
		ID:        uuid.New().String(),
		ClientIDs: models.StringArray{},
		DeviceIDs: models.StringArray{},
	}
	require.NoError(t, env.store.CreateUser(user))
	return user
}

func (env *testEnv) createClient(t *testing.T, owner *models.User) *services.ClientResponse {
	t.Helper()
	resp, err := env.clients.Register(owner, "Test App "+uuid.New().String()[:8], "", "app://callback")
	require.NoError(t, err)
	return resp
}

var nonceCounter int64

// withOAuthParams adds protocol parameters with a unique nonce so the replay
// gate treats each call as fresh.
func withOAuthParams(form url.Values, clientKey, token string) url.Values {
	n := atomic.AddInt64(&nonceCounter, 1)
	form.Set("oauth_consumer_key", clientKey)
	form.Set("oauth_nonce", fmt.Sprintf("nonce-%d-%s", n, uuid.New().String()[:8]))
	form.Set("oauth_timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	form.Set("oauth_signature", "sig")
	if token != "" {
		form.Set("oauth_token", token)
	}
	return form
}

func (env *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) get(path string, query url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path+"?"+query.Encode(), nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// runThreeLeggedFlow drives request token issuance, the uid grant shortcut,
// and the exchange, returning the final access token value.
func (env *testEnv) runThreeLeggedFlow(
	t *testing.T,
	clientKey string,
	user *models.User,
	realm string,
) string {
	t.Helper()

	form := withOAuthParams(url.Values{}, clientKey, "")
	form.Set("realm", realm)
	w := env.postForm("/v1/request_token", form)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	issued, err := url.ParseQuery(w.Body.String())
	require.NoError(t, err)
	requestToken := issued.Get("oauth_token")
	require.NotEmpty(t, requestToken)
	require.NotEmpty(t, issued.Get("oauth_token_secret"))

	grantForm := url.Values{}
	grantForm.Set("oauth_token", requestToken)
	grantForm.Set("uid", user.ID)
	w = env.postForm("/v1/authorize", grantForm)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	redirect, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	verifier := redirect.Query().Get("oauth_verifier")
	require.NotEmpty(t, verifier)
	require.Equal(t, requestToken, redirect.Query().Get("oauth_token"))

	exchangeForm := withOAuthParams(url.Values{}, clientKey, requestToken)
	exchangeForm.Set("oauth_verifier", verifier)
	w = env.postForm("/v1/access_token", exchangeForm)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	granted, err := url.ParseQuery(w.Body.String())
	require.NoError(t, err)
	accessToken := granted.Get("oauth_token")
	require.NotEmpty(t, accessToken)
	return accessToken
}

func TestSeedEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	client := env.createClient(t, owner)

	form := url.Values{}
	form.Set("otp", "123456")
	form.Set("consumer_key", client.ClientKey)
	w := env.postForm("/v1/seeds", form)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeEnvelope(t, w)
	assert.Equal(t, "success", body["flag"])
	assert.NotEmpty(t, body["user_id"])
}

func TestSeedEndpoint_WrongCode(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	client := env.createClient(t, owner)

	form := url.Values{}
	form.Set("otp", "000000")
	form.Set("consumer_key", client.ClientKey)
	w := env.postForm("/v1/seeds", form)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeEnvelope(t, w)
	assert.Equal(t, "fail", body["flag"])
}

func TestSeedEndpoint_UnknownClient(t *testing.T) {
	env := setupTestEnv(t)

	form := url.Values{}
	form.Set("otp", "123456")
	form.Set("consumer_key", "no-such-client")
	w := env.postForm("/v1/seeds", form)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestThreeLeggedFlow(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	client := env.createClient(t, owner)
	device := env.createAnonymousUser(t)

	accessToken := env.runThreeLeggedFlow(t, client.ClientKey, device, "users")

	query := withOAuthParams(url.Values{}, client.ClientKey, accessToken)
	w := env.get("/v1/me", query)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeEnvelope(t, w)
	assert.Equal(t, "success", body["flag"])
	res := body["res"].(map[string]any)
	assert.Equal(t, device.ID, res["id"])
}

func TestRequestToken_UnknownRealm(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	client := env.createClient(t, owner)

	form := withOAuthParams(url.Values{}, client.ClientKey, "")
	form.Set("realm", "gods")
	w := env.postForm("/v1/request_token", form)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReplayRejectedAtBoundary(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	client := env.createClient(t, owner)

	form := withOAuthParams(url.Values{}, client.ClientKey, "")
	form.Set("realm", "users")
	w := env.postForm("/v1/request_token", form)
	require.Equal(t, http.StatusOK, w.Code)

	// Identical protocol parameters the second time.
	w = env.postForm("/v1/request_token", form)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_MissingCredentials(t *testing.T) {
	env := setupTestEnv(t)

	w := env.get("/v1/me", url.Values{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_RealmForbidden(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	client := env.createClient(t, owner)
	device := env.createAnonymousUser(t)

	accessToken := env.runThreeLeggedFlow(t, client.ClientKey, device, "vendors")

	query := withOAuthParams(url.Values{}, client.ClientKey, accessToken)
	w := env.get("/v1/me", query)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorize_RequiresPrincipal(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	client := env.createClient(t, owner)

	form := withOAuthParams(url.Values{}, client.ClientKey, "")
	form.Set("realm", "users")
	w := env.postForm("/v1/request_token", form)
	require.Equal(t, http.StatusOK, w.Code)
	issued, err := url.ParseQuery(w.Body.String())
	require.NoError(t, err)

	grantForm := url.Values{}
	grantForm.Set("oauth_token", issued.Get("oauth_token"))
	w = env.postForm("/v1/authorize", grantForm)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorize_UidShortcutRejectsCredentialedUser(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	client := env.createClient(t, owner)

	form := withOAuthParams(url.Values{}, client.ClientKey, "")
	form.Set("realm", "users")
	w := env.postForm("/v1/request_token", form)
	require.Equal(t, http.StatusOK, w.Code)
	issued, err := url.ParseQuery(w.Body.String())
	require.NoError(t, err)

	// A user with credentials must consent through a session, never via uid.
	grantForm := url.Values{}
	grantForm.Set("oauth_token", issued.Get("oauth_token"))
	grantForm.Set("uid", owner.ID)
	w = env.postForm("/v1/authorize", grantForm)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeviceCurrent_LazyBind(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	client := env.createClient(t, owner)
	device := env.createAnonymousUser(t)

	accessToken := env.runThreeLeggedFlow(t, client.ClientKey, device, "users")

	query := withOAuthParams(url.Values{}, client.ClientKey, accessToken)
	w := env.get("/v1/device", query)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeEnvelope(t, w)
	res := body["res"].(map[string]any)
	deviceID := res["id"].(string)
	assert.NotEmpty(t, deviceID)

	// Same token resolves to the same device.
	query = withOAuthParams(url.Values{}, client.ClientKey, accessToken)
	w = env.get("/v1/device", query)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeEnvelope(t, w)
	assert.Equal(t, deviceID, body["res"].(map[string]any)["id"])
}

func TestDeviceUpdateCurrent(t *testing.T) {
	env := setupTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	client := env.createClient(t, owner)
	device := env.createAnonymousUser(t)

	accessToken := env.runThreeLeggedFlow(t, client.ClientKey, device, "users")

	form := withOAuthParams(url.Values{}, client.ClientKey, accessToken)
	form.Set("name", "Living Room")
	form.Set("vendor", "Acme")
	req := httptest.NewRequest(http.MethodPut, "/v1/device", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeEnvelope(t, w)
	res := body["res"].(map[string]any)
	assert.Equal(t, "Living Room", res["name"])
	assert.Equal(t, "Acme", res["vendor"])
}

func TestSignupAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	form := url.Values{}
	form.Set("email", "new@example.com")
	form.Set("password", "hunter2hunter2")
	form.Set("name", "New User")
	w := env.postForm("/v1/users", form)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Duplicate signup conflicts.
	w = env.postForm("/v1/users", form)
	assert.Equal(t, http.StatusConflict, w.Code)

	loginForm := url.Values{}
	loginForm.Set("email", "new@example.com")
	loginForm.Set("password", "hunter2hunter2")
	w = env.postForm("/v1/login", loginForm)
	assert.Equal(t, http.StatusOK, w.Code)

	loginForm.Set("password", "wrong")
	w = env.postForm("/v1/login", loginForm)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClients_RequireSession(t *testing.T) {
	env := setupTestEnv(t)

	w := env.get("/v1/clients", url.Values{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClients_RegisterAndList(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "owner@example.com")

	loginForm := url.Values{}
	loginForm.Set("email", "owner@example.com")
	loginForm.Set("password", "secret-password")
	w := env.postForm("/v1/login", loginForm)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := (&http.Response{Header: w.Header()}).Cookies()
	require.NotEmpty(t, cookies)

	form := url.Values{}
	form.Set("name", "My App")
	form.Set("callback", "app://cb")
	req := httptest.NewRequest(http.MethodPost, "/v1/clients", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeEnvelope(t, w)
	res := body["res"].(map[string]any)
	assert.NotEmpty(t, res["client_key"])
	assert.NotEmpty(t, res["client_secret"])

	listReq := httptest.NewRequest(http.MethodGet, "/v1/clients", nil)
	for _, c := range cookies {
		listReq.AddCookie(c)
	}
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, listReq)
	require.Equal(t, http.StatusOK, w.Code)

	body = decodeEnvelope(t, w)
	assert.Len(t, body["res"].([]any), 1)
}
