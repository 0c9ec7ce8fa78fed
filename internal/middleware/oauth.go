package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/services"

	"github.com/gin-gonic/gin"
)

// Context keys set by the OAuth middleware chain.
const (
	ContextOAuthCredentials = "oauth_credentials"
	ContextAccessToken      = "access_token"
	ContextUser             = "current_user"
	ContextClient           = "current_client"
)

// OAuthCredentials are the protocol parameters a signed request presents.
type OAuthCredentials struct {
	ConsumerKey string
	Token       string
	Nonce       string
	Timestamp   int64
	Signature   string
	Verifier    string
	Callback    string
}

// SignatureValidator verifies the request signature over the base string.
// The cryptography is supplied per deployment; this core only makes the
// stateful decisions (nonce freshness, token validity, realm membership)
// such a component consults.
type SignatureValidator interface {
	Validate(c *gin.Context, creds OAuthCredentials) bool
}

// PresenceValidator accepts any request that carries a signature parameter.
// It stands in where no external signing-validation component is wired.
type PresenceValidator struct{}

func (PresenceValidator) Validate(_ *gin.Context, creds OAuthCredentials) bool {
	return creds.Signature != ""
}

// ParseOAuthCredentials extracts oauth_* parameters from the Authorization
// header, falling back to form and query parameters.
func ParseOAuthCredentials(c *gin.Context) OAuthCredentials {
	params := map[string]string{}

	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "OAuth ") {
		for _, part := range strings.Split(header[len("OAuth "):], ",") {
			kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
			if len(kv) != 2 {
				continue
			}
			key := kv[0]
			value := strings.Trim(kv[1], `"`)
			params[key] = value
		}
	}

	param := func(name string) string {
		if v, ok := params[name]; ok && v != "" {
			return v
		}
		if v := c.PostForm(name); v != "" {
			return v
		}
		return c.Query(name)
	}

	ts, _ := strconv.ParseInt(param("oauth_timestamp"), 10, 64)
	return OAuthCredentials{
		ConsumerKey: param("oauth_consumer_key"),
		Token:       param("oauth_token"),
		Nonce:       param("oauth_nonce"),
		Timestamp:   ts,
		Signature:   param("oauth_signature"),
		Verifier:    param("oauth_verifier"),
		Callback:    param("oauth_callback"),
	}
}

// RequireSignedRequest gates the token endpoints: parses credentials,
// validates the signature, and runs the replay check exactly once, before
// any downstream secret-bearing operation. A replayed (client, nonce,
// timestamp) triple is an authentication failure.
func RequireSignedRequest(
	replay *services.ReplayService,
	validator SignatureValidator,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := checkSignedRequest(c, replay, validator); !ok {
			return
		}
		c.Next()
	}
}

// checkSignedRequest runs the signed-request gate and stashes the parsed
// credentials in the context. On failure the request is aborted with 401 and
// ok is false. It never advances the handler chain.
func checkSignedRequest(
	c *gin.Context,
	replay *services.ReplayService,
	validator SignatureValidator,
) (OAuthCredentials, bool) {
	creds := ParseOAuthCredentials(c)
	if creds.ConsumerKey == "" || creds.Nonce == "" || creds.Timestamp == 0 {
		failAuth(c, "missing oauth credentials")
		return creds, false
	}
	if !validator.Validate(c, creds) {
		failAuth(c, "invalid signature")
		return creds, false
	}
	// The gate cannot tell a request token from an access token; pass the
	// presented value as both candidate refs and let whichever resolves
	// land on the audit row.
	if !replay.CheckAndRecord(creds.ConsumerKey, creds.Timestamp, creds.Nonce, creds.Token, creds.Token) {
		failAuth(c, "nonce already used")
		return creds, false
	}

	c.Set(ContextOAuthCredentials, creds)
	return creds, true
}

// RequireOAuth protects resource endpoints. On top of the signed-request
// gate it resolves the access token, checks the realm against the required
// set, and stashes the acting principal in the context.
func RequireOAuth(
	replay *services.ReplayService,
	realms *services.RealmService,
	users *services.UserService,
	validator SignatureValidator,
	required ...models.Realm,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		creds, ok := checkSignedRequest(c, replay, validator)
		if !ok {
			return
		}

		if creds.Token == "" {
			failAuth(c, "missing access token")
			return
		}

		if !realms.Authorize(creds.ConsumerKey, creds.Token, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"flag": "fail",
				"msg":  "token realm not permitted for this resource",
			})
			return
		}

		user, err := users.GetUserByAccessToken(creds.Token)
		if err != nil {
			failAuth(c, "access token doesn't associate with any user")
			return
		}
		client, err := users.GetClientByAccessToken(creds.Token)
		if err != nil {
			failAuth(c, "access token doesn't associate with any client")
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextClient, client)
		c.Set(ContextAccessToken, creds.Token)
		c.Next()
	}
}

func failAuth(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"flag": "fail",
		"msg":  msg,
	})
}

// GetOAuthCredentials returns the parsed credentials stored by
// RequireSignedRequest.
func GetOAuthCredentials(c *gin.Context) OAuthCredentials {
	if v, ok := c.Get(ContextOAuthCredentials); ok {
		if creds, ok := v.(OAuthCredentials); ok {
			return creds
		}
	}
	return OAuthCredentials{}
}

// GetCurrentUser returns the principal resolved by RequireOAuth.
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	if v, ok := c.Get(ContextUser); ok {
		if user, ok := v.(*models.User); ok {
			return user, true
		}
	}
	return nil, false
}

// GetCurrentClient returns the client registration resolved by RequireOAuth.
func GetCurrentClient(c *gin.Context) (*models.Client, bool) {
	if v, ok := c.Get(ContextClient); ok {
		if client, ok := v.(*models.Client); ok {
			return client, true
		}
	}
	return nil, false
}
