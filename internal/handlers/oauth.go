package handlers

import (
	"net/http"
	"net/url"

	"github.com/Avamagic/mgserver-web-api/internal/middleware"
	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type OAuthHandler struct {
	tokenService *services.TokenService
	userService  *services.UserService
}

func NewOAuthHandler(ts *services.TokenService, us *services.UserService) *OAuthHandler {
	return &OAuthHandler{tokenService: ts, userService: us}
}

// RequestToken godoc
//
//	@Summary		Issue a request token
//	@Description	Mint a temporary credential a client later trades for an access token once a user grants it
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		plain
//	@Param			oauth_consumer_key	formData	string	true	"Client key"
//	@Param			oauth_callback		formData	string	false	"Redirect target; may be omitted when the client has exactly one registered callback"
//	@Param			realm				formData	string	false	"Requested realm: users, vendors, or admins"
//	@Success		200	{string}	string	"oauth_token=...&oauth_token_secret=...&oauth_callback_confirmed=true"
//	@Failure		400	{object}	object{flag=string,msg=string}	"Unknown realm or unregistered callback"
//	@Router			/v1/request_token [post]
func (h *OAuthHandler) RequestToken(c *gin.Context) {
	creds := middleware.GetOAuthCredentials(c)
	realm := models.Realm(c.PostForm("realm"))

	token, err := h.tokenService.IssueRequestToken(creds.ConsumerKey, creds.Callback, realm)
	if err != nil {
		respondError(c, err)
		return
	}

	body := url.Values{}
	body.Set("oauth_token", token.Token)
	body.Set("oauth_token_secret", token.Secret)
	body.Set("oauth_callback_confirmed", "true")
	c.Data(http.StatusOK, "application/x-www-form-urlencoded", []byte(body.Encode()))
}

// AccessToken godoc
//
//	@Summary		Exchange a granted request token
//	@Description	Trade a granted request token plus its verifier for an access token; a request token can be exchanged at most once
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		plain
//	@Param			oauth_consumer_key	formData	string	true	"Client key"
//	@Param			oauth_token			formData	string	true	"Granted request token"
//	@Param			oauth_verifier		formData	string	true	"Verifier delivered through the callback"
//	@Success		200	{string}	string	"oauth_token=...&oauth_token_secret=..."
//	@Failure		400	{object}	object{flag=string,msg=string}	"Missing grant or verifier mismatch"
//	@Failure		404	{object}	object{flag=string,msg=string}	"Unknown or consumed request token"
//	@Router			/v1/access_token [post]
func (h *OAuthHandler) AccessToken(c *gin.Context) {
	creds := middleware.GetOAuthCredentials(c)

	token, err := h.tokenService.ExchangeForAccessToken(creds.ConsumerKey, creds.Token, creds.Verifier)
	if err != nil {
		respondError(c, err)
		return
	}

	body := url.Values{}
	body.Set("oauth_token", token.Token)
	body.Set("oauth_token_secret", token.Secret)
	c.Data(http.StatusOK, "application/x-www-form-urlencoded", []byte(body.Encode()))
}

// ShowAuthorization godoc
//
//	@Summary		Pending grant details
//	@Description	Return what the client is asking for so a consent surface can render it
//	@Tags			OAuth
//	@Produce		json
//	@Param			oauth_token	query	string	true	"Request token under review"
//	@Success		200	{object}	object{flag=string,res=object}
//	@Failure		404	{object}	object{flag=string,msg=string}
//	@Router			/v1/authorize [get]
func (h *OAuthHandler) ShowAuthorization(c *gin.Context) {
	if _, err := h.resolvePrincipal(c); err != nil {
		respondFail(c, http.StatusUnauthorized, "login required")
		return
	}

	pending, err := h.tokenService.DescribeGrant(c.Query("oauth_token"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, gin.H{
		"oauth_token": pending.Token.Token,
		"client_name": pending.Client.Name,
		"realm":       pending.Token.Realm,
		"callback":    pending.Token.CallbackURI,
	})
}

// Authorize godoc
//
//	@Summary		Grant a request token
//	@Description	Record the acting user's consent and redirect to the client callback with the verifier
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Param			oauth_token	formData	string	true	"Request token being granted"
//	@Param			uid			formData	string	false	"Pre-authorized anonymous principal id, used by headless devices in place of a session"
//	@Success		302	{string}	string	"Redirect to callback with oauth_token and oauth_verifier"
//	@Failure		401	{object}	object{flag=string,msg=string}
//	@Failure		404	{object}	object{flag=string,msg=string}
//	@Router			/v1/authorize [post]
func (h *OAuthHandler) Authorize(c *gin.Context) {
	user, err := h.resolvePrincipal(c)
	if err != nil {
		respondFail(c, http.StatusUnauthorized, "login required")
		return
	}

	tokenValue := c.PostForm("oauth_token")
	if tokenValue == "" {
		tokenValue = c.Query("oauth_token")
	}

	token, err := h.tokenService.RecordGrant(tokenValue, user)
	if err != nil {
		respondError(c, err)
		return
	}

	redirect, err := url.Parse(token.CallbackURI)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "callback uri is not parseable")
		return
	}
	query := redirect.Query()
	query.Set("oauth_token", token.Token)
	query.Set("oauth_verifier", token.Verifier)
	redirect.RawQuery = query.Encode()

	c.Redirect(http.StatusFound, redirect.String())
}

// resolvePrincipal finds the granting user: a session principal when one is
// logged in, otherwise the uid shortcut. The shortcut only ever applies to
// anonymous device-class users; any user carrying an email or a password
// digest must consent through a real session.
func (h *OAuthHandler) resolvePrincipal(c *gin.Context) (*models.User, error) {
	session := sessions.Default(c)
	if id, ok := session.Get(middleware.SessionUserID).(string); ok && id != "" {
		return h.userService.GetUserByID(id)
	}

	uid := c.PostForm("uid")
	if uid == "" {
		uid = c.Query("uid")
	}
	if uid == "" {
		return nil, services.ErrUserNotFound
	}

	user, err := h.userService.GetUserByID(uid)
	if err != nil {
		return nil, err
	}
	if !user.IsPreAuthorizedAnonymous() {
		return nil, services.ErrUserNotFound
	}
	return user, nil
}
