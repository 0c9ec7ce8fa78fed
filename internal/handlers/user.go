package handlers

import (
	"net/http"

	"github.com/Avamagic/mgserver-web-api/internal/middleware"
	"github.com/Avamagic/mgserver-web-api/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(us *services.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

// Signup godoc
//
//	@Summary		Sign up
//	@Description	Create a credentialed resource owner
//	@Tags			Users
//	@Accept			json
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			email		formData	string	true	"Email address"
//	@Param			password	formData	string	true	"Password"
//	@Param			name		formData	string	false	"Display name"
//	@Success		200	{object}	object{flag=string,res=object}
//	@Failure		409	{object}	object{flag=string,msg=string}	"Email already signed up"
//	@Router			/v1/users [post]
func (h *UserHandler) Signup(c *gin.Context) {
	var req struct {
		Email    string `form:"email" json:"email"`
		Password string `form:"password" json:"password"`
		Name     string `form:"name" json:"name"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "malformed signup payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondFail(c, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.userService.Signup(req.Email, req.Password, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, userResource(user))
}

// Login godoc
//
//	@Summary		Log in
//	@Description	Verify email/password credentials and start a session
//	@Tags			Users
//	@Accept			json
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			email		formData	string	true	"Email address"
//	@Param			password	formData	string	true	"Password"
//	@Success		200	{object}	object{flag=string,res=object}
//	@Failure		401	{object}	object{flag=string,msg=string}
//	@Router			/v1/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `form:"email" json:"email"`
		Password string `form:"password" json:"password"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "malformed login payload")
		return
	}

	user, err := h.userService.Authenticate(req.Email, req.Password)
	if err != nil {
		respondFail(c, http.StatusUnauthorized, "invalid email or password")
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserID, user.ID)
	if err := session.Save(); err != nil {
		respondFail(c, http.StatusInternalServerError, "failed to save session")
		return
	}
	respondSuccess(c, userResource(user))
}

// Logout godoc
//
//	@Summary		Log out
//	@Tags			Users
//	@Produce		json
//	@Success		200	{object}	object{flag=string,res=object}
//	@Router			/v1/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		respondFail(c, http.StatusInternalServerError, "failed to save session")
		return
	}
	respondSuccess(c, gin.H{})
}
