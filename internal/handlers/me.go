package handlers

import (
	"net/http"

	"github.com/Avamagic/mgserver-web-api/internal/middleware"
	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/services"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	userService *services.UserService
}

func NewMeHandler(us *services.UserService) *MeHandler {
	return &MeHandler{userService: us}
}

// userResource is the wire shape of a user. Password digests never leave
// the process.
func userResource(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"client_ids": user.ClientIDs,
		"device_ids": user.DeviceIDs,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
}

// Show godoc
//
//	@Summary		Current user profile
//	@Description	Return the resource owner behind the presented access token
//	@Tags			Me
//	@Produce		json
//	@Security		OAuth
//	@Success		200	{object}	object{flag=string,res=object}
//	@Failure		401	{object}	object{flag=string,msg=string}
//	@Router			/v1/me [get]
func (h *MeHandler) Show(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "access token doesn't associate with any user")
		return
	}
	respondSuccess(c, userResource(user))
}

// Update godoc
//
//	@Summary		Update current user profile
//	@Description	Apply name, email, or password changes to the acting resource owner
//	@Tags			Me
//	@Accept			json
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Security		OAuth
//	@Param			name		formData	string	false	"Display name"
//	@Param			email		formData	string	false	"Email address"
//	@Param			password	formData	string	false	"New password"
//	@Success		200	{object}	object{flag=string,res=object}
//	@Failure		409	{object}	object{flag=string,msg=string}	"Email already signed up"
//	@Router			/v1/me [put]
func (h *MeHandler) Update(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "access token doesn't associate with any user")
		return
	}

	var req struct {
		Name     string `form:"name" json:"name"`
		Email    string `form:"email" json:"email"`
		Password string `form:"password" json:"password"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "malformed profile update")
		return
	}

	if err := h.userService.UpdateProfile(user, req.Name, req.Email, req.Password); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, userResource(user))
}
