package handlers

import (
	"net/http"

	"github.com/Avamagic/mgserver-web-api/internal/services"

	"github.com/gin-gonic/gin"
)

type SeedHandler struct {
	seedService *services.SeedService
}

func NewSeedHandler(ss *services.SeedService) *SeedHandler {
	return &SeedHandler{seedService: ss}
}

// Create godoc
//
//	@Summary		Seed an anonymous device account
//	@Description	Create a fresh anonymous user bound to a registered client; gated by a one-time code derived from the shared provisioning secret
//	@Tags			Seeds
//	@Accept			json
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			otp				formData	string	true	"Current one-time code"
//	@Param			consumer_key	formData	string	true	"Client key the device was programmed with"
//	@Success		200				{object}	object{flag=string,user_id=string}
//	@Failure		400				{object}	object{flag=string,msg=string}	"Invalid one-time code"
//	@Failure		404				{object}	object{flag=string,msg=string}	"Unknown client"
//	@Router			/v1/seeds [post]
func (h *SeedHandler) Create(c *gin.Context) {
	var req struct {
		Otp         string `form:"otp" json:"otp"`
		ConsumerKey string `form:"consumer_key" json:"consumer_key"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "otp and consumer_key are required")
		return
	}
	if req.Otp == "" || req.ConsumerKey == "" {
		respondFail(c, http.StatusBadRequest, "otp and consumer_key are required")
		return
	}

	user, err := h.seedService.Seed(req.Otp, req.ConsumerKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"flag":    "success",
		"user_id": user.ID,
	})
}
