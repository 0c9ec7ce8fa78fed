package handlers

import (
	"net/http"

	"github.com/Avamagic/mgserver-web-api/internal/middleware"
	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/services"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	clientService *services.ClientService
}

func NewClientHandler(cs *services.ClientService) *ClientHandler {
	return &ClientHandler{clientService: cs}
}

func clientResource(client *models.Client) gin.H {
	return gin.H{
		"id":            client.ID,
		"name":          client.Name,
		"description":   client.Description,
		"client_key":    client.ClientKey,
		"callback_uris": client.CallbackURIs,
		"created_at":    client.CreatedAt,
	}
}

// List godoc
//
//	@Summary		List registered clients
//	@Description	Return the clients owned by the session user
//	@Tags			Clients
//	@Produce		json
//	@Success		200	{object}	object{flag=string,res=[]object}
//	@Failure		401	{object}	object{flag=string,msg=string}
//	@Router			/v1/clients [get]
func (h *ClientHandler) List(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "login required")
		return
	}

	clients, err := h.clientService.ListForOwner(user)
	if err != nil {
		respondError(c, err)
		return
	}

	res := make([]gin.H, 0, len(clients))
	for i := range clients {
		res = append(res, clientResource(&clients[i]))
	}
	respondSuccess(c, res)
}

// Create godoc
//
//	@Summary		Register a client
//	@Description	Create a client owned by the session user; the plaintext secret appears in this response only
//	@Tags			Clients
//	@Accept			json
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			name		formData	string	true	"Client name, unique per owner"
//	@Param			description	formData	string	false	"Description"
//	@Param			callback	formData	string	true	"Callback URI"
//	@Success		200	{object}	object{flag=string,res=object}
//	@Failure		409	{object}	object{flag=string,msg=string}	"Name already registered for this owner"
//	@Router			/v1/clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "login required")
		return
	}

	var req struct {
		Name        string `form:"name" json:"name"`
		Description string `form:"description" json:"description"`
		Callback    string `form:"callback" json:"callback"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "malformed client payload")
		return
	}

	resp, err := h.clientService.Register(user, req.Name, req.Description, req.Callback)
	if err != nil {
		respondError(c, err)
		return
	}

	res := clientResource(resp.Client)
	res["client_secret"] = resp.ClientSecretPlain
	respondSuccess(c, res)
}
