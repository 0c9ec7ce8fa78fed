package handlers

import (
	"net/http"

	"github.com/Avamagic/mgserver-web-api/internal/middleware"
	"github.com/Avamagic/mgserver-web-api/internal/models"
	"github.com/Avamagic/mgserver-web-api/internal/services"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	deviceService *services.DeviceService
	userService   *services.UserService
}

func NewDeviceHandler(ds *services.DeviceService, us *services.UserService) *DeviceHandler {
	return &DeviceHandler{deviceService: ds, userService: us}
}

func deviceResource(device *models.Device) gin.H {
	return gin.H{
		"id":          device.ID,
		"vendor":      device.Vendor,
		"model":       device.Model,
		"name":        device.Name,
		"description": device.Description,
		"created_at":  device.CreatedAt,
		"updated_at":  device.UpdatedAt,
	}
}

type deviceRequest struct {
	Vendor      string `form:"vendor" json:"vendor"`
	Model       string `form:"model" json:"model"`
	Name        string `form:"name" json:"name"`
	Description string `form:"description" json:"description"`
}

// List godoc
//
//	@Summary		List devices
//	@Description	Return the devices owned by the acting resource owner
//	@Tags			Devices
//	@Produce		json
//	@Security		OAuth
//	@Success		200	{object}	object{flag=string,res=[]object}
//	@Router			/v1/devices [get]
func (h *DeviceHandler) List(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "access token doesn't associate with any user")
		return
	}

	devices, err := h.deviceService.ListDevicesForUser(user)
	if err != nil {
		respondError(c, err)
		return
	}

	res := make([]gin.H, 0, len(devices))
	for i := range devices {
		res = append(res, deviceResource(&devices[i]))
	}
	respondSuccess(c, res)
}

// Create godoc
//
//	@Summary		Register a device
//	@Description	Bind a device with vendor/model metadata to the presented access token
//	@Tags			Devices
//	@Accept			json
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Security		OAuth
//	@Param			vendor	formData	string	false	"Device vendor"
//	@Param			model	formData	string	false	"Device model"
//	@Success		200	{object}	object{flag=string,res=object}
//	@Router			/v1/devices [post]
func (h *DeviceHandler) Create(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "access token doesn't associate with any user")
		return
	}

	creds := middleware.GetOAuthCredentials(c)
	token, err := h.userService.GetAccessTokenByValue(creds.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	var req deviceRequest
	if err := c.ShouldBind(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "malformed device payload")
		return
	}

	device, err := h.deviceService.CreateDevice(user, token, req.Vendor, req.Model)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Name != "" || req.Description != "" {
		if err := h.deviceService.UpdateDevice(device, req.Name, req.Description, "", ""); err != nil {
			respondError(c, err)
			return
		}
	}
	respondSuccess(c, deviceResource(device))
}

// Show godoc
//
//	@Summary		Fetch a device
//	@Description	Return one device by id; the device must belong to the acting owner unless the token carries the admins realm
//	@Tags			Devices
//	@Produce		json
//	@Security		OAuth
//	@Param			id	path	string	true	"Device id"
//	@Success		200	{object}	object{flag=string,res=object}
//	@Failure		404	{object}	object{flag=string,msg=string}
//	@Router			/v1/devices/{id} [get]
func (h *DeviceHandler) Show(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "access token doesn't associate with any user")
		return
	}

	device, err := h.lookupForPrincipal(c, user, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, deviceResource(device))
}

// Update godoc
//
//	@Summary		Update a device
//	@Description	Apply metadata changes to a device owned by the acting resource owner
//	@Tags			Devices
//	@Accept			json
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Security		OAuth
//	@Param			id	path	string	true	"Device id"
//	@Success		200	{object}	object{flag=string,res=object}
//	@Failure		404	{object}	object{flag=string,msg=string}
//	@Router			/v1/devices/{id} [put]
func (h *DeviceHandler) Update(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "access token doesn't associate with any user")
		return
	}

	device, err := h.deviceService.GetDeviceForUser(user, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req deviceRequest
	if err := c.ShouldBind(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "malformed device payload")
		return
	}

	if err := h.deviceService.UpdateDevice(device, req.Name, req.Description, req.Vendor, req.Model); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, deviceResource(device))
}

// ShowCurrent godoc
//
//	@Summary		Device behind the presented token
//	@Description	Return the device bound to the presented access token, binding it now if this is the token's first use
//	@Tags			Devices
//	@Produce		json
//	@Security		OAuth
//	@Success		200	{object}	object{flag=string,res=object}
//	@Failure		404	{object}	object{flag=string,msg=string}	"Token has no associated user"
//	@Router			/v1/device [get]
func (h *DeviceHandler) ShowCurrent(c *gin.Context) {
	device, err := h.resolveCurrent(c)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, deviceResource(device))
}

// UpdateCurrent godoc
//
//	@Summary		Update the device behind the presented token
//	@Tags			Devices
//	@Accept			json
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Security		OAuth
//	@Success		200	{object}	object{flag=string,res=object}
//	@Router			/v1/device [put]
func (h *DeviceHandler) UpdateCurrent(c *gin.Context) {
	device, err := h.resolveCurrent(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req deviceRequest
	if err := c.ShouldBind(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "malformed device payload")
		return
	}

	if err := h.deviceService.UpdateDevice(device, req.Name, req.Description, req.Vendor, req.Model); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, deviceResource(device))
}

func (h *DeviceHandler) resolveCurrent(c *gin.Context) (*models.Device, error) {
	creds := middleware.GetOAuthCredentials(c)
	token, err := h.userService.GetAccessTokenByValue(creds.Token)
	if err != nil {
		return nil, err
	}
	return h.deviceService.ResolveDevice(token)
}

// lookupForPrincipal enforces the ownership rule: plain owners may only read
// their own devices, admins-realm tokens may read any.
func (h *DeviceHandler) lookupForPrincipal(
	c *gin.Context,
	user *models.User,
	id string,
) (*models.Device, error) {
	creds := middleware.GetOAuthCredentials(c)
	token, err := h.userService.GetAccessTokenByValue(creds.Token)
	if err != nil {
		return nil, err
	}
	if token.Realm == models.RealmAdmins {
		return h.deviceService.GetDevice(id)
	}
	return h.deviceService.GetDeviceForUser(user, id)
}
