package handlers

import (
	"errors"
	"net/http"

	"github.com/Avamagic/mgserver-web-api/internal/services"

	"github.com/gin-gonic/gin"
)

// Every success body carries {"flag":"success","res":...}; every failure
// carries {"flag":"fail","msg":"..."} with a status from the error taxonomy.

func respondSuccess(c *gin.Context, res interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"flag": "success",
		"res":  res,
	})
}

func respondFail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"flag": "fail",
		"msg":  msg,
	})
}

// respondError maps service errors onto transport status codes. Unknown
// errors surface as 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidClient),
		errors.Is(err, services.ErrInvalidCallback),
		errors.Is(err, services.ErrInvalidRealm),
		errors.Is(err, services.ErrInvalidVerifier),
		errors.Is(err, services.ErrInvalidOtp),
		errors.Is(err, services.ErrClientNameRequired),
		errors.Is(err, services.ErrCallbackRequired):
		respondFail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnknownClient),
		errors.Is(err, services.ErrUnknownRequestToken),
		errors.Is(err, services.ErrOrphanedAccessToken),
		errors.Is(err, services.ErrDeviceNotFound),
		errors.Is(err, services.ErrDeviceNotOwnedByUser),
		errors.Is(err, services.ErrUserNotFound):
		respondFail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrUnknownAccessToken):
		respondFail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrDuplicateClient),
		errors.Is(err, services.ErrEmailTaken):
		respondFail(c, http.StatusConflict, err.Error())
	default:
		respondFail(c, http.StatusInternalServerError, "internal error")
	}
}
