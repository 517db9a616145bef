package handler

import (
	"errors"
	"net/http"

	"supplylink/internal/service"
	"supplylink/pkg/apperror"
	"supplylink/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError writes err with the status its kind maps to. Unclassified errors
// are reported as a generic 500 so infrastructure details stay out of responses.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	msg := err.Error()

	var appErr *apperror.Error
	if status == http.StatusInternalServerError {
		if errors.As(err, &appErr) && appErr.Message != "" {
			msg = appErr.Message
		} else {
			msg = "internal server error"
		}
		_ = c.Error(err)
	}
	c.JSON(status, response.Error(status, msg))
}

func badPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// caller reads the identity RequireRole stored on the context.
func caller(c *gin.Context) (service.Caller, bool) {
	cl, err := service.NewCaller(c.GetString("userID"), c.GetString("userRole"))
	if err != nil {
		respondError(c, err)
		return service.Caller{}, false
	}
	return cl, true
}
