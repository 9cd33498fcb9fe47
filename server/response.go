package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/dspcore/errors"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err as an ErrorResponse. Errors that are not
// AppErrors become INTERNAL.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.ToAppError(err)
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondCreated sends a 201 response wrapping data.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, DataResponse{Data: data})
}

// RespondNoContent sends a 204 with no body.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
