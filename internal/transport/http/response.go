package httptransport

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	platformerrors "image-resizer-go/internal/platform/errors"
)

// APIResponse is the JSON envelope of every non-binary response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	switch platformerrors.KindOf(err) {
	case platformerrors.KindAdmission, platformerrors.KindTransport:
		return http.StatusBadRequest
	case platformerrors.KindBatch:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// RespondFailure writes err using StatusFor and its user facing message.
func RespondFailure(c *gin.Context, err error, data interface{}) {
	status := StatusFor(err)
	_ = c.Error(err)
	RespondError(c, status, platformerrors.Message(err), data)
}
