package response

import (
	"errors"
	"net/http"

	"campaign-escrow/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// AckResponse is what the gateway receives for every accepted delivery,
// including duplicates, ignored event types and lookup misses.
type AckResponse struct {
	Received bool `json:"received"`
}

// ErrorResponse is the error envelope returned to the gateway.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
	RequestID string `json:"request_id,omitempty"`
}

// Received sends 200 {"received": true}.
func Received(c *gin.Context) {
	c.JSON(http.StatusOK, AckResponse{Received: true})
}

// Error sends an error response. It checks if err is an *apperror.AppError
// and maps it accordingly, otherwise returns 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, ErrorResponse{
			Error:     appErr.Message,
			ErrorCode: appErr.Code,
			RequestID: requestID(c),
		})
		return
	}

	// Unknown error -> 500
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:     "Internal server error",
		ErrorCode: "SYS_000",
		RequestID: requestID(c),
	})
}

// requestID retrieves the request ID set by the RequestID middleware, if any.
func requestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
