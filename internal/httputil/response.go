// Package httputil provides shared HTTP response helpers.
package httputil

import "github.com/gin-gonic/gin"

// requestIDKey mirrors middleware.RequestIDKey; importing it would cycle.
const requestIDKey = "request_id"

// ErrorBody is the JSON shape of every gateway error response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError writes an ErrorBody and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: c.GetString(requestIDKey),
	})
}
