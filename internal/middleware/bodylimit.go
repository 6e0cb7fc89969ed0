package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodySize caps request bodies at maxBytes. A declared Content-Length over
// the cap is answered with 413 before the handler runs; chunked bodies are
// cut off while the handler reads them.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	tooLarge := fmt.Sprintf("request body exceeds %d bytes", maxBytes)

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			respondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", tooLarge)
			return
		}

		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
