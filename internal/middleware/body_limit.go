package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liherfashion/inventory-admin/internal/errors"
)

// MultipartOverhead is the room left for boundaries, part headers and the
// small form fields that travel with an uploaded file.
const MultipartOverhead = 64 << 10

// LimitBody caps the request body at max bytes. Declared lengths over the cap
// are refused up front; otherwise reads past it fail with *http.MaxBytesError.
func LimitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			GetLoggerFromContext(c).Warn("Request body too large", map[string]interface{}{
				"path":           c.Request.URL.Path,
				"content_length": c.Request.ContentLength,
				"limit":          max,
			})
			errors.RespondWithError(c, http.StatusRequestEntityTooLarge, errors.UploadFileTooLarge, "Request body is too large")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}
