package middleware

import (
	"net/http"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/gin-gonic/gin"
)

// MaxBodySize caps request bodies at limit bytes.
// A declared Content-Length over the cap is refused before the handler runs;
// otherwise reads past the cap fail with *http.MaxBytesError.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				models.NewAPIError(models.ErrRequestTooLarge, "Request body is too large.", map[string]interface{}{
					"limit": limit,
				}))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
