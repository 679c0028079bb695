package middlewares

import (
	"mime"
	"net/http"

	"github.com/geocoder89/usergate/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

// RequireJSON rejects writes whose body is not declared as JSON.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			// mime handles "application/json; charset=utf-8" and case
			mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
			if err != nil || mediaType != "application/json" {
				handlers.RespondError(c, http.StatusUnsupportedMediaType, "unsupported_media_type",
					"Content-Type must be application/json", nil)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
