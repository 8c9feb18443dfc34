package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fluentpath/detprep-backend/internal/response"
	"github.com/fluentpath/detprep-backend/internal/service"
)

// CheckSingleDeviceSession validates the JWT's JTI against the active login
// session in Redis. A mismatch means a newer login or an explicit logout
// invalidated this token.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := authService.ValidateSession(c.Request.Context(), claims.UserID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Next()
	}
}
