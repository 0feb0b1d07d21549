package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ats-platform/ats-backend/internal/cache"
	"github.com/ats-platform/ats-backend/internal/security"
	"github.com/ats-platform/ats-backend/internal/utils"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
		Code:    utils.CodeUnauthorized,
		Message: msg,
	})
}

// JWTAuth validates the bearer access token and rejects tokens revoked
// by logout. It stores the numeric user id, username and raw claims on
// the context for downstream handlers.
func JWTAuth(tokens *security.TokenProvider, denylist cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if raw == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := tokens.Parse(raw, security.TokenTypeAccess)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		if denied, err := denylist.IsDenied(c.Request.Context(), claims.ID); err == nil && denied {
			abortUnauthorized(c, "token has been revoked")
			return
		}

		userID, err := claims.UserID()
		if err != nil || userID == 0 {
			abortUnauthorized(c, "invalid token subject")
			return
		}

		c.Set("user_id", userID)
		c.Set("username", claims.Username)
		c.Set("claims", claims)
		c.Next()
	}
}
