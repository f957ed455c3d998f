package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dubstudio/internal/api/errors"
	"dubstudio/internal/app/auth"
)

// UserIDKey is the gin context key holding the authenticated user id
const UserIDKey = "user_id"

// Authenticate resolves the bearer token into a principal on the request
// context. Requests without a token pass through anonymously; operations that
// need a caller reject them. A token that fails verification is rejected here.
func Authenticate(authenticator auth.Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		principal, err := authenticator.Verify(c.Request.Context(), token)
		if err != nil {
			logger.Debug("rejected bearer token",
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.Error(err))
			HandleError(c, errors.NewUnauthorizedError("Invalid or expired token"))
			return
		}

		c.Set(UserIDKey, principal.UID)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the access_token
// query parameter for EventSource clients that cannot set headers
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("access_token")
}

// CallbackToken guards worker callbacks with a shared secret. An empty secret
// disables the check.
func CallbackToken(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-Callback-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			HandleError(c, errors.NewUnauthorizedError("Invalid callback token"))
			return
		}
		c.Next()
	}
}
