package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"chat-realtime/internal/auth"
	"chat-realtime/internal/models"
	"chat-realtime/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "user_id"
	ContextUser   = "user"
)

type AuthMiddleware struct {
	gate *auth.Gate
}

func NewAuthMiddleware(gate *auth.Gate) *AuthMiddleware {
	return &AuthMiddleware{gate: gate}
}

// RequireAuth resolves the bearer token (header or `token` query parameter)
// to a user and aborts with 401 otherwise.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := am.gate.AuthenticateRequest(c.Request)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				slog.Error("Failed to authenticate request", "path", c.FullPath(), "error", err)
			}
			c.Set("error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: response.Message(response.CodeUnauthenticated),
			})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextUser); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
