package middleware

import (
	"alpha-qms/auth"
	"alpha-qms/internal/errors"
	"alpha-qms/internal/user"
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

type UserProvider interface {
	GetUserByID(ctx context.Context, id uint64) (*user.User, error)
}

type Auth struct {
	UserService UserProvider
}

// AuthMiddleware resolves the acting user from the bearer token and stashes
// the explicit actor identity for downstream handlers. Handlers always pass
// the actor onwards, no ambient state.
func (m *Auth) AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		parsedToken, err := auth.VerifyJWT(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		userID, tokenVersion, err := auth.GetDataFromToken(parsedToken)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		actor, err := m.UserService.GetUserByID(ctx.Request.Context(), userID)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid user!", err))
			ctx.Abort()
			return
		}

		if !actor.IsActive {
			ctx.Error(errors.Unauthorized("User is not active!", nil))
			ctx.Abort()
			return
		}

		// Check token version
		if actor.TokenVersion != tokenVersion {
			ctx.Error(errors.Unauthorized("Invalid token version!", nil))
			ctx.Abort()
			return
		}

		ctx.Set("user_id", actor.ID)
		ctx.Set("user_role", actor.Role)
		ctx.Next()
	}
}

// ActorFrom reads the authenticated actor identity set by AuthMiddleware
func ActorFrom(c *gin.Context) (uint64, user.Role) {
	id, _ := c.Get("user_id")
	role, _ := c.Get("user_role")
	return id.(uint64), role.(user.Role)
}
