package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ilinks-dev/ilinks/internal/auth"
	"github.com/ilinks-dev/ilinks/internal/models"
	"github.com/ilinks-dev/ilinks/internal/types"
)

type AuthenticatedUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// UserFinder resolves the user named by a token.
type UserFinder interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}

// AuthMiddleware accepts "Authorization: Bearer <token>". Browsers cannot set
// headers on websocket upgrades, so GET requests may pass ?token= instead.
func AuthMiddleware(users UserFinder) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, message := bearerToken(ctx)

		if tokenString == "" {
			abortUnauthorized(ctx, message)
			return
		}

		token, err := auth.VerifyJWT(tokenString)

		if err != nil {
			abortUnauthorized(ctx, "Invalid or expired token")
			return
		}

		userID, err := auth.UserIDFromToken(token)

		if err != nil {
			abortUnauthorized(ctx, err.Error())
			return
		}

		user, err := users.FindUserByID(ctx.Request.Context(), userID)

		if err != nil {
			abortUnauthorized(ctx, "User not found")
			return
		}

		ctx.Set(types.ContextUserKey, AuthenticatedUser{
			ID:       user.ID,
			Username: user.Username,
		})
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) (string, string) {
	authHeader := ctx.GetHeader("Authorization")

	if authHeader == "" {
		if ctx.Request.Method == http.MethodGet {
			if token := ctx.Query("token"); token != "" {
				return token, ""
			}
		}

		return "", "Authorization token is required"
	}

	parts := strings.SplitN(authHeader, " ", 2)

	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Authorization header format must be Bearer {token}"
	}

	return parts[1], ""
}

func abortUnauthorized(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{
		Code:  types.CodeUnauthorized,
		Error: message,
	})
}
