package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ilinks-dev/ilinks/internal/middleware"
	"github.com/ilinks-dev/ilinks/internal/types"
	"github.com/sirupsen/logrus"
)

func GetCurrentUser(ctx *gin.Context) (middleware.AuthenticatedUser, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return middleware.AuthenticatedUser{}, fmt.Errorf("User not authenticated")
	}

	authenticatedUser, ok := user.(middleware.AuthenticatedUser)

	if !ok {
		return middleware.AuthenticatedUser{}, fmt.Errorf("Invalid user type in context")
	}

	return authenticatedUser, nil
}

func GetCurrentUserID(ctx *gin.Context) (uint, error) {
	user, err := GetCurrentUser(ctx)

	if err != nil {
		return 0, err
	}

	return user.ID, nil
}

// Logger returns the request-scoped entry set by middleware.RequestLogger,
// or the standard logger when none is present.
func Logger(ctx *gin.Context) *logrus.Entry {
	if entry, ok := ctx.Get(types.ContextLoggerKey); ok {
		if e, ok := entry.(*logrus.Entry); ok {
			return e
		}
	}

	return logrus.NewEntry(logrus.StandardLogger())
}
