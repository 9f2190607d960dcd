package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/ilinks-dev/ilinks/internal/store"
	"github.com/ilinks-dev/ilinks/internal/types"
	"github.com/ilinks-dev/ilinks/internal/utils"
)

var conflictMessages = map[string]string{
	"username": "Username already exists",
	"email":    "Email is already in use",
}

// respondError maps store errors onto the stable error codes. resource names
// the thing a NotFound refers to, e.g. "Category".
func respondError(ctx *gin.Context, err error, resource string) {
	var (
		validationErr *store.ValidationError
		conflictErr   *store.ConflictError
		storageErr    *store.StorageError
	)

	switch {
	case errors.As(err, &validationErr):
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{
			Code:  types.CodeValidation,
			Error: validationErr.Field + " " + validationErr.Message,
			Field: validationErr.Field,
		})
	case errors.Is(err, store.ErrNotFound):
		respondNotFound(ctx, resource)
	case errors.As(err, &conflictErr):
		message, ok := conflictMessages[conflictErr.Field]
		if !ok {
			message = conflictErr.Error()
		}

		ctx.JSON(http.StatusConflict, types.ErrorResponse{
			Code:  types.CodeConflict,
			Error: message,
			Field: conflictErr.Field,
		})
	default:
		entry := utils.Logger(ctx).WithError(err)

		if errors.As(err, &storageErr) {
			entry = entry.WithField("stack", fmt.Sprintf("%+v", storageErr.Err))
		}

		entry.Errorf("%s request failed", strings.ToLower(resource))
		respondInternal(ctx)
	}
}

func respondNotFound(ctx *gin.Context, resource string) {
	ctx.JSON(http.StatusNotFound, types.ErrorResponse{
		Code:  types.CodeNotFound,
		Error: resource + " not found",
	})
}

func respondInternal(ctx *gin.Context) {
	ctx.JSON(http.StatusInternalServerError, types.ErrorResponse{
		Code:  types.CodeStorage,
		Error: "Internal server error",
	})
}

// respondBindError reports the first failing field of a request body.
func respondBindError(ctx *gin.Context, err error) {
	var (
		validationErrs validator.ValidationErrors
		tooLarge       *http.MaxBytesError
	)

	if errors.As(err, &tooLarge) {
		ctx.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
			Code:  types.CodeValidation,
			Error: "Request body too large",
		})
		return
	}

	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		field := strings.ToLower(fe.Field())

		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{
			Code:  types.CodeValidation,
			Error: field + " " + describeTag(fe),
			Field: field,
		})
		return
	}

	utils.Logger(ctx).WithError(err).Debug("failed to bind request")

	ctx.JSON(http.StatusBadRequest, types.ErrorResponse{
		Code:  types.CodeValidation,
		Error: "Invalid request",
	})
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email"
	default:
		return "is invalid"
	}
}

func respondUnauthorized(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusUnauthorized, types.ErrorResponse{
		Code:  types.CodeUnauthorized,
		Error: message,
	})
}

// currentUserID aborts with 401 when the auth middleware did not run.
func currentUserID(ctx *gin.Context) (uint, bool) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		respondUnauthorized(ctx, "User not authenticated")
		return 0, false
	}

	return userID, true
}

// pathID parses a row id. A malformed id answers exactly like a missing row.
func pathID(ctx *gin.Context, name, resource string) (uint, bool) {
	id, err := utils.GetIDParam(ctx, name)

	if err != nil {
		respondNotFound(ctx, resource)
		return 0, false
	}

	return id, true
}
