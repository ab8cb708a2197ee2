package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

// RespondError writes err as a JSON error body with the status its kind maps to.
// Unknown errors become a generic 500.
func RespondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func statusFor(err error) (int, string) {
	var (
		notFound  model.NotFoundError
		exists    model.AlreadyExistsError
		invalid   model.InvalidOperationError
		forbidden model.ForbiddenError
		unauth    model.UnauthorizedError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &exists):
		if isIdentityCollision(exists) {
			return http.StatusConflict, exists.Error()
		}
		return http.StatusBadRequest, exists.Error()
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.As(err, &forbidden):
		return http.StatusForbidden, forbidden.Error()
	case errors.As(err, &unauth):
		return http.StatusUnauthorized, unauth.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// isIdentityCollision reports a clash on a username or email.
func isIdentityCollision(e model.AlreadyExistsError) bool {
	for _, name := range []string{e.Resource, e.Field} {
		if name == model.ResourceUsername || name == model.ResourceEmail {
			return true
		}
	}
	return false
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
