package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", model.NotFound(model.ResourceRequest, 4), http.StatusNotFound, "request 4 not found"},
		{"wrapped not found", fmt.Errorf("load: %w", model.NotFound(model.ResourceDepartment, 2)), http.StatusNotFound, "department 2 not found"},
		{"username taken", model.UserAlreadyExists(model.ResourceUsername, "bob"), http.StatusConflict, `user with username "bob" already exists`},
		{"email taken", model.AlreadyExistsError{Resource: model.ResourceEmail, Value: "b@c.io"}, http.StatusConflict, `email "b@c.io" already exists`},
		{"department exists", model.AlreadyExists(model.ResourceDepartment, "Roads"), http.StatusBadRequest, `department "Roads" already exists`},
		{"invalid", model.InvalidOperation(model.OpAssign, "bad id"), http.StatusBadRequest, "invalid assign: bad id"},
		{"forbidden", model.ForbiddenError{}, http.StatusForbidden, "forbidden"},
		{"unauthorized", model.UnauthorizedError{Msg: "invalid token"}, http.StatusUnauthorized, "invalid token"},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, msg)
		})
	}
}
