package handler

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/auth"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/metrics"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	claimsKey       = "claims"
)

// RequestID makes sure every request carries an id, reusing the caller's when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes one structured line per request.
func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		log.Log(c.Request.Context(), level, "http request",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
		)
	}
}

// Metrics records request counts and latency per matched route.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, c.Request.Method, c.Writer.Status(), start)
	}
}

// Authenticate requires a valid bearer token and stores its claims on the context.
func Authenticate(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			RespondError(c, model.UnauthorizedError{Msg: "missing bearer token"})
			return
		}

		claims, err := tokens.Parse(token)
		if err != nil {
			RespondError(c, model.UnauthorizedError{Msg: "invalid token"})
			return
		}
		if _, err := claims.UserID(); err != nil {
			RespondError(c, model.UnauthorizedError{Msg: "invalid token subject"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole lets the request through only for the given roles.
// It must run after Authenticate.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentClaims(c)
		if !ok {
			RespondError(c, model.UnauthorizedError{})
			return
		}
		if !slices.Contains(roles, claims.Role) {
			RespondError(c, model.ForbiddenError{Msg: "role " + string(claims.Role) + " is not allowed"})
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// currentUserID is only valid behind Authenticate.
func currentUserID(c *gin.Context) int64 {
	claims, ok := currentClaims(c)
	if !ok {
		return 0
	}
	id, _ := claims.UserID()
	return id
}
