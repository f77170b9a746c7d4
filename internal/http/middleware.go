package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"social-network-api/internal/auth"
	"social-network-api/internal/domain"
	"social-network-api/internal/repository"
)

const (
	tracerName = "social-network-api/internal/http"
	callerKey  = "caller"

	msgNotAuthenticated = "Authentication credentials were not provided."
	msgInvalidToken     = "Given token not valid"
)

// authenticate resolves an optional bearer access token into the calling
// user. Requests without an Authorization header pass through anonymous; a
// header that does not carry a valid token is rejected.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abortUnauthorized(c, msgInvalidToken)
			return
		}

		claims, err := h.tokens.Parse(token, auth.AccessToken)
		if err != nil {
			abortUnauthorized(c, msgInvalidToken)
			return
		}

		user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				abortUnauthorized(c, msgInvalidToken)
				return
			}
			h.internalError(c, err)
			c.Abort()
			return
		}

		c.Set(callerKey, user)
		c.Next()
	}
}

func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := callerFrom(c); !ok {
			abortUnauthorized(c, msgNotAuthenticated)
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": time.Since(start).String(),
		})
		if caller, ok := callerFrom(c); ok {
			entry = entry.WithField("user_id", caller.ID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}

func tracing() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
