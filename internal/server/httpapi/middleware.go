package httpapi

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/logging"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	principalKey = "principal"
	requestIDKey = "request_id"
)

// TokenParser turns a bearer token into a principal.
type TokenParser func(token string) (*models.Principal, error)

// requestLogger logs one line per request, with the level picked by status.
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.Error(ctx, "HTTP request", args...)
		case status >= 400:
			logger.Warn(ctx, "HTTP request", args...)
		default:
			logger.Info(ctx, "HTTP request", args...)
		}
	}
}

// authenticate resolves the Authorization header when present. A header
// that does not parse is rejected outright; a missing one is anonymous.
func authenticate(parse TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader(common.AuthorizationHeaderName))
		if header == "" {
			c.Next()
			return
		}
		token := header
		if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			token = strings.TrimSpace(rest)
		}

		p, err := parse(token)
		if err != nil {
			replyError(c, common.ErrorUnauthorized)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// requireAuth rejects anonymous requests, and permanent credentials unless
// permitPermanent is set.
func requireAuth(permitPermanent bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principal(c)
		if p == nil || (p.Permanent && !permitPermanent) {
			replyError(c, common.ErrorUnauthorized)
			return
		}
		c.Next()
	}
}

func principal(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}
