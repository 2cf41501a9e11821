package middleware

import (
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
	requestIDLength     = 16 // uuid bytes; 32 hex chars
)

var (
	requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)
	fallbackCounter  atomic.Uint64
)

// RequestIDConfig controls request-id reuse.
type RequestIDConfig struct {
	// TrustUpstream reuses a well-formed X-Request-ID sent by a proxy in
	// front of the API instead of generating a new one.
	TrustUpstream bool
}

// RequestID returns a gin middleware that generates a fresh request ID for
// every request.
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig returns a gin middleware that tags each request with an
// ID. The ID is stored in the gin.Context under "request_id", echoed in the
// X-Request-ID response header, and attached to the request context with
// logger.WithContextAttrs so every log line of the request carries it.
func RequestIDWithConfig(cfg RequestIDConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id string
		if cfg.TrustUpstream {
			if up := c.GetHeader(requestIDHeader); requestIDPattern.MatchString(up) {
				id = up
			}
		}
		if id == "" {
			id = newRequestID()
		}

		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(
			logger.WithContextAttrs(c.Request.Context(), slog.String(requestIDContextKey, id)),
		)

		c.Next()
	}
}

// GetRequestID returns the request ID stored by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// newRequestID returns a random (version 4) UUID as 32 hex chars without
// dashes. If the system source fails it falls back to the clock and a
// process-wide counter.
func newRequestID() string {
	u, err := uuid.NewRandom()
	if err != nil {
		binary.BigEndian.PutUint64(u[:8], uint64(time.Now().UnixNano()))
		binary.BigEndian.PutUint64(u[8:], fallbackCounter.Add(1))
	}
	return hex.EncodeToString(u[:])
}
