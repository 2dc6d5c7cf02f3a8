package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/tixora/internal/observability/context"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-Id"

const maxRequestIDLen = 128

type MiddlewareConfig struct {
	// Debug attaches a stack to 5xx request logs.
	Debug bool
	// Classify maps the handler's last error to a (type, code) pair.
	Classify func(err error) (string, string)
}

// GinMiddleware assigns the request id, echoes it back and writes one log line per
// request once the handler chain, identity included, has run.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFrom(c.Request.Header)
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("response_bytes", max(c.Writer.Size(), 0)),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("resource_id", id))
		}
		if last := c.Errors.Last(); last != nil && cfg.Classify != nil {
			errType, errCode := cfg.Classify(last.Err)
			fields = append(fields, zap.String("error_type", errType), zap.String("error_code", errCode))
		}

		log := FromContext(c.Request.Context())
		switch {
		case route == "/health" || route == "/metrics":
			log.Debug("request", fields...)
		case status >= http.StatusInternalServerError:
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// requestIDFrom trusts an upstream id unless it is missing or oversized.
func requestIDFrom(h http.Header) string {
	id := strings.TrimSpace(h.Get(HeaderRequestID))
	if id == "" || len(id) > maxRequestIDLen {
		return obscontext.NewRequestID()
	}
	return id
}
