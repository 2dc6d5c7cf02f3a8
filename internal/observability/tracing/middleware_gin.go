package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tixora/internal/usercontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// resourceIDKeys names the span attribute for the :id param of each resource route.
var resourceIDKeys = map[string]attribute.Key{
	"/api/discounts/":    "discount_id",
	"/api/invite-codes/": "invite_code_id",
	"/api/tickets/":      "ticket_id",
	"/api/ticket-types/": "ticket_type_id",
}

// GinMiddleware opens a server span per request, named after the matched route,
// and tags it with the resource id and the caller resolved further down the chain.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("tixora/http")
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		}
		if key, ok := resourceIDKey(route); ok {
			attrs = append(attrs, key.String(c.Param("id")))
		}
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(SafeAttributes(attrs...)...),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if userID, ok := usercontext.UserIDFromContext(c.Request.Context()); ok {
			span.SetAttributes(attribute.String("enduser.id", userID))
		}
		if status < http.StatusInternalServerError {
			return
		}
		if last := c.Errors.Last(); last != nil {
			span.RecordError(SafeError(last.Err))
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func resourceIDKey(route string) (attribute.Key, bool) {
	for prefix, key := range resourceIDKeys {
		if strings.HasPrefix(route, prefix+":id") {
			return key, true
		}
	}
	return "", false
}
