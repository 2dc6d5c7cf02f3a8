package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tixora/internal/audit/domain"
	"github.com/smallbiznis/tixora/internal/authorization"
	discountdomain "github.com/smallbiznis/tixora/internal/discount/domain"
	eventdomain "github.com/smallbiznis/tixora/internal/event/domain"
	invitedomain "github.com/smallbiznis/tixora/internal/invitecode/domain"
	"github.com/smallbiznis/tixora/internal/pricing"
	ticketdomain "github.com/smallbiznis/tixora/internal/ticket/domain"
	"github.com/smallbiznis/tixora/pkg/db/pagination"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isUnauthenticatedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Code:    err.Error(),
			Message: "not found",
		}
	case errors.Is(err, invitedomain.ErrExpired):
		return http.StatusGone, errorPayload{
			Type:    "expired",
			Code:    err.Error(),
			Message: "invite code expired",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    conflictCode(err),
			Message: "conflict",
		}
	case errors.Is(err, invitedomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger a low-cardinality type and code.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return payload.Type, "internal_error"
	}
	if payload.Code != "" {
		return payload.Type, payload.Code
	}
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, pricing.ErrInvalidTicketType),
		errors.Is(err, ticketdomain.ErrInvalidID),
		errors.Is(err, ticketdomain.ErrInvalidTicketType):
		return true
	case discountdomain.IsValidationError(err),
		invitedomain.IsValidationError(err):
		return true
	default:
		return false
	}
}

func isUnauthenticatedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, discountdomain.ErrInvalidActor),
		errors.Is(err, invitedomain.ErrInvalidActor),
		errors.Is(err, ticketdomain.ErrInvalidActor),
		errors.Is(err, auditdomain.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidActor):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, discountdomain.ErrUnauthorized),
		errors.Is(err, invitedomain.ErrUnauthorized),
		errors.Is(err, ticketdomain.ErrUnauthorized),
		errors.Is(err, auditdomain.ErrUnauthorized),
		errors.Is(err, authorization.ErrForbidden):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, discountdomain.ErrNotFound),
		errors.Is(err, discountdomain.ErrTicketTypeNotFound),
		errors.Is(err, invitedomain.ErrNotFound),
		errors.Is(err, invitedomain.ErrEventNotFound),
		errors.Is(err, ticketdomain.ErrNotFound),
		errors.Is(err, eventdomain.ErrEventNotFound),
		errors.Is(err, eventdomain.ErrTicketTypeNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, discountdomain.ErrConflict),
		errors.Is(err, invitedomain.ErrConflict),
		errors.Is(err, ticketdomain.ErrEventNotPublished),
		errors.Is(err, ticketdomain.ErrSalesClosed),
		errors.Is(err, ticketdomain.ErrSoldOut):
		return true
	default:
		return false
	}
}

// conflictCode strips the "conflict: " prefix the domain wrappers add.
func conflictCode(err error) string {
	code := err.Error()
	for strings.HasPrefix(code, "conflict: ") {
		code = strings.TrimPrefix(code, "conflict: ")
	}
	return code
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
