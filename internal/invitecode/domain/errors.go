package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidCode    = errors.New("invalid_code")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrRoleNotAllowed = errors.New("role_not_allowed")
	ErrInvalidTTL     = errors.New("invalid_ttl")
	ErrInvalidEvent   = errors.New("invalid_event")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrReasonRequired = errors.New("revoke_reason_required")
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrEventNotFound  = errors.New("event_not_found")
	ErrNotFound       = errors.New("invite_code_not_found")
	ErrExpired        = errors.New("invite_code_expired")
	ErrRateLimited    = errors.New("rate_limited")

	ErrConflict       = errors.New("conflict")
	ErrAlreadyUsed    = fmt.Errorf("%w: invite_code_already_used", ErrConflict)
	ErrRevoked        = fmt.Errorf("%w: invite_code_revoked", ErrConflict)
	ErrAlreadyExpired = fmt.Errorf("%w: invite_code_already_expired", ErrConflict)
)

func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidCode),
		errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrRoleNotAllowed),
		errors.Is(err, ErrInvalidTTL),
		errors.Is(err, ErrInvalidEvent),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrReasonRequired):
		return true
	default:
		return false
	}
}
