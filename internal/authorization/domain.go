package authorization

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const GlobalDomain = "global"

const (
	RoleAdmin        = "ADMIN"
	RoleOrganizer    = "ORGANIZER"
	RoleEventStaff   = "EVENT_STAFF"
	RoleCheckinStaff = "CHECKIN_STAFF"
)

const ObjectTicket = "ticket"

const ActionTicketView = "ticket.view"

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidDomain = errors.New("invalid_domain")
)

// EventDomain scopes a role to a single event.
func EventDomain(eventID snowflake.ID) string {
	return "event:" + eventID.String()
}

// DomainFor returns the event domain when eventID is set, otherwise the global domain.
func DomainFor(eventID *snowflake.ID) string {
	if eventID == nil || *eventID == 0 {
		return GlobalDomain
	}
	return EventDomain(*eventID)
}

func validDomain(domain string) bool {
	if domain == GlobalDomain {
		return true
	}
	raw, ok := strings.CutPrefix(domain, "event:")
	if !ok {
		return false
	}
	id, err := snowflake.ParseString(raw)
	return err == nil && id > 0
}

type Service interface {
	// GrantRole records (user, role, domain) using tx so the grant commits or rolls
	// back with the caller's work. Call Reload after the transaction commits.
	GrantRole(ctx context.Context, tx *gorm.DB, userID, role, domain string) error
	Reload(ctx context.Context) error
	EnsureRole(ctx context.Context, userID, role, domain string) error
	HasRole(ctx context.Context, userID, role, domain string) (bool, error)
	// Authorize checks (object, action) against the roles userID holds in domain.
	// Global admins pass in every event domain.
	Authorize(ctx context.Context, userID, domain, object, action string) error
}
