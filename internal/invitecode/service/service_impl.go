package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/tixora/internal/audit/domain"
	"github.com/smallbiznis/tixora/internal/audit/masking"
	"github.com/smallbiznis/tixora/internal/authorization"
	"github.com/smallbiznis/tixora/internal/clock"
	"github.com/smallbiznis/tixora/internal/config"
	eventdomain "github.com/smallbiznis/tixora/internal/event/domain"
	invitedomain "github.com/smallbiznis/tixora/internal/invitecode/domain"
	"github.com/smallbiznis/tixora/internal/observability/metrics"
	"github.com/smallbiznis/tixora/internal/ratelimit"
	"github.com/smallbiznis/tixora/internal/usercontext"
	"github.com/smallbiznis/tixora/pkg/db"
	"github.com/smallbiznis/tixora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const issueAttempts = 3

// errRedeemRaced marks a conditional update that matched no row inside the
// redemption transaction.
var errRedeemRaced = errors.New("invite_code_redeem_raced")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      invitedomain.Repository
	EventRepo eventdomain.Repository
	Authz     authorization.Service
	Policy    *config.InvitePolicyHolder
	Limiter   *ratelimit.RedemptionLimiter `optional:"true"`
	Metrics   *metrics.Metrics             `optional:"true"`
	Audit     auditdomain.Service          `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      invitedomain.Repository
	eventRepo eventdomain.Repository
	authz     authorization.Service
	policy    *config.InvitePolicyHolder
	limiter   *ratelimit.RedemptionLimiter
	metrics   *metrics.Metrics
	auditSvc  auditdomain.Service
}

func New(p Params) invitedomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invitecode.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		eventRepo: p.EventRepo,
		authz:     p.Authz,
		policy:    p.Policy,
		limiter:   p.Limiter,
		metrics:   p.Metrics,
		auditSvc:  p.Audit,
	}
}

func (s *Service) Issue(ctx context.Context, req invitedomain.IssueRequest) (*invitedomain.InviteCode, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, invitedomain.ErrInvalidActor
	}

	policy := s.policy.Get()
	role := NormalizeRole(req.RoleName)
	if role == "" {
		return nil, invitedomain.ErrInvalidRole
	}
	if !policy.AllowsRole(role) {
		return nil, invitedomain.ErrRoleNotAllowed
	}

	ttl, err := resolveTTL(req.ExpiresIn, policy)
	if err != nil {
		return nil, err
	}

	var eventID *snowflake.ID
	if raw := strings.TrimSpace(req.EventID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return nil, invitedomain.ErrInvalidEvent
		}
		eventID = &id
	}

	if err := s.authorizeIssue(ctx, userID, eventID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entity := &invitedomain.InviteCode{
		RoleName:  role,
		EventID:   eventID,
		Status:    invitedomain.Pending,
		CreatedBy: userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		UpdatedAt: now,
	}

	for attempt := 1; ; attempt++ {
		entity.ID = s.genID.Generate()
		entity.Code = newCode()
		err = s.repo.Insert(ctx, s.db, entity)
		if err == nil {
			break
		}
		if !db.IsDuplicateKeyErr(err) || attempt >= issueAttempts {
			return nil, err
		}
	}

	s.metrics.RecordInviteIssued(ctx, role, entity.Scope())
	s.audit(ctx, auditdomain.ActionInviteCodeIssue, entity, map[string]any{
		"expires_at": entity.ExpiresAt,
	})
	s.log.Info("invite code issued",
		zap.String("invite_code_id", entity.ID.String()),
		zap.String("role", role),
		zap.String("domain", authorization.DomainFor(eventID)),
		zap.Time("expires_at", entity.ExpiresAt),
	)
	return entity, nil
}

func (s *Service) Validate(ctx context.Context, code string) (*invitedomain.InviteCode, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, invitedomain.ErrInvalidActor
	}
	if err := s.allowAttempt(ctx, userID, "invite_codes.validate"); err != nil {
		return nil, err
	}

	code = NormalizeCode(code)
	if code == "" {
		return nil, invitedomain.ErrInvalidCode
	}
	entity, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if err := invitedomain.RedeemError(entity, s.clock.Now()); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Service) IsValid(code *invitedomain.InviteCode) bool {
	return invitedomain.IsValid(code, s.clock.Now())
}

func (s *Service) Redeem(ctx context.Context, req invitedomain.RedeemRequest) (*invitedomain.InviteCode, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, invitedomain.ErrInvalidActor
	}
	if err := s.allowAttempt(ctx, userID, "invite_codes.redeem"); err != nil {
		return nil, err
	}

	code := NormalizeCode(req.Code)
	if code == "" {
		return nil, invitedomain.ErrInvalidCode
	}

	entity, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := invitedomain.RedeemError(entity, now); err != nil {
		return nil, err
	}

	domain := authorization.DomainFor(entity.EventID)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.repo.MarkRedeemed(ctx, tx, entity.ID, entity.Version, userID, now)
		if err != nil {
			return err
		}
		if !updated {
			return errRedeemRaced
		}
		return s.authz.GrantRole(ctx, tx, userID, entity.RoleName, domain)
	})
	if errors.Is(err, errRedeemRaced) {
		return nil, s.raceError(ctx, entity.ID, now)
	}
	if err != nil {
		s.log.Error("invite code redemption failed",
			zap.String("invite_code_id", entity.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	// The grant is committed; a failed reload only delays it until the next load.
	if err := s.authz.Reload(ctx); err != nil {
		s.log.Warn("policy reload after redemption failed", zap.Error(err))
	}

	redeemedBy := userID
	entity.Status = invitedomain.Redeemed
	entity.RedeemedBy = &redeemedBy
	entity.RedeemedAt = &now
	entity.Version++
	entity.UpdatedAt = now

	s.metrics.RecordInviteRedeemed(ctx, entity.RoleName, entity.Scope())
	s.audit(ctx, auditdomain.ActionInviteCodeRedeem, entity, map[string]any{
		"domain": domain,
	})
	s.log.Info("invite code redeemed",
		zap.String("invite_code_id", entity.ID.String()),
		zap.String("user_id", userID),
		zap.String("role", entity.RoleName),
		zap.String("domain", domain),
	)
	return entity, nil
}

func (s *Service) Revoke(ctx context.Context, id string, req invitedomain.RevokeRequest) (*invitedomain.InviteCode, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, invitedomain.ErrInvalidActor
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, invitedomain.ErrReasonRequired
	}

	entity, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := invitedomain.RevokeError(entity, now); err != nil {
		return nil, err
	}

	updated, err := s.repo.MarkRevoked(ctx, s.db, entity.ID, entity.Version, reason, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		current, err := s.repo.FindByID(ctx, s.db, entity.ID)
		if err != nil {
			return nil, err
		}
		if err := invitedomain.RevokeError(current, now); err != nil {
			return nil, err
		}
		return nil, invitedomain.ErrConflict
	}

	entity.Status = invitedomain.Revoked
	entity.RevokedAt = &now
	entity.RevokedReason = &reason
	entity.Version++
	entity.UpdatedAt = now

	s.audit(ctx, auditdomain.ActionInviteCodeRevoke, entity, map[string]any{
		"reason": reason,
	})
	s.log.Info("invite code revoked",
		zap.String("invite_code_id", entity.ID.String()),
		zap.String("revoked_by", userID),
	)
	return entity, nil
}

func (s *Service) Get(ctx context.Context, id string) (*invitedomain.InviteCode, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, invitedomain.ErrInvalidActor
	}
	return s.load(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, req invitedomain.ListRequest) (*invitedomain.ListResponse, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, invitedomain.ErrInvalidActor
	}

	filter := invitedomain.ListFilter{Limit: req.Limit() + 1}
	if raw := strings.TrimSpace(req.EventID); raw != "" {
		eventID, err := parseID(raw)
		if err != nil {
			return nil, invitedomain.ErrInvalidEvent
		}
		filter.EventID = &eventID
	} else {
		filter.Global = true
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := invitedomain.ParseStatus(strings.ToUpper(raw))
		if !ok {
			return nil, invitedomain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, err
		}
		afterID, err := parseID(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		filter.AfterID = afterID
	}

	if err := s.authorizeIssue(ctx, userID, filter.EventID); err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	page, pageInfo, err := pagination.BuildCursorPage(items, req.Limit(), func(c *invitedomain.InviteCode) pagination.Cursor {
		return pagination.Cursor{ID: c.ID.String()}
	})
	if err != nil {
		return nil, err
	}
	return &invitedomain.ListResponse{InviteCodes: page, PageInfo: pageInfo}, nil
}

func (s *Service) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.repo.ExpirePending(ctx, s.db, now.UTC())
	if err != nil {
		return 0, err
	}
	s.metrics.RecordInvitesExpired(ctx, count)
	if count > 0 {
		s.log.Info("expired pending invite codes", zap.Int64("count", count))
		if s.auditSvc != nil {
			_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionInviteCodesExpire, "invite_code", nil, map[string]any{
				"count": count,
				"as_of": now.UTC(),
			})
		}
	}
	return count, nil
}

// audit records a lifecycle transition of entity. The code itself is masked.
func (s *Service) audit(ctx context.Context, action string, entity *invitedomain.InviteCode, metadata map[string]any) {
	if s.auditSvc == nil || entity == nil {
		return
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["code"] = masking.MaskCode(entity.Code)
	metadata["role"] = entity.RoleName
	metadata["scope"] = entity.Scope()
	targetID := entity.ID.String()
	_ = s.auditSvc.AuditLog(ctx, action, "invite_code", &targetID, metadata)
}

// raceError reloads a code whose conditional update lost and reports why.
func (s *Service) raceError(ctx context.Context, id snowflake.ID, now time.Time) error {
	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if err := invitedomain.RedeemError(current, now); err != nil {
		return err
	}
	// still PENDING with a newer version: someone else won the race
	return invitedomain.ErrAlreadyUsed
}

// load fetches a code visible to userID: its creator, the event organizer or a
// global admin.
func (s *Service) load(ctx context.Context, userID, id string) (*invitedomain.InviteCode, error) {
	codeID, err := parseID(id)
	if err != nil {
		return nil, invitedomain.ErrInvalidID
	}
	entity, err := s.repo.FindByID(ctx, s.db, codeID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, invitedomain.ErrNotFound
	}
	if entity.CreatedBy == userID {
		return entity, nil
	}
	if err := s.authorizeIssue(ctx, userID, entity.EventID); err != nil {
		return nil, err
	}
	return entity, nil
}

// authorizeIssue admits the event organizer for event-scoped codes and global
// admins for any code.
func (s *Service) authorizeIssue(ctx context.Context, userID string, eventID *snowflake.ID) error {
	admin, err := s.authz.HasRole(ctx, userID, authorization.RoleAdmin, authorization.GlobalDomain)
	if err != nil {
		return err
	}
	if admin {
		return nil
	}
	if eventID == nil {
		return invitedomain.ErrUnauthorized
	}

	event, err := s.eventRepo.FindEvent(ctx, s.db, *eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return invitedomain.ErrEventNotFound
	}
	if event.OrganizerID != userID {
		return invitedomain.ErrUnauthorized
	}
	return nil
}

// allowAttempt applies the per-user redemption limiter. Limiter failures fail open.
func (s *Service) allowAttempt(ctx context.Context, userID, endpoint string) error {
	if !s.limiter.Enabled() {
		return nil
	}
	res, err := s.limiter.AllowRedeem(ctx, userID)
	if err != nil {
		s.log.Warn("redemption limiter unavailable", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		s.metrics.RecordRateLimitDenied(ctx, endpoint, "user_bucket")
		s.log.Info("redemption attempt throttled",
			zap.String("user_id", userID),
			zap.Duration("retry_after", res.RetryAfter),
		)
		return invitedomain.ErrRateLimited
	}
	return nil
}

func resolveTTL(raw string, policy config.InvitePolicy) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return policy.DefaultTTL, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil || ttl <= 0 {
		return 0, invitedomain.ErrInvalidTTL
	}
	if policy.MaxTTL > 0 && ttl > policy.MaxTTL {
		return policy.MaxTTL, nil
	}
	return ttl, nil
}

// NormalizeRole turns "event staff" or "event-staff" into EVENT_STAFF.
func NormalizeRole(value string) string {
	s := slug.Make(strings.ReplaceAll(strings.TrimSpace(value), "_", " "))
	return strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
}

// NormalizeCode accepts codes typed with dashes, spaces or lowercase letters.
func NormalizeCode(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	return strings.NewReplacer("-", "", " ", "").Replace(value)
}

func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, invitedomain.ErrInvalidID
	}
	return id, nil
}
