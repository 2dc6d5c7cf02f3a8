package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/tixora/internal/audit/domain"
	"github.com/smallbiznis/tixora/internal/clock"
	discountdomain "github.com/smallbiznis/tixora/internal/discount/domain"
	eventdomain "github.com/smallbiznis/tixora/internal/event/domain"
	"github.com/smallbiznis/tixora/internal/ratelimit"
	"github.com/smallbiznis/tixora/internal/usercontext"
	"github.com/smallbiznis/tixora/pkg/db"
	"github.com/smallbiznis/tixora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      discountdomain.Repository
	EventRepo eventdomain.Repository
	Lock      *ratelimit.ActivationLock `optional:"true"`
	Audit     auditdomain.Service       `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      discountdomain.Repository
	eventRepo eventdomain.Repository
	lock      *ratelimit.ActivationLock
	auditSvc  auditdomain.Service
}

func New(p Params) discountdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("discount.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		eventRepo: p.EventRepo,
		lock:      p.Lock,
		auditSvc:  p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req discountdomain.CreateRequest) (*discountdomain.Discount, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, discountdomain.ErrInvalidActor
	}

	ticketTypeID, err := parseID(req.TicketTypeID)
	if err != nil {
		return nil, discountdomain.ErrInvalidTicketType
	}
	discountType := normalizeType(req.DiscountType)
	if err := discountdomain.ValidateTerms(discountType, req.Value, req.ValidFrom, req.ValidTo); err != nil {
		return nil, err
	}

	if err := s.authorizeTicketType(ctx, userID, ticketTypeID); err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	entity := &discountdomain.Discount{
		ID:           s.genID.Generate(),
		TicketTypeID: ticketTypeID,
		DiscountType: discountType,
		Value:        req.Value,
		ValidFrom:    req.ValidFrom.UTC(),
		ValidTo:      req.ValidTo.UTC(),
		Active:       active,
		Description:  strings.TrimSpace(req.Description),
		Metadata:     datatypes.JSONMap{},
		CreatedBy:    userID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Metadata != nil {
		entity.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if active {
		err = s.withActivationLock(ctx, ticketTypeID, func(ctx context.Context) error {
			inserted, err := s.repo.InsertIfNoneActive(ctx, s.db, entity)
			if err != nil {
				return mapWriteError(err)
			}
			if !inserted {
				return activeDiscountConflict()
			}
			return nil
		})
	} else {
		err = s.repo.Insert(ctx, s.db, entity)
	}
	if err != nil {
		return nil, err
	}

	s.audit(ctx, auditdomain.ActionDiscountCreate, entity)
	s.log.Info("discount created",
		zap.String("discount_id", entity.ID.String()),
		zap.String("ticket_type_id", ticketTypeID.String()),
		zap.String("discount_type", string(discountType)),
	)
	return entity, nil
}

func (s *Service) Update(ctx context.Context, id string, req discountdomain.UpdateRequest) (*discountdomain.Discount, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, discountdomain.ErrInvalidActor
	}

	entity, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	wasActive := entity.Active

	if req.DiscountType != nil {
		entity.DiscountType = normalizeType(*req.DiscountType)
	}
	if req.Value != nil {
		entity.Value = *req.Value
	}
	if req.ValidFrom != nil {
		entity.ValidFrom = req.ValidFrom.UTC()
	}
	if req.ValidTo != nil {
		entity.ValidTo = req.ValidTo.UTC()
	}
	if req.Active != nil {
		entity.Active = *req.Active
	}
	if req.Description != nil {
		entity.Description = strings.TrimSpace(*req.Description)
	}
	if req.Metadata != nil {
		entity.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if entity.Metadata == nil {
		entity.Metadata = datatypes.JSONMap{}
	}

	if err := discountdomain.ValidateTerms(entity.DiscountType, entity.Value, entity.ValidFrom, entity.ValidTo); err != nil {
		return nil, err
	}
	entity.UpdatedAt = s.clock.Now()

	write := func(ctx context.Context) error {
		var (
			updated bool
			err     error
		)
		if entity.Active && !wasActive {
			updated, err = s.repo.UpdateIfNoneActive(ctx, s.db, entity)
		} else {
			updated, err = s.repo.Update(ctx, s.db, entity)
		}
		if err != nil {
			return mapWriteError(err)
		}
		if updated {
			return nil
		}
		if entity.Active && !wasActive {
			// the guard or a concurrent delete; tell them apart
			current, err := s.repo.FindByID(ctx, s.db, entity.ID)
			if err != nil {
				return err
			}
			if current != nil {
				return activeDiscountConflict()
			}
		}
		return discountdomain.ErrNotFound
	}

	if entity.Active && !wasActive {
		err = s.withActivationLock(ctx, entity.TicketTypeID, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		return nil, err
	}

	s.audit(ctx, auditdomain.ActionDiscountUpdate, entity)
	s.log.Info("discount updated",
		zap.String("discount_id", entity.ID.String()),
		zap.Bool("active", entity.Active),
	)
	return entity, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return discountdomain.ErrInvalidActor
	}

	entity, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, s.db, entity.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return discountdomain.ErrNotFound
	}

	s.audit(ctx, auditdomain.ActionDiscountDelete, entity)
	s.log.Info("discount deleted", zap.String("discount_id", entity.ID.String()))
	return nil
}

func (s *Service) audit(ctx context.Context, action string, entity *discountdomain.Discount) {
	if s.auditSvc == nil {
		return
	}
	targetID := entity.ID.String()
	_ = s.auditSvc.AuditLog(ctx, action, "discount", &targetID, map[string]any{
		"ticket_type_id": entity.TicketTypeID.String(),
		"discount_type":  string(entity.DiscountType),
		"value":          entity.Value.StringFixed(2),
		"active":         entity.Active,
	})
}

func (s *Service) Get(ctx context.Context, id string) (*discountdomain.Discount, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, discountdomain.ErrInvalidActor
	}
	return s.load(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, req discountdomain.ListRequest) (*discountdomain.ListResponse, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, discountdomain.ErrInvalidActor
	}

	ticketTypeID, err := parseID(req.TicketTypeID)
	if err != nil {
		return nil, discountdomain.ErrInvalidTicketType
	}
	if err := s.authorizeTicketType(ctx, userID, ticketTypeID); err != nil {
		return nil, err
	}

	filter := discountdomain.ListFilter{
		TicketTypeID: ticketTypeID,
		Active:       req.Active,
		Limit:        req.Limit() + 1,
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

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	page, pageInfo, err := pagination.BuildCursorPage(items, req.Limit(), func(d *discountdomain.Discount) pagination.Cursor {
		return pagination.Cursor{ID: d.ID.String()}
	})
	if err != nil {
		return nil, err
	}
	return &discountdomain.ListResponse{Discounts: page, PageInfo: pageInfo}, nil
}

func (s *Service) FindActive(ctx context.Context, ticketTypeID snowflake.ID) (*discountdomain.Discount, error) {
	if ticketTypeID == 0 {
		return nil, discountdomain.ErrInvalidTicketType
	}
	return s.repo.FindActive(ctx, s.db, ticketTypeID)
}

func (s *Service) CalculateFinalPrice(basePrice decimal.Decimal, discount *discountdomain.Discount) (discountdomain.PriceBreakdown, error) {
	return discountdomain.ComputeFinalPrice(basePrice, discount)
}

// load fetches a discount and checks that userID organizes the event selling it.
func (s *Service) load(ctx context.Context, userID, id string) (*discountdomain.Discount, error) {
	discountID, err := parseID(id)
	if err != nil {
		return nil, discountdomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, discountID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, discountdomain.ErrNotFound
	}

	if err := s.authorizeTicketType(ctx, userID, entity.TicketTypeID); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Service) authorizeTicketType(ctx context.Context, userID string, ticketTypeID snowflake.ID) error {
	ticketType, err := s.eventRepo.FindTicketType(ctx, s.db, ticketTypeID)
	if err != nil {
		return err
	}
	if ticketType == nil {
		return discountdomain.ErrTicketTypeNotFound
	}

	owner, err := s.eventRepo.IsOrganizer(ctx, s.db, userID, ticketType.EventID)
	if err != nil {
		return err
	}
	if !owner {
		s.log.Warn("discount access denied",
			zap.String("user_id", userID),
			zap.String("ticket_type_id", ticketTypeID.String()),
		)
		return discountdomain.ErrUnauthorized
	}
	return nil
}

func (s *Service) withActivationLock(ctx context.Context, ticketTypeID snowflake.ID, fn func(ctx context.Context) error) error {
	err := s.lock.WithTicketType(ctx, ticketTypeID, fn)
	switch {
	case errors.Is(err, ratelimit.ErrLockNotAcquired):
		return activeDiscountConflict()
	case errors.Is(err, ratelimit.ErrLockUnavailable):
		// the guarded insert and the unique index still hold without the lock
		s.log.Warn("activation lock unavailable, relying on database guard",
			zap.String("ticket_type_id", ticketTypeID.String()),
			zap.Error(err),
		)
		return fn(ctx)
	}
	return err
}

func activeDiscountConflict() error {
	return fmt.Errorf("%w: %w", discountdomain.ErrConflict, discountdomain.ErrActiveDiscountExists)
}

// mapWriteError turns a hit on the active-discount unique index into the conflict.
func mapWriteError(err error) error {
	if db.IsDuplicateKeyErr(err) {
		return activeDiscountConflict()
	}
	return err
}

func normalizeType(value discountdomain.DiscountType) discountdomain.DiscountType {
	return discountdomain.DiscountType(strings.ToUpper(strings.TrimSpace(string(value))))
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, discountdomain.ErrInvalidID
	}
	return id, nil
}
