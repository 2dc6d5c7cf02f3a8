package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const casbinRuleTable = "casbin_rule"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) GrantRole(ctx context.Context, tx *gorm.DB, userID, role, domain string) error {
	userID, role, err := normalizeGrant(userID, role, domain)
	if err != nil {
		return err
	}
	if tx == nil {
		tx = s.db
	}

	var count int64
	if err := tx.WithContext(ctx).Table(casbinRuleTable).
		Where("ptype = ? AND v0 = ? AND v1 = ? AND v2 = ?", "g", userID, role, domain).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rule := gormadapter.CasbinRule{Ptype: "g", V0: userID, V1: role, V2: domain}
	return tx.WithContext(ctx).Table(casbinRuleTable).Create(&rule).Error
}

func (s *ServiceImpl) Reload(ctx context.Context) error {
	if err := s.enforcer.LoadPolicy(); err != nil {
		s.log.Error("failed to reload casbin policy", zap.Error(err))
		return err
	}
	return nil
}

func (s *ServiceImpl) EnsureRole(ctx context.Context, userID, role, domain string) error {
	userID, role, err := normalizeGrant(userID, role, domain)
	if err != nil {
		return err
	}
	has, err := s.enforcer.HasGroupingPolicy(userID, role, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(userID, role, domain)
	return err
}

func (s *ServiceImpl) HasRole(ctx context.Context, userID, role, domain string) (bool, error) {
	userID, role, err := normalizeGrant(userID, role, domain)
	if err != nil {
		return false, err
	}
	return s.enforcer.HasGroupingPolicy(userID, role, domain)
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID, domain, object, action string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidActor
	}
	if !validDomain(domain) {
		return ErrInvalidDomain
	}

	if domain != GlobalDomain {
		if admin, err := s.enforcer.HasGroupingPolicy(userID, RoleAdmin, GlobalDomain); err != nil {
			return err
		} else if admin {
			return nil
		}
	}

	allowed, err := s.enforcer.Enforce(userID, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

func normalizeGrant(userID, role, domain string) (string, string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", "", ErrInvalidActor
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		return "", "", ErrInvalidRole
	}
	if !validDomain(domain) {
		return "", "", ErrInvalidDomain
	}
	return userID, role, nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	// roles handed out through event-scoped invite codes
	policies := [][]string{
		{RoleOrganizer, ObjectTicket, ActionTicketView},
		{RoleEventStaff, ObjectTicket, ActionTicketView},
		{RoleCheckinStaff, ObjectTicket, ActionTicketView},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
