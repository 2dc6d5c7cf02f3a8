package authorization

import (
	"context"

	"github.com/smallbiznis/tixora/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
	fx.Invoke(bootstrapAdmins),
)

// bootstrapAdmins grants global ADMIN to the users listed in BOOTSTRAP_ADMIN_USER_IDS.
func bootstrapAdmins(cfg config.Config, svc Service, log *zap.Logger) error {
	for _, userID := range cfg.BootstrapAdminUserIDs {
		if err := svc.EnsureRole(context.Background(), userID, RoleAdmin, GlobalDomain); err != nil {
			return err
		}
		log.Info("bootstrap admin ensured", zap.String("user_id", userID))
	}
	return nil
}
