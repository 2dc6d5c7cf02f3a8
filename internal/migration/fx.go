package migration

import (
	dbpkg "github.com/smallbiznis/tixora/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg dbpkg.Config, log *zap.Logger) error {
		if cfg.Type != "" && cfg.Type != "postgres" {
			log.Warn("skipping embedded migrations for non-postgres database", zap.String("type", cfg.Type))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
