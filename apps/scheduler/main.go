package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tixora/internal/audit"
	"github.com/smallbiznis/tixora/internal/authorization"
	"github.com/smallbiznis/tixora/internal/clock"
	"github.com/smallbiznis/tixora/internal/config"
	"github.com/smallbiznis/tixora/internal/event"
	"github.com/smallbiznis/tixora/internal/invitecode"
	"github.com/smallbiznis/tixora/internal/migration"
	"github.com/smallbiznis/tixora/internal/observability"
	"github.com/smallbiznis/tixora/internal/ratelimit"
	"github.com/smallbiznis/tixora/internal/scheduler"
	"github.com/smallbiznis/tixora/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		// Domain services required by the sweep
		ratelimit.Module,
		authorization.Module,
		audit.Module,
		event.Module,
		invitecode.Module,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
