package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tixora/internal/audit"
	"github.com/smallbiznis/tixora/internal/authorization"
	"github.com/smallbiznis/tixora/internal/clock"
	"github.com/smallbiznis/tixora/internal/config"
	"github.com/smallbiznis/tixora/internal/discount"
	"github.com/smallbiznis/tixora/internal/event"
	"github.com/smallbiznis/tixora/internal/invitecode"
	"github.com/smallbiznis/tixora/internal/observability"
	"github.com/smallbiznis/tixora/internal/pricing"
	"github.com/smallbiznis/tixora/internal/ratelimit"
	"github.com/smallbiznis/tixora/internal/server"
	"github.com/smallbiznis/tixora/internal/ticket"
	"github.com/smallbiznis/tixora/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Request-path dependencies; migrations and the sweep run elsewhere
		ratelimit.Module,
		authorization.Module,
		audit.Module,
		event.Module,
		discount.Module,
		pricing.Module,
		invitecode.Module,
		ticket.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
