package ticket

import (
	"github.com/smallbiznis/tixora/internal/ticket/repository"
	"github.com/smallbiznis/tixora/internal/ticket/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ticket.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
