package invitecode

import (
	"github.com/smallbiznis/tixora/internal/invitecode/repository"
	"github.com/smallbiznis/tixora/internal/invitecode/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitecode.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
