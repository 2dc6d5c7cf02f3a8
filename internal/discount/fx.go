package discount

import (
	"github.com/smallbiznis/tixora/internal/discount/repository"
	"github.com/smallbiznis/tixora/internal/discount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("discount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
