package event

import (
	"github.com/smallbiznis/tixora/internal/event/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("event.repository",
	fx.Provide(repository.Provide),
)
