package relationship

import (
	"github.com/heraerp/heracore/internal/relationship/repository"
	"github.com/heraerp/heracore/internal/relationship/service"
	"go.uber.org/fx"
)

var Module = fx.Module("relationship.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
