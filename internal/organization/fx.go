package organization

import (
	"github.com/heraerp/heracore/internal/organization/repository"
	"github.com/heraerp/heracore/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
