package identity

import (
	"github.com/heraerp/heracore/internal/identity/repository"
	"github.com/heraerp/heracore/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
