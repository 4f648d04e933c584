package entity

import (
	"github.com/heraerp/heracore/internal/entity/repository"
	"github.com/heraerp/heracore/internal/entity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entity.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
