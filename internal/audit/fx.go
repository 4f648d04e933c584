package audit

import (
	"github.com/heraerp/heracore/internal/audit/repository"
	"github.com/heraerp/heracore/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
