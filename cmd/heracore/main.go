package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/heracore/internal/audit"
	"github.com/heraerp/heracore/internal/authorization"
	"github.com/heraerp/heracore/internal/config"
	"github.com/heraerp/heracore/internal/entity"
	"github.com/heraerp/heracore/internal/identity"
	"github.com/heraerp/heracore/internal/logger"
	"github.com/heraerp/heracore/internal/migration"
	"github.com/heraerp/heracore/internal/observability"
	"github.com/heraerp/heracore/internal/organization"
	"github.com/heraerp/heracore/internal/ratelimit"
	"github.com/heraerp/heracore/internal/relationship"
	"github.com/heraerp/heracore/internal/seed"
	"github.com/heraerp/heracore/internal/server"
	"github.com/heraerp/heracore/internal/smartcode"
	"github.com/heraerp/heracore/internal/transaction"
	"github.com/heraerp/heracore/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
		fx.Invoke(seedDefaultOrg),

		smartcode.Module,
		authorization.Module,
		audit.Module,
		organization.Module,
		entity.Module,
		relationship.Module,
		transaction.Module,
		identity.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func seedDefaultOrg(cfg config.Config, dbConn *gorm.DB) error {
	return seed.EnsureDefaultOrg(dbConn, cfg.DefaultOrgName)
}
