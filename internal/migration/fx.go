package migration

import (
	"strings"

	"github.com/heraerp/heracore/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

func Run(cfg config.Config, db *gorm.DB, log *zap.Logger) error {
	if strings.EqualFold(cfg.DBType, "postgres") {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Info("database migrations applied")
		return nil
	}

	if err := AutoMigrate(db); err != nil {
		return err
	}
	log.Info("database schema synchronized", zap.String("dialect", cfg.DBType))
	return nil
}
