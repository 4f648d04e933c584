package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/heraerp/heracore/internal/audit/domain"
	entitydomain "github.com/heraerp/heracore/internal/entity/domain"
	orgdomain "github.com/heraerp/heracore/internal/organization/domain"
	relationshipdomain "github.com/heraerp/heracore/internal/relationship/domain"
	transactiondomain "github.com/heraerp/heracore/internal/transaction/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded SQL migrations. Postgres only; other
// dialects go through AutoMigrate.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the engine schema from the gorm models, for dialects
// without SQL migrations (sqlite, mysql).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&orgdomain.Organization{},
		&entitydomain.Entity{},
		&entitydomain.DynamicField{},
		&relationshipdomain.Relationship{},
		&transactiondomain.Transaction{},
		&transactiondomain.TransactionLine{},
		&auditdomain.AuditLog{},
	)
}
