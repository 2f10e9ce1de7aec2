package migrations

import (
	"fmt"
	"log/slog"

	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/utils/logging"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID:      "1_legacy_catalog",
			Migrate: Migration_1_legacy_catalog,
			// Rollback is not supported, the legacy schema is not restored.
		},
	}
}

// Run brings the database schema up to date. A clean database is initialized directly
// from the models, a database created by the previous backend is upgraded in place.
func Run(db *gorm.DB) error {
	migration := gormigrate.New(db, gormigrate.DefaultOptions, migrations())

	migration.InitSchema(func(txn *gorm.DB) error {
		if txn.Migrator().HasTable(&schema.DataProduct{}) {
			slog.Info("existing catalog tables detected, upgrading legacy schema", "code", logging.SYSTEM_MIGRATE)
			return Migration_1_legacy_catalog(txn)
		}

		slog.Info("clean database detected, running full schema initialization", "code", logging.SYSTEM_MIGRATE)
		return txn.AutoMigrate(schema.Models()...)
	})

	if err := migration.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("migration completed successfully", "code", logging.SYSTEM_MIGRATE)
	return nil
}
