package migrations

import (
	"log/slog"

	"github.com/haimhm/datacatalog/catalog/documents"
	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/utils/logging"

	"gorm.io/gorm"
)

/*
 * The previous backend enforced (column_name, value) uniqueness with a lookup before
 * each insert, so existing tables can hold duplicates. These are removed, keeping the
 * oldest row, before AutoMigrate adds the unique index.
 */
func dedupeColumnOptions(txn *gorm.DB) error {
	type ColumnOption struct{}

	if !txn.Migrator().HasTable(&ColumnOption{}) {
		return nil
	}

	result := txn.Exec(
		"DELETE FROM column_options WHERE id NOT IN (SELECT MIN(id) FROM column_options GROUP BY column_name, value)",
	)
	if result.Error != nil {
		return result.Error
	}

	slog.Info("removed duplicate column options", "rows", result.RowsAffected, "code", logging.SYSTEM_MIGRATE)
	return nil
}

func normalizeLinkedDocs(txn *gorm.DB) error {
	type DataProduct struct {
		Id         uint
		LinkedDocs *string
	}

	var products []DataProduct
	if err := txn.Where("linked_docs LIKE ?", "%,%").Find(&products).Error; err != nil {
		return err
	}

	for _, product := range products {
		blob := documents.Join(documents.Parse(product.LinkedDocs))
		err := txn.Model(&DataProduct{}).Where("id = ?", product.Id).Update("linked_docs", blob).Error
		if err != nil {
			return err
		}
	}

	slog.Info("rewrote comma separated linked docs", "rows", len(products), "code", logging.SYSTEM_MIGRATE)
	return nil
}

func Migration_1_legacy_catalog(txn *gorm.DB) error {
	slog.Info("migrating legacy catalog tables", "code", logging.SYSTEM_MIGRATE)

	if err := dedupeColumnOptions(txn); err != nil {
		return err
	}

	if txn.Migrator().HasTable(&schema.DataProduct{}) {
		if err := normalizeLinkedDocs(txn); err != nil {
			return err
		}
	}

	if err := txn.AutoMigrate(schema.Models()...); err != nil {
		return err
	}

	slog.Info("legacy catalog migration complete", "code", logging.SYSTEM_MIGRATE)
	return nil
}
