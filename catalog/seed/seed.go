package seed

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/catalog/values"
	"github.com/haimhm/datacatalog/utils/logging"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxOptionLen = 500

var ErrInvalidSeed = errors.New("invalid seed file")

// Document is the seed file format. Products are column to value maps using the same
// column names as the api.
type Document struct {
	Products []map[string]interface{} `yaml:"products"`
	Options  []Option                 `yaml:"options"`
}

type Option struct {
	ColumnName   string `yaml:"column_name"`
	Value        string `yaml:"value"`
	IsMultiValue bool   `yaml:"is_multi_value"`
}

type Result struct {
	ProductsCreated int
	ProductsUpdated int
	OptionsAdded    int
}

func Parse(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return doc, nil
}

func ParseFile(path string) (Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("error opening seed file %v: %w", path, err)
	}
	defer file.Close()

	return Parse(file)
}

// Import loads the document in a single transaction. Products whose data_ID already
// exists are updated in place, with replace every existing product is removed first.
// Column options are then derived for the dropdown columns present in the document.
func Import(db *gorm.DB, doc Document, replace bool) (Result, error) {
	var res Result

	err := db.Transaction(func(txn *gorm.DB) error {
		if replace {
			result := txn.Where("1 = 1").Delete(&schema.DataProduct{})
			if result.Error != nil {
				slog.Error("sql error clearing products", "error", result.Error)
				return schema.ErrDbAccessFailed
			}
			slog.Info("cleared existing products", "count", result.RowsAffected, "code", logging.CATALOG_SEED)
		}

		imported := make([]schema.DataProduct, 0, len(doc.Products))
		present := make(map[string]bool)

		for i, row := range doc.Products {
			product, created, err := upsertProduct(txn, row)
			if err != nil {
				return fmt.Errorf("product %d: %w", i, err)
			}
			if created {
				res.ProductsCreated++
			} else {
				res.ProductsUpdated++
			}
			imported = append(imported, product)

			for key := range row {
				present[key] = true
			}
		}

		for _, opt := range doc.Options {
			added, err := addOption(txn, opt)
			if err != nil {
				return err
			}
			res.OptionsAdded += added
		}

		columns := make([]string, 0)
		for _, col := range schema.DropdownColumns {
			if present[col] {
				columns = append(columns, col)
			}
		}

		added, err := deriveOptions(txn, imported, columns)
		if err != nil {
			return err
		}
		res.OptionsAdded += added

		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("error importing seed data: %w", err)
	}

	slog.Info("seed import complete", "created", res.ProductsCreated, "updated", res.ProductsUpdated, "options_added", res.OptionsAdded, "code", logging.CATALOG_SEED)
	return res, nil
}

func upsertProduct(txn *gorm.DB, row map[string]interface{}) (schema.DataProduct, bool, error) {
	var incoming schema.DataProduct
	if err := incoming.Assign(row); err != nil {
		return incoming, false, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	if incoming.DataId != nil {
		var existing schema.DataProduct
		result := txn.Where(&schema.DataProduct{DataId: incoming.DataId}).Limit(1).Find(&existing)
		if result.Error != nil {
			slog.Error("sql error looking up product by data_ID", "data_id", *incoming.DataId, "error", result.Error)
			return incoming, false, schema.ErrDbAccessFailed
		}
		if result.RowsAffected != 0 {
			if err := existing.Assign(row); err != nil {
				return existing, false, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
			}
			if err := txn.Save(&existing).Error; err != nil {
				slog.Error("sql error updating seeded product", "data_id", *incoming.DataId, "error", err)
				return existing, false, schema.ErrDbAccessFailed
			}
			return existing, false, nil
		}
	}

	if err := txn.Create(&incoming).Error; err != nil {
		if schema.IsDuplicateKey(err) {
			return incoming, false, fmt.Errorf("%w: duplicate data_ID in seed file", ErrInvalidSeed)
		}
		slog.Error("sql error creating seeded product", "error", err)
		return incoming, false, schema.ErrDbAccessFailed
	}
	return incoming, true, nil
}

func optionValue(columnName, raw string) (schema.Column, string, bool) {
	col, ok := schema.LookupColumn(columnName)
	if !ok || col.IsDate() || col.Sensitive {
		return col, "", false
	}
	value := schema.SanitizeString(raw, min(col.MaxLen, maxOptionLen))
	if value == nil {
		return col, "", false
	}
	return col, *value, true
}

func addOption(txn *gorm.DB, opt Option) (int, error) {
	col, value, ok := optionValue(strings.TrimSpace(opt.ColumnName), opt.Value)
	if !ok {
		return 0, fmt.Errorf("%w: invalid option %v=%q", ErrInvalidSeed, opt.ColumnName, opt.Value)
	}

	option := schema.ColumnOption{ColumnName: col.Name, Value: value, IsMultiValue: opt.IsMultiValue}
	result := txn.Clauses(clause.OnConflict{DoNothing: true}).Create(&option)
	if result.Error != nil {
		slog.Error("sql error adding seeded option", "column_name", col.Name, "error", result.Error)
		return 0, schema.ErrDbAccessFailed
	}
	return int(result.RowsAffected), nil
}

// deriveOptions registers every atomic value of the given columns as an option. A column
// is flagged multi-valued when any of its raw values holds more than one atom.
func deriveOptions(txn *gorm.DB, products []schema.DataProduct, columns []string) (int, error) {
	added := 0

	for _, name := range columns {
		raws := make([]string, 0, len(products))
		for i := range products {
			if raw := products[i].StringValue(name); raw != "" {
				raws = append(raws, raw)
			}
		}

		atoms := values.Collect(raws)
		if len(atoms) == 0 {
			continue
		}
		multi := values.DetectMultiValue(raws)

		options := make([]schema.ColumnOption, 0, len(atoms))
		for _, atom := range atoms {
			if col, value, ok := optionValue(name, atom); ok {
				options = append(options, schema.ColumnOption{ColumnName: col.Name, Value: value, IsMultiValue: multi})
			}
		}

		if len(options) == 0 {
			continue
		}

		result := txn.Clauses(clause.OnConflict{DoNothing: true}).Create(&options)
		if result.Error != nil {
			slog.Error("sql error deriving column options", "column_name", name, "error", result.Error)
			return added, schema.ErrDbAccessFailed
		}
		added += int(result.RowsAffected)

		if multi {
			result = txn.Model(&schema.ColumnOption{}).Where("column_name = ?", name).Update("is_multi_value", true)
			if result.Error != nil {
				slog.Error("sql error flagging multi value column", "column_name", name, "error", result.Error)
				return added, schema.ErrDbAccessFailed
			}
		}

		slog.Info("derived column options", "column_name", name, "values", len(options), "multi_value", multi, "code", logging.CATALOG_SEED)
	}

	return added, nil
}

// SyncOptions re-derives the options of every dropdown column from the current catalog.
// Existing options are kept.
func SyncOptions(db *gorm.DB) (int, error) {
	added := 0
	err := db.Transaction(func(txn *gorm.DB) error {
		var products []schema.DataProduct
		if err := txn.Find(&products).Error; err != nil {
			slog.Error("sql error loading products for option sync", "error", err)
			return schema.ErrDbAccessFailed
		}

		var err error
		added, err = deriveOptions(txn, products, schema.DropdownColumns)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("error syncing column options: %w", err)
	}
	return added, nil
}
