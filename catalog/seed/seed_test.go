package seed

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/haimhm/datacatalog/catalog/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const seedYaml = `
products:
  - data_ID: EQ-1
    short_desc: "  Equity prices  "
    vendor: Acme, Beta
    region: EU
    prod_date: 2024-01-15
    annual_cost: 125000
    stage: nan
  - data_ID: FX-1
    vendor: Gamma
    region: US
    prod_date: not a date
    status: Active
options:
  - column_name: delivery_method
    value: SFTP
  - column_name: region
    value: APAC
`

func openTestDb(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "seed.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(schema.Models()...))
	return db
}

func options(t *testing.T, db *gorm.DB, column string) []schema.ColumnOption {
	var opts []schema.ColumnOption
	require.NoError(t, db.Order("value").Find(&opts, "column_name = ?", column).Error)
	return opts
}

func optionValues(opts []schema.ColumnOption) []string {
	values := make([]string, 0, len(opts))
	for _, opt := range opts {
		values = append(values, opt.Value)
	}
	return values
}

func TestImport(t *testing.T) {
	db := openTestDb(t)

	doc, err := Parse(strings.NewReader(seedYaml))
	require.NoError(t, err)
	require.Len(t, doc.Products, 2)

	res, err := Import(db, doc, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ProductsCreated)
	assert.Equal(t, 0, res.ProductsUpdated)

	var products []schema.DataProduct
	require.NoError(t, db.Order("id").Find(&products).Error)
	require.Len(t, products, 2)

	assert.Equal(t, "Equity prices", products[0].StringValue("short_desc"))
	assert.Equal(t, "125000", products[0].StringValue("annual_cost"))
	assert.Equal(t, "2024-01-15", products[0].ColumnValue(mustColumn(t, "prod_date")))
	assert.Nil(t, products[1].ColumnValue(mustColumn(t, "prod_date")))

	vendors := options(t, db, "vendor")
	assert.Equal(t, []string{"Acme", "Beta", "Gamma"}, optionValues(vendors))
	for _, opt := range vendors {
		assert.True(t, opt.IsMultiValue, "vendor has a composite value")
	}

	regions := options(t, db, "region")
	assert.Equal(t, []string{"APAC", "EU", "US"}, optionValues(regions))
	for _, opt := range regions {
		assert.False(t, opt.IsMultiValue)
	}

	assert.Empty(t, options(t, db, "stage"), "placeholders do not become options")
	assert.Equal(t, []string{"Active"}, optionValues(options(t, db, "status")))
	assert.Equal(t, []string{"SFTP"}, optionValues(options(t, db, "delivery_method")))
	assert.Empty(t, options(t, db, "sub_region"), "columns absent from the import are not derived")
}

func mustColumn(t *testing.T, name string) schema.Column {
	col, ok := schema.LookupColumn(name)
	require.True(t, ok)
	return col
}

func TestImportIsIdempotent(t *testing.T) {
	db := openTestDb(t)

	doc, err := Parse(strings.NewReader(seedYaml))
	require.NoError(t, err)

	_, err = Import(db, doc, false)
	require.NoError(t, err)

	res, err := Import(db, doc, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ProductsCreated)
	assert.Equal(t, 2, res.ProductsUpdated)
	assert.Equal(t, 0, res.OptionsAdded)

	var count int64
	require.NoError(t, db.Model(&schema.DataProduct{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestImportReplace(t *testing.T) {
	db := openTestDb(t)

	require.NoError(t, db.Create(&schema.DataProduct{DataId: ptr("OLD")}).Error)

	doc, err := Parse(strings.NewReader(seedYaml))
	require.NoError(t, err)

	_, err = Import(db, doc, true)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&schema.DataProduct{}).Where(&schema.DataProduct{DataId: ptr("OLD")}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestImportRollsBackOnError(t *testing.T) {
	db := openTestDb(t)

	doc, err := Parse(strings.NewReader(`
products:
  - data_ID: OK-1
  - data_ID: BAD-1
    vendor: [a, b]
`))
	require.NoError(t, err)

	_, err = Import(db, doc, false)
	assert.ErrorIs(t, err, ErrInvalidSeed)

	var count int64
	require.NoError(t, db.Model(&schema.DataProduct{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestParseRejectsUnknownSections(t *testing.T) {
	_, err := Parse(strings.NewReader("users:\n  - admin\n"))
	assert.ErrorIs(t, err, ErrInvalidSeed)

	doc, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Products)
}

func TestSyncOptions(t *testing.T) {
	db := openTestDb(t)

	require.NoError(t, db.Create(&schema.DataProduct{Region: ptr("EU, US")}).Error)
	require.NoError(t, db.Create(&schema.DataProduct{Region: ptr("LATAM"), Vendor: ptr("None")}).Error)
	require.NoError(t, db.Create(&schema.ColumnOption{ColumnName: "region", Value: "EU"}).Error)

	added, err := SyncOptions(db)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	regions := options(t, db, "region")
	assert.Equal(t, []string{"EU", "LATAM", "US"}, optionValues(regions))
	for _, opt := range regions {
		assert.True(t, opt.IsMultiValue, "existing options are flagged when the column turns out multi valued")
	}
	assert.Empty(t, options(t, db, "vendor"))
}

func ptr(s string) *string {
	return &s
}

func TestImportRejectsSensitiveOptions(t *testing.T) {
	db := openTestDb(t)

	doc, err := Parse(strings.NewReader(`
options:
  - column_name: annual_cost
    value: "$1,000,000"
`))
	require.NoError(t, err)

	_, err = Import(db, doc, false)
	assert.ErrorIs(t, err, ErrInvalidSeed)
	assert.Empty(t, options(t, db, "annual_cost"))
}
