package schema

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Active", *SanitizeString("  Active  ", 100))
	assert.Nil(t, SanitizeString("   ", 100))
	assert.Nil(t, SanitizeString("", 100))

	truncated := SanitizeString(strings.Repeat("é", 150), 100)
	require.NotNil(t, truncated)
	assert.Equal(t, 100, len([]rune(*truncated)))
}

func TestParseDate(t *testing.T) {
	d := ParseDate("2023-07-14")
	require.NotNil(t, d)
	assert.Equal(t, "2023-07-14", FormatDate(d))

	for _, bad := range []string{"not-a-date", "", "14/07/2023", "2023-13-01", "2023-07-14T00:00:00Z"} {
		assert.Nil(t, ParseDate(bad), bad)
	}
}

func TestAssign(t *testing.T) {
	var p DataProduct
	err := p.Assign(map[string]interface{}{
		"id":          float64(99),
		"status":      "  Active  ",
		"prod_date":   "not-a-date",
		"trial_date":  "2021-02-03",
		"annual_cost": float64(12000),
		"term":        true,
		"unknown_key": "ignored",
		"vendor":      json.Number("42"),
		"notes":       nil,
	})
	require.NoError(t, err)

	assert.Equal(t, uint(0), p.Id)
	assert.Equal(t, "Active", *p.Status)
	assert.Nil(t, p.ProdDate)
	require.NotNil(t, p.TrialDate)
	assert.Equal(t, "2021-02-03", FormatDate(p.TrialDate))
	assert.Equal(t, "12000", *p.AnnualCost)
	assert.Equal(t, "true", *p.Term)
	assert.Equal(t, "42", *p.Vendor)
	assert.Nil(t, p.Notes)
}

func TestAssignClearsValue(t *testing.T) {
	p := DataProduct{Region: SanitizeString("EU", 100)}
	require.NoError(t, p.Assign(map[string]interface{}{"region": "   "}))
	assert.Nil(t, p.Region)

	require.NoError(t, p.Assign(map[string]interface{}{"region": "US"}))
	require.NoError(t, p.Assign(map[string]interface{}{"region": nil}))
	assert.Nil(t, p.Region)
}

func TestAssignRejectsStructuredValues(t *testing.T) {
	var p DataProduct
	err := p.Assign(map[string]interface{}{"region": []interface{}{"EU"}})
	assert.ErrorIs(t, err, ErrInvalidValue)

	err = p.Assign(map[string]interface{}{"vendor": map[string]interface{}{"a": "b"}})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestAssignYamlTimestamp(t *testing.T) {
	var p DataProduct
	ts := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.Assign(map[string]interface{}{"created_date": ts}))
	require.NotNil(t, p.CreatedDate)
	assert.Equal(t, "2020-05-01", FormatDate(p.CreatedDate))
}

func TestSerializeRedaction(t *testing.T) {
	var p DataProduct
	values := map[string]interface{}{}
	for _, col := range Columns {
		if col.IsDate() {
			values[col.Name] = "2022-01-01"
		} else {
			values[col.Name] = "value"
		}
	}
	require.NoError(t, p.Assign(values))

	public := p.Serialize(PublicFields())
	for _, col := range Columns {
		_, ok := public[col.Name]
		assert.Equal(t, !col.Sensitive, ok, col.Name)
	}
	assert.Contains(t, public, "id")

	full := p.Serialize(AllFields())
	assert.Len(t, full, len(Columns)+1)
	assert.Equal(t, "2022-01-01", full["contract_start"])
}

func TestSerializeNulls(t *testing.T) {
	var p DataProduct
	out := p.Serialize(AllFields())
	for _, col := range Columns {
		assert.Nil(t, out[col.Name], col.Name)
	}
}

func TestSensitiveColumns(t *testing.T) {
	var names []string
	for _, col := range Columns {
		if col.Sensitive {
			names = append(names, col.Name)
		}
	}
	assert.ElementsMatch(t, []string{
		"user", "contract_start", "contract_end", "term", "annual_cost", "price_cap", "use_permissions", "notes",
	}, names)
}

func TestDropdownColumnsAreDeclared(t *testing.T) {
	for _, name := range DropdownColumns {
		col, ok := LookupColumn(name)
		require.True(t, ok, name)
		assert.Equal(t, StringColumn, col.Kind, name)
	}
}

func TestStringValue(t *testing.T) {
	p := DataProduct{Vendor: SanitizeString("Acme, Beta", 200)}
	assert.Equal(t, "Acme, Beta", p.StringValue("vendor"))
	assert.Equal(t, "", p.StringValue("region"))
	assert.Equal(t, "", p.StringValue("missing"))
}
