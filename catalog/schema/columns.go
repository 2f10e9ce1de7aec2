package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
)

type ColumnKind int

const (
	StringColumn ColumnKind = iota
	TextColumn
	DateColumn
)

const (
	TextMaxLen = 65535
	DateLayout = "2006-01-02"
)

type Column struct {
	Name      string
	Kind      ColumnKind
	MaxLen    int
	Sensitive bool

	field int
}

func (c Column) IsDate() bool {
	return c.Kind == DateColumn
}

func str(name string, maxLen int) Column {
	return Column{Name: name, Kind: StringColumn, MaxLen: maxLen}
}

func text(name string) Column {
	return Column{Name: name, Kind: TextColumn, MaxLen: TextMaxLen}
}

func date(name string) Column {
	return Column{Name: name, Kind: DateColumn}
}

func sensitive(c Column) Column {
	c.Sensitive = true
	return c
}

// Columns is the allow-list of assignable and serializable DataProduct columns.
var Columns = []Column{
	str("data_ID", 200),
	str("short_desc", 500),
	text("long_desc"),
	str("stage", 100),
	str("status", 100),
	str("vendor_type", 100),
	str("datatype", 200),
	str("sub_datatype", 200),
	str("asset_class", 200),
	str("coverage_details", 500),
	str("sector", 200),
	str("region", 100),
	str("sub_region", 100),
	str("s3_location", 500),
	str("internal_location", 500),
	str("delivery_frequency", 100),
	str("delivery_lag", 100),
	str("vendor", 200),
	date("prod_date"),
	date("trial_date"),
	date("created_date"),
	date("end_date"),
	date("pit_date"),
	date("history_start"),
	str("delivery_method", 200),
	text("linked_docs"),
	sensitive(str("user", 100)),
	sensitive(date("contract_start")),
	sensitive(date("contract_end")),
	sensitive(str("term", 100)),
	sensitive(str("annual_cost", 100)),
	sensitive(str("price_cap", 100)),
	sensitive(text("use_permissions")),
	sensitive(text("notes")),
}

// DropdownColumns are the categorical columns whose values are tracked as column options
// when a catalog is imported.
var DropdownColumns = []string{
	"stage", "status", "vendor_type", "datatype", "sub_datatype", "asset_class", "sector",
	"region", "sub_region", "delivery_frequency", "delivery_lag", "vendor", "delivery_method",
}

var columnIndex = map[string]int{}

var (
	stringPtrType = reflect.TypeOf((*string)(nil))
	datePtrType   = reflect.TypeOf((*datatypes.Date)(nil))
)

func init() {
	fields := map[string]reflect.StructField{}
	productType := reflect.TypeOf(DataProduct{})
	for i := 0; i < productType.NumField(); i++ {
		field := productType.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		fields[name] = field
	}

	for i := range Columns {
		col := &Columns[i]
		field, ok := fields[col.Name]
		if !ok {
			panic(fmt.Sprintf("column %v has no matching DataProduct field", col.Name))
		}

		expected := stringPtrType
		if col.IsDate() {
			expected = datePtrType
		}
		if field.Type != expected {
			panic(fmt.Sprintf("column %v has field type %v, expected %v", col.Name, field.Type, expected))
		}

		col.field = field.Index[0]
		columnIndex[col.Name] = i
	}
}

func LookupColumn(name string) (Column, bool) {
	idx, ok := columnIndex[name]
	if !ok {
		return Column{}, false
	}
	return Columns[idx], true
}

type FieldSet map[string]struct{}

func (f FieldSet) Contains(name string) bool {
	_, ok := f[name]
	return ok
}

func AllFields() FieldSet {
	fields := make(FieldSet, len(Columns))
	for _, col := range Columns {
		fields[col.Name] = struct{}{}
	}
	return fields
}

func PublicFields() FieldSet {
	fields := make(FieldSet, len(Columns))
	for _, col := range Columns {
		if !col.Sensitive {
			fields[col.Name] = struct{}{}
		}
	}
	return fields
}

// SanitizeString trims the value and truncates it to maxLen runes. Empty values become nil.
func SanitizeString(raw string, maxLen int) *string {
	value := strings.TrimSpace(raw)
	if maxLen > 0 && utf8.RuneCountInString(value) > maxLen {
		value = strings.TrimSpace(string([]rune(value)[:maxLen]))
	}
	if value == "" {
		return nil
	}
	return &value
}

// ParseDate accepts YYYY-MM-DD. Anything else, including the empty string, is treated as
// an absent date rather than an error.
func ParseDate(raw string) *datatypes.Date {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	d := datatypes.Date(t)
	return &d
}

func FormatDate(d *datatypes.Date) string {
	return time.Time(*d).Format(DateLayout)
}

var ErrInvalidValue = errors.New("invalid column value")

// ScalarString converts a decoded json/yaml scalar to the string stored in a column. The
// second return value is false for null.
func ScalarString(value interface{}) (string, bool, error) {
	switch v := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case json.Number:
		return v.String(), true, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true, nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), true, nil
	case bool:
		return strconv.FormatBool(v), true, nil
	case time.Time:
		return v.Format(DateLayout), true, nil
	default:
		return "", false, fmt.Errorf("%w: expected a string, number, boolean or null, got %T", ErrInvalidValue, value)
	}
}

func (p *DataProduct) SetColumn(col Column, value interface{}) error {
	raw, present, err := ScalarString(value)
	if err != nil {
		return fmt.Errorf("column '%v': %w", col.Name, err)
	}

	field := reflect.ValueOf(p).Elem().Field(col.field)

	if col.IsDate() {
		var d *datatypes.Date
		if present {
			d = ParseDate(raw)
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	var s *string
	if present {
		s = SanitizeString(raw, col.MaxLen)
	}
	field.Set(reflect.ValueOf(s))
	return nil
}

// Assign applies a partial update. Keys that are not declared columns, including id,
// are ignored.
func (p *DataProduct) Assign(values map[string]interface{}) error {
	for _, col := range Columns {
		value, ok := values[col.Name]
		if !ok {
			continue
		}
		if err := p.SetColumn(col, value); err != nil {
			return err
		}
	}
	return nil
}

// ColumnValue returns the serialized value of a column: nil, a string, or a YYYY-MM-DD date.
func (p *DataProduct) ColumnValue(col Column) interface{} {
	field := reflect.ValueOf(p).Elem().Field(col.field)
	if field.IsNil() {
		return nil
	}

	if col.IsDate() {
		return FormatDate(field.Interface().(*datatypes.Date))
	}
	return *field.Interface().(*string)
}

// StringValue returns the column value as a string, with "" for null.
func (p *DataProduct) StringValue(name string) string {
	col, ok := LookupColumn(name)
	if !ok {
		return ""
	}
	if value, ok := p.ColumnValue(col).(string); ok {
		return value
	}
	return ""
}

func (p *DataProduct) Serialize(fields FieldSet) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	out["id"] = p.Id
	for _, col := range Columns {
		if fields.Contains(col.Name) {
			out[col.Name] = p.ColumnValue(col)
		}
	}
	return out
}
