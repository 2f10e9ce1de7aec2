package tests

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/haimhm/datacatalog/catalog/schema"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestColumnOptions(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	for _, value := range []string{"US", "EU"} {
		if _, err := admin.createOption("region", value, nil); err != nil {
			t.Fatal(err)
		}
	}

	_, err = admin.createOption("region", "EU", nil)
	if statusCode(err) != http.StatusBadRequest {
		t.Fatalf("duplicate option should return 400: %v", err)
	}

	_, err = admin.createOption("region", "  EU  ", nil)
	if statusCode(err) != http.StatusBadRequest {
		t.Fatalf("values should be trimmed before the duplicate check: %v", err)
	}

	grouped, err := env.newClient().groupedOptions()
	if err != nil {
		t.Fatal(err)
	}
	region, ok := grouped["region"]
	if !ok || !reflect.DeepEqual(region.Values, []string{"EU", "US"}) || region.IsMultiValue {
		t.Fatalf("invalid grouped options %v", grouped)
	}

	all, err := env.newClient().allOptions()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Value != "EU" || all[1].Value != "US" || all[0].ColumnName != "region" {
		t.Fatalf("invalid option list %v", all)
	}
}

func TestMultiValueOptions(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := admin.createOption("vendor", "Acme", boolPtr(true)); err != nil {
		t.Fatal(err)
	}

	inherited, err := admin.createOption("vendor", "Beta", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !inherited.IsMultiValue {
		t.Fatal("multi value flag should be inherited from existing options")
	}

	fresh, err := admin.createOption("stage", "Production", nil)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.IsMultiValue {
		t.Fatal("options of a new column default to single valued")
	}

	if _, err := admin.createOption("vendor", "Gamma", boolPtr(false)); err != nil {
		t.Fatal(err)
	}

	grouped, err := admin.groupedOptions()
	if err != nil {
		t.Fatal(err)
	}
	if !grouped["vendor"].IsMultiValue {
		t.Fatal("a column is multi valued if any of its options is")
	}
	if grouped["stage"].IsMultiValue {
		t.Fatal("stage should not be multi valued")
	}
}

func TestInvalidOptions(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	cases := [][2]string{
		{"not_a_column", "x"},
		{"prod_date", "2024-01-01"},
		{"id", "1"},
		{"region", "   "},
		{"region", ""},
		{"annual_cost", "$1,000,000"},
		{"notes", "internal"},
	}
	for _, c := range cases {
		if _, err := admin.createOption(c[0], c[1], nil); statusCode(err) != http.StatusBadRequest {
			t.Fatalf("option %v should be rejected with 400: %v", c, err)
		}
	}

	long, err := admin.createOption("long_desc", strings.Repeat("x", 700), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(long.Value) != 500 {
		t.Fatalf("option values are capped at 500 characters, got %d", len(long.Value))
	}

	short, err := admin.createOption("region", strings.Repeat("y", 150), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(short.Value) != 100 {
		t.Fatalf("option values are capped at the column length, got %d", len(short.Value))
	}

	viewer, err := env.viewerClient()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := viewer.createOption("region", "APAC", nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("standard users cannot create options: %v", err)
	}
}

func TestDeleteOptions(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	eu, err := admin.createOption("region", "EU", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.createOption("region", "US", nil); err != nil {
		t.Fatal(err)
	}

	viewer, err := env.viewerClient()
	if err != nil {
		t.Fatal(err)
	}
	if err := viewer.deleteOption(eu.Id); !errors.Is(err, ErrForbidden) {
		t.Fatalf("standard users cannot delete options: %v", err)
	}

	if err := admin.deleteOption(eu.Id); err != nil {
		t.Fatal(err)
	}
	if err := admin.deleteOption(eu.Id); statusCode(err) != http.StatusNotFound {
		t.Fatalf("deleting a missing option should return 404: %v", err)
	}

	if err := admin.deleteOptionByValue("region", "US"); err != nil {
		t.Fatal(err)
	}
	if err := admin.deleteOptionByValue("region", "US"); statusCode(err) != http.StatusNotFound {
		t.Fatalf("deleting a missing option should return 404: %v", err)
	}
	if err := admin.deleteOptionByValue("not_a_column", "US"); statusCode(err) != http.StatusBadRequest {
		t.Fatalf("delete by value on an unknown column should return 400: %v", err)
	}
	if err := admin.Delete("/api/column-options?column_name=region").Do(nil); statusCode(err) != http.StatusBadRequest {
		t.Fatalf("delete by value requires both parameters: %v", err)
	}

	all, err := admin.allOptions()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no options, got %v", all)
	}
}

func TestDeleteTruncatedOptionByValue(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	long := "  " + strings.Repeat("z", 150)
	if _, err := admin.createOption("region", long, nil); err != nil {
		t.Fatal(err)
	}

	if err := admin.deleteOptionByValue("region", long); err != nil {
		t.Fatalf("the value should match the option stored from it: %v", err)
	}

	all, err := admin.allOptions()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no options, got %v", all)
	}
}

func TestSensitiveColumnOptionsAreHidden(t *testing.T) {
	env := setupTestEnv(t)

	// Databases migrated from the old system can hold options for any column.
	for _, opt := range []schema.ColumnOption{
		{ColumnName: "annual_cost", Value: "$1,000,000"},
		{ColumnName: "term", Value: "3 years"},
		{ColumnName: "region", Value: "EU"},
	} {
		if err := env.db.Create(&opt).Error; err != nil {
			t.Fatal(err)
		}
	}

	viewer, err := env.viewerClient()
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range []*client{env.newClient(), viewer} {
		grouped, err := c.groupedOptions()
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(grouped["region"].Values, []string{"EU"}) {
			t.Fatalf("invalid grouped options %v", grouped)
		}

		all, err := c.allOptions()
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 1 {
			t.Fatalf("expected only the region option, got %v", all)
		}

		for column := range grouped {
			if col, _ := schema.LookupColumn(column); col.Sensitive {
				t.Fatalf("sensitive column %v listed in grouped options", column)
			}
		}
		for _, opt := range all {
			if col, _ := schema.LookupColumn(opt.ColumnName); col.Sensitive {
				t.Fatalf("sensitive column %v listed in options", opt.ColumnName)
			}
		}
	}

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	grouped, err := admin.groupedOptions()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := grouped["annual_cost"]; !ok {
		t.Fatalf("admins see every option, got %v", grouped)
	}
}
