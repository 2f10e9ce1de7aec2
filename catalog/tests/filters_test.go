package tests

import (
	"reflect"
	"testing"
)

func TestFilters(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	products := []map[string]interface{}{
		{"vendor": "Acme, Beta,  Acme", "region": "EU", "datatype": "Equity", "status": "Active", "stage": "nan"},
		{"vendor": "Gamma", "region": "US, EU", "datatype": "None", "status": "active", "asset_class": "Rates"},
		{"vendor": "", "region": "NaN", "stage": "Production", "asset_class": "Rates, FX"},
	}
	for _, p := range products {
		if _, err := admin.createProduct(p); err != nil {
			t.Fatal(err)
		}
	}

	filters, err := env.newClient().filters()
	if err != nil {
		t.Fatal(err)
	}

	expected := map[string][]string{
		"categories":    {"Equity"},
		"vendors":       {"Acme", "Beta", "Gamma"},
		"regions":       {"EU", "US"},
		"statuses":      {"Active", "active"},
		"stages":        {"Production"},
		"asset_classes": {"FX", "Rates"},
	}
	if !reflect.DeepEqual(filters, expected) {
		t.Fatalf("invalid filters %v", filters)
	}
}

func TestFiltersEmptyCatalog(t *testing.T) {
	env := setupTestEnv(t)

	filters, err := env.newClient().filters()
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"categories", "vendors", "regions", "statuses", "stages", "asset_classes"} {
		values, ok := filters[key]
		if !ok || values == nil || len(values) != 0 {
			t.Fatalf("expected empty list for %v, got %v", key, values)
		}
	}
}
