package services

import (
	"log/slog"
	"net/http"

	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/catalog/values"
	"github.com/haimhm/datacatalog/utils"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type filterField struct {
	key    string
	column string
}

var filterFields = []filterField{
	{key: "categories", column: "datatype"},
	{key: "vendors", column: "vendor"},
	{key: "regions", column: "region"},
	{key: "statuses", column: "status"},
	{key: "stages", column: "stage"},
	{key: "asset_classes", column: "asset_class"},
}

type FilterService struct {
	db *gorm.DB
}

func (s *FilterService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.Filters)

	return r
}

// ExtractFilters returns the sorted distinct atoms of every filterable column.
func ExtractFilters(products []schema.DataProduct) map[string][]string {
	filters := make(map[string][]string, len(filterFields))
	for _, field := range filterFields {
		raws := lo.Map(products, func(p schema.DataProduct, _ int) string {
			return p.StringValue(field.column)
		})
		filters[field.key] = values.Collect(raws)
	}
	return filters
}

func (s *FilterService) Filters(w http.ResponseWriter, r *http.Request) {
	columns := lo.Map(filterFields, func(f filterField, _ int) string { return f.column })

	var products []schema.DataProduct
	result := s.db.Select(columns).Find(&products)
	if result.Error != nil {
		slog.Error("sql error loading filter values", "error", result.Error)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, ExtractFilters(products))
}
