package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/haimhm/datacatalog/catalog/auth"
	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/utils"
	"github.com/haimhm/datacatalog/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

const maxOptionLen = 500

var ErrDuplicateOption = errors.New("option already exists for this column")

type OptionService struct {
	db    *gorm.DB
	audit auth.AuditLogger
}

func (s *OptionService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.Grouped)
	r.Get("/all", s.All)

	r.Group(func(r chi.Router) {
		r.Use(auth.AdminOnly())
		r.Use(s.audit.Middleware)

		r.Post("/", s.Create)
		r.Delete("/", s.DeleteByValue)
		r.Delete("/{option_id}", s.Delete)
	})

	return r
}

type GroupedOptions struct {
	Values       []string `json:"values"`
	IsMultiValue bool     `json:"is_multi_value"`
}

// GroupOptions groups options by column. Values are sorted and a column is multi-valued
// if any of its options is.
func GroupOptions(options []schema.ColumnOption) map[string]GroupedOptions {
	byColumn := lo.GroupBy(options, func(opt schema.ColumnOption) string {
		return opt.ColumnName
	})

	grouped := make(map[string]GroupedOptions, len(byColumn))
	for column, opts := range byColumn {
		values := lo.Uniq(lo.Map(opts, func(opt schema.ColumnOption, _ int) string {
			return opt.Value
		}))
		slices.Sort(values)
		grouped[column] = GroupedOptions{
			Values: values,
			IsMultiValue: lo.SomeBy(opts, func(opt schema.ColumnOption) bool {
				return opt.IsMultiValue
			}),
		}
	}
	return grouped
}

// visibleOptions drops options of columns the caller is not allowed to see.
func visibleOptions(identity auth.Identity, options []schema.ColumnOption) []schema.ColumnOption {
	fields := auth.VisibleFields(identity)
	return lo.Filter(options, func(opt schema.ColumnOption, _ int) bool {
		return fields.Contains(opt.ColumnName)
	})
}

func (s *OptionService) Grouped(w http.ResponseWriter, r *http.Request) {
	var options []schema.ColumnOption
	result := s.db.Find(&options)
	if result.Error != nil {
		slog.Error("sql error listing column options", "error", result.Error)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, GroupOptions(visibleOptions(auth.IdentityFromContext(r), options)))
}

func (s *OptionService) All(w http.ResponseWriter, r *http.Request) {
	options := make([]schema.ColumnOption, 0)
	result := s.db.Order("column_name").Order("value").Find(&options)
	if result.Error != nil {
		slog.Error("sql error listing column options", "error", result.Error)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, visibleOptions(auth.IdentityFromContext(r), options))
}

type createOptionRequest struct {
	ColumnName   string `json:"column_name"`
	Value        string `json:"value"`
	IsMultiValue *bool  `json:"is_multi_value"`
}

// optionColumn returns the column options can be declared for. Dates have no options and
// sensitive columns are excluded since the option listings are public.
func optionColumn(name string) (schema.Column, error) {
	col, ok := schema.LookupColumn(strings.TrimSpace(name))
	if !ok || col.IsDate() || col.Sensitive {
		return schema.Column{}, fmt.Errorf("invalid column_name '%v'", name)
	}
	return col, nil
}

func (s *OptionService) Create(w http.ResponseWriter, r *http.Request) {
	var params createOptionRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	col, err := optionColumn(params.ColumnName)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	value := schema.SanitizeString(params.Value, min(col.MaxLen, maxOptionLen))
	if value == nil {
		utils.WriteError(w, "value must not be empty", http.StatusBadRequest)
		return
	}

	option := schema.ColumnOption{ColumnName: col.Name, Value: *value}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if params.IsMultiValue != nil {
			option.IsMultiValue = *params.IsMultiValue
		} else {
			var count int64
			result := txn.Model(&schema.ColumnOption{}).Where("column_name = ? AND is_multi_value = ?", col.Name, true).Count(&count)
			if result.Error != nil {
				slog.Error("sql error checking column multi value flag", "column_name", col.Name, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
			option.IsMultiValue = count > 0
		}

		result := txn.Create(&option)
		if result.Error != nil {
			if schema.IsDuplicateKey(result.Error) {
				return CodedError(ErrDuplicateOption, http.StatusBadRequest)
			}
			slog.Error("sql error creating column option", "column_name", col.Name, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		writeCodedError(w, err)
		return
	}

	recordMutation("column_option", "create")
	slog.Info("created column option", "column_name", option.ColumnName, "value", option.Value, "code", logging.CATALOG_OPTIONS)

	utils.WriteJsonResponseWithStatus(w, http.StatusCreated, option)
}

func (s *OptionService) Delete(w http.ResponseWriter, r *http.Request) {
	optionId, ok := urlParamId(w, r, "option_id")
	if !ok {
		return
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		result := txn.Delete(&schema.ColumnOption{}, "id = ?", optionId)
		if result.Error != nil {
			slog.Error("sql error deleting column option", "option_id", optionId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected == 0 {
			return CodedError(schema.ErrOptionNotFound, http.StatusNotFound)
		}
		return nil
	})
	if err != nil {
		writeCodedError(w, err)
		return
	}

	recordMutation("column_option", "delete")
	slog.Info("deleted column option", "option_id", optionId, "code", logging.CATALOG_OPTIONS)

	utils.WriteSuccess(w)
}

func (s *OptionService) DeleteByValue(w http.ResponseWriter, r *http.Request) {
	columnName := strings.TrimSpace(r.URL.Query().Get("column_name"))
	rawValue := r.URL.Query().Get("value")
	if columnName == "" || strings.TrimSpace(rawValue) == "" {
		utils.WriteError(w, "query parameters 'column_name' and 'value' are required", http.StatusBadRequest)
		return
	}

	col, err := optionColumn(columnName)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	columnName = col.Name

	// Values are looked up in the same form they were stored in.
	value := schema.SanitizeString(rawValue, min(col.MaxLen, maxOptionLen))
	if value == nil {
		utils.WriteError(w, "value must not be empty", http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		result := txn.Where("column_name = ? AND value = ?", columnName, *value).Delete(&schema.ColumnOption{})
		if result.Error != nil {
			slog.Error("sql error deleting column option", "column_name", columnName, "value", *value, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected == 0 {
			return CodedError(schema.ErrOptionNotFound, http.StatusNotFound)
		}
		return nil
	})
	if err != nil {
		writeCodedError(w, err)
		return
	}

	recordMutation("column_option", "delete")
	slog.Info("deleted column option", "column_name", columnName, "value", *value, "code", logging.CATALOG_OPTIONS)

	utils.WriteSuccess(w)
}
