package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/haimhm/datacatalog/catalog/auth"
	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/utils"
	"github.com/haimhm/datacatalog/utils/logging"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

var ErrDuplicateDataId = errors.New("a product with this data_ID already exists")

type ProductService struct {
	db    *gorm.DB
	audit auth.AuditLogger
}

func (s *ProductService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.List)
	r.Get("/{product_id}", s.Get)

	r.Group(func(r chi.Router) {
		r.Use(auth.AdminOnly())
		r.Use(s.audit.Middleware)

		r.Post("/", s.Create)
		r.Put("/{product_id}", s.Update)
		r.Delete("/{product_id}", s.Delete)
	})

	return r
}

// parseProductBody decodes a partial product. Numbers are kept as json.Number so that
// they are stored exactly as sent.
func parseProductBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var values map[string]interface{}
	if err := dec.Decode(&values); err != nil {
		utils.WriteError(w, fmt.Sprintf("error parsing request body: %v", err), http.StatusBadRequest)
		return nil, false
	}
	if values == nil {
		utils.WriteError(w, "request body must be a json object", http.StatusBadRequest)
		return nil, false
	}
	return values, true
}

func (s *ProductService) List(w http.ResponseWriter, r *http.Request) {
	fields := auth.VisibleFields(auth.IdentityFromContext(r))

	var products []schema.DataProduct
	result := s.db.Order("id").Find(&products)
	if result.Error != nil {
		slog.Error("sql error listing products", "error", result.Error)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	infos := make([]map[string]interface{}, 0, len(products))
	for _, product := range products {
		infos = append(infos, product.Serialize(fields))
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *ProductService) Get(w http.ResponseWriter, r *http.Request) {
	productId, ok := urlParamId(w, r, "product_id")
	if !ok {
		return
	}

	product, err := schema.GetProduct(productId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrProductNotFound) {
			utils.WriteError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, product.Serialize(auth.VisibleFields(auth.IdentityFromContext(r))))
}

func saveProduct(txn *gorm.DB, product *schema.DataProduct, create bool) error {
	var result *gorm.DB
	if create {
		result = txn.Create(product)
	} else {
		result = txn.Save(product)
	}
	if result.Error != nil {
		if schema.IsDuplicateKey(result.Error) {
			return CodedError(ErrDuplicateDataId, http.StatusBadRequest)
		}
		slog.Error("sql error saving product", "product_id", product.Id, "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	return nil
}

func (s *ProductService) Create(w http.ResponseWriter, r *http.Request) {
	values, ok := parseProductBody(w, r)
	if !ok {
		return
	}

	var product schema.DataProduct
	if err := product.Assign(values); err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		return saveProduct(txn, &product, true)
	})
	if err != nil {
		writeCodedError(w, err)
		return
	}

	recordMutation("product", "create")
	slog.Info("created product", "product_id", product.Id, "data_id", product.StringValue("data_ID"), "code", logging.CATALOG_PRODUCT)

	utils.WriteJsonResponseWithStatus(w, http.StatusCreated, product.Serialize(schema.AllFields()))
}

func (s *ProductService) Update(w http.ResponseWriter, r *http.Request) {
	productId, ok := urlParamId(w, r, "product_id")
	if !ok {
		return
	}

	values, ok := parseProductBody(w, r)
	if !ok {
		return
	}

	var product schema.DataProduct
	err := s.db.Transaction(func(txn *gorm.DB) error {
		var err error
		product, err = schema.GetProduct(productId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrProductNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if err := product.Assign(values); err != nil {
			return CodedError(err, http.StatusBadRequest)
		}

		return saveProduct(txn, &product, false)
	})
	if err != nil {
		writeCodedError(w, err)
		return
	}

	recordMutation("product", "update")
	slog.Info("updated product", "product_id", product.Id, "code", logging.CATALOG_PRODUCT)

	utils.WriteJsonResponse(w, product.Serialize(schema.AllFields()))
}

func (s *ProductService) Delete(w http.ResponseWriter, r *http.Request) {
	productId, ok := urlParamId(w, r, "product_id")
	if !ok {
		return
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		result := txn.Delete(&schema.DataProduct{}, "id = ?", productId)
		if result.Error != nil {
			slog.Error("sql error deleting product", "product_id", productId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected == 0 {
			return CodedError(schema.ErrProductNotFound, http.StatusNotFound)
		}
		return nil
	})
	if err != nil {
		writeCodedError(w, err)
		return
	}

	recordMutation("product", "delete")
	slog.Info("deleted product", "product_id", productId, "code", logging.CATALOG_PRODUCT)

	utils.WriteSuccess(w)
}
