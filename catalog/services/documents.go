package services

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/haimhm/datacatalog/catalog/auth"
	"github.com/haimhm/datacatalog/catalog/documents"
	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/catalog/storage"
	"github.com/haimhm/datacatalog/utils"
	"github.com/haimhm/datacatalog/utils/logging"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

const (
	uploadFormField = "file"

	// Allowance for multipart headers and boundaries on top of the file size limit.
	multipartOverhead = 1 << 20
)

var errUploadTooLarge = errors.New("uploaded file is too large")

type DocumentService struct {
	db      *gorm.DB
	storage storage.Storage
	audit   auth.AuditLogger

	maxUploadBytes int64
	minFreeBytes   uint64
}

func (s *DocumentService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(auth.AdminOnly())
	r.Use(s.audit.Middleware)

	r.With(checkSufficientStorage(s.storage, s.minFreeBytes)).Post("/{product_id}/upload", s.Upload)
	r.Delete("/{product_id}/documents", s.DeleteDocument)

	return r
}

// limitedReader fails with errUploadTooLarge once more than limit bytes have been read.
type limitedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.limit {
		return n, errUploadTooLarge
	}
	return n, err
}

func isTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.Is(err, errUploadTooLarge) || errors.As(err, &maxBytesErr)
}

// nextFilePart skips to the multipart part holding the uploaded file.
func nextFilePart(reader *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil, CodedError(errors.New("no file provided"), http.StatusBadRequest)
		}
		if err != nil {
			if isTooLarge(err) {
				return nil, CodedError(errUploadTooLarge, http.StatusRequestEntityTooLarge)
			}
			return nil, CodedError(fmt.Errorf("error parsing multipart request: %w", err), http.StatusBadRequest)
		}

		if part.FormName() == uploadFormField {
			if part.FileName() == "" {
				part.Close()
				return nil, CodedError(errors.New("no file selected"), http.StatusBadRequest)
			}
			return part, nil
		}
		part.Close()
	}
}

type uploadResponse struct {
	Success    bool     `json:"success"`
	Url        string   `json:"url"`
	Filename   string   `json:"filename"`
	LinkedDocs []string `json:"linked_docs"`
}

func (s *DocumentService) Upload(w http.ResponseWriter, r *http.Request) {
	productId, ok := urlParamId(w, r, "product_id")
	if !ok {
		return
	}

	if _, err := schema.GetProduct(productId, s.db); err != nil {
		if errors.Is(err, schema.ErrProductNotFound) {
			utils.WriteError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	boundary, err := getMultipartBoundary(r)
	if err != nil {
		writeCodedError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	reader := multipart.NewReader(r.Body, boundary)

	part, err := nextFilePart(reader)
	if err != nil {
		writeCodedError(w, err)
		return
	}
	defer part.Close()

	if !documents.AllowedExtension(part.FileName()) {
		utils.WriteError(w, fmt.Sprintf("file type not allowed, allowed types: %v", strings.Join(documents.AllowedExtensions, ", ")), http.StatusBadRequest)
		return
	}

	storedName := documents.StoredName(time.Now(), part.FileName())

	data := &limitedReader{r: part, limit: s.maxUploadBytes}
	if err := s.storage.Write(storedName, data); err != nil {
		s.removeStoredFile(storedName)
		if isTooLarge(err) {
			utils.WriteError(w, fmt.Sprintf("file exceeds the maximum upload size of %d bytes", s.maxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		slog.Error("error saving uploaded file", "product_id", productId, "error", err, "code", logging.CATALOG_DOCUMENTS)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	url := documents.URL(storedName)

	var linked []string
	err = s.db.Transaction(func(txn *gorm.DB) error {
		product, err := schema.GetProduct(productId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrProductNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		linked = append(documents.Parse(product.LinkedDocs), url)

		result := txn.Model(&product).Update("linked_docs", documents.Join(linked))
		if result.Error != nil {
			slog.Error("sql error updating linked docs", "product_id", productId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		s.removeStoredFile(storedName)
		writeCodedError(w, err)
		return
	}

	uploadMetric.Observe(float64(data.read))
	recordMutation("document", "upload")
	slog.Info("uploaded document", "product_id", productId, "file", storedName, "bytes", data.read, "code", logging.CATALOG_DOCUMENTS)

	utils.WriteJsonResponse(w, uploadResponse{Success: true, Url: url, Filename: storedName, LinkedDocs: linked})
}

func (s *DocumentService) removeStoredFile(storedName string) {
	if err := s.storage.Delete(storedName); err != nil {
		slog.Error("error removing stored document", "file", storedName, "error", err, "code", logging.CATALOG_DOCUMENTS)
	}
}

type deleteDocumentRequest struct {
	Url string `json:"url"`
}

type deleteDocumentResponse struct {
	Success    bool     `json:"success"`
	LinkedDocs []string `json:"linked_docs"`
}

func (s *DocumentService) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	productId, ok := urlParamId(w, r, "product_id")
	if !ok {
		return
	}

	var params deleteDocumentRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	url := strings.TrimSpace(params.Url)
	if url == "" {
		utils.WriteError(w, "url must not be empty", http.StatusBadRequest)
		return
	}

	var remaining []string
	err := s.db.Transaction(func(txn *gorm.DB) error {
		product, err := schema.GetProduct(productId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrProductNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		var found bool
		remaining, found = documents.Remove(documents.Parse(product.LinkedDocs), url)
		if !found {
			return CodedError(errors.New("document is not linked to this product"), http.StatusNotFound)
		}

		result := txn.Model(&product).Update("linked_docs", documents.Join(remaining))
		if result.Error != nil {
			slog.Error("sql error updating linked docs", "product_id", productId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		writeCodedError(w, err)
		return
	}

	if storedName, ok := documents.StoredNameFromURL(url); ok {
		s.removeStoredFile(storedName)
	}

	recordMutation("document", "delete")
	slog.Info("removed document", "product_id", productId, "url", url, "code", logging.CATALOG_DOCUMENTS)

	utils.WriteJsonResponse(w, deleteDocumentResponse{Success: true, LinkedDocs: remaining})
}

// UploadsService serves stored documents. It is public, like the product list the
// documents are linked from.
type UploadsService struct {
	storage storage.Storage
}

func (s *UploadsService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{filename}", s.Serve)

	return r
}

func (s *UploadsService) Serve(w http.ResponseWriter, r *http.Request) {
	filename, err := utils.URLParam(r, "filename")
	if err != nil || !documents.ValidStoredName(filename) {
		utils.WriteError(w, "invalid filename", http.StatusBadRequest)
		return
	}

	file, err := s.storage.Read(filename)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			utils.WriteError(w, "file not found", http.StatusNotFound)
			return
		}
		slog.Error("error reading stored document", "file", filename, "error", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err := io.Copy(w, file); err != nil {
		slog.Error("error streaming stored document", "file", filename, "error", err)
	}
}
