package services

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/haimhm/datacatalog/catalog/storage"
	"github.com/haimhm/datacatalog/utils"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

// writeCodedError writes the error with its response code. Internal errors are only
// logged, the client gets a generic message.
func writeCodedError(w http.ResponseWriter, err error) {
	code := GetResponseCode(err)
	if code == http.StatusInternalServerError {
		utils.WriteError(w, "internal server error", code)
		return
	}
	utils.WriteError(w, err.Error(), code)
}

func checkDiskUsage(store storage.Storage, minFreeBytes uint64) error {
	stats, err := store.Usage()
	if err != nil {
		if errors.Is(err, storage.ErrUsageNotSupported) {
			return nil
		}
		slog.Error("unable to get disk usage from storage", "error", err)
		return CodedError(errors.New("unable to get disk usage"), http.StatusInternalServerError)
	}
	if stats.FreeBytes < minFreeBytes {
		oneMib := uint64(1024 * 1024)
		used := (stats.TotalBytes - stats.FreeBytes) / oneMib
		total := stats.TotalBytes / oneMib
		delta := (minFreeBytes - stats.FreeBytes) / oneMib
		return CodedError(fmt.Errorf("insufficient disk space available, usage: %d/%d Mib, please clear %d Mib", used, total, delta), http.StatusInsufficientStorage)
	}
	return nil
}

func checkSufficientStorage(store storage.Storage, minFreeBytes uint64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			if err := checkDiskUsage(store, minFreeBytes); err != nil {
				slog.Error(err.Error())
				writeCodedError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(handler)
	}
}

func getMultipartBoundary(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return "", CodedError(fmt.Errorf("missing 'Content-Type' header"), http.StatusBadRequest)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", CodedError(fmt.Errorf("error parsing media type in request: %w", err), http.StatusBadRequest)
	}
	if mediaType != "multipart/form-data" {
		return "", CodedError(fmt.Errorf("expected media type to be 'multipart/form-data'"), http.StatusBadRequest)
	}

	boundary, ok := params["boundary"]
	if !ok {
		return "", CodedError(fmt.Errorf("missing 'boundary' parameter in 'Content-Type' header"), http.StatusBadRequest)
	}

	return boundary, nil
}

func urlParamId(w http.ResponseWriter, r *http.Request, key string) (uint, bool) {
	id, err := utils.URLParamUint(r, key)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
