package utils

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error string `json:"error"`
}

func ParseRequestBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dest)
	if err != nil {
		slog.Error("error parsing request body", "error", err)
		WriteError(w, fmt.Sprintf("error parsing request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func WriteJsonResponseWithStatus(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("error serializing response body", "error", err)
		WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(append(body, '\n'))
	if err != nil {
		slog.Error("error writing response body", "error", err)
	}
}

func WriteJsonResponse(w http.ResponseWriter, data interface{}) {
	WriteJsonResponseWithStatus(w, http.StatusOK, data)
}

func WriteSuccess(w http.ResponseWriter) {
	WriteJsonResponse(w, map[string]bool{"success": true})
}

// WriteError writes a {"error": msg} body. The message is always a plain string so
// clients can display it directly.
func WriteError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(errorResponse{Error: msg})
	if err != nil {
		slog.Error("error writing error response", "error", err)
	}
}

func URLParam(r *http.Request, key string) (string, error) {
	param := chi.URLParam(r, key)
	if len(param) == 0 {
		return "", fmt.Errorf("missing {%v} url parameter", key)
	}
	return param, nil
}

func URLParamUint(r *http.Request, key string) (uint, error) {
	param, err := URLParam(r, key)
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id '%v' provided for {%v}", param, key)
	}

	return uint(id), nil
}
