package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxRequestBodySize = 1 << 20 // 1MB

// DecodeJSON decodes JSON request body into the provided struct with size limit
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()

	limitedReader := io.LimitReader(r.Body, maxRequestBodySize)

	if err := json.NewDecoder(limitedReader).Decode(v); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// GetQuery returns a trimmed query parameter, empty when absent
func GetQuery(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// GetQueryDefault returns a query parameter or defaultValue when it is absent or blank
func GetQueryDefault(r *http.Request, key, defaultValue string) string {
	if value := GetQuery(r, key); value != "" {
		return value
	}
	return defaultValue
}

// GetPathParam returns a trimmed URL parameter
func GetPathParam(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}
