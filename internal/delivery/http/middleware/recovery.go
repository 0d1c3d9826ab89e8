package middleware

import (
	"fmt"
	"net/http"

	"github.com/Pesokrava/review_widget/internal/delivery/http/response"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
)

// Recovery returns a middleware that recovers from panics
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(map[string]any{
						"method": r.Method,
						"path":   r.URL.Path,
					}).Error("Panic recovered", fmt.Errorf("%v", rec))

					response.Error(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
