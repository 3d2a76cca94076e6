package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

const corsPreflightMaxAge = 300

// CORS applies the storefront origin policy. A "*" entry opens the API to
// any origin and turns credentialed requests off, as browsers require.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	wildcard := slices.Contains(origins, "*")

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", CartTokenHeader, IdempotencyKeyHeader},
		ExposedHeaders:   []string{CartTokenHeader, RequestIDHeader, "Retry-After"},
		AllowCredentials: !wildcard,
		MaxAge:           corsPreflightMaxAge,
	})
}
