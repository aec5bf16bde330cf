package httpapi

import (
	"net/http"

	"github.com/go-chi/cors"
)

// WithCORS lets browser clients on origins call the API with credentials,
// which the session cookie requires.
func WithCORS(h http.Handler, origins []string) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(h)
}
