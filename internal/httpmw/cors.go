package httpmw

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS builds the go-chi/cors middleware for the allowed origins. An
// empty list allows every origin (go-chi/cors's default), so the API is
// permissive unless ALLOWED_ORIGINS is set.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
