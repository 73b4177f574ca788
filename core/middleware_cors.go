package core

import (
	"net/http"

	"github.com/go-chi/cors"
)

// Cors wraps the whole router so preflight requests are answered before
// routing. Only client.origin is allowed, with credentials. The origin is
// read when the handler is built; a config reload does not change it.
func (a *App) Cors(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{a.Config().Client.Origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})(next)
}
