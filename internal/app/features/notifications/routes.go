// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/civihub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the notification feed.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeList)
	return r
}
