// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/civihub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the group mutation API under the path where this router is
// mounted (typically "/api/groups" from bootstrap). Every route requires a
// signed-in user; per-group permissions are enforced by the broker.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ServeSearch)
		pr.Post("/", h.ServeCreate)
		pr.Post("/merge", h.ServeMerge)

		pr.Route("/{groupID}", func(gr chi.Router) {
			gr.Get("/", h.ServeGet)
			gr.Patch("/", h.ServeEdit)
			gr.Post("/deactivate", h.ServeDeactivate)
			gr.Post("/link/{parentID}", h.ServeLink)

			gr.Get("/members", h.ServeListMembers)
			gr.Post("/members", h.ServeAddMembers)
			gr.Post("/members/import", h.ServeImportMembers)
			gr.Delete("/members", h.ServeRemoveMembers)
			gr.Put("/members", h.ServeUpdateMembers)
			gr.Put("/members/{userID}/role", h.ServeUpdateRole)

			gr.Post("/unsubscribe", h.ServeUnsubscribe)
			gr.Post("/join", h.ServeJoin)

			gr.Post("/token/open", h.ServeOpenToken)
			gr.Post("/token/extend", h.ServeExtendToken)
			gr.Post("/token/close", h.ServeCloseToken)

			gr.Put("/permissions", h.ServeUpdatePermissions)

			gr.Get("/audit", h.ServeAuditLog)
		})
	})

	return r
}
