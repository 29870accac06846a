// internal/app/features/groups/discovery.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/civihub/internal/app/features/apierr"
	"github.com/dalemusser/civihub/internal/app/system/paging"
	webutil "github.com/dalemusser/civihub/internal/app/system/search"
	"github.com/dalemusser/civihub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/text"
)

// ServeSearch handles GET /groups?query=. It lists active groups that
// opted into discovery, filtered by a name prefix. Only groups flagged
// discoverable ever appear here, so no per-group permission applies.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	// Fold the query the same way group names are folded into name_ci.
	pattern := webutil.PrefixPattern(text.Fold(r.URL.Query().Get("query")))
	found, err := h.Groups.SearchDiscoverable(ctx, pattern, paging.Limit(r))
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}
	h.respond(w, http.StatusOK, found)
}
