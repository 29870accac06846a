// internal/app/features/groups/importcsv.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/civihub/internal/app/broker"
	"github.com/dalemusser/civihub/internal/app/features/apierr"
	"github.com/dalemusser/civihub/internal/app/reconcile"
	"github.com/dalemusser/civihub/internal/app/system/csvutil"
	"github.com/dalemusser/civihub/internal/app/system/timeouts"
)

// importMembersResponse reports the outcome of a CSV member import.
// RowErrors is non-empty only when the upload was rejected.
type importMembersResponse struct {
	Added     int                `json:"added"`
	Dropped   []memberInput      `json:"dropped,omitempty"`
	RowErrors []csvutil.RowError `json:"row_errors,omitempty"`
}

// ServeImportMembers handles POST /groups/{groupID}/members/import. The
// body is the raw CSV file: full name, phone, optional role per line. A
// file with any invalid line is rejected whole, so a partial import never
// surprises the uploader.
func (h *Handler) ServeImportMembers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	groupID, ok := h.urlID(w, r, "groupID")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, csvutil.MaxUploadSize)
	parsed, err := csvutil.ParseMembersCSV(r.Body)
	if err != nil {
		apierr.Write(w, h.Log, &broker.InvalidArgumentError{Reason: err.Error()})
		return
	}
	if parsed.HasErrors() {
		h.respond(w, http.StatusUnprocessableEntity, importMembersResponse{RowErrors: parsed.Errors})
		return
	}

	descriptors := make([]reconcile.MemberDescriptor, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		descriptors = append(descriptors, reconcile.MemberDescriptor{
			Phone: row.Phone,
			Name:  row.FullName,
			Role:  row.Role,
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	result, err := h.Broker.AddMembers(ctx, actorID, groupID, descriptors, false)
	if err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	resp := importMembersResponse{Added: result.Added}
	for _, d := range result.Dropped {
		resp.Dropped = append(resp.Dropped, memberInput{Phone: d.Phone, Name: d.Name, Role: d.Role})
	}
	h.respond(w, http.StatusOK, resp)
}
