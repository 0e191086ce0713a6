package handler

import (
	"net/http"

	"github.com/itchan-dev/modpolicy/shared/api"
	"github.com/itchan-dev/modpolicy/shared/utils"
)

// ListAudit handles GET /v1/admin/audit?entity_type=
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filter, err := listFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	entries, err := h.audit.List(r.Context(), actor, r.URL.Query().Get("entity_type"), filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.Map(entries, api.NewAuditEntry))
}
