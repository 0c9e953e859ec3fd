// Package types serves the type structure endpoints of the editor API.
package types

import (
	"net/http"
	"strconv"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/api"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/service"
)

// Handler serves the type structure endpoints.
type Handler struct {
	svc *service.Service
}

// List resolves the type names in the request body and returns their
// closure sorted by name. Properties are left out unless withProperties
// is true.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	withProperties := false
	if v := r.URL.Query().Get("withProperties"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			corrID := api.CorrelationID(r.Context())
			api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid withProperties: "+v, corrID))
			return
		}
		withProperties = b
	}

	var names []string
	if !api.DecodeJSON(w, r, &names) {
		return
	}

	types, err := h.svc.Types(r.Context(), names, withProperties)
	if err != nil {
		api.WriteDomainError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, types)
}
