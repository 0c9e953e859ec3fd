// Package instances serves the instance endpoints of the editor API.
package instances

import (
	"net/http"
	"strconv"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/api"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/enrich"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/service"
)

// Handler serves the instance endpoints.
type Handler struct {
	svc *service.Service
}

// Get returns the fully enriched instance.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	inst, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		api.WriteDomainError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, inst)
}

// GetSummary returns the instance restricted to its promoted fields.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	inst, err := h.svc.GetSummary(r.Context(), r.PathValue("id"))
	if err != nil {
		api.WriteDomainError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, inst)
}

// GetLabel returns the label view of the instance.
func (h *Handler) GetLabel(w http.ResponseWriter, r *http.Request) {
	label, err := h.svc.GetLabel(r.Context(), r.PathValue("id"))
	if err != nil {
		api.WriteDomainError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, label)
}

// Scope returns the release scope tree of the instance.
func (h *Handler) Scope(w http.ResponseWriter, r *http.Request) {
	root, err := h.svc.Scope(r.Context(), r.PathValue("id"), r.URL.Query().Get("releaseTreeScope"))
	if err != nil {
		api.WriteDomainError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, root)
}

// Create stores a new instance in the space given by the query string.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload domain.RawInstance
	if !api.DecodeJSON(w, r, &payload) {
		return
	}
	inst, err := h.svc.Create(r.Context(), r.URL.Query().Get("space"), r.PathValue("id"), payload)
	if err != nil {
		api.WriteDomainError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusCreated, inst)
}

// Update applies a partial document to the instance.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var payload domain.RawInstance
	if !api.DecodeJSON(w, r, &payload) {
		return
	}
	inst, err := h.svc.Update(r.Context(), r.PathValue("id"), payload)
	if err != nil {
		api.WriteDomainError(w, r, err)
		return
	}
	api.WriteData(w, http.StatusOK, inst)
}

// Delete removes the instance.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		api.WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Bulk returns a handler enriching the ids in the request body in mode.
// Every requested id gets either a data or an error entry.
func (h *Handler) Bulk(mode enrich.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ids []string
		if !api.DecodeJSON(w, r, &ids) {
			return
		}
		res, err := h.svc.List(r.Context(), ids, mode)
		if err != nil {
			api.WriteDomainError(w, r, err)
			return
		}
		api.WriteData(w, http.StatusOK, res)
	}
}

// Search returns one page of instance summaries of a type.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.SearchQuery{
		Space:         q.Get("space"),
		Type:          q.Get("type"),
		SearchByLabel: q.Get("searchByLabel"),
	}

	var ok bool
	if query.From, ok = intParam(w, r, "from"); !ok {
		return
	}
	if query.Size, ok = intParam(w, r, "size"); !ok {
		return
	}

	res, err := h.svc.Search(r.Context(), query)
	if err != nil {
		api.WriteDomainError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		corrID := api.CorrelationID(r.Context())
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid "+name+": "+v, corrID))
		return 0, false
	}
	return n, true
}
