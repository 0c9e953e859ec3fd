package instances

import (
	"net/http"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/enrich"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/service"
)

// RegisterRoutes registers all instance endpoints on the mux.
func RegisterRoutes(mux *http.ServeMux, svc *service.Service) {
	h := &Handler{svc: svc}

	mux.HandleFunc("GET /instances/{id}", h.Get)
	mux.HandleFunc("GET /instances/{id}/summary", h.GetSummary)
	mux.HandleFunc("GET /instances/{id}/label", h.GetLabel)
	mux.HandleFunc("GET /instances/{id}/scope", h.Scope)
	mux.HandleFunc("POST /instances", h.Create)
	mux.HandleFunc("POST /instances/{id}", h.Create)
	mux.HandleFunc("PATCH /instances/{id}", h.Update)
	mux.HandleFunc("DELETE /instances/{id}", h.Delete)

	mux.HandleFunc("POST /instancesBulk/list", h.Bulk(enrich.ModeFull))
	mux.HandleFunc("POST /instancesBulk/summary", h.Bulk(enrich.ModeSummary))
	mux.HandleFunc("POST /instancesBulk/label", h.Bulk(enrich.ModeLabel))

	mux.HandleFunc("GET /summary", h.Search)
}
