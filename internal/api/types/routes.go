package types

import (
	"net/http"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/service"
)

// RegisterRoutes registers the type structure endpoints on the mux.
func RegisterRoutes(mux *http.ServeMux, svc *service.Service) {
	h := &Handler{svc: svc}

	mux.HandleFunc("POST /types/list", h.List)
}
