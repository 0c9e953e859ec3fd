package admin

import (
	"net/http"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/store"
)

// RegisterRoutes registers the admin endpoints of the local store on the
// mux. cache may be nil.
func RegisterRoutes(mux *http.ServeMux, s *store.Store, ids *idnorm.Normalizer, cache Clearer) {
	h := &Handler{store: s, ids: ids, cache: cache}

	mux.HandleFunc("POST /_kgeditor/reset", h.Reset)
	mux.HandleFunc("POST /_kgeditor/seed", h.SeedData)
}
