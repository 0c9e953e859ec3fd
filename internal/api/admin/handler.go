// Package admin serves the maintenance endpoints of the local graph store.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/api"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/database"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/seed"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/store"
)

// Clearer drops every cached type structure.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Handler serves the admin API at /_kgeditor/.
type Handler struct {
	store *store.Store
	ids   *idnorm.Normalizer
	cache Clearer
}

// Reset drops all data from the local store, clears the type cache and
// re-runs seeds.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := ResetData(r.Context(), h.store, h.ids, h.cache); err != nil {
		writeInternal(w, r, fmt.Sprintf("failed to reset: %s", err))
		return
	}
	slog.Info("local store reset")
	api.WriteData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SeedData runs seed data without dropping existing data first.
func (h *Handler) SeedData(w http.ResponseWriter, r *http.Request) {
	if err := seed.Seed(r.Context(), h.store, h.ids); err != nil {
		writeInternal(w, r, fmt.Sprintf("failed to seed: %s", err))
		return
	}
	api.WriteData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResetData clears all data tables and re-seeds. cache may be nil.
func ResetData(ctx context.Context, s *store.Store, ids *idnorm.Normalizer, cache Clearer) error {
	if err := database.Truncate(ctx, s.DB); err != nil {
		return err
	}
	if cache != nil {
		if err := cache.Clear(ctx); err != nil {
			return fmt.Errorf("clear type cache: %w", err)
		}
	}
	return seed.Seed(ctx, s, ids)
}

func writeInternal(w http.ResponseWriter, r *http.Request, msg string) {
	corrID := api.CorrelationID(r.Context())
	slog.Error("admin request failed", "error", msg, "correlationId", corrID)
	api.WriteError(w, http.StatusInternalServerError, api.NewError(domain.CodeInternal, msg, corrID))
}
