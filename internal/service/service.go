// Package service holds the instance and type use cases behind the HTTP
// handlers. Ids cross this boundary in short form and are qualified before
// they reach the instance source.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/enrich"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/typegraph"
)

// Service combines an instance source with the enrichers.
type Service struct {
	instances domain.InstanceSource
	resolver  *typegraph.Resolver
	batch     *enrich.BatchEnricher
	scope     *enrich.ScopeEnricher
	ids       *idnorm.Normalizer
}

// New creates a new Service.
func New(instances domain.InstanceSource, resolver *typegraph.Resolver, batch *enrich.BatchEnricher, scope *enrich.ScopeEnricher, ids *idnorm.Normalizer) *Service {
	return &Service{
		instances: instances,
		resolver:  resolver,
		batch:     batch,
		scope:     scope,
		ids:       ids,
	}
}

// SearchResult is one page of instance summaries.
type SearchResult struct {
	Data  []*domain.EnrichedInstance `json:"data"`
	Total int                        `json:"total"`
	From  int                        `json:"from"`
	Size  int                        `json:"size"`
}

// Get returns the fully enriched instance.
func (s *Service) Get(ctx context.Context, id string) (*domain.EnrichedInstance, error) {
	v, err := s.get(ctx, id, enrich.ModeFull)
	if err != nil {
		return nil, err
	}
	return v.(*domain.EnrichedInstance), nil
}

// GetSummary returns the instance restricted to its promoted fields.
func (s *Service) GetSummary(ctx context.Context, id string) (*domain.EnrichedInstance, error) {
	v, err := s.get(ctx, id, enrich.ModeSummary)
	if err != nil {
		return nil, err
	}
	return v.(*domain.EnrichedInstance), nil
}

// GetLabel returns the label view of the instance.
func (s *Service) GetLabel(ctx context.Context, id string) (*domain.InstanceLabel, error) {
	v, err := s.get(ctx, id, enrich.ModeLabel)
	if err != nil {
		return nil, err
	}
	return v.(*domain.InstanceLabel), nil
}

func (s *Service) get(ctx context.Context, id string, mode enrich.Mode) (any, error) {
	if id == "" {
		return nil, fmt.Errorf("instance id is required: %w", domain.ErrInvalidInput)
	}
	raw, err := s.instances.GetInstance(ctx, s.ids.QualifyID(id))
	if err != nil {
		return nil, err
	}
	return s.batch.EnrichOne(ctx, raw, mode)
}

// List enriches the instances with the given ids. The result is keyed by the
// ids as passed in; an id unknown to the source gets a NOT_FOUND entry.
func (s *Service) List(ctx context.Context, ids []string, mode enrich.Mode) (map[string]enrich.Result, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("enrichment mode %q: %w", mode, domain.ErrInvalidInput)
	}
	out := make(map[string]enrich.Result, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	qualified := make([]string, len(ids))
	for i, id := range ids {
		qualified[i] = s.ids.QualifyID(id)
	}
	found, err := s.instances.GetInstances(ctx, qualified)
	if err != nil {
		return nil, err
	}

	var raws []domain.RawInstance
	var requested []string
	for i, id := range ids {
		raw, ok := found[qualified[i]]
		if !ok {
			out[id] = enrich.Result{ID: id, Error: domain.NewErrorRecord(fmt.Errorf("instance %s: %w", id, domain.ErrNotFound))}
			continue
		}
		raws = append(raws, raw)
		requested = append(requested, id)
	}
	if len(raws) == 0 {
		return out, nil
	}

	results, err := s.batch.EnrichAll(ctx, raws, mode)
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		out[requested[i]] = r
	}
	return out, nil
}

// Search returns one page of instance summaries. Instances that cannot be
// enriched are left out of the page.
func (s *Service) Search(ctx context.Context, q domain.SearchQuery) (*SearchResult, error) {
	if q.Type == "" {
		return nil, fmt.Errorf("search: type is required: %w", domain.ErrInvalidInput)
	}
	if q.From < 0 || q.Size < 0 {
		return nil, fmt.Errorf("search: negative from or size: %w", domain.ErrInvalidInput)
	}
	page, err := s.instances.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	res := &SearchResult{
		Data:  []*domain.EnrichedInstance{},
		Total: page.Total,
		From:  page.From,
		Size:  page.Size,
	}
	if len(page.Data) == 0 {
		return res, nil
	}
	results, err := s.batch.EnrichAll(ctx, page.Data, enrich.ModeSummary)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.Error != nil {
			continue
		}
		res.Data = append(res.Data, r.Data.(*domain.EnrichedInstance))
	}
	return res, nil
}

// Create stores a new instance in space and returns it enriched. A fresh id
// is generated when id is empty.
func (s *Service) Create(ctx context.Context, space, id string, payload domain.RawInstance) (*domain.EnrichedInstance, error) {
	if space == "" {
		return nil, fmt.Errorf("create instance: space is required: %w", domain.ErrInvalidInput)
	}
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("create instance: id %q is not a UUID: %w", id, domain.ErrInvalidInput)
	}

	created, err := s.instances.CreateInstance(ctx, space, s.ids.QualifyID(id), s.qualify(payload))
	if err != nil {
		return nil, err
	}
	slog.Info("instance created", "id", id, "space", space)
	return s.enrichStored(ctx, created)
}

// Update applies payload to the instance and returns it enriched.
func (s *Service) Update(ctx context.Context, id string, payload domain.RawInstance) (*domain.EnrichedInstance, error) {
	if id == "" {
		return nil, fmt.Errorf("instance id is required: %w", domain.ErrInvalidInput)
	}
	updated, err := s.instances.UpdateInstance(ctx, s.ids.QualifyID(id), s.qualify(payload))
	if err != nil {
		return nil, err
	}
	slog.Info("instance updated", "id", id)
	return s.enrichStored(ctx, updated)
}

// Delete removes the instance.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("instance id is required: %w", domain.ErrInvalidInput)
	}
	if err := s.instances.DeleteInstance(ctx, s.ids.QualifyID(id)); err != nil {
		return err
	}
	slog.Info("instance deleted", "id", id)
	return nil
}

// Scope returns the release scope tree of the instance with type badges and
// release status.
func (s *Service) Scope(ctx context.Context, id, releaseTreeScope string) (*domain.ScopeElement, error) {
	if id == "" {
		return nil, fmt.Errorf("instance id is required: %w", domain.ErrInvalidInput)
	}
	root, err := s.instances.GetScope(ctx, s.ids.QualifyID(id))
	if err != nil {
		return nil, err
	}
	if err := s.scope.Enrich(ctx, root, releaseTreeScope); err != nil {
		return nil, err
	}
	return root, nil
}

// Types resolves names and returns their closure sorted by name.
func (s *Service) Types(ctx context.Context, names []string, withProperties bool) ([]*domain.TypeStructure, error) {
	if len(names) == 0 {
		return []*domain.TypeStructure{}, nil
	}
	g, err := s.resolver.Resolve(ctx, names, withProperties)
	if err != nil {
		return nil, err
	}
	return g.Types(), nil
}

func (s *Service) qualify(payload domain.RawInstance) domain.RawInstance {
	if payload == nil {
		return domain.RawInstance{}
	}
	q, _ := s.ids.Qualify(map[string]any(payload)).(map[string]any)
	return domain.RawInstance(q)
}

func (s *Service) enrichStored(ctx context.Context, raw domain.RawInstance) (*domain.EnrichedInstance, error) {
	v, err := s.batch.EnrichOne(ctx, raw, enrich.ModeFull)
	if err != nil {
		return nil, err
	}
	return v.(*domain.EnrichedInstance), nil
}
