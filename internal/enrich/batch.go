package enrich

import (
	"context"
	"log/slog"
	"slices"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/metrics"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/typegraph"
)

// Mode selects the view produced for each instance.
type Mode string

// Enrichment modes.
const (
	ModeFull    Mode = "full"
	ModeSummary Mode = "summary"
	ModeLabel   Mode = "label"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeFull || m == ModeSummary || m == ModeLabel
}

// Result is the outcome for one instance of a batch. Exactly one of Data and
// Error is set.
type Result struct {
	ID    string              `json:"-"`
	Data  any                 `json:"data,omitempty"`
	Error *domain.ErrorRecord `json:"error,omitempty"`
}

// BatchEnricher enriches many instances against one shared type graph.
type BatchEnricher struct {
	resolver *typegraph.Resolver
	enricher *Enricher
	metrics  *metrics.Metrics
}

// NewBatchEnricher returns a BatchEnricher. m may be nil.
func NewBatchEnricher(resolver *typegraph.Resolver, enricher *Enricher, m *metrics.Metrics) *BatchEnricher {
	return &BatchEnricher{resolver: resolver, enricher: enricher, metrics: m}
}

// Graph resolves the types needed to enrich raws in the given mode.
//
// The declared types of all instances are resolved in one pass. In full and
// summary mode, incoming link source types and link target types that the
// first pass left unresolved are then resolved together without properties.
func (b *BatchEnricher) Graph(ctx context.Context, raws []domain.RawInstance, mode Mode) (*typegraph.Graph, error) {
	seeds := declaredTypes(raws)
	if mode == ModeLabel {
		return b.resolver.Resolve(ctx, seeds, false)
	}

	g, err := b.resolver.Resolve(ctx, seeds, true)
	if err != nil {
		return nil, err
	}
	if missing := unresolvedReferences(g); len(missing) > 0 {
		if err := b.resolver.Expand(ctx, g, missing, false); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// EnrichAll enriches raws in input order. A failure to resolve types fails the
// whole call; a failure of one instance is reported in its Result.
func (b *BatchEnricher) EnrichAll(ctx context.Context, raws []domain.RawInstance, mode Mode) ([]Result, error) {
	g, err := b.Graph(ctx, raws, mode)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(raws))
	for i, raw := range raws {
		data, err := b.view(raw, g, mode)
		id := b.enricher.ids.SimplifyID(raw.ID())
		if err != nil {
			slog.Warn("instance enrichment failed", "id", id, "error", err)
			b.metrics.Enriched(false)
			results[i] = Result{ID: id, Error: domain.NewErrorRecord(err)}
			continue
		}
		b.metrics.Enriched(true)
		results[i] = Result{ID: id, Data: data}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// EnrichOne enriches a single instance; every failure is returned.
func (b *BatchEnricher) EnrichOne(ctx context.Context, raw domain.RawInstance, mode Mode) (any, error) {
	g, err := b.Graph(ctx, []domain.RawInstance{raw}, mode)
	if err != nil {
		return nil, err
	}
	data, err := b.view(raw, g, mode)
	b.metrics.Enriched(err == nil)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *BatchEnricher) view(raw domain.RawInstance, g *typegraph.Graph, mode Mode) (any, error) {
	switch mode {
	case ModeLabel:
		return b.enricher.EnrichLabel(raw, g)
	case ModeSummary:
		e, err := b.enricher.Enrich(raw, g)
		if err != nil {
			return nil, err
		}
		return e.Summary(), nil
	default:
		return b.enricher.Enrich(raw, g)
	}
}

// declaredTypes returns the union of declared types in first-seen order.
func declaredTypes(raws []domain.RawInstance) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range raws {
		for _, t := range raw.Types() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// unresolvedReferences lists the incoming link source types and field target
// types referenced by the structures of g but missing from it.
func unresolvedReferences(g *typegraph.Graph) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && !g.Has(name) && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, t := range g.Types() {
		for _, l := range t.IncomingLinks {
			for _, st := range l.SourceTypes {
				add(st.Type.Name)
			}
		}
		for _, f := range t.Fields {
			for _, target := range f.TargetTypes {
				add(target.Name)
			}
		}
	}
	slices.Sort(out)
	return out
}
