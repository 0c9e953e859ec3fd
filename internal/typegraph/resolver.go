package typegraph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/metrics"
)

// Resolver computes type closures against a MetadataSource.
//
// Two edges are followed: nested fields contribute their target types, which
// are fetched with properties, and incoming link definitions contribute their
// source types, which are fetched without. A type first seen as an incoming
// link source and later needed as a nested target is fetched a second time
// with properties. Every name is requested at most once per mode, so
// resolution terminates on cyclic type graphs.
type Resolver struct {
	source  domain.MetadataSource
	metrics *metrics.Metrics
}

// NewResolver returns a Resolver fetching from source. m may be nil.
func NewResolver(source domain.MetadataSource, m *metrics.Metrics) *Resolver {
	return &Resolver{source: source, metrics: m}
}

// Resolve returns the closure of seeds. Seeds are fetched with properties
// when withProperties is set.
func (r *Resolver) Resolve(ctx context.Context, seeds []string, withProperties bool) (*Graph, error) {
	g := NewGraph()
	if err := r.Expand(ctx, g, seeds, withProperties); err != nil {
		return nil, err
	}
	return g, nil
}

// Expand adds the closure of names to g. Names already present in the
// required mode are not fetched again.
//
// Types whose fetch fails individually are left out of g. A failure of a whole
// fetch aborts the expansion with an ErrUpstreamUnavailable error; g must then
// be discarded.
func (r *Resolver) Expand(ctx context.Context, g *Graph, names []string, withProperties bool) error {
	full, light := plan(g, names, withProperties)

	for len(full) > 0 || len(light) > 0 {
		fullRes, lightRes, err := r.fetchLayer(ctx, g, full, light)
		if err != nil {
			return err
		}

		added := r.merge(g, light, lightRes, false)
		added = append(added, r.merge(g, full, fullRes, true)...)
		full, light = frontier(g, added)
	}
	return nil
}

// fetchLayer issues the property-bearing and the label-only batch of one
// layer concurrently. Only this goroutine writes to g.
func (r *Resolver) fetchLayer(ctx context.Context, g *Graph, full, light []string) (fullRes, lightRes map[string]domain.TypeResult, err error) {
	for _, name := range full {
		g.triedFull[name] = true
	}
	for _, name := range light {
		g.triedLight[name] = true
	}

	grp, gctx := errgroup.WithContext(ctx)
	if len(full) > 0 {
		grp.Go(func() error {
			var err error
			fullRes, err = r.fetch(gctx, full, true)
			return err
		})
	}
	if len(light) > 0 {
		grp.Go(func() error {
			var err error
			lightRes, err = r.fetch(gctx, light, false)
			return err
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, nil, err
	}
	return fullRes, lightRes, nil
}

func (r *Resolver) fetch(ctx context.Context, names []string, withProperties bool) (map[string]domain.TypeResult, error) {
	res, err := r.source.GetTypesByName(ctx, names, withProperties)
	if err != nil {
		return nil, domain.Upstream("get types by name", err)
	}
	return res, nil
}

// merge stores the successful results for requested names in g and returns the
// structures that were added or upgraded.
func (r *Resolver) merge(g *Graph, requested []string, results map[string]domain.TypeResult, withProperties bool) []*domain.TypeStructure {
	var added []*domain.TypeStructure
	failed := 0
	for _, name := range requested {
		res, ok := results[name]
		switch {
		case !ok:
			res.Err = fmt.Errorf("type %q: %w", name, domain.ErrNotFound)
		case res.Err == nil && res.Type == nil:
			res.Err = fmt.Errorf("type %q: empty result", name)
		}
		if res.Err != nil {
			failed++
			slog.Warn("excluding type from resolution",
				"type", name,
				"withProperties", withProperties,
				"error", res.Err,
			)
			continue
		}
		if !withProperties && g.full[name] {
			continue
		}
		g.types[name] = res.Type
		if withProperties {
			g.full[name] = true
		}
		added = append(added, res.Type)
	}
	r.metrics.TypeFetch(withProperties, len(added), failed)
	return added
}

// plan splits the initial names into the two fetch modes.
func plan(g *Graph, names []string, withProperties bool) (full, light []string) {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if withProperties {
			if g.needsFull(name) {
				full = append(full, name)
			}
		} else if g.needsLight(name) {
			light = append(light, name)
		}
	}
	slices.Sort(full)
	slices.Sort(light)
	return full, light
}

// frontier computes the next layer from the structures added by the previous
// one. A name needed in both modes is only fetched with properties.
func frontier(g *Graph, added []*domain.TypeStructure) (full, light []string) {
	fullSet := make(map[string]bool)
	lightSet := make(map[string]bool)
	for _, t := range added {
		for _, f := range t.Fields {
			if !f.IsNested() {
				continue
			}
			for _, target := range f.TargetTypes {
				if target.Name != "" && g.needsFull(target.Name) {
					fullSet[target.Name] = true
				}
			}
		}
		for _, link := range t.IncomingLinks {
			for _, st := range link.SourceTypes {
				if st.Type.Name != "" && g.needsLight(st.Type.Name) {
					lightSet[st.Type.Name] = true
				}
			}
		}
	}
	for name := range fullSet {
		full = append(full, name)
		delete(lightSet, name)
	}
	for name := range lightSet {
		light = append(light, name)
	}
	slices.Sort(full)
	slices.Sort(light)
	return full, light
}
