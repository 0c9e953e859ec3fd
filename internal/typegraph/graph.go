// Package typegraph resolves the transitive closure of type structures
// reachable from a set of seed types.
package typegraph

import (
	"slices"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
)

// Graph is a set of resolved type structures keyed by name. It is written only
// by a Resolver and must be treated as read-only by everyone else.
type Graph struct {
	types map[string]*domain.TypeStructure
	full  map[string]bool

	// names already requested from the metadata source, per fetch mode
	triedFull  map[string]bool
	triedLight map[string]bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		types:      make(map[string]*domain.TypeStructure),
		full:       make(map[string]bool),
		triedFull:  make(map[string]bool),
		triedLight: make(map[string]bool),
	}
}

// Get returns the structure of the named type.
func (g *Graph) Get(name string) (*domain.TypeStructure, bool) {
	t, ok := g.types[name]
	return t, ok
}

// Has reports whether the named type is resolved.
func (g *Graph) Has(name string) bool {
	_, ok := g.types[name]
	return ok
}

// HasProperties reports whether the named type was resolved with its fields.
func (g *Graph) HasProperties(name string) bool {
	return g.full[name]
}

// Ref returns the badge of the named type.
func (g *Graph) Ref(name string) (domain.TypeRef, bool) {
	t, ok := g.types[name]
	if !ok {
		return domain.TypeRef{}, false
	}
	return t.Ref(), true
}

// Len returns the number of resolved types.
func (g *Graph) Len() int {
	return len(g.types)
}

// Names returns the resolved type names in sorted order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.types))
	for name := range g.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Types returns the resolved structures sorted by name.
func (g *Graph) Types() []*domain.TypeStructure {
	out := make([]*domain.TypeStructure, 0, len(g.types))
	for _, name := range g.Names() {
		out = append(out, g.types[name])
	}
	return out
}

// needsFull reports whether name still has to be fetched with properties.
func (g *Graph) needsFull(name string) bool {
	return !g.full[name] && !g.triedFull[name]
}

// needsLight reports whether name still has to be fetched at all.
func (g *Graph) needsLight(name string) bool {
	return !g.Has(name) && !g.triedLight[name] && !g.triedFull[name]
}
