// Package merge builds per-instance field maps out of the field templates of
// resolved types.
package merge

import (
	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/typegraph"
)

// Fields returns the union of the field templates of typeNames, keyed by
// fully-qualified name. Every template is cloned; the structures in g are
// never modified. When two types define the same field, the type listed first
// wins.
//
// Nested fields get their Fields populated with the merged templates of
// their target types, recursively. A nested field whose target types are all
// already being expanded higher up the same branch receives one flat,
// unexpanded level of those types' fields; its own nested fields are left
// with an empty map.
func Fields(typeNames []string, g *typegraph.Graph) map[string]*domain.FieldTemplate {
	return expand(typeNames, g, map[string]bool{})
}

func expand(typeNames []string, g *typegraph.Graph, branch map[string]bool) map[string]*domain.FieldTemplate {
	fields := flat(typeNames, g)

	inner := make(map[string]bool, len(branch)+len(typeNames))
	for name := range branch {
		inner[name] = true
	}
	for _, name := range typeNames {
		inner[name] = true
	}

	for _, f := range fields {
		if !f.IsNested() {
			continue
		}
		targets := f.TargetTypeNames()
		if coveredBy(targets, inner) {
			f.Fields = cut(flat(targets, g))
			continue
		}
		f.Fields = expand(targets, g, inner)
	}
	return fields
}

// flat merges the cloned templates of typeNames without expanding nested
// fields.
func flat(typeNames []string, g *typegraph.Graph) map[string]*domain.FieldTemplate {
	fields := make(map[string]*domain.FieldTemplate)
	for _, name := range typeNames {
		t, ok := g.Get(name)
		if !ok {
			continue
		}
		for fqn, f := range t.Fields {
			if _, exists := fields[fqn]; exists {
				continue
			}
			fields[fqn] = f.Clone()
		}
	}
	return fields
}

// cut gives every nested field of a flat level an empty sub-field map.
func cut(fields map[string]*domain.FieldTemplate) map[string]*domain.FieldTemplate {
	for _, f := range fields {
		if f.IsNested() {
			f.Fields = map[string]*domain.FieldTemplate{}
		}
	}
	return fields
}

func coveredBy(names []string, set map[string]bool) bool {
	for _, n := range names {
		if !set[n] {
			return false
		}
	}
	return true
}
