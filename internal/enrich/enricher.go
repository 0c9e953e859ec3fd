// Package enrich overlays raw instance documents onto the merged field
// templates of their types.
package enrich

import (
	"fmt"
	"slices"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/merge"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/typegraph"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// Enricher turns one raw instance into its UI view.
type Enricher struct {
	ids           *idnorm.Normalizer
	vocab         *vocab.Vocabulary
	inferenceUser string
}

// NewEnricher returns an Enricher. inferenceUser is the id, short or
// fully-qualified, of the user the inference system records its
// alternatives under.
func NewEnricher(ids *idnorm.Normalizer, v *vocab.Vocabulary, inferenceUser string) *Enricher {
	return &Enricher{ids: ids, vocab: v, inferenceUser: inferenceUser}
}

// Enrich builds the enriched view of raw from the structures in g. g is only
// read. It fails with ErrMissingTypeInformation when raw declares no type;
// every other absence degrades to an empty value.
func (e *Enricher) Enrich(raw domain.RawInstance, g *typegraph.Graph) (*domain.EnrichedInstance, error) {
	id := e.ids.SimplifyID(raw.ID())
	typeNames := raw.Types()
	if len(typeNames) == 0 {
		return nil, fmt.Errorf("instance %q: %w", id, domain.ErrMissingTypeInformation)
	}

	out := &domain.EnrichedInstance{
		ID:          id,
		Types:       typeRefs(typeNames, g),
		Space:       e.space(raw),
		Permissions: domain.Strings(raw[e.vocab.Permissions]),
	}

	out.Fields = merge.Fields(typeNames, g)
	annotateTargets(out.Fields, g)
	e.overlay(out.Fields, raw, g)

	out.LabelField, out.PromotedFields = labelAndPromoted(typeNames, g)
	out.Name = e.name(raw, out.LabelField)

	out.Alternatives = e.alternatives(raw, out.Fields)
	out.IncomingLinks = e.incomingLinks(raw)
	out.PossibleIncomingLinks = possibleIncomingLinks(typeNames, g)
	return out, nil
}

// EnrichLabel builds the label view of raw. Only label fields are needed, so
// g may have been resolved without properties.
func (e *Enricher) EnrichLabel(raw domain.RawInstance, g *typegraph.Graph) (*domain.InstanceLabel, error) {
	id := e.ids.SimplifyID(raw.ID())
	typeNames := raw.Types()
	if len(typeNames) == 0 {
		return nil, fmt.Errorf("instance %q: %w", id, domain.ErrMissingTypeInformation)
	}
	labelField, _ := labelAndPromoted(typeNames, g)
	return &domain.InstanceLabel{
		ID:    id,
		Name:  e.name(raw, labelField),
		Types: typeRefs(typeNames, g),
		Space: e.space(raw),
	}, nil
}

func (e *Enricher) space(raw domain.RawInstance) string {
	s, _ := raw[e.vocab.Space].(string)
	return s
}

func (e *Enricher) name(raw domain.RawInstance, labelField string) string {
	if labelField == "" {
		return ""
	}
	switch v := raw[labelField].(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
		return ""
	case map[string]any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// typeRefs resolves declared type names against g, skipping unknown ones.
func typeRefs(typeNames []string, g *typegraph.Graph) []domain.TypeRef {
	refs := make([]domain.TypeRef, 0, len(typeNames))
	for _, name := range typeNames {
		if ref, ok := g.Ref(name); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// labelAndPromoted returns the first label field among the declared types and
// the first-seen union of their promoted fields, with the label field moved to
// the front.
func labelAndPromoted(typeNames []string, g *typegraph.Graph) (string, []string) {
	labelField := ""
	promoted := []string{}
	for _, name := range typeNames {
		t, ok := g.Get(name)
		if !ok {
			continue
		}
		if labelField == "" {
			labelField = t.LabelField
		}
		for _, fqn := range t.PromotedFields {
			if !slices.Contains(promoted, fqn) {
				promoted = append(promoted, fqn)
			}
		}
	}
	if labelField != "" {
		promoted = slices.DeleteFunc(promoted, func(fqn string) bool { return fqn == labelField })
		promoted = slices.Insert(promoted, 0, labelField)
	}
	return labelField, promoted
}

// annotateTargets replaces bare target type names with their badges.
func annotateTargets(fields map[string]*domain.FieldTemplate, g *typegraph.Graph) {
	for _, f := range fields {
		for i, t := range f.TargetTypes {
			if ref, ok := g.Ref(t.Name); ok {
				f.TargetTypes[i] = ref
			}
		}
		annotateTargets(f.Fields, g)
	}
}

// possibleIncomingLinks merges the incoming link definitions of the declared
// types. Source types of the same relation are unioned by name.
func possibleIncomingLinks(typeNames []string, g *typegraph.Graph) map[string]*domain.IncomingLinkDef {
	var out map[string]*domain.IncomingLinkDef
	for _, name := range typeNames {
		t, ok := g.Get(name)
		if !ok {
			continue
		}
		for fqn, l := range t.IncomingLinks {
			if out == nil {
				out = make(map[string]*domain.IncomingLinkDef)
			}
			existing, ok := out[fqn]
			if !ok {
				existing = &domain.IncomingLinkDef{FullyQualifiedName: fqn}
				out[fqn] = existing
			}
			for _, st := range l.Clone().SourceTypes {
				if slices.ContainsFunc(existing.SourceTypes, func(s domain.SourceType) bool {
					return s.Type.Name == st.Type.Name
				}) {
					continue
				}
				if ref, ok := g.Ref(st.Type.Name); ok {
					st.Type = ref
				}
				existing.SourceTypes = append(existing.SourceTypes, st)
			}
		}
	}
	return out
}
