package enrich

import (
	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/merge"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/typegraph"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// overlay sets the value of every field found in doc. Values are deep-copied
// before link ids are simplified, so doc is left untouched.
func (e *Enricher) overlay(fields map[string]*domain.FieldTemplate, doc map[string]any, g *typegraph.Graph) {
	for fqn, f := range fields {
		raw, ok := doc[fqn]
		if !ok || raw == nil {
			continue
		}
		f.Value = e.value(f, domain.CloneValue(raw), g)
	}
}

func (e *Enricher) value(f *domain.FieldTemplate, raw any, g *typegraph.Graph) any {
	switch {
	case f.IsNested():
		sub := f.Fields
		if len(sub) == 0 && len(f.TargetTypes) > 0 {
			// Cut at a nesting cycle; expand the targets again for this value.
			sub = merge.Fields(f.TargetTypeNames(), g)
		}
		if list, ok := raw.([]any); ok {
			out := make([]any, len(list))
			for i, el := range list {
				out[i] = e.nested(sub, el, g)
			}
			return out
		}
		return e.nested(sub, raw, g)
	case f.IsLink() || linkShaped(raw):
		return e.ids.SimplifyInPlace(raw)
	default:
		return raw
	}
}

// nested maps one embedded record onto the short field names of the nested
// field's sub-schema. Scalars pass through unchanged.
func (e *Enricher) nested(fields map[string]*domain.FieldTemplate, raw any, g *typegraph.Graph) any {
	doc, ok := raw.(map[string]any)
	if !ok {
		return raw
	}

	out := make(map[string]any, len(fields)+2)
	if id, ok := doc[vocab.KeyID].(string); ok {
		out[vocab.KeyID] = e.ids.SimplifyID(id)
	}
	if t, ok := doc[vocab.KeyType]; ok {
		out[vocab.KeyType] = t
	}
	for fqn, sub := range fields {
		v, ok := doc[fqn]
		if !ok || v == nil {
			continue
		}
		out[sub.Name] = e.value(sub, v, g)
	}
	return out
}

// linkShaped reports whether raw is an {"@id": ...} reference or a non-empty
// list of them.
func linkShaped(raw any) bool {
	switch v := raw.(type) {
	case map[string]any:
		_, ok := v[vocab.KeyID].(string)
		return ok
	case []any:
		if len(v) == 0 {
			return false
		}
		for _, el := range v {
			if !linkShaped(el) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
