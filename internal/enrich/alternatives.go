package enrich

import (
	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// alternatives decodes the alternative values carried by raw. User ids are
// simplified, link-shaped values get their ids simplified, and a field whose
// selected alternative was proposed by the inference user is flagged as
// inferred.
func (e *Enricher) alternatives(raw domain.RawInstance, fields map[string]*domain.FieldTemplate) map[string][]domain.Alternative {
	doc, ok := raw[e.vocab.Alternatives].(map[string]any)
	if !ok || len(doc) == 0 {
		return nil
	}

	out := make(map[string][]domain.Alternative, len(doc))
	for fqn, v := range doc {
		var alts []domain.Alternative
		for _, item := range asList(v) {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			alt := domain.Alternative{
				Value:    e.ids.SimplifyInPlace(domain.CloneValue(m[e.vocab.Value])),
				Selected: m[e.vocab.Selected] == true,
			}
			inferred := false
			for _, u := range asList(m[e.vocab.User]) {
				um, ok := u.(map[string]any)
				if !ok {
					continue
				}
				uid, _ := um[vocab.KeyID].(string)
				if e.isInferenceUser(uid) {
					inferred = true
				}
				name, _ := um[e.vocab.LinkLabel].(string)
				picture, _ := um[e.vocab.UserPicture].(string)
				alt.Users = append(alt.Users, domain.AlternativeUser{
					ID:      e.ids.SimplifyID(uid),
					Name:    name,
					Picture: picture,
				})
			}
			if alt.Users == nil {
				alt.Users = []domain.AlternativeUser{}
			}
			if alt.Selected && inferred {
				if f, ok := fields[fqn]; ok {
					f.Inferred = true
				}
			}
			alts = append(alts, alt)
		}
		if alts != nil {
			out[fqn] = alts
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (e *Enricher) isInferenceUser(id string) bool {
	if e.inferenceUser == "" || id == "" {
		return false
	}
	return id == e.inferenceUser || e.ids.SimplifyID(id) == e.ids.SimplifyID(e.inferenceUser)
}

// incomingLinks decodes the instances linking into raw, with simplified ids.
func (e *Enricher) incomingLinks(raw domain.RawInstance) map[string][]domain.IncomingLink {
	doc, ok := raw[e.vocab.IncomingLinks].(map[string]any)
	if !ok || len(doc) == 0 {
		return nil
	}

	out := make(map[string][]domain.IncomingLink, len(doc))
	for fqn, v := range doc {
		for _, item := range asList(v) {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			id, _ := m[vocab.KeyID].(string)
			if id == "" {
				continue
			}
			label, _ := m[e.vocab.LinkLabel].(string)
			space, _ := m[e.vocab.Space].(string)
			out[fqn] = append(out[fqn], domain.IncomingLink{
				ID:    e.ids.SimplifyID(id),
				Label: label,
				Space: space,
			})
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}
