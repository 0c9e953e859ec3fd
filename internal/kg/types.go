package kg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// GetTypesByName implements domain.MetadataSource. Names missing from the
// response or answered with an error entry fail individually.
func (c *Client) GetTypesByName(ctx context.Context, names []string, withProperties bool) (map[string]domain.TypeResult, error) {
	out := make(map[string]domain.TypeResult, len(names))
	if len(names) == 0 {
		return out, nil
	}

	path := "/types/list?withProperties=" + strconv.FormatBool(withProperties)
	var env envelope
	if err := c.request(ctx, "get types", "POST", path, names, &env); err != nil {
		return nil, err
	}
	var entries map[string]entry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		return nil, domain.Upstream("get types", fmt.Errorf("decode types: %w", err))
	}

	for _, name := range names {
		e, ok := entries[name]
		switch {
		case !ok:
			out[name] = domain.TypeResult{Err: fmt.Errorf("type %q: %w", name, domain.ErrNotFound)}
		case e.Error != nil:
			out[name] = domain.TypeResult{Err: entryErr(name, e.Error)}
		default:
			var doc map[string]any
			if err := json.Unmarshal(e.Data, &doc); err != nil {
				out[name] = domain.TypeResult{Err: fmt.Errorf("type %q: %w", name, err)}
				continue
			}
			t, err := TypeFromWire(c.vocab, doc)
			if err != nil {
				out[name] = domain.TypeResult{Err: fmt.Errorf("type %q: %w", name, err)}
				continue
			}
			if !withProperties {
				t = t.WithoutProperties()
			}
			out[name] = domain.TypeResult{Type: t}
		}
	}
	return out, nil
}

// TypeFromWire maps a type document keyed by the vocabulary onto a
// normalized type structure.
func TypeFromWire(v *vocab.Vocabulary, doc map[string]any) (*domain.TypeStructure, error) {
	name := str(doc[v.TypeName])
	if name == "" {
		return nil, errors.New("type document without name")
	}
	t := domain.TypeStructure{
		Name:           name,
		Label:          str(doc[v.TypeLabel]),
		Color:          str(doc[v.TypeColor]),
		Description:    str(doc[v.TypeDesc]),
		LabelField:     str(doc[v.LabelProperty]),
		PromotedFields: domain.Strings(doc[v.PromotedFields]),
		EmbeddedOnly:   boolean(doc[v.EmbeddedOnly]),
		Fields:         map[string]*domain.FieldTemplate{},
	}

	for _, p := range objects(doc[v.Properties]) {
		fqn := str(p[v.FieldName])
		if fqn == "" {
			continue
		}
		f := &domain.FieldTemplate{
			Label:      str(p[v.FieldLabel]),
			Widget:     str(p[v.FieldWidget]),
			Searchable: boolean(p[v.Searchable]),
			Required:   boolean(p[v.Required]),
			Regex:      str(p[v.Regex]),
			MaxLength:  intPtr(p[v.MaxLength]),
			MinItems:   intPtr(p[v.MinItems]),
			MaxItems:   intPtr(p[v.MaxItems]),
			MinValue:   floatPtr(p[v.MinValue]),
			MaxValue:   floatPtr(p[v.MaxValue]),
		}
		if order := intPtr(p[v.FieldOrder]); order != nil {
			f.Order = *order
		}
		f.TargetTypes = typeRefs(v, p[v.TargetTypes])
		t.Fields[fqn] = f
	}

	for _, l := range objects(doc[v.IncomingLinks]) {
		fqn := str(l[v.FieldName])
		if fqn == "" {
			continue
		}
		def := &domain.IncomingLinkDef{}
		for _, st := range objects(l[v.SourceTypes]) {
			refs := typeRefs(v, st[v.SourceType])
			if len(refs) == 0 {
				continue
			}
			def.SourceTypes = append(def.SourceTypes, domain.SourceType{
				Type:   refs[0],
				Spaces: domain.Strings(st[v.SourceSpaces]),
			})
		}
		if t.IncomingLinks == nil {
			t.IncomingLinks = map[string]*domain.IncomingLinkDef{}
		}
		t.IncomingLinks[fqn] = def
	}

	return domain.NewTypeStructure(t), nil
}

// typeRefs reads a type reference list whose elements are either plain type
// names or objects carrying the type name.
func typeRefs(v *vocab.Vocabulary, val any) []domain.TypeRef {
	var out []domain.TypeRef
	items, ok := val.([]any)
	if !ok {
		items = []any{val}
	}
	for _, item := range items {
		switch e := item.(type) {
		case string:
			if e != "" {
				out = append(out, domain.TypeRef{Name: e})
			}
		case map[string]any:
			name := str(e[v.TypeName])
			if name == "" {
				name = str(e[vocab.KeyID])
			}
			if name != "" {
				out = append(out, domain.TypeRef{Name: name})
			}
		}
	}
	return out
}

func objects(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func intPtr(v any) *int {
	f, ok := number(v)
	if !ok {
		return nil
	}
	i := int(f)
	return &i
}

func floatPtr(v any) *float64 {
	f, ok := number(v)
	if !ok {
		return nil
	}
	return &f
}
