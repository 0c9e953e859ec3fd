package domain

import "maps"

// Clone returns a deep copy of f. Nested field maps, target types, bounds and
// any overlaid value are copied so that the clone shares no mutable state with
// f.
func (f *FieldTemplate) Clone() *FieldTemplate {
	if f == nil {
		return nil
	}
	c := *f
	c.MaxLength = clonePtr(f.MaxLength)
	c.MinItems = clonePtr(f.MinItems)
	c.MaxItems = clonePtr(f.MaxItems)
	c.MinValue = clonePtr(f.MinValue)
	c.MaxValue = clonePtr(f.MaxValue)
	if f.TargetTypes != nil {
		c.TargetTypes = append([]TypeRef(nil), f.TargetTypes...)
	}
	c.Fields = CloneFields(f.Fields)
	c.Value = CloneValue(f.Value)
	return &c
}

// CloneFields deep-copies a field map. A nil map stays nil.
func CloneFields(fields map[string]*FieldTemplate) map[string]*FieldTemplate {
	if fields == nil {
		return nil
	}
	out := make(map[string]*FieldTemplate, len(fields))
	for fqn, f := range fields {
		out[fqn] = f.Clone()
	}
	return out
}

// Clone returns a deep copy of l.
func (l *IncomingLinkDef) Clone() *IncomingLinkDef {
	if l == nil {
		return nil
	}
	c := *l
	c.SourceTypes = make([]SourceType, len(l.SourceTypes))
	for i, st := range l.SourceTypes {
		c.SourceTypes[i] = SourceType{Type: st.Type, Spaces: append([]string(nil), st.Spaces...)}
	}
	return &c
}

// CloneValue deep-copies a decoded JSON value. Maps and slices are copied
// recursively; scalars are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case RawInstance:
		return RawInstance(CloneValue(map[string]any(t)).(map[string]any))
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		return maps.Clone(t)
	default:
		return v
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
