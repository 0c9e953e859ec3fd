package domain

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// TypeRef is the lightweight badge of a type shown next to an instance or
// inside a link definition.
type TypeRef struct {
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
	LabelField  string `json:"labelField,omitempty"`
}

// FieldTemplate is the static definition of one property of a type. Fields
// and Value are only set on clones produced by the merger, never on the
// template held by a TypeStructure.
type FieldTemplate struct {
	FullyQualifiedName string                    `json:"fullyQualifiedName"`
	Name               string                    `json:"name"`
	Label              string                    `json:"label"`
	Order              int                       `json:"order,omitempty"`
	Widget             string                    `json:"widget,omitempty"`
	Searchable         bool                      `json:"searchable,omitempty"`
	Required           bool                      `json:"required,omitempty"`
	Regex              string                    `json:"regex,omitempty"`
	MaxLength          *int                      `json:"maxLength,omitempty"`
	MinItems           *int                      `json:"minItems,omitempty"`
	MaxItems           *int                      `json:"maxItems,omitempty"`
	MinValue           *float64                  `json:"minValue,omitempty"`
	MaxValue           *float64                  `json:"maxValue,omitempty"`
	TargetTypes        []TypeRef                 `json:"targetTypes,omitempty"`
	Fields             map[string]*FieldTemplate `json:"fields,omitempty"`
	Value              any                       `json:"value,omitempty"`
	Inferred           bool                      `json:"isInferred,omitempty"`
}

// IsNested reports whether the field embeds sub-records governed by the
// field templates of its target types.
func (f *FieldTemplate) IsNested() bool {
	return f.Widget == vocab.WidgetNested || f.Widget == vocab.WidgetSingleNested
}

// IsLink reports whether the field points to other instances by id.
func (f *FieldTemplate) IsLink() bool {
	return !f.IsNested() && len(f.TargetTypes) > 0
}

// TargetTypeNames returns the names of the field's target types in
// declaration order.
func (f *FieldTemplate) TargetTypeNames() []string {
	names := make([]string, 0, len(f.TargetTypes))
	for _, t := range f.TargetTypes {
		names = append(names, t.Name)
	}
	return names
}

// SourceType is one type allowed to link into the owning type, together with
// the spaces in which such links exist.
type SourceType struct {
	Type   TypeRef  `json:"type"`
	Spaces []string `json:"spaces,omitempty"`
}

// IncomingLinkDef describes a reverse relation declared by a type.
type IncomingLinkDef struct {
	FullyQualifiedName string       `json:"fullyQualifiedName"`
	SourceTypes        []SourceType `json:"sourceTypes"`
}

// TypeStructure is one graph type with its field templates. Values of this
// type are read-only once built; consumers clone fields before writing to
// them.
type TypeStructure struct {
	Name           string                      `json:"name"`
	Label          string                      `json:"label,omitempty"`
	Color          string                      `json:"color,omitempty"`
	Description    string                      `json:"description,omitempty"`
	LabelField     string                      `json:"labelField,omitempty"`
	Fields         map[string]*FieldTemplate   `json:"fields,omitempty"`
	PromotedFields []string                    `json:"promotedFields"`
	IncomingLinks  map[string]*IncomingLinkDef `json:"incomingLinks,omitempty"`
	EmbeddedOnly   bool                        `json:"embeddedOnly,omitempty"`
}

// Ref returns the badge of the type.
func (t *TypeStructure) Ref() TypeRef {
	return TypeRef{
		Name:        t.Name,
		Label:       t.Label,
		Color:       t.Color,
		Description: t.Description,
		LabelField:  t.LabelField,
	}
}

// NewTypeStructure normalizes t into a TypeStructure satisfying the field and
// promoted field invariants. It is the only construction path used by
// metadata sources; t itself is not modified.
//
// When t.PromotedFields is empty, every searchable field is promoted.
func NewTypeStructure(t TypeStructure) *TypeStructure {
	out := t
	out.Fields = make(map[string]*FieldTemplate, len(t.Fields))
	for fqn, f := range t.Fields {
		c := f.Clone()
		c.FullyQualifiedName = fqn
		if c.Name == "" {
			c.Name = ShortName(fqn)
		}
		if c.Label == "" {
			c.Label = capitalize(c.Name)
		}
		c.Fields = nil
		c.Value = nil
		c.Inferred = false
		out.Fields[fqn] = c
	}

	candidates := t.PromotedFields
	if len(candidates) == 0 {
		for fqn, f := range out.Fields {
			if f.Searchable {
				candidates = append(candidates, fqn)
			}
		}
	}
	out.PromotedFields = promotedFields(out.LabelField, candidates, out.Fields)

	if len(t.IncomingLinks) > 0 {
		out.IncomingLinks = make(map[string]*IncomingLinkDef, len(t.IncomingLinks))
		for fqn, l := range t.IncomingLinks {
			c := l.Clone()
			c.FullyQualifiedName = fqn
			out.IncomingLinks[fqn] = c
		}
	} else {
		out.IncomingLinks = nil
	}
	return &out
}

// WithoutProperties returns a copy of t carrying only the information a
// metadata source returns when properties are not requested.
func (t *TypeStructure) WithoutProperties() *TypeStructure {
	out := *t
	out.Fields = nil
	out.IncomingLinks = nil
	out.PromotedFields = promotedFields(t.LabelField, nil, nil)
	return &out
}

// promotedFields deduplicates candidates, drops anything that is neither a
// field nor the label field, sorts the rest and puts the label field first.
func promotedFields(labelField string, candidates []string, fields map[string]*FieldTemplate) []string {
	seen := make(map[string]bool, len(candidates))
	rest := make([]string, 0, len(candidates))
	for _, fqn := range candidates {
		if fqn == labelField || seen[fqn] {
			continue
		}
		if _, ok := fields[fqn]; !ok {
			continue
		}
		seen[fqn] = true
		rest = append(rest, fqn)
	}
	slices.Sort(rest)
	if labelField == "" {
		return rest
	}
	return append([]string{labelField}, rest...)
}

// ShortName returns the last path or fragment segment of a fully-qualified
// property name.
func ShortName(fqn string) string {
	i := strings.LastIndexAny(fqn, "/#")
	if i < 0 || i == len(fqn)-1 {
		return fqn
	}
	return fqn[i+1:]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
