package domain

import "github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"

// RawInstance is an untyped instance document as returned by the graph store:
// JSON-LD keywords plus namespaced property keys.
type RawInstance map[string]any

// ID returns the instance's @id or "" when absent.
func (r RawInstance) ID() string {
	id, _ := r[vocab.KeyID].(string)
	return id
}

// Types returns the declared @type names in declaration order. A single string
// is accepted as a one-element list.
func (r RawInstance) Types() []string {
	return Strings(r[vocab.KeyType])
}

// Strings converts a decoded JSON string or string list into []string,
// skipping anything that is not a string.
func Strings(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// AlternativeUser is a user who proposed an alternative value.
type AlternativeUser struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Alternative is one competing value for a field, as proposed by one or more
// users or by the inference system.
type Alternative struct {
	Value    any               `json:"value"`
	Selected bool              `json:"selected"`
	Users    []AlternativeUser `json:"users"`
}

// IncomingLink is one instance linking into an enriched instance.
type IncomingLink struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Space string `json:"space,omitempty"`
}

// EnrichedInstance is the UI view of an instance: its field templates cloned
// and overlaid with the instance's values.
type EnrichedInstance struct {
	ID                    string                      `json:"id"`
	Types                 []TypeRef                   `json:"types"`
	Space                 string                      `json:"space,omitempty"`
	Permissions           []string                    `json:"permissions,omitempty"`
	Name                  string                      `json:"name"`
	LabelField            string                      `json:"labelField,omitempty"`
	PromotedFields        []string                    `json:"promotedFields"`
	Fields                map[string]*FieldTemplate   `json:"fields,omitempty"`
	PossibleIncomingLinks map[string]*IncomingLinkDef `json:"possibleIncomingLinks,omitempty"`
	IncomingLinks         map[string][]IncomingLink   `json:"incomingLinks,omitempty"`
	Alternatives          map[string][]Alternative    `json:"alternatives,omitempty"`
}

// Summary returns a copy of e restricted to its promoted fields.
func (e *EnrichedInstance) Summary() *EnrichedInstance {
	out := *e
	out.Fields = make(map[string]*FieldTemplate, len(e.PromotedFields))
	for _, fqn := range e.PromotedFields {
		if f, ok := e.Fields[fqn]; ok {
			out.Fields[fqn] = f
		}
	}
	out.PossibleIncomingLinks = nil
	out.IncomingLinks = nil
	out.Alternatives = nil
	return &out
}

// InstanceLabel is the minimal view of an instance used for link badges.
type InstanceLabel struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Types []TypeRef `json:"types"`
	Space string    `json:"space,omitempty"`
}

// Label returns the label view of e.
func (e *EnrichedInstance) Label() *InstanceLabel {
	return &InstanceLabel{ID: e.ID, Name: e.Name, Types: e.Types, Space: e.Space}
}

// ScopeElement is one node of the release scope tree of an instance.
type ScopeElement struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	Types       []TypeRef       `json:"types"`
	Children    []*ScopeElement `json:"children,omitempty"`
	Status      string          `json:"status,omitempty"`
	Permissions []string        `json:"permissions,omitempty"`
}

// Walk calls fn for s and every descendant, parents before children.
func (s *ScopeElement) Walk(fn func(*ScopeElement)) {
	if s == nil {
		return
	}
	fn(s)
	for _, c := range s.Children {
		c.Walk(fn)
	}
}

// SearchQuery selects instances of one type, optionally in one space and
// matching a label fragment.
type SearchQuery struct {
	Space         string
	Type          string
	SearchByLabel string
	From          int
	Size          int
}

// SearchPage is one page of raw search results.
type SearchPage struct {
	Data  []RawInstance
	Total int
	From  int
	Size  int
}
