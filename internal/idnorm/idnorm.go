// Package idnorm converts instance identifiers between the short UUID form
// exposed to the UI and the fully-qualified form used by the graph store.
package idnorm

import (
	"strings"

	"github.com/google/uuid"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// Normalizer qualifies and simplifies ids against one instance namespace.
type Normalizer struct {
	prefix string
}

// New returns a Normalizer for the given namespace prefix. A trailing "/" is
// appended when missing.
func New(prefix string) *Normalizer {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Normalizer{prefix: prefix}
}

// Prefix returns the namespace prefix, always ending with "/".
func (n *Normalizer) Prefix() string {
	return n.prefix
}

// QualifyID returns the fully-qualified form of id. Absolute ids are returned
// unchanged.
func (n *Normalizer) QualifyID(id string) string {
	if id == "" || isAbsolute(id) {
		return id
	}
	return n.prefix + id
}

// Qualify returns a copy of v in which every "@id" string of every nested
// object has been qualified.
func (n *Normalizer) Qualify(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			if k == vocab.KeyID {
				if s, ok := e.(string); ok {
					out[k] = n.QualifyID(s)
					continue
				}
			}
			out[k] = n.Qualify(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = n.Qualify(e)
		}
		return out
	default:
		return v
	}
}

// Simplify returns the UUID suffix of id. ok is false when id is outside the
// namespace or the suffix is not a UUID.
func (n *Normalizer) Simplify(id string) (uuid.UUID, bool) {
	suffix, found := strings.CutPrefix(id, n.prefix)
	if !found {
		return uuid.Nil, false
	}
	u, err := uuid.Parse(suffix)
	if err != nil {
		return uuid.Nil, false
	}
	return u, true
}

// SimplifyID returns the short form of id, or id itself when it cannot be
// simplified.
func (n *Normalizer) SimplifyID(id string) string {
	if u, ok := n.Simplify(id); ok {
		return u.String()
	}
	return id
}

// SimplifyInPlace replaces every simplifiable "@id" found in v, at any depth,
// with its short form. Maps are modified in place; v is returned for
// convenience.
func (n *Normalizer) SimplifyInPlace(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			if k == vocab.KeyID {
				if s, ok := e.(string); ok {
					t[k] = n.SimplifyID(s)
				}
				continue
			}
			n.SimplifyInPlace(e)
		}
	case []any:
		for _, e := range t {
			n.SimplifyInPlace(e)
		}
	}
	return v
}

func isAbsolute(id string) bool {
	return strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://")
}
