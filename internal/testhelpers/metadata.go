package testhelpers

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// MetadataCall records one GetTypesByName call.
type MetadataCall struct {
	Names          []string
	WithProperties bool
}

// FakeMetadataSource serves type structures from memory and records every
// call it receives.
type FakeMetadataSource struct {
	mu      sync.Mutex
	types   map[string]*domain.TypeStructure
	failing map[string]error
	calls   []MetadataCall

	// Err, when set, fails every call as a whole.
	Err error
}

// NewFakeMetadataSource returns a source serving the given structures.
func NewFakeMetadataSource(types ...*domain.TypeStructure) *FakeMetadataSource {
	f := &FakeMetadataSource{
		types:   make(map[string]*domain.TypeStructure, len(types)),
		failing: make(map[string]error),
	}
	for _, t := range types {
		f.types[t.Name] = t
	}
	return f
}

// Fail makes every fetch of name report err for that name only.
func (f *FakeMetadataSource) Fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[name] = err
}

// GetTypesByName implements domain.MetadataSource.
func (f *FakeMetadataSource) GetTypesByName(_ context.Context, names []string, withProperties bool) (map[string]domain.TypeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sorted := slices.Clone(names)
	slices.Sort(sorted)
	f.calls = append(f.calls, MetadataCall{Names: sorted, WithProperties: withProperties})

	if f.Err != nil {
		return nil, f.Err
	}

	out := make(map[string]domain.TypeResult, len(names))
	for _, name := range names {
		if err, ok := f.failing[name]; ok {
			out[name] = domain.TypeResult{Err: err}
			continue
		}
		t, ok := f.types[name]
		if !ok {
			out[name] = domain.TypeResult{Err: fmt.Errorf("type %q: %w", name, domain.ErrNotFound)}
			continue
		}
		if !withProperties {
			t = t.WithoutProperties()
		}
		out[name] = domain.TypeResult{Type: t}
	}
	return out, nil
}

// Calls returns a copy of the recorded calls.
func (f *FakeMetadataSource) Calls() []MetadataCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// FetchCount returns how many calls requested name in the given mode.
func (f *FakeMetadataSource) FetchCount(name string, withProperties bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.WithProperties == withProperties && slices.Contains(c.Names, name) {
			n++
		}
	}
	return n
}

// TypeOpt customizes a structure built by NewType.
type TypeOpt func(*domain.TypeStructure)

// NewType builds a normalized type structure for tests.
func NewType(name string, opts ...TypeOpt) *domain.TypeStructure {
	t := domain.TypeStructure{
		Name:   name,
		Label:  name,
		Fields: map[string]*domain.FieldTemplate{},
	}
	for _, o := range opts {
		o(&t)
	}
	return domain.NewTypeStructure(t)
}

// WithLabelField sets the label field and adds it as a searchable text field.
func WithLabelField(fqn string) TypeOpt {
	return func(t *domain.TypeStructure) {
		t.LabelField = fqn
		t.Fields[fqn] = &domain.FieldTemplate{Widget: "InputText", Searchable: true}
	}
}

// WithField adds a plain text field.
func WithField(fqn string, searchable bool) TypeOpt {
	return func(t *domain.TypeStructure) {
		t.Fields[fqn] = &domain.FieldTemplate{Widget: "InputText", Searchable: searchable}
	}
}

// WithNested adds a Nested field embedding the given types.
func WithNested(fqn string, targets ...string) TypeOpt {
	return withTargets(fqn, vocab.WidgetNested, targets)
}

// WithSingleNested adds a SingleNested field embedding the given types.
func WithSingleNested(fqn string, targets ...string) TypeOpt {
	return withTargets(fqn, vocab.WidgetSingleNested, targets)
}

// WithLink adds a link field pointing to instances of the given types.
func WithLink(fqn string, targets ...string) TypeOpt {
	return withTargets(fqn, "DropdownSelect", targets)
}

// WithIncoming declares that instances of the given types link in via fqn.
func WithIncoming(fqn string, sources ...string) TypeOpt {
	return func(t *domain.TypeStructure) {
		if t.IncomingLinks == nil {
			t.IncomingLinks = map[string]*domain.IncomingLinkDef{}
		}
		l := &domain.IncomingLinkDef{}
		for _, s := range sources {
			l.SourceTypes = append(l.SourceTypes, domain.SourceType{
				Type:   domain.TypeRef{Name: s},
				Spaces: []string{"common"},
			})
		}
		t.IncomingLinks[fqn] = l
	}
}

// WithPromoted sets an explicit promoted field list.
func WithPromoted(fqns ...string) TypeOpt {
	return func(t *domain.TypeStructure) {
		t.PromotedFields = fqns
	}
}

// WithColor sets the type color.
func WithColor(color string) TypeOpt {
	return func(t *domain.TypeStructure) {
		t.Color = color
	}
}

func withTargets(fqn, widget string, targets []string) TypeOpt {
	return func(t *domain.TypeStructure) {
		f := &domain.FieldTemplate{Widget: widget}
		for _, name := range targets {
			f.TargetTypes = append(f.TargetTypes, domain.TypeRef{Name: name})
		}
		t.Fields[fqn] = f
	}
}
