// Package seed loads the local graph store with the type structures and
// instances embedded in fixtures/.
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/store"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

//go:embed fixtures/*.yaml
var fixtures embed.FS

// Seed inserts all fixture data into s. It is idempotent: types are
// rewritten, instances that already exist are left untouched. Types are
// seeded before instances so instance labels resolve.
func Seed(ctx context.Context, s *store.Store, ids *idnorm.Normalizer) error {
	types, err := Types()
	if err != nil {
		return err
	}
	for _, t := range types {
		if err := s.SaveType(ctx, t); err != nil {
			return fmt.Errorf("seed type %s: %w", t.Name, err)
		}
	}

	instances, err := Instances()
	if err != nil {
		return err
	}
	created := 0
	for _, in := range instances {
		ok, err := seedInstance(ctx, s, ids, in)
		if err != nil {
			return fmt.Errorf("seed instance %s: %w", in.ID, err)
		}
		if ok {
			created++
		}
	}

	slog.Info("seeded local graph store", "types", len(types), "instances", created)
	return nil
}

func seedInstance(ctx context.Context, s *store.Store, ids *idnorm.Normalizer, in InstanceFixture) (bool, error) {
	id := ids.QualifyID(in.ID)
	_, err := s.GetInstance(ctx, id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	payload, _ := ids.Qualify(in.Properties).(map[string]any)
	if payload == nil {
		payload = map[string]any{}
	}
	types := make([]any, len(in.Types))
	for i, t := range in.Types {
		types[i] = t
	}
	payload[vocab.KeyType] = types
	if len(in.Permissions) > 0 {
		perms := make([]any, len(in.Permissions))
		for i, p := range in.Permissions {
			perms[i] = p
		}
		payload[vocab.Default().Permissions] = perms
	}
	if len(in.Alternatives) > 0 {
		payload[vocab.Default().Alternatives] = in.Alternatives
	}

	if _, err := s.CreateInstance(ctx, in.Space, id, payload); err != nil {
		return false, err
	}
	if in.Released {
		if err := s.Release(ctx, id); err != nil {
			return false, err
		}
	}
	return true, nil
}

// TypeFixture is one type structure as written in fixtures/types.yaml.
type TypeFixture struct {
	Name           string            `yaml:"name"`
	Label          string            `yaml:"label"`
	Color          string            `yaml:"color"`
	Description    string            `yaml:"description"`
	LabelField     string            `yaml:"labelField"`
	PromotedFields []string          `yaml:"promotedFields"`
	EmbeddedOnly   bool              `yaml:"embeddedOnly"`
	Fields         []FieldFixture    `yaml:"fields"`
	IncomingLinks  []IncomingFixture `yaml:"incomingLinks"`
}

// FieldFixture is one field template of a TypeFixture.
type FieldFixture struct {
	FQN         string   `yaml:"fqn"`
	Label       string   `yaml:"label"`
	Order       int      `yaml:"order"`
	Widget      string   `yaml:"widget"`
	Searchable  bool     `yaml:"searchable"`
	Required    bool     `yaml:"required"`
	Regex       string   `yaml:"regex"`
	MaxLength   *int     `yaml:"maxLength"`
	MinItems    *int     `yaml:"minItems"`
	MaxItems    *int     `yaml:"maxItems"`
	MinValue    *float64 `yaml:"minValue"`
	MaxValue    *float64 `yaml:"maxValue"`
	TargetTypes []string `yaml:"targetTypes"`
}

// IncomingFixture is one incoming link definition of a TypeFixture.
type IncomingFixture struct {
	FQN         string `yaml:"fqn"`
	SourceTypes []struct {
		Type   string   `yaml:"type"`
		Spaces []string `yaml:"spaces"`
	} `yaml:"sourceTypes"`
}

// InstanceFixture is one instance as written in fixtures/instances.yaml.
type InstanceFixture struct {
	ID           string         `yaml:"id"`
	Space        string         `yaml:"space"`
	Types        []string       `yaml:"types"`
	Permissions  []string       `yaml:"permissions"`
	Released     bool           `yaml:"released"`
	Properties   map[string]any `yaml:"properties"`
	Alternatives map[string]any `yaml:"alternatives"`
}

// Types decodes the embedded type fixtures into normalized structures.
func Types() ([]*domain.TypeStructure, error) {
	var raw []TypeFixture
	if err := decode("fixtures/types.yaml", &raw); err != nil {
		return nil, err
	}
	out := make([]*domain.TypeStructure, 0, len(raw))
	for _, tf := range raw {
		out = append(out, tf.structure())
	}
	return out, nil
}

// Instances decodes the embedded instance fixtures.
func Instances() ([]InstanceFixture, error) {
	var out []InstanceFixture
	if err := decode("fixtures/instances.yaml", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (tf TypeFixture) structure() *domain.TypeStructure {
	t := domain.TypeStructure{
		Name:           tf.Name,
		Label:          tf.Label,
		Color:          tf.Color,
		Description:    tf.Description,
		LabelField:     tf.LabelField,
		PromotedFields: tf.PromotedFields,
		EmbeddedOnly:   tf.EmbeddedOnly,
		Fields:         make(map[string]*domain.FieldTemplate, len(tf.Fields)),
	}
	for _, ff := range tf.Fields {
		f := &domain.FieldTemplate{
			Label:      ff.Label,
			Order:      ff.Order,
			Widget:     ff.Widget,
			Searchable: ff.Searchable,
			Required:   ff.Required,
			Regex:      ff.Regex,
			MaxLength:  ff.MaxLength,
			MinItems:   ff.MinItems,
			MaxItems:   ff.MaxItems,
			MinValue:   ff.MinValue,
			MaxValue:   ff.MaxValue,
		}
		for _, target := range ff.TargetTypes {
			f.TargetTypes = append(f.TargetTypes, domain.TypeRef{Name: target})
		}
		t.Fields[ff.FQN] = f
	}
	if len(tf.IncomingLinks) > 0 {
		t.IncomingLinks = make(map[string]*domain.IncomingLinkDef, len(tf.IncomingLinks))
		for _, lf := range tf.IncomingLinks {
			l := &domain.IncomingLinkDef{}
			for _, st := range lf.SourceTypes {
				l.SourceTypes = append(l.SourceTypes, domain.SourceType{
					Type:   domain.TypeRef{Name: st.Type},
					Spaces: st.Spaces,
				})
			}
			t.IncomingLinks[lf.FQN] = l
		}
	}
	return domain.NewTypeStructure(t)
}

func decode(path string, v any) error {
	b, err := fixtures.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
