package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
)

// TypeStore persists type structures.
type TypeStore struct {
	db *sql.DB
}

// NewTypeStore creates a new TypeStore.
func NewTypeStore(db *sql.DB) *TypeStore {
	return &TypeStore{db: db}
}

// GetTypesByName implements domain.MetadataSource. Unknown names are reported
// as per-name ErrNotFound results; a database failure fails the whole call.
func (s *TypeStore) GetTypesByName(ctx context.Context, names []string, withProperties bool) (map[string]domain.TypeResult, error) {
	out := make(map[string]domain.TypeResult, len(names))
	for _, name := range names {
		if _, done := out[name]; done {
			continue
		}
		t, err := s.load(ctx, name, withProperties)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			out[name] = domain.TypeResult{Err: err}
		case err != nil:
			return nil, err
		default:
			out[name] = domain.TypeResult{Type: t}
		}
	}
	return out, nil
}

func (s *TypeStore) load(ctx context.Context, name string, withProperties bool) (*domain.TypeStructure, error) {
	var (
		t        domain.TypeStructure
		promoted string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, label, color, description, label_field, promoted_fields, embedded_only
		 FROM type_structures WHERE name = ?`, name,
	).Scan(&t.Name, &t.Label, &t.Color, &t.Description, &t.LabelField, &promoted, &t.EmbeddedOnly)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("type %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load type %q: %w", name, err)
	}
	if err := decodeJSON(promoted, &t.PromotedFields); err != nil {
		return nil, fmt.Errorf("type %q promoted fields: %w", name, err)
	}

	if !withProperties {
		return domain.NewTypeStructure(t).WithoutProperties(), nil
	}

	if t.Fields, err = s.fields(ctx, name); err != nil {
		return nil, err
	}
	if t.IncomingLinks, err = s.incomingLinks(ctx, name); err != nil {
		return nil, err
	}
	return domain.NewTypeStructure(t), nil
}

func (s *TypeStore) fields(ctx context.Context, typeName string) (map[string]*domain.FieldTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fqn, name, label, display_order, widget, searchable, required, regex,
		        max_length, min_items, max_items, min_value, max_value, target_types
		 FROM field_templates WHERE type_name = ?`, typeName)
	if err != nil {
		return nil, fmt.Errorf("query fields of %q: %w", typeName, err)
	}
	defer func() { _ = rows.Close() }()

	fields := make(map[string]*domain.FieldTemplate)
	for rows.Next() {
		var (
			f                            domain.FieldTemplate
			maxLength, minItems, maxItem sql.NullInt64
			minValue, maxValue           sql.NullFloat64
			targets                      string
		)
		if err := rows.Scan(&f.FullyQualifiedName, &f.Name, &f.Label, &f.Order, &f.Widget,
			&f.Searchable, &f.Required, &f.Regex,
			&maxLength, &minItems, &maxItem, &minValue, &maxValue, &targets); err != nil {
			return nil, fmt.Errorf("scan field of %q: %w", typeName, err)
		}
		f.MaxLength = intPtr(maxLength)
		f.MinItems = intPtr(minItems)
		f.MaxItems = intPtr(maxItem)
		f.MinValue = floatPtr(minValue)
		f.MaxValue = floatPtr(maxValue)

		var names []string
		if err := decodeJSON(targets, &names); err != nil {
			return nil, fmt.Errorf("field %q target types: %w", f.FullyQualifiedName, err)
		}
		for _, n := range names {
			f.TargetTypes = append(f.TargetTypes, domain.TypeRef{Name: n})
		}
		fields[f.FullyQualifiedName] = &f
	}
	return fields, rows.Err()
}

func (s *TypeStore) incomingLinks(ctx context.Context, typeName string) (map[string]*domain.IncomingLinkDef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fqn, source_type, spaces FROM incoming_links
		 WHERE type_name = ? ORDER BY fqn, source_type`, typeName)
	if err != nil {
		return nil, fmt.Errorf("query incoming links of %q: %w", typeName, err)
	}
	defer func() { _ = rows.Close() }()

	links := make(map[string]*domain.IncomingLinkDef)
	for rows.Next() {
		var fqn, source, spaces string
		if err := rows.Scan(&fqn, &source, &spaces); err != nil {
			return nil, fmt.Errorf("scan incoming link of %q: %w", typeName, err)
		}
		st := domain.SourceType{Type: domain.TypeRef{Name: source}}
		if err := decodeJSON(spaces, &st.Spaces); err != nil {
			return nil, fmt.Errorf("incoming link %q spaces: %w", fqn, err)
		}
		l, ok := links[fqn]
		if !ok {
			l = &domain.IncomingLinkDef{FullyQualifiedName: fqn}
			links[fqn] = l
		}
		l.SourceTypes = append(l.SourceTypes, st)
	}
	return links, rows.Err()
}

// SaveType creates or replaces t together with its fields and incoming links.
func (s *TypeStore) SaveType(ctx context.Context, t *domain.TypeStructure) error {
	if t.Name == "" {
		return fmt.Errorf("save type: empty name: %w", domain.ErrInvalidInput)
	}
	promoted, err := encodeJSON(nonNil(t.PromotedFields))
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save type: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO type_structures (name, label, color, description, label_field, promoted_fields, embedded_only)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   label = excluded.label, color = excluded.color, description = excluded.description,
		   label_field = excluded.label_field, promoted_fields = excluded.promoted_fields,
		   embedded_only = excluded.embedded_only`,
		t.Name, t.Label, t.Color, t.Description, t.LabelField, promoted, t.EmbeddedOnly,
	); err != nil {
		return fmt.Errorf("upsert type %q: %w", t.Name, err)
	}

	for _, table := range []string{"field_templates", "incoming_links"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE type_name = ?", t.Name); err != nil { //nolint:gosec // table names are constants
			return fmt.Errorf("clear %s of %q: %w", table, t.Name, err)
		}
	}

	for fqn, f := range t.Fields {
		targets, err := encodeJSON(f.TargetTypeNames())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO field_templates (type_name, fqn, name, label, display_order, widget, searchable,
			   required, regex, max_length, min_items, max_items, min_value, max_value, target_types)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Name, fqn, f.Name, f.Label, f.Order, f.Widget, f.Searchable, f.Required, f.Regex,
			f.MaxLength, f.MinItems, f.MaxItems, f.MinValue, f.MaxValue, targets,
		); err != nil {
			return fmt.Errorf("insert field %q of %q: %w", fqn, t.Name, err)
		}
	}

	for fqn, l := range t.IncomingLinks {
		for _, st := range l.SourceTypes {
			spaces, err := encodeJSON(nonNil(st.Spaces))
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO incoming_links (type_name, fqn, source_type, spaces) VALUES (?, ?, ?, ?)`,
				t.Name, fqn, st.Type.Name, spaces,
			); err != nil {
				return fmt.Errorf("insert incoming link %q of %q: %w", fqn, t.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save type %q: %w", t.Name, err)
	}
	return nil
}

// LabelField returns the label field of the first of typeNames declaring
// one, or "" when none does.
func (s *TypeStore) LabelField(ctx context.Context, typeNames []string) (string, error) {
	for _, name := range typeNames {
		var field string
		err := s.db.QueryRowContext(ctx,
			`SELECT label_field FROM type_structures WHERE name = ?`, name,
		).Scan(&field)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("label field of %q: %w", name, err)
		}
		if field != "" {
			return field, nil
		}
	}
	return "", nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
