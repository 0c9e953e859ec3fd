package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

const defaultSearchSize = 20

// InstanceStore persists instance documents. Rows are keyed by UUID; ids
// crossing the store boundary are fully-qualified.
type InstanceStore struct {
	db    *sql.DB
	types *TypeStore
	ids   *idnorm.Normalizer
	vocab *vocab.Vocabulary
}

// NewInstanceStore creates a new InstanceStore.
func NewInstanceStore(db *sql.DB, types *TypeStore, ids *idnorm.Normalizer, v *vocab.Vocabulary) *InstanceStore {
	return &InstanceStore{db: db, types: types, ids: ids, vocab: v}
}

// instanceRow is one instances row with its declared types.
type instanceRow struct {
	key          string
	space        string
	document     map[string]any
	alternatives map[string]any
	permissions  []string
	types        []string
}

// GetInstance implements domain.InstanceSource.
func (s *InstanceStore) GetInstance(ctx context.Context, id string) (domain.RawInstance, error) {
	key, ok := rowKey(s.ids, id)
	if !ok {
		return nil, fmt.Errorf("instance %q: %w", id, domain.ErrNotFound)
	}
	row, err := s.row(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.raw(ctx, row)
}

// GetInstances implements domain.InstanceSource. The result is keyed by the
// ids as passed in.
func (s *InstanceStore) GetInstances(ctx context.Context, ids []string) (map[string]domain.RawInstance, error) {
	out := make(map[string]domain.RawInstance, len(ids))
	for _, id := range ids {
		raw, err := s.GetInstance(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = raw
	}
	return out, nil
}

// Search implements domain.InstanceSource. Instances are matched on their
// type and space; searchByLabel is a case-insensitive substring match on the
// label field.
func (s *InstanceStore) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchPage, error) {
	if q.Type == "" {
		return nil, fmt.Errorf("search: type is required: %w", domain.ErrInvalidInput)
	}
	size := q.Size
	if size <= 0 {
		size = defaultSearchSize
	}
	from := max(q.From, 0)

	query := `SELECT i.id FROM instances i
		JOIN instance_types t ON t.instance_id = i.id
		WHERE t.type_name = ?`
	args := []any{q.Type}
	if q.Space != "" {
		query += " AND i.space = ?"
		args = append(args, q.Space)
	}
	query += " ORDER BY i.created_at, i.id"

	keys, err := s.queryKeys(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search instances: %w", err)
	}

	needle := strings.ToLower(q.SearchByLabel)
	var matched []domain.RawInstance
	for _, key := range keys {
		row, err := s.row(ctx, key)
		if err != nil {
			return nil, err
		}
		if needle != "" {
			label, err := s.label(ctx, row)
			if err != nil {
				return nil, err
			}
			if !strings.Contains(strings.ToLower(label), needle) {
				continue
			}
		}
		raw, err := s.raw(ctx, row)
		if err != nil {
			return nil, err
		}
		matched = append(matched, raw)
	}

	page := &domain.SearchPage{Data: []domain.RawInstance{}, Total: len(matched), From: from, Size: size}
	if from < len(matched) {
		page.Data = matched[from:min(from+size, len(matched))]
	}
	return page, nil
}

// CreateInstance implements domain.InstanceSource.
func (s *InstanceStore) CreateInstance(ctx context.Context, space, id string, payload domain.RawInstance) (domain.RawInstance, error) {
	key, ok := rowKey(s.ids, id)
	if !ok {
		return nil, fmt.Errorf("instance id %q: %w", id, domain.ErrInvalidInput)
	}
	if space == "" {
		return nil, fmt.Errorf("create instance %q: space is required: %w", key, domain.ErrInvalidInput)
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instances WHERE id = ?`, key).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check instance %q: %w", key, err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("instance %q already exists: %w", key, domain.ErrInvalidInput)
	}

	row := s.split(payload)
	row.key = key
	row.space = space

	ts := now()
	if err := s.write(ctx, row, func(tx *sql.Tx, doc, alts, perms string) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO instances (id, space, document, alternatives, permissions, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			key, space, doc, alts, perms, ts, ts)
		return err
	}); err != nil {
		return nil, fmt.Errorf("create instance %q: %w", key, err)
	}
	return s.GetInstance(ctx, key)
}

// UpdateInstance implements domain.InstanceSource with merge semantics: keys
// present in payload replace stored ones, a null value removes the key, and a
// declared @type replaces the stored types.
func (s *InstanceStore) UpdateInstance(ctx context.Context, id string, payload domain.RawInstance) (domain.RawInstance, error) {
	key, ok := rowKey(s.ids, id)
	if !ok {
		return nil, fmt.Errorf("instance %q: %w", id, domain.ErrNotFound)
	}
	row, err := s.row(ctx, key)
	if err != nil {
		return nil, err
	}

	patch := s.split(payload)
	for k, v := range payload {
		if v == nil {
			delete(row.document, k)
		}
	}
	for k, v := range patch.document {
		row.document[k] = v
	}
	for k, v := range patch.alternatives {
		row.alternatives[k] = v
	}
	if len(patch.types) > 0 {
		row.types = patch.types
	}
	if _, ok := payload[s.vocab.Permissions]; ok {
		row.permissions = patch.permissions
	}

	ts := now()
	if err := s.write(ctx, row, func(tx *sql.Tx, doc, alts, perms string) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE instances SET document = ?, alternatives = ?, permissions = ?, updated_at = ? WHERE id = ?`,
			doc, alts, perms, ts, key)
		return err
	}); err != nil {
		return nil, fmt.Errorf("update instance %q: %w", key, err)
	}
	return s.GetInstance(ctx, key)
}

// DeleteInstance implements domain.InstanceSource.
func (s *InstanceStore) DeleteInstance(ctx context.Context, id string) error {
	key, ok := rowKey(s.ids, id)
	if !ok {
		return fmt.Errorf("instance %q: %w", id, domain.ErrNotFound)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, key)
	if err != nil {
		return fmt.Errorf("delete instance %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete instance %q: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("instance %q: %w", key, domain.ErrNotFound)
	}
	return nil
}

// GetScope implements domain.InstanceSource. Children are the instances a node
// links to; an instance reachable along several paths appears once, under the
// first parent reached depth-first.
func (s *InstanceStore) GetScope(ctx context.Context, id string) (*domain.ScopeElement, error) {
	key, ok := rowKey(s.ids, id)
	if !ok {
		return nil, fmt.Errorf("instance %q: %w", id, domain.ErrNotFound)
	}
	return s.scope(ctx, key, map[string]bool{})
}

func (s *InstanceStore) scope(ctx context.Context, key string, visited map[string]bool) (*domain.ScopeElement, error) {
	visited[key] = true
	row, err := s.row(ctx, key)
	if err != nil {
		return nil, err
	}
	label, err := s.label(ctx, row)
	if err != nil {
		return nil, err
	}

	node := &domain.ScopeElement{
		ID:          s.ids.QualifyID(key),
		Label:       label,
		Types:       make([]domain.TypeRef, 0, len(row.types)),
		Permissions: row.permissions,
	}
	for _, t := range row.types {
		node.Types = append(node.Types, domain.TypeRef{Name: t})
	}

	children, err := s.queryKeys(ctx,
		`SELECT l.to_id FROM instance_links l JOIN instances i ON i.id = l.to_id
		 WHERE l.from_id = ? ORDER BY l.property, l.position`, key)
	if err != nil {
		return nil, fmt.Errorf("scope children of %q: %w", key, err)
	}
	for _, child := range children {
		if visited[child] {
			continue
		}
		c, err := s.scope(ctx, child, visited)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, c)
	}
	return node, nil
}

func (s *InstanceStore) row(ctx context.Context, key string) (*instanceRow, error) {
	r := &instanceRow{key: key}
	var doc, alts, perms string
	err := s.db.QueryRowContext(ctx,
		`SELECT space, document, alternatives, permissions FROM instances WHERE id = ?`, key,
	).Scan(&r.space, &doc, &alts, &perms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("instance %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load instance %q: %w", key, err)
	}
	if err := decodeJSON(doc, &r.document); err != nil {
		return nil, err
	}
	if err := decodeJSON(alts, &r.alternatives); err != nil {
		return nil, err
	}
	if err := decodeJSON(perms, &r.permissions); err != nil {
		return nil, err
	}
	if r.document == nil {
		r.document = map[string]any{}
	}
	if r.alternatives == nil {
		r.alternatives = map[string]any{}
	}

	r.types, err = s.queryKeys(ctx,
		`SELECT type_name FROM instance_types WHERE instance_id = ? ORDER BY position`, key)
	if err != nil {
		return nil, fmt.Errorf("types of %q: %w", key, err)
	}
	return r, nil
}

// raw renders row as a graph store document, including the instances
// linking into it.
func (s *InstanceStore) raw(ctx context.Context, row *instanceRow) (domain.RawInstance, error) {
	raw := make(domain.RawInstance, len(row.document)+5)
	for k, v := range row.document {
		raw[k] = v
	}
	types := make([]any, len(row.types))
	for i, t := range row.types {
		types[i] = t
	}
	raw[vocab.KeyID] = s.ids.QualifyID(row.key)
	raw[vocab.KeyType] = types
	raw[s.vocab.Space] = row.space
	if len(row.permissions) > 0 {
		perms := make([]any, len(row.permissions))
		for i, p := range row.permissions {
			perms[i] = p
		}
		raw[s.vocab.Permissions] = perms
	}
	if len(row.alternatives) > 0 {
		raw[s.vocab.Alternatives] = row.alternatives
	}

	incoming, err := s.incoming(ctx, row.key)
	if err != nil {
		return nil, err
	}
	if len(incoming) > 0 {
		raw[s.vocab.IncomingLinks] = incoming
	}
	return raw, nil
}

func (s *InstanceStore) incoming(ctx context.Context, key string) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT property, from_id FROM instance_links WHERE to_id = ? ORDER BY property, from_id`, key)
	if err != nil {
		return nil, fmt.Errorf("incoming links of %q: %w", key, err)
	}
	type link struct{ property, from string }
	var links []link
	for rows.Next() {
		var l link
		if err := rows.Scan(&l.property, &l.from); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan incoming link of %q: %w", key, err)
		}
		links = append(links, l)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]any)
	for _, l := range links {
		src, err := s.row(ctx, l.from)
		if err != nil {
			return nil, err
		}
		label, err := s.label(ctx, src)
		if err != nil {
			return nil, err
		}
		list, _ := out[l.property].([]any)
		out[l.property] = append(list, map[string]any{
			vocab.KeyID:       s.ids.QualifyID(l.from),
			s.vocab.LinkLabel: label,
			s.vocab.Space:     src.space,
		})
	}
	return out, nil
}

// label returns the value of row's label field as a string.
func (s *InstanceStore) label(ctx context.Context, row *instanceRow) (string, error) {
	field, err := s.types.LabelField(ctx, row.types)
	if err != nil || field == "" {
		return "", err
	}
	switch v := row.document[field].(type) {
	case string:
		return v, nil
	case []any:
		if len(v) > 0 {
			if str, ok := v[0].(string); ok {
				return str, nil
			}
		}
	}
	return "", nil
}

// split separates a payload into the columns of an instance row. Keys the
// store computes itself are dropped.
func (s *InstanceStore) split(payload domain.RawInstance) *instanceRow {
	row := &instanceRow{
		document:     map[string]any{},
		alternatives: map[string]any{},
		types:        payload.Types(),
		permissions:  domain.Strings(payload[s.vocab.Permissions]),
	}
	for k, v := range payload {
		switch k {
		case vocab.KeyID, vocab.KeyType, s.vocab.Space, s.vocab.Permissions, s.vocab.IncomingLinks:
		case s.vocab.Alternatives:
			if m, ok := v.(map[string]any); ok {
				row.alternatives = m
			}
		default:
			if v != nil {
				row.document[k] = v
			}
		}
	}
	return row
}

// write runs upsert together with the rewrite of row's types and outgoing
// links in one transaction.
func (s *InstanceStore) write(ctx context.Context, row *instanceRow, upsert func(tx *sql.Tx, doc, alts, perms string) error) error {
	doc, err := encodeJSON(row.document)
	if err != nil {
		return err
	}
	alts, err := encodeJSON(row.alternatives)
	if err != nil {
		return err
	}
	perms, err := encodeJSON(nonNil(row.permissions))
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsert(tx, doc, alts, perms); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM instance_types WHERE instance_id = ?`, row.key); err != nil {
		return fmt.Errorf("clear types: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM instance_links WHERE from_id = ?`, row.key); err != nil {
		return fmt.Errorf("clear links: %w", err)
	}
	for i, t := range row.types {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO instance_types (instance_id, type_name, position) VALUES (?, ?, ?)`,
			row.key, t, i); err != nil {
			return fmt.Errorf("insert type %q: %w", t, err)
		}
	}
	for property, targets := range s.links(row.document) {
		for i, to := range targets {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO instance_links (from_id, property, to_id, position) VALUES (?, ?, ?, ?)`,
				row.key, property, to, i); err != nil {
				return fmt.Errorf("insert link %q: %w", property, err)
			}
		}
	}

	return tx.Commit()
}

// links extracts the outgoing links of a document: top-level values that are
// references ({"@id": ...} and nothing else), alone or in a list, pointing
// into the instance namespace.
func (s *InstanceStore) links(doc map[string]any) map[string][]string {
	out := make(map[string][]string)
	for property, v := range doc {
		for _, el := range asList(v) {
			ref, ok := el.(map[string]any)
			if !ok || len(ref) != 1 {
				continue
			}
			id, _ := ref[vocab.KeyID].(string)
			if key, ok := rowKey(s.ids, id); ok {
				out[property] = append(out[property], key)
			}
		}
	}
	return out
}

func (s *InstanceStore) queryKeys(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return []any{v}
}
