package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// ReleaseStore tracks when instances were last released.
type ReleaseStore struct {
	db  *sql.DB
	ids *idnorm.Normalizer
}

// NewReleaseStore creates a new ReleaseStore.
func NewReleaseStore(db *sql.DB, ids *idnorm.Normalizer) *ReleaseStore {
	return &ReleaseStore{db: db, ids: ids}
}

// Release marks the instance id as released now.
func (s *ReleaseStore) Release(ctx context.Context, id string) error {
	key, ok := rowKey(s.ids, id)
	if !ok {
		return fmt.Errorf("instance %q: %w", id, domain.ErrNotFound)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO releases (instance_id, released_at)
		 SELECT id, ? FROM instances WHERE id = ?
		 ON CONFLICT(instance_id) DO UPDATE SET released_at = excluded.released_at`,
		now(), key)
	if err != nil {
		return fmt.Errorf("release %q: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("instance %q: %w", key, domain.ErrNotFound)
	}
	return nil
}

// GetStatus implements domain.ReleaseStatusSource. Ids may be short or
// fully-qualified; unknown ids are absent from the result.
//
// With TOP_INSTANCE_ONLY the status is the instance's own. With the children
// scopes it is the least released status among the instances it links to,
// restricted to its own space for CHILDREN_ONLY_RESTRICTED.
func (s *ReleaseStore) GetStatus(ctx context.Context, ids []string, releaseTreeScope string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		key, ok := rowKey(s.ids, id)
		if !ok {
			continue
		}
		var (
			status string
			err    error
		)
		switch releaseTreeScope {
		case vocab.ScopeChildrenOnly:
			status, err = s.childrenStatus(ctx, key, false)
		case vocab.ScopeChildrenOnlyRestricted:
			status, err = s.childrenStatus(ctx, key, true)
		default:
			status, err = s.ownStatus(ctx, key)
		}
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = status
	}
	return out, nil
}

func (s *ReleaseStore) ownStatus(ctx context.Context, key string) (string, error) {
	var (
		updatedAt  string
		releasedAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT i.updated_at, r.released_at FROM instances i
		 LEFT JOIN releases r ON r.instance_id = i.id
		 WHERE i.id = ?`, key,
	).Scan(&updatedAt, &releasedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("instance %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("release status of %q: %w", key, err)
	}
	switch {
	case !releasedAt.Valid:
		return vocab.StatusUnreleased, nil
	case releasedAt.String >= updatedAt:
		return vocab.StatusReleased, nil
	default:
		return vocab.StatusHasChanged, nil
	}
}

func (s *ReleaseStore) childrenStatus(ctx context.Context, key string, sameSpace bool) (string, error) {
	if _, err := s.ownStatus(ctx, key); err != nil {
		return "", err
	}

	query := `SELECT DISTINCT l.to_id FROM instance_links l
		JOIN instances c ON c.id = l.to_id
		JOIN instances p ON p.id = l.from_id
		WHERE l.from_id = ?`
	if sameSpace {
		query += " AND c.space = p.space"
	}
	rows, err := s.db.QueryContext(ctx, query, key)
	if err != nil {
		return "", fmt.Errorf("children of %q: %w", key, err)
	}
	var children []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			_ = rows.Close()
			return "", fmt.Errorf("scan child of %q: %w", key, err)
		}
		children = append(children, c)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return "", err
	}

	status := vocab.StatusReleased
	for _, c := range children {
		st, err := s.ownStatus(ctx, c)
		if err != nil {
			return "", err
		}
		if rank(st) > rank(status) {
			status = st
		}
	}
	return status, nil
}

func rank(status string) int {
	switch status {
	case vocab.StatusUnreleased:
		return 2
	case vocab.StatusHasChanged:
		return 1
	default:
		return 0
	}
}
