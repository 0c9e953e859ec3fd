// Package store is the local graph store: type structures, instances and
// their release state kept in SQLite. It serves the same ports as the remote
// knowledge graph client so the editor can run offline.
package store

import (
	"database/sql"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// Store holds all sub-stores used by the application. Through its embedded
// sub-stores it implements domain.GraphStore.
type Store struct {
	DB *sql.DB
	*TypeStore
	*InstanceStore
	*ReleaseStore
}

var _ domain.GraphStore = (*Store)(nil)

// New creates a Store with all sub-stores initialized.
func New(db *sql.DB, ids *idnorm.Normalizer, v *vocab.Vocabulary) *Store {
	types := NewTypeStore(db)
	return &Store{
		DB:            db,
		TypeStore:     types,
		InstanceStore: NewInstanceStore(db, types, ids, v),
		ReleaseStore:  NewReleaseStore(db, ids),
	}
}
