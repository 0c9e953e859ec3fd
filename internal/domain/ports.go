package domain

import "context"

// TypeResult is the outcome of fetching one type by name. Exactly one of Type
// and Err is set.
type TypeResult struct {
	Type *TypeStructure
	Err  error
}

// MetadataSource supplies type structures in batches. A per-name failure is
// reported in TypeResult.Err; the returned error is reserved for failures of
// the whole call.
type MetadataSource interface {
	GetTypesByName(ctx context.Context, names []string, withProperties bool) (map[string]TypeResult, error)
}

// InstanceSource supplies raw instances and accepts writes. Ids passed to and
// returned from an InstanceSource are fully-qualified.
type InstanceSource interface {
	GetInstance(ctx context.Context, id string) (RawInstance, error)
	// GetInstances returns the instances found; unknown ids are absent from
	// the result.
	GetInstances(ctx context.Context, ids []string) (map[string]RawInstance, error)
	Search(ctx context.Context, q SearchQuery) (*SearchPage, error)
	CreateInstance(ctx context.Context, space, id string, payload RawInstance) (RawInstance, error)
	UpdateInstance(ctx context.Context, id string, payload RawInstance) (RawInstance, error)
	DeleteInstance(ctx context.Context, id string) error
	GetScope(ctx context.Context, id string) (*ScopeElement, error)
}

// ReleaseStatusSource reports the release status of instances. The returned
// map is keyed by the ids exactly as passed in.
type ReleaseStatusSource interface {
	GetStatus(ctx context.Context, ids []string, releaseTreeScope string) (map[string]string, error)
}

// GraphStore is a graph store backend serving every port.
type GraphStore interface {
	MetadataSource
	InstanceSource
	ReleaseStatusSource
}
