package enrich

import (
	"context"
	"fmt"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/typegraph"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// ScopeEnricher annotates a release scope tree with type badges and release
// status.
type ScopeEnricher struct {
	resolver *typegraph.Resolver
	status   domain.ReleaseStatusSource
	ids      *idnorm.Normalizer
}

// NewScopeEnricher returns a ScopeEnricher.
func NewScopeEnricher(resolver *typegraph.Resolver, status domain.ReleaseStatusSource, ids *idnorm.Normalizer) *ScopeEnricher {
	return &ScopeEnricher{resolver: resolver, status: status, ids: ids}
}

// Enrich resolves the types of every node without properties, simplifies node
// ids and looks up the release status of every node in one call. A node id
// that cannot be simplified is kept as is for both lookup and write-back.
func (s *ScopeEnricher) Enrich(ctx context.Context, root *domain.ScopeElement, releaseTreeScope string) error {
	if releaseTreeScope == "" {
		releaseTreeScope = vocab.ScopeTopInstanceOnly
	}
	switch releaseTreeScope {
	case vocab.ScopeTopInstanceOnly, vocab.ScopeChildrenOnly, vocab.ScopeChildrenOnlyRestricted:
	default:
		return fmt.Errorf("release tree scope %q: %w", releaseTreeScope, domain.ErrInvalidInput)
	}
	if root == nil {
		return nil
	}

	var typeNames, ids []string
	seenType := make(map[string]bool)
	seenID := make(map[string]bool)
	root.Walk(func(n *domain.ScopeElement) {
		n.ID = s.ids.SimplifyID(n.ID)
		for _, t := range n.Types {
			if !seenType[t.Name] {
				seenType[t.Name] = true
				typeNames = append(typeNames, t.Name)
			}
		}
		if n.ID != "" && !seenID[n.ID] {
			seenID[n.ID] = true
			ids = append(ids, n.ID)
		}
	})

	g, err := s.resolver.Resolve(ctx, typeNames, false)
	if err != nil {
		return err
	}
	statuses, err := s.status.GetStatus(ctx, ids, releaseTreeScope)
	if err != nil {
		return domain.Upstream("get release status", err)
	}

	root.Walk(func(n *domain.ScopeElement) {
		n.Status = statuses[n.ID]
		for i, t := range n.Types {
			if ref, ok := g.Ref(t.Name); ok {
				n.Types[i] = ref
			}
		}
	})
	return nil
}
