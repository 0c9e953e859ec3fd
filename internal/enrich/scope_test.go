package enrich_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/enrich"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	th "github.com/HumanBrainProject/kg-editor-sub000/internal/testhelpers"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/typegraph"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

type fakeStatus struct {
	calls  [][]string
	scopes []string
	status map[string]string
	err    error
}

func (f *fakeStatus) GetStatus(_ context.Context, ids []string, scope string) (map[string]string, error) {
	f.calls = append(f.calls, slices.Clone(ids))
	f.scopes = append(f.scopes, scope)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if s, ok := f.status[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func scopeTree() *domain.ScopeElement {
	return &domain.ScopeElement{
		ID:    prefix + datasetID,
		Label: "Survey",
		Types: []domain.TypeRef{{Name: "Dataset"}},
		Children: []*domain.ScopeElement{
			{ID: prefix + adaID, Label: "Ada", Types: []domain.TypeRef{{Name: "Person"}}},
			{ID: prefix + graceID, Label: "Grace", Types: []domain.TypeRef{{Name: "Person"}}},
		},
	}
}

func TestScopeEnricher(t *testing.T) {
	src := th.NewFakeMetadataSource(dataset(), person())
	status := &fakeStatus{status: map[string]string{
		datasetID: "RELEASED",
		adaID:     "HAS_CHANGED",
	}}
	s := enrich.NewScopeEnricher(typegraph.NewResolver(src, nil), status, idnorm.New(prefix))

	root := scopeTree()
	require.NoError(t, s.Enrich(context.Background(), root, ""))

	require.Len(t, status.calls, 1)
	assert.ElementsMatch(t, []string{datasetID, adaID, graceID}, status.calls[0])
	assert.Equal(t, []string{vocab.ScopeTopInstanceOnly}, status.scopes)

	assert.Equal(t, []th.MetadataCall{{Names: []string{"Dataset", "Person"}, WithProperties: false}}, src.Calls())

	assert.Equal(t, datasetID, root.ID)
	assert.Equal(t, "RELEASED", root.Status)
	assert.Equal(t, name, root.Types[0].LabelField)
	assert.Equal(t, adaID, root.Children[0].ID)
	assert.Equal(t, "HAS_CHANGED", root.Children[0].Status)
	assert.Equal(t, "#f00", root.Children[0].Types[0].Color)
	assert.Empty(t, root.Children[1].Status)
}

func TestScopeEnricher_InvalidScope(t *testing.T) {
	s := enrich.NewScopeEnricher(typegraph.NewResolver(th.NewFakeMetadataSource(), nil), &fakeStatus{}, idnorm.New(prefix))
	err := s.Enrich(context.Background(), scopeTree(), "EVERYTHING")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestScopeEnricher_StatusFailure(t *testing.T) {
	src := th.NewFakeMetadataSource(dataset(), person())
	status := &fakeStatus{err: errors.New("timeout")}
	s := enrich.NewScopeEnricher(typegraph.NewResolver(src, nil), status, idnorm.New(prefix))

	err := s.Enrich(context.Background(), scopeTree(), vocab.ScopeChildrenOnly)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
