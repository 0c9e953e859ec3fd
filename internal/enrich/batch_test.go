package enrich_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
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

func newBatch(src domain.MetadataSource) *enrich.BatchEnricher {
	ids := idnorm.New(prefix)
	return enrich.NewBatchEnricher(
		typegraph.NewResolver(src, nil),
		enrich.NewEnricher(ids, vocab.Default(), robotID),
		nil,
	)
}

func dataset() *domain.TypeStructure {
	return th.NewType("Dataset", th.WithLabelField(name), th.WithNested(author, "Person"))
}

func TestEnrichAll_SharedResolution(t *testing.T) {
	src := th.NewFakeMetadataSource(dataset(), person(), addressType())
	raws := []domain.RawInstance{
		{vocab.KeyID: prefix + datasetID, vocab.KeyType: []any{"Dataset"}, name: "Survey"},
		{vocab.KeyID: prefix + adaID, vocab.KeyType: []any{"Person"}, name: "Ada"},
		{vocab.KeyID: prefix + graceID, vocab.KeyType: []any{"Dataset"}, name: "Census"},
	}

	results, err := newBatch(src).EnrichAll(context.Background(), raws, enrich.ModeFull)
	require.NoError(t, err)
	require.Len(t, results, 3)

	calls := src.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, th.MetadataCall{Names: []string{"Dataset", "Person"}, WithProperties: true}, calls[0])
	assert.Equal(t, 1, src.FetchCount("Dataset", true))
	assert.Equal(t, 1, src.FetchCount("Person", true))

	for i, want := range []string{"Survey", "Ada", "Census"} {
		require.Nil(t, results[i].Error)
		e, ok := results[i].Data.(*domain.EnrichedInstance)
		require.True(t, ok)
		assert.Equal(t, want, e.Name)
	}
	assert.Equal(t, []string{datasetID, adaID, graceID}, []string{results[0].ID, results[1].ID, results[2].ID})
}

func TestEnrichAll_PerInstanceError(t *testing.T) {
	src := th.NewFakeMetadataSource(person(), addressType())
	raws := []domain.RawInstance{
		{vocab.KeyID: prefix + adaID, vocab.KeyType: []any{"Person"}, name: "Ada"},
		{vocab.KeyID: prefix + graceID, name: "Grace"},
	}

	results, err := newBatch(src).EnrichAll(context.Background(), raws, enrich.ModeFull)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Nil(t, results[0].Error)
	assert.NotNil(t, results[0].Data)

	assert.Nil(t, results[1].Data)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, domain.CodeMissingTypeInformation, results[1].Error.Code)
	assert.Equal(t, graceID, results[1].ID)
}

func TestEnrichAll_UpstreamFailure(t *testing.T) {
	src := th.NewFakeMetadataSource(person())
	src.Err = errors.New("connection refused")

	_, err := newBatch(src).EnrichAll(context.Background(), []domain.RawInstance{
		{vocab.KeyID: prefix + adaID, vocab.KeyType: []any{"Person"}},
	}, enrich.ModeFull)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestEnrichAll_Summary(t *testing.T) {
	v := vocab.Default()
	src := th.NewFakeMetadataSource(person(), addressType())

	results, err := newBatch(src).EnrichAll(context.Background(), []domain.RawInstance{{
		vocab.KeyID:   prefix + adaID,
		vocab.KeyType: []any{"Person"},
		name:          "Ada",
		email:         "ada@example.org",
		v.Alternatives: map[string]any{
			email: []any{map[string]any{v.Value: "ada@example.org", v.Selected: true}},
		},
	}}, enrich.ModeSummary)
	require.NoError(t, err)

	e := results[0].Data.(*domain.EnrichedInstance)
	assert.Equal(t, []string{name}, keys(e.Fields))
	assert.Nil(t, e.Alternatives)
}

func TestEnrichAll_LabelResolvesWithoutProperties(t *testing.T) {
	src := th.NewFakeMetadataSource(dataset(), person(), addressType())

	results, err := newBatch(src).EnrichAll(context.Background(), []domain.RawInstance{
		{vocab.KeyID: prefix + datasetID, vocab.KeyType: []any{"Dataset"}, name: "Survey"},
	}, enrich.ModeLabel)
	require.NoError(t, err)

	assert.Equal(t, []th.MetadataCall{{Names: []string{"Dataset"}, WithProperties: false}}, src.Calls())
	l := results[0].Data.(*domain.InstanceLabel)
	assert.Equal(t, "Survey", l.Name)
}

func TestEnrichAll_LinkTargetsResolvedLight(t *testing.T) {
	src := th.NewFakeMetadataSource(
		th.NewType("Dataset", th.WithLabelField(name), th.WithLink(citation, "Person")),
		person(),
	)

	results, err := newBatch(src).EnrichAll(context.Background(), []domain.RawInstance{
		{vocab.KeyID: prefix + datasetID, vocab.KeyType: []any{"Dataset"}},
	}, enrich.ModeFull)
	require.NoError(t, err)

	assert.Equal(t, 0, src.FetchCount("Person", true))
	assert.Equal(t, 1, src.FetchCount("Person", false))
	e := results[0].Data.(*domain.EnrichedInstance)
	assert.Equal(t, "#f00", e.Fields[citation].TargetTypes[0].Color)
}

func TestEnrichAll_ConcurrentCallsDoNotShareTemplates(t *testing.T) {
	src := th.NewFakeMetadataSource(person(), addressType())
	b := newBatch(src)

	const n = 16
	var wg sync.WaitGroup
	results := make([][]enrich.Result, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := b.EnrichAll(context.Background(), []domain.RawInstance{{
				vocab.KeyID:   prefix + adaID,
				vocab.KeyType: []any{"Person"},
				name:          fmt.Sprintf("Ada %d", i),
			}}, enrich.ModeFull)
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	wg.Wait()

	for i, r := range results {
		require.Len(t, r, 1)
		e := r[0].Data.(*domain.EnrichedInstance)
		assert.Equal(t, fmt.Sprintf("Ada %d", i), e.Fields[name].Value)
	}

	res, err := src.GetTypesByName(context.Background(), []string{"Person"}, true)
	require.NoError(t, err)
	assert.Nil(t, res["Person"].Type.Fields[name].Value)
}

func TestEnrichOne(t *testing.T) {
	src := th.NewFakeMetadataSource(person(), addressType())
	b := newBatch(src)

	data, err := b.EnrichOne(context.Background(), domain.RawInstance{
		vocab.KeyID:   prefix + adaID,
		vocab.KeyType: []any{"Person"},
		name:          "Ada",
	}, enrich.ModeFull)
	require.NoError(t, err)
	assert.Equal(t, "Ada", data.(*domain.EnrichedInstance).Name)

	_, err = b.EnrichOne(context.Background(), domain.RawInstance{vocab.KeyID: prefix + adaID}, enrich.ModeFull)
	assert.ErrorIs(t, err, domain.ErrMissingTypeInformation)
}

func keys(m map[string]*domain.FieldTemplate) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
