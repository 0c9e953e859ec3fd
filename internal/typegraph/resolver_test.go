package typegraph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	th "github.com/HumanBrainProject/kg-editor-sub000/internal/testhelpers"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/typegraph"
)

const (
	name    = "http://schema.org/name"
	address = "http://schema.org/address"
	member  = "http://schema.org/member"
	author  = "http://schema.org/author"
	parent  = "http://schema.org/parent"
)

func TestResolve_SeedsOnly(t *testing.T) {
	src := th.NewFakeMetadataSource(
		th.NewType("Person", th.WithLabelField(name)),
	)
	r := typegraph.NewResolver(src, nil)

	g, err := r.Resolve(context.Background(), []string{"Person", "Person"}, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Person"}, g.Names())
	assert.True(t, g.HasProperties("Person"))
	require.Len(t, src.Calls(), 1)
	assert.Equal(t, th.MetadataCall{Names: []string{"Person"}, WithProperties: true}, src.Calls()[0])
}

func TestResolve_NestedTargetsFetchedWithProperties(t *testing.T) {
	src := th.NewFakeMetadataSource(
		th.NewType("Dataset", th.WithLabelField(name), th.WithNested(author, "Person")),
		th.NewType("Person", th.WithLabelField(name), th.WithSingleNested(address, "Address")),
		th.NewType("Address", th.WithField("http://schema.org/street", false)),
	)
	r := typegraph.NewResolver(src, nil)

	g, err := r.Resolve(context.Background(), []string{"Dataset"}, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Address", "Dataset", "Person"}, g.Names())
	for _, n := range g.Names() {
		assert.True(t, g.HasProperties(n), n)
		assert.Equal(t, 1, src.FetchCount(n, true), n)
	}
	assert.Len(t, src.Calls(), 3)
}

func TestResolve_IncomingSourcesFetchedWithoutProperties(t *testing.T) {
	src := th.NewFakeMetadataSource(
		th.NewType("Person", th.WithLabelField(name), th.WithIncoming(author, "Dataset")),
		th.NewType("Dataset", th.WithLabelField(name), th.WithColor("#ff0000"), th.WithNested(author, "Person")),
	)
	r := typegraph.NewResolver(src, nil)

	g, err := r.Resolve(context.Background(), []string{"Person"}, true)
	require.NoError(t, err)

	ds, ok := g.Get("Dataset")
	require.True(t, ok)
	assert.False(t, g.HasProperties("Dataset"))
	assert.Empty(t, ds.Fields)
	assert.Equal(t, "#ff0000", ds.Color)
	assert.Equal(t, 1, src.FetchCount("Dataset", false))
	assert.Equal(t, 0, src.FetchCount("Dataset", true))
}

func TestResolve_SelfReferenceTerminates(t *testing.T) {
	src := th.NewFakeMetadataSource(
		th.NewType("Org", th.WithLabelField(name), th.WithNested(parent, "Org"), th.WithIncoming(member, "Org")),
	)
	r := typegraph.NewResolver(src, nil)

	g, err := r.Resolve(context.Background(), []string{"Org"}, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Org"}, g.Names())
	assert.Len(t, src.Calls(), 1)
}

func TestResolve_MutualCycleTerminates(t *testing.T) {
	src := th.NewFakeMetadataSource(
		th.NewType("A", th.WithNested("http://x/b", "B")),
		th.NewType("B", th.WithNested("http://x/a", "A")),
	)
	r := typegraph.NewResolver(src, nil)

	g, err := r.Resolve(context.Background(), []string{"A"}, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, g.Names())
	assert.Equal(t, 1, src.FetchCount("A", true))
	assert.Equal(t, 1, src.FetchCount("B", true))
}

func TestResolve_UpgradeToPropertiesExactlyOnce(t *testing.T) {
	// A links in from B (label only) and nests C; C nests B, so B has to be
	// re-fetched with properties after its label-only fetch.
	src := th.NewFakeMetadataSource(
		th.NewType("A", th.WithIncoming(member, "B"), th.WithNested("http://x/c", "C")),
		th.NewType("C", th.WithNested("http://x/b", "B")),
		th.NewType("B", th.WithLabelField(name), th.WithField("http://x/field", false), th.WithNested("http://x/c", "C")),
	)
	r := typegraph.NewResolver(src, nil)

	g, err := r.Resolve(context.Background(), []string{"A"}, true)
	require.NoError(t, err)

	assert.Equal(t, 1, src.FetchCount("B", false))
	assert.Equal(t, 1, src.FetchCount("B", true))
	assert.True(t, g.HasProperties("B"))
	b, _ := g.Get("B")
	assert.NotEmpty(t, b.Fields)
}

func TestResolve_SameLayerNeedIsFetchedOnlyWithProperties(t *testing.T) {
	src := th.NewFakeMetadataSource(
		th.NewType("A", th.WithIncoming(member, "B"), th.WithNested("http://x/b", "B")),
		th.NewType("B", th.WithField("http://x/f", false)),
	)
	r := typegraph.NewResolver(src, nil)

	g, err := r.Resolve(context.Background(), []string{"A"}, true)
	require.NoError(t, err)

	assert.True(t, g.HasProperties("B"))
	assert.Equal(t, 0, src.FetchCount("B", false))
	assert.Equal(t, 1, src.FetchCount("B", true))
}

func TestResolve_PartialFailureExcludesType(t *testing.T) {
	src := th.NewFakeMetadataSource(
		th.NewType("Dataset", th.WithNested(author, "Person"), th.WithLink("http://x/license", "License")),
		th.NewType("Person", th.WithLabelField(name)),
	)
	src.Fail("Person", errors.New("transient"))
	r := typegraph.NewResolver(src, nil)

	g, err := r.Resolve(context.Background(), []string{"Dataset", "Ghost"}, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Dataset"}, g.Names())
}

func TestResolve_UpstreamFailure(t *testing.T) {
	src := th.NewFakeMetadataSource()
	src.Err = errors.New("connection refused")
	r := typegraph.NewResolver(src, nil)

	g, err := r.Resolve(context.Background(), []string{"Person"}, true)
	require.Error(t, err)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestResolve_LabelOnlySeeds(t *testing.T) {
	src := th.NewFakeMetadataSource(
		th.NewType("Dataset", th.WithLabelField(name), th.WithNested(author, "Person")),
	)
	r := typegraph.NewResolver(src, nil)

	g, err := r.Resolve(context.Background(), []string{"Dataset"}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Dataset"}, g.Names())
	assert.False(t, g.HasProperties("Dataset"))
	ds, _ := g.Get("Dataset")
	assert.Equal(t, []string{name}, ds.PromotedFields)
	assert.Len(t, src.Calls(), 1)
}

func TestExpand_SkipsResolvedAndFailedNames(t *testing.T) {
	src := th.NewFakeMetadataSource(
		th.NewType("Person", th.WithLabelField(name)),
		th.NewType("License"),
	)
	r := typegraph.NewResolver(src, nil)
	ctx := context.Background()

	g, err := r.Resolve(ctx, []string{"Person", "Ghost"}, true)
	require.NoError(t, err)

	require.NoError(t, r.Expand(ctx, g, []string{"Person", "Ghost", "License"}, false))

	assert.Equal(t, []string{"License", "Person"}, g.Names())
	assert.True(t, g.HasProperties("Person"))
	assert.Equal(t, 0, src.FetchCount("Ghost", false))
	assert.Equal(t, 1, src.FetchCount("License", false))
}
