package kg_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/kg"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

const (
	prefix  = "https://kg.ebrains.eu/api/instances/"
	adaID   = "6ac6a8a3-2c3e-4d21-9d1a-6d7a2c0e1f01"
	graceID = "8b1f2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c04"
	person  = "https://openminds.ebrains.eu/core/Person"
	address = "https://openminds.ebrains.eu/core/Address"
	family  = "https://openminds.ebrains.eu/vocab/familyName"
	homeFQN = "https://openminds.ebrains.eu/vocab/address"
	knows   = "https://openminds.ebrains.eu/vocab/knows"
)

// fakeGraph is an in-memory graph store API recording the requests it sees.
type fakeGraph struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   map[string]any
	mux      *http.ServeMux
}

func (f *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	if r.Body != nil {
		var body any
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			f.bodies[r.Method+" "+r.URL.Path] = body
		}
	}
	f.mu.Unlock()
	f.mux.ServeHTTP(w, r)
}

func (f *fakeGraph) last() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeGraph) body(key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func personDoc(v *vocab.Vocabulary) map[string]any {
	return map[string]any{
		v.TypeName:      person,
		v.TypeLabel:     "Person",
		v.TypeColor:     "#f00",
		v.TypeDesc:      "A human being",
		v.LabelProperty: family,
		v.Properties: []any{
			map[string]any{
				v.FieldName:   family,
				v.FieldWidget: "InputText",
				v.Searchable:  true,
				v.Required:    true,
				v.MaxLength:   120,
				v.FieldOrder:  1,
			},
			map[string]any{
				v.FieldName:   homeFQN,
				v.FieldLabel:  "Home address",
				v.FieldWidget: vocab.WidgetSingleNested,
				v.TargetTypes: []any{map[string]any{v.TypeName: address}},
			},
			map[string]any{
				v.FieldName:   knows,
				v.FieldWidget: "DropdownSelect",
				v.TargetTypes: []any{person},
				v.MinItems:    0,
			},
		},
		v.IncomingLinks: []any{
			map[string]any{
				v.FieldName: "https://openminds.ebrains.eu/vocab/custodian",
				v.SourceTypes: []any{map[string]any{
					v.SourceType:   map[string]any{v.TypeName: "https://openminds.ebrains.eu/core/Dataset"},
					v.SourceSpaces: []any{"dataset"},
				}},
			},
		},
	}
}

func setupClient(t *testing.T) (*kg.Client, *fakeGraph) {
	t.Helper()
	v := vocab.Default()
	f := &fakeGraph{bodies: map[string]any{}, mux: http.NewServeMux()}

	f.mux.HandleFunc("POST /types/list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			person:  map[string]any{"data": personDoc(v)},
			address: map[string]any{"error": map[string]any{"code": 403, "message": "forbidden"}},
		}})
	})
	f.mux.HandleFunc("GET /instances/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != adaID {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "message": "no such instance"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			vocab.KeyID:   prefix + adaID,
			vocab.KeyType: []any{person},
			family:        "Lovelace",
		}})
	})
	f.mux.HandleFunc("POST /instancesByIds", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			adaID:   map[string]any{"data": map[string]any{vocab.KeyID: prefix + adaID, vocab.KeyType: []any{person}}},
			graceID: map[string]any{"error": map[string]any{"code": 404, "message": "not found"}},
		}})
	})
	f.mux.HandleFunc("GET /instances", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":  []any{map[string]any{vocab.KeyID: prefix + adaID, vocab.KeyType: []any{person}}},
			"total": 7, "from": 5, "size": 1,
		})
	})
	f.mux.HandleFunc("POST /instances/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{vocab.KeyID: prefix + r.PathValue("id")}})
	})
	f.mux.HandleFunc("PATCH /instances/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{vocab.KeyID: prefix + r.PathValue("id"), family: "Byron"}})
	})
	f.mux.HandleFunc("DELETE /instances/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f.mux.HandleFunc("GET /instances/{id}/scope", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"id": prefix + adaID, "label": "Lovelace", "types": []any{person},
			"children": []any{map[string]any{"id": prefix + graceID, "label": "Hopper", "types": []any{person}}},
		}})
	})
	f.mux.HandleFunc("POST /releases/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			adaID:   map[string]any{"data": vocab.StatusReleased},
			graceID: map[string]any{"data": vocab.StatusHasChanged},
		}})
	})

	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return kg.New(srv.URL+"/", 5*time.Second, idnorm.New(prefix), v), f
}

func TestGetTypesByName(t *testing.T) {
	c, f := setupClient(t)
	ctx := kg.WithToken(context.Background(), "user-token")

	res, err := c.GetTypesByName(ctx, []string{person, address, "https://example.org/Unknown"}, true)
	require.NoError(t, err)

	req := f.last()
	assert.Equal(t, "Bearer user-token", req.Header.Get("Authorization"))
	assert.Equal(t, "true", req.URL.Query().Get("withProperties"))
	assert.ElementsMatch(t, []any{person, address, "https://example.org/Unknown"}, f.body("POST /types/list"))

	require.NoError(t, res[person].Err)
	p := res[person].Type
	assert.Equal(t, "Person", p.Label)
	assert.Equal(t, "#f00", p.Color)
	assert.Equal(t, family, p.LabelField)
	assert.Equal(t, []string{family}, p.PromotedFields)
	require.Len(t, p.Fields, 3)
	assert.Equal(t, "familyName", p.Fields[family].Name)
	assert.True(t, p.Fields[family].Required)
	assert.Equal(t, 1, p.Fields[family].Order)
	require.NotNil(t, p.Fields[family].MaxLength)
	assert.Equal(t, 120, *p.Fields[family].MaxLength)
	assert.Equal(t, "Home address", p.Fields[homeFQN].Label)
	assert.True(t, p.Fields[homeFQN].IsNested())
	assert.Equal(t, []domain.TypeRef{{Name: address}}, p.Fields[homeFQN].TargetTypes)
	assert.Equal(t, []domain.TypeRef{{Name: person}}, p.Fields[knows].TargetTypes)
	require.Contains(t, p.IncomingLinks, "https://openminds.ebrains.eu/vocab/custodian")
	link := p.IncomingLinks["https://openminds.ebrains.eu/vocab/custodian"]
	require.Len(t, link.SourceTypes, 1)
	assert.Equal(t, []string{"dataset"}, link.SourceTypes[0].Spaces)

	assert.Error(t, res[address].Err)
	assert.NotErrorIs(t, res[address].Err, domain.ErrNotFound)
	assert.ErrorIs(t, res["https://example.org/Unknown"].Err, domain.ErrNotFound)
}

func TestGetTypesByName_WithoutProperties(t *testing.T) {
	c, f := setupClient(t)

	res, err := c.GetTypesByName(context.Background(), []string{person}, false)
	require.NoError(t, err)

	assert.Empty(t, f.last().Header.Get("Authorization"))
	assert.Equal(t, "false", f.last().URL.Query().Get("withProperties"))
	assert.Empty(t, res[person].Type.Fields)
	assert.Empty(t, res[person].Type.IncomingLinks)
	assert.Equal(t, []string{family}, res[person].Type.PromotedFields)
}

func TestGetTypesByName_Empty(t *testing.T) {
	c, f := setupClient(t)

	res, err := c.GetTypesByName(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Empty(t, f.requests)
}

func TestTypeFromWire_RequiresName(t *testing.T) {
	_, err := kg.TypeFromWire(vocab.Default(), map[string]any{})
	assert.Error(t, err)
}

func TestUpstreamFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": map[string]any{"code": 503, "message": "maintenance"}})
	}))
	c := kg.New(srv.URL, time.Second, idnorm.New(prefix), vocab.Default())

	_, err := c.GetTypesByName(context.Background(), []string{person}, true)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "maintenance")

	srv.Close()
	_, err = c.GetInstance(context.Background(), adaID)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestGetInstance(t *testing.T) {
	c, f := setupClient(t)
	ctx := context.Background()

	raw, err := c.GetInstance(ctx, prefix+adaID)
	require.NoError(t, err)
	assert.Equal(t, prefix+adaID, raw.ID())
	assert.Equal(t, []string{person}, raw.Types())
	assert.Equal(t, "/instances/"+adaID, f.last().URL.Path)

	_, err = c.GetInstance(ctx, prefix+graceID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "no such instance")

	_, err = c.GetInstance(ctx, "https://elsewhere.org/x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetInstances(t *testing.T) {
	c, f := setupClient(t)

	res, err := c.GetInstances(context.Background(), []string{prefix + adaID, graceID, "not-a-uuid"})
	require.NoError(t, err)

	assert.Equal(t, []any{adaID, graceID}, f.body("POST /instancesByIds"))
	require.Len(t, res, 1)
	assert.Contains(t, res, prefix+adaID)
}

func TestSearch(t *testing.T) {
	c, f := setupClient(t)

	page, err := c.Search(context.Background(), domain.SearchQuery{Type: person, Space: "common", SearchByLabel: "love", From: 5, Size: 1})
	require.NoError(t, err)

	q := f.last().URL.Query()
	assert.Equal(t, person, q.Get("type"))
	assert.Equal(t, "common", q.Get("space"))
	assert.Equal(t, "love", q.Get("searchByLabel"))
	assert.Equal(t, "5", q.Get("from"))
	assert.Equal(t, "1", q.Get("size"))
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 5, page.From)
	require.Len(t, page.Data, 1)

	_, err = c.Search(context.Background(), domain.SearchQuery{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWrites(t *testing.T) {
	c, f := setupClient(t)
	ctx := context.Background()

	created, err := c.CreateInstance(ctx, "common", prefix+graceID, domain.RawInstance{family: "Hopper"})
	require.NoError(t, err)
	assert.Equal(t, prefix+graceID, created.ID())
	assert.Equal(t, "common", f.last().URL.Query().Get("space"))
	assert.Equal(t, map[string]any{family: "Hopper"}, f.body("POST /instances/"+graceID))

	_, err = c.CreateInstance(ctx, "", prefix+graceID, domain.RawInstance{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	updated, err := c.UpdateInstance(ctx, adaID, domain.RawInstance{family: "Byron"})
	require.NoError(t, err)
	assert.Equal(t, "Byron", updated[family])
	assert.Equal(t, http.MethodPatch, f.last().Method)

	require.NoError(t, c.DeleteInstance(ctx, adaID))
	assert.Equal(t, http.MethodDelete, f.last().Method)
}

func TestGetScope(t *testing.T) {
	c, _ := setupClient(t)

	root, err := c.GetScope(context.Background(), adaID)
	require.NoError(t, err)

	assert.Equal(t, prefix+adaID, root.ID)
	assert.Equal(t, []domain.TypeRef{{Name: person}}, root.Types)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "Hopper", root.Children[0].Label)
}

func TestGetStatus(t *testing.T) {
	c, f := setupClient(t)
	ctx := context.Background()

	status, err := c.GetStatus(ctx, []string{adaID, prefix + graceID, prefix + adaID}, vocab.ScopeChildrenOnly)
	require.NoError(t, err)

	assert.Equal(t, vocab.ScopeChildrenOnly, f.last().URL.Query().Get("releaseTreeScope"))
	assert.Equal(t, []any{adaID, graceID}, f.body("POST /releases/status"))
	assert.Equal(t, map[string]string{
		adaID:            vocab.StatusReleased,
		prefix + adaID:   vocab.StatusReleased,
		prefix + graceID: vocab.StatusHasChanged,
	}, status)

	_, err = c.GetStatus(ctx, []string{adaID}, "EVERYTHING")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
