package kg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
)

// GetInstance implements domain.InstanceSource.
func (c *Client) GetInstance(ctx context.Context, id string) (domain.RawInstance, error) {
	u, err := c.uuidOf(id)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := c.request(ctx, "get instance", http.MethodGet, "/instances/"+u, nil, &env); err != nil {
		return nil, err
	}
	return decodeInstance("get instance", env.Data)
}

// GetInstances implements domain.InstanceSource. The result is keyed by the
// ids as passed in; ids the store answers with an error are absent.
func (c *Client) GetInstances(ctx context.Context, ids []string) (map[string]domain.RawInstance, error) {
	out := make(map[string]domain.RawInstance, len(ids))
	seen := make(map[string]bool, len(ids))
	body := make([]string, 0, len(ids))
	for _, id := range ids {
		u, err := c.uuidOf(id)
		if err != nil || seen[u] {
			continue
		}
		seen[u] = true
		body = append(body, u)
	}
	if len(body) == 0 {
		return out, nil
	}

	var env envelope
	if err := c.request(ctx, "get instances", http.MethodPost, "/instancesByIds", body, &env); err != nil {
		return nil, err
	}
	var entries map[string]entry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		return nil, domain.Upstream("get instances", fmt.Errorf("decode instances: %w", err))
	}

	for _, id := range ids {
		u, err := c.uuidOf(id)
		if err != nil {
			continue
		}
		e, ok := entries[u]
		if !ok || e.Error != nil || len(e.Data) == 0 {
			continue
		}
		raw, err := decodeInstance("get instances", e.Data)
		if err != nil {
			return nil, err
		}
		out[id] = raw
	}
	return out, nil
}

// Search implements domain.InstanceSource.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchPage, error) {
	if q.Type == "" {
		return nil, fmt.Errorf("search: type is required: %w", domain.ErrInvalidInput)
	}
	values := url.Values{}
	values.Set("type", q.Type)
	if q.Space != "" {
		values.Set("space", q.Space)
	}
	if q.SearchByLabel != "" {
		values.Set("searchByLabel", q.SearchByLabel)
	}
	values.Set("from", strconv.Itoa(q.From))
	if q.Size > 0 {
		values.Set("size", strconv.Itoa(q.Size))
	}

	var env envelope
	if err := c.request(ctx, "search instances", http.MethodGet, "/instances?"+values.Encode(), nil, &env); err != nil {
		return nil, err
	}
	var docs []domain.RawInstance
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &docs); err != nil {
			return nil, domain.Upstream("search instances", fmt.Errorf("decode page: %w", err))
		}
	}

	page := &domain.SearchPage{Data: docs, From: q.From, Size: q.Size}
	if page.Data == nil {
		page.Data = []domain.RawInstance{}
	}
	page.Total = len(docs)
	if env.Total != nil {
		page.Total = *env.Total
	}
	if env.From != nil {
		page.From = *env.From
	}
	if env.Size != nil {
		page.Size = *env.Size
	}
	return page, nil
}

// CreateInstance implements domain.InstanceSource. An empty id lets the
// store assign one.
func (c *Client) CreateInstance(ctx context.Context, space, id string, payload domain.RawInstance) (domain.RawInstance, error) {
	if space == "" {
		return nil, fmt.Errorf("create instance: space is required: %w", domain.ErrInvalidInput)
	}
	path := "/instances"
	if id != "" {
		u, err := c.uuidOf(id)
		if err != nil {
			return nil, err
		}
		path += "/" + u
	}
	path += "?space=" + url.QueryEscape(space)

	var env envelope
	if err := c.request(ctx, "create instance", http.MethodPost, path, payload, &env); err != nil {
		return nil, err
	}
	return decodeInstance("create instance", env.Data)
}

// UpdateInstance implements domain.InstanceSource.
func (c *Client) UpdateInstance(ctx context.Context, id string, payload domain.RawInstance) (domain.RawInstance, error) {
	u, err := c.uuidOf(id)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := c.request(ctx, "update instance", http.MethodPatch, "/instances/"+u, payload, &env); err != nil {
		return nil, err
	}
	return decodeInstance("update instance", env.Data)
}

// DeleteInstance implements domain.InstanceSource.
func (c *Client) DeleteInstance(ctx context.Context, id string) error {
	u, err := c.uuidOf(id)
	if err != nil {
		return err
	}
	return c.request(ctx, "delete instance", http.MethodDelete, "/instances/"+u, nil, nil)
}

// wireScope is the scope tree as served by the store. Types are plain names.
type wireScope struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Types       []string     `json:"types"`
	Children    []*wireScope `json:"children"`
	Permissions []string     `json:"permissions"`
}

func (w *wireScope) element() *domain.ScopeElement {
	e := &domain.ScopeElement{
		ID:          w.ID,
		Label:       w.Label,
		Types:       make([]domain.TypeRef, len(w.Types)),
		Permissions: w.Permissions,
	}
	for i, t := range w.Types {
		e.Types[i] = domain.TypeRef{Name: t}
	}
	for _, child := range w.Children {
		if child != nil {
			e.Children = append(e.Children, child.element())
		}
	}
	return e
}

// GetScope implements domain.InstanceSource.
func (c *Client) GetScope(ctx context.Context, id string) (*domain.ScopeElement, error) {
	u, err := c.uuidOf(id)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := c.request(ctx, "get scope", http.MethodGet, "/instances/"+u+"/scope", nil, &env); err != nil {
		return nil, err
	}
	var w wireScope
	if err := json.Unmarshal(env.Data, &w); err != nil {
		return nil, domain.Upstream("get scope", fmt.Errorf("decode scope: %w", err))
	}
	return w.element(), nil
}

func decodeInstance(op string, data json.RawMessage) (domain.RawInstance, error) {
	var raw domain.RawInstance
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.Upstream(op, fmt.Errorf("decode instance: %w", err))
	}
	if raw == nil {
		return nil, domain.Upstream(op, errors.New("empty instance document"))
	}
	return raw, nil
}
