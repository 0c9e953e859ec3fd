package kg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// GetStatus implements domain.ReleaseStatusSource. Ids may be short or
// fully-qualified; the result is keyed by the ids as passed in and ids
// without a status entry are absent.
func (c *Client) GetStatus(ctx context.Context, ids []string, releaseTreeScope string) (map[string]string, error) {
	switch releaseTreeScope {
	case vocab.ScopeTopInstanceOnly, vocab.ScopeChildrenOnly, vocab.ScopeChildrenOnlyRestricted:
	default:
		return nil, fmt.Errorf("release tree scope %q: %w", releaseTreeScope, domain.ErrInvalidInput)
	}

	out := make(map[string]string, len(ids))
	uuids := make(map[string]string, len(ids))
	seen := make(map[string]bool, len(ids))
	body := make([]string, 0, len(ids))
	for _, id := range ids {
		u, err := c.uuidOf(id)
		if err != nil {
			continue
		}
		uuids[id] = u
		if !seen[u] {
			seen[u] = true
			body = append(body, u)
		}
	}
	if len(body) == 0 {
		return out, nil
	}

	path := "/releases/status?releaseTreeScope=" + url.QueryEscape(releaseTreeScope)
	var env envelope
	if err := c.request(ctx, "get release status", http.MethodPost, path, body, &env); err != nil {
		return nil, err
	}
	var entries map[string]entry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		return nil, domain.Upstream("get release status", fmt.Errorf("decode status: %w", err))
	}

	for id, u := range uuids {
		e, ok := entries[u]
		if !ok || e.Error != nil {
			continue
		}
		var status string
		if err := json.Unmarshal(e.Data, &status); err != nil || status == "" {
			continue
		}
		out[id] = status
	}
	return out, nil
}
