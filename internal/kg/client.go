// Package kg is the HTTP client of the remote knowledge graph store. It
// implements the metadata, instance and release status ports on top of the
// store's JSON API and maps wire documents onto domain values.
package kg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

type tokenKey struct{}

// WithToken returns a context carrying the bearer token relayed to the
// graph store on every call made with it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the relayed bearer token, if any.
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// Client talks to the graph store API rooted at its base URL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	ids        *idnorm.Normalizer
	vocab      *vocab.Vocabulary
}

var _ domain.GraphStore = (*Client)(nil)

// New creates a client for the API at baseURL. Calls time out after timeout.
func New(baseURL string, timeout time.Duration, ids *idnorm.Normalizer, v *vocab.Vocabulary) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		ids:        ids,
		vocab:      v,
	}
}

// envelope is the response shape of every graph store endpoint.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Total *int            `json:"total,omitempty"`
	From  *int            `json:"from,omitempty"`
	Size  *int            `json:"size,omitempty"`
	Error *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// statusError is a non-2xx response of the graph store.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("graph store responded %d", e.status)
	}
	return fmt.Sprintf("graph store responded %d: %s", e.status, e.message)
}

// request sends one call and decodes the response envelope into out. op
// names the operation in errors. A 404 maps to domain.ErrNotFound, a 400 to
// domain.ErrInvalidInput; every other failure is an upstream failure.
func (c *Client) request(ctx context.Context, op, method, path string, in any, out *envelope) error {
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := TokenFromContext(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Upstream(op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	slog.Debug("graph store call", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		serr := &statusError{status: resp.StatusCode, message: errorMessage(payload)}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, serr)
		case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrInvalidInput, serr)
		default:
			return domain.Upstream(op, serr)
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return domain.Upstream(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// errorMessage extracts the message of an error envelope, falling back to the
// raw body.
func errorMessage(payload []byte) string {
	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Error != nil {
		return env.Error.Message
	}
	return strings.TrimSpace(string(payload))
}

// entry is one element of a keyed bulk response.
type entry struct {
	Data  json.RawMessage `json:"data"`
	Error *wireError      `json:"error,omitempty"`
}

// entryErr converts the error of a bulk entry into a domain error.
func entryErr(name string, e *wireError) error {
	if e.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %s", name, domain.ErrNotFound, e.Message)
	}
	return fmt.Errorf("%s: %s (%d)", name, e.Message, e.Code)
}

// uuidOf returns the path form of a fully-qualified or short instance id.
func (c *Client) uuidOf(id string) (string, error) {
	u, ok := c.ids.Simplify(c.ids.QualifyID(id))
	if !ok {
		return "", fmt.Errorf("instance id %q: %w", id, domain.ErrInvalidInput)
	}
	return u.String(), nil
}
