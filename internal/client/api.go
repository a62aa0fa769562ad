package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	models "atelier/internal/domain/models/favorites"
	favSvc "atelier/internal/domain/services/favorites"
)

const userAgent = "favctl/0.1"

// TokenSource provides bearer tokens for the favorites API. Defined at the
// consumer per Go convention "accept interfaces, return structs"; the
// session store provides the real implementation.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the favorites API. It handles request
// construction, authentication, and error classification; retry and
// timeout policy live in the lifecycle Manager above it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
}

// NewClient creates a favorites API client.
// baseURL is typically "http://localhost:8080".
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
	}
}

// TreeResponse is the payload of GET /api/tree and export endpoints.
type TreeResponse struct {
	Nodes []models.Node `json:"nodes"`
}

// CreateNodeRequest is the payload of POST /api/nodes.
type CreateNodeRequest struct {
	ParentID *string         `json:"parent_id,omitempty"`
	Name     string          `json:"name"`
	Kind     models.NodeKind `json:"node_type"`
	Target   string          `json:"target,omitempty"`
}

// DeleteResponse is the payload of DELETE /api/nodes/{id}.
type DeleteResponse struct {
	Removed []models.RemovedNode `json:"removed"`
}

// ImportRequest is the payload of POST /api/import.
type ImportRequest struct {
	LandingFolderID *string             `json:"landing_folder_id,omitempty"`
	Items           []favSvc.ImportItem `json:"items"`
}

// ImportResponse is the payload of a successful import.
type ImportResponse struct {
	Mapping map[string]string `json:"mapping"`
}

// FetchTree retrieves the caller's full favorites tree.
func (c *Client) FetchTree(ctx context.Context) ([]models.Node, error) {
	var out TreeResponse
	if err := c.do(ctx, http.MethodGet, "/api/tree", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Nodes, nil
}

// CreateNode creates one folder or file-reference node. idemKey, when
// non-empty, makes retries of the same logical request safe.
func (c *Client) CreateNode(ctx context.Context, req *CreateNodeRequest, idemKey string) (*models.Node, error) {
	var out models.Node
	if err := c.do(ctx, http.MethodPost, "/api/nodes", idemKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteNode removes a node and its subtree, returning what was removed.
// Deleting an already absent node succeeds with an empty list.
func (c *Client) DeleteNode(ctx context.Context, id string) ([]models.RemovedNode, error) {
	var out DeleteResponse
	if err := c.do(ctx, http.MethodDelete, "/api/nodes/"+id, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Removed, nil
}

// ExportSubtree fetches the self-contained flat export of a subtree.
func (c *Client) ExportSubtree(ctx context.Context, id string) ([]models.Node, error) {
	var out TreeResponse
	if err := c.do(ctx, http.MethodGet, "/api/nodes/"+id+"/export", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Nodes, nil
}

// ImportBatch imports a batch of items and returns the temp_id -> id
// mapping.
func (c *Client) ImportBatch(ctx context.Context, req *ImportRequest, idemKey string) (map[string]string, error) {
	var out ImportResponse
	if err := c.do(ctx, http.MethodPost, "/api/import", idemKey, req, &out); err != nil {
		return nil, err
	}
	return out.Mapping, nil
}

// do executes one request and decodes the JSON response into out.
// Error responses are classified into APIError with a status sentinel.
func (c *Client) do(ctx context.Context, method, path, idemKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}

	token, err := c.token.Token()
	if err != nil {
		return fmt.Errorf("client: %w: %v", ErrUnauthorized, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("client: request canceled: %w", ctx.Err())
		}
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if sentinel := classifyStatus(resp.StatusCode); sentinel != nil {
		return c.apiError(resp, sentinel)
	}

	c.logger.Debug("request succeeded",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding response: %w", err)
	}

	return nil
}

// apiError builds an APIError from an RFC 7807 problem response.
func (c *Client) apiError(resp *http.Response, sentinel error) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Detail:     http.StatusText(resp.StatusCode),
		Err:        sentinel,
	}

	var problem struct {
		Detail     string   `json:"detail"`
		Unresolved []string `json:"unresolved"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&problem); err == nil {
		if problem.Detail != "" {
			apiErr.Detail = problem.Detail
		}
		apiErr.Unresolved = problem.Unresolved
	}

	return apiErr
}
