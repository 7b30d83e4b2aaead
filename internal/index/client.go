package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client talks to the external indexing subsystem over HTTP. It
// implements both Lister and Indexer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an indexer client with default HTTP settings.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: 30 * time.Second}, logger)
}

// NewClientWithHTTP creates an indexer client with a custom HTTP client
// (for testing).
func NewClientWithHTTP(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With(slog.String("integration", "indexer")),
	}
}

type listResponse struct {
	Files []IndexedFile `json:"files"`
	Total int           `json:"total"`
}

// ListIndexedFiles returns one page of the subsystem's indexed records.
func (c *Client) ListIndexedFiles(ctx context.Context, limit, offset int) ([]IndexedFile, int, error) {
	path := fmt.Sprintf("/api/v1/files?limit=%d&offset=%d", limit, offset)
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, 0, fmt.Errorf("listing indexed files: %w", err)
	}
	return resp.Files, resp.Total, nil
}

type registerRequest struct {
	Path   string `json:"path"`
	Policy string `json:"policy"`
}

// RegisterDirectory registers a directory under the given scan policy.
// Registering an already-known directory is not an error.
func (c *Client) RegisterDirectory(ctx context.Context, path, policy string) error {
	body := registerRequest{Path: path, Policy: policy}
	if err := c.do(ctx, http.MethodPost, "/api/v1/directories", body, nil); err != nil {
		return fmt.Errorf("registering directory: %w", err)
	}
	return nil
}

// RunStagedIndex issues the lightweight staged indexing call.
func (c *Client) RunStagedIndex(ctx context.Context, req StagedIndexRequest) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/index/staged", req, nil); err != nil {
		return fmt.Errorf("running staged index: %w", err)
	}
	return nil
}

// RunIndex issues the full indexing call.
func (c *Client) RunIndex(ctx context.Context, req IndexRequest) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/index", req, nil); err != nil {
		return fmt.Errorf("running index: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
