package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Match is one nearest-neighbor result, ranked by the index.
type Match struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// Config holds data-plane settings for a Pinecone-style vector index.
type Config struct {
	BaseURL   string
	APIKey    string
	Namespace string
}

// Client is a minimal data-plane client for a hosted vector index. It covers
// exactly the three operations the note pipeline needs: upsert, delete-by-id
// and filtered top-K query.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type vectorRecord struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Upsert writes one vector record, overwriting any prior record with the same id.
func (c *Client) Upsert(ctx context.Context, id string, values []float32, metadata map[string]string) error {
	if id == "" {
		return fmt.Errorf("vector id is empty")
	}
	if len(values) == 0 {
		return fmt.Errorf("vector values are empty")
	}

	reqBody := map[string]interface{}{
		"vectors": []vectorRecord{{ID: id, Values: values, Metadata: metadata}},
	}
	if c.cfg.Namespace != "" {
		reqBody["namespace"] = c.cfg.Namespace
	}

	return c.post(ctx, "/vectors/upsert", reqBody, nil)
}

// DeleteOne removes the vector record with the given id, if present.
func (c *Client) DeleteOne(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("vector id is empty")
	}

	reqBody := map[string]interface{}{
		"ids": []string{id},
	}
	if c.cfg.Namespace != "" {
		reqBody["namespace"] = c.cfg.Namespace
	}

	return c.post(ctx, "/vectors/delete", reqBody, nil)
}

// Query returns the topK nearest neighbors of vector, restricted to records
// whose metadata matches filter. Ranking and tie-breaking are the index's.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if topK <= 0 {
		topK = 4
	}

	reqBody := map[string]interface{}{
		"vector": vector,
		"topK":   topK,
	}
	if len(filter) > 0 {
		reqBody["filter"] = filter
	}
	if c.cfg.Namespace != "" {
		reqBody["namespace"] = c.cfg.Namespace
	}

	var parsed struct {
		Matches []Match `json:"matches"`
	}
	if err := c.post(ctx, "/query", reqBody, &parsed); err != nil {
		return nil, err
	}
	return parsed.Matches, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody interface{}, out interface{}) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal vector request failed: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build vector request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vector request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read vector response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("vector response status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse vector json failed: %w", err)
		}
	}
	return nil
}
