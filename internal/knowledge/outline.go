// Package knowledge wraps the external document store (Outline) and the
// LLM summarizer used to draft new knowledge items from completed work.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

// Document is the subset of an Outline document this implementation cares
// about. Tags is tolerant of documents that carry no tags field at all,
// matching the reference client's dict.get("tags", []) behavior.
type Document struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Text    string   `json:"text"`
	Tags    []string `json:"tags"`
}

// OutlineClient is a bearer-authenticated HTTP client against an Outline
// instance's JSON RPC-style API.
type OutlineClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewOutlineClient builds a client. timeout bounds each individual HTTP call
// (spec.md's 30s external-call deadline); retries are bounded separately by
// the backoff's 20s elapsed-time limit.
func NewOutlineClient(baseURL, apiKey string, timeout time.Duration) *OutlineClient {
	return &OutlineClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type outlineEnvelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// call POSTs a JSON body to an Outline endpoint and retries transient
// failures (5xx, network errors, timeouts) with exponential backoff. A
// non-2xx status or {"ok": false} both map to domain.ErrExternal.
func (c *OutlineClient) call(ctx context.Context, endpoint string, body any, out any) error {
	if c.baseURL == "" || c.apiKey == "" {
		return domain.Wrap(domain.KindExternal, "outline client not configured", domain.ErrExternal)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal outline request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 20 * time.Second

	var envelope outlineEnvelope
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build outline request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("outline request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read outline response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("outline returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("outline returned %d: %s", resp.StatusCode, string(raw)))
		}

		if err := json.Unmarshal(raw, &envelope); err != nil {
			return backoff.Permanent(fmt.Errorf("decode outline response: %w", err))
		}
		if !envelope.OK {
			return backoff.Permanent(fmt.Errorf("outline API error: %s", envelope.Error))
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return domain.Wrap(domain.KindExternal, fmt.Sprintf("outline call %s failed", endpoint), err)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return domain.Wrap(domain.KindExternal, "decode outline document", err)
		}
	}
	return nil
}

// CreateDocument creates a document in collectionID and returns it.
func (c *OutlineClient) CreateDocument(ctx context.Context, collectionID, title, content string, publish bool) (*Document, error) {
	var doc Document
	err := c.call(ctx, "/api/documents.create", map[string]any{
		"title":        title,
		"text":         content,
		"collectionId": collectionID,
		"publish":      publish,
	}, &doc)
	return &doc, err
}

// GetDocument fetches a document by ID.
func (c *OutlineClient) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := c.call(ctx, "/api/documents.info", map[string]any{"id": id}, &doc)
	return &doc, err
}

// SearchDocuments searches across all collections.
func (c *OutlineClient) SearchDocuments(ctx context.Context, query string, limit int) ([]Document, error) {
	var docs []Document
	err := c.call(ctx, "/api/documents.search", map[string]any{"query": query, "limit": limit}, &docs)
	return docs, err
}

// ListDocuments lists documents in a collection.
func (c *OutlineClient) ListDocuments(ctx context.Context, collectionID string, limit int) ([]Document, error) {
	var docs []Document
	body := map[string]any{"limit": limit}
	if collectionID != "" {
		body["collectionId"] = collectionID
	}
	err := c.call(ctx, "/api/documents.list", body, &docs)
	return docs, err
}

// UpdateDocument updates an existing document's title and/or text.
func (c *OutlineClient) UpdateDocument(ctx context.Context, id string, title, text *string) (*Document, error) {
	body := map[string]any{"id": id}
	if title != nil {
		body["title"] = *title
	}
	if text != nil {
		body["text"] = *text
	}
	var doc Document
	err := c.call(ctx, "/api/documents.update", body, &doc)
	return &doc, err
}

// DeleteDocument deletes a document by ID.
func (c *OutlineClient) DeleteDocument(ctx context.Context, id string) error {
	return c.call(ctx, "/api/documents.delete", map[string]any{"id": id}, nil)
}

// ListCollections lists every collection visible to the API key.
func (c *OutlineClient) ListCollections(ctx context.Context, limit int) ([]map[string]any, error) {
	var collections []map[string]any
	err := c.call(ctx, "/api/collections.list", map[string]any{"limit": limit}, &collections)
	return collections, err
}

// CreateCollection creates a new collection.
func (c *OutlineClient) CreateCollection(ctx context.Context, name, description string) (map[string]any, error) {
	body := map[string]any{"name": name}
	if description != "" {
		body["description"] = description
	}
	var collection map[string]any
	err := c.call(ctx, "/api/collections.create", body, &collection)
	return collection, err
}

// Tags returns the skill tags attached to a knowledge document, satisfying
// hunter.KnowledgeTagLookup.
func (c *OutlineClient) Tags(ctx context.Context, knowledgeID string) ([]string, error) {
	doc, err := c.GetDocument(ctx, knowledgeID)
	if err != nil {
		return nil, err
	}
	return doc.Tags, nil
}
