package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

func TestCreateDocumentSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents.create" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Fatalf("missing bearer auth header")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"data": map[string]any{"id": "doc-1", "title": "hi", "text": "body", "tags": []string{"tracking"}},
		})
	}))
	defer srv.Close()

	c := NewOutlineClient(srv.URL, "test-key", 5*time.Second)
	doc, err := c.CreateDocument(context.Background(), "coll-1", "hi", "body", false)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if doc.ID != "doc-1" || doc.Title != "hi" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(doc.Tags) != 1 || doc.Tags[0] != "tracking" {
		t.Fatalf("expected tags to round-trip, got %v", doc.Tags)
	}
}

func TestCallMapsAPIErrorToExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "not found"})
	}))
	defer srv.Close()

	c := NewOutlineClient(srv.URL, "test-key", 5*time.Second)
	_, err := c.GetDocument(context.Background(), "missing")
	if domain.KindOf(err) != domain.KindExternal {
		t.Fatalf("expected KindExternal, got %v", err)
	}
}

func TestCallMapsNotConfiguredToExternal(t *testing.T) {
	c := NewOutlineClient("", "", time.Second)
	_, err := c.GetDocument(context.Background(), "doc-1")
	if domain.KindOf(err) != domain.KindExternal {
		t.Fatalf("expected KindExternal, got %v", err)
	}
}

func TestTagsReturnsDocumentTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"data": map[string]any{"id": "doc-1", "tags": []string{"cooking", "diving"}},
		})
	}))
	defer srv.Close()

	c := NewOutlineClient(srv.URL, "test-key", 5*time.Second)
	tags, err := c.Tags(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if len(tags) != 2 || tags[0] != "cooking" || tags[1] != "diving" {
		t.Fatalf("unexpected tags: %v", tags)
	}
}
