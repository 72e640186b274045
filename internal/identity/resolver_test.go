package identity

import (
	"net/http"
	"testing"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

func headers(hunterID, namespace string) http.Header {
	h := http.Header{}
	if hunterID != "" {
		h.Set(HunterIDHeader, hunterID)
	}
	if namespace != "" {
		h.Set(NamespaceHeader, namespace)
	}
	return h
}

func TestResolveValid(t *testing.T) {
	r := NewResolver("")
	id, err := r.Resolve(headers("hunter-1", "acme"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.HunterID != "hunter-1" || id.Namespace != "acme" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestResolveMissingHunterID(t *testing.T) {
	r := NewResolver("")
	_, err := r.Resolve(headers("", "acme"))
	if domain.KindOf(err) != domain.KindIdentity {
		t.Fatalf("expected KindIdentity, got %v", err)
	}
}

func TestResolveMissingNamespace(t *testing.T) {
	r := NewResolver("")
	_, err := r.Resolve(headers("hunter-1", ""))
	if domain.KindOf(err) != domain.KindIdentity {
		t.Fatalf("expected KindIdentity, got %v", err)
	}
}

func TestResolveRejectsPathTraversal(t *testing.T) {
	r := NewResolver("")
	for _, bad := range []string{"../escape", "a/b", `a\b`, "a/../b"} {
		if _, err := r.Resolve(headers("hunter-1", bad)); domain.KindOf(err) != domain.KindIdentity {
			t.Fatalf("expected KindIdentity for namespace %q, got %v", bad, err)
		}
	}
}

func TestResolveForListFallsBackToDefault(t *testing.T) {
	r := NewResolver("acme")
	id, err := r.ResolveForList(headers("hunter-1", ""))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.Namespace != "acme" {
		t.Fatalf("expected default namespace acme, got %q", id.Namespace)
	}
}

func TestResolveForListStillRequiresHunterID(t *testing.T) {
	r := NewResolver("acme")
	_, err := r.ResolveForList(headers("", ""))
	if domain.KindOf(err) != domain.KindIdentity {
		t.Fatalf("expected KindIdentity, got %v", err)
	}
}

func TestValidateNamespaceCacheConsistency(t *testing.T) {
	r := NewResolver("")
	if _, err := r.Resolve(headers("hunter-1", "acme")); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	// Second call hits the cached valid=true path.
	if _, err := r.Resolve(headers("hunter-1", "acme")); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if _, err := r.Resolve(headers("hunter-1", "../bad")); err == nil {
		t.Fatal("expected error for invalid namespace")
	}
	// Second call hits the cached valid=false path.
	if _, err := r.Resolve(headers("hunter-1", "../bad")); err == nil {
		t.Fatal("expected cached error for invalid namespace")
	}
}
