// Package identity resolves the (namespace, hunter_id) pair that scopes
// every inbound operation, and validates namespace strings before they
// reach the filesystem as a store path component.
package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

// HunterIDHeader and NamespaceHeader are the two transport-level headers
// every caller must supply. http.Header.Get is already case-insensitive,
// so no extra normalization is needed at the call site.
const (
	HunterIDHeader  = "hunter_id"
	NamespaceHeader = "taskhub_namespace"
)

// Identity is the resolved tenancy for one inbound request.
type Identity struct {
	Namespace string
	HunterID  string
}

// Resolver extracts and validates Identity from request headers. A TTL
// cache (one entry per namespace, 5s expiry) memoizes namespace validity so a hot path of repeated requests
// against the same namespace doesn't re-run the validator every time; the
// validation itself is pure and idempotent; the cache is purely a latency
// optimization, not a correctness dependency.
type Resolver struct {
	defaultNamespace string
	validCache       *cache.Cache
}

// NewResolver builds a Resolver. defaultNamespace is used by read-only list
// operations when the namespace header is absent; pass "" to require the
// header unconditionally.
func NewResolver(defaultNamespace string) *Resolver {
	return &Resolver{
		defaultNamespace: defaultNamespace,
		validCache:       cache.New(5*time.Second, 10*time.Second),
	}
}

// Resolve extracts Identity from header, requiring both hunter_id and
// taskhub_namespace to be present and the namespace to be well-formed.
func (r *Resolver) Resolve(header http.Header) (Identity, error) {
	return r.resolve(header, false)
}

// ResolveForList is like Resolve but falls back to the configured default
// namespace when the namespace header is blank, for read-only list
// operations. hunter_id is still required.
func (r *Resolver) ResolveForList(header http.Header) (Identity, error) {
	return r.resolve(header, true)
}

func (r *Resolver) resolve(header http.Header, allowDefaultNamespace bool) (Identity, error) {
	hunterID := strings.TrimSpace(header.Get(HunterIDHeader))
	if hunterID == "" {
		return Identity{}, domain.Wrap(domain.KindIdentity, "missing hunter_id header", domain.ErrIdentity)
	}

	namespace := strings.TrimSpace(header.Get(NamespaceHeader))
	if namespace == "" {
		if allowDefaultNamespace && r.defaultNamespace != "" {
			namespace = r.defaultNamespace
		} else {
			return Identity{}, domain.Wrap(domain.KindIdentity, "missing taskhub_namespace header", domain.ErrIdentity)
		}
	}

	if err := r.validateNamespace(namespace); err != nil {
		return Identity{}, err
	}

	return Identity{Namespace: namespace, HunterID: hunterID}, nil
}

func (r *Resolver) validateNamespace(namespace string) error {
	if cached, ok := r.validCache.Get(namespace); ok {
		if cached.(bool) {
			return nil
		}
		return domain.Wrap(domain.KindIdentity, "invalid taskhub_namespace", domain.ErrIdentity)
	}

	valid := namespace != "" &&
		!strings.ContainsAny(namespace, `/\`) &&
		!strings.Contains(namespace, "..")

	r.validCache.Set(namespace, valid, cache.DefaultExpiration)

	if !valid {
		return domain.Wrap(domain.KindIdentity, "invalid taskhub_namespace", domain.ErrIdentity)
	}
	return nil
}
