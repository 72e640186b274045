// Package store provides SQLite-backed, per-namespace persistence for
// Taskhub: tasks, hunters, reports, and discussion messages.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps one namespace's SQLite database. Every multi-statement write
// (claim, report_submit, report_evaluate) runs through WithTx, which holds
// mu for the duration of the transaction body: SQLite's WAL mode allows
// concurrent readers, but serializing writers here avoids SQLITE_BUSY churn
// under contention from multiple hunters acting in the same namespace.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the SQLite database at path and applies all pending
// migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying connection pool for callers (e.g. admin
// tooling) that need direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// WithTx runs fn inside a transaction, serialized against other writers in
// this namespace.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Transact(ctx, s.db, fn)
}

// Registry lazily opens and caches one *Store per namespace, keyed by the
// namespace name, with database files at <dataDir>/<namespace>.db.
type Registry struct {
	dataDir string

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry constructs a registry rooted at dataDir. dataDir must already
// exist; Registry does not create it.
func NewRegistry(dataDir string) *Registry {
	return &Registry{
		dataDir: dataDir,
		stores:  make(map[string]*Store),
	}
}

// Get returns the Store for namespace, opening and migrating it on first
// use. Namespace strings containing path separators or ".." are rejected to
// prevent escaping dataDir.
func (r *Registry) Get(namespace string) (*Store, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[namespace]; ok {
		return s, nil
	}

	path := filepath.Join(r.dataDir, namespace+".db")
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	r.stores[namespace] = s
	return s, nil
}

// Namespaces returns the namespaces currently opened in this registry, in
// no particular order. Used by the reaper's fan-out scan.
func (r *Registry) Namespaces() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.stores))
	for ns := range r.stores {
		out = append(out, ns)
	}
	return out
}

// CloseAll closes every store opened in this registry, collecting the first
// error encountered.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for ns, s := range r.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing namespace %q: %w", ns, err)
		}
	}
	return firstErr
}

func validateNamespace(namespace string) error {
	if namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if strings.ContainsAny(namespace, `/\`) || strings.Contains(namespace, "..") {
		return fmt.Errorf("namespace %q contains disallowed path characters", namespace)
	}
	return nil
}
