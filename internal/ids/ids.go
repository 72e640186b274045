// Package ids generates opaque, prefixed entity identifiers and supplies
// the monotonic UTC clock the rest of the core uses for timestamps.
package ids

import (
	"time"

	"github.com/google/uuid"
)

// New returns an opaque ID of the form "<kind>-<random>". Kind is one of
// task, report, eval, lease, discussion, domain, knowledge.
func New(kind string) string {
	return kind + "-" + uuid.NewString()
}

// Now returns the current UTC time truncated to millisecond precision so
// stored and compared timestamps agree regardless of serialization
// round-trips through SQLite's text affinity.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
