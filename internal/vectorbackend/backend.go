// Package vectorbackend speaks to the embedding/vector-search process
// oracle-v2 treats as an opaque external collaborator (§4.2). Two
// transports implement the same Backend contract: a spec-literal JSON-RPC
// pipe to a child process, and a gRPC client for a standalone Qdrant.
package vectorbackend

import "context"

// Point is one upsertable unit: raw text plus the metadata subset the
// backend needs for server-side filtering (§3.2).
type Point struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Filter is the small equality map §4.2's query contract allows: keys are
// limited to "type" and "source_file".
type Filter map[string]string

// QueryResult is the parallel-array shape §4.2 specifies.
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]string
	Distances []float64
}

// Stats is the minimal collection summary §4.2 requires.
type Stats struct {
	Count int
}

// Backend is the abstract contract of §4.2. Implementations may be slow,
// may fail, and callers must always be able to degrade to keyword-only
// search when they do (§4.5.9).
type Backend interface {
	// EnsureCollection creates the named collection if absent. Idempotent.
	EnsureCollection(ctx context.Context, name string) error

	// Upsert embeds and stores points, overwriting any existing point with
	// the same id. Callers batch at 100 items per call (§4.2, §4.4 step 5).
	Upsert(ctx context.Context, name string, points []Point) error

	// Query embeds text and returns the k nearest points, optionally
	// restricted by an equality filter over metadata.
	Query(ctx context.Context, name, text string, k int, where Filter) (QueryResult, error)

	// Stats returns at least the point count of the named collection.
	Stats(ctx context.Context, name string) (Stats, error)

	// DeleteCollection removes a collection and all its points; used by
	// re-index (§4.4 step 2).
	DeleteCollection(ctx context.Context, name string) error
}
