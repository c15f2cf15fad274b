// Package retrieval implements the hybrid keyword+vector search engine:
// sanitize, run both backends, normalize scores, fuse, paginate, log.
// This is the hardest component in the system (§4.5).
package retrieval

import "github.com/xaxixak/oracle-v2/internal/store"

// Mode selects which backend(s) a search call exercises.
type Mode string

const (
	ModeHybrid Mode = "hybrid"
	ModeFTS    Mode = "fts"
	ModeVector Mode = "vector"
)

// Source reports which backend(s) produced a given Result.
type Source string

const (
	SourceFTS    Source = "fts"
	SourceVector Source = "vector"
	SourceHybrid Source = "hybrid"
)

// SearchInput is §4.5.1's public contract.
type SearchInput struct {
	Query string
	Type  store.DocType
	Limit int
	Offset int
	Mode  Mode

	// Project, when non-nil, is the explicit project filter: a pointer to
	// "" means "universal only", matching §4.5.2's "explicit null/empty"
	// clause. A nil Project defers to Cwd-based auto-detection.
	Project *string
	Cwd     string
}

// Result is one ranked hit: §4.5.1.
type Result struct {
	ID          string
	Type        store.DocType
	Content     string // first 500 chars
	SourceFile  string
	Concepts    []string
	Project     *string
	Source      Source
	Score       float64
	FTSScore    *float64
	VectorScore *float64
}

// SearchOutput is §4.5.1's public contract.
type SearchOutput struct {
	Results []Result
	Total   int
	Offset  int
	Limit   int
	Mode    string
	Warning string
}
