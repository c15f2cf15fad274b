package retrieval

import (
	"regexp"
	"strings"
)

// Weights holds the fts/vector blend for a single search or consult call
// (§4.5.6). Both Retrieval and Consult fuse keyword and vector hits with
// this same query-aware split, so the derivation lives here once.
type Weights struct {
	Fts    float64
	Vector float64
	Tag    string // "" for the default blend, else the named mode
}

var booleanOperator = regexp.MustCompile(`(?i)\b(AND|OR|NOT)\b`)

// SelectWeights derives the query-aware fts/vector weight split. The
// rules are tried in order; the first match wins; the fallback is the
// even 0.5/0.5 default split (§4.5.6).
func SelectWeights(query string) Weights {
	tokens := strings.Fields(query)

	if len(tokens) <= 2 && !strings.Contains(query, `"`) {
		return Weights{Fts: 0.7, Vector: 0.3, Tag: "hybrid-short"}
	}

	if strings.Contains(query, `"`) || booleanOperator.MatchString(query) {
		return Weights{Fts: 0.75, Vector: 0.25, Tag: "hybrid-boolean"}
	}

	if len(tokens) > 5 {
		return Weights{Fts: 0.3, Vector: 0.7, Tag: "hybrid-long"}
	}

	return Weights{Fts: 0.5, Vector: 0.5}
}
