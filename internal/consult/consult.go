// Package consult implements oracle_consult (§4.6): synthesizing guidance
// for a pending decision from the principles and patterns already on file.
package consult

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/retrieval"
	"github.com/xaxixak/oracle-v2/internal/sanitize"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/vectorbackend"
)

const (
	principleKeywordLimit = 5
	patternKeywordLimit   = 5
	vectorTopK            = 15
	bucketCap             = 3
	snippetChars          = 150
	closingAphorism       = "Remember: The Oracle Keeps the Human Human."
)

// Snippet is one consulted document reduced to what the guidance template
// needs.
type Snippet struct {
	ID      string
	Content string
	Score   float64
}

// Input is oracle_consult's public contract.
type Input struct {
	Decision string
	Context  string
	Project  string
	Cwd      string
}

// Output is oracle_consult's public contract.
type Output struct {
	Decision   string
	Principles []Snippet
	Patterns   []Snippet
	Guidance   string
}

// Service implements Consult (§4.6).
type Service struct {
	store      *store.Store
	vector     vectorbackend.Backend
	collection string
	log        *logging.Logger
	tracer     trace.Tracer
}

func New(st *store.Store, vec vectorbackend.Backend, collection string, log *logging.Logger, tracer trace.Tracer) *Service {
	if collection == "" {
		collection = "oracle_documents"
	}
	return &Service{store: st, vector: vec, collection: collection, log: log, tracer: tracer}
}

// Consult synthesizes guidance for decision+context from principles and
// patterns already on file (§4.6).
func (s *Service) Consult(ctx context.Context, in Input) (Output, error) {
	ctx, span := s.tracer.Start(ctx, "consult.Consult")
	defer span.End()

	combined := strings.TrimSpace(in.Decision + " " + in.Context)
	query := sanitize.Query(combined)
	w := retrieval.SelectWeights(query)

	principles := map[string]Snippet{}
	patterns := map[string]Snippet{}

	filter := store.ProjectFilter{}
	if in.Project != "" {
		filter = store.ProjectFilter{Mode: store.ProjectFilterWith, Project: in.Project}
	}

	principleRows, err := s.store.KeywordSearch(ctx, query, store.TypePrinciple, filter, principleKeywordLimit)
	if err != nil {
		s.log.Telemetry("consult_keyword_principle", err)
	}
	for _, r := range principleRows {
		addKeyword(principles, r, w)
	}

	patternRows, err := s.store.KeywordSearch(ctx, query, store.TypeLearning, filter, patternKeywordLimit)
	if err != nil {
		s.log.Telemetry("consult_keyword_pattern", err)
	}
	for _, r := range patternRows {
		addKeyword(patterns, r, w)
	}

	vec, vecErr := s.vector.Query(ctx, s.collection, query, vectorTopK, nil)
	if vecErr != nil {
		s.log.Telemetry("consult_vector", vecErr)
	} else {
		for i, id := range vec.IDs {
			var docType string
			var content string
			if i < len(vec.Metadatas) {
				docType = vec.Metadatas[i]["type"]
			}
			if i < len(vec.Documents) {
				content = vec.Documents[i]
			}
			var distance float64
			if i < len(vec.Distances) {
				distance = vec.Distances[i]
			}
			score := 1 - distance/2
			if score < 0 {
				score = 0
			}

			switch docType {
			case string(store.TypePrinciple):
				addVector(principles, id, content, score, w)
			case string(store.TypeLearning), string(store.TypePattern):
				addVector(patterns, id, content, score, w)
			}
		}
	}

	principleList := topN(principles, bucketCap)
	patternList := topN(patterns, bucketCap)

	guidance := buildGuidance(in.Decision, principleList, patternList)

	if err := s.store.LogConsult(ctx, in.Decision, in.Context, len(principleList), len(patternList), guidance, in.Project); err != nil {
		s.log.Telemetry("consult_log", err)
	}

	return Output{
		Decision:   in.Decision,
		Principles: principleList,
		Patterns:   patternList,
		Guidance:   guidance,
	}, nil
}

// addKeyword and addVector apply the same query-aware fts/vector blend
// retrieval.Search uses (§4.5.6), so a decision consulted alongside a
// search for the same text is scored consistently.
func addKeyword(bucket map[string]Snippet, row store.KeywordRow, w retrieval.Weights) {
	score := w.Fts * normalizeFTSRank(row.Rank)
	existing, ok := bucket[row.ID]
	if !ok {
		bucket[row.ID] = Snippet{ID: row.ID, Content: row.Content, Score: score}
		return
	}
	bucket[row.ID] = boosted(existing, score)
}

func addVector(bucket map[string]Snippet, id, content string, score float64, w retrieval.Weights) {
	weighted := w.Vector * score
	existing, ok := bucket[id]
	if !ok {
		bucket[id] = Snippet{ID: id, Content: content, Score: weighted}
		return
	}
	bucket[id] = boosted(existing, weighted)
}

// boosted applies §4.5.6's "found by both" rule to a snippet already
// scored from one source, now also hit by the other.
func boosted(existing Snippet, other float64) Snippet {
	combinedScore := (existing.Score + other) * 1.10
	if combinedScore > 1.0 {
		combinedScore = 1.0
	}
	existing.Score = combinedScore
	return existing
}

func normalizeFTSRank(rank float64) float64 {
	return math.Exp(-0.3 * math.Abs(rank))
}

func topN(bucket map[string]Snippet, n int) []Snippet {
	out := make([]Snippet, 0, len(bucket))
	for _, s := range bucket {
		out = append(out, s)
	}
	sortSnippets(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func sortSnippets(s []Snippet) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Score > s[j-1].Score; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func buildGuidance(decision string, principles, patterns []Snippet) string {
	if len(principles) == 0 && len(patterns) == 0 {
		return fmt.Sprintf("No matching principles or patterns for: %q", decision)
	}

	var b strings.Builder
	b.WriteString("Oracle guidance for: ")
	b.WriteString(decision)
	b.WriteString("\n\n")

	if len(principles) > 0 {
		b.WriteString("Principles:\n")
		for i, p := range principles {
			fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(p.Content, snippetChars))
		}
		b.WriteString("\n")
	}

	if len(patterns) > 0 {
		b.WriteString("Patterns:\n")
		for i, p := range patterns {
			fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(p.Content, snippetChars))
		}
		b.WriteString("\n")
	}

	b.WriteString(closingAphorism)
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
