// Package dashboard implements C11's read-only telemetry aggregators.
// Nothing here writes; every function is a pure projection over the
// store's tables (§4.11).
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/xaxixak/oracle-v2/internal/store"
)

const (
	activityCap       = 20
	topConceptsN      = 10
	summaryWindowDays = 7
	graphSampleLimit  = 100
)

// Summary is oracle_stats's payload (§4.11 summary).
type Summary struct {
	TotalDocuments int
	CountsByType   map[string]int
	TotalConcepts  int
	TopConcepts    []store.ConceptCount
	Last7Days      struct {
		Consultations int
		Searches      int
		Learnings     int
	}
	FTSStatus   string
	LastIndexed *time.Time
}

// Activity is the payload of §4.11's activity(days) aggregator.
type Activity struct {
	Searches  []store.ActivityRow
	Consults  []store.ActivityRow
	Learnings []store.ActivityRow
}

// Growth is the payload of §4.11's growth(period) aggregator.
type Growth struct {
	Period string
	Points []store.GrowthPoint
}

// SessionStats is the payload of §4.11's session/stats(since) aggregator.
type SessionStats struct {
	Searches      int
	Consultations int
	Learnings     int
}

// GraphNode is one document surfaced in oracle_graph (§6.3).
type GraphNode struct {
	ID       string
	Type     store.DocType
	Title    string
	Concepts []string
}

// GraphEdge links two nodes that share at least one concept; Weight is
// the size of the intersection (§6.3).
type GraphEdge struct {
	Source string
	Target string
	Weight int
}

// Graph is the payload of §6.3's graph aggregator: every principle plus a
// random sample of up to 100 learnings as nodes, edges between any two
// nodes that share a concept.
type Graph struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// Service implements Dashboard (C11).
type Service struct {
	store *store.Store
}

func New(st *store.Store) *Service {
	return &Service{store: st}
}

// Summary aggregates the headline dashboard numbers.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	counts, total, err := s.store.DocumentCountsByType(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: summary: %w", err)
	}

	topConcepts, err := s.store.ConceptCounts(ctx, store.TypeAll, topConceptsN)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: top concepts: %w", err)
	}

	allConcepts, err := s.store.ConceptCounts(ctx, store.TypeAll, 0)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: concept total: %w", err)
	}

	since := time.Now().UTC().AddDate(0, 0, -summaryWindowDays).Format(time.RFC3339)
	consultations, err := s.store.LogCountSince(ctx, "consult_log", since)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: consultations: %w", err)
	}
	searches, err := s.store.LogCountSince(ctx, "search_log", since)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: searches: %w", err)
	}
	learnings, err := s.store.LogCountSince(ctx, "learn_log", since)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: learnings: %w", err)
	}

	status, err := s.store.GetIndexingStatus(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: indexing status: %w", err)
	}

	out := Summary{
		TotalDocuments: total,
		CountsByType:   counts,
		TotalConcepts:  len(allConcepts),
		TopConcepts:    topConcepts,
		FTSStatus:      "ok",
		LastIndexed:    status.CompletedAt,
	}
	out.Last7Days.Consultations = consultations
	out.Last7Days.Searches = searches
	out.Last7Days.Learnings = learnings
	return out, nil
}

// Activity returns the last N rows per log table, capped at 20 each
// (§4.11 activity). The days argument is accepted for the public
// contract's shape but the underlying log tables are already
// insertion-ordered, so recency is enforced by LIMIT rather than a
// date filter.
func (s *Service) Activity(ctx context.Context, days int) (Activity, error) {
	searches, err := s.store.RecentSearchLog(ctx, activityCap)
	if err != nil {
		return Activity{}, fmt.Errorf("dashboard: activity searches: %w", err)
	}
	consults, err := s.store.RecentConsultLog(ctx, activityCap)
	if err != nil {
		return Activity{}, fmt.Errorf("dashboard: activity consults: %w", err)
	}
	learnings, err := s.store.RecentLearnLog(ctx, activityCap)
	if err != nil {
		return Activity{}, fmt.Errorf("dashboard: activity learnings: %w", err)
	}
	return Activity{Searches: searches, Consults: consults, Learnings: learnings}, nil
}

// Growth returns per-day counts over the window the period maps to:
// week→7, month→30, quarter→90 (§4.11 growth).
func (s *Service) Growth(ctx context.Context, period string) (Growth, error) {
	days := periodDays(period)
	points, err := s.store.GrowthSeries(ctx, days)
	if err != nil {
		return Growth{}, fmt.Errorf("dashboard: growth: %w", err)
	}
	return Growth{Period: period, Points: points}, nil
}

func periodDays(period string) int {
	switch period {
	case "month":
		return 30
	case "quarter":
		return 90
	default:
		return 7
	}
}

// SessionStats counts searches/consultations/learnings created after since.
func (s *Service) SessionStats(ctx context.Context, since time.Time) (SessionStats, error) {
	sinceStr := since.UTC().Format(time.RFC3339)

	searches, err := s.store.LogCountSince(ctx, "search_log", sinceStr)
	if err != nil {
		return SessionStats{}, fmt.Errorf("dashboard: session searches: %w", err)
	}
	consultations, err := s.store.LogCountSince(ctx, "consult_log", sinceStr)
	if err != nil {
		return SessionStats{}, fmt.Errorf("dashboard: session consultations: %w", err)
	}
	learnings, err := s.store.LogCountSince(ctx, "learn_log", sinceStr)
	if err != nil {
		return SessionStats{}, fmt.Errorf("dashboard: session learnings: %w", err)
	}

	return SessionStats{Searches: searches, Consultations: consultations, Learnings: learnings}, nil
}

// Graph builds the principles+sampled-learnings concept graph (§6.3):
// nodes are documents, edges join any two nodes with overlapping concepts,
// weighted by the size of the intersection.
func (s *Service) Graph(ctx context.Context) (Graph, error) {
	docs, err := s.store.GraphDocuments(ctx, graphSampleLimit)
	if err != nil {
		return Graph{}, fmt.Errorf("dashboard: graph documents: %w", err)
	}

	nodes := make([]GraphNode, 0, len(docs))
	for _, d := range docs {
		nodes = append(nodes, GraphNode{ID: d.ID, Type: d.Type, Title: d.Title, Concepts: d.Concepts})
	}

	var edges []GraphEdge
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			weight := sharedConceptCount(nodes[i].Concepts, nodes[j].Concepts)
			if weight > 0 {
				edges = append(edges, GraphEdge{Source: nodes[i].ID, Target: nodes[j].ID, Weight: weight})
			}
		}
	}

	return Graph{Nodes: nodes, Edges: edges}, nil
}

func sharedConceptCount(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, c := range a {
		set[c] = struct{}{}
	}
	count := 0
	for _, c := range b {
		if _, ok := set[c]; ok {
			count++
		}
	}
	return count
}
