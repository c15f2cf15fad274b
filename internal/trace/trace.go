// Package trace implements the discovery-session forest of Trace (C8):
// typed create/get/list/chain/distill over the raw JSON-carrying rows in
// internal/store (§4.8, §9 "JSON on the wire, typed internally").
package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/xaxixak/oracle-v2/internal/learn"
	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/oraclerr"
	"github.com/xaxixak/oracle-v2/internal/store"
)

// Direction selects how Chain walks the forest.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionBoth Direction = "both"
)

// Trace is the typed in-memory representation of one discovery session.
type Trace struct {
	ID            string
	Query         string
	QueryType     string
	Files         []string
	Commits       []string
	Issues        []string
	Retros        []string
	Learnings     []string
	Resonance     []string
	FileCount     int
	CommitCount   int
	IssueCount    int
	Depth         int
	ParentTraceID string
	ChildTraceIDs []string
	Status        string
	Awakening     string
	DistilledToID string
	DistilledAt   string
	CreatedAt     string
	UpdatedAt     string
}

// CreateInput is trace.create's public contract (§4.8).
type CreateInput struct {
	Query         string
	QueryType     string
	Files         []string
	Commits       []string
	Issues        []string
	Retros        []string
	Learnings     []string
	Resonance     []string
	ParentTraceID string
}

// ChainResult is the aggregate chain walk returns (§4.8).
type ChainResult struct {
	Traces           []Trace
	TotalDepth       int
	HasAwakening     bool
	AwakeningTraceID string
}

// Service implements Trace (C8).
type Service struct {
	store  *store.Store
	learn  *learn.Service
	log    *logging.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func New(st *store.Store, learnSvc *learn.Service, log *logging.Logger, tracer trace.Tracer) *Service {
	return &Service{store: st, learn: learnSvc, log: log, tracer: tracer, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a new trace, stamping depth from its parent and
// appending itself to the parent's child_trace_ids (§4.8 create).
func (s *Service) Create(ctx context.Context, in CreateInput) (Trace, error) {
	ctx, span := s.tracer.Start(ctx, "trace.Create")
	defer span.End()

	id := "trace_" + uuid.NewString()
	now := s.now().Format(time.RFC3339)

	depth := 0
	var childTraceIDsJSON string
	if in.ParentTraceID != "" {
		parent, err := s.store.GetTrace(ctx, in.ParentTraceID)
		if err != nil {
			return Trace{}, oraclerr.NewNotFound("trace", in.ParentTraceID)
		}
		depth = parent.Depth + 1

		var children []string
		_ = json.Unmarshal([]byte(parent.ChildTraceIDs), &children)
		children = append(children, id)
		buf, _ := json.Marshal(children)
		childTraceIDsJSON = string(buf)
	}

	row := store.TraceRow{
		ID:            id,
		Query:         in.Query,
		QueryType:     in.QueryType,
		Files:         marshalJSON(in.Files),
		Commits:       marshalJSON(in.Commits),
		Issues:        marshalJSON(in.Issues),
		Retros:        marshalJSON(in.Retros),
		Learnings:     marshalJSON(in.Learnings),
		Resonance:     marshalJSON(in.Resonance),
		FileCount:     len(in.Files),
		CommitCount:   len(in.Commits),
		IssueCount:    len(in.Issues),
		Depth:         depth,
		ParentTraceID: in.ParentTraceID,
		ChildTraceIDs: "[]",
		Status:        "raw",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateTraceWithParentLink(ctx, row, in.ParentTraceID, childTraceIDsJSON); err != nil {
		return Trace{}, fmt.Errorf("trace: create: %w", err)
	}

	return toTrace(row), nil
}

// Get returns one trace with its JSON arrays parsed (§4.8 get).
func (s *Service) Get(ctx context.Context, id string) (Trace, error) {
	row, err := s.store.GetTrace(ctx, id)
	if err != nil {
		return Trace{}, oraclerr.NewNotFound("trace", id)
	}
	return toTrace(row), nil
}

// List returns summary rows ordered by created_at descending (§4.8 list).
func (s *Service) List(ctx context.Context, limit, offset int) ([]Trace, error) {
	rows, err := s.store.ListTraces(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("trace: list: %w", err)
	}
	out := make([]Trace, 0, len(rows))
	for _, r := range rows {
		out = append(out, toTrace(r))
	}
	return out, nil
}

// Chain walks the forest from id in the given direction (§4.8 chain).
func (s *Service) Chain(ctx context.Context, id string, dir Direction) (ChainResult, error) {
	self, err := s.Get(ctx, id)
	if err != nil {
		return ChainResult{}, err
	}

	var up, down []Trace

	if dir == DirectionUp || dir == DirectionBoth {
		up, err = s.walkUp(ctx, self)
		if err != nil {
			return ChainResult{}, err
		}
	}
	if dir == DirectionDown || dir == DirectionBoth {
		down, err = s.walkDown(ctx, self)
		if err != nil {
			return ChainResult{}, err
		}
	}

	var all []Trace
	switch dir {
	case DirectionUp:
		all = append(up, self)
	case DirectionDown:
		all = append([]Trace{self}, down...)
	default:
		all = append(append(up, self), down...)
	}

	result := ChainResult{Traces: all}
	for _, t := range all {
		if t.Depth > result.TotalDepth {
			result.TotalDepth = t.Depth
		}
		if t.Status == "distilled" && t.Awakening != "" {
			result.HasAwakening = true
			result.AwakeningTraceID = t.ID
		}
	}
	return result, nil
}

// walkUp follows parent_trace_id transitively, nearest ancestor first.
func (s *Service) walkUp(ctx context.Context, t Trace) ([]Trace, error) {
	var chain []Trace
	seen := map[string]bool{t.ID: true}
	current := t
	for current.ParentTraceID != "" {
		if seen[current.ParentTraceID] {
			break
		}
		parent, err := s.Get(ctx, current.ParentTraceID)
		if err != nil {
			break
		}
		chain = append([]Trace{parent}, chain...)
		seen[parent.ID] = true
		current = parent
	}
	return chain, nil
}

// walkDown runs a breadth-first traversal over child_trace_ids.
func (s *Service) walkDown(ctx context.Context, t Trace) ([]Trace, error) {
	var out []Trace
	seen := map[string]bool{t.ID: true}
	queue := append([]string{}, t.ChildTraceIDs...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		child, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, child)
		queue = append(queue, child.ChildTraceIDs...)
	}
	return out, nil
}

// DistillInput is trace.distill's public contract (§4.8).
type DistillInput struct {
	ID               string
	Awakening        string
	PromoteToLearning bool
}

// Distill marks a trace distilled and, optionally, promotes its awakening
// into a learning document via Learn (§4.8 distill).
func (s *Service) Distill(ctx context.Context, in DistillInput) (Trace, error) {
	var distilledToID string
	if in.PromoteToLearning && s.learn != nil {
		out, err := s.learn.Learn(ctx, learn.Input{Pattern: in.Awakening, Source: "trace:" + in.ID})
		if err != nil {
			s.log.Telemetry("trace_distill_promote", err)
		} else {
			distilledToID = out.DocumentID
		}
	}

	if err := s.store.DistillTrace(ctx, in.ID, in.Awakening, distilledToID); err != nil {
		return Trace{}, fmt.Errorf("trace: distill: %w", err)
	}
	return s.Get(ctx, in.ID)
}

func toTrace(r store.TraceRow) Trace {
	return Trace{
		ID:            r.ID,
		Query:         r.Query,
		QueryType:     r.QueryType,
		Files:         unmarshalJSON(r.Files),
		Commits:       unmarshalJSON(r.Commits),
		Issues:        unmarshalJSON(r.Issues),
		Retros:        unmarshalJSON(r.Retros),
		Learnings:     unmarshalJSON(r.Learnings),
		Resonance:     unmarshalJSON(r.Resonance),
		FileCount:     r.FileCount,
		CommitCount:   r.CommitCount,
		IssueCount:    r.IssueCount,
		Depth:         r.Depth,
		ParentTraceID: r.ParentTraceID,
		ChildTraceIDs: unmarshalJSON(r.ChildTraceIDs),
		Status:        r.Status,
		Awakening:     r.Awakening,
		DistilledToID: r.DistilledToID,
		DistilledAt:   r.DistilledAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func marshalJSON(v []string) string {
	if v == nil {
		v = []string{}
	}
	buf, _ := json.Marshal(v)
	return string(buf)
}

func unmarshalJSON(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}
