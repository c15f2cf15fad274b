// Package decisions implements the Decision CRUD and status state machine
// (C10, §4.10).
package decisions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/xaxixak/oracle-v2/internal/oraclerr"
	"github.com/xaxixak/oracle-v2/internal/store"
)

// Status is one node in the decision lifecycle.
type Status string

const (
	StatusPending     Status = "pending"
	StatusParked      Status = "parked"
	StatusResearching Status = "researching"
	StatusDecided     Status = "decided"
	StatusImplemented Status = "implemented"
	StatusClosed      Status = "closed"
)

// legalTransitions is the edge list of §4.10's state machine.
var legalTransitions = map[Status]map[Status]bool{
	StatusPending:     {StatusParked: true, StatusResearching: true, StatusDecided: true, StatusClosed: true},
	StatusParked:      {StatusPending: true, StatusResearching: true, StatusDecided: true, StatusClosed: true},
	StatusResearching: {StatusPending: true, StatusParked: true, StatusDecided: true, StatusClosed: true},
	StatusDecided:     {StatusImplemented: true, StatusClosed: true},
	StatusImplemented: {StatusClosed: true},
	StatusClosed:      {},
}

// Decision is the typed in-memory representation of a DecisionRow.
type Decision struct {
	ID        string
	Title     string
	Status    Status
	Context   string
	Options   []string
	Decision  string
	Rationale string
	Project   string
	Tags      []string
	CreatedAt string
	UpdatedAt string
	DecidedAt string
	DecidedBy string
}

// CreateInput is decisions.create's public contract.
type CreateInput struct {
	Title   string
	Context string
	Options []string
	Project string
	Tags    []string
}

// UpdateInput carries the mutable fields a caller may rewrite.
type UpdateInput struct {
	Title     string
	Context   string
	Options   []string
	Decision  string
	Rationale string
	Project   string
	Tags      []string
}

// Service implements Decisions (C10).
type Service struct {
	store  *store.Store
	tracer trace.Tracer
	now    func() time.Time
}

func New(st *store.Store, tracer trace.Tracer) *Service {
	return &Service{store: st, tracer: tracer, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Decision, error) {
	ctx, span := s.tracer.Start(ctx, "decisions.Create")
	defer span.End()

	now := s.now().Format(time.RFC3339)
	row := store.DecisionRow{
		ID:        "decision_" + uuid.NewString(),
		Title:     in.Title,
		Status:    string(StatusPending),
		Context:   in.Context,
		Options:   marshalJSON(in.Options),
		Project:   in.Project,
		Tags:      marshalJSON(in.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertDecision(ctx, row); err != nil {
		return Decision{}, fmt.Errorf("decisions: create: %w", err)
	}
	return toDecision(row), nil
}

func (s *Service) Get(ctx context.Context, id string) (Decision, error) {
	row, err := s.store.GetDecision(ctx, id)
	if err != nil {
		return Decision{}, oraclerr.NewNotFound("decision", id)
	}
	return toDecision(row), nil
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]Decision, error) {
	rows, err := s.store.ListDecisions(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("decisions: list: %w", err)
	}
	out := make([]Decision, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDecision(r))
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Decision, error) {
	existing, err := s.store.GetDecision(ctx, id)
	if err != nil {
		return Decision{}, oraclerr.NewNotFound("decision", id)
	}

	existing.Title = in.Title
	existing.Context = in.Context
	existing.Options = marshalJSON(in.Options)
	existing.Decision = in.Decision
	existing.Rationale = in.Rationale
	existing.Project = in.Project
	existing.Tags = marshalJSON(in.Tags)

	if err := s.store.UpdateDecision(ctx, existing); err != nil {
		return Decision{}, fmt.Errorf("decisions: update: %w", err)
	}
	return s.Get(ctx, id)
}

// TransitionStatus applies a status change, rejecting edges not in
// legalTransitions (§4.10).
func (s *Service) TransitionStatus(ctx context.Context, id string, newStatus Status, decidedBy string) (Decision, error) {
	existing, err := s.store.GetDecision(ctx, id)
	if err != nil {
		return Decision{}, oraclerr.NewNotFound("decision", id)
	}

	current := Status(existing.Status)
	if !legalTransitions[current][newStatus] {
		return Decision{}, oraclerr.NewConflict(fmt.Sprintf("illegal transition %s -> %s", current, newStatus))
	}

	if err := s.store.TransitionDecision(ctx, id, string(newStatus), decidedBy); err != nil {
		return Decision{}, fmt.Errorf("decisions: transition: %w", err)
	}
	return s.Get(ctx, id)
}

func toDecision(r store.DecisionRow) Decision {
	return Decision{
		ID:        r.ID,
		Title:     r.Title,
		Status:    Status(r.Status),
		Context:   r.Context,
		Options:   unmarshalJSON(r.Options),
		Decision:  r.Decision,
		Rationale: r.Rationale,
		Project:   r.Project,
		Tags:      unmarshalJSON(r.Tags),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		DecidedAt: r.DecidedAt,
		DecidedBy: r.DecidedBy,
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
