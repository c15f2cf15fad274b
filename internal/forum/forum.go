// Package forum implements handleThreadMessage (C9, §4.9): the thread
// lifecycle that lets a human post to a discussion and get an automatic
// oracle reply synthesized from Consult.
package forum

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/xaxixak/oracle-v2/internal/consult"
	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/oraclerr"
	"github.com/xaxixak/oracle-v2/internal/store"
)

const titlePreviewChars = 50

// MessageInput is handleThreadMessage's public contract (§4.9).
type MessageInput struct {
	Message  string
	ThreadID string
	Title    string
	Role     string
	Model    string
	Project  string
}

// MessageOutput carries the thread and the messages appended by this call
// (the human message, plus an oracle reply when one was generated).
type MessageOutput struct {
	Thread      store.ForumThreadRow
	HumanReply  store.ForumMessageRow
	OracleReply *store.ForumMessageRow
}

// Service implements Forum (C9).
type Service struct {
	store   *store.Store
	consult *consult.Service
	log     *logging.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

func New(st *store.Store, consultSvc *consult.Service, log *logging.Logger, tracer trace.Tracer) *Service {
	return &Service{store: st, consult: consultSvc, log: log, tracer: tracer, now: func() time.Time { return time.Now().UTC() }}
}

// HandleThreadMessage implements §4.9's four-step procedure.
func (s *Service) HandleThreadMessage(ctx context.Context, in MessageInput) (MessageOutput, error) {
	ctx, span := s.tracer.Start(ctx, "forum.HandleThreadMessage")
	defer span.End()

	role := in.Role
	if role == "" {
		role = "human"
	}

	threadID := in.ThreadID
	var thread store.ForumThreadRow

	if threadID == "" {
		threadID = "thread_" + uuid.NewString()
		title := in.Title
		if title == "" {
			title = truncate(in.Message, titlePreviewChars)
		}
		now := s.now().Format(time.RFC3339)
		thread = store.ForumThreadRow{
			ID: threadID, Title: title, Status: "active", Project: in.Project,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := s.store.InsertThread(ctx, thread); err != nil {
			return MessageOutput{}, fmt.Errorf("forum: create thread: %w", err)
		}
	} else {
		var err error
		thread, err = s.store.GetThread(ctx, threadID)
		if err != nil {
			return MessageOutput{}, oraclerr.NewNotFound("thread", threadID)
		}
	}

	humanMsg := store.ForumMessageRow{
		ThreadID:  threadID,
		Role:      role,
		Content:   in.Message,
		Author:    role,
		CreatedAt: s.now().Format(time.RFC3339),
	}
	if err := s.store.InsertMessage(ctx, humanMsg); err != nil {
		return MessageOutput{}, fmt.Errorf("forum: insert message: %w", err)
	}

	out := MessageOutput{Thread: thread, HumanReply: humanMsg}

	if role != "oracle" {
		reply, err := s.oracleReply(ctx, threadID, in.Message, in.Project)
		if err != nil {
			s.log.Telemetry("forum_oracle_reply", err)
		} else {
			out.OracleReply = &reply
		}
	}

	if err := s.store.TouchThread(ctx, threadID); err != nil {
		s.log.Telemetry("forum_touch_thread", err)
	}

	return out, nil
}

func (s *Service) oracleReply(ctx context.Context, threadID, message, project string) (store.ForumMessageRow, error) {
	result, err := s.consult.Consult(ctx, consult.Input{Decision: message, Project: project})
	if err != nil {
		return store.ForumMessageRow{}, err
	}

	principlesFound := len(result.Principles)
	patternsFound := len(result.Patterns)

	reply := store.ForumMessageRow{
		ThreadID:        threadID,
		Role:            "oracle",
		Content:         result.Guidance,
		Author:          "oracle",
		PrinciplesFound: &principlesFound,
		PatternsFound:   &patternsFound,
		SearchQuery:     message,
		CreatedAt:       s.now().Format(time.RFC3339),
	}
	if err := s.store.InsertMessage(ctx, reply); err != nil {
		return store.ForumMessageRow{}, err
	}
	return reply, nil
}

// UpdateStatus sets a thread's status; §4.9's lifecycle allows any
// transition.
func (s *Service) UpdateStatus(ctx context.Context, threadID, status string) error {
	return s.store.UpdateThreadStatus(ctx, threadID, status)
}

// Get returns one thread by id.
func (s *Service) Get(ctx context.Context, id string) (store.ForumThreadRow, error) {
	t, err := s.store.GetThread(ctx, id)
	if err != nil {
		return store.ForumThreadRow{}, oraclerr.NewNotFound("thread", id)
	}
	return t, nil
}

// List returns threads ordered by updated_at descending, optionally
// filtered by status.
func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]store.ForumThreadRow, error) {
	return s.store.ListThreads(ctx, status, limit, offset)
}

// Messages returns a thread's messages in chronological order.
func (s *Service) Messages(ctx context.Context, threadID string) ([]store.ForumMessageRow, error) {
	return s.store.ListMessages(ctx, threadID)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
