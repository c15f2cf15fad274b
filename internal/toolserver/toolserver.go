// Package toolserver implements C12: the MCP stdio tool protocol.
// Every tool call dispatches in-process to the service for its
// subsystem — no HTTP hop to a separate daemon (§4.12).
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xaxixak/oracle-v2/internal/consult"
	"github.com/xaxixak/oracle-v2/internal/dashboard"
	"github.com/xaxixak/oracle-v2/internal/decisions"
	"github.com/xaxixak/oracle-v2/internal/forum"
	"github.com/xaxixak/oracle-v2/internal/learn"
	"github.com/xaxixak/oracle-v2/internal/retrieval"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/trace"
)

// Services bundles every subsystem a tool call may dispatch to.
type Services struct {
	Retrieval *retrieval.Service
	Consult   *consult.Service
	Learn     *learn.Service
	Trace     *trace.Service
	Forum     *forum.Service
	Decisions *decisions.Service
	Dashboard *dashboard.Service
	Store     *store.Store
}

// Server implements the MCP stdio transport for oracle-v2's tool set.
type Server struct {
	mcpServer *mcpsdk.Server
	svc       Services
}

// NewServer builds a Server and registers all eighteen normative tools.
func NewServer(version string, svc Services) *Server {
	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "oracle",
		Version: version,
	}, nil)

	s := &Server{mcpServer: mcpServer, svc: svc}
	s.registerTools()
	return s
}

// Run starts the MCP server over stdin/stdout. It blocks until ctx is
// cancelled or the transport errors.
func (s *Server) Run(ctx context.Context) error {
	if err := s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("toolserver: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_search",
		Description: "Hybrid keyword+vector search over the indexed document corpus.",
	}, s.handleSearch)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_consult",
		Description: "Synthesize guidance for a pending decision from matching principles and patterns.",
	}, s.handleConsult)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_reflect",
		Description: "Return one random principle or learning, in full.",
	}, s.handleReflect)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_learn",
		Description: "Record a new learned pattern to the learnings subtree and index it.",
	}, s.handleLearn)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_list",
		Description: "List indexed documents of a type, grouped by source file by default.",
	}, s.handleList)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_stats",
		Description: "Summary counts across documents, concepts, and recent activity.",
	}, s.handleStats)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_concepts",
		Description: "Concept tag counts across the indexed corpus, descending.",
	}, s.handleConcepts)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_thread",
		Description: "Post a message to a forum thread, creating it if threadId is omitted.",
	}, s.handleThread)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_threads",
		Description: "List forum threads, optionally filtered by status.",
	}, s.handleThreads)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_thread_read",
		Description: "Read a forum thread's messages in order.",
	}, s.handleThreadRead)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_thread_update",
		Description: "Change a forum thread's status.",
	}, s.handleThreadUpdate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_decisions_list",
		Description: "List decisions, optionally filtered by status.",
	}, s.handleDecisionsList)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_decisions_create",
		Description: "Create a new decision in pending status.",
	}, s.handleDecisionsCreate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_decisions_get",
		Description: "Fetch a single decision by id.",
	}, s.handleDecisionsGet)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_decisions_update",
		Description: "Update a decision's fields or transition its status.",
	}, s.handleDecisionsUpdate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_trace",
		Description: "Create a new trace, optionally as a child of an existing one.",
	}, s.handleTrace)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_trace_list",
		Description: "List traces most recent first.",
	}, s.handleTraceList)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "oracle_trace_get",
		Description: "Fetch a trace and, optionally, walk its ancestry/descendant chain.",
	}, s.handleTraceGet)
}

// ---- oracle_search ----

type SearchParams struct {
	Query   string `json:"query" jsonschema:"Search query text"`
	Type    string `json:"type,omitempty" jsonschema:"Restrict to one document type"`
	Mode    string `json:"mode,omitempty" jsonschema:"hybrid, fts, or vector (default hybrid)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
	Offset  int    `json:"offset,omitempty" jsonschema:"Pagination offset"`
	Project string `json:"project,omitempty" jsonschema:"Restrict to a project slug, or empty string for universal-only"`
	Cwd     string `json:"cwd,omitempty" jsonschema:"Working directory used for project auto-detection"`
}

func (s *Server) handleSearch(ctx context.Context, req *mcpsdk.CallToolRequest, params *SearchParams) (*mcpsdk.CallToolResult, any, error) {
	in := retrieval.SearchInput{
		Query:  params.Query,
		Type:   store.DocType(params.Type),
		Mode:   retrieval.Mode(params.Mode),
		Limit:  params.Limit,
		Offset: params.Offset,
		Cwd:    params.Cwd,
	}
	if params.Project != "" {
		in.Project = &params.Project
	}
	out, err := s.svc.Retrieval.Search(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), out, nil
}

// ---- oracle_consult ----

type ConsultParams struct {
	Decision string `json:"decision" jsonschema:"The decision under consideration"`
	Context  string `json:"context,omitempty" jsonschema:"Supporting context for the decision"`
	Project  string `json:"project,omitempty" jsonschema:"Restrict to a project slug"`
	Cwd      string `json:"cwd,omitempty" jsonschema:"Working directory used for project auto-detection"`
}

func (s *Server) handleConsult(ctx context.Context, req *mcpsdk.CallToolRequest, params *ConsultParams) (*mcpsdk.CallToolResult, any, error) {
	out, err := s.svc.Consult.Consult(ctx, consult.Input{
		Decision: params.Decision,
		Context:  params.Context,
		Project:  params.Project,
		Cwd:      params.Cwd,
	})
	if err != nil {
		return nil, nil, err
	}
	return textResult(out.Guidance), out, nil
}

// ---- oracle_reflect ----

type ReflectParams struct{}

func (s *Server) handleReflect(ctx context.Context, req *mcpsdk.CallToolRequest, params *ReflectParams) (*mcpsdk.CallToolResult, any, error) {
	doc, content, err := s.svc.Store.RandomDocument(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("toolserver: reflect: %w", err)
	}
	result := map[string]any{
		"id":      doc.ID,
		"type":    doc.Type,
		"title":   doc.Title,
		"content": content,
	}
	return textResult(result), result, nil
}

// ---- oracle_learn ----

type LearnParams struct {
	Pattern  string   `json:"pattern" jsonschema:"The pattern or lesson learned"`
	Source   string   `json:"source,omitempty" jsonschema:"Where this pattern came from"`
	Concepts []string `json:"concepts,omitempty" jsonschema:"Concept tags for this learning"`
	Origin   string   `json:"origin,omitempty" jsonschema:"Who or what produced this learning"`
	Project  string   `json:"project,omitempty" jsonschema:"Project slug this learning belongs to"`
	Cwd      string   `json:"cwd,omitempty" jsonschema:"Working directory used for project auto-detection"`
}

func (s *Server) handleLearn(ctx context.Context, req *mcpsdk.CallToolRequest, params *LearnParams) (*mcpsdk.CallToolResult, any, error) {
	out, err := s.svc.Learn.Learn(ctx, learn.Input{
		Pattern:  params.Pattern,
		Source:   params.Source,
		Concepts: params.Concepts,
		Origin:   params.Origin,
		Project:  params.Project,
		Cwd:      params.Cwd,
	})
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), out, nil
}

// ---- oracle_list ----

type ListParams struct {
	Type        string `json:"type,omitempty" jsonschema:"Document type to list"`
	Limit       int    `json:"limit,omitempty" jsonschema:"Maximum rows (default 20)"`
	Offset      int    `json:"offset,omitempty" jsonschema:"Pagination offset"`
	GroupByFile *bool  `json:"groupByFile,omitempty" jsonschema:"Group by source file (default true)"`
}

func (s *Server) handleList(ctx context.Context, req *mcpsdk.CallToolRequest, params *ListParams) (*mcpsdk.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	group := true
	if params.GroupByFile != nil {
		group = *params.GroupByFile
	}
	docs, err := s.svc.Store.ListDocuments(ctx, store.DocType(params.Type), group, limit, params.Offset)
	if err != nil {
		return nil, nil, fmt.Errorf("toolserver: list: %w", err)
	}
	return textResult(docs), docs, nil
}

// ---- oracle_stats ----

type StatsParams struct{}

func (s *Server) handleStats(ctx context.Context, req *mcpsdk.CallToolRequest, params *StatsParams) (*mcpsdk.CallToolResult, any, error) {
	summary, err := s.svc.Dashboard.Summary(ctx)
	if err != nil {
		return nil, nil, err
	}
	return textResult(summary), summary, nil
}

// ---- oracle_concepts ----

type ConceptsParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum concepts to return (default 20)"`
}

func (s *Server) handleConcepts(ctx context.Context, req *mcpsdk.CallToolRequest, params *ConceptsParams) (*mcpsdk.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	counts, err := s.svc.Store.ConceptCounts(ctx, store.TypeAll, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("toolserver: concepts: %w", err)
	}
	return textResult(counts), counts, nil
}

// ---- oracle_thread ----

type ThreadParams struct {
	Message  string `json:"message" jsonschema:"Message text to post"`
	ThreadID string `json:"threadId,omitempty" jsonschema:"Existing thread id; omit to start a new thread"`
	Title    string `json:"title,omitempty" jsonschema:"Title for a new thread"`
	Role     string `json:"role,omitempty" jsonschema:"Author role: human or oracle (default human)"`
	Model    string `json:"model,omitempty" jsonschema:"Model identifier for the oracle reply"`
	Project  string `json:"project,omitempty" jsonschema:"Project slug this thread belongs to"`
}

func (s *Server) handleThread(ctx context.Context, req *mcpsdk.CallToolRequest, params *ThreadParams) (*mcpsdk.CallToolResult, any, error) {
	out, err := s.svc.Forum.HandleThreadMessage(ctx, forum.MessageInput{
		Message:  params.Message,
		ThreadID: params.ThreadID,
		Title:    params.Title,
		Role:     params.Role,
		Model:    params.Model,
		Project:  params.Project,
	})
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), out, nil
}

// ---- oracle_threads ----

type ThreadsParams struct {
	Status string `json:"status,omitempty" jsonschema:"Filter by thread status"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum threads (default 20)"`
	Offset int    `json:"offset,omitempty" jsonschema:"Pagination offset"`
}

func (s *Server) handleThreads(ctx context.Context, req *mcpsdk.CallToolRequest, params *ThreadsParams) (*mcpsdk.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	threads, err := s.svc.Forum.List(ctx, params.Status, limit, params.Offset)
	if err != nil {
		return nil, nil, fmt.Errorf("toolserver: threads: %w", err)
	}
	return textResult(threads), threads, nil
}

// ---- oracle_thread_read ----

type ThreadReadParams struct {
	ThreadID string `json:"threadId" jsonschema:"Thread id to read"`
}

func (s *Server) handleThreadRead(ctx context.Context, req *mcpsdk.CallToolRequest, params *ThreadReadParams) (*mcpsdk.CallToolResult, any, error) {
	thread, err := s.svc.Forum.Get(ctx, params.ThreadID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.svc.Forum.Messages(ctx, params.ThreadID)
	if err != nil {
		return nil, nil, fmt.Errorf("toolserver: thread_read: %w", err)
	}
	result := map[string]any{"thread": thread, "messages": messages}
	return textResult(result), result, nil
}

// ---- oracle_thread_update ----

type ThreadUpdateParams struct {
	ThreadID string `json:"threadId" jsonschema:"Thread id to update"`
	Status   string `json:"status" jsonschema:"New thread status"`
}

func (s *Server) handleThreadUpdate(ctx context.Context, req *mcpsdk.CallToolRequest, params *ThreadUpdateParams) (*mcpsdk.CallToolResult, any, error) {
	if err := s.svc.Forum.UpdateStatus(ctx, params.ThreadID, params.Status); err != nil {
		return nil, nil, err
	}
	thread, err := s.svc.Forum.Get(ctx, params.ThreadID)
	if err != nil {
		return nil, nil, err
	}
	return textResult(thread), thread, nil
}

// ---- oracle_decisions_list ----

type DecisionsListParams struct {
	Status string `json:"status,omitempty" jsonschema:"Filter by decision status"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum decisions (default 20)"`
	Offset int    `json:"offset,omitempty" jsonschema:"Pagination offset"`
}

func (s *Server) handleDecisionsList(ctx context.Context, req *mcpsdk.CallToolRequest, params *DecisionsListParams) (*mcpsdk.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	out, err := s.svc.Decisions.List(ctx, params.Status, limit, params.Offset)
	if err != nil {
		return nil, nil, fmt.Errorf("toolserver: decisions_list: %w", err)
	}
	return textResult(out), out, nil
}

// ---- oracle_decisions_create ----

type DecisionsCreateParams struct {
	Title   string   `json:"title" jsonschema:"Decision title"`
	Context string   `json:"context,omitempty" jsonschema:"Context driving the decision"`
	Options []string `json:"options,omitempty" jsonschema:"Options under consideration"`
	Project string   `json:"project,omitempty" jsonschema:"Project slug"`
	Tags    []string `json:"tags,omitempty" jsonschema:"Tags"`
}

func (s *Server) handleDecisionsCreate(ctx context.Context, req *mcpsdk.CallToolRequest, params *DecisionsCreateParams) (*mcpsdk.CallToolResult, any, error) {
	out, err := s.svc.Decisions.Create(ctx, decisions.CreateInput{
		Title:   params.Title,
		Context: params.Context,
		Options: params.Options,
		Project: params.Project,
		Tags:    params.Tags,
	})
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), out, nil
}

// ---- oracle_decisions_get ----

type DecisionsGetParams struct {
	ID string `json:"id" jsonschema:"Decision id"`
}

func (s *Server) handleDecisionsGet(ctx context.Context, req *mcpsdk.CallToolRequest, params *DecisionsGetParams) (*mcpsdk.CallToolResult, any, error) {
	out, err := s.svc.Decisions.Get(ctx, params.ID)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), out, nil
}

// ---- oracle_decisions_update ----

type DecisionsUpdateParams struct {
	ID        string   `json:"id" jsonschema:"Decision id"`
	Title     string   `json:"title,omitempty" jsonschema:"Updated title"`
	Context   string   `json:"context,omitempty" jsonschema:"Updated context"`
	Options   []string `json:"options,omitempty" jsonschema:"Updated options"`
	Decision  string   `json:"decision,omitempty" jsonschema:"Decision text, once made"`
	Rationale string   `json:"rationale,omitempty" jsonschema:"Rationale for the decision"`
	Project   string   `json:"project,omitempty" jsonschema:"Project slug"`
	Tags      []string `json:"tags,omitempty" jsonschema:"Updated tags"`
	Status    string   `json:"status,omitempty" jsonschema:"If set, transition to this status"`
	DecidedBy string   `json:"decidedBy,omitempty" jsonschema:"Who made the decision, for a decided transition"`
}

func (s *Server) handleDecisionsUpdate(ctx context.Context, req *mcpsdk.CallToolRequest, params *DecisionsUpdateParams) (*mcpsdk.CallToolResult, any, error) {
	if params.Status != "" {
		out, err := s.svc.Decisions.TransitionStatus(ctx, params.ID, decisions.Status(params.Status), params.DecidedBy)
		if err != nil {
			return nil, nil, err
		}
		return textResult(out), out, nil
	}
	out, err := s.svc.Decisions.Update(ctx, params.ID, decisions.UpdateInput{
		Title:     params.Title,
		Context:   params.Context,
		Options:   params.Options,
		Decision:  params.Decision,
		Rationale: params.Rationale,
		Project:   params.Project,
		Tags:      params.Tags,
	})
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), out, nil
}

// ---- oracle_trace ----

type TraceParams struct {
	Query         string   `json:"query" jsonschema:"What was being explored"`
	QueryType     string   `json:"queryType,omitempty" jsonschema:"Category of the query"`
	Files         []string `json:"files,omitempty" jsonschema:"Files touched during this trace"`
	Commits       []string `json:"commits,omitempty" jsonschema:"Commits touched during this trace"`
	Issues        []string `json:"issues,omitempty" jsonschema:"Issues touched during this trace"`
	Retros        []string `json:"retros,omitempty" jsonschema:"Retros touched during this trace"`
	Learnings     []string `json:"learnings,omitempty" jsonschema:"Learnings touched during this trace"`
	Resonance     []string `json:"resonance,omitempty" jsonschema:"Resonant concepts for this trace"`
	ParentTraceID string   `json:"parentTraceId,omitempty" jsonschema:"Parent trace id, if this continues a prior one"`
}

func (s *Server) handleTrace(ctx context.Context, req *mcpsdk.CallToolRequest, params *TraceParams) (*mcpsdk.CallToolResult, any, error) {
	out, err := s.svc.Trace.Create(ctx, trace.CreateInput{
		Query:         params.Query,
		QueryType:     params.QueryType,
		Files:         params.Files,
		Commits:       params.Commits,
		Issues:        params.Issues,
		Retros:        params.Retros,
		Learnings:     params.Learnings,
		Resonance:     params.Resonance,
		ParentTraceID: params.ParentTraceID,
	})
	if err != nil {
		return nil, nil, err
	}
	return textResult(out), out, nil
}

// ---- oracle_trace_list ----

type TraceListParams struct {
	Limit  int `json:"limit,omitempty" jsonschema:"Maximum traces (default 20)"`
	Offset int `json:"offset,omitempty" jsonschema:"Pagination offset"`
}

func (s *Server) handleTraceList(ctx context.Context, req *mcpsdk.CallToolRequest, params *TraceListParams) (*mcpsdk.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	out, err := s.svc.Trace.List(ctx, limit, params.Offset)
	if err != nil {
		return nil, nil, fmt.Errorf("toolserver: trace_list: %w", err)
	}
	return textResult(out), out, nil
}

// ---- oracle_trace_get ----

type TraceGetParams struct {
	ID        string `json:"id" jsonschema:"Trace id"`
	Direction string `json:"direction,omitempty" jsonschema:"Chain walk direction: up, down, or both; omit to skip the chain walk"`
}

func (s *Server) handleTraceGet(ctx context.Context, req *mcpsdk.CallToolRequest, params *TraceGetParams) (*mcpsdk.CallToolResult, any, error) {
	t, err := s.svc.Trace.Get(ctx, params.ID)
	if err != nil {
		return nil, nil, err
	}
	if params.Direction == "" {
		return textResult(t), t, nil
	}
	chain, err := s.svc.Trace.Chain(ctx, params.ID, trace.Direction(params.Direction))
	if err != nil {
		return nil, nil, err
	}
	return textResult(chain), chain, nil
}

// textResult renders v as indented JSON inside a single text content
// block, the shape every handler in this file returns.
func textResult(v any) *mcpsdk.CallToolResult {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: fmt.Sprintf("%v", v)}},
		}
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(buf)}},
	}
}
