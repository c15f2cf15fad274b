package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xaxixak/oracle-v2/internal/consult"
	"github.com/xaxixak/oracle-v2/internal/decisions"
	"github.com/xaxixak/oracle-v2/internal/forum"
	"github.com/xaxixak/oracle-v2/internal/learn"
	"github.com/xaxixak/oracle-v2/internal/retrieval"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/trace"
)

// ---- search / consult / reflect / learn / list / concepts ----

func (s *Server) handleSearch(c echo.Context) error {
	ctx := c.Request().Context()
	in := retrieval.SearchInput{
		Query:  c.QueryParam("q"),
		Type:   store.DocType(c.QueryParam("type")),
		Mode:   retrieval.Mode(c.QueryParam("mode")),
		Limit:  atoiOr(c.QueryParam("limit"), 0),
		Offset: atoiOr(c.QueryParam("offset"), 0),
		Cwd:    c.QueryParam("cwd"),
	}
	if project, ok := c.QueryParams()["project"]; ok && len(project) > 0 {
		in.Project = &project[0]
	}

	out, err := s.svc.Retrieval.Search(ctx, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleConsult(c echo.Context) error {
	out, err := s.svc.Consult.Consult(c.Request().Context(), consult.Input{
		Decision: c.QueryParam("q"),
		Context:  c.QueryParam("context"),
		Project:  c.QueryParam("project"),
		Cwd:      c.QueryParam("cwd"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleReflect(c echo.Context) error {
	doc, content, err := s.svc.Store.RandomDocument(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no principles or learnings indexed yet")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id": doc.ID, "type": doc.Type, "title": doc.Title, "content": content,
	})
}

type learnRequest struct {
	Pattern  string   `json:"pattern"`
	Source   string   `json:"source"`
	Concepts []string `json:"concepts"`
	Origin   string   `json:"origin"`
	Project  string   `json:"project"`
	Cwd      string   `json:"cwd"`
}

func (s *Server) handleLearn(c echo.Context) error {
	var req learnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := s.svc.Learn.Learn(c.Request().Context(), learn.Input{
		Pattern:  req.Pattern,
		Source:   req.Source,
		Concepts: req.Concepts,
		Origin:   req.Origin,
		Project:  req.Project,
		Cwd:      req.Cwd,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (s *Server) handleList(c echo.Context) error {
	limit := atoiOr(c.QueryParam("limit"), 20)
	offset := atoiOr(c.QueryParam("offset"), 0)
	group := c.QueryParam("group") != "false"

	docs, err := s.svc.Store.ListDocuments(c.Request().Context(), store.DocType(c.QueryParam("type")), group, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) handleConcepts(c echo.Context) error {
	limit := atoiOr(c.QueryParam("limit"), 20)
	counts, err := s.svc.Store.ConceptCounts(c.Request().Context(), store.TypeAll, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, counts)
}

// handleGraph serves oracle_graph (§6.3): every principle plus a random
// sample of up to 100 learnings as nodes, edges between nodes sharing a
// concept weighted by the size of the intersection.
func (s *Server) handleGraph(c echo.Context) error {
	graph, err := s.svc.Dashboard.Graph(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, graph)
}

// ---- dashboard ----

func (s *Server) handleSummary(c echo.Context) error {
	summary, err := s.svc.Dashboard.Summary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) handleActivity(c echo.Context) error {
	days := atoiOr(c.QueryParam("days"), 7)
	activity, err := s.svc.Dashboard.Activity(c.Request().Context(), days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activity)
}

func (s *Server) handleGrowth(c echo.Context) error {
	period := c.QueryParam("period")
	if period == "" {
		period = "week"
	}
	growth, err := s.svc.Dashboard.Growth(c.Request().Context(), period)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, growth)
}

func (s *Server) handleSessionStats(c echo.Context) error {
	since := time.Now().UTC().AddDate(0, 0, -1)
	if raw := c.QueryParam("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be RFC3339")
		}
		since = parsed
	}
	stats, err := s.svc.Dashboard.SessionStats(c.Request().Context(), since)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// ---- forum threads ----

type threadMessageRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"threadId"`
	Title    string `json:"title"`
	Role     string `json:"role"`
	Model    string `json:"model"`
	Project  string `json:"project"`
}

func (s *Server) handleThreadMessage(c echo.Context) error {
	var req threadMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := s.svc.Forum.HandleThreadMessage(c.Request().Context(), forum.MessageInput{
		Message:  req.Message,
		ThreadID: req.ThreadID,
		Title:    req.Title,
		Role:     req.Role,
		Model:    req.Model,
		Project:  req.Project,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleThreads(c echo.Context) error {
	limit := atoiOr(c.QueryParam("limit"), 20)
	offset := atoiOr(c.QueryParam("offset"), 0)
	threads, err := s.svc.Forum.List(c.Request().Context(), c.QueryParam("status"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, threads)
}

func (s *Server) handleThreadRead(c echo.Context) error {
	id := c.Param("id")
	thread, err := s.svc.Forum.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	messages, err := s.svc.Forum.Messages(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"thread": thread, "messages": messages})
}

type threadUpdateRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleThreadUpdate(c echo.Context) error {
	var req threadUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.svc.Forum.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status); err != nil {
		return err
	}
	thread, err := s.svc.Forum.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, thread)
}

// ---- decisions ----

type decisionCreateRequest struct {
	Title   string   `json:"title"`
	Context string   `json:"context"`
	Options []string `json:"options"`
	Project string   `json:"project"`
	Tags    []string `json:"tags"`
}

func (s *Server) handleDecisionsList(c echo.Context) error {
	limit := atoiOr(c.QueryParam("limit"), 20)
	offset := atoiOr(c.QueryParam("offset"), 0)
	out, err := s.svc.Decisions.List(c.Request().Context(), c.QueryParam("status"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleDecisionsCreate(c echo.Context) error {
	var req decisionCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := s.svc.Decisions.Create(c.Request().Context(), decisions.CreateInput{
		Title: req.Title, Context: req.Context, Options: req.Options, Project: req.Project, Tags: req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (s *Server) handleDecisionsGet(c echo.Context) error {
	out, err := s.svc.Decisions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

type decisionUpdateRequest struct {
	Title     string   `json:"title"`
	Context   string   `json:"context"`
	Options   []string `json:"options"`
	Decision  string   `json:"decision"`
	Rationale string   `json:"rationale"`
	Project   string   `json:"project"`
	Tags      []string `json:"tags"`
}

func (s *Server) handleDecisionsUpdate(c echo.Context) error {
	var req decisionUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := s.svc.Decisions.Update(c.Request().Context(), c.Param("id"), decisions.UpdateInput{
		Title: req.Title, Context: req.Context, Options: req.Options,
		Decision: req.Decision, Rationale: req.Rationale, Project: req.Project, Tags: req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

type decisionTransitionRequest struct {
	Status    string `json:"status"`
	DecidedBy string `json:"decidedBy"`
}

// handleDecisionsTransition drives the status state machine (§8 property
// 11), split from handleDecisionsUpdate's field edits per §6.3's separate
// transition endpoint.
func (s *Server) handleDecisionsTransition(c echo.Context) error {
	var req decisionTransitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := s.svc.Decisions.TransitionStatus(c.Request().Context(), c.Param("id"), decisions.Status(req.Status), req.DecidedBy)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// ---- traces ----

type traceCreateRequest struct {
	Query         string   `json:"query"`
	QueryType     string   `json:"queryType"`
	Files         []string `json:"files"`
	Commits       []string `json:"commits"`
	Issues        []string `json:"issues"`
	Retros        []string `json:"retros"`
	Learnings     []string `json:"learnings"`
	Resonance     []string `json:"resonance"`
	ParentTraceID string   `json:"parentTraceId"`
}

func (s *Server) handleTraceCreate(c echo.Context) error {
	var req traceCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := s.svc.Trace.Create(c.Request().Context(), trace.CreateInput{
		Query: req.Query, QueryType: req.QueryType, Files: req.Files, Commits: req.Commits,
		Issues: req.Issues, Retros: req.Retros, Learnings: req.Learnings, Resonance: req.Resonance,
		ParentTraceID: req.ParentTraceID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (s *Server) handleTraceList(c echo.Context) error {
	limit := atoiOr(c.QueryParam("limit"), 20)
	offset := atoiOr(c.QueryParam("offset"), 0)
	out, err := s.svc.Trace.List(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleTraceGet(c echo.Context) error {
	id := c.Param("id")
	t, err := s.svc.Trace.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	dir := c.QueryParam("direction")
	if dir == "" {
		return c.JSON(http.StatusOK, t)
	}
	chain, err := s.svc.Trace.Chain(c.Request().Context(), id, trace.Direction(dir))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chain)
}

