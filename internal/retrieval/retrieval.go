package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/sanitize"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/vectorbackend"
)

const (
	defaultLimit      = 10
	defaultCollection = "oracle_documents"
)

// Service is the hybrid search engine (§4.5). It owns no state of its own;
// every call is independently resolvable from the store and vector backend.
type Service struct {
	store      *store.Store
	vector     vectorbackend.Backend
	collection string
	log        *logging.Logger
	tracer     trace.Tracer
}

// New builds a Service. collection names the vector backend's collection,
// matching ORACLE_VECTOR_COLLECTION.
func New(st *store.Store, vec vectorbackend.Backend, collection string, log *logging.Logger, tracer trace.Tracer) *Service {
	if collection == "" {
		collection = defaultCollection
	}
	return &Service{store: st, vector: vec, collection: collection, log: log, tracer: tracer}
}

// resolveProject turns SearchInput's project fields into a store.ProjectFilter
// per §4.5.2: an explicit (possibly empty) project always wins; otherwise we
// auto-detect from Cwd, falling back to "no filter" if nothing resolves.
func (s *Service) resolveProject(in SearchInput) store.ProjectFilter {
	if in.Project != nil {
		if *in.Project == "" {
			return store.ProjectFilter{Mode: store.ProjectFilterNullOnly}
		}
		return store.ProjectFilter{Mode: store.ProjectFilterWith, Project: *in.Project}
	}

	if slug := ResolveProjectSlug(in.Cwd); slug != "" {
		return store.ProjectFilter{Mode: store.ProjectFilterWith, Project: slug}
	}

	return store.ProjectFilter{Mode: store.ProjectFilterNone}
}

// Search runs the hybrid search pipeline: sanitize, resolve filters, query
// both backends, fuse, paginate, log (§4.5).
func (s *Service) Search(ctx context.Context, in SearchInput) (SearchOutput, error) {
	ctx, span := s.tracer.Start(ctx, "retrieval.Search")
	defer span.End()

	limit := in.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	started := time.Now()
	query := sanitize.Query(in.Query)
	w := SelectWeights(query)
	projectFilter := s.resolveProject(in)

	var (
		ftsRows []store.KeywordRow
		ftsErr  error
		vec     vectorbackend.QueryResult
		vecErr  error
	)

	var keywordTotal int
	var keywordTotalErr error

	if in.Mode != ModeVector {
		ftsRows, ftsErr = s.store.KeywordSearch(ctx, query, in.Type, projectFilter, 2*limit)
		if ftsErr == nil {
			keywordTotal, keywordTotalErr = s.store.KeywordSearchTotal(ctx, query, in.Type, projectFilter)
			if keywordTotalErr != nil {
				s.log.Telemetry("keyword_total", keywordTotalErr)
			}
		}
	}
	if in.Mode != ModeFTS {
		vec, vecErr = s.vector.Query(ctx, s.collection, query, 2*limit, vectorFilterFor(in.Type))
	}

	warning := ""
	switch {
	case ftsErr != nil && vecErr != nil:
		return SearchOutput{}, fmt.Errorf("keyword search failed: %w (vector also unavailable: %v)", ftsErr, vecErr)
	case ftsErr != nil:
		return SearchOutput{}, fmt.Errorf("keyword search failed: %w", ftsErr)
	case vecErr != nil:
		warning = fmt.Sprintf("Vector search unavailable: %s. Using FTS5 only.", vecErr.Error())
		s.log.Telemetry("vector_backend", vecErr)
		vec = vectorbackend.QueryResult{}
	}

	if len(vec.IDs) > 0 && projectFilter.Mode != store.ProjectFilterNone {
		vec = s.applyProjectFilter(ctx, vec, projectFilter)
	}

	fused := fuse(ftsRows, vec, w)
	combinedCount := len(fused)

	var total int
	switch in.Mode {
	case ModeFTS:
		total = keywordTotal
	case ModeVector:
		total = combinedCount
	default:
		total = keywordTotal
		if combinedCount > total {
			total = combinedCount
		}
	}

	page, _ := paginate(fused, offset, limit)

	mode := string(ModeHybrid)
	if w.Tag != "" {
		mode = w.Tag
	}
	if in.Mode == ModeFTS || in.Mode == ModeVector {
		mode = string(in.Mode)
	}

	elapsedMs := int(time.Since(started).Milliseconds())
	if err := s.store.LogSearch(ctx, query, in.Type, mode, total, elapsedMs, projectFilter.Project); err != nil {
		s.log.Telemetry("search_log", err)
	}
	for _, r := range page {
		if err := s.store.LogDocumentAccess(ctx, r.ID, "search"); err != nil {
			s.log.Telemetry("document_access", err)
		}
	}

	return SearchOutput{
		Results: page,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		Mode:    mode,
		Warning: warning,
	}, nil
}

// applyProjectFilter joins vector hits back against oracle_documents to
// apply the project scoping rule (§4.5.2): the vector backend's own filter
// only understands type/source_file equality, so project scoping for
// vector results is always a post-hoc join.
func (s *Service) applyProjectFilter(ctx context.Context, vec vectorbackend.QueryResult, pf store.ProjectFilter) vectorbackend.QueryResult {
	projects, err := s.store.ProjectsOf(ctx, vec.IDs)
	if err != nil {
		s.log.Telemetry("projects_of", err)
		return vec
	}

	out := vectorbackend.QueryResult{}
	for i, id := range vec.IDs {
		proj := projects[id]
		keep := false
		switch pf.Mode {
		case store.ProjectFilterWith:
			keep = proj == "" || proj == pf.Project
		case store.ProjectFilterNullOnly:
			keep = proj == ""
		}
		if !keep {
			continue
		}
		out.IDs = append(out.IDs, id)
		if i < len(vec.Documents) {
			out.Documents = append(out.Documents, vec.Documents[i])
		}
		if i < len(vec.Metadatas) {
			out.Metadatas = append(out.Metadatas, vec.Metadatas[i])
		}
		if i < len(vec.Distances) {
			out.Distances = append(out.Distances, vec.Distances[i])
		}
	}
	return out
}

func vectorFilterFor(t store.DocType) vectorbackend.Filter {
	if t == "" || t == store.TypeAll {
		return nil
	}
	return vectorbackend.Filter{"type": string(t)}
}
