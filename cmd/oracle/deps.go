package main

import (
	"context"
	"fmt"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/xaxixak/oracle-v2/internal/config"
	"github.com/xaxixak/oracle-v2/internal/consult"
	"github.com/xaxixak/oracle-v2/internal/dashboard"
	"github.com/xaxixak/oracle-v2/internal/decisions"
	"github.com/xaxixak/oracle-v2/internal/embeddings"
	"github.com/xaxixak/oracle-v2/internal/forum"
	"github.com/xaxixak/oracle-v2/internal/learn"
	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/retrieval"
	"github.com/xaxixak/oracle-v2/internal/sanitize"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/telemetry"
	"github.com/xaxixak/oracle-v2/internal/trace"
	"github.com/xaxixak/oracle-v2/internal/vectorbackend"
)

// dependencies holds every infrastructure handle cmd/oracle constructs:
// the store, the vector backend transport, the tracer provider and the
// logger. Close releases the store and then the tracer provider; the
// vector backend and the logger are not closed.
type dependencies struct {
	cfg      *config.Config
	log      *logging.Logger
	provider *telemetry.Provider
	store    *store.Store
	vector   vectorbackend.Backend
}

func initDependencies(ctx context.Context) (*dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	provider, err := telemetry.Setup(ctx, telemetry.Config{ServiceName: "oracle-v2", Enabled: cfg.LogLevel == "debug"})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	st, err := store.Open(cfg.DBPath, log)
	if err != nil {
		provider.Shutdown(ctx)
		return nil, fmt.Errorf("open store: %w", err)
	}

	vec, err := initVectorBackend(ctx, cfg, log)
	if err != nil {
		st.Close()
		provider.Shutdown(ctx)
		return nil, fmt.Errorf("init vector backend: %w", err)
	}

	return &dependencies{cfg: cfg, log: log, provider: provider, store: st, vector: vec}, nil
}

func initVectorBackend(ctx context.Context, cfg *config.Config, log *logging.Logger) (vectorbackend.Backend, error) {
	var backend vectorbackend.Backend

	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		embedder, err := embeddings.New(embeddings.ConfigFromEnv())
		if err != nil {
			return nil, fmt.Errorf("build embedder: %w", err)
		}
		qdrant, err := vectorbackend.NewQdrantBackend(ctx, vectorbackend.QdrantConfig{Addr: cfg.QdrantAddr}, embedder, log)
		if err != nil {
			return nil, err
		}
		backend = qdrant
	default:
		pipe, err := vectorbackend.NewPipeBackend(cfg.VectorCmd, nil, log)
		if err != nil {
			return nil, err
		}
		backend = pipe
	}

	return vectorbackend.WithTimeout(backend, cfg.VectorTimeout), nil
}

// Close releases the store and the tracer provider. Callers whose own
// run loop already closes the store (httpapi.Run does, as part of its
// shutdown sequence) should call closeProvider instead to avoid a double
// close.
func (d *dependencies) Close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.log.Telemetry("store_close", err)
		}
	}
	d.closeProvider()
}

func (d *dependencies) closeProvider() {
	if d.provider != nil {
		d.provider.Shutdown(context.Background())
	}
}

// services bundles every business-logic subsystem (C5-C11), constructed
// once and shared by both the ToolServer and the HTTP API.
type services struct {
	retrieval *retrieval.Service
	consult   *consult.Service
	learn     *learn.Service
	trace     *trace.Service
	forum     *forum.Service
	decisions *decisions.Service
	dashboard *dashboard.Service
}

func initServices(d *dependencies, tracer oteltrace.Tracer) *services {
	st := d.store
	vec := d.vector
	log := d.log
	// §2 runs one process against one repo root, so the repo root stands
	// in for the teacher's tenant id: this keeps ORACLE_VECTOR_COLLECTION
	// a valid Qdrant/chromem identifier and scopes it per deployment when
	// several oracle-v2 instances share one vector store.
	collection := sanitize.CollectionName(d.cfg.RepoRoot, "", d.cfg.VectorCollection)

	consultSvc := consult.New(st, vec, collection, log, tracer)
	learnSvc := learn.New(st, d.cfg.RepoRoot, log, tracer)

	return &services{
		retrieval: retrieval.New(st, vec, collection, log, tracer),
		consult:   consultSvc,
		learn:     learnSvc,
		trace:     trace.New(st, learnSvc, log, tracer),
		forum:     forum.New(st, consultSvc, log, tracer),
		decisions: decisions.New(st, tracer),
		dashboard: dashboard.New(st),
	}
}
