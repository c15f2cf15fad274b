// Package indexer drives the Parser -> {Store, VectorBackend} pipeline as
// one logical job (C4), under the indexing_status singleton's mutex.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/parser"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/vectorbackend"
)

const vectorUpsertBatchSize = 100

// Indexer coordinates one full re-index pass: parse the corpus, mark the
// job started with the chunk count as its total, clear both indices, then
// write. A parse failure leaves the existing indices untouched.
type Indexer struct {
	Store      *store.Store
	Vector     vectorbackend.Backend
	Collection string
	Log        *logging.Logger
	Tracer     trace.Tracer

	progress prometheus.Gauge
}

// New builds an Indexer. tracer may be a no-op tracer. New allocates the
// progress Gauge but does not register it with any registry.
func New(st *store.Store, vec vectorbackend.Backend, collection string, log *logging.Logger, tracer trace.Tracer) *Indexer {
	return &Indexer{
		Store:      st,
		Vector:     vec,
		Collection: collection,
		Log:        log,
		Tracer:     tracer,
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oracle_indexer_progress_current",
			Help: "Documents written so far in the current (or most recent) indexing run.",
		}),
	}
}

// Progress returns the progress Gauge. It appears on /metrics only if a
// caller registers it; nothing in this repository does.
func (idx *Indexer) Progress() prometheus.Gauge { return idx.progress }

// Run performs one complete re-index per §4.4's protocol.
func (idx *Indexer) Run(ctx context.Context, repoRoot string) error {
	ctx, span := idx.Tracer.Start(ctx, "indexer.run")
	defer span.End()

	p := parser.New(repoRoot)

	chunks, err := idx.parseWithSpan(ctx, p)
	if err != nil {
		idx.fail(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := idx.Store.SetIndexingStarted(ctx, len(chunks)); err != nil {
		return fmt.Errorf("indexer: mark started: %w", err)
	}

	if err := idx.Store.ClearAll(ctx); err != nil {
		idx.fail(ctx, err)
		return fmt.Errorf("indexer: clear store: %w", err)
	}
	if err := idx.Vector.DeleteCollection(ctx, idx.Collection); err != nil {
		idx.Log.Telemetry("vector_collection", err)
	}
	if err := idx.Vector.EnsureCollection(ctx, idx.Collection); err != nil {
		idx.Log.Warn("indexer: vector backend unreachable, continuing store-only",
			zapErr(err))
	}

	written := 0
	var pending []vectorbackend.Point

	for _, c := range chunks {
		ts := time.Now().UTC()
		doc := store.Document{
			ID:         c.ID,
			Type:       c.Type,
			Title:      c.Title,
			SourceFile: c.SourceFile,
			Concepts:   c.Concepts,
			CreatedAt:  ts,
			UpdatedAt:  ts,
			IndexedAt:  ts,
		}
		if err := idx.Store.UpsertDocument(ctx, doc, c.Content); err != nil {
			idx.fail(ctx, err)
			return fmt.Errorf("indexer: upsert document %s: %w", c.ID, err)
		}

		pending = append(pending, vectorbackend.Point{
			ID:   c.ID,
			Text: c.Content,
			Metadata: map[string]string{
				"type":        string(c.Type),
				"source_file": c.SourceFile,
				"concepts":    joinConcepts(c.Concepts),
			},
		})

		written++
		if len(pending) >= vectorUpsertBatchSize {
			idx.upsertVectorBatch(ctx, pending)
			pending = nil
		}

		if written%10 == 0 {
			_ = idx.Store.SetIndexingProgress(ctx, written)
		}
		idx.progress.Set(float64(written))
	}

	if len(pending) > 0 {
		idx.upsertVectorBatch(ctx, pending)
	}

	if err := idx.Store.SetIndexingCompleted(ctx, written); err != nil {
		return fmt.Errorf("indexer: mark completed: %w", err)
	}

	return nil
}

func (idx *Indexer) parseWithSpan(ctx context.Context, p *parser.Parser) ([]parser.Chunk, error) {
	ctx, span := idx.Tracer.Start(ctx, "indexer.parse")
	defer span.End()
	chunks, err := p.Parse()
	span.SetAttributes(attribute.Int("oracle.chunks", len(chunks)))
	return chunks, err
}

func (idx *Indexer) upsertVectorBatch(ctx context.Context, points []vectorbackend.Point) {
	ctx, span := idx.Tracer.Start(ctx, "indexer.vector_upsert")
	defer span.End()

	if err := idx.Vector.Upsert(ctx, idx.Collection, points); err != nil {
		// The vector backend being unreachable does not fail the job: the
		// store side remains authoritative (§4.4 step 5).
		idx.Log.Warn("indexer: vector upsert failed, store remains authoritative", zapErr(err))
		span.RecordError(err)
	}
}

func (idx *Indexer) fail(ctx context.Context, err error) {
	if setErr := idx.Store.SetIndexingFailed(ctx, err.Error()); setErr != nil {
		idx.Log.Telemetry("indexing_status", setErr)
	}
}

func joinConcepts(concepts []string) string {
	out := ""
	for i, c := range concepts {
		if i > 0 {
			out += " "
		}
		out += c
	}
	return out
}
