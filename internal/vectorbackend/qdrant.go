package vectorbackend

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/xaxixak/oracle-v2/internal/logging"
)

// Embedder turns text into a dense vector. Unlike PipeBackend (which hides
// embedding inside the child process), QdrantBackend talks to a vector
// database that stores only vectors, so it needs its own embedding step.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// QdrantBackend adapts oracle-v2's Backend contract onto a standalone
// Qdrant instance over gRPC, for deployments that want a real ANN index
// instead of the spec-literal child process.
type QdrantBackend struct {
	client   *qdrant.Client
	embedder Embedder
	log      *logging.Logger
}

// QdrantConfig controls connection construction.
type QdrantConfig struct {
	Addr        string // host:port, grpc port (default 6334)
	UseTLS      bool
	APIKey      string
	VectorSize  uint64
}

// NewQdrantBackend dials addr and verifies the connection with a health check.
func NewQdrantBackend(ctx context.Context, cfg QdrantConfig, embedder Embedder, log *logging.Logger) (*QdrantBackend, error) {
	var dialOpts []grpc.DialOption
	if !cfg.UseTLS {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Addr,
		APIKey: cfg.APIKey,
		GrpcOptions: dialOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorbackend: dial qdrant: %w", err)
	}

	if _, err := client.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("vectorbackend: qdrant health check: %w", err)
	}

	return &QdrantBackend{client: client, embedder: embedder, log: log}, nil
}

func (b *QdrantBackend) EnsureCollection(ctx context.Context, name string) error {
	exists, err := b.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     768,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (b *QdrantBackend) collectionExists(ctx context.Context, name string) (bool, error) {
	_, err := b.client.GetCollectionInfo(ctx, name)
	if err == nil {
		return true, nil
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.NotFound {
		return false, nil
	}
	return false, fmt.Errorf("vectorbackend: collection exists check: %w", err)
}

func (b *QdrantBackend) Upsert(ctx context.Context, name string, points []Point) error {
	const batchSize = 100
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}

		qpoints := make([]*qdrant.PointStruct, 0, end-start)
		for _, p := range points[start:end] {
			vec, err := b.embedder.Embed(ctx, p.Text)
			if err != nil {
				return fmt.Errorf("vectorbackend: embed point %s: %w", p.ID, err)
			}

			payload := map[string]interface{}{"text": p.Text}
			for k, v := range p.Metadata {
				payload[k] = v
			}

			qpoints = append(qpoints, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(p.ID),
				Vectors: qdrant.NewVectors(vec...),
				Payload: qdrant.NewValueMap(payload),
			})
		}

		if _, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         qpoints,
		}); err != nil {
			return fmt.Errorf("vectorbackend: qdrant upsert: %w", err)
		}
	}
	return nil
}

func (b *QdrantBackend) Query(ctx context.Context, name, text string, k int, where Filter) (QueryResult, error) {
	vec, err := b.embedder.Embed(ctx, text)
	if err != nil {
		return QueryResult{}, fmt.Errorf("vectorbackend: embed query: %w", err)
	}

	var filter *qdrant.Filter
	if len(where) > 0 {
		conds := make([]*qdrant.Condition, 0, len(where))
		for k, v := range where {
			conds = append(conds, qdrant.NewMatch(k, v))
		}
		filter = &qdrant.Filter{Must: conds}
	}

	resp, err := b.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         filter,
	})
	if err != nil {
		return QueryResult{}, fmt.Errorf("vectorbackend: qdrant query: %w", err)
	}

	result := QueryResult{}
	for _, point := range resp {
		id := point.Id.GetUuid()
		result.IDs = append(result.IDs, id)
		meta := map[string]string{}
		doc := ""
		for k, v := range point.Payload {
			if k == "text" {
				doc = v.GetStringValue()
				continue
			}
			meta[k] = v.GetStringValue()
		}
		result.Documents = append(result.Documents, doc)
		result.Metadatas = append(result.Metadatas, meta)
		// Qdrant's Query returns a similarity score, not the cosine
		// distance contract §4.2 defines; convert back so callers see a
		// consistent [0,2] distance regardless of transport.
		result.Distances = append(result.Distances, 1-float64(point.Score))
	}
	return result, nil
}

func (b *QdrantBackend) Stats(ctx context.Context, name string) (Stats, error) {
	info, err := b.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return Stats{}, fmt.Errorf("vectorbackend: qdrant stats: %w", err)
	}
	return Stats{Count: int(info.GetPointsCount())}, nil
}

func (b *QdrantBackend) DeleteCollection(ctx context.Context, name string) error {
	return b.client.DeleteCollection(ctx, name)
}
