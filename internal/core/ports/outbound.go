package ports

import (
	"context"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

// QueryInterpreter parses a free-text question into a structured filter plus
// advisory routing hints. Implementations never fail: unparseable fragments
// are dropped so the filter only narrows, it never blocks retrieval. The two
// shipped implementations (heuristic and grammar) are selected by latency
// budget and must agree on filters for unambiguous queries.
type QueryInterpreter interface {
	Parse(text string, refDate time.Time) (domain.QueryFilter, domain.RoutingHints)
}

// Embedder computes the query vector. Dimensionality and model are the
// collaborator's concern and opaque here.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the black-box nearest-neighbor service for one partition.
// The filter is applied as a pre-filter where the index supports the
// dimension; date reasoning stays with the ranker.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, filter domain.QueryFilter, k int) ([]domain.Candidate, error)
}

// IndexProvider hands out loaded vector-index partitions. Partitions load on
// first use and can be invalidated individually after a reindex.
type IndexProvider interface {
	Get(ctx context.Context, partition domain.Partition) (VectorIndex, error)
	Invalidate(partition domain.Partition)
}

// ChunkStore resolves chunks by their stable URI.
type ChunkStore interface {
	Lookup(ctx context.Context, uri string) (*domain.Chunk, error)
}

// RelationGraph reads supersession/reference edges from the knowledge graph
// for chunks whose links are not embedded in the store row.
type RelationGraph interface {
	LinksFrom(ctx context.Context, uri string) (overrides, cites []string, err error)
}

// MessageQueue carries partition-invalidation events between the ingestion
// pipeline and the cache holders.
type MessageQueue interface {
	PublishPartitionInvalidated(ctx context.Context, partition domain.Partition) error
	SubscribePartitionInvalidated(ctx context.Context, handler func(context.Context, domain.Partition) error) error
}

// AnswerGenerator produces the user-facing prose from the ranked evidence.
// It must not re-rank: the result order it receives is final.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, results []domain.RankedResult) (string, error)
}
