package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
	"github.com/khu-ai/regulation-assistant/internal/core/ports"
)

const (
	defaultCandidateK = 5
	// Tables split worse than prose, so a table-seeking query casts a
	// slightly wider net before ranking narrows it again.
	tableCandidateK = 7
)

// CandidateRetriever wraps the vector index behind the graceful-degradation
// policy: an unavailable partition, a timeout, or an empty index all come
// back as an empty candidate set so the caller can present "no results"
// instead of an error.
type CandidateRetriever struct {
	indexes ports.IndexProvider
	timeout time.Duration
	logger  *slog.Logger
}

func NewCandidateRetriever(indexes ports.IndexProvider, timeout time.Duration, logger *slog.Logger) *CandidateRetriever {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CandidateRetriever{
		indexes: indexes,
		timeout: timeout,
		logger:  logger,
	}
}

// Retrieve runs the similarity query against the partition, pre-filtered by
// the dimensions the index can express. k <= 0 picks the default, raised
// when the query wants tables. Retry policy belongs to the calling layer;
// this never propagates the stall.
func (r *CandidateRetriever) Retrieve(
	ctx context.Context,
	queryVector []float32,
	filter domain.QueryFilter,
	hints domain.RoutingHints,
	partition domain.Partition,
	k int,
) []domain.Candidate {
	if k <= 0 {
		k = defaultCandidateK
		if hints.WantsTable {
			k = tableCandidateK
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	index, err := r.indexes.Get(ctx, partition)
	if err != nil {
		r.logger.Warn("partition unavailable", "partition", partition.Key(), "error", err)
		return nil
	}

	candidates, err := index.Search(ctx, queryVector, filter, k)
	if err != nil {
		r.logger.Warn("retrieval failed, returning empty candidate set",
			"partition", partition.Key(), "k", k, "error", err)
		return nil
	}
	return candidates
}
