package ports

import (
	"context"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

// AskOptions shapes one question: the partition to search, an optional
// reference date (YYYY-MM-DD, defaults to today), the requested result size,
// which interpreter to run, and whether to skip answer generation.
type AskOptions struct {
	Category    string
	Cohort      string
	RefDate     string
	Limit       int
	Interpreter string // "heuristic" (default) or "grammar"
	RankOnly    bool
}

// RegulationQueryService is the inbound contract for question answering.
// RankCandidates skips retrieval and ranks a caller-supplied candidate set;
// it exists for the debug and regression surfaces.
type RegulationQueryService interface {
	Ask(ctx context.Context, question string, opts AskOptions) (*domain.Answer, error)
	RankCandidates(ctx context.Context, question string, candidates []domain.Candidate, opts AskOptions) (domain.RankedList, error)
}

// RelationService expands a chunk's overrides/cites links. Depth 1 is the
// default single hop; deeper traversal is bounded and cycle-safe.
type RelationService interface {
	Relations(ctx context.Context, uri string, depth int) (*domain.RelationSet, error)
}
