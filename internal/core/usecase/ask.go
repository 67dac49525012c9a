package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
	"github.com/khu-ai/regulation-assistant/internal/core/ports"
	"github.com/khu-ai/regulation-assistant/internal/ranking"
)

// AskUseCase orchestrates one question: interpret, retrieve, rank, expand
// relations, and optionally generate the answer text. Every step past the
// embedding is best-effort: the use case always produces a (possibly empty)
// ranked answer rather than failing the request.
type AskUseCase struct {
	heuristic ports.QueryInterpreter
	grammar   ports.QueryInterpreter
	embedder  ports.Embedder
	retriever *CandidateRetriever
	ranker    *ranking.Ranker
	relations *RelationResolver
	generator ports.AnswerGenerator
	logger    *slog.Logger
}

func NewAskUseCase(
	heuristic ports.QueryInterpreter,
	grammar ports.QueryInterpreter,
	embedder ports.Embedder,
	retriever *CandidateRetriever,
	ranker *ranking.Ranker,
	relations *RelationResolver,
	generator ports.AnswerGenerator,
	logger *slog.Logger,
) *AskUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskUseCase{
		heuristic: heuristic,
		grammar:   grammar,
		embedder:  embedder,
		retriever: retriever,
		ranker:    ranker,
		relations: relations,
		generator: generator,
		logger:    logger,
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, question string, opts ports.AskOptions) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("question is empty"))
	}
	if strings.TrimSpace(opts.Category) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("category is required"))
	}

	refDate := time.Now().UTC()
	if opts.RefDate != "" {
		parsed, ok := domain.ParseDate(opts.RefDate)
		if !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "ask",
				fmt.Errorf("ref_date %q is not YYYY-MM-DD", opts.RefDate))
		}
		refDate = parsed
	}

	filter, hints := uc.interpreter(opts.Interpreter).Parse(question, refDate)
	if filter.RefDate == "" && opts.RefDate != "" {
		// An explicit caller date is a historical request just like one
		// parsed out of the query text.
		filter.RefDate = opts.RefDate
	}

	partition := domain.Partition{
		Category: opts.Category,
		Cohort:   domain.NormalizeCohort(opts.Cohort),
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "embed query", err)
	}

	candidates := uc.retriever.Retrieve(ctx, queryVector, filter, hints, partition, 0)
	ranked := uc.ranker.Rank(question, candidates, filter, hints, refDate, opts.Limit)

	answer := &domain.Answer{
		Results:   ranked.Results,
		Anomalies: ranked.Anomalies,
	}

	if len(ranked.Results) > 0 && uc.relations != nil {
		related, err := uc.relations.Resolve(ctx, ranked.Results[0].Chunk, 1)
		if err != nil {
			uc.logger.Warn("relation expansion failed", "uri", ranked.Results[0].Chunk.URI, "error", err)
		} else if len(related.Overrides)+len(related.Cites)+len(related.Exceptions)+len(related.Unresolved) > 0 {
			answer.Related = related
		}
	}

	if !opts.RankOnly && uc.generator != nil && len(ranked.Results) > 0 {
		text, err := uc.generator.GenerateAnswer(ctx, question, ranked.Results)
		if err != nil {
			uc.logger.Warn("answer generation failed, returning ranked evidence only", "error", err)
		} else {
			answer.Text = text
		}
	}

	return answer, nil
}

// RankCandidates ranks a caller-supplied candidate set with the same
// interpretation pipeline but no retrieval. Used by the debug/regression
// surface.
func (uc *AskUseCase) RankCandidates(
	ctx context.Context,
	question string,
	candidates []domain.Candidate,
	opts ports.AskOptions,
) (domain.RankedList, error) {
	_ = ctx
	refDate := time.Now().UTC()
	if opts.RefDate != "" {
		parsed, ok := domain.ParseDate(opts.RefDate)
		if !ok {
			return domain.RankedList{}, domain.WrapError(domain.ErrInvalidInput, "rank",
				fmt.Errorf("ref_date %q is not YYYY-MM-DD", opts.RefDate))
		}
		refDate = parsed
	}
	filter, hints := uc.interpreter(opts.Interpreter).Parse(question, refDate)
	if filter.RefDate == "" && opts.RefDate != "" {
		filter.RefDate = opts.RefDate
	}
	return uc.ranker.Rank(question, candidates, filter, hints, refDate, opts.Limit), nil
}

func (uc *AskUseCase) interpreter(name string) ports.QueryInterpreter {
	if strings.EqualFold(name, "grammar") && uc.grammar != nil {
		return uc.grammar
	}
	return uc.heuristic
}
