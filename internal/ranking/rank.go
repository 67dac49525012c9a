// Package ranking implements the hybrid ranker: five signals combined into
// one composite score per candidate, followed by a maximal-marginal-
// relevance diversity pass. Ranking is a pure function of its inputs — no
// shared state, so concurrent queries need no coordination.
package ranking

import (
	"sort"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

const (
	defaultHalfLifeDays  = 730
	defaultMMRLambda     = 0.65
	defaultWindowPenalty = 0.5

	// mmrPrefixRunes bounds the pairwise text comparison in the diversity
	// pass; adjacent overlapping passages share their head, so a prefix is
	// enough to catch near-duplicates.
	mmrPrefixRunes = 512
)

type Config struct {
	Weights domain.Weights

	// HalfLifeDays controls the recency decay: a chunk enacted one
	// half-life away from the reference date scores 0.5. The decay shape
	// is a tunable validated against the regression corpus, not a law.
	HalfLifeDays float64

	// MMRLambda trades relevance against diversity in the final pass.
	MMRLambda float64

	// WindowPenalty multiplies the recency score of chunks whose effective
	// window excludes the reference date.
	WindowPenalty float64
}

func (c Config) normalize() Config {
	out := c
	if !out.Weights.Valid() {
		out.Weights = domain.DefaultWeights()
	}
	if out.HalfLifeDays <= 0 {
		out.HalfLifeDays = defaultHalfLifeDays
	}
	if out.MMRLambda <= 0 || out.MMRLambda > 1 {
		out.MMRLambda = defaultMMRLambda
	}
	if out.WindowPenalty <= 0 || out.WindowPenalty >= 1 {
		out.WindowPenalty = defaultWindowPenalty
	}
	return out
}

type Ranker struct {
	cfg Config
}

func New(cfg Config) *Ranker {
	return &Ranker{cfg: cfg.normalize()}
}

type scored struct {
	chunk     domain.Chunk
	score     float64
	breakdown domain.SignalBreakdown
}

// Rank scores and orders the candidate set. size bounds the diversity-
// adjusted head of the result; size <= 0 keeps every candidate. The output
// ordering is deterministic and independent of the input candidate order.
func (r *Ranker) Rank(
	query string,
	candidates []domain.Candidate,
	filter domain.QueryFilter,
	hints domain.RoutingHints,
	refDate time.Time,
	size int,
) domain.RankedList {
	_ = hints // advisory only; sizing is applied upstream

	list := domain.RankedList{Weights: r.cfg.Weights, Results: []domain.RankedResult{}}
	candidates = dedupeByURI(candidates)
	if len(candidates) == 0 {
		return list
	}

	// Canonical order before scoring so the output never depends on how
	// the index happened to return the set.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Chunk.URI < candidates[j].Chunk.URI
	})

	malformed := make([]bool, len(candidates))
	for i, c := range candidates {
		if anomalies := c.Chunk.Validate(); len(anomalies) > 0 {
			malformed[i] = true
			list.Anomalies = append(list.Anomalies, anomalies...)
		}
	}

	if refDate.IsZero() {
		refDate = time.Now().UTC()
	}
	historical := filter.RefDate != ""
	if historical {
		if t, ok := domain.ParseDate(filter.RefDate); ok {
			refDate = t
		}
	}

	vector := normalizeVector(candidates)
	lexical := lexicalScores(query, candidates)
	mentions := extractURIMentions(query)

	entries := make([]scored, len(candidates))
	for i, c := range candidates {
		breakdown := domain.SignalBreakdown{
			Vector:     vector[i],
			Lexical:    lexical[i],
			Identifier: identifierScore(mentions, c.Chunk),
		}
		if malformed[i] {
			// Neutral defaults: the chunk stays visible but its broken
			// metadata neither helps nor buries it.
			breakdown.Metadata = 0
			breakdown.Recency = 0.5
		} else {
			breakdown.Metadata = metadataScore(filter, c.Chunk)
			breakdown.Recency = recencyScore(c.Chunk, refDate, historical, r.cfg.HalfLifeDays, r.cfg.WindowPenalty)
		}

		w := r.cfg.Weights
		entries[i] = scored{
			chunk: c.Chunk,
			score: w.Vector*breakdown.Vector +
				w.Lexical*breakdown.Lexical +
				w.Metadata*breakdown.Metadata +
				w.Recency*breakdown.Recency +
				w.Identifier*breakdown.Identifier,
			breakdown: breakdown,
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return lessRanked(entries[i], entries[j])
	})

	for _, e := range diversify(entries, size, r.cfg.MMRLambda) {
		list.Results = append(list.Results, domain.RankedResult{
			Chunk:     e.chunk,
			Score:     e.score,
			Breakdown: e.breakdown,
		})
	}
	return list
}

// lessRanked is the deterministic ordering: composite score descending, then
// later versionDate, then document order (lower article, lower clause), then
// URI as the final total tiebreak.
func lessRanked(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.chunk.VersionDate != b.chunk.VersionDate {
		return a.chunk.VersionDate > b.chunk.VersionDate
	}
	if a.chunk.ArticleNumber != b.chunk.ArticleNumber {
		return a.chunk.ArticleNumber < b.chunk.ArticleNumber
	}
	if a.chunk.ClauseNumber != b.chunk.ClauseNumber {
		return a.chunk.ClauseNumber < b.chunk.ClauseNumber
	}
	return a.chunk.URI < b.chunk.URI
}

// diversify runs the MMR pass over the score-ordered entries: pick the best
// remaining candidate by lambda*score - (1-lambda)*maxSimilarity(selected)
// until size results are selected or candidates run out. Near-duplicate
// passages of the same article stop dominating the head of the list.
func diversify(entries []scored, size int, lambda float64) []scored {
	if size <= 0 || size > len(entries) {
		size = len(entries)
	}
	if len(entries) <= 1 {
		return entries[:size]
	}

	prefixes := make([]string, len(entries))
	for i, e := range entries {
		prefixes[i] = runePrefix(e.chunk.Text, mmrPrefixRunes)
	}

	selected := make([]scored, 0, size)
	selectedIdx := make([]int, 0, size)
	remaining := make([]int, len(entries))
	for i := range entries {
		remaining[i] = i
	}

	for len(selected) < size && len(remaining) > 0 {
		bestPos := 0
		bestVal := 0.0
		for pos, idx := range remaining {
			val := lambda * entries[idx].score
			if len(selectedIdx) > 0 {
				maxSim := 0.0
				for _, s := range selectedIdx {
					if sim := levenshteinSimilarity(prefixes[idx], prefixes[s]); sim > maxSim {
						maxSim = sim
					}
				}
				val -= (1 - lambda) * maxSim
			}
			// entries are already in deterministic order, so a strict
			// improvement requirement keeps ties stable.
			if pos == 0 || val > bestVal {
				bestPos = pos
				bestVal = val
			}
		}
		idx := remaining[bestPos]
		selected = append(selected, entries[idx])
		selectedIdx = append(selectedIdx, idx)
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}
	return selected
}

func dedupeByURI(candidates []domain.Candidate) []domain.Candidate {
	if len(candidates) <= 1 {
		return candidates
	}
	best := make(map[string]domain.Candidate, len(candidates))
	for _, c := range candidates {
		existing, ok := best[c.Chunk.URI]
		if !ok || c.Similarity > existing.Similarity {
			best[c.Chunk.URI] = c
		}
	}
	out := make([]domain.Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	return out
}
