package ranking

import (
	"math"
	"strings"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Metadata dimension weights, tuned on the regression corpus. Each
// constrained dimension earns its weight independently; the raw sum is
// capped at 1.
const (
	metaArticleWeight     = 0.60
	metaClauseWeight      = 0.40
	metaProgramWeight     = 0.30
	metaCohortWeight      = 0.20
	metaContentTypeWeight = 0.25
	metaPageWeight        = 0.10
)

// normalizeVector min-max normalizes the raw index similarities across the
// candidate set. When every candidate carries the same score there is no
// signal to spread, so positive scores map to 1 and the rest to 0; anything
// order-dependent here would break permutation invariance.
func normalizeVector(candidates []domain.Candidate) []float64 {
	out := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return out
	}
	minScore := candidates[0].Similarity
	maxScore := candidates[0].Similarity
	for _, c := range candidates[1:] {
		minScore = math.Min(minScore, c.Similarity)
		maxScore = math.Max(maxScore, c.Similarity)
	}
	for i, c := range candidates {
		if maxScore <= minScore {
			if c.Similarity > 0 {
				out[i] = 1
			}
			continue
		}
		out[i] = (c.Similarity - minScore) / (maxScore - minScore)
	}
	return out
}

// lexicalScores is a BM25-style term overlap between the query and each
// candidate text, with document frequencies taken over the candidate set
// itself. Scores are min-max normalized to [0,1] across the set.
func lexicalScores(query string, candidates []domain.Candidate) []float64 {
	out := make([]float64, len(candidates))
	queryTokens := tokenize(query)
	if len(candidates) == 0 || len(queryTokens) == 0 {
		return out
	}

	docs := make([]map[string]float64, len(candidates))
	totalLen := 0.0
	for i, c := range candidates {
		tokens := tokenize(c.Chunk.Text)
		docs[i] = termFrequencies(tokens)
		totalLen += float64(len(tokens))
	}
	avgLen := totalLen / float64(len(candidates))
	if avgLen == 0 {
		return out
	}

	df := make(map[string]int, len(queryTokens))
	for _, term := range queryTokens {
		for _, doc := range docs {
			if doc[term] > 0 {
				df[term]++
			}
		}
	}

	n := float64(len(candidates))
	for i, doc := range docs {
		docLen := 0.0
		for _, tf := range doc {
			docLen += tf
		}
		score := 0.0
		for _, term := range queryTokens {
			tf := doc[term]
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
			score += idf * norm
		}
		out[i] = score
	}

	minScore, maxScore := out[0], out[0]
	for _, s := range out[1:] {
		minScore = math.Min(minScore, s)
		maxScore = math.Max(maxScore, s)
	}
	if maxScore > minScore {
		for i := range out {
			out[i] = (out[i] - minScore) / (maxScore - minScore)
		}
	} else {
		for i := range out {
			if out[i] > 0 {
				out[i] = 1
			}
		}
	}
	return out
}

// metadataScore is the weighted satisfaction of the filter's constrained
// dimensions. A chunk that contradicts a constrained dimension earns zero
// for it rather than being skipped; unconstrained dimensions contribute
// nothing, so an exact match always beats no constraint.
func metadataScore(filter domain.QueryFilter, chunk domain.Chunk) float64 {
	score := 0.0

	articleConstrained := filter.ArticleNumber != 0 || filter.ArticleRange != nil
	articleMatched := articleConstrained && filter.MatchesArticle(chunk.ArticleNumber)
	if articleMatched {
		score += metaArticleWeight
	}

	if clauseConstrained(filter) && clauseMatched(filter, chunk.ClauseNumber) {
		score += metaClauseWeight
	}

	if filter.Program != "" && chunk.Program == filter.Program {
		score += metaProgramWeight
	}
	if filter.Cohort != "" && chunk.Cohort == filter.Cohort {
		score += metaCohortWeight
	}
	if filter.ContentType != "" && chunk.ContentType == filter.ContentType {
		score += metaContentTypeWeight
	}
	if filter.Page != 0 && chunk.Page == filter.Page {
		score += metaPageWeight
	}

	return math.Min(score, 1)
}

func clauseConstrained(filter domain.QueryFilter) bool {
	return filter.ClauseNumber != 0 || len(filter.ClauseNumbers) > 0
}

func clauseMatched(filter domain.QueryFilter, clause int) bool {
	if clause == 0 {
		return false
	}
	if clause == filter.ClauseNumber {
		return true
	}
	for _, n := range filter.ClauseNumbers {
		if n == clause {
			return true
		}
	}
	return false
}

// recencyScore decays exponentially with the distance between the chunk's
// versionDate and the reference date. A validity window that excludes the
// reference date multiplies the score by windowPenalty instead of excluding
// the chunk, so the caller can still surface and explain the conflict; an
// explicit historical request in the filter skips the penalty.
func recencyScore(chunk domain.Chunk, ref time.Time, historical bool, halfLifeDays, windowPenalty float64) float64 {
	version, ok := domain.ParseDate(chunk.VersionDate)
	if !ok {
		return 0
	}
	days := math.Abs(ref.Sub(version).Hours()) / 24
	score := math.Exp(-math.Ln2 * days / halfLifeDays)
	if !historical && !chunk.EffectiveAt(ref) {
		score *= windowPenalty
	}
	return score
}

// identifierScore is the best fuzzy proximity between any URI-like token in
// the query and the chunk's identifiers. Zero when the query mentions none.
func identifierScore(mentions []string, chunk domain.Chunk) float64 {
	if len(mentions) == 0 {
		return 0
	}
	best := 0.0
	for _, mention := range mentions {
		for _, uri := range []string{chunk.URI, chunk.ArticleURI, chunk.ClauseURI} {
			if uri == "" {
				continue
			}
			best = math.Max(best, levenshteinSimilarity(mention, uri))
		}
	}
	return best
}

// extractURIMentions pulls URI-shaped tokens out of the raw query text.
func extractURIMentions(query string) []string {
	var out []string
	for _, field := range strings.Fields(query) {
		trimmed := strings.Trim(field, "()[]{}<>\"'.,;")
		if trimmed == "" {
			continue
		}
		if strings.Contains(trimmed, ":art") || strings.Contains(trimmed, "#art") ||
			strings.HasPrefix(trimmed, "urn:") || strings.HasPrefix(trimmed, "http://") ||
			strings.HasPrefix(trimmed, "https://") {
			out = append(out, trimmed)
		}
	}
	return out
}
