// Package interpret turns free-text regulation questions into structured
// query filters and routing hints. Two implementations share one contract:
// Heuristic is a single regex pass for the hot path, Grammar is an
// exhaustive left-to-right scan. Both are best-effort and never fail; a
// fragment that cannot be parsed is dropped so the filter only ever narrows
// retrieval.
package interpret

import (
	"strings"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

// programAlias maps query-surface program mentions to the fixed enum. Order
// matters: IME must win over the bare MS/PHD tokens it contains.
var programAliases = []struct {
	token   string
	program string
}{
	{"IME", "IME_MS"},
	{"석사", "MS"},
	{"박사", "PHD"},
	{"학부", "UG"},
	{"대학원", "GRAD"},
	{"MS", "MS"},
	{"PHD", "PHD"},
	{"UG", "UG"},
}

func programFromText(s string) string {
	u := strings.ToUpper(s)
	for _, alias := range programAliases {
		if strings.Contains(u, strings.ToUpper(alias.token)) {
			return alias.program
		}
	}
	return ""
}

// setArticle records a single-article mention. A later single mention wins
// over an earlier one or over a range start.
func setArticle(f *domain.QueryFilter, article int) {
	if article > 0 {
		f.ArticleNumber = article
	}
}

// setArticleRange records a range mention without clobbering an explicit
// single-article constraint seen elsewhere in the query.
func setArticleRange(f *domain.QueryFilter, from, to int) {
	if from <= 0 || to <= 0 {
		return
	}
	if to < from {
		from, to = to, from
	}
	f.ArticleRange = &domain.ArticleRange{From: from, To: to}
	if f.ArticleNumber == 0 {
		f.ArticleNumber = from
	}
}

// addClause appends a clause mention. The first clause seen in the text
// becomes the primary ClauseNumber; the full set is kept sorted and unique.
func addClause(f *domain.QueryFilter, clause int) {
	if clause <= 0 {
		return
	}
	if f.ClauseNumber == 0 {
		f.ClauseNumber = clause
	}
	for i, existing := range f.ClauseNumbers {
		if existing == clause {
			return
		}
		if existing > clause {
			f.ClauseNumbers = append(f.ClauseNumbers[:i], append([]int{clause}, f.ClauseNumbers[i:]...)...)
			return
		}
	}
	f.ClauseNumbers = append(f.ClauseNumbers, clause)
}

// setClauseFromArticleSuffix handles 제N조의M: the 의M suffix is an explicit
// clause reference and overrides any clause picked up elsewhere.
func setClauseFromArticleSuffix(f *domain.QueryFilter, clause int) {
	if clause <= 0 {
		return
	}
	f.ClauseNumber = clause
	addClause(f, clause)
}
