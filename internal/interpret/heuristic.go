package interpret

import (
	"regexp"
	"strconv"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

// Article ranges need an explicit separator and are matched before singles:
// a suffix-optional single pattern would silently swallow the first number
// of "제15조~제20조" as a lone article, so the two stay separate patterns and
// range spans are blanked out before the single pass runs.
var (
	reArticleRange = regexp.MustCompile(`제?\s*(\d{1,3})\s*조\s*(?:~|–|—|-|부터)\s*제?\s*(\d{1,3})\s*조(?:\s*까지)?`)
	reArticle      = regexp.MustCompile(`제?\s*(\d{1,3})\s*조(?:\s*의\s*(\d{1,2}))?`)
	reClause       = regexp.MustCompile(`(\d{1,2})\s*항`)
	rePageRange    = regexp.MustCompile(`(?i)(?:p\.|페이지)\s*(\d{1,4})\s*(?:~|–|—|-)\s*(\d{1,4})`)
	rePage         = regexp.MustCompile(`(?i)(?:p\.|페이지)\s*(\d{1,4})|(\d{1,4})\s*페이지`)
	reTable        = regexp.MustCompile(`(?:^|\s)(?:표|(?i:table))`)
	reAnnex        = regexp.MustCompile(`(?:^|\s)부칙`)
	reAppendix     = regexp.MustCompile(`(?:^|\s)(?:별표|별지)`)
	reCohort       = regexp.MustCompile(`(20\d{2})\s*학번|(\d{2})\s*학번`)
	reDate         = regexp.MustCompile(`(?i)(?:시행일|기준일|effective|since|after|이후|부터)\s*(\d{4}-\d{2}-\d{2})`)
	reLatest       = regexp.MustCompile(`(?:^|\s)(?:최신|(?i:latest))`)
	reProgram      = regexp.MustCompile(`(?:^|\s)(?i:IME|석사|박사|학부|대학원|MS|PHD|UG)`)
)

// Heuristic is the fast single-pass interpreter: compiled regexes, no
// backtracking, suitable for the interactive path.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Parse(text string, _ time.Time) (domain.QueryFilter, domain.RoutingHints) {
	var filter domain.QueryFilter
	var hints domain.RoutingHints
	q := text

	// Ranges first; blank their spans so the single-article pass cannot
	// re-match the endpoints.
	for _, m := range reArticleRange.FindAllStringSubmatchIndex(q, -1) {
		from := atoiGroup(q, m, 1)
		to := atoiGroup(q, m, 2)
		setArticleRange(&filter, from, to)
	}
	q = reArticleRange.ReplaceAllStringFunc(q, blank)

	if m := reArticle.FindStringSubmatch(q); m != nil {
		setArticle(&filter, atoi(m[1]))
		if m[2] != "" {
			setClauseFromArticleSuffix(&filter, atoi(m[2]))
		}
	}

	for _, m := range reClause.FindAllStringSubmatch(q, -1) {
		addClause(&filter, atoi(m[1]))
	}

	for _, m := range rePageRange.FindAllStringSubmatch(q, -1) {
		hints.PageRanges = append(hints.PageRanges, domain.PageRange{From: atoi(m[1]), To: atoi(m[2])})
	}
	q = rePageRange.ReplaceAllStringFunc(q, blank)
	if m := rePage.FindStringSubmatch(q); m != nil {
		if m[1] != "" {
			filter.Page = atoi(m[1])
		} else {
			filter.Page = atoi(m[2])
		}
	}

	if reTable.MatchString(q) {
		filter.ContentType = domain.ContentTypeTable
		hints.WantsTable = true
	}
	hints.WantsAnnex = reAnnex.MatchString(q)
	hints.WantsAppendix = reAppendix.MatchString(q)
	hints.PreferLatest = reLatest.MatchString(q)

	if m := reCohort.FindStringSubmatch(q); m != nil {
		if m[1] != "" {
			filter.Cohort = domain.NormalizeCohort(m[1])
		} else {
			filter.Cohort = domain.NormalizeCohort("20" + m[2])
		}
	}
	if m := reProgram.FindString(q); m != "" {
		filter.Program = programFromText(m)
	}
	if m := reDate.FindStringSubmatch(q); m != nil {
		if _, ok := domain.ParseDate(m[1]); ok {
			filter.RefDate = m[1]
		}
	}

	return filter, hints
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func atoiGroup(s string, idx []int, group int) int {
	lo, hi := idx[2*group], idx[2*group+1]
	if lo < 0 || hi < 0 {
		return 0
	}
	return atoi(s[lo:hi])
}

func blank(match string) string {
	out := make([]rune, 0, len(match))
	for range match {
		out = append(out, ' ')
	}
	return string(out)
}
