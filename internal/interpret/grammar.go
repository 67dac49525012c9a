package interpret

import (
	"regexp"
	"strings"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

// Grammar is the exhaustive interpreter: a left-to-right scan that always
// commits to the earliest, highest-priority production. Range productions
// and single productions are separate alternatives with the range tried
// first, so "15조" and "15조부터 20조" can never collapse into a partial
// match. Text between constructs is kept as keyword hints.
type Grammar struct{}

func NewGrammar() *Grammar {
	return &Grammar{}
}

type production int

const (
	prodArticleRange production = iota
	prodPageRange
	prodArticle
	prodPage
	prodClause
	prodCohort
	prodDate
	prodTable
	prodAnnex
	prodAppendix
	prodProgram
	prodLatest
)

// Ordered by priority: when two productions match at the same offset the
// earlier entry wins. Ranges outrank their single counterparts.
var grammarProductions = []struct {
	kind production
	re   *regexp.Regexp
}{
	{prodArticleRange, regexp.MustCompile(`제?\s*(\d{1,3})\s*조\s*(?:~|–|—|-|부터)\s*제?\s*(\d{1,3})\s*조(?:\s*까지)?`)},
	{prodPageRange, regexp.MustCompile(`(?i)(?:p\.|페이지)\s*(\d{1,4})\s*(?:~|–|—|-)\s*(\d{1,4})`)},
	{prodArticle, regexp.MustCompile(`제?\s*(\d{1,3})\s*조(?:\s*의\s*(\d{1,2}))?`)},
	{prodPage, regexp.MustCompile(`(?i)(?:p\.|페이지)\s*(\d{1,4})|(\d{1,4})\s*페이지`)},
	{prodClause, regexp.MustCompile(`(\d{1,2})\s*항(?:\s*(?:및|·|,)\s*(?:\d{1,2})\s*항)*`)},
	{prodCohort, regexp.MustCompile(`(20\d{2})\s*학번|(\d{2})\s*학번`)},
	{prodDate, regexp.MustCompile(`(?i)(?:시행일|기준일|effective|since|after|이후|부터)\s*(\d{4}-\d{2}-\d{2})`)},
	{prodTable, regexp.MustCompile(`(?:^|\s)(?:표|(?i:table))`)},
	{prodAnnex, regexp.MustCompile(`(?:^|\s)부칙`)},
	{prodAppendix, regexp.MustCompile(`(?:^|\s)(?:별표|별지)`)},
	{prodProgram, regexp.MustCompile(`(?:^|\s)(?i:IME|석사|박사|학부|대학원|MS|PHD|UG)`)},
	{prodLatest, regexp.MustCompile(`(?:^|\s)(?:최신|(?i:latest))`)},
}

var grammarClauseItem = regexp.MustCompile(`(\d{1,2})\s*항`)

type grammarState struct {
	filter domain.QueryFilter
	hints  domain.RoutingHints

	articleSeen bool
}

func (g *Grammar) Parse(text string, _ time.Time) (domain.QueryFilter, domain.RoutingHints) {
	st := &grammarState{}
	rest := text
	for rest != "" {
		kind, loc := earliestProduction(rest)
		if loc == nil {
			st.addKeywords(rest)
			break
		}
		st.addKeywords(rest[:loc[0]])
		st.apply(kind, rest[loc[0]:loc[1]])
		rest = rest[loc[1]:]
	}
	return st.filter, st.hints
}

// earliestProduction returns the production matching at the lowest offset;
// ties go to the higher-priority (earlier-listed) production.
func earliestProduction(s string) (production, []int) {
	var bestKind production
	var best []int
	for _, p := range grammarProductions {
		loc := p.re.FindStringIndex(s)
		if loc == nil {
			continue
		}
		if best == nil || loc[0] < best[0] {
			bestKind = p.kind
			best = loc
		}
	}
	return bestKind, best
}

func (st *grammarState) apply(kind production, match string) {
	switch kind {
	case prodArticleRange:
		m := grammarProductions[prodArticleRange].re.FindStringSubmatch(match)
		setArticleRange(&st.filter, atoi(m[1]), atoi(m[2]))
	case prodPageRange:
		m := grammarProductions[prodPageRange].re.FindStringSubmatch(match)
		st.hints.PageRanges = append(st.hints.PageRanges, domain.PageRange{From: atoi(m[1]), To: atoi(m[2])})
	case prodArticle:
		if st.articleSeen {
			return
		}
		st.articleSeen = true
		m := grammarProductions[prodArticle].re.FindStringSubmatch(match)
		setArticle(&st.filter, atoi(m[1]))
		if m[2] != "" {
			setClauseFromArticleSuffix(&st.filter, atoi(m[2]))
		}
	case prodPage:
		if st.filter.Page != 0 {
			return
		}
		m := grammarProductions[prodPage].re.FindStringSubmatch(match)
		if m[1] != "" {
			st.filter.Page = atoi(m[1])
		} else {
			st.filter.Page = atoi(m[2])
		}
	case prodClause:
		for _, m := range grammarClauseItem.FindAllStringSubmatch(match, -1) {
			addClause(&st.filter, atoi(m[1]))
		}
	case prodCohort:
		if st.filter.Cohort != "" {
			return
		}
		m := grammarProductions[prodCohort].re.FindStringSubmatch(match)
		if m[1] != "" {
			st.filter.Cohort = domain.NormalizeCohort(m[1])
		} else {
			st.filter.Cohort = domain.NormalizeCohort("20" + m[2])
		}
	case prodDate:
		if st.filter.RefDate != "" {
			return
		}
		m := grammarProductions[prodDate].re.FindStringSubmatch(match)
		if _, ok := domain.ParseDate(m[1]); ok {
			st.filter.RefDate = m[1]
		}
	case prodTable:
		st.filter.ContentType = domain.ContentTypeTable
		st.hints.WantsTable = true
	case prodAnnex:
		st.hints.WantsAnnex = true
	case prodAppendix:
		st.hints.WantsAppendix = true
	case prodProgram:
		if st.filter.Program == "" {
			st.filter.Program = programFromText(match)
		}
	case prodLatest:
		st.hints.PreferLatest = true
	}
}

func (st *grammarState) addKeywords(gap string) {
	for _, word := range strings.Fields(gap) {
		st.hints.Keywords = append(st.hints.Keywords, word)
	}
}
