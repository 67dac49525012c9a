package domain

import "strings"

// ArticleRange is an inclusive article-number span. A range and a single
// article constraint are mutually exclusive in a filter: a parsed range sets
// ArticleRange and leaves ArticleNumber on the range start only as a
// pre-filter convenience for indexes without range support.
type ArticleRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// QueryFilter is the structured constraint set extracted from a query.
// Zero values mean the dimension is unconstrained.
type QueryFilter struct {
	ArticleNumber int           `json:"articleNumber,omitempty"`
	ArticleRange  *ArticleRange `json:"articleRange,omitempty"`
	ClauseNumber  int           `json:"clauseNumber,omitempty"`
	ClauseNumbers []int         `json:"clauseNumbers,omitempty"`
	ContentType   ContentType   `json:"contentType,omitempty"`
	Program       string        `json:"program,omitempty"`
	Cohort        string        `json:"cohort,omitempty"`
	Page          int           `json:"page,omitempty"`

	// RefDate is set only when the query names an explicit reference date
	// (YYYY-MM-DD). It marks a historical request: the ranker then scores
	// recency against this date and skips the out-of-window penalty.
	RefDate string `json:"refDate,omitempty"`
}

// IsZero reports whether no dimension is constrained.
func (f QueryFilter) IsZero() bool {
	return f.ArticleNumber == 0 && f.ArticleRange == nil && f.ClauseNumber == 0 &&
		len(f.ClauseNumbers) == 0 && f.ContentType == "" && f.Program == "" &&
		f.Cohort == "" && f.Page == 0 && f.RefDate == ""
}

// MatchesArticle reports whether an article number satisfies the filter's
// article constraint (exact or within range). True when unconstrained.
func (f QueryFilter) MatchesArticle(article int) bool {
	if f.ArticleRange != nil {
		return article >= f.ArticleRange.From && article <= f.ArticleRange.To
	}
	if f.ArticleNumber != 0 {
		return article == f.ArticleNumber
	}
	return true
}

// PageRange is an inclusive page span carried as a routing hint.
type PageRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// RoutingHints are advisory signals for retrieval sizing and ranking.
// Ranking must degrade gracefully when all hints are empty.
type RoutingHints struct {
	WantsTable    bool        `json:"wants_table,omitempty"`
	WantsAnnex    bool        `json:"wants_annex,omitempty"`
	WantsAppendix bool        `json:"wants_appendix,omitempty"`
	PreferLatest  bool        `json:"prefer_latest,omitempty"`
	Keywords      []string    `json:"keywords,omitempty"`
	PageRanges    []PageRange `json:"pageRanges,omitempty"`
}

// Partition selects a vector-index partition: a category collection plus an
// optional cohort sub-scope.
type Partition struct {
	Category string `json:"category"`
	Cohort   string `json:"cohort,omitempty"`
}

// Key is the cache key for the loaded partition.
func (p Partition) Key() string {
	if p.Cohort == "" {
		return p.Category
	}
	return p.Category + "/" + p.Cohort
}

// ParsePartitionKey is the inverse of Key, used by the cache-invalidation
// worker when decoding event payloads.
func ParsePartitionKey(key string) Partition {
	category, cohort, found := strings.Cut(key, "/")
	if !found {
		return Partition{Category: key}
	}
	return Partition{Category: category, Cohort: cohort}
}
