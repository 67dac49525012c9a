package qdrant

import "github.com/khu-ai/regulation-assistant/internal/core/domain"

// buildFilter maps the indexable filter dimensions onto qdrant payload
// conditions. Dimensions the index cannot express (reference-date
// reasoning) are deliberately absent; the ranker handles them.
func buildFilter(filter domain.QueryFilter, partitionCohort string) []map[string]any {
	var must []map[string]any

	match := func(key string, value any) {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": value},
		})
	}

	switch {
	case filter.ArticleRange != nil:
		must = append(must, map[string]any{
			"key": "articleNumber",
			"range": map[string]any{
				"gte": filter.ArticleRange.From,
				"lte": filter.ArticleRange.To,
			},
		})
	case filter.ArticleNumber != 0:
		match("articleNumber", filter.ArticleNumber)
	}

	if len(filter.ClauseNumbers) > 1 {
		must = append(must, map[string]any{
			"key":   "clauseNumber",
			"match": map[string]any{"any": filter.ClauseNumbers},
		})
	} else if filter.ClauseNumber != 0 {
		match("clauseNumber", filter.ClauseNumber)
	}

	if filter.ContentType != "" {
		match("contentType", string(filter.ContentType))
	}
	if filter.Program != "" {
		match("program", filter.Program)
	}

	cohort := filter.Cohort
	if cohort == "" {
		cohort = partitionCohort
	}
	if cohort != "" {
		match("cohort", cohort)
	}

	if filter.Page != 0 {
		match("page", filter.Page)
	}

	return must
}
