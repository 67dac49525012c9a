package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the wire format for all regulation dates (versionDate,
// effectiveFrom, effectiveUntil, reference dates).
const DateLayout = "2006-01-02"

type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeTable    ContentType = "table"
	ContentTypeAnnex    ContentType = "annex"
	ContentTypeAppendix ContentType = "appendix"
)

// Programs is the fixed uppercase whitelist shared with the ingestion
// pipeline. Values outside this set are dropped during normalization.
var Programs = map[string]struct{}{
	"UG":      {},
	"MS":      {},
	"PHD":     {},
	"GRAD":    {},
	"IME_MS":  {},
	"IME_PHD": {},
}

var cohortDigits = regexp.MustCompile(`20\d{2}`)

// Chunk is the atomic retrievable unit of regulation text. Chunks are
// created by the ingestion pipeline and are read-only inside this service;
// superseded versions stay in the store and are linked via Overrides on the
// newer chunk.
type Chunk struct {
	Text            string      `json:"text"`
	URI             string      `json:"uri"`
	ArticleURI      string      `json:"articleUri,omitempty"`
	ClauseURI       string      `json:"clauseUri,omitempty"`
	DocumentCode    string      `json:"documentCode"`
	VersionDate     string      `json:"versionDate"`
	EffectiveFrom   string      `json:"effectiveFrom,omitempty"`
	EffectiveUntil  string      `json:"effectiveUntil,omitempty"`
	ContentType     ContentType `json:"contentType"`
	ArticleNumber   int         `json:"articleNumber"`
	ClauseNumber    int         `json:"clauseNumber,omitempty"`
	Program         string      `json:"program,omitempty"`
	Cohort          string      `json:"cohort,omitempty"`
	SourceFile      string      `json:"sourceFile,omitempty"`
	Page            int         `json:"page,omitempty"`
	ContentHash     string      `json:"contentHash,omitempty"`
	Overrides       []string    `json:"overrides,omitempty"`
	Cites           []string    `json:"cites,omitempty"`
	HasExceptionFor []string    `json:"hasExceptionFor,omitempty"`
}

// Anomaly reports a metadata invariant violation on a candidate chunk.
// Anomalous chunks are still ranked, with neutral metadata and recency
// signals, so the caller can surface the data-quality problem.
type Anomaly struct {
	URI    string `json:"uri"`
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

// MakeURI builds the stable internal identifier from the identity fields.
// The grammar is {documentCode}:{versionDate}:art{N}[:cl{M}] and is a
// contract with the ingestion pipeline. clause <= 0 means article-level.
func MakeURI(documentCode, versionDate string, article, clause int) string {
	if documentCode == "" || versionDate == "" || article <= 0 {
		return ""
	}
	uri := fmt.Sprintf("%s:%s:art%d", documentCode, versionDate, article)
	if clause > 0 {
		uri += fmt.Sprintf(":cl%d", clause)
	}
	return uri
}

// MakeHTTPURIs builds the externally-resolvable article and clause URIs,
// e.g. https://kg.khu.ac.kr/reg/AA-2024-09-01#art15 and #art15-cl2.
func MakeHTTPURIs(base, documentCode, versionDate string, article, clause int) (articleURI, clauseURI string) {
	if base == "" || documentCode == "" || versionDate == "" || article <= 0 {
		return "", ""
	}
	articleURI = fmt.Sprintf("%s/%s-%s#art%d", strings.TrimRight(base, "/"), documentCode, versionDate, article)
	if clause > 0 {
		clauseURI = fmt.Sprintf("%s-cl%d", articleURI, clause)
	}
	return articleURI, clauseURI
}

// NormalizeProgram uppercases and canonicalizes a program token against the
// whitelist. Returns "" for unknown values.
func NormalizeProgram(v string) string {
	p := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(v)), "-", "_")
	if _, ok := Programs[p]; ok {
		return p
	}
	return ""
}

// NormalizeCohort forces the Cohort_YYYY token format. Accepts raw years
// ("2023"), already-formed tokens, or strings containing a 4-digit year.
func NormalizeCohort(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	if y := cohortDigits.FindString(s); y != "" {
		return "Cohort_" + y
	}
	return ""
}

// Validate checks the chunk against the metadata invariants and returns one
// anomaly per violation. An empty slice means the chunk is well-formed.
func (c Chunk) Validate() []Anomaly {
	var out []Anomaly
	report := func(field, detail string) {
		out = append(out, Anomaly{URI: c.URI, Field: field, Detail: detail})
	}

	if c.URI == "" {
		report("uri", "missing required uri")
	}
	if c.DocumentCode == "" {
		report("documentCode", "missing required documentCode")
	}
	if c.ArticleNumber <= 0 {
		report("articleNumber", "missing required articleNumber")
	}

	if _, ok := ParseDate(c.VersionDate); !ok {
		report("versionDate", fmt.Sprintf("versionDate %q is not YYYY-MM-DD", c.VersionDate))
	}

	from, fromOK := time.Time{}, true
	if c.EffectiveFrom != "" {
		if from, fromOK = ParseDate(c.EffectiveFrom); !fromOK {
			report("effectiveFrom", fmt.Sprintf("effectiveFrom %q is not YYYY-MM-DD", c.EffectiveFrom))
		}
	}
	if c.EffectiveUntil != "" {
		until, untilOK := ParseDate(c.EffectiveUntil)
		if !untilOK {
			report("effectiveUntil", fmt.Sprintf("effectiveUntil %q is not YYYY-MM-DD", c.EffectiveUntil))
		} else if c.EffectiveFrom != "" && fromOK && until.Before(from) {
			report("effectiveUntil", "effectiveUntil precedes effectiveFrom")
		}
	}

	if c.Program != "" && NormalizeProgram(c.Program) != c.Program {
		report("program", fmt.Sprintf("program %q is not in the whitelist", c.Program))
	}
	if c.Cohort != "" && NormalizeCohort(c.Cohort) != c.Cohort {
		report("cohort", fmt.Sprintf("cohort %q does not match Cohort_YYYY", c.Cohort))
	}

	return out
}

// EffectiveAt reports whether the reference date falls inside the chunk's
// validity window. Unset bounds are unbounded in that direction; malformed
// bounds count as unbounded here since Validate reports them separately.
func (c Chunk) EffectiveAt(ref time.Time) bool {
	if c.EffectiveFrom != "" {
		if from, ok := ParseDate(c.EffectiveFrom); ok && ref.Before(from) {
			return false
		}
	}
	if c.EffectiveUntil != "" {
		if until, ok := ParseDate(c.EffectiveUntil); ok && ref.After(until) {
			return false
		}
	}
	return true
}

// ParseDate parses a YYYY-MM-DD wire date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
