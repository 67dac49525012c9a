package domain

// Candidate is one unranked retrieval hit: a chunk plus the raw similarity
// score assigned by the vector index.
type Candidate struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float64 `json:"similarity"`
}

// Weights configures the hybrid composite score. The defaults follow the
// regression-tuned 40/25/25/5/5 split; every weight is overridable through
// configuration.
type Weights struct {
	Vector     float64 `json:"vector" yaml:"vector"`
	Lexical    float64 `json:"lexical" yaml:"lexical"`
	Metadata   float64 `json:"metadata" yaml:"metadata"`
	Recency    float64 `json:"recency" yaml:"recency"`
	Identifier float64 `json:"identifier" yaml:"identifier"`
}

// DefaultWeights returns the tuned default weight vector.
func DefaultWeights() Weights {
	return Weights{
		Vector:     0.40,
		Lexical:    0.25,
		Metadata:   0.25,
		Recency:    0.05,
		Identifier: 0.05,
	}
}

// Valid reports whether every weight is non-negative and at least one is
// positive.
func (w Weights) Valid() bool {
	if w.Vector < 0 || w.Lexical < 0 || w.Metadata < 0 || w.Recency < 0 || w.Identifier < 0 {
		return false
	}
	return w.Vector+w.Lexical+w.Metadata+w.Recency+w.Identifier > 0
}

// SignalBreakdown is the per-signal contribution behind one composite score,
// each normalized to [0,1] before weighting.
type SignalBreakdown struct {
	Vector     float64 `json:"vector"`
	Lexical    float64 `json:"lexical"`
	Metadata   float64 `json:"metadata"`
	Recency    float64 `json:"recency"`
	Identifier float64 `json:"identifier"`
}

// RankedResult is one ordered entry of the ranking output.
type RankedResult struct {
	Chunk     Chunk           `json:"chunk"`
	Score     float64         `json:"score"`
	Breakdown SignalBreakdown `json:"breakdown"`
}

// RankedList is the ranking's full output: the ordered results (the primary
// contract), the metadata anomalies found among the candidates, and the
// weights that produced the scores.
type RankedList struct {
	Results   []RankedResult `json:"results"`
	Anomalies []Anomaly      `json:"anomalies,omitempty"`
	Weights   Weights        `json:"weights"`
}

// RelationSet is the one-hop (or bounded-depth) expansion of a chunk's
// supersession, reference and exception links. Dangling URIs land in
// Unresolved. Free-text hasExceptionFor entries stay on the chunk itself;
// only URI-shaped entries are expanded here.
type RelationSet struct {
	Overrides  []Chunk  `json:"overrides,omitempty"`
	Cites      []Chunk  `json:"cites,omitempty"`
	Exceptions []Chunk  `json:"exceptions,omitempty"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// Answer is the inbound-facing result of one question: the ranked, cited
// evidence, an optional generated answer text, and the one-hop relation
// expansion of the top result for supersession/exception surfacing.
type Answer struct {
	Text      string         `json:"text,omitempty"`
	Results   []RankedResult `json:"results"`
	Anomalies []Anomaly      `json:"anomalies,omitempty"`
	Related   *RelationSet   `json:"related,omitempty"`
}
