// Package httpadapter exposes the query service over HTTP. The surface is
// deliberately small: ask, rank (debug), chunk lookup and relation expansion,
// plus health and metrics.
package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/config"
	"github.com/khu-ai/regulation-assistant/internal/core/domain"
	"github.com/khu-ai/regulation-assistant/internal/core/ports"
	"github.com/khu-ai/regulation-assistant/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	query     ports.RegulationQueryService
	chunks    ports.ChunkStore
	relations ports.RelationService
	metrics   *metrics.HTTPServerMetrics
	cfg       config.Config
}

func NewRouter(
	query ports.RegulationQueryService,
	chunks ports.ChunkStore,
	relations ports.RelationService,
	serverMetrics *metrics.HTTPServerMetrics,
	cfg config.Config,
) *Router {
	return &Router{
		query:     query,
		chunks:    chunks,
		relations: relations,
		metrics:   serverMetrics,
		cfg:       cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/ask", rt.ask)
	mux.HandleFunc("POST /v1/rank", rt.rank)
	mux.HandleFunc("GET /v1/chunks/{uri}", rt.getChunk)
	mux.HandleFunc("GET /v1/chunks/{uri}/relations", rt.getRelations)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type askRequest struct {
	Question    string `json:"question"`
	Category    string `json:"category"`
	Cohort      string `json:"cohort"`
	RefDate     string `json:"refDate"`
	Limit       int    `json:"limit"`
	Interpreter string `json:"interpreter"`
	RankOnly    bool   `json:"rankOnly"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = rt.cfg.RankTopK
	}

	start := time.Now()
	answer, err := rt.query.Ask(r.Context(), req.Question, ports.AskOptions{
		Category:    req.Category,
		Cohort:      req.Cohort,
		RefDate:     req.RefDate,
		Limit:       limit,
		Interpreter: req.Interpreter,
		RankOnly:    req.RankOnly,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordQuery(serviceName, "ask", len(answer.Results), time.Since(start))
		rt.metrics.RecordInterpreter(serviceName, req.Interpreter)
		rt.metrics.RecordChunkAnomalies(serviceName, len(answer.Anomalies))
		if answer.Related != nil {
			rt.metrics.RecordUnresolvedRelations(serviceName, len(answer.Related.Unresolved))
		}
	}
	writeJSON(w, http.StatusOK, answer)
}

type rankRequest struct {
	Query       string             `json:"query"`
	Candidates  []domain.Candidate `json:"candidates"`
	RefDate     string             `json:"refDate"`
	Size        int                `json:"size"`
	Interpreter string             `json:"interpreter"`
}

// rank scores a caller-supplied candidate set without touching retrieval.
// It exists for regression checks against recorded candidate sets.
func (rt *Router) rank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	size := req.Size
	if size <= 0 {
		size = rt.cfg.RankTopK
	}

	start := time.Now()
	ranked, err := rt.query.RankCandidates(r.Context(), req.Query, req.Candidates, ports.AskOptions{
		RefDate:     req.RefDate,
		Limit:       size,
		Interpreter: req.Interpreter,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordQuery(serviceName, "rank", len(ranked.Results), time.Since(start))
		rt.metrics.RecordInterpreter(serviceName, req.Interpreter)
		rt.metrics.RecordChunkAnomalies(serviceName, len(ranked.Anomalies))
	}
	writeJSON(w, http.StatusOK, ranked)
}

func (rt *Router) getChunk(w http.ResponseWriter, r *http.Request) {
	uri, ok := chunkURIFromPath(w, r)
	if !ok {
		return
	}

	chunk, err := rt.chunks.Lookup(r.Context(), uri)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chunk)
}

func (rt *Router) getRelations(w http.ResponseWriter, r *http.Request) {
	uri, ok := chunkURIFromPath(w, r)
	if !ok {
		return
	}

	depth := 1
	if raw := r.URL.Query().Get("depth"); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "depth must be a positive integer"})
			return
		}
		depth = parsed
	}

	set, err := rt.relations.Relations(r.Context(), uri, depth)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordUnresolvedRelations(serviceName, len(set.Unresolved))
	}
	writeJSON(w, http.StatusOK, set)
}

// chunkURIFromPath decodes the {uri} segment. Chunk URIs carry colons, so
// clients percent-encode them into one path segment.
func chunkURIFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.PathValue("uri")
	uri, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(uri) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "chunk uri is required"})
		return "", false
	}
	return uri, true
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value %d is not positive", n)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
