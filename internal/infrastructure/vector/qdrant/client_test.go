package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

func TestSearchSendsPreFilteredQuery(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/reg_regulations/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"result": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "reg_regulations", "Cohort_2024", time.Second)
	filter := domain.QueryFilter{
		ArticleRange: &domain.ArticleRange{From: 15, To: 20},
		ContentType:  domain.ContentTypeTable,
		Program:      "MS",
	}
	if _, err := client.Search(context.Background(), []float32{0.1, 0.2}, filter, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured["limit"] != float64(7) {
		t.Fatalf("limit = %v, want 7", captured["limit"])
	}
	if captured["with_payload"] != true {
		t.Fatalf("with_payload missing")
	}

	must := captured["filter"].(map[string]any)["must"].([]any)
	byKey := map[string]map[string]any{}
	for _, cond := range must {
		m := cond.(map[string]any)
		byKey[m["key"].(string)] = m
	}

	rangeCond, ok := byKey["articleNumber"]["range"].(map[string]any)
	if !ok || rangeCond["gte"] != float64(15) || rangeCond["lte"] != float64(20) {
		t.Fatalf("article range condition wrong: %v", byKey["articleNumber"])
	}
	if byKey["contentType"]["match"].(map[string]any)["value"] != "table" {
		t.Fatalf("content type condition wrong: %v", byKey["contentType"])
	}
	if byKey["program"]["match"].(map[string]any)["value"] != "MS" {
		t.Fatalf("program condition wrong: %v", byKey["program"])
	}
	// The partition cohort applies when the query itself names none.
	if byKey["cohort"]["match"].(map[string]any)["value"] != "Cohort_2024" {
		t.Fatalf("cohort condition wrong: %v", byKey["cohort"])
	}
}

func TestSearchQueryCohortOverridesPartition(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"result": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "reg_grad_rules", "Cohort_2023", time.Second)
	filter := domain.QueryFilter{Cohort: "Cohort_2021"}
	if _, err := client.Search(context.Background(), []float32{0.1}, filter, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	must := captured["filter"].(map[string]any)["must"].([]any)
	cond := must[0].(map[string]any)
	if cond["key"] != "cohort" || cond["match"].(map[string]any)["value"] != "Cohort_2021" {
		t.Fatalf("query cohort must win over the partition cohort: %v", cond)
	}
}

func TestSearchDecodesPayloads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": [
			{"score": 0.93, "payload": {
				"uri": "학칙:2024-03-01:art15:cl2",
				"text": "휴학은 통산 2년을 초과할 수 없다",
				"documentCode": "학칙",
				"versionDate": "2024-03-01",
				"contentType": "text",
				"articleNumber": 15,
				"clauseNumber": 2,
				"overrides": ["학칙:2019-03-01:art15:cl2"]
			}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "reg_regulations", "", time.Second)
	got, err := client.Search(context.Background(), []float32{0.1}, domain.QueryFilter{}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.Similarity != 0.93 {
		t.Fatalf("similarity = %v", c.Similarity)
	}
	if c.Chunk.URI != "학칙:2024-03-01:art15:cl2" || c.Chunk.ArticleNumber != 15 || c.Chunk.ClauseNumber != 2 {
		t.Fatalf("chunk decoded wrong: %+v", c.Chunk)
	}
	if len(c.Chunk.Overrides) != 1 || c.Chunk.Overrides[0] != "학칙:2019-03-01:art15:cl2" {
		t.Fatalf("overrides decoded wrong: %v", c.Chunk.Overrides)
	}
}

func TestSearchErrorStatusIsRetrievalUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status": {"error": "collection not found"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "reg_missing", "", time.Second)
	_, err := client.Search(context.Background(), []float32{0.1}, domain.QueryFilter{}, 5)
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected retrieval unavailable, got %v", err)
	}
}

func TestCacheLoadsPartitionOnFirstUse(t *testing.T) {
	var probes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/collections/reg_regulations" {
			probes.Add(1)
			w.Write([]byte(`{"result": {"status": "green"}}`))
			return
		}
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	defer server.Close()

	cache := NewCache(server.URL, "reg_", time.Second)
	partition := domain.Partition{Category: "regulations"}

	first, err := cache.Get(context.Background(), partition)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cache.Get(context.Background(), partition)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected the cached client on the second call")
	}
	if probes.Load() != 1 {
		t.Fatalf("expected a single probe, got %d", probes.Load())
	}
}

func TestCacheInvalidateForcesReProbe(t *testing.T) {
	var probes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		w.Write([]byte(`{"result": {"status": "green"}}`))
	}))
	defer server.Close()

	cache := NewCache(server.URL, "reg_", time.Second)
	partition := domain.Partition{Category: "grad_rules", Cohort: "Cohort_2024"}

	if _, err := cache.Get(context.Background(), partition); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache.Invalidate(partition)
	if _, err := cache.Get(context.Background(), partition); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if probes.Load() != 2 {
		t.Fatalf("expected a probe per load, got %d", probes.Load())
	}
}

func TestCacheProbeFailureIsNotCached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	cache := NewCache(server.URL, "reg_", time.Second)
	_, err := cache.Get(context.Background(), domain.Partition{Category: "never_indexed"})
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected retrieval unavailable, got %v", err)
	}
}
