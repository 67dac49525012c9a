package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

func TestRetrieveReturnsCandidates(t *testing.T) {
	index := &stubIndex{candidates: []domain.Candidate{{Chunk: testChunk(15, "2024-03-01"), Similarity: 0.8}}}
	provider := &stubIndexProvider{index: index}
	r := NewCandidateRetriever(provider, time.Second, discardLogger())

	got := r.Retrieve(context.Background(), []float32{0.1}, domain.QueryFilter{}, domain.RoutingHints{},
		domain.Partition{Category: "regulations"}, 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if provider.lastPartition.Category != "regulations" {
		t.Fatalf("wrong partition %+v", provider.lastPartition)
	}
}

func TestRetrieveDefaultsK(t *testing.T) {
	cases := []struct {
		name  string
		hints domain.RoutingHints
		k     int
		want  int
	}{
		{"default", domain.RoutingHints{}, 0, 5},
		{"table queries widen the net", domain.RoutingHints{WantsTable: true}, 0, 7},
		{"explicit k wins", domain.RoutingHints{WantsTable: true}, 3, 3},
	}
	for _, tc := range cases {
		index := &stubIndex{}
		r := NewCandidateRetriever(&stubIndexProvider{index: index}, time.Second, discardLogger())
		r.Retrieve(context.Background(), nil, domain.QueryFilter{}, tc.hints,
			domain.Partition{Category: "regulations"}, tc.k)
		if index.lastK != tc.want {
			t.Errorf("%s: k = %d, want %d", tc.name, index.lastK, tc.want)
		}
	}
}

func TestRetrieveDegradesWhenPartitionUnavailable(t *testing.T) {
	provider := &stubIndexProvider{err: domain.ErrRetrievalUnavailable}
	r := NewCandidateRetriever(provider, time.Second, discardLogger())

	got := r.Retrieve(context.Background(), nil, domain.QueryFilter{}, domain.RoutingHints{},
		domain.Partition{Category: "regulations"}, 0)
	if got != nil {
		t.Fatalf("expected empty candidate set, got %v", got)
	}
}

func TestRetrieveDegradesWhenSearchFails(t *testing.T) {
	index := &stubIndex{err: errors.New("qdrant timeout")}
	r := NewCandidateRetriever(&stubIndexProvider{index: index}, time.Second, discardLogger())

	got := r.Retrieve(context.Background(), nil, domain.QueryFilter{}, domain.RoutingHints{},
		domain.Partition{Category: "regulations"}, 0)
	if got != nil {
		t.Fatalf("expected empty candidate set, got %v", got)
	}
}
