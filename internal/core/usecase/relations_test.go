package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

func newRelationStore(chunks ...domain.Chunk) *stubChunkStore {
	store := &stubChunkStore{chunks: map[string]domain.Chunk{}, errs: map[string]error{}}
	for _, c := range chunks {
		store.chunks[c.URI] = c
	}
	return store
}

func TestRelationsUnknownRootURI(t *testing.T) {
	r := NewRelationResolver(newRelationStore(), nil)

	_, err := r.Relations(context.Background(), "학칙:2024-03-01:art99", 1)
	if !domain.IsKind(err, domain.ErrChunkNotFound) {
		t.Fatalf("expected chunk not found, got %v", err)
	}
}

func TestResolveSeparatesOverridesAndCites(t *testing.T) {
	old := testChunk(15, "2019-03-01")
	cited := testChunk(20, "2024-03-01")
	root := testChunk(15, "2024-03-01")
	root.Overrides = []string{old.URI}
	root.Cites = []string{cited.URI}

	r := NewRelationResolver(newRelationStore(root, old, cited), nil)
	set, err := r.Relations(context.Background(), root.URI, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Overrides) != 1 || set.Overrides[0].URI != old.URI {
		t.Fatalf("expected override %s, got %+v", old.URI, set.Overrides)
	}
	if len(set.Cites) != 1 || set.Cites[0].URI != cited.URI {
		t.Fatalf("expected citation %s, got %+v", cited.URI, set.Cites)
	}
}

func TestResolveReportsDanglingURIs(t *testing.T) {
	root := testChunk(15, "2024-03-01")
	root.Overrides = []string{"학칙:2015-03-01:art15"}

	r := NewRelationResolver(newRelationStore(root), nil)
	set, err := r.Resolve(context.Background(), root, 1)
	if err != nil {
		t.Fatalf("dangling links are reported, not raised: %v", err)
	}
	if len(set.Unresolved) != 1 || set.Unresolved[0] != "학칙:2015-03-01:art15" {
		t.Fatalf("expected unresolved URI, got %v", set.Unresolved)
	}
	if len(set.Overrides) != 0 {
		t.Fatalf("dangling URIs must not produce chunks, got %+v", set.Overrides)
	}
}

func TestResolveTerminatesOnCycles(t *testing.T) {
	a := testChunk(15, "2024-03-01")
	b := testChunk(15, "2019-03-01")
	a.Overrides = []string{b.URI}
	b.Overrides = []string{a.URI}

	r := NewRelationResolver(newRelationStore(a, b), nil)
	set, err := r.Resolve(context.Background(), a, maxRelationDepth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Overrides) != 1 || set.Overrides[0].URI != b.URI {
		t.Fatalf("cycle must resolve each chunk once, got %+v", set.Overrides)
	}
}

func TestResolveClampsTraversalDepth(t *testing.T) {
	versions := []string{
		"2024-03-01", "2023-03-01", "2022-03-01", "2021-03-01",
		"2020-03-01", "2019-03-01", "2018-03-01",
	}
	chain := make([]domain.Chunk, len(versions))
	for i, v := range versions {
		chain[i] = testChunk(15, v)
	}
	for i := 0; i < len(chain)-1; i++ {
		chain[i].Overrides = []string{chain[i+1].URI}
	}

	r := NewRelationResolver(newRelationStore(chain...), nil)
	set, err := r.Resolve(context.Background(), chain[0], 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Overrides) != maxRelationDepth {
		t.Fatalf("expected traversal bounded at %d hops, got %d", maxRelationDepth, len(set.Overrides))
	}
}

func TestResolveDefaultsToSingleHop(t *testing.T) {
	a := testChunk(15, "2024-03-01")
	b := testChunk(15, "2019-03-01")
	c := testChunk(15, "2015-03-01")
	a.Overrides = []string{b.URI}
	b.Overrides = []string{c.URI}

	r := NewRelationResolver(newRelationStore(a, b, c), nil)
	set, err := r.Resolve(context.Background(), a, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Overrides) != 1 || set.Overrides[0].URI != b.URI {
		t.Fatalf("depth <= 0 means one hop, got %+v", set.Overrides)
	}
}

func TestResolveExpandsURIShapedExceptions(t *testing.T) {
	carveOut := testChunk(16, "2024-03-01")
	root := testChunk(15, "2024-03-01")
	root.HasExceptionFor = []string{carveOut.URI, "조기졸업 대상자 제외"}

	r := NewRelationResolver(newRelationStore(root, carveOut), nil)
	set, err := r.Resolve(context.Background(), root, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Exceptions) != 1 || set.Exceptions[0].URI != carveOut.URI {
		t.Fatalf("expected resolved exception, got %+v", set.Exceptions)
	}
	if len(set.Unresolved) != 0 {
		t.Fatalf("free-text exception entries are not dangling links, got %v", set.Unresolved)
	}
}

func TestResolveFallsBackToRelationGraph(t *testing.T) {
	old := testChunk(15, "2019-03-01")
	root := testChunk(15, "2024-03-01") // no embedded links

	graph := &stubGraph{overrides: []string{old.URI}}
	r := NewRelationResolver(newRelationStore(root, old), graph)

	set, err := r.Resolve(context.Background(), root, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(graph.calls) == 0 || graph.calls[0] != root.URI {
		t.Fatalf("expected graph lookup for %s, got %v", root.URI, graph.calls)
	}
	if len(set.Overrides) != 1 || set.Overrides[0].URI != old.URI {
		t.Fatalf("expected graph-sourced override, got %+v", set.Overrides)
	}
}

func TestResolvePropagatesGraphErrors(t *testing.T) {
	root := testChunk(15, "2024-03-01")
	graph := &stubGraph{err: fmt.Errorf("neo4j unreachable")}
	r := NewRelationResolver(newRelationStore(root), graph)

	if _, err := r.Resolve(context.Background(), root, 1); err == nil {
		t.Fatalf("expected graph error to propagate")
	}
}

func TestResolvePropagatesStoreFailures(t *testing.T) {
	root := testChunk(15, "2024-03-01")
	root.Overrides = []string{"학칙:2019-03-01:art15"}

	store := newRelationStore(root)
	store.errs["학칙:2019-03-01:art15"] = domain.WrapError(domain.ErrTemporary, "lookup chunk", fmt.Errorf("pg down"))

	r := NewRelationResolver(store, nil)
	_, err := r.Resolve(context.Background(), root, 1)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("infrastructure failures must propagate, got %v", err)
	}
}
