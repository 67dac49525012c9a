package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
	"github.com/khu-ai/regulation-assistant/internal/core/ports"
)

// maxRelationDepth bounds traversal: the overrides/cites graph can contain
// cycles introduced during amendments, so it is walked as a lookup graph
// with a visited set, never as a tree.
const maxRelationDepth = 5

// RelationResolver expands a chunk's supersession and reference links into
// the linked chunk objects. Dangling URIs are ingestion gaps and are
// reported in the unresolved list rather than dropped or raised.
type RelationResolver struct {
	store ports.ChunkStore
	graph ports.RelationGraph // optional edge source for chunks without embedded links
}

func NewRelationResolver(store ports.ChunkStore, graph ports.RelationGraph) *RelationResolver {
	return &RelationResolver{store: store, graph: graph}
}

// Relations looks up the chunk behind uri and expands its links. It is the
// inbound entry point for the relations endpoint.
func (r *RelationResolver) Relations(ctx context.Context, uri string, depth int) (*domain.RelationSet, error) {
	chunk, err := r.store.Lookup(ctx, uri)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, *chunk, depth)
}

// Resolve expands the chunk's links. depth <= 1 is the default single hop;
// larger values traverse transitively up to maxRelationDepth.
func (r *RelationResolver) Resolve(ctx context.Context, chunk domain.Chunk, depth int) (*domain.RelationSet, error) {
	if depth <= 0 {
		depth = 1
	}
	if depth > maxRelationDepth {
		depth = maxRelationDepth
	}

	set := &domain.RelationSet{}
	visited := map[string]bool{chunk.URI: true}
	if err := r.expand(ctx, chunk, depth, visited, set); err != nil {
		return nil, err
	}
	return set, nil
}

func (r *RelationResolver) expand(
	ctx context.Context,
	chunk domain.Chunk,
	depth int,
	visited map[string]bool,
	set *domain.RelationSet,
) error {
	if depth == 0 {
		return nil
	}

	overrides, cites := chunk.Overrides, chunk.Cites
	if len(overrides) == 0 && len(cites) == 0 && r.graph != nil {
		var err error
		overrides, cites, err = r.graph.LinksFrom(ctx, chunk.URI)
		if err != nil {
			return fmt.Errorf("relation graph links for %s: %w", chunk.URI, err)
		}
	}

	resolveList := func(uris []string, dst *[]domain.Chunk) error {
		for _, uri := range uris {
			if uri == "" || visited[uri] {
				continue
			}
			visited[uri] = true

			linked, err := r.store.Lookup(ctx, uri)
			if err != nil {
				if domain.IsKind(err, domain.ErrChunkNotFound) {
					set.Unresolved = append(set.Unresolved, uri)
					continue
				}
				return fmt.Errorf("lookup %s: %w", uri, err)
			}
			*dst = append(*dst, *linked)
			if err := r.expand(ctx, *linked, depth-1, visited, set); err != nil {
				return err
			}
		}
		return nil
	}

	if err := resolveList(overrides, &set.Overrides); err != nil {
		return err
	}
	if err := resolveList(cites, &set.Cites); err != nil {
		return err
	}
	return resolveList(exceptionURIs(chunk.HasExceptionFor), &set.Exceptions)
}

// exceptionURIs keeps the URI-shaped hasExceptionFor entries. The field mixes
// chunk URIs with free-text descriptions; free text stays on the chunk and is
// never treated as a dangling link.
func exceptionURIs(entries []string) []string {
	var out []string
	for _, entry := range entries {
		if strings.Contains(entry, ":art") {
			out = append(out, entry)
		}
	}
	return out
}
