// Package neo4j reads the regulation relation graph. The graph stores one
// node per chunk URI with OVERRIDES and CITES edges written by the ingestion
// pipeline; the resolver consults it for chunks whose payload carries no
// embedded link lists.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

type Graph struct {
	driver   neo4j.DriverWithContext
	database string
}

func New(ctx context.Context, uri, user, password, database string) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "neo4j connect", err)
	}
	return &Graph{driver: driver, database: database}, nil
}

func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// LinksFrom returns the outgoing OVERRIDES and CITES targets of one chunk.
// A URI with no node in the graph yields two empty lists, not an error.
func (g *Graph) LinksFrom(ctx context.Context, uri string) (overrides, cites []string, err error) {
	const query = `
MATCH (c:Chunk {uri: $uri})
OPTIONAL MATCH (c)-[:OVERRIDES]->(o:Chunk)
OPTIONAL MATCH (c)-[:CITES]->(r:Chunk)
RETURN collect(DISTINCT o.uri) AS overrides, collect(DISTINCT r.uri) AS cites
`
	result, err := neo4j.ExecuteQuery(ctx, g.driver, query,
		map[string]any{"uri": uri},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrRetrievalUnavailable, "neo4j links", err)
	}
	if len(result.Records) == 0 {
		return nil, nil, nil
	}

	record := result.Records[0]
	return uriList(record, "overrides"), uriList(record, "cites"), nil
}

func uriList(record *neo4j.Record, key string) []string {
	raw, ok := record.Get(key)
	if !ok || raw == nil {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
