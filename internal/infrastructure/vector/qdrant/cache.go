package qdrant

import (
	"context"
	"sync"
	"time"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
	"github.com/khu-ai/regulation-assistant/internal/core/ports"
)

// Cache hands out per-partition search clients. Partitions load on first
// use (with a collection probe) and stay cached until invalidated, which
// the reindex worker does when the ingestion pipeline rebuilds a partition.
type Cache struct {
	baseURL          string
	collectionPrefix string
	timeout          time.Duration

	mu         sync.Mutex
	partitions map[string]*Client
}

func NewCache(baseURL, collectionPrefix string, timeout time.Duration) *Cache {
	return &Cache{
		baseURL:          baseURL,
		collectionPrefix: collectionPrefix,
		timeout:          timeout,
		partitions:       make(map[string]*Client),
	}
}

func (c *Cache) Get(ctx context.Context, partition domain.Partition) (ports.VectorIndex, error) {
	key := partition.Key()

	c.mu.Lock()
	if client, ok := c.partitions[key]; ok {
		c.mu.Unlock()
		return client, nil
	}
	c.mu.Unlock()

	client := NewClient(c.baseURL, c.collectionPrefix+partition.Category, partition.Cohort, c.timeout)
	if err := client.exists(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.partitions[key] = client
	c.mu.Unlock()
	return client, nil
}

func (c *Cache) Invalidate(partition domain.Partition) {
	c.mu.Lock()
	delete(c.partitions, partition.Key())
	c.mu.Unlock()
}
