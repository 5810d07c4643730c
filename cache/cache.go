// Package cache wraps a pipeline.TopicMetaService with a bounded, TTL'd
// in-process cache of compiled schemas and pipeline bindings, optionally
// mirrored to Redis so multiple kernel instances invalidate together.
package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alfreddata/pipelinekernel/pipeline"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/schema"
)

type schemaEntry struct {
	schema    *schema.TopicSchema
	expiresAt time.Time
}

type pipelinesEntry struct {
	pipelines []*pipeline.Pipeline
	expiresAt time.Time
}

// SchemaCache decorates a pipeline.TopicMetaService, serving FindTopicSchema
// and FindPipelinesBy from a bounded LRU before falling through to inner.
// Satisfies pipeline.TopicMetaService.
type SchemaCache struct {
	inner pipeline.TopicMetaService
	ttl   time.Duration

	mu        sync.Mutex
	schemas   *lru.Cache[string, schemaEntry]
	pipelines *lru.Cache[string, pipelinesEntry]

	mirror *RedisMirror
}

// New builds a SchemaCache of the given entry capacity and TTL, wrapping
// inner. mirror may be nil to run purely in-process.
func New(inner pipeline.TopicMetaService, size int, ttl time.Duration, mirror *RedisMirror) (*SchemaCache, error) {
	if size <= 0 {
		size = 1
	}
	schemas, err := lru.New[string, schemaEntry](size)
	if err != nil {
		return nil, err
	}
	pipelines, err := lru.New[string, pipelinesEntry](size)
	if err != nil {
		return nil, err
	}
	c := &SchemaCache{inner: inner, ttl: ttl, schemas: schemas, pipelines: pipelines, mirror: mirror}
	if mirror != nil {
		mirror.Subscribe(func(key string) {
			c.mu.Lock()
			c.schemas.Remove(key)
			c.pipelines.Remove(key)
			c.mu.Unlock()
		})
	}
	return c, nil
}

func schemaKey(tenantID, code string) string { return tenantID + "|" + code }

// FindTopicSchema serves from cache when present and unexpired, else
// delegates to inner and stores the result.
func (c *SchemaCache) FindTopicSchema(ctx context.Context, tenantID, code string) (*schema.TopicSchema, *pkerr.Error) {
	key := schemaKey(tenantID, code)

	c.mu.Lock()
	if e, ok := c.schemas.Get(key); ok && time.Now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.schema, nil
	}
	c.mu.Unlock()

	ts, err := c.inner.FindTopicSchema(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.schemas.Add(key, schemaEntry{schema: ts, expiresAt: time.Now().Add(c.ttl)})
	c.mu.Unlock()
	return ts, nil
}

// FindPipelinesBy serves from cache when present and unexpired, else
// delegates to inner and stores the result.
func (c *SchemaCache) FindPipelinesBy(ctx context.Context, topicID string, trig pipeline.TriggerType) ([]*pipeline.Pipeline, *pkerr.Error) {
	key := topicID + "|" + string(trig)

	c.mu.Lock()
	if e, ok := c.pipelines.Get(key); ok && time.Now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.pipelines, nil
	}
	c.mu.Unlock()

	ps, err := c.inner.FindPipelinesBy(ctx, topicID, trig)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pipelines.Add(key, pipelinesEntry{pipelines: ps, expiresAt: time.Now().Add(c.ttl)})
	c.mu.Unlock()
	return ps, nil
}

// Invalidate drops tenantID/code's compiled schema from the local LRU and,
// if a Redis mirror is configured, publishes the eviction so other kernel
// instances drop it too. Call after a topic definition changes. Pipeline
// bindings cached by FindPipelinesBy are keyed by topic id and trigger type
// and are not evicted here; they expire only by TTL.
func (c *SchemaCache) Invalidate(ctx context.Context, tenantID, code string) {
	key := schemaKey(tenantID, code)
	c.mu.Lock()
	c.schemas.Remove(key)
	c.mu.Unlock()
	if c.mirror != nil {
		c.mirror.Publish(ctx, key)
	}
}
