package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alfreddata/pipelinekernel/pipeline"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/schema"
)

type countingMeta struct {
	schemaCalls int
	pipeCalls   int
	ts          *schema.TopicSchema
}

func (m *countingMeta) FindTopicSchema(_ context.Context, _, _ string) (*schema.TopicSchema, *pkerr.Error) {
	m.schemaCalls++
	return m.ts, nil
}

func (m *countingMeta) FindPipelinesBy(_ context.Context, _ string, _ pipeline.TriggerType) ([]*pipeline.Pipeline, *pkerr.Error) {
	m.pipeCalls++
	return nil, nil
}

func testSchema(t *testing.T) *schema.TopicSchema {
	t.Helper()
	topic := schema.Topic{
		TopicID: "topic-orders", Name: "orders", Type: schema.TopicDistinct, Kind: schema.KindBusiness,
		Factors: []schema.Factor{{FactorID: "f-x", Name: "x", Type: schema.TypeNumber}},
	}
	ts, err := schema.Compile(topic)
	if err != nil {
		t.Fatalf("schema.Compile: %v", err)
	}
	return ts
}

func TestSchemaCacheServesFromCache(t *testing.T) {
	meta := &countingMeta{ts: testSchema(t)}
	c, err := New(meta, 8, time.Minute, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.FindTopicSchema(context.Background(), "t1", "orders"); err != nil {
			t.Fatalf("FindTopicSchema: %v", err)
		}
	}
	if meta.schemaCalls != 1 {
		t.Fatalf("expected inner called once, got %d", meta.schemaCalls)
	}
}

func TestSchemaCacheExpires(t *testing.T) {
	meta := &countingMeta{ts: testSchema(t)}
	c, err := New(meta, 8, -time.Second, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := c.FindTopicSchema(context.Background(), "t1", "orders"); err != nil {
		t.Fatalf("FindTopicSchema: %v", err)
	}
	if _, err := c.FindTopicSchema(context.Background(), "t1", "orders"); err != nil {
		t.Fatalf("FindTopicSchema: %v", err)
	}
	if meta.schemaCalls != 2 {
		t.Fatalf("expected inner called twice with an already-expired TTL, got %d", meta.schemaCalls)
	}
}

func TestSchemaCacheInvalidate(t *testing.T) {
	meta := &countingMeta{ts: testSchema(t)}
	c, err := New(meta, 8, time.Minute, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := c.FindTopicSchema(context.Background(), "t1", "orders"); err != nil {
		t.Fatalf("FindTopicSchema: %v", err)
	}
	c.Invalidate(context.Background(), "t1", "orders")
	if _, err := c.FindTopicSchema(context.Background(), "t1", "orders"); err != nil {
		t.Fatalf("FindTopicSchema: %v", err)
	}
	if meta.schemaCalls != 2 {
		t.Fatalf("expected inner called again after Invalidate, got %d", meta.schemaCalls)
	}
}

func TestPipelinesByCache(t *testing.T) {
	meta := &countingMeta{ts: testSchema(t)}
	c, err := New(meta, 8, time.Minute, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.FindPipelinesBy(context.Background(), "topic-orders", pipeline.TriggerInsert); err != nil {
			t.Fatalf("FindPipelinesBy: %v", err)
		}
	}
	if meta.pipeCalls != 1 {
		t.Fatalf("expected inner called once, got %d", meta.pipeCalls)
	}
}
