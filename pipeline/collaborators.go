package pipeline

import (
	"context"

	"github.com/alfreddata/pipelinekernel/condition"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/schema"
	"github.com/alfreddata/pipelinekernel/value"
)

// TopicMetaService resolves topic schemas and the pipelines bound to a
// (topic, trigger type) pair.
type TopicMetaService interface {
	FindTopicSchema(ctx context.Context, tenantID, code string) (*schema.TopicSchema, *pkerr.Error)
	FindPipelinesBy(ctx context.Context, topicID string, trig TriggerType) ([]*Pipeline, *pkerr.Error)
}

// PersistResult is what the storage collaborator hands back from a trigger
// write.
type PersistResult struct {
	InternalDataID string
	Previous       value.V
	HasPrevious    bool
	Current        value.V
}

// TopicStorage is the persistence/read/write collaborator the entrypoint and
// action executor drive.
type TopicStorage interface {
	TriggerInsert(ctx context.Context, topicID string, data value.V) (PersistResult, *pkerr.Error)
	TriggerMerge(ctx context.Context, topicID string, data value.V) (PersistResult, *pkerr.Error)
	TriggerInsertOrMerge(ctx context.Context, topicID string, data value.V) (PersistResult, *pkerr.Error)
	TriggerDelete(ctx context.Context, topicID string, data value.V) (PersistResult, *pkerr.Error)

	ReadRow(ctx context.Context, topicID string, by *condition.CompiledCondition, sc *condition.Scope) (value.V, *pkerr.Error)
	ReadRows(ctx context.Context, topicID string, by *condition.CompiledCondition, sc *condition.Scope) (value.V, *pkerr.Error)
	ReadFactor(ctx context.Context, topicID, factorID string, by *condition.CompiledCondition, sc *condition.Scope) (value.V, *pkerr.Error)
	ReadFactors(ctx context.Context, topicID, factorID string, by *condition.CompiledCondition, sc *condition.Scope) (value.V, *pkerr.Error)
	Exists(ctx context.Context, topicID string, by *condition.CompiledCondition, sc *condition.Scope) (bool, *pkerr.Error)

	InsertRow(ctx context.Context, topicID string, fields map[string]value.V, mode AccumulateMode) (WriteResult, *pkerr.Error)
	InsertOrMergeRow(ctx context.Context, topicID string, fields map[string]value.V, mode AccumulateMode) (WriteResult, *pkerr.Error)
	MergeRow(ctx context.Context, topicID string, fields map[string]value.V, mode AccumulateMode) (WriteResult, *pkerr.Error)
	WriteFactor(ctx context.Context, topicID, factorID string, v value.V, mode AccumulateMode, arith AggregateOp) (WriteResult, *pkerr.Error)

	DeleteRow(ctx context.Context, topicID string, by *condition.CompiledCondition, sc *condition.Scope) (WriteResult, *pkerr.Error)
	DeleteRows(ctx context.Context, topicID string, by *condition.CompiledCondition, sc *condition.Scope) (WriteResult, *pkerr.Error)
}

// WriteResult reports what an InsertRow/MergeRow/WriteFactor/DeleteRow*
// action affected, feeding the action's monitor-log node.
type WriteResult struct {
	InsertCount int
	UpdateCount int
	DeleteCount int
	Touched     []string
}

// ExternalWriter forwards events to an off-kernel sink.
type ExternalWriter interface {
	Write(ctx context.Context, writerID, eventCode string, scope value.V) *pkerr.Error
}

// IdGen mints ids for trace ids and internal data ids.
type IdGen interface {
	NextID() string
}
