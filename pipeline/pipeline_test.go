package pipeline

import (
	"context"
	"testing"

	"github.com/alfreddata/pipelinekernel/condition"
	"github.com/alfreddata/pipelinekernel/crypto"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/schema"
	"github.com/alfreddata/pipelinekernel/value"
)

type fakeMeta struct {
	schemas   map[string]*schema.TopicSchema
	pipelines map[string][]*Pipeline
}

func (f *fakeMeta) FindTopicSchema(_ context.Context, _, code string) (*schema.TopicSchema, *pkerr.Error) {
	ts, ok := f.schemas[code]
	if !ok {
		return nil, pkerr.New(pkerr.FactorNotFound, "fakeMeta.FindTopicSchema")
	}
	return ts, nil
}

func (f *fakeMeta) FindPipelinesBy(_ context.Context, topicID string, trig TriggerType) ([]*Pipeline, *pkerr.Error) {
	return f.pipelines[topicID+"|"+string(trig)], nil
}

type fakeStorage struct {
	inserted []map[string]value.V
}

func (s *fakeStorage) TriggerInsert(_ context.Context, _ string, data value.V) (PersistResult, *pkerr.Error) {
	return PersistResult{InternalDataID: "row-1", Current: data}, nil
}
func (s *fakeStorage) TriggerMerge(_ context.Context, _ string, data value.V) (PersistResult, *pkerr.Error) {
	return PersistResult{InternalDataID: "row-1", Current: data}, nil
}
func (s *fakeStorage) TriggerInsertOrMerge(_ context.Context, _ string, data value.V) (PersistResult, *pkerr.Error) {
	return PersistResult{InternalDataID: "row-1", Current: data}, nil
}
func (s *fakeStorage) TriggerDelete(_ context.Context, _ string, data value.V) (PersistResult, *pkerr.Error) {
	return PersistResult{InternalDataID: "row-1", Current: data}, nil
}
func (s *fakeStorage) ReadRow(context.Context, string, *condition.CompiledCondition, *condition.Scope) (value.V, *pkerr.Error) {
	return value.None(), nil
}
func (s *fakeStorage) ReadRows(context.Context, string, *condition.CompiledCondition, *condition.Scope) (value.V, *pkerr.Error) {
	return value.List(nil), nil
}
func (s *fakeStorage) ReadFactor(context.Context, string, string, *condition.CompiledCondition, *condition.Scope) (value.V, *pkerr.Error) {
	return value.None(), nil
}
func (s *fakeStorage) ReadFactors(context.Context, string, string, *condition.CompiledCondition, *condition.Scope) (value.V, *pkerr.Error) {
	return value.List(nil), nil
}
func (s *fakeStorage) Exists(context.Context, string, *condition.CompiledCondition, *condition.Scope) (bool, *pkerr.Error) {
	return false, nil
}
func (s *fakeStorage) InsertRow(_ context.Context, _ string, fields map[string]value.V, _ AccumulateMode) (WriteResult, *pkerr.Error) {
	s.inserted = append(s.inserted, fields)
	return WriteResult{InsertCount: 1}, nil
}
func (s *fakeStorage) InsertOrMergeRow(context.Context, string, map[string]value.V, AccumulateMode) (WriteResult, *pkerr.Error) {
	return WriteResult{}, nil
}
func (s *fakeStorage) MergeRow(context.Context, string, map[string]value.V, AccumulateMode) (WriteResult, *pkerr.Error) {
	return WriteResult{}, nil
}
func (s *fakeStorage) WriteFactor(context.Context, string, string, value.V, AccumulateMode, AggregateOp) (WriteResult, *pkerr.Error) {
	return WriteResult{}, nil
}
func (s *fakeStorage) DeleteRow(context.Context, string, *condition.CompiledCondition, *condition.Scope) (WriteResult, *pkerr.Error) {
	return WriteResult{}, nil
}
func (s *fakeStorage) DeleteRows(context.Context, string, *condition.CompiledCondition, *condition.Scope) (WriteResult, *pkerr.Error) {
	return WriteResult{}, nil
}

type fakeExternal struct{ calls int }

func (e *fakeExternal) Write(context.Context, string, string, value.V) *pkerr.Error {
	e.calls++
	return nil
}

type fakeIdGen struct{ n int }

func (g *fakeIdGen) NextID() string {
	g.n++
	return "trace-" + string(rune('0'+g.n))
}

func testSchema(t *testing.T) *schema.TopicSchema {
	t.Helper()
	topic := schema.Topic{
		TopicID: "topic-orders", Name: "orders", Type: schema.TopicDistinct, Kind: schema.KindBusiness,
		Factors: []schema.Factor{
			{FactorID: "f-x", Name: "x", Type: schema.TypeNumber},
		},
	}
	ts, err := schema.Compile(topic)
	if err != nil {
		t.Fatalf("schema.Compile: %v", err)
	}
	return ts
}

func TestEntrypointRejectsMissingCode(t *testing.T) {
	k := &Kernel{}
	_, err := k.Execute(context.Background(), TriggerData{Type: TriggerInsert, Data: map[string]interface{}{}}, Principal{Role: RoleUser, TenantID: "t1"})
	if err == nil || err.Code != pkerr.TriggerCodeMissing {
		t.Fatalf("expected TriggerCodeMissing, got %v", err)
	}
}

func TestEntrypointRejectsTenantMismatch(t *testing.T) {
	k := &Kernel{}
	_, err := k.Execute(context.Background(), TriggerData{
		Code: "orders", Type: TriggerInsert, Data: map[string]interface{}{},
		TenantID: "other", HasTenantID: true,
	}, Principal{Role: RoleUser, TenantID: "t1"})
	if err == nil || err.Code != pkerr.TriggerTenantIdMismatchPrincipal {
		t.Fatalf("expected TriggerTenantIdMismatchPrincipal, got %v", err)
	}
}

func TestEntrypointSuperAdminRequiresTenant(t *testing.T) {
	k := &Kernel{}
	_, err := k.Execute(context.Background(), TriggerData{
		Code: "orders", Type: TriggerInsert, Data: map[string]interface{}{},
	}, Principal{Role: RoleSuperAdmin})
	if err == nil || err.Code != pkerr.TriggerTenantIdMissing {
		t.Fatalf("expected TriggerTenantIdMissing, got %v", err)
	}
}

// TestStageConditionalIgnored exercises a stage-level `on`
// that evaluates false: the pipeline's single monitor log records the
// stage as IGNORED.
func TestStageConditionalIgnored(t *testing.T) {
	ts := testSchema(t)
	one := condition.Parameter{Kind: condition.ParamConstant, ConstantText: "1"}
	on := condition.Condition{
		Kind: condition.CondExpression,
		Left: condition.Parameter{Kind: condition.ParamRefer, ReferID: "f-x"},
		Op:   condition.OpEquals, Right: &one,
	}
	p := &Pipeline{
		PipelineID: "p1", TopicID: ts.Topic.TopicID, Type: TriggerInsert, Enabled: true, TenantID: "t1",
		Schema: ts,
		Stages: []Stage{{
			StageID: "s1", Conditional: true, On: &on,
			Units: []Unit{{UnitID: "u1", Actions: []Action{{ActionID: "a1", Kind: ActionAlarm, Message: "should not run"}}}},
		}},
	}

	meta := &fakeMeta{
		schemas:   map[string]*schema.TopicSchema{"orders": ts},
		pipelines: map[string][]*Pipeline{ts.Topic.TopicID + "|Insert": {p}},
	}
	storage := &fakeStorage{}
	k := &Kernel{Meta: meta, Storage: storage, Keys: crypto.NewMemoryKeyStore(), External: &fakeExternal{}, Ids: &fakeIdGen{}}

	res, err := k.Execute(context.Background(), TriggerData{
		Code: "orders", Type: TriggerInsert, Data: map[string]interface{}{"x": float64(2)},
	}, Principal{Role: RoleUser, TenantID: "t1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Logs) != 1 {
		t.Fatalf("expected one monitor log, got %d", len(res.Logs))
	}
	log := res.Logs[0]
	if len(log.Stages) != 1 || log.Stages[0].Status != StatusIgnored {
		t.Fatalf("expected stage IGNORED, got %+v", log.Stages)
	}
}

func TestPipelineRunsActionsAndWrites(t *testing.T) {
	ts := testSchema(t)
	p := &Pipeline{
		PipelineID: "p1", TopicID: ts.Topic.TopicID, Type: TriggerInsert, Enabled: true, TenantID: "t1",
		Schema: ts,
		Stages: []Stage{{
			StageID: "s1",
			Units: []Unit{{
				UnitID: "u1",
				Actions: []Action{
					{ActionID: "a1", Kind: ActionAlarm, Severity: "info", Message: "event received"},
					{
						ActionID: "a2", Kind: ActionInsertRow, TargetTopicID: ts.Topic.TopicID,
						Mappings: []MappingFactor{{FactorID: "f-x", Parameter: condition.Parameter{Kind: condition.ParamRefer, ReferID: "f-x"}}},
					},
				},
			}},
		}},
	}

	meta := &fakeMeta{
		schemas:   map[string]*schema.TopicSchema{"orders": ts},
		pipelines: map[string][]*Pipeline{ts.Topic.TopicID + "|Insert": {p}},
	}
	storage := &fakeStorage{}
	k := &Kernel{Meta: meta, Storage: storage, Keys: crypto.NewMemoryKeyStore(), External: &fakeExternal{}, Ids: &fakeIdGen{}}

	res, err := k.Execute(context.Background(), TriggerData{
		Code: "orders", Type: TriggerInsert, Data: map[string]interface{}{"x": float64(5)},
	}, Principal{Role: RoleUser, TenantID: "t1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	log := res.Logs[0]
	if log.Stages[0].Status != StatusDone {
		t.Fatalf("expected stage DONE, got %+v", log.Stages[0])
	}
	actions := log.Stages[0].Units[0].Actions
	if len(actions) != 2 || actions[0].Status != StatusDone || actions[1].Status != StatusDone {
		t.Fatalf("expected both actions DONE, got %+v", actions)
	}
	if len(storage.inserted) != 1 {
		t.Fatalf("expected one InsertRow call, got %d", len(storage.inserted))
	}
}
