package pipeline

import (
	"context"

	"github.com/alfreddata/pipelinekernel/condition"
	"github.com/alfreddata/pipelinekernel/datapath"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/schema"
)

// CompiledPipeline is the executable form of a Pipeline: its pipeline,
// stage and unit `on` conditions have been compiled against the source
// topic's factor set. Actions are not part of it; CompileAction compiles
// each one at execution time.
type CompiledPipeline struct {
	Pipeline *Pipeline
	On       *condition.CompiledCondition // nil if not conditional
	Stages   []CompiledStage
}

type CompiledStage struct {
	Stage *Stage
	On    *condition.CompiledCondition
	Units []CompiledUnit
}

type CompiledUnit struct {
	Unit *Unit
	On   *condition.CompiledCondition
}

type CompiledAction struct {
	Action     *Action
	On         *condition.CompiledCondition
	By         *condition.CompiledCondition
	Value      *condition.CompiledParameter
	Mappings   []CompiledMapping
}

type CompiledMapping struct {
	FactorID string
	Param    *condition.CompiledParameter
}

// factorResolverFor builds a condition.FactorResolver that binds a Refer
// uuid to the dotted DataPath of the matching factor on ts, with Factor.name
// doubling as the event path the value algebra walks.
func factorResolverFor(ts *schema.TopicSchema) condition.FactorResolver {
	paths := make(map[string]*datapath.DataPath, len(ts.Topic.Factors))
	return func(referID string) (*datapath.DataPath, *pkerr.Error) {
		if dp, ok := paths[referID]; ok {
			return dp, nil
		}
		for _, f := range ts.Topic.Factors {
			if f.FactorID == referID {
				dp, err := datapath.Parse(f.Name)
				if err != nil {
					return nil, err
				}
				paths[referID] = dp
				return dp, nil
			}
		}
		return nil, pkerr.Newf(pkerr.FactorNotFound, "pipeline.factorResolverFor", "no factor with id %q", referID)
	}
}

// topicSchemaLookup resolves the schema a condition/parameter scoped to a
// particular topic id should compile its Refer parameters against. The
// pipeline's own source topic schema always answers for the topic that
// declared it; action clauses that target a different topic ask meta.
type topicSchemaLookup func(ctx context.Context, topicID string) (*schema.TopicSchema, *pkerr.Error)

func newTopicSchemaLookup(ctx context.Context, meta TopicMetaService, tenantID string, source *schema.TopicSchema) topicSchemaLookup {
	cache := map[string]*schema.TopicSchema{source.Topic.TopicID: source}
	return func(_ context.Context, topicID string) (*schema.TopicSchema, *pkerr.Error) {
		if ts, ok := cache[topicID]; ok {
			return ts, nil
		}
		ts, err := meta.FindTopicSchema(ctx, tenantID, topicID)
		if err != nil {
			return nil, err
		}
		cache[topicID] = ts
		return ts, nil
	}
}

// CompilePipeline compiles a raw Pipeline, resolving the pipeline, stage
// and unit `on` conditions against the source topic's factor set. Action
// clauses are not compiled here; see CompileAction.
func CompilePipeline(ctx context.Context, p *Pipeline, meta TopicMetaService) (*CompiledPipeline, *pkerr.Error) {
	if p.PipelineID == "" {
		return nil, pkerr.New(pkerr.PipelineIdMissed, "pipeline.CompilePipeline")
	}
	if p.Type == "" {
		return nil, pkerr.New(pkerr.PipelineTypeMissed, "pipeline.CompilePipeline")
	}
	if len(p.Stages) == 0 {
		return nil, pkerr.New(pkerr.PipelineStageMissed, "pipeline.CompilePipeline")
	}
	if p.Schema == nil {
		return nil, pkerr.New(pkerr.FactorNotFound, "pipeline.CompilePipeline")
	}

	lookup := newTopicSchemaLookup(ctx, meta, p.TenantID, p.Schema)
	resolve := factorResolverFor(p.Schema)

	var on *condition.CompiledCondition
	if p.Conditional {
		if p.On == nil {
			return nil, pkerr.New(pkerr.ConditionMissed, "pipeline.CompilePipeline")
		}
		var err *pkerr.Error
		on, err = condition.CompileCondition(*p.On, resolve)
		if err != nil {
			return nil, err
		}
	}

	stages := make([]CompiledStage, len(p.Stages))
	for i := range p.Stages {
		cs, err := compileStage(&p.Stages[i], resolve, lookup)
		if err != nil {
			return nil, err
		}
		stages[i] = *cs
	}
	return &CompiledPipeline{Pipeline: p, On: on, Stages: stages}, nil
}

func compileStage(s *Stage, resolve condition.FactorResolver, lookup topicSchemaLookup) (*CompiledStage, *pkerr.Error) {
	if len(s.Units) == 0 {
		return nil, pkerr.New(pkerr.PipelineUnitMissed, "pipeline.compileStage")
	}
	on, err := compileConditional(s.Conditional, s.On, resolve)
	if err != nil {
		return nil, err
	}
	units := make([]CompiledUnit, len(s.Units))
	for i := range s.Units {
		cu, err := compileUnit(&s.Units[i], resolve, lookup)
		if err != nil {
			return nil, err
		}
		units[i] = *cu
	}
	return &CompiledStage{Stage: s, On: on, Units: units}, nil
}

func compileUnit(u *Unit, resolve condition.FactorResolver, lookup topicSchemaLookup) (*CompiledUnit, *pkerr.Error) {
	if len(u.Actions) == 0 {
		return nil, pkerr.New(pkerr.PipelineActionMissed, "pipeline.compileUnit")
	}
	on, err := compileConditional(u.Conditional, u.On, resolve)
	if err != nil {
		return nil, err
	}
	return &CompiledUnit{Unit: u, On: on}, nil
}

// CompileAction compiles one action's on/by/value/mappings clauses. Actions
// are compiled lazily at execution time (rather than eagerly inside
// CompilePipeline) because By/Mappings scope to the action's target topic,
// which may require a meta lookup; the result is cacheable by the caller.
func CompileAction(ctx context.Context, a *Action, sourceResolve condition.FactorResolver, lookup topicSchemaLookup) (*CompiledAction, *pkerr.Error) {
	on, err := compileConditional(a.Conditional, a.On, sourceResolve)
	if err != nil {
		return nil, err
	}

	targetResolve := sourceResolve
	if a.TargetTopicID != "" {
		ts, terr := lookup(ctx, a.TargetTopicID)
		if terr != nil {
			return nil, terr
		}
		targetResolve = factorResolverFor(ts)
	}

	ca := &CompiledAction{Action: a, On: on}

	if a.By != nil {
		by, err := condition.CompileCondition(*a.By, targetResolve)
		if err != nil {
			return nil, err
		}
		ca.By = by
	}

	switch a.Kind {
	case ActionCopyToMemory:
		v, err := condition.CompileParameter(a.Value, sourceResolve)
		if err != nil {
			return nil, err
		}
		ca.Value = v
	}

	if len(a.Mappings) > 0 {
		if a.Kind == ActionInsertRow || a.Kind == ActionInsertOrMergeRow || a.Kind == ActionMergeRow {
			ca.Mappings = make([]CompiledMapping, len(a.Mappings))
			for i, m := range a.Mappings {
				cp, err := condition.CompileParameter(m.Parameter, sourceResolve)
				if err != nil {
					return nil, err
				}
				ca.Mappings[i] = CompiledMapping{FactorID: m.FactorID, Param: cp}
			}
		}
	} else if a.Kind == ActionInsertRow || a.Kind == ActionInsertOrMergeRow || a.Kind == ActionMergeRow {
		return nil, pkerr.New(pkerr.ActionMappingFactorMissed, "pipeline.CompileAction")
	}

	if a.Kind == ActionWriteFactor {
		v, err := condition.CompileParameter(a.Value, sourceResolve)
		if err != nil {
			return nil, err
		}
		ca.Value = v
	}

	if a.Kind == ActionWriteToExternal {
		if a.WriterID == "" {
			return nil, pkerr.New(pkerr.ActionExternalWriterIdMissed, "pipeline.CompileAction")
		}
		if a.EventCode == "" {
			return nil, pkerr.New(pkerr.ActionEventCodeMissed, "pipeline.CompileAction")
		}
	}

	return ca, nil
}

func compileConditional(conditional bool, on *condition.Condition, resolve condition.FactorResolver) (*condition.CompiledCondition, *pkerr.Error) {
	if !conditional {
		return nil, nil
	}
	if on == nil {
		return nil, pkerr.New(pkerr.ConditionMissed, "pipeline.compileConditional")
	}
	return condition.CompileCondition(*on, resolve)
}
