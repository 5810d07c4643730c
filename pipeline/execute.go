package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/alfreddata/pipelinekernel/condition"
	"github.com/alfreddata/pipelinekernel/datapath"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/value"
)

// pipelineRun carries the per-execution state one pipeline's stages/units/
// actions share: the scope, a lazy action-compile cache, and the running
// monitor log. Memory variables and the monitor log are owned by this run
// and never shared across pipelines or events.
type pipelineRun struct {
	ctx     context.Context
	k       *Kernel
	cp      *CompiledPipeline
	sc      *condition.Scope
	lookup  topicSchemaLookup
	resolve condition.FactorResolver
	actions map[string]*CompiledAction
	seq     int
	log     zerolog.Logger
}

func (k *Kernel) runPipeline(ctx context.Context, p *Pipeline, prepared value.V, persisted PersistResult, traceID string) (MonitorLog, *pkerr.Error) {
	rlog := k.logger().With().Str("trace_id", traceID).Str("pipeline_id", p.PipelineID).Logger()
	log := MonitorLog{TraceID: traceID, PipelineID: p.PipelineID, TopicID: p.TopicID, DataID: persisted.InternalDataID}
	if persisted.HasPrevious {
		log.Old, log.HasOld = persisted.Previous, true
	}
	log.New, log.HasNew = persisted.Current, true

	cp, cerr := CompilePipeline(ctx, p, k.Meta)
	if cerr != nil {
		rlog.Error().Str("code", string(cerr.Code)).Msg("pipeline compile failed")
		log.Stages = []StageLog{{StageID: "compile", Status: StatusError, Error: asLoggedError(cerr)}}
		return log, nil
	}

	previous := value.None()
	if persisted.HasPrevious {
		previous = persisted.Previous
	}
	ec := datapath.NewEvalContext(prepared, previous)
	sc := &condition.Scope{EC: ec}

	run := &pipelineRun{
		ctx: ctx, k: k, cp: cp, sc: sc,
		lookup:  newTopicSchemaLookup(ctx, k.Meta, p.TenantID, p.Schema),
		resolve: factorResolverFor(p.Schema),
		actions: map[string]*CompiledAction{},
		log:     rlog,
	}

	if cp.On != nil {
		ok, err := condition.EvaluateCondition(cp.On, sc)
		if err != nil {
			log.Stages = []StageLog{{StageID: "on", Status: StatusError, Error: asLoggedError(err)}}
			return log, nil
		}
		if !ok {
			return log, nil
		}
	}

	stages := make([]StageLog, 0, len(cp.Stages))
	for _, cs := range cp.Stages {
		sl := run.runStage(cs)
		stages = append(stages, sl)
		if sl.Status == StatusError {
			break
		}
	}
	log.Stages = stages
	return log, nil
}

func (run *pipelineRun) runStage(cs CompiledStage) StageLog {
	sl := StageLog{StageID: cs.Stage.StageID, Name: cs.Stage.Name, StartTime: time.Now()}
	if cs.On != nil {
		sl.HasPrerequisite = true
		ok, err := condition.EvaluateCondition(cs.On, run.sc)
		if err != nil {
			sl.Status = StatusError
			sl.Error = asLoggedError(err)
			sl.SpentMillis = time.Since(sl.StartTime).Milliseconds()
			return sl
		}
		sl.Prerequisite = ok
		if !ok {
			sl.Status = StatusIgnored
			sl.SpentMillis = time.Since(sl.StartTime).Milliseconds()
			return sl
		}
	}

	units := make([]UnitLog, 0, len(cs.Units))
	status := StatusDone
	for _, cu := range cs.Units {
		uls := run.runUnit(cu)
		units = append(units, uls...)
		for _, ul := range uls {
			if ul.Status == StatusError {
				status = StatusError
			}
		}
		if status == StatusError {
			break
		}
	}
	sl.Units = units
	sl.Status = status
	sl.SpentMillis = time.Since(sl.StartTime).Milliseconds()
	if status == StatusError {
		run.log.Warn().Str("stage_id", sl.StageID).Msg("stage aborted")
	} else {
		run.log.Debug().Str("stage_id", sl.StageID).Int64("spent_ms", sl.SpentMillis).Msg("stage done")
	}
	return sl
}

// runUnit returns one UnitLog, or one per loop element when the unit loops.
func (run *pipelineRun) runUnit(cu CompiledUnit) []UnitLog {
	if cu.On != nil {
		ok, err := condition.EvaluateCondition(cu.On, run.sc)
		if err != nil {
			return []UnitLog{{UnitID: cu.Unit.UnitID, Name: cu.Unit.Name, Status: StatusError}}
		}
		if !ok {
			return []UnitLog{{UnitID: cu.Unit.UnitID, Name: cu.Unit.Name, Status: StatusIgnored}}
		}
	}

	if !cu.Unit.HasLoop {
		return []UnitLog{run.runUnitBody(cu.Unit, "", false)}
	}

	dp, perr := datapath.Parse(cu.Unit.LoopVariableName)
	if perr != nil {
		return []UnitLog{{UnitID: cu.Unit.UnitID, Name: cu.Unit.Name, Status: StatusError}}
	}
	listVal, eerr := run.sc.EC.Evaluate(dp)
	if eerr != nil {
		return []UnitLog{{UnitID: cu.Unit.UnitID, Name: cu.Unit.Name, Status: StatusError}}
	}
	elems, ok := listVal.AsList()
	if !ok {
		return []UnitLog{{UnitID: cu.Unit.UnitID, Name: cu.Unit.Name, Status: StatusError}}
	}

	logs := make([]UnitLog, 0, len(elems))
	for _, elem := range elems {
		run.sc.EC.Memory[cu.Unit.LoopVariableName] = elem
		ul := run.runUnitBody(cu.Unit, elem.PlainString(), true)
		logs = append(logs, ul)
		if ul.Status == StatusError {
			break
		}
	}
	return logs
}

func (run *pipelineRun) runUnitBody(u *Unit, loopValue string, hasLoopValue bool) UnitLog {
	ul := UnitLog{UnitID: u.UnitID, Name: u.Name, LoopVariableName: u.LoopVariableName, LoopVariableValue: loopValue, HasLoopValue: hasLoopValue}
	status := StatusDone
	actions := make([]ActionLog, 0, len(u.Actions))
	for i := range u.Actions {
		al := run.runAction(&u.Actions[i])
		actions = append(actions, al)
		if al.Status == StatusError {
			status = StatusError
			break
		}
	}
	ul.Actions = actions
	ul.Status = status
	return ul
}

func (run *pipelineRun) compiledAction(a *Action) (*CompiledAction, *pkerr.Error) {
	if ca, ok := run.actions[a.ActionID]; ok {
		return ca, nil
	}
	ca, err := CompileAction(run.ctx, a, run.resolve, run.lookup)
	if err != nil {
		return nil, err
	}
	run.actions[a.ActionID] = ca
	return ca, nil
}

func (run *pipelineRun) runAction(a *Action) ActionLog {
	run.seq++
	al := ActionLog{UID: sequenceID(run.seq), ActionID: a.ActionID, Type: a.Kind}

	ca, err := run.compiledAction(a)
	if err != nil {
		al.Status = StatusError
		al.Error = asLoggedError(err)
		return al
	}

	if ca.On != nil {
		ok, err := condition.EvaluateCondition(ca.On, run.sc)
		if err != nil {
			al.Status = StatusError
			al.Error = asLoggedError(err)
			return al
		}
		if !ok {
			al.Status = StatusIgnored
			return al
		}
	}

	if err := run.dispatch(ca, &al); err != nil {
		al.Status = StatusError
		al.Error = asLoggedError(err)
		run.log.Error().Str("action_id", a.ActionID).Str("kind", string(a.Kind)).Str("code", string(err.Code)).Msg("action failed")
		return al
	}
	if al.Status == "" {
		al.Status = StatusDone
	}
	return al
}

func (run *pipelineRun) dispatch(ca *CompiledAction, al *ActionLog) *pkerr.Error {
	a := ca.Action
	k := run.k
	switch a.Kind {
	case ActionAlarm:
		al.DefinedAs = a.Message
		return nil

	case ActionCopyToMemory:
		v, err := condition.EvaluateParameter(ca.Value, run.sc)
		if err != nil {
			return err
		}
		run.sc.EC.Memory[a.VariableName] = v
		return nil

	case ActionWriteToExternal:
		return k.External.Write(run.ctx, a.WriterID, a.EventCode, run.sc.EC.Current)

	case ActionReadRow:
		v, err := k.Storage.ReadRow(run.ctx, a.TargetTopicID, ca.By, run.sc)
		if err != nil {
			return err
		}
		run.sc.EC.Memory[a.VariableName] = v
		return nil

	case ActionReadRows:
		v, err := k.Storage.ReadRows(run.ctx, a.TargetTopicID, ca.By, run.sc)
		if err != nil {
			return err
		}
		run.sc.EC.Memory[a.VariableName] = v
		return nil

	case ActionReadFactor:
		v, err := k.Storage.ReadFactor(run.ctx, a.TargetTopicID, a.FactorID, ca.By, run.sc)
		if err != nil {
			return err
		}
		v, err = applyAggregate(a.Aggregate, v)
		if err != nil {
			return err
		}
		run.sc.EC.Memory[a.VariableName] = v
		return nil

	case ActionReadFactors:
		v, err := k.Storage.ReadFactors(run.ctx, a.TargetTopicID, a.FactorID, ca.By, run.sc)
		if err != nil {
			return err
		}
		v, err = applyAggregate(a.Aggregate, v)
		if err != nil {
			return err
		}
		run.sc.EC.Memory[a.VariableName] = v
		return nil

	case ActionExists:
		ok, err := k.Storage.Exists(run.ctx, a.TargetTopicID, ca.By, run.sc)
		if err != nil {
			return err
		}
		run.sc.EC.Memory[a.VariableName] = value.Bool(ok)
		return nil

	case ActionInsertRow, ActionInsertOrMergeRow, ActionMergeRow:
		fields := make(map[string]value.V, len(ca.Mappings))
		for _, m := range ca.Mappings {
			v, err := condition.EvaluateParameter(m.Param, run.sc)
			if err != nil {
				return err
			}
			fields[m.FactorID] = v
		}
		mode := normalizeMode(a.Kind, a.AccumulateMode)
		var wr WriteResult
		var err *pkerr.Error
		switch a.Kind {
		case ActionInsertRow:
			wr, err = k.Storage.InsertRow(run.ctx, a.TargetTopicID, fields, mode)
		case ActionInsertOrMergeRow:
			wr, err = k.Storage.InsertOrMergeRow(run.ctx, a.TargetTopicID, fields, mode)
		case ActionMergeRow:
			wr, err = k.Storage.MergeRow(run.ctx, a.TargetTopicID, fields, mode)
		}
		if err != nil {
			return err
		}
		applyWriteResult(al, wr)
		return nil

	case ActionWriteFactor:
		v, err := condition.EvaluateParameter(ca.Value, run.sc)
		if err != nil {
			return err
		}
		mode := normalizeMode(a.Kind, a.AccumulateMode)
		wr, err2 := k.Storage.WriteFactor(run.ctx, a.TargetTopicID, a.FactorID, v, mode, a.Arithmetic)
		if err2 != nil {
			return err2
		}
		applyWriteResult(al, wr)
		return nil

	case ActionDeleteRow:
		wr, err := k.Storage.DeleteRow(run.ctx, a.TargetTopicID, ca.By, run.sc)
		if err != nil {
			return err
		}
		applyWriteResult(al, wr)
		return nil

	case ActionDeleteRows:
		wr, err := k.Storage.DeleteRows(run.ctx, a.TargetTopicID, ca.By, run.sc)
		if err != nil {
			return err
		}
		applyWriteResult(al, wr)
		return nil

	default:
		return pkerr.Newf(pkerr.PipelineActionMissed, "pipeline.dispatch", "unknown action kind %q", a.Kind)
	}
}

// normalizeMode enforces the accumulate-mode rules: Cumulate is forbidden on
// a plain Insert (falls back to Standard); Reverse is only valid on explicit
// Merge/WriteFactor.
func normalizeMode(kind ActionKind, mode AccumulateMode) AccumulateMode {
	if mode == "" {
		mode = AccumulateStandard
	}
	switch kind {
	case ActionInsertRow:
		if mode == AccumulateCumulate || mode == AccumulateReverse {
			return AccumulateStandard
		}
	case ActionInsertOrMergeRow:
		if mode == AccumulateReverse {
			return AccumulateStandard
		}
	}
	return mode
}

func applyAggregate(op AggregateOp, v value.V) (value.V, *pkerr.Error) {
	switch op {
	case "", AggregateNone:
		return v, nil
	case AggregateCount:
		return value.Count(v), nil
	case AggregateSum:
		return value.Sum(v), nil
	case AggregateAvg:
		return value.Avg(v), nil
	default:
		return value.None(), pkerr.Newf(pkerr.ComputedParametersMissed, "pipeline.applyAggregate", "unknown aggregate %q", op)
	}
}

func applyWriteResult(al *ActionLog, wr WriteResult) {
	al.InsertCount = wr.InsertCount
	al.UpdateCount = wr.UpdateCount
	al.DeleteCount = wr.DeleteCount
	al.Touched = wr.Touched
}

func asLoggedError(err *pkerr.Error) *LoggedError {
	if err == nil {
		return nil
	}
	return &LoggedError{Code: string(err.Code), Message: err.Error()}
}

func sequenceID(n int) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if n == 0 {
		return "0"
	}
	buf := make([]byte, 0, 8)
	for n > 0 {
		buf = append([]byte{digits[n%len(digits)]}, buf...)
		n /= len(digits)
	}
	return string(buf)
}
