package pipeline

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/alfreddata/pipelinekernel/crypto"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/schema"
	"github.com/alfreddata/pipelinekernel/value"
)

// Kernel bundles the collaborators the entrypoint and action executor
// drive: topic meta (schemas + pipeline binding), topic storage, key store,
// external writer, and id generator. Log defaults to a no-op logger when
// left zero-valued.
type Kernel struct {
	Meta     TopicMetaService
	Storage  TopicStorage
	Keys     crypto.KeyStore
	External ExternalWriter
	Ids      IdGen
	Log      zerolog.Logger
}

// logger returns k.Log scoped to the kernel component, falling back to a
// disabled logger so a zero-value Kernel never panics on Log calls.
func (k *Kernel) logger() zerolog.Logger {
	return k.Log.With().Str("component", "pipeline-kernel").Logger()
}

// resolveTenant applies the super-admin/ordinary-principal tenant rules.
func resolveTenant(trig TriggerData, principal Principal) (Principal, *pkerr.Error) {
	if principal.Role == RoleSuperAdmin {
		if !trig.HasTenantID || trig.TenantID == "" {
			return Principal{}, pkerr.New(pkerr.TriggerTenantIdMissing, "pipeline.resolveTenant")
		}
		return Principal{UserID: principal.UserID, UserName: principal.UserName, Role: RoleAdmin, TenantID: trig.TenantID}, nil
	}
	if trig.HasTenantID && trig.TenantID != "" && trig.TenantID != principal.TenantID {
		return Principal{}, pkerr.New(pkerr.TriggerTenantIdMismatchPrincipal, "pipeline.resolveTenant")
	}
	return principal, nil
}

func validateTrigger(trig TriggerData) *pkerr.Error {
	if trig.Code == "" {
		return pkerr.New(pkerr.TriggerCodeMissing, "pipeline.validateTrigger")
	}
	if trig.Type == "" {
		return pkerr.New(pkerr.TriggerTypeMissing, "pipeline.validateTrigger")
	}
	if trig.Data == nil {
		return pkerr.New(pkerr.TriggerDataMissing, "pipeline.validateTrigger")
	}
	if trig.HasTenantID && trig.TenantID == "" {
		return pkerr.New(pkerr.TriggerTenantIdBlank, "pipeline.validateTrigger")
	}
	return nil
}

// EntryResult is what Execute hands back to the caller: the
// resolved trace id plus one monitor log per pipeline the event triggered.
type EntryResult struct {
	TraceID string
	Logs    []MonitorLog
}

// Execute runs the entrypoint contract and execution loop. It is
// synchronous; the package has no separate ExecuteAsync. A caller that
// wants a cooperative-suspend form invokes Execute from its own goroutine
// against a cancellable ctx — the core contract performs no suspension
// outside collaborator calls.
func (k *Kernel) Execute(ctx context.Context, trig TriggerData, principal Principal) (EntryResult, *pkerr.Error) {
	lg := k.logger()
	if err := validateTrigger(trig); err != nil {
		lg.Warn().Str("code", string(err.Code)).Msg("trigger rejected")
		return EntryResult{}, err
	}

	effective, err := resolveTenant(trig, principal)
	if err != nil {
		lg.Warn().Str("code", string(err.Code)).Str("trigger_code", trig.Code).Msg("tenant resolution failed")
		return EntryResult{}, err
	}

	ts, err := k.Meta.FindTopicSchema(ctx, effective.TenantID, trig.Code)
	if err != nil {
		lg.Error().Str("code", string(err.Code)).Str("trigger_code", trig.Code).Msg("topic schema lookup failed")
		return EntryResult{}, err
	}

	traceID := trig.TraceID
	if !trig.HasTraceID || traceID == "" {
		traceID = k.Ids.NextID()
	}

	return k.run(ctx, ts, trig, effective, traceID)
}

func (k *Kernel) run(ctx context.Context, ts *schema.TopicSchema, trig TriggerData, principal Principal, traceID string) (EntryResult, *pkerr.Error) {
	prepared, err := schema.Prepare(ts, fromJSON(trig.Data), k.Keys, principal.TenantID, schema.Ingest)
	if err != nil {
		return EntryResult{}, err
	}

	synonym := ts.Topic.Kind == schema.KindSynonym
	if synonym && trig.Type != TriggerInsert {
		return EntryResult{}, pkerr.New(pkerr.TopicTypeNotSupported, "pipeline.Kernel.run")
	}

	var result PersistResult
	if !synonym {
		result, err = k.persist(ctx, ts.Topic.TopicID, trig.Type, prepared)
		if err != nil {
			return EntryResult{}, err
		}
	}

	pipelines, err := k.Meta.FindPipelinesBy(ctx, ts.Topic.TopicID, trig.Type)
	if err != nil {
		return EntryResult{}, err
	}

	logs := make([]MonitorLog, 0, len(pipelines))
	for _, p := range pipelines {
		if !p.Enabled {
			continue
		}
		log, rerr := k.runPipeline(ctx, p, prepared, result, traceID)
		if rerr != nil {
			return EntryResult{}, rerr
		}
		logs = append(logs, log)
	}

	return EntryResult{TraceID: traceID, Logs: logs}, nil
}

func (k *Kernel) persist(ctx context.Context, topicID string, trig TriggerType, data value.V) (PersistResult, *pkerr.Error) {
	switch trig {
	case TriggerInsert:
		return k.Storage.TriggerInsert(ctx, topicID, data)
	case TriggerMerge:
		return k.Storage.TriggerMerge(ctx, topicID, data)
	case TriggerInsertOrMerge:
		return k.Storage.TriggerInsertOrMerge(ctx, topicID, data)
	case TriggerDelete:
		return k.Storage.TriggerDelete(ctx, topicID, data)
	default:
		return PersistResult{}, pkerr.New(pkerr.TopicTypeNotSupported, "pipeline.Kernel.persist")
	}
}

// fromJSON lifts a decoded JSON payload (map[string]interface{} nesting
// string/float64/bool/nil/[]interface{}/map[string]interface{}, the shape
// encoding/json produces) into the value algebra.
func fromJSON(v interface{}) value.V {
	switch x := v.(type) {
	case nil:
		return value.None()
	case string:
		return value.Str(x)
	case bool:
		return value.Bool(x)
	case float64:
		return value.Num(decimal.NewFromFloat(x))
	case int:
		return value.Num(decimal.NewFromInt(int64(x)))
	case int64:
		return value.Num(decimal.NewFromInt(x))
	case []interface{}:
		out := make([]value.V, len(x))
		for i, e := range x {
			out[i] = fromJSON(e)
		}
		return value.List(out)
	case map[string]interface{}:
		out := make(map[string]value.V, len(x))
		for k, e := range x {
			out[k] = fromJSON(e)
		}
		return value.Map(out)
	default:
		return value.None()
	}
}
