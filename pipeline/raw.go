// Package pipeline implements the trigger entrypoint and pipeline execution
// engine: validating an inbound TriggerData envelope, resolving
// the acting tenant, running the schema prepper, persisting through the
// storage collaborator, and driving each bound pipeline's stages, units, and
// actions to completion while recording a MonitorLog tree.
package pipeline

import (
	"github.com/alfreddata/pipelinekernel/condition"
	"github.com/alfreddata/pipelinekernel/schema"
)

// TriggerType names the write semantics a TriggerData/Pipeline carries.
type TriggerType string

const (
	TriggerInsert        TriggerType = "Insert"
	TriggerMerge         TriggerType = "Merge"
	TriggerInsertOrMerge TriggerType = "InsertOrMerge"
	TriggerDelete        TriggerType = "Delete"
)

// TriggerData is the envelope the entrypoint consumes.
type TriggerData struct {
	Code     string // topic name
	Data     map[string]interface{}
	Type     TriggerType
	TenantID string
	HasTenantID bool
	TraceID     string
	HasTraceID  bool
}

// Role distinguishes the super-admin escape hatch from ordinary tenant users.
type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleAdmin      Role = "Admin"
	RoleUser       Role = "User"
)

// Principal is the simple role check the entrypoint relies on; authn/authz
// itself lives outside this package.
type Principal struct {
	UserID   string
	UserName string
	Role     Role
	TenantID string
}

// AccumulateMode governs how a write action combines with a prior value,
// per the InsertRow/MergeRow/WriteFactor rules.
type AccumulateMode string

const (
	AccumulateStandard AccumulateMode = "Standard"
	AccumulateReverse  AccumulateMode = "Reverse"
	AccumulateCumulate AccumulateMode = "Cumulate"
)

// ActionKind is the discriminant of the Action sum type.
type ActionKind string

const (
	ActionAlarm            ActionKind = "Alarm"
	ActionCopyToMemory     ActionKind = "CopyToMemory"
	ActionWriteToExternal  ActionKind = "WriteToExternal"
	ActionReadRow          ActionKind = "ReadRow"
	ActionReadRows         ActionKind = "ReadRows"
	ActionReadFactor       ActionKind = "ReadFactor"
	ActionReadFactors      ActionKind = "ReadFactors"
	ActionExists           ActionKind = "Exists"
	ActionInsertRow        ActionKind = "InsertRow"
	ActionInsertOrMergeRow ActionKind = "InsertOrMergeRow"
	ActionMergeRow         ActionKind = "MergeRow"
	ActionWriteFactor      ActionKind = "WriteFactor"
	ActionDeleteRow        ActionKind = "DeleteRow"
	ActionDeleteRows       ActionKind = "DeleteRows"
)

// AggregateOp is the optional arithmetic ReadFactor/ReadFactors may apply.
type AggregateOp string

const (
	AggregateNone  AggregateOp = "None"
	AggregateCount AggregateOp = "Count"
	AggregateSum   AggregateOp = "Sum"
	AggregateAvg   AggregateOp = "Avg"
)

// MappingFactor binds one target-topic factor to the parameter that computes
// its value, per the InsertRow/MergeRow contract.
type MappingFactor struct {
	FactorID  string
	Parameter condition.Parameter
}

// Action is one unit-of-work a pipeline unit performs. Only the fields
// relevant to Kind are populated; the rest stay zero.
type Action struct {
	ActionID    string
	Kind        ActionKind
	Conditional bool
	On          *condition.Condition

	// Alarm
	Severity string
	Message  string

	// CopyToMemory
	VariableName string
	Value        condition.Parameter

	// WriteToExternal
	WriterID  string
	EventCode string

	// Read*/Exists/Delete* target topic + filter
	TargetTopicID string
	By            *condition.Condition

	// ReadFactor/ReadFactors
	FactorID  string
	Aggregate AggregateOp

	// InsertRow/InsertOrMergeRow/MergeRow/WriteFactor
	Mappings       []MappingFactor
	AccumulateMode AccumulateMode
	Arithmetic     AggregateOp
}

// Unit is one group of actions under a stage, optionally looped.
type Unit struct {
	UnitID           string
	Name             string
	LoopVariableName string
	HasLoop          bool
	Conditional      bool
	On               *condition.Condition
	Actions          []Action
}

// Stage is one sequential phase of a pipeline.
type Stage struct {
	StageID     string
	Name        string
	Conditional bool
	On          *condition.Condition
	Units       []Unit
}

// Pipeline is the raw, uncompiled definition.
type Pipeline struct {
	PipelineID  string
	TopicID     string
	Type        TriggerType
	Stages      []Stage
	Enabled     bool
	Conditional bool
	On          *condition.Condition
	TenantID    string
	Version     int

	Schema *schema.TopicSchema // source topic's compiled schema, used to resolve Refer parameters
}
