package pipeline

import "time"

// Status is the terminal state of a stage/unit/action monitor-log node.
type Status string

const (
	StatusDone    Status = "DONE"
	StatusIgnored Status = "IGNORED"
	StatusError   Status = "ERROR"
)

// ActionLog is one action's contribution to the monitor log.
type ActionLog struct {
	UID         string
	ActionID    string
	Type        ActionKind
	Status      Status
	InsertCount int
	UpdateCount int
	DeleteCount int
	DefinedAs   string
	Touched     []string
	Error       *LoggedError
}

// UnitLog is one unit's contribution, including its loop iterations when
// LoopVariableName is set: one UnitLog per element, sharing UnitID.
type UnitLog struct {
	UnitID           string
	Name             string
	LoopVariableName string
	LoopVariableValue string
	HasLoopValue     bool
	Status           Status
	Actions          []ActionLog
}

// StageLog is one stage's contribution.
type StageLog struct {
	StageID      string
	Name         string
	Prerequisite bool
	HasPrerequisite bool
	Status       Status
	StartTime    time.Time
	SpentMillis  int64
	Error        *LoggedError
	Units        []UnitLog
}

// LoggedError carries the original error's code/message into the monitor
// log rather than re-wrapping it.
type LoggedError struct {
	Code    string
	Message string
}

// MonitorLog is the tree recorded for one pipeline's execution against one
// event.
type MonitorLog struct {
	TraceID    string
	PipelineID string
	TopicID    string
	DataID     string
	Old        interface{}
	HasOld     bool
	New        interface{}
	HasNew     bool
	Stages     []StageLog
}
