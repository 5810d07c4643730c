// Package pkerr implements the error taxonomy every kernel operation surfaces
// on failure: a stable code, a canonical message, and the source
// location that raised it. No panics in steady state.
package pkerr

import "fmt"

// Code identifies one entry in the taxonomy.
type Code string

const (
	// STDE-0000x — value parsing
	DecimalParse         Code = "STDE-00001"
	FullDateTimeParse     Code = "STDE-00002"
	DateTimeParse         Code = "STDE-00003"
	DateParse             Code = "STDE-00004"
	TimeParse             Code = "STDE-00005"

	// STDE-001xx — environment
	EnvInit                   Code = "STDE-00100"
	EnvFileFormatNotSupported Code = "STDE-00101"
	EnvValueGet               Code = "STDE-00102"
	EnvValueTypeMismatch      Code = "STDE-00103"

	// PKRN-* — pipeline kernel
	IncorrectDataPath            Code = "PKRN-00001"
	FactorNotFound                Code = "PKRN-00002"
	VariableFuncNotSupported      Code = "PKRN-00003"
	TriggerCodeMissing            Code = "PKRN-00004"
	TriggerCodeBlank              Code = "PKRN-00005"
	TriggerTypeMissing            Code = "PKRN-00006"
	TriggerDataMissing            Code = "PKRN-00007"
	TriggerTenantIdMissing        Code = "PKRN-00008"
	TriggerTenantIdBlank          Code = "PKRN-00009"
	TriggerTenantIdMismatchPrincipal Code = "PKRN-00010"
	TopicDataIdNotFound           Code = "PKRN-00011"
	TopicTypeNotSupported         Code = "PKRN-00012"
	ValuesNotComparable           Code = "PKRN-00013"

	// MDRN-* — schema / pipeline metadata
	TopicIdMissed               Code = "MDRN-00001"
	TopicIdIsBlank              Code = "MDRN-00002"
	FactorIdMissed              Code = "MDRN-00003"
	FactorIdIsBlank             Code = "MDRN-00004"
	TopicTypeMissed             Code = "MDRN-00005"
	TopicKindMissed             Code = "MDRN-00006"
	TopicFactorMissed           Code = "MDRN-00007"
	FactorTypeMissed            Code = "MDRN-00008"
	PipelineIdMissed            Code = "MDRN-00009"
	PipelineTypeMissed          Code = "MDRN-00010"
	PipelineStageMissed         Code = "MDRN-00011"
	PipelineUnitMissed          Code = "MDRN-00012"
	PipelineActionMissed        Code = "MDRN-00013"
	ConditionMissed             Code = "MDRN-00014"
	ActionMappingFactorMissed   Code = "MDRN-00015"
	ActionExternalWriterIdMissed Code = "MDRN-00016"
	ActionExternalWriterIdIsBlank Code = "MDRN-00017"
	ActionEventCodeMissed       Code = "MDRN-00018"
	ActionEventCodeIsBlank      Code = "MDRN-00019"
	CaseThenRouteParameterMissed Code = "MDRN-00020"
	ComputedParametersMissed    Code = "MDRN-00021"
	AesCrypto                   Code = "MDRN-00022"
	EncryptNotSupport           Code = "MDRN-00023"
	SnowflakeNodeIdTooBig       Code = "MDRN-00024"
)

// canonical holds the default message for a code; Error.Message may override
// it with additional detail, but New always starts from this text.
var canonical = map[Code]string{
	DecimalParse:          "value is not a valid decimal",
	FullDateTimeParse:     "value is not a valid full datetime",
	DateTimeParse:         "value is not a valid datetime",
	DateParse:             "value is not a valid date",
	TimeParse:             "value is not a valid time",
	EnvInit:               "environment failed to initialise",
	EnvFileFormatNotSupported: "environment file format is not supported",
	EnvValueGet:           "environment value could not be read",
	EnvValueTypeMismatch:  "environment value has the wrong type",

	IncorrectDataPath:        "data path is not valid for this value",
	FactorNotFound:           "factor was not found",
	VariableFuncNotSupported: "path function is not supported",
	TriggerCodeMissing:       "trigger code is missing",
	TriggerCodeBlank:         "trigger code is blank",
	TriggerTypeMissing:       "trigger type is missing",
	TriggerDataMissing:       "trigger data is missing",
	TriggerTenantIdMissing:   "trigger tenant id is missing",
	TriggerTenantIdBlank:     "trigger tenant id is blank",
	TriggerTenantIdMismatchPrincipal: "trigger tenant id does not match principal",
	TopicDataIdNotFound:      "topic data id was not found",
	TopicTypeNotSupported:    "topic type is not supported for this operation",
	ValuesNotComparable:      "values are not comparable",

	TopicIdMissed:                "topic id is missing",
	TopicIdIsBlank:               "topic id is blank",
	FactorIdMissed:               "factor id is missing",
	FactorIdIsBlank:              "factor id is blank",
	TopicTypeMissed:              "topic type is missing",
	TopicKindMissed:              "topic kind is missing",
	TopicFactorMissed:            "topic has no factors",
	FactorTypeMissed:             "factor type is missing",
	PipelineIdMissed:             "pipeline id is missing",
	PipelineTypeMissed:           "pipeline type is missing",
	PipelineStageMissed:          "pipeline has no stages",
	PipelineUnitMissed:           "stage has no units",
	PipelineActionMissed:         "unit has no actions",
	ConditionMissed:              "conditional is true but condition is missing",
	ActionMappingFactorMissed:    "action has no mapping factors",
	ActionExternalWriterIdMissed: "action external writer id is missing",
	ActionExternalWriterIdIsBlank: "action external writer id is blank",
	ActionEventCodeMissed:        "action event code is missing",
	ActionEventCodeIsBlank:       "action event code is blank",
	CaseThenRouteParameterMissed: "case-then route has no parameter",
	ComputedParametersMissed:     "computed parameter has too few children",
	AesCrypto:                    "AES crypto operation failed",
	EncryptNotSupport:            "value type does not support encryption",
	SnowflakeNodeIdTooBig:        "snowflake node id exceeds 12 bits",
}

// Error is the single concrete error type satisfying the taxonomy.
type Error struct {
	Code     Code
	Message  string
	Location string // e.g. "value.IsSameAs", "datapath.Parse"
}

func (e *Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Location)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an Error from its canonical message.
func New(code Code, location string) *Error {
	return &Error{Code: code, Message: canonical[code], Location: location}
}

// Newf builds an Error with a formatted detail appended to the canonical message.
func Newf(code Code, location, format string, args ...interface{}) *Error {
	msg := canonical[code]
	detail := fmt.Sprintf(format, args...)
	if detail != "" {
		msg = msg + ": " + detail
	}
	return &Error{Code: code, Message: msg, Location: location}
}

// Is reports whether err is a *Error with the given code.
func Is(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
