// Package schema compiles a Topic's factor list into a TopicSchema: a
// dotted-name tree of Simple/VecOrMap/Fake nodes pruned to only the
// branches that need work during preparation, plus the Prepare pipeline that
// runs defaults, date/time parsing, crypto, AID injection, and flatten over
// an inbound event payload.
package schema

import "github.com/alfreddata/pipelinekernel/crypto"

// FactorType is one of the topic factor's semantic types (there are roughly
// 45 in all; this lists the ones that drive distinct prepper behavior — the rest
// collapse into categoryText, the default for anything not date/time,
// numeric, boolean, Object, or Array).
type FactorType string

const (
	TypeText         FactorType = "Text"
	TypeNumber       FactorType = "Number"
	TypeUnsigned     FactorType = "Unsigned"
	TypeBoolean      FactorType = "Boolean"
	TypeDate         FactorType = "Date"
	TypeDateTime     FactorType = "DateTime"
	TypeFullDatetime FactorType = "FullDatetime"
	TypeTime         FactorType = "Time"
	TypeYear         FactorType = "Year"
	TypeMonth        FactorType = "Month"
	TypeDay          FactorType = "Day"
	TypeHour         FactorType = "Hour"
	TypeMinute       FactorType = "Minute"
	TypeSecond       FactorType = "Second"
	TypeDayKind      FactorType = "DayKind"
	TypeHourKind     FactorType = "HourKind"
	TypeEnum         FactorType = "Enum"
	TypeObject       FactorType = "Object"
	TypeArray        FactorType = "Array"
	TypeEmail        FactorType = "Email"
	TypePhone        FactorType = "Phone"
	TypeAddress      FactorType = "Address"
)

type category int

const (
	categoryText category = iota
	categoryNumeric
	categoryBoolean
	categoryDate
	categoryDateTime
	categoryFullDateTime
	categoryTime
	categoryObject
	categoryArray
)

// categoryOf classifies a factor type for default-value parsing and
// encrypt/decrypt eligibility.
func (t FactorType) categoryOf() category {
	switch t {
	case TypeNumber, TypeUnsigned, TypeYear, TypeMonth, TypeDay, TypeHour, TypeMinute, TypeSecond:
		return categoryNumeric
	case TypeBoolean:
		return categoryBoolean
	case TypeDate:
		return categoryDate
	case TypeDateTime:
		return categoryDateTime
	case TypeFullDatetime:
		return categoryFullDateTime
	case TypeTime:
		return categoryTime
	case TypeObject:
		return categoryObject
	case TypeArray:
		return categoryArray
	default:
		return categoryText
	}
}

// IsDateOrTime reports whether this factor type is subject to
// date/time parsing and date-mask crypto eligibility.
func (t FactorType) IsDateOrTime() bool {
	switch t.categoryOf() {
	case categoryDate, categoryDateTime, categoryFullDateTime, categoryTime:
		return true
	default:
		return false
	}
}

// Factor is one field of a Topic.
type Factor struct {
	FactorID     string
	Name         string // dotted path, e.g. "dv.b"
	Type         FactorType
	EnumID       string
	DefaultValue string
	HasDefault   bool
	Flatten      bool
	Encrypt      crypto.MethodID
}

func (f Factor) hasEncrypt() bool {
	return f.Encrypt != "" && f.Encrypt != crypto.None
}

// TopicType is the topic-level classification.
type TopicType string

const (
	TopicRaw       TopicType = "raw"
	TopicMeta      TopicType = "meta"
	TopicDistinct  TopicType = "distinct"
	TopicAggregate TopicType = "aggregate"
	TopicTime      TopicType = "time"
	TopicRatio     TopicType = "ratio"
)

// TopicKind distinguishes system-owned, tenant business, and synonym topics.
type TopicKind string

const (
	KindSystem  TopicKind = "system"
	KindBusiness TopicKind = "business"
	KindSynonym TopicKind = "synonym"
)

// Topic is the schema entity a TopicSchema compiles from.
type Topic struct {
	TopicID  string
	Name     string
	Type     TopicType
	Kind     TopicKind
	TenantID string
	Factors  []Factor
}
