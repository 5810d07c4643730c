// Package value implements the tagged value algebra: a
// dynamically typed `V` with loose cross-type comparison, aggregate
// functions, and a min/max state machine. It is the leaf dependency of
// the path evaluator, schema prepper, and condition compiler.
package value

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the active variant of a V.
type Kind int

const (
	KindNone Kind = iota
	KindStr
	KindNum
	KindBool
	KindDate
	KindTime
	KindDateTime
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindStr:
		return "str"
	case KindNum:
		return "num"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// V is the central sum type of the value algebra. Zero value is None.
// Date is stored with a zero time-of-day; Time is stored with a fixed
// reference date (year 0, Jan 1); DateTime carries both. All three are
// kept in UTC so comparisons never cross a timezone boundary implicitly.
type V struct {
	kind Kind
	str  string
	num  decimal.Decimal
	b    bool
	t    time.Time
	list []V
	m    map[string]V
}

// None is the singular empty value.
func None() V { return V{kind: KindNone} }

// Str wraps a string value.
func Str(s string) V { return V{kind: KindStr, str: s} }

// Num wraps an arbitrary-precision decimal value.
func Num(d decimal.Decimal) V { return V{kind: KindNum, num: d} }

// Bool wraps a boolean value.
func Bool(b bool) V { return V{kind: KindBool, b: b} }

// Date wraps a date-only value; the time-of-day of t is discarded.
func Date(t time.Time) V {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return V{kind: KindDate, t: d}
}

// Time wraps a time-of-day value; the date part of t is discarded.
func Time(t time.Time) V {
	tm := time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return V{kind: KindTime, t: tm}
}

// DateTime wraps a full date-and-time value.
func DateTime(t time.Time) V {
	return V{kind: KindDateTime, t: t.UTC()}
}

// List wraps a slice of values.
func List(vs []V) V { return V{kind: KindList, list: vs} }

// Map wraps a name-to-value mapping.
func Map(m map[string]V) V { return V{kind: KindMap, m: m} }

func (v V) Kind() Kind { return v.kind }

func (v V) IsNone() bool { return v.kind == KindNone }
func (v V) IsStr() bool  { return v.kind == KindStr }
func (v V) IsNum() bool  { return v.kind == KindNum }
func (v V) IsBool() bool { return v.kind == KindBool }
func (v V) IsDate() bool { return v.kind == KindDate }
func (v V) IsTime() bool { return v.kind == KindTime }
func (v V) IsDateTime() bool { return v.kind == KindDateTime }
func (v V) IsList() bool { return v.kind == KindList }
func (v V) IsMap() bool  { return v.kind == KindMap }

// IsEmpty reports None, the empty string, or an empty list/map.
func (v V) IsEmpty() bool {
	switch v.kind {
	case KindNone:
		return true
	case KindStr:
		return v.str == ""
	case KindList:
		return len(v.list) == 0
	case KindMap:
		return len(v.m) == 0
	default:
		return false
	}
}

func (v V) IsNotEmpty() bool { return !v.IsEmpty() }

// AsStr returns the raw string and whether v holds one.
func (v V) AsStr() (string, bool) {
	if v.kind == KindStr {
		return v.str, true
	}
	return "", false
}

func (v V) AsDecimal() (decimal.Decimal, bool) {
	if v.kind == KindNum {
		return v.num, true
	}
	return decimal.Zero, false
}

func (v V) AsBool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

func (v V) AsTime() (time.Time, bool) {
	switch v.kind {
	case KindDate, KindTime, KindDateTime:
		return v.t, true
	default:
		return time.Time{}, false
	}
}

func (v V) AsList() ([]V, bool) {
	if v.kind == KindList {
		return v.list, true
	}
	return nil, false
}

func (v V) AsMap() (map[string]V, bool) {
	if v.kind == KindMap {
		return v.m, true
	}
	return nil, false
}

// truthyStrings and falsyStrings are the two truth sets, matched against a
// lower-cased, trimmed string.
var truthyStrings = map[string]bool{"1": true, "t": true, "true": true, "y": true, "yes": true}
var falsyStrings = map[string]bool{"0": true, "f": true, "false": true, "n": true, "no": true}

var decimalOne = decimal.NewFromInt(1)

// TryBool attempts a best-effort boolean coercion, grounded on the
// boolean-recognition set used across the value algebra and env loader.
func (v V) TryBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindStr:
		s := strings.ToLower(strings.TrimSpace(v.str))
		if truthyStrings[s] {
			return true, true
		}
		if falsyStrings[s] {
			return false, true
		}
		return false, false
	case KindNum:
		if v.num.Equal(decimal.Zero) {
			return false, true
		}
		if v.num.Equal(decimal.NewFromInt(1)) {
			return true, true
		}
		return false, false
	default:
		return false, false
	}
}

// TryDecimal attempts a best-effort decimal coercion.
func (v V) TryDecimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNum:
		return v.num, true
	case KindStr:
		d, err := decimal.NewFromString(strings.TrimSpace(v.str))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case KindBool:
		if v.b {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	default:
		return decimal.Zero, false
	}
}

// PlainString renders the value the way the value algebra's string
// converter does: the canonical textual form used by Length/Join and by
// encryption of non-string scalars.
func (v V) PlainString() string {
	switch v.kind {
	case KindNone:
		return ""
	case KindStr:
		return v.str
	case KindNum:
		return v.num.String()
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindTime:
		return v.t.Format("15:04:05")
	case KindDateTime:
		return v.t.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// sortKey produces a deterministic key for distinct-set membership of
// primitive values; List/Map are never deduped against this key.
func (v V) sortKey() string {
	return v.kind.String() + "\x00" + v.PlainString()
}

