package datapath

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alfreddata/pipelinekernel/dtparse"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/value"
)

// Clock supplies the evaluation-time instant for &now(), injected rather
// than read from time.Now() directly so tests can pin it: there is no
// suspension point inside the value algebra, but a clock read must still be
// deterministic for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// EvalContext is the per-execution scope a DataPath evaluates against: the
// current event map, the previous snapshot (for &old), the memory
// variables written by CopyToMemory/Read* actions, and a Clock for &now.
// One EvalContext belongs to exactly one pipeline execution and is never
// shared across goroutines.
type EvalContext struct {
	Current  value.V
	Previous value.V
	Memory   map[string]value.V
	Clock    Clock

	seqMu sync.Mutex
	seq   map[string]int64
}

// NewEvalContext builds a scope for one execution. previous may be
// value.None() when there is no prior snapshot (e.g. an Insert).
func NewEvalContext(current, previous value.V) *EvalContext {
	return &EvalContext{
		Current:  current,
		Previous: previous,
		Memory:   map[string]value.V{},
		Clock:    SystemClock{},
		seq:      map[string]int64{},
	}
}

// Evaluate walks dp from the root scope (memory variables, then the
// current event map).
func (ec *EvalContext) Evaluate(dp *DataPath) (value.V, *pkerr.Error) {
	return ec.walk(dp, dp.Segments, value.None(), false)
}

// evaluateRelative walks dp starting from an already-resolved context
// value, used by literal-concat sub-paths nested inside a non-root segment.
func (ec *EvalContext) evaluateRelative(dp *DataPath, ctxVal value.V) (value.V, *pkerr.Error) {
	return ec.walk(dp, dp.Segments, ctxVal, true)
}

// EvaluateLiteral evaluates dp as a constant-text expression rather than a
// root field lookup: a Parameter.Constant is a literal string that may embed
// "&func(...)"/"{...}" references. A single bare segment that
// Evaluate would treat as a field-name lookup instead renders as its own
// literal text here.
func (ec *EvalContext) EvaluateLiteral(dp *DataPath) (value.V, *pkerr.Error) {
	if len(dp.Segments) != 1 {
		return value.None(), pkerr.New(pkerr.IncorrectDataPath, "datapath.EvaluateLiteral")
	}
	seg := dp.Segments[0]
	if seg.Kind == SegFunc {
		return ec.evalFunc(dp, seg, value.None(), false)
	}
	return ec.evalConcat(seg.Pieces, value.None(), true)
}

func (ec *EvalContext) walk(dp *DataPath, segs []Segment, init value.V, haveInit bool) (value.V, *pkerr.Error) {
	cur := init
	haveCur := haveInit
	for i, seg := range segs {
		isFirst := i == 0 && !haveInit
		next, err := ec.evalSegment(dp, seg, cur, haveCur, isFirst)
		if err != nil {
			return value.None(), err
		}
		cur = next
		haveCur = true

		if i+1 >= len(segs) {
			break
		}
		if cur.IsList() {
			if lst, _ := cur.AsList(); len(lst) == 0 {
				return value.List(nil), nil
			}
		}
		if cur.IsNone() {
			if segs[i+1].IsList {
				return value.List(nil), nil
			}
			return value.None(), nil
		}
	}
	return cur, nil
}

func (ec *EvalContext) evalSegment(dp *DataPath, seg Segment, ctxVal value.V, haveCtx, isFirst bool) (value.V, *pkerr.Error) {
	if seg.Kind == SegFunc {
		return ec.evalFunc(dp, seg, ctxVal, haveCtx)
	}
	if name, ok := seg.PlainName(); ok {
		if isFirst {
			return ec.lookupRoot(name), nil
		}
		return ec.lookupInto(ctxVal, name, seg.IsList)
	}
	return ec.evalConcat(seg.Pieces, ctxVal, isFirst)
}

func (ec *EvalContext) lookupRoot(name string) value.V {
	if v, ok := ec.Memory[name]; ok {
		return v
	}
	if ec.Current.IsMap() {
		m, _ := ec.Current.AsMap()
		if v, ok := m[name]; ok {
			return v
		}
	}
	return value.None()
}

// lookupInto implements the plain-into-Map/List field lookup rules.
func (ec *EvalContext) lookupInto(ctxVal value.V, name string, isList bool) (value.V, *pkerr.Error) {
	switch {
	case ctxVal.IsMap():
		m, _ := ctxVal.AsMap()
		if v, ok := m[name]; ok {
			return v, nil
		}
		return value.None(), nil
	case ctxVal.IsList():
		list, _ := ctxVal.AsList()
		out := make([]value.V, 0, len(list))
		for _, elem := range list {
			switch {
			case elem.IsNone():
				if !isList {
					out = append(out, value.None())
				}
			case elem.IsMap():
				m, _ := elem.AsMap()
				v, ok := m[name]
				if !ok {
					if !isList {
						out = append(out, value.None())
					}
					continue
				}
				if v.IsList() {
					spliced, _ := v.AsList()
					out = append(out, spliced...)
				} else {
					out = append(out, v)
				}
			default:
				return value.None(), pkerr.New(pkerr.IncorrectDataPath, "datapath.lookupInto")
			}
		}
		return value.List(out), nil
	case ctxVal.IsNone():
		return value.None(), nil
	default:
		return value.None(), pkerr.New(pkerr.IncorrectDataPath, "datapath.lookupInto")
	}
}

func (ec *EvalContext) evalConcat(pieces []ConcatPiece, ctxVal value.V, isFirst bool) (value.V, *pkerr.Error) {
	var b strings.Builder
	for _, p := range pieces {
		if p.Sub == nil {
			b.WriteString(p.Literal)
			continue
		}
		var v value.V
		var err *pkerr.Error
		if isFirst {
			v, err = ec.Evaluate(p.Sub)
		} else {
			v, err = ec.evaluateRelative(p.Sub, ctxVal)
		}
		if err != nil {
			return value.None(), err
		}
		if !v.IsNone() {
			b.WriteString(v.PlainString())
		}
	}
	return value.Str(b.String()), nil
}

// evalArg resolves one function argument: try it as a path against the
// root scope, falling back to its own literal source text (as a decimal
// when it parses as one) when the path resolves to nothing. This is how
// `arg := path | literal_value` is read here.
func (ec *EvalContext) evalArg(dp *DataPath) value.V {
	v, err := ec.Evaluate(dp)
	if err == nil && !v.IsNone() {
		return v
	}
	text := dp.Text
	if d, derr := decimal.NewFromString(strings.TrimSpace(text)); derr == nil {
		return value.Num(d)
	}
	return value.Str(text)
}

func (ec *EvalContext) nextSeq(key string) value.V {
	ec.seqMu.Lock()
	defer ec.seqMu.Unlock()
	ec.seq[key]++
	return value.Num(decimal.NewFromInt(ec.seq[key]))
}

func dtparseFromV(v value.V) (time.Time, bool) {
	if t, ok := v.AsTime(); ok {
		return t, true
	}
	if s, ok := v.AsStr(); ok {
		if t, err := dtparse.ParseLoose(s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var dateUnitLayouts = map[string]bool{"day": true, "month": true, "year": true}

func (ec *EvalContext) evalFunc(dp *DataPath, seg Segment, ctxVal value.V, haveCtx bool) (value.V, *pkerr.Error) {
	name := seg.FuncName
	args := seg.Args

	switch name {
	case "nextSeq":
		return ec.nextSeq(dp.Text), nil
	case "now":
		return value.DateTime(ec.Clock.Now()), nil
	case "concat":
		var b strings.Builder
		for _, a := range args {
			v := ec.evalArg(a)
			if !v.IsNone() {
				b.WriteString(v.PlainString())
			}
		}
		return value.Str(b.String()), nil
	case "cur":
		return ctxVal, nil
	case "old":
		return ec.evaluateRelative(&DataPath{Text: dp.Text, Segments: trimLastFuncSegment(dp.Segments)}, ec.Previous)
	}

	if name == "count" {
		return value.Count(ctxVal), nil
	}
	if name == "len" {
		return value.Length(ctxVal), nil
	}
	if name == "distinct" {
		return value.Distinct(ctxVal), nil
	}
	if name == "sum" {
		return value.Sum(ctxVal), nil
	}
	if name == "avg" {
		return value.Avg(ctxVal), nil
	}
	switch name {
	case "min":
		return value.Min(ctxVal)
	case "max":
		return value.Max(ctxVal)
	case "minNum":
		return value.MinNum(ctxVal)
	case "maxNum":
		return value.MaxNum(ctxVal)
	case "minDate":
		return value.MinDate(ctxVal)
	case "maxDate":
		return value.MaxDate(ctxVal)
	case "minDatetime":
		return value.MinDateTime(ctxVal)
	case "maxDatetime":
		return value.MaxDateTime(ctxVal)
	case "minTime":
		return value.MinTime(ctxVal)
	case "maxTime":
		return value.MaxTime(ctxVal)
	}

	str := ctxVal.PlainString()
	switch name {
	case "upper":
		return value.Str(strings.ToUpper(str)), nil
	case "lower":
		return value.Str(strings.ToLower(str)), nil
	case "strip":
		return value.Str(strings.TrimSpace(str)), nil
	case "startsWith":
		needle := ec.evalArg(args[0]).PlainString()
		return value.Bool(strings.HasPrefix(str, needle)), nil
	case "endsWith":
		needle := ec.evalArg(args[0]).PlainString()
		return value.Bool(strings.HasSuffix(str, needle)), nil
	case "contains":
		needle := ec.evalArg(args[0]).PlainString()
		return value.Bool(strings.Contains(str, needle)), nil
	case "find":
		needle := ec.evalArg(args[0]).PlainString()
		idx := strings.Index(str, needle)
		return value.Num(decimal.NewFromInt(int64(idx))), nil
	case "replace":
		old := ec.evalArg(args[0]).PlainString()
		newv := ec.evalArg(args[1]).PlainString()
		return value.Str(strings.ReplaceAll(str, old, newv)), nil
	case "replaceFirst":
		old := ec.evalArg(args[0]).PlainString()
		newv := ec.evalArg(args[1]).PlainString()
		return value.Str(strings.Replace(str, old, newv, 1)), nil
	case "split":
		sep := ec.evalArg(args[0]).PlainString()
		parts := strings.Split(str, sep)
		out := make([]value.V, len(parts))
		for i, p := range parts {
			out[i] = value.Str(p)
		}
		return value.List(out), nil
	case "join":
		sep := ec.evalArg(args[0]).PlainString()
		return value.Join(ctxVal, sep)
	case "slice":
		runes := []rune(str)
		startD, _ := ec.evalArg(args[0]).TryDecimal()
		startI := int(startD.IntPart())
		if startI < 0 {
			startI = 0
		}
		if startI > len(runes) {
			startI = len(runes)
		}
		endI := len(runes)
		if len(args) == 2 {
			lenD, _ := ec.evalArg(args[1]).TryDecimal()
			lenI := int(lenD.IntPart())
			endI = startI + lenI
			if endI > len(runes) {
				endI = len(runes)
			}
			if endI < startI {
				endI = startI
			}
		}
		return value.Str(string(runes[startI:endI])), nil
	}

	switch name {
	case "dayDiff", "monthDiff", "yearDiff":
		fromT, ok1 := dtparseFromV(ctxVal)
		other := ec.evalArg(args[0])
		toT, ok2 := dtparseFromV(other)
		if !ok1 || !ok2 {
			return value.None(), pkerr.New(pkerr.ValuesNotComparable, "datapath."+name)
		}
		return value.Num(decimal.NewFromInt(int64(calendarDiff(name, fromT, toT)))), nil
	case "moveDate":
		baseT, ok := dtparseFromV(ctxVal)
		if !ok {
			return value.None(), pkerr.New(pkerr.DateParse, "datapath.moveDate")
		}
		nD, _ := ec.evalArg(args[0]).TryDecimal()
		unit := ec.evalArg(args[1]).PlainString()
		n := int(nD.IntPart())
		var moved time.Time
		switch unit {
		case "day":
			moved = baseT.AddDate(0, 0, n)
		case "month":
			moved = baseT.AddDate(0, n, 0)
		case "year":
			moved = baseT.AddDate(n, 0, 0)
		default:
			return value.None(), pkerr.Newf(pkerr.IncorrectDataPath, "datapath.moveDate", "unknown unit %q", unit)
		}
		if ctxVal.IsDateTime() {
			return value.DateTime(moved), nil
		}
		return value.Date(moved), nil
	case "fmtDate":
		baseT, ok := dtparseFromV(ctxVal)
		if !ok {
			return value.None(), pkerr.New(pkerr.DateParse, "datapath.fmtDate")
		}
		layoutToken := ec.evalArg(args[0]).PlainString()
		info := dtparse.GetFormat(layoutToken)
		return value.Str(baseT.Format(info.Layout)), nil
	}

	return value.None(), pkerr.Newf(pkerr.VariableFuncNotSupported, "datapath.evalFunc", "function %q is not implemented", name)
}

// calendarDiff computes a whole-calendar-unit difference (to - from) on
// (year, month, day) components, matching moveDate/fmtDate's calendar-field
// orientation rather than an elapsed-seconds division.
func calendarDiff(kind string, from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	switch kind {
	case "yearDiff":
		return ty - fy
	case "monthDiff":
		return (ty-fy)*12 + int(tm) - int(fm)
	default: // dayDiff
		fromDay := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
		toDay := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
		return int(toDay.Sub(fromDay).Hours() / 24)
	}
}

// trimLastFuncSegment drops the trailing &old segment so the preceding
// path prefix can be re-evaluated against the previous snapshot.
func trimLastFuncSegment(segs []Segment) []Segment {
	if len(segs) == 0 {
		return segs
	}
	return segs[:len(segs)-1]
}
