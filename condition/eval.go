package condition

import (
	"github.com/shopspring/decimal"

	"github.com/alfreddata/pipelinekernel/datapath"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/value"
)

// BucketResolver assigns an entity to a traffic bucket/segment. Kept
// pluggable since the assignment algorithm (consistent hashing, weighted
// rollout) belongs to the collaborator that owns experiment configuration,
// not to this compiler.
type BucketResolver interface {
	Bucket(id, segment string, hasSegment bool, ec *datapath.EvalContext) (value.V, *pkerr.Error)
}

// TimeframeResolver resolves a named processing-time window (e.g. the
// current hour or day bucket) against the evaluation clock.
type TimeframeResolver interface {
	Timeframe(name string, ec *datapath.EvalContext) (value.V, *pkerr.Error)
}

// Scope bundles everything a compiled tree needs to evaluate: the event
// context datapath already understands, plus the two collaborator
// resolvers for Bucket/Timeframe parameters (nil is fine if the tree never
// references them).
type Scope struct {
	EC        *datapath.EvalContext
	Buckets   BucketResolver
	Timeframe TimeframeResolver
}

// EvaluateParameter evaluates a compiled parameter against scope σ.
func EvaluateParameter(p *CompiledParameter, sc *Scope) (value.V, *pkerr.Error) {
	switch p.Kind {
	case ParamRefer:
		return sc.EC.Evaluate(p.ReferPath)
	case ParamConstant:
		return sc.EC.EvaluateLiteral(p.ConstPath)
	case ParamComputed:
		return evaluateComputed(p, sc)
	case ParamBucket:
		if sc.Buckets == nil {
			return value.None(), pkerr.New(pkerr.VariableFuncNotSupported, "condition.EvaluateParameter")
		}
		return sc.Buckets.Bucket(p.BucketID, p.BucketSegment, p.HasBucketSegment, sc.EC)
	case ParamTimeframe:
		if sc.Timeframe == nil {
			return value.None(), pkerr.New(pkerr.VariableFuncNotSupported, "condition.EvaluateParameter")
		}
		return sc.Timeframe.Timeframe(p.TimeframeName, sc.EC)
	default:
		return value.None(), pkerr.New(pkerr.ComputedParametersMissed, "condition.EvaluateParameter")
	}
}

func evaluateComputed(p *CompiledParameter, sc *Scope) (value.V, *pkerr.Error) {
	if p.ComputedOp == OpCaseThen {
		return evaluateCaseThen(p, sc)
	}

	operands := make([]value.V, len(p.Children))
	for i, c := range p.Children {
		v, err := EvaluateParameter(c, sc)
		if err != nil {
			return value.None(), err
		}
		operands[i] = v
	}

	if unaryComputeOps[p.ComputedOp] {
		return evaluateUnary(p.ComputedOp, operands[0])
	}
	return evaluateVariadic(p.ComputedOp, operands)
}

func evaluateCaseThen(p *CompiledParameter, sc *Scope) (value.V, *pkerr.Error) {
	for _, route := range p.Routes {
		if route.Condition == nil {
			return EvaluateParameter(route.Param, sc)
		}
		ok, err := EvaluateCondition(route.Condition, sc)
		if err != nil {
			return value.None(), err
		}
		if ok {
			return EvaluateParameter(route.Param, sc)
		}
	}
	return value.None(), nil
}

func evaluateUnary(op ComputeOp, v value.V) (value.V, *pkerr.Error) {
	switch op {
	case OpYearOf, OpHalfYearOf, OpQuarterOf, OpMonthOf, OpWeekOfYear, OpWeekOfMonth, OpDayOfMonth, OpDayOfWeek:
		return evaluateDatePart(op, v)
	case OpRound, OpFloor, OpCeil, OpAbs:
		return evaluateRounding(op, v)
	default:
		return value.None(), pkerr.Newf(pkerr.ComputedParametersMissed, "condition.evaluateUnary", "unsupported op %q", op)
	}
}

func evaluateRounding(op ComputeOp, v value.V) (value.V, *pkerr.Error) {
	d, ok := v.TryDecimal()
	if !ok {
		return value.None(), pkerr.New(pkerr.DecimalParse, "condition.evaluateRounding")
	}
	switch op {
	case OpRound:
		return value.Num(d.Round(0)), nil
	case OpFloor:
		return value.Num(d.Floor()), nil
	case OpCeil:
		return value.Num(d.Ceil()), nil
	case OpAbs:
		return value.Num(d.Abs()), nil
	}
	return value.None(), nil
}

func evaluateVariadic(op ComputeOp, operands []value.V) (value.V, *pkerr.Error) {
	switch op {
	case OpMax:
		return value.Max(value.List(operands))
	case OpMin:
		return value.Min(value.List(operands))
	case OpInterpolate:
		return evaluateInterpolate(operands)
	}

	decimals := make([]decimal.Decimal, len(operands))
	for i, v := range operands {
		d, ok := v.TryDecimal()
		if !ok {
			return value.None(), pkerr.New(pkerr.DecimalParse, "condition.evaluateVariadic")
		}
		decimals[i] = d
	}

	acc := decimals[0]
	for _, d := range decimals[1:] {
		switch op {
		case OpAdd:
			acc = acc.Add(d)
		case OpSubtract:
			acc = acc.Sub(d)
		case OpMultiply:
			acc = acc.Mul(d)
		case OpDivide:
			if d.IsZero() {
				return value.None(), pkerr.New(pkerr.DecimalParse, "condition.evaluateVariadic")
			}
			acc = acc.Div(d)
		case OpModulus:
			if d.IsZero() {
				return value.None(), pkerr.New(pkerr.DecimalParse, "condition.evaluateVariadic")
			}
			acc = acc.Mod(d)
		}
	}
	return value.Num(acc), nil
}

// evaluateInterpolate linearly interpolates the first operand (a fraction
// in [0,1], or any ratio) between the second (low) and third (high) bound.
func evaluateInterpolate(operands []value.V) (value.V, *pkerr.Error) {
	if len(operands) < 3 {
		return value.None(), pkerr.New(pkerr.ComputedParametersMissed, "condition.evaluateInterpolate")
	}
	t, ok1 := operands[0].TryDecimal()
	lo, ok2 := operands[1].TryDecimal()
	hi, ok3 := operands[2].TryDecimal()
	if !ok1 || !ok2 || !ok3 {
		return value.None(), pkerr.New(pkerr.DecimalParse, "condition.evaluateInterpolate")
	}
	result := lo.Add(hi.Sub(lo).Mul(t))
	return value.Num(result), nil
}

func evaluateDatePart(op ComputeOp, v value.V) (value.V, *pkerr.Error) {
	t, ok := v.AsTime()
	if !ok {
		return value.None(), pkerr.New(pkerr.ValuesNotComparable, "condition.evaluateDatePart")
	}
	switch op {
	case OpYearOf:
		return value.Num(decimal.NewFromInt(int64(t.Year()))), nil
	case OpHalfYearOf:
		half := 1
		if t.Month() > 6 {
			half = 2
		}
		return value.Num(decimal.NewFromInt(int64(half))), nil
	case OpQuarterOf:
		q := (int(t.Month())-1)/3 + 1
		return value.Num(decimal.NewFromInt(int64(q))), nil
	case OpMonthOf:
		return value.Num(decimal.NewFromInt(int64(t.Month()))), nil
	case OpWeekOfYear:
		_, week := t.ISOWeek()
		return value.Num(decimal.NewFromInt(int64(week))), nil
	case OpWeekOfMonth:
		firstOfMonth := t.AddDate(0, 0, -(t.Day() - 1))
		offset := (int(firstOfMonth.Weekday()) + t.Day() - 1) / 7
		return value.Num(decimal.NewFromInt(int64(offset + 1))), nil
	case OpDayOfMonth:
		return value.Num(decimal.NewFromInt(int64(t.Day()))), nil
	case OpDayOfWeek:
		return value.Num(decimal.NewFromInt(int64(t.Weekday()))), nil
	}
	return value.None(), nil
}

// EvaluateCondition evaluates a compiled condition (Expression or Joint)
// against scope σ.
func EvaluateCondition(c *CompiledCondition, sc *Scope) (bool, *pkerr.Error) {
	if c.Kind == CondJoint {
		return evaluateJoint(c, sc)
	}

	left, err := EvaluateParameter(c.Left, sc)
	if err != nil {
		return false, err
	}

	switch c.Op {
	case OpEmpty:
		return left.IsEmpty(), nil
	case OpNotEmpty:
		return left.IsNotEmpty(), nil
	}

	right, err := EvaluateParameter(c.Right, sc)
	if err != nil {
		return false, err
	}

	switch c.Op {
	case OpEquals:
		return value.IsSameAs(left, right), nil
	case OpNotEquals:
		return value.IsNotSameAs(left, right), nil
	case OpLess:
		return value.IsLess(left, right)
	case OpLessEquals:
		return value.IsLessEq(left, right)
	case OpMore:
		return value.IsMore(left, right)
	case OpMoreEquals:
		return value.IsMoreEq(left, right)
	case OpIn:
		return value.IsIn(left, right)
	case OpNotIn:
		return value.IsNotIn(left, right)
	default:
		return false, pkerr.Newf(pkerr.ComputedParametersMissed, "condition.EvaluateCondition", "unknown compare op %q", c.Op)
	}
}

func evaluateJoint(c *CompiledCondition, sc *Scope) (bool, *pkerr.Error) {
	switch c.JointKind {
	case JointAnd:
		for _, f := range c.Filters {
			ok, err := EvaluateCondition(f, sc)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case JointOr:
		for _, f := range c.Filters {
			ok, err := EvaluateCondition(f, sc)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, pkerr.Newf(pkerr.ComputedParametersMissed, "condition.evaluateJoint", "unknown joint kind %q", c.JointKind)
	}
}
