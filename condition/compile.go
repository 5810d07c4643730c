package condition

import (
	"github.com/alfreddata/pipelinekernel/datapath"
	"github.com/alfreddata/pipelinekernel/pkerr"
)

// FactorResolver binds a Refer parameter's factor uuid to the compiled path
// it should read from the event scope, decoupling this package from schema
// so condition trees can compile against any source of factor identity.
type FactorResolver func(referID string) (*datapath.DataPath, *pkerr.Error)

// CompiledParameter is the executable form of a Parameter.
type CompiledParameter struct {
	Kind ParamKind

	ReferPath *datapath.DataPath // ParamRefer
	ConstPath *datapath.DataPath // ParamConstant

	ComputedOp ComputeOp
	Children   []*CompiledParameter
	Routes     []CompiledRoute

	BucketID         string
	BucketSegment    string
	HasBucketSegment bool

	TimeframeName string
}

// CompiledRoute is one compiled CaseThen branch.
type CompiledRoute struct {
	Condition *CompiledCondition // nil => default route
	Param     *CompiledParameter
}

// CompiledCondition is the executable form of a Condition.
type CompiledCondition struct {
	Kind ConditionKind

	Left  *CompiledParameter
	Op    CompareOp
	Right *CompiledParameter

	JointKind JointKind
	Filters   []*CompiledCondition
}

var unaryComputeOps = map[ComputeOp]bool{
	OpYearOf: true, OpHalfYearOf: true, OpQuarterOf: true, OpMonthOf: true,
	OpWeekOfYear: true, OpWeekOfMonth: true, OpDayOfMonth: true, OpDayOfWeek: true,
	OpRound: true, OpFloor: true, OpCeil: true, OpAbs: true,
}

var variadicComputeOps = map[ComputeOp]bool{
	OpAdd: true, OpSubtract: true, OpMultiply: true, OpDivide: true, OpModulus: true,
	OpMax: true, OpMin: true, OpInterpolate: true,
}

// CompileParameter compiles one raw Parameter, recursively.
func CompileParameter(p Parameter, resolve FactorResolver) (*CompiledParameter, *pkerr.Error) {
	switch p.Kind {
	case ParamRefer:
		path, err := resolve(p.ReferID)
		if err != nil {
			return nil, err
		}
		return &CompiledParameter{Kind: ParamRefer, ReferPath: path}, nil

	case ParamConstant:
		dp, perr := datapath.Parse(p.ConstantText)
		if perr != nil {
			return nil, perr
		}
		return &CompiledParameter{Kind: ParamConstant, ConstPath: dp}, nil

	case ParamComputed:
		return compileComputed(p, resolve)

	case ParamBucket:
		if p.BucketID == "" {
			return nil, pkerr.New(pkerr.ComputedParametersMissed, "condition.CompileParameter")
		}
		return &CompiledParameter{
			Kind: ParamBucket, BucketID: p.BucketID,
			BucketSegment: p.BucketSegment, HasBucketSegment: p.HasBucketSegment,
		}, nil

	case ParamTimeframe:
		return &CompiledParameter{Kind: ParamTimeframe, TimeframeName: p.TimeframeName}, nil

	default:
		return nil, pkerr.New(pkerr.ComputedParametersMissed, "condition.CompileParameter")
	}
}

func compileComputed(p Parameter, resolve FactorResolver) (*CompiledParameter, *pkerr.Error) {
	if p.ComputedOp == OpCaseThen {
		return compileCaseThen(p, resolve)
	}
	if unaryComputeOps[p.ComputedOp] {
		if len(p.Children) != 1 {
			return nil, pkerr.Newf(pkerr.ComputedParametersMissed, "condition.compileComputed", "%s takes exactly one operand", p.ComputedOp)
		}
	} else if variadicComputeOps[p.ComputedOp] {
		if len(p.Children) < 2 {
			return nil, pkerr.Newf(pkerr.ComputedParametersMissed, "condition.compileComputed", "%s takes two or more operands", p.ComputedOp)
		}
	} else {
		return nil, pkerr.Newf(pkerr.ComputedParametersMissed, "condition.compileComputed", "unknown computed op %q", p.ComputedOp)
	}

	children := make([]*CompiledParameter, len(p.Children))
	for i, c := range p.Children {
		cc, err := CompileParameter(c, resolve)
		if err != nil {
			return nil, err
		}
		children[i] = cc
	}
	return &CompiledParameter{Kind: ParamComputed, ComputedOp: p.ComputedOp, Children: children}, nil
}

// compileCaseThen validates at most one default route, that every route
// carries a parameter, and reorders the default (if any) to last.
func compileCaseThen(p Parameter, resolve FactorResolver) (*CompiledParameter, *pkerr.Error) {
	if len(p.Routes) == 0 {
		return nil, pkerr.New(pkerr.CaseThenRouteParameterMissed, "condition.compileCaseThen")
	}

	var conditional []CaseRoute
	var defaultRoute *CaseRoute
	for _, r := range p.Routes {
		r := r
		if r.Condition == nil {
			if defaultRoute != nil {
				return nil, pkerr.New(pkerr.CaseThenRouteParameterMissed, "condition.compileCaseThen")
			}
			defaultRoute = &r
			continue
		}
		conditional = append(conditional, r)
	}

	ordered := append([]CaseRoute{}, conditional...)
	if defaultRoute != nil {
		ordered = append(ordered, *defaultRoute)
	}

	routes := make([]CompiledRoute, len(ordered))
	for i, r := range ordered {
		var cc *CompiledCondition
		if r.Condition != nil {
			compiled, err := CompileCondition(*r.Condition, resolve)
			if err != nil {
				return nil, err
			}
			cc = compiled
		}
		param, err := CompileParameter(r.Param, resolve)
		if err != nil {
			return nil, err
		}
		routes[i] = CompiledRoute{Condition: cc, Param: param}
	}
	return &CompiledParameter{Kind: ParamComputed, ComputedOp: OpCaseThen, Routes: routes}, nil
}

var opsNeedingRight = map[CompareOp]bool{
	OpEquals: true, OpNotEquals: true, OpLess: true, OpLessEquals: true,
	OpMore: true, OpMoreEquals: true, OpIn: true, OpNotIn: true,
}

// CompileCondition compiles one raw Condition, recursively.
func CompileCondition(c Condition, resolve FactorResolver) (*CompiledCondition, *pkerr.Error) {
	switch c.Kind {
	case CondExpression:
		left, err := CompileParameter(c.Left, resolve)
		if err != nil {
			return nil, err
		}
		var right *CompiledParameter
		if c.Right != nil {
			right, err = CompileParameter(*c.Right, resolve)
			if err != nil {
				return nil, err
			}
		}
		if opsNeedingRight[c.Op] && right == nil {
			return nil, pkerr.Newf(pkerr.ConditionMissed, "condition.CompileCondition", "%s requires a right operand", c.Op)
		}
		return &CompiledCondition{Kind: CondExpression, Left: left, Op: c.Op, Right: right}, nil

	case CondJoint:
		if len(c.Filters) == 0 {
			return nil, pkerr.New(pkerr.ConditionMissed, "condition.CompileCondition")
		}
		filters := make([]*CompiledCondition, len(c.Filters))
		for i, f := range c.Filters {
			cf, err := CompileCondition(f, resolve)
			if err != nil {
				return nil, err
			}
			filters[i] = cf
		}
		return &CompiledCondition{Kind: CondJoint, JointKind: c.JointKind, Filters: filters}, nil

	default:
		return nil, pkerr.New(pkerr.ConditionMissed, "condition.CompileCondition")
	}
}
