package condition

import (
	"testing"

	"github.com/alfreddata/pipelinekernel/datapath"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/value"
)

// testResolver treats a Refer's uuid as the factor's dotted path text
// directly, which is all these tests need from factor resolution.
func testResolver(id string) (*datapath.DataPath, *pkerr.Error) {
	return datapath.Parse(id)
}

func scopeWith(current value.V) *Scope {
	return &Scope{EC: datapath.NewEvalContext(current, value.None())}
}

func fieldRef(name string) Parameter {
	return Parameter{Kind: ParamRefer, ReferID: name}
}

func literal(text string) Parameter {
	return Parameter{Kind: ParamConstant, ConstantText: text}
}

func TestExpressionEqualsOnEventField(t *testing.T) {
	m := value.Map(map[string]value.V{"status": value.Str("ok")})
	right := literal("ok")
	raw := Condition{Kind: CondExpression, Left: fieldRef("status"), Op: OpEquals, Right: &right}
	compiled, err := CompileCondition(raw, testResolver)
	if err != nil {
		t.Fatalf("CompileCondition: %v", err)
	}
	ok, cerr := EvaluateCondition(compiled, scopeWith(m))
	if cerr != nil {
		t.Fatalf("EvaluateCondition: %v", cerr)
	}
	if !ok {
		t.Error("expected status == \"ok\" to be true")
	}
}

func TestExpressionNotEquals(t *testing.T) {
	m := value.Map(map[string]value.V{"status": value.Str("fail")})
	right := literal("ok")
	raw := Condition{Kind: CondExpression, Left: fieldRef("status"), Op: OpNotEquals, Right: &right}
	compiled, err := CompileCondition(raw, testResolver)
	if err != nil {
		t.Fatalf("CompileCondition: %v", err)
	}
	ok, cerr := EvaluateCondition(compiled, scopeWith(m))
	if cerr != nil {
		t.Fatalf("EvaluateCondition: %v", cerr)
	}
	if !ok {
		t.Error("expected status != \"ok\" to be true")
	}
}

func TestExpressionEmpty(t *testing.T) {
	m := value.Map(map[string]value.V{"status": value.None()})
	raw := Condition{Kind: CondExpression, Left: fieldRef("status"), Op: OpEmpty}
	compiled, err := CompileCondition(raw, testResolver)
	if err != nil {
		t.Fatalf("CompileCondition: %v", err)
	}
	ok, cerr := EvaluateCondition(compiled, scopeWith(m))
	if cerr != nil {
		t.Fatalf("EvaluateCondition: %v", cerr)
	}
	if !ok {
		t.Error("expected empty status to be true")
	}
}

func TestJointAndShortCircuits(t *testing.T) {
	m := value.Map(map[string]value.V{"a": value.Str("1"), "b": value.Str("2")})
	one := literal("1")
	nine := literal("9")
	raw := Condition{
		Kind:      CondJoint,
		JointKind: JointAnd,
		Filters: []Condition{
			{Kind: CondExpression, Left: fieldRef("a"), Op: OpEquals, Right: &one},
			{Kind: CondExpression, Left: fieldRef("b"), Op: OpEquals, Right: &nine},
		},
	}
	compiled, err := CompileCondition(raw, testResolver)
	if err != nil {
		t.Fatalf("CompileCondition: %v", err)
	}
	ok, cerr := EvaluateCondition(compiled, scopeWith(m))
	if cerr != nil {
		t.Fatalf("EvaluateCondition: %v", cerr)
	}
	if ok {
		t.Error("expected AND to be false when second filter fails")
	}
}

func TestJointOrShortCircuits(t *testing.T) {
	m := value.Map(map[string]value.V{"a": value.Str("1"), "b": value.Str("2")})
	one := literal("1")
	nine := literal("9")
	raw := Condition{
		Kind:      CondJoint,
		JointKind: JointOr,
		Filters: []Condition{
			{Kind: CondExpression, Left: fieldRef("a"), Op: OpEquals, Right: &one},
			{Kind: CondExpression, Left: fieldRef("b"), Op: OpEquals, Right: &nine},
		},
	}
	compiled, err := CompileCondition(raw, testResolver)
	if err != nil {
		t.Fatalf("CompileCondition: %v", err)
	}
	ok, cerr := EvaluateCondition(compiled, scopeWith(m))
	if cerr != nil {
		t.Fatalf("EvaluateCondition: %v", cerr)
	}
	if !ok {
		t.Error("expected OR to be true when the first filter matches")
	}
}

func TestCaseThenReordersDefaultLast(t *testing.T) {
	always := literal("always")
	raw := Parameter{
		Kind:       ParamComputed,
		ComputedOp: OpCaseThen,
		Routes: []CaseRoute{
			{Condition: nil, Param: literal("default")},
			{
				Condition: &Condition{Kind: CondExpression, Left: fieldRef("flag"), Op: OpEquals, Right: &always},
				Param:     literal("matched"),
			},
		},
	}
	compiled, err := CompileParameter(raw, testResolver)
	if err != nil {
		t.Fatalf("CompileParameter: %v", err)
	}
	if len(compiled.Routes) != 2 || compiled.Routes[len(compiled.Routes)-1].Condition != nil {
		t.Fatalf("expected default route moved to last, got %+v", compiled.Routes)
	}

	m := value.Map(map[string]value.V{"flag": value.Str("always")})
	v, eerr := EvaluateParameter(compiled, scopeWith(m))
	if eerr != nil {
		t.Fatalf("EvaluateParameter: %v", eerr)
	}
	s, _ := v.AsStr()
	if s != "matched" {
		t.Errorf("expected the conditional route to win before the default, got %q", s)
	}
}

func TestCaseThenFallsThroughToDefault(t *testing.T) {
	always := literal("always")
	raw := Parameter{
		Kind:       ParamComputed,
		ComputedOp: OpCaseThen,
		Routes: []CaseRoute{
			{
				Condition: &Condition{Kind: CondExpression, Left: fieldRef("flag"), Op: OpEquals, Right: &always},
				Param:     literal("matched"),
			},
			{Condition: nil, Param: literal("default")},
		},
	}
	compiled, err := CompileParameter(raw, testResolver)
	if err != nil {
		t.Fatalf("CompileParameter: %v", err)
	}

	m := value.Map(map[string]value.V{"flag": value.Str("never")})
	v, eerr := EvaluateParameter(compiled, scopeWith(m))
	if eerr != nil {
		t.Fatalf("EvaluateParameter: %v", eerr)
	}
	s, _ := v.AsStr()
	if s != "default" {
		t.Errorf("expected the default route, got %q", s)
	}
}

func TestCaseThenRejectsTwoDefaults(t *testing.T) {
	raw := Parameter{
		Kind:       ParamComputed,
		ComputedOp: OpCaseThen,
		Routes: []CaseRoute{
			{Condition: nil, Param: literal("a")},
			{Condition: nil, Param: literal("b")},
		},
	}
	if _, err := CompileParameter(raw, testResolver); err == nil {
		t.Fatal("expected error for two default routes")
	}
}

func TestComputedArityValidation(t *testing.T) {
	oneChild := Parameter{Kind: ParamComputed, ComputedOp: OpAdd, Children: []Parameter{fieldRef("a")}}
	if _, err := CompileParameter(oneChild, testResolver); err == nil {
		t.Error("expected arity error for Add with one operand")
	}

	twoChildren := Parameter{Kind: ParamComputed, ComputedOp: OpYearOf, Children: []Parameter{fieldRef("a"), fieldRef("b")}}
	if _, err := CompileParameter(twoChildren, testResolver); err == nil {
		t.Error("expected arity error for YearOf with two operands")
	}
}

func TestComputedArithmetic(t *testing.T) {
	raw := Parameter{
		Kind:       ParamComputed,
		ComputedOp: OpAdd,
		Children:   []Parameter{literal("2"), literal("3")},
	}
	compiled, err := CompileParameter(raw, testResolver)
	if err != nil {
		t.Fatalf("CompileParameter: %v", err)
	}
	v, eerr := EvaluateParameter(compiled, scopeWith(value.None()))
	if eerr != nil {
		t.Fatalf("EvaluateParameter: %v", eerr)
	}
	if s := v.PlainString(); s != "5" {
		t.Errorf("got %q, want \"5\"", s)
	}
}

func TestComputedMaxAcrossFields(t *testing.T) {
	m := value.Map(map[string]value.V{"a": value.Str("3"), "b": value.Str("7")})
	raw := Parameter{
		Kind:       ParamComputed,
		ComputedOp: OpMax,
		Children:   []Parameter{fieldRef("a"), fieldRef("b")},
	}
	compiled, err := CompileParameter(raw, testResolver)
	if err != nil {
		t.Fatalf("CompileParameter: %v", err)
	}
	v, eerr := EvaluateParameter(compiled, scopeWith(m))
	if eerr != nil {
		t.Fatalf("EvaluateParameter: %v", eerr)
	}
	if s := v.PlainString(); s != "7" {
		t.Errorf("got %q, want \"7\"", s)
	}
}
