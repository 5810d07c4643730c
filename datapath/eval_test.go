package datapath

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alfreddata/pipelinekernel/value"
)

func mapEvent(m map[string]value.V) value.V { return value.Map(m) }

func TestEvaluatePlainPath(t *testing.T) {
	dp, err := Parse("user.name")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := NewEvalContext(mapEvent(map[string]value.V{
		"user": mapEvent(map[string]value.V{"name": value.Str("ada")}),
	}), value.None())
	v, everr := ev.Evaluate(dp)
	if everr != nil {
		t.Fatalf("evaluate: %v", everr)
	}
	if s, ok := v.AsStr(); !ok || s != "ada" {
		t.Errorf("got %v", v)
	}
}

// TestEvaluateListFlatMap reproduces the flat-map scenario: a.b over
// [{b:1}, {b:[2,3]}, {c:9}, None], once with b plain and once list-typed.
func TestEvaluateListFlatMap(t *testing.T) {
	event := mapEvent(map[string]value.V{
		"a": value.List([]value.V{
			mapEvent(map[string]value.V{"b": value.Num(decimal.NewFromInt(1))}),
			mapEvent(map[string]value.V{"b": value.List([]value.V{
				value.Num(decimal.NewFromInt(2)), value.Num(decimal.NewFromInt(3)),
			})}),
			mapEvent(map[string]value.V{"c": value.Num(decimal.NewFromInt(9))}),
			value.None(),
		}),
	})

	dp := &DataPath{
		Text: "a.b",
		Segments: []Segment{
			{Kind: SegPlain, Pieces: []ConcatPiece{{Literal: "a"}}},
			{Kind: SegPlain, Pieces: []ConcatPiece{{Literal: "b"}}, IsList: false},
		},
	}
	ev := NewEvalContext(event, value.None())
	v, err := ev.Evaluate(dp)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	list, ok := v.AsList()
	if !ok || len(list) != 4 {
		t.Fatalf("expected 4 elements, got %v", v)
	}
	if !list[3].IsNone() {
		t.Errorf("expected trailing None to carry through, got %v", list[3])
	}

	dp.Segments[1].IsList = true
	v2, err := ev.Evaluate(dp)
	if err != nil {
		t.Fatalf("evaluate (list-typed): %v", err)
	}
	list2, ok := v2.AsList()
	if !ok || len(list2) != 3 {
		t.Fatalf("expected 3 elements when list-typed, got %v", v2)
	}
}

// TestEvaluateLiteralConcat exercises the braces-are-subpaths convention
// this implementation settled on (DESIGN.md: literal-concat ambiguity).
func TestEvaluateLiteralConcat(t *testing.T) {
	dp, err := Parse("user.{name}_{id}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := NewEvalContext(mapEvent(map[string]value.V{
		"user": mapEvent(map[string]value.V{
			"name": value.Str("a"),
			"id":   value.Str("7"),
		}),
	}), value.None())
	v, everr := ev.Evaluate(dp)
	if everr != nil {
		t.Fatalf("evaluate: %v", everr)
	}
	if s, ok := v.AsStr(); !ok || s != "a_7" {
		t.Errorf("expected \"a_7\", got %v", v)
	}

	ev2 := NewEvalContext(mapEvent(map[string]value.V{
		"user": mapEvent(map[string]value.V{"name": value.Str("a")}),
	}), value.None())
	v2, everr2 := ev2.Evaluate(dp)
	if everr2 != nil {
		t.Fatalf("evaluate: %v", everr2)
	}
	if s, ok := v2.AsStr(); !ok || s != "a_" {
		t.Errorf("expected \"a_\", got %v", v2)
	}
}

func TestEvaluateNextSeqPerPath(t *testing.T) {
	dp, err := Parse("&nextSeq()")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	other, err := Parse("&nextSeq().&cur()")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := NewEvalContext(value.None(), value.None())
	v1, _ := ev.Evaluate(dp)
	v2, _ := ev.Evaluate(dp)
	d1, _ := v1.TryDecimal()
	d2, _ := v2.TryDecimal()
	if !d2.Equal(d1.Add(decimal.NewFromInt(1))) {
		t.Errorf("expected sequential counts, got %v then %v", d1, d2)
	}
	v3, _ := ev.Evaluate(other)
	d3, _ := v3.TryDecimal()
	if !d3.Equal(decimal.NewFromInt(1)) {
		t.Errorf("distinct path text should restart its own counter, got %v", d3)
	}
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func TestEvaluateNow(t *testing.T) {
	dp, err := Parse("&now()")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	ev := NewEvalContext(value.None(), value.None())
	ev.Clock = fixedClock{want}
	v, everr := ev.Evaluate(dp)
	if everr != nil {
		t.Fatalf("evaluate: %v", everr)
	}
	got, ok := v.AsTime()
	if !ok || !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEvaluateCurAndOld(t *testing.T) {
	dp, err := Parse("user.score.&cur()")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	oldDp, err := Parse("user.score.&old()")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	current := mapEvent(map[string]value.V{
		"user": mapEvent(map[string]value.V{"score": value.Num(decimal.NewFromInt(10))}),
	})
	previous := mapEvent(map[string]value.V{
		"user": mapEvent(map[string]value.V{"score": value.Num(decimal.NewFromInt(7))}),
	})
	ev := NewEvalContext(current, previous)

	v, everr := ev.Evaluate(dp)
	if everr != nil {
		t.Fatalf("evaluate cur: %v", everr)
	}
	d, _ := v.TryDecimal()
	if !d.Equal(decimal.NewFromInt(10)) {
		t.Errorf("cur() should be 10, got %v", d)
	}

	ov, overr := ev.Evaluate(oldDp)
	if overr != nil {
		t.Fatalf("evaluate old: %v", overr)
	}
	od, _ := ov.TryDecimal()
	if !od.Equal(decimal.NewFromInt(7)) {
		t.Errorf("old() should be 7, got %v", od)
	}
}

func TestEvaluateStringFuncs(t *testing.T) {
	dp, err := Parse("name.&upper()")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := NewEvalContext(mapEvent(map[string]value.V{"name": value.Str("ada")}), value.None())
	v, everr := ev.Evaluate(dp)
	if everr != nil {
		t.Fatalf("evaluate: %v", everr)
	}
	if s, _ := v.AsStr(); s != "ADA" {
		t.Errorf("expected ADA, got %q", s)
	}
}

func TestEvaluateMoveDate(t *testing.T) {
	dp, err := Parse("created.&moveDate(3,day)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := NewEvalContext(mapEvent(map[string]value.V{
		"created": value.Date(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	}), value.None())
	v, everr := ev.Evaluate(dp)
	if everr != nil {
		t.Fatalf("evaluate: %v", everr)
	}
	tm, ok := v.AsTime()
	if !ok || tm.Day() != 4 {
		t.Errorf("expected Jan 4, got %v", tm)
	}
}
