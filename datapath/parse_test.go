package datapath

import (
	"testing"

	"github.com/alfreddata/pipelinekernel/pkerr"
)

func TestParsePlainPath(t *testing.T) {
	dp, err := Parse("user.name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dp.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(dp.Segments))
	}
	name, ok := dp.Segments[0].PlainName()
	if !ok || name != "user" {
		t.Errorf("segment 0 = %q, %v", name, ok)
	}
}

func TestParseFuncSegment(t *testing.T) {
	dp, err := Parse(`user.tags.&join(\,)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := dp.Segments[len(dp.Segments)-1]
	if last.Kind != SegFunc || last.FuncName != "join" {
		t.Fatalf("expected join func segment, got %+v", last)
	}
	if len(last.Args) != 1 {
		t.Fatalf("expected 1 arg, got %d", len(last.Args))
	}
}

func TestParseLiteralConcat(t *testing.T) {
	dp, err := Parse("user.{name}_{id}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seg := dp.Segments[1]
	if seg.Kind != SegPlain {
		t.Fatalf("expected plain concat segment, got %+v", seg)
	}
	if len(seg.Pieces) != 5 {
		t.Fatalf("expected 5 pieces (literal \"\", sub, literal, sub, literal \"\"), got %d", len(seg.Pieces))
	}
	if seg.Pieces[1].Sub == nil {
		t.Error("piece 1 should be a sub-path")
	}
	if seg.Pieces[2].Sub != nil || seg.Pieces[2].Literal != "_" {
		t.Errorf("piece 2 should be literal '_', got %+v", seg.Pieces[2])
	}
	if seg.Pieces[3].Sub == nil {
		t.Error("piece 3 should be a sub-path")
	}
}

func TestParseFuncRequiresContext(t *testing.T) {
	_, err := Parse(`&join(\,)`)
	if err == nil {
		t.Fatal("expected error: join requires a left-hand context")
	}
	if err.Code != pkerr.IncorrectDataPath {
		t.Errorf("expected IncorrectDataPath, got %s", err.Code)
	}
}

func TestParseFuncRejectsContextWhenNotAllowed(t *testing.T) {
	_, err := Parse("user.&now()")
	if err == nil {
		t.Fatal("expected error: now() does not accept a left-hand context")
	}
}

func TestParseUnmatchedBracket(t *testing.T) {
	if _, err := Parse("user.{name"); err == nil {
		t.Fatal("expected unmatched '{' error")
	}
	if _, err := Parse("user.name}"); err == nil {
		t.Fatal("expected unmatched '}' error")
	}
}

func TestParseBlankSegment(t *testing.T) {
	if _, err := Parse("user..name"); err == nil {
		t.Fatal("expected blank-segment error")
	}
}

func TestParseUnknownFunction(t *testing.T) {
	_, err := Parse("user.&bogus()")
	if err == nil {
		t.Fatal("expected unknown-function error")
	}
}

func TestParseEscapedStructuralChar(t *testing.T) {
	dp, err := Parse(`user.na\.me`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dp.Segments) != 2 {
		t.Fatalf("escaped dot should not split the segment, got %d segments", len(dp.Segments))
	}
	name, ok := dp.Segments[1].PlainName()
	if !ok || name != "na.me" {
		t.Errorf("expected literal 'na.me', got %q", name)
	}
}

func TestParseFuncArgCount(t *testing.T) {
	if _, err := Parse("user.&strip(x)"); err == nil {
		t.Fatal("expected too-many-args error for strip()")
	}
	if _, err := Parse("user.&replace(a)"); err == nil {
		t.Fatal("expected too-few-args error for replace(old,new)")
	}
}
