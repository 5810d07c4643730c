package value

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alfreddata/pipelinekernel/pkerr"
)

func mustDate(y int, m time.Month, d int) V {
	return Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func mustDateTime(y int, m time.Month, d, h, mi, se int) V {
	return DateTime(time.Date(y, m, d, h, mi, se, 0, time.UTC))
}

func TestIsSameAsCrossType(t *testing.T) {
	if !IsSameAs(Str("2024-01-02"), mustDateTime(2024, 1, 2, 10, 0, 0)) {
		t.Error("date-like string should equal datetime by date part")
	}
	if !IsSameAs(Str("1"), Bool(true)) {
		t.Error(`"1" should equal true`)
	}
	if IsSameAs(Str("2"), Bool(true)) {
		t.Error(`"2" should not equal true`)
	}
	if !IsSameAs(None(), Str("")) {
		t.Error("none should equal empty string")
	}
	if IsSameAs(List(nil), List(nil)) {
		t.Error("lists should never be same-as, even to themselves")
	}
}

func TestIsSameAsReflexive(t *testing.T) {
	vals := []V{None(), Str("x"), Num(decimal.NewFromInt(3)), Bool(true), mustDate(2024, 1, 1)}
	for _, v := range vals {
		if !IsSameAs(v, v) {
			t.Errorf("%v should be same-as itself", v)
		}
	}
}

func TestCompareOrdering(t *testing.T) {
	a := Num(decimal.NewFromInt(1))
	b := Num(decimal.NewFromInt(2))
	less, err := IsLess(a, b)
	if err != nil || !less {
		t.Fatalf("1 < 2 expected, got %v err=%v", less, err)
	}
	if _, err := Compare(List(nil), a); !pkerr.Is(err, pkerr.ValuesNotComparable) {
		t.Error("list comparisons must error")
	}
	c, err := Compare(None(), a)
	if err != nil || c != -1 {
		t.Errorf("none should sort below num, got %d err=%v", c, err)
	}
}

func TestIsInList(t *testing.T) {
	list := List([]V{Str("a"), Str("b")})
	ok, err := IsIn(Str("a"), list)
	if err != nil || !ok {
		t.Fatalf("expected a in [a,b]")
	}
	ok, err = IsIn(Str("c"), Str("a,b,c"))
	if err != nil || !ok {
		t.Fatalf("expected c in comma list")
	}
}

func TestMinMixedDateDatetimeDowngrades(t *testing.T) {
	list := List([]V{mustDate(2024, 1, 10), mustDateTime(2024, 1, 2, 1, 2, 3)})
	got, err := Min(list)
	if err != nil {
		t.Fatalf("Min: %v", err)
	}
	if got.Kind() != KindDate {
		t.Fatalf("expected downgrade to Date, got %v", got.Kind())
	}
	tm, _ := got.AsTime()
	if tm.Day() != 2 {
		t.Errorf("expected day 2, got %d", tm.Day())
	}
}

func TestMinEmptyIsNone(t *testing.T) {
	got, err := Min(List(nil))
	if err != nil || got.Kind() != KindNone {
		t.Fatalf("expected none, got %v err=%v", got, err)
	}
}

func TestJoinIgnoresNoneRejectsNested(t *testing.T) {
	got, err := Join(List([]V{Str("a"), None(), Str("b")}), "-")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if s, _ := got.AsStr(); s != "a-b" {
		t.Errorf("got %q, want a-b", s)
	}
	if _, err := Join(List([]V{List(nil)}), "-"); err == nil {
		t.Error("expected error for nested list")
	}
}

func TestDistinctKeepsOneNone(t *testing.T) {
	got := Distinct(List([]V{Str("a"), None(), Str("a"), None()}))
	list, _ := got.AsList()
	if len(list) != 2 {
		t.Fatalf("expected 2 distinct elements, got %d", len(list))
	}
}

func TestSumAndAvgIgnoreEmpty(t *testing.T) {
	list := List([]V{Num(decimal.NewFromInt(1)), Str(""), None(), Num(decimal.NewFromInt(3))})
	sum := Sum(list)
	if d, _ := sum.AsDecimal(); !d.Equal(decimal.NewFromInt(4)) {
		t.Errorf("Sum = %v, want 4", d)
	}
	avg := Avg(list)
	if d, _ := avg.AsDecimal(); !d.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Avg = %v, want 2", d)
	}
}
