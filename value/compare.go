package value

import (
	"strings"

	"github.com/alfreddata/pipelinekernel/dtparse"
	"github.com/alfreddata/pipelinekernel/pkerr"
)

// IsSameAs implements the loose, commutative equality of the value algebra,
// applied in the documented rule order. List and Map are never equal to
// anything, including themselves.
func IsSameAs(a, b V) bool {
	if a.kind == KindList || a.kind == KindMap || b.kind == KindList || b.kind == KindMap {
		return false
	}

	// rule 1: both none, or none vs empty string.
	aNoneLike := a.kind == KindNone || (a.kind == KindStr && a.str == "")
	bNoneLike := b.kind == KindNone || (b.kind == KindStr && b.str == "")
	if a.kind == KindNone && b.kind == KindNone {
		return true
	}
	if (a.kind == KindNone && bNoneLike) || (b.kind == KindNone && aNoneLike) {
		return true
	}

	// normalize ordering so we only write each mixed-type rule once.
	for _, pair := range [2][2]V{{a, b}, {b, a}} {
		x, y := pair[0], pair[1]

		// rule 2: two strings.
		if x.kind == KindStr && y.kind == KindStr {
			return x.str == y.str
		}
		// rule 3: str vs bool.
		if x.kind == KindStr && y.kind == KindBool {
			s := strings.ToLower(strings.TrimSpace(x.str))
			if truthyStrings[s] {
				return y.b == true
			}
			if falsyStrings[s] {
				return y.b == false
			}
			return false
		}
		// rule 4: str vs num.
		if x.kind == KindStr && y.kind == KindNum {
			d, ok := x.TryDecimal()
			return ok && d.Equal(y.num)
		}
		// rule 5: str vs date/datetime.
		if x.kind == KindStr && (y.kind == KindDate || y.kind == KindDateTime) {
			t, err := dtparse.ParseLoose(x.str)
			if err != nil {
				return false
			}
			return t.Year() == y.t.Year() && t.Month() == y.t.Month() && t.Day() == y.t.Day()
		}
		// rule 6: str vs time.
		if x.kind == KindStr && y.kind == KindTime {
			t, err := dtparse.ParseTime(x.str)
			if err != nil {
				return false
			}
			return t.Hour() == y.t.Hour() && t.Minute() == y.t.Minute() && t.Second() == y.t.Second()
		}
		// rule 7: num vs bool, 1<->true, 0<->false.
		if x.kind == KindNum && y.kind == KindBool {
			if x.num.IsZero() {
				return !y.b
			}
			if x.num.Equal(decimalOne) {
				return y.b
			}
			return false
		}
	}

	// rule 8: datetime/datetime or datetime/date, date-part only.
	if (a.kind == KindDateTime || a.kind == KindDate) && (b.kind == KindDateTime || b.kind == KindDate) {
		return a.t.Year() == b.t.Year() && a.t.Month() == b.t.Month() && a.t.Day() == b.t.Day()
	}
	if a.kind == KindTime && b.kind == KindTime {
		return a.t.Equal(b.t)
	}
	if a.kind == KindBool && b.kind == KindBool {
		return a.b == b.b
	}
	if a.kind == KindNum && b.kind == KindNum {
		return a.num.Equal(b.num)
	}

	// rule 9: anything else (incompatible kinds) is not equal.
	return false
}

func IsNotSameAs(a, b V) bool { return !IsSameAs(a, b) }

// Compare returns -1, 0, 1 for a<b, a==b, a>b, per the value algebra's
// ordering matrix: only Num, Date, DateTime (date-part), Time, and None
// participate; None sorts below every other orderable kind but is not
// comparable to another None. Unsupported pairs return ValuesNotComparable.
func Compare(a, b V) (int, *pkerr.Error) {
	if a.kind == KindList || a.kind == KindMap || b.kind == KindList || b.kind == KindMap {
		return 0, pkerr.New(pkerr.ValuesNotComparable, "value.Compare")
	}
	if a.kind == KindNone && b.kind == KindNone {
		return 0, pkerr.New(pkerr.ValuesNotComparable, "value.Compare")
	}
	if a.kind == KindNone {
		switch b.kind {
		case KindNum, KindDate, KindDateTime, KindTime:
			return -1, nil
		default:
			return 0, pkerr.New(pkerr.ValuesNotComparable, "value.Compare")
		}
	}
	if b.kind == KindNone {
		switch a.kind {
		case KindNum, KindDate, KindDateTime, KindTime:
			return 1, nil
		default:
			return 0, pkerr.New(pkerr.ValuesNotComparable, "value.Compare")
		}
	}

	switch {
	case a.kind == KindNum && b.kind == KindNum:
		return a.num.Cmp(b.num), nil
	case a.kind == KindTime && b.kind == KindTime:
		return cmpTimeOfDay(a, b), nil
	case (a.kind == KindDate || a.kind == KindDateTime) && (b.kind == KindDate || b.kind == KindDateTime):
		return cmpDatePart(a, b), nil
	default:
		return 0, pkerr.New(pkerr.ValuesNotComparable, "value.Compare")
	}
}

func cmpTimeOfDay(a, b V) int {
	switch {
	case a.t.Before(b.t):
		return -1
	case a.t.After(b.t):
		return 1
	default:
		return 0
	}
}

func cmpDatePart(a, b V) int {
	ay, am, ad := a.t.Date()
	by, bm, bd := b.t.Date()
	switch {
	case ay != by:
		if ay < by {
			return -1
		}
		return 1
	case am != bm:
		if am < bm {
			return -1
		}
		return 1
	case ad != bd:
		if ad < bd {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// IsLess, IsLessEq, IsMore, IsMoreEq wrap Compare for the condition
// evaluator's ordered operators.
func IsLess(a, b V) (bool, *pkerr.Error) {
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return c < 0, nil
}

func IsLessEq(a, b V) (bool, *pkerr.Error) {
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return c <= 0, nil
}

func IsMore(a, b V) (bool, *pkerr.Error) {
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func IsMoreEq(a, b V) (bool, *pkerr.Error) {
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return c >= 0, nil
}

// IsIn implements is_in membership: list membership via IsSameAs,
// comma-split string membership, or false/error otherwise.
func IsIn(a, b V) (bool, *pkerr.Error) {
	if a.kind == KindList || a.kind == KindMap {
		return false, nil
	}
	switch b.kind {
	case KindList:
		for _, elem := range b.list {
			if IsSameAs(a, elem) {
				return true, nil
			}
		}
		return false, nil
	case KindStr:
		for _, part := range strings.Split(b.str, ",") {
			if IsSameAs(a, Str(part)) {
				return true, nil
			}
		}
		return false, nil
	case KindNone:
		return false, nil
	default:
		return false, pkerr.New(pkerr.ValuesNotComparable, "value.IsIn")
	}
}

func IsNotIn(a, b V) (bool, *pkerr.Error) {
	ok, err := IsIn(a, b)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
