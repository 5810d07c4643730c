package value

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/alfreddata/pipelinekernel/pkerr"
)

// Count returns the element count of a List, or 0 for None/empty string.
func Count(v V) V {
	if v.kind == KindList {
		return Num(decimal.NewFromInt(int64(len(v.list))))
	}
	return Num(decimal.Zero)
}

// Length returns the character count of a Str/Num's plain-string form, or
// the element count of a List.
func Length(v V) V {
	switch v.kind {
	case KindList:
		return Num(decimal.NewFromInt(int64(len(v.list))))
	case KindNone:
		return Num(decimal.Zero)
	default:
		return Num(decimal.NewFromInt(int64(utf8.RuneCountInString(v.PlainString()))))
	}
}

// Join concatenates a List's elements with sep, ignoring None elements and
// rejecting nested List/Map.
func Join(v V, sep string) (V, *pkerr.Error) {
	list, ok := v.AsList()
	if !ok {
		return None(), pkerr.New(pkerr.IncorrectDataPath, "value.Join")
	}
	var parts []string
	for _, elem := range list {
		if elem.kind == KindNone {
			continue
		}
		if elem.kind == KindList || elem.kind == KindMap {
			return None(), pkerr.New(pkerr.IncorrectDataPath, "value.Join")
		}
		parts = append(parts, elem.PlainString())
	}
	return Str(strings.Join(parts, sep)), nil
}

// Distinct dedupes primitive elements (one entry per distinct value, at
// most one None); List/Map elements are always kept as-is.
func Distinct(v V) V {
	list, ok := v.AsList()
	if !ok {
		return v
	}
	seen := make(map[string]bool, len(list))
	seenNone := false
	out := make([]V, 0, len(list))
	for _, elem := range list {
		if elem.kind == KindList || elem.kind == KindMap {
			out = append(out, elem)
			continue
		}
		if elem.kind == KindNone {
			if seenNone {
				continue
			}
			seenNone = true
			out = append(out, elem)
			continue
		}
		key := elem.sortKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, elem)
	}
	return List(out)
}

// Sum adds the decimal-coercible elements of a List; None/"" count as 0.
func Sum(v V) V {
	list, ok := v.AsList()
	if !ok {
		return Num(decimal.Zero)
	}
	total := decimal.Zero
	for _, elem := range list {
		if elem.kind == KindNone || (elem.kind == KindStr && elem.str == "") {
			continue
		}
		if d, ok := elem.TryDecimal(); ok {
			total = total.Add(d)
		}
	}
	return Num(total)
}

// Avg averages the decimal-coercible elements of a List; None/"" are not
// counted toward the denominator.
func Avg(v V) V {
	list, ok := v.AsList()
	if !ok {
		return Num(decimal.Zero)
	}
	total := decimal.Zero
	count := 0
	for _, elem := range list {
		if elem.kind == KindNone || (elem.kind == KindStr && elem.str == "") {
			continue
		}
		if d, ok := elem.TryDecimal(); ok {
			total = total.Add(d)
			count++
		}
	}
	if count == 0 {
		return Num(decimal.Zero)
	}
	return Num(total.Div(decimal.NewFromInt(int64(count))))
}
