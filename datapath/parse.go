package datapath

import (
	"unicode"

	"github.com/alfreddata/pipelinekernel/pkerr"
)

type span struct{ lo, hi int }

// isStructuralChar reports whether r is one of the seven grammar-reserved
// characters in the escape set.
func isStructuralChar(r rune) bool {
	switch r {
	case '.', ',', '(', ')', '{', '}', '&':
		return true
	}
	return false
}

func isNameChar(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
}

// scan walks the rune stream once, resolving escapes (the grammar's `escape`
// production) and validating bracket balance for '(' ')' and '{' '}', which
// may nest arbitrarily across function args and literal-concat braces.
func scan(path string) ([]rune, []bool, []bool, map[int]int, *pkerr.Error) {
	src := []rune(path)
	n := len(src)
	structural := make([]bool, n)
	skip := make([]bool, n)

	i := 0
	for i < n {
		if src[i] == '\\' && i+1 < n && isStructuralChar(src[i+1]) {
			skip[i] = true
			i += 2
			continue
		}
		structural[i] = isStructuralChar(src[i])
		i++
	}

	type openFrame struct {
		idx int
		ch  rune
	}
	var stack []openFrame
	matchClose := map[int]int{}
	openerFor := map[rune]rune{')': '(', '}': '{'}

	for i := 0; i < n; i++ {
		if !structural[i] {
			continue
		}
		switch src[i] {
		case '(', '{':
			stack = append(stack, openFrame{i, src[i]})
		case ')', '}':
			want := openerFor[src[i]]
			if len(stack) == 0 || stack[len(stack)-1].ch != want {
				return nil, nil, nil, nil, parseErr(path, i, i+1, "unmatched '%c'", src[i])
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			matchClose[top.idx] = i
		}
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, nil, nil, nil, parseErr(path, top.idx, top.idx+1, "unmatched '%c'", top.ch)
	}
	return src, structural, skip, matchClose, nil
}

// splitTopLevel finds every occurrence of sep within [lo,hi) that sits at
// bracket depth zero relative to this range, skipping over nested '(' ')'
// and '{' '}' regions entirely via the precomputed match table.
func splitTopLevel(src []rune, structural []bool, matchClose map[int]int, lo, hi int, sep rune, fullPath string) ([]span, *pkerr.Error) {
	var spans []span
	start := lo
	i := lo
	for i < hi {
		if structural[i] {
			switch {
			case src[i] == '(' || src[i] == '{':
				i = matchClose[i] + 1
				continue
			case src[i] == sep:
				spans = append(spans, span{start, i})
				start = i + 1
			case src[i] == ',' && sep != ',':
				return nil, parseErr(fullPath, i, i+1, "stray ','")
			case src[i] == ')' || src[i] == '}':
				return nil, parseErr(fullPath, i, i+1, "unmatched '%c'", src[i])
			}
		}
		i++
	}
	spans = append(spans, span{start, hi})
	return spans, nil
}

func buildLiteral(src []rune, skip []bool, lo, hi int) string {
	out := make([]rune, 0, hi-lo)
	for i := lo; i < hi; i++ {
		if skip[i] {
			continue
		}
		out = append(out, src[i])
	}
	return string(out)
}

// Parse compiles a dotted path expression. No schema is consulted here, so
// every Segment.IsList starts false; a caller that knows a segment
// addresses an Array factor sets IsList on the compiled segment itself.
func Parse(path string) (*DataPath, *pkerr.Error) {
	src, structural, skip, matchClose, err := scan(path)
	if err != nil {
		return nil, err
	}
	return compileRange(src, structural, matchClose, skip, 0, len(src), path)
}

func compileRange(src []rune, structural []bool, matchClose map[int]int, skip []bool, lo, hi int, fullPath string) (*DataPath, *pkerr.Error) {
	if lo == hi {
		return nil, parseErr(fullPath, lo, hi, "path is empty")
	}
	spans, err := splitTopLevel(src, structural, matchClose, lo, hi, '.', fullPath)
	if err != nil {
		return nil, err
	}
	dp := &DataPath{Text: string(src[lo:hi])}
	for idx, sp := range spans {
		if sp.lo == sp.hi {
			return nil, parseErr(fullPath, sp.lo, sp.hi, "blank segment surrounded by dots")
		}
		seg, err := compileSegment(src, structural, matchClose, skip, sp.lo, sp.hi, idx > 0, fullPath)
		if err != nil {
			return nil, err
		}
		dp.Segments = append(dp.Segments, seg)
	}
	return dp, nil
}

func compileSegment(src []rune, structural []bool, matchClose map[int]int, skip []bool, lo, hi int, hasLeftContext bool, fullPath string) (Segment, *pkerr.Error) {
	if structural[lo] && src[lo] == '&' {
		return parseFuncSegment(src, structural, matchClose, skip, lo, hi, hasLeftContext, fullPath)
	}
	return parseConcatSegment(src, structural, matchClose, skip, lo, hi, fullPath)
}

func parseConcatSegment(src []rune, structural []bool, matchClose map[int]int, skip []bool, lo, hi int, fullPath string) (Segment, *pkerr.Error) {
	var pieces []ConcatPiece
	i := lo
	litStart := lo
	for i < hi {
		if structural[i] {
			switch src[i] {
			case '{':
				pieces = append(pieces, ConcatPiece{Literal: buildLiteral(src, skip, litStart, i)})
				closeIdx := matchClose[i]
				sub, err := compileRange(src, structural, matchClose, skip, i+1, closeIdx, fullPath)
				if err != nil {
					return Segment{}, err
				}
				pieces = append(pieces, ConcatPiece{Sub: sub})
				i = closeIdx + 1
				litStart = i
				continue
			case '&':
				return Segment{}, parseErr(fullPath, i, i+1, "unescaped '&' preceded by other content")
			default:
				return Segment{}, parseErr(fullPath, i, i+1, "unexpected '%c'", src[i])
			}
		}
		i++
	}
	pieces = append(pieces, ConcatPiece{Literal: buildLiteral(src, skip, litStart, hi)})
	return Segment{Kind: SegPlain, Pieces: pieces}, nil
}

func parseFuncSegment(src []rune, structural []bool, matchClose map[int]int, skip []bool, lo, hi int, hasLeftContext bool, fullPath string) (Segment, *pkerr.Error) {
	i := lo + 1
	nameStart := i
	for i < hi && !(structural[i] && src[i] == '(') {
		if structural[i] {
			return Segment{}, parseErr(fullPath, i, i+1, "unexpected '%c' in function name", src[i])
		}
		c := src[i]
		if unicode.IsSpace(c) {
			return Segment{}, parseErr(fullPath, i, i+1, "whitespace inside function name")
		}
		if !isNameChar(c) {
			return Segment{}, parseErr(fullPath, i, i+1, "function name character %q not in [A-Za-z0-9_]", c)
		}
		i++
	}
	name := string(src[nameStart:i])
	if name == "" {
		return Segment{}, parseErr(fullPath, lo, i, "missing function name after '&'")
	}

	var args []*DataPath
	if i < hi && structural[i] && src[i] == '(' {
		closeIdx := matchClose[i]
		if closeIdx+1 != hi {
			return Segment{}, parseErr(fullPath, closeIdx+1, hi, "unexpected characters after function arguments")
		}
		if closeIdx > i+1 {
			argSpans, err := splitTopLevel(src, structural, matchClose, i+1, closeIdx, ',', fullPath)
			if err != nil {
				return Segment{}, err
			}
			for _, sp := range argSpans {
				if sp.lo == sp.hi {
					return Segment{}, parseErr(fullPath, sp.lo, sp.hi, "blank function argument")
				}
				argDP, err := compileRange(src, structural, matchClose, skip, sp.lo, sp.hi, fullPath)
				if err != nil {
					return Segment{}, err
				}
				args = append(args, argDP)
			}
		}
	}

	spec, ok := lookupFunc(name)
	if !ok {
		return Segment{}, parseErr(fullPath, nameStart, i, "unknown function %q", name)
	}
	if len(args) < spec.MinParams {
		return Segment{}, parseErr(fullPath, lo, hi, "function %q requires at least %d argument(s)", name, spec.MinParams)
	}
	if spec.MaxParams >= 0 && len(args) > spec.MaxParams {
		return Segment{}, parseErr(fullPath, lo, hi, "function %q accepts at most %d argument(s)", name, spec.MaxParams)
	}
	if spec.RequireContext && !hasLeftContext {
		return Segment{}, parseErr(fullPath, lo, hi, "function %q requires a left-hand context but appears first", name)
	}
	if !spec.RequireContext && hasLeftContext {
		return Segment{}, parseErr(fullPath, lo, hi, "function %q does not accept a left-hand context", name)
	}

	return Segment{
		Kind:        SegFunc,
		FuncName:    spec.CanonicalName,
		Args:        args,
		WithContext: spec.RequireContext,
	}, nil
}
