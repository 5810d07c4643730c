// Package datapath implements the dotted path grammar: a compiled DataPath
// of Plain/Func segments, parsed with a char-range error
// contract, and an evaluator that walks a value.V tree (including the
// list flat-map semantics and literal-concat sugar).
package datapath

// SegmentKind tags which of the two segment shapes a Segment holds.
type SegmentKind int

const (
	// SegPlain covers both a bare field lookup and literal-concat: a bare
	// name with no braces is just the degenerate one-piece case.
	SegPlain SegmentKind = iota
	SegFunc
)

// ConcatPiece is one alternating element of a literal-concat segment: a
// verbatim text run, or a braced sub-path to evaluate and splice in.
type ConcatPiece struct {
	Literal string
	Sub     *DataPath // nil for a literal piece
}

// Segment is one compiled "." delimited step of a DataPath.
type Segment struct {
	Kind SegmentKind

	// SegPlain fields.
	Pieces []ConcatPiece // len==1 with Pieces[0].Sub==nil => a plain field name
	IsList bool          // compiled from schema: true when this name addresses an Array factor

	// SegFunc fields.
	FuncName    string
	Args        []*DataPath // each argument, itself compiled as a path
	WithContext bool        // true if this func consumes the left-hand context value
}

// PlainName reports the bare field name and whether this segment is a pure
// plain lookup (exactly one literal piece, no sub-paths).
func (s Segment) PlainName() (string, bool) {
	if s.Kind != SegPlain || len(s.Pieces) != 1 || s.Pieces[0].Sub != nil {
		return "", false
	}
	return s.Pieces[0].Literal, true
}

// DataPath is the compiled form of a dotted path expression.
type DataPath struct {
	Text     string
	Segments []Segment
}
