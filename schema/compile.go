package schema

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alfreddata/pipelinekernel/crypto"
	"github.com/alfreddata/pipelinekernel/dtparse"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/value"
)

// NodeKind tags which of the three compiled-tree shapes a Node holds: a
// TopicSchema's Simple leaf, VecOrMap factor, or Fake implicit group.
type NodeKind int

const (
	NodeSimple NodeKind = iota
	NodeVecOrMap
	NodeFake
)

// Node is one compiled level of a TopicSchema's dotted-name tree.
type Node struct {
	Kind NodeKind
	Name string // this level's leaf path component

	// NodeSimple fields.
	FactorType    FactorType
	IsDateOrTime  bool
	IsEncryptable bool
	IsFlatten     bool
	Default       value.V
	HasDefault    bool
	EncryptMethod crypto.MethodID

	// NodeVecOrMap fields.
	IsArray bool // true when the referencing factor's type is Array

	Children map[string]*Node
}

func newFakeNode(name string) *Node {
	return &Node{Kind: NodeFake, Name: name, Children: map[string]*Node{}}
}

// needsWork reports whether this node or any descendant requires prepper
// action; nodes that don't are pruned from the compiled tree.
func (n *Node) needsWork() bool {
	if n.Kind == NodeSimple {
		return n.IsDateOrTime || n.IsEncryptable || n.IsFlatten || n.HasDefault
	}
	for _, child := range n.Children {
		if child.needsWork() {
			return true
		}
	}
	return false
}

// prune drops child subtrees that don't needsWork, recursively.
func (n *Node) prune() {
	if n.Kind == NodeSimple {
		return
	}
	for name, child := range n.Children {
		child.prune()
		if !child.needsWork() {
			delete(n.Children, name)
		}
	}
}

// TopicSchema is the compiled form of a Topic: identity plus the pruned
// factor tree every Prepare call walks.
type TopicSchema struct {
	Topic Topic
	Root  *Node
}

// Compile builds a TopicSchema from a Topic, validating identity and
// building/pruning the factor tree.
func Compile(t Topic) (*TopicSchema, *pkerr.Error) {
	if err := validateIdentity(t); err != nil {
		return nil, err
	}

	root := newFakeNode("")
	for _, f := range t.Factors {
		if err := insertFactor(root, f); err != nil {
			return nil, err
		}
	}
	root.prune()

	return &TopicSchema{Topic: t, Root: root}, nil
}

func validateIdentity(t Topic) *pkerr.Error {
	if t.TopicID == "" {
		return pkerr.New(pkerr.TopicIdMissed, "schema.Compile")
	}
	if strings.TrimSpace(t.TopicID) == "" {
		return pkerr.New(pkerr.TopicIdIsBlank, "schema.Compile")
	}
	if t.Type == "" {
		return pkerr.New(pkerr.TopicTypeMissed, "schema.Compile")
	}
	if t.Kind == "" {
		return pkerr.New(pkerr.TopicKindMissed, "schema.Compile")
	}
	if len(t.Factors) == 0 {
		return pkerr.New(pkerr.TopicFactorMissed, "schema.Compile")
	}
	for _, f := range t.Factors {
		if f.FactorID == "" {
			return pkerr.New(pkerr.FactorIdMissed, "schema.Compile")
		}
		if strings.TrimSpace(f.FactorID) == "" {
			return pkerr.New(pkerr.FactorIdIsBlank, "schema.Compile")
		}
		if f.Type == "" {
			return pkerr.New(pkerr.FactorTypeMissed, "schema.Compile")
		}
	}
	return nil
}

// insertFactor walks f.Name's dotted parts, creating Fake nodes for
// intermediate path components and a VecOrMap node when this factor's own
// type is Object/Array, finally attaching the Simple leaf's computed flags.
func insertFactor(root *Node, f Factor) *pkerr.Error {
	parts := strings.Split(f.Name, ".")
	cur := root
	for i, part := range parts {
		isLast := i == len(parts)-1
		child, ok := cur.Children[part]
		if !ok {
			if isLast {
				child = &Node{Name: part}
			} else {
				child = newFakeNode(part)
			}
			cur.Children[part] = child
		}
		if isLast {
			finishLeaf(child, f)
			return nil
		}
		if child.Kind == NodeFake && child.Children == nil {
			child.Children = map[string]*Node{}
		}
		cur = child
	}
	return nil
}

func finishLeaf(n *Node, f Factor) {
	cat := f.Type.categoryOf()
	if cat == categoryObject || cat == categoryArray {
		n.Kind = NodeVecOrMap
		n.IsArray = cat == categoryArray
		if n.Children == nil {
			n.Children = map[string]*Node{}
		}
		return
	}

	n.Kind = NodeSimple
	n.FactorType = f.Type
	n.IsDateOrTime = f.Type.IsDateOrTime()
	n.IsEncryptable = f.hasEncrypt()
	n.IsFlatten = f.Flatten
	n.EncryptMethod = f.Encrypt

	if f.HasDefault {
		if d, ok := parseDefault(f.Type, f.DefaultValue); ok {
			n.Default = d
			n.HasDefault = true
		}
	}
}

// parseDefault parses a factor's raw default string into its semantic
// category. Parse failure silently drops the default.
func parseDefault(t FactorType, raw string) (value.V, bool) {
	switch t.categoryOf() {
	case categoryNumeric:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return value.None(), false
		}
		return value.Num(d), true
	case categoryBoolean:
		v := value.Str(raw)
		b, ok := v.TryBool()
		if !ok {
			return value.None(), false
		}
		return value.Bool(b), true
	case categoryFullDateTime:
		tm, err := dtparse.ParseFullDateTime(raw)
		if err != nil {
			return value.None(), false
		}
		return value.DateTime(tm), true
	case categoryDateTime:
		tm, err := dtparse.ParseLoose(raw)
		if err != nil {
			return value.None(), false
		}
		return value.DateTime(tm), true
	case categoryDate:
		tm, err := dtparse.ParseLoose(raw)
		if err != nil {
			return value.None(), false
		}
		return value.Date(tm), true
	case categoryTime:
		tm, err := dtparse.ParseTime(raw)
		if err != nil {
			return value.None(), false
		}
		return value.Time(tm), true
	default:
		return value.Str(raw), true
	}
}
