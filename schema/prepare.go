package schema

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/alfreddata/pipelinekernel/crypto"
	"github.com/alfreddata/pipelinekernel/dtparse"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/value"
)

// Direction picks which half of a Method an encryptable factor runs through
// during Prepare: Ingest normalizes and encrypts a raw event on its way into
// storage, Read decrypts a stored event on its way back out.
type Direction int

const (
	Ingest Direction = iota
	Read
)

// monitorLogTopicName is the one system topic that never gets an AID
// hierarchy, even though its kind would otherwise qualify: AID injection
// would make the pipeline's own audit trail self-referential.
const monitorLogTopicName = "raw_pipeline_monitor_log"

type ancestorAID struct {
	name string
	aid  string
}

// Prepare runs the full preparation pipeline over an inbound or outbound event:
// default substitution, date/time parsing, per-factor crypto, AID hierarchy
// injection, and flatten. payload must be a Map or None.
func Prepare(ts *TopicSchema, payload value.V, ks crypto.KeyStore, tenantID string, dir Direction) (value.V, *pkerr.Error) {
	injectAID := ts.Topic.Type != TopicRaw && ts.Topic.Name != monitorLogTopicName

	out, err := prepareMapLevel(ts.Root, payload, ks, tenantID, dir, nil, injectAID, true)
	if err != nil {
		return value.None(), err
	}

	if ts.Topic.Type != TopicRaw {
		if rootMap, ok := out.AsMap(); ok {
			flatten(ts.Root, rootMap)
		}
	}
	return out, nil
}

func prepareNode(n *Node, v value.V, ks crypto.KeyStore, tenantID string, dir Direction, ancestors []ancestorAID, injectAID bool) (value.V, *pkerr.Error) {
	switch n.Kind {
	case NodeSimple:
		return normalizeSimple(n, v, ks, tenantID, dir)
	case NodeVecOrMap:
		if n.IsArray {
			return prepareArray(n, v, ks, tenantID, dir, ancestors, injectAID)
		}
		return prepareMapLevel(n, v, ks, tenantID, dir, ancestors, injectAID, false)
	default: // NodeFake
		return prepareMapLevel(n, v, ks, tenantID, dir, ancestors, injectAID, false)
	}
}

func prepareArray(n *Node, v value.V, ks crypto.KeyStore, tenantID string, dir Direction, ancestors []ancestorAID, injectAID bool) (value.V, *pkerr.Error) {
	if v.IsNone() {
		return v, nil
	}
	items, ok := v.AsList()
	if !ok {
		return value.None(), pkerr.Newf(pkerr.FactorNotFound, "schema.Prepare", "factor %q expects an array", n.Name)
	}
	out := make([]value.V, len(items))
	for i, item := range items {
		elem, err := prepareMapLevel(n, item, ks, tenantID, dir, ancestors, injectAID, false)
		if err != nil {
			return value.None(), err
		}
		out[i] = elem
	}
	return value.List(out), nil
}

func prepareMapLevel(n *Node, v value.V, ks crypto.KeyStore, tenantID string, dir Direction, ancestors []ancestorAID, injectAID, isRoot bool) (value.V, *pkerr.Error) {
	m := map[string]value.V{}
	if !v.IsNone() {
		src, ok := v.AsMap()
		if !ok {
			return value.None(), pkerr.Newf(pkerr.FactorNotFound, "schema.Prepare", "node %q expects an object", n.Name)
		}
		for k, val := range src {
			m[k] = val
		}
	}

	childAncestors := ancestors
	if injectAID {
		injectAncestors(m, ancestors)
		meID := uuid.NewString()
		selfName := n.Name
		if isRoot {
			m["aid_root"] = value.Str(meID)
			selfName = "root"
		} else {
			m["aid_me"] = value.Str(meID)
		}
		childAncestors = append(append([]ancestorAID{}, ancestors...), ancestorAID{name: selfName, aid: meID})
	}

	for name, child := range n.Children {
		childVal, present := m[name]
		if !present {
			childVal = value.None()
		}
		newVal, err := prepareNode(child, childVal, ks, tenantID, dir, childAncestors, injectAID)
		if err != nil {
			return value.None(), err
		}
		m[name] = newVal
	}

	return value.Map(m), nil
}

// injectAncestors copies each ancestor's aid under "aid_<name>", resolving
// same-named ancestors at different depths with a "_<distance>" suffix
// counted from the nearest ancestor outward.
func injectAncestors(m map[string]value.V, ancestors []ancestorAID) {
	seen := map[string]int{}
	for i := len(ancestors) - 1; i >= 0; i-- {
		a := ancestors[i]
		key := "aid_" + a.name
		if n := seen[a.name]; n > 0 {
			key = fmt.Sprintf("aid_%s_%d", a.name, n)
		}
		seen[a.name]++
		m[key] = value.Str(a.aid)
	}
}

func normalizeSimple(n *Node, v value.V, ks crypto.KeyStore, tenantID string, dir Direction) (value.V, *pkerr.Error) {
	if v.IsNone() && n.HasDefault {
		v = n.Default
	}

	if n.IsDateOrTime && v.IsStr() {
		s, _ := v.AsStr()
		parsed, err := parseTyped(n.FactorType, s)
		if err != nil {
			return value.None(), err
		}
		v = parsed
	}

	if n.IsEncryptable && !v.IsNone() {
		if v.IsMap() || v.IsList() {
			return value.None(), pkerr.Newf(pkerr.EncryptNotSupport, "schema.Prepare", "factor %q: %s values cannot be encrypted", n.Name, v.Kind())
		}
		method, merr := crypto.New(n.EncryptMethod, ks, tenantID, "")
		if merr != nil {
			return value.None(), merr
		}
		already := method.IsEncrypted(v)
		switch {
		case dir == Ingest && !already:
			v, merr = method.Encrypt(v)
		case dir == Read && already:
			v, merr = method.Decrypt(v)
		}
		if merr != nil {
			return value.None(), merr
		}
	}

	return v, nil
}

func parseTyped(t FactorType, s string) (value.V, *pkerr.Error) {
	switch t.categoryOf() {
	case categoryFullDateTime:
		tm, err := dtparse.ParseFullDateTime(s)
		if err != nil {
			return value.None(), pkerr.Newf(pkerr.FullDateTimeParse, "schema.Prepare", "%v", err)
		}
		return value.DateTime(tm), nil
	case categoryDateTime:
		tm, err := dtparse.ParseDateTime(s)
		if err != nil {
			return value.None(), pkerr.Newf(pkerr.DateTimeParse, "schema.Prepare", "%v", err)
		}
		return value.DateTime(tm), nil
	case categoryDate:
		tm, err := dtparse.ParseDate(s)
		if err != nil {
			return value.None(), pkerr.Newf(pkerr.DateParse, "schema.Prepare", "%v", err)
		}
		return value.Date(tm), nil
	case categoryTime:
		tm, err := dtparse.ParseTime(s)
		if err != nil {
			return value.None(), pkerr.Newf(pkerr.TimeParse, "schema.Prepare", "%v", err)
		}
		return value.Time(tm), nil
	default:
		return value.Str(s), nil
	}
}

// flatten copies every is_flatten Simple leaf's value up to the root map
// under its own leaf name, propagating None through any
// missing intermediate Map. flatten itself has no error path: Prepare's
// earlier prepareMapLevel pass has already rejected an intermediate that
// is neither Map nor None.
func flatten(root *Node, out map[string]value.V) {
	for _, child := range root.Children {
		flattenNode(child, out, out)
	}
}

func flattenNode(n *Node, scope map[string]value.V, root map[string]value.V) {
	switch n.Kind {
	case NodeSimple:
		if !n.IsFlatten {
			return
		}
		v, ok := scope[n.Name]
		if !ok {
			v = value.None()
		}
		root[n.Name] = v
	case NodeVecOrMap:
		if n.IsArray {
			return // flatten only targets scalar leaves reachable through maps
		}
		child := lookupMapChild(scope, n.Name)
		for _, grand := range n.Children {
			flattenNode(grand, child, root)
		}
	default: // NodeFake
		child := lookupMapChild(scope, n.Name)
		for _, grand := range n.Children {
			flattenNode(grand, child, root)
		}
	}
}

func lookupMapChild(scope map[string]value.V, name string) map[string]value.V {
	v, ok := scope[name]
	if !ok {
		return map[string]value.V{}
	}
	m, ok := v.AsMap()
	if !ok {
		return map[string]value.V{}
	}
	return m
}
