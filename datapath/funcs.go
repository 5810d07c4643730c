package datapath

// FuncSpec declares one path function's calling convention: whether it
// requires context, whether it tolerates a None context, and its min/max
// param count.
type FuncSpec struct {
	CanonicalName    string
	RequireContext   bool
	AllowNoneContext bool
	MinParams        int
	MaxParams        int // -1 means unbounded
}

var funcAliases = map[string]string{
	"length":     "len",
	"substr":     "slice",
	"index":      "find",
	"startswith": "startsWith",
	"endswith":   "endsWith",
	"trim":       "strip",
	"minDt":      "minDatetime",
	"maxDt":      "maxDatetime",
}

var funcTable = map[string]FuncSpec{
	"nextSeq": {CanonicalName: "nextSeq", RequireContext: false, MinParams: 0, MaxParams: 0},
	"count":   {CanonicalName: "count", RequireContext: true, MinParams: 0, MaxParams: 0},
	"len":     {CanonicalName: "len", RequireContext: true, MinParams: 0, MaxParams: 0},
	"slice":   {CanonicalName: "slice", RequireContext: true, MinParams: 1, MaxParams: 2},
	"find":    {CanonicalName: "find", RequireContext: true, MinParams: 1, MaxParams: 1},

	"startsWith": {CanonicalName: "startsWith", RequireContext: true, MinParams: 1, MaxParams: 1},
	"endsWith":   {CanonicalName: "endsWith", RequireContext: true, MinParams: 1, MaxParams: 1},
	"strip":      {CanonicalName: "strip", RequireContext: true, MinParams: 0, MaxParams: 0},
	"replace":      {CanonicalName: "replace", RequireContext: true, MinParams: 2, MaxParams: 2},
	"replaceFirst": {CanonicalName: "replaceFirst", RequireContext: true, MinParams: 2, MaxParams: 2},
	"upper":        {CanonicalName: "upper", RequireContext: true, MinParams: 0, MaxParams: 0},
	"lower":        {CanonicalName: "lower", RequireContext: true, MinParams: 0, MaxParams: 0},
	"contains":     {CanonicalName: "contains", RequireContext: true, MinParams: 1, MaxParams: 1},
	"split":        {CanonicalName: "split", RequireContext: true, MinParams: 1, MaxParams: 1},

	"concat": {CanonicalName: "concat", RequireContext: false, MinParams: 1, MaxParams: -1},
	"join":   {CanonicalName: "join", RequireContext: true, MinParams: 1, MaxParams: 1},

	"distinct": {CanonicalName: "distinct", RequireContext: true, MinParams: 0, MaxParams: 0},
	"sum":      {CanonicalName: "sum", RequireContext: true, MinParams: 0, MaxParams: 0},
	"avg":      {CanonicalName: "avg", RequireContext: true, MinParams: 0, MaxParams: 0},

	"min":          {CanonicalName: "min", RequireContext: true, MinParams: 0, MaxParams: 0},
	"minNum":       {CanonicalName: "minNum", RequireContext: true, MinParams: 0, MaxParams: 0},
	"minDate":      {CanonicalName: "minDate", RequireContext: true, MinParams: 0, MaxParams: 0},
	"minDatetime":  {CanonicalName: "minDatetime", RequireContext: true, MinParams: 0, MaxParams: 0},
	"minTime":      {CanonicalName: "minTime", RequireContext: true, MinParams: 0, MaxParams: 0},
	"max":          {CanonicalName: "max", RequireContext: true, MinParams: 0, MaxParams: 0},
	"maxNum":       {CanonicalName: "maxNum", RequireContext: true, MinParams: 0, MaxParams: 0},
	"maxDate":      {CanonicalName: "maxDate", RequireContext: true, MinParams: 0, MaxParams: 0},
	"maxDatetime":  {CanonicalName: "maxDatetime", RequireContext: true, MinParams: 0, MaxParams: 0},
	"maxTime":      {CanonicalName: "maxTime", RequireContext: true, MinParams: 0, MaxParams: 0},

	"cur": {CanonicalName: "cur", RequireContext: true, AllowNoneContext: true, MinParams: 0, MaxParams: 0},
	"old": {CanonicalName: "old", RequireContext: true, AllowNoneContext: true, MinParams: 0, MaxParams: 0},

	"dayDiff":   {CanonicalName: "dayDiff", RequireContext: true, MinParams: 1, MaxParams: 1},
	"monthDiff": {CanonicalName: "monthDiff", RequireContext: true, MinParams: 1, MaxParams: 1},
	"yearDiff":  {CanonicalName: "yearDiff", RequireContext: true, MinParams: 1, MaxParams: 1},
	"moveDate":  {CanonicalName: "moveDate", RequireContext: true, MinParams: 2, MaxParams: 2},
	"fmtDate":   {CanonicalName: "fmtDate", RequireContext: true, MinParams: 1, MaxParams: 1},

	"now": {CanonicalName: "now", RequireContext: false, MinParams: 0, MaxParams: 0},
}

// lookupFunc resolves a source function name (alias or canonical) to its spec.
func lookupFunc(name string) (FuncSpec, bool) {
	if canon, ok := funcAliases[name]; ok {
		name = canon
	}
	spec, ok := funcTable[name]
	return spec, ok
}
