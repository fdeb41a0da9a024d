package sql

// FunctionCall is a scalar function call, e.g. LOWER("name").
type FunctionCall struct {
	Name     string
	Args     []Node
	Distinct bool
	Alias    string
}

// Func returns a function call node. Non-node arguments are bound as literals.
func Func(name string, args ...any) *FunctionCall {
	return &FunctionCall{Name: name, Args: toNodes(args)}
}

// As returns a copy of the call with the given alias.
func (f *FunctionCall) As(alias string) *FunctionCall {
	cp := *f
	cp.Alias = alias
	return &cp
}

// AggregateCall is an aggregate function call with an optional FILTER clause.
// A nil Arg renders as "*".
type AggregateCall struct {
	Name     string
	Arg      Node
	Distinct bool
	Alias    string
	Filter   Node
}

// Agg returns an aggregate call node.
func Agg(name string, arg Node) *AggregateCall {
	return &AggregateCall{Name: name, Arg: arg}
}

// Count returns COUNT(arg), or COUNT(*) when arg is nil.
func Count(arg Node) *AggregateCall { return Agg("COUNT", arg) }

// Sum returns SUM(arg).
func Sum(arg Node) *AggregateCall { return Agg("SUM", arg) }

// Avg returns AVG(arg).
func Avg(arg Node) *AggregateCall { return Agg("AVG", arg) }

// Min returns MIN(arg).
func Min(arg Node) *AggregateCall { return Agg("MIN", arg) }

// Max returns MAX(arg).
func Max(arg Node) *AggregateCall { return Agg("MAX", arg) }

// As returns a copy of the call with the given alias.
func (a *AggregateCall) As(alias string) *AggregateCall {
	cp := *a
	cp.Alias = alias
	return &cp
}

// WithDistinct returns a copy of the call with DISTINCT set.
func (a *AggregateCall) WithDistinct() *AggregateCall {
	cp := *a
	cp.Distinct = true
	return &cp
}

// WithFilter returns a copy of the call with a FILTER (WHERE cond) clause.
func (a *AggregateCall) WithFilter(cond Node) *AggregateCall {
	cp := *a
	cp.Filter = cond
	return &cp
}

// FrameUnit is the unit of a window frame.
type FrameUnit string

// Frame units.
const (
	FrameRows   FrameUnit = "ROWS"
	FrameRange  FrameUnit = "RANGE"
	FrameGroups FrameUnit = "GROUPS"
)

// BoundKind is the kind of a window frame bound. The zero value marks an
// absent bound.
type BoundKind uint8

// Frame bound kinds.
const (
	BoundNone BoundKind = iota
	BoundUnboundedPreceding
	BoundPreceding
	BoundCurrentRow
	BoundFollowing
	BoundUnboundedFollowing
)

// FrameBound is one end of a window frame. Offset is used by the
// PRECEDING and FOLLOWING kinds and is written inline.
type FrameBound struct {
	Kind   BoundKind
	Offset int
}

// Frame bound helpers.
var (
	UnboundedPreceding = FrameBound{Kind: BoundUnboundedPreceding}
	CurrentRow         = FrameBound{Kind: BoundCurrentRow}
	UnboundedFollowing = FrameBound{Kind: BoundUnboundedFollowing}
)

// Preceding returns the "n PRECEDING" bound.
func Preceding(n int) FrameBound { return FrameBound{Kind: BoundPreceding, Offset: n} }

// Following returns the "n FOLLOWING" bound.
func Following(n int) FrameBound { return FrameBound{Kind: BoundFollowing, Offset: n} }

// WindowFrame is a ROWS/RANGE/GROUPS frame. With an absent End it renders
// the short form "ROWS <start>".
type WindowFrame struct {
	Unit  FrameUnit
	Start FrameBound
	End   FrameBound
}

// WindowSpec is the body of an OVER clause. Name references a window
// declared on the enclosing SELECT.
type WindowSpec struct {
	Name        string
	PartitionBy []Node
	OrderBy     []*OrderItem
	Frame       *WindowFrame
}

// WindowCall is a window function call, e.g. ROW_NUMBER() OVER (...).
type WindowCall struct {
	Name   string
	Args   []Node
	Window *WindowSpec
	Alias  string
}

// Window returns a window function call node.
func Window(name string, spec *WindowSpec, args ...any) *WindowCall {
	return &WindowCall{Name: name, Args: toNodes(args), Window: spec}
}

// As returns a copy of the call with the given alias.
func (w *WindowCall) As(alias string) *WindowCall {
	cp := *w
	cp.Alias = alias
	return &cp
}

// Comparison operators.
const (
	OpEQ                = "="
	OpNEQ               = "<>"
	OpLT                = "<"
	OpLTE               = "<="
	OpGT                = ">"
	OpGTE               = ">="
	OpIsDistinctFrom    = "IS DISTINCT FROM"
	OpIsNotDistinctFrom = "IS NOT DISTINCT FROM"
)

var comparisonOps = map[string]bool{
	OpEQ: true, OpNEQ: true, "!=": true, OpLT: true, OpLTE: true, OpGT: true, OpGTE: true,
	OpIsDistinctFrom: true, OpIsNotDistinctFrom: true,
}

// Comparison is a binary comparison.
type Comparison struct {
	Op          string
	Left, Right Node
}

// Compare returns a comparison node. Non-node operands are bound as literals.
func Compare(op string, left, right any) *Comparison {
	return &Comparison{Op: op, Left: toNode(left), Right: toNode(right)}
}

// EQ returns the "col = v" predicate.
func EQ(col string, v any) *Comparison { return Compare(OpEQ, C(col), v) }

// NEQ returns the "col <> v" predicate.
func NEQ(col string, v any) *Comparison { return Compare(OpNEQ, C(col), v) }

// LT returns the "col < v" predicate.
func LT(col string, v any) *Comparison { return Compare(OpLT, C(col), v) }

// LTE returns the "col <= v" predicate.
func LTE(col string, v any) *Comparison { return Compare(OpLTE, C(col), v) }

// GT returns the "col > v" predicate.
func GT(col string, v any) *Comparison { return Compare(OpGT, C(col), v) }

// GTE returns the "col >= v" predicate.
func GTE(col string, v any) *Comparison { return Compare(OpGTE, C(col), v) }

// ColumnsEQ returns the "c1 = c2" predicate between two columns.
func ColumnsEQ(c1, c2 string) *Comparison { return Compare(OpEQ, C(c1), C(c2)) }

// LogicalOp is a boolean connective.
type LogicalOp string

// Logical operators.
const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
	OpNot LogicalOp = "NOT"
)

// Logical combines predicates. AND/OR with a single operand render the
// operand alone; NOT takes exactly one operand.
type Logical struct {
	Op       LogicalOp
	Operands []Node
}

// And returns the conjunction of the predicates.
func And(ps ...Node) *Logical { return &Logical{Op: OpAnd, Operands: ps} }

// Or returns the disjunction of the predicates.
func Or(ps ...Node) *Logical { return &Logical{Op: OpOr, Operands: ps} }

// Not returns the negation of the predicate.
func Not(p Node) *Logical { return &Logical{Op: OpNot, Operands: []Node{p}} }

// InPredicate is "expr [NOT] IN set". Set is a slice Literal, a query
// node or any other node rendered inside parentheses.
type InPredicate struct {
	Expr    Node
	Set     Node
	Negated bool
}

// In returns the "col IN (vs...)" predicate. With no values it renders "IN ()".
func In(col string, vs ...any) *InPredicate {
	if vs == nil {
		vs = []any{}
	}
	return &InPredicate{Expr: C(col), Set: Lit(vs)}
}

// NotIn returns the "col NOT IN (vs...)" predicate.
func NotIn(col string, vs ...any) *InPredicate {
	p := In(col, vs...)
	p.Negated = true
	return p
}

// InQuery returns the "expr IN (query)" predicate.
func InQuery(expr, query Node) *InPredicate { return &InPredicate{Expr: expr, Set: query} }

// Between is "expr [NOT] BETWEEN low AND high".
type Between struct {
	Expr, Low, High Node
	Negated         bool
}

// InRange returns the "col BETWEEN low AND high" predicate.
func InRange(col string, low, high any) *Between {
	return &Between{Expr: C(col), Low: toNode(low), High: toNode(high)}
}

// IsNull is "expr IS [NOT] NULL".
type IsNull struct {
	Expr    Node
	Negated bool
}

// Null returns the "col IS NULL" predicate.
func Null(col string) *IsNull { return &IsNull{Expr: C(col)} }

// NotNull returns the "col IS NOT NULL" predicate.
func NotNull(col string) *IsNull { return &IsNull{Expr: C(col), Negated: true} }

// LikeOp is a pattern matching operator.
type LikeOp string

// Pattern matching operators.
const (
	OpLike     LikeOp = "LIKE"
	OpNotLike  LikeOp = "NOT LIKE"
	OpILike    LikeOp = "ILIKE"
	OpNotILike LikeOp = "NOT ILIKE"
)

// Like is "expr LIKE pattern [ESCAPE e]".
type Like struct {
	Op      LikeOp
	Expr    Node
	Pattern Node
	Escape  string
}

// Match returns the "col LIKE pattern" predicate.
func Match(col string, pattern any) *Like {
	return &Like{Op: OpLike, Expr: C(col), Pattern: toNode(pattern)}
}

// CaseArm is one WHEN ... THEN ... arm.
type CaseArm struct {
	When, Then Node
}

// Case is a CASE expression. A non-nil Value makes it the simple form.
type Case struct {
	Value Node
	Arms  []CaseArm
	Else  Node
}

// When returns a copy of the CASE expression with an added arm.
func (c *Case) When(cond, result any) *Case {
	cp := *c
	cp.Arms = append(append([]CaseArm(nil), c.Arms...), CaseArm{When: toNode(cond), Then: toNode(result)})
	return &cp
}

// Otherwise returns a copy of the CASE expression with an ELSE result.
func (c *Case) Otherwise(result any) *Case {
	cp := *c
	cp.Else = toNode(result)
	return &cp
}

// Cast is CAST(expr AS type).
type Cast struct {
	Expr Node
	Type string
}

// CastAs returns a cast node.
func CastAs(expr Node, typ string) *Cast { return &Cast{Expr: expr, Type: typ} }

// Exists is "[NOT] EXISTS (query)".
type Exists struct {
	Query   Node
	Negated bool
}

// AnyAllKind selects ANY or ALL.
type AnyAllKind string

// Quantifiers.
const (
	QuantAny AnyAllKind = "ANY"
	QuantAll AnyAllKind = "ALL"
)

// AnyAll is "expr op ANY|ALL (set)". A slice Literal set is bound as a
// single array parameter and requires array support.
type AnyAll struct {
	Kind AnyAllKind
	Expr Node
	Op   string
	Set  Node
}

// JSONOp selects the JSON access result type.
type JSONOp string

// JSON access operators.
const (
	JSONExtract     JSONOp = "->"  // JSON-typed result
	JSONExtractText JSONOp = "->>" // text result
)

// JSONExpr extracts the value at a JSON path ("$.a.b[0]") from expr.
type JSONExpr struct {
	Expr Node
	Path string
	Op   JSONOp
}

// JSONPath returns a JSON-typed extraction of the path from the column.
func JSONPath(col, path string) *JSONExpr {
	return &JSONExpr{Expr: C(col), Path: path, Op: JSONExtract}
}

// JSONValue returns a text extraction of the path from the column.
func JSONValue(col, path string) *JSONExpr {
	return &JSONExpr{Expr: C(col), Path: path, Op: JSONExtractText}
}

// ArrayKind selects between array construction and element access.
type ArrayKind uint8

// Array expression kinds.
const (
	ArrayConstruct ArrayKind = iota
	ArrayAccess
)

// ArrayExpr is either ARRAY[e1, e2, ...] or base[index].
type ArrayExpr struct {
	Kind     ArrayKind
	Elements []Node
	Base     Node
	Index    Node
}

// Array returns an array constructor node.
func Array(elems ...any) *ArrayExpr {
	return &ArrayExpr{Kind: ArrayConstruct, Elements: toNodes(elems)}
}

// ArrayIndex returns an array element access node.
func ArrayIndex(base Node, index any) *ArrayExpr {
	return &ArrayExpr{Kind: ArrayAccess, Base: base, Index: toNode(index)}
}

// OrderedSetAgg is an ordered-set aggregate, e.g.
// PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY "x").
type OrderedSetAgg struct {
	Name    string
	Args    []Node
	OrderBy []*OrderItem
	Alias   string
}

// WithinGroup returns an ordered-set aggregate node.
func WithinGroup(name string, order []*OrderItem, args ...any) *OrderedSetAgg {
	return &OrderedSetAgg{Name: name, Args: toNodes(args), OrderBy: order}
}

// As returns a copy of the aggregate with the given alias.
func (o *OrderedSetAgg) As(alias string) *OrderedSetAgg {
	cp := *o
	cp.Alias = alias
	return &cp
}

func (n *FunctionCall) Render(d *Dialect) (string, []any, error)  { return d.Format(n) }
func (n *AggregateCall) Render(d *Dialect) (string, []any, error) { return d.Format(n) }
func (n *WindowCall) Render(d *Dialect) (string, []any, error)    { return d.Format(n) }
func (n *Comparison) Render(d *Dialect) (string, []any, error)    { return d.Format(n) }
func (n *Logical) Render(d *Dialect) (string, []any, error)       { return d.Format(n) }
func (n *InPredicate) Render(d *Dialect) (string, []any, error)   { return d.Format(n) }
func (n *Between) Render(d *Dialect) (string, []any, error)       { return d.Format(n) }
func (n *IsNull) Render(d *Dialect) (string, []any, error)        { return d.Format(n) }
func (n *Like) Render(d *Dialect) (string, []any, error)          { return d.Format(n) }
func (n *Case) Render(d *Dialect) (string, []any, error)          { return d.Format(n) }
func (n *Cast) Render(d *Dialect) (string, []any, error)          { return d.Format(n) }
func (n *Exists) Render(d *Dialect) (string, []any, error)        { return d.Format(n) }
func (n *AnyAll) Render(d *Dialect) (string, []any, error)        { return d.Format(n) }
func (n *JSONExpr) Render(d *Dialect) (string, []any, error)      { return d.Format(n) }
func (n *ArrayExpr) Render(d *Dialect) (string, []any, error)     { return d.Format(n) }
func (n *OrderedSetAgg) Render(d *Dialect) (string, []any, error) { return d.Format(n) }

func (*FunctionCall) sqlNode()  {}
func (*AggregateCall) sqlNode() {}
func (*WindowCall) sqlNode()    {}
func (*Comparison) sqlNode()    {}
func (*Logical) sqlNode()       {}
func (*InPredicate) sqlNode()   {}
func (*Between) sqlNode()       {}
func (*IsNull) sqlNode()        {}
func (*Like) sqlNode()          {}
func (*Case) sqlNode()          {}
func (*Cast) sqlNode()          {}
func (*Exists) sqlNode()        {}
func (*AnyAll) sqlNode()        {}
func (*JSONExpr) sqlNode()      {}
func (*ArrayExpr) sqlNode()     {}
func (*OrderedSetAgg) sqlNode() {}
