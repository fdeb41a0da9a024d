package sql

// Where is the WHERE clause of a statement.
type Where struct {
	Cond Node
}

// Rollup is the ROLLUP grouping extension.
type Rollup struct {
	Exprs []Node
}

// Cube is the CUBE grouping extension.
type Cube struct {
	Exprs []Node
}

// GroupingSets is the GROUPING SETS extension. An empty set renders "()".
type GroupingSets struct {
	Sets [][]Node
}

// GroupByHaving is the GROUP BY clause with an optional HAVING condition.
// Items may be plain expressions or grouping extensions.
type GroupByHaving struct {
	Items  []Node
	Having Node
}

// GroupBy returns a GROUP BY clause on the given columns.
func GroupBy(cols ...string) *GroupByHaving {
	return &GroupByHaving{Items: columns(cols)}
}

// NullsOrder positions NULL values in an ordering.
type NullsOrder uint8

// NULL orderings.
const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr  Node
	Desc  bool
	Nulls NullsOrder
}

// Asc returns an ascending order term on the column.
func Asc(col string) *OrderItem { return &OrderItem{Expr: C(col)} }

// Desc returns a descending order term on the column.
func Desc(col string) *OrderItem { return &OrderItem{Expr: C(col), Desc: true} }

// NullsFirst returns a copy of the term with NULLS FIRST.
func (o *OrderItem) NullsFirst() *OrderItem {
	cp := *o
	cp.Nulls = NullsFirst
	return &cp
}

// NullsLast returns a copy of the term with NULLS LAST.
func (o *OrderItem) NullsLast() *OrderItem {
	cp := *o
	cp.Nulls = NullsLast
	return &cp
}

// OrderBy is the ORDER BY clause.
type OrderBy struct {
	Items []*OrderItem
}

// LimitOffset is the row limiting clause. Nil fields are absent.
type LimitOffset struct {
	Limit  *int
	Offset *int
}

// Limit returns a clause limiting the result to n rows.
func Limit(n int) *LimitOffset { return &LimitOffset{Limit: &n} }

// Offset returns a clause skipping n rows.
func Offset(n int) *LimitOffset { return &LimitOffset{Offset: &n} }

// WithLimit returns a copy of the clause with the limit set.
func (l *LimitOffset) WithLimit(n int) *LimitOffset {
	cp := *l
	cp.Limit = &n
	return &cp
}

// WithOffset returns a copy of the clause with the offset set.
func (l *LimitOffset) WithOffset(n int) *LimitOffset {
	cp := *l
	cp.Offset = &n
	return &cp
}

func (l *LimitOffset) empty() bool { return l == nil || l.Limit == nil && l.Offset == nil }

// JoinKind is the kind of a join.
type JoinKind string

// Join kinds.
const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
	JoinFull  JoinKind = "FULL"
	JoinCross JoinKind = "CROSS"
)

// keyword returns the join keyword, e.g. "LEFT JOIN".
func (k JoinKind) keyword() string {
	switch k {
	case JoinInner, "":
		return "JOIN"
	default:
		return string(k) + " JOIN"
	}
}

// Join joins two sources. At most one of On and Using may be set, and
// neither may be set for NATURAL or CROSS joins.
type Join struct {
	Left, Right Node
	Kind        JoinKind
	On          Node
	Using       []string
	Natural     bool
}

// NewJoin returns a join of the given kind.
func NewJoin(kind JoinKind, left, right Node) *Join {
	return &Join{Kind: kind, Left: left, Right: right}
}

// OnCond returns a copy of the join with the ON condition set.
func (j *Join) OnCond(cond Node) *Join {
	cp := *j
	cp.On = cond
	return &cp
}

// OnColumns returns a copy of the join with an "ON c1 = c2" condition.
func (j *Join) OnColumns(c1, c2 string) *Join { return j.OnCond(ColumnsEQ(c1, c2)) }

// UsingColumns returns a copy of the join with a USING list.
func (j *Join) UsingColumns(cols ...string) *Join {
	cp := *j
	cp.Using = cols
	return &cp
}

// Qualify is the QUALIFY clause filtering on window function results.
type Qualify struct {
	Cond Node
}

// LockMode is the row lock strength.
type LockMode uint8

// Lock strengths.
const (
	LockUpdate LockMode = iota
	LockShare
)

// LockWait is the lock wait policy.
type LockWait uint8

// Lock wait policies.
const (
	WaitDefault LockWait = iota
	WaitNowait
	WaitSkipLocked
)

// ForUpdate is the row locking clause.
type ForUpdate struct {
	Mode LockMode
	Of   []string
	Wait LockWait
}

// Table references a table, optionally schema-qualified and aliased.
type Table struct {
	Name   string
	Schema string
	Alias  string
}

// T returns a table reference. A qualified name ("public.users") is split
// into its schema and table parts.
func T(name string) *Table {
	c := C(name)
	return &Table{Name: c.Name, Schema: c.Table}
}

// As returns a copy of the table with the given alias.
func (t *Table) As(alias string) *Table {
	cp := *t
	cp.Alias = alias
	return &cp
}

// C returns a column of the table, qualified by its alias or name.
func (t *Table) C(col string) *Column {
	return &Column{Name: col, Table: t.ref()}
}

func (t *Table) ref() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// Subquery is a parenthesized query used as a source or operand.
// Query may be a RawSQL fragment.
type Subquery struct {
	Query Node
	Alias string
}

// Sub returns a subquery with the given alias.
func Sub(q Node, alias string) *Subquery { return &Subquery{Query: q, Alias: alias} }

// C returns a column of the subquery, qualified by its alias.
func (s *Subquery) C(col string) *Column { return &Column{Name: col, Table: s.Alias} }

// MaterializedMode controls the materialization hint of a CTE.
type MaterializedMode uint8

// CTE materialization hints.
const (
	MaterializedDefault MaterializedMode = iota
	Materialized
	NotMaterialized
)

// CTE is one common table expression of a WITH query.
type CTE struct {
	Name         string
	Query        Node
	Columns      []string
	Recursive    bool
	Materialized MaterializedMode
}

// NewCTE returns a common table expression.
func NewCTE(name string, q Node, cols ...string) *CTE {
	return &CTE{Name: name, Query: q, Columns: cols}
}

// WithRecursive returns a copy of the CTE marked recursive.
func (c *CTE) WithRecursive() *CTE {
	cp := *c
	cp.Recursive = true
	return &cp
}

// WithMaterialized returns a copy of the CTE with the materialization hint.
func (c *CTE) WithMaterialized(m MaterializedMode) *CTE {
	cp := *c
	cp.Materialized = m
	return &cp
}

// WithQuery is "WITH cte, ... main".
type WithQuery struct {
	CTEs  []*CTE
	Query Node
}

// With returns a WITH query over the main query.
func With(main Node, ctes ...*CTE) *WithQuery { return &WithQuery{CTEs: ctes, Query: main} }

// Values is a VALUES row constructor. With an alias it renders as a
// derived table: (VALUES ...) AS "v" ("a", "b").
type Values struct {
	Rows    [][]Node
	Alias   string
	Columns []string
}

// ValuesOf returns a VALUES node from rows of Go values or nodes.
func ValuesOf(rows ...[]any) *Values {
	v := &Values{}
	for _, r := range rows {
		v.Rows = append(v.Rows, toNodes(r))
	}
	return v
}

// As returns a copy of the VALUES node aliased with the given column names.
func (v *Values) As(alias string, cols ...string) *Values {
	cp := *v
	cp.Alias, cp.Columns = alias, cols
	return &cp
}

// TableFunction is a table-valued function call in FROM.
type TableFunction struct {
	Name    string
	Args    []Node
	Alias   string
	Columns []string
}

// TableFunc returns a table function node.
func TableFunc(name string, args ...any) *TableFunction {
	return &TableFunction{Name: name, Args: toNodes(args)}
}

// As returns a copy of the table function with an alias and column names.
func (t *TableFunction) As(alias string, cols ...string) *TableFunction {
	cp := *t
	cp.Alias, cp.Columns = alias, cols
	return &cp
}

// Lateral is a LATERAL derived table. With a JoinKind it renders as a
// join item: "LEFT JOIN LATERAL (...) AS x ON 1 = 1".
type Lateral struct {
	Inner    Node
	Alias    string
	JoinKind JoinKind
}

// SetOpKind is a set operation.
type SetOpKind string

// Set operations.
const (
	SetUnion     SetOpKind = "UNION"
	SetIntersect SetOpKind = "INTERSECT"
	SetExcept    SetOpKind = "EXCEPT"
)

// SetOperation combines two queries. With an alias the whole operation is
// parenthesized as a derived table.
type SetOperation struct {
	Kind        SetOpKind
	Left, Right Node
	All         bool
	Alias       string
}

// Union returns "left UNION right".
func Union(left, right Node) *SetOperation {
	return &SetOperation{Kind: SetUnion, Left: left, Right: right}
}

// UnionAll returns "left UNION ALL right".
func UnionAll(left, right Node) *SetOperation {
	return &SetOperation{Kind: SetUnion, Left: left, Right: right, All: true}
}

// Intersect returns "left INTERSECT right".
func Intersect(left, right Node) *SetOperation {
	return &SetOperation{Kind: SetIntersect, Left: left, Right: right}
}

// Except returns "left EXCEPT right".
func Except(left, right Node) *SetOperation {
	return &SetOperation{Kind: SetExcept, Left: left, Right: right}
}

// JSONTableColumn is one column of a JSON_TABLE.
type JSONTableColumn struct {
	Name string
	Type string
	Path string
}

// JSONTable is JSON_TABLE(source, 'path' COLUMNS (...)). Paths are written
// inline as string literals.
type JSONTable struct {
	Source  Node
	Path    string
	Columns []JSONTableColumn
	Alias   string
}

func (n *Where) Render(d *Dialect) (string, []any, error)         { return d.Format(n) }
func (n *Rollup) Render(d *Dialect) (string, []any, error)        { return d.Format(n) }
func (n *Cube) Render(d *Dialect) (string, []any, error)          { return d.Format(n) }
func (n *GroupingSets) Render(d *Dialect) (string, []any, error)  { return d.Format(n) }
func (n *GroupByHaving) Render(d *Dialect) (string, []any, error) { return d.Format(n) }
func (n *OrderItem) Render(d *Dialect) (string, []any, error)     { return d.Format(n) }
func (n *OrderBy) Render(d *Dialect) (string, []any, error)       { return d.Format(n) }
func (n *LimitOffset) Render(d *Dialect) (string, []any, error)   { return d.Format(n) }
func (n *Join) Render(d *Dialect) (string, []any, error)          { return d.Format(n) }
func (n *Qualify) Render(d *Dialect) (string, []any, error)       { return d.Format(n) }
func (n *ForUpdate) Render(d *Dialect) (string, []any, error)     { return d.Format(n) }
func (n *Table) Render(d *Dialect) (string, []any, error)         { return d.Format(n) }
func (n *Subquery) Render(d *Dialect) (string, []any, error)      { return d.Format(n) }
func (n *CTE) Render(d *Dialect) (string, []any, error)           { return d.Format(n) }
func (n *WithQuery) Render(d *Dialect) (string, []any, error)     { return d.Format(n) }
func (n *Values) Render(d *Dialect) (string, []any, error)        { return d.Format(n) }
func (n *TableFunction) Render(d *Dialect) (string, []any, error) { return d.Format(n) }
func (n *Lateral) Render(d *Dialect) (string, []any, error)       { return d.Format(n) }
func (n *SetOperation) Render(d *Dialect) (string, []any, error)  { return d.Format(n) }
func (n *JSONTable) Render(d *Dialect) (string, []any, error)     { return d.Format(n) }

func (*Where) sqlNode()         {}
func (*Rollup) sqlNode()        {}
func (*Cube) sqlNode()          {}
func (*GroupingSets) sqlNode()  {}
func (*GroupByHaving) sqlNode() {}
func (*OrderItem) sqlNode()     {}
func (*OrderBy) sqlNode()       {}
func (*LimitOffset) sqlNode()   {}
func (*Join) sqlNode()          {}
func (*Qualify) sqlNode()       {}
func (*ForUpdate) sqlNode()     {}
func (*Table) sqlNode()         {}
func (*Subquery) sqlNode()      {}
func (*CTE) sqlNode()           {}
func (*WithQuery) sqlNode()     {}
func (*Values) sqlNode()        {}
func (*TableFunction) sqlNode() {}
func (*Lateral) sqlNode()       {}
func (*SetOperation) sqlNode()  {}
func (*JSONTable) sqlNode()     {}
