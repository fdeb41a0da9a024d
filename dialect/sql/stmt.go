package sql

// appendTo appends to a full-capacity view of dst, so a derived statement
// never shares a backing array with the statement it was copied from.
func appendTo[T any](dst []T, vs ...T) []T {
	return append(dst[:len(dst):len(dst)], vs...)
}

// namedWindow is a WINDOW clause entry.
type namedWindow struct {
	name string
	spec *WindowSpec
}

// SelectStmt is a SELECT statement. Every method returns a modified copy;
// a SelectStmt is never changed after it is built.
type SelectStmt struct {
	distinct   bool
	distinctOn []Node
	columns    []Node
	from       []Node
	where      Node
	group      *GroupByHaving
	windows    []namedWindow
	qualify    Node
	order      []*OrderItem
	limit      *LimitOffset
	lock       *ForUpdate
}

// Select returns a SELECT of the given columns. Strings are column names,
// nodes are used as is. No columns selects "*".
func Select(cols ...any) *SelectStmt {
	s := &SelectStmt{}
	for _, c := range cols {
		if name, ok := c.(string); ok {
			s.columns = append(s.columns, C(name))
			continue
		}
		s.columns = append(s.columns, toNode(c))
	}
	return s
}

func (s *SelectStmt) clone() *SelectStmt {
	cp := *s
	return &cp
}

// Distinct returns a copy selecting distinct rows.
func (s *SelectStmt) Distinct() *SelectStmt {
	cp := s.clone()
	cp.distinct = true
	return cp
}

// DistinctOn returns a copy with a DISTINCT ON (exprs) modifier.
func (s *SelectStmt) DistinctOn(exprs ...Node) *SelectStmt {
	cp := s.clone()
	cp.distinctOn = appendTo(s.distinctOn, exprs...)
	return cp
}

// Columns returns a copy with the additional select-list expressions.
func (s *SelectStmt) Columns(exprs ...Node) *SelectStmt {
	cp := s.clone()
	cp.columns = appendTo(s.columns, exprs...)
	return cp
}

// From returns a copy with the additional FROM items.
func (s *SelectStmt) From(srcs ...Node) *SelectStmt {
	cp := s.clone()
	cp.from = appendTo(s.from, srcs...)
	return cp
}

// Join returns a copy joining the last FROM item with right. Without a
// FROM item the join has no left operand and fails to render.
func (s *SelectStmt) Join(kind JoinKind, right, on Node) *SelectStmt {
	if len(s.from) == 0 {
		return s.From(&Join{Right: right, Kind: kind, On: on})
	}
	cp := s.clone()
	last := len(s.from) - 1
	cp.from = appendTo(s.from[:last], Node(&Join{Left: s.from[last], Right: right, Kind: kind, On: on}))
	return cp
}

// LeftJoin is shorthand for Join(JoinLeft, right, on).
func (s *SelectStmt) LeftJoin(right, on Node) *SelectStmt { return s.Join(JoinLeft, right, on) }

// Where returns a copy with the conditions ANDed to the WHERE clause.
func (s *SelectStmt) Where(conds ...Node) *SelectStmt {
	cp := s.clone()
	cp.where = andWhere(s.where, conds)
	return cp
}

// GroupBy returns a copy grouped by the given items.
func (s *SelectStmt) GroupBy(items ...Node) *SelectStmt {
	cp := s.clone()
	g := &GroupByHaving{}
	if s.group != nil {
		*g = *s.group
	}
	g.Items = appendTo(g.Items, items...)
	cp.group = g
	return cp
}

// Having returns a copy with the HAVING condition.
func (s *SelectStmt) Having(cond Node) *SelectStmt {
	cp := s.clone()
	g := &GroupByHaving{}
	if s.group != nil {
		*g = *s.group
	}
	g.Having = cond
	cp.group = g
	return cp
}

// Window returns a copy declaring the named window.
func (s *SelectStmt) Window(name string, spec *WindowSpec) *SelectStmt {
	cp := s.clone()
	cp.windows = appendTo(s.windows, namedWindow{name: name, spec: spec})
	return cp
}

// Qualify returns a copy with the QUALIFY condition.
func (s *SelectStmt) Qualify(cond Node) *SelectStmt {
	cp := s.clone()
	cp.qualify = cond
	return cp
}

// OrderBy returns a copy with the additional order terms.
func (s *SelectStmt) OrderBy(items ...*OrderItem) *SelectStmt {
	cp := s.clone()
	cp.order = appendTo(s.order, items...)
	return cp
}

// Limit returns a copy limited to n rows.
func (s *SelectStmt) Limit(n int) *SelectStmt {
	cp := s.clone()
	if s.limit == nil {
		cp.limit = Limit(n)
	} else {
		cp.limit = s.limit.WithLimit(n)
	}
	return cp
}

// Offset returns a copy skipping n rows.
func (s *SelectStmt) Offset(n int) *SelectStmt {
	cp := s.clone()
	if s.limit == nil {
		cp.limit = Offset(n)
	} else {
		cp.limit = s.limit.WithOffset(n)
	}
	return cp
}

// Lock returns a copy with the row locking clause.
func (s *SelectStmt) Lock(l *ForUpdate) *SelectStmt {
	cp := s.clone()
	cp.lock = l
	return cp
}

// ForUpdate returns a copy locking the selected rows for update.
func (s *SelectStmt) ForUpdate() *SelectStmt { return s.Lock(&ForUpdate{Mode: LockUpdate}) }

// ForShare returns a copy locking the selected rows in share mode.
func (s *SelectStmt) ForShare() *SelectStmt { return s.Lock(&ForUpdate{Mode: LockShare}) }

// andWhere ANDs conds to an existing condition.
func andWhere(where Node, conds []Node) Node {
	all := conds
	if where != nil {
		all = append([]Node{where}, conds...)
	}
	switch len(all) {
	case 0:
		return nil
	case 1:
		return all[0]
	default:
		return And(all...)
	}
}

// Assignment is one "column = value" pair of an UPDATE or upsert.
type Assignment struct {
	Column string
	Value  Node
}

// Set returns an assignment. Non-node values are bound as literals.
func Set(col string, v any) Assignment { return Assignment{Column: col, Value: toNode(v)} }

// Excluded references the value proposed for insertion in an upsert:
// EXCLUDED."c" for ON CONFLICT and VALUES(`c`) for ON DUPLICATE KEY UPDATE.
type Excluded struct {
	Column string
}

// SetExcluded returns assignments overwriting each column with its
// proposed value.
func SetExcluded(cols ...string) []Assignment {
	as := make([]Assignment, len(cols))
	for i, c := range cols {
		as[i] = Assignment{Column: c, Value: &Excluded{Column: c}}
	}
	return as
}

// OnConflict is the conflict resolution of an INSERT. It renders as the
// upsert syntax of the dialect.
type OnConflict struct {
	Target    []string
	DoNothing bool
	Updates   []Assignment
	Where     Node
}

// DoNothing returns a conflict resolution ignoring conflicting rows.
func DoNothing(target ...string) *OnConflict {
	return &OnConflict{Target: target, DoNothing: true}
}

// DoUpdate returns a conflict resolution updating conflicting rows.
func DoUpdate(target []string, sets ...Assignment) *OnConflict {
	return &OnConflict{Target: target, Updates: sets}
}

// ReturningClause is the RETURNING suffix of a data-modifying statement.
// Alias names the new row (RETURNING WITH (NEW AS alias)).
type ReturningClause struct {
	Exprs []Node
	Alias string
}

// Returning returns a RETURNING clause. Strings are column names.
func Returning(exprs ...any) *ReturningClause {
	r := &ReturningClause{}
	for _, e := range exprs {
		if name, ok := e.(string); ok {
			r.Exprs = append(r.Exprs, C(name))
			continue
		}
		r.Exprs = append(r.Exprs, toNode(e))
	}
	return r
}

// InsertStmt is an INSERT statement. Exactly one of rows, select query or
// default values must be provided; this is checked at render time.
type InsertStmt struct {
	table     *Table
	columns   []string
	rows      [][]Node
	query     Node
	defaults  bool
	conflict  *OnConflict
	returning *ReturningClause
}

// Insert returns an INSERT into the table.
func Insert(table string) *InsertStmt { return &InsertStmt{table: T(table)} }

func (i *InsertStmt) clone() *InsertStmt {
	cp := *i
	return &cp
}

// Columns returns a copy with the insert columns.
func (i *InsertStmt) Columns(cols ...string) *InsertStmt {
	cp := i.clone()
	cp.columns = appendTo(i.columns, cols...)
	return cp
}

// Values returns a copy with an additional row. Non-node values are bound
// as literals.
func (i *InsertStmt) Values(vs ...any) *InsertStmt {
	cp := i.clone()
	cp.rows = appendTo(i.rows, toNodes(vs))
	return cp
}

// Select returns a copy inserting the rows of the query.
func (i *InsertStmt) Select(q Node) *InsertStmt {
	cp := i.clone()
	cp.query = q
	return cp
}

// DefaultValues returns a copy inserting a single row of defaults.
func (i *InsertStmt) DefaultValues() *InsertStmt {
	cp := i.clone()
	cp.defaults = true
	return cp
}

// OnConflict returns a copy with the conflict resolution.
func (i *InsertStmt) OnConflict(oc *OnConflict) *InsertStmt {
	cp := i.clone()
	cp.conflict = oc
	return cp
}

// Returning returns a copy with the RETURNING clause.
func (i *InsertStmt) Returning(r *ReturningClause) *InsertStmt {
	cp := i.clone()
	cp.returning = r
	return cp
}

// Validate checks the data source configuration of the statement.
func (i *InsertStmt) Validate() error {
	b := Builder{}
	i.validate(&b)
	return b.Err()
}

func (i *InsertStmt) validate(b *Builder) bool {
	forms := 0
	if len(i.rows) > 0 {
		forms++
	}
	if i.query != nil {
		forms++
	}
	if i.defaults {
		forms++
	}
	switch {
	case i.table == nil || i.table.Name == "":
		return b.Fail("INSERT", "missing table")
	case forms == 0:
		return b.Fail("INSERT", "At least one of values/select/default must be provided")
	case forms > 1:
		return b.Fail("INSERT", "Only one of values/select/default may be provided")
	case i.defaults && len(i.columns) > 0:
		return b.Fail("INSERT", "Default values cannot be combined with explicit columns")
	}
	width := len(i.columns)
	if width == 0 && len(i.rows) > 0 {
		width = len(i.rows[0])
	}
	for n, row := range i.rows {
		if len(row) != width {
			return b.Fail("INSERT", "row %d has %d values, expected %d", n, len(row), width)
		}
	}
	return true
}

// UpdateStmt is an UPDATE statement.
type UpdateStmt struct {
	table     *Table
	sets      []Assignment
	where     Node
	returning *ReturningClause
}

// Update returns an UPDATE of the table.
func Update(table string) *UpdateStmt { return &UpdateStmt{table: T(table)} }

func (u *UpdateStmt) clone() *UpdateStmt {
	cp := *u
	return &cp
}

// Set returns a copy with an additional assignment.
func (u *UpdateStmt) Set(col string, v any) *UpdateStmt {
	cp := u.clone()
	cp.sets = appendTo(u.sets, Set(col, v))
	return cp
}

// Where returns a copy with the conditions ANDed to the WHERE clause.
func (u *UpdateStmt) Where(conds ...Node) *UpdateStmt {
	cp := u.clone()
	cp.where = andWhere(u.where, conds)
	return cp
}

// Returning returns a copy with the RETURNING clause.
func (u *UpdateStmt) Returning(r *ReturningClause) *UpdateStmt {
	cp := u.clone()
	cp.returning = r
	return cp
}

// DeleteStmt is a DELETE statement.
type DeleteStmt struct {
	table     *Table
	where     Node
	returning *ReturningClause
}

// Delete returns a DELETE from the table.
func Delete(table string) *DeleteStmt { return &DeleteStmt{table: T(table)} }

// Where returns a copy with the conditions ANDed to the WHERE clause.
func (d *DeleteStmt) Where(conds ...Node) *DeleteStmt {
	cp := *d
	cp.where = andWhere(d.where, conds)
	return &cp
}

// Returning returns a copy with the RETURNING clause.
func (d *DeleteStmt) Returning(r *ReturningClause) *DeleteStmt {
	cp := *d
	cp.returning = r
	return &cp
}

// Explain wraps a statement in the EXPLAIN form of the dialect.
type Explain struct {
	Statement Node
	Analyze   bool
	Verbose   bool
	Format    string
}

// DropTable is DROP TABLE [IF EXISTS].
type DropTable struct {
	Table    *Table
	IfExists bool
}

// Drop returns a DROP TABLE statement.
func Drop(name string, ifExists bool) *DropTable {
	return &DropTable{Table: T(name), IfExists: ifExists}
}

func (n *SelectStmt) Render(d *Dialect) (string, []any, error)      { return d.Format(n) }
func (n *InsertStmt) Render(d *Dialect) (string, []any, error)      { return d.Format(n) }
func (n *UpdateStmt) Render(d *Dialect) (string, []any, error)      { return d.Format(n) }
func (n *DeleteStmt) Render(d *Dialect) (string, []any, error)      { return d.Format(n) }
func (n *ReturningClause) Render(d *Dialect) (string, []any, error) { return d.Format(n) }
func (n *Excluded) Render(d *Dialect) (string, []any, error)        { return d.Format(n) }
func (n *OnConflict) Render(d *Dialect) (string, []any, error)      { return d.Format(n) }
func (n *Explain) Render(d *Dialect) (string, []any, error)         { return d.Format(n) }
func (n *DropTable) Render(d *Dialect) (string, []any, error)       { return d.Format(n) }

func (*SelectStmt) sqlNode()      {}
func (*InsertStmt) sqlNode()      {}
func (*UpdateStmt) sqlNode()      {}
func (*DeleteStmt) sqlNode()      {}
func (*ReturningClause) sqlNode() {}
func (*Excluded) sqlNode()        {}
func (*OnConflict) sqlNode()      {}
func (*Explain) sqlNode()         {}
func (*DropTable) sqlNode()       {}
