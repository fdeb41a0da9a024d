package sql

// MergeKind is the action of a MERGE block.
type MergeKind string

// MERGE actions.
const (
	MergeUpdate MergeKind = "UPDATE"
	MergeInsert MergeKind = "INSERT"
	MergeDelete MergeKind = "DELETE"
)

// MergeAction is the action of one WHEN block of a MERGE statement.
// An INSERT without explicit values takes each column from the source
// alias.
type MergeAction struct {
	Kind        MergeKind
	Assignments []Assignment
	Columns     []string
	Values      []Node
	Cond        Node
}

// UpdateSet returns an UPDATE SET action.
func UpdateSet(sets ...Assignment) *MergeAction {
	return &MergeAction{Kind: MergeUpdate, Assignments: sets}
}

// InsertColumns returns an INSERT action on the given columns.
func InsertColumns(cols ...string) *MergeAction {
	return &MergeAction{Kind: MergeInsert, Columns: cols}
}

// DeleteRow returns a DELETE action.
func DeleteRow() *MergeAction { return &MergeAction{Kind: MergeDelete} }

// When returns a copy of the action guarded by an additional condition.
func (a *MergeAction) When(cond Node) *MergeAction {
	cp := *a
	cp.Cond = cond
	return &cp
}

// WithValues returns a copy of the INSERT action with explicit values.
func (a *MergeAction) WithValues(vs ...any) *MergeAction {
	cp := *a
	cp.Values = toNodes(vs)
	return &cp
}

// MergeStmt is a MERGE statement. WHEN blocks render in the order
// MATCHED, NOT MATCHED, NOT MATCHED BY SOURCE.
type MergeStmt struct {
	target     *Table
	source     Node
	on         Node
	matched    []*MergeAction
	notMatched []*MergeAction
	bySource   []*MergeAction
}

// Merge returns a MERGE into the target table.
func Merge(target *Table) *MergeStmt { return &MergeStmt{target: target} }

func (m *MergeStmt) clone() *MergeStmt {
	cp := *m
	return &cp
}

// Using returns a copy merging from the source table or subquery.
func (m *MergeStmt) Using(src Node) *MergeStmt {
	cp := m.clone()
	cp.source = src
	return cp
}

// On returns a copy with the join condition.
func (m *MergeStmt) On(cond Node) *MergeStmt {
	cp := m.clone()
	cp.on = cond
	return cp
}

// WhenMatched returns a copy with an additional WHEN MATCHED block.
func (m *MergeStmt) WhenMatched(a *MergeAction) *MergeStmt {
	cp := m.clone()
	cp.matched = appendTo(m.matched, a)
	return cp
}

// WhenNotMatched returns a copy with an additional WHEN NOT MATCHED block.
func (m *MergeStmt) WhenNotMatched(a *MergeAction) *MergeStmt {
	cp := m.clone()
	cp.notMatched = appendTo(m.notMatched, a)
	return cp
}

// WhenNotMatchedBySource returns a copy with an additional
// WHEN NOT MATCHED BY SOURCE block.
func (m *MergeStmt) WhenNotMatchedBySource(a *MergeAction) *MergeStmt {
	cp := m.clone()
	cp.bySource = appendTo(m.bySource, a)
	return cp
}

// sourceAlias returns the name qualifying source columns.
func (m *MergeStmt) sourceAlias() string {
	switch s := m.source.(type) {
	case *Table:
		return s.ref()
	case *Subquery:
		return s.Alias
	case *Values:
		return s.Alias
	}
	return ""
}

func (n *MergeStmt) Render(d *Dialect) (string, []any, error)   { return d.Format(n) }
func (n *MergeAction) Render(d *Dialect) (string, []any, error) { return d.Format(n) }

func (*MergeStmt) sqlNode()   {}
func (*MergeAction) sqlNode() {}
