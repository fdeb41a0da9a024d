package sql

import (
	"strings"
)

func (d *Dialect) writeSelect(b *Builder, n *SelectStmt) {
	b.WriteString("SELECT ")
	switch {
	case len(n.distinctOn) > 0:
		if !b.Require(FeatureDistinctOn) {
			return
		}
		b.WriteString("DISTINCT ON ").Wrap(func(b *Builder) { b.operands(n.distinctOn) }).Pad()
	case n.distinct:
		b.WriteString("DISTINCT ")
	}
	if len(n.columns) == 0 {
		b.WriteByte('*')
	} else {
		b.operands(n.columns)
	}
	if len(n.from) > 0 {
		b.WriteString(" FROM ")
		for i, item := range n.from {
			if i > 0 {
				if l, ok := item.(*Lateral); ok && l.JoinKind != "" {
					b.Pad()
				} else {
					b.WriteString(", ")
				}
			}
			d.writeFromItem(b, item)
		}
	} else if d.syn.fromDual {
		b.WriteString(" FROM DUAL")
	}
	if n.where != nil {
		b.Pad().Node(&Where{Cond: n.where})
	}
	if n.group != nil {
		b.Pad().Node(n.group)
	}
	if len(n.windows) > 0 {
		if !b.Require(FeatureWindowFunctions) {
			return
		}
		b.WriteString(" WINDOW ").Join(", ", len(n.windows), func(i int) {
			w := n.windows[i]
			b.Ident(w.name).WriteString(" AS ").Wrap(func(b *Builder) { d.writeWindowSpec(b, w.spec) })
		})
	}
	if n.qualify != nil {
		b.Pad().Node(&Qualify{Cond: n.qualify})
	}
	switch {
	case len(n.order) > 0:
		b.Pad().Node(&OrderBy{Items: n.order})
	case !n.limit.empty() && d.syn.fetchNeedsOffset:
		b.WriteString(" ORDER BY (SELECT NULL)")
	}
	if !n.limit.empty() {
		b.Pad().Node(n.limit)
	}
	if n.lock != nil {
		b.Pad().Node(n.lock)
	}
}

// assignments writes "col" = value pairs.
func (b *Builder) assignments(as []Assignment) *Builder {
	return b.Join(", ", len(as), func(i int) {
		a := as[i]
		if a.Column == "" || a.Value == nil {
			b.Fail("SET", "assignment requires a column and a value")
			return
		}
		b.Ident(a.Column).WriteString(" = ").operand(a.Value)
	})
}

func (d *Dialect) writeInsert(b *Builder, n *InsertStmt) {
	if !n.validate(b) {
		return
	}
	b.WriteString("INSERT INTO ").Node(n.table)
	if len(n.columns) > 0 {
		b.Pad().Wrap(func(b *Builder) { b.idents(n.columns) })
	}
	switch {
	case n.defaults:
		if !b.Require(FeatureDefaultValues) {
			return
		}
		if d.syn.emptyDefaults {
			b.WriteString(" () VALUES ()")
		} else {
			b.WriteString(" DEFAULT VALUES")
		}
	case n.query != nil:
		b.Pad().Node(n.query)
	default:
		if len(n.rows) > 1 && !b.Require(FeatureMultiRowInsert) {
			return
		}
		b.WriteString(" VALUES ").Join(", ", len(n.rows), func(i int) {
			b.Wrap(func(b *Builder) { b.operands(n.rows[i]) })
		})
	}
	if n.conflict != nil {
		b.Pad().Node(n.conflict)
	}
	if n.returning != nil {
		b.Pad().Node(n.returning)
	}
}

func (d *Dialect) writeOnConflict(b *Builder, n *OnConflict) {
	if n.DoNothing && len(n.Updates) > 0 {
		b.Fail("UPSERT", "DO NOTHING and updates are mutually exclusive")
		return
	}
	switch d.caps.UpsertSyntax() {
	case UpsertOnConflict:
		b.WriteString("ON CONFLICT")
		if len(n.Target) > 0 {
			b.Pad().Wrap(func(b *Builder) { b.idents(n.Target) })
		}
		if len(n.Updates) == 0 {
			b.WriteString(" DO NOTHING")
			return
		}
		if len(n.Target) == 0 {
			b.Fail("ON CONFLICT", "DO UPDATE requires a conflict target")
			return
		}
		b.WriteString(" DO UPDATE SET ").assignments(n.Updates)
		if n.Where != nil {
			b.WriteString(" WHERE ").Node(n.Where)
		}
	case UpsertOnDuplicateKey:
		if n.Where != nil {
			b.AddError(d.unsupportedName("ON DUPLICATE KEY UPDATE ... WHERE", ""))
			return
		}
		b.WriteString("ON DUPLICATE KEY UPDATE ")
		if len(n.Updates) > 0 {
			b.assignments(n.Updates)
			return
		}
		if len(n.Target) == 0 {
			b.Fail("ON DUPLICATE KEY UPDATE", "DO NOTHING requires a conflict target column")
			return
		}
		b.Ident(n.Target[0]).WriteString(" = ").Ident(n.Target[0])
	case UpsertMerge:
		b.AddError(d.unsupported(FeatureUpsert, "use MERGE"))
	default:
		b.AddError(d.unsupported(FeatureUpsert, ""))
	}
}

func (d *Dialect) writeExcluded(b *Builder, n *Excluded) {
	if n.Column == "" {
		b.Fail("EXCLUDED", "missing column name")
		return
	}
	switch d.caps.UpsertSyntax() {
	case UpsertOnConflict:
		b.WriteString("EXCLUDED.").Ident(n.Column)
	case UpsertOnDuplicateKey:
		b.WriteString("VALUES(").Ident(n.Column).WriteByte(')')
	default:
		b.AddError(d.unsupported(FeatureUpsert, ""))
	}
}

func (d *Dialect) writeReturning(b *Builder, n *ReturningClause) {
	if !b.Require(FeatureReturning) {
		return
	}
	if len(n.Exprs) == 0 {
		b.Fail("RETURNING", "requires at least one expression")
		return
	}
	b.WriteString("RETURNING ")
	if n.Alias != "" {
		if !b.Require(FeatureReturningAlias) {
			return
		}
		b.WriteString("WITH (NEW AS ").Ident(n.Alias).WriteString(") ")
	}
	b.operands(n.Exprs)
}

func (d *Dialect) writeUpdate(b *Builder, n *UpdateStmt) {
	if n.table == nil || n.table.Name == "" {
		b.Fail("UPDATE", "missing table")
		return
	}
	if len(n.sets) == 0 {
		b.Fail("UPDATE", "requires at least one assignment")
		return
	}
	b.WriteString("UPDATE ").Node(n.table).WriteString(" SET ").assignments(n.sets)
	if n.where != nil {
		b.Pad().Node(&Where{Cond: n.where})
	}
	if n.returning != nil {
		if !b.Require(FeatureUpdateReturning) {
			return
		}
		b.Pad().Node(n.returning)
	}
}

func (d *Dialect) writeDelete(b *Builder, n *DeleteStmt) {
	if n.table == nil || n.table.Name == "" {
		b.Fail("DELETE", "missing table")
		return
	}
	b.WriteString("DELETE FROM ").Node(n.table)
	if n.where != nil {
		b.Pad().Node(&Where{Cond: n.where})
	}
	if n.returning != nil {
		b.Pad().Node(n.returning)
	}
}

// validExplainFormat reports whether f is a bare keyword.
func validExplainFormat(f string) bool {
	for _, r := range f {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return f != ""
}

func (d *Dialect) writeExplain(b *Builder, n *Explain) {
	if !b.Require(FeatureExplain) {
		return
	}
	if n.Statement == nil {
		b.Fail("EXPLAIN", "missing statement")
		return
	}
	if n.Analyze && !b.Require(FeatureExplainAnalyze) {
		return
	}
	if n.Verbose && !b.Require(FeatureExplainVerbose) {
		return
	}
	format := strings.ToUpper(n.Format)
	if format != "" {
		if !b.Require(FeatureExplainFormat) {
			return
		}
		if !validExplainFormat(format) {
			b.Fail("EXPLAIN", "invalid format %q", n.Format)
			return
		}
	}
	switch d.syn.explain {
	case explainOptions:
		var opts []string
		if n.Analyze {
			opts = append(opts, "ANALYZE")
		}
		if n.Verbose {
			opts = append(opts, "VERBOSE")
		}
		if format != "" {
			opts = append(opts, "FORMAT "+format)
		}
		b.WriteString("EXPLAIN ")
		if len(opts) > 0 {
			b.WriteString("(" + strings.Join(opts, ", ") + ") ")
		}
	case explainMySQL:
		b.WriteString("EXPLAIN ")
		if n.Analyze {
			b.WriteString("ANALYZE ")
		}
		if format != "" {
			b.WriteString("FORMAT=" + format + " ")
		}
	case explainQueryPlan:
		b.WriteString("EXPLAIN QUERY PLAN ")
	case explainPlanFor:
		b.WriteString("EXPLAIN PLAN FOR ")
	default:
		b.WriteString("EXPLAIN ")
		if n.Analyze {
			b.WriteString("ANALYZE ")
		}
	}
	b.Node(n.Statement)
}

func (d *Dialect) writeDropTable(b *Builder, n *DropTable) {
	if n.Table == nil || n.Table.Name == "" {
		b.Fail("DROP TABLE", "missing table")
		return
	}
	b.WriteString("DROP TABLE ")
	if n.IfExists {
		if !b.Require(FeatureDropTableIfExists) {
			return
		}
		b.WriteString("IF EXISTS ")
	}
	b.Node(&Table{Name: n.Table.Name, Schema: n.Table.Schema})
}

func (d *Dialect) writeMerge(b *Builder, n *MergeStmt) {
	if !b.Require(FeatureMerge) {
		return
	}
	switch {
	case n.target == nil:
		b.Fail("MERGE", "missing target table")
		return
	case n.source == nil:
		b.Fail("MERGE", "missing source")
		return
	case n.on == nil:
		b.Fail("MERGE", "missing ON condition")
		return
	case len(n.matched)+len(n.notMatched)+len(n.bySource) == 0:
		b.Fail("MERGE", "requires at least one WHEN clause")
		return
	}
	if len(n.bySource) > 0 && !b.Require(FeatureMergeNotMatchedBySource) {
		return
	}
	blocks := []struct {
		when    string
		actions []*MergeAction
		allowed func(MergeKind) bool
	}{
		{"WHEN MATCHED", n.matched, func(k MergeKind) bool { return k == MergeUpdate || k == MergeDelete }},
		{"WHEN NOT MATCHED", n.notMatched, func(k MergeKind) bool { return k == MergeInsert }},
		{"WHEN NOT MATCHED BY SOURCE", n.bySource, func(k MergeKind) bool { return k == MergeUpdate || k == MergeDelete }},
	}
	for _, blk := range blocks {
		for _, a := range blk.actions {
			if a == nil || !blk.allowed(a.Kind) {
				b.Fail("MERGE", "invalid action for %s", blk.when)
				return
			}
		}
	}
	b.WriteString("MERGE INTO ").Node(n.target).WriteString(" USING ")
	d.writeFromItem(b, n.source)
	b.WriteString(" ON ")
	if d.syn.mergeWhere {
		b.Wrap(func(b *Builder) { b.Node(n.on) })
	} else {
		b.Node(n.on)
	}
	alias := n.sourceAlias()
	for _, blk := range blocks {
		for _, a := range blk.actions {
			b.WriteString(" " + blk.when)
			if a.Cond != nil && !d.syn.mergeWhere {
				b.WriteString(" AND ").Node(a.Cond)
			}
			b.WriteString(" THEN ")
			d.writeMergeAction(b, a, alias)
		}
	}
	b.WriteString(d.syn.mergeTerminator)
}

// writeMergeAction writes the action of a WHEN block. Source columns of an
// INSERT without explicit values are qualified by alias.
func (d *Dialect) writeMergeAction(b *Builder, a *MergeAction, alias string) {
	switch a.Kind {
	case MergeUpdate:
		if len(a.Assignments) == 0 {
			b.Fail("MERGE", "UPDATE action requires at least one assignment")
			return
		}
		b.WriteString("UPDATE SET ").assignments(a.Assignments)
	case MergeInsert:
		if len(a.Columns) == 0 {
			b.Fail("MERGE", "INSERT action requires columns")
			return
		}
		values := a.Values
		if len(values) == 0 {
			if alias == "" {
				b.Fail("MERGE", "INSERT action without values requires a source alias")
				return
			}
			for _, c := range a.Columns {
				values = append(values, &Column{Name: c, Table: alias})
			}
		}
		if len(values) != len(a.Columns) {
			b.Fail("MERGE", "INSERT action has %d values for %d columns", len(values), len(a.Columns))
			return
		}
		b.WriteString("INSERT ").Wrap(func(b *Builder) { b.idents(a.Columns) })
		b.WriteString(" VALUES ").Wrap(func(b *Builder) { b.operands(values) })
	case MergeDelete:
		if d.syn.mergeWhere {
			b.AddError(d.unsupportedName("MERGE DELETE", ""))
			return
		}
		b.WriteString("DELETE")
	default:
		b.Fail("MERGE", "unsupported action %q", a.Kind)
		return
	}
	if a.Cond != nil && d.syn.mergeWhere {
		b.WriteString(" WHERE ").Node(a.Cond)
	}
}

// writeGraphElement writes "var IS "label"" inside a vertex or edge.
func (d *Dialect) writeGraphElement(b *Builder, variable, label string) {
	if variable != "" && !isValidIdentifier(variable) {
		b.Fail("MATCH", "invalid pattern variable %q", variable)
		return
	}
	b.WriteString(variable)
	if label != "" {
		if variable != "" {
			b.Pad()
		}
		b.WriteString("IS ").Ident(label)
	}
}

func (d *Dialect) writeVertex(b *Builder, n *Vertex) {
	if !b.Require(FeatureGraphMatch) {
		return
	}
	b.Wrap(func(b *Builder) { d.writeGraphElement(b, n.Var, n.Label) })
}

func (d *Dialect) writeEdge(b *Builder, n *Edge) {
	if !b.Require(FeatureGraphMatch) {
		return
	}
	var left, right string
	switch n.Direction {
	case DirRight:
		left, right = "-[", "]->"
	case DirLeft:
		left, right = "<-[", "]-"
	case DirAny:
		left, right = "<-[", "]->"
	case DirNone:
		left, right = "-[", "]-"
	default:
		b.Fail("MATCH", "unsupported edge direction %d", n.Direction)
		return
	}
	b.WriteString(left)
	d.writeGraphElement(b, n.Var, n.Label)
	b.WriteString(right)
}

func (d *Dialect) writeMatch(b *Builder, n *MatchClause) {
	if !b.Require(FeatureGraphMatch) {
		return
	}
	if len(n.Path)%2 == 0 {
		b.Fail("MATCH", "path must alternate vertices and edges, starting and ending with a vertex")
		return
	}
	for i, e := range n.Path {
		_, vertex := e.(*Vertex)
		_, edge := e.(*Edge)
		if i%2 == 0 && !vertex || i%2 == 1 && !edge {
			b.Fail("MATCH", "path must alternate vertices and edges, starting and ending with a vertex")
			return
		}
	}
	b.WriteString("MATCH ")
	Nodes(b, "", n.Path)
}
