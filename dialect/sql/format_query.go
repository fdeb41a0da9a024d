package sql

func (d *Dialect) writeWhere(b *Builder, n *Where) {
	if n.Cond == nil {
		b.Fail("WHERE", "missing condition")
		return
	}
	b.WriteString("WHERE ").Node(n.Cond)
}

func (d *Dialect) writeQualify(b *Builder, n *Qualify) {
	if !b.Require(FeatureQualify) {
		return
	}
	if n.Cond == nil {
		b.Fail("QUALIFY", "missing condition")
		return
	}
	b.WriteString("QUALIFY ").Node(n.Cond)
}

func (d *Dialect) writeGroupBy(b *Builder, n *GroupByHaving) {
	if len(n.Items) == 0 && n.Having == nil {
		b.Fail("GROUP BY", "requires grouping items or a HAVING condition")
		return
	}
	if len(n.Items) > 0 {
		b.WriteString("GROUP BY ")
		if r, ok := n.Items[0].(*Rollup); ok && len(n.Items) == 1 && d.syn.withRollup {
			if !b.Require(FeatureRollup) {
				return
			}
			if len(r.Exprs) == 0 {
				b.Fail("ROLLUP", "requires at least one expression")
				return
			}
			b.operands(r.Exprs).WriteString(" WITH ROLLUP")
		} else {
			b.operands(n.Items)
		}
	}
	if n.Having != nil {
		if len(n.Items) > 0 {
			b.Pad()
		}
		b.WriteString("HAVING ").Node(n.Having)
	}
}

func (d *Dialect) writeRollup(b *Builder, n *Rollup) {
	if !b.Require(FeatureRollup) {
		return
	}
	if d.syn.withRollup {
		b.AddError(d.unsupportedName("ROLLUP", "only WITH ROLLUP as the sole GROUP BY item"))
		return
	}
	if len(n.Exprs) == 0 {
		b.Fail("ROLLUP", "requires at least one expression")
		return
	}
	b.WriteString("ROLLUP ").Wrap(func(b *Builder) { b.operands(n.Exprs) })
}

func (d *Dialect) writeCube(b *Builder, n *Cube) {
	if !b.Require(FeatureCube) {
		return
	}
	if len(n.Exprs) == 0 {
		b.Fail("CUBE", "requires at least one expression")
		return
	}
	b.WriteString("CUBE ").Wrap(func(b *Builder) { b.operands(n.Exprs) })
}

func (d *Dialect) writeGroupingSets(b *Builder, n *GroupingSets) {
	if !b.Require(FeatureGroupingSets) {
		return
	}
	if len(n.Sets) == 0 {
		b.Fail("GROUPING SETS", "requires at least one set")
		return
	}
	b.WriteString("GROUPING SETS ").Wrap(func(b *Builder) {
		b.Join(", ", len(n.Sets), func(i int) {
			b.Wrap(func(b *Builder) { b.operands(n.Sets[i]) })
		})
	})
}

func (d *Dialect) writeOrderBy(b *Builder, n *OrderBy) {
	if len(n.Items) == 0 {
		b.Fail("ORDER BY", "requires at least one item")
		return
	}
	b.WriteString("ORDER BY ")
	Nodes(b, ", ", n.Items)
}

// writeLimitOffset writes the row limiting clause. Parameters follow the
// text order: [limit, offset] for LIMIT/OFFSET and [offset, limit] for
// OFFSET/FETCH.
func (d *Dialect) writeLimitOffset(b *Builder, n *LimitOffset) {
	if n.Limit != nil && *n.Limit < 0 {
		b.Fail("LIMIT", "limit must not be negative: %d", *n.Limit)
		return
	}
	if n.Offset != nil && *n.Offset < 0 {
		b.Fail("OFFSET", "offset must not be negative: %d", *n.Offset)
		return
	}
	switch d.syn.limit {
	case offsetFetch:
		offset := true
		switch {
		case n.Offset != nil:
			b.WriteString("OFFSET ").Arg(*n.Offset).WriteString(" ROWS")
		case n.Limit != nil && d.syn.fetchNeedsOffset:
			b.WriteString("OFFSET 0 ROWS")
		default:
			offset = false
		}
		if n.Limit != nil {
			if offset {
				b.WriteString(" FETCH NEXT ")
			} else {
				b.WriteString("FETCH FIRST ")
			}
			b.Arg(*n.Limit).WriteString(" ROWS ONLY")
		}
	default:
		switch {
		case n.Limit != nil:
			b.WriteString("LIMIT ").Arg(*n.Limit)
			if n.Offset != nil {
				b.WriteString(" OFFSET ").Arg(*n.Offset)
			}
		case n.Offset == nil:
		case d.syn.offsetSentinel != nil:
			b.WriteString("LIMIT ").Arg(d.syn.offsetSentinel).WriteString(" OFFSET ").Arg(*n.Offset)
		default:
			b.WriteString("OFFSET ").Arg(*n.Offset)
		}
	}
}

// joinFeature returns the capability a join kind requires.
func joinFeature(k JoinKind) (Feature, bool) {
	switch k {
	case JoinRight:
		return FeatureRightJoin, true
	case JoinFull:
		return FeatureFullJoin, true
	}
	return 0, false
}

func (d *Dialect) writeJoin(b *Builder, n *Join) {
	kind := n.Kind
	if kind == "" {
		kind = JoinInner
	}
	switch kind {
	case JoinInner, JoinLeft, JoinRight, JoinFull, JoinCross:
	default:
		b.Fail("JOIN", "unsupported join kind %q", kind)
		return
	}
	keyword := kind.keyword()
	if n.Natural {
		keyword = "NATURAL " + keyword
	}
	if f, ok := joinFeature(kind); ok && !d.Supports(f) {
		b.AddError(d.unsupportedName(keyword, ""))
		return
	}
	if n.Natural && !d.Supports(FeatureNaturalJoin) {
		b.AddError(d.unsupportedName(keyword, ""))
		return
	}
	switch {
	case n.Left == nil || n.Right == nil:
		b.Fail(keyword, "missing join operand")
		return
	case n.On != nil && len(n.Using) > 0:
		b.Fail(keyword, "ON and USING are mutually exclusive")
		return
	case (n.Natural || kind == JoinCross) && (n.On != nil || len(n.Using) > 0):
		b.Fail(keyword, "cannot have an ON or USING clause")
		return
	case n.Natural && kind == JoinCross:
		b.Fail(keyword, "a cross join cannot be natural")
		return
	}
	d.writeFromItem(b, n.Left)
	b.WriteString(" " + keyword + " ")
	if _, ok := n.Right.(*Join); ok {
		b.Wrap(func(b *Builder) { b.Node(n.Right) })
	} else {
		d.writeFromItem(b, n.Right)
	}
	switch {
	case n.On != nil:
		b.WriteString(" ON ").Node(n.On)
	case len(n.Using) > 0:
		b.WriteString(" USING ").Wrap(func(b *Builder) { b.idents(n.Using) })
	}
}

// writeFromItem writes a FROM source, parenthesizing bare queries.
func (d *Dialect) writeFromItem(b *Builder, n Node) {
	switch n := n.(type) {
	case *SetOperation:
		if n.Alias == "" {
			b.Wrap(func(b *Builder) { b.Node(n) })
			return
		}
	case *SelectStmt, *WithQuery:
		b.Wrap(func(b *Builder) { b.Node(n) })
		return
	}
	b.Node(n)
}

func (d *Dialect) writeForUpdate(b *Builder, n *ForUpdate) {
	switch n.Mode {
	case LockUpdate:
		if b.Require(FeatureForUpdate) {
			b.WriteString("FOR UPDATE")
		}
	case LockShare:
		if b.Require(FeatureForShare) {
			b.WriteString("FOR SHARE")
		}
	default:
		b.Fail("FOR UPDATE", "unsupported lock mode %d", n.Mode)
	}
	if len(n.Of) > 0 {
		b.WriteString(" OF ").Join(", ", len(n.Of), func(i int) { b.qualified(n.Of[i]) })
	}
	switch n.Wait {
	case WaitNowait:
		if b.Require(FeatureNowait) {
			b.WriteString(" NOWAIT")
		}
	case WaitSkipLocked:
		if b.Require(FeatureSkipLocked) {
			b.WriteString(" SKIP LOCKED")
		}
	}
}

func (d *Dialect) writeTable(b *Builder, n *Table) {
	if n.Name == "" {
		b.Fail("TABLE", "missing table name")
		return
	}
	if n.Schema != "" {
		b.Ident(n.Schema).WriteByte('.')
	}
	b.Ident(n.Name).TableAlias(n.Alias)
}

func (d *Dialect) writeSubquery(b *Builder, n *Subquery) {
	if n.Query == nil {
		b.Fail("SUBQUERY", "missing query")
		return
	}
	b.Wrap(func(b *Builder) { b.Node(n.Query) }).TableAlias(n.Alias)
}

func (d *Dialect) writeCTE(b *Builder, n *CTE) {
	if !b.Require(FeatureCTE) {
		return
	}
	if n.Recursive && !b.Require(FeatureRecursiveCTE) {
		return
	}
	if n.Name == "" || n.Query == nil {
		b.Fail("CTE", "requires a name and a query")
		return
	}
	b.Ident(n.Name)
	if len(n.Columns) > 0 {
		b.Pad().Wrap(func(b *Builder) { b.idents(n.Columns) })
	}
	b.WriteString(" AS ")
	switch n.Materialized {
	case Materialized:
		if b.Require(FeatureMaterializedCTE) {
			b.WriteString("MATERIALIZED ")
		}
	case NotMaterialized:
		if b.Require(FeatureMaterializedCTE) {
			b.WriteString("NOT MATERIALIZED ")
		}
	}
	q := n.Query
	if s, ok := q.(*Subquery); ok {
		q = s.Query
	}
	b.Wrap(func(b *Builder) { b.Node(q) })
}

func (d *Dialect) writeWith(b *Builder, n *WithQuery) {
	if !b.Require(FeatureCTE) {
		return
	}
	if len(n.CTEs) == 0 || n.Query == nil {
		b.Fail("WITH", "requires at least one common table expression and a main query")
		return
	}
	b.WriteString("WITH ")
	for _, c := range n.CTEs {
		if c.Recursive && d.syn.recursiveKeyword {
			b.WriteString("RECURSIVE ")
			break
		}
	}
	Nodes(b, ", ", n.CTEs)
	b.Pad().Node(n.Query)
}

func (d *Dialect) writeValues(b *Builder, n *Values) {
	if !b.Require(FeatureValuesSource) {
		return
	}
	if len(n.Rows) == 0 {
		b.Fail("VALUES", "requires at least one row")
		return
	}
	for i, row := range n.Rows {
		if len(row) == 0 || len(row) != len(n.Rows[0]) {
			b.Fail("VALUES", "row %d has %d values, expected %d", i, len(row), len(n.Rows[0]))
			return
		}
	}
	if len(n.Columns) > 0 && len(n.Columns) != len(n.Rows[0]) {
		b.Fail("VALUES", "%d column names for %d values", len(n.Columns), len(n.Rows[0]))
		return
	}
	body := func(b *Builder) {
		b.WriteString("VALUES ").Join(", ", len(n.Rows), func(i int) {
			if d.syn.valuesRow {
				b.WriteString("ROW")
			}
			b.Wrap(func(b *Builder) { b.operands(n.Rows[i]) })
		})
	}
	if n.Alias == "" {
		if len(n.Columns) > 0 {
			b.Fail("VALUES", "column names require an alias")
			return
		}
		body(b)
		return
	}
	b.Wrap(body).TableAlias(n.Alias)
	if len(n.Columns) > 0 {
		b.Pad().Wrap(func(b *Builder) { b.idents(n.Columns) })
	}
}

func (d *Dialect) writeTableFunction(b *Builder, n *TableFunction) {
	if !b.Require(FeatureTableFunctions) {
		return
	}
	if n.Name == "" {
		b.Fail("TABLE FUNCTION", "missing function name")
		return
	}
	b.WriteString(n.Name).Wrap(func(b *Builder) { b.operands(n.Args) }).TableAlias(n.Alias)
	if len(n.Columns) > 0 {
		if n.Alias == "" {
			b.Fail("TABLE FUNCTION", "column names require an alias")
			return
		}
		b.Pad().Wrap(func(b *Builder) { b.idents(n.Columns) })
	}
}

func (d *Dialect) writeLateral(b *Builder, n *Lateral) {
	if !b.Require(FeatureLateral) {
		return
	}
	if n.Inner == nil {
		b.Fail("LATERAL", "missing inner query")
		return
	}
	switch n.JoinKind {
	case "":
	case JoinInner, JoinLeft, JoinCross:
		b.WriteString(n.JoinKind.keyword() + " ")
	default:
		if f, ok := joinFeature(n.JoinKind); ok && !d.Supports(f) {
			b.AddError(d.unsupportedName(n.JoinKind.keyword(), ""))
			return
		}
		b.Fail("LATERAL", "unsupported lateral join kind %q", n.JoinKind)
		return
	}
	b.WriteString("LATERAL ")
	alias := n.Alias
	switch inner := n.Inner.(type) {
	case *TableFunction:
		b.Node(inner)
	case *Subquery:
		if alias == "" {
			alias = inner.Alias
		}
		b.Wrap(func(b *Builder) { b.Node(inner.Query) })
	default:
		b.Wrap(func(b *Builder) { b.Node(inner) })
	}
	b.TableAlias(alias)
	if n.JoinKind == JoinInner || n.JoinKind == JoinLeft {
		b.WriteString(" ON 1 = 1")
	}
}

func (d *Dialect) writeSetOperation(b *Builder, n *SetOperation) {
	keyword := string(n.Kind)
	switch n.Kind {
	case SetUnion:
	case SetIntersect:
		if !b.Require(FeatureIntersect) {
			return
		}
	case SetExcept:
		if !b.Require(FeatureExcept) {
			return
		}
		keyword = d.syn.exceptKeyword
	default:
		b.Fail("SET OPERATION", "unsupported set operation %q", n.Kind)
		return
	}
	if n.Left == nil || n.Right == nil {
		b.Fail(keyword, "missing operand")
		return
	}
	if n.All {
		keyword += " ALL"
	}
	body := func(b *Builder) {
		b.Node(n.Left).WriteString(" " + keyword + " ")
		if r, ok := n.Right.(*SetOperation); ok && r.Alias == "" {
			b.Wrap(func(b *Builder) { b.Node(r) })
		} else {
			b.Node(n.Right)
		}
	}
	if n.Alias == "" {
		body(b)
		return
	}
	b.Wrap(body).TableAlias(n.Alias)
}

func (d *Dialect) writeJSONTable(b *Builder, n *JSONTable) {
	if !b.Require(FeatureJSONTable) {
		return
	}
	if n.Source == nil || len(n.Columns) == 0 {
		b.Fail("JSON_TABLE", "requires a source and at least one column")
		return
	}
	for _, c := range n.Columns {
		if c.Name == "" || c.Type == "" {
			b.Fail("JSON_TABLE", "column requires a name and a type")
			return
		}
	}
	b.WriteString("JSON_TABLE(").operand(n.Source).WriteString(", " + d.QuoteString(normalizeJSONPath(n.Path)) + " COLUMNS (")
	b.Join(", ", len(n.Columns), func(i int) {
		c := n.Columns[i]
		b.Ident(c.Name).WriteString(" " + c.Type)
		if c.Path != "" {
			b.WriteString(" PATH " + d.QuoteString(normalizeJSONPath(c.Path)))
		}
	})
	b.WriteString("))").TableAlias(n.Alias)
}
