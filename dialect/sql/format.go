package sql

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/sqlcraft"
)

// write dispatches a node to its writer. Every node kind must have a case.
func (d *Dialect) write(b *Builder, n Node) {
	switch n := n.(type) {
	// Atoms.
	case *Literal:
		d.writeLiteral(b, n)
	case *Column:
		d.writeColumn(b, n)
	case *Identifier:
		b.Ident(n.Name)
	case *RawSQL:
		b.WriteString(n.SQL)
	case *Aliased:
		d.writeAliased(b, n)
	// Calls.
	case *FunctionCall:
		d.writeFunctionCall(b, n)
	case *AggregateCall:
		d.writeAggregateCall(b, n)
	case *WindowCall:
		d.writeWindowCall(b, n)
	// Predicates.
	case *Comparison:
		d.writeComparison(b, n)
	case *Logical:
		d.writeLogical(b, n)
	case *InPredicate:
		d.writeIn(b, n)
	case *Between:
		d.writeBetween(b, n)
	case *IsNull:
		d.writeIsNull(b, n)
	case *Like:
		d.writeLike(b, n)
	// Advanced expressions.
	case *Case:
		d.writeCase(b, n)
	case *Cast:
		d.writeCast(b, n)
	case *Exists:
		d.writeExists(b, n)
	case *AnyAll:
		d.writeAnyAll(b, n)
	case *JSONExpr:
		d.writeJSON(b, n)
	case *ArrayExpr:
		d.writeArray(b, n)
	case *OrderedSetAgg:
		d.writeOrderedSetAgg(b, n)
	// Query parts.
	case *Where:
		d.writeWhere(b, n)
	case *GroupByHaving:
		d.writeGroupBy(b, n)
	case *Rollup:
		d.writeRollup(b, n)
	case *Cube:
		d.writeCube(b, n)
	case *GroupingSets:
		d.writeGroupingSets(b, n)
	case *OrderItem:
		d.writeOrderItem(b, n)
	case *OrderBy:
		d.writeOrderBy(b, n)
	case *LimitOffset:
		d.writeLimitOffset(b, n)
	case *Join:
		d.writeJoin(b, n)
	case *Qualify:
		d.writeQualify(b, n)
	case *ForUpdate:
		d.writeForUpdate(b, n)
	// Sources.
	case *Table:
		d.writeTable(b, n)
	case *Subquery:
		d.writeSubquery(b, n)
	case *CTE:
		d.writeCTE(b, n)
	case *WithQuery:
		d.writeWith(b, n)
	case *Values:
		d.writeValues(b, n)
	case *TableFunction:
		d.writeTableFunction(b, n)
	case *Lateral:
		d.writeLateral(b, n)
	case *SetOperation:
		d.writeSetOperation(b, n)
	case *JSONTable:
		d.writeJSONTable(b, n)
	// Statements.
	case *SelectStmt:
		d.writeSelect(b, n)
	case *InsertStmt:
		d.writeInsert(b, n)
	case *UpdateStmt:
		d.writeUpdate(b, n)
	case *DeleteStmt:
		d.writeDelete(b, n)
	case *ReturningClause:
		d.writeReturning(b, n)
	case *OnConflict:
		d.writeOnConflict(b, n)
	case *Excluded:
		d.writeExcluded(b, n)
	case *MergeStmt:
		d.writeMerge(b, n)
	case *MergeAction:
		d.writeMergeAction(b, n, "")
	case *Explain:
		d.writeExplain(b, n)
	case *DropTable:
		d.writeDropTable(b, n)
	// Graph patterns.
	case *Vertex:
		d.writeVertex(b, n)
	case *Edge:
		d.writeEdge(b, n)
	case *MatchClause:
		d.writeMatch(b, n)
	default:
		b.AddError(sqlcraft.NewStructuralError("", "unexpected node type %T", n))
	}
}

// operand writes n, parenthesizing query nodes used as expressions.
func (b *Builder) operand(n Node) *Builder {
	switch n.(type) {
	case *SelectStmt, *SetOperation, *WithQuery:
		return b.Wrap(func(b *Builder) { b.Node(n) })
	}
	return b.Node(n)
}

// operands writes the nodes as comma-separated operands.
func (b *Builder) operands(ns []Node) *Builder {
	return b.Join(", ", len(ns), func(i int) { b.operand(ns[i]) })
}

// idents writes the names as comma-separated quoted identifiers.
func (b *Builder) idents(names []string) *Builder {
	return b.Join(", ", len(names), func(i int) { b.Ident(names[i]) })
}

// qualified writes a dotted name with each part quoted.
func (b *Builder) qualified(name string) *Builder {
	parts := strings.Split(name, ".")
	return b.Join(".", len(parts), func(i int) { b.Ident(parts[i]) })
}

// expand returns the elements of a slice literal value. Byte slices and
// driver.Valuer values are scalars.
func expand(v any) ([]any, bool) {
	switch v := v.(type) {
	case nil, []byte, driver.Valuer:
		return nil, false
	case []any:
		return v, true
	}
	rv := reflect.ValueOf(v)
	if k := rv.Kind(); k != reflect.Slice && k != reflect.Array || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	vs := make([]any, rv.Len())
	for i := range vs {
		vs[i] = rv.Index(i).Interface()
	}
	return vs, true
}

func (d *Dialect) writeLiteral(b *Builder, n *Literal) {
	if vs, ok := expand(n.Value); ok {
		b.Wrap(func(b *Builder) { b.Args(vs...) })
		return
	}
	b.Arg(n.Value)
}

func (d *Dialect) writeColumn(b *Builder, n *Column) {
	if n.Name == "" {
		b.Fail("COLUMN", "missing column name")
		return
	}
	if n.Table != "" {
		b.qualified(n.Table).WriteByte('.')
	}
	b.Ident(n.Name).Alias(n.Alias)
}

func (d *Dialect) writeAliased(b *Builder, n *Aliased) {
	if n.Expr == nil {
		b.Fail("ALIAS", "missing expression")
		return
	}
	b.operand(n.Expr).Alias(n.Alias)
}

func (d *Dialect) writeFunctionCall(b *Builder, n *FunctionCall) {
	if n.Name == "" {
		b.Fail("FUNCTION", "missing function name")
		return
	}
	b.WriteString(n.Name).Wrap(func(b *Builder) {
		if n.Distinct {
			b.WriteString("DISTINCT ")
		}
		b.operands(n.Args)
	})
	b.Alias(n.Alias)
}

func (d *Dialect) writeAggregateCall(b *Builder, n *AggregateCall) {
	if n.Name == "" {
		b.Fail("AGGREGATE", "missing function name")
		return
	}
	b.WriteString(n.Name).Wrap(func(b *Builder) {
		if n.Distinct {
			b.WriteString("DISTINCT ")
		}
		if n.Arg == nil {
			b.WriteByte('*')
		} else {
			b.operand(n.Arg)
		}
	})
	if n.Filter != nil && b.Require(FeatureFilterClause) {
		b.WriteString(" FILTER (WHERE ").Node(n.Filter).WriteByte(')')
	}
	b.Alias(n.Alias)
}

func (d *Dialect) writeWindowCall(b *Builder, n *WindowCall) {
	if !b.Require(FeatureWindowFunctions) {
		return
	}
	if n.Name == "" {
		b.Fail("WINDOW", "missing function name")
		return
	}
	b.WriteString(n.Name).Wrap(func(b *Builder) { b.operands(n.Args) })
	b.WriteString(" OVER ")
	if w := n.Window; w != nil && w.Name != "" && len(w.PartitionBy) == 0 && len(w.OrderBy) == 0 && w.Frame == nil {
		b.Ident(w.Name)
	} else {
		b.Wrap(func(b *Builder) { d.writeWindowSpec(b, n.Window) })
	}
	b.Alias(n.Alias)
}

// writeWindowSpec writes the window body in the fixed order
// base window, PARTITION BY, ORDER BY, frame.
func (d *Dialect) writeWindowSpec(b *Builder, w *WindowSpec) {
	if w == nil {
		return
	}
	var parts []func()
	if w.Name != "" {
		parts = append(parts, func() { b.Ident(w.Name) })
	}
	if len(w.PartitionBy) > 0 {
		parts = append(parts, func() { b.WriteString("PARTITION BY ").operands(w.PartitionBy) })
	}
	if len(w.OrderBy) > 0 {
		parts = append(parts, func() { b.WriteString("ORDER BY "); Nodes(b, ", ", w.OrderBy) })
	}
	if w.Frame != nil {
		parts = append(parts, func() { d.writeFrame(b, w.Frame) })
	}
	b.Join(" ", len(parts), func(i int) { parts[i]() })
}

func (d *Dialect) writeFrame(b *Builder, f *WindowFrame) {
	unit := f.Unit
	switch unit {
	case "":
		unit = FrameRows
	case FrameRows, FrameRange:
	case FrameGroups:
		if !b.Require(FeatureWindowFrameGroups) {
			return
		}
	default:
		b.Fail("WINDOW", "unsupported frame unit %q", unit)
		return
	}
	start, ok := frameBound(b, f.Start)
	if !ok {
		return
	}
	if f.End.Kind == BoundNone {
		b.WriteString(string(unit) + " " + start)
		return
	}
	end, ok := frameBound(b, f.End)
	if !ok {
		return
	}
	b.WriteString(string(unit) + " BETWEEN " + start + " AND " + end)
}

func frameBound(b *Builder, fb FrameBound) (string, bool) {
	switch fb.Kind {
	case BoundUnboundedPreceding:
		return "UNBOUNDED PRECEDING", true
	case BoundCurrentRow:
		return "CURRENT ROW", true
	case BoundUnboundedFollowing:
		return "UNBOUNDED FOLLOWING", true
	case BoundPreceding, BoundFollowing:
		if fb.Offset < 0 {
			return "", b.Fail("WINDOW", "frame offset must not be negative: %d", fb.Offset)
		}
		if fb.Kind == BoundPreceding {
			return strconv.Itoa(fb.Offset) + " PRECEDING", true
		}
		return strconv.Itoa(fb.Offset) + " FOLLOWING", true
	default:
		return "", b.Fail("WINDOW", "missing frame bound")
	}
}

// comparisonOp normalizes and validates a comparison operator.
func comparisonOp(b *Builder, op string) (string, bool) {
	op = strings.ToUpper(strings.TrimSpace(op))
	if !comparisonOps[op] {
		return "", b.Fail("COMPARISON", "unsupported operator %q", op)
	}
	return op, true
}

func (d *Dialect) writeComparison(b *Builder, n *Comparison) {
	op, ok := comparisonOp(b, n.Op)
	if !ok {
		return
	}
	if n.Left == nil || n.Right == nil {
		b.Fail("COMPARISON", "missing operand")
		return
	}
	b.operand(n.Left).WriteString(" " + op + " ").operand(n.Right)
}

// compound reports whether n renders as more than one AND/OR operand.
func compound(n Node) bool {
	l, ok := n.(*Logical)
	return ok && (l.Op == OpAnd || l.Op == OpOr) && len(l.Operands) > 1
}

func (d *Dialect) writeLogical(b *Builder, n *Logical) {
	switch n.Op {
	case OpNot:
		if len(n.Operands) != 1 {
			b.Fail("NOT", "expects exactly one operand, got %d", len(n.Operands))
			return
		}
		b.WriteString("NOT ").Wrap(func(b *Builder) { b.Node(n.Operands[0]) })
	case OpAnd, OpOr:
		switch len(n.Operands) {
		case 0:
			b.Fail(string(n.Op), "requires at least one operand")
		case 1:
			b.Node(n.Operands[0])
		default:
			b.Join(" "+string(n.Op)+" ", len(n.Operands), func(i int) {
				if p := n.Operands[i]; compound(p) {
					b.Wrap(func(b *Builder) { b.Node(p) })
				} else {
					b.Node(p)
				}
			})
		}
	default:
		b.Fail("LOGICAL", "unsupported operator %q", n.Op)
	}
}

// writeSet writes the parenthesized right-hand side of IN, ANY and ALL.
func (d *Dialect) writeSet(b *Builder, set Node) {
	switch s := set.(type) {
	case *Literal:
		if vs, ok := expand(s.Value); ok {
			b.Wrap(func(b *Builder) { b.Args(vs...) })
		} else {
			b.Wrap(func(b *Builder) { b.Arg(s.Value) })
		}
	case *Subquery:
		b.Wrap(func(b *Builder) { b.Node(s.Query) })
	default:
		b.Wrap(func(b *Builder) { b.Node(set) })
	}
}

func (d *Dialect) writeIn(b *Builder, n *InPredicate) {
	if n.Expr == nil || n.Set == nil {
		b.Fail("IN", "missing operand")
		return
	}
	b.operand(n.Expr)
	if n.Negated {
		b.WriteString(" NOT IN ")
	} else {
		b.WriteString(" IN ")
	}
	d.writeSet(b, n.Set)
}

func (d *Dialect) writeBetween(b *Builder, n *Between) {
	if n.Expr == nil || n.Low == nil || n.High == nil {
		b.Fail("BETWEEN", "missing operand")
		return
	}
	b.operand(n.Expr)
	if n.Negated {
		b.WriteString(" NOT")
	}
	b.WriteString(" BETWEEN ").operand(n.Low).WriteString(" AND ").operand(n.High)
}

func (d *Dialect) writeIsNull(b *Builder, n *IsNull) {
	if n.Expr == nil {
		b.Fail("IS NULL", "missing operand")
		return
	}
	b.operand(n.Expr)
	if n.Negated {
		b.WriteString(" IS NOT NULL")
	} else {
		b.WriteString(" IS NULL")
	}
}

func (d *Dialect) writeLike(b *Builder, n *Like) {
	op := n.Op
	switch op {
	case "":
		op = OpLike
	case OpLike, OpNotLike:
	case OpILike, OpNotILike:
		if !b.Require(FeatureILike) {
			return
		}
	default:
		b.Fail("LIKE", "unsupported operator %q", op)
		return
	}
	if n.Expr == nil || n.Pattern == nil {
		b.Fail(string(op), "missing operand")
		return
	}
	b.operand(n.Expr).WriteString(" " + string(op) + " ").operand(n.Pattern)
	if n.Escape != "" {
		b.WriteString(" ESCAPE ").Arg(n.Escape)
	}
}

func (d *Dialect) writeCase(b *Builder, n *Case) {
	if !b.Require(FeatureCase) {
		return
	}
	if len(n.Arms) == 0 {
		b.Fail("CASE", "requires at least one WHEN arm")
		return
	}
	b.WriteString("CASE")
	if n.Value != nil {
		b.Pad().operand(n.Value)
	}
	for _, arm := range n.Arms {
		if arm.When == nil || arm.Then == nil {
			b.Fail("CASE", "incomplete WHEN arm")
			return
		}
		b.WriteString(" WHEN ").operand(arm.When).WriteString(" THEN ").operand(arm.Then)
	}
	if n.Else != nil {
		b.WriteString(" ELSE ").operand(n.Else)
	}
	b.WriteString(" END")
}

func (d *Dialect) writeCast(b *Builder, n *Cast) {
	if !b.Require(FeatureCast) {
		return
	}
	if n.Expr == nil || n.Type == "" {
		b.Fail("CAST", "requires an expression and a target type")
		return
	}
	b.WriteString("CAST(").operand(n.Expr).WriteString(" AS " + n.Type + ")")
}

func (d *Dialect) writeExists(b *Builder, n *Exists) {
	if !b.Require(FeatureExists) {
		return
	}
	if n.Query == nil {
		b.Fail("EXISTS", "missing subquery")
		return
	}
	if n.Negated {
		b.WriteString("NOT ")
	}
	b.WriteString("EXISTS ")
	d.writeSet(b, n.Query)
}

func (d *Dialect) writeAnyAll(b *Builder, n *AnyAll) {
	if !b.Require(FeatureAnyAll) {
		return
	}
	if n.Kind != QuantAny && n.Kind != QuantAll {
		b.Fail("ANY/ALL", "unsupported quantifier %q", n.Kind)
		return
	}
	op, ok := comparisonOp(b, n.Op)
	if !ok {
		return
	}
	if n.Expr == nil || n.Set == nil {
		b.Fail(string(n.Kind), "missing operand")
		return
	}
	b.operand(n.Expr).WriteString(" " + op + " " + string(n.Kind) + " ")
	if l, ok := n.Set.(*Literal); ok {
		vs := l.Value
		if _, ok := expand(vs); !ok {
			b.Fail(string(n.Kind), "literal set must be a slice, got %T", vs)
			return
		}
		if b.Require(FeatureArray) {
			b.Wrap(func(b *Builder) { b.Arg(pq.Array(vs)) })
		}
		return
	}
	d.writeSet(b, n.Set)
}

// normalizeJSONPath returns the path in "$..." form.
func normalizeJSONPath(path string) string {
	switch p := strings.TrimSpace(path); {
	case p == "":
		return "$"
	case strings.HasPrefix(p, "$"):
		return p
	case strings.HasPrefix(p, "["):
		return "$" + p
	default:
		return "$." + p
	}
}

// jsonPathSegments splits a "$.a.b[0]" path into its keys and indexes.
func jsonPathSegments(path string) ([]string, error) {
	p := strings.TrimPrefix(normalizeJSONPath(path), "$")
	var segs []string
	for len(p) > 0 {
		switch p[0] {
		case '.':
			p = p[1:]
			if strings.HasPrefix(p, `"`) {
				end := strings.IndexByte(p[1:], '"')
				if end < 0 {
					return nil, fmt.Errorf("unterminated quoted key in JSON path %q", path)
				}
				segs, p = append(segs, p[1:end+1]), p[end+2:]
				continue
			}
			end := strings.IndexAny(p, ".[")
			if end < 0 {
				end = len(p)
			}
			if end == 0 {
				return nil, fmt.Errorf("empty key in JSON path %q", path)
			}
			segs, p = append(segs, p[:end]), p[end:]
		case '[':
			end := strings.IndexByte(p, ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated index in JSON path %q", path)
			}
			if _, err := strconv.Atoi(p[1:end]); err != nil {
				return nil, fmt.Errorf("invalid index in JSON path %q", path)
			}
			segs, p = append(segs, p[1:end]), p[end+1:]
		default:
			return nil, fmt.Errorf("invalid JSON path %q", path)
		}
	}
	return segs, nil
}

func (d *Dialect) writeJSON(b *Builder, n *JSONExpr) {
	if !b.Require(FeatureJSON) {
		return
	}
	op := n.Op
	if op == "" {
		op = JSONExtract
	}
	if op != JSONExtract && op != JSONExtractText {
		b.Fail("JSON", "unsupported operator %q", op)
		return
	}
	if n.Expr == nil {
		b.Fail("JSON", "missing operand")
		return
	}
	text := op == JSONExtractText
	path := normalizeJSONPath(n.Path)
	switch d.syn.json {
	case jsonArrow:
		b.operand(n.Expr).WriteString(" " + string(op) + " ").Arg(path)
	case jsonPathArray:
		segs, err := jsonPathSegments(path)
		if err != nil {
			b.Fail("JSON", "%v", err)
			return
		}
		sym := " #> "
		if text {
			sym = " #>> "
		}
		b.operand(n.Expr).WriteString(sym).Arg(pq.Array(segs))
	case jsonExtract:
		if text {
			b.WriteString("JSON_UNQUOTE(")
		}
		b.WriteString("JSON_EXTRACT(").operand(n.Expr).WriteString(", ").Arg(path).WriteByte(')')
		if text {
			b.WriteByte(')')
		}
	case jsonValue, jsonValueLit:
		fn := "JSON_QUERY("
		if text {
			fn = "JSON_VALUE("
		}
		b.WriteString(fn).operand(n.Expr).WriteString(", ")
		if d.syn.json == jsonValueLit {
			b.WriteString(d.QuoteString(path))
		} else {
			b.Arg(path)
		}
		b.WriteByte(')')
	}
}

func (d *Dialect) writeArray(b *Builder, n *ArrayExpr) {
	if !b.Require(FeatureArray) {
		return
	}
	switch n.Kind {
	case ArrayConstruct:
		b.WriteString("ARRAY[").operands(n.Elements).WriteByte(']')
	case ArrayAccess:
		if n.Base == nil || n.Index == nil {
			b.Fail("ARRAY", "element access requires a base and an index")
			return
		}
		switch n.Base.(type) {
		case *Column, *Identifier:
			b.Node(n.Base)
		default:
			b.Wrap(func(b *Builder) { b.Node(n.Base) })
		}
		b.WriteByte('[').operand(n.Index).WriteByte(']')
	default:
		b.Fail("ARRAY", "unsupported array expression kind %d", n.Kind)
	}
}

func (d *Dialect) writeOrderedSetAgg(b *Builder, n *OrderedSetAgg) {
	if !b.Require(FeatureOrderedSetAggregate) {
		return
	}
	if n.Name == "" || len(n.OrderBy) == 0 {
		b.Fail("WITHIN GROUP", "requires a function name and an ORDER BY list")
		return
	}
	b.WriteString(n.Name).Wrap(func(b *Builder) { b.operands(n.Args) })
	b.WriteString(" WITHIN GROUP (ORDER BY ")
	Nodes(b, ", ", n.OrderBy)
	b.WriteByte(')').Alias(n.Alias)
}

func (d *Dialect) writeOrderItem(b *Builder, n *OrderItem) {
	if n.Expr == nil {
		b.Fail("ORDER BY", "missing expression")
		return
	}
	b.operand(n.Expr)
	if n.Desc {
		b.WriteString(" DESC")
	}
	switch n.Nulls {
	case NullsFirst:
		if b.Require(FeatureNullsOrdering) {
			b.WriteString(" NULLS FIRST")
		}
	case NullsLast:
		if b.Require(FeatureNullsOrdering) {
			b.WriteString(" NULLS LAST")
		}
	}
}
