package sql

import (
	"strings"
)

// Node is one immutable element of the SQL expression tree. The set of node
// kinds is closed; every kind is handled by Dialect.Format.
type Node interface {
	// Render formats the node into SQL text and its ordered parameters.
	Render(d *Dialect) (string, []any, error)
	sqlNode()
}

// toNode converts a Go value into a node: nodes are returned as is,
// everything else is wrapped in a Literal.
func toNode(v any) Node {
	if n, ok := v.(Node); ok {
		return n
	}
	return Lit(v)
}

// toNodes converts each value with toNode.
func toNodes(vs []any) []Node {
	ns := make([]Node, len(vs))
	for i, v := range vs {
		ns[i] = toNode(v)
	}
	return ns
}

// columns converts column names into Column nodes.
func columns(names []string) []Node {
	ns := make([]Node, len(names))
	for i, name := range names {
		ns[i] = C(name)
	}
	return ns
}

// Literal is a value bound as a positional parameter. A nil value binds
// NULL. Slice values (other than []byte) expand into a parenthesized
// placeholder list, so an empty slice renders as "()".
type Literal struct {
	Value any
}

// Lit returns a new Literal.
func Lit(v any) *Literal { return &Literal{Value: v} }

// Column references a column, optionally qualified by its table and aliased.
type Column struct {
	Name  string
	Table string
	Alias string
}

// C returns a column reference. A qualified name ("users.id") is split
// into its table and column parts.
func C(name string) *Column {
	if i := strings.LastIndexByte(name, '.'); i > 0 && i < len(name)-1 {
		return &Column{Table: name[:i], Name: name[i+1:]}
	}
	return &Column{Name: name}
}

// Star returns the "*" column.
func Star() *Column { return &Column{Name: "*"} }

// As returns a copy of the column with the given alias.
func (c *Column) As(alias string) *Column {
	cp := *c
	cp.Alias = alias
	return &cp
}

// Identifier is a raw name quoted as a single identifier.
type Identifier struct {
	Name string
}

// Ident returns a new Identifier.
func Ident(name string) *Identifier { return &Identifier{Name: name} }

// RawSQL is an opaque SQL fragment written verbatim. It never contributes
// parameters; values must be inlined by the caller or bound through
// Substitute.
type RawSQL struct {
	SQL string
}

// Raw returns a new RawSQL fragment.
func Raw(s string) *RawSQL { return &RawSQL{SQL: s} }

// Aliased renders an arbitrary expression with an alias.
type Aliased struct {
	Expr  Node
	Alias string
}

// As returns the expression aliased.
func As(n Node, alias string) *Aliased { return &Aliased{Expr: n, Alias: alias} }

func (n *Literal) Render(d *Dialect) (string, []any, error)    { return d.Format(n) }
func (n *Column) Render(d *Dialect) (string, []any, error)     { return d.Format(n) }
func (n *Identifier) Render(d *Dialect) (string, []any, error) { return d.Format(n) }
func (n *RawSQL) Render(d *Dialect) (string, []any, error)     { return d.Format(n) }
func (n *Aliased) Render(d *Dialect) (string, []any, error)    { return d.Format(n) }

func (*Literal) sqlNode()    {}
func (*Column) sqlNode()     {}
func (*Identifier) sqlNode() {}
func (*RawSQL) sqlNode()     {}
func (*Aliased) sqlNode()    {}
