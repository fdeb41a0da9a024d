package sql

import (
	"strings"

	"github.com/syssam/sqlcraft"
)

// Builder accumulates the SQL text and the positional parameters of one
// render. A single Builder is shared by a node and all of its descendants,
// so parameters are appended in exactly the order their placeholders
// appear in the text, and numbered placeholders ($n, @pn, :n) count
// across the whole statement.
//
// The first error recorded stops further output; Query reports it.
type Builder struct {
	d      *Dialect
	sb     strings.Builder
	args   []any
	offset int
	err    error
}

// Dialect returns the dialect the builder renders for.
func (b *Builder) Dialect() *Dialect { return b.d }

// Query returns the accumulated text and parameters, or the first error.
func (b *Builder) Query() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	return b.sb.String(), b.args, nil
}

// Err returns the first recorded error.
func (b *Builder) Err() error { return b.err }

// AddError records err if it is the first error of the build.
func (b *Builder) AddError(err error) *Builder {
	if err != nil && b.err == nil {
		b.err = err
	}
	return b
}

// WriteString appends s to the text.
func (b *Builder) WriteString(s string) *Builder {
	if b.err == nil {
		b.sb.WriteString(s)
	}
	return b
}

// WriteByte appends c to the text.
func (b *Builder) WriteByte(c byte) *Builder {
	if b.err == nil {
		b.sb.WriteByte(c)
	}
	return b
}

// Pad appends a single space.
func (b *Builder) Pad() *Builder { return b.WriteByte(' ') }

// Ident appends a quoted identifier.
func (b *Builder) Ident(name string) *Builder {
	return b.WriteString(b.d.QuoteIdent(name))
}

// Arg appends a placeholder and binds v to it.
func (b *Builder) Arg(v any) *Builder {
	if b.err != nil {
		return b
	}
	b.args = append(b.args, v)
	b.sb.WriteString(b.d.Placeholder(b.offset + len(b.args)))
	return b
}

// Args appends comma-separated placeholders bound to vs.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Arg(v)
	}
	return b
}

// Node renders a child node into the builder.
func (b *Builder) Node(n Node) *Builder {
	if b.err != nil {
		return b
	}
	if n == nil {
		return b.AddError(sqlcraft.NewStructuralError("", "nil node"))
	}
	b.d.write(b, n)
	return b
}

// Nodes renders the nodes joined by sep.
func Nodes[N Node](b *Builder, sep string, ns []N) *Builder {
	for i, n := range ns {
		if i > 0 {
			b.WriteString(sep)
		}
		b.Node(n)
	}
	return b
}

// Wrap wraps the output of f in parentheses.
func (b *Builder) Wrap(f func(*Builder)) *Builder {
	b.WriteByte('(')
	f(b)
	return b.WriteByte(')')
}

// Join writes each item produced by f separated by sep.
func (b *Builder) Join(sep string, n int, f func(i int)) *Builder {
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(sep)
		}
		f(i)
	}
	return b
}

// Alias appends " AS <alias>" when alias is not empty.
func (b *Builder) Alias(alias string) *Builder {
	if alias != "" {
		b.WriteString(" AS ").Ident(alias)
	}
	return b
}

// TableAlias is like Alias for table sources. Oracle does not accept
// AS before a table alias.
func (b *Builder) TableAlias(alias string) *Builder {
	if alias == "" {
		return b
	}
	if !b.d.syn.tableAliasAS {
		return b.Pad().Ident(alias)
	}
	return b.Alias(alias)
}

// Require records an UnsupportedFeatureError unless the dialect provides f.
// It reports whether rendering may continue.
func (b *Builder) Require(f Feature) bool {
	if b.err != nil {
		return false
	}
	if !b.d.Supports(f) {
		b.AddError(b.d.unsupported(f, ""))
		return false
	}
	return true
}

// Fail records a StructuralError for the node kind and reports false.
func (b *Builder) Fail(node, format string, args ...any) bool {
	b.AddError(sqlcraft.NewStructuralError(node, format, args...))
	return false
}
