package sql

// Direction is the direction of a graph pattern edge.
type Direction uint8

// Edge directions.
const (
	DirRight Direction = iota // -[...]->
	DirLeft                   // <-[...]-
	DirAny                    // <-[...]->
	DirNone                   // -[...]-
)

// Vertex is a vertex element of a graph pattern: (var IS "label").
type Vertex struct {
	Var   string
	Label string
}

// V returns a vertex pattern element.
func V(variable, label string) *Vertex { return &Vertex{Var: variable, Label: label} }

// Edge is an edge element of a graph pattern.
type Edge struct {
	Var       string
	Label     string
	Direction Direction
}

// E returns an edge pattern element.
func E(variable, label string, dir Direction) *Edge {
	return &Edge{Var: variable, Label: label, Direction: dir}
}

// MatchClause is a SQL/PGQ MATCH clause over an alternating
// vertex, edge, vertex, ... path.
type MatchClause struct {
	Path []Node
}

// MatchPath returns a MATCH clause over the path elements.
func MatchPath(elems ...Node) *MatchClause { return &MatchClause{Path: elems} }

func (n *Vertex) Render(d *Dialect) (string, []any, error)      { return d.Format(n) }
func (n *Edge) Render(d *Dialect) (string, []any, error)        { return d.Format(n) }
func (n *MatchClause) Render(d *Dialect) (string, []any, error) { return d.Format(n) }

func (*Vertex) sqlNode()      {}
func (*Edge) sqlNode()        {}
func (*MatchClause) sqlNode() {}
