package sql

import (
	"regexp"

	"github.com/syssam/sqlcraft"
)

// numbered matches the numbered placeholder tokens of each style.
var numbered = map[PlaceholderStyle]*regexp.Regexp{
	PlaceholderDollar: regexp.MustCompile(`\$[0-9]+`),
	PlaceholderAtP:    regexp.MustCompile(`@p[0-9]+`),
	PlaceholderColon:  regexp.MustCompile(`:[0-9]+`),
}

// placeholders returns the [start, end) offsets of every placeholder token
// of the dialect in query.
func (d *Dialect) placeholders(query string) [][]int {
	if re, ok := numbered[d.syn.placeholder]; ok {
		return re.FindAllStringIndex(query, -1)
	}
	var locs [][]int
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			locs = append(locs, []int{i, i + 1})
		}
	}
	return locs
}

// Substitute binds params to the placeholders of a raw parameterized query.
// The i-th placeholder in the text receives the i-th parameter. A Node
// parameter is inlined as its own SQL text and contributes its own
// parameters; any other value stays bound to a placeholder. Numbered
// placeholders are renumbered to match the resulting parameter list.
//
// Placeholders are located by plain text search: a placeholder token
// inside a string literal or a comment of query is treated like any other.
func Substitute(d *Dialect, query string, params ...any) (string, []any, error) {
	locs := d.placeholders(query)
	if len(locs) != len(params) {
		return "", nil, sqlcraft.NewStructuralError("SUBSTITUTE", "query has %d placeholders but %d parameters were given", len(locs), len(params))
	}
	var (
		args  []any
		texts = make([]string, len(params))
	)
	for i, p := range params {
		n, ok := p.(Node)
		if !ok {
			args = append(args, p)
			texts[i] = d.Placeholder(len(args))
			continue
		}
		b := d.builder(len(args))
		b.Node(n)
		text, nargs, err := b.Query()
		if err != nil {
			return "", nil, err
		}
		texts[i] = text
		args = append(args, nargs...)
	}
	// Rewrite from the last placeholder back, so offsets of earlier
	// placeholders remain valid.
	out := query
	for i := len(locs) - 1; i >= 0; i-- {
		out = out[:locs[i][0]] + texts[i] + out[locs[i][1]:]
	}
	return out, args, nil
}
