package sql

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/sqlcraft"
	"github.com/syssam/sqlcraft/dialect"
)

// PlaceholderStyle is the positional parameter token style of a dialect.
type PlaceholderStyle uint8

// Placeholder styles.
const (
	PlaceholderQuestion PlaceholderStyle = iota // ?
	PlaceholderDollar                           // $1, $2, ...
	PlaceholderAtP                              // @p1, @p2, ...
	PlaceholderColon                            // :1, :2, ...
)

// Token returns the placeholder for the n-th (1-based) parameter.
func (s PlaceholderStyle) Token(n int) string {
	switch s {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(n)
	case PlaceholderAtP:
		return "@p" + strconv.Itoa(n)
	case PlaceholderColon:
		return ":" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// Numbered reports whether the style carries the parameter position.
func (s PlaceholderStyle) Numbered() bool {
	return s != PlaceholderQuestion
}

type limitStyle uint8

const (
	limitOffset limitStyle = iota // LIMIT ? OFFSET ?
	offsetFetch                   // OFFSET ? ROWS FETCH NEXT ? ROWS ONLY
)

type explainStyle uint8

const (
	explainPlain     explainStyle = iota // EXPLAIN [ANALYZE] stmt
	explainOptions                       // EXPLAIN (ANALYZE, VERBOSE, FORMAT JSON) stmt
	explainMySQL                         // EXPLAIN ANALYZE / EXPLAIN FORMAT=JSON stmt
	explainQueryPlan                     // EXPLAIN QUERY PLAN stmt
	explainPlanFor                       // EXPLAIN PLAN FOR stmt
)

type jsonStyle uint8

const (
	jsonArrow     jsonStyle = iota // expr -> ? / expr ->> ?
	jsonPathArray                  // expr #> ? / expr #>> ? with a text[] path
	jsonExtract                    // JSON_EXTRACT(expr, ?) / JSON_UNQUOTE(JSON_EXTRACT(expr, ?))
	jsonValue                      // JSON_QUERY(expr, ?) / JSON_VALUE(expr, ?)
	jsonValueLit                   // JSON_QUERY(expr, 'path') / JSON_VALUE(expr, 'path')
)

// syntax holds the non-capability spelling differences of a family.
type syntax struct {
	quote, quoteEnd  byte
	placeholder      PlaceholderStyle
	tableAliasAS     bool // "t" AS "a" vs "t" "a"
	recursiveKeyword bool // WITH RECURSIVE vs WITH
	limit            limitStyle
	offsetSentinel   any  // LIMIT value synthesized when only OFFSET is given
	fetchNeedsOffset bool // FETCH NEXT requires a preceding OFFSET
	fromDual         bool // SELECT without FROM reads from DUAL
	withRollup       bool // GROUP BY ... WITH ROLLUP instead of ROLLUP (...)
	emptyDefaults    bool // INSERT ... () VALUES () instead of DEFAULT VALUES
	explain          explainStyle
	json             jsonStyle
	valuesRow        bool // VALUES ROW(...) row constructors
	exceptKeyword    string
	backslashEscape  bool
	mergeTerminator  string
	mergeWhere       bool // action conditions as WHERE suffix instead of AND
	savepoint        string
	releaseSavepoint string
	rollbackTo       string
	isolation        []sql.IsolationLevel
}

// family describes one database family.
type family struct {
	name     string
	features featureTable
	upsert   UpsertSyntax
	json     string
	syntax   syntax
	latest   dialect.Version
}

var families = map[string]*family{
	dialect.SQLite: {
		name:     dialect.SQLite,
		features: sqliteFeatures,
		upsert:   UpsertOnConflict,
		json:     "->",
		latest:   ver(3, 45, 0),
		syntax: syntax{
			quote:            '"',
			quoteEnd:         '"',
			placeholder:      PlaceholderQuestion,
			tableAliasAS:     true,
			recursiveKeyword: true,
			limit:            limitOffset,
			offsetSentinel:   -1,
			json:             jsonArrow,
			exceptKeyword:    "EXCEPT",
			explain:          explainQueryPlan,
			savepoint:        "SAVEPOINT %s",
			releaseSavepoint: "RELEASE SAVEPOINT %s",
			rollbackTo:       "ROLLBACK TO SAVEPOINT %s",
			isolation:        []sql.IsolationLevel{sql.LevelSerializable},
		},
	},
	dialect.MySQL: {
		name:     dialect.MySQL,
		features: mysqlFeatures,
		upsert:   UpsertOnDuplicateKey,
		json:     "JSON_EXTRACT",
		latest:   ver(8, 0, 36),
		syntax: syntax{
			quote:            '`',
			quoteEnd:         '`',
			placeholder:      PlaceholderQuestion,
			tableAliasAS:     true,
			recursiveKeyword: true,
			limit:            limitOffset,
			offsetSentinel:   uint64(18446744073709551615),
			json:             jsonExtract,
			valuesRow:        true,
			exceptKeyword:    "EXCEPT",
			backslashEscape:  true,
			withRollup:       true,
			emptyDefaults:    true,
			explain:          explainMySQL,
			savepoint:        "SAVEPOINT %s",
			releaseSavepoint: "RELEASE SAVEPOINT %s",
			rollbackTo:       "ROLLBACK TO SAVEPOINT %s",
			isolation: []sql.IsolationLevel{
				sql.LevelReadUncommitted, sql.LevelReadCommitted,
				sql.LevelRepeatableRead, sql.LevelSerializable,
			},
		},
	},
	dialect.MariaDB: {
		name:     dialect.MariaDB,
		features: mariadbFeatures,
		upsert:   UpsertOnDuplicateKey,
		json:     "JSON_EXTRACT",
		latest:   ver(11, 4, 0),
		syntax: syntax{
			quote:            '`',
			quoteEnd:         '`',
			placeholder:      PlaceholderQuestion,
			tableAliasAS:     true,
			recursiveKeyword: true,
			limit:            limitOffset,
			offsetSentinel:   uint64(18446744073709551615),
			json:             jsonExtract,
			exceptKeyword:    "EXCEPT",
			backslashEscape:  true,
			withRollup:       true,
			emptyDefaults:    true,
			explain:          explainMySQL,
			savepoint:        "SAVEPOINT %s",
			releaseSavepoint: "RELEASE SAVEPOINT %s",
			rollbackTo:       "ROLLBACK TO SAVEPOINT %s",
			isolation: []sql.IsolationLevel{
				sql.LevelReadUncommitted, sql.LevelReadCommitted,
				sql.LevelRepeatableRead, sql.LevelSerializable,
			},
		},
	},
	dialect.Postgres: {
		name:     dialect.Postgres,
		features: postgresFeatures,
		upsert:   UpsertOnConflict,
		json:     "#>",
		latest:   ver(17, 0, 0),
		syntax: syntax{
			quote:            '"',
			quoteEnd:         '"',
			placeholder:      PlaceholderDollar,
			tableAliasAS:     true,
			recursiveKeyword: true,
			limit:            limitOffset,
			json:             jsonPathArray,
			exceptKeyword:    "EXCEPT",
			explain:          explainOptions,
			savepoint:        "SAVEPOINT %s",
			releaseSavepoint: "RELEASE SAVEPOINT %s",
			rollbackTo:       "ROLLBACK TO SAVEPOINT %s",
			isolation: []sql.IsolationLevel{
				sql.LevelReadUncommitted, sql.LevelReadCommitted,
				sql.LevelRepeatableRead, sql.LevelSerializable,
			},
		},
	},
	dialect.SQLServer: {
		name:     dialect.SQLServer,
		features: sqlserverFeatures,
		upsert:   UpsertMerge,
		json:     "JSON_VALUE",
		latest:   ver(16, 0, 0),
		syntax: syntax{
			quote:            '[',
			quoteEnd:         ']',
			placeholder:      PlaceholderAtP,
			tableAliasAS:     true,
			limit:            offsetFetch,
			json:             jsonValue,
			exceptKeyword:    "EXCEPT",
			mergeTerminator:  ";",
			fetchNeedsOffset: true,
			savepoint:        "SAVE TRANSACTION %s",
			rollbackTo:       "ROLLBACK TRANSACTION %s",
			isolation: []sql.IsolationLevel{
				sql.LevelReadUncommitted, sql.LevelReadCommitted,
				sql.LevelRepeatableRead, sql.LevelSnapshot, sql.LevelSerializable,
			},
		},
	},
	dialect.Oracle: {
		name:     dialect.Oracle,
		features: oracleFeatures,
		upsert:   UpsertMerge,
		json:     "JSON_VALUE",
		latest:   ver(23, 0, 0),
		syntax: syntax{
			quote:         '"',
			quoteEnd:      '"',
			placeholder:   PlaceholderColon,
			limit:         offsetFetch,
			json:          jsonValueLit,
			exceptKeyword: "MINUS",
			mergeWhere:    true,
			explain:       explainPlanFor,
			fromDual:      true,
			savepoint:     "SAVEPOINT %s",
			rollbackTo:    "ROLLBACK TO SAVEPOINT %s",
			isolation:     []sql.IsolationLevel{sql.LevelReadCommitted, sql.LevelSerializable},
		},
	},
	dialect.DuckDB: {
		name:     dialect.DuckDB,
		features: duckdbFeatures,
		upsert:   UpsertOnConflict,
		json:     "->",
		latest:   ver(1, 1, 0),
		syntax: syntax{
			quote:            '"',
			quoteEnd:         '"',
			placeholder:      PlaceholderQuestion,
			tableAliasAS:     true,
			recursiveKeyword: true,
			limit:            limitOffset,
			json:             jsonArrow,
			exceptKeyword:    "EXCEPT",
			isolation:        []sql.IsolationLevel{sql.LevelSnapshot},
		},
	},
}

// Dialect formats expression nodes into SQL text and positional parameters
// for one database family at one server version. A Dialect is immutable
// and safe for concurrent use.
type Dialect struct {
	name    string
	version dialect.Version
	caps    Capabilities
	syn     syntax
}

// New returns the dialect for the given family name (aliases such as
// "postgresql" or "sqlite3" are accepted) and server version. The zero
// version selects the most recent version known to the package.
func New(name string, version dialect.Version) (*Dialect, error) {
	f, ok := families[dialect.Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("dialect/sql: unsupported dialect %q", name)
	}
	if version.IsZero() {
		version = f.latest
	}
	caps := f.features.capabilities(version)
	if caps.Supports(FeatureUpsert) {
		caps.upsert = f.upsert
	} else if f.upsert == UpsertMerge && caps.Supports(FeatureMerge) {
		caps.upsert = UpsertMerge
	}
	if caps.Supports(FeatureJSON) {
		caps.json = f.json
	}
	syn := f.syntax
	if f.name == dialect.Oracle && version.AtLeast(ver(21, 0, 0)) {
		syn.exceptKeyword = "EXCEPT"
	}
	if f.name == dialect.Oracle && version.AtLeast(ver(23, 0, 0)) {
		syn.fromDual = false
	}
	return &Dialect{name: f.name, version: version, caps: caps, syn: syn}, nil
}

// MustNew is like New but panics on error.
func MustNew(name string, version dialect.Version) *Dialect {
	d, err := New(name, version)
	if err != nil {
		panic(err)
	}
	return d
}

// SQLite returns the SQLite dialect at the given version.
func SQLite(v dialect.Version) *Dialect { return MustNew(dialect.SQLite, v) }

// MySQL returns the MySQL dialect at the given version.
func MySQL(v dialect.Version) *Dialect { return MustNew(dialect.MySQL, v) }

// MariaDB returns the MariaDB dialect at the given version.
func MariaDB(v dialect.Version) *Dialect { return MustNew(dialect.MariaDB, v) }

// Postgres returns the PostgreSQL dialect at the given version.
func Postgres(v dialect.Version) *Dialect { return MustNew(dialect.Postgres, v) }

// SQLServer returns the SQL Server dialect at the given version.
func SQLServer(v dialect.Version) *Dialect { return MustNew(dialect.SQLServer, v) }

// Oracle returns the Oracle dialect at the given version.
func Oracle(v dialect.Version) *Dialect { return MustNew(dialect.Oracle, v) }

// DuckDB returns the DuckDB dialect at the given version.
func DuckDB(v dialect.Version) *Dialect { return MustNew(dialect.DuckDB, v) }

// Without returns a derived dialect with the given features disabled.
func (d *Dialect) Without(fs ...Feature) *Dialect {
	c := *d
	c.caps = d.caps.Without(fs...)
	return &c
}

// Name returns the dialect family name.
func (d *Dialect) Name() string { return d.name }

// Version returns the server version the dialect is bound to.
func (d *Dialect) Version() dialect.Version { return d.version }

// String returns the family name and version, e.g. "sqlite 3.45.0".
func (d *Dialect) String() string { return d.name + " " + d.version.String() }

// Capabilities returns the capability descriptor.
func (d *Dialect) Capabilities() Capabilities { return d.caps }

// Supports reports whether the dialect provides the feature.
func (d *Dialect) Supports(f Feature) bool { return d.caps.Supports(f) }

// SupportsCTE reports whether WITH queries are available.
func (d *Dialect) SupportsCTE() bool { return d.caps.Supports(FeatureCTE) }

// SupportsWindowFunctions reports whether OVER (...) is available.
func (d *Dialect) SupportsWindowFunctions() bool { return d.caps.Supports(FeatureWindowFunctions) }

// SupportsReturning reports whether INSERT/DELETE ... RETURNING is available.
func (d *Dialect) SupportsReturning() bool { return d.caps.Supports(FeatureReturning) }

// SupportsRightJoin reports whether RIGHT JOIN is available.
func (d *Dialect) SupportsRightJoin() bool { return d.caps.Supports(FeatureRightJoin) }

// SupportsFullJoin reports whether FULL JOIN is available.
func (d *Dialect) SupportsFullJoin() bool { return d.caps.Supports(FeatureFullJoin) }

// SupportsJSONTable reports whether JSON_TABLE is available.
func (d *Dialect) SupportsJSONTable() bool { return d.caps.Supports(FeatureJSONTable) }

// SupportsMerge reports whether MERGE is available.
func (d *Dialect) SupportsMerge() bool { return d.caps.Supports(FeatureMerge) }

// SupportsSavepoints reports whether SAVEPOINT is available.
func (d *Dialect) SupportsSavepoints() bool { return d.caps.Supports(FeatureSavepoints) }

// UpsertSyntax returns the kind of upsert statement of the dialect.
func (d *Dialect) UpsertSyntax() UpsertSyntax { return d.caps.UpsertSyntax() }

// JSONAccessOperator returns the JSON path access operator or function name.
func (d *Dialect) JSONAccessOperator() string { return d.caps.JSONAccessOperator() }

// Placeholder returns the parameter placeholder for the n-th (1-based) parameter.
func (d *Dialect) Placeholder(n int) string { return d.syn.placeholder.Token(n) }

// PlaceholderStyle returns the placeholder style of the dialect.
func (d *Dialect) PlaceholderStyle() PlaceholderStyle { return d.syn.placeholder }

// QuoteIdent quotes an identifier, doubling any embedded quote character.
// The "*" wildcard is returned as is.
func (d *Dialect) QuoteIdent(name string) string {
	if name == "*" {
		return name
	}
	if d.name == dialect.Postgres {
		return pq.QuoteIdentifier(name)
	}
	end := string(d.syn.quoteEnd)
	return string(d.syn.quote) + strings.ReplaceAll(name, end, end+end) + end
}

// QuoteString quotes a string literal for inline use (JSON paths, EXPLAIN
// formats). Values are always bound as parameters instead.
func (d *Dialect) QuoteString(s string) string {
	if d.syn.backslashEscape {
		return "'" + escapeStringValue(s) + "'"
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// SupportsIsolationLevel reports whether the dialect can start a transaction
// at the given level. The default level is always supported.
func (d *Dialect) SupportsIsolationLevel(l sql.IsolationLevel) bool {
	if l == sql.LevelDefault {
		return true
	}
	for _, s := range d.syn.isolation {
		if s == l {
			return true
		}
	}
	return false
}

// SavepointSQL returns the statement creating the named savepoint.
func (d *Dialect) SavepointSQL(name string) (string, error) {
	if !d.Supports(FeatureSavepoints) || d.syn.savepoint == "" {
		return "", d.unsupported(FeatureSavepoints, "")
	}
	return fmt.Sprintf(d.syn.savepoint, d.QuoteIdent(name)), nil
}

// ReleaseSavepointSQL returns the statement releasing the named savepoint.
// Dialects without RELEASE SAVEPOINT return an empty statement; the savepoint
// is discarded when the enclosing transaction ends.
func (d *Dialect) ReleaseSavepointSQL(name string) (string, error) {
	if !d.Supports(FeatureSavepoints) {
		return "", d.unsupported(FeatureSavepoints, "")
	}
	if !d.Supports(FeatureReleaseSavepoint) || d.syn.releaseSavepoint == "" {
		return "", nil
	}
	return fmt.Sprintf(d.syn.releaseSavepoint, d.QuoteIdent(name)), nil
}

// RollbackToSavepointSQL returns the statement rolling back to the named savepoint.
func (d *Dialect) RollbackToSavepointSQL(name string) (string, error) {
	if !d.Supports(FeatureSavepoints) || d.syn.rollbackTo == "" {
		return "", d.unsupported(FeatureSavepoints, "")
	}
	return fmt.Sprintf(d.syn.rollbackTo, d.QuoteIdent(name)), nil
}

// unsupported returns the typed error for a gated feature.
func (d *Dialect) unsupported(f Feature, reason string) error {
	return sqlcraft.NewUnsupportedFeatureError(f.String(), d.String(), reason)
}

// unsupportedName is like unsupported with a free-form feature name,
// e.g. "NATURAL RIGHT JOIN".
func (d *Dialect) unsupportedName(name, reason string) error {
	return sqlcraft.NewUnsupportedFeatureError(name, d.String(), reason)
}

// Format renders the node into SQL text and its ordered parameters.
// It is the entry point of every Node's Render method.
func (d *Dialect) Format(n Node) (string, []any, error) {
	b := d.builder(0)
	b.Node(n)
	return b.Query()
}

// builder returns a fresh Builder whose placeholders start after offset.
func (d *Dialect) builder(offset int) *Builder {
	return &Builder{d: d, offset: offset}
}
