package sql

import (
	"fmt"
	"strings"

	"github.com/syssam/sqlcraft/dialect"
)

// Feature is a capability-gated SQL feature. Its String form is the SQL
// keyword used verbatim in UnsupportedFeatureError messages.
type Feature uint8

// Gated features.
const (
	FeatureCTE Feature = iota
	FeatureRecursiveCTE
	FeatureMaterializedCTE
	FeatureWindowFunctions
	FeatureWindowFrameGroups
	FeatureFilterClause
	FeatureOrderedSetAggregate
	FeatureReturning
	FeatureUpdateReturning
	FeatureReturningAlias
	FeatureJSON
	FeatureJSONTable
	FeatureArray
	FeatureRightJoin
	FeatureFullJoin
	FeatureNaturalJoin
	FeatureLateral
	FeatureRollup
	FeatureCube
	FeatureGroupingSets
	FeatureQualify
	FeatureIntersect
	FeatureExcept
	FeatureMerge
	FeatureMergeNotMatchedBySource
	FeatureGraphMatch
	FeatureAnyAll
	FeatureCast
	FeatureCase
	FeatureExists
	FeatureForUpdate
	FeatureForShare
	FeatureNowait
	FeatureSkipLocked
	FeatureDistinctOn
	FeatureNullsOrdering
	FeatureILike
	FeatureUpsert
	FeatureDefaultValues
	FeatureMultiRowInsert
	FeatureValuesSource
	FeatureTableFunctions
	FeatureExplain
	FeatureExplainAnalyze
	FeatureExplainFormat
	FeatureExplainVerbose
	FeatureDropTableIfExists
	FeatureSavepoints
	FeatureReleaseSavepoint
	featureCount
)

var featureNames = [featureCount]string{
	FeatureCTE:                     "CTE",
	FeatureRecursiveCTE:            "RECURSIVE CTE",
	FeatureMaterializedCTE:         "MATERIALIZED CTE",
	FeatureWindowFunctions:         "WINDOW FUNCTIONS",
	FeatureWindowFrameGroups:       "GROUPS FRAME",
	FeatureFilterClause:            "FILTER",
	FeatureOrderedSetAggregate:     "WITHIN GROUP",
	FeatureReturning:               "RETURNING",
	FeatureUpdateReturning:         "UPDATE RETURNING",
	FeatureReturningAlias:          "RETURNING WITH",
	FeatureJSON:                    "JSON OPERATORS",
	FeatureJSONTable:               "JSON_TABLE",
	FeatureArray:                   "ARRAY",
	FeatureRightJoin:               "RIGHT JOIN",
	FeatureFullJoin:                "FULL JOIN",
	FeatureNaturalJoin:             "NATURAL JOIN",
	FeatureLateral:                 "LATERAL",
	FeatureRollup:                  "ROLLUP",
	FeatureCube:                    "CUBE",
	FeatureGroupingSets:            "GROUPING SETS",
	FeatureQualify:                 "QUALIFY",
	FeatureIntersect:               "INTERSECT",
	FeatureExcept:                  "EXCEPT",
	FeatureMerge:                   "MERGE",
	FeatureMergeNotMatchedBySource: "WHEN NOT MATCHED BY SOURCE",
	FeatureGraphMatch:              "MATCH",
	FeatureAnyAll:                  "ANY/ALL",
	FeatureCast:                    "CAST",
	FeatureCase:                    "CASE",
	FeatureExists:                  "EXISTS",
	FeatureForUpdate:               "FOR UPDATE",
	FeatureForShare:                "FOR SHARE",
	FeatureNowait:                  "NOWAIT",
	FeatureSkipLocked:              "SKIP LOCKED",
	FeatureDistinctOn:              "DISTINCT ON",
	FeatureNullsOrdering:           "NULLS FIRST/LAST",
	FeatureILike:                   "ILIKE",
	FeatureUpsert:                  "UPSERT",
	FeatureDefaultValues:           "DEFAULT VALUES",
	FeatureMultiRowInsert:          "MULTI-ROW VALUES",
	FeatureValuesSource:            "VALUES",
	FeatureTableFunctions:          "TABLE FUNCTIONS",
	FeatureExplain:                 "EXPLAIN",
	FeatureExplainAnalyze:          "EXPLAIN ANALYZE",
	FeatureExplainFormat:           "EXPLAIN FORMAT",
	FeatureExplainVerbose:          "EXPLAIN VERBOSE",
	FeatureDropTableIfExists:       "DROP TABLE IF EXISTS",
	FeatureSavepoints:              "SAVEPOINT",
	FeatureReleaseSavepoint:        "RELEASE SAVEPOINT",
}

// String returns the SQL keyword of the feature.
func (f Feature) String() string {
	if f < featureCount {
		return featureNames[f]
	}
	return fmt.Sprintf("Feature(%d)", uint8(f))
}

// Features returns all gated features.
func Features() []Feature {
	fs := make([]Feature, 0, featureCount)
	for f := Feature(0); f < featureCount; f++ {
		fs = append(fs, f)
	}
	return fs
}

// ParseFeature returns the feature with the given keyword (case-insensitive).
func ParseFeature(s string) (Feature, error) {
	for f := Feature(0); f < featureCount; f++ {
		if strings.EqualFold(featureNames[f], strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("dialect/sql: unknown feature %q", s)
}

// UpsertSyntax is the kind of upsert statement a dialect speaks.
type UpsertSyntax string

// Upsert syntax kinds.
const (
	UpsertNone           UpsertSyntax = ""
	UpsertOnConflict     UpsertSyntax = "ON CONFLICT"
	UpsertOnDuplicateKey UpsertSyntax = "ON DUPLICATE KEY UPDATE"
	UpsertMerge          UpsertSyntax = "MERGE"
)

// Capabilities is the immutable capability descriptor of a dialect instance.
// It is computed once from the family's minimum-version table.
type Capabilities struct {
	set    uint64
	upsert UpsertSyntax
	json   string
}

// Supports reports whether the feature is available.
func (c Capabilities) Supports(f Feature) bool {
	return f < featureCount && c.set&(1<<f) != 0
}

// Without returns a copy of c with the given features removed.
func (c Capabilities) Without(fs ...Feature) Capabilities {
	for _, f := range fs {
		c.set &^= 1 << f
	}
	switch {
	case c.upsert == UpsertMerge && !c.Supports(FeatureMerge):
		c.upsert = UpsertNone
	case c.upsert != UpsertMerge && !c.Supports(FeatureUpsert):
		c.upsert = UpsertNone
	}
	if !c.Supports(FeatureJSON) {
		c.json = ""
	}
	return c
}

// Supported returns the supported features in declaration order.
func (c Capabilities) Supported() []Feature {
	var fs []Feature
	for f := Feature(0); f < featureCount; f++ {
		if c.Supports(f) {
			fs = append(fs, f)
		}
	}
	return fs
}

// UpsertSyntax returns the upsert statement kind, or UpsertNone.
func (c Capabilities) UpsertSyntax() UpsertSyntax { return c.upsert }

// JSONAccessOperator returns the operator (or function) used for JSON path access,
// e.g. "->", "#>" or "JSON_EXTRACT". It is empty when JSON access is unsupported.
func (c Capabilities) JSONAccessOperator() string { return c.json }

// featureTable maps each supported feature to the minimum server version
// providing it. The zero version means "all versions".
type featureTable map[Feature]dialect.Version

func (t featureTable) capabilities(v dialect.Version) Capabilities {
	var c Capabilities
	for f, min := range t {
		if v.AtLeast(min) {
			c.set |= 1 << f
		}
	}
	return c
}

var ver = dialect.V

var (
	sqliteFeatures = featureTable{
		FeatureCTE:               ver(3, 8, 3),
		FeatureRecursiveCTE:      ver(3, 8, 3),
		FeatureMaterializedCTE:   ver(3, 35, 0),
		FeatureWindowFunctions:   ver(3, 25, 0),
		FeatureWindowFrameGroups: ver(3, 28, 0),
		FeatureFilterClause:      ver(3, 30, 0),
		FeatureReturning:         ver(3, 35, 0),
		FeatureUpdateReturning:   ver(3, 35, 0),
		FeatureJSON:              ver(3, 38, 0),
		FeatureRightJoin:         ver(3, 39, 0),
		FeatureFullJoin:          ver(3, 39, 0),
		FeatureNaturalJoin:       {},
		FeatureIntersect:         {},
		FeatureExcept:            {},
		FeatureCast:              {},
		FeatureCase:              {},
		FeatureExists:            {},
		FeatureNullsOrdering:     ver(3, 30, 0),
		FeatureUpsert:            ver(3, 24, 0),
		FeatureDefaultValues:     {},
		FeatureMultiRowInsert:    ver(3, 7, 11),
		FeatureValuesSource:      ver(3, 8, 3),
		FeatureTableFunctions:    ver(3, 9, 0),
		FeatureExplain:           {},
		FeatureDropTableIfExists: ver(3, 3, 0),
		FeatureSavepoints:        ver(3, 6, 8),
		FeatureReleaseSavepoint:  ver(3, 6, 8),
	}
	mysqlFeatures = featureTable{
		FeatureCTE:               ver(8, 0, 1),
		FeatureRecursiveCTE:      ver(8, 0, 1),
		FeatureWindowFunctions:   ver(8, 0, 2),
		FeatureJSON:              ver(5, 7, 8),
		FeatureJSONTable:         ver(8, 0, 4),
		FeatureRightJoin:         {},
		FeatureNaturalJoin:       {},
		FeatureLateral:           ver(8, 0, 14),
		FeatureRollup:            {},
		FeatureIntersect:         ver(8, 0, 31),
		FeatureExcept:            ver(8, 0, 31),
		FeatureAnyAll:            {},
		FeatureCast:              {},
		FeatureCase:              {},
		FeatureExists:            {},
		FeatureForUpdate:         {},
		FeatureForShare:          ver(8, 0, 1),
		FeatureNowait:            ver(8, 0, 1),
		FeatureSkipLocked:        ver(8, 0, 1),
		FeatureUpsert:            {},
		FeatureDefaultValues:     {},
		FeatureMultiRowInsert:    {},
		FeatureValuesSource:      ver(8, 0, 19),
		FeatureExplain:           {},
		FeatureExplainAnalyze:    ver(8, 0, 18),
		FeatureExplainFormat:     ver(5, 6, 5),
		FeatureDropTableIfExists: {},
		FeatureSavepoints:        {},
		FeatureReleaseSavepoint:  {},
	}
	mariadbFeatures = featureTable{
		FeatureCTE:               ver(10, 2, 1),
		FeatureRecursiveCTE:      ver(10, 2, 2),
		FeatureWindowFunctions:   ver(10, 2, 0),
		FeatureReturning:         ver(10, 5, 0),
		FeatureJSON:              ver(10, 2, 3),
		FeatureJSONTable:         ver(10, 6, 0),
		FeatureRightJoin:         {},
		FeatureNaturalJoin:       {},
		FeatureRollup:            {},
		FeatureIntersect:         ver(10, 3, 0),
		FeatureExcept:            ver(10, 3, 0),
		FeatureAnyAll:            {},
		FeatureCast:              {},
		FeatureCase:              {},
		FeatureExists:            {},
		FeatureForUpdate:         {},
		FeatureNowait:            ver(10, 3, 0),
		FeatureSkipLocked:        ver(10, 6, 0),
		FeatureUpsert:            {},
		FeatureDefaultValues:     {},
		FeatureMultiRowInsert:    {},
		FeatureValuesSource:      ver(10, 3, 3),
		FeatureExplain:           {},
		FeatureExplainFormat:     ver(10, 1, 0),
		FeatureDropTableIfExists: {},
		FeatureSavepoints:        {},
		FeatureReleaseSavepoint:  {},
	}
	postgresFeatures = featureTable{
		FeatureCTE:                     ver(8, 4, 0),
		FeatureRecursiveCTE:            ver(8, 4, 0),
		FeatureMaterializedCTE:         ver(12, 0, 0),
		FeatureWindowFunctions:         ver(8, 4, 0),
		FeatureWindowFrameGroups:       ver(11, 0, 0),
		FeatureFilterClause:            ver(9, 4, 0),
		FeatureOrderedSetAggregate:     ver(9, 4, 0),
		FeatureReturning:               ver(8, 2, 0),
		FeatureUpdateReturning:         ver(8, 2, 0),
		FeatureReturningAlias:          ver(18, 0, 0),
		FeatureJSON:                    ver(9, 3, 0),
		FeatureJSONTable:               ver(17, 0, 0),
		FeatureArray:                   {},
		FeatureRightJoin:               {},
		FeatureFullJoin:                {},
		FeatureNaturalJoin:             {},
		FeatureLateral:                 ver(9, 3, 0),
		FeatureRollup:                  ver(9, 5, 0),
		FeatureCube:                    ver(9, 5, 0),
		FeatureGroupingSets:            ver(9, 5, 0),
		FeatureIntersect:               {},
		FeatureExcept:                  {},
		FeatureMerge:                   ver(15, 0, 0),
		FeatureMergeNotMatchedBySource: ver(17, 0, 0),
		FeatureAnyAll:                  {},
		FeatureCast:                    {},
		FeatureCase:                    {},
		FeatureExists:                  {},
		FeatureForUpdate:               {},
		FeatureForShare:                {},
		FeatureNowait:                  ver(8, 1, 0),
		FeatureSkipLocked:              ver(9, 5, 0),
		FeatureDistinctOn:              {},
		FeatureNullsOrdering:           ver(8, 3, 0),
		FeatureILike:                   {},
		FeatureUpsert:                  ver(9, 5, 0),
		FeatureDefaultValues:           {},
		FeatureMultiRowInsert:          ver(8, 2, 0),
		FeatureValuesSource:            {},
		FeatureTableFunctions:          {},
		FeatureExplain:                 {},
		FeatureExplainAnalyze:          {},
		FeatureExplainFormat:           ver(9, 0, 0),
		FeatureExplainVerbose:          {},
		FeatureDropTableIfExists:       ver(8, 2, 0),
		FeatureSavepoints:              ver(8, 0, 0),
		FeatureReleaseSavepoint:        ver(8, 0, 0),
	}
	sqlserverFeatures = featureTable{
		FeatureCTE:                     ver(9, 0, 0),
		FeatureRecursiveCTE:            ver(9, 0, 0),
		FeatureWindowFunctions:         ver(11, 0, 0),
		FeatureJSON:                    ver(13, 0, 0),
		FeatureRightJoin:               {},
		FeatureFullJoin:                {},
		FeatureRollup:                  ver(10, 0, 0),
		FeatureCube:                    ver(10, 0, 0),
		FeatureGroupingSets:            ver(10, 0, 0),
		FeatureIntersect:               ver(9, 0, 0),
		FeatureExcept:                  ver(9, 0, 0),
		FeatureMerge:                   ver(10, 0, 0),
		FeatureMergeNotMatchedBySource: ver(10, 0, 0),
		FeatureAnyAll:                  {},
		FeatureCast:                    {},
		FeatureCase:                    {},
		FeatureExists:                  {},
		FeatureDefaultValues:           {},
		FeatureMultiRowInsert:          ver(10, 0, 0),
		FeatureValuesSource:            ver(10, 0, 0),
		FeatureTableFunctions:          {},
		FeatureDropTableIfExists:       ver(13, 0, 0),
		FeatureSavepoints:              {},
	}
	oracleFeatures = featureTable{
		FeatureCTE:                 ver(9, 2, 0),
		FeatureRecursiveCTE:        ver(11, 2, 0),
		FeatureWindowFunctions:     {},
		FeatureWindowFrameGroups:   ver(21, 0, 0),
		FeatureOrderedSetAggregate: {},
		FeatureJSON:                ver(12, 1, 0),
		FeatureJSONTable:           ver(12, 1, 0),
		FeatureRightJoin:           {},
		FeatureFullJoin:            {},
		FeatureNaturalJoin:         {},
		FeatureLateral:             ver(12, 1, 0),
		FeatureRollup:              {},
		FeatureCube:                {},
		FeatureGroupingSets:        {},
		FeatureIntersect:           {},
		FeatureExcept:              {},
		FeatureMerge:               {},
		FeatureGraphMatch:          ver(23, 0, 0),
		FeatureAnyAll:              {},
		FeatureCast:                {},
		FeatureCase:                {},
		FeatureExists:              {},
		FeatureForUpdate:           {},
		FeatureNowait:              {},
		FeatureSkipLocked:          {},
		FeatureNullsOrdering:       {},
		FeatureMultiRowInsert:      ver(23, 0, 0),
		FeatureValuesSource:        ver(23, 0, 0),
		FeatureTableFunctions:      {},
		FeatureExplain:             {},
		FeatureDropTableIfExists:   ver(23, 0, 0),
		FeatureSavepoints:          {},
	}
	duckdbFeatures = featureTable{
		FeatureCTE:                     {},
		FeatureRecursiveCTE:            {},
		FeatureMaterializedCTE:         ver(0, 9, 0),
		FeatureWindowFunctions:         {},
		FeatureWindowFrameGroups:       {},
		FeatureFilterClause:            {},
		FeatureOrderedSetAggregate:     {},
		FeatureReturning:               ver(0, 8, 0),
		FeatureUpdateReturning:         ver(0, 8, 0),
		FeatureJSON:                    {},
		FeatureArray:                   {},
		FeatureRightJoin:               {},
		FeatureFullJoin:                {},
		FeatureNaturalJoin:             {},
		FeatureLateral:                 ver(0, 8, 0),
		FeatureRollup:                  {},
		FeatureCube:                    {},
		FeatureGroupingSets:            {},
		FeatureQualify:                 {},
		FeatureIntersect:               {},
		FeatureExcept:                  {},
		FeatureMerge:                   ver(1, 4, 0),
		FeatureMergeNotMatchedBySource: ver(1, 4, 0),
		FeatureAnyAll:                  {},
		FeatureCast:                    {},
		FeatureCase:                    {},
		FeatureExists:                  {},
		FeatureDistinctOn:              {},
		FeatureNullsOrdering:           {},
		FeatureILike:                   {},
		FeatureUpsert:                  ver(0, 7, 0),
		FeatureDefaultValues:           {},
		FeatureMultiRowInsert:          {},
		FeatureValuesSource:            {},
		FeatureTableFunctions:          {},
		FeatureExplain:                 {},
		FeatureExplainAnalyze:          {},
		FeatureDropTableIfExists:       {},
	}
)
