package sql

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field is a typed column reference that builds predicates over values
// of type T. It lets callers declare their columns once:
//
//	var Age = sql.Field[int]("age")
//	stmt := sql.Select().From(sql.T("users")).Where(Age.GTE(18))
type Field[T any] string

// Name returns the column name.
func (f Field[T]) Name() string { return string(f) }

// C returns the column node of the field.
func (f Field[T]) C() *Column { return C(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f Field[T]) EQ(v T) Node { return Compare(OpEQ, f.C(), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Field[T]) NEQ(v T) Node { return Compare(OpNEQ, f.C(), v) }

// In returns a predicate that checks if the field value is in the given list.
func (f Field[T]) In(vs ...T) Node { return In(string(f), anySlice(vs)...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f Field[T]) NotIn(vs ...T) Node { return NotIn(string(f), anySlice(vs)...) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Field[T]) GT(v T) Node { return Compare(OpGT, f.C(), v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f Field[T]) GTE(v T) Node { return Compare(OpGTE, f.C(), v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Field[T]) LT(v T) Node { return Compare(OpLT, f.C(), v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f Field[T]) LTE(v T) Node { return Compare(OpLTE, f.C(), v) }

// Between returns a predicate that checks if the field is within [low, high].
func (f Field[T]) Between(low, high T) Node { return InRange(string(f), low, high) }

// IsNull returns a predicate that checks if the field is NULL.
func (f Field[T]) IsNull() Node { return Null(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f Field[T]) NotNull() Node { return NotNull(string(f)) }

// Common field types.
type (
	IntField     = Field[int]
	Int64Field   = Field[int64]
	Float64Field = Field[float64]
	TimeField    = Field[time.Time]
	UUIDField    = Field[uuid.UUID]
)

// StringField is a string column. Besides the comparisons of Field it
// provides pattern predicates whose arguments are matched literally.
type StringField string

func (f StringField) field() Field[string] { return Field[string](f) }

// Name returns the column name.
func (f StringField) Name() string { return string(f) }

// C returns the column node of the field.
func (f StringField) C() *Column { return C(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField) EQ(v string) Node { return f.field().EQ(v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f StringField) NEQ(v string) Node { return f.field().NEQ(v) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField) In(vs ...string) Node { return f.field().In(vs...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f StringField) NotIn(vs ...string) Node { return f.field().NotIn(vs...) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f StringField) GT(v string) Node { return f.field().GT(v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f StringField) GTE(v string) Node { return f.field().GTE(v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f StringField) LT(v string) Node { return f.field().LT(v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f StringField) LTE(v string) Node { return f.field().LTE(v) }

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField) Contains(v string) Node {
	return f.like(f.C(), "%"+escapeLike(v)+"%")
}

// ContainsFold returns a predicate that checks if the field contains the given substring (case-insensitive).
func (f StringField) ContainsFold(v string) Node {
	return f.like(Func("LOWER", f.C()), "%"+escapeLike(strings.ToLower(v))+"%")
}

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField) HasPrefix(v string) Node {
	return f.like(f.C(), escapeLike(v)+"%")
}

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f StringField) HasSuffix(v string) Node {
	return f.like(f.C(), "%"+escapeLike(v))
}

// EqualFold returns a predicate that checks if the field equals the given value (case-insensitive).
func (f StringField) EqualFold(v string) Node {
	return Compare(OpEQ, Func("LOWER", f.C()), strings.ToLower(v))
}

// IsNull returns a predicate that checks if the field is NULL.
func (f StringField) IsNull() Node { return f.field().IsNull() }

// NotNull returns a predicate that checks if the field is not NULL.
func (f StringField) NotNull() Node { return f.field().NotNull() }

func (f StringField) like(expr Node, pattern string) Node {
	return &Like{Op: OpLike, Expr: expr, Pattern: Lit(pattern), Escape: `\`}
}

// escapeLike escapes the LIKE wildcards of s with a backslash.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BoolField is a boolean column.
type BoolField string

// Name returns the column name.
func (f BoolField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f BoolField) EQ(v bool) Node { return Compare(OpEQ, C(string(f)), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f BoolField) NEQ(v bool) Node { return Compare(OpNEQ, C(string(f)), v) }

// IsNull returns a predicate that checks if the field is NULL.
func (f BoolField) IsNull() Node { return Null(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f BoolField) NotNull() Node { return NotNull(string(f)) }

// EnumField is a column holding values of a string enum type.
type EnumField[T ~string] string

// Name returns the column name.
func (f EnumField[T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f EnumField[T]) EQ(v T) Node { return Compare(OpEQ, C(string(f)), string(v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f EnumField[T]) NEQ(v T) Node { return Compare(OpNEQ, C(string(f)), string(v)) }

// In returns a predicate that checks if the field value is in the given list.
func (f EnumField[T]) In(vs ...T) Node { return In(string(f), enumValues(vs)...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f EnumField[T]) NotIn(vs ...T) Node { return NotIn(string(f), enumValues(vs)...) }

// IsNull returns a predicate that checks if the field is NULL.
func (f EnumField[T]) IsNull() Node { return Null(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f EnumField[T]) NotNull() Node { return NotNull(string(f)) }

func enumValues[T ~string](vs []T) []any {
	v := make([]any, len(vs))
	for i := range vs {
		v[i] = string(vs[i])
	}
	return v
}

func anySlice[T any](vs []T) []any {
	v := make([]any, len(vs))
	for i := range vs {
		v[i] = vs[i]
	}
	return v
}
