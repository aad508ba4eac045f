// Package ops maps operator tokens to SQL operators and the value mutators
// that adjust a comparison before emission: IS forms for null and boolean
// equality, IN-list expansion, BETWEEN ranges, and Postgres array literals.
package ops

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Leaf is one comparison in the middle of compilation. Mutators are pure
// functions over a Leaf: they may rewrite the operator, render the right-hand
// side, and append parameters, advancing placeholder numbering from Offset.
type Leaf struct {
	LHS      string
	Operator string
	RHS      string // rendered right-hand side; empty means "one placeholder"
	Value    any
	Offset   int // parameters already consumed by earlier comparisons
	Params   []any
	IsJSON   bool
}

// Mutator adjusts a leaf before emission.
type Mutator func(Leaf) (Leaf, error)

// Entry pairs the SQL operator with its optional mutator.
type Entry struct {
	Operator string
	Mutator  Mutator
}

// table maps operator tokens (symbols and phrases, lowercased) to behavior.
var table = map[string]Entry{
	"=":  {Operator: "=", Mutator: equality},
	"!":  {Operator: "<>", Mutator: equality},
	"!=": {Operator: "<>", Mutator: equality},
	"<>": {Operator: "<>", Mutator: equality},

	"<":  {Operator: "<"},
	">":  {Operator: ">"},
	"<=": {Operator: "<="},
	">=": {Operator: ">="},

	"between": {Operator: "BETWEEN", Mutator: between},

	"is":     {Operator: "IS", Mutator: equality},
	"is not": {Operator: "IS NOT", Mutator: equality},

	"is distinct from":     {Operator: "IS DISTINCT FROM"},
	"is not distinct from": {Operator: "IS NOT DISTINCT FROM"},

	"like":      {Operator: "LIKE"},
	"~~":        {Operator: "LIKE"},
	"not like":  {Operator: "NOT LIKE"},
	"!~~":       {Operator: "NOT LIKE"},
	"ilike":     {Operator: "ILIKE"},
	"~~*":       {Operator: "ILIKE"},
	"not ilike": {Operator: "NOT ILIKE"},
	"!~~*":      {Operator: "NOT ILIKE"},

	"similar to":     {Operator: "SIMILAR TO"},
	"not similar to": {Operator: "NOT SIMILAR TO"},

	"~":  {Operator: "~"},
	"!~": {Operator: "!~"},
	"~*": {Operator: "~*"},
	"!~*": {Operator: "!~*"},

	"@>": {Operator: "@>", Mutator: arrayLiteral},
	"<@": {Operator: "<@", Mutator: arrayLiteral},
	"&&": {Operator: "&&", Mutator: arrayLiteral},
	"?":  {Operator: "?"},
	"?|": {Operator: "?|", Mutator: arrayLiteral},
	"?&": {Operator: "?&", Mutator: arrayLiteral},
}

// Lookup finds the entry for an operator token. An empty token defaults to
// equality.
func Lookup(token string) (Entry, bool) {
	if token == "" {
		return table["="], true
	}
	e, ok := table[strings.ToLower(token)]
	return e, ok
}

// IsContainment reports whether the operator compares JSON/array containment,
// meaning its value wants JSON text serialization when the field is JSONB.
func IsContainment(operator string) bool {
	switch operator {
	case "@>", "<@":
		return true
	}
	return false
}

// OperatesOnJSON reports whether the operator applies to a jsonb value
// itself. Every other operator wants the text-extraction form of a JSON
// traversal so its parameter compares as text, not as jsonb.
func OperatesOnJSON(operator string) bool {
	switch operator {
	case "@>", "<@", "?", "?|", "?&":
		return true
	}
	return false
}

// equality handles null, boolean, and list values on =/<>: null and boolean
// comparisons become IS/IS NOT with an inline literal, lists become IN
// clauses. Anything else falls through to a single placeholder.
func equality(l Leaf) (Leaf, error) {
	switch v := l.Value.(type) {
	case nil:
		l.Operator = isForm(l.Operator)
		l.RHS = "NULL"
		return l, nil
	case bool:
		l.Operator = isForm(l.Operator)
		if v {
			l.RHS = "TRUE"
		} else {
			l.RHS = "FALSE"
		}
		return l, nil
	}
	if isSlice(l.Value) {
		return inList(l)
	}
	return l, nil
}

func isForm(op string) string {
	switch op {
	case "<>", "IS NOT":
		return "IS NOT"
	default:
		return "IS"
	}
}

// inList expands a list value. An empty list emits ANY('{}') (or ALL('{}')
// for inequality) so that empty criteria lists never produce a syntax error.
func inList(l Leaf) (Leaf, error) {
	elems := sliceElems(l.Value)
	negated := l.Operator == "<>" || l.Operator == "NOT IN"

	if len(elems) == 0 {
		if negated {
			l.Operator = "<>"
			l.RHS = "ALL('{}')"
		} else {
			l.Operator = "="
			l.RHS = "ANY('{}')"
		}
		return l, nil
	}

	if negated {
		l.Operator = "NOT IN"
	} else {
		l.Operator = "IN"
	}
	placeholders := make([]string, len(elems))
	for i, e := range elems {
		placeholders[i] = fmt.Sprintf("$%d", l.Offset+len(l.Params)+1)
		l.Params = append(l.Params, e)
	}
	l.RHS = "(" + strings.Join(placeholders, ",") + ")"
	return l, nil
}

// between emits a two-placeholder range. Bounds that are timestamps get an
// explicit ::timestamptz cast.
func between(l Leaf) (Leaf, error) {
	elems := sliceElems(l.Value)
	if elems == nil || len(elems) != 2 {
		return l, fmt.Errorf("between requires a two-element range, got %v", l.Value)
	}

	bounds := make([]string, 2)
	for i, e := range elems {
		bounds[i] = fmt.Sprintf("$%d", l.Offset+len(l.Params)+1)
		if _, ok := e.(time.Time); ok {
			bounds[i] += "::timestamptz"
		}
		l.Params = append(l.Params, e)
	}
	l.RHS = bounds[0] + " AND " + bounds[1]
	return l, nil
}

// arrayLiteral serializes the value into a single Postgres array-literal
// parameter for the array operators (@>, <@, &&, ?|, ?&). A scalar value is
// treated as a one-element array.
func arrayLiteral(l Leaf) (Leaf, error) {
	elems := sliceElems(l.Value)
	if elems == nil {
		elems = []any{l.Value}
	}
	literal, err := FormatArray(elems)
	if err != nil {
		return l, err
	}
	l.RHS = fmt.Sprintf("$%d", l.Offset+len(l.Params)+1)
	l.Params = append(l.Params, literal)
	return l, nil
}

func isSlice(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func sliceElems(v any) []any {
	if !isSlice(v) {
		return nil
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
