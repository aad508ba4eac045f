// Package keys tokenizes field-reference strings and resolves them against a
// relation or compound relation into concrete SQL expressions. A reference
// may name a column, traverse into a JSONB column by key or index, carry an
// explicit cast, and end with an operator hint:
//
//	price
//	"weird column" <=
//	body.data.addresses[0].zip
//	quantity::int >
//	posts.title ilike
package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/heftdb/heft/catalog"
	"github.com/heftdb/heft/query/compose"
)

// PathElem is one JSON traversal step: an object key or an array index.
type PathElem struct {
	Value string
	Index bool
}

// Resolved is the outcome of resolving a field reference.
type Resolved struct {
	RelIdent  string // identity of the relation the column belongs to
	Alias     string // qualifying alias, empty for a plain relation
	Column    string
	Expr      string // SQL left-hand expression, traversal and cast applied
	Path      []PathElem
	IsJSON    bool
	Cast      string
	Remainder string // lowercased leftover tokens, looked up as an operator
}

// Resolve tokenizes key and resolves it against source. asText forces the
// text-extraction JSON operators (->>, #>>); they are also forced whenever an
// explicit cast applies to a JSON path, since Postgres casts require text.
func Resolve(source compose.Source, key string, asText bool) (*Resolved, error) {
	toks, cast, err := lex(key)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, &KeyError{Key: key, Message: "empty field reference"}
	}

	r := &Resolved{Cast: cast}

	switch src := source.(type) {
	case *catalog.Relation:
		r.RelIdent = src.Ident()
	case *compose.CompoundRelation:
		var stripped int
		r.Alias, r.RelIdent, stripped = disambiguate(src, toks)
		toks = toks[stripped:]
		if len(toks) == 0 {
			return nil, &KeyError{Key: key, Message: "no column in field reference"}
		}
	default:
		return nil, &KeyError{Key: key, Message: fmt.Sprintf("cannot resolve against %T", source)}
	}

	r.Column = toks[0].text
	toks = toks[1:]

	// JSON path segments run until the first plain token; everything from
	// there on is the operator remainder.
	var rest []token
	for i, t := range toks {
		if t.shape == shapeNone {
			rest = toks[i:]
			break
		}
		r.Path = append(r.Path, PathElem{Value: t.text, Index: t.shape == shapeIndex})
	}
	r.IsJSON = len(r.Path) > 0

	words := make([]string, len(rest))
	for i, t := range rest {
		words[i] = t.text
	}
	r.Remainder = strings.ToLower(strings.TrimSpace(strings.Join(words, " ")))

	r.Expr = render(r, asText)
	return r, nil
}

// disambiguate strips leading tokens naming the relation a compound-source
// reference belongs to. Precedence, which must not be reordered:
//
//	1. first token is the origin relation's name
//	2. first two tokens are the origin's schema and name
//	3. first token is a join node's alias
//	4. first token is a join node's relation name
//	5. first two tokens are a join node's schema and name
//	6. nothing matches: assume the origin
//
// The order resolves the ambiguity between "schema.relation.field" and
// "field.jsonKey.jsonKey2", which are lexically identical.
//
// Rules 2 and 5 only fire with more than two tokens: a reference must still
// name a column after the relation tokens, so a two-token key like
// "public.users" is necessarily a column plus one JSON segment and resolves
// against the origin.
func disambiguate(src *compose.CompoundRelation, toks []token) (alias, ident string, stripped int) {
	origin := src.Origin
	if toks[0].text == origin.Name {
		return src.Alias, origin.Ident(), 1
	}
	if len(toks) > 2 && toks[0].text == origin.Schema && toks[1].text == origin.Name {
		return src.Alias, origin.Ident(), 2
	}
	for _, n := range src.Nodes {
		if toks[0].text == n.Alias {
			return n.Alias, n.Relation.Ident(), 1
		}
	}
	for _, n := range src.Nodes {
		if toks[0].text == n.Relation.Name {
			return n.Alias, n.Relation.Ident(), 1
		}
	}
	for _, n := range src.Nodes {
		if len(toks) > 2 && toks[0].text == n.Relation.Schema && toks[1].text == n.Relation.Name {
			return n.Alias, n.Relation.Ident(), 2
		}
	}
	return src.Alias, origin.Ident(), 0
}

// render produces the SQL expression for a resolved reference.
func render(r *Resolved, asText bool) string {
	expr := pq.QuoteIdentifier(r.Column)
	if r.Alias != "" {
		expr = pq.QuoteIdentifier(r.Alias) + "." + expr
	}

	if len(r.Path) > 0 {
		// An explicit cast on a JSON path forces text extraction: Postgres
		// requires extracting as text before casting.
		text := asText || r.Cast != ""
		if len(r.Path) == 1 {
			op := "->"
			if text {
				op = "->>"
			}
			expr += op + jsonElem(r.Path[0])
		} else {
			op := "#>"
			if text {
				op = "#>>"
			}
			parts := make([]string, len(r.Path))
			for i, p := range r.Path {
				parts[i] = p.Value
			}
			expr += op + pq.QuoteLiteral("{"+strings.Join(parts, ",")+"}")
		}
		if r.Cast != "" {
			return "(" + expr + ")::" + r.Cast
		}
		return expr
	}

	if r.Cast != "" {
		return expr + "::" + r.Cast
	}
	return expr
}

// jsonElem renders a single-step JSON operand: a quoted key or a bare index.
func jsonElem(p PathElem) string {
	if p.Index {
		if _, err := strconv.Atoi(p.Value); err == nil {
			return p.Value
		}
	}
	return pq.QuoteLiteral(p.Value)
}
