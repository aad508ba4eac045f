// Package predicate compiles criteria maps into SQL predicate text and an
// ordered parameter list. Criteria keys are field references, optionally
// suffixed with an operator token; "and"/"or" keys (and their $-prefixed
// aliases) introduce logical grouping. Placeholder numbering threads one
// explicit offset cursor left-to-right through the whole tree.
package predicate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/heftdb/heft/internal/debug"
	"github.com/heftdb/heft/query/compose"
	"github.com/heftdb/heft/query/keys"
	"github.com/heftdb/heft/query/ops"
)

// Compiled is a predicate expression and the parameters it references. The
// highest placeholder ordinal in Text equals Offset plus len(Params).
type Compiled struct {
	Text   string
	Params []any
}

// Options adjust compilation.
type Options struct {
	// Offset is the number of placeholders already consumed by the enclosing
	// statement; numbering starts at Offset+1.
	Offset int
	// Document compiles against a JSONB document body instead of relation
	// columns.
	Document bool
	// DocumentColumn names the body column in document mode. Defaults to
	// "body".
	DocumentColumn string
}

// expression tree, built once per compile call.

type expr interface{ isExpr() }

type leaf struct {
	key   string
	value any
}

type groupOp int

const (
	groupAnd groupOp = iota
	groupOr
)

type group struct {
	op       groupOp
	children []expr
}

func (leaf) isExpr()  {}
func (group) isExpr() {}

// Compile compiles a criteria map against a source. An empty criteria map
// compiles to the constant TRUE with no parameters.
func Compile(source compose.Source, criteria map[string]any, opts Options) (*Compiled, error) {
	tree, err := parse(criteria)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return &Compiled{Text: "TRUE"}, nil
	}

	c := &compiler{source: source, opts: opts}
	text, params, err := c.compile(tree, opts.Offset)
	if err != nil {
		return nil, err
	}
	debug.Debug("compiled predicate", "text", text, "params", len(params))
	return &Compiled{Text: text, Params: params}, nil
}

// parse builds the expression tree. Keys at each level are visited in sorted
// order so that compiling the same map twice yields identical output.
func parse(criteria map[string]any) (expr, error) {
	if len(criteria) == 0 {
		return nil, nil
	}

	keyList := make([]string, 0, len(criteria))
	for k := range criteria {
		keyList = append(keyList, k)
	}
	sort.Strings(keyList)

	g := group{op: groupAnd}
	for _, k := range keyList {
		v := criteria[k]
		switch strings.ToLower(k) {
		case "or", "$or":
			child, err := parseGroup(k, v, groupOr)
			if err != nil {
				return nil, err
			}
			g.children = append(g.children, child)
		case "and", "$and":
			child, err := parseGroup(k, v, groupAnd)
			if err != nil {
				return nil, err
			}
			g.children = append(g.children, child)
		default:
			g.children = append(g.children, leaf{key: k, value: v})
		}
	}
	if len(g.children) == 1 {
		return g.children[0], nil
	}
	return g, nil
}

// parseGroup parses the value of an and/or key: a list of criteria maps,
// each compiled to a conjunction.
func parseGroup(key string, value any, op groupOp) (expr, error) {
	maps, err := criteriaList(value)
	if err != nil {
		return nil, &CompileError{Message: fmt.Sprintf("%s must hold a list of criteria maps", key), Err: err}
	}
	g := group{op: op}
	for _, m := range maps {
		child, err := parse(m)
		if err != nil {
			return nil, err
		}
		if child == nil {
			child = group{op: groupAnd}
		}
		g.children = append(g.children, child)
	}
	return g, nil
}

func criteriaList(value any) ([]map[string]any, error) {
	switch v := value.(type) {
	case []map[string]any:
		return v, nil
	case []any:
		out := make([]map[string]any, len(v))
		for i, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, not a map", i, e)
			}
			out[i] = m
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value is %T, not a list", value)
	}
}

type compiler struct {
	source compose.Source
	opts   Options
}

// compile walks the tree. offset is the running parameter count; each node
// returns its text and the parameters it consumed, concatenated by the
// caller in strict left-to-right order.
func (c *compiler) compile(e expr, offset int) (string, []any, error) {
	switch node := e.(type) {
	case leaf:
		return c.compileLeaf(node, offset)
	case group:
		if len(node.children) == 0 {
			return "TRUE", nil, nil
		}
		connective := " AND "
		if node.op == groupOr {
			connective = " OR "
		}
		var (
			parts  []string
			params []any
		)
		for _, child := range node.children {
			text, childParams, err := c.compile(child, offset+len(params))
			if err != nil {
				return "", nil, err
			}
			if _, isGroup := child.(group); isGroup {
				text = "(" + text + ")"
			}
			parts = append(parts, text)
			params = append(params, childParams...)
		}
		text := strings.Join(parts, connective)
		return text, params, nil
	default:
		return "", nil, &CompileError{Message: fmt.Sprintf("unknown expression node %T", e)}
	}
}

func (c *compiler) compileLeaf(node leaf, offset int) (string, []any, error) {
	if c.opts.Document {
		return c.compileDocumentLeaf(node, offset)
	}

	resolved, err := keys.Resolve(c.source, node.key, false)
	if err != nil {
		return "", nil, &CompileError{Message: "cannot resolve field reference", Err: err}
	}

	// Map-valued criteria spell the operator as the map key:
	// {field: {">=": value}}. A key-suffix operator takes precedence; the
	// map form only applies when the key carries no operator of its own.
	if resolved.Remainder == "" {
		if m, ok := operatorMap(node.value); ok {
			return compileOperatorMap(m, offset, func(entry ops.Entry, value any, offset int) (string, []any, error) {
				return c.compileComparison(node.key, resolved, entry, value, offset)
			})
		}
	}

	entry, ok := ops.Lookup(resolved.Remainder)
	if !ok {
		return "", nil, &CompileError{Message: fmt.Sprintf("unknown operator %q in key %q", resolved.Remainder, node.key)}
	}
	return c.compileComparison(node.key, resolved, entry, node.value, offset)
}

// compileComparison emits one comparison against a resolved reference.
func (c *compiler) compileComparison(key string, resolved *keys.Resolved, entry ops.Entry, value any, offset int) (string, []any, error) {
	mutator := entry.Mutator
	if resolved.IsJSON {
		// Only the jsonb operators compare the extracted value as jsonb;
		// everything else re-resolves with text extraction so the parameter
		// compares as plain text.
		if !ops.OperatesOnJSON(entry.Operator) {
			var err error
			resolved, err = keys.Resolve(c.source, key, true)
			if err != nil {
				return "", nil, &CompileError{Message: "cannot resolve field reference", Err: err}
			}
		}
		var err error
		value, err = jsonValue(value, entry.Operator)
		if err != nil {
			return "", nil, &CompileError{Message: "cannot serialize JSON comparison value", Err: err}
		}
		// JSONB containment takes the serialized document itself, not a
		// Postgres array literal.
		if ops.IsContainment(entry.Operator) {
			mutator = nil
		}
	}

	l := ops.Leaf{
		LHS:      resolved.Expr,
		Operator: entry.Operator,
		Value:    value,
		Offset:   offset,
		IsJSON:   resolved.IsJSON,
	}
	if mutator != nil {
		var err error
		l, err = mutator(l)
		if err != nil {
			return "", nil, &CompileError{Message: "invalid comparison value", Err: err}
		}
	}
	if l.RHS == "" {
		l.RHS = fmt.Sprintf("$%d", l.Offset+len(l.Params)+1)
		l.Params = append(l.Params, l.Value)
	}

	return l.LHS + " " + l.Operator + " " + l.RHS, l.Params, nil
}

// operatorMap recognizes the map-valued operator form: a non-empty map whose
// every key is a known operator token. Anything else is an ordinary
// comparison value.
func operatorMap(value any) (map[string]any, bool) {
	m, ok := value.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if k == "" {
			return nil, false
		}
		if _, known := ops.Lookup(k); !known {
			return nil, false
		}
	}
	return m, true
}

// compileOperatorMap conjoins one comparison per operator key, in sorted
// order, threading the parameter offset left-to-right. Multiple comparisons
// are parenthesized so the conjunction survives an enclosing OR.
func compileOperatorMap(m map[string]any, offset int, compare func(ops.Entry, any, int) (string, []any, error)) (string, []any, error) {
	tokens := make([]string, 0, len(m))
	for tok := range m {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	var (
		parts  []string
		params []any
	)
	for _, tok := range tokens {
		entry, _ := ops.Lookup(tok)
		text, p, err := compare(entry, m[tok], offset+len(params))
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, text)
		params = append(params, p...)
	}
	text := strings.Join(parts, " AND ")
	if len(parts) > 1 {
		text = "(" + text + ")"
	}
	return text, params, nil
}
