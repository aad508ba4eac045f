package predicate

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/heftdb/heft/query/keys"
	"github.com/heftdb/heft/query/ops"
)

// DefaultDocumentColumn is the JSONB body column document mode operates on.
const DefaultDocumentColumn = "body"

// compileDocumentLeaf compiles one comparison in document mode: the key is
// implicitly prefixed to traverse the body column. Plain equality uses JSONB
// containment on the whole body, which a GIN index can serve; every other
// operator extracts the addressed value as text.
func (c *compiler) compileDocumentLeaf(node leaf, offset int) (string, []any, error) {
	bodyCol := c.opts.DocumentColumn
	if bodyCol == "" {
		bodyCol = DefaultDocumentColumn
	}

	resolved, err := keys.Resolve(c.source, bodyCol+"."+node.key, true)
	if err != nil {
		return "", nil, &CompileError{Message: "cannot resolve document field", Err: err}
	}

	// Map-valued operator form, same as column mode.
	if resolved.Remainder == "" {
		if m, ok := operatorMap(node.value); ok {
			return compileOperatorMap(m, offset, func(entry ops.Entry, value any, offset int) (string, []any, error) {
				return documentComparison(resolved, entry, value, offset)
			})
		}
	}

	entry, ok := ops.Lookup(resolved.Remainder)
	if !ok {
		return "", nil, &CompileError{Message: fmt.Sprintf("unknown operator %q in key %q", resolved.Remainder, node.key)}
	}

	// Containment fast path: body @> '{"field": value}'.
	if entry.Operator == "=" && !isList(node.value) {
		doc := node.value
		for i := len(resolved.Path) - 1; i >= 0; i-- {
			doc = map[string]any{resolved.Path[i].Value: doc}
		}
		serialized, err := json.Marshal(doc)
		if err != nil {
			return "", nil, &CompileError{Message: "cannot serialize document criteria value", Err: err}
		}
		lhs := pq.QuoteIdentifier(bodyCol)
		return fmt.Sprintf("%s @> $%d", lhs, offset+1), []any{string(serialized)}, nil
	}

	return documentComparison(resolved, entry, node.value, offset)
}

// documentComparison emits one comparison against a text-extracted body
// value, casting the extraction when the criteria value demands it.
func documentComparison(resolved *keys.Resolved, entry ops.Entry, value any, offset int) (string, []any, error) {
	serialized, err := jsonValue(value, entry.Operator)
	if err != nil {
		return "", nil, &CompileError{Message: "cannot serialize document comparison value", Err: err}
	}

	lhs := resolved.Expr
	if cast := documentCast(value); cast != "" {
		lhs = "(" + lhs + ")::" + cast
	}

	mutator := entry.Mutator
	if ops.IsContainment(entry.Operator) {
		mutator = nil
	}

	l := ops.Leaf{
		LHS:      lhs,
		Operator: entry.Operator,
		Value:    serialized,
		Offset:   offset,
		IsJSON:   true,
	}
	if mutator != nil {
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

// documentCast picks the cast applied to a text-extracted body value so
// comparisons against non-text criteria values type-check.
func documentCast(value any) string {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return "numeric"
	case bool:
		return "boolean"
	case []any:
		// Range and list operators carry the element type in the list.
		if len(v) > 0 {
			return documentCast(v[0])
		}
		return ""
	default:
		return ""
	}
}

// jsonValue serializes values destined for JSON containment or equality
// operators to their JSON text form; scalar values pass through untouched.
func jsonValue(value any, operator string) (any, error) {
	switch value.(type) {
	case map[string]any, []map[string]any:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case []any:
		// Lists stay lists for IN expansion unless the operator is a
		// containment test over the JSON value itself.
		if !ops.IsContainment(operator) {
			return value, nil
		}
		b, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return value, nil
	}
}

func isList(v any) bool {
	switch v.(type) {
	case []any, []string, []int, []float64, []map[string]any:
		return true
	}
	return false
}
