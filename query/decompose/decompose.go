// Package decompose folds flat joined result rows back into nested object
// trees using the decomposition schema built by the join composer.
package decompose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/heftdb/heft/query/compose"
)

// accumulator gathers the distinct entities seen at one level of the tree,
// keyed by primary key values and preserving first-seen order.
type accumulator struct {
	order []string
	byKey map[string]*entity
}

type entity struct {
	record   map[string]any
	children map[string]*accumulator
}

func newAccumulator() *accumulator {
	return &accumulator{byKey: map[string]*entity{}}
}

// Decompose reassembles rows according to the schema. The result is a slice,
// a single object, or a map depending on the schema's mode; child collections
// appear under their join aliases. Rows are consumed in order and repeated
// entities are merged additively.
func Decompose(schema *compose.DecompositionSchema, rows []map[string]any) (any, error) {
	if schema == nil {
		return nil, &DecompositionError{Message: "no decomposition schema"}
	}
	acc := newAccumulator()
	for i, row := range rows {
		if err := accumulate(schema, acc, row, true); err != nil {
			return nil, &DecompositionError{Message: fmt.Sprintf("row %d", i), Err: err}
		}
	}
	return render(schema, acc), nil
}

func accumulate(schema *compose.DecompositionSchema, acc *accumulator, row map[string]any, root bool) error {
	key, allNull := pkKey(schema.PKAliases, row)
	if allNull {
		if root {
			return &DecompositionError{Message: "row has a null primary key for the origin relation"}
		}
		// A null child key means the outer join matched nothing here.
		return nil
	}

	ent, ok := acc.byKey[key]
	if !ok {
		ent = &entity{record: map[string]any{}, children: map[string]*accumulator{}}
		for alias, name := range schema.Columns {
			if val, present := row[alias]; present {
				ent.record[name] = val
			}
		}
		acc.byKey[key] = ent
		acc.order = append(acc.order, key)
	}

	for _, alias := range sortedChildAliases(schema.Children) {
		child := ent.children[alias]
		if child == nil {
			child = newAccumulator()
			ent.children[alias] = child
		}
		if err := accumulate(schema.Children[alias], child, row, false); err != nil {
			return err
		}
	}
	return nil
}

func render(schema *compose.DecompositionSchema, acc *accumulator) any {
	records := make([]map[string]any, 0, len(acc.order))
	for _, key := range acc.order {
		ent := acc.byKey[key]
		record := ent.record
		for _, alias := range sortedChildAliases(schema.Children) {
			record[alias] = render(schema.Children[alias], ent.children[alias])
		}
		records = append(records, record)
	}

	switch schema.Mode {
	case compose.DecomposeObject:
		if len(records) == 0 {
			return nil
		}
		return records[0]
	case compose.DecomposeDictionary:
		dict := make(map[string]map[string]any, len(records))
		for _, record := range records {
			dict[dictionaryKey(schema, record)] = record
		}
		return dict
	default:
		return records
	}
}

// pkKey derives the identity of a row at one schema level. allNull reports
// that every key column was NULL, which for a child level means the join
// produced no matching row.
func pkKey(pkAliases []string, row map[string]any) (string, bool) {
	parts := make([]string, len(pkAliases))
	allNull := true
	for i, alias := range pkAliases {
		val := row[alias]
		if val != nil {
			allNull = false
		}
		parts[i] = fmt.Sprint(val)
	}
	return strings.Join(parts, "\x00"), allNull
}

// dictionaryKey keys a dictionary-mode entry by its first primary key column.
func dictionaryKey(schema *compose.DecompositionSchema, record map[string]any) string {
	if len(schema.PKAliases) == 0 {
		return ""
	}
	name := schema.Columns[schema.PKAliases[0]]
	return fmt.Sprint(record[name])
}

func sortedChildAliases(children map[string]*compose.DecompositionSchema) []string {
	aliases := make([]string, 0, len(children))
	for alias := range children {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
