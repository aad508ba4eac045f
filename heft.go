// Package heft compiles criteria objects into parameterized PostgreSQL
// statements against a catalog of relations. It covers the path from a
// caller's filter map to executable SQL: field-reference resolution, operator
// dispatch, predicate compilation, statement assembly, join composition, and
// the decomposition of flat joined rows back into nested objects. Executing
// the SQL is left to the caller's driver.
package heft

import (
	"github.com/heftdb/heft/catalog"
	"github.com/heftdb/heft/query/compose"
	"github.com/heftdb/heft/query/decompose"
	"github.com/heftdb/heft/query/predicate"
	"github.com/heftdb/heft/query/statement"
)

// CompiledStatement is what a statement builder hands to the executing
// collaborator.
type CompiledStatement = statement.Statement

// Source is a queryable target: a plain relation or a compound relation.
type Source = compose.Source

// Select compiles a SELECT against source. Criteria may be a criteria map,
// nil for no filter, or a bare primary-key value.
func Select(source Source, criteria any, opts statement.SelectOptions) (*CompiledStatement, error) {
	m, err := predicate.Criteria(source, criteria)
	if err != nil {
		return nil, err
	}
	return statement.Select(source, m, opts)
}

// Insert compiles an INSERT of one or more records into source.
func Insert(source Source, records []map[string]any, opts statement.InsertOptions) (*CompiledStatement, error) {
	return statement.Insert(source, records, opts)
}

// Update compiles an UPDATE applying changes to rows matching criteria.
func Update(source Source, changes map[string]any, criteria any, opts statement.UpdateOptions) (*CompiledStatement, error) {
	m, err := predicate.Criteria(source, criteria)
	if err != nil {
		return nil, err
	}
	return statement.Update(source, changes, m, opts)
}

// Delete compiles a DELETE of rows matching criteria.
func Delete(source Source, criteria any, opts statement.DeleteOptions) (*CompiledStatement, error) {
	m, err := predicate.Criteria(source, criteria)
	if err != nil {
		return nil, err
	}
	return statement.Delete(source, m, opts)
}

// Join composes a compound relation from a join definition rooted at
// originRef. Identical definitions are memoized process-wide.
func Join(cat *catalog.Catalog, originRef string, def map[string]compose.JoinDef) (*compose.CompoundRelation, error) {
	return compose.Compose(cat, originRef, def)
}

// Decompose folds flat joined rows into nested objects using the schema a
// compound relation carries.
func Decompose(schema *compose.DecompositionSchema, rows []map[string]any) (any, error) {
	return decompose.Decompose(schema, rows)
}
