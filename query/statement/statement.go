// Package statement assembles complete SQL statements: Select, Insert,
// Update, and Delete share a common base (target relation, compiled
// predicate, RETURNING list) and add their own clauses on top. Statements
// are transient, single-use values: built, formatted, discarded.
package statement

import (
	"strings"

	"github.com/lib/pq"

	"github.com/heftdb/heft/catalog"
	"github.com/heftdb/heft/query/compose"
	"github.com/heftdb/heft/query/keys"
	"github.com/heftdb/heft/query/predicate"
)

// Statement is the compiled artifact handed to the execution collaborator:
// SQL text, ordered parameters, the caller's at-most-one-row expectation,
// and, for compound relations, the schema for reassembling nested results.
type Statement struct {
	SQL           string
	Params        []any
	Single        bool
	Decomposition *compose.DecompositionSchema
}

// Common options shared by every statement kind.
type Common struct {
	// Only restricts the statement to the named table, excluding tables that
	// inherit from it.
	Only bool
	// Returning restricts the RETURNING list; nil means all columns.
	Returning []string
	// NoReturning suppresses the RETURNING clause entirely.
	NoReturning bool
	// Single marks that the caller wants at most one row.
	Single bool
	// Document switches predicate and projection defaults to document mode.
	Document bool
}

// base carries what every builder needs once the predicate is compiled.
type base struct {
	source compose.Source
	where  *predicate.Compiled
	common Common
}

// relationClause renders the statement target, honoring ONLY. For a compound
// relation ONLY applies to the origin alone.
func (b *base) relationClause() string {
	if b.common.Only {
		return "ONLY " + b.source.FQN()
	}
	return b.source.FQN()
}

// returningClause renders the RETURNING list; empty string when suppressed.
func (b *base) returningClause() (string, error) {
	if b.common.NoReturning {
		return "", nil
	}
	if len(b.common.Returning) == 0 {
		return "RETURNING *", nil
	}
	fields := make([]string, len(b.common.Returning))
	for i, f := range b.common.Returning {
		resolved, err := keys.Resolve(b.source, f, false)
		if err != nil {
			return "", err
		}
		fields[i] = resolved.Expr
	}
	return "RETURNING " + strings.Join(fields, ", "), nil
}

// targetRelation returns the relation writes apply to, rejecting views.
func targetRelation(source compose.Source) (*catalog.Relation, error) {
	var rel *catalog.Relation
	switch src := source.(type) {
	case *catalog.Relation:
		rel = src
	case *compose.CompoundRelation:
		rel = src.Origin
	default:
		return nil, &ConfigurationError{Message: "unsupported statement source"}
	}
	if !rel.Writable() {
		return nil, &ConfigurationError{Message: rel.Ident() + " is a view and cannot be written"}
	}
	return rel, nil
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = pq.QuoteIdentifier(n)
	}
	return out
}
