package statement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/heftdb/heft/query/compose"
	"github.com/heftdb/heft/query/predicate"
)

// UpdateOptions collects the knobs for an UPDATE statement.
type UpdateOptions struct {
	Common

	// Exprs assigns raw SQL expressions to columns, interpolated verbatim.
	// A column may appear in Exprs or in the changes map, not both.
	Exprs map[string]string
}

// Update builds an UPDATE statement applying changes to rows matching the
// criteria. SET parameters precede WHERE parameters.
func Update(source compose.Source, changes map[string]any, criteria map[string]any, opts UpdateOptions) (*Statement, error) {
	rel, err := targetRelation(source)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 && len(opts.Exprs) == 0 {
		return nil, &ConfigurationError{Message: "update requires at least one change"}
	}

	assignments := make([]string, 0, len(changes)+len(opts.Exprs))
	params := []any{}
	for _, col := range sortedKeys(changes) {
		if !rel.HasColumn(col) {
			return nil, &ConfigurationError{Message: fmt.Sprintf("%q is not a column of %s", col, rel.Ident())}
		}
		if _, dup := opts.Exprs[col]; dup {
			return nil, &predicate.CompileError{Message: fmt.Sprintf("%q appears in both the changes map and the expression map", col)}
		}
		params = append(params, changes[col])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), len(params)))
	}
	exprCols := make([]string, 0, len(opts.Exprs))
	for col := range opts.Exprs {
		exprCols = append(exprCols, col)
	}
	sort.Strings(exprCols)
	for _, col := range exprCols {
		if !rel.HasColumn(col) {
			return nil, &ConfigurationError{Message: fmt.Sprintf("%q is not a column of %s", col, rel.Ident())}
		}
		assignments = append(assignments, pq.QuoteIdentifier(col)+" = "+opts.Exprs[col])
	}

	where, err := predicate.Compile(source, criteria, predicate.Options{
		Offset:   len(params),
		Document: opts.Document,
	})
	if err != nil {
		return nil, err
	}
	params = append(params, where.Params...)

	b := &base{source: source, where: where, common: opts.Common}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(b.relationClause())
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(assignments, ", "))

	if compound, ok := source.(*compose.CompoundRelation); ok && len(compound.Nodes) > 0 {
		first := compound.Nodes[0]
		sb.WriteString(" FROM ")
		sb.WriteString(first.Relation.FQN())
		sb.WriteString(" AS ")
		sb.WriteString(pq.QuoteIdentifier(first.Alias))
		for _, clause := range compound.JoinClauses()[1:] {
			sb.WriteString(" ")
			sb.WriteString(clause)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(first.On)
		sb.WriteString(" AND (")
		sb.WriteString(where.Text)
		sb.WriteString(")")
	} else {
		sb.WriteString(" WHERE ")
		sb.WriteString(where.Text)
	}

	returning, err := b.returningClause()
	if err != nil {
		return nil, err
	}
	if returning != "" {
		sb.WriteString(" ")
		sb.WriteString(returning)
	}

	return &Statement{SQL: sb.String(), Params: params, Single: opts.Single}, nil
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
