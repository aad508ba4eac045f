package statement

import (
	"strings"

	"github.com/lib/pq"

	"github.com/heftdb/heft/query/compose"
	"github.com/heftdb/heft/query/predicate"
)

// DeleteOptions collects the knobs for a DELETE statement.
type DeleteOptions struct {
	Common
}

// Delete builds a DELETE statement for rows matching the criteria. Against a
// compound relation the first joined relation becomes a USING item and its
// join predicate folds into the WHERE clause.
func Delete(source compose.Source, criteria map[string]any, opts DeleteOptions) (*Statement, error) {
	if _, err := targetRelation(source); err != nil {
		return nil, err
	}

	where, err := predicate.Compile(source, criteria, predicate.Options{Document: opts.Document})
	if err != nil {
		return nil, err
	}

	b := &base{source: source, where: where, common: opts.Common}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.relationClause())

	if compound, ok := source.(*compose.CompoundRelation); ok && len(compound.Nodes) > 0 {
		first := compound.Nodes[0]
		sb.WriteString(" USING ")
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

	return &Statement{SQL: sb.String(), Params: where.Params, Single: opts.Single}, nil
}
