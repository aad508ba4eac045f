package statement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/heftdb/heft/query/compose"
	"github.com/heftdb/heft/query/keys"
	"github.com/heftdb/heft/query/predicate"
)

// OrderField describes one ORDER BY entry. Exactly one of Field or Expr
// should be set. Last carries the boundary value for keyset pagination.
type OrderField struct {
	Field     string
	Expr      string
	Direction string
	Nulls     string
	Type      string
	Body      bool
	Last      any
}

// SelectOptions collects the knobs for a SELECT statement.
type SelectOptions struct {
	Common

	// Fields restricts the projection; nil means *.
	Fields []string
	// Exprs adds raw expressions to the projection, keyed by output alias.
	Exprs map[string]string
	Order []OrderField

	Offset *int
	Limit  *int
	// PageLength enables keyset pagination; requires Order and excludes
	// Offset and Limit.
	PageLength int

	Distinct   bool
	ForUpdate  bool
	ForShare   bool
	LockedRows string // "", "nowait", or "skip locked"
}

// Select builds a SELECT statement against source with the given criteria.
func Select(source compose.Source, criteria map[string]any, opts SelectOptions) (*Statement, error) {
	if err := validateSelect(opts); err != nil {
		return nil, err
	}
	where, err := predicate.Compile(source, criteria, predicate.Options{Document: opts.Document})
	if err != nil {
		return nil, err
	}
	b := &base{source: source, where: where, common: opts.Common}

	projection, err := selectList(source, opts)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if opts.Distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(projection)
	sb.WriteString(" FROM ")
	sb.WriteString(b.relationClause())

	var decomposition *compose.DecompositionSchema
	if compound, ok := source.(*compose.CompoundRelation); ok {
		for _, clause := range compound.JoinClauses() {
			sb.WriteString(" ")
			sb.WriteString(clause)
		}
		decomposition = compound.Schema
	}

	params := append([]any{}, where.Params...)

	sb.WriteString(" WHERE ")
	if opts.PageLength > 0 && hasKeysetBoundary(opts.Order) {
		clause, keysetParams, err := keysetPredicate(source, opts.Order, len(params))
		if err != nil {
			return nil, err
		}
		// Parenthesize the criteria so a top-level OR stays inside the
		// page boundary.
		sb.WriteString("(")
		sb.WriteString(where.Text)
		sb.WriteString(") AND ")
		sb.WriteString(clause)
		params = append(params, keysetParams...)
	} else {
		sb.WriteString(where.Text)
	}

	if len(opts.Order) > 0 {
		clause, err := orderClause(source, opts.Order)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(clause)
	}

	if lock := lockClause(opts); lock != "" {
		sb.WriteString(" ")
		sb.WriteString(lock)
	}

	single := opts.Single
	switch {
	case opts.PageLength > 0:
		fmt.Fprintf(&sb, " FETCH FIRST %d ROWS ONLY", opts.PageLength)
	default:
		if opts.Offset != nil {
			fmt.Fprintf(&sb, " OFFSET %d", *opts.Offset)
		}
		if single {
			sb.WriteString(" LIMIT 1")
		} else if opts.Limit != nil {
			fmt.Fprintf(&sb, " LIMIT %d", *opts.Limit)
		}
	}

	return &Statement{SQL: sb.String(), Params: params, Single: single, Decomposition: decomposition}, nil
}

func validateSelect(opts SelectOptions) error {
	if opts.ForUpdate && opts.ForShare {
		return &ConfigurationError{Message: "forUpdate and forShare are mutually exclusive"}
	}
	if opts.LockedRows != "" && !opts.ForUpdate && !opts.ForShare {
		return &ConfigurationError{Message: "lockedRows requires forUpdate or forShare"}
	}
	if opts.PageLength > 0 {
		if len(opts.Order) == 0 {
			return &ConfigurationError{Message: "keyset pagination requires an explicit order"}
		}
		if opts.Offset != nil || opts.Limit != nil {
			return &ConfigurationError{Message: "keyset pagination cannot be combined with offset or limit"}
		}
	}
	return nil
}

func selectList(source compose.Source, opts SelectOptions) (string, error) {
	var fields []string
	switch {
	case len(opts.Fields) > 0:
		fields = make([]string, 0, len(opts.Fields))
		for _, f := range opts.Fields {
			if f == "*" {
				if compound, ok := source.(*compose.CompoundRelation); ok {
					fields = append(fields, compound.SelectList...)
				} else {
					fields = append(fields, "*")
				}
				continue
			}
			resolved, err := keys.Resolve(source, f, false)
			if err != nil {
				return "", err
			}
			fields = append(fields, resolved.Expr)
		}
	case len(opts.Exprs) == 0:
		if compound, ok := source.(*compose.CompoundRelation); ok {
			fields = append(fields, compound.SelectList...)
		} else {
			fields = append(fields, "*")
		}
	}
	aliases := make([]string, 0, len(opts.Exprs))
	for alias := range opts.Exprs {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		fields = append(fields, opts.Exprs[alias]+" AS "+quoteAll([]string{alias})[0])
	}
	return strings.Join(fields, ", "), nil
}

// orderExpr renders the sortable expression for one order field.
func orderExpr(source compose.Source, f OrderField) (string, error) {
	if f.Expr != "" {
		return f.Expr, nil
	}
	key := f.Field
	if f.Body {
		key = predicate.DefaultDocumentColumn + "." + key
	}
	resolved, err := keys.Resolve(source, key, f.Type != "" || f.Body)
	if err != nil {
		return "", err
	}
	expr := resolved.Expr
	if f.Type != "" {
		expr = "(" + expr + ")::" + f.Type
	}
	return expr, nil
}

func orderClause(source compose.Source, order []OrderField) (string, error) {
	parts := make([]string, len(order))
	for i, f := range order {
		expr, err := orderExpr(source, f)
		if err != nil {
			return "", err
		}
		dir := strings.ToUpper(f.Direction)
		if dir == "" {
			dir = "ASC"
		}
		part := expr + " " + dir
		if f.Nulls != "" {
			part += " NULLS " + strings.ToUpper(f.Nulls)
		}
		parts[i] = part
	}
	return strings.Join(parts, ", "), nil
}

func hasKeysetBoundary(order []OrderField) bool {
	for _, f := range order {
		if f.Last != nil {
			return true
		}
	}
	return false
}

// keysetPredicate builds the row-value comparison that resumes a keyset page
// after the last seen row. The leading field's direction picks the operator.
func keysetPredicate(source compose.Source, order []OrderField, offset int) (string, []any, error) {
	exprs := make([]string, 0, len(order))
	placeholders := make([]string, 0, len(order))
	params := make([]any, 0, len(order))
	for _, f := range order {
		if f.Last == nil {
			continue
		}
		expr, err := orderExpr(source, f)
		if err != nil {
			return "", nil, err
		}
		exprs = append(exprs, expr)
		params = append(params, f.Last)
		placeholders = append(placeholders, fmt.Sprintf("$%d", offset+len(params)))
	}
	op := ">"
	if strings.EqualFold(order[0].Direction, "desc") {
		op = "<"
	}
	clause := "(" + strings.Join(exprs, ",") + ") " + op + " (" + strings.Join(placeholders, ",") + ")"
	return clause, params, nil
}

func lockClause(opts SelectOptions) string {
	var lock string
	switch {
	case opts.ForUpdate:
		lock = "FOR UPDATE"
	case opts.ForShare:
		lock = "FOR SHARE"
	default:
		return ""
	}
	switch strings.ToLower(opts.LockedRows) {
	case "nowait":
		lock += " NOWAIT"
	case "skip locked":
		lock += " SKIP LOCKED"
	}
	return lock
}
