package statement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/heftdb/heft/catalog"
	"github.com/heftdb/heft/query/compose"
)

// InsertOptions collects the knobs for an INSERT statement.
type InsertOptions struct {
	Common

	// Deep enables dependent inserts for record values that are themselves
	// lists of records. Implied when the target is a compound relation.
	Deep bool
	// Catalog resolves dependent relations for deep inserts against a plain
	// relation. Compound relations resolve children from their own join tree.
	Catalog *catalog.Catalog

	// OnConflictIgnore emits ON CONFLICT DO NOTHING.
	OnConflictIgnore bool
	// OnConflictUpdate emits ON CONFLICT ... DO UPDATE against ConflictTarget.
	OnConflictUpdate bool
	// ConflictTarget names the conflict arbiter columns.
	ConflictTarget []string
	// ConflictExclusions lists columns left untouched by the conflict update.
	ConflictExclusions []string
}

// Insert builds an INSERT statement for one or more records.
func Insert(source compose.Source, records []map[string]any, opts InsertOptions) (*Statement, error) {
	rel, err := targetRelation(source)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &ConfigurationError{Message: "insert requires at least one record"}
	}
	if opts.OnConflictIgnore && opts.OnConflictUpdate {
		return nil, &ConfigurationError{Message: "onConflictIgnore and onConflictUpdate are mutually exclusive"}
	}
	if opts.OnConflictUpdate && len(opts.ConflictTarget) == 0 {
		return nil, &ConfigurationError{Message: "onConflictUpdate requires a conflict target"}
	}

	_, isCompound := source.(*compose.CompoundRelation)
	deep := opts.Deep || isCompound

	columns, children, err := insertColumns(rel, records, deep)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 && len(records) > 1 {
		return nil, &ConfigurationError{Message: "deep insert accepts a single record, not a batch"}
	}

	b := &base{source: source, common: opts.Common}

	var sb strings.Builder
	params := []any{}

	deepInsert := len(children) > 0
	if deepInsert {
		sb.WriteString("WITH inserted AS (")
	}

	// ONLY does not apply to INSERT; rows always land in the named table.
	sb.WriteString("INSERT INTO ")
	sb.WriteString(source.FQN())
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoteAll(columns), ", "))
	sb.WriteString(") VALUES ")

	rows := make([]string, len(records))
	for i, record := range records {
		cells := make([]string, len(columns))
		for j, col := range columns {
			val, ok := record[col]
			if !ok {
				cells[j] = "DEFAULT"
				continue
			}
			params = append(params, val)
			cells[j] = fmt.Sprintf("$%d", len(params))
		}
		rows[i] = "(" + strings.Join(cells, ", ") + ")"
	}
	sb.WriteString(strings.Join(rows, ", "))

	if clause := conflictClause(columns, opts); clause != "" {
		sb.WriteString(" ")
		sb.WriteString(clause)
	}

	if deepInsert {
		sb.WriteString(" RETURNING *)")
		if err := dependentInserts(&sb, &params, source, rel, records[0], children, opts); err != nil {
			return nil, err
		}
		sb.WriteString(" SELECT * FROM inserted")
	} else {
		returning, err := b.returningClause()
		if err != nil {
			return nil, err
		}
		if returning != "" {
			sb.WriteString(" ")
			sb.WriteString(returning)
		}
	}

	return &Statement{SQL: sb.String(), Params: params, Single: opts.Single || len(records) == 1}, nil
}

// insertColumns splits the records' keys into the sorted insertable column
// union and, when deep inserts are enabled, the keys naming dependent record
// lists.
func insertColumns(rel *catalog.Relation, records []map[string]any, deep bool) ([]string, []string, error) {
	colSet := map[string]bool{}
	childSet := map[string]bool{}
	for _, record := range records {
		for key, val := range record {
			switch {
			case rel.HasColumn(key):
				colSet[key] = true
			case deep && isRecordList(val):
				childSet[key] = true
			default:
				return nil, nil, &ConfigurationError{Message: fmt.Sprintf("%q is not a column of %s", key, rel.Ident())}
			}
		}
	}
	if len(colSet) == 0 {
		return nil, nil, &ConfigurationError{Message: "no insertable columns in record"}
	}
	return sortedSet(colSet), sortedSet(childSet), nil
}

// dependentInserts appends one CTE per dependent record, each selecting the
// just-inserted row's key columns from the first CTE.
func dependentInserts(sb *strings.Builder, params *[]any, source compose.Source, origin *catalog.Relation, record map[string]any, children []string, opts InsertOptions) error {
	seq := 0
	for _, key := range children {
		child, err := dependentRelation(source, key, opts.Catalog)
		if err != nil {
			return err
		}
		if !child.Writable() {
			return &ConfigurationError{Message: child.Ident() + " is a view and cannot be written"}
		}
		fk, err := dependentForeignKey(child, origin)
		if err != nil {
			return err
		}
		for _, sub := range recordList(record[key]) {
			cols := make([]string, 0, len(sub))
			for col := range sub {
				if !child.HasColumn(col) {
					return &ConfigurationError{Message: fmt.Sprintf("%q is not a column of %s", col, child.Ident())}
				}
				cols = append(cols, col)
			}
			sort.Strings(cols)

			selects := make([]string, 0, len(cols)+len(fk.DependentColumns))
			for _, col := range cols {
				*params = append(*params, sub[col])
				selects = append(selects, fmt.Sprintf("$%d", len(*params)))
			}
			allCols := append(append([]string{}, cols...), fk.DependentColumns...)
			for _, col := range fk.OriginColumns {
				selects = append(selects, `"inserted".`+pq.QuoteIdentifier(col))
			}

			seq++
			fmt.Fprintf(sb, `, q_%d AS (INSERT INTO %s (%s) SELECT %s FROM inserted RETURNING *)`,
				seq, child.FQN(), strings.Join(quoteAll(allCols), ", "), strings.Join(selects, ", "))
		}
	}
	return nil
}

// dependentRelation resolves a deep-insert key to a relation: a join-tree
// alias for compound sources, a catalog reference otherwise.
func dependentRelation(source compose.Source, key string, cat *catalog.Catalog) (*catalog.Relation, error) {
	if compound, ok := source.(*compose.CompoundRelation); ok {
		if node := compound.Node(key); node != nil {
			return node.Relation, nil
		}
	}
	if cat != nil {
		rel, err := cat.Relation(key)
		if err != nil {
			return nil, &ConfigurationError{Message: fmt.Sprintf("deep insert target %q not found", key), Err: err}
		}
		return rel, nil
	}
	return nil, &ConfigurationError{Message: fmt.Sprintf("cannot resolve deep insert target %q without a catalog", key)}
}

func dependentForeignKey(child, origin *catalog.Relation) (*catalog.ForeignKey, error) {
	var matches []*catalog.ForeignKey
	for i := range child.ForeignKeys {
		fk := &child.ForeignKeys[i]
		if fk.OriginSchema == origin.Schema && fk.OriginName == origin.Name {
			matches = append(matches, fk)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, &ConfigurationError{Message: fmt.Sprintf("no foreign key connects %s to %s for deep insert", child.Ident(), origin.Ident())}
	default:
		return nil, &ConfigurationError{Message: fmt.Sprintf("multiple foreign keys connect %s to %s; deep insert is ambiguous", child.Ident(), origin.Ident())}
	}
}

func conflictClause(columns []string, opts InsertOptions) string {
	switch {
	case opts.OnConflictIgnore:
		if len(opts.ConflictTarget) > 0 {
			return "ON CONFLICT (" + strings.Join(quoteAll(opts.ConflictTarget), ", ") + ") DO NOTHING"
		}
		return "ON CONFLICT DO NOTHING"
	case opts.OnConflictUpdate:
		excluded := map[string]bool{}
		for _, col := range opts.ConflictTarget {
			excluded[col] = true
		}
		for _, col := range opts.ConflictExclusions {
			excluded[col] = true
		}
		assignments := make([]string, 0, len(columns))
		for _, col := range columns {
			if excluded[col] {
				continue
			}
			quoted := pq.QuoteIdentifier(col)
			assignments = append(assignments, quoted+" = EXCLUDED."+quoted)
		}
		return "ON CONFLICT (" + strings.Join(quoteAll(opts.ConflictTarget), ", ") +
			") DO UPDATE SET " + strings.Join(assignments, ", ")
	default:
		return ""
	}
}

func isRecordList(val any) bool {
	switch v := val.(type) {
	case []map[string]any:
		return len(v) > 0
	case []any:
		if len(v) == 0 {
			return false
		}
		for _, elem := range v {
			if _, ok := elem.(map[string]any); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func recordList(val any) []map[string]any {
	switch v := val.(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, elem := range v {
			if m, ok := elem.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
