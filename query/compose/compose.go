// Package compose builds compound relations: virtual relations representing
// a join tree over several catalog relations, queryable like a single
// relation. Alongside the join clauses it derives a decomposition schema that
// describes how to fold flat joined rows back into nested objects.
package compose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/heftdb/heft/catalog"
	"github.com/heftdb/heft/internal/debug"
)

// Source is anything a statement can be compiled against: a plain
// *catalog.Relation or a *CompoundRelation.
type Source interface {
	// FQN returns the quoted, schema-qualified name of the underlying
	// relation.
	FQN() string
	// Ident returns the unquoted "schema.name" identity.
	Ident() string
}

// JoinDef defines one node of a join tree. The map key under which a JoinDef
// appears is the node's alias; Relation names the target relation when the
// alias is not itself a relation reference.
type JoinDef struct {
	Relation    string             `json:"relation,omitempty"`
	Type        string             `json:"type,omitempty"` // INNER (default), LEFT, RIGHT, FULL
	On          map[string]string  `json:"on,omitempty"`   // dependent column -> parent column
	PK          []string           `json:"pk,omitempty"`   // decomposition key override
	Omit        bool               `json:"omit,omitempty"` // join only, no decomposition output
	DecomposeTo string             `json:"decomposeTo,omitempty"`
	Joins       map[string]JoinDef `json:"joins,omitempty"`
}

// JoinNode is one resolved node of a compound relation's join tree.
type JoinNode struct {
	Alias       string
	Relation    *catalog.Relation
	JoinType    string
	On          string // SQL join predicate
	ParentAlias string
	Omit        bool
}

// CompoundRelation composes an origin relation with an ordered, pre-order
// list of join nodes. Aliases are unique within one compound relation and
// the join tree is acyclic.
type CompoundRelation struct {
	Origin *catalog.Relation
	Alias  string // origin alias, the origin relation's name

	// Nodes in pre-order: parents before children, matching declaration
	// order. SQL JOIN clauses are emitted in this order because SQL does not
	// topologically sort them.
	Nodes []*JoinNode

	// SelectList holds the aliased column expressions, origin first, then
	// each node pre-order: `"alias"."col" AS "alias__col"`.
	SelectList []string

	Schema *DecompositionSchema
}

// FQN returns the origin's quoted, schema-qualified name.
func (c *CompoundRelation) FQN() string { return c.Origin.FQN() }

// Ident returns the origin's identity string.
func (c *CompoundRelation) Ident() string { return c.Origin.Ident() }

// Node returns the join node with the given alias, or nil.
func (c *CompoundRelation) Node(alias string) *JoinNode {
	for _, n := range c.Nodes {
		if n.Alias == alias {
			return n
		}
	}
	return nil
}

// JoinClauses renders the JOIN clauses in pre-order.
func (c *CompoundRelation) JoinClauses() []string {
	clauses := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		clauses[i] = fmt.Sprintf("%s JOIN %s AS %s ON %s",
			n.JoinType, n.Relation.FQN(), pq.QuoteIdentifier(n.Alias), n.On)
	}
	return clauses
}

// Compose resolves a join definition against the catalog into a compound
// relation. Identical (origin, definition) pairs are memoized process-wide;
// see cache.go.
func Compose(cat *catalog.Catalog, originRef string, def map[string]JoinDef) (*CompoundRelation, error) {
	origin, err := cat.Relation(originRef)
	if err != nil {
		return nil, err
	}

	key, err := cacheKey(origin, def)
	if err != nil {
		return nil, err
	}
	if cached := cacheGet(key); cached != nil {
		debug.Debug("compound relation cache hit", "origin", origin.Ident())
		return cached, nil
	}

	c := &CompoundRelation{
		Origin: origin,
		Alias:  origin.Name,
	}
	c.Schema = &DecompositionSchema{
		PKAliases: aliasColumns(c.Alias, origin.PrimaryKey),
		Columns:   columnAliasMap(c.Alias, origin.ColumnNames()),
		Mode:      DecomposeArray,
		Children:  map[string]*DecompositionSchema{},
	}
	c.SelectList = aliasedSelect(c.Alias, origin.ColumnNames())

	seen := map[string]bool{c.Alias: true}
	if err := composeLevel(cat, c, origin, c.Alias, c.Schema, def, seen); err != nil {
		return nil, err
	}

	debug.Debug("composed compound relation", "origin", origin.Ident(), "nodes", len(c.Nodes))
	return cachePut(key, c), nil
}

// composeLevel resolves one level of the join definition under the given
// parent, recursing into nested definitions depth-first so the node list
// stays in pre-order.
func composeLevel(cat *catalog.Catalog, c *CompoundRelation, parent *catalog.Relation, parentAlias string, parentSchema *DecompositionSchema, defs map[string]JoinDef, seen map[string]bool) error {
	for _, key := range sortedDefKeys(defs) {
		def := defs[key]

		relRef := def.Relation
		if relRef == "" {
			relRef = key
		}
		rel, err := cat.Relation(relRef)
		if err != nil {
			return &catalog.SchemaError{Message: fmt.Sprintf("join target %q not found", relRef), Err: err}
		}

		alias := key
		if _, name := catalog.SplitRef(key); def.Relation == "" && strings.Contains(key, ".") {
			alias = name
		}
		if seen[alias] {
			return &catalog.SchemaError{Message: fmt.Sprintf("duplicate join alias %q", alias)}
		}
		seen[alias] = true

		on, err := joinPredicate(def, rel, alias, parent, parentAlias)
		if err != nil {
			return err
		}

		node := &JoinNode{
			Alias:       alias,
			Relation:    rel,
			JoinType:    normalizeJoinType(def.Type),
			On:          on,
			ParentAlias: parentAlias,
			Omit:        def.Omit,
		}
		c.Nodes = append(c.Nodes, node)
		c.SelectList = append(c.SelectList, aliasedSelect(alias, rel.ColumnNames())...)

		schema := parentSchema
		if !def.Omit {
			pk := def.PK
			if len(pk) == 0 {
				pk = rel.PrimaryKey
			}
			if len(pk) == 0 {
				return &catalog.SchemaError{Message: fmt.Sprintf("relation %s has no primary key for decomposition", rel.Ident())}
			}
			mode, err := parseDecomposeMode(def.DecomposeTo)
			if err != nil {
				return err
			}
			child := &DecompositionSchema{
				PKAliases: aliasColumns(alias, pk),
				Columns:   columnAliasMap(alias, rel.ColumnNames()),
				Mode:      mode,
				Children:  map[string]*DecompositionSchema{},
			}
			parentSchema.Children[alias] = child
			schema = child
		}

		if len(def.Joins) > 0 {
			if err := composeLevel(cat, c, rel, alias, schema, def.Joins, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// joinPredicate builds the ON clause for a node: the explicit definition if
// given, otherwise derived from the foreign keys connecting the node's
// relation and its parent.
func joinPredicate(def JoinDef, rel *catalog.Relation, alias string, parent *catalog.Relation, parentAlias string) (string, error) {
	if len(def.On) > 0 {
		cols := make([]string, 0, len(def.On))
		for col := range def.On {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		conds := make([]string, len(cols))
		for i, col := range cols {
			conds[i] = fmt.Sprintf("%s.%s = %s",
				pq.QuoteIdentifier(alias), pq.QuoteIdentifier(col),
				qualifyRef(def.On[col], parentAlias))
		}
		return strings.Join(conds, " AND "), nil
	}

	type candidate struct {
		depAlias, origAlias string
		depCols, origCols   []string
	}
	var candidates []candidate
	for _, fk := range rel.ForeignKeys {
		if fk.OriginSchema == parent.Schema && fk.OriginName == parent.Name {
			candidates = append(candidates, candidate{alias, parentAlias, fk.DependentColumns, fk.OriginColumns})
		}
	}
	for _, fk := range parent.ForeignKeys {
		if fk.OriginSchema == rel.Schema && fk.OriginName == rel.Name {
			candidates = append(candidates, candidate{parentAlias, alias, fk.DependentColumns, fk.OriginColumns})
		}
	}

	switch len(candidates) {
	case 0:
		return "", &catalog.SchemaError{Message: fmt.Sprintf("no foreign key connects %s and %s; specify an explicit on condition", rel.Ident(), parent.Ident())}
	case 1:
	default:
		return "", &catalog.SchemaError{Message: fmt.Sprintf("multiple foreign keys connect %s and %s; specify an explicit on condition", rel.Ident(), parent.Ident())}
	}

	cand := candidates[0]
	conds := make([]string, len(cand.depCols))
	for i := range cand.depCols {
		conds[i] = fmt.Sprintf("%s.%s = %s.%s",
			pq.QuoteIdentifier(cand.depAlias), pq.QuoteIdentifier(cand.depCols[i]),
			pq.QuoteIdentifier(cand.origAlias), pq.QuoteIdentifier(cand.origCols[i]))
	}
	return strings.Join(conds, " AND "), nil
}

// qualifyRef renders the right-hand side of an explicit on condition: an
// "alias.column" reference stays as written, a bare column is qualified with
// the parent alias.
func qualifyRef(ref, parentAlias string) string {
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return pq.QuoteIdentifier(ref[:i]) + "." + pq.QuoteIdentifier(ref[i+1:])
	}
	return pq.QuoteIdentifier(parentAlias) + "." + pq.QuoteIdentifier(ref)
}

func normalizeJoinType(t string) string {
	switch strings.ToUpper(strings.TrimSpace(t)) {
	case "", "INNER":
		return "INNER"
	case "LEFT", "LEFT OUTER":
		return "LEFT OUTER"
	case "RIGHT", "RIGHT OUTER":
		return "RIGHT OUTER"
	case "FULL", "FULL OUTER":
		return "FULL OUTER"
	default:
		return strings.ToUpper(strings.TrimSpace(t))
	}
}

// ColumnAlias returns the result-set alias for a node column.
func ColumnAlias(nodeAlias, column string) string {
	return nodeAlias + "__" + column
}

func aliasColumns(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = ColumnAlias(alias, c)
	}
	return out
}

func columnAliasMap(alias string, cols []string) map[string]string {
	m := make(map[string]string, len(cols))
	for _, c := range cols {
		m[ColumnAlias(alias, c)] = c
	}
	return m
}

func aliasedSelect(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = fmt.Sprintf("%s.%s AS %s",
			pq.QuoteIdentifier(alias), pq.QuoteIdentifier(c),
			pq.QuoteIdentifier(ColumnAlias(alias, c)))
	}
	return out
}

func sortedDefKeys(defs map[string]JoinDef) []string {
	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
