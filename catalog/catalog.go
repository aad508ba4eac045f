// Package catalog holds the process-lifetime registry of relations known to
// the compiler: tables and views with their columns, primary keys, and
// foreign keys. A Catalog is loaded once from an introspection snapshot and
// is read-only afterwards.
package catalog

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Column describes one column of a relation.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ForeignKey describes a foreign key declared on a relation. Origin is the
// referenced relation; DependentColumns are the declaring relation's columns.
type ForeignKey struct {
	Name             string   `json:"name"`
	OriginSchema     string   `json:"originSchema"`
	OriginName       string   `json:"originName"`
	OriginColumns    []string `json:"originColumns"`
	DependentColumns []string `json:"dependentColumns"`
}

// Relation is a table or view known to the catalog. Identity is
// (Schema, Name). Relations are immutable after catalog load.
type Relation struct {
	Schema             string       `json:"schema"`
	Name               string       `json:"name"`
	Columns            []Column     `json:"columns"`
	PrimaryKey         []string     `json:"primaryKey"`
	ForeignKeys        []ForeignKey `json:"foreignKeys"`
	IsView             bool         `json:"isView"`
	IsMaterializedView bool         `json:"isMaterializedView"`
}

// FQN returns the quoted, schema-qualified name of the relation.
func (r *Relation) FQN() string {
	return pq.QuoteIdentifier(r.Schema) + "." + pq.QuoteIdentifier(r.Name)
}

// Ident returns the unquoted "schema.name" identity string.
func (r *Relation) Ident() string {
	return r.Schema + "." + r.Name
}

// HasColumn reports whether the relation has a column with the given name.
func (r *Relation) HasColumn(name string) bool {
	for _, c := range r.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ColumnNames returns the column names in declaration order.
func (r *Relation) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Writable reports whether INSERT/UPDATE/DELETE may target the relation.
func (r *Relation) Writable() bool {
	return !r.IsView && !r.IsMaterializedView
}

// DefaultSchema is assumed when a relation is referenced by bare name.
const DefaultSchema = "public"

// Catalog is an immutable registry of relations keyed by identity.
type Catalog struct {
	relations map[string]*Relation
	ordered   []*Relation
}

// New builds a catalog from a list of relations. Duplicate identities fail.
func New(relations []Relation) (*Catalog, error) {
	c := &Catalog{relations: make(map[string]*Relation, len(relations))}
	for i := range relations {
		rel := relations[i]
		if rel.Schema == "" {
			rel.Schema = DefaultSchema
		}
		key := rel.Ident()
		if _, ok := c.relations[key]; ok {
			return nil, &SchemaError{Message: fmt.Sprintf("duplicate relation %s", key)}
		}
		r := &rel
		c.relations[key] = r
		c.ordered = append(c.ordered, r)
	}
	return c, nil
}

// Relation looks up a relation by reference: "name" (default schema) or
// "schema.name".
func (c *Catalog) Relation(ref string) (*Relation, error) {
	schema, name := SplitRef(ref)
	if r, ok := c.relations[schema+"."+name]; ok {
		return r, nil
	}
	return nil, &SchemaError{Message: fmt.Sprintf("unknown relation %q", ref)}
}

// Has reports whether ref resolves to a known relation.
func (c *Catalog) Has(ref string) bool {
	_, err := c.Relation(ref)
	return err == nil
}

// Relations returns all relations in load order.
func (c *Catalog) Relations() []*Relation {
	out := make([]*Relation, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// SplitRef splits a relation reference into schema and name, applying the
// default schema to bare names.
func SplitRef(ref string) (schema, name string) {
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return DefaultSchema, ref
}
