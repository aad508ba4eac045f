package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRelations() []Relation {
	return []Relation{
		{
			Name: "users",
			Columns: []Column{
				{Name: "id", Type: "integer"},
				{Name: "email", Type: "text"},
				{Name: "name", Type: "text"},
			},
			PrimaryKey: []string{"id"},
		},
		{
			Name: "posts",
			Columns: []Column{
				{Name: "id", Type: "integer"},
				{Name: "author_id", Type: "integer"},
				{Name: "title", Type: "text"},
			},
			PrimaryKey: []string{"id"},
			ForeignKeys: []ForeignKey{{
				Name:             "posts_author_id_fkey",
				OriginSchema:     "public",
				OriginName:       "users",
				OriginColumns:    []string{"id"},
				DependentColumns: []string{"author_id"},
			}},
		},
		{
			Schema:     "reporting",
			Name:       "signups",
			Columns:    []Column{{Name: "day", Type: "date"}, {Name: "total", Type: "bigint"}},
			IsView:     true,
			PrimaryKey: nil,
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("builds a catalog and defaults the schema", func(t *testing.T) {
		cat, err := New(testRelations())
		require.NoError(t, err)

		users, err := cat.Relation("users")
		require.NoError(t, err)
		assert.Equal(t, "public", users.Schema)
		assert.Equal(t, "public.users", users.Ident())
		assert.Equal(t, `"public"."users"`, users.FQN())
	})

	t.Run("rejects duplicate identities", func(t *testing.T) {
		_, err := New([]Relation{{Name: "users"}, {Name: "users"}})
		require.Error(t, err)
		assert.True(t, IsSchemaErr(err))
	})
}

func TestCatalogRelation(t *testing.T) {
	cat, err := New(testRelations())
	require.NoError(t, err)

	t.Run("resolves a bare name in the default schema", func(t *testing.T) {
		rel, err := cat.Relation("posts")
		require.NoError(t, err)
		assert.Equal(t, "posts", rel.Name)
	})

	t.Run("resolves a schema-qualified reference", func(t *testing.T) {
		rel, err := cat.Relation("reporting.signups")
		require.NoError(t, err)
		assert.True(t, rel.IsView)
		assert.False(t, rel.Writable())
	})

	t.Run("fails on unknown relations", func(t *testing.T) {
		_, err := cat.Relation("nope")
		require.Error(t, err)
		assert.True(t, IsSchemaErr(err))
	})

	t.Run("Has mirrors lookup", func(t *testing.T) {
		assert.True(t, cat.Has("users"))
		assert.False(t, cat.Has("reporting.users"))
	})
}

func TestRelationHelpers(t *testing.T) {
	cat, err := New(testRelations())
	require.NoError(t, err)
	users, err := cat.Relation("users")
	require.NoError(t, err)

	assert.True(t, users.HasColumn("email"))
	assert.False(t, users.HasColumn("body"))
	assert.Equal(t, []string{"id", "email", "name"}, users.ColumnNames())
	assert.True(t, users.Writable())
}

func TestSplitRef(t *testing.T) {
	schema, name := SplitRef("users")
	assert.Equal(t, "public", schema)
	assert.Equal(t, "users", name)

	schema, name = SplitRef("reporting.signups")
	assert.Equal(t, "reporting", schema)
	assert.Equal(t, "signups", name)
}

func TestLoadSnapshot(t *testing.T) {
	t.Run("decodes an introspection snapshot", func(t *testing.T) {
		data := []byte(`{
			"relations": [
				{
					"schema": "public",
					"name": "users",
					"columns": [{"name": "id", "type": "integer"}],
					"primaryKey": ["id"]
				},
				{
					"name": "docs",
					"columns": [{"name": "id", "type": "uuid"}, {"name": "body", "type": "jsonb"}],
					"primaryKey": ["id"]
				}
			]
		}`)
		cat, err := LoadSnapshot(data)
		require.NoError(t, err)
		assert.Len(t, cat.Relations(), 2)

		docs, err := cat.Relation("docs")
		require.NoError(t, err)
		assert.Equal(t, "public", docs.Schema)
		assert.True(t, docs.HasColumn("body"))
	})

	t.Run("fails on malformed JSON", func(t *testing.T) {
		_, err := LoadSnapshot([]byte(`{"relations": [`))
		require.Error(t, err)
	})
}
