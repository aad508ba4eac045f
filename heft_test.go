package heft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heftdb/heft/catalog"
	"github.com/heftdb/heft/query/compose"
	"github.com/heftdb/heft/query/statement"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.LoadSnapshot([]byte(`{
		"relations": [
			{
				"name": "users",
				"columns": [
					{"name": "id", "type": "integer"},
					{"name": "name", "type": "text"}
				],
				"primaryKey": ["id"]
			},
			{
				"name": "posts",
				"columns": [
					{"name": "id", "type": "integer"},
					{"name": "author_id", "type": "integer"},
					{"name": "title", "type": "text"}
				],
				"primaryKey": ["id"],
				"foreignKeys": [{
					"name": "posts_author_id_fkey",
					"originSchema": "public",
					"originName": "users",
					"originColumns": ["id"],
					"dependentColumns": ["author_id"]
				}]
			}
		]
	}`))
	require.NoError(t, err)
	return cat
}

func TestFacade(t *testing.T) {
	cat := testCatalog(t)
	users, err := cat.Relation("users")
	require.NoError(t, err)

	t.Run("select with a criteria map", func(t *testing.T) {
		stmt, err := Select(users, map[string]any{"name ilike": "a%"}, statement.SelectOptions{})
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "public"."users" WHERE "name" ILIKE $1`, stmt.SQL)
	})

	t.Run("select with a bare primary-key value", func(t *testing.T) {
		stmt, err := Select(users, 7, statement.SelectOptions{Common: statement.Common{Single: true}})
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "public"."users" WHERE "id" = $1 LIMIT 1`, stmt.SQL)
		assert.Equal(t, []any{7}, stmt.Params)
		assert.True(t, stmt.Single)
	})

	t.Run("insert", func(t *testing.T) {
		stmt, err := Insert(users, []map[string]any{{"name": "Ada"}}, statement.InsertOptions{})
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "public"."users" ("name") VALUES ($1) RETURNING *`, stmt.SQL)
	})

	t.Run("update with a bare primary-key value", func(t *testing.T) {
		stmt, err := Update(users, map[string]any{"name": "Ada"}, 7, statement.UpdateOptions{})
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "public"."users" SET "name" = $1 WHERE "id" = $2 RETURNING *`, stmt.SQL)
		assert.Equal(t, []any{"Ada", 7}, stmt.Params)
	})

	t.Run("delete", func(t *testing.T) {
		stmt, err := Delete(users, 7, statement.DeleteOptions{})
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "public"."users" WHERE "id" = $1 RETURNING *`, stmt.SQL)
	})
}

func TestFacadeJoinRoundTrip(t *testing.T) {
	compose.ResetCache()
	cat := testCatalog(t)

	compound, err := Join(cat, "users", map[string]compose.JoinDef{"posts": {Type: "left"}})
	require.NoError(t, err)

	stmt, err := Select(compound, map[string]any{"name": "Alice"}, statement.SelectOptions{})
	require.NoError(t, err)
	require.NotNil(t, stmt.Decomposition)
	assert.Contains(t, stmt.SQL, `LEFT OUTER JOIN "public"."posts" AS "posts"`)

	rows := []map[string]any{
		{"users__id": 1, "users__name": "Alice", "posts__id": 11, "posts__author_id": 1, "posts__title": "first"},
		{"users__id": 1, "users__name": "Alice", "posts__id": 12, "posts__author_id": 1, "posts__title": "second"},
	}
	out, err := Decompose(stmt.Decomposition, rows)
	require.NoError(t, err)

	records, ok := out.([]map[string]any)
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, "Alice", records[0]["name"])
	assert.Len(t, records[0]["posts"], 2)
}
