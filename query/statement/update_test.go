package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heftdb/heft/query/predicate"
)

func TestUpdate(t *testing.T) {
	cat := testCatalog(t)
	users, err := cat.Relation("users")
	require.NoError(t, err)

	t.Run("set parameters precede where parameters", func(t *testing.T) {
		stmt, err := Update(users, map[string]any{"name": "Bob"}, map[string]any{"id": 1}, UpdateOptions{})
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "public"."users" SET "name" = $1 WHERE "id" = $2 RETURNING *`, stmt.SQL)
		assert.Equal(t, []any{"Bob", 1}, stmt.Params)
	})

	t.Run("multiple changes assign in sorted order", func(t *testing.T) {
		stmt, err := Update(users, map[string]any{
			"name":  "Bob",
			"email": "b@c.d",
		}, nil, UpdateOptions{})
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "public"."users" SET "email" = $1, "name" = $2 WHERE TRUE RETURNING *`, stmt.SQL)
		assert.Equal(t, []any{"b@c.d", "Bob"}, stmt.Params)
	})

	t.Run("raw expressions interpolate verbatim", func(t *testing.T) {
		stmt, err := Update(users, map[string]any{"name": "Bob"}, map[string]any{"id": 1}, UpdateOptions{
			Exprs: map[string]string{"created_at": "now()"},
		})
		require.NoError(t, err)
		assert.Equal(t,
			`UPDATE "public"."users" SET "name" = $1, "created_at" = now() WHERE "id" = $2 RETURNING *`,
			stmt.SQL)
	})

	t.Run("a key may not appear in both maps", func(t *testing.T) {
		_, err := Update(users, map[string]any{"name": "Bob"}, nil, UpdateOptions{
			Exprs: map[string]string{"name": "upper(name)"},
		})
		require.Error(t, err)
		assert.True(t, predicate.IsCompileErr(err))
	})

	t.Run("changes are restricted to real columns", func(t *testing.T) {
		_, err := Update(users, map[string]any{"nope": 1}, nil, UpdateOptions{})
		require.Error(t, err)
		assert.True(t, IsConfigurationErr(err))
	})

	t.Run("empty changes fail", func(t *testing.T) {
		_, err := Update(users, nil, map[string]any{"id": 1}, UpdateOptions{})
		require.Error(t, err)
		assert.True(t, IsConfigurationErr(err))
	})

	t.Run("views reject writes", func(t *testing.T) {
		view, err := cat.Relation("signups")
		require.NoError(t, err)
		_, err = Update(view, map[string]any{"total": 1}, nil, UpdateOptions{})
		require.Error(t, err)
		assert.True(t, IsConfigurationErr(err))
	})

	t.Run("only restricts inheritance", func(t *testing.T) {
		stmt, err := Update(users, map[string]any{"name": "x"}, nil, UpdateOptions{Common: Common{Only: true}})
		require.NoError(t, err)
		assert.Equal(t, `UPDATE ONLY "public"."users" SET "name" = $1 WHERE TRUE RETURNING *`, stmt.SQL)
	})
}

func TestUpdateCompound(t *testing.T) {
	compound := testCompound(t)

	stmt, err := Update(compound, map[string]any{"name": "Bob"}, map[string]any{"posts.title": "Go"}, UpdateOptions{})
	require.NoError(t, err)
	assert.Equal(t,
		`UPDATE "public"."users" SET "name" = $1 FROM "public"."posts" AS "posts" `+
			`WHERE "posts"."author_id" = "users"."id" AND ("posts"."title" = $2) RETURNING *`,
		stmt.SQL)
	assert.Equal(t, []any{"Bob", "Go"}, stmt.Params)
}
