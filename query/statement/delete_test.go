package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelete(t *testing.T) {
	cat := testCatalog(t)
	users, err := cat.Relation("users")
	require.NoError(t, err)

	t.Run("plain delete", func(t *testing.T) {
		stmt, err := Delete(users, map[string]any{"id": 1}, DeleteOptions{})
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "public"."users" WHERE "id" = $1 RETURNING *`, stmt.SQL)
		assert.Equal(t, []any{1}, stmt.Params)
	})

	t.Run("empty criteria delete everything deliberately", func(t *testing.T) {
		stmt, err := Delete(users, nil, DeleteOptions{})
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "public"."users" WHERE TRUE RETURNING *`, stmt.SQL)
	})

	t.Run("only restricts inheritance", func(t *testing.T) {
		stmt, err := Delete(users, nil, DeleteOptions{Common: Common{Only: true, NoReturning: true}})
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM ONLY "public"."users" WHERE TRUE`, stmt.SQL)
	})

	t.Run("views reject writes", func(t *testing.T) {
		view, err := cat.Relation("signups")
		require.NoError(t, err)
		_, err = Delete(view, nil, DeleteOptions{})
		require.Error(t, err)
		assert.True(t, IsConfigurationErr(err))
	})
}

func TestDeleteCompound(t *testing.T) {
	compound := testCompound(t)

	stmt, err := Delete(compound, map[string]any{"posts.title": "Go"}, DeleteOptions{})
	require.NoError(t, err)
	assert.Equal(t,
		`DELETE FROM "public"."users" USING "public"."posts" AS "posts" `+
			`WHERE "posts"."author_id" = "users"."id" AND ("posts"."title" = $1) RETURNING *`,
		stmt.SQL)
	assert.Equal(t, []any{"Go"}, stmt.Params)
}
