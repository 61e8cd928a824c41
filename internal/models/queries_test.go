package models

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func count(t *testing.T, d *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestDeleteCascades(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	alice, err := CreateUser(ctx, d, "a@example.com", "alice", "x")
	require.NoError(t, err)
	bob, err := CreateUser(ctx, d, "b@example.com", "bob", "x")
	require.NoError(t, err)

	news, err := CreateGroup(ctx, d, "news", "News", "")
	require.NoError(t, err)

	postID, err := CreatePost(ctx, d, alice, &news, "hello", "")
	require.NoError(t, err)
	_, err = CreateComment(ctx, d, postID, bob, "hi")
	require.NoError(t, err)
	require.NoError(t, CreateFollow(ctx, d, bob, alice))

	t.Run("deleting the author removes their posts, comments and edges", func(t *testing.T) {
		_, err := d.Exec(`DELETE FROM users WHERE id = ?`, alice)
		require.NoError(t, err)
		assert.Equal(t, 0, count(t, d, "posts"))
		assert.Equal(t, 0, count(t, d, "comments"))
		assert.Equal(t, 0, count(t, d, "follows"))
	})
}

func TestDeletePostCascadesComments(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	alice, err := CreateUser(ctx, d, "a@example.com", "alice", "x")
	require.NoError(t, err)
	postID, err := CreatePost(ctx, d, alice, nil, "hello", "")
	require.NoError(t, err)
	_, err = CreateComment(ctx, d, postID, alice, "note")
	require.NoError(t, err)

	_, err = d.Exec(`DELETE FROM posts WHERE id = ?`, postID)
	require.NoError(t, err)
	assert.Equal(t, 0, count(t, d, "comments"))
}

func TestDeleteGroupClearsPostGroup(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	alice, err := CreateUser(ctx, d, "a@example.com", "alice", "x")
	require.NoError(t, err)
	news, err := CreateGroup(ctx, d, "news", "News", "")
	require.NoError(t, err)
	postID, err := CreatePost(ctx, d, alice, &news, "hello", "")
	require.NoError(t, err)

	require.NoError(t, DeleteGroup(ctx, d, news))

	post, err := GetPost(ctx, d, postID)
	require.NoError(t, err)
	assert.Nil(t, post.GroupID)
	assert.Equal(t, "hello", post.Text)
	assert.Empty(t, post.GroupSlug)
}

func TestCounts(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	alice, err := CreateUser(ctx, d, "a@example.com", "alice", "x")
	require.NoError(t, err)
	bob, err := CreateUser(ctx, d, "b@example.com", "bob", "x")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := CreatePost(ctx, d, alice, nil, "p", "")
		require.NoError(t, err)
	}
	require.NoError(t, CreateFollow(ctx, d, bob, alice))

	n, err := CountPostsByAuthor(ctx, d, alice)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = CountFollowers(ctx, d, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListGroups(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	_, err := CreateGroup(ctx, d, "zed", "Zed", "")
	require.NoError(t, err)
	_, err = CreateGroup(ctx, d, "art", "Art", "")
	require.NoError(t, err)

	gs, err := ListGroups(ctx, d)
	require.NoError(t, err)
	require.Len(t, gs, 2)
	assert.Equal(t, "Art", gs[0].Title)
	assert.Equal(t, "Zed", gs[1].Title)
}
