package feed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"blog/internal/models"
)

func makePosts(n int) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{ID: int64(n - i), Text: fmt.Sprintf("post %d", n-i)}
	}
	return posts
}

func TestPaginate(t *testing.T) {
	t.Run("15 posts split 10 and 5", func(t *testing.T) {
		posts := makePosts(15)

		p1 := Paginate(posts, 1)
		assert.Len(t, p1.Posts, 10)
		assert.Equal(t, 15, p1.Total)
		assert.Equal(t, 2, p1.NumPages)
		assert.True(t, p1.HasNext())
		assert.False(t, p1.HasPrev())

		p2 := Paginate(posts, 2)
		assert.Len(t, p2.Posts, 5)
		assert.False(t, p2.HasNext())
		assert.True(t, p2.HasPrev())
		assert.Equal(t, posts[10].ID, p2.Posts[0].ID)
	})

	t.Run("out of range clamps instead of failing", func(t *testing.T) {
		posts := makePosts(15)

		low := Paginate(posts, 0)
		assert.Equal(t, 1, low.Number)
		assert.Len(t, low.Posts, 10)

		high := Paginate(posts, 99)
		assert.Equal(t, 2, high.Number)
		assert.Len(t, high.Posts, 5)
	})

	t.Run("empty list is a single empty page", func(t *testing.T) {
		p := Paginate(nil, 1)
		assert.Empty(t, p.Posts)
		assert.Equal(t, 1, p.Number)
		assert.Equal(t, 1, p.NumPages)
		assert.Equal(t, 0, p.Total)
		assert.False(t, p.HasNext())
		assert.False(t, p.HasPrev())
	})

	t.Run("exact multiple has no ragged page", func(t *testing.T) {
		posts := makePosts(20)
		assert.Equal(t, 2, Paginate(posts, 1).NumPages)
		assert.Len(t, Paginate(posts, 2).Posts, 10)
	})

	t.Run("slice order is preserved", func(t *testing.T) {
		posts := makePosts(12)
		p := Paginate(posts, 1)
		for i := 1; i < len(p.Posts); i++ {
			assert.Greater(t, p.Posts[i-1].ID, p.Posts[i].ID)
		}
	})
}
