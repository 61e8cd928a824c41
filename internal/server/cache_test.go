package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPageCache(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		c := newPageCache(time.Minute)
		c.Put("/?page=1", []byte("hello"))
		body, ok := c.Get("/?page=1")
		assert.True(t, ok)
		assert.Equal(t, []byte("hello"), body)
	})

	t.Run("keys include the page number", func(t *testing.T) {
		c := newPageCache(time.Minute)
		c.Put("/?page=1", []byte("one"))
		_, ok := c.Get("/?page=2")
		assert.False(t, ok)
	})

	t.Run("entries expire after the TTL", func(t *testing.T) {
		c := newPageCache(10 * time.Millisecond)
		c.Put("/?page=1", []byte("old"))
		time.Sleep(20 * time.Millisecond)
		_, ok := c.Get("/?page=1")
		assert.False(t, ok)
	})

	t.Run("clear drops everything", func(t *testing.T) {
		c := newPageCache(time.Minute)
		c.Put("/?page=1", []byte("one"))
		c.Put("/?page=2", []byte("two"))
		c.Clear()
		_, ok := c.Get("/?page=1")
		assert.False(t, ok)
		_, ok = c.Get("/?page=2")
		assert.False(t, ok)
	})

	t.Run("zero TTL disables caching", func(t *testing.T) {
		c := newPageCache(0)
		c.Put("/?page=1", []byte("one"))
		_, ok := c.Get("/?page=1")
		assert.False(t, ok)
	})
}
