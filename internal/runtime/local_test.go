package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestLocal(t *testing.T) {
	t.Run("one value per goroutine", func(t *testing.T) {
		created := make(chan struct{}, 8)
		local := NewLocal(func() *int {
			created <- struct{}{}
			return new(int)
		})

		*local.Get() = 1
		assert.Equal(t, 1, *local.Get())

		var g errgroup.Group
		for i := 0; i < 4; i++ {
			g.Go(func() error {
				*local.Get() += 10
				assert.Equal(t, 10, *local.Get())
				return nil
			})
		}
		assert.NoError(t, g.Wait())

		assert.Equal(t, 1, *local.Get())
		assert.Len(t, created, 5)
	})

	t.Run("peek doesn't create", func(t *testing.T) {
		local := NewLocal(func() *string { return new(string) })

		_, ok := local.Peek()
		assert.False(t, ok)

		*local.Get() = "x"
		v, ok := local.Peek()
		assert.True(t, ok)
		assert.Equal(t, "x", *v)
	})

	t.Run("release starts over", func(t *testing.T) {
		local := NewLocal(func() *int { return new(int) })
		*local.Get() = 3

		local.Release()

		_, ok := local.Peek()
		assert.False(t, ok)
		assert.Zero(t, *local.Get())
	})

	t.Run("goroutine ids", func(t *testing.T) {
		id := GoroutineID()
		assert.Equal(t, id, GoroutineID())

		other := make(chan int64)
		go func() { other <- GoroutineID() }()
		assert.NotEqual(t, id, <-other)
	})
}
