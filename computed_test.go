package databind

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputedValue(t *testing.T) {
	t.Run("computes lazily and caches", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 2)

		double := NewComputedValue(realm, func() int {
			log = append(log, "compute")
			return count.Value() * 2
		})

		assert.Empty(t, log)
		assert.Equal(t, 4, double.Value())
		assert.Equal(t, 4, double.Value())
		assert.Equal(t, []string{"compute"}, log)

		require.NoError(t, count.SetValue(5))
		assert.Equal(t, 10, double.Value())
		assert.Equal(t, []string{"compute", "compute"}, log)
	})

	t.Run("notifies listeners when the result changes", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 3)

		parity := NewComputedValue(realm, func() string {
			if count.Value()%2 == 0 {
				return "even"
			}
			return "odd"
		})
		parity.AddValueChangeListener(OnValueChange(func(e ValueChangeEvent[string]) {
			log = append(log, fmt.Sprintf("%s -> %s", e.Diff.Old, e.Diff.New))
		}))

		require.NoError(t, count.SetValue(5))
		require.NoError(t, count.SetValue(6))

		assert.Equal(t, []string{"odd -> even"}, log)
	})

	t.Run("tracks the dependencies of its last computation", func(t *testing.T) {
		realm := NewQueueRealm()
		useA := NewWritableValue(realm, true)
		a := NewWritableValue(realm, "a")
		b := NewWritableValue(realm, "b")

		pick := NewComputedValue(realm, func() string {
			if useA.Value() {
				return a.Value()
			}
			return b.Value()
		})

		assert.Equal(t, "a", pick.Value())
		assertObservables(t, []Observable{useA, a}, pick.Dependencies())

		require.NoError(t, useA.SetValue(false))
		assert.Equal(t, "b", pick.Value())
		assertObservables(t, []Observable{useA, b}, pick.Dependencies())
	})

	t.Run("is read-only", func(t *testing.T) {
		realm := NewQueueRealm()
		c := NewComputedValue(realm, func() int { return 1 })

		assert.ErrorIs(t, c.SetValue(2), ErrUnmodifiable)
	})

	t.Run("is a dependency of whoever reads it", func(t *testing.T) {
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 1)
		double := NewComputedValue(realm, func() int { return count.Value() * 2 })

		got := RunAndMonitor(func() { double.Value() }, nil, nil)
		assertObservables(t, []Observable{double}, got)
	})

	t.Run("first read while ignoring still tracks", func(t *testing.T) {
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 1)
		double := NewComputedValue(realm, func() int { return count.Value() * 2 })

		assert.Equal(t, 2, Untrack(double.Value))
		assertObservables(t, []Observable{count}, double.Dependencies())

		require.NoError(t, count.SetValue(5))
		assert.Equal(t, 10, Untrack(double.Value))
		assert.Equal(t, 10, double.Value())
	})

	t.Run("stops listening once disposed", func(t *testing.T) {
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 1)
		double := NewComputedValue(realm, func() int { return count.Value() * 2 })
		double.Value()

		double.Dispose()

		assert.Empty(t, double.Dependencies())
		assert.Equal(t, 0, count.changeListeners.Len())
	})
}
