package databind

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnatoleLucet/databind/internal/metrics"
)

func TestSideEffect(t *testing.T) {
	t.Run("without dependencies runs exactly once", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		other := NewWritableValue(realm, 0)

		effect := NewSideEffect(realm, func() { runs++ })

		require.NoError(t, other.SetValue(1))
		effect.Invalidate()
		effect.RunIfDirty()
		realm.Flush()

		assert.Equal(t, 1, runs)
		assert.Empty(t, effect.Dependencies())
		assert.False(t, effect.IsDisposed())
	})

	t.Run("without dependencies still reports its disposal", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()

		first := NewSideEffect(realm, func() {})
		second := NewSideEffect(realm, func() {})
		first.OnDispose(func(SideEffect) { log = append(log, "first") })

		first.Dispose()
		first.Dispose()

		assert.True(t, first.IsDisposed())
		assert.False(t, second.IsDisposed())
		assert.Equal(t, []string{"first"}, log)
	})

	t.Run("created while ignoring still tracks", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		RunAndIgnore(func() {
			NewSideEffect(realm, func() { log = append(log, fmt.Sprint(count.Value())) })
		})

		require.NoError(t, count.SetValue(1))
		realm.Flush()

		assert.Equal(t, []string{"0", "1"}, log)
	})

	t.Run("consumer sees computed values that changed", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 5)
		double := NewComputedValue(realm, func() int { return count.Value() * 2 })

		NewSideEffectFrom(realm, count.Value, func(int) {
			log = append(log, fmt.Sprint(double.Value()))
		})

		require.NoError(t, count.SetValue(10))
		realm.Flush()

		assert.Equal(t, []string{"10", "20"}, log)
	})

	t.Run("reruns asynchronously on change", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		NewSideEffect(realm, func() {
			log = append(log, fmt.Sprintf("count %d", count.Value()))
		})

		require.NoError(t, count.SetValue(1))
		log = append(log, "set")
		realm.Flush()

		assert.Equal(t, []string{"count 0", "set", "count 1"}, log)
	})

	t.Run("only depends on what its last run read", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		a := NewWritableValue(realm, 0)
		b := NewWritableValue(realm, "b")

		effect := NewSideEffect(realm, func() {
			runs++
			if a.Value() > 10 {
				b.Value()
			}
		})
		assertObservables(t, []Observable{a}, effect.Dependencies())

		require.NoError(t, b.SetValue("changed"))
		realm.Flush()
		assert.Equal(t, 1, runs)

		require.NoError(t, a.SetValue(11))
		realm.Flush()
		assert.Equal(t, 2, runs)
		assertObservables(t, []Observable{a, b}, effect.Dependencies())

		require.NoError(t, b.SetValue("again"))
		realm.Flush()
		assert.Equal(t, 3, runs)

		require.NoError(t, a.SetValue(0))
		realm.Flush()
		assert.Equal(t, 4, runs)

		// b is no longer read, so it's no longer listened to
		require.NoError(t, b.SetValue("ignored"))
		realm.Flush()
		assert.Equal(t, 4, runs)
		assert.Equal(t, 0, b.changeListeners.Len())
	})

	t.Run("coalesces changes made before the realm yields", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		a := NewWritableValue(realm, 0)
		b := NewWritableValue(realm, 0)

		NewSideEffect(realm, func() {
			runs++
			a.Value()
			b.Value()
		})

		require.NoError(t, a.SetValue(1))
		require.NoError(t, b.SetValue(1))
		require.NoError(t, a.SetValue(2))

		assert.Equal(t, 1, realm.Pending())
		realm.Flush()
		assert.Equal(t, 2, runs)
	})

	t.Run("does not run while paused", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		effect := NewSideEffect(realm, func() {
			log = append(log, fmt.Sprintf("count %d", count.Value()))
		})

		effect.Pause()
		require.NoError(t, count.SetValue(1))
		realm.Flush()
		log = append(log, "resume")

		effect.Resume()
		assert.Equal(t, []string{"count 0", "resume"}, log)

		realm.Flush()
		assert.Equal(t, []string{"count 0", "resume", "count 1"}, log)
	})

	t.Run("pauses nest", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		effect := NewSideEffect(realm, func() {
			runs++
			count.Value()
		})

		effect.Pause()
		effect.Pause()
		require.NoError(t, count.SetValue(1))

		effect.Resume()
		realm.Flush()
		assert.Equal(t, 1, runs)

		effect.Resume()
		realm.Flush()
		assert.Equal(t, 2, runs)

		requirePanicsWith(t, ErrNotPaused, effect.Resume)
	})

	t.Run("resume and run if dirty runs synchronously", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		effect := NewSideEffect(realm, func() {
			runs++
			count.Value()
		})

		effect.Pause()
		require.NoError(t, count.SetValue(1))
		effect.ResumeAndRunIfDirty()

		assert.Equal(t, 2, runs)
		assert.Zero(t, realm.Flush())
		assert.Equal(t, 2, runs)
	})

	t.Run("run if dirty runs the pending rerun now", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		effect := NewSideEffect(realm, func() {
			runs++
			count.Value()
		})

		effect.RunIfDirty()
		assert.Equal(t, 1, runs)

		require.NoError(t, count.SetValue(1))
		effect.RunIfDirty()
		assert.Equal(t, 2, runs)

		// the queued rerun finds the side effect clean
		realm.Flush()
		assert.Equal(t, 2, runs)
	})

	t.Run("invalidate reruns without a change", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		effect := NewSideEffect(realm, func() {
			runs++
			count.Value()
		})

		effect.Invalidate()
		effect.Invalidate()
		realm.Flush()

		assert.Equal(t, 2, runs)
	})

	t.Run("dispose cancels the pending rerun", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		effect := NewSideEffect(realm, func() {
			runs++
			count.Value()
		})

		require.NoError(t, count.SetValue(1))
		effect.Dispose()
		realm.Flush()

		assert.Equal(t, 1, runs)
		assert.True(t, effect.IsDisposed())
		assert.Empty(t, effect.Dependencies())
		assert.Equal(t, 0, count.changeListeners.Len())

		// everything but dispose is ignored from now on
		effect.Invalidate()
		effect.Pause()
		effect.Resume()
		effect.RunIfDirty()
		effect.Dispose()
		realm.Flush()
		assert.Equal(t, 1, runs)
	})

	t.Run("may dispose itself while running", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		var effect SideEffect
		effect = NewSideEffect(realm, func() {
			runs++
			if count.Value() > 0 {
				effect.Dispose()
			}
		})

		require.NoError(t, count.SetValue(1))
		realm.Flush()
		require.NoError(t, count.SetValue(2))
		realm.Flush()

		assert.Equal(t, 2, runs)
		assert.True(t, effect.IsDisposed())
		assert.Equal(t, 0, count.changeListeners.Len())
	})

	t.Run("notifies dispose handlers once", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		effect := NewSideEffect(realm, func() { count.Value() })
		effect.OnDispose(func(s SideEffect) {
			log = append(log, "disposed")
			assert.Same(t, effect, s)
		})

		effect.Dispose()
		effect.Dispose()

		assert.Equal(t, []string{"disposed"}, log)
	})

	t.Run("writes made by its procedure don't retrigger it", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		NewSideEffect(realm, func() {
			runs++
			if c := count.Value(); c < 3 {
				_ = count.SetValue(c + 1)
			}
		})
		realm.Flush()

		assert.Equal(t, 1, runs)
		assert.Equal(t, 1, Untrack(count.Value))
	})

	t.Run("must be used from its realm", func(t *testing.T) {
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)
		effect := NewSideEffect(realm, func() { count.Value() })

		recovered := panicIn(effect.Dispose)
		assert.ErrorIs(t, recovered.(error), ErrWrongRealm)

		recovered = panicIn(func() { NewSideEffect(realm, func() {}) })
		assert.ErrorIs(t, recovered.(error), ErrWrongRealm)
	})
}

func TestSideEffectErrors(t *testing.T) {
	t.Run("a failing run leaves the side effect clean and listening", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)
		other := NewWritableValue(realm, 0)

		effect := NewSideEffect(realm, func() {
			c := count.Value()
			if c == 1 {
				panic("one")
			}
			other.Value()
			log = append(log, fmt.Sprintf("count %d", c))
		})
		effect.OnError(func(r any) {
			log = append(log, fmt.Sprintf("error %v", r))
		})

		require.NoError(t, count.SetValue(1))
		realm.Flush()
		assertObservables(t, []Observable{count}, effect.Dependencies())

		// not read by the failed run
		require.NoError(t, other.SetValue(1))
		assert.Zero(t, realm.Flush())

		require.NoError(t, count.SetValue(2))
		realm.Flush()

		assert.Equal(t, []string{"count 0", "error one", "count 2"}, log)
	})

	t.Run("without handlers the panic reaches the realm", func(t *testing.T) {
		realm := NewQueueRealm(WithRealmName("side-effect-panics"))
		count := NewWritableValue(realm, 0)

		NewSideEffect(realm, func() {
			if count.Value() == 1 {
				panic("one")
			}
		})

		panics := testutil.ToFloat64(metrics.SideEffectPanics)
		realmPanics := testutil.ToFloat64(metrics.RealmTaskPanics.WithLabelValues("side-effect-panics"))

		require.NoError(t, count.SetValue(1))
		assert.NotPanics(t, func() { realm.Flush() })

		assert.Equal(t, panics+1, testutil.ToFloat64(metrics.SideEffectPanics))
		assert.Equal(t, realmPanics+1, testutil.ToFloat64(metrics.RealmTaskPanics.WithLabelValues("side-effect-panics")))
	})

	t.Run("run if dirty hands the panic to its caller", func(t *testing.T) {
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		effect := NewSideEffect(realm, func() {
			if count.Value() == 1 {
				panic("one")
			}
		})

		require.NoError(t, count.SetValue(1))
		assert.PanicsWithValue(t, "one", effect.RunIfDirty)
	})

	t.Run("a failing first run fails the constructor", func(t *testing.T) {
		realm := NewQueueRealm()

		assert.PanicsWithValue(t, "boom", func() {
			NewSideEffect(realm, func() { panic("boom") })
		})
	})
}

func TestSideEffectConstructors(t *testing.T) {
	t.Run("paused side effects wait for resume", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		effect := NewPausedSideEffect(realm, func() {
			runs++
			count.Value()
		})
		realm.Flush()
		assert.Zero(t, runs)
		assert.Empty(t, effect.Dependencies())

		effect.Resume()
		assert.Zero(t, runs)
		realm.Flush()
		assert.Equal(t, 1, runs)

		require.NoError(t, count.SetValue(1))
		realm.Flush()
		assert.Equal(t, 2, runs)
	})

	t.Run("resumed side effects run on the next turn", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)

		NewResumedSideEffect(realm, func() {
			runs++
			count.Value()
		})
		assert.Zero(t, runs)

		realm.Flush()
		assert.Equal(t, 1, runs)
	})

	t.Run("consumer reads are not dependencies", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		name := NewWritableValue(realm, "ada")
		greeting := NewWritableValue(realm, "")

		effect := NewSideEffectFrom(realm, name.Value, func(n string) {
			_ = greeting.SetValue("hello " + n + greeting.Value())
			log = append(log, greeting.Value())
		})
		assertObservables(t, []Observable{name}, effect.Dependencies())

		require.NoError(t, greeting.SetValue(""))
		require.NoError(t, name.SetValue("grace"))
		realm.Flush()

		assert.Equal(t, []string{"hello ada", "hello grace"}, log)
	})

	t.Run("consume once waits for a value then disposes itself", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		ready := NewWritableValue(realm, false)
		value := NewWritableValue(realm, "first")

		effect := ConsumeOnce(realm, func() (string, bool) {
			if !ready.Value() {
				return "", false
			}
			return value.Value(), true
		}, func(v string) {
			log = append(log, v)
		})

		realm.Flush()
		assert.Empty(t, log)
		assert.False(t, effect.IsDisposed())

		require.NoError(t, ready.SetValue(true))
		realm.Flush()
		require.NoError(t, value.SetValue("second"))
		realm.Flush()

		assert.Equal(t, []string{"first"}, log)
		assert.True(t, effect.IsDisposed())
	})
}

func TestSideEffectFactory(t *testing.T) {
	t.Run("disposes what it created", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)
		factory := NewSideEffectFactory(realm)

		first := factory.Create(func() { count.Value() })
		second := factory.CreatePaused(func() { count.Value() })
		third := CreateFrom(factory, count.Value, func(int) {})
		first.OnDispose(func(SideEffect) { log = append(log, "first") })
		second.OnDispose(func(SideEffect) { log = append(log, "second") })
		third.OnDispose(func(SideEffect) { log = append(log, "third") })

		second.Dispose()
		assert.Equal(t, 2, factory.Len())

		factory.Dispose()

		assert.Equal(t, []string{"second", "third", "first"}, log)
		assert.True(t, first.IsDisposed())
		assert.True(t, third.IsDisposed())
		assert.Zero(t, factory.Len())
	})

	t.Run("disposes side effects without dependencies", func(t *testing.T) {
		realm := NewQueueRealm()
		factory := NewSideEffectFactory(realm)

		effect := factory.Create(func() {})
		assert.Equal(t, 1, factory.Len())

		factory.Dispose()

		assert.True(t, effect.IsDisposed())
		assert.Zero(t, factory.Len())
	})

	t.Run("side effects created once disposed are disposed", func(t *testing.T) {
		runs := 0
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)
		factory := NewSideEffectFactory(realm)
		factory.Dispose()

		effect := factory.CreateResumed(func() {
			runs++
			count.Value()
		})
		realm.Flush()

		assert.True(t, effect.IsDisposed())
		assert.Zero(t, runs)
	})

	t.Run("hands its error handlers to its side effects", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		count := NewWritableValue(realm, 0)
		factory := NewSideEffectFactory(realm)
		factory.OnError(func(r any) { log = append(log, fmt.Sprintf("caught %v", r)) })

		factory.Create(func() {
			if count.Value() > 0 {
				panic("boom")
			}
		})

		require.NoError(t, count.SetValue(1))
		realm.Flush()

		assert.Equal(t, []string{"caught boom"}, log)
	})
}
