package databind

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritableValue(t *testing.T) {
	t.Run("notifies changes only", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		v := NewWritableValue(realm, 1)

		v.AddChangeListener(OnChange(func(e ChangeEvent) {
			log = append(log, "change")
		}))
		v.AddValueChangeListener(OnValueChange(func(e ValueChangeEvent[int]) {
			log = append(log, fmt.Sprintf("%d -> %d", e.Diff.Old, e.Diff.New))
		}))

		require.NoError(t, v.SetValue(2))
		require.NoError(t, v.SetValue(2))
		require.NoError(t, v.SetValue(3))

		assert.Equal(t, []string{"change", "1 -> 2", "change", "2 -> 3"}, log)
		assert.Equal(t, 3, v.Value())
	})

	t.Run("listeners are removed by identity", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		v := NewWritableValue(realm, "a")

		l := OnChange(func(e ChangeEvent) { log = append(log, "change") })
		v.AddChangeListener(l)
		v.AddChangeListener(l)

		require.NoError(t, v.SetValue("b"))
		v.RemoveChangeListener(l)
		require.NoError(t, v.SetValue("c"))

		assert.Equal(t, []string{"change"}, log)
	})

	t.Run("compares incomparable values deeply", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		v := NewWritableValue(realm, []int{1, 2})

		v.AddChangeListener(OnChange(func(e ChangeEvent) { log = append(log, "change") }))

		require.NoError(t, v.SetValue([]int{1, 2}))
		require.NoError(t, v.SetValue([]int{1, 2, 3}))

		assert.Equal(t, []string{"change"}, log)
	})

	t.Run("dispose notifies then refuses writes", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		v := NewWritableValue(realm, 1)

		v.AddDisposeListener(OnDispose(func(e DisposeEvent) {
			log = append(log, "disposed")
			assert.Same(t, v, e.Source)
		}))

		v.Dispose()
		v.Dispose()

		assert.True(t, v.IsDisposed())
		assert.ErrorIs(t, v.SetValue(2), ErrDisposed)
		assert.Equal(t, []string{"disposed"}, log)
	})

	t.Run("must be used from its realm", func(t *testing.T) {
		realm := NewQueueRealm()
		v := NewWritableValue(realm, 1)

		recovered := panicIn(func() { v.Value() })
		assert.ErrorIs(t, recovered.(error), ErrWrongRealm)

		recovered = panicIn(func() { _ = v.SetValue(2) })
		assert.ErrorIs(t, recovered.(error), ErrWrongRealm)
	})

	t.Run("unmodifiable view", func(t *testing.T) {
		realm := NewQueueRealm()
		v := NewWritableValue(realm, 1)
		view := NewUnmodifiableValue[int](v)

		assert.ErrorIs(t, view.SetValue(2), ErrUnmodifiable)
		require.NoError(t, v.SetValue(3))
		assert.Equal(t, 3, view.Value())

		view.Dispose()
		assert.False(t, v.IsDisposed())
	})
}

func TestWritableList(t *testing.T) {
	record := func(l *WritableList[string]) *[]ListDiff[string] {
		diffs := &[]ListDiff[string]{}
		l.AddListChangeListener(OnListChange(func(e ListChangeEvent[string]) {
			*diffs = append(*diffs, e.Diff)
		}))
		return diffs
	}

	t.Run("every mutation describes itself", func(t *testing.T) {
		realm := NewQueueRealm()
		l := NewWritableList(realm, "a", "b")
		diffs := record(l)

		require.NoError(t, l.Add("c"))
		require.NoError(t, l.Insert(0, "z"))
		old, err := l.Set(1, "A")
		require.NoError(t, err)
		assert.Equal(t, "a", old)
		moved, err := l.Move(0, 3)
		require.NoError(t, err)
		assert.Equal(t, "z", moved)
		removed, err := l.Remove("b")
		require.NoError(t, err)
		assert.True(t, removed)

		want := []ListDiff[string]{
			{Entries: []ListDiffEntry[string]{{Position: 2, Addition: true, Element: "c"}}},
			{Entries: []ListDiffEntry[string]{{Position: 0, Addition: true, Element: "z"}}},
			{Entries: []ListDiffEntry[string]{
				{Position: 1, Element: "a"},
				{Position: 1, Addition: true, Element: "A"},
			}},
			{Entries: []ListDiffEntry[string]{
				{Position: 0, Element: "z"},
				{Position: 3, Addition: true, Element: "z"},
			}},
			{Entries: []ListDiffEntry[string]{{Position: 1, Element: "b"}}},
		}

		if diff := cmp.Diff(want, *diffs); diff != "" {
			t.Errorf("unexpected diffs (-want +got):\n%s", diff)
		}
		assert.Equal(t, []string{"A", "c", "z"}, l.Elements())
	})

	t.Run("diffs replay onto the old elements", func(t *testing.T) {
		realm := NewQueueRealm()
		l := NewWritableList(realm, "a", "b", "c", "d")
		diffs := record(l)

		before := l.Elements()
		require.NoError(t, l.Clear())
		require.NoError(t, l.AddAll("x", "y"))

		after := before
		for _, d := range *diffs {
			after = d.Apply(after)
		}
		assert.Equal(t, l.Elements(), after)
	})

	t.Run("bad indexes are errors", func(t *testing.T) {
		realm := NewQueueRealm()
		l := NewWritableList(realm, "a")

		assert.ErrorIs(t, l.Insert(2, "b"), ErrIndexOutOfRange)
		_, err := l.RemoveAt(1)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		_, err = l.Move(0, 1)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("stale until changed", func(t *testing.T) {
		log := []string{}
		realm := NewQueueRealm()
		l := NewWritableList[string](realm)
		l.AddStaleListener(OnStale(func(e StaleEvent) { log = append(log, "stale") }))

		l.SetStale(true)
		l.SetStale(true)
		assert.True(t, l.IsStale())

		require.NoError(t, l.Add("a"))
		assert.False(t, l.IsStale())
		assert.Equal(t, []string{"stale"}, log)
	})

	t.Run("unmodifiable view", func(t *testing.T) {
		realm := NewQueueRealm()
		l := NewWritableList(realm, "a")
		view := NewUnmodifiableList[string](l)

		assert.ErrorIs(t, view.Add("b"), ErrUnmodifiable)
		_, err := view.RemoveAt(0)
		assert.ErrorIs(t, err, ErrUnmodifiable)

		require.NoError(t, l.Add("b"))
		assert.Equal(t, []string{"a", "b"}, view.Elements())
	})
}

func TestWritableSet(t *testing.T) {
	t.Run("one event per call, removals first", func(t *testing.T) {
		realm := NewQueueRealm()
		s := NewWritableSet(realm, "a", "b")

		var diffs []SetDiff[string]
		s.AddSetChangeListener(OnSetChange(func(e SetChangeEvent[string]) {
			diffs = append(diffs, e.Diff)
		}))

		require.NoError(t, s.ApplyDiff(SetDiff[string]{Removals: []string{"b"}, Additions: []string{"c", "a"}}))
		require.NoError(t, s.Add("c"))
		require.NoError(t, s.Remove("z"))

		want := []SetDiff[string]{{Removals: []string{"b"}, Additions: []string{"c"}}}
		if diff := cmp.Diff(want, diffs); diff != "" {
			t.Errorf("unexpected diffs (-want +got):\n%s", diff)
		}
		assert.Equal(t, []string{"a", "c"}, s.Elements())
	})

	t.Run("clear removes everything at once", func(t *testing.T) {
		realm := NewQueueRealm()
		s := NewWritableSet(realm, 1, 2, 3)

		events := 0
		s.AddSetChangeListener(OnSetChange(func(e SetChangeEvent[int]) {
			events++
			assert.ElementsMatch(t, []int{1, 2, 3}, e.Diff.Removals)
		}))

		require.NoError(t, s.Clear())
		assert.Equal(t, 1, events)
		assert.Zero(t, s.Len())
	})

	t.Run("disposed sets refuse writes", func(t *testing.T) {
		realm := NewQueueRealm()
		s := NewWritableSet(realm, 1)
		s.Dispose()

		assert.ErrorIs(t, s.Add(2), ErrDisposed)
		assert.False(t, s.Contains(2))
	})
}
