package databind

// ValueDiff describes a value change.
type ValueDiff[T any] struct {
	Old T
	New T
}

// SetDiff describes a set change. Removals apply before additions.
type SetDiff[T comparable] struct {
	Additions []T
	Removals  []T
}

func (d SetDiff[T]) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Removals) == 0
}

// ComputeSetDiff returns the diff turning old into new. Element order
// follows the order of the inputs.
func ComputeSetDiff[T comparable](old, new []T) SetDiff[T] {
	inOld := make(map[T]struct{}, len(old))
	for _, e := range old {
		inOld[e] = struct{}{}
	}

	inNew := make(map[T]struct{}, len(new))
	for _, e := range new {
		inNew[e] = struct{}{}
	}

	var diff SetDiff[T]
	for _, e := range old {
		if _, ok := inNew[e]; !ok {
			diff.Removals = append(diff.Removals, e)
		}
	}
	for _, e := range new {
		if _, ok := inOld[e]; !ok {
			diff.Additions = append(diff.Additions, e)
		}
	}

	return diff
}

// ListDiffEntry is a single addition or removal at Position.
// Positions are relative to the list as left by the preceding entries.
type ListDiffEntry[T any] struct {
	Position int
	Addition bool
	Element  T
}

// ListDiff describes a list change as entries applied in order.
type ListDiff[T any] struct {
	Entries []ListDiffEntry[T]
}

func (d ListDiff[T]) IsEmpty() bool {
	return len(d.Entries) == 0
}

// ListDiffVisitor receives the entries of a ListDiff. HandleMove and
// HandleReplace are only called for remove+add pairs that can be read as such.
type ListDiffVisitor[T any] interface {
	HandleAdd(index int, element T)
	HandleRemove(index int, element T)
	HandleMove(oldIndex, newIndex int, element T)
	HandleReplace(index int, oldElement, newElement T)
}

// Accept walks the entries, folding a removal immediately followed by an
// addition at the same position into a replace, and a removal immediately
// followed by an addition of an equal element into a move.
func (d ListDiff[T]) Accept(v ListDiffVisitor[T]) {
	entries := d.Entries

	for i := 0; i < len(entries); i++ {
		e := entries[i]

		if !e.Addition && i+1 < len(entries) && entries[i+1].Addition {
			next := entries[i+1]

			if next.Position == e.Position {
				if equal(e.Element, next.Element) {
					// removing then re-adding the same element in place is a no-op
					i++
					continue
				}

				v.HandleReplace(e.Position, e.Element, next.Element)
				i++
				continue
			}

			if equal(e.Element, next.Element) {
				v.HandleMove(e.Position, next.Position, e.Element)
				i++
				continue
			}
		}

		if e.Addition {
			v.HandleAdd(e.Position, e.Element)
		} else {
			v.HandleRemove(e.Position, e.Element)
		}
	}
}

// Apply replays the diff on list and returns the result.
func (d ListDiff[T]) Apply(list []T) []T {
	result := append([]T(nil), list...)
	for _, e := range d.Entries {
		if e.Addition {
			result = append(result, e.Element)
			copy(result[e.Position+1:], result[e.Position:])
			result[e.Position] = e.Element
		} else {
			result = append(result[:e.Position], result[e.Position+1:]...)
		}
	}

	return result
}

// ListDiffVisitorFuncs is a ListDiffVisitor built from functions. Move and
// Replace fall back to Remove+Add when left nil.
type ListDiffVisitorFuncs[T any] struct {
	Add     func(index int, element T)
	Remove  func(index int, element T)
	Move    func(oldIndex, newIndex int, element T)
	Replace func(index int, oldElement, newElement T)
}

func (f ListDiffVisitorFuncs[T]) HandleAdd(index int, element T) {
	if f.Add != nil {
		f.Add(index, element)
	}
}

func (f ListDiffVisitorFuncs[T]) HandleRemove(index int, element T) {
	if f.Remove != nil {
		f.Remove(index, element)
	}
}

func (f ListDiffVisitorFuncs[T]) HandleMove(oldIndex, newIndex int, element T) {
	if f.Move != nil {
		f.Move(oldIndex, newIndex, element)
		return
	}

	f.HandleRemove(oldIndex, element)
	f.HandleAdd(newIndex, element)
}

func (f ListDiffVisitorFuncs[T]) HandleReplace(index int, oldElement, newElement T) {
	if f.Replace != nil {
		f.Replace(index, oldElement, newElement)
		return
	}

	f.HandleRemove(index, oldElement)
	f.HandleAdd(index, newElement)
}

// ComputeListDiff returns a minimal diff turning old into new, based on the
// longest common subsequence of the two lists.
func ComputeListDiff[T any](old, new []T) ListDiff[T] {
	n, m := len(old), len(new)

	// lcs[i][j] is the LCS length of old[i:] and new[j:]
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if equal(old[i], new[j]) {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	var diff ListDiff[T]
	i, j, pos := 0, 0, 0
	for i < n || j < m {
		switch {
		case i < n && j < m && equal(old[i], new[j]):
			i++
			j++
			pos++
		case i < n && (j == m || lcs[i+1][j] >= lcs[i][j+1]):
			diff.Entries = append(diff.Entries, ListDiffEntry[T]{Position: pos, Element: old[i]})
			i++
		default:
			diff.Entries = append(diff.Entries, ListDiffEntry[T]{Position: pos, Addition: true, Element: new[j]})
			j++
			pos++
		}
	}

	return diff
}
