package track

import (
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v3"
)

// List is an ordered sequence that participates in change tracking. Every
// structural mutation marks the list itself dirty; when the element type
// implements Trackable the list's effective dirtiness also reflects the
// current state of its elements, recomputed on every Dirty call.
//
// Index arguments follow slice semantics: out-of-range panics.
type List[T comparable] struct {
	Record
	items []T
}

// NewList returns a clean list seeded with the given items.
func NewList[T comparable](items ...T) *List[T] {
	l := &List[T]{}
	l.items = append(l.items, items...)
	return l
}

// Len returns the number of elements.
func (l *List[T]) Len() int { return len(l.items) }

// At returns the element at index i.
func (l *List[T]) At(i int) T { return l.items[i] }

// SetAt replaces the element at index i. Assigning a value equal to the
// current element skips notification, mirroring the Set helper.
func (l *List[T]) SetAt(i int, v T) {
	if l.items[i] == v {
		return
	}
	l.items[i] = v
	l.NotifyChanged()
}

// Append adds vs to the end of the list.
func (l *List[T]) Append(vs ...T) {
	if len(vs) == 0 {
		return
	}
	l.items = append(l.items, vs...)
	l.NotifyChanged()
}

// Insert places v at index i, shifting later elements right.
func (l *List[T]) Insert(i int, v T) {
	l.items = append(l.items, v)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = v
	l.NotifyChanged()
}

// RemoveAt deletes and returns the element at index i.
func (l *List[T]) RemoveAt(i int) T {
	v := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.NotifyChanged()
	return v
}

// Remove deletes the first element equal to v, reporting whether one existed.
func (l *List[T]) Remove(v T) bool {
	i := l.Index(v)
	if i < 0 {
		return false
	}
	l.RemoveAt(i)
	return true
}

// RemoveFunc deletes every element matching pred and returns the removed count.
func (l *List[T]) RemoveFunc(pred func(T) bool) int {
	kept := l.items[:0]
	removed := 0
	for _, v := range l.items {
		if pred(v) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	if removed == 0 {
		return 0
	}
	// zero the tail so removed pointers do not linger
	var zero T
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = zero
	}
	l.items = kept
	l.NotifyChanged()
	return removed
}

// Clear removes all elements.
func (l *List[T]) Clear() {
	l.items = nil
	l.NotifyChanged()
}

// SortFunc orders the list by the provided less function.
func (l *List[T]) SortFunc(less func(a, b T) bool) {
	sort.Slice(l.items, func(i, j int) bool { return less(l.items[i], l.items[j]) })
	l.NotifyChanged()
}

// Reverse flips the element order in place.
func (l *List[T]) Reverse() {
	for i, j := 0, len(l.items)-1; i < j; i, j = i+1, j-1 {
		l.items[i], l.items[j] = l.items[j], l.items[i]
	}
	l.NotifyChanged()
}

// Index returns the position of the first element equal to v, or -1.
func (l *List[T]) Index(v T) int {
	for i, it := range l.items {
		if it == v {
			return i
		}
	}
	return -1
}

// IndexFunc returns the position of the first element matching pred, or -1.
func (l *List[T]) IndexFunc(pred func(T) bool) int {
	for i, it := range l.items {
		if pred(it) {
			return i
		}
	}
	return -1
}

// Find returns the first element matching pred.
func (l *List[T]) Find(pred func(T) bool) (T, bool) {
	if i := l.IndexFunc(pred); i >= 0 {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// Contains reports whether an element equal to v is present.
func (l *List[T]) Contains(v T) bool { return l.Index(v) >= 0 }

// Items returns a copy of the current elements.
func (l *List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Dirty combines the list's own flag with the dirtiness of any trackable
// element. The element scan runs on every call so the answer always reflects
// current child state.
func (l *List[T]) Dirty() bool {
	if l.Record.Dirty() {
		return true
	}
	for _, it := range l.items {
		if t, ok := any(it).(Trackable); ok && t.Dirty() {
			return true
		}
	}
	return false
}

// MarkClean clears the list's flag and recursively cleans trackable elements.
func (l *List[T]) MarkClean() {
	l.Record.MarkClean()
	for _, it := range l.items {
		if t, ok := any(it).(Trackable); ok {
			t.MarkClean()
		}
	}
}

// MarshalJSON encodes the list as a bare array; tracking state is never
// persisted.
func (l *List[T]) MarshalJSON() ([]byte, error) {
	if l.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.items)
}

// UnmarshalJSON decodes a bare array into the list, leaving it clean.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	l.items = nil
	return json.Unmarshal(data, &l.items)
}

// MarshalYAML encodes the list as a bare sequence.
func (l *List[T]) MarshalYAML() (any, error) {
	if l.items == nil {
		return []T{}, nil
	}
	return l.items, nil
}

// UnmarshalYAML decodes a bare sequence into the list, leaving it clean.
func (l *List[T]) UnmarshalYAML(value *yaml.Node) error {
	l.items = nil
	return value.Decode(&l.items)
}
