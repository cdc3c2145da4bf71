// Package editbuf provides isolated edit sessions over a committed entity
// subtree. A session owns a deep, structurally independent copy, so
// in-progress edits can never corrupt the committed tree if abandoned.
package editbuf

import (
	"reflect"

	clone "github.com/huandu/go-clone"
)

// deepCopy makes a recursive value copy of the entity tree.
func deepCopy[T any](v T) T {
	return clone.Clone(v).(T)
}

// Session wraps one editing session over a subtree of type T.
//
// The editing flag is the session-scoped replacement for the old transient
// isEditable field: it never lives on the entity itself and is therefore
// impossible to serialize into a payload.
type Session[T any] struct {
	original T
	buffer   *T
	editing  bool
}

// Begin snapshots committed and opens a session whose buffer is a second,
// independent deep copy.
func Begin[T any](committed T) *Session[T] {
	buf := deepCopy(committed)
	return &Session[T]{
		original: deepCopy(committed),
		buffer:   &buf,
		editing:  true,
	}
}

// Buffer returns the mutable working copy, or nil after Discard.
func (s *Session[T]) Buffer() *T {
	return s.buffer
}

// Original returns a copy of the snapshot captured at Begin.
func (s *Session[T]) Original() T {
	return deepCopy(s.original)
}

// IsDirty reports whether the buffer differs structurally from the snapshot
// captured at Begin. Used to short-circuit saves that changed nothing.
func (s *Session[T]) IsDirty() bool {
	if s.buffer == nil {
		return false
	}
	return !reflect.DeepEqual(s.original, *s.buffer)
}

// Reset restores the whole buffer from the original snapshot.
func (s *Session[T]) Reset() {
	if s.buffer == nil {
		return
	}
	*s.buffer = deepCopy(s.original)
}

// Restore lets the caller copy selected fields back from the original
// snapshot into the buffer, for per-field reset without losing other edits.
func (s *Session[T]) Restore(apply func(original T, buffer *T)) {
	if s.buffer == nil {
		return
	}
	apply(deepCopy(s.original), s.buffer)
}

// Discard drops the buffer. The committed tree is untouched by definition;
// the session holds only copies.
func (s *Session[T]) Discard() {
	s.buffer = nil
	s.editing = false
}

// Editing reports whether the session is still open for edits.
func (s *Session[T]) Editing() bool {
	return s.editing
}

// Close marks the session as no longer editing, keeping the buffer
// readable. The commit coordinator calls this after a successful save.
func (s *Session[T]) Close() {
	s.editing = false
}

// Rebase replaces the original snapshot with the given committed state,
// typically the post-save merge result, and resets the buffer to match.
func (s *Session[T]) Rebase(committed T) {
	s.original = deepCopy(committed)
	if s.buffer != nil {
		*s.buffer = deepCopy(committed)
	}
}
