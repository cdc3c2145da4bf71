// Package orderfix restores contiguous zero-based order indices in a
// sibling collection after structural deletion, reporting which survivors
// actually moved.
package orderfix

import (
	"sort"

	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
)

// Update records one surviving sibling whose order index changed.
type Update struct {
	ID       idwrap.ID
	OldOrder int
	NewOrder int
}

// Accessor adapts a concrete sibling type for repair.
type Accessor[T any] struct {
	ID       func(T) idwrap.ID
	Order    func(T) int
	SetOrder func(*T, int)
}

// Repair sorts items stably by their previous order, reassigns 0..n-1 in
// place, and returns an Update for every sibling whose index shifted.
// Relative order is always preserved; untouched siblings produce no update.
//
// Updates for not-yet-persisted siblings (zero ID) are omitted from the
// returned slice since their order travels inside their create payload, but
// their in-place order field is still repaired.
func Repair[T any](items []T, acc Accessor[T]) []Update {
	if len(items) == 0 {
		return nil
	}

	sort.SliceStable(items, func(i, j int) bool {
		return acc.Order(items[i]) < acc.Order(items[j])
	})

	var updates []Update
	for i := range items {
		old := acc.Order(items[i])
		if old == i {
			continue
		}
		acc.SetOrder(&items[i], i)
		if id := acc.ID(items[i]); !id.IsZero() {
			updates = append(updates, Update{ID: id, OldOrder: old, NewOrder: i})
		}
	}
	return updates
}
