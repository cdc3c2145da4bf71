// Package reconcile computes create/update/delete partitions between two
// keyed sibling collections. Matching is by stable key only, never by array
// position, so reordered or interleaved inputs cannot misclassify an item.
package reconcile

// Pair holds the confirmed and edited versions of one surviving item.
type Pair[T any] struct {
	Old T
	New T
}

// Result partitions the edited collection against the confirmed one.
// The three sets are disjoint: every edited item lands in exactly one of
// ToCreate or ToUpdate or is untouched, and ToDelete holds confirmed items
// whose key no longer appears.
type Result[T any] struct {
	ToCreate []T
	ToUpdate []Pair[T]
	ToDelete []T
}

// IsEmpty reports whether reconciliation found no work.
func (r Result[T]) IsEmpty() bool {
	return len(r.ToCreate) == 0 && len(r.ToUpdate) == 0 && len(r.ToDelete) == 0
}

// Keyed reconciles old (last confirmed state) against new (edited state).
//
// key returns an item's stable key and whether the item has one; items
// without a key are local creations and always land in ToCreate. old is the
// confirmed state and may not contain unkeyed items; any that appear are
// skipped. equal compares only the fields the caller cares about, so
// transient state never triggers a spurious update.
//
// Input order is preserved in every output slice. O(len(old)+len(new)).
func Keyed[T any, K comparable](old, new []T, key func(T) (K, bool), equal func(old, new T) bool) Result[T] {
	oldByKey := make(map[K]T, len(old))
	for _, item := range old {
		k, ok := key(item)
		if !ok {
			continue
		}
		oldByKey[k] = item
	}

	newKeys := make(map[K]struct{}, len(new))
	var result Result[T]

	for _, item := range new {
		k, ok := key(item)
		if !ok {
			result.ToCreate = append(result.ToCreate, item)
			continue
		}
		newKeys[k] = struct{}{}
		prev, exists := oldByKey[k]
		if !exists {
			result.ToCreate = append(result.ToCreate, item)
			continue
		}
		if !equal(prev, item) {
			result.ToUpdate = append(result.ToUpdate, Pair[T]{Old: prev, New: item})
		}
	}

	for _, item := range old {
		k, ok := key(item)
		if !ok {
			continue
		}
		if _, survived := newKeys[k]; !survived {
			result.ToDelete = append(result.ToDelete, item)
		}
	}

	return result
}
