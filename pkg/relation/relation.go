// Package relation applies the per-relationship policies on top of the
// generic set reconciler: exclusive ownership for structural children,
// wholesale replacement for role edges, and incremental upsert-by-name for
// style tags.
package relation

import (
	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mperson"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mstyle"
	"github.com/BenTheChi/dance-chives-sub002/pkg/orderfix"
	"github.com/BenTheChi/dance-chives-sub002/pkg/reconcile"
)

// ChildPlan is the exclusive-child resolution for one sibling collection.
//
// CreateIdx indexes into the edited slice (post order repair) so the caller
// can bind correlation refs to the actual buffer slots. Delete carries the
// confirmed items whose subtrees must be removed cascading. OrderFix lists
// persisted survivors whose only change is their order index; survivors
// with scalar changes appear in Update instead, their repaired order riding
// along in the same update.
type ChildPlan[T any] struct {
	CreateIdx []int
	Update    []reconcile.Pair[T]
	Delete    []T
	OrderFix  []orderfix.Update
}

// IsEmpty reports whether the collection needs no structural work.
func (p ChildPlan[T]) IsEmpty() bool {
	return len(p.CreateIdx) == 0 && len(p.Update) == 0 && len(p.Delete) == 0 && len(p.OrderFix) == 0
}

// Children resolves an exclusively-owned ordered sibling collection.
// It first repairs order indices on the edited slice in place (stable by
// previous order), then reconciles by uuid against the confirmed slice.
func Children[T any](old, new []T, acc orderfix.Accessor[T], scalarEqual func(old, new T) bool) ChildPlan[T] {
	fixes := orderfix.Repair(new, acc)

	key := func(item T) (idwrap.ID, bool) {
		id := acc.ID(item)
		return id, !id.IsZero()
	}
	res := reconcile.Keyed(old, new, key, scalarEqual)

	oldByKey := make(map[idwrap.ID]struct{}, len(old))
	for _, item := range old {
		if id := acc.ID(item); !id.IsZero() {
			oldByKey[id] = struct{}{}
		}
	}

	plan := ChildPlan[T]{Update: res.ToUpdate, Delete: res.ToDelete}

	for i := range new {
		id := acc.ID(new[i])
		if id.IsZero() {
			plan.CreateIdx = append(plan.CreateIdx, i)
			continue
		}
		if _, known := oldByKey[id]; !known {
			plan.CreateIdx = append(plan.CreateIdx, i)
		}
	}

	// An order shift on a scalar-updated sibling rides along in its update.
	updated := make(map[idwrap.ID]struct{}, len(res.ToUpdate))
	for _, pair := range res.ToUpdate {
		updated[acc.ID(pair.New)] = struct{}{}
	}
	for _, fix := range fixes {
		if _, ok := updated[fix.ID]; ok {
			continue
		}
		plan.OrderFix = append(plan.OrderFix, fix)
	}

	return plan
}

// RoleReplacement is one wholesale role-set replacement: disconnect every
// edge of the role, then connect the full new member set.
type RoleReplacement struct {
	Role      mperson.Role
	Usernames []string
}

// ReplaceRoles implements the role-edge policy. It is deliberately not an
// incremental diff: role sets are small and the wholesale form eliminates
// id-correlation bugs for this relationship kind. Every role set the saved
// entity carries produces exactly one replacement.
func ReplaceRoles(sets []mperson.RoleSet) []RoleReplacement {
	var out []RoleReplacement
	for _, s := range sets {
		out = append(out, RoleReplacement{Role: s.Role, Usernames: mperson.Usernames(s.Members)})
	}
	return out
}

// StylePlan is the incremental style-tag resolution for one owner.
type StylePlan struct {
	Connect    []string // connect-or-create by name
	Disconnect []string // edge retraction by name
}

func (p StylePlan) IsEmpty() bool {
	return len(p.Connect) == 0 && len(p.Disconnect) == 0
}

// UpsertStyles reconciles style sets keyed by natural name. Unchanged
// styles produce no operation at all; connect-or-create must never be
// asked to recreate an already-attached name.
func UpsertStyles(old, new []mstyle.Style) StylePlan {
	key := func(s mstyle.Style) (string, bool) { return s.Name, true }
	equal := func(_, _ mstyle.Style) bool { return true } // styles have no mutable fields

	res := reconcile.Keyed(old, new, key, equal)

	return StylePlan{
		Connect:    mstyle.Names(res.ToCreate),
		Disconnect: mstyle.Names(res.ToDelete),
	}
}
