package mbracket

import (
	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mcard"
)

// Bracket is an ordered sub-grouping of battle Cards within a battles
// Section, e.g. "Prelims" or "Top 8". Label is free text.
type Bracket struct {
	ID    idwrap.ID
	Label string
	Order int
	Cards []mcard.Card
}

// ScalarFields returns the persisted scalar fields.
func (b Bracket) ScalarFields() map[string]any {
	return map[string]any{
		"label": b.Label,
		"order": b.Order,
	}
}

// ScalarEqual compares persisted scalars excluding Order; the Cards list is
// reconciled separately and index shifts belong to Reorder Repair.
func ScalarEqual(old, new Bracket) bool {
	return old.Label == new.Label
}
