package msection

import (
	"fmt"

	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mbracket"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mcard"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mperson"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mstyle"
)

// Kind discriminates the Section union.
type Kind int32

const (
	KindUnspecified Kind = iota
	KindBattles
	KindWorkshops
	KindParties
	KindPerformances
)

func (k Kind) String() string {
	switch k {
	case KindBattles:
		return "battles"
	case KindWorkshops:
		return "workshops"
	case KindParties:
		return "parties"
	case KindPerformances:
		return "performances"
	default:
		return "unspecified"
	}
}

// ParseKind maps a persisted kind string back to its enum value.
func ParseKind(s string) Kind {
	switch s {
	case "battles":
		return KindBattles
	case "workshops":
		return KindWorkshops
	case "parties":
		return KindParties
	case "performances":
		return KindPerformances
	default:
		return KindUnspecified
	}
}

// Section is a typed sub-division of an Event.
//
// The battles variant carries Format, Styles, Judges and an ordered Bracket
// list; every other variant carries a flat ordered Card list and leaves the
// battles-only fields zero.
type Section struct {
	ID    idwrap.ID
	Order int
	Kind  Kind

	Format   string
	Styles   []mstyle.Style
	Judges   []mperson.Person
	Brackets []mbracket.Bracket

	Cards []mcard.Card
}

// CardKind returns the Card variant this section's cards must carry.
func (s Section) CardKind() mcard.Kind {
	switch s.Kind {
	case KindBattles:
		return mcard.KindBattle
	case KindWorkshops:
		return mcard.KindWorkshop
	case KindParties:
		return mcard.KindParty
	case KindPerformances:
		return mcard.KindPerformance
	default:
		return mcard.KindUnspecified
	}
}

// ScalarFields returns the persisted scalar fields for this variant.
func (s Section) ScalarFields() map[string]any {
	fields := map[string]any{
		"kind":  s.Kind.String(),
		"order": s.Order,
	}
	if s.Kind == KindBattles {
		fields["format"] = s.Format
	}
	return fields
}

// ScalarEqual compares persisted scalars excluding Order, which belongs to
// Reorder Repair.
func ScalarEqual(old, new Section) bool {
	return old.Kind == new.Kind && old.Format == new.Format
}

// CardDisposition states what the user decided to do with existing Cards
// when switching a Section's kind. Switching kinds invalidates the typed
// Cards underneath, so the caller must choose explicitly.
type CardDisposition int32

const (
	DispositionUnspecified CardDisposition = iota
	// DispositionDeleteCards drops every Card (and Bracket) under the
	// section as part of the switch.
	DispositionDeleteCards
)

// ChangeKind switches the section's kind in place. If the section still
// holds Cards or Brackets, the caller must pass DispositionDeleteCards;
// there is no silent coercion of typed Cards across kinds.
func (s *Section) ChangeKind(to Kind, disposition CardDisposition) error {
	if to == KindUnspecified {
		return fmt.Errorf("msection: cannot switch to unspecified kind")
	}
	if to == s.Kind {
		return nil
	}
	hasContent := len(s.Cards) > 0 || len(s.Brackets) > 0
	if hasContent && disposition != DispositionDeleteCards {
		return fmt.Errorf("msection: switching %s to %s requires an explicit card disposition", s.Kind, to)
	}
	s.Kind = to
	s.Cards = nil
	s.Brackets = nil
	if to != KindBattles {
		s.Format = ""
		s.Styles = nil
		s.Judges = nil
	}
	return nil
}

// Validate checks variant shape: battles-only fields on non-battles
// sections, card kinds mismatching the section kind, brackets outside
// battles.
func (s Section) Validate() error {
	if s.Kind == KindUnspecified {
		return fmt.Errorf("msection: section kind is required")
	}
	if s.Kind != KindBattles {
		if len(s.Brackets) > 0 {
			return fmt.Errorf("msection: %s section cannot hold brackets", s.Kind)
		}
		if s.Format != "" || len(s.Styles) > 0 || len(s.Judges) > 0 {
			return fmt.Errorf("msection: %s section cannot carry battles-only fields", s.Kind)
		}
	}
	want := s.CardKind()
	for _, c := range s.Cards {
		if c.Kind != want {
			return fmt.Errorf("msection: card %q kind %s does not match section kind %s", c.Title, c.Kind, s.Kind)
		}
	}
	for _, b := range s.Brackets {
		for _, c := range b.Cards {
			if c.Kind != mcard.KindBattle {
				return fmt.Errorf("msection: bracket %q card %q must be a battle card", b.Label, c.Title)
			}
		}
	}
	return nil
}
