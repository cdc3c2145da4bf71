package mcard

import (
	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mperson"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mstyle"
)

// Kind discriminates the Card union. A Card's kind always matches the kind
// of its owning Section (or of its Bracket's owning Section).
type Kind int32

const (
	KindUnspecified Kind = iota
	KindBattle
	KindWorkshop
	KindParty
	KindPerformance
)

func (k Kind) String() string {
	switch k {
	case KindBattle:
		return "battle"
	case KindWorkshop:
		return "workshop"
	case KindParty:
		return "party"
	case KindPerformance:
		return "performance"
	default:
		return "unspecified"
	}
}

// Card is the leaf content unit. It is a tagged union over Kind; fields not
// listed for a variant stay zero and are never persisted for it.
//
//	battle:      Title, VideoSrc, Dancers, Winners
//	workshop:    Title, Image, Date, Address, Cost, Styles, Teachers, RecapSrc
//	party:       Title, Image, Date, Address, Cost, DJs
//	performance: Title, VideoSrc, Dancers
//
// Transient edit-session state (the old isEditable flag) lives in the edit
// session wrapper, not here, so it can never leak into a payload.
type Card struct {
	ID    idwrap.ID
	Order int
	Kind  Kind

	Title    string
	VideoSrc string
	Image    string
	Date     string
	Address  string
	Cost     string
	RecapSrc string

	Dancers  []mperson.Person
	Winners  []mperson.Person
	Teachers []mperson.Person
	DJs      []mperson.Person
	Styles   []mstyle.Style
}

// RoleSets returns every role edge set this variant carries, in a stable
// order. Variants without a given role omit it entirely.
func (c Card) RoleSets() []mperson.RoleSet {
	switch c.Kind {
	case KindBattle:
		return []mperson.RoleSet{
			{Role: mperson.RoleDancer, Members: c.Dancers},
			{Role: mperson.RoleWinner, Members: c.Winners},
		}
	case KindWorkshop:
		return []mperson.RoleSet{{Role: mperson.RoleTeacher, Members: c.Teachers}}
	case KindParty:
		return []mperson.RoleSet{{Role: mperson.RoleDJ, Members: c.DJs}}
	case KindPerformance:
		return []mperson.RoleSet{{Role: mperson.RoleDancer, Members: c.Dancers}}
	default:
		return nil
	}
}

// ScalarFields returns the persisted scalar fields for this variant.
// Order is included: an index shift is an ordinary scalar update.
func (c Card) ScalarFields() map[string]any {
	fields := map[string]any{
		"title": c.Title,
		"order": c.Order,
	}
	switch c.Kind {
	case KindBattle, KindPerformance:
		fields["videoSrc"] = c.VideoSrc
	case KindWorkshop:
		fields["image"] = c.Image
		fields["date"] = c.Date
		fields["address"] = c.Address
		fields["cost"] = c.Cost
		fields["recapSrc"] = c.RecapSrc
	case KindParty:
		fields["image"] = c.Image
		fields["date"] = c.Date
		fields["address"] = c.Address
		fields["cost"] = c.Cost
	}
	return fields
}

// ScalarEqual compares only the persisted scalar fields of two cards of the
// same kind, excluding Order: index shifts are the Reorder Repair layer's
// concern. Relationship sets and session state never factor in here.
func ScalarEqual(old, new Card) bool {
	if old.Kind != new.Kind {
		return false
	}
	return old.Title == new.Title &&
		old.VideoSrc == new.VideoSrc &&
		old.Image == new.Image &&
		old.Date == new.Date &&
		old.Address == new.Address &&
		old.Cost == new.Cost &&
		old.RecapSrc == new.RecapSrc
}
