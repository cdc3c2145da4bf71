package commit

import (
	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mbracket"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mcard"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mevent"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mperson"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/msection"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mstyle"
	"github.com/BenTheChi/dance-chives-sub002/pkg/mutation"
	"github.com/BenTheChi/dance-chives-sub002/pkg/orderfix"
	"github.com/BenTheChi/dance-chives-sub002/pkg/relation"
)

// opSet accumulates the operations of one save in dependency tiers:
// structural deletes, creates under already-persisted parents, scalar
// updates plus edge retractions, then edge connections. Tiers run
// sequentially; operations within a tier are mutually independent. Creates
// of children under a parent being created ride inside the parent's nested
// create node, so no cross-operation id dependency exists within a tier.
type opSet struct {
	deletes  []mutation.Op
	creates  []mutation.Op
	updates  []mutation.Op
	connects []mutation.Op
}

func (s *opSet) tiers() [][]mutation.Op {
	var tiers [][]mutation.Op
	for _, t := range [][]mutation.Op{s.deletes, s.creates, s.updates, s.connects} {
		if len(t) > 0 {
			tiers = append(tiers, t)
		}
	}
	return tiers
}

func (s *opSet) empty() bool {
	return len(s.deletes) == 0 && len(s.creates) == 0 && len(s.updates) == 0 && len(s.connects) == 0
}

// plan is the dispatchable form of one save.
type plan struct {
	tiers [][]mutation.Op
	refs  *mutation.RefTable
}

func (p *plan) empty() bool {
	return len(p.tiers) == 0
}

var sectionAcc = orderfix.Accessor[msection.Section]{
	ID:       func(s msection.Section) idwrap.ID { return s.ID },
	Order:    func(s msection.Section) int { return s.Order },
	SetOrder: func(s *msection.Section, o int) { s.Order = o },
}

var bracketAcc = orderfix.Accessor[mbracket.Bracket]{
	ID:       func(b mbracket.Bracket) idwrap.ID { return b.ID },
	Order:    func(b mbracket.Bracket) int { return b.Order },
	SetOrder: func(b *mbracket.Bracket, o int) { b.Order = o },
}

var cardAcc = orderfix.Accessor[mcard.Card]{
	ID:       func(c mcard.Card) idwrap.ID { return c.ID },
	Order:    func(c mcard.Card) int { return c.Order },
	SetOrder: func(c *mcard.Card, o int) { c.Order = o },
}

// roleOps emits the wholesale replacement for every role set whose member
// set changed: one disconnect-all followed by one connect of the full new
// set. Member-level add/remove diffs are never computed.
func roleOps(set *opSet, entity mutation.EntityType, owner idwrap.ID, old, new []mperson.RoleSet) {
	oldByRole := make(map[mperson.Role][]mperson.Person, len(old))
	for _, s := range old {
		oldByRole[s.Role] = s.Members
	}
	for _, rep := range relation.ReplaceRoles(new) {
		prev := oldByRole[rep.Role]
		var members []mperson.Person
		for _, s := range new {
			if s.Role == rep.Role {
				members = s.Members
			}
		}
		if mperson.SameSet(prev, members) {
			continue
		}
		set.updates = append(set.updates, mutation.DisconnectAll(entity, owner, rep.Role))
		if len(rep.Usernames) > 0 {
			set.connects = append(set.connects, mutation.ConnectExisting(entity, owner, rep.Role, rep.Usernames))
		}
	}
}

// styleOps emits the incremental style-edge changes for one owner.
func styleOps(set *opSet, entity mutation.EntityType, owner idwrap.ID, old, new []mstyle.Style) {
	sp := relation.UpsertStyles(old, new)
	if len(sp.Disconnect) > 0 {
		set.updates = append(set.updates, mutation.DisconnectByKey(entity, owner, sp.Disconnect))
	}
	if len(sp.Connect) > 0 {
		set.connects = append(set.connects, mutation.ConnectOrCreate(entity, owner, sp.Connect))
	}
}

// cardOps emits the scalar and edge work for one surviving card.
func cardOps(set *opSet, old, new *mcard.Card) {
	if !mcard.ScalarEqual(*old, *new) {
		set.updates = append(set.updates, mutation.ScalarUpdate(mutation.EntityCard, new.ID, new.ScalarFields()))
	}
	roleOps(set, mutation.EntityCard, new.ID, old.RoleSets(), new.RoleSets())
	styleOps(set, mutation.EntityCard, new.ID, old.Styles, new.Styles)
}

// cardListOps reconciles one ordered card collection under a persisted
// parent.
func cardListOps(set *opSet, parentEntity mutation.EntityType, parentID idwrap.ID, old, new []mcard.Card, refs *mutation.RefTable) {
	cp := relation.Children(old, new, cardAcc, mcard.ScalarEqual)

	for _, d := range cp.Delete {
		set.deletes = append(set.deletes, mutation.DeleteCascading(mutation.EntityCard, d.ID))
	}
	for _, i := range cp.CreateIdx {
		set.creates = append(set.creates, mutation.ChildCreate(parentEntity, parentID, mutation.CardNode(&new[i], refs)))
	}
	for _, fix := range cp.OrderFix {
		set.updates = append(set.updates, mutation.ScalarUpdate(mutation.EntityCard, fix.ID, map[string]any{"order": fix.NewOrder}))
	}

	oldByID := make(map[idwrap.ID]*mcard.Card, len(old))
	for i := range old {
		oldByID[old[i].ID] = &old[i]
	}
	for i := range new {
		if new[i].ID.IsZero() {
			continue
		}
		if prev, ok := oldByID[new[i].ID]; ok {
			cardOps(set, prev, &new[i])
		}
	}
}

// bracketListOps reconciles the bracket collection of a battles section.
func bracketListOps(set *opSet, sectionID idwrap.ID, old, new []mbracket.Bracket, refs *mutation.RefTable) {
	bp := relation.Children(old, new, bracketAcc, mbracket.ScalarEqual)

	for _, d := range bp.Delete {
		set.deletes = append(set.deletes, mutation.DeleteCascading(mutation.EntityBracket, d.ID))
	}
	for _, i := range bp.CreateIdx {
		set.creates = append(set.creates, mutation.ChildCreate(mutation.EntitySection, sectionID, mutation.BracketNode(&new[i], refs)))
	}
	for _, fix := range bp.OrderFix {
		set.updates = append(set.updates, mutation.ScalarUpdate(mutation.EntityBracket, fix.ID, map[string]any{"order": fix.NewOrder}))
	}

	oldByID := make(map[idwrap.ID]*mbracket.Bracket, len(old))
	for i := range old {
		oldByID[old[i].ID] = &old[i]
	}
	for i := range new {
		if new[i].ID.IsZero() {
			continue
		}
		prev, ok := oldByID[new[i].ID]
		if !ok {
			continue
		}
		if !mbracket.ScalarEqual(*prev, new[i]) {
			set.updates = append(set.updates, mutation.ScalarUpdate(mutation.EntityBracket, new[i].ID, new[i].ScalarFields()))
		}
		// Card orders inside a surviving bracket are untouched by sibling
		// bracket deletion; they reconcile independently here.
		cardListOps(set, mutation.EntityBracket, new[i].ID, prev.Cards, new[i].Cards, refs)
	}
}

// sectionOps emits the work for one surviving section and its subtree.
func sectionOps(set *opSet, old, new *msection.Section, refs *mutation.RefTable) {
	if !msection.ScalarEqual(*old, *new) {
		set.updates = append(set.updates, mutation.ScalarUpdate(mutation.EntitySection, new.ID, new.ScalarFields()))
	}

	roleOps(set, mutation.EntitySection, new.ID,
		[]mperson.RoleSet{{Role: mperson.RoleJudge, Members: old.Judges}},
		[]mperson.RoleSet{{Role: mperson.RoleJudge, Members: new.Judges}})
	styleOps(set, mutation.EntitySection, new.ID, old.Styles, new.Styles)

	// Both collections reconcile unconditionally so a kind switch (with its
	// explicit card disposition already applied to the buffer) turns into
	// plain deletes of the stale typed children.
	bracketListOps(set, new.ID, old.Brackets, new.Brackets, refs)
	cardListOps(set, mutation.EntitySection, new.ID, old.Cards, new.Cards, refs)
}

// buildEventPlan diffs the whole edited aggregate against the confirmed
// one. A brand-new event collapses into a single nested create.
func buildEventPlan(old, new *mevent.Event, refs *mutation.RefTable) *plan {
	if new.ID.IsZero() {
		op := mutation.EventCreate(new, refs)
		return &plan{tiers: [][]mutation.Op{{op}}, refs: refs}
	}

	set := &opSet{}

	if !mevent.ScalarEqual(*old, *new) {
		set.updates = append(set.updates, mutation.ScalarUpdate(mutation.EntityEvent, new.ID, new.ScalarFields()))
	}
	roleOps(set, mutation.EntityEvent, new.ID,
		[]mperson.RoleSet{{Role: mperson.RoleOrganizer, Members: old.Organizers}},
		[]mperson.RoleSet{{Role: mperson.RoleOrganizer, Members: new.Organizers}})

	sp := relation.Children(old.Sections, new.Sections, sectionAcc, msection.ScalarEqual)
	for _, d := range sp.Delete {
		set.deletes = append(set.deletes, mutation.DeleteCascading(mutation.EntitySection, d.ID))
	}
	for _, i := range sp.CreateIdx {
		set.creates = append(set.creates, mutation.ChildCreate(mutation.EntityEvent, new.ID, mutation.SectionNode(&new.Sections[i], refs)))
	}
	for _, fix := range sp.OrderFix {
		set.updates = append(set.updates, mutation.ScalarUpdate(mutation.EntitySection, fix.ID, map[string]any{"order": fix.NewOrder}))
	}

	oldByID := make(map[idwrap.ID]*msection.Section, len(old.Sections))
	for i := range old.Sections {
		oldByID[old.Sections[i].ID] = &old.Sections[i]
	}
	for i := range new.Sections {
		if new.Sections[i].ID.IsZero() {
			continue
		}
		if prev, ok := oldByID[new.Sections[i].ID]; ok {
			sectionOps(set, prev, &new.Sections[i], refs)
		}
	}

	return &plan{tiers: set.tiers(), refs: refs}
}
