package commit

import (
	clone "github.com/huandu/go-clone"

	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mbracket"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mcard"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mevent"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mperson"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/msection"
	"github.com/BenTheChi/dance-chives-sub002/pkg/mutation"
)

func deepCopyEvent(e mevent.Event) mevent.Event {
	return clone.Clone(e).(mevent.Event)
}

func deepCopySection(s msection.Section) msection.Section {
	return clone.Clone(s).(msection.Section)
}

func deepCopyCard(c mcard.Card) mcard.Card {
	return clone.Clone(c).(mcard.Card)
}

// failureIndex buckets failed operations by the aspect they touched so the
// merge step can keep that aspect at its confirmed value.
type failureIndex struct {
	scalar map[idwrap.ID]bool
	del    map[idwrap.ID]bool
	roles  map[idwrap.ID]map[string]bool
	styles map[idwrap.ID]bool
}

func indexFailures(failures []OpFailure) *failureIndex {
	fi := &failureIndex{
		scalar: make(map[idwrap.ID]bool),
		del:    make(map[idwrap.ID]bool),
		roles:  make(map[idwrap.ID]map[string]bool),
		styles: make(map[idwrap.ID]bool),
	}
	for _, f := range failures {
		id := f.Op.Target.ID
		switch f.Op.Kind {
		case mutation.OpUpdateScalarFields:
			fi.scalar[id] = true
		case mutation.OpDeleteCascading:
			fi.del[id] = true
		case mutation.OpDisconnectAll, mutation.OpConnectExisting:
			if fi.roles[id] == nil {
				fi.roles[id] = make(map[string]bool)
			}
			fi.roles[id][f.Op.Role] = true
		case mutation.OpConnectOrCreate, mutation.OpDisconnectByKey:
			fi.styles[id] = true
		case mutation.OpCreateWithNested:
			// Failed creates leave their buffer slots zero-ID; pruning
			// removes them from the merged tree.
		}
	}
	return fi
}

// oldIndex locates confirmed entities and their parents for restoration.
type oldIndex struct {
	sections      map[idwrap.ID]*msection.Section
	brackets      map[idwrap.ID]*mbracket.Bracket
	cards         map[idwrap.ID]*mcard.Card
	bracketOwner  map[idwrap.ID]idwrap.ID // bracket id -> section id
	cardInSection map[idwrap.ID]idwrap.ID // card id -> section id
	cardInBracket map[idwrap.ID]idwrap.ID // card id -> bracket id
}

func indexOld(old *mevent.Event) *oldIndex {
	ix := &oldIndex{
		sections:      make(map[idwrap.ID]*msection.Section),
		brackets:      make(map[idwrap.ID]*mbracket.Bracket),
		cards:         make(map[idwrap.ID]*mcard.Card),
		bracketOwner:  make(map[idwrap.ID]idwrap.ID),
		cardInSection: make(map[idwrap.ID]idwrap.ID),
		cardInBracket: make(map[idwrap.ID]idwrap.ID),
	}
	for i := range old.Sections {
		sec := &old.Sections[i]
		ix.sections[sec.ID] = sec
		for j := range sec.Brackets {
			br := &sec.Brackets[j]
			ix.brackets[br.ID] = br
			ix.bracketOwner[br.ID] = sec.ID
			for k := range br.Cards {
				ix.cards[br.Cards[k].ID] = &br.Cards[k]
				ix.cardInBracket[br.Cards[k].ID] = br.ID
			}
		}
		for j := range sec.Cards {
			ix.cards[sec.Cards[j].ID] = &sec.Cards[j]
			ix.cardInSection[sec.Cards[j].ID] = sec.ID
		}
	}
	return ix
}

func pruneUnpersisted(e *mevent.Event) {
	sections := e.Sections[:0]
	for _, sec := range e.Sections {
		if sec.ID.IsZero() {
			continue
		}
		brackets := sec.Brackets[:0]
		for _, br := range sec.Brackets {
			if br.ID.IsZero() {
				continue
			}
			cards := br.Cards[:0]
			for _, card := range br.Cards {
				if !card.ID.IsZero() {
					cards = append(cards, card)
				}
			}
			br.Cards = cards
			brackets = append(brackets, br)
		}
		sec.Brackets = brackets
		cards := sec.Cards[:0]
		for _, card := range sec.Cards {
			if !card.ID.IsZero() {
				cards = append(cards, card)
			}
		}
		sec.Cards = cards
		sections = append(sections, sec)
	}
	e.Sections = sections
}

func restoreCardAspects(merged *mcard.Card, old *mcard.Card, fi *failureIndex) {
	if fi.scalar[merged.ID] {
		merged.Title = old.Title
		merged.Order = old.Order
		merged.VideoSrc = old.VideoSrc
		merged.Image = old.Image
		merged.Date = old.Date
		merged.Address = old.Address
		merged.Cost = old.Cost
		merged.RecapSrc = old.RecapSrc
	}
	for role := range fi.roles[merged.ID] {
		switch mperson.Role(role) {
		case mperson.RoleDancer:
			merged.Dancers = old.Dancers
		case mperson.RoleWinner:
			merged.Winners = old.Winners
		case mperson.RoleTeacher:
			merged.Teachers = old.Teachers
		case mperson.RoleDJ:
			merged.DJs = old.DJs
		}
	}
	if fi.styles[merged.ID] {
		merged.Styles = old.Styles
	}
}

// mergeCommitted produces the post-save committed tree: the buffer with
// every failed aspect held back at its confirmed value. Successes are kept;
// nothing is silently rolled back.
func mergeCommitted(old *mevent.Event, buf *mevent.Event, failures []OpFailure) *mevent.Event {
	merged := deepCopyEvent(*buf)
	fi := indexFailures(failures)
	ix := indexOld(old)

	pruneUnpersisted(&merged)

	if fi.scalar[merged.ID] {
		merged.Title = old.Title
		merged.Date = old.Date
		merged.Address = old.Address
		merged.Cost = old.Cost
		merged.Description = old.Description
		merged.ImageURL = old.ImageURL
		merged.PromoVideoURL = old.PromoVideoURL
	}
	if fi.roles[merged.ID][mperson.RoleOrganizer.String()] {
		merged.Organizers = old.Organizers
	}

	for i := range merged.Sections {
		sec := &merged.Sections[i]
		oldSec := ix.sections[sec.ID]
		if oldSec != nil {
			if fi.scalar[sec.ID] {
				sec.Kind = oldSec.Kind
				sec.Format = oldSec.Format
				sec.Order = oldSec.Order
			}
			if fi.roles[sec.ID][mperson.RoleJudge.String()] {
				sec.Judges = oldSec.Judges
			}
			if fi.styles[sec.ID] {
				sec.Styles = oldSec.Styles
			}
		}
		for j := range sec.Brackets {
			br := &sec.Brackets[j]
			if oldBr := ix.brackets[br.ID]; oldBr != nil && fi.scalar[br.ID] {
				br.Label = oldBr.Label
				br.Order = oldBr.Order
			}
			for k := range br.Cards {
				if oldCard := ix.cards[br.Cards[k].ID]; oldCard != nil {
					restoreCardAspects(&br.Cards[k], oldCard, fi)
				}
			}
		}
		for j := range sec.Cards {
			if oldCard := ix.cards[sec.Cards[j].ID]; oldCard != nil {
				restoreCardAspects(&sec.Cards[j], oldCard, fi)
			}
		}
	}

	// Entities whose delete failed still exist remotely: reinsert their
	// confirmed subtree wherever the parent survived.
	for id := range fi.del {
		if oldSec, ok := ix.sections[id]; ok {
			merged.Sections = append(merged.Sections, clone.Clone(*oldSec).(msection.Section))
			continue
		}
		if oldBr, ok := ix.brackets[id]; ok {
			if sec := merged.FindSection(ix.bracketOwner[id]); sec != nil {
				sec.Brackets = append(sec.Brackets, clone.Clone(*oldBr).(mbracket.Bracket))
			}
			continue
		}
		if oldCard, ok := ix.cards[id]; ok {
			restored := clone.Clone(*oldCard).(mcard.Card)
			if secID, ok := ix.cardInSection[id]; ok {
				if sec := merged.FindSection(secID); sec != nil {
					sec.Cards = append(sec.Cards, restored)
				}
				continue
			}
			if brID, ok := ix.cardInBracket[id]; ok {
				for i := range merged.Sections {
					for j := range merged.Sections[i].Brackets {
						if merged.Sections[i].Brackets[j].ID == brID {
							merged.Sections[i].Brackets[j].Cards = append(merged.Sections[i].Brackets[j].Cards, restored)
						}
					}
				}
			}
		}
	}

	return &merged
}
