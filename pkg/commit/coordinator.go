// Package commit orchestrates saves: it diffs an edit buffer against the
// committed tree, builds transport payloads in dependency order, dispatches
// them, and merges confirmed results back only as far as they succeeded.
package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mcard"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mevent"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/msection"
	"github.com/BenTheChi/dance-chives-sub002/pkg/mutation"
	"github.com/BenTheChi/dance-chives-sub002/pkg/transport"
)

// ErrSaveInFlight is returned when a second save is requested for a subtree
// whose previous save has not come back yet. Saving is exclusive per node.
var ErrSaveInFlight = errors.New("commit: save already in flight for this subtree")

// dispatchParallelism bounds concurrent transport calls within one tier.
const dispatchParallelism = 4

// Coordinator owns the committed tree of one event and runs the save state
// machine over it. Unrelated subtrees may save concurrently; one subtree
// never has two saves in flight.
type Coordinator struct {
	mu        sync.Mutex
	log       *slog.Logger
	sender    transport.Sender
	committed *mevent.Event
	saving    map[string]bool
	states    map[string]State
}

type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

// New builds a coordinator over the last confirmed tree. committed is nil
// for a not-yet-persisted event.
func New(sender transport.Sender, committed *mevent.Event, opts ...Option) *Coordinator {
	c := &Coordinator{
		log:    slog.Default(),
		sender: sender,
		saving: make(map[string]bool),
		states: make(map[string]State),
	}
	if committed != nil {
		cp := deepCopyEvent(*committed)
		c.committed = &cp
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Committed returns a copy of the confirmed tree, or nil before first save.
func (c *Coordinator) Committed() *mevent.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.committed == nil {
		return nil
	}
	cp := deepCopyEvent(*c.committed)
	return &cp
}

// NoteEdit marks a subtree dirty. The edit buffer calls this on mutation.
func (c *Coordinator) NoteEdit(id idwrap.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := id.String()
	if c.states[key] != StateSaving {
		c.states[key] = StateDirty
	}
}

// StateOf reports the save state of a subtree.
func (c *Coordinator) StateOf(id idwrap.ID) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[id.String()]
}

func rootKey(id idwrap.ID, fallback any) string {
	if !id.IsZero() {
		return id.String()
	}
	return fmt.Sprintf("new:%p", fallback)
}

func (c *Coordinator) acquire(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saving[key] {
		return ErrSaveInFlight
	}
	c.saving[key] = true
	c.states[key] = StateSaving
	return nil
}

func (c *Coordinator) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.saving, key)
}

// dispatch runs the plan tier by tier. Tiers are sequential; operations
// within one tier are independent and run with bounded parallelism.
// Failures are collected, never retried here: retrying a non-idempotent
// create could duplicate an entity.
func (c *Coordinator) dispatch(ctx context.Context, p *plan) (int, []OpFailure) {
	var (
		failMu   sync.Mutex
		failures []OpFailure
		count    int
	)
	for _, tier := range p.tiers {
		g := new(errgroup.Group)
		g.SetLimit(dispatchParallelism)
		for _, op := range tier {
			op := op
			count++
			g.Go(func() error {
				res, err := c.sender.Send(ctx, op)
				if err != nil {
					c.log.Warn("mutation failed",
						slog.String("kind", string(op.Kind)),
						slog.String("entity", string(op.Entity)),
						slog.String("target", op.Target.ID.String()),
						slog.String("code", string(transport.CodeOf(err))),
						slog.String("error", err.Error()))
					failMu.Lock()
					failures = append(failures, OpFailure{Op: op, Err: err})
					failMu.Unlock()
					return nil
				}
				if op.Kind == mutation.OpCreateWithNested {
					var created *mutation.CreatedNode
					if res != nil {
						created = res.Created
					}
					if cerr := mutation.CorrelateCreated(op.Create, created, p.refs); cerr != nil {
						failMu.Lock()
						failures = append(failures, OpFailure{Op: op, Err: cerr})
						failMu.Unlock()
					}
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return count, failures
}

// SaveEvent saves the whole edited aggregate. On success the committed tree
// becomes the buffer, with server-assigned ids for created entities already
// written into the buffer during correlation. On partial failure successes
// are merged, the failed aspects stay at their confirmed values, and the
// report carries each failed operation.
func (c *Coordinator) SaveEvent(ctx context.Context, buffer *mevent.Event) (*Report, error) {
	if buffer == nil {
		return nil, transport.Validation("no edit buffer to save")
	}
	if err := buffer.Validate(); err != nil {
		return nil, transport.New(transport.CodeValidation, err.Error(), err)
	}

	key := rootKey(buffer.ID, buffer)
	if err := c.acquire(key); err != nil {
		return nil, err
	}
	defer c.release(key)

	c.mu.Lock()
	var old mevent.Event
	if c.committed != nil {
		old = deepCopyEvent(*c.committed)
	}
	c.mu.Unlock()

	wasNew := buffer.ID.IsZero()
	p := buildEventPlan(&old, buffer, mutation.NewRefTable())
	if p.empty() {
		c.setState(key, StateClean)
		return &Report{State: StateClean}, nil
	}

	c.log.Info("saving event",
		slog.String("event", key),
		slog.Int("tiers", len(p.tiers)),
		slog.Bool("create", wasNew))

	count, failures := c.dispatch(ctx, p)

	c.mu.Lock()
	defer c.mu.Unlock()

	report := &Report{Dispatched: count, Failures: failures}
	switch {
	case len(failures) == 0:
		merged := deepCopyEvent(*buffer)
		c.committed = &merged
		report.State = StateCommitted
		c.states[merged.ID.String()] = StateCommitted
	case wasNew && buffer.ID.IsZero():
		// The root create itself failed; nothing was persisted.
		report.State = StateFailed
		c.states[key] = StateDirty
	default:
		c.committed = mergeCommitted(&old, buffer, failures)
		report.State = StateFailed
		c.states[key] = StateDirty
	}
	return report, nil
}

// ParentRef locates the collection that owns a card being saved on its own.
type ParentRef struct {
	Entity mutation.EntityType // EntitySection or EntityBracket
	ID     idwrap.ID
}

// SaveCard saves a single card subtree without touching its siblings. For
// a new card the server id is written back into card.ID on success.
func (c *Coordinator) SaveCard(ctx context.Context, parent ParentRef, card *mcard.Card) (*Report, error) {
	if card == nil {
		return nil, transport.Validation("no card buffer to save")
	}
	if card.Kind == mcard.KindUnspecified {
		return nil, transport.Validation("card kind is required")
	}
	if parent.ID.IsZero() {
		return nil, transport.Validation("card parent must be persisted before the card is saved")
	}

	c.mu.Lock()
	if c.committed == nil {
		c.mu.Unlock()
		return nil, transport.NotFound(mutation.EntityEvent, "no committed event to attach the card to")
	}
	old := deepCopyEvent(*c.committed)
	c.mu.Unlock()

	key := rootKey(card.ID, card)
	if err := c.acquire(key); err != nil {
		return nil, err
	}
	defer c.release(key)

	refs := mutation.NewRefTable()
	set := &opSet{}
	if card.ID.IsZero() {
		set.creates = append(set.creates, mutation.ChildCreate(parent.Entity, parent.ID, mutation.CardNode(card, refs)))
	} else {
		oldCard := findCardByID(&old, card.ID)
		if oldCard == nil {
			return nil, transport.NotFound(mutation.EntityCard, "card not found in committed tree")
		}
		cardOps(set, oldCard, card)
	}

	return c.finishSubtreeSave(ctx, key, &old, &plan{tiers: set.tiers(), refs: refs}, func(merged *mevent.Event) bool {
		return spliceCard(merged, parent, deepCopyCard(*card))
	})
}

// SaveSection saves a single section subtree (scalars, edges, brackets,
// cards) without touching sibling sections.
func (c *Coordinator) SaveSection(ctx context.Context, section *msection.Section) (*Report, error) {
	if section == nil {
		return nil, transport.Validation("no section buffer to save")
	}
	if err := section.Validate(); err != nil {
		return nil, transport.New(transport.CodeValidation, err.Error(), err)
	}

	c.mu.Lock()
	if c.committed == nil {
		c.mu.Unlock()
		return nil, transport.NotFound(mutation.EntityEvent, "no committed event to attach the section to")
	}
	old := deepCopyEvent(*c.committed)
	c.mu.Unlock()

	key := rootKey(section.ID, section)
	if err := c.acquire(key); err != nil {
		return nil, err
	}
	defer c.release(key)

	refs := mutation.NewRefTable()
	set := &opSet{}
	if section.ID.IsZero() {
		set.creates = append(set.creates, mutation.ChildCreate(mutation.EntityEvent, old.ID, mutation.SectionNode(section, refs)))
	} else {
		oldSec := old.FindSection(section.ID)
		if oldSec == nil {
			return nil, transport.NotFound(mutation.EntitySection, "section not found in committed tree")
		}
		sectionOps(set, oldSec, section, refs)
	}

	return c.finishSubtreeSave(ctx, key, &old, &plan{tiers: set.tiers(), refs: refs}, func(merged *mevent.Event) bool {
		return spliceSection(merged, deepCopySection(*section))
	})
}

// finishSubtreeSave dispatches a subtree plan and folds the result into the
// committed tree: on full success the caller's splice installs the saved
// subtree; on partial failure the generic aspect merge holds failed aspects
// back at their confirmed values.
func (c *Coordinator) finishSubtreeSave(ctx context.Context, key string, old *mevent.Event, p *plan, splice func(*mevent.Event) bool) (*Report, error) {
	if p.empty() {
		c.setState(key, StateClean)
		return &Report{State: StateClean}, nil
	}

	count, failures := c.dispatch(ctx, p)

	c.mu.Lock()
	report := &Report{Dispatched: count, Failures: failures}
	if len(failures) == 0 {
		merged := deepCopyEvent(*c.committed)
		if splice(&merged) {
			c.committed = &merged
		}
		report.State = StateCommitted
	} else {
		buf := deepCopyEvent(*old)
		splice(&buf)
		c.committed = mergeCommitted(old, &buf, failures)
		report.State = StateFailed
	}
	c.mu.Unlock()

	c.setState(key, report.State)
	return report, nil
}

func (c *Coordinator) setState(key string, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == StateFailed {
		// A failed save leaves the buffer dirty for retry or inspection.
		c.states[key] = StateDirty
		return
	}
	c.states[key] = s
}

// spliceCard replaces (or inserts at its order index) the card within the
// given parent collection of the event copy. Reports false if the parent
// does not exist.
func spliceCard(e *mevent.Event, parent ParentRef, card mcard.Card) bool {
	splice := func(cards *[]mcard.Card) {
		if !card.ID.IsZero() {
			for i := range *cards {
				if (*cards)[i].ID == card.ID {
					(*cards)[i] = card
					return
				}
			}
		}
		at := card.Order
		if at < 0 || at > len(*cards) {
			at = len(*cards)
		}
		*cards = append((*cards)[:at], append([]mcard.Card{card}, (*cards)[at:]...)...)
	}

	switch parent.Entity {
	case mutation.EntitySection:
		if sec := e.FindSection(parent.ID); sec != nil {
			splice(&sec.Cards)
			return true
		}
	case mutation.EntityBracket:
		for i := range e.Sections {
			for j := range e.Sections[i].Brackets {
				if e.Sections[i].Brackets[j].ID == parent.ID {
					splice(&e.Sections[i].Brackets[j].Cards)
					return true
				}
			}
		}
	}
	return false
}

// spliceSection replaces the section by id, or appends a newly created one.
func spliceSection(e *mevent.Event, section msection.Section) bool {
	if !section.ID.IsZero() {
		if target := e.FindSection(section.ID); target != nil {
			*target = section
			return true
		}
	}
	e.Sections = append(e.Sections, section)
	return true
}

// findCardByID locates a card anywhere in the tree.
func findCardByID(e *mevent.Event, id idwrap.ID) *mcard.Card {
	for i := range e.Sections {
		sec := &e.Sections[i]
		for j := range sec.Cards {
			if sec.Cards[j].ID == id {
				return &sec.Cards[j]
			}
		}
		for j := range sec.Brackets {
			for k := range sec.Brackets[j].Cards {
				if sec.Brackets[j].Cards[k].ID == id {
					return &sec.Brackets[j].Cards[k]
				}
			}
		}
	}
	return nil
}
