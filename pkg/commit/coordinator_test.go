package commit_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenTheChi/dance-chives-sub002/pkg/commit"
	"github.com/BenTheChi/dance-chives-sub002/pkg/editbuf"
	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mbracket"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mcard"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mevent"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mperson"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/msection"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mstyle"
	"github.com/BenTheChi/dance-chives-sub002/pkg/mutation"
	"github.com/BenTheChi/dance-chives-sub002/pkg/transport"
)

// fakeSender records operations and echoes nested create shapes back with
// fresh server ids, the way a real transport must.
type fakeSender struct {
	mu      sync.Mutex
	ops     []mutation.Op
	fail    func(op mutation.Op) error
	entered chan struct{} // signaled at the top of Send when set
	gate    chan struct{} // when set, Send blocks until the gate closes
}

func (f *fakeSender) Send(ctx context.Context, op mutation.Op) (*mutation.Result, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.fail != nil {
		if err := f.fail(op); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()

	if op.Kind == mutation.OpCreateWithNested {
		return &mutation.Result{Created: echoCreated(op.Create)}, nil
	}
	return &mutation.Result{}, nil
}

func echoCreated(node *mutation.CreateNode) *mutation.CreatedNode {
	created := &mutation.CreatedNode{Ref: node.Ref, ID: idwrap.NewNow()}
	for i := range node.Children {
		created.Children = append(created.Children, *echoCreated(&node.Children[i]))
	}
	return created
}

func (f *fakeSender) sent() []mutation.Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mutation.Op(nil), f.ops...)
}

func (f *fakeSender) opsOfKind(kind mutation.OpKind) []mutation.Op {
	var out []mutation.Op
	for _, op := range f.sent() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func battlesEvent() mevent.Event {
	prelims := mbracket.Bracket{
		ID: idwrap.NewNow(), Label: "Prelims", Order: 0,
		Cards: []mcard.Card{
			{ID: idwrap.NewNow(), Kind: mcard.KindBattle, Title: "Battle 1", Order: 0},
			{ID: idwrap.NewNow(), Kind: mcard.KindBattle, Title: "Battle 2", Order: 1},
		},
	}
	finals := mbracket.Bracket{
		ID: idwrap.NewNow(), Label: "Finals", Order: 1,
		Cards: []mcard.Card{
			{ID: idwrap.NewNow(), Kind: mcard.KindBattle, Title: "Final Battle", Order: 0},
		},
	}
	return mevent.Event{
		ID:    idwrap.NewNow(),
		Title: "Freestyle Session",
		Date:  "2026-09-12",
		Sections: []msection.Section{{
			ID: idwrap.NewNow(), Kind: msection.KindBattles, Order: 0,
			Format:   "2v2",
			Styles:   []mstyle.Style{{Name: "Breaking"}, {Name: "Popping"}},
			Judges:   []mperson.Person{{Username: "a"}, {Username: "b"}},
			Brackets: []mbracket.Bracket{prelims, finals},
		}},
	}
}

func TestSaveNewEventIsOneNestedCreate(t *testing.T) {
	sender := &fakeSender{}
	coord := commit.New(sender, nil)

	buffer := battlesEvent()
	buffer.ID = idwrap.ID{}
	for i := range buffer.Sections {
		buffer.Sections[i].ID = idwrap.ID{}
		for j := range buffer.Sections[i].Brackets {
			buffer.Sections[i].Brackets[j].ID = idwrap.ID{}
			for k := range buffer.Sections[i].Brackets[j].Cards {
				buffer.Sections[i].Brackets[j].Cards[k].ID = idwrap.ID{}
			}
		}
	}

	report, err := coord.SaveEvent(context.Background(), &buffer)
	require.NoError(t, err)
	assert.Equal(t, commit.StateCommitted, report.State)
	require.Len(t, sender.sent(), 1)
	assert.Equal(t, mutation.OpCreateWithNested, sender.sent()[0].Kind)

	// Correlation wrote server ids through the whole buffer.
	assert.False(t, buffer.ID.IsZero())
	for _, sec := range buffer.Sections {
		assert.False(t, sec.ID.IsZero())
		for _, br := range sec.Brackets {
			assert.False(t, br.ID.IsZero())
			for _, card := range br.Cards {
				assert.False(t, card.ID.IsZero())
			}
		}
	}

	committed := coord.Committed()
	require.NotNil(t, committed)
	assert.Equal(t, buffer.ID, committed.ID)
}

func TestJudgesReplaceIsWholesale(t *testing.T) {
	committed := battlesEvent()
	sender := &fakeSender{}
	coord := commit.New(sender, &committed)

	session := editbuf.Begin(committed)
	buf := session.Buffer()
	// judges {a,b} -> {b,c}
	buf.Sections[0].Judges = []mperson.Person{{Username: "b"}, {Username: "c"}}

	report, err := coord.SaveEvent(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, commit.StateCommitted, report.State)

	disconnects := sender.opsOfKind(mutation.OpDisconnectAll)
	connects := sender.opsOfKind(mutation.OpConnectExisting)
	require.Len(t, disconnects, 1)
	require.Len(t, connects, 1)
	assert.Equal(t, "judges", disconnects[0].Role)
	assert.Equal(t, []string{"b", "c"}, connects[0].Usernames)
	assert.Len(t, sender.sent(), 2)

	// Disconnect dispatched in the tier before the connect.
	assert.Equal(t, mutation.OpDisconnectAll, sender.sent()[0].Kind)
}

func TestBracketDeleteRepairsSiblingOrder(t *testing.T) {
	committed := battlesEvent()
	sender := &fakeSender{}
	coord := commit.New(sender, &committed)

	session := editbuf.Begin(committed)
	buf := session.Buffer()
	prelimsID := buf.Sections[0].Brackets[0].ID
	finalsID := buf.Sections[0].Brackets[1].ID
	buf.Sections[0].Brackets = buf.Sections[0].Brackets[1:] // delete Prelims

	report, err := coord.SaveEvent(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, commit.StateCommitted, report.State)

	ops := sender.sent()
	require.Len(t, ops, 2)
	assert.Equal(t, mutation.OpDeleteCascading, ops[0].Kind)
	assert.Equal(t, prelimsID, ops[0].Target.ID)

	assert.Equal(t, mutation.OpUpdateScalarFields, ops[1].Kind)
	assert.Equal(t, mutation.EntityBracket, ops[1].Entity)
	assert.Equal(t, finalsID, ops[1].Target.ID)
	assert.Equal(t, 0, ops[1].Fields["order"])

	// Card orders inside the surviving bracket are untouched: no card ops.
	for _, op := range ops {
		assert.NotEqual(t, mutation.EntityCard, op.Entity)
	}

	assert.Equal(t, 0, coord.Committed().Sections[0].Brackets[0].Order)
}

func TestStyleChangeIsIncremental(t *testing.T) {
	committed := battlesEvent()
	sender := &fakeSender{}
	coord := commit.New(sender, &committed)

	session := editbuf.Begin(committed)
	buf := session.Buffer()
	// {Breaking, Popping} -> {Popping, House}
	buf.Sections[0].Styles = []mstyle.Style{{Name: "Popping"}, {Name: "House"}}

	report, err := coord.SaveEvent(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, commit.StateCommitted, report.State)

	ops := sender.sent()
	require.Len(t, ops, 2)
	assert.Equal(t, mutation.OpDisconnectByKey, ops[0].Kind)
	assert.Equal(t, []string{"Breaking"}, ops[0].StyleNames)
	assert.Equal(t, mutation.OpConnectOrCreate, ops[1].Kind)
	assert.Equal(t, []string{"House"}, ops[1].StyleNames)
}

func TestNewCardRoundTrip(t *testing.T) {
	committed := battlesEvent()
	sender := &fakeSender{}
	coord := commit.New(sender, &committed)

	bracketID := committed.Sections[0].Brackets[1].ID
	card := mcard.Card{
		Kind:  mcard.KindBattle,
		Title: "Extra Battle",
		Order: 1,
		Dancers: []mperson.Person{
			{Username: "x"}, {Username: "y"},
		},
	}

	report, err := coord.SaveCard(context.Background(),
		commit.ParentRef{Entity: mutation.EntityBracket, ID: bracketID}, &card)
	require.NoError(t, err)
	assert.Equal(t, commit.StateCommitted, report.State)
	assert.False(t, card.ID.IsZero())

	creates := sender.opsOfKind(mutation.OpCreateWithNested)
	require.Len(t, creates, 1)
	assert.Equal(t, bracketID, creates[0].Parent.ID)
	require.Len(t, creates[0].Create.Roles, 1)
	assert.Equal(t, []string{"x", "y"}, creates[0].Create.Roles[0].Usernames)

	finals := coord.Committed().Sections[0].Brackets[1]
	require.Len(t, finals.Cards, 2)
	assert.Equal(t, card.ID, finals.Cards[1].ID)
	assert.Equal(t, "Extra Battle", finals.Cards[1].Title)
}

func TestPartialFailureMergesSuccesses(t *testing.T) {
	committed := battlesEvent()
	cards := committed.Sections[0].Brackets[0].Cards
	failID := cards[0].ID

	sender := &fakeSender{
		fail: func(op mutation.Op) error {
			if op.Kind == mutation.OpUpdateScalarFields && op.Target.ID == failID {
				return transport.NewOp(transport.CodeTransport, op, errors.New("connection reset"))
			}
			return nil
		},
	}
	coord := commit.New(sender, &committed)

	session := editbuf.Begin(committed)
	buf := session.Buffer()
	buf.Sections[0].Brackets[0].Cards[0].Title = "renamed one"
	buf.Sections[0].Brackets[0].Cards[1].Title = "renamed two"

	report, err := coord.SaveEvent(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, commit.StateFailed, report.State)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, failID, report.Failures[0].Op.Target.ID)
	assert.Equal(t, transport.CodeTransport, transport.CodeOf(report.Failures[0].Err))

	merged := coord.Committed().Sections[0].Brackets[0].Cards
	assert.Equal(t, "Battle 1", merged[0].Title) // failed: held at confirmed value
	assert.Equal(t, "renamed two", merged[1].Title)

	// The subtree returns to dirty so the user can retry.
	assert.Equal(t, commit.StateDirty, coord.StateOf(committed.ID))
}

func TestFailedDeleteRestoresSubtree(t *testing.T) {
	committed := battlesEvent()
	prelimsID := committed.Sections[0].Brackets[0].ID

	sender := &fakeSender{
		fail: func(op mutation.Op) error {
			if op.Kind == mutation.OpDeleteCascading {
				return transport.NewOp(transport.CodeTransport, op, errors.New("timeout"))
			}
			return nil
		},
	}
	coord := commit.New(sender, &committed)

	session := editbuf.Begin(committed)
	buf := session.Buffer()
	buf.Sections[0].Brackets = buf.Sections[0].Brackets[1:]

	report, err := coord.SaveEvent(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, commit.StateFailed, report.State)

	// The bracket still exists remotely, so it stays in the committed tree.
	var labels []string
	for _, br := range coord.Committed().Sections[0].Brackets {
		labels = append(labels, br.Label)
		if br.Label == "Prelims" {
			assert.Equal(t, prelimsID, br.ID)
		}
	}
	assert.Contains(t, labels, "Prelims")
	assert.Contains(t, labels, "Finals")
}

func TestSecondSaveWhileInFlightIsRejected(t *testing.T) {
	committed := battlesEvent()
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	sender := &fakeSender{gate: gate, entered: entered}
	coord := commit.New(sender, &committed)

	session := editbuf.Begin(committed)
	buf := session.Buffer()
	buf.Title = "renamed"

	done := make(chan error, 1)
	go func() {
		_, err := coord.SaveEvent(context.Background(), buf)
		done <- err
	}()
	<-entered // first save is now inside the transport call

	_, second := coord.SaveEvent(context.Background(), buf)
	assert.ErrorIs(t, second, commit.ErrSaveInFlight)

	close(gate)
	require.NoError(t, <-done)
}

func TestValidationBlocksDispatch(t *testing.T) {
	committed := battlesEvent()
	sender := &fakeSender{}
	coord := commit.New(sender, &committed)

	session := editbuf.Begin(committed)
	buf := session.Buffer()
	buf.Title = "" // required

	_, err := coord.SaveEvent(context.Background(), buf)
	require.Error(t, err)
	assert.Equal(t, transport.CodeValidation, transport.CodeOf(err))
	assert.Empty(t, sender.sent())
}

func TestUnchangedBufferShortCircuits(t *testing.T) {
	committed := battlesEvent()
	sender := &fakeSender{}
	coord := commit.New(sender, &committed)

	session := editbuf.Begin(committed)
	require.False(t, session.IsDirty())

	report, err := coord.SaveEvent(context.Background(), session.Buffer())
	require.NoError(t, err)
	assert.Equal(t, commit.StateClean, report.State)
	assert.Empty(t, sender.sent())
}
