package eventstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenTheChi/dance-chives-sub002/pkg/commit"
	"github.com/BenTheChi/dance-chives-sub002/pkg/editbuf"
	"github.com/BenTheChi/dance-chives-sub002/pkg/eventstore"
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

func openStore(t *testing.T) *eventstore.Store {
	t.Helper()
	store, err := eventstore.Open(filepath.Join(t.TempDir(), "chives.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedEvent persists a battles event through the same nested create the
// coordinator would dispatch and returns it with server ids resolved.
func seedEvent(t *testing.T, store *eventstore.Store) *mevent.Event {
	t.Helper()
	e := &mevent.Event{
		Title:      "Freestyle Session",
		Date:       "2026-09-12",
		Organizers: []mperson.Person{{Username: "chi"}},
		Sections: []msection.Section{
			{
				Kind:   msection.KindBattles,
				Format: "2v2",
				Styles: []mstyle.Style{{Name: "Breaking"}},
				Judges: []mperson.Person{{Username: "judge-a"}},
				Brackets: []mbracket.Bracket{
					{Label: "Prelims", Order: 0, Cards: []mcard.Card{
						{Kind: mcard.KindBattle, Title: "Round 1", Order: 0,
							Dancers: []mperson.Person{{Username: "ace"}, {Username: "bo"}}},
					}},
					{Label: "Finals", Order: 1, Cards: []mcard.Card{
						{Kind: mcard.KindBattle, Title: "Final", Order: 0,
							Winners: []mperson.Person{{Username: "ace"}}},
					}},
				},
			},
		},
	}

	refs := mutation.NewRefTable()
	op := mutation.EventCreate(e, refs)
	res, err := store.Send(context.Background(), op)
	require.NoError(t, err)
	require.NoError(t, mutation.CorrelateCreated(op.Create, res.Created, refs))
	require.False(t, e.ID.IsZero())
	return e
}

func TestCreateThenLoadRoundTrip(t *testing.T) {
	store := openStore(t)
	e := seedEvent(t, store)

	loaded, err := store.LoadEvent(context.Background(), e.ID)
	require.NoError(t, err)

	assert.Equal(t, "Freestyle Session", loaded.Title)
	assert.Equal(t, []string{"chi"}, mperson.Usernames(loaded.Organizers))
	require.Len(t, loaded.Sections, 1)

	sec := loaded.Sections[0]
	assert.Equal(t, msection.KindBattles, sec.Kind)
	assert.Equal(t, "2v2", sec.Format)
	assert.Equal(t, []string{"Breaking"}, mstyle.Names(sec.Styles))
	assert.Equal(t, []string{"judge-a"}, mperson.Usernames(sec.Judges))

	require.Len(t, sec.Brackets, 2)
	assert.Equal(t, "Prelims", sec.Brackets[0].Label)
	assert.Equal(t, "Finals", sec.Brackets[1].Label)
	require.Len(t, sec.Brackets[0].Cards, 1)
	assert.Equal(t, mcard.KindBattle, sec.Brackets[0].Cards[0].Kind)
	assert.Equal(t, []string{"ace", "bo"}, mperson.Usernames(sec.Brackets[0].Cards[0].Dancers))
	assert.Equal(t, []string{"ace"}, mperson.Usernames(sec.Brackets[1].Cards[0].Winners))
}

func TestDeleteSectionCascades(t *testing.T) {
	store := openStore(t)
	e := seedEvent(t, store)
	secID := e.Sections[0].ID

	_, err := store.Send(context.Background(),
		mutation.DeleteCascading(mutation.EntitySection, secID))
	require.NoError(t, err)

	loaded, err := store.LoadEvent(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Sections)

	// The subtree is gone but its Person targets survive.
	_, err = store.Send(context.Background(),
		mutation.ConnectExisting(mutation.EntityEvent, e.ID, mperson.RoleOrganizer, []string{"judge-a"}))
	require.NoError(t, err)
}

func TestConnectOrCreateIsIdempotent(t *testing.T) {
	store := openStore(t)
	e := seedEvent(t, store)
	secID := e.Sections[0].ID

	op := mutation.ConnectOrCreate(mutation.EntitySection, secID, []string{"House", "Breaking"})
	for i := 0; i < 2; i++ {
		_, err := store.Send(context.Background(), op)
		require.NoError(t, err)
	}

	loaded, err := store.LoadEvent(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Breaking", "House"}, mstyle.Names(loaded.Sections[0].Styles))
}

func TestRoleReplaceWholesale(t *testing.T) {
	store := openStore(t)
	e := seedEvent(t, store)
	secID := e.Sections[0].ID
	ctx := context.Background()

	_, err := store.Send(ctx, mutation.DisconnectAll(mutation.EntitySection, secID, mperson.RoleJudge))
	require.NoError(t, err)
	_, err = store.Send(ctx, mutation.ConnectExisting(mutation.EntitySection, secID, mperson.RoleJudge,
		[]string{"judge-b", "judge-c"}))
	require.NoError(t, err)

	loaded, err := store.LoadEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"judge-b", "judge-c"}, mperson.Usernames(loaded.Sections[0].Judges))
}

func TestUpdateMissingEntityIsNotFound(t *testing.T) {
	store := openStore(t)

	_, err := store.Send(context.Background(),
		mutation.ScalarUpdate(mutation.EntityCard, idwrap.NewNow(), map[string]any{"title": "ghost"}))
	require.Error(t, err)
	assert.Equal(t, transport.CodeNotFound, transport.CodeOf(err))

	_, err = store.LoadEvent(context.Background(), idwrap.NewNow())
	require.Error(t, err)
	assert.Equal(t, transport.CodeNotFound, transport.CodeOf(err))
}

// TestCoordinatorEndToEnd drives a full edit cycle through the real store:
// load, edit in a buffer, save, reload, and compare.
func TestCoordinatorEndToEnd(t *testing.T) {
	store := openStore(t)
	e := seedEvent(t, store)
	ctx := context.Background()

	committed, err := store.LoadEvent(ctx, e.ID)
	require.NoError(t, err)
	coord := commit.New(store, committed)

	session := editbuf.Begin(*committed)
	buf := session.Buffer()
	buf.Title = "Freestyle Session Vol. 2"
	sec := &buf.Sections[0]
	sec.Brackets = sec.Brackets[1:] // drop Prelims
	sec.Brackets[0].Cards = append(sec.Brackets[0].Cards, mcard.Card{
		Kind: mcard.KindBattle, Title: "Exhibition", Order: 1,
	})

	report, err := coord.SaveEvent(ctx, buf)
	require.NoError(t, err)
	require.False(t, report.Failed())

	reloaded, err := store.LoadEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Freestyle Session Vol. 2", reloaded.Title)
	require.Len(t, reloaded.Sections, 1)
	got := reloaded.Sections[0]
	require.Len(t, got.Brackets, 1)
	assert.Equal(t, "Finals", got.Brackets[0].Label)
	assert.Equal(t, 0, got.Brackets[0].Order)
	require.Len(t, got.Brackets[0].Cards, 2)
	assert.Equal(t, "Exhibition", got.Brackets[0].Cards[1].Title)
}

func TestCoordinatorFixtureOrderSurvivesReload(t *testing.T) {
	store := openStore(t)
	e := seedEvent(t, store)
	secID := e.Sections[0].ID
	ctx := context.Background()

	// Delete Prelims and repair Finals to order 0, the way a save does.
	_, err := store.Send(ctx, mutation.DeleteCascading(mutation.EntityBracket, e.Sections[0].Brackets[0].ID))
	require.NoError(t, err)
	_, err = store.Send(ctx, mutation.ScalarUpdate(mutation.EntityBracket,
		e.Sections[0].Brackets[1].ID, map[string]any{"order": 0}))
	require.NoError(t, err)

	loaded, err := store.LoadEvent(ctx, e.ID)
	require.NoError(t, err)
	sec := loaded.FindSection(secID)
	require.NotNil(t, sec)
	require.Len(t, sec.Brackets, 1)
	assert.Equal(t, "Finals", sec.Brackets[0].Label)
	assert.Equal(t, 0, sec.Brackets[0].Order)
}
