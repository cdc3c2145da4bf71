package editbuf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenTheChi/dance-chives-sub002/pkg/editbuf"
	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mcard"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mperson"
)

func battleCard() mcard.Card {
	return mcard.Card{
		ID:       idwrap.NewNow(),
		Kind:     mcard.KindBattle,
		Title:    "Top 16",
		VideoSrc: "https://example.com/v.mp4",
		Dancers: []mperson.Person{
			{Username: "a", DisplayName: "A"},
			{Username: "b", DisplayName: "B"},
		},
	}
}

func TestBufferIsStructurallyIndependent(t *testing.T) {
	committed := battleCard()
	s := editbuf.Begin(committed)

	buf := s.Buffer()
	buf.Title = "Top 8"
	buf.Dancers[0].DisplayName = "mutated"
	buf.Dancers = append(buf.Dancers, mperson.Person{Username: "c"})

	assert.Equal(t, "Top 16", committed.Title)
	assert.Equal(t, "A", committed.Dancers[0].DisplayName)
	assert.Len(t, committed.Dancers, 2)
}

func TestDirtyTracking(t *testing.T) {
	s := editbuf.Begin(battleCard())
	assert.False(t, s.IsDirty())

	s.Buffer().Title = "changed"
	assert.True(t, s.IsDirty())

	s.Reset()
	assert.False(t, s.IsDirty())
}

func TestRestoreSingleField(t *testing.T) {
	s := editbuf.Begin(battleCard())
	s.Buffer().Title = "changed title"
	s.Buffer().VideoSrc = "changed src"

	s.Restore(func(orig mcard.Card, buf *mcard.Card) {
		buf.Title = orig.Title
	})

	assert.Equal(t, "Top 16", s.Buffer().Title)
	assert.Equal(t, "changed src", s.Buffer().VideoSrc)
	assert.True(t, s.IsDirty())
}

func TestDiscardDropsBuffer(t *testing.T) {
	s := editbuf.Begin(battleCard())
	s.Buffer().Title = "changed"
	s.Discard()

	assert.Nil(t, s.Buffer())
	assert.False(t, s.Editing())
	assert.False(t, s.IsDirty())
}

func TestRebaseAfterCommit(t *testing.T) {
	s := editbuf.Begin(battleCard())
	merged := *s.Buffer()
	merged.ID = idwrap.NewNow() // server-assigned id after save

	s.Rebase(merged)

	require.NotNil(t, s.Buffer())
	assert.False(t, s.IsDirty())
	assert.Equal(t, merged.ID, s.Buffer().ID)
}
