package mutation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mbracket"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mcard"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mperson"
	"github.com/BenTheChi/dance-chives-sub002/pkg/mutation"
)

func TestBracketNodeNestsCards(t *testing.T) {
	refs := mutation.NewRefTable()
	bracket := mbracket.Bracket{
		Label: "Top 8",
		Order: 0,
		Cards: []mcard.Card{
			{Kind: mcard.KindBattle, Title: "one", Order: 0,
				Dancers: []mperson.Person{{Username: "a"}}},
			{Kind: mcard.KindBattle, Title: "two", Order: 1},
		},
	}

	node := mutation.BracketNode(&bracket, refs)

	assert.Equal(t, mutation.EntityBracket, node.Entity)
	assert.Equal(t, "Top 8", node.Fields["label"])
	require.Len(t, node.Children, 2)
	assert.Equal(t, mutation.EntityCard, node.Children[0].Entity)
	require.Len(t, node.Children[0].Roles, 1)
	assert.Equal(t, "dancers", node.Children[0].Roles[0].Role)
	assert.Equal(t, 3, refs.Len())
}

func TestCorrelateCreatedByRef(t *testing.T) {
	refs := mutation.NewRefTable()
	bracket := mbracket.Bracket{
		Label: "Finals",
		Cards: []mcard.Card{{Kind: mcard.KindBattle, Title: "f"}},
	}
	node := mutation.BracketNode(&bracket, refs)

	bracketID := idwrap.NewNow()
	cardID := idwrap.NewNow()
	res := &mutation.CreatedNode{
		Ref: node.Ref, ID: bracketID,
		Children: []mutation.CreatedNode{{Ref: node.Children[0].Ref, ID: cardID}},
	}

	require.NoError(t, mutation.CorrelateCreated(&node, res, refs))
	assert.Equal(t, bracketID, bracket.ID)
	assert.Equal(t, cardID, bracket.Cards[0].ID)
}

func TestCorrelateCreatedPositionalFallback(t *testing.T) {
	refs := mutation.NewRefTable()
	bracket := mbracket.Bracket{
		Label: "Finals",
		Cards: []mcard.Card{
			{Kind: mcard.KindBattle, Title: "one"},
			{Kind: mcard.KindBattle, Title: "two"},
		},
	}
	node := mutation.BracketNode(&bracket, refs)

	// A transport that drops refs still returns the request's nesting
	// shape; correlation falls back to array position within the batch.
	ids := []idwrap.ID{idwrap.NewNow(), idwrap.NewNow(), idwrap.NewNow()}
	res := &mutation.CreatedNode{
		ID: ids[0],
		Children: []mutation.CreatedNode{
			{ID: ids[1]},
			{ID: ids[2]},
		},
	}

	require.NoError(t, mutation.CorrelateCreated(&node, res, refs))
	assert.Equal(t, ids[0], bracket.ID)
	assert.Equal(t, ids[1], bracket.Cards[0].ID)
	assert.Equal(t, ids[2], bracket.Cards[1].ID)
}

func TestCorrelateCreatedShapeMismatch(t *testing.T) {
	refs := mutation.NewRefTable()
	bracket := mbracket.Bracket{
		Label: "Finals",
		Cards: []mcard.Card{{Kind: mcard.KindBattle, Title: "one"}},
	}
	node := mutation.BracketNode(&bracket, refs)

	res := &mutation.CreatedNode{Ref: node.Ref, ID: idwrap.NewNow()}
	assert.Error(t, mutation.CorrelateCreated(&node, res, refs))
}

func TestOpEncodeRoundTrip(t *testing.T) {
	owner := idwrap.NewNow()
	op := mutation.ConnectExisting(mutation.EntityCard, owner, mperson.RoleWinner, []string{"a", "b"})

	data, err := mutation.EncodeOp(op)
	require.NoError(t, err)

	decoded, err := mutation.DecodeOp(data)
	require.NoError(t, err)
	assert.Equal(t, op.Kind, decoded.Kind)
	assert.Equal(t, owner, decoded.Target.ID)
	assert.Equal(t, []string{"a", "b"}, decoded.Usernames)
}
