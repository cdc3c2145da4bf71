package mutation

import (
	"fmt"

	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mbracket"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mcard"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mevent"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mperson"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/msection"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mstyle"
)

// RefTable binds create-batch correlation refs to the buffer slots that
// receive server-assigned ids. It lives for exactly one save; refs are
// minted while payloads are built and consumed while the confirmed
// response is merged back.
type RefTable struct {
	slots map[idwrap.Ref]*idwrap.ID
}

func NewRefTable() *RefTable {
	return &RefTable{slots: make(map[idwrap.Ref]*idwrap.ID)}
}

// Bind mints a ref for the given id slot.
func (t *RefTable) Bind(slot *idwrap.ID) idwrap.Ref {
	ref := idwrap.NewRef()
	t.slots[ref] = slot
	return ref
}

// Resolve writes the server-assigned id into the slot bound to ref.
func (t *RefTable) Resolve(ref idwrap.Ref, id idwrap.ID) bool {
	slot, ok := t.slots[ref]
	if !ok {
		return false
	}
	*slot = id
	return true
}

func (t *RefTable) Len() int {
	return len(t.slots)
}

// roleConnects shapes the nonempty role sets of an entity for embedding in
// a create payload.
func roleConnects(sets []mperson.RoleSet) []RoleConnect {
	var out []RoleConnect
	for _, s := range sets {
		if len(s.Members) == 0 {
			continue
		}
		out = append(out, RoleConnect{Role: s.Role.String(), Usernames: mperson.Usernames(s.Members)})
	}
	return out
}

// CardNode builds the create node for one card, binding its id slot.
func CardNode(c *mcard.Card, refs *RefTable) CreateNode {
	return CreateNode{
		Ref:    refs.Bind(&c.ID),
		Entity: EntityCard,
		Fields: c.ScalarFields(),
		Roles:  roleConnects(c.RoleSets()),
		Styles: mstyle.Names(c.Styles),
	}
}

// BracketNode builds the create node for one bracket and its cards.
func BracketNode(b *mbracket.Bracket, refs *RefTable) CreateNode {
	node := CreateNode{
		Ref:    refs.Bind(&b.ID),
		Entity: EntityBracket,
		Fields: b.ScalarFields(),
	}
	for i := range b.Cards {
		node.Children = append(node.Children, CardNode(&b.Cards[i], refs))
	}
	return node
}

// SectionNode builds the create node for one section and everything under
// it: brackets and their cards for battles, flat cards otherwise.
func SectionNode(s *msection.Section, refs *RefTable) CreateNode {
	node := CreateNode{
		Ref:    refs.Bind(&s.ID),
		Entity: EntitySection,
		Fields: s.ScalarFields(),
		Styles: mstyle.Names(s.Styles),
	}
	if len(s.Judges) > 0 {
		node.Roles = roleConnects([]mperson.RoleSet{{Role: mperson.RoleJudge, Members: s.Judges}})
	}
	for i := range s.Brackets {
		node.Children = append(node.Children, BracketNode(&s.Brackets[i], refs))
	}
	for i := range s.Cards {
		node.Children = append(node.Children, CardNode(&s.Cards[i], refs))
	}
	return node
}

// EventCreate builds a root create carrying the whole aggregate nested.
func EventCreate(e *mevent.Event, refs *RefTable) Op {
	node := CreateNode{
		Ref:    refs.Bind(&e.ID),
		Entity: EntityEvent,
		Fields: e.ScalarFields(),
	}
	if len(e.Organizers) > 0 {
		node.Roles = roleConnects([]mperson.RoleSet{{Role: mperson.RoleOrganizer, Members: e.Organizers}})
	}
	for i := range e.Sections {
		node.Children = append(node.Children, SectionNode(&e.Sections[i], refs))
	}
	return Op{Kind: OpCreateWithNested, Entity: EntityEvent, Create: &node}
}

// ChildCreate builds a create for a node under an already-persisted parent.
func ChildCreate(parentEntity EntityType, parentID idwrap.ID, node CreateNode) Op {
	return Op{
		Kind:         OpCreateWithNested,
		Entity:       node.Entity,
		Parent:       &Selector{ID: parentID},
		ParentEntity: parentEntity,
		Create:       &node,
	}
}

// ScalarUpdate builds an update of the given persisted fields.
func ScalarUpdate(entity EntityType, id idwrap.ID, fields map[string]any) Op {
	return Op{Kind: OpUpdateScalarFields, Entity: entity, Target: Selector{ID: id}, Fields: fields}
}

// DeleteCascading builds a delete that takes the entity's owned subtree
// with it. Role and style edges are retracted, never their target nodes.
func DeleteCascading(entity EntityType, id idwrap.ID) Op {
	return Op{Kind: OpDeleteCascading, Entity: entity, Target: Selector{ID: id}}
}

// DisconnectAll retracts every edge of one role from the owner.
func DisconnectAll(entity EntityType, owner idwrap.ID, role mperson.Role) Op {
	return Op{Kind: OpDisconnectAll, Entity: entity, Target: Selector{ID: owner}, Role: role.String()}
}

// ConnectExisting attaches the full member set under one role.
func ConnectExisting(entity EntityType, owner idwrap.ID, role mperson.Role, usernames []string) Op {
	return Op{Kind: OpConnectExisting, Entity: entity, Target: Selector{ID: owner}, Role: role.String(), Usernames: usernames}
}

// ConnectOrCreate attaches style tags by natural key, creating missing
// Style nodes exactly once.
func ConnectOrCreate(entity EntityType, owner idwrap.ID, styleNames []string) Op {
	return Op{Kind: OpConnectOrCreate, Entity: entity, Target: Selector{ID: owner}, StyleNames: styleNames}
}

// DisconnectByKey retracts style edges by natural key.
func DisconnectByKey(entity EntityType, owner idwrap.ID, styleNames []string) Op {
	return Op{Kind: OpDisconnectByKey, Entity: entity, Target: Selector{ID: owner}, StyleNames: styleNames}
}

// CorrelateCreated walks a create response alongside its request and
// resolves every server-assigned id into the bound buffer slot. Refs echoed
// by the transport win; when a response node carries no ref the request
// node at the same position is used, which is sound because the batch is
// built and consumed atomically within one save.
func CorrelateCreated(req *CreateNode, res *CreatedNode, refs *RefTable) error {
	if res == nil {
		return fmt.Errorf("mutation: create response missing created node")
	}
	ref := res.Ref
	if ref == "" && req != nil {
		ref = req.Ref
	}
	if ref == "" || !refs.Resolve(ref, res.ID) {
		return fmt.Errorf("mutation: cannot correlate created node %s", res.ID)
	}
	if req != nil && len(res.Children) != len(req.Children) {
		return fmt.Errorf("mutation: create response shape mismatch: got %d children, sent %d",
			len(res.Children), len(req.Children))
	}
	for i := range res.Children {
		var reqChild *CreateNode
		if req != nil {
			reqChild = &req.Children[i]
		}
		if err := CorrelateCreated(reqChild, &res.Children[i], refs); err != nil {
			return err
		}
	}
	return nil
}
