// Package mutation defines the operation vocabulary spoken to the mutation
// transport and translates reconciliation output into it. It carries no
// business logic: the reconcile/relation layers decide what changes, this
// package only shapes the payloads.
package mutation

import (
	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
)

// OpKind enumerates the operation vocabulary.
type OpKind string

const (
	OpCreateWithNested   OpKind = "create_with_nested"
	OpUpdateScalarFields OpKind = "update_scalar_fields"
	OpDeleteCascading    OpKind = "delete_cascading"
	OpConnectExisting    OpKind = "connect_existing"
	OpConnectOrCreate    OpKind = "connect_or_create"
	OpDisconnectAll      OpKind = "disconnect_all"
	OpDisconnectByKey    OpKind = "disconnect_by_key"
)

// EntityType names the aggregate node kinds the transport understands.
type EntityType string

const (
	EntityEvent   EntityType = "event"
	EntitySection EntityType = "section"
	EntityBracket EntityType = "bracket"
	EntityCard    EntityType = "card"
)

// Selector targets an entity either by persisted uuid or by natural key.
type Selector struct {
	ID    idwrap.ID         `json:"id,omitempty"`
	Where map[string]string `json:"where,omitempty"`
}

// RoleConnect lists the full member set to connect under one role name.
type RoleConnect struct {
	Role      string   `json:"role"`
	Usernames []string `json:"usernames"`
}

// CreateNode is one node of a nested create tree. Ref is the client
// correlation token the transport echoes back alongside the server id;
// within one batch the node order is also preserved, so array position
// remains a valid fallback correlation.
type CreateNode struct {
	Ref      idwrap.Ref     `json:"ref,omitempty"`
	Entity   EntityType     `json:"entity"`
	Fields   map[string]any `json:"fields"`
	Roles    []RoleConnect  `json:"roles,omitempty"`
	Styles   []string       `json:"styles,omitempty"`
	Children []CreateNode   `json:"children,omitempty"`
}

// Op is one transport operation. Exactly one of the kind-specific field
// groups is populated, matching Kind.
type Op struct {
	Kind   OpKind     `json:"kind"`
	Entity EntityType `json:"entity,omitempty"`

	// Target selects the entity an update/delete/edge op applies to.
	Target Selector `json:"target,omitempty"`

	// Parent owns the node a create op introduces; nil for root creates.
	Parent       *Selector  `json:"parent,omitempty"`
	ParentEntity EntityType `json:"parentEntity,omitempty"`

	Fields map[string]any `json:"fields,omitempty"`
	Create *CreateNode    `json:"create,omitempty"`

	// Role edge ops.
	Role      string   `json:"role,omitempty"`
	Usernames []string `json:"usernames,omitempty"`

	// Style edge ops (natural key: style name).
	StyleNames []string `json:"styleNames,omitempty"`
}

// CreatedNode mirrors a CreateNode in a success response: the transport
// returns server ids in the same nesting shape as the request.
type CreatedNode struct {
	Ref      idwrap.Ref    `json:"ref,omitempty"`
	ID       idwrap.ID     `json:"id"`
	Children []CreatedNode `json:"children,omitempty"`
}

// Result is the success payload of one dispatched Op.
type Result struct {
	Created *CreatedNode `json:"created,omitempty"`
}
