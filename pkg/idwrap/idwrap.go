package idwrap

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ID wraps an entity uuid. The zero value means "locally created, not yet
// persisted" and must never be sent to the backend as an identifier.
//
// Client uuids are generated at creation time (crypto/rand via google/uuid)
// so an entity keeps one identity across edit/save cycles.
type ID struct {
	uuid uuid.UUID
}

func New(u uuid.UUID) ID {
	return ID{uuid: u}
}

// NewNow returns a fresh, globally unique ID.
func NewNow() ID {
	return ID{uuid: uuid.New()}
}

func NewText(s string) (ID, error) {
	if s == "" {
		return ID{}, nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, err
	}
	return ID{uuid: u}, nil
}

func NewTextMust(s string) ID {
	id, err := NewText(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether the entity has no persisted identity yet.
func (i ID) IsZero() bool {
	return i.uuid == uuid.UUID{}
}

// String renders the uuid, or "" for the zero (unpersisted) ID.
func (i ID) String() string {
	if i.IsZero() {
		return ""
	}
	return i.uuid.String()
}

func (i ID) GetUUID() uuid.UUID {
	return i.uuid
}

func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *ID) UnmarshalText(data []byte) error {
	id, err := NewText(string(data))
	if err != nil {
		return err
	}
	*i = id
	return nil
}

// Value implements driver.Valuer. Zero IDs are stored as NULL, never "".
func (i ID) Value() (driver.Value, error) {
	if i.IsZero() {
		return nil, nil
	}
	return i.uuid.String(), nil
}

func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = ID{}
		return nil
	case string:
		id, err := NewText(v)
		if err != nil {
			return err
		}
		*i = id
		return nil
	case []byte:
		id, err := NewText(string(v))
		if err != nil {
			return err
		}
		*i = id
		return nil
	default:
		return fmt.Errorf("idwrap: cannot scan %T", src)
	}
}

// Ref is a client-supplied correlation token attached to each node of a
// create batch. The transport echoes it back with the server-assigned id so
// the merge step does not have to rely on array position alone.
type Ref string

// NewRef returns a fresh monotonic-ish correlation token.
func NewRef() Ref {
	return Ref(ulid.Make().String())
}

func (r Ref) String() string {
	return string(r)
}
