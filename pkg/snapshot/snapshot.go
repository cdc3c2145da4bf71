// Package snapshot defines the loader seam returning the last-confirmed
// server representation of an Event.
package snapshot

import (
	"context"

	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mevent"
)

// Loader returns the fully expanded committed tree for an event: sections,
// brackets, cards, and their role and style edges, ordered by their order
// indices. A missing event yields a transport.Error with CodeNotFound.
type Loader interface {
	LoadEvent(ctx context.Context, id idwrap.ID) (*mevent.Event, error)
}
