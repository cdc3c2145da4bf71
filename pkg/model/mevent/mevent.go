package mevent

import (
	"fmt"

	"github.com/BenTheChi/dance-chives-sub002/pkg/idwrap"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/mperson"
	"github.com/BenTheChi/dance-chives-sub002/pkg/model/msection"
)

// Event is the root aggregate: one dance gathering with its ordered
// Sections and event-level organizer edges.
type Event struct {
	ID idwrap.ID

	Title         string
	Date          string
	Address       string
	Cost          string
	Description   string
	ImageURL      string
	PromoVideoURL string

	Organizers []mperson.Person
	Sections   []msection.Section
}

// ScalarFields returns the persisted scalar fields of the event itself.
func (e Event) ScalarFields() map[string]any {
	return map[string]any{
		"title":         e.Title,
		"date":          e.Date,
		"address":       e.Address,
		"cost":          e.Cost,
		"description":   e.Description,
		"imageUrl":      e.ImageURL,
		"promoVideoUrl": e.PromoVideoURL,
	}
}

// ScalarEqual compares persisted event scalars only.
func ScalarEqual(old, new Event) bool {
	return old.Title == new.Title &&
		old.Date == new.Date &&
		old.Address == new.Address &&
		old.Cost == new.Cost &&
		old.Description == new.Description &&
		old.ImageURL == new.ImageURL &&
		old.PromoVideoURL == new.PromoVideoURL
}

// Validate checks required fields and recursively validates sections.
// It must pass before any mutation is dispatched.
func (e Event) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("mevent: title is required")
	}
	for i := range e.Sections {
		if err := e.Sections[i].Validate(); err != nil {
			return fmt.Errorf("mevent: section %d: %w", i, err)
		}
	}
	return nil
}

// FindSection returns a pointer to the section with the given id, or nil.
func (e *Event) FindSection(id idwrap.ID) *msection.Section {
	for i := range e.Sections {
		if e.Sections[i].ID == id {
			return &e.Sections[i]
		}
	}
	return nil
}
