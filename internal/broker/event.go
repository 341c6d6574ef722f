package broker

import (
	"context"
	"time"
)

type EventType string

const (
	EventCreated     EventType = "created"
	EventUpdated     EventType = "updated"
	EventSoftDeleted EventType = "soft_deleted"
	EventHardDeleted EventType = "hard_deleted"
)

// Event describes one committed lifecycle transition.
// TouristID is the owner for tourist and visit events, nil for countries.
type Event struct {
	Type      EventType `json:"type"`
	Entity    string    `json:"entity"`
	EntityID  uint      `json:"entity_id"`
	TouristID *uint     `json:"tourist_id,omitempty"`
	Hard      bool      `json:"hard"`
	Cascaded  int64     `json:"cascaded"`
	At        time.Time `json:"at"`
}

// EventBroker fans lifecycle events out to feed subscribers
type EventBroker interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe delivers events until ctx is cancelled, then closes the channel
	Subscribe(ctx context.Context) (<-chan Event, error)
	Close() error
}
