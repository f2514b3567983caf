package store

import (
	"sync"

	"github.com/google/logger"

	"summitpass/internal/models"
)

// Kind identifies which table a change event belongs to.
type Kind string

const (
	KindUsers    Kind = "users"
	KindSponsors Kind = "sponsors"
	KindGlobal   Kind = "global_state"
)

// Op is the change operation carried by an event.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is one tagged change notification. Insert and update events carry
// the full new row for their kind; delete events carry only the row id.
type Event struct {
	Kind Kind `json:"kind"`
	Op   Op   `json:"op"`

	User    *models.User        `json:"user,omitempty"`
	Sponsor *models.Sponsor     `json:"sponsor,omitempty"`
	Global  *models.GlobalState `json:"global,omitempty"`
	ID      string              `json:"id,omitempty"`
}

// Feed fans change events out to subscribers. Delivery is FIFO per entity
// kind; there is no ordering guarantee across kinds. A subscriber that
// stops draining its channel loses events once its buffer fills — the feed
// never blocks a publisher.
type Feed struct {
	mu   sync.Mutex
	subs map[Kind][]chan Event
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[Kind][]chan Event)}
}

// Subscribe registers a buffered subscription for one entity kind.
func (f *Feed) Subscribe(kind Kind, buffer int) <-chan Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan Event, buffer)
	f.subs[kind] = append(f.subs[kind], ch)
	return ch
}

// Publish delivers an event to every subscriber of its kind.
func (f *Feed) Publish(evt Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[evt.Kind] {
		select {
		case ch <- evt:
		default:
			logger.Errorf("feed: dropping %s/%s event for a slow subscriber", evt.Kind, evt.Op)
		}
	}
}
