package services

import (
	"sync"

	"summitpass/internal/store"
)

// StreamEvent is one message pushed to a connected client.
type StreamEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client is one subscriber of the live change stream.
type Client struct {
	ch chan StreamEvent
}

// Chan returns the client's receive channel. It is closed on unregister.
func (c *Client) Chan() <-chan StreamEvent {
	return c.ch
}

// Broadcaster fans applied store changes out to connected SSE clients.
// A client that stops reading loses events rather than blocking the rest.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: map[*Client]struct{}{}}
}

// RegisterClient adds a subscriber.
func (b *Broadcaster) RegisterClient() *Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	client := &Client{ch: make(chan StreamEvent, 16)}
	b.clients[client] = struct{}{}
	return client
}

// UnregisterClient removes a subscriber and closes its channel.
func (b *Broadcaster) UnregisterClient(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.ch)
	}
}

// Publish delivers an event to every connected client.
func (b *Broadcaster) Publish(evt StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.ch <- evt:
		default:
		}
	}
}

// PublishChange forwards an applied store event to connected clients. The
// admin password never leaves the process this way: global payloads hide
// it at the JSON layer.
func (b *Broadcaster) PublishChange(evt store.Event) {
	b.Publish(StreamEvent{Type: string(evt.Kind) + ":" + string(evt.Op), Data: evt})
}
