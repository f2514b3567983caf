// Package cache keeps an in-process read view of the remote store: an
// initial bulk snapshot per table followed by incremental change-feed
// events. The cache is fed exclusively by confirmed store events — domain
// operations never mutate it directly.
package cache

import (
	"context"
	"sync"

	"github.com/google/logger"

	"summitpass/internal/models"
	"summitpass/internal/store"
)

// feedBuffer is the per-kind subscription depth. A consumer lagging past
// this loses events and the cache freezes at its last known state.
const feedBuffer = 256

// Cache is the synchronized read view. All accessors return copies.
type Cache struct {
	mu       sync.RWMutex
	users    []models.User
	sponsors []models.Sponsor
	global   models.GlobalState

	st     store.Store
	notify func(store.Event)
}

// New creates an empty cache over the given store.
func New(st store.Store) *Cache {
	return &Cache{st: st}
}

// OnChange registers a hook invoked after each applied feed event. Must be
// set before Run. The hook runs on the feed consumer goroutines.
func (c *Cache) OnChange(fn func(store.Event)) {
	c.notify = fn
}

// Load populates the cache from a full snapshot of all three tables. A
// table whose fetch fails is logged and left empty; it does not block the
// others and Load still returns nil.
func (c *Cache) Load(ctx context.Context) error {
	users, err := c.st.SnapshotUsers(ctx)
	if err != nil {
		logger.Errorf("cache: users snapshot failed, starting empty: %v", err)
		users = nil
	}
	sponsors, err := c.st.SnapshotSponsors(ctx)
	if err != nil {
		logger.Errorf("cache: sponsors snapshot failed, starting empty: %v", err)
		sponsors = nil
	}
	global, err := c.st.SnapshotGlobalState(ctx)
	if err != nil {
		logger.Errorf("cache: global state snapshot failed, starting empty: %v", err)
		global = models.GlobalState{Lottery: models.LotteryState{Results: map[int]int{}}}
	}
	if global.Lottery.Results == nil {
		global.Lottery.Results = map[int]int{}
	}

	c.mu.Lock()
	c.users = users
	c.sponsors = sponsors
	c.global = global
	c.mu.Unlock()
	return nil
}

// Run subscribes to the change feed and applies events until ctx is done.
// Ordering is FIFO within each entity kind; there is no cross-kind order.
func (c *Cache) Run(ctx context.Context) {
	for _, kind := range []store.Kind{store.KindUsers, store.KindSponsors, store.KindGlobal} {
		ch := c.st.Feed().Subscribe(kind, feedBuffer)
		go c.consume(ctx, ch)
	}
}

func (c *Cache) consume(ctx context.Context, ch <-chan store.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			c.apply(evt)
			if c.notify != nil {
				c.notify(evt)
			}
		}
	}
}

func (c *Cache) apply(evt store.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch evt.Kind {
	case store.KindUsers:
		switch evt.Op {
		case store.OpInsert:
			if evt.User != nil {
				c.users = append(c.users, *evt.User)
			}
		case store.OpUpdate:
			if evt.User == nil {
				return
			}
			for i := range c.users {
				if c.users[i].ID == evt.User.ID {
					c.users[i] = *evt.User
					return
				}
			}
		case store.OpDelete:
			for i := range c.users {
				if c.users[i].ID == evt.ID {
					c.users = append(c.users[:i], c.users[i+1:]...)
					return
				}
			}
		}
	case store.KindSponsors:
		switch evt.Op {
		case store.OpInsert:
			if evt.Sponsor != nil {
				c.sponsors = append(c.sponsors, *evt.Sponsor)
			}
		case store.OpDelete:
			for i := range c.sponsors {
				if c.sponsors[i].ID == evt.ID {
					c.sponsors = append(c.sponsors[:i], c.sponsors[i+1:]...)
					return
				}
			}
		}
	case store.KindGlobal:
		if evt.Op == store.OpUpdate && evt.Global != nil {
			c.global = *evt.Global
		}
	}
}

// Users returns a copy of the cached user list.
func (c *Cache) Users() []models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.User, len(c.users))
	copy(out, c.users)
	return out
}

// UserByID looks a user up in the local cache only. A row present remotely
// but not yet synchronized is reported as absent.
func (c *Cache) UserByID(id string) (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, u := range c.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// Sponsors returns a copy of the cached sponsor list.
func (c *Cache) Sponsors() []models.Sponsor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Sponsor, len(c.sponsors))
	copy(out, c.sponsors)
	return out
}

// Global returns the cached global state.
func (c *Cache) Global() models.GlobalState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g := c.global
	g.Lottery.Results = g.Lottery.ResultsCopy()
	return g
}
