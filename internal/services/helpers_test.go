package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"summitpass/internal/cache"
	"summitpass/internal/models"
	"summitpass/internal/store"
)

// testEnv wires a memory store and a snapshot-only cache. Tests resync the
// cache explicitly with reload, keeping every assertion deterministic.
type testEnv struct {
	ctx    context.Context
	store  *store.MemoryStore
	cache  *cache.Cache
	events *EventService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore("SMTsec2026")
	c := cache.New(st)
	require.NoError(t, c.Load(ctx))
	return &testEnv{ctx: ctx, store: st, cache: c, events: NewEventService(st, c)}
}

// reload refreshes the cache from a fresh store snapshot.
func (e *testEnv) reload(t *testing.T) {
	t.Helper()
	require.NoError(t, e.cache.Load(e.ctx))
}

// insertUser writes a user row directly to the store.
func (e *testEnv) insertUser(t *testing.T, id, name, email string, tickets []int) models.User {
	t.Helper()
	u := models.User{
		ID:               id,
		Name:             name,
		Email:            email,
		TicketNumbers:    tickets,
		RegistrationDate: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Status:           models.StatusPending,
		VisitedStands:    []string{},
	}
	require.NoError(t, e.store.InsertUser(e.ctx, u))
	return u
}

// storeUser reads one user row back from the store.
func (e *testEnv) storeUser(t *testing.T, id string) models.User {
	t.Helper()
	users, err := e.store.SnapshotUsers(e.ctx)
	require.NoError(t, err)
	for _, u := range users {
		if u.ID == id {
			return u
		}
	}
	t.Fatalf("user %s not in store", id)
	return models.User{}
}
