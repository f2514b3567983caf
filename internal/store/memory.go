package store

import (
	"context"
	"sync"

	"summitpass/internal/models"
)

// DefaultGlobalState is the seed value for the singleton global row:
// normal display mode, idle lottery, the given admin password.
func DefaultGlobalState(password string) models.GlobalState {
	return models.GlobalState{
		AppState: models.AppStateNormal,
		Lottery:  models.LotteryState{Results: map[int]int{}},

		AdminPassword: password,
	}
}

// MemoryStore is an in-process Store with the same publish semantics as the
// SQLite store. Used by tests and database-less local runs.
type MemoryStore struct {
	mu       sync.Mutex
	users    []models.User
	sponsors []models.Sponsor
	global   models.GlobalState
	feed     *Feed
}

// NewMemoryStore creates a store seeded with the default global row.
func NewMemoryStore(adminPassword string) *MemoryStore {
	return &MemoryStore{
		global: DefaultGlobalState(adminPassword),
		feed:   NewFeed(),
	}
}

func (m *MemoryStore) Feed() *Feed { return m.feed }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) SnapshotUsers(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, len(m.users))
	for i, u := range m.users {
		out[i] = cloneUser(u)
	}
	return out, nil
}

func (m *MemoryStore) SnapshotSponsors(_ context.Context) ([]models.Sponsor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Sponsor, len(m.sponsors))
	copy(out, m.sponsors)
	return out, nil
}

func (m *MemoryStore) SnapshotGlobalState(_ context.Context) (models.GlobalState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneGlobal(m.global), nil
}

func (m *MemoryStore) InsertUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	m.users = append(m.users, cloneUser(u))
	m.mu.Unlock()

	row := cloneUser(u)
	m.feed.Publish(Event{Kind: KindUsers, Op: OpInsert, User: &row})
	return nil
}

func (m *MemoryStore) SetUserStatus(_ context.Context, id string, status models.UserStatus) error {
	m.mutateUser(id, func(u *models.User) {
		u.Status = status
	})
	return nil
}

func (m *MemoryStore) CheckInUser(_ context.Context, id string) error {
	m.mutateUser(id, func(u *models.User) {
		u.CheckedIn = true
		u.Status = models.StatusApproved
	})
	return nil
}

func (m *MemoryStore) SetVisitedStands(_ context.Context, id string, stands []string) error {
	m.mutateUser(id, func(u *models.User) {
		u.VisitedStands = append([]string(nil), stands...)
	})
	return nil
}

// mutateUser applies fn to the matching row and publishes the updated row.
// A missing id is a benign no-op, matching remote update-by-id semantics.
func (m *MemoryStore) mutateUser(id string, fn func(*models.User)) {
	m.mu.Lock()
	var updated *models.User
	for i := range m.users {
		if m.users[i].ID == id {
			fn(&m.users[i])
			row := cloneUser(m.users[i])
			updated = &row
			break
		}
	}
	m.mu.Unlock()

	if updated != nil {
		m.feed.Publish(Event{Kind: KindUsers, Op: OpUpdate, User: updated})
	}
}

func (m *MemoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	deleted := false
	for i := range m.users {
		if m.users[i].ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			deleted = true
			break
		}
	}
	m.mu.Unlock()

	if deleted {
		m.feed.Publish(Event{Kind: KindUsers, Op: OpDelete, ID: id})
	}
	return nil
}

func (m *MemoryStore) InsertSponsor(_ context.Context, s models.Sponsor) error {
	m.mu.Lock()
	m.sponsors = append(m.sponsors, s)
	m.mu.Unlock()

	row := s
	m.feed.Publish(Event{Kind: KindSponsors, Op: OpInsert, Sponsor: &row})
	return nil
}

func (m *MemoryStore) DeleteSponsor(_ context.Context, id string) error {
	m.mu.Lock()
	deleted := false
	for i := range m.sponsors {
		if m.sponsors[i].ID == id {
			m.sponsors = append(m.sponsors[:i], m.sponsors[i+1:]...)
			deleted = true
			break
		}
	}
	m.mu.Unlock()

	if deleted {
		m.feed.Publish(Event{Kind: KindSponsors, Op: OpDelete, ID: id})
	}
	return nil
}

func (m *MemoryStore) SetAppState(_ context.Context, state models.AppState) error {
	m.mutateGlobal(func(g *models.GlobalState) {
		g.AppState = state
	})
	return nil
}

func (m *MemoryStore) SetAdminPassword(_ context.Context, password string) error {
	m.mutateGlobal(func(g *models.GlobalState) {
		g.AdminPassword = password
	})
	return nil
}

func (m *MemoryStore) SetEventImage(_ context.Context, imageBase64 string) error {
	m.mutateGlobal(func(g *models.GlobalState) {
		g.EventImageBase64 = imageBase64
	})
	return nil
}

func (m *MemoryStore) UpdateLottery(_ context.Context, lot models.LotteryState) error {
	m.mutateGlobal(func(g *models.GlobalState) {
		g.Lottery = models.LotteryState{
			Active:      lot.Active,
			CurrentDraw: lot.CurrentDraw,
			Winner:      lot.Winner,
			IsSpinning:  lot.IsSpinning,
			Results:     lot.ResultsCopy(),
		}
	})
	return nil
}

func (m *MemoryStore) mutateGlobal(fn func(*models.GlobalState)) {
	m.mu.Lock()
	fn(&m.global)
	row := cloneGlobal(m.global)
	m.mu.Unlock()

	m.feed.Publish(Event{Kind: KindGlobal, Op: OpUpdate, Global: &row})
}

func cloneUser(u models.User) models.User {
	u.TicketNumbers = append([]int(nil), u.TicketNumbers...)
	u.VisitedStands = append([]string(nil), u.VisitedStands...)
	return u
}

func cloneGlobal(g models.GlobalState) models.GlobalState {
	g.Lottery.Results = g.Lottery.ResultsCopy()
	return g
}
