package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"summitpass/internal/cache"
	"summitpass/internal/models"
	"summitpass/internal/store"
)

var (
	// ErrDuplicateEmail rejects a registration whose email is already held
	// by a cached user, compared case-insensitively.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUnknownUser rejects an operation whose user id is not in the
	// local cache, even if a remote row exists but has not synced yet.
	ErrUnknownUser = errors.New("user not found")
)

// EventService implements the validated mutations of the event: attendee
// registration and check-in, stand visits, sponsor and global-state
// management. Every mutation is a write against the remote store; the
// visible cache update arrives through the store's change feed.
type EventService struct {
	store store.Store
	cache *cache.Cache
}

// NewEventService creates the service over the given store and cache.
func NewEventService(st store.Store, c *cache.Cache) *EventService {
	return &EventService{store: st, cache: c}
}

// RegisterUser validates and creates a new attendee with three unique
// lottery ticket numbers, pending status and no check-in.
func (s *EventService) RegisterUser(ctx context.Context, name, email, phone, company string) (models.User, error) {
	users := s.cache.Users()
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return models.User{}, ErrDuplicateEmail
		}
	}

	used := make(map[int]bool)
	for _, u := range users {
		for _, n := range u.TicketNumbers {
			used[n] = true
		}
	}
	tickets, err := allocateTickets(used)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:               uuid.NewString(),
		Name:             name,
		Email:            email,
		Company:          company,
		Phone:            phone,
		TicketNumbers:    tickets,
		CheckedIn:        false,
		RegistrationDate: time.Now().UTC(),
		Status:           models.StatusPending,
		VisitedStands:    []string{},
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		logger.Errorf("register user %s: %v", email, err)
		return models.User{}, err
	}
	return user, nil
}

// ApproveUser marks the user approved. An unknown id is a benign no-op.
func (s *EventService) ApproveUser(ctx context.Context, id string) error {
	return s.store.SetUserStatus(ctx, id, models.StatusApproved)
}

// CheckInUser accredits the user at the entrance: checked in and approved
// in one step. The lookup is against the local cache only.
func (s *EventService) CheckInUser(ctx context.Context, id string) error {
	if _, ok := s.cache.UserByID(id); !ok {
		return ErrUnknownUser
	}
	if err := s.store.CheckInUser(ctx, id); err != nil {
		logger.Errorf("check in user %s: %v", id, err)
		return err
	}
	return nil
}

// DeleteUser removes the user row unconditionally.
func (s *EventService) DeleteUser(ctx context.Context, id string) error {
	return s.store.DeleteUser(ctx, id)
}

// VisitStand records a stand achievement for the user. Visiting a stand
// already on the list succeeds without a write, so the stored list never
// shrinks and never holds duplicates.
func (s *EventService) VisitStand(ctx context.Context, userID, standID string) error {
	user, ok := s.cache.UserByID(userID)
	if !ok {
		return ErrUnknownUser
	}
	if user.HasVisited(standID) {
		return nil
	}
	stands := append(append([]string(nil), user.VisitedStands...), standID)
	return s.store.SetVisitedStands(ctx, userID, stands)
}

// AddSponsor stores a sponsor logo blob. The display name is the portion
// of the file name before the first dot. Size limits are enforced by the
// caller before the blob reaches this operation.
func (s *EventService) AddSponsor(ctx context.Context, fileName, logoBase64 string) (models.Sponsor, error) {
	name := fileName
	if i := strings.Index(fileName, "."); i >= 0 {
		name = fileName[:i]
	}
	sp := models.Sponsor{ID: uuid.NewString(), Name: name, LogoBase64: logoBase64}
	if err := s.store.InsertSponsor(ctx, sp); err != nil {
		logger.Errorf("add sponsor %s: %v", name, err)
		return models.Sponsor{}, err
	}
	return sp, nil
}

// RemoveSponsor deletes the sponsor unconditionally.
func (s *EventService) RemoveSponsor(ctx context.Context, id string) error {
	return s.store.DeleteSponsor(ctx, id)
}

// SetAppState flips the display mode for every connected client.
func (s *EventService) SetAppState(ctx context.Context, state models.AppState) error {
	return s.store.SetAppState(ctx, state)
}

// SetAdminPassword replaces the stored password. It applies to future
// logins only; already issued tokens stay valid.
func (s *EventService) SetAdminPassword(ctx context.Context, password string) error {
	return s.store.SetAdminPassword(ctx, password)
}

// SetEventImage stores the event banner blob on the global row.
func (s *EventService) SetEventImage(ctx context.Context, imageBase64 string) error {
	return s.store.SetEventImage(ctx, imageBase64)
}

// RemoveEventImage clears the event banner.
func (s *EventService) RemoveEventImage(ctx context.Context) error {
	return s.store.SetEventImage(ctx, "")
}
