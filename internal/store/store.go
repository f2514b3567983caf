package store

import (
	"context"

	"summitpass/internal/models"
)

// Store is the remote relational backend holding the users, sponsors and
// global_state tables. Every successful write publishes a change event on
// the store's feed; readers that need a live view consume the feed rather
// than polling.
type Store interface {
	// Snapshot reads. An empty table yields an empty slice, not an error.
	SnapshotUsers(ctx context.Context) ([]models.User, error)
	SnapshotSponsors(ctx context.Context) ([]models.Sponsor, error)
	SnapshotGlobalState(ctx context.Context) (models.GlobalState, error)

	// User writes. The targeted updates mirror the columns each admin
	// action touches; updating or deleting a missing row is a benign
	// no-op that publishes nothing.
	InsertUser(ctx context.Context, u models.User) error
	SetUserStatus(ctx context.Context, id string, status models.UserStatus) error
	CheckInUser(ctx context.Context, id string) error
	SetVisitedStands(ctx context.Context, id string, stands []string) error
	DeleteUser(ctx context.Context, id string) error

	InsertSponsor(ctx context.Context, s models.Sponsor) error
	DeleteSponsor(ctx context.Context, id string) error

	// Global-state writes target the singleton row.
	SetAppState(ctx context.Context, state models.AppState) error
	SetAdminPassword(ctx context.Context, password string) error
	SetEventImage(ctx context.Context, imageBase64 string) error
	UpdateLottery(ctx context.Context, lot models.LotteryState) error

	// Feed returns the store's change feed.
	Feed() *Feed

	Close() error
}
