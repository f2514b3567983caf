package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/logger"

	"summitpass/internal/cache"
	"summitpass/internal/models"
	"summitpass/internal/store"
)

// DrawSlots is the number of independent lottery rounds.
const DrawSlots = 3

const defaultSpinDuration = 4 * time.Second

var (
	ErrInvalidSlot       = errors.New("draw slot must be between 1 and 3")
	ErrDrawActive        = errors.New("a draw is already in progress")
	ErrSlotAlreadyWon    = errors.New("this draw already has a recorded winner")
	ErrNoUsers           = errors.New("no registered users")
	ErrNoEligibleTickets = errors.New("every registered user already won a prize")
)

// LotteryService runs the three-slot lottery. Each slot moves
// Empty -> Spinning -> Won, and back to Empty only via an explicit reset.
// The service is the single lottery writer: it keeps the authoritative
// lottery state, persists every transition to the store, and lets the
// change feed carry it to clients.
type LotteryService struct {
	mu    sync.Mutex
	store store.Store
	cache *cache.Cache
	spin  time.Duration
	lot   models.LotteryState
	timer *time.Timer
}

// NewLotteryService creates the service, seeding its state from the cache.
// Call after the cache has loaded its initial snapshot. A non-positive
// spin duration falls back to the default 4 seconds.
func NewLotteryService(st store.Store, c *cache.Cache, spin time.Duration) *LotteryService {
	if spin <= 0 {
		spin = defaultSpinDuration
	}
	lot := c.Global().Lottery
	if lot.Results == nil {
		lot.Results = map[int]int{}
	}
	return &LotteryService{store: st, cache: c, spin: spin, lot: lot}
}

// State returns a copy of the current lottery state.
func (s *LotteryService) State() models.LotteryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot := s.lot
	lot.Results = lot.ResultsCopy()
	return lot
}

// StartDraw begins the draw for slot n. It is rejected while any draw is
// active or when slot n already has a winner. After the spin pause, one
// ticket is selected uniformly from the eligible pool and recorded under
// slot n. Users holding a previously winning ticket are excluded.
func (s *LotteryService) StartDraw(ctx context.Context, n int) error {
	if n < 1 || n > DrawSlots {
		return ErrInvalidSlot
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lot.Active {
		return ErrDrawActive
	}
	if _, won := s.lot.Results[n]; won {
		return ErrSlotAlreadyWon
	}

	users := s.cache.Users()
	pool := eligibleTickets(users, s.lot.Results)
	if len(pool) == 0 {
		if len(users) == 0 {
			return ErrNoUsers
		}
		return ErrNoEligibleTickets
	}

	next := s.lot
	next.Results = next.ResultsCopy()
	next.Active = true
	next.CurrentDraw = n
	next.IsSpinning = true
	next.Winner = 0
	if err := s.store.UpdateLottery(ctx, next); err != nil {
		logger.Errorf("start draw %d: %v", n, err)
		return err
	}
	s.lot = next

	// The spin is presentation pacing only. Resetting the active slot or
	// closing the lottery before it fires cancels the selection.
	s.timer = time.AfterFunc(s.spin, func() { s.finishDraw(n, pool) })
	return nil
}

func (s *LotteryService) finishDraw(n int, pool []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lot.Active || s.lot.CurrentDraw != n || !s.lot.IsSpinning {
		return
	}

	winner := pool[rand.Intn(len(pool))]
	next := s.lot
	next.Results = next.ResultsCopy()
	next.IsSpinning = false
	next.Winner = winner
	next.Results[n] = winner
	if err := s.store.UpdateLottery(context.Background(), next); err != nil {
		logger.Errorf("record draw %d winner: %v", n, err)
		return
	}
	s.lot = next
}

// ResetDraw removes slot n's recorded winner, making its holder's tickets
// eligible again. If slot n is the active draw, the lottery also returns
// to idle and any pending selection is cancelled.
func (s *LotteryService) ResetDraw(ctx context.Context, n int) error {
	if n < 1 || n > DrawSlots {
		return ErrInvalidSlot
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.lot
	next.Results = next.ResultsCopy()
	delete(next.Results, n)
	if s.lot.CurrentDraw == n {
		s.stopTimer()
		next.Active = false
		next.CurrentDraw = 0
		next.Winner = 0
		next.IsSpinning = false
	}
	if err := s.store.UpdateLottery(ctx, next); err != nil {
		logger.Errorf("reset draw %d: %v", n, err)
		return err
	}
	s.lot = next
	return nil
}

// CloseLottery returns the lottery to idle while preserving every recorded
// per-slot result. A pending selection is cancelled.
func (s *LotteryService) CloseLottery(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimer()
	next := s.lot
	next.Results = next.ResultsCopy()
	next.Active = false
	next.CurrentDraw = 0
	next.Winner = 0
	next.IsSpinning = false
	if err := s.store.UpdateLottery(ctx, next); err != nil {
		logger.Errorf("close lottery: %v", err)
		return err
	}
	s.lot = next
	return nil
}

func (s *LotteryService) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// eligibleTickets flattens the ticket numbers of every user who does not
// hold a ticket recorded among any slot's winners.
func eligibleTickets(users []models.User, results map[int]int) []int {
	winning := make(map[int]bool, len(results))
	for _, ticket := range results {
		winning[ticket] = true
	}

	var pool []int
	for _, u := range users {
		prior := false
		for _, num := range u.TicketNumbers {
			if winning[num] {
				prior = true
				break
			}
		}
		if prior {
			continue
		}
		pool = append(pool, u.TicketNumbers...)
	}
	return pool
}
