package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"summitpass/internal/models"
)

const testSpin = 10 * time.Millisecond

func newLotteryEnv(t *testing.T, spin time.Duration) (*testEnv, *LotteryService) {
	t.Helper()
	env := newTestEnv(t)
	env.insertUser(t, "u-a", "A", "a@example.com", []int{5, 10, 15})
	env.insertUser(t, "u-b", "B", "b@example.com", []int{20, 25, 30})
	env.reload(t)
	return env, NewLotteryService(env.store, env.cache, spin)
}

// waitForWinner blocks until slot n has a recorded result.
func waitForWinner(t *testing.T, svc *LotteryService, n int) int {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := svc.State().Results[n]
		return ok
	}, 2*time.Second, time.Millisecond)
	return svc.State().Results[n]
}

func TestStartDraw_RecordsWinnerFromPool(t *testing.T) {
	_, svc := newLotteryEnv(t, testSpin)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	st := svc.State()
	assert.True(t, st.Active)
	assert.True(t, st.IsSpinning)
	assert.Equal(t, 1, st.CurrentDraw)
	assert.Zero(t, st.Winner)

	winner := waitForWinner(t, svc, 1)
	assert.Contains(t, []int{5, 10, 15, 20, 25, 30}, winner)

	st = svc.State()
	assert.False(t, st.IsSpinning)
	assert.Equal(t, winner, st.Winner)
}

func TestStartDraw_ExcludesPriorWinners(t *testing.T) {
	_, svc := newLotteryEnv(t, testSpin)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	first := waitForWinner(t, svc, 1)
	require.NoError(t, svc.CloseLottery(t.Context()))

	loserTickets := []int{5, 10, 15}
	if first <= 15 {
		loserTickets = []int{20, 25, 30}
	}

	require.NoError(t, svc.StartDraw(t.Context(), 2))
	second := waitForWinner(t, svc, 2)
	assert.Contains(t, loserTickets, second,
		"slot 2 must only draw from the user who did not win slot 1")
}

func TestStartDraw_RejectedWhileActive(t *testing.T) {
	_, svc := newLotteryEnv(t, time.Minute)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	assert.ErrorIs(t, svc.StartDraw(t.Context(), 2), ErrDrawActive)

	require.NoError(t, svc.CloseLottery(t.Context()))
}

func TestStartDraw_RejectedWhenSlotAlreadyWon(t *testing.T) {
	_, svc := newLotteryEnv(t, testSpin)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	waitForWinner(t, svc, 1)
	require.NoError(t, svc.CloseLottery(t.Context()))

	assert.ErrorIs(t, svc.StartDraw(t.Context(), 1), ErrSlotAlreadyWon)
}

func TestStartDraw_InvalidSlot(t *testing.T) {
	_, svc := newLotteryEnv(t, testSpin)
	assert.ErrorIs(t, svc.StartDraw(t.Context(), 0), ErrInvalidSlot)
	assert.ErrorIs(t, svc.StartDraw(t.Context(), 4), ErrInvalidSlot)
}

func TestStartDraw_NoUsers(t *testing.T) {
	env := newTestEnv(t)
	svc := NewLotteryService(env.store, env.cache, testSpin)
	assert.ErrorIs(t, svc.StartDraw(t.Context(), 1), ErrNoUsers)
}

func TestStartDraw_AllUsersAlreadyWon(t *testing.T) {
	env := newTestEnv(t)
	env.insertUser(t, "u-a", "A", "a@example.com", []int{5, 10, 15})
	env.reload(t)
	svc := NewLotteryService(env.store, env.cache, testSpin)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	waitForWinner(t, svc, 1)
	require.NoError(t, svc.CloseLottery(t.Context()))

	assert.ErrorIs(t, svc.StartDraw(t.Context(), 2), ErrNoEligibleTickets)
}

func TestResetDraw_RestoresEligibility(t *testing.T) {
	env := newTestEnv(t)
	env.insertUser(t, "u-a", "A", "a@example.com", []int{5, 10, 15})
	env.reload(t)
	svc := NewLotteryService(env.store, env.cache, testSpin)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	waitForWinner(t, svc, 1)
	require.NoError(t, svc.CloseLottery(t.Context()))

	require.NoError(t, svc.ResetDraw(t.Context(), 1))
	assert.Empty(t, svc.State().Results)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	winner := waitForWinner(t, svc, 1)
	assert.Contains(t, []int{5, 10, 15}, winner)
}

func TestResetDraw_ActiveSlotReturnsToIdle(t *testing.T) {
	_, svc := newLotteryEnv(t, 200*time.Millisecond)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	require.NoError(t, svc.ResetDraw(t.Context(), 1))

	st := svc.State()
	assert.False(t, st.Active)
	assert.False(t, st.IsSpinning)
	assert.Zero(t, st.CurrentDraw)
	assert.Zero(t, st.Winner)

	// The pending selection was cancelled with the reset.
	time.Sleep(500 * time.Millisecond)
	assert.Empty(t, svc.State().Results)
}

func TestResetDraw_InactiveSlotKeepsLotteryRunning(t *testing.T) {
	_, svc := newLotteryEnv(t, testSpin)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	waitForWinner(t, svc, 1)
	require.NoError(t, svc.CloseLottery(t.Context()))
	require.NoError(t, svc.StartDraw(t.Context(), 2))
	waitForWinner(t, svc, 2)

	// Slot 1 is not the active draw; resetting it only clears its result.
	require.NoError(t, svc.ResetDraw(t.Context(), 1))
	st := svc.State()
	_, slot1 := st.Results[1]
	_, slot2 := st.Results[2]
	assert.False(t, slot1)
	assert.True(t, slot2)
	assert.Equal(t, 2, st.CurrentDraw)
}

func TestCloseLottery_KeepsRecordedResults(t *testing.T) {
	_, svc := newLotteryEnv(t, testSpin)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	waitForWinner(t, svc, 1)
	require.NoError(t, svc.CloseLottery(t.Context()))

	st := svc.State()
	assert.False(t, st.Active)
	assert.Zero(t, st.CurrentDraw)
	assert.Zero(t, st.Winner)
	assert.Len(t, st.Results, 1)
}

func TestCloseLottery_CancelsPendingSelection(t *testing.T) {
	_, svc := newLotteryEnv(t, 200*time.Millisecond)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	require.NoError(t, svc.CloseLottery(t.Context()))

	time.Sleep(500 * time.Millisecond)
	assert.Empty(t, svc.State().Results)
	assert.False(t, svc.State().Active)
}

func TestEligibleTickets_ExcludesWinningTicketHolders(t *testing.T) {
	users := []models.User{
		{ID: "u-a", TicketNumbers: []int{5, 10, 15}},
		{ID: "u-b", TicketNumbers: []int{20, 25, 30}},
	}

	pool := eligibleTickets(users, map[int]int{1: 10})
	assert.ElementsMatch(t, []int{20, 25, 30}, pool,
		"holder of winning ticket 10 must be excluded entirely")

	pool = eligibleTickets(users, map[int]int{})
	assert.ElementsMatch(t, []int{5, 10, 15, 20, 25, 30}, pool)

	pool = eligibleTickets(users, map[int]int{1: 10, 2: 25})
	assert.Empty(t, pool)
}

func TestLotteryStatePersistedToStore(t *testing.T) {
	env, svc := newLotteryEnv(t, testSpin)

	require.NoError(t, svc.StartDraw(t.Context(), 1))
	winner := waitForWinner(t, svc, 1)

	g, err := env.store.SnapshotGlobalState(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, winner, g.Lottery.Results[1])
	assert.Equal(t, winner, g.Lottery.Winner)
	assert.False(t, g.Lottery.IsSpinning)
	assert.True(t, g.Lottery.Active)
}
