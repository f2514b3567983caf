package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateTickets_DistinctAndInRange(t *testing.T) {
	got, err := allocateTickets(map[int]bool{})
	require.NoError(t, err)
	require.Len(t, got, TicketsPerUser)

	seen := make(map[int]bool)
	for _, n := range got {
		assert.GreaterOrEqual(t, n, TicketMin)
		assert.LessOrEqual(t, n, TicketMax)
		assert.False(t, seen[n], "ticket %d issued twice in one batch", n)
		seen[n] = true
	}
}

func TestAllocateTickets_AvoidsUsedNumbers(t *testing.T) {
	used := make(map[int]bool)
	for n := 1; n <= 990; n++ {
		used[n] = true
	}

	got, err := allocateTickets(used)
	require.NoError(t, err)
	require.Len(t, got, TicketsPerUser)
	for _, n := range got {
		assert.False(t, used[n], "ticket %d was already issued", n)
	}
}

func TestAllocateTickets_ExactRemainderFallback(t *testing.T) {
	// Only three numbers left: allocation must return exactly those.
	used := make(map[int]bool)
	for n := TicketMin; n <= TicketMax; n++ {
		used[n] = true
	}
	delete(used, 5)
	delete(used, 10)
	delete(used, 15)

	got, err := allocateTickets(used)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{5, 10, 15}, got)
}

func TestAllocateTickets_PoolExhausted(t *testing.T) {
	used := make(map[int]bool)
	for n := TicketMin; n <= TicketMax-2; n++ {
		used[n] = true
	}

	_, err := allocateTickets(used)
	assert.ErrorIs(t, err, ErrTicketPoolExhausted)
}
