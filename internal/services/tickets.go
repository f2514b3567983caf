package services

import (
	"errors"
	"math/rand"
)

const (
	// TicketMin and TicketMax bound the issued ticket numbers.
	TicketMin = 1
	TicketMax = 999
	// TicketsPerUser is the number of tickets issued per registration.
	TicketsPerUser = 3

	// maxDrawAttempts caps rejection sampling before falling back to an
	// enumeration of the remaining free numbers.
	maxDrawAttempts = 5000
)

// ErrTicketPoolExhausted is returned when fewer than TicketsPerUser numbers
// remain unissued across the whole population.
var ErrTicketPoolExhausted = errors.New("ticket number pool exhausted")

// allocateTickets draws TicketsPerUser distinct numbers from
// [TicketMin, TicketMax] that are not in used. It rejection-samples up to
// maxDrawAttempts and then falls back to a uniform pick from the
// enumerated free set, so allocation always terminates.
func allocateTickets(used map[int]bool) ([]int, error) {
	free := TicketMax - TicketMin + 1 - len(used)
	if free < TicketsPerUser {
		return nil, ErrTicketPoolExhausted
	}

	picked := make([]int, 0, TicketsPerUser)
	inBatch := make(map[int]bool, TicketsPerUser)
	for attempts := 0; len(picked) < TicketsPerUser && attempts < maxDrawAttempts; attempts++ {
		num := rand.Intn(TicketMax-TicketMin+1) + TicketMin
		if used[num] || inBatch[num] {
			continue
		}
		picked = append(picked, num)
		inBatch[num] = true
	}
	if len(picked) == TicketsPerUser {
		return picked, nil
	}

	// Pool nearly exhausted: enumerate what is left and pick from that.
	var remaining []int
	for num := TicketMin; num <= TicketMax; num++ {
		if !used[num] && !inBatch[num] {
			remaining = append(remaining, num)
		}
	}
	rand.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})
	picked = append(picked, remaining[:TicketsPerUser-len(picked)]...)
	return picked, nil
}
