package models

import "time"

// AppState is the display mode broadcast to every connected client.
type AppState string

const (
	AppStateNormal AppState = "NORMAL"
	AppStateAttack AppState = "ATTACK"
)

// UserStatus tracks whether an admin has approved a registration.
type UserStatus string

const (
	StatusPending  UserStatus = "pending"
	StatusApproved UserStatus = "approved"
)

// User is a registered attendee. The remote store is authoritative; every
// in-process copy is a cache entry replaced by store events.
type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Company          string     `json:"company"`
	Phone            string     `json:"phone"`
	TicketNumbers    []int      `json:"ticketNumbers"`
	CheckedIn        bool       `json:"checkedIn"`
	RegistrationDate time.Time  `json:"registrationDate"`
	Status           UserStatus `json:"status"`
	VisitedStands    []string   `json:"visitedStands"`
}

// HasTicket reports whether the user holds the given ticket number.
func (u User) HasTicket(num int) bool {
	for _, n := range u.TicketNumbers {
		if n == num {
			return true
		}
	}
	return false
}

// HasVisited reports whether the user already visited the given stand.
func (u User) HasVisited(standID string) bool {
	for _, s := range u.VisitedStands {
		if s == standID {
			return true
		}
	}
	return false
}

// Sponsor carries a display name and its logo as an opaque encoded blob.
// Sponsors are immutable once created; there is no update operation.
type Sponsor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	LogoBase64 string `json:"logoBase64"`
}

// LotteryState is the shared progress of the three-slot lottery.
// CurrentDraw and Winner use 0 to mean "none".
type LotteryState struct {
	Active      bool        `json:"active"`
	CurrentDraw int         `json:"currentDraw"`
	Winner      int         `json:"winner"`
	IsSpinning  bool        `json:"isSpinning"`
	Results     map[int]int `json:"results"`
}

// ResultsCopy returns a copy of the recorded per-slot winners.
func (l LotteryState) ResultsCopy() map[int]int {
	out := make(map[int]int, len(l.Results))
	for k, v := range l.Results {
		out[k] = v
	}
	return out
}

// GlobalState is the single shared configuration row governing the
// attack-mode display, lottery progress, admin credential and event banner.
type GlobalState struct {
	AppState         AppState     `json:"appState"`
	Lottery          LotteryState `json:"lottery"`
	AdminPassword    string       `json:"-"`
	EventImageBase64 string       `json:"eventImageBase64"`
}

// Stand is one entry of the static sponsor-stand catalog shown to attendees.
type Stand struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
