package models

import "time"

type RoundStatus string

const (
	RoundUpcoming   RoundStatus = "UPCOMING"
	RoundInProgress RoundStatus = "IN_PROGRESS"
	RoundCompleted  RoundStatus = "COMPLETED"
)

// Round is unique per (TournamentID, RoundNumber).
type Round struct {
	ID           int         `json:"id"`
	TournamentID int         `json:"tournament_id"`
	RoundNumber  int         `json:"round_number"`
	Status       RoundStatus `json:"status"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// CurrentRound returns the highest round number in the list, 0 for an empty list.
func CurrentRound(rounds []*Round) int {
	current := 0
	for _, r := range rounds {
		if r != nil && r.RoundNumber > current {
			current = r.RoundNumber
		}
	}
	return current
}

// CompletedRounds counts rounds that reached COMPLETED.
func CompletedRounds(rounds []*Round) int {
	n := 0
	for _, r := range rounds {
		if r != nil && r.Status == RoundCompleted {
			n++
		}
	}
	return n
}

// RoundsSoFar is the number of rounds created so far.
func RoundsSoFar(rounds []*Round) int {
	return len(rounds)
}
