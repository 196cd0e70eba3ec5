package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type MatchStatus string

const (
	MatchScheduled  MatchStatus = "SCHEDULED"
	MatchInProgress MatchStatus = "IN_PROGRESS"
	MatchCompleted  MatchStatus = "COMPLETED"
)

// MatchKind distinguishes head-to-head matches from KING_OF_THE_HILL group rounds.
type MatchKind string

const (
	MatchPairwise MatchKind = "PAIRWISE"
	MatchGroup    MatchKind = "GROUP"
	MatchFinals   MatchKind = "FINALS"
)

// ScoreBreakdown maps participant ID to per-judge scores.
type ScoreBreakdown map[int]map[string]float64

type Match struct {
	ID                  int            `json:"id"`
	TournamentID        int            `json:"tournament_id"`
	RoundID             int            `json:"round_id"`
	RoundNumber         int            `json:"round_number"`
	OrderInRound        int            `json:"order_in_round"`
	Kind                MatchKind      `json:"kind"`
	Participant1ID      *int           `json:"participant1_id,omitempty"`
	Participant2ID      *int           `json:"participant2_id,omitempty"`
	GroupParticipantIDs []int          `json:"group_participant_ids,omitempty"`
	WinnerID            *int           `json:"winner_id,omitempty"`
	Status              MatchStatus    `json:"status"`
	Participant1Score   *float64       `json:"participant1_score,omitempty"`
	Participant2Score   *float64       `json:"participant2_score,omitempty"`
	ScoreBreakdown      ScoreBreakdown `json:"score_breakdown,omitempty"`
	DebateID            *string        `json:"debate_id,omitempty"`
	DebateRounds        int            `json:"debate_rounds"`
	CreatedAt           time.Time      `json:"created_at"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
}

func (m *Match) IsCompleted() bool {
	return m.Status == MatchCompleted
}

// ParticipantIDs lists everyone who takes part in the match.
func (m *Match) ParticipantIDs() []int {
	if m.Kind == MatchGroup {
		ids := make([]int, len(m.GroupParticipantIDs))
		copy(ids, m.GroupParticipantIDs)
		return ids
	}
	ids := make([]int, 0, 2)
	if m.Participant1ID != nil {
		ids = append(ids, *m.Participant1ID)
	}
	if m.Participant2ID != nil {
		ids = append(ids, *m.Participant2ID)
	}
	return ids
}

func (m *Match) Involves(participantID int) bool {
	for _, id := range m.ParticipantIDs() {
		if id == participantID {
			return true
		}
	}
	return false
}

// ScoreFor returns the recorded score of a head-to-head participant.
func (m *Match) ScoreFor(participantID int) (float64, bool) {
	if m.Participant1ID != nil && *m.Participant1ID == participantID && m.Participant1Score != nil {
		return *m.Participant1Score, true
	}
	if m.Participant2ID != nil && *m.Participant2ID == participantID && m.Participant2Score != nil {
		return *m.Participant2Score, true
	}
	if judges, ok := m.ScoreBreakdown[participantID]; ok && len(judges) > 0 {
		var sum float64
		for _, s := range judges {
			sum += s
		}
		return sum, true
	}
	return 0, false
}

// OpponentOf returns the other side of a head-to-head match.
func (m *Match) OpponentOf(participantID int) (int, bool) {
	if m.Participant1ID == nil || m.Participant2ID == nil {
		return 0, false
	}
	switch participantID {
	case *m.Participant1ID:
		return *m.Participant2ID, true
	case *m.Participant2ID:
		return *m.Participant1ID, true
	}
	return 0, false
}

func (m *Match) LoserID() (int, bool) {
	if m.WinnerID == nil {
		return 0, false
	}
	return m.OpponentOf(*m.WinnerID)
}

func (b ScoreBreakdown) Value() (driver.Value, error) {
	if len(b) == 0 {
		return nil, nil
	}
	return json.Marshal(b)
}

func (b *ScoreBreakdown) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*b = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported score breakdown type %T", src)
	}
	return json.Unmarshal(raw, b)
}

// Totals sums the judge scores of every participant.
func (b ScoreBreakdown) Totals() map[int]float64 {
	totals := make(map[int]float64, len(b))
	for id, judges := range b {
		for _, s := range judges {
			totals[id] += s
		}
	}
	return totals
}
