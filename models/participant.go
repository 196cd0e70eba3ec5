package models

import "time"

type ParticipantStatus string

const (
	ParticipantRegistered ParticipantStatus = "REGISTERED"
	ParticipantActive     ParticipantStatus = "ACTIVE"
	ParticipantEliminated ParticipantStatus = "ELIMINATED"
)

// DefaultEloRating is used when the player's token carries no rating.
const DefaultEloRating = 1200

// DebatePosition is the side a participant argues in CHAMPIONSHIP tournaments.
type DebatePosition string

const (
	PositionPro DebatePosition = "PRO"
	PositionCon DebatePosition = "CON"
)

func (p DebatePosition) Valid() bool {
	return p == PositionPro || p == PositionCon
}

type EliminationReason string

const (
	EliminatedMatchLoss   EliminationReason = "MATCH_LOSS"
	EliminatedScoreCutoff EliminationReason = "SCORE_CUTOFF"
	EliminatedKothBottom  EliminationReason = "KOTH_BOTTOM"
	EliminatedFinalLoss   EliminationReason = "FINAL_LOSS"
)

type Participant struct {
	ID                int                `json:"id"`
	TournamentID      int                `json:"tournament_id"`
	UserID            int                `json:"user_id"`
	Seed              int                `json:"seed"`
	CurrentSeed       int                `json:"current_seed"`
	EloAtStart        int                `json:"elo_at_start"`
	Status            ParticipantStatus  `json:"status"`
	Wins              int                `json:"wins"`
	Losses            int                `json:"losses"`
	CumulativeScore   float64            `json:"cumulative_score"`
	SelectedPosition  *DebatePosition    `json:"selected_position,omitempty"`
	EliminatedAt      *time.Time         `json:"eliminated_at,omitempty"`
	EliminationRound  *int               `json:"elimination_round,omitempty"`
	EliminationReason *EliminationReason `json:"elimination_reason,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

func (p *Participant) IsActive() bool {
	return p.Status == ParticipantActive
}

func (p *Participant) HasPosition(pos DebatePosition) bool {
	return p.SelectedPosition != nil && *p.SelectedPosition == pos
}
