package models

import "time"

type Judge struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JudgeScore is one judge's 0..100 verdict for one participant of a debate.
type JudgeScore struct {
	ID            int       `json:"id"`
	MatchID       int       `json:"match_id"`
	DebateID      string    `json:"debate_id"`
	ParticipantID int       `json:"participant_id"`
	JudgeID       string    `json:"judge_id"`
	Score         int       `json:"score"`
	CreatedAt     time.Time `json:"created_at"`
}

// DebateOutcome is the resolved-outcome event delivered by the debate subsystem.
type DebateOutcome struct {
	DebateID    string                     `json:"debate_id"`
	WinnerID    *int                       `json:"winner_id,omitempty"`
	Scores      map[int]float64            `json:"scores,omitempty"`
	Breakdown   map[int]map[string]float64 `json:"breakdown,omitempty"`
	Submissions map[int]string             `json:"submissions,omitempty"`
}

// TournamentCompletedEvent is emitted once per tournament on completion.
type TournamentCompletedEvent struct {
	TournamentID          int       `json:"tournament_id"`
	ChampionParticipantID int       `json:"champion_participant_id"`
	ChampionUserID        int       `json:"champion_user_id"`
	StakedBeltID          *int      `json:"staked_belt_id,omitempty"`
	CompletedAt           time.Time `json:"completed_at"`
}
