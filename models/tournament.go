package models

import "time"

// TournamentFormat определяет правила продвижения участников.
type TournamentFormat string

const (
	FormatBracket       TournamentFormat = "BRACKET"
	FormatChampionship  TournamentFormat = "CHAMPIONSHIP"
	FormatKingOfTheHill TournamentFormat = "KING_OF_THE_HILL"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatBracket, FormatChampionship, FormatKingOfTheHill:
		return true
	}
	return false
}

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	TournamentUpcoming   TournamentStatus = "UPCOMING"
	TournamentInProgress TournamentStatus = "IN_PROGRESS"
	TournamentCompleted  TournamentStatus = "COMPLETED"
)

type ReseedMethod string

const (
	ReseedEloBased       ReseedMethod = "ELO_BASED"
	ReseedTournamentWins ReseedMethod = "TOURNAMENT_WINS"
	ReseedRandom         ReseedMethod = "RANDOM"
)

func (m ReseedMethod) Valid() bool {
	switch m {
	case ReseedEloBased, ReseedTournamentWins, ReseedRandom:
		return true
	}
	return false
}

// Tournament представляет турнир.
type Tournament struct {
	ID                    int              `json:"id" db:"id"`
	Name                  string           `json:"name" db:"name"`
	Format                TournamentFormat `json:"format" db:"format"`
	Status                TournamentStatus `json:"status" db:"status"`
	TotalRounds           int              `json:"total_rounds" db:"total_rounds"` // planned, 0 until start
	MaxParticipants       int              `json:"max_participants" db:"max_participants"`
	ReseedAfterRound      bool             `json:"reseed_after_round" db:"reseed_after_round"`
	ReseedMethod          ReseedMethod     `json:"reseed_method" db:"reseed_method"`
	OrganizerID           int              `json:"organizer_id" db:"organizer_id"`
	StakedBeltID          *int             `json:"staked_belt_id,omitempty" db:"staked_belt_id"`
	ChampionParticipantID *int             `json:"champion_participant_id,omitempty" db:"champion_participant_id"`
	StartDate             *time.Time       `json:"start_date,omitempty" db:"start_date"`
	EndDate               *time.Time       `json:"end_date,omitempty" db:"end_date"`
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`

	// Derived from the round list, never stored.
	CurrentRound int `json:"current_round" db:"-"`

	Rounds       []Round       `json:"rounds,omitempty" db:"-"`
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Matches      []Match       `json:"matches,omitempty" db:"-"`
}

func (t *Tournament) IsCompleted() bool {
	return t.Status == TournamentCompleted
}
