package services

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/debate-tournament/models"
	"github.com/Dosada05/debate-tournament/repositories"
)

// Repositories собирает зависимости хранилища, общие для сервисов.
type Repositories struct {
	Transactor   repositories.Transactor
	Tournaments  repositories.TournamentRepository
	Participants repositories.ParticipantRepository
	Rounds       repositories.RoundRepository
	Matches      repositories.MatchRepository
	JudgeScores  repositories.JudgeScoreRepository
}

// handleRepositoryError переводит ошибки репозитория в ошибки сервисного слоя.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrRoundNotFound):
		return ErrRoundNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, repositories.ErrParticipantConflict):
		return ErrRegistrationConflict
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameConflict
	case errors.Is(err, repositories.ErrParticipantTournamentInvalid):
		return ErrTournamentNotFound
	}
	return err
}

func validationError(err error) error {
	if err == nil || errors.Is(err, ErrValidationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrValidationFailed, err)
}

func filterByStatus(participants []*models.Participant, status models.ParticipantStatus) []*models.Participant {
	out := make([]*models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

func participantIndex(participants []*models.Participant) map[int]*models.Participant {
	index := make(map[int]*models.Participant, len(participants))
	for _, p := range participants {
		index[p.ID] = p
	}
	return index
}

func allCompleted(matches []*models.Match) bool {
	for _, m := range matches {
		if !m.IsCompleted() {
			return false
		}
	}
	return true
}

func matchIDs(matches []*models.Match) []int {
	ids := make([]int, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}

func ParticipantsToValues(slice []*models.Participant) []models.Participant {
	if slice == nil {
		return []models.Participant{}
	}
	result := make([]models.Participant, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

func MatchesToValues(slice []*models.Match) []models.Match {
	if slice == nil {
		return []models.Match{}
	}
	result := make([]models.Match, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

func RoundsToValues(slice []*models.Round) []models.Round {
	if slice == nil {
		return []models.Round{}
	}
	result := make([]models.Round, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

// StandingEntry is one line of the final results table.
type StandingEntry struct {
	Place             int                       `json:"place"`
	ParticipantID     int                       `json:"participant_id"`
	UserID            int                       `json:"user_id"`
	Seed              int                       `json:"seed"`
	Wins              int                       `json:"wins"`
	Losses            int                       `json:"losses"`
	CumulativeScore   float64                   `json:"cumulative_score"`
	EliminationRound  *int                      `json:"elimination_round,omitempty"`
	EliminationReason *models.EliminationReason `json:"elimination_reason,omitempty"`
	Champion          bool                      `json:"champion"`
}

// finalStandings orders the champion first, then by how late each
// participant was eliminated, then by cumulative score.
func finalStandings(participants []*models.Participant, championID *int) []StandingEntry {
	ordered := make([]*models.Participant, len(participants))
	copy(ordered, participants)

	isChampion := func(p *models.Participant) bool {
		return championID != nil && p.ID == *championID
	}
	eliminationRound := func(p *models.Participant) int {
		if p.EliminationRound == nil {
			return int(^uint(0) >> 1)
		}
		return *p.EliminationRound
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if isChampion(a) != isChampion(b) {
			return isChampion(a)
		}
		if ra, rb := eliminationRound(a), eliminationRound(b); ra != rb {
			return ra > rb
		}
		if a.CumulativeScore != b.CumulativeScore {
			return a.CumulativeScore > b.CumulativeScore
		}
		return a.Seed < b.Seed
	})

	standings := make([]StandingEntry, len(ordered))
	for i, p := range ordered {
		standings[i] = StandingEntry{
			Place:             i + 1,
			ParticipantID:     p.ID,
			UserID:            p.UserID,
			Seed:              p.Seed,
			Wins:              p.Wins,
			Losses:            p.Losses,
			CumulativeScore:   p.CumulativeScore,
			EliminationRound:  p.EliminationRound,
			EliminationReason: p.EliminationReason,
			Champion:          isChampion(p),
		}
	}
	return standings
}
