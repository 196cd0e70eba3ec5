package brackets

import (
	"fmt"
	"log/slog"

	"github.com/Dosada05/debate-tournament/models"
)

// bracketFormat is single elimination decided by match winners only.
type bracketFormat struct {
	tiebreaker *Tiebreaker
	logger     *slog.Logger
}

func (f *bracketFormat) Name() models.TournamentFormat {
	return models.FormatBracket
}

func (f *bracketFormat) ValidateStart(t *models.Tournament, participants []*models.Participant) error {
	n := len(participants)
	if n < 2 {
		return fmt.Errorf("%w: bracket needs at least 2, got %d", ErrInsufficientParticipants, n)
	}
	if !isPowerOfTwo(n) {
		return fmt.Errorf("%w: bracket needs a power of two, got %d", ErrInvalidParticipantCount, n)
	}
	if t.MaxParticipants > 0 && n > t.MaxParticipants {
		return fmt.Errorf("%w: %d registered, max %d", ErrInvalidParticipantCount, n, t.MaxParticipants)
	}
	return nil
}

func (f *bracketFormat) PlannedRounds(participantCount int) int {
	return log2(participantCount)
}

func (f *bracketFormat) PairRound(in PairingInput) ([]*MatchPlan, error) {
	var (
		plans []*MatchPlan
		err   error
	)
	switch {
	case in.RoundNumber <= 1 || len(in.Advancing) == 0:
		plans, err = pairFolded(sortBySeed(in.Active), DefaultDebateRounds)
	case in.Reseeded:
		plans, err = pairFolded(sortByCurrentSeed(in.Advancing), DefaultDebateRounds)
	default:
		// winners keep bracket order
		plans, err = pairConsecutive(in.Advancing, DefaultDebateRounds)
	}
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (f *bracketFormat) Eliminate(in EliminationInput) (*EliminationResult, error) {
	return winLossElimination(in, len(in.Active) <= 2)
}

func (f *bracketFormat) IsTerminal(in TerminalInput) bool {
	return in.Remaining <= 1 || (in.Tournament.TotalRounds > 0 && in.RoundNumber >= in.Tournament.TotalRounds)
}
