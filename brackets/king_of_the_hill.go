package brackets

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/Dosada05/debate-tournament/models"
)

// KingOfTheHillEliminationCount is how many of k active participants leave after a group round.
func KingOfTheHillEliminationCount(k int) int {
	n := int(math.Ceil(float64(k) * 0.25))
	if n < 1 {
		n = 1
	}
	return n
}

// KingOfTheHillRoundCount is the number of group rounds needed to reach two
// participants plus the head-to-head finals.
func KingOfTheHillRoundCount(n int) int {
	if n < 2 {
		return 0
	}
	rounds := 0
	for k := n; k > 2; k -= KingOfTheHillEliminationCount(k) {
		rounds++
	}
	return rounds + 1
}

// kingOfTheHillFormat runs every active participant through one group debate
// per round and cuts the bottom quarter until two remain for the finals.
type kingOfTheHillFormat struct {
	tiebreaker *Tiebreaker
	logger     *slog.Logger
}

func (f *kingOfTheHillFormat) Name() models.TournamentFormat {
	return models.FormatKingOfTheHill
}

func (f *kingOfTheHillFormat) ValidateStart(t *models.Tournament, participants []*models.Participant) error {
	n := len(participants)
	if n < 2 {
		return fmt.Errorf("%w: king of the hill needs at least 2, got %d", ErrInsufficientParticipants, n)
	}
	if t.MaxParticipants > 0 && n > t.MaxParticipants {
		return fmt.Errorf("%w: %d registered, max %d", ErrInvalidParticipantCount, n, t.MaxParticipants)
	}
	return nil
}

func (f *kingOfTheHillFormat) PlannedRounds(participantCount int) int {
	return KingOfTheHillRoundCount(participantCount)
}

func (f *kingOfTheHillFormat) PairRound(in PairingInput) ([]*MatchPlan, error) {
	source := in.Advancing
	if len(source) == 0 {
		source = in.Active
	}
	source = sortByCurrentSeed(source)

	switch {
	case len(source) < 2:
		return nil, ErrNotEnoughActive
	case len(source) == 2:
		return []*MatchPlan{{
			OrderInRound:   1,
			Kind:           models.MatchFinals,
			Participant1ID: intPtr(source[0].ID),
			Participant2ID: intPtr(source[1].ID),
			DebateRounds:   FinalsDebateRounds,
		}}, nil
	}

	ids := make([]int, len(source))
	for i, p := range source {
		ids[i] = p.ID
	}
	return []*MatchPlan{{
		OrderInRound:        1,
		Kind:                models.MatchGroup,
		GroupParticipantIDs: ids,
		DebateRounds:        DefaultDebateRounds,
	}}, nil
}

func (f *kingOfTheHillFormat) Eliminate(in EliminationInput) (*EliminationResult, error) {
	for _, m := range in.Matches {
		if m.Kind != models.MatchGroup {
			return winLossElimination(in, true)
		}
	}

	standings := make([]Standing, 0, len(in.Active))
	for _, p := range in.Active {
		standings = append(standings, Standing{Participant: p, Score: groupScore(in.Matches, p.ID)})
	}
	ranked := f.tiebreaker.RankWithinGroup(standings)

	cut := len(ranked) - KingOfTheHillEliminationCount(len(ranked))
	if cut < 1 {
		cut = 1
	}
	res := &EliminationResult{}
	for i, s := range ranked {
		if i < cut {
			res.Advancing = append(res.Advancing, s.Participant)
			continue
		}
		res.Eliminated = append(res.Eliminated, Elimination{
			ParticipantID: s.Participant.ID,
			Reason:        models.EliminatedKothBottom,
		})
	}

	f.logger.Info("King of the hill round ranked",
		slog.Int("tournament_id", in.Tournament.ID),
		slog.Int("round_number", in.RoundNumber),
		slog.Int("active", len(ranked)),
		slog.Int("eliminated", len(res.Eliminated)))
	return res, nil
}

func groupScore(matches []*models.Match, participantID int) float64 {
	for _, m := range matches {
		if !m.Involves(participantID) {
			continue
		}
		if s, ok := m.ScoreFor(participantID); ok {
			return s
		}
	}
	return 0
}

func (f *kingOfTheHillFormat) IsTerminal(in TerminalInput) bool {
	if in.Remaining <= 1 {
		return true
	}
	for _, m := range in.Matches {
		if m.Kind == models.MatchFinals && m.IsCompleted() {
			return true
		}
	}
	return false
}
