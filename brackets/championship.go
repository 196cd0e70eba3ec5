package brackets

import (
	"fmt"
	"log/slog"

	"github.com/Dosada05/debate-tournament/models"
)

// championshipFormat pairs PRO against CON. Round 1 advances the best scorers of
// each side, later rounds are decided by match winners.
type championshipFormat struct {
	tiebreaker *Tiebreaker
	logger     *slog.Logger
}

func (f *championshipFormat) Name() models.TournamentFormat {
	return models.FormatChampionship
}

func (f *championshipFormat) ValidateStart(t *models.Tournament, participants []*models.Participant) error {
	capacity := t.MaxParticipants
	if capacity < 4 || !isPowerOfTwo(capacity) {
		return fmt.Errorf("%w: championship max participants must be a power of two >= 4, got %d", ErrInvalidParticipantCount, capacity)
	}
	pro, con, none := splitByPosition(participants)
	if len(none) > 0 {
		return fmt.Errorf("%w: participant %d", ErrMissingPosition, none[0].ID)
	}
	if len(pro) != len(con) {
		return fmt.Errorf("%w: PRO=%d CON=%d", ErrUnbalancedPositions, len(pro), len(con))
	}
	if len(participants) != capacity {
		return fmt.Errorf("%w: championship needs exactly %d, got %d", ErrInsufficientParticipants, capacity, len(participants))
	}
	return nil
}

func (f *championshipFormat) PlannedRounds(participantCount int) int {
	return log2(participantCount)
}

func (f *championshipFormat) PairRound(in PairingInput) ([]*MatchPlan, error) {
	if in.RoundNumber <= 1 || len(in.Advancing) == 0 {
		return f.pairOpeningRound(in.Active)
	}

	source := in.Advancing
	if in.Reseeded {
		source = sortByCurrentSeed(source)
	}
	if len(source) < 2 {
		return nil, ErrNotEnoughActive
	}

	pro, con, _ := splitByPosition(source)
	var (
		plans []*MatchPlan
		err   error
	)
	switch {
	case len(source) == 2 && len(pro) == 1 && len(con) == 1:
		plans = pairPositions(pro, con)
	case len(source) == 2:
		f.logger.Warn("Championship final without one PRO and one CON, pairing in advancing order",
			slog.Int("tournament_id", in.Tournament.ID),
			slog.Int("round_number", in.RoundNumber),
			slog.Int("pro_count", len(pro)),
			slog.Int("con_count", len(con)))
		plans, err = pairConsecutive(source, DefaultDebateRounds)
	case len(pro) == len(con):
		plans = pairPositions(pro, con)
	default:
		plans, err = pairConsecutive(source, DefaultDebateRounds)
	}
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (f *championshipFormat) pairOpeningRound(active []*models.Participant) ([]*MatchPlan, error) {
	pro, con, _ := splitByPosition(active)
	if len(pro) != len(con) {
		return nil, fmt.Errorf("%w: PRO=%d CON=%d", ErrUnbalancedPositions, len(pro), len(con))
	}
	if len(pro) == 0 {
		return nil, ErrNotEnoughActive
	}
	return pairPositions(sortBySeed(pro), sortBySeed(con)), nil
}

// pairPositions pairs pro[i] against con[i].
func pairPositions(pro, con []*models.Participant) []*MatchPlan {
	plans := make([]*MatchPlan, 0, len(pro))
	for i := range pro {
		plans = append(plans, &MatchPlan{
			OrderInRound:   i + 1,
			Kind:           models.MatchPairwise,
			Participant1ID: intPtr(pro[i].ID),
			Participant2ID: intPtr(con[i].ID),
			DebateRounds:   DefaultDebateRounds,
		})
	}
	return plans
}

func (f *championshipFormat) Eliminate(in EliminationInput) (*EliminationResult, error) {
	if in.RoundNumber > 1 {
		return winLossElimination(in, len(in.Active) <= 2)
	}
	return f.scoreCutoff(in)
}

// scoreCutoff keeps the top MaxParticipants/4 of each position by round score.
func (f *championshipFormat) scoreCutoff(in EliminationInput) (*EliminationResult, error) {
	keep := in.Tournament.MaxParticipants / 4
	if keep < 1 {
		keep = 1
	}

	active := byID(in.Active)
	matchOf := make(map[int]*models.Match, len(in.Active))
	for _, m := range in.Matches {
		for _, id := range m.ParticipantIDs() {
			matchOf[id] = m
		}
	}

	standingFor := func(p *models.Participant) Standing {
		m, ok := matchOf[p.ID]
		if !ok {
			return Standing{Participant: p}
		}
		opponentID, ok := m.OpponentOf(p.ID)
		if !ok {
			score, _ := m.ScoreFor(p.ID)
			return Standing{Participant: p, Score: score}
		}
		opponent, ok := active[opponentID]
		if !ok {
			opponent = &models.Participant{ID: opponentID}
		}
		s, _ := HeadToHeadStandings(m, p, opponent)
		return s
	}

	pro, con, none := splitByPosition(in.Active)
	res := &EliminationResult{}
	for _, group := range [][]*models.Participant{pro, con} {
		standings := make([]Standing, 0, len(group))
		for _, p := range group {
			standings = append(standings, standingFor(p))
		}
		for i, s := range f.tiebreaker.RankWithinGroup(standings) {
			if i < keep {
				res.Advancing = append(res.Advancing, s.Participant)
				continue
			}
			res.Eliminated = append(res.Eliminated, Elimination{
				ParticipantID: s.Participant.ID,
				Reason:        models.EliminatedScoreCutoff,
			})
		}
	}
	for _, p := range none {
		res.Eliminated = append(res.Eliminated, Elimination{ParticipantID: p.ID, Reason: models.EliminatedScoreCutoff})
	}
	return res, nil
}

func (f *championshipFormat) IsTerminal(in TerminalInput) bool {
	return in.Remaining <= 1 || (in.Tournament.TotalRounds > 0 && in.RoundNumber >= in.Tournament.TotalRounds)
}
