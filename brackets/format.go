package brackets

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/debate-tournament/models"
)

var (
	ErrUnknownFormat            = errors.New("unknown tournament format")
	ErrInsufficientParticipants = errors.New("not enough participants for this format")
	ErrInvalidParticipantCount  = errors.New("participant count is not valid for this format")
	ErrUnbalancedPositions      = errors.New("PRO and CON participant counts must be equal")
	ErrMissingPosition          = errors.New("participant has no selected position")
	ErrNotEnoughActive          = errors.New("fewer than 2 active participants to pair")
	ErrOddParticipants          = errors.New("cannot pair an odd number of participants")
	ErrUnresolvedMatch          = errors.New("match has no winner")
)

const (
	DefaultDebateRounds = 1
	FinalsDebateRounds  = 3
)

// MatchPlan описывает матч, который нужно создать для раунда.
type MatchPlan struct {
	OrderInRound        int
	Kind                models.MatchKind
	Participant1ID      *int
	Participant2ID      *int
	GroupParticipantIDs []int
	DebateRounds        int
}

type PairingInput struct {
	Tournament  *models.Tournament
	RoundNumber int
	// Active participants, used for round 1 and whenever Advancing is empty.
	Active []*models.Participant
	// Advancing is the ordered survivor list produced by Eliminate for the previous round.
	Advancing []*models.Participant
	// Reseeded means CurrentSeed was reassigned after the previous round.
	Reseeded bool
}

type EliminationInput struct {
	Tournament  *models.Tournament
	RoundNumber int
	Matches     []*models.Match
	Active      []*models.Participant
}

type Elimination struct {
	ParticipantID int
	Reason        models.EliminationReason
}

type EliminationResult struct {
	Eliminated []Elimination
	Advancing  []*models.Participant
}

type TerminalInput struct {
	Tournament  *models.Tournament
	RoundNumber int
	Matches     []*models.Match
	Remaining   int
}

// Format содержит правила одного формата турнира.
type Format interface {
	Name() models.TournamentFormat
	ValidateStart(t *models.Tournament, participants []*models.Participant) error
	PlannedRounds(participantCount int) int
	PairRound(in PairingInput) ([]*MatchPlan, error)
	Eliminate(in EliminationInput) (*EliminationResult, error)
	IsTerminal(in TerminalInput) bool
}

type Options struct {
	Tiebreaker *Tiebreaker
	Logger     *slog.Logger
}

func ForFormat(format models.TournamentFormat, opts Options) (Format, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tiebreaker == nil {
		opts.Tiebreaker = NewTiebreaker(nil, opts.Logger)
	}
	switch format {
	case models.FormatBracket:
		return &bracketFormat{tiebreaker: opts.Tiebreaker, logger: opts.Logger}, nil
	case models.FormatChampionship:
		return &championshipFormat{tiebreaker: opts.Tiebreaker, logger: opts.Logger}, nil
	case models.FormatKingOfTheHill:
		return &kingOfTheHillFormat{tiebreaker: opts.Tiebreaker, logger: opts.Logger}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func log2(n int) int {
	r := 0
	for n > 1 {
		n >>= 1
		r++
	}
	return r
}

func intPtr(v int) *int {
	return &v
}

// pairConsecutive pairs 1st vs 2nd, 3rd vs 4th and so on.
func pairConsecutive(ordered []*models.Participant, debateRounds int) ([]*MatchPlan, error) {
	if len(ordered) < 2 {
		return nil, ErrNotEnoughActive
	}
	if len(ordered)%2 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrOddParticipants, len(ordered))
	}
	plans := make([]*MatchPlan, 0, len(ordered)/2)
	for i := 0; i+1 < len(ordered); i += 2 {
		plans = append(plans, &MatchPlan{
			OrderInRound:   len(plans) + 1,
			Kind:           models.MatchPairwise,
			Participant1ID: intPtr(ordered[i].ID),
			Participant2ID: intPtr(ordered[i+1].ID),
			DebateRounds:   debateRounds,
		})
	}
	return plans, nil
}

// pairFolded pairs position i with position N-1-i.
func pairFolded(ordered []*models.Participant, debateRounds int) ([]*MatchPlan, error) {
	n := len(ordered)
	if n < 2 {
		return nil, ErrNotEnoughActive
	}
	if n%2 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrOddParticipants, n)
	}
	plans := make([]*MatchPlan, 0, n/2)
	for i := 0; i < n/2; i++ {
		plans = append(plans, &MatchPlan{
			OrderInRound:   i + 1,
			Kind:           models.MatchPairwise,
			Participant1ID: intPtr(ordered[i].ID),
			Participant2ID: intPtr(ordered[n-1-i].ID),
			DebateRounds:   debateRounds,
		})
	}
	return plans, nil
}

func byID(participants []*models.Participant) map[int]*models.Participant {
	m := make(map[int]*models.Participant, len(participants))
	for _, p := range participants {
		m[p.ID] = p
	}
	return m
}

// winLossElimination eliminates the loser of every pairwise match and keeps
// winners in match order.
func winLossElimination(in EliminationInput, final bool) (*EliminationResult, error) {
	active := byID(in.Active)
	reason := models.EliminatedMatchLoss
	if final {
		reason = models.EliminatedFinalLoss
	}

	ordered := sortMatchesByOrder(in.Matches)
	res := &EliminationResult{}
	for _, m := range ordered {
		if m.WinnerID == nil {
			return nil, fmt.Errorf("%w: match %d", ErrUnresolvedMatch, m.ID)
		}
		if w, ok := active[*m.WinnerID]; ok {
			res.Advancing = append(res.Advancing, w)
		}
		if loser, ok := m.LoserID(); ok {
			if _, stillActive := active[loser]; stillActive {
				res.Eliminated = append(res.Eliminated, Elimination{ParticipantID: loser, Reason: reason})
			}
		}
	}
	return res, nil
}
