package brackets

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/debate-tournament/models"
)

// Standing is a participant's result for one round, the input of the tiebreak chain.
type Standing struct {
	Participant  *models.Participant
	Score        float64
	WonMatch     bool
	Differential float64
}

type Tiebreaker struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger
}

func NewTiebreaker(rng *rand.Rand, logger *slog.Logger) *Tiebreaker {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tiebreaker{rng: rng, logger: logger}
}

// compare returns -1 when a ranks above b, 1 when below, 0 when every
// deterministic criterion is equal.
func compare(a, b Standing) int {
	if a.WonMatch != b.WonMatch {
		if a.WonMatch {
			return -1
		}
		return 1
	}
	if a.Differential != b.Differential {
		if a.Differential > b.Differential {
			return -1
		}
		return 1
	}
	pa, pb := a.Participant, b.Participant
	if pa.EloAtStart != pb.EloAtStart {
		if pa.EloAtStart > pb.EloAtStart {
			return -1
		}
		return 1
	}
	if !pa.CreatedAt.Equal(pb.CreatedAt) {
		if pa.CreatedAt.Before(pb.CreatedAt) {
			return -1
		}
		return 1
	}
	return 0
}

// RankWithinGroup orders standings by score descending. The tiebreak chain only
// reorders runs of exactly equal score.
func (tb *Tiebreaker) RankWithinGroup(standings []Standing) []Standing {
	ranked := make([]Standing, len(standings))
	copy(ranked, standings)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	for start := 0; start < len(ranked); {
		end := start + 1
		for end < len(ranked) && ranked[end].Score == ranked[start].Score {
			end++
		}
		if end-start > 1 {
			tb.breakTies(ranked[start:end])
		}
		start = end
	}
	return ranked
}

func (tb *Tiebreaker) breakTies(run []Standing) {
	sort.SliceStable(run, func(i, j int) bool {
		return compare(run[i], run[j]) < 0
	})

	for start := 0; start < len(run); {
		end := start + 1
		for end < len(run) && compare(run[start], run[end]) == 0 {
			end++
		}
		if end-start > 1 {
			tb.shuffle(run[start:end])
		}
		start = end
	}
}

func (tb *Tiebreaker) shuffle(tied []Standing) {
	ids := make([]int, len(tied))
	for i, s := range tied {
		ids[i] = s.Participant.ID
	}
	tb.logger.Warn("All tiebreak criteria exhausted, ordering tied participants at random",
		slog.Any("participant_ids", ids),
		slog.Float64("score", tied[0].Score))

	tb.mu.Lock()
	tb.rng.Shuffle(len(tied), func(i, j int) { tied[i], tied[j] = tied[j], tied[i] })
	tb.mu.Unlock()
}

// PickWinner decides a head-to-head match that arrived without an explicit winner.
func (tb *Tiebreaker) PickWinner(a, b Standing) int {
	ranked := tb.RankWithinGroup([]Standing{a, b})
	return ranked[0].Participant.ID
}

// HeadToHeadStandings builds standings for both sides of a pairwise match.
func HeadToHeadStandings(m *models.Match, p1, p2 *models.Participant) (Standing, Standing) {
	s1, _ := m.ScoreFor(p1.ID)
	s2, _ := m.ScoreFor(p2.ID)
	a := Standing{Participant: p1, Score: s1, Differential: s1 - s2}
	b := Standing{Participant: p2, Score: s2, Differential: s2 - s1}
	if m.WinnerID != nil {
		a.WonMatch = *m.WinnerID == p1.ID
		b.WonMatch = *m.WinnerID == p2.ID
	}
	return a, b
}
