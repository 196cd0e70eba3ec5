package brackets

import (
	"math/rand"
	"sort"

	"github.com/Dosada05/debate-tournament/models"
)

// SortForSeeding returns a new slice ordered for the given reseed method.
// ELO_BASED and TOURNAMENT_WINS are stable; RANDOM shuffles with rng.
func SortForSeeding(participants []*models.Participant, method models.ReseedMethod, rng *rand.Rand) []*models.Participant {
	ordered := make([]*models.Participant, len(participants))
	copy(ordered, participants)

	switch method {
	case models.ReseedTournamentWins:
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].Wins != ordered[j].Wins {
				return ordered[i].Wins > ordered[j].Wins
			}
			return ordered[i].EloAtStart > ordered[j].EloAtStart
		})
	case models.ReseedRandom:
		rng.Shuffle(len(ordered), func(i, j int) { ordered[i], ordered[j] = ordered[j], ordered[i] })
	default:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].EloAtStart > ordered[j].EloAtStart
		})
	}
	return ordered
}

// AssignSeeds sets Seed and CurrentSeed to the 1-based position in ordered.
func AssignSeeds(ordered []*models.Participant) {
	for i, p := range ordered {
		p.Seed = i + 1
		p.CurrentSeed = i + 1
	}
}

func sortBySeed(participants []*models.Participant) []*models.Participant {
	ordered := make([]*models.Participant, len(participants))
	copy(ordered, participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Seed < ordered[j].Seed
	})
	return ordered
}

func sortByCurrentSeed(participants []*models.Participant) []*models.Participant {
	ordered := make([]*models.Participant, len(participants))
	copy(ordered, participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CurrentSeed < ordered[j].CurrentSeed
	})
	return ordered
}

func sortMatchesByOrder(matches []*models.Match) []*models.Match {
	ordered := make([]*models.Match, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].OrderInRound != ordered[j].OrderInRound {
			return ordered[i].OrderInRound < ordered[j].OrderInRound
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

func splitByPosition(participants []*models.Participant) (pro, con, none []*models.Participant) {
	for _, p := range participants {
		switch {
		case p.HasPosition(models.PositionPro):
			pro = append(pro, p)
		case p.HasPosition(models.PositionCon):
			con = append(con, p)
		default:
			none = append(none, p)
		}
	}
	return pro, con, none
}
