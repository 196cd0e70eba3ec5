package brackets

import (
	"testing"

	"github.com/Dosada05/debate-tournament/models"
)

func groupMatch(ids []int, scores map[int]float64) *models.Match {
	breakdown := make(models.ScoreBreakdown, len(scores))
	for id, total := range scores {
		// three judges, remainder on the first
		third := float64(int(total) / 3)
		breakdown[id] = map[string]float64{
			"judge-a": total - 2*third,
			"judge-b": third,
			"judge-c": third,
		}
	}
	return &models.Match{
		ID:                  1,
		OrderInRound:        1,
		Kind:                models.MatchGroup,
		GroupParticipantIDs: ids,
		ScoreBreakdown:      breakdown,
		Status:              models.MatchCompleted,
	}
}

func TestKingOfTheHillEliminationCount(t *testing.T) {
	tests := map[int]int{1: 1, 3: 1, 4: 1, 5: 2, 8: 2, 9: 3, 12: 3, 13: 4, 100: 25}
	for k, want := range tests {
		if got := KingOfTheHillEliminationCount(k); got != want {
			t.Errorf("KingOfTheHillEliminationCount(%d) = %d, want %d", k, got, want)
		}
	}
}

func TestKingOfTheHillRoundCount(t *testing.T) {
	tests := map[int]int{0: 0, 1: 0, 2: 1, 3: 2, 4: 3, 5: 3, 8: 5}
	for n, want := range tests {
		if got := KingOfTheHillRoundCount(n); got != want {
			t.Errorf("KingOfTheHillRoundCount(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestKingOfTheHillScenario(t *testing.T) {
	f := testFormat(t, models.FormatKingOfTheHill)
	ps := newParticipants(4)
	tour := &models.Tournament{ID: 7, Format: models.FormatKingOfTheHill, TotalRounds: KingOfTheHillRoundCount(4)}

	plans, err := f.PairRound(PairingInput{Tournament: tour, RoundNumber: 1, Active: ps})
	if err != nil {
		t.Fatalf("PairRound: %v", err)
	}
	if len(plans) != 1 || plans[0].Kind != models.MatchGroup || len(plans[0].GroupParticipantIDs) != 4 {
		t.Fatalf("round 1 should be one group match with all 4, got %+v", plans)
	}

	m1 := groupMatch([]int{1, 2, 3, 4}, map[int]float64{1: 250, 2: 180, 3: 300, 4: 90})
	res, err := f.Eliminate(EliminationInput{Tournament: tour, RoundNumber: 1, Matches: []*models.Match{m1}, Active: ps})
	if err != nil {
		t.Fatalf("Eliminate: %v", err)
	}
	if len(res.Eliminated) != 1 || res.Eliminated[0].ParticipantID != 4 || res.Eliminated[0].Reason != models.EliminatedKothBottom {
		t.Fatalf("round 1 should eliminate only participant 4, got %+v", res.Eliminated)
	}
	if f.IsTerminal(TerminalInput{Tournament: tour, RoundNumber: 1, Matches: []*models.Match{m1}, Remaining: 3}) {
		t.Fatal("round 1 should not be terminal")
	}

	plans, err = f.PairRound(PairingInput{Tournament: tour, RoundNumber: 2, Advancing: res.Advancing})
	if err != nil {
		t.Fatalf("PairRound round 2: %v", err)
	}
	if len(plans) != 1 || plans[0].Kind != models.MatchGroup || len(plans[0].GroupParticipantIDs) != 3 {
		t.Fatalf("round 2 should be a group match with 3, got %+v", plans)
	}

	m2 := groupMatch([]int{1, 2, 3}, map[int]float64{1: 200, 2: 210, 3: 150})
	res, err = f.Eliminate(EliminationInput{Tournament: tour, RoundNumber: 2, Matches: []*models.Match{m2}, Active: res.Advancing})
	if err != nil {
		t.Fatalf("Eliminate round 2: %v", err)
	}
	if len(res.Eliminated) != 1 || res.Eliminated[0].ParticipantID != 3 {
		t.Fatalf("round 2 should eliminate participant 3, got %+v", res.Eliminated)
	}

	plans, err = f.PairRound(PairingInput{Tournament: tour, RoundNumber: 3, Advancing: res.Advancing})
	if err != nil {
		t.Fatalf("PairRound finals: %v", err)
	}
	if len(plans) != 1 || plans[0].Kind != models.MatchFinals || plans[0].DebateRounds != FinalsDebateRounds {
		t.Fatalf("finals should be one best-of-3 head-to-head, got %+v", plans)
	}

	final := completedMatch(3, 1, *plans[0].Participant1ID, *plans[0].Participant2ID, 2, 40, 60)
	final.Kind = models.MatchFinals
	res, err = f.Eliminate(EliminationInput{Tournament: tour, RoundNumber: 3, Matches: []*models.Match{final}, Active: res.Advancing})
	if err != nil {
		t.Fatalf("Eliminate finals: %v", err)
	}
	if len(res.Eliminated) != 1 || res.Eliminated[0].ParticipantID != 1 || res.Eliminated[0].Reason != models.EliminatedFinalLoss {
		t.Fatalf("finals loser should be participant 1 with FINAL_LOSS, got %+v", res.Eliminated)
	}
	if !f.IsTerminal(TerminalInput{Tournament: tour, RoundNumber: 3, Matches: []*models.Match{final}, Remaining: 1}) {
		t.Fatal("completed finals should be terminal")
	}
}

func TestKingOfTheHillCountsEveryRound(t *testing.T) {
	f := testFormat(t, models.FormatKingOfTheHill)
	tour := &models.Tournament{Format: models.FormatKingOfTheHill}
	for k := 3; k <= 20; k++ {
		active := newParticipants(k)
		ids := make([]int, k)
		scores := make(map[int]float64, k)
		for i, p := range active {
			ids[i] = p.ID
			scores[p.ID] = float64(3 * (k - i))
		}
		res, err := f.Eliminate(EliminationInput{Tournament: tour, RoundNumber: 1, Matches: []*models.Match{groupMatch(ids, scores)}, Active: active})
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		want := KingOfTheHillEliminationCount(k)
		if len(res.Eliminated) != want || len(res.Advancing) != k-want {
			t.Errorf("k=%d: eliminated %d advancing %d, want %d and %d", k, len(res.Eliminated), len(res.Advancing), want, k-want)
		}
		for _, e := range res.Eliminated {
			if e.ParticipantID <= k-want {
				t.Errorf("k=%d: participant %d eliminated despite ranking in the top %d", k, e.ParticipantID, k-want)
			}
		}
	}
}

func TestKingOfTheHillTwoPlayersStartInFinals(t *testing.T) {
	f := testFormat(t, models.FormatKingOfTheHill)
	plans, err := f.PairRound(PairingInput{Tournament: &models.Tournament{}, RoundNumber: 1, Active: newParticipants(2)})
	if err != nil {
		t.Fatalf("PairRound: %v", err)
	}
	if len(plans) != 1 || plans[0].Kind != models.MatchFinals {
		t.Fatalf("expected a finals match, got %+v", plans)
	}
}
