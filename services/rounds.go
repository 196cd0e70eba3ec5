package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/debate-tournament/brackets"
	"github.com/Dosada05/debate-tournament/models"
	"github.com/Dosada05/debate-tournament/repositories"
)

// openRound gets or creates the round and, when this call created it,
// persists one SCHEDULED match per plan. created is false when the round
// already existed; its matches are then returned untouched.
func openRound(ctx context.Context, repos Repositories, exec repositories.SQLExecutor, tournamentID, roundNumber int, plans []*brackets.MatchPlan, now time.Time) (*models.Round, []*models.Match, bool, error) {
	round, created, err := repos.Rounds.GetOrCreate(ctx, exec, tournamentID, roundNumber)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to get or create round %d: %w", roundNumber, err)
	}
	if !created {
		existing, err := repos.Matches.ListByRound(ctx, exec, round.ID)
		if err != nil {
			return nil, nil, false, fmt.Errorf("failed to list matches of round %d: %w", roundNumber, err)
		}
		return round, existing, false, nil
	}

	matches := make([]*models.Match, 0, len(plans))
	for _, plan := range plans {
		m := &models.Match{
			TournamentID:        tournamentID,
			RoundID:             round.ID,
			RoundNumber:         roundNumber,
			OrderInRound:        plan.OrderInRound,
			Kind:                plan.Kind,
			Participant1ID:      plan.Participant1ID,
			Participant2ID:      plan.Participant2ID,
			GroupParticipantIDs: plan.GroupParticipantIDs,
			Status:              models.MatchScheduled,
			DebateRounds:        plan.DebateRounds,
		}
		if err := repos.Matches.Create(ctx, exec, m); err != nil {
			return nil, nil, false, fmt.Errorf("failed to create match %d of round %d: %w", plan.OrderInRound, roundNumber, err)
		}
		matches = append(matches, m)
	}

	if _, err := repos.Rounds.MarkInProgress(ctx, exec, round.ID, now); err != nil {
		return nil, nil, false, fmt.Errorf("failed to start round %d: %w", roundNumber, err)
	}
	round.Status = models.RoundInProgress
	round.StartedAt = &now
	return round, matches, true, nil
}
