package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/debate-tournament/brackets"
	"github.com/Dosada05/debate-tournament/debates"
	"github.com/Dosada05/debate-tournament/models"
	"github.com/Dosada05/debate-tournament/notifications"
	"github.com/Dosada05/debate-tournament/repositories"
)

// Archiver stores the final results of a completed tournament.
type Archiver interface {
	Archive(ctx context.Context, result *CompletionResult) (string, error)
}

type CompletionResult struct {
	Tournament   *models.Tournament
	Champion     *models.Participant
	RollupAmount float64
	Standings    []StandingEntry
}

type CompletionService struct {
	repos      Repositories
	belt       debates.BeltHook
	notifier   notifications.Notifier
	archiver   Archiver
	tiebreaker *brackets.Tiebreaker
	logger     *slog.Logger
}

// NewCompletionService принимает archiver == nil, если архив результатов отключён.
func NewCompletionService(
	repos Repositories,
	belt debates.BeltHook,
	notifier notifications.Notifier,
	archiver Archiver,
	tiebreaker *brackets.Tiebreaker,
	logger *slog.Logger,
) *CompletionService {
	if belt == nil {
		belt = debates.NopBeltHook{}
	}
	return &CompletionService{
		repos:      repos,
		belt:       belt,
		notifier:   notifier,
		archiver:   archiver,
		tiebreaker: tiebreaker,
		logger:     logger,
	}
}

// completeWithin picks the champion, applies the KING_OF_THE_HILL rollup and
// moves the tournament to COMPLETED on exec. It returns nil when another
// caller already completed the tournament.
func (s *CompletionService) completeWithin(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, finalMatches []*models.Match, now time.Time) (*CompletionResult, error) {
	participants, err := s.repos.Participants.ListByTournament(ctx, exec, t.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of tournament %d: %w", t.ID, err)
	}

	champion := s.pickChampion(ctx, t, participants, finalMatches)
	var championID *int
	if champion != nil {
		id := champion.ID
		championID = &id
	}

	won, err := s.repos.Tournaments.Complete(ctx, exec, t.ID, championID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete tournament %d: %w", t.ID, err)
	}
	if !won {
		s.logger.InfoContext(ctx, "Tournament already completed, skipping", slog.Int("tournament_id", t.ID))
		return nil, nil
	}

	result := &CompletionResult{Tournament: t, Champion: champion}
	if champion != nil && t.Format == models.FormatKingOfTheHill {
		for _, p := range participants {
			if p.Status == models.ParticipantEliminated {
				result.RollupAmount += p.CumulativeScore
			}
		}
		if result.RollupAmount != 0 {
			if err := s.repos.Participants.AddCumulativeScore(ctx, exec, champion.ID, result.RollupAmount); err != nil {
				return nil, fmt.Errorf("failed to roll up scores to champion %d: %w", champion.ID, err)
			}
			champion.CumulativeScore += result.RollupAmount
		}
	}

	t.Status = models.TournamentCompleted
	t.ChampionParticipantID = championID
	t.EndDate = &now
	result.Standings = finalStandings(participants, championID)
	return result, nil
}

func (s *CompletionService) pickChampion(ctx context.Context, t *models.Tournament, participants []*models.Participant, finalMatches []*models.Match) *models.Participant {
	active := filterByStatus(participants, models.ParticipantActive)
	if len(active) == 1 {
		return active[0]
	}

	index := participantIndex(participants)
	for i := len(finalMatches) - 1; i >= 0; i-- {
		m := finalMatches[i]
		if m.WinnerID == nil {
			continue
		}
		if p, ok := index[*m.WinnerID]; ok {
			s.logger.WarnContext(ctx, "Champion taken from the final match winner",
				slog.Int("tournament_id", t.ID),
				slog.Int("active", len(active)),
				slog.Int("participant_id", p.ID))
			return p
		}
	}

	if len(active) == 0 {
		s.logger.ErrorContext(ctx, "No champion could be determined", slog.Int("tournament_id", t.ID))
		return nil
	}

	standings := make([]brackets.Standing, len(active))
	for i, p := range active {
		standings[i] = brackets.Standing{Participant: p, Score: p.CumulativeScore}
	}
	ranked := s.tiebreaker.RankWithinGroup(standings)
	s.logger.WarnContext(ctx, "Several participants still active at completion, champion ranked by cumulative score",
		slog.Int("tournament_id", t.ID),
		slog.Int("active", len(active)),
		slog.Int("participant_id", ranked[0].Participant.ID))
	return ranked[0].Participant
}

// announce runs the completion listeners. Their failures are logged and dropped.
func (s *CompletionService) announce(ctx context.Context, result *CompletionResult) {
	t := result.Tournament
	logger := s.logger.With(slog.Int("tournament_id", t.ID))

	if result.Champion != nil {
		event := models.TournamentCompletedEvent{
			TournamentID:          t.ID,
			ChampionParticipantID: result.Champion.ID,
			ChampionUserID:        result.Champion.UserID,
			StakedBeltID:          t.StakedBeltID,
			CompletedAt:           time.Now(),
		}
		if t.EndDate != nil {
			event.CompletedAt = *t.EndDate
		}
		if err := s.belt.TournamentCompleted(ctx, event); err != nil {
			logger.WarnContext(ctx, "Belt hook failed", slog.Any("error", err))
		}
	}

	if s.notifier != nil {
		payload := map[string]interface{}{
			"tournament_id":           t.ID,
			"champion_participant_id": t.ChampionParticipantID,
			"standings":               result.Standings,
		}
		if err := s.notifier.TournamentUpdated(ctx, t.ID, notifications.Event{Type: notifications.EventTournamentCompleted, Payload: payload}); err != nil {
			logger.WarnContext(ctx, "Failed to broadcast tournament completion", slog.Any("error", err))
		}
		for _, entry := range result.Standings {
			event := notifications.Event{Type: notifications.EventFinalStanding, Payload: entry}
			if err := s.notifier.NotifyParticipant(ctx, entry.UserID, event); err != nil {
				logger.WarnContext(ctx, "Failed to notify participant of final standing",
					slog.Int("participant_id", entry.ParticipantID),
					slog.Any("error", err))
			}
		}
	}

	if s.archiver != nil {
		location, err := s.archiver.Archive(ctx, result)
		if err != nil {
			logger.WarnContext(ctx, "Failed to archive tournament results", slog.Any("error", err))
		} else {
			logger.InfoContext(ctx, "Tournament results archived", slog.String("location", location))
		}
	}

	championID := 0
	if result.Champion != nil {
		championID = result.Champion.ID
	}
	logger.InfoContext(ctx, "Tournament completed",
		slog.Int("champion_participant_id", championID),
		slog.Float64("rollup", result.RollupAmount))
}
