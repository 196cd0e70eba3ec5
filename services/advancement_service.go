package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/debate-tournament/brackets"
	"github.com/Dosada05/debate-tournament/debates"
	"github.com/Dosada05/debate-tournament/models"
	"github.com/Dosada05/debate-tournament/notifications"
	"github.com/Dosada05/debate-tournament/repositories"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxCascadeDepth = 8
	hydrationConcurrency   = 4
)

var ErrCascadeDepthExceeded = errors.New("round advancement cascade exceeded its depth limit")

type AdvancementService struct {
	repos      Repositories
	judging    *JudgingService
	seeding    *SeedingService
	completion *CompletionService
	debates    debates.DebateClient
	notifier   notifications.Notifier
	tiebreaker *brackets.Tiebreaker
	logger     *slog.Logger

	maxCascadeDepth int
	now             func() time.Time
}

func NewAdvancementService(
	repos Repositories,
	judging *JudgingService,
	seeding *SeedingService,
	completion *CompletionService,
	debateClient debates.DebateClient,
	notifier notifications.Notifier,
	tiebreaker *brackets.Tiebreaker,
	maxCascadeDepth int,
	logger *slog.Logger,
) *AdvancementService {
	if maxCascadeDepth <= 0 {
		maxCascadeDepth = DefaultMaxCascadeDepth
	}
	return &AdvancementService{
		repos:           repos,
		judging:         judging,
		seeding:         seeding,
		completion:      completion,
		debates:         debateClient,
		notifier:        notifier,
		tiebreaker:      tiebreaker,
		logger:          logger,
		maxCascadeDepth: maxCascadeDepth,
		now:             time.Now,
	}
}

// advanceStep describes what one committed advancement transaction did.
type advanceStep struct {
	tournament   *models.Tournament
	roundClosed  bool
	eliminated   []*models.Participant
	nextRound    int
	nextResolved bool
	newMatches   []*models.Match
	completion   *CompletionResult
}

func (s *AdvancementService) formatFor(t *models.Tournament) (brackets.Format, error) {
	format, err := brackets.ForFormat(t.Format, brackets.Options{Tiebreaker: s.tiebreaker, Logger: s.logger})
	if err != nil {
		return nil, validationError(err)
	}
	return format, nil
}

// HandleDebateOutcome records a resolved debate on its match and advances the round.
func (s *AdvancementService) HandleDebateOutcome(ctx context.Context, outcome *models.DebateOutcome) error {
	if outcome == nil || outcome.DebateID == "" {
		return fmt.Errorf("%w: debate id is required", ErrInvalidOutcome)
	}

	match, err := s.repos.Matches.GetByDebateID(ctx, nil, outcome.DebateID)
	if err != nil {
		return handleRepositoryError(err)
	}
	logger := s.logger.With(
		slog.Int("tournament_id", match.TournamentID),
		slog.Int("match_id", match.ID),
		slog.String("debate_id", outcome.DebateID))

	// Судьи опрашиваются до открытия транзакции.
	var verdicts []*models.JudgeScore
	if match.Kind == models.MatchGroup && !match.IsCompleted() {
		verdicts, err = s.judging.CollectVerdicts(ctx, match, outcome)
		if err != nil {
			return err
		}
	}

	recorded := false
	err = s.repos.Transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		current, err := s.repos.Matches.GetByID(ctx, exec, match.ID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if current.IsCompleted() {
			return nil
		}
		match = current

		switch match.Kind {
		case models.MatchGroup:
			breakdown, err := s.judging.StoreVerdicts(ctx, exec, outcome.DebateID, verdicts)
			if err != nil {
				return err
			}
			match.ScoreBreakdown = breakdown
		default:
			if err := s.resolveHeadToHead(ctx, exec, match, outcome); err != nil {
				return err
			}
		}

		now := s.now()
		match.Status = models.MatchCompleted
		match.CompletedAt = &now
		won, err := s.repos.Matches.Complete(ctx, exec, match)
		if err != nil {
			return fmt.Errorf("failed to complete match %d: %w", match.ID, err)
		}
		if !won {
			return nil
		}
		if err := s.recordResults(ctx, exec, match); err != nil {
			return err
		}
		recorded = true
		return nil
	})
	if err != nil {
		return err
	}

	if recorded {
		logger.InfoContext(ctx, "Match completed", slog.Int("round_number", match.RoundNumber))
		s.notify(ctx, match.TournamentID, notifications.Event{Type: notifications.EventMatchCompleted, Payload: match})
	} else {
		logger.InfoContext(ctx, "Match already completed, outcome ignored")
	}

	return s.AdvanceRound(ctx, match.TournamentID, match.RoundNumber)
}

// resolveHeadToHead fills scores and winner of a pairwise or finals match.
func (s *AdvancementService) resolveHeadToHead(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, outcome *models.DebateOutcome) error {
	if match.Participant1ID == nil || match.Participant2ID == nil {
		return fmt.Errorf("%w: match %d has an empty slot", ErrInvalidOutcome, match.ID)
	}
	p1ID, p2ID := *match.Participant1ID, *match.Participant2ID

	if len(outcome.Breakdown) > 0 {
		match.ScoreBreakdown = models.ScoreBreakdown(outcome.Breakdown)
	}
	totals := match.ScoreBreakdown.Totals()
	scoreOf := func(id int) *float64 {
		if v, ok := outcome.Scores[id]; ok {
			return &v
		}
		if v, ok := totals[id]; ok {
			return &v
		}
		return nil
	}
	match.Participant1Score = scoreOf(p1ID)
	match.Participant2Score = scoreOf(p2ID)

	if outcome.WinnerID != nil {
		if !match.Involves(*outcome.WinnerID) {
			return fmt.Errorf("%w: winner %d is not in match %d", ErrInvalidOutcome, *outcome.WinnerID, match.ID)
		}
		winner := *outcome.WinnerID
		match.WinnerID = &winner
		return nil
	}

	if match.Participant1Score != nil && match.Participant2Score != nil && *match.Participant1Score != *match.Participant2Score {
		winner := p1ID
		if *match.Participant2Score > *match.Participant1Score {
			winner = p2ID
		}
		match.WinnerID = &winner
		return nil
	}

	p1, err := s.repos.Participants.GetByID(ctx, exec, p1ID)
	if err != nil {
		return handleRepositoryError(err)
	}
	p2, err := s.repos.Participants.GetByID(ctx, exec, p2ID)
	if err != nil {
		return handleRepositoryError(err)
	}
	a, b := brackets.HeadToHeadStandings(match, p1, p2)
	winner := s.tiebreaker.PickWinner(a, b)
	s.logger.WarnContext(ctx, "Debate resolved without a winner, decided by tiebreak",
		slog.Int("match_id", match.ID),
		slog.Int("winner_id", winner))
	match.WinnerID = &winner
	return nil
}

func (s *AdvancementService) recordResults(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if match.Kind == models.MatchGroup {
		for id, total := range match.ScoreBreakdown.Totals() {
			if !match.Involves(id) {
				continue
			}
			if err := s.repos.Participants.RecordResult(ctx, exec, id, 0, 0, total); err != nil {
				return fmt.Errorf("failed to record group score of participant %d: %w", id, err)
			}
		}
		return nil
	}

	for _, id := range match.ParticipantIDs() {
		score, _ := match.ScoreFor(id)
		wins, losses := 0, 1
		if match.WinnerID != nil && *match.WinnerID == id {
			wins, losses = 1, 0
		}
		if err := s.repos.Participants.RecordResult(ctx, exec, id, wins, losses, score); err != nil {
			return fmt.Errorf("failed to record result of participant %d: %w", id, err)
		}
	}
	return nil
}

// AdvanceRound closes the round once all of its matches are completed and
// sets up whatever follows it. Repeated calls for a closed round are no-ops.
func (s *AdvancementService) AdvanceRound(ctx context.Context, tournamentID, roundNumber int) error {
	current := roundNumber
	for depth := 0; ; depth++ {
		if depth >= s.maxCascadeDepth {
			s.logger.ErrorContext(ctx, "Round advancement cascade stopped at depth limit",
				slog.Int("tournament_id", tournamentID),
				slog.Int("round_number", current),
				slog.Int("max_depth", s.maxCascadeDepth))
			return fmt.Errorf("%w: tournament %d, round %d", ErrCascadeDepthExceeded, tournamentID, current)
		}

		step, err := s.advanceOnce(ctx, tournamentID, current)
		if err != nil {
			return err
		}
		s.publish(ctx, step)

		if step.nextRound == 0 || !step.nextResolved {
			return nil
		}
		current = step.nextRound
	}
}

func (s *AdvancementService) advanceOnce(ctx context.Context, tournamentID, roundNumber int) (*advanceStep, error) {
	step := &advanceStep{}
	err := s.repos.Transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.repos.Tournaments.LockForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		step.tournament = t
		if t.IsCompleted() {
			return nil
		}
		if t.Status != models.TournamentInProgress {
			return ErrTournamentNotInProgress
		}

		round, err := s.repos.Rounds.GetByNumber(ctx, exec, tournamentID, roundNumber)
		if err != nil {
			return handleRepositoryError(err)
		}
		matches, err := s.repos.Matches.ListByRound(ctx, exec, round.ID)
		if err != nil {
			return fmt.Errorf("failed to list matches of round %d: %w", roundNumber, err)
		}
		if len(matches) == 0 {
			s.logger.WarnContext(ctx, "Round has no matches, nothing to advance",
				slog.Int("tournament_id", tournamentID),
				slog.Int("round_number", roundNumber))
			return nil
		}
		if !allCompleted(matches) {
			return nil
		}

		now := s.now()
		closed, err := s.repos.Rounds.MarkCompleted(ctx, exec, round.ID, now)
		if err != nil {
			return err
		}
		step.roundClosed = closed

		next, err := s.repos.Rounds.GetByNumber(ctx, exec, tournamentID, roundNumber+1)
		switch {
		case err == nil:
			nextMatches, err := s.repos.Matches.ListByRound(ctx, exec, next.ID)
			if err != nil {
				return fmt.Errorf("failed to list matches of round %d: %w", next.RoundNumber, err)
			}
			step.nextRound = next.RoundNumber
			step.nextResolved = len(nextMatches) > 0 && allCompleted(nextMatches)
			return nil
		case !errors.Is(err, repositories.ErrRoundNotFound):
			return err
		}

		format, err := s.formatFor(t)
		if err != nil {
			return err
		}
		active, err := s.repos.Participants.ListByTournament(ctx, exec, tournamentID, statusPtr(models.ParticipantActive))
		if err != nil {
			return fmt.Errorf("failed to list active participants: %w", err)
		}

		result, err := format.Eliminate(brackets.EliminationInput{
			Tournament:  t,
			RoundNumber: roundNumber,
			Matches:     matches,
			Active:      active,
		})
		if err != nil {
			return validationError(err)
		}

		activeIndex := participantIndex(active)
		for _, e := range result.Eliminated {
			done, err := s.repos.Participants.Eliminate(ctx, exec, e.ParticipantID, roundNumber, e.Reason, now)
			if err != nil {
				return fmt.Errorf("failed to eliminate participant %d: %w", e.ParticipantID, err)
			}
			if !done {
				continue
			}
			if p, ok := activeIndex[e.ParticipantID]; ok {
				reason, eliminatedIn := e.Reason, roundNumber
				p.Status = models.ParticipantEliminated
				p.EliminationReason = &reason
				p.EliminationRound = &eliminatedIn
				p.EliminatedAt = &now
				step.eliminated = append(step.eliminated, p)
			}
		}

		if format.IsTerminal(brackets.TerminalInput{
			Tournament:  t,
			RoundNumber: roundNumber,
			Matches:     matches,
			Remaining:   len(result.Advancing),
		}) {
			completion, err := s.completion.completeWithin(ctx, exec, t, matches, now)
			if err != nil {
				return err
			}
			step.completion = completion
			return nil
		}

		advancing := result.Advancing
		reseeded := false
		if t.ReseedAfterRound {
			advancing, err = s.seeding.reseedWithin(ctx, exec, advancing, t.ReseedMethod)
			if err != nil {
				return err
			}
			reseeded = true
		}

		plans, err := format.PairRound(brackets.PairingInput{
			Tournament:  t,
			RoundNumber: roundNumber + 1,
			Active:      advancing,
			Advancing:   advancing,
			Reseeded:    reseeded,
		})
		if err != nil {
			return validationError(err)
		}

		_, created, isNew, err := openRound(ctx, s.repos, exec, tournamentID, roundNumber+1, plans, now)
		if err != nil {
			return err
		}
		step.nextRound = roundNumber + 1
		if isNew {
			step.newMatches = created
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return step, nil
}

// publish runs the post-commit side effects of one advancement step.
func (s *AdvancementService) publish(ctx context.Context, step *advanceStep) {
	t := step.tournament
	if t == nil {
		return
	}

	for _, p := range step.eliminated {
		event := notifications.Event{Type: notifications.EventParticipantOut, Payload: p}
		s.notify(ctx, t.ID, event)
		if s.notifier != nil {
			if err := s.notifier.NotifyParticipant(ctx, p.UserID, event); err != nil {
				s.logger.WarnContext(ctx, "Failed to notify eliminated participant",
					slog.Int("participant_id", p.ID),
					slog.Any("error", err))
			}
		}
	}

	if step.completion != nil {
		s.completion.announce(ctx, step.completion)
		return
	}

	if len(step.newMatches) > 0 {
		s.logger.InfoContext(ctx, "Round started",
			slog.Int("tournament_id", t.ID),
			slog.Int("round_number", step.nextRound),
			slog.Int("matches", len(step.newMatches)),
			slog.Int("eliminated", len(step.eliminated)))
		s.notify(ctx, t.ID, notifications.Event{
			Type: notifications.EventRoundStarted,
			Payload: map[string]interface{}{
				"round_number": step.nextRound,
				"match_ids":    matchIDs(step.newMatches),
			},
		})
		if err := s.hydrate(ctx, t.ID, step.newMatches); err != nil {
			s.logger.ErrorContext(ctx, "Failed to request debates for new round, the sweeper will retry",
				slog.Int("tournament_id", t.ID),
				slog.Int("round_number", step.nextRound),
				slog.Any("error", err))
		}
	}
}

func (s *AdvancementService) notify(ctx context.Context, tournamentID int, event notifications.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.TournamentUpdated(ctx, tournamentID, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to send tournament notification",
			slog.Int("tournament_id", tournamentID),
			slog.String("event", string(event.Type)),
			slog.Any("error", err))
	}
}

// HydrateDebates requests a debate for every SCHEDULED match of the
// tournament that does not have one yet.
func (s *AdvancementService) HydrateDebates(ctx context.Context, tournamentID int) error {
	missing, err := s.repos.Matches.ListMissingDebate(ctx, nil, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to list matches without debates: %w", err)
	}
	return s.hydrate(ctx, tournamentID, missing)
}

func (s *AdvancementService) hydrate(ctx context.Context, tournamentID int, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	participants, err := s.repos.Participants.ListByTournament(ctx, nil, tournamentID, nil)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	index := participantIndex(participants)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(hydrationConcurrency)
	for _, m := range matches {
		if m.DebateID != nil {
			continue
		}
		m := m
		g.Go(func() error {
			req := debates.DebateRequest{
				TournamentID: tournamentID,
				MatchID:      m.ID,
				RoundNumber:  m.RoundNumber,
				Kind:         m.Kind,
				Rounds:       m.DebateRounds,
			}
			for _, id := range m.ParticipantIDs() {
				dp := debates.DebateParticipant{ParticipantID: id}
				if p, ok := index[id]; ok {
					dp.UserID = p.UserID
					dp.Position = p.SelectedPosition
				}
				req.Participants = append(req.Participants, dp)
			}

			debateID, err := s.debates.CreateDebate(gCtx, req)
			if err != nil {
				return fmt.Errorf("failed to create debate for match %d: %w", m.ID, err)
			}
			attached, err := s.repos.Matches.AttachDebate(gCtx, nil, m.ID, debateID)
			if err != nil {
				return fmt.Errorf("failed to attach debate %s to match %d: %w", debateID, m.ID, err)
			}
			if attached {
				m.DebateID = &debateID
				m.Status = models.MatchInProgress
			} else {
				s.logger.DebugContext(gCtx, "Match already had a debate", slog.Int("match_id", m.ID))
			}
			return nil
		})
	}
	return g.Wait()
}

// Reconcile repairs a tournament after lost events or crashes: it requests
// missing debates and re-runs advancement for the current round.
func (s *AdvancementService) Reconcile(ctx context.Context, tournamentID int) error {
	t, err := s.repos.Tournaments.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return handleRepositoryError(err)
	}
	if t.Status != models.TournamentInProgress {
		return nil
	}

	if err := s.HydrateDebates(ctx, tournamentID); err != nil {
		s.logger.WarnContext(ctx, "Debate hydration failed during reconcile",
			slog.Int("tournament_id", tournamentID),
			slog.Any("error", err))
	}

	rounds, err := s.repos.Rounds.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to list rounds: %w", err)
	}
	current := models.CurrentRound(rounds)
	if current == 0 {
		return nil
	}
	return s.AdvanceRound(ctx, tournamentID, current)
}

func statusPtr(status models.ParticipantStatus) *models.ParticipantStatus {
	return &status
}
