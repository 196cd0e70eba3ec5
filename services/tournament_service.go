package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/debate-tournament/brackets"
	"github.com/Dosada05/debate-tournament/models"
	"github.com/Dosada05/debate-tournament/notifications"
	"github.com/Dosada05/debate-tournament/repositories"
	"golang.org/x/sync/errgroup"
)

type CreateTournamentInput struct {
	Name             string                  `json:"name"`
	Format           models.TournamentFormat `json:"format"`
	MaxParticipants  int                     `json:"max_participants"`
	ReseedAfterRound bool                    `json:"reseed_after_round"`
	ReseedMethod     models.ReseedMethod     `json:"reseed_method"`
	StakedBeltID     *int                    `json:"staked_belt_id,omitempty"`
}

type RegisterParticipantInput struct {
	UserID           int                    `json:"user_id"`
	EloRating        int                    `json:"elo_rating"`
	SelectedPosition *models.DebatePosition `json:"selected_position,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	RegisterParticipant(ctx context.Context, tournamentID int, input RegisterParticipantInput) (*models.Participant, error)
	StartTournament(ctx context.Context, tournamentID int, userID int, role models.UserRole) (*models.Tournament, error)
	ReseedParticipants(ctx context.Context, tournamentID int, method models.ReseedMethod, userID int, role models.UserRole) ([]*models.Participant, error)
	AdvanceRound(ctx context.Context, tournamentID, roundNumber int, userID int, role models.UserRole) error
	GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
	GetFullTournamentData(ctx context.Context, tournamentID int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type tournamentService struct {
	repos       Repositories
	seeding     *SeedingService
	advancement *AdvancementService
	notifier    notifications.Notifier
	tiebreaker  *brackets.Tiebreaker
	logger      *slog.Logger
	now         func() time.Time
}

func NewTournamentService(
	repos Repositories,
	seeding *SeedingService,
	advancement *AdvancementService,
	notifier notifications.Notifier,
	tiebreaker *brackets.Tiebreaker,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		repos:       repos,
		seeding:     seeding,
		advancement: advancement,
		notifier:    notifier,
		tiebreaker:  tiebreaker,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !input.Format.Valid() {
		return nil, ErrTournamentInvalidFormat
	}
	if input.MaxParticipants < 2 {
		return nil, ErrTournamentInvalidCapacity
	}
	method := input.ReseedMethod
	if method == "" {
		method = models.ReseedEloBased
	}
	if !method.Valid() {
		return nil, ErrInvalidReseedMethod
	}

	t := &models.Tournament{
		Name:             name,
		Format:           input.Format,
		Status:           models.TournamentUpcoming,
		MaxParticipants:  input.MaxParticipants,
		ReseedAfterRound: input.ReseedAfterRound,
		ReseedMethod:     method,
		OrganizerID:      organizerID,
		StakedBeltID:     input.StakedBeltID,
	}
	if err := s.repos.Tournaments.Create(ctx, nil, t); err != nil {
		return nil, handleRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "Tournament created",
		slog.Int("tournament_id", t.ID),
		slog.String("format", string(t.Format)),
		slog.Int("organizer_id", organizerID))
	return t, nil
}

func (s *tournamentService) RegisterParticipant(ctx context.Context, tournamentID int, input RegisterParticipantInput) (*models.Participant, error) {
	if input.UserID <= 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrValidationFailed)
	}

	var participant *models.Participant
	err := s.repos.Transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.repos.Tournaments.LockForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.TournamentUpcoming {
			return ErrRegistrationClosed
		}

		registered, err := s.repos.Participants.ListByTournament(ctx, exec, tournamentID, nil)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}
		if len(registered) >= t.MaxParticipants {
			return ErrTournamentFull
		}

		position := input.SelectedPosition
		if t.Format == models.FormatChampionship {
			if position == nil {
				return ErrPositionRequired
			}
			if !position.Valid() {
				return ErrInvalidPosition
			}
			taken := 0
			for _, p := range registered {
				if p.HasPosition(*position) {
					taken++
				}
			}
			if taken >= t.MaxParticipants/2 {
				return fmt.Errorf("%w: no %s places left", ErrTournamentFull, *position)
			}
		} else {
			position = nil
		}

		participant = &models.Participant{
			TournamentID:     tournamentID,
			UserID:           input.UserID,
			EloAtStart:       input.EloRating,
			Status:           models.ParticipantRegistered,
			SelectedPosition: position,
		}
		if err := s.repos.Participants.Create(ctx, exec, participant); err != nil {
			return handleRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

func (s *tournamentService) authorize(t *models.Tournament, userID int, role models.UserRole) error {
	if role == models.RoleAdmin || t.OrganizerID == userID {
		return nil
	}
	return ErrForbiddenOperation
}

// StartTournament validates the roster, seeds by ELO, activates everyone and
// opens round 1.
func (s *tournamentService) StartTournament(ctx context.Context, tournamentID int, userID int, role models.UserRole) (*models.Tournament, error) {
	var (
		tournament *models.Tournament
		matches    []*models.Match
	)
	err := s.repos.Transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.repos.Tournaments.LockForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if err := s.authorize(t, userID, role); err != nil {
			return err
		}
		switch t.Status {
		case models.TournamentCompleted:
			return ErrTournamentCompleted
		case models.TournamentInProgress:
			return ErrTournamentNotStartable
		}

		format, err := brackets.ForFormat(t.Format, brackets.Options{Tiebreaker: s.tiebreaker, Logger: s.logger})
		if err != nil {
			return validationError(err)
		}

		registered, err := s.repos.Participants.ListByTournament(ctx, exec, tournamentID, statusPtr(models.ParticipantRegistered))
		if err != nil {
			return fmt.Errorf("failed to list registered participants: %w", err)
		}
		if err := format.ValidateStart(t, registered); err != nil {
			return validationError(err)
		}

		seeded, err := s.seeding.reseedWithin(ctx, exec, registered, models.ReseedEloBased)
		if err != nil {
			return err
		}
		if _, err := s.repos.Participants.Activate(ctx, exec, tournamentID); err != nil {
			return fmt.Errorf("failed to activate participants: %w", err)
		}
		for _, p := range seeded {
			p.Status = models.ParticipantActive
		}

		now := s.now()
		totalRounds := format.PlannedRounds(len(seeded))
		started, err := s.repos.Tournaments.Start(ctx, exec, tournamentID, totalRounds, now)
		if err != nil {
			return fmt.Errorf("failed to start tournament: %w", err)
		}
		if !started {
			return ErrTournamentNotStartable
		}
		t.Status = models.TournamentInProgress
		t.TotalRounds = totalRounds
		t.StartDate = &now

		plans, err := format.PairRound(brackets.PairingInput{Tournament: t, RoundNumber: 1, Active: seeded})
		if err != nil {
			return validationError(err)
		}
		_, matches, _, err = openRound(ctx, s.repos, exec, tournamentID, 1, plans, now)
		if err != nil {
			return err
		}
		t.CurrentRound = 1
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Tournament started",
		slog.Int("tournament_id", tournamentID),
		slog.Int("total_rounds", tournament.TotalRounds),
		slog.Int("matches", len(matches)))

	if s.notifier != nil {
		events := []notifications.Event{
			{Type: notifications.EventTournamentStarted, Payload: tournament},
			{Type: notifications.EventRoundStarted, Payload: map[string]interface{}{"round_number": 1, "match_ids": matchIDs(matches)}},
		}
		for _, event := range events {
			if err := s.notifier.TournamentUpdated(ctx, tournamentID, event); err != nil {
				s.logger.WarnContext(ctx, "Failed to send tournament notification",
					slog.Int("tournament_id", tournamentID),
					slog.String("event", string(event.Type)),
					slog.Any("error", err))
			}
		}
	}

	if err := s.advancement.hydrate(ctx, tournamentID, matches); err != nil {
		s.logger.ErrorContext(ctx, "Failed to request debates for round 1, the sweeper will retry",
			slog.Int("tournament_id", tournamentID),
			slog.Any("error", err))
	}
	tournament.Matches = MatchesToValues(matches)
	return tournament, nil
}

func (s *tournamentService) ReseedParticipants(ctx context.Context, tournamentID int, method models.ReseedMethod, userID int, role models.UserRole) ([]*models.Participant, error) {
	t, err := s.repos.Tournaments.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if err := s.authorize(t, userID, role); err != nil {
		return nil, err
	}
	return s.seeding.Reseed(ctx, tournamentID, method)
}

func (s *tournamentService) AdvanceRound(ctx context.Context, tournamentID, roundNumber int, userID int, role models.UserRole) error {
	t, err := s.repos.Tournaments.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return handleRepositoryError(err)
	}
	if err := s.authorize(t, userID, role); err != nil {
		return err
	}
	return s.advancement.AdvanceRound(ctx, tournamentID, roundNumber)
}

func (s *tournamentService) GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	t, err := s.repos.Tournaments.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	rounds, err := s.repos.Rounds.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	t.CurrentRound = models.CurrentRound(rounds)
	return t, nil
}

// GetFullTournamentData loads the tournament with its rounds, participants
// and matches in parallel.
func (s *tournamentService) GetFullTournamentData(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.repos.Tournaments.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	var (
		rounds       []*models.Round
		participants []*models.Participant
		matches      []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		rounds, err = s.repos.Rounds.ListByTournament(gCtx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get rounds for tournament %d: %w", tournamentID, err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		participants, err = s.repos.Participants.ListByTournament(gCtx, nil, tournamentID, nil)
		if err != nil {
			return fmt.Errorf("failed to get participants for tournament %d: %w", tournamentID, err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		matches, err = s.repos.Matches.ListByTournament(gCtx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get matches for tournament %d: %w", tournamentID, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	tournament.CurrentRound = models.CurrentRound(rounds)
	tournament.Rounds = RoundsToValues(rounds)
	tournament.Participants = ParticipantsToValues(participants)
	tournament.Matches = MatchesToValues(matches)
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repos.Tournaments.List(ctx, filter)
}

func (s *tournamentService) ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	if _, err := s.repos.Tournaments.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.repos.Matches.ListByTournament(ctx, nil, tournamentID)
}
