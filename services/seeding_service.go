package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Dosada05/debate-tournament/brackets"
	"github.com/Dosada05/debate-tournament/models"
	"github.com/Dosada05/debate-tournament/repositories"
)

type SeedingService struct {
	repos  Repositories
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSeedingService(repos Repositories, rng *rand.Rand, logger *slog.Logger) *SeedingService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SeedingService{repos: repos, rng: rng, logger: logger}
}

// Reseed reorders every ACTIVE or REGISTERED participant of the tournament
// and rewrites seed and current seed. An empty method uses the tournament's own.
func (s *SeedingService) Reseed(ctx context.Context, tournamentID int, method models.ReseedMethod) ([]*models.Participant, error) {
	if method != "" && !method.Valid() {
		return nil, ErrInvalidReseedMethod
	}

	var ordered []*models.Participant
	err := s.repos.Transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.repos.Tournaments.LockForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.IsCompleted() {
			return ErrTournamentCompleted
		}
		if method == "" {
			method = t.ReseedMethod
		}

		all, err := s.repos.Participants.ListByTournament(ctx, exec, tournamentID, nil)
		if err != nil {
			return fmt.Errorf("failed to list participants of tournament %d: %w", tournamentID, err)
		}
		pool := make([]*models.Participant, 0, len(all))
		for _, p := range all {
			if p.Status == models.ParticipantActive || p.Status == models.ParticipantRegistered {
				pool = append(pool, p)
			}
		}

		ordered, err = s.reseedWithin(ctx, exec, pool, method)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Participants reseeded",
		slog.Int("tournament_id", tournamentID),
		slog.String("method", string(method)),
		slog.Int("participants", len(ordered)))
	return ordered, nil
}

// reseedWithin sorts a fixed snapshot and persists the new seeds on exec.
func (s *SeedingService) reseedWithin(ctx context.Context, exec repositories.SQLExecutor, participants []*models.Participant, method models.ReseedMethod) ([]*models.Participant, error) {
	ordered := s.order(participants, method)
	if len(ordered) == 0 {
		return ordered, nil
	}
	if err := s.repos.Participants.UpdateSeeds(ctx, exec, ordered); err != nil {
		return nil, fmt.Errorf("failed to store seeds: %w", err)
	}
	return ordered, nil
}

func (s *SeedingService) order(participants []*models.Participant, method models.ReseedMethod) []*models.Participant {
	s.mu.Lock()
	ordered := brackets.SortForSeeding(participants, method, s.rng)
	s.mu.Unlock()

	brackets.AssignSeeds(ordered)
	return ordered
}
