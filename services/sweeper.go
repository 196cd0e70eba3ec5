package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/debate-tournament/repositories"
	"github.com/go-co-op/gocron/v2"
)

const DefaultSweepInterval = time.Minute

type reconciler interface {
	Reconcile(ctx context.Context, tournamentID int) error
}

// Sweeper periodically reconciles every IN_PROGRESS tournament.
type Sweeper struct {
	scheduler   gocron.Scheduler
	tournaments repositories.TournamentRepository
	advancement reconciler
	interval    time.Duration
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSweeper(tournaments repositories.TournamentRepository, advancement reconciler, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sweeper{
		scheduler:   scheduler,
		tournaments: tournaments,
		advancement: advancement,
		interval:    interval,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.Sweep(s.ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule sweep job: %w", err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.logger.Info("Sweeper started", slog.Duration("interval", s.interval))
	s.scheduler.Start()
}

func (s *Sweeper) Shutdown() error {
	s.cancel()
	return s.scheduler.Shutdown()
}

// Sweep reconciles each IN_PROGRESS tournament once and returns how many failed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	tournaments, err := s.tournaments.ListInProgress(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Sweeper failed to list tournaments", slog.Any("error", err))
		return 0
	}

	failed := 0
	for _, t := range tournaments {
		if ctx.Err() != nil {
			return failed
		}
		if err := s.advancement.Reconcile(ctx, t.ID); err != nil {
			failed++
			s.logger.WarnContext(ctx, "Reconcile failed",
				slog.Int("tournament_id", t.ID),
				slog.Any("error", err))
		}
	}
	if len(tournaments) > 0 {
		s.logger.DebugContext(ctx, "Sweep finished",
			slog.Int("tournaments", len(tournaments)),
			slog.Int("failed", failed))
	}
	return failed
}
