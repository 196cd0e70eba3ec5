package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Dosada05/debate-tournament/debates"
	"github.com/Dosada05/debate-tournament/models"
	"github.com/Dosada05/debate-tournament/repositories"
	"golang.org/x/sync/errgroup"
)

const (
	JudgePanelSize = 3
	MinJudgeScore  = 0
	MaxJudgeScore  = 100
)

// JudgingService scores KING_OF_THE_HILL group rounds with a random judge panel.
type JudgingService struct {
	judges debates.JudgePool
	scores repositories.JudgeScoreRepository
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewJudgingService(judges debates.JudgePool, scores repositories.JudgeScoreRepository, rng *rand.Rand, logger *slog.Logger) *JudgingService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &JudgingService{judges: judges, scores: scores, rng: rng, logger: logger}
}

// CollectVerdicts asks a judge panel to score the match's debate. It talks to
// the judge pool only and must run outside a transaction. A nil result means
// verdicts for the debate are already stored.
func (s *JudgingService) CollectVerdicts(ctx context.Context, match *models.Match, outcome *models.DebateOutcome) ([]*models.JudgeScore, error) {
	exists, err := s.scores.ExistsForDebate(ctx, nil, outcome.DebateID)
	if err != nil {
		return nil, fmt.Errorf("failed to check verdicts for debate %s: %w", outcome.DebateID, err)
	}
	if exists {
		s.logger.InfoContext(ctx, "Verdicts already recorded, reusing them",
			slog.String("debate_id", outcome.DebateID),
			slog.Int("match_id", match.ID))
		return nil, nil
	}

	panel, err := s.drawPanel(ctx)
	if err != nil {
		return nil, err
	}

	participantIDs := match.ParticipantIDs()
	submissions := make(map[int]string, len(participantIDs))
	for _, id := range participantIDs {
		submissions[id] = outcome.Submissions[id]
	}

	results := make([]map[int]int, len(panel))
	g, gCtx := errgroup.WithContext(ctx)
	for i, judge := range panel {
		i, judge := i, judge
		g.Go(func() error {
			scored, err := s.judges.ScoreSubmissions(gCtx, judge.ID, submissions)
			if err != nil {
				return fmt.Errorf("judge %s failed to score debate %s: %w", judge.ID, outcome.DebateID, err)
			}
			results[i] = scored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	verdicts := make([]*models.JudgeScore, 0, len(panel)*len(participantIDs))
	for i, judge := range panel {
		for _, participantID := range participantIDs {
			score, ok := results[i][participantID]
			if !ok {
				s.logger.WarnContext(ctx, "Judge returned no score for participant, recording 0",
					slog.String("judge_id", judge.ID),
					slog.Int("participant_id", participantID))
			}
			verdicts = append(verdicts, &models.JudgeScore{
				MatchID:       match.ID,
				DebateID:      outcome.DebateID,
				ParticipantID: participantID,
				JudgeID:       judge.ID,
				Score:         clampScore(score),
			})
		}
	}
	return verdicts, nil
}

// StoreVerdicts saves verdicts on exec and returns the breakdown of everything
// stored for the debate. Verdicts that already exist win over new ones.
func (s *JudgingService) StoreVerdicts(ctx context.Context, exec repositories.SQLExecutor, debateID string, verdicts []*models.JudgeScore) (models.ScoreBreakdown, error) {
	if len(verdicts) > 0 {
		inserted, err := s.scores.BatchCreate(ctx, exec, verdicts)
		if err != nil {
			return nil, fmt.Errorf("failed to store verdicts for debate %s: %w", debateID, err)
		}
		if inserted < len(verdicts) {
			s.logger.InfoContext(ctx, "Some verdicts already existed and were kept",
				slog.String("debate_id", debateID),
				slog.Int("inserted", inserted),
				slog.Int("total", len(verdicts)))
		}
	}

	breakdown, err := s.storedBreakdown(ctx, exec, debateID)
	if err != nil {
		return nil, err
	}
	if len(breakdown) == 0 {
		return nil, fmt.Errorf("%w: no verdicts stored for debate %s", ErrInvalidOutcome, debateID)
	}
	return breakdown, nil
}

func (s *JudgingService) drawPanel(ctx context.Context) ([]models.Judge, error) {
	judges, err := s.judges.ListJudges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list judges: %w", err)
	}
	if len(judges) == 0 {
		return nil, ErrNoJudges
	}
	if len(judges) < JudgePanelSize {
		s.logger.WarnContext(ctx, "Judge pool is smaller than the panel size, using every judge",
			slog.Int("available", len(judges)),
			slog.Int("panel_size", JudgePanelSize))
	}

	pool := make([]models.Judge, len(judges))
	copy(pool, judges)
	s.mu.Lock()
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	s.mu.Unlock()

	if len(pool) > JudgePanelSize {
		pool = pool[:JudgePanelSize]
	}
	return pool, nil
}

func (s *JudgingService) storedBreakdown(ctx context.Context, exec repositories.SQLExecutor, debateID string) (models.ScoreBreakdown, error) {
	verdicts, err := s.scores.ListByDebate(ctx, exec, debateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load verdicts for debate %s: %w", debateID, err)
	}
	breakdown := make(models.ScoreBreakdown)
	for _, v := range verdicts {
		if breakdown[v.ParticipantID] == nil {
			breakdown[v.ParticipantID] = make(map[string]float64)
		}
		breakdown[v.ParticipantID][v.JudgeID] = float64(v.Score)
	}
	return breakdown, nil
}

func clampScore(score int) int {
	if score < MinJudgeScore {
		return MinJudgeScore
	}
	if score > MaxJudgeScore {
		return MaxJudgeScore
	}
	return score
}
