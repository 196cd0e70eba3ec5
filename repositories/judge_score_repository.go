package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/debate-tournament/models"
)

// JudgeScoreRepository stores verdicts. A verdict is unique per
// (debate, participant, judge), so re-recording is a no-op.
type JudgeScoreRepository interface {
	ExistsForDebate(ctx context.Context, exec SQLExecutor, debateID string) (bool, error)
	BatchCreate(ctx context.Context, exec SQLExecutor, scores []*models.JudgeScore) (int, error)
	ListByDebate(ctx context.Context, exec SQLExecutor, debateID string) ([]*models.JudgeScore, error)
}

type postgresJudgeScoreRepository struct {
	db *sql.DB
}

func NewPostgresJudgeScoreRepository(db *sql.DB) JudgeScoreRepository {
	return &postgresJudgeScoreRepository{db: db}
}

func (r *postgresJudgeScoreRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresJudgeScoreRepository) ExistsForDebate(ctx context.Context, exec SQLExecutor, debateID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM judge_scores WHERE debate_id = $1)`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, debateID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check verdicts for debate %s: %w", debateID, err)
	}
	return exists, nil
}

// BatchCreate returns how many verdicts were actually inserted.
func (r *postgresJudgeScoreRepository) BatchCreate(ctx context.Context, exec SQLExecutor, scores []*models.JudgeScore) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO judge_scores (match_id, debate_id, participant_id, judge_id, score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (debate_id, participant_id, judge_id) DO NOTHING
		RETURNING id, created_at`

	inserted := 0
	for _, s := range scores {
		err := executor.QueryRowContext(ctx, query, s.MatchID, s.DebateID, s.ParticipantID, s.JudgeID, s.Score).
			Scan(&s.ID, &s.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("failed to insert verdict of judge %s for participant %d: %w", s.JudgeID, s.ParticipantID, err)
		}
		inserted++
	}
	return inserted, nil
}

func (r *postgresJudgeScoreRepository) ListByDebate(ctx context.Context, exec SQLExecutor, debateID string) ([]*models.JudgeScore, error) {
	query := `
		SELECT id, match_id, debate_id, participant_id, judge_id, score, created_at
		FROM judge_scores
		WHERE debate_id = $1
		ORDER BY participant_id ASC, judge_id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, debateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts for debate %s: %w", debateID, err)
	}
	defer rows.Close()

	scores := make([]*models.JudgeScore, 0)
	for rows.Next() {
		s := &models.JudgeScore{}
		if err := rows.Scan(&s.ID, &s.MatchID, &s.DebateID, &s.ParticipantID, &s.JudgeID, &s.Score, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verdicts: %w", err)
	}
	return scores, nil
}
