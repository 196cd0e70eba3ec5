package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/debate-tournament/models"
)

var ErrRoundNotFound = errors.New("round not found")

type RoundRepository interface {
	// GetOrCreate returns the single round for (tournamentID, roundNumber);
	// created is false when the row already existed.
	GetOrCreate(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) (round *models.Round, created bool, err error)
	GetByNumber(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) (*models.Round, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Round, error)
	MarkInProgress(ctx context.Context, exec SQLExecutor, id int, at time.Time) (bool, error)
	MarkCompleted(ctx context.Context, exec SQLExecutor, id int, at time.Time) (bool, error)
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const roundColumns = `id, tournament_id, round_number, status, started_at, completed_at, created_at`

func scanRound(row rowScanner, rd *models.Round) error {
	return row.Scan(&rd.ID, &rd.TournamentID, &rd.RoundNumber, &rd.Status, &rd.StartedAt, &rd.CompletedAt, &rd.CreatedAt)
}

func (r *postgresRoundRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) (*models.Round, bool, error) {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rounds (tournament_id, round_number, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id, round_number) DO NOTHING
		RETURNING ` + roundColumns

	rd := &models.Round{}
	err := scanRound(executor.QueryRowContext(ctx, query, tournamentID, roundNumber, models.RoundUpcoming), rd)
	if err == nil {
		return rd, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create round %d of tournament %d: %w", roundNumber, tournamentID, err)
	}

	existing, err := r.GetByNumber(ctx, executor, tournamentID, roundNumber)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *postgresRoundRepository) GetByNumber(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) (*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE tournament_id = $1 AND round_number = $2`
	rd := &models.Round{}
	if err := scanRound(r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, roundNumber), rd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d of tournament %d: %w", roundNumber, tournamentID, err)
	}
	return rd, nil
}

func (r *postgresRoundRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE tournament_id = $1 ORDER BY round_number ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	rounds := make([]*models.Round, 0)
	for rows.Next() {
		rd := &models.Round{}
		if err := scanRound(rows, rd); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rounds: %w", err)
	}
	return rounds, nil
}

func (r *postgresRoundRepository) MarkInProgress(ctx context.Context, exec SQLExecutor, id int, at time.Time) (bool, error) {
	query := `UPDATE rounds SET status = $1, started_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.RoundInProgress, at, id, models.RoundUpcoming)
	if err != nil {
		return false, fmt.Errorf("failed to start round %d: %w", id, err)
	}
	return applied(result)
}

// MarkCompleted reports true only for the call that performed the transition.
func (r *postgresRoundRepository) MarkCompleted(ctx context.Context, exec SQLExecutor, id int, at time.Time) (bool, error) {
	query := `UPDATE rounds SET status = $1, completed_at = $2 WHERE id = $3 AND status <> $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.RoundCompleted, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to complete round %d: %w", id, err)
	}
	return applied(result)
}
