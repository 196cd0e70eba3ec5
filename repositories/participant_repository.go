package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/debate-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantConflict          = errors.New("participant conflict: user already registered for this tournament")
	ErrParticipantTournamentInvalid = errors.New("participant tournament conflict or invalid")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, statusFilter *models.ParticipantStatus) ([]*models.Participant, error)
	UpdateSeeds(ctx context.Context, exec SQLExecutor, participants []*models.Participant) error
	// Activate moves every REGISTERED participant of the tournament to ACTIVE.
	Activate(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error)
	// Eliminate is one-way: it only touches ACTIVE rows and reports whether it did.
	Eliminate(ctx context.Context, exec SQLExecutor, id int, round int, reason models.EliminationReason, at time.Time) (bool, error)
	RecordResult(ctx context.Context, exec SQLExecutor, id int, winsDelta, lossesDelta int, scoreDelta float64) error
	AddCumulativeScore(ctx context.Context, exec SQLExecutor, id int, delta float64) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participantColumns = `
	id, tournament_id, user_id, seed, current_seed, elo_at_start, status,
	wins, losses, cumulative_score, selected_position,
	eliminated_at, elimination_round, elimination_reason, created_at`

func scanParticipant(row rowScanner, p *models.Participant) error {
	return row.Scan(
		&p.ID, &p.TournamentID, &p.UserID, &p.Seed, &p.CurrentSeed, &p.EloAtStart, &p.Status,
		&p.Wins, &p.Losses, &p.CumulativeScore, &p.SelectedPosition,
		&p.EliminatedAt, &p.EliminationRound, &p.EliminationReason, &p.CreatedAt,
	)
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (tournament_id, user_id, elo_at_start, status, selected_position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		p.TournamentID,
		p.UserID,
		p.EloAtStart,
		p.Status,
		p.SelectedPosition,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "participants_tournament_id_user_id_key" {
					return ErrParticipantConflict
				}
			case "23503": // foreign_key_violation
				if pqErr.Constraint == "participants_tournament_id_fkey" {
					return ErrParticipantTournamentInvalid
				}
			}
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	p := &models.Participant{}
	if err := scanParticipant(r.getExecutor(exec).QueryRowContext(ctx, query, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, statusFilter *models.ParticipantStatus) ([]*models.Participant, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + participantColumns + ` FROM participants WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, *statusFilter)
	}
	queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")

	rows, err := r.getExecutor(exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p := &models.Participant{}
		if err := scanParticipant(rows, p); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) UpdateSeeds(ctx context.Context, exec SQLExecutor, participants []*models.Participant) error {
	executor := r.getExecutor(exec)
	query := `UPDATE participants SET seed = $1, current_seed = $2 WHERE id = $3`
	for _, p := range participants {
		result, err := executor.ExecContext(ctx, query, p.Seed, p.CurrentSeed, p.ID)
		if err != nil {
			return fmt.Errorf("failed to update seed of participant %d: %w", p.ID, err)
		}
		if err := checkAffectedRows(result, ErrParticipantNotFound); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresParticipantRepository) Activate(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error) {
	query := `UPDATE participants SET status = $1 WHERE tournament_id = $2 AND status = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		models.ParticipantActive, tournamentID, models.ParticipantRegistered)
	if err != nil {
		return 0, fmt.Errorf("failed to activate participants of tournament %d: %w", tournamentID, err)
	}
	return result.RowsAffected()
}

func (r *postgresParticipantRepository) Eliminate(ctx context.Context, exec SQLExecutor, id int, round int, reason models.EliminationReason, at time.Time) (bool, error) {
	query := `
		UPDATE participants
		SET status = $1, eliminated_at = $2, elimination_round = $3, elimination_reason = $4
		WHERE id = $5 AND status = $6`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		models.ParticipantEliminated, at, round, reason, id, models.ParticipantActive)
	if err != nil {
		return false, fmt.Errorf("failed to eliminate participant %d: %w", id, err)
	}
	return applied(result)
}

func (r *postgresParticipantRepository) RecordResult(ctx context.Context, exec SQLExecutor, id int, winsDelta, lossesDelta int, scoreDelta float64) error {
	query := `
		UPDATE participants
		SET wins = wins + $1, losses = losses + $2, cumulative_score = cumulative_score + $3
		WHERE id = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, winsDelta, lossesDelta, scoreDelta, id)
	if err != nil {
		return fmt.Errorf("failed to record result for participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) AddCumulativeScore(ctx context.Context, exec SQLExecutor, id int, delta float64) error {
	return r.RecordResult(ctx, exec, id, 0, 0, delta)
}
