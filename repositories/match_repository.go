package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/debate-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchDebateConflict  = errors.New("debate is already linked to another match")
	ErrMatchRoundInvalid    = errors.New("match round conflict or invalid")
	ErrMatchSlotConflict    = errors.New("a match already occupies this slot of the round")
	ErrMatchWinnerNotInside = errors.New("winner is not a participant of the match")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByDebateID(ctx context.Context, exec SQLExecutor, debateID string) (*models.Match, error)
	ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	ListMissingDebate(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	// AttachDebate links a debate to a SCHEDULED match and moves it to IN_PROGRESS.
	AttachDebate(ctx context.Context, exec SQLExecutor, matchID int, debateID string) (bool, error)
	// Complete stores the outcome once; later calls report false.
	Complete(ctx context.Context, exec SQLExecutor, match *models.Match) (bool, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	m.id, m.tournament_id, m.round_id, rd.round_number, m.order_in_round, m.kind,
	m.participant1_id, m.participant2_id, m.group_participant_ids, m.winner_id, m.status,
	m.participant1_score, m.participant2_score, m.score_breakdown, m.debate_id,
	m.debate_rounds, m.created_at, m.completed_at`

const matchFrom = ` FROM matches m JOIN rounds rd ON rd.id = m.round_id`

func scanMatch(row rowScanner, m *models.Match) error {
	var group []int64
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.RoundID, &m.RoundNumber, &m.OrderInRound, &m.Kind,
		&m.Participant1ID, &m.Participant2ID, pq.Array(&group), &m.WinnerID, &m.Status,
		&m.Participant1Score, &m.Participant2Score, &m.ScoreBreakdown, &m.DebateID,
		&m.DebateRounds, &m.CreatedAt, &m.CompletedAt,
	)
	if err != nil {
		return err
	}
	m.GroupParticipantIDs = toInts(group)
	return nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, round_id, order_in_round, kind, participant1_id, participant2_id,
			 group_participant_ids, status, debate_rounds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.TournamentID,
		m.RoundID,
		m.OrderInRound,
		m.Kind,
		m.Participant1ID,
		m.Participant2ID,
		pq.Array(toInt64s(m.GroupParticipantIDs)),
		m.Status,
		m.DebateRounds,
	).Scan(&m.ID, &m.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+matchFrom+` WHERE m.id = $1`, id)
}

func (r *postgresMatchRepository) GetByDebateID(ctx context.Context, exec SQLExecutor, debateID string) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+matchFrom+` WHERE m.debate_id = $1`, debateID)
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, arg interface{}) (*models.Match, error) {
	m := &models.Match{}
	if err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, arg), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match (%v): %w", arg, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + matchFrom + ` WHERE m.round_id = $1 ORDER BY m.order_in_round ASC, m.id ASC`
	return r.list(ctx, exec, query, roundID)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + matchFrom + ` WHERE m.tournament_id = $1 ORDER BY rd.round_number ASC, m.order_in_round ASC, m.id ASC`
	return r.list(ctx, exec, query, tournamentID)
}

func (r *postgresMatchRepository) ListMissingDebate(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + matchFrom + `
		WHERE m.tournament_id = $1 AND m.debate_id IS NULL AND m.status = $2
		ORDER BY rd.round_number ASC, m.order_in_round ASC`
	return r.list(ctx, exec, query, tournamentID, models.MatchScheduled)
}

func (r *postgresMatchRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if err := scanMatch(rows, m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) AttachDebate(ctx context.Context, exec SQLExecutor, matchID int, debateID string) (bool, error) {
	query := `
		UPDATE matches SET debate_id = $1, status = $2
		WHERE id = $3 AND debate_id IS NULL AND status = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, debateID, models.MatchInProgress, matchID, models.MatchScheduled)
	if err != nil {
		return false, r.handleMatchError(err)
	}
	return applied(result)
}

func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, m *models.Match) (bool, error) {
	query := `
		UPDATE matches
		SET winner_id = $1, participant1_score = $2, participant2_score = $3,
		    score_breakdown = $4, status = $5, completed_at = $6
		WHERE id = $7 AND status <> $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		m.WinnerID, m.Participant1Score, m.Participant2Score,
		m.ScoreBreakdown, models.MatchCompleted, m.CompletedAt, m.ID)
	if err != nil {
		return false, r.handleMatchError(err)
	}
	return applied(result)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			switch pqErr.Constraint {
			case "matches_debate_id_key":
				return ErrMatchDebateConflict
			case "matches_round_id_order_in_round_key":
				return ErrMatchSlotConflict
			}
		case "23503":
			if pqErr.Constraint == "matches_round_id_fkey" {
				return ErrMatchRoundInvalid
			}
			if pqErr.Constraint == "matches_winner_id_fkey" {
				return ErrMatchWinnerNotInside
			}
		}
	}
	return err
}
