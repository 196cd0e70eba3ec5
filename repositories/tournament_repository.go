package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/debate-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this organizer")
	ErrTournamentInvalidChamp = errors.New("invalid champion participant reference")
)

type ListTournamentsFilter struct {
	Format      *models.TournamentFormat
	Status      *models.TournamentStatus
	OrganizerID *int
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	// LockForUpdate reads the row with SELECT ... FOR UPDATE; exec must be a transaction.
	LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	Start(ctx context.Context, exec SQLExecutor, id int, totalRounds int, startedAt time.Time) (bool, error)
	Complete(ctx context.Context, exec SQLExecutor, id int, championParticipantID *int, endedAt time.Time) (bool, error)
	ListInProgress(ctx context.Context) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, format, status, total_rounds, max_participants,
	reseed_after_round, reseed_method, organizer_id, staked_belt_id,
	champion_participant_id, start_date, end_date, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTournament(row rowScanner, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Format, &t.Status, &t.TotalRounds, &t.MaxParticipants,
		&t.ReseedAfterRound, &t.ReseedMethod, &t.OrganizerID, &t.StakedBeltID,
		&t.ChampionParticipantID, &t.StartDate, &t.EndDate, &t.CreatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments (
			name, format, status, total_rounds, max_participants,
			reseed_after_round, reseed_method, organizer_id, staked_belt_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.Format, t.Status, t.TotalRounds, t.MaxParticipants,
		t.ReseedAfterRound, t.ReseedMethod, t.OrganizerID, t.StakedBeltID,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getOne(ctx, r.getExecutor(exec), `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
}

func (r *postgresTournamentRepository) LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getOne(ctx, r.getExecutor(exec), `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresTournamentRepository) getOne(ctx context.Context, executor SQLExecutor, query string, id int) (*models.Tournament, error) {
	t := &models.Tournament{}
	if err := scanTournament(executor.QueryRowContext(ctx, query, id), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Format != nil {
		query += fmt.Sprintf(" AND format = $%d", argID)
		args = append(args, *filter.Format)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

// Start moves an UPCOMING tournament to IN_PROGRESS. It reports false when
// the tournament had already left UPCOMING.
func (r *postgresTournamentRepository) Start(ctx context.Context, exec SQLExecutor, id int, totalRounds int, startedAt time.Time) (bool, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET status = $1, total_rounds = $2, start_date = $3
		WHERE id = $4 AND status = $5`
	result, err := executor.ExecContext(ctx, query,
		models.TournamentInProgress, totalRounds, startedAt, id, models.TournamentUpcoming)
	if err != nil {
		return false, r.handleTournamentError(err)
	}
	return applied(result)
}

// Complete is the terminal transition. Only the first caller gets true.
func (r *postgresTournamentRepository) Complete(ctx context.Context, exec SQLExecutor, id int, championParticipantID *int, endedAt time.Time) (bool, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET status = $1, champion_participant_id = $2, end_date = $3
		WHERE id = $4 AND status <> $1`
	result, err := executor.ExecContext(ctx, query, models.TournamentCompleted, championParticipantID, endedAt, id)
	if err != nil {
		return false, r.handleTournamentError(err)
	}
	return applied(result)
}

func (r *postgresTournamentRepository) ListInProgress(ctx context.Context) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE status = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, models.TournamentInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to query in-progress tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, fmt.Errorf("failed to scan in-progress tournament: %w", scanErr)
		}
		tournaments = append(tournaments, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during in-progress tournament iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournaments_organizer_id_name_key" {
				return ErrTournamentNameConflict
			}
		case "23503":
			if pqErr.Constraint == "fk_tournaments_champion" {
				return ErrTournamentInvalidChamp
			}
		}
	}
	return err
}
