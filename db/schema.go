package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is idempotent; every statement can run against an existing database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tournaments (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		format TEXT NOT NULL CHECK (format IN ('BRACKET', 'CHAMPIONSHIP', 'KING_OF_THE_HILL')),
		status TEXT NOT NULL DEFAULT 'UPCOMING' CHECK (status IN ('UPCOMING', 'IN_PROGRESS', 'COMPLETED')),
		total_rounds INTEGER NOT NULL DEFAULT 0,
		max_participants INTEGER NOT NULL CHECK (max_participants >= 2),
		reseed_after_round BOOLEAN NOT NULL DEFAULT FALSE,
		reseed_method TEXT NOT NULL DEFAULT 'ELO_BASED' CHECK (reseed_method IN ('ELO_BASED', 'TOURNAMENT_WINS', 'RANDOM')),
		organizer_id INTEGER NOT NULL,
		staked_belt_id INTEGER,
		champion_participant_id INTEGER,
		start_date TIMESTAMPTZ,
		end_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT tournaments_organizer_id_name_key UNIQUE (organizer_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		id SERIAL PRIMARY KEY,
		tournament_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		seed INTEGER NOT NULL DEFAULT 0,
		current_seed INTEGER NOT NULL DEFAULT 0,
		elo_at_start INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'REGISTERED' CHECK (status IN ('REGISTERED', 'ACTIVE', 'ELIMINATED')),
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		cumulative_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		selected_position TEXT CHECK (selected_position IN ('PRO', 'CON')),
		eliminated_at TIMESTAMPTZ,
		elimination_round INTEGER,
		elimination_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT participants_tournament_id_fkey FOREIGN KEY (tournament_id) REFERENCES tournaments (id) ON DELETE CASCADE,
		CONSTRAINT participants_tournament_id_user_id_key UNIQUE (tournament_id, user_id)
	)`,
	`DO $$ BEGIN
		ALTER TABLE tournaments ADD CONSTRAINT fk_tournaments_champion
			FOREIGN KEY (champion_participant_id) REFERENCES participants (id) ON DELETE SET NULL;
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`CREATE TABLE IF NOT EXISTS rounds (
		id SERIAL PRIMARY KEY,
		tournament_id INTEGER NOT NULL REFERENCES tournaments (id) ON DELETE CASCADE,
		round_number INTEGER NOT NULL CHECK (round_number >= 1),
		status TEXT NOT NULL DEFAULT 'UPCOMING' CHECK (status IN ('UPCOMING', 'IN_PROGRESS', 'COMPLETED')),
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT rounds_tournament_id_round_number_key UNIQUE (tournament_id, round_number)
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id SERIAL PRIMARY KEY,
		tournament_id INTEGER NOT NULL REFERENCES tournaments (id) ON DELETE CASCADE,
		round_id INTEGER NOT NULL,
		order_in_round INTEGER NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('PAIRWISE', 'GROUP', 'FINALS')),
		participant1_id INTEGER REFERENCES participants (id),
		participant2_id INTEGER REFERENCES participants (id),
		group_participant_ids INTEGER[],
		winner_id INTEGER,
		status TEXT NOT NULL DEFAULT 'SCHEDULED' CHECK (status IN ('SCHEDULED', 'IN_PROGRESS', 'COMPLETED')),
		participant1_score DOUBLE PRECISION,
		participant2_score DOUBLE PRECISION,
		score_breakdown JSONB,
		debate_id TEXT,
		debate_rounds INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ,
		CONSTRAINT matches_round_id_fkey FOREIGN KEY (round_id) REFERENCES rounds (id) ON DELETE CASCADE,
		CONSTRAINT matches_winner_id_fkey FOREIGN KEY (winner_id) REFERENCES participants (id),
		CONSTRAINT matches_debate_id_key UNIQUE (debate_id),
		CONSTRAINT matches_round_id_order_in_round_key UNIQUE (round_id, order_in_round)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_tournament ON matches (tournament_id)`,
	`CREATE TABLE IF NOT EXISTS judge_scores (
		id SERIAL PRIMARY KEY,
		match_id INTEGER NOT NULL REFERENCES matches (id) ON DELETE CASCADE,
		debate_id TEXT NOT NULL,
		participant_id INTEGER NOT NULL REFERENCES participants (id),
		judge_id TEXT NOT NULL,
		score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT judge_scores_debate_participant_judge_key UNIQUE (debate_id, participant_id, judge_id)
	)`,
}

// EnsureSchema creates the tables and unique constraints the repositories rely on.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
