// internal/database/schema.go
package database

// postgresSchema is applied by `arena migrate` and PostgresStore.Migrate. Every
// statement is idempotent.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS tournaments (
	id                UUID PRIMARY KEY,
	game_type         TEXT NOT NULL,
	participant_count INT NOT NULL,
	started_at        TIMESTAMPTZ NOT NULL,
	finished_at       TIMESTAMPTZ,
	winner            TEXT
);

CREATE TABLE IF NOT EXISTS matches (
	id              UUID PRIMARY KEY,
	game_name       TEXT NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL,
	player1_name    TEXT NOT NULL,
	player1_user_id UUID,
	player2_name    TEXT NOT NULL,
	player2_user_id UUID,
	winner          TEXT NOT NULL DEFAULT '',
	aux             JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS idx_matches_game_finished ON matches (game_name, finished_at DESC);

CREATE TABLE IF NOT EXISTS tournament_matches (
	tournament_id UUID NOT NULL,
	match_id      UUID NOT NULL,
	PRIMARY KEY (tournament_id, match_id)
);

CREATE TABLE IF NOT EXISTS ratings (
	user_id    UUID NOT NULL,
	game_name  TEXT NOT NULL,
	elo        INT NOT NULL,
	phi        DOUBLE PRECISION NOT NULL,
	sigma      DOUBLE PRECISION NOT NULL,
	games      INT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, game_name)
);

CREATE TABLE IF NOT EXISTS rating_history (
	id         BIGSERIAL PRIMARY KEY,
	user_id    UUID NOT NULL,
	match_id   UUID NOT NULL,
	game_name  TEXT NOT NULL,
	old_rating INT NOT NULL,
	new_rating INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tournaments (
	id                TEXT PRIMARY KEY,
	game_type         TEXT NOT NULL,
	participant_count INTEGER NOT NULL,
	started_at        DATETIME NOT NULL,
	finished_at       DATETIME,
	winner            TEXT
);

CREATE TABLE IF NOT EXISTS matches (
	id              TEXT PRIMARY KEY,
	game_name       TEXT NOT NULL,
	started_at      DATETIME NOT NULL,
	finished_at     DATETIME NOT NULL,
	player1_name    TEXT NOT NULL,
	player1_user_id TEXT,
	player2_name    TEXT NOT NULL,
	player2_user_id TEXT,
	winner          TEXT NOT NULL DEFAULT '',
	aux             TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_matches_game_finished ON matches (game_name, finished_at DESC);

CREATE TABLE IF NOT EXISTS tournament_matches (
	tournament_id TEXT NOT NULL,
	match_id      TEXT NOT NULL,
	PRIMARY KEY (tournament_id, match_id)
);
`
