package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"werewolf-bot/internal/model"
)

// SQLiteResultStore is the ResultStore used for local runs.
type SQLiteResultStore struct {
	db *sqlx.DB
}

// NewSQLiteResultStore creates a new SQLiteResultStore instance.
func NewSQLiteResultStore(db *sqlx.DB) *SQLiteResultStore {
	return &SQLiteResultStore{db: db}
}

// Migrate applies the embedded SQLite migrations that have not run yet.
func (r *SQLiteResultStore) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []string
	if err := r.db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	migrations, err := loadMigrations("sqlite")
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if done[m.version] {
			continue
		}
		err := r.inTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		log.Info().Str("version", m.version).Msg("Migration applied")
	}
	return nil
}

func (r *SQLiteResultStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SaveGame stores a finished game and its player results.
func (r *SQLiteResultStore) SaveGame(ctx context.Context, game model.GameRecord, players []model.PlayerResult) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `
			INSERT INTO games (session_id, chat_id, winner, rounds, players, started_at, ended_at)
			VALUES (:session_id, :chat_id, :winner, :rounds, :players, :started_at, :ended_at)
			ON CONFLICT (session_id) DO NOTHING
		`, game)
		if err != nil {
			return fmt.Errorf("failed to insert game: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return err
		}

		for _, p := range players {
			p.SessionID = game.SessionID
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO player_results (session_id, user_id, username, role, team, won, survived, cause, died_round)
				VALUES (:session_id, :user_id, :username, :role, :team, :won, :survived, :cause, :died_round)
			`, p)
			if err != nil {
				return fmt.Errorf("failed to insert player result: %w", err)
			}
		}
		return nil
	})
}

// TopPlayers returns the leaderboard.
func (r *SQLiteResultStore) TopPlayers(ctx context.Context, limit int) ([]model.PlayerStats, error) {
	var out []model.PlayerStats
	err := r.db.SelectContext(ctx, &out, statsSelect+`
		GROUP BY user_id
		ORDER BY wins DESC, games ASC, user_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	return out, nil
}

// PlayerStats returns one player's aggregate.
func (r *SQLiteResultStore) PlayerStats(ctx context.Context, userID int64) (*model.PlayerStats, error) {
	var s model.PlayerStats
	err := r.db.GetContext(ctx, &s, statsSelect+`
		WHERE user_id = ?
		GROUP BY user_id
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}
	return &s, nil
}

// RecentGames returns the latest games played in chatID.
func (r *SQLiteResultStore) RecentGames(ctx context.Context, chatID int64, limit int) ([]model.GameRecord, error) {
	var out []model.GameRecord
	err := r.db.SelectContext(ctx, &out, `
		SELECT session_id, chat_id, winner, rounds, players, started_at, ended_at
		FROM games
		WHERE chat_id = ?
		ORDER BY ended_at DESC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent games: %w", err)
	}
	return out, nil
}
