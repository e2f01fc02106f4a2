package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"werewolf-bot/internal/model"
)

// PostgresResultStore is the ResultStore backed by PostgreSQL.
type PostgresResultStore struct {
	pool *pgxpool.Pool
}

// NewPostgresResultStore creates a new PostgresResultStore instance.
func NewPostgresResultStore(pool *pgxpool.Pool) *PostgresResultStore {
	return &PostgresResultStore{pool: pool}
}

// Migrate applies the embedded PostgreSQL migrations that have not run yet.
func (r *PostgresResultStore) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	migrations, err := loadMigrations("postgres")
	if err != nil {
		return err
	}
	for _, m := range migrations {
		var applied bool
		err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", m.version, err)
		}
		if applied {
			continue
		}
		err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		log.Info().Str("version", m.version).Msg("Migration applied")
	}
	return nil
}

// SaveGame stores a finished game and its player results.
func (r *PostgresResultStore) SaveGame(ctx context.Context, game model.GameRecord, players []model.PlayerResult) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO games (session_id, chat_id, winner, rounds, players, started_at, ended_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (session_id) DO NOTHING
		`, game.SessionID, game.ChatID, game.Winner, game.Rounds, game.Players, game.StartedAt, game.EndedAt)
		if err != nil {
			return fmt.Errorf("failed to insert game: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, p := range players {
			batch.Queue(`
				INSERT INTO player_results (session_id, user_id, username, role, team, won, survived, cause, died_round)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, game.SessionID, p.UserID, p.Username, p.Role, p.Team, p.Won, p.Survived, p.Cause, p.DiedRound)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert player results: %w", err)
		}
		return nil
	})
}

// TopPlayers returns the leaderboard.
func (r *PostgresResultStore) TopPlayers(ctx context.Context, limit int) ([]model.PlayerStats, error) {
	rows, err := r.pool.Query(ctx, statsSelect+`
		GROUP BY user_id
		ORDER BY wins DESC, games ASC, user_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	defer rows.Close()

	var out []model.PlayerStats
	for rows.Next() {
		var s model.PlayerStats
		if err := rows.Scan(&s.UserID, &s.Username, &s.Games, &s.Wins, &s.Survived); err != nil {
			return nil, fmt.Errorf("failed to scan player stats: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player stats: %w", err)
	}
	return out, nil
}

// PlayerStats returns one player's aggregate.
func (r *PostgresResultStore) PlayerStats(ctx context.Context, userID int64) (*model.PlayerStats, error) {
	var s model.PlayerStats
	err := r.pool.QueryRow(ctx, statsSelect+`
		WHERE user_id = $1
		GROUP BY user_id
	`, userID).Scan(&s.UserID, &s.Username, &s.Games, &s.Wins, &s.Survived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}
	return &s, nil
}

// RecentGames returns the latest games played in chatID.
func (r *PostgresResultStore) RecentGames(ctx context.Context, chatID int64, limit int) ([]model.GameRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT session_id, chat_id, winner, rounds, players, started_at, ended_at
		FROM games
		WHERE chat_id = $1
		ORDER BY ended_at DESC
		LIMIT $2
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent games: %w", err)
	}
	games, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.GameRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to scan games: %w", err)
	}
	return games, nil
}
