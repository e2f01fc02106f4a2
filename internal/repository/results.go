// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"werewolf-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// ResultStore persists finished games and answers leaderboard queries.
type ResultStore interface {
	// SaveGame stores a game and its player results atomically. Saving
	// the same session twice is a no-op.
	SaveGame(ctx context.Context, game model.GameRecord, players []model.PlayerResult) error
	// TopPlayers returns players ordered by wins, then win rate.
	TopPlayers(ctx context.Context, limit int) ([]model.PlayerStats, error)
	// PlayerStats returns ErrPlayerNotFound for a user without games.
	PlayerStats(ctx context.Context, userID int64) (*model.PlayerStats, error)
	// RecentGames returns the latest games of a chat, newest first.
	RecentGames(ctx context.Context, chatID int64, limit int) ([]model.GameRecord, error)
}

// migration is one embedded schema file.
type migration struct {
	version string
	sql     string
}

func loadMigrations(dialect string) ([]migration, error) {
	files, err := fs.Glob(migrationFS, path.Join("migrations", dialect, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)

	out := make([]migration, 0, len(files))
	for _, f := range files {
		body, err := migrationFS.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", f, err)
		}
		out = append(out, migration{version: path.Base(f), sql: string(body)})
	}
	return out, nil
}

// Shared leaderboard aggregate; both dialects accept it as is.
const statsSelect = `
	SELECT user_id,
		MAX(username) AS username,
		COUNT(*) AS games,
		SUM(CASE WHEN won THEN 1 ELSE 0 END) AS wins,
		SUM(CASE WHEN survived THEN 1 ELSE 0 END) AS survived
	FROM player_results
`
