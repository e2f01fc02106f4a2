// Package model defines the persisted records of finished werewolf games.
package model

import "time"

// GameRecord is one finished game.
type GameRecord struct {
	SessionID string    `db:"session_id"`
	ChatID    int64     `db:"chat_id"`
	Winner    string    `db:"winner"`
	Rounds    int       `db:"rounds"`
	Players   int       `db:"players"`
	StartedAt time.Time `db:"started_at"`
	EndedAt   time.Time `db:"ended_at"`
}

// PlayerResult is one human player's outcome in a finished game.
// Simulated players are not persisted.
type PlayerResult struct {
	SessionID string `db:"session_id"`
	UserID    int64  `db:"user_id"`
	Username  string `db:"username"`
	Role      string `db:"role"`
	Team      string `db:"team"`
	Won       bool   `db:"won"`
	Survived  bool   `db:"survived"`
	// Cause is empty for survivors.
	Cause     string `db:"cause"`
	DiedRound int    `db:"died_round"`
}

// PlayerStats aggregates a player's results.
type PlayerStats struct {
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
	Games    int    `db:"games"`
	Wins     int    `db:"wins"`
	Survived int    `db:"survived"`
}

// WinRate returns the fraction of games won.
func (s PlayerStats) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games)
}
