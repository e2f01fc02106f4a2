// Package service provides business logic between the bot and storage.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"werewolf-bot/internal/game/werewolf"
	"werewolf-bot/internal/model"
	"werewolf-bot/internal/repository"
)

// DefaultTopLimit is the leaderboard size.
const DefaultTopLimit = 10

// StatsService turns finished sessions into persisted results and serves
// the leaderboard. It implements werewolf.ResultRecorder.
type StatsService struct {
	store repository.ResultStore
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(store repository.ResultStore) *StatsService {
	return &StatsService{store: store}
}

// RecordResult persists a completed session. Simulated players are left
// out; a session without human players is not stored.
func (s *StatsService) RecordResult(ctx context.Context, result werewolf.Result) error {
	game, players := toRecords(result)
	if len(players) == 0 {
		log.Debug().Str("session_id", result.SessionID).Msg("No human players, result not stored")
		return nil
	}
	if err := s.store.SaveGame(ctx, game, players); err != nil {
		return fmt.Errorf("save game %s: %w", result.SessionID, err)
	}
	return nil
}

func toRecords(result werewolf.Result) (model.GameRecord, []model.PlayerResult) {
	game := model.GameRecord{
		SessionID: result.SessionID,
		ChatID:    result.ChatID,
		Winner:    result.Winner.String(),
		Rounds:    result.Rounds,
		Players:   len(result.Players),
		StartedAt: result.StartedAt,
		EndedAt:   result.EndedAt,
	}

	var players []model.PlayerResult
	for _, p := range result.Players {
		if p.Simulated {
			continue
		}
		pr := model.PlayerResult{
			SessionID: result.SessionID,
			UserID:    int64(p.ID),
			Username:  p.Name,
			Role:      string(p.Role),
			Team:      p.Team.String(),
			Won:       p.Won,
			Survived:  p.Alive,
		}
		if !p.Alive {
			pr.Cause = p.Cause.String()
			pr.DiedRound = p.DiedRound
		}
		players = append(players, pr)
	}
	return game, players
}

// TopPlayers returns the leaderboard. A non-positive limit means
// DefaultTopLimit.
func (s *StatsService) TopPlayers(ctx context.Context, limit int) ([]model.PlayerStats, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	return s.store.TopPlayers(ctx, limit)
}

// PlayerStats returns a player's aggregate, or zero stats for a player
// who has not finished a game yet.
func (s *StatsService) PlayerStats(ctx context.Context, userID int64) (model.PlayerStats, error) {
	stats, err := s.store.PlayerStats(ctx, userID)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		return model.PlayerStats{UserID: userID}, nil
	}
	if err != nil {
		return model.PlayerStats{}, err
	}
	return *stats, nil
}

// RecentGames returns the latest games of a chat.
func (s *StatsService) RecentGames(ctx context.Context, chatID int64, limit int) ([]model.GameRecord, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	return s.store.RecentGames(ctx, chatID, limit)
}
