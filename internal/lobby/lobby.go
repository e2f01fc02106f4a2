// Package lobby keeps the per-chat join lists players build up before a
// werewolf game starts.
package lobby

import (
	"context"
	"errors"
	"sync"

	"werewolf-bot/internal/game/werewolf"
)

// Errors returned by Store.
var (
	ErrAlreadyJoined = errors.New("already joined")
	ErrNotJoined     = errors.New("not joined")
	ErrLobbyFull     = errors.New("lobby is full")
	ErrEmptyLobby    = errors.New("nobody has joined")
)

// Store holds one join list per chat. It implements werewolf.RosterSource.
type Store struct {
	mu       sync.RWMutex
	capacity int
	lobbies  map[int64][]werewolf.Member
}

// NewStore creates a store whose lobbies accept up to capacity members.
// A non-positive capacity means no limit.
func NewStore(capacity int) *Store {
	return &Store{
		capacity: capacity,
		lobbies:  make(map[int64][]werewolf.Member),
	}
}

// Join adds a member to the chat's lobby and returns the new size.
func (s *Store) Join(chatID int64, m werewolf.Member) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := s.lobbies[chatID]
	for _, existing := range members {
		if existing.ID == m.ID {
			return len(members), ErrAlreadyJoined
		}
	}
	if s.capacity > 0 && len(members) >= s.capacity {
		return len(members), ErrLobbyFull
	}
	s.lobbies[chatID] = append(members, m)
	return len(members) + 1, nil
}

// Leave removes a member and returns the new size.
func (s *Store) Leave(chatID int64, id werewolf.PlayerID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := s.lobbies[chatID]
	for i, existing := range members {
		if existing.ID != id {
			continue
		}
		members = append(members[:i:i], members[i+1:]...)
		if len(members) == 0 {
			delete(s.lobbies, chatID)
		} else {
			s.lobbies[chatID] = members
		}
		return len(members), nil
	}
	return len(members), ErrNotJoined
}

// Members returns the chat's lobby in join order.
func (s *Store) Members(_ context.Context, chatID int64) ([]werewolf.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.lobbies[chatID]
	if len(members) == 0 {
		return nil, ErrEmptyLobby
	}
	out := make([]werewolf.Member, len(members))
	copy(out, members)
	return out, nil
}

// Clear drops the chat's lobby, typically once its game has started.
func (s *Store) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, chatID)
}

// Size returns the number of members waiting in the chat.
func (s *Store) Size(chatID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lobbies[chatID])
}
