package werewolf

import (
	"context"
	"time"
)

// Member is one roster entry handed to the engine by the host.
type Member struct {
	ID        PlayerID
	Name      string
	Simulated bool
}

// RosterSource lists the members currently gathered in a chat.
type RosterSource interface {
	Members(ctx context.Context, chatID int64) ([]Member, error)
}

// Notifier delivers events. Notify targets one player, Broadcast the
// shared chat of a session. Calls for one session are serialized and
// must not call back into that session.
type Notifier interface {
	Notify(ctx context.Context, player PlayerID, ev Event) error
	Broadcast(ctx context.Context, chatID int64, ev Event) error
}

// Muter silences players in the shared chat.
type Muter interface {
	Mute(ctx context.Context, chatID int64, player PlayerID) error
	Unmute(ctx context.Context, chatID int64, player PlayerID) error
}

// ResultRecorder receives the outcome of every completed session exactly
// once. Cancelled sessions are never recorded.
type ResultRecorder interface {
	RecordResult(ctx context.Context, result Result) error
}

// PlayerOutcome is a player's final state.
type PlayerOutcome struct {
	ID        PlayerID
	Name      string
	Seat      int
	Role      RoleName
	Team      Team
	Alive     bool
	Simulated bool
	Won       bool
	Cause     DeathCause
	DiedRound int
}

// Result describes a completed session.
type Result struct {
	SessionID string
	ChatID    int64
	Winner    Team
	Rounds    int
	StartedAt time.Time
	EndedAt   time.Time
	Players   []PlayerOutcome
}

// Dependencies are the host collaborators of a Manager. Muter and
// Recorder are optional.
type Dependencies struct {
	Roster   RosterSource
	Notifier Notifier
	Muter    Muter
	Recorder ResultRecorder
	Policy   Policy
}

type noopMuter struct{}

func (noopMuter) Mute(context.Context, int64, PlayerID) error   { return nil }
func (noopMuter) Unmute(context.Context, int64, PlayerID) error { return nil }

type noopRecorder struct{}

func (noopRecorder) RecordResult(context.Context, Result) error { return nil }
