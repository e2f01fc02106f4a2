package werewolf

import (
	"errors"
	"fmt"
)

// Configuration errors
var (
	ErrInvalidRoleCount = errors.New("invalid role count")
	ErrTooManyRoles     = errors.New("role counts exceed player count")
	ErrNoWerewolf       = errors.New("at least one werewolf is required")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrDuplicatePlayer  = errors.New("duplicate player")
)

// Submission errors. These are wrapped in *ValidationError.
var (
	ErrSubmissionClosed  = errors.New("submissions are closed")
	ErrWrongPhase        = errors.New("not accepted in the current phase")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrPlayerDead        = errors.New("player is dead")
	ErrPowersRevoked     = errors.New("powers have been revoked")
	ErrRoleMismatch      = errors.New("action does not match the player's role")
	ErrAbilityUsed       = errors.New("ability already used")
	ErrPairingClosed     = errors.New("pairing is only allowed on the first night")
	ErrInvalidTarget     = errors.New("invalid target")
	ErrSelfTarget        = errors.New("cannot target yourself")
	ErrAllyTarget        = errors.New("cannot target an ally")
	ErrSamePairTarget    = errors.New("pair targets must differ")
	ErrNoPendingTrigger  = errors.New("no pending death trigger for this player")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionFinished   = errors.New("session has finished")
	ErrChatBusy          = errors.New("a game is already running in this chat")
	ErrPlayerInGame      = errors.New("player is already in a running game")
	ErrNoCandidates      = errors.New("no eligible candidates")
	ErrLinkExists        = errors.New("player already holds an exclusive link")
	ErrSelfLink          = errors.New("cannot link a player to themselves")
	ErrNotEnoughToPair   = errors.New("fewer than two living players to pair")
	ErrManagerShutdown   = errors.New("manager is shut down")
)

// ValidationError rejects a single submission. The session is unchanged
// and only the submitter is told.
type ValidationError struct {
	Player PlayerID
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rejected submission from %d: %v", e.Player, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

func reject(p PlayerID, reason error) error {
	return &ValidationError{Player: p, Reason: reason}
}

// ConfigurationError fails session creation.
type ConfigurationError struct {
	Reason error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid game configuration: %v", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Reason }

// StallError reports a mandatory action that could not be filled. The
// session records a public "no action" event and moves on.
type StallError struct {
	Role   RoleName
	Kind   ActionKind
	Reason error
}

func (e *StallError) Error() string {
	return fmt.Sprintf("mandatory %s action for %s skipped: %v", e.Kind, e.Role, e.Reason)
}

func (e *StallError) Unwrap() error { return e.Reason }

// PlatformNotifyFailure wraps an error returned by a host sink. It is
// logged and never changes game state.
type PlatformNotifyFailure struct {
	Op     string
	Target int64
	Err    error
}

func (e *PlatformNotifyFailure) Error() string {
	return fmt.Sprintf("%s to %d failed: %v", e.Op, e.Target, e.Err)
}

func (e *PlatformNotifyFailure) Unwrap() error { return e.Err }
