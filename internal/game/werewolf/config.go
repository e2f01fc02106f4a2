package werewolf

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// TieBreak decides what happens when several candidates share the top
// vote count.
type TieBreak int

const (
	// TieBreakDefault inherits the tie break of the enclosing defaults.
	TieBreakDefault TieBreak = iota
	// TieBreakNone lynches nobody on a tie.
	TieBreakNone
	// TieBreakRandom lynches one of the tied candidates, chosen uniformly
	// with the session's random source.
	TieBreakRandom
)

// ParseTieBreak maps a config string onto a TieBreak.
func ParseTieBreak(s string) (TieBreak, error) {
	switch s {
	case "":
		return TieBreakDefault, nil
	case "none":
		return TieBreakNone, nil
	case "random":
		return TieBreakRandom, nil
	default:
		return TieBreakDefault, fmt.Errorf("unknown tie break %q", s)
	}
}

func (t TieBreak) String() string {
	switch t {
	case TieBreakNone:
		return "none"
	case TieBreakRandom:
		return "random"
	default:
		return "default"
	}
}

// Explicit values for fields whose zero value means "inherit".
const (
	// NoQuorum disables the vote quorum.
	NoQuorum = -1.0
	// ClockSeed seeds the session from the clock even when the defaults
	// fix a seed.
	ClockSeed int64 = math.MinInt64
)

// Default configuration values
const (
	DefaultTargetPlayers   = 8
	DefaultMinPlayers      = 5
	DefaultNightDuration   = 90 * time.Second
	DefaultDiscussDuration = 120 * time.Second
	DefaultVoteDuration    = 60 * time.Second
	DefaultTriggerWindow   = 30 * time.Second
	DefaultLobbyDuration   = 10 * time.Second
	DefaultBotLead         = 10 * time.Second
	DefaultLockTimeout     = 5 * time.Second
	DefaultQuorumRatio     = 0.5
)

// Config holds the tunables of a session. A zero field inherits the
// manager's value, which in turn falls back to DefaultConfig. Use
// TieBreakNone, NoQuorum and ClockSeed to ask for the zero behaviour
// explicitly.
type Config struct {
	// TargetPlayers is the roster size simulated players fill up to.
	TargetPlayers int
	MinPlayers    int
	// Thresholds overrides the player count at which optional roles unlock.
	Thresholds Thresholds
	// RoleCounts replaces the default deal when non-nil.
	RoleCounts RoleCounts

	NightDuration   time.Duration
	DiscussDuration time.Duration
	VoteDuration    time.Duration
	TriggerWindow   time.Duration
	LobbyDuration   time.Duration
	// BotLead is how long before a deadline simulated players act.
	BotLead     time.Duration
	LockTimeout time.Duration

	TieBreak TieBreak
	// QuorumRatio is the share of living players whose ballots a lynch
	// needs.
	QuorumRatio float64
	// Seed fixes the session random source. Unset and ClockSeed seed from
	// the clock.
	Seed int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		TargetPlayers:   DefaultTargetPlayers,
		MinPlayers:      DefaultMinPlayers,
		NightDuration:   DefaultNightDuration,
		DiscussDuration: DefaultDiscussDuration,
		VoteDuration:    DefaultVoteDuration,
		TriggerWindow:   DefaultTriggerWindow,
		LobbyDuration:   DefaultLobbyDuration,
		BotLead:         DefaultBotLead,
		LockTimeout:     DefaultLockTimeout,
		TieBreak:        TieBreakNone,
		QuorumRatio:     DefaultQuorumRatio,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TargetPlayers == 0 {
		c.TargetPlayers = d.TargetPlayers
	}
	if c.MinPlayers == 0 {
		c.MinPlayers = d.MinPlayers
	}
	if c.NightDuration == 0 {
		c.NightDuration = d.NightDuration
	}
	if c.DiscussDuration == 0 {
		c.DiscussDuration = d.DiscussDuration
	}
	if c.VoteDuration == 0 {
		c.VoteDuration = d.VoteDuration
	}
	if c.TriggerWindow == 0 {
		c.TriggerWindow = d.TriggerWindow
	}
	if c.LobbyDuration == 0 {
		c.LobbyDuration = d.LobbyDuration
	}
	if c.BotLead == 0 {
		c.BotLead = d.BotLead
	}
	if c.LockTimeout == 0 {
		c.LockTimeout = d.LockTimeout
	}
	if c.TieBreak == TieBreakDefault {
		c.TieBreak = d.TieBreak
	}
	if c.QuorumRatio == 0 {
		c.QuorumRatio = d.QuorumRatio
	}
	return c
}

var errBadConfig = errors.New("bad configuration value")

// Validate checks the configuration. Errors are *ConfigurationError.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return &ConfigurationError{Reason: fmt.Errorf("%w: "+format, append([]any{errBadConfig}, args...)...)}
	}
	if c.MinPlayers < 3 {
		return bad("min players %d is below 3", c.MinPlayers)
	}
	if c.TargetPlayers < c.MinPlayers {
		return bad("target players %d below min players %d", c.TargetPlayers, c.MinPlayers)
	}
	for name, d := range map[string]time.Duration{
		"night":    c.NightDuration,
		"discuss":  c.DiscussDuration,
		"vote":     c.VoteDuration,
		"trigger":  c.TriggerWindow,
		"lobby":    c.LobbyDuration,
		"lock":     c.LockTimeout,
		"bot lead": c.BotLead,
	} {
		if d < 0 {
			return bad("%s duration %s is negative", name, d)
		}
	}
	if c.TieBreak < TieBreakDefault || c.TieBreak > TieBreakRandom {
		return bad("unknown tie break %d", c.TieBreak)
	}
	if c.QuorumRatio != NoQuorum && (c.QuorumRatio < 0 || c.QuorumRatio > 1) {
		return bad("quorum ratio %.2f outside [0,1]", c.QuorumRatio)
	}
	for name := range c.Thresholds {
		if _, err := Lookup(name); err != nil {
			return &ConfigurationError{Reason: err}
		}
	}
	return nil
}
