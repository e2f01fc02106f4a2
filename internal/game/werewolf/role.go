// Package werewolf implements a phase-based hidden-role game engine.
//
// A Manager hosts any number of independent sessions. Each session walks
// Lobby → Night → DayDiscuss → DayVote → (Night | Ended), collecting night
// actions and votes from humans and simulated players, resolving them in
// a fixed order and checking win conditions after every resolution.
// Chat transport, muting and statistics are reached through the
// interfaces in host.go.
package werewolf

import (
	"errors"
	"fmt"
	"sort"
)

// Team is the win-team a role belongs to.
type Team int

const (
	TeamVillage Team = iota
	TeamWerewolf
	// TeamLovers is never assigned to a role; it only names the winner
	// when the linked pair are the last two alive.
	TeamLovers
)

func (t Team) String() string {
	switch t {
	case TeamVillage:
		return "village"
	case TeamWerewolf:
		return "werewolves"
	case TeamLovers:
		return "lovers"
	default:
		return fmt.Sprintf("team(%d)", int(t))
	}
}

// ActionKind is what a night action does.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionPair
	ActionInvestigate
	ActionProtect
	ActionKill
	ActionPoison
	// ActionPass is a deliberate "no action" submission. Any eligible
	// role may send it.
	ActionPass
)

func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "none"
	case ActionPair:
		return "pair"
	case ActionInvestigate:
		return "investigate"
	case ActionProtect:
		return "protect"
	case ActionKill:
		return "kill"
	case ActionPoison:
		return "poison"
	case ActionPass:
		return "pass"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// Targeting is the shape of an action's target.
type Targeting int

const (
	TargetNone Targeting = iota
	TargetSingle
	TargetPair
)

// Targeting returns the target shape of k.
func (k ActionKind) Targeting() Targeting {
	switch k {
	case ActionPair:
		return TargetPair
	case ActionInvestigate, ActionProtect, ActionKill, ActionPoison:
		return TargetSingle
	default:
		return TargetNone
	}
}

// precedence orders night actions for resolution.
func (k ActionKind) precedence() int {
	switch k {
	case ActionPair:
		return 1
	case ActionInvestigate:
		return 2
	case ActionProtect:
		return 3
	case ActionKill:
		return 4
	case ActionPoison:
		return 7
	default:
		return 99
	}
}

// Capability is a bit-set of role mechanics. Engines branch on these
// flags only, never on role names.
type Capability uint32

const (
	CapNightAction Capability = 1 << iota
	CapTargetsPair
	CapSurvivesFirstAttack
	CapDeathTrigger
	CapLynchPenalty
	// CapSingleUse marks a night action that is consumed once used.
	CapSingleUse
	CapFirstNightOnly
	// CapMandatory marks an action the game cannot progress without; an
	// empty slot at resolution is filled by the bot policy.
	CapMandatory
	CapSelfTarget
	CapNoAllyTarget
	// CapRevocable marks powers stripped by a lynch-penalty lynch.
	CapRevocable
	// CapUnique limits the role to one holder per session.
	CapUnique
)

// RoleName identifies a catalog role.
type RoleName string

const (
	RoleWerewolf RoleName = "werewolf"
	RoleVillager RoleName = "villager"
	RoleSeer     RoleName = "seer"
	RoleDoctor   RoleName = "doctor"
	RoleWitch    RoleName = "witch"
	RoleCupid    RoleName = "cupid"
	RoleHunter   RoleName = "hunter"
	RoleElder    RoleName = "elder"
)

// Role is an immutable role descriptor shared by every holder.
type Role struct {
	Name   RoleName
	Team   Team
	Action ActionKind
	Caps   Capability
	// UnlockAt is the default minimum player count for the role to be
	// dealt by DefaultRoleCounts. Zero means always available.
	UnlockAt    int
	Description string
}

// Has reports whether the role carries every flag in c.
func (r *Role) Has(c Capability) bool { return r.Caps&c == c }

func (r *Role) HasNightAction() bool      { return r.Has(CapNightAction) }
func (r *Role) TargetsPair() bool         { return r.Has(CapTargetsPair) }
func (r *Role) SurvivesFirstAttack() bool { return r.Has(CapSurvivesFirstAttack) }
func (r *Role) DeathTrigger() bool        { return r.Has(CapDeathTrigger) }
func (r *Role) LynchPenalty() bool        { return r.Has(CapLynchPenalty) }

// ErrUnknownRole is returned by Lookup for names outside the catalog.
var ErrUnknownRole = errors.New("unknown role")

var catalog = map[RoleName]*Role{
	RoleWerewolf: {
		Name:        RoleWerewolf,
		Team:        TeamWerewolf,
		Action:      ActionKill,
		Caps:        CapNightAction | CapNoAllyTarget,
		Description: "Picks a victim each night with the rest of the pack.",
	},
	RoleVillager: {
		Name:        RoleVillager,
		Team:        TeamVillage,
		Description: "No night power. Finds the wolves by talking and voting.",
	},
	RoleSeer: {
		Name:        RoleSeer,
		Team:        TeamVillage,
		Action:      ActionInvestigate,
		Caps:        CapNightAction | CapRevocable | CapUnique,
		UnlockAt:    4,
		Description: "Learns one player's team each night.",
	},
	RoleDoctor: {
		Name:        RoleDoctor,
		Team:        TeamVillage,
		Action:      ActionProtect,
		Caps:        CapNightAction | CapSelfTarget | CapRevocable | CapUnique,
		UnlockAt:    5,
		Description: "Protects one player from the wolves each night.",
	},
	RoleHunter: {
		Name:        RoleHunter,
		Team:        TeamVillage,
		Caps:        CapDeathTrigger | CapRevocable | CapUnique,
		UnlockAt:    6,
		Description: "When killed, may take one other player down too.",
	},
	RoleWitch: {
		Name:        RoleWitch,
		Team:        TeamVillage,
		Action:      ActionPoison,
		Caps:        CapNightAction | CapSingleUse | CapRevocable | CapUnique,
		UnlockAt:    7,
		Description: "Holds one poison that kills through any protection.",
	},
	RoleCupid: {
		Name:        RoleCupid,
		Team:        TeamVillage,
		Action:      ActionPair,
		Caps:        CapNightAction | CapTargetsPair | CapFirstNightOnly | CapMandatory | CapSelfTarget | CapRevocable | CapUnique,
		UnlockAt:    8,
		Description: "Binds two lovers on the first night. If one dies, so does the other.",
	},
	RoleElder: {
		Name:        RoleElder,
		Team:        TeamVillage,
		Caps:        CapSurvivesFirstAttack | CapLynchPenalty | CapUnique,
		UnlockAt:    10,
		Description: "Survives the first attack. If lynched, the village loses its powers.",
	},
}

// optionalRoles is the order DefaultRoleCounts unlocks special roles in.
var optionalRoles = []RoleName{RoleSeer, RoleDoctor, RoleHunter, RoleWitch, RoleCupid, RoleElder}

// Lookup returns the catalog role for name.
func Lookup(name RoleName) (*Role, error) {
	r, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	return r, nil
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name RoleName) *Role {
	r, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return r
}

// Roles returns every catalog role sorted by name.
func Roles() []*Role {
	roles := make([]*Role, 0, len(catalog))
	for _, r := range catalog {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles
}

// RoleCounts maps role names to how many players receive them.
type RoleCounts map[RoleName]int

// Total returns the number of roles requested.
func (rc RoleCounts) Total() int {
	n := 0
	for _, c := range rc {
		n += c
	}
	return n
}

// Thresholds overrides the minimum player count for optional roles.
type Thresholds map[RoleName]int

func (t Thresholds) unlockAt(r *Role) int {
	if v, ok := t[r.Name]; ok {
		return v
	}
	return r.UnlockAt
}

// DefaultRoleCounts deals roles for n players: one werewolf per five
// players (at least one), each optional role once its threshold is met,
// villagers for the rest.
func DefaultRoleCounts(n int, thresholds Thresholds) RoleCounts {
	counts := RoleCounts{}
	if n <= 0 {
		return counts
	}
	wolves := max(1, (n+1)/5)
	counts[RoleWerewolf] = wolves
	free := n - wolves
	for _, name := range optionalRoles {
		r := catalog[name]
		if free == 0 {
			break
		}
		if n >= thresholds.unlockAt(r) {
			counts[name] = 1
			free--
		}
	}
	if free > 0 {
		counts[RoleVillager] = free
	}
	return counts
}

// ValidateCounts checks counts against the catalog and the player total.
func ValidateCounts(counts RoleCounts, players int) error {
	for name, c := range counts {
		r, err := Lookup(name)
		if err != nil {
			return &ConfigurationError{Reason: err}
		}
		if c < 0 {
			return &ConfigurationError{Reason: fmt.Errorf("%w: %s count %d", ErrInvalidRoleCount, name, c)}
		}
		if r.Has(CapUnique) && c > 1 {
			return &ConfigurationError{Reason: fmt.Errorf("%w: %s allows one holder, got %d", ErrInvalidRoleCount, name, c)}
		}
	}
	if counts.Total() > players {
		return &ConfigurationError{Reason: fmt.Errorf("%w: %d roles for %d players", ErrTooManyRoles, counts.Total(), players)}
	}
	if counts[RoleWerewolf] < 1 {
		return &ConfigurationError{Reason: ErrNoWerewolf}
	}
	return nil
}
