package werewolf

import (
	"fmt"
	"time"
)

// EventKind identifies what happened. The engine emits structured events
// only; turning them into chat text is the host's job.
type EventKind int

const (
	EventRoleReveal EventKind = iota
	EventTeamReveal
	EventPhaseStarted
	EventActionPrompt
	EventActionAccepted
	EventPaired
	EventNoAction
	EventInvestigation
	EventSurvived
	EventDeath
	EventNoDeaths
	EventVotePrompt
	EventVoteResult
	EventLynch
	EventNoLynch
	EventPowersRevoked
	EventTriggerPrompt
	EventTriggerForfeited
	EventGameOver
	EventCancelled
)

var eventKindNames = [...]string{
	EventRoleReveal:       "role_reveal",
	EventTeamReveal:       "team_reveal",
	EventPhaseStarted:     "phase_started",
	EventActionPrompt:     "action_prompt",
	EventActionAccepted:   "action_accepted",
	EventPaired:           "paired",
	EventNoAction:         "no_action",
	EventInvestigation:    "investigation",
	EventSurvived:         "survived",
	EventDeath:            "death",
	EventNoDeaths:         "no_deaths",
	EventVotePrompt:       "vote_prompt",
	EventVoteResult:       "vote_result",
	EventLynch:            "lynch",
	EventNoLynch:          "no_lynch",
	EventPowersRevoked:    "powers_revoked",
	EventTriggerPrompt:    "trigger_prompt",
	EventTriggerForfeited: "trigger_forfeited",
	EventGameOver:         "game_over",
	EventCancelled:        "cancelled",
}

func (k EventKind) String() string {
	if int(k) >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Visibility says who may see an event.
type Visibility int

const (
	Public Visibility = iota
	// Private events go to the players in Audience only.
	Private
	// TeamOnly events go to the members of one team, listed in Audience.
	TeamOnly
)

// DeathCause records how a player died.
type DeathCause int

const (
	CauseNone DeathCause = iota
	CauseWerewolf
	CausePoison
	CauseLynch
	CauseHeartbreak
	CauseShot
)

func (c DeathCause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseWerewolf:
		return "werewolf"
	case CausePoison:
		return "poison"
	case CauseLynch:
		return "lynch"
	case CauseHeartbreak:
		return "heartbreak"
	case CauseShot:
		return "shot"
	default:
		return fmt.Sprintf("cause(%d)", int(c))
	}
}

// NoLynchReason explains an EventNoLynch.
type NoLynchReason int

const (
	NoLynchNone NoLynchReason = iota
	NoLynchNoQuorum
	NoLynchNoVotes
	NoLynchTie
)

func (r NoLynchReason) String() string {
	switch r {
	case NoLynchNoQuorum:
		return "no_quorum"
	case NoLynchNoVotes:
		return "no_votes"
	case NoLynchTie:
		return "tie"
	default:
		return "none"
	}
}

// Event is one entry of a session's log.
type Event struct {
	Kind       EventKind
	Visibility Visibility
	Audience   []PlayerID
	Round      int
	Phase      Phase
	At         time.Time

	Subject PlayerID
	Second  PlayerID
	Role    RoleName
	Team    Team
	Action  ActionKind
	Cause   DeathCause

	Deadline time.Time
	NoLynch  NoLynchReason
	Tally    map[PlayerID]int
	// Candidates lists the targets a prompt accepts, in seat order.
	Candidates []PlayerID
	Roster     []PlayerOutcome
	Detail     string
}

func publicEvent(kind EventKind) Event {
	return Event{Kind: kind, Visibility: Public}
}

func privateEvent(kind EventKind, to ...PlayerID) Event {
	return Event{Kind: kind, Visibility: Private, Audience: to}
}

// VisibleTo reports whether player may see e.
func (e Event) VisibleTo(player PlayerID) bool {
	if e.Visibility == Public {
		return true
	}
	for _, id := range e.Audience {
		if id == player {
			return true
		}
	}
	return false
}
