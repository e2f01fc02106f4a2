package werewolf

import "fmt"

// Phase is a session state.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseNight
	PhaseDayDiscuss
	PhaseDayVote
	PhaseEnded
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseNight:
		return "night"
	case PhaseDayDiscuss:
		return "day_discuss"
	case PhaseDayVote:
		return "day_vote"
	case PhaseEnded:
		return "ended"
	case PhaseCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseEnded || p == PhaseCancelled
}

var transitions = map[Phase][]Phase{
	PhaseLobby:      {PhaseNight},
	PhaseNight:      {PhaseDayDiscuss, PhaseEnded},
	PhaseDayDiscuss: {PhaseDayVote},
	PhaseDayVote:    {PhaseNight, PhaseEnded},
}

// CanTransitionTo reports whether p may move to next. Any non-terminal
// phase may be cancelled.
func (p Phase) CanTransitionTo(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseCancelled {
		return true
	}
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}
