package werewolf

import (
	"math/rand"
)

// Death is one player dying in a resolution pass.
type Death struct {
	Player PlayerID
	Cause  DeathCause
	// Because names the lover whose death caused a heartbreak, or the
	// holder of the death trigger that fired the shot.
	Because PlayerID
}

// NightOutcome is what ResolveNight did to the board.
type NightOutcome struct {
	Events []Event
	Deaths []Death
	// Triggers lists newly dead players whose death trigger is live, in
	// the order they died.
	Triggers []PlayerID
	Lovers   [2]PlayerID
	Stall    *StallError
}

type resolver struct {
	roster *Roster
	round  int
	policy Policy
	rng    *rand.Rand
	out    NightOutcome
}

// ResolveNight applies one night's actions in fixed precedence, whatever
// order they were submitted in:
//
//	pairing, investigation, protection, werewolf kill, immunity,
//	protection check, poison, deaths with love cascade, death triggers.
//
// An empty first-night pairing slot is filled by policy.
func ResolveNight(r *Roster, round int, actions []NightAction, policy Policy, rng *rand.Rand) NightOutcome {
	res := &resolver{roster: r, round: round, policy: policy, rng: rng}

	byKind := make(map[ActionKind]NightAction, len(actions))
	for _, a := range actions {
		if a.Kind == ActionPass {
			continue
		}
		if actor, ok := r.Get(a.Actor); !ok || !actor.Alive {
			continue
		}
		byKind[a.Kind] = a
	}

	res.pair(byKind)

	if a, ok := byKind[ActionInvestigate]; ok {
		res.investigate(a)
	}

	var protected PlayerID
	if a, ok := byKind[ActionProtect]; ok {
		protected = a.Target
		res.noteTarget(a)
	}

	var victim PlayerID
	if a, ok := byKind[ActionKill]; ok {
		if p, found := r.Get(a.Target); found && p.Alive {
			victim = p.ID
		}
	}
	if victim != 0 && res.absorbWithImmunity(victim) {
		victim = 0
	}
	if victim != 0 && victim == protected {
		ev := res.event(publicEvent(EventSurvived))
		ev.Subject = victim
		ev.Action = ActionProtect
		res.out.Events = append(res.out.Events, ev)
		victim = 0
	}

	var deaths []Death
	if victim != 0 {
		deaths = append(deaths, Death{Player: victim, Cause: CauseWerewolf})
	}

	if a, ok := byKind[ActionPoison]; ok {
		if d, ok := res.poison(a, victim); ok {
			deaths = append(deaths, d)
		}
	}

	died, events, triggers := applyDeaths(r, deaths, round, PhaseNight)
	res.out.Deaths = died
	res.out.Events = append(res.out.Events, events...)
	res.out.Triggers = triggers
	if len(died) == 0 {
		res.out.Events = append(res.out.Events, res.event(publicEvent(EventNoDeaths)))
	}
	return res.out
}

func (res *resolver) event(ev Event) Event {
	ev.Round = res.round
	ev.Phase = PhaseNight
	return ev
}

func (res *resolver) noteTarget(a NightAction) {
	if actor, ok := res.roster.Get(a.Actor); ok {
		actor.noteTarget(a.Target)
	}
}

// pair links the lovers. Round one falls back to the policy when the
// mandatory pairing slot is empty.
func (res *resolver) pair(byKind map[ActionKind]NightAction) {
	a, submitted := byKind[ActionPair]
	var holder *Player
	if submitted {
		holder, _ = res.roster.Get(a.Actor)
	} else {
		if res.round != 1 {
			return
		}
		for _, p := range res.roster.Holders(CapTargetsPair | CapMandatory) {
			if p.CanAct(res.round) {
				holder = p
				break
			}
		}
		if holder == nil {
			return
		}
		x, y, err := res.policy.Pair(res.roster, holder, res.rng)
		if err != nil {
			res.stall(holder, err)
			return
		}
		a = NightAction{Actor: holder.ID, Role: holder.Role.Name, Kind: ActionPair, Target: x, Second: y}
	}

	if err := res.roster.Link(a.Target, a.Second, LinkLovers); err != nil {
		res.stall(holder, err)
		return
	}
	holder.AbilityUsed = true
	res.out.Lovers = [2]PlayerID{a.Target, a.Second}

	audience := []PlayerID{a.Target, a.Second}
	if holder.ID != a.Target && holder.ID != a.Second {
		audience = append(audience, holder.ID)
	}
	ev := res.event(privateEvent(EventPaired, audience...))
	ev.Subject, ev.Second = a.Target, a.Second
	res.out.Events = append(res.out.Events, ev)
}

func (res *resolver) stall(holder *Player, err error) {
	res.out.Stall = &StallError{Role: holder.Role.Name, Kind: holder.Role.Action, Reason: err}
	ev := res.event(publicEvent(EventNoAction))
	ev.Role = holder.Role.Name
	ev.Action = holder.Role.Action
	ev.Detail = err.Error()
	res.out.Events = append(res.out.Events, ev)
}

func (res *resolver) investigate(a NightAction) {
	target, ok := res.roster.Get(a.Target)
	if !ok {
		return
	}
	res.noteTarget(a)
	ev := res.event(privateEvent(EventInvestigation, a.Actor))
	ev.Subject = target.ID
	ev.Team = target.Team()
	res.out.Events = append(res.out.Events, ev)
}

// absorbWithImmunity consumes id's first-attack immunity if it has one.
func (res *resolver) absorbWithImmunity(id PlayerID) bool {
	p, ok := res.roster.Get(id)
	if !ok || !p.Role.SurvivesFirstAttack() || p.ImmunityUsed {
		return false
	}
	p.ImmunityUsed = true
	ev := res.event(publicEvent(EventSurvived))
	ev.Subject = id
	ev.Detail = "immunity"
	res.out.Events = append(res.out.Events, ev)
	return true
}

// poison ignores protection but not immunity. The ability is spent
// whatever the outcome.
func (res *resolver) poison(a NightAction, victim PlayerID) (Death, bool) {
	if witch, ok := res.roster.Get(a.Actor); ok {
		witch.AbilityUsed = true
	}
	target, ok := res.roster.Get(a.Target)
	if !ok || !target.Alive || target.ID == victim {
		return Death{}, false
	}
	if res.absorbWithImmunity(target.ID) {
		return Death{}, false
	}
	return Death{Player: target.ID, Cause: CausePoison}, true
}

// applyDeaths kills everyone in initial and walks the love links
// breadth-first. Nobody dies twice. Living trigger holders among the dead
// are returned in death order.
func applyDeaths(r *Roster, initial []Death, round int, phase Phase) ([]Death, []Event, []PlayerID) {
	var (
		died     []Death
		events   []Event
		triggers []PlayerID
	)
	queue := append([]Death(nil), initial...)
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		if !r.MarkDead(d.Player, d.Cause, round) {
			continue
		}
		died = append(died, d)
		for _, partner := range r.Partners(d.Player) {
			if p, ok := r.Get(partner); ok && p.Alive {
				queue = append(queue, Death{Player: partner, Cause: CauseHeartbreak, Because: d.Player})
			}
		}
	}

	for _, d := range died {
		p, _ := r.Get(d.Player)
		ev := publicEvent(EventDeath)
		ev.Round = round
		ev.Phase = phase
		ev.Subject = d.Player
		ev.Second = d.Because
		ev.Cause = d.Cause
		ev.Role = p.Role.Name
		events = append(events, ev)
		if p.CanTrigger() {
			triggers = append(triggers, p.ID)
		}
	}
	return died, events, triggers
}
