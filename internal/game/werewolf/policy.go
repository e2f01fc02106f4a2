package werewolf

import "math/rand"

// Policy decides for simulated players. Its choices go through the same
// validation as human submissions.
type Policy interface {
	NightAction(r *Roster, actor *Player, round int, rng *rand.Rand) NightAction
	Pair(r *Roster, actor *Player, rng *rand.Rand) (PlayerID, PlayerID, error)
	// Vote returns false to abstain.
	Vote(r *Roster, voter *Player, rng *rand.Rand) (PlayerID, bool)
	// Shoot returns false to forfeit a death trigger.
	Shoot(r *Roster, holder *Player, rng *rand.Rand) (PlayerID, bool)
}

// HeuristicPolicy plays plausibly without trying to win: werewolves hit
// a random non-ally, seers and doctors spread their attention over
// players they have not picked yet, cupid pairs at random and the witch
// keeps her poison.
type HeuristicPolicy struct{}

var _ Policy = HeuristicPolicy{}

func (HeuristicPolicy) NightAction(r *Roster, actor *Player, round int, rng *rand.Rand) NightAction {
	a := NightAction{Actor: actor.ID, Role: actor.Role.Name, Kind: ActionPass}
	switch actor.Role.Action {
	case ActionKill:
		if t, ok := pick(rng, candidates(r, func(p *Player) bool {
			return p.Team() != actor.Team()
		})); ok {
			a.Kind, a.Target = ActionKill, t
		}
	case ActionInvestigate, ActionProtect:
		valid := func(p *Player) bool {
			return p.ID != actor.ID || actor.Role.Has(CapSelfTarget)
		}
		fresh := candidates(r, func(p *Player) bool {
			return valid(p) && !actor.HasTargeted(p.ID)
		})
		if len(fresh) == 0 {
			fresh = candidates(r, valid)
		}
		if t, ok := pick(rng, fresh); ok {
			a.Kind, a.Target = actor.Role.Action, t
		}
	case ActionPair:
		if round == 1 {
			if x, y, err := (HeuristicPolicy{}).Pair(r, actor, rng); err == nil {
				a.Kind, a.Target, a.Second = ActionPair, x, y
			}
		}
	}
	return a
}

func (HeuristicPolicy) Pair(r *Roster, actor *Player, rng *rand.Rand) (PlayerID, PlayerID, error) {
	pool := candidates(r, func(p *Player) bool {
		return p.ID != actor.ID || actor.Role.Has(CapSelfTarget)
	})
	if len(pool) < 2 {
		return 0, 0, ErrNotEnoughToPair
	}
	perm := rng.Perm(len(pool))
	return pool[perm[0]], pool[perm[1]], nil
}

func (HeuristicPolicy) Vote(r *Roster, voter *Player, rng *rand.Rand) (PlayerID, bool) {
	return pick(rng, candidates(r, func(p *Player) bool {
		if p.ID == voter.ID {
			return false
		}
		if voter.Role.Has(CapNoAllyTarget) {
			return p.Team() != voter.Team()
		}
		return true
	}))
}

func (HeuristicPolicy) Shoot(r *Roster, holder *Player, rng *rand.Rand) (PlayerID, bool) {
	return pick(rng, candidates(r, func(p *Player) bool { return p.ID != holder.ID }))
}

// candidates returns living players accepted by keep, in seat order.
func candidates(r *Roster, keep func(*Player) bool) []PlayerID {
	var out []PlayerID
	for _, p := range r.Alive() {
		if keep(p) {
			out = append(out, p.ID)
		}
	}
	return out
}

func pick(rng *rand.Rand, ids []PlayerID) (PlayerID, bool) {
	if len(ids) == 0 {
		return 0, false
	}
	return ids[rng.Intn(len(ids))], true
}
