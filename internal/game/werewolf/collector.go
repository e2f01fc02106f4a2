package werewolf

import (
	"sort"
	"time"
)

// NightAction is one submission to the night mailbox.
type NightAction struct {
	Actor       PlayerID
	Role        RoleName
	Kind        ActionKind
	Target      PlayerID
	Second      PlayerID
	SubmittedAt time.Time
}

// Collector is the mailbox of one night. It keeps one slot per role;
// werewolves share theirs and the latest submission wins.
type Collector struct {
	roster   *Roster
	round    int
	deadline time.Time
	sealed   bool
	slots    map[RoleName]NightAction
}

// NewCollector opens the mailbox for round.
func NewCollector(r *Roster, round int, deadline time.Time) *Collector {
	return &Collector{
		roster:   r,
		round:    round,
		deadline: deadline,
		slots:    make(map[RoleName]NightAction),
	}
}

// Round returns the night's round number.
func (c *Collector) Round() int { return c.round }

// Deadline returns when submissions close.
func (c *Collector) Deadline() time.Time { return c.deadline }

// EligibleRoles lists the roles that may act now, sorted by name. It is
// recomputed from the roster on every call so that dead or revoked
// holders never hold the night open.
func (c *Collector) EligibleRoles() []RoleName {
	seen := make(map[RoleName]bool)
	var out []RoleName
	for _, p := range c.roster.Players() {
		if p.CanAct(c.round) && !seen[p.Role.Name] {
			seen[p.Role.Name] = true
			out = append(out, p.Role.Name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Pending lists eligible roles whose slot is still empty.
func (c *Collector) Pending() []RoleName {
	var out []RoleName
	for _, name := range c.EligibleRoles() {
		if _, ok := c.slots[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Has reports whether role has submitted.
func (c *Collector) Has(role RoleName) bool {
	_, ok := c.slots[role]
	return ok
}

// Submit validates a and stores it in its role's slot, replacing any
// earlier submission for that role. Errors are *ValidationError.
func (c *Collector) Submit(a NightAction, now time.Time) error {
	if c.sealed || now.After(c.deadline) {
		return reject(a.Actor, ErrSubmissionClosed)
	}
	actor, ok := c.roster.Get(a.Actor)
	if !ok {
		return reject(a.Actor, ErrUnknownPlayer)
	}
	if !actor.Alive {
		return reject(a.Actor, ErrPlayerDead)
	}
	role := actor.Role
	if !role.HasNightAction() || (a.Role != "" && a.Role != role.Name) {
		return reject(a.Actor, ErrRoleMismatch)
	}
	if actor.PowersRevoked {
		return reject(a.Actor, ErrPowersRevoked)
	}
	if role.Has(CapSingleUse) && actor.AbilityUsed {
		return reject(a.Actor, ErrAbilityUsed)
	}
	if role.Has(CapFirstNightOnly) && c.round > 1 {
		return reject(a.Actor, ErrPairingClosed)
	}
	if a.Kind != ActionPass && a.Kind != role.Action {
		return reject(a.Actor, ErrRoleMismatch)
	}
	if a.Kind != ActionPass {
		if err := c.checkTargets(actor, a); err != nil {
			return reject(a.Actor, err)
		}
	} else {
		a.Target, a.Second = 0, 0
	}

	a.Role = role.Name
	a.SubmittedAt = now
	c.slots[role.Name] = a
	return nil
}

func (c *Collector) checkTargets(actor *Player, a NightAction) error {
	switch a.Kind.Targeting() {
	case TargetSingle:
		return c.checkTarget(actor, a.Target)
	case TargetPair:
		if a.Target == a.Second {
			return ErrSamePairTarget
		}
		if err := c.checkTarget(actor, a.Target); err != nil {
			return err
		}
		return c.checkTarget(actor, a.Second)
	}
	return nil
}

func (c *Collector) checkTarget(actor *Player, id PlayerID) error {
	target, ok := c.roster.Get(id)
	if !ok {
		return ErrInvalidTarget
	}
	if !target.Alive {
		return ErrPlayerDead
	}
	if target.ID == actor.ID && !actor.Role.Has(CapSelfTarget) {
		return ErrSelfTarget
	}
	if actor.Role.Has(CapNoAllyTarget) && target.Team() == actor.Team() {
		return ErrAllyTarget
	}
	return nil
}

// IsComplete reports whether the night can be resolved: the deadline has
// passed or every eligible role has a submission.
func (c *Collector) IsComplete(now time.Time) bool {
	if c.sealed || !now.Before(c.deadline) {
		return true
	}
	return len(c.Pending()) == 0
}

// Seal closes the mailbox.
func (c *Collector) Seal() { c.sealed = true }

// Sealed reports whether the mailbox is closed.
func (c *Collector) Sealed() bool { return c.sealed }

// Actions returns the stored submissions ordered by resolution precedence.
func (c *Collector) Actions() []NightAction {
	out := make([]NightAction, 0, len(c.slots))
	for _, a := range c.slots {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := c.precedenceOf(out[i]), c.precedenceOf(out[j])
		if pi != pj {
			return pi < pj
		}
		return out[i].Role < out[j].Role
	})
	return out
}

func (c *Collector) precedenceOf(a NightAction) int {
	if r, ok := catalog[a.Role]; ok {
		return r.Action.precedence()
	}
	return a.Kind.precedence()
}
