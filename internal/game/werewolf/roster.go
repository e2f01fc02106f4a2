package werewolf

import (
	"fmt"
	"math/rand"
	"sort"
)

// PlayerID is a stable player identity. Humans use their chat user id,
// simulated players get negative ids.
type PlayerID int64

// Player is one seat at the table. Dead players stay in the roster.
type Player struct {
	ID        PlayerID
	Name      string
	Seat      int
	Role      *Role
	Alive     bool
	Simulated bool
	Cause     DeathCause
	DiedRound int

	ImmunityUsed  bool
	AbilityUsed   bool
	TriggerUsed   bool
	PowersRevoked bool
	Muted         bool

	// targeted counts how often this player aimed a night action at others.
	targeted map[PlayerID]int
}

// Team returns the player's role team.
func (p *Player) Team() Team { return p.Role.Team }

// HasTargeted reports whether p aimed a night action at id before.
func (p *Player) HasTargeted(id PlayerID) bool { return p.targeted[id] > 0 }

func (p *Player) noteTarget(id PlayerID) {
	if p.targeted == nil {
		p.targeted = make(map[PlayerID]int)
	}
	p.targeted[id]++
}

// CanAct reports whether p holds a usable night action in round.
func (p *Player) CanAct(round int) bool {
	switch {
	case !p.Alive, !p.Role.HasNightAction(), p.PowersRevoked:
		return false
	case p.Role.Has(CapSingleUse) && p.AbilityUsed:
		return false
	case p.Role.Has(CapFirstNightOnly) && round > 1:
		return false
	}
	return true
}

// CanTrigger reports whether p's death trigger is still available.
func (p *Player) CanTrigger() bool {
	return p.Role.DeathTrigger() && !p.PowersRevoked && !p.TriggerUsed
}

// LinkKind is a relationship class between two players.
type LinkKind int

const (
	LinkLovers LinkKind = iota
)

// exclusive link kinds allow one partner per player.
func (k LinkKind) exclusive() bool { return k == LinkLovers }

// link is an unordered pair of roster indexes, lo < hi.
type link struct {
	lo, hi int
	kind   LinkKind
}

// Roster is an arena of players addressed by index, with relationships
// kept as a set of index pairs.
type Roster struct {
	players []*Player
	index   map[PlayerID]int
	links   map[link]struct{}
}

// NewRoster seats members in order without roles.
func NewRoster(members []Member) (*Roster, error) {
	r := &Roster{
		players: make([]*Player, 0, len(members)),
		index:   make(map[PlayerID]int, len(members)),
		links:   make(map[link]struct{}),
	}
	for i, m := range members {
		if _, dup := r.index[m.ID]; dup {
			return nil, &ConfigurationError{Reason: fmt.Errorf("%w: %d", ErrDuplicatePlayer, m.ID)}
		}
		r.index[m.ID] = i
		r.players = append(r.players, &Player{
			ID:        m.ID,
			Name:      m.Name,
			Seat:      i + 1,
			Alive:     true,
			Simulated: m.Simulated,
		})
	}
	return r, nil
}

// AssignRoles seats members and deals roles to them. A nil counts uses
// DefaultRoleCounts; a shortfall is filled with villagers. The deal is
// shuffled with rng and is deterministic for a given seed.
func AssignRoles(members []Member, counts RoleCounts, thresholds Thresholds, rng *rand.Rand) (*Roster, error) {
	r, err := NewRoster(members)
	if err != nil {
		return nil, err
	}
	n := len(members)
	if counts == nil {
		counts = DefaultRoleCounts(n, thresholds)
	}
	if err := ValidateCounts(counts, n); err != nil {
		return nil, err
	}

	names := make([]RoleName, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	deck := make([]*Role, 0, n)
	for _, name := range names {
		role := catalog[name]
		for i := 0; i < counts[name]; i++ {
			deck = append(deck, role)
		}
	}
	for len(deck) < n {
		deck = append(deck, catalog[RoleVillager])
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	for i, p := range r.players {
		p.Role = deck[i]
	}
	return r, nil
}

// Len returns the number of seats.
func (r *Roster) Len() int { return len(r.players) }

// Players returns every player in seat order.
func (r *Roster) Players() []*Player { return r.players }

// Get returns the player with id.
func (r *Roster) Get(id PlayerID) (*Player, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.players[i], true
}

// BySeat returns the player at a 1-based seat.
func (r *Roster) BySeat(seat int) (*Player, bool) {
	if seat < 1 || seat > len(r.players) {
		return nil, false
	}
	return r.players[seat-1], true
}

// Alive returns living players in seat order.
func (r *Roster) Alive() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// Living returns living players of team in seat order.
func (r *Roster) Living(team Team) []*Player {
	out := make([]*Player, 0)
	for _, p := range r.players {
		if p.Alive && p.Team() == team {
			out = append(out, p)
		}
	}
	return out
}

// Holders returns every player, dead or alive, whose role carries caps.
func (r *Roster) Holders(caps Capability) []*Player {
	out := make([]*Player, 0)
	for _, p := range r.players {
		if p.Role != nil && p.Role.Has(caps) {
			out = append(out, p)
		}
	}
	return out
}

// MarkDead kills id. It returns false when the player is unknown or
// already dead, leaving the roster unchanged.
func (r *Roster) MarkDead(id PlayerID, cause DeathCause, round int) bool {
	p, ok := r.Get(id)
	if !ok || !p.Alive {
		return false
	}
	p.Alive = false
	p.Cause = cause
	p.DiedRound = round
	return true
}

func (r *Roster) linkKey(a, b PlayerID, kind LinkKind) (link, error) {
	ia, ok := r.index[a]
	if !ok {
		return link{}, fmt.Errorf("%w: %d", ErrUnknownPlayer, a)
	}
	ib, ok := r.index[b]
	if !ok {
		return link{}, fmt.Errorf("%w: %d", ErrUnknownPlayer, b)
	}
	if ia == ib {
		return link{}, ErrSelfLink
	}
	if ia > ib {
		ia, ib = ib, ia
	}
	return link{lo: ia, hi: ib, kind: kind}, nil
}

// Link binds a and b symmetrically. Exclusive kinds fail when either
// player already holds a link of that kind.
func (r *Roster) Link(a, b PlayerID, kind LinkKind) error {
	key, err := r.linkKey(a, b, kind)
	if err != nil {
		return err
	}
	if kind.exclusive() {
		for l := range r.links {
			if l.kind != kind {
				continue
			}
			if l.lo == key.lo || l.hi == key.lo || l.lo == key.hi || l.hi == key.hi {
				return ErrLinkExists
			}
		}
	}
	r.links[key] = struct{}{}
	return nil
}

// Linked reports whether a and b share a link of kind.
func (r *Roster) Linked(a, b PlayerID, kind LinkKind) bool {
	key, err := r.linkKey(a, b, kind)
	if err != nil {
		return false
	}
	_, ok := r.links[key]
	return ok
}

// Partners returns everyone linked to id, in seat order.
func (r *Roster) Partners(id PlayerID) []PlayerID {
	i, ok := r.index[id]
	if !ok {
		return nil
	}
	var seats []int
	for l := range r.links {
		switch i {
		case l.lo:
			seats = append(seats, l.hi)
		case l.hi:
			seats = append(seats, l.lo)
		}
	}
	sort.Ints(seats)
	out := make([]PlayerID, len(seats))
	for k, s := range seats {
		out[k] = r.players[s].ID
	}
	return out
}

// RevokePowers strips id's powers for the rest of the game. It returns
// false when the powers were already revoked.
func (r *Roster) RevokePowers(id PlayerID) bool {
	p, ok := r.Get(id)
	if !ok || p.PowersRevoked {
		return false
	}
	p.PowersRevoked = true
	return true
}

// Outcomes snapshots every player for a result record.
func (r *Roster) Outcomes(winner Team, ended bool) []PlayerOutcome {
	out := make([]PlayerOutcome, len(r.players))
	for i, p := range r.players {
		o := PlayerOutcome{
			ID:        p.ID,
			Name:      p.Name,
			Seat:      p.Seat,
			Alive:     p.Alive,
			Simulated: p.Simulated,
			Cause:     p.Cause,
			DiedRound: p.DiedRound,
		}
		if p.Role != nil {
			o.Role = p.Role.Name
			o.Team = p.Role.Team
		}
		if ended {
			o.Won = r.won(p, winner)
		}
		out[i] = o
	}
	return out
}

func (r *Roster) won(p *Player, winner Team) bool {
	if winner == TeamLovers {
		return len(r.Partners(p.ID)) > 0
	}
	return p.Role != nil && p.Role.Team == winner
}
