package werewolf

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// Vote is one player's live ballot.
type Vote struct {
	Voter   PlayerID
	Target  PlayerID
	Abstain bool
	CastAt  time.Time
}

// Ballot collects one overwritable vote per living player.
type Ballot struct {
	roster   *Roster
	deadline time.Time
	closed   bool
	votes    map[PlayerID]Vote
}

// NewBallot opens a ballot that closes at deadline.
func NewBallot(r *Roster, deadline time.Time) *Ballot {
	return &Ballot{
		roster:   r,
		deadline: deadline,
		votes:    make(map[PlayerID]Vote),
	}
}

// Deadline returns when voting closes.
func (b *Ballot) Deadline() time.Time { return b.deadline }

func (b *Ballot) checkVoter(voter PlayerID, now time.Time) error {
	if b.closed || now.After(b.deadline) {
		return reject(voter, ErrSubmissionClosed)
	}
	p, ok := b.roster.Get(voter)
	if !ok {
		return reject(voter, ErrUnknownPlayer)
	}
	if !p.Alive {
		return reject(voter, ErrPlayerDead)
	}
	return nil
}

// Cast records a vote for target, replacing the voter's earlier ballot.
func (b *Ballot) Cast(voter, target PlayerID, now time.Time) error {
	if err := b.checkVoter(voter, now); err != nil {
		return err
	}
	t, ok := b.roster.Get(target)
	if !ok {
		return reject(voter, ErrInvalidTarget)
	}
	if !t.Alive {
		return reject(voter, ErrPlayerDead)
	}
	if voter == target {
		return reject(voter, ErrSelfTarget)
	}
	b.votes[voter] = Vote{Voter: voter, Target: target, CastAt: now}
	return nil
}

// Abstain records an explicit abstention.
func (b *Ballot) Abstain(voter PlayerID, now time.Time) error {
	if err := b.checkVoter(voter, now); err != nil {
		return err
	}
	b.votes[voter] = Vote{Voter: voter, Abstain: true, CastAt: now}
	return nil
}

// Voted reports whether voter holds a ballot.
func (b *Ballot) Voted(voter PlayerID) bool {
	_, ok := b.votes[voter]
	return ok
}

// IsComplete reports whether the deadline passed or every living player
// has voted.
func (b *Ballot) IsComplete(now time.Time) bool {
	if b.closed || !now.Before(b.deadline) {
		return true
	}
	for _, p := range b.roster.Alive() {
		if !b.Voted(p.ID) {
			return false
		}
	}
	return true
}

// Close stops accepting votes.
func (b *Ballot) Close() { b.closed = true }

// Votes returns the live ballots ordered by voter seat.
func (b *Ballot) Votes() []Vote {
	out := make([]Vote, 0, len(b.votes))
	for _, p := range b.roster.Players() {
		if v, ok := b.votes[p.ID]; ok && p.Alive {
			out = append(out, v)
		}
	}
	return out
}

// TallyResult is the outcome of a day vote.
type TallyResult struct {
	Counts      map[PlayerID]int
	Ballots     int
	Abstentions int
	Quorum      int
	// Leaders are the candidates sharing the top count, ordered by id.
	Leaders   []PlayerID
	Lynched   PlayerID
	HasLynch  bool
	TieBroken bool
	NoLynch   NoLynchReason
}

// QuorumFor returns how many ballots alive players must cast. A ratio of
// zero or below, NoQuorum included, needs none.
func QuorumFor(alive int, ratio float64) int {
	if ratio <= 0 {
		return 0
	}
	return int(math.Ceil(ratio * float64(alive)))
}

// Tally counts votes. Abstentions count toward quorum only. A strict
// plurality lynches; a tie lynches nobody unless tie is TieBreakRandom,
// which picks one of all the tied candidates uniformly with rng.
func Tally(votes []Vote, alive int, quorumRatio float64, tie TieBreak, rng *rand.Rand) TallyResult {
	res := TallyResult{
		Counts: make(map[PlayerID]int),
		Quorum: QuorumFor(alive, quorumRatio),
	}
	for _, v := range votes {
		res.Ballots++
		if v.Abstain {
			res.Abstentions++
			continue
		}
		res.Counts[v.Target]++
	}

	if res.Ballots < res.Quorum {
		res.NoLynch = NoLynchNoQuorum
		return res
	}
	if len(res.Counts) == 0 {
		res.NoLynch = NoLynchNoVotes
		return res
	}

	top := 0
	for _, c := range res.Counts {
		top = max(top, c)
	}
	for id, c := range res.Counts {
		if c == top {
			res.Leaders = append(res.Leaders, id)
		}
	}
	sort.Slice(res.Leaders, func(i, j int) bool { return res.Leaders[i] < res.Leaders[j] })

	switch {
	case len(res.Leaders) == 1:
		res.Lynched, res.HasLynch = res.Leaders[0], true
	case tie == TieBreakRandom:
		res.Lynched = res.Leaders[rng.Intn(len(res.Leaders))]
		res.HasLynch, res.TieBroken = true, true
	default:
		res.NoLynch = NoLynchTie
	}
	return res
}

// applyLynchPenalty revokes the powers of every revocable role holder.
// It returns the players whose powers changed, in seat order.
func applyLynchPenalty(r *Roster) []PlayerID {
	var revoked []PlayerID
	for _, p := range r.Holders(CapRevocable) {
		if r.RevokePowers(p.ID) {
			revoked = append(revoked, p.ID)
		}
	}
	return revoked
}
