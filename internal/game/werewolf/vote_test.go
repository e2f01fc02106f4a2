package werewolf

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func votes(pairs ...PlayerID) []Vote {
	var out []Vote
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == 0 {
			out = append(out, Vote{Voter: pairs[i], Abstain: true})
			continue
		}
		out = append(out, Vote{Voter: pairs[i], Target: pairs[i+1]})
	}
	return out
}

func TestTally(t *testing.T) {
	tests := []struct {
		name    string
		votes   []Vote
		alive   int
		tie     TieBreak
		lynched PlayerID
		reason  NoLynchReason
	}{
		{"plurality", votes(1, 2, 2, 3, 3, 2, 4, 2), 4, TieBreakNone, 2, NoLynchNone},
		{"two-way tie", votes(1, 2, 2, 1, 3, 0), 4, TieBreakNone, 0, NoLynchTie},
		{"three-way tie", votes(1, 2, 2, 3, 3, 1, 4, 1, 5, 2, 6, 3), 6, TieBreakNone, 0, NoLynchTie},
		{"all abstain", votes(1, 0, 2, 0, 3, 0), 4, TieBreakNone, 0, NoLynchNoVotes},
		{"below quorum", votes(1, 2), 6, TieBreakNone, 0, NoLynchNoQuorum},
		{"abstentions reach quorum", votes(1, 2, 2, 0, 3, 0), 6, TieBreakNone, 2, NoLynchNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Tally(tt.votes, tt.alive, 0.5, tt.tie, seededRand(1))
			assert.Equal(t, tt.lynched != 0, res.HasLynch)
			assert.Equal(t, tt.lynched, res.Lynched)
			assert.Equal(t, tt.reason, res.NoLynch)
		})
	}
}

func TestTallyRandomTieBreak(t *testing.T) {
	res := Tally(votes(1, 2, 2, 3, 3, 1), 3, 0.5, TieBreakRandom, seededRand(9))
	require.True(t, res.HasLynch)
	assert.True(t, res.TieBroken)
	assert.Equal(t, []PlayerID{1, 2, 3}, res.Leaders)
	assert.Contains(t, res.Leaders, res.Lynched)
}

// TestRandomTieBreakProperty checks that a random tie break only ever
// lynches one of the tied leaders and that every leader can be chosen.
func TestRandomTieBreakProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		leaders := rapid.IntRange(2, 5).Draw(t, "leaders")
		var vs []Vote
		voter := PlayerID(100)
		for c := 1; c <= leaders; c++ {
			for k := 0; k < 2; k++ {
				vs = append(vs, Vote{Voter: voter, Target: PlayerID(c)})
				voter++
			}
		}
		vs = append(vs, Vote{Voter: voter, Target: PlayerID(leaders + 1)})

		seen := make(map[PlayerID]bool)
		for seed := int64(1); seed <= 200; seed++ {
			res := Tally(vs, len(vs), 0.5, TieBreakRandom, seededRand(seed))
			if !res.HasLynch || res.Lynched < 1 || int(res.Lynched) > leaders {
				t.Fatalf("lynched %d outside leaders 1..%d", res.Lynched, leaders)
			}
			seen[res.Lynched] = true
		}
		if len(seen) != leaders {
			t.Fatalf("only %d of %d leaders ever chosen", len(seen), leaders)
		}
	})
}

func TestTallyOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(3, 10).Draw(t, "alive")
		var vs []Vote
		for v := 1; v <= n; v++ {
			target := rapid.IntRange(0, n).Draw(t, "target")
			if target == v {
				target = 0
			}
			vs = append(vs, Vote{Voter: PlayerID(v), Target: PlayerID(target), Abstain: target == 0})
		}
		a := Tally(vs, n, 0.5, TieBreakNone, seededRand(1))
		shuffled := slices.Clone(vs)
		seededRand(int64(n)).Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		b := Tally(shuffled, n, 0.5, TieBreakNone, seededRand(1))
		if a.Lynched != b.Lynched || a.NoLynch != b.NoLynch {
			t.Fatalf("tally depends on order: %+v vs %+v", a, b)
		}
	})
}

func TestBallot(t *testing.T) {
	r := rosterWith(t, RoleWerewolf, RoleVillager, RoleVillager, RoleVillager)
	r.MarkDead(4, CauseWerewolf, 1)
	b := NewBallot(r, deadline)

	assert.ErrorIs(t, b.Cast(4, 1, t0), ErrPlayerDead)
	assert.ErrorIs(t, b.Cast(1, 4, t0), ErrPlayerDead)
	assert.ErrorIs(t, b.Cast(1, 1, t0), ErrSelfTarget)
	assert.ErrorIs(t, b.Cast(9, 1, t0), ErrUnknownPlayer)
	assert.ErrorIs(t, b.Cast(1, 9, t0), ErrInvalidTarget)

	require.NoError(t, b.Cast(1, 2, t0))
	require.NoError(t, b.Cast(1, 3, t0.Add(time.Second)))
	require.NoError(t, b.Abstain(2, t0))
	assert.False(t, b.IsComplete(t0))
	require.NoError(t, b.Cast(3, 2, t0))
	assert.True(t, b.IsComplete(t0))

	got := b.Votes()
	require.Len(t, got, 3)
	assert.Equal(t, PlayerID(3), got[0].Target, "last vote per voter wins")
	assert.True(t, got[1].Abstain)

	assert.ErrorIs(t, b.Cast(2, 1, deadline.Add(time.Second)), ErrSubmissionClosed)
	b.Close()
	assert.ErrorIs(t, b.Abstain(2, t0), ErrSubmissionClosed)
}

func TestApplyLynchPenalty(t *testing.T) {
	r := rosterWith(t, RoleWerewolf, RoleElder, RoleSeer, RoleDoctor, RoleHunter, RoleVillager)
	revoked := applyLynchPenalty(r)
	assert.Equal(t, []PlayerID{3, 4, 5}, revoked)
	for _, p := range r.Players() {
		assert.Equal(t, p.Role.Has(CapRevocable), p.PowersRevoked, "player %d", p.ID)
	}
	assert.Empty(t, applyLynchPenalty(r))
}

func TestTallyWithoutQuorum(t *testing.T) {
	assert.Zero(t, QuorumFor(6, NoQuorum))
	res := Tally(votes(1, 2), 6, NoQuorum, TieBreakNone, seededRand(1))
	assert.True(t, res.HasLynch)
	assert.Equal(t, PlayerID(2), res.Lynched)
}
