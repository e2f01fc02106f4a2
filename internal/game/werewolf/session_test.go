package werewolf

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"werewolf-bot/internal/pkg/lock"
)

func testConfig(n int, counts RoleCounts) Config {
	return Config{
		TargetPlayers:   n,
		MinPlayers:      3,
		RoleCounts:      counts,
		Seed:            11,
		NightDuration:   time.Minute,
		DiscussDuration: time.Minute,
		VoteDuration:    time.Minute,
		TriggerWindow:   30 * time.Second,
		LobbyDuration:   10 * time.Second,
		BotLead:         10 * time.Second,
		LockTimeout:     50 * time.Millisecond,
	}
}

func TestLoverCascadeEightPlayers(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 8, testConfig(8, RoleCounts{RoleWerewolf: 1, RoleCupid: 1}))

	wolf := holder(t, s, RoleWerewolf)
	cupid := holder(t, s, RoleCupid)
	villagers := others(s, RoleWerewolf, RoleCupid)
	require.Len(t, villagers, 6)
	a, b := villagers[0], villagers[1]

	require.NoError(t, h.night(s, cupid.ID, ActionPair, a.ID, b.ID))
	require.NoError(t, h.night(s, wolf.ID, ActionKill, a.ID))

	assert.False(t, a.Alive)
	assert.False(t, b.Alive)
	assert.Equal(t, CauseWerewolf, a.Cause)
	assert.Equal(t, CauseHeartbreak, b.Cause)
	assert.Len(t, h.sinks.publicOf(EventDeath), 2)
	assert.Len(t, h.sinks.privateOf(a.ID, EventPaired), 1)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseDayDiscuss, snap.Phase, "six alive with one werewolf is not a win")
	assert.Equal(t, 2, snap.Round)
	assert.Zero(t, h.sinks.resultCount())
	assert.Equal(t, 2, h.sinks.mutedCount(), "only the dead stay muted during the day")
}

func TestThreeWayTieNoLynch(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 6, testConfig(6, RoleCounts{RoleWerewolf: 1}))

	require.NoError(t, h.night(s, holder(t, s, RoleWerewolf).ID, ActionPass))
	h.advanceTo(s, PhaseDayVote)

	p := s.roster.Players()
	ballots := [][2]int{{0, 1}, {1, 2}, {2, 0}, {3, 0}, {4, 1}, {5, 2}}
	for _, v := range ballots {
		require.NoError(t, s.SubmitVote(context.Background(), p[v[0]].ID, p[v[1]].ID))
	}

	noLynch := h.sinks.publicOf(EventNoLynch)
	require.Len(t, noLynch, 1)
	assert.Equal(t, NoLynchTie, noLynch[0].NoLynch)
	assert.Empty(t, h.sinks.publicOf(EventLynch))
	assert.Len(t, s.roster.Alive(), 6)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseNight, snap.Phase)
	assert.Equal(t, 2, snap.Round)
}

func TestDoctorSavesTarget(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 6, testConfig(6, RoleCounts{RoleWerewolf: 1, RoleDoctor: 1}))

	target := others(s, RoleWerewolf, RoleDoctor)[0]
	require.NoError(t, h.night(s, holder(t, s, RoleDoctor).ID, ActionProtect, target.ID))
	require.NoError(t, h.night(s, holder(t, s, RoleWerewolf).ID, ActionKill, target.ID))

	survived := h.sinks.publicOf(EventSurvived)
	require.Len(t, survived, 1)
	assert.Equal(t, target.ID, survived[0].Subject)
	assert.Len(t, h.sinks.publicOf(EventNoDeaths), 1)
	assert.Empty(t, h.sinks.publicOf(EventDeath))
	assert.Len(t, s.roster.Alive(), 6)
	assert.Equal(t, PhaseDayDiscuss, h.phase(s))
}

func TestElderDiesOnSecondAttack(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 6, testConfig(6, RoleCounts{RoleWerewolf: 1, RoleElder: 1}))
	wolf := holder(t, s, RoleWerewolf)
	elder := holder(t, s, RoleElder)

	require.NoError(t, h.night(s, wolf.ID, ActionKill, elder.ID))
	assert.True(t, elder.Alive)
	assert.True(t, elder.ImmunityUsed)

	h.advanceTo(s, PhaseDayVote)
	for _, p := range s.roster.Alive() {
		require.NoError(t, s.SubmitAbstain(context.Background(), p.ID))
	}
	require.Equal(t, PhaseNight, h.phase(s))

	require.NoError(t, h.night(s, wolf.ID, ActionKill, elder.ID))
	assert.False(t, elder.Alive)
	assert.Equal(t, CauseWerewolf, elder.Cause)
	assert.Equal(t, 2, elder.DiedRound)
}

func TestLynchPenaltyRevokesPowers(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 7, testConfig(7, RoleCounts{RoleWerewolf: 1, RoleElder: 1, RoleSeer: 1, RoleDoctor: 1}))
	wolf := holder(t, s, RoleWerewolf)
	elder := holder(t, s, RoleElder)
	seer := holder(t, s, RoleSeer)
	doctor := holder(t, s, RoleDoctor)

	require.NoError(t, h.night(s, wolf.ID, ActionPass))
	require.NoError(t, h.night(s, seer.ID, ActionInvestigate, wolf.ID))
	require.NoError(t, h.night(s, doctor.ID, ActionProtect, doctor.ID))
	assert.Len(t, h.sinks.privateOf(seer.ID, EventInvestigation), 1)

	h.advanceTo(s, PhaseDayVote)
	for _, p := range s.roster.Alive() {
		target := elder.ID
		if p.ID == elder.ID {
			target = wolf.ID
		}
		require.NoError(t, s.SubmitVote(context.Background(), p.ID, target))
	}

	assert.False(t, elder.Alive)
	assert.Equal(t, CauseLynch, elder.Cause)
	assert.True(t, seer.PowersRevoked)
	assert.True(t, doctor.PowersRevoked)
	assert.False(t, wolf.PowersRevoked)

	revoked := h.sinks.publicOf(EventPowersRevoked)
	require.Len(t, revoked, 1)
	assert.ElementsMatch(t, []PlayerID{seer.ID, doctor.ID}, revoked[0].Candidates)

	require.Equal(t, PhaseNight, h.phase(s))
	err := h.night(s, seer.ID, ActionInvestigate, wolf.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrPowersRevoked)
	assert.ErrorIs(t, h.night(s, doctor.ID, ActionProtect, wolf.ID), ErrPowersRevoked)
	assert.Equal(t, []RoleName{RoleWerewolf}, s.collector.EligibleRoles())
}

func TestRoundOnePairingFallback(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 6, testConfig(6, RoleCounts{RoleWerewolf: 1, RoleCupid: 1}))
	cupid := holder(t, s, RoleCupid)

	require.NoError(t, h.night(s, holder(t, s, RoleWerewolf).ID, ActionPass))
	require.Equal(t, PhaseNight, h.phase(s), "cupid has not acted yet")

	h.advanceTo(s, PhaseDayDiscuss)

	assert.True(t, cupid.AbilityUsed)
	var lovers []PlayerID
	for _, p := range s.roster.Players() {
		if len(s.roster.Partners(p.ID)) == 1 {
			lovers = append(lovers, p.ID)
		}
	}
	require.Len(t, lovers, 2)
	assert.True(t, s.roster.Linked(lovers[0], lovers[1], LinkLovers))
	for _, id := range lovers {
		assert.Len(t, h.sinks.privateOf(id, EventPaired), 1)
	}
}

func TestWinIsTerminal(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(7, 3, testConfig(3, RoleCounts{RoleWerewolf: 1}))
	wolf := holder(t, s, RoleWerewolf)
	victim := others(s, RoleWerewolf)[0]
	survivor := others(s, RoleWerewolf)[1]

	require.NoError(t, h.night(s, wolf.ID, ActionKill, victim.ID))

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseEnded, snap.Phase)
	assert.Equal(t, TeamWerewolf, snap.Winner)
	for _, v := range snap.Players {
		assert.NotEmpty(t, v.Role, "roles are public once the game is over")
	}

	require.Equal(t, 1, h.sinks.resultCount())
	res := h.sinks.results[0]
	assert.Equal(t, TeamWerewolf, res.Winner)
	assert.Equal(t, s.ID(), res.SessionID)
	assert.Len(t, res.Players, 3)

	over := h.sinks.publicOf(EventGameOver)
	require.Len(t, over, 1)
	assert.Len(t, over[0].Roster, 3)
	assert.Zero(t, h.sinks.mutedCount(), "everyone is unmuted at the end")

	assert.ErrorIs(t, s.SubmitVote(context.Background(), survivor.ID, wolf.ID), ErrSessionFinished)
	assert.ErrorIs(t, h.night(s, wolf.ID, ActionKill, survivor.ID), ErrSessionFinished)
	assert.ErrorIs(t, h.m.SubmitVote(context.Background(), s.ID(), survivor.ID, wolf.ID), ErrSessionNotFound)
	_, ok := h.m.SessionForChat(7)
	assert.False(t, ok)
	assert.False(t, h.clock.fireNext(), "no timer survives the end of the game")
	assert.Equal(t, 1, h.sinks.resultCount())
}

func TestCancelSkipsResult(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 6, testConfig(6, nil))

	require.NoError(t, h.m.CancelSession(context.Background(), s.ID(), "not enough players"))
	assert.Equal(t, PhaseCancelled, h.phase(s))
	assert.False(t, h.clock.fireNext())
	assert.Zero(t, h.sinks.resultCount())
	assert.Zero(t, h.sinks.mutedCount())

	cancelled := h.sinks.publicOf(EventCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "not enough players", cancelled[0].Detail)

	assert.ErrorIs(t, s.Cancel(context.Background(), "again"), ErrSessionFinished)
	assert.ErrorIs(t, h.m.CancelSession(context.Background(), s.ID(), "again"), ErrSessionNotFound)
	assert.Zero(t, h.m.Active())
}

func TestCancelInLobby(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	id, err := h.m.CreateSession(context.Background(), 1, humans(5), testConfig(5, nil))
	require.NoError(t, err)

	require.NoError(t, h.m.CancelSession(context.Background(), id, "host left"))
	assert.False(t, h.clock.fireNext(), "lobby timer is stopped")
	assert.Zero(t, h.sinks.resultCount())
}

func TestHunterShootsOnDeath(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 6, testConfig(6, RoleCounts{RoleWerewolf: 1, RoleHunter: 1}))
	wolf := holder(t, s, RoleWerewolf)
	hunter := holder(t, s, RoleHunter)

	require.NoError(t, h.night(s, wolf.ID, ActionKill, hunter.ID))
	assert.False(t, hunter.Alive)
	assert.Len(t, h.sinks.privateOf(hunter.ID, EventTriggerPrompt), 1)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hunter.ID, snap.PendingTrigger)
	assert.Equal(t, PhaseNight, snap.Phase)

	bystander := others(s, RoleWerewolf, RoleHunter)[0]
	assert.ErrorIs(t, s.SubmitDeathTrigger(context.Background(), bystander.ID, wolf.ID), ErrNoPendingTrigger)
	assert.ErrorIs(t, s.SubmitDeathTrigger(context.Background(), hunter.ID, hunter.ID), ErrPlayerDead)

	require.NoError(t, s.SubmitDeathTrigger(context.Background(), hunter.ID, wolf.ID))
	assert.False(t, wolf.Alive)
	assert.Equal(t, CauseShot, wolf.Cause)
	assert.Equal(t, PhaseEnded, h.phase(s))
	require.Equal(t, 1, h.sinks.resultCount())
	assert.Equal(t, TeamVillage, h.sinks.results[0].Winner)
}

func TestHunterTriggerTimesOut(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 6, testConfig(6, RoleCounts{RoleWerewolf: 1, RoleHunter: 1}))
	hunter := holder(t, s, RoleHunter)

	require.NoError(t, h.night(s, holder(t, s, RoleWerewolf).ID, ActionKill, hunter.ID))
	require.True(t, h.clock.fireNext(), "trigger window")

	assert.True(t, hunter.TriggerUsed)
	assert.Len(t, h.sinks.publicOf(EventTriggerForfeited), 1)
	assert.Equal(t, PhaseDayDiscuss, h.phase(s))
	assert.Len(t, s.roster.Alive(), 5)
	assert.ErrorIs(t, s.SubmitDeathTrigger(context.Background(), hunter.ID, holder(t, s, RoleWerewolf).ID), ErrNoPendingTrigger)
}

func TestHunterKilledAtParityShootsBeforeWin(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 3, testConfig(3, RoleCounts{RoleWerewolf: 1, RoleHunter: 1}))
	wolf := holder(t, s, RoleWerewolf)
	hunter := holder(t, s, RoleHunter)

	require.NoError(t, h.night(s, wolf.ID, ActionKill, hunter.ID))
	assert.Len(t, h.sinks.privateOf(hunter.ID, EventTriggerPrompt), 1)
	assert.Zero(t, h.sinks.resultCount(), "parity waits for the shot")
	assert.Empty(t, h.sinks.publicOf(EventGameOver))

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hunter.ID, snap.PendingTrigger)

	require.NoError(t, s.SubmitDeathTrigger(context.Background(), hunter.ID, wolf.ID))
	assert.Equal(t, PhaseEnded, h.phase(s))
	require.Equal(t, 1, h.sinks.resultCount())
	assert.Equal(t, TeamVillage, h.sinks.results[0].Winner)
	assert.Len(t, h.sinks.publicOf(EventGameOver), 1)
}

func TestHunterForfeitAtParityEndsGame(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 3, testConfig(3, RoleCounts{RoleWerewolf: 1, RoleHunter: 1}))
	hunter := holder(t, s, RoleHunter)

	require.NoError(t, h.night(s, holder(t, s, RoleWerewolf).ID, ActionKill, hunter.ID))
	require.Zero(t, h.sinks.resultCount())
	require.True(t, h.clock.fireNext(), "trigger window")

	assert.Len(t, h.sinks.publicOf(EventTriggerForfeited), 1)
	assert.Equal(t, PhaseEnded, h.phase(s))
	require.Equal(t, 1, h.sinks.resultCount())
	assert.Equal(t, TeamWerewolf, h.sinks.results[0].Winner)
}

// lynchHunterAtParity plays a four seat game to a day where the hunter is
// lynched with one werewolf and one villager left.
func lynchHunterAtParity(t *testing.T, h *harness) (s *Session, wolf, hunter, villager *Player) {
	t.Helper()
	s = h.start(1, 4, testConfig(4, RoleCounts{RoleWerewolf: 1, RoleHunter: 1}))
	wolf = holder(t, s, RoleWerewolf)
	hunter = holder(t, s, RoleHunter)
	villagers := others(s, RoleWerewolf, RoleHunter)
	require.Len(t, villagers, 2)
	villager = villagers[1]

	require.NoError(t, h.night(s, wolf.ID, ActionKill, villagers[0].ID))
	h.advanceTo(s, PhaseDayVote)

	ctx := context.Background()
	require.NoError(t, s.SubmitVote(ctx, hunter.ID, wolf.ID))
	require.NoError(t, s.SubmitVote(ctx, wolf.ID, hunter.ID))
	require.NoError(t, s.SubmitVote(ctx, villager.ID, hunter.ID))
	return s, wolf, hunter, villager
}

func TestLynchedHunterShootsBeforeWin(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s, wolf, hunter, villager := lynchHunterAtParity(t, h)

	assert.False(t, hunter.Alive)
	assert.Equal(t, CauseLynch, hunter.Cause)
	assert.Len(t, h.sinks.publicOf(EventLynch), 1)
	prompts := h.sinks.privateOf(hunter.ID, EventTriggerPrompt)
	require.Len(t, prompts, 1)
	assert.ElementsMatch(t, []PlayerID{wolf.ID, villager.ID}, prompts[0].Candidates)
	assert.Zero(t, h.sinks.resultCount(), "parity waits for the shot")

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hunter.ID, snap.PendingTrigger)
	assert.NotEqual(t, PhaseEnded, snap.Phase)

	require.NoError(t, s.SubmitDeathTrigger(context.Background(), hunter.ID, wolf.ID))
	assert.False(t, wolf.Alive)
	assert.Equal(t, CauseShot, wolf.Cause)
	assert.Equal(t, PhaseEnded, h.phase(s))
	require.Equal(t, 1, h.sinks.resultCount())
	assert.Equal(t, TeamVillage, h.sinks.results[0].Winner)
}

func TestLynchedHunterShotDecidesWinner(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s, _, hunter, villager := lynchHunterAtParity(t, h)

	require.NoError(t, s.SubmitDeathTrigger(context.Background(), hunter.ID, villager.ID))
	assert.False(t, villager.Alive)
	assert.Equal(t, PhaseEnded, h.phase(s))
	require.Equal(t, 1, h.sinks.resultCount())
	assert.Equal(t, TeamWerewolf, h.sinks.results[0].Winner)
}

func TestLynchedLoverTakesPartner(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 6, testConfig(6, RoleCounts{RoleWerewolf: 1, RoleCupid: 1}))
	wolf := holder(t, s, RoleWerewolf)
	cupid := holder(t, s, RoleCupid)
	villagers := others(s, RoleWerewolf, RoleCupid)
	a, b := villagers[0], villagers[1]

	require.NoError(t, h.night(s, cupid.ID, ActionPair, a.ID, b.ID))
	require.NoError(t, h.night(s, wolf.ID, ActionPass))
	h.advanceTo(s, PhaseDayVote)

	for _, p := range s.roster.Alive() {
		target := a.ID
		if p.ID == a.ID {
			target = wolf.ID
		}
		require.NoError(t, s.SubmitVote(context.Background(), p.ID, target))
	}

	assert.False(t, a.Alive)
	assert.False(t, b.Alive)
	assert.Equal(t, CauseLynch, a.Cause)
	assert.Equal(t, CauseHeartbreak, b.Cause)
	assert.Equal(t, a.DiedRound, b.DiedRound)

	deaths := h.sinks.publicOf(EventDeath)
	require.Len(t, deaths, 2)
	assert.Equal(t, a.ID, deaths[0].Subject)
	assert.Equal(t, b.ID, deaths[1].Subject)
	assert.Equal(t, a.ID, deaths[1].Second)
	assert.Equal(t, CauseHeartbreak, deaths[1].Cause)

	assert.Zero(t, h.sinks.resultCount(), "four alive with one werewolf is not a win")
	assert.Equal(t, PhaseNight, h.phase(s))
	assert.Len(t, s.roster.Alive(), 4)
}

func TestSubmissionsInWrongPhase(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 6, testConfig(6, RoleCounts{RoleWerewolf: 1}))
	p := s.roster.Players()

	assert.ErrorIs(t, s.SubmitVote(context.Background(), p[0].ID, p[1].ID), ErrWrongPhase)
	require.NoError(t, h.night(s, holder(t, s, RoleWerewolf).ID, ActionPass))
	assert.ErrorIs(t, h.night(s, holder(t, s, RoleWerewolf).ID, ActionPass), ErrWrongPhase)
}

func TestConcurrentVotesResolveOnce(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 8, testConfig(8, RoleCounts{RoleWerewolf: 1}))
	wolf := holder(t, s, RoleWerewolf)
	require.NoError(t, h.night(s, wolf.ID, ActionPass))
	h.advanceTo(s, PhaseDayVote)

	target := others(s, RoleWerewolf)[0]
	cfg := s.cfg
	cfg.LockTimeout = 5 * time.Second
	s.cfg = cfg

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for _, p := range s.roster.Alive() {
		wg.Add(1)
		go func(voter PlayerID) {
			defer wg.Done()
			choice := target.ID
			if voter == target.ID {
				choice = wolf.ID
			}
			errs <- s.SubmitVote(context.Background(), voter, choice)
		}(p.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	assert.Len(t, h.sinks.publicOf(EventVoteResult), 1)
	lynch := h.sinks.publicOf(EventLynch)
	require.Len(t, lynch, 1)
	assert.Equal(t, target.ID, lynch[0].Subject)
	assert.Equal(t, PhaseNight, h.phase(s))
}

// gatedNotifier holds the first acknowledgement sent to gate until
// release is closed, recording the order deliveries complete in.
type gatedNotifier struct {
	gate    PlayerID
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	order []PlayerID
}

func (g *gatedNotifier) Notify(_ context.Context, player PlayerID, ev Event) error {
	if player == g.gate && ev.Kind == EventActionAccepted {
		close(g.entered)
		<-g.release
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.order = append(g.order, player)
	return nil
}

func (g *gatedNotifier) Broadcast(context.Context, int64, Event) error { return nil }

func TestDeliveriesKeepSubmissionOrder(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 6, testConfig(6, RoleCounts{RoleWerewolf: 1}))
	require.NoError(t, h.night(s, holder(t, s, RoleWerewolf).ID, ActionPass))
	h.advanceTo(s, PhaseDayVote)

	alive := s.roster.Alive()
	a, b := alive[0], alive[1]
	g := &gatedNotifier{gate: a.ID, entered: make(chan struct{}), release: make(chan struct{})}
	s.notifier = g

	ctx := context.Background()
	done := make(chan error, 2)
	go func() { done <- s.SubmitVote(ctx, a.ID, b.ID) }()
	<-g.entered
	go func() { done <- s.SubmitVote(ctx, b.ID, a.ID) }()
	time.Sleep(20 * time.Millisecond)
	close(g.release)

	require.NoError(t, <-done)
	require.NoError(t, <-done)
	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Equal(t, []PlayerID{a.ID, b.ID}, g.order)
}

func TestSubmissionTimesOutOnBusySession(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	s := h.start(1, 6, testConfig(6, RoleCounts{RoleWerewolf: 1}))

	h.m.locks.Lock(s.ID())
	defer h.m.locks.Unlock(s.ID())

	err := h.night(s, holder(t, s, RoleWerewolf).ID, ActionPass)
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
}

func TestNotifyFailureDoesNotChangeState(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.sinks.failNotify = true
	s := h.start(1, 6, testConfig(6, RoleCounts{RoleWerewolf: 1, RoleDoctor: 1}))

	target := others(s, RoleWerewolf, RoleDoctor)[0]
	require.NoError(t, h.night(s, holder(t, s, RoleDoctor).ID, ActionProtect, target.ID))
	require.NoError(t, h.night(s, holder(t, s, RoleWerewolf).ID, ActionKill, target.ID))

	assert.True(t, target.Alive)
	assert.Equal(t, PhaseDayDiscuss, h.phase(s))
}

func TestPrivateEventsSkipSimulatedPlayers(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	id, err := h.m.CreateSession(context.Background(), 1, humans(1), testConfig(8, nil))
	require.NoError(t, err)
	s, err := h.m.lookup(id)
	require.NoError(t, err)

	h.sinks.mu.Lock()
	defer h.sinks.mu.Unlock()
	for player := range h.sinks.notes {
		assert.Equal(t, PlayerID(100), player, "only the human receives private events")
	}
	assert.Len(t, s.roster.Players(), 8)
}

// TestBotGamesTerminate plays whole games with one idle human and seven
// simulated players, checking that phases only follow legal transitions,
// rounds never go back and exactly one result is recorded.
func TestBotGamesTerminate(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		h := newHarness(t, DefaultConfig())
		cfg := testConfig(8, nil)
		cfg.Seed = seed
		id, err := h.m.CreateSession(context.Background(), seed, humans(1), cfg)
		require.NoError(t, err)
		s, err := h.m.lookup(id)
		require.NoError(t, err)

		fired := 0
		for fired < 2000 && h.clock.fireNext() {
			fired++
		}

		snap, err := s.Snapshot(context.Background())
		require.NoError(t, err)
		require.Equal(t, PhaseEnded, snap.Phase, "seed %d", seed)
		require.Equal(t, 1, h.sinks.resultCount(), "seed %d", seed)

		prev, round := PhaseLobby, 0
		for i, ev := range h.sinks.publicOf(EventPhaseStarted) {
			if i > 0 {
				assert.True(t, prev.CanTransitionTo(ev.Phase), "seed %d: %s -> %s", seed, prev, ev.Phase)
			}
			assert.GreaterOrEqual(t, ev.Round, round, "seed %d", seed)
			prev, round = ev.Phase, ev.Round
		}
		assert.Zero(t, h.m.Active())
	}
}
