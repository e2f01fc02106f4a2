package werewolf

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manual scheduler. Timers fire only through fireNext,
// which also moves the clock to the timer's due time.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	seq     int
	f       func()
	stopped bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// fireNext runs the earliest live timer and reports whether there was one.
func (c *fakeClock) fireNext() bool {
	c.mu.Lock()
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	c.timers = live
	if len(c.timers) == 0 {
		c.mu.Unlock()
		return false
	}
	idx := 0
	for i, t := range c.timers {
		next := c.timers[idx]
		if t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
			idx = i
		}
	}
	t := c.timers[idx]
	t.stopped = true
	c.timers = append(c.timers[:idx], c.timers[idx+1:]...)
	if t.at.After(c.now) {
		c.now = t.at
	}
	c.mu.Unlock()

	t.f()
	return true
}

// sinks records everything the engine sends to the host.
type sinks struct {
	mu         sync.Mutex
	broadcasts []Event
	notes      map[PlayerID][]Event
	muted      map[PlayerID]bool
	muteCalls  int
	results    []Result
	failNotify bool
}

func newSinks() *sinks {
	return &sinks{
		notes: make(map[PlayerID][]Event),
		muted: make(map[PlayerID]bool),
	}
}

var errSinkDown = errors.New("sink down")

func (s *sinks) Notify(_ context.Context, player PlayerID, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNotify {
		return errSinkDown
	}
	s.notes[player] = append(s.notes[player], ev)
	return nil
}

func (s *sinks) Broadcast(_ context.Context, _ int64, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNotify {
		return errSinkDown
	}
	s.broadcasts = append(s.broadcasts, ev)
	return nil
}

func (s *sinks) Mute(_ context.Context, _ int64, player PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muteCalls++
	s.muted[player] = true
	return nil
}

func (s *sinks) Unmute(_ context.Context, _ int64, player PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.muted, player)
	return nil
}

func (s *sinks) RecordResult(_ context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *sinks) publicOf(kind EventKind) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.broadcasts {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (s *sinks) privateOf(player PlayerID, kind EventKind) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.notes[player] {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (s *sinks) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func (s *sinks) mutedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.muted)
}

type harness struct {
	t     *testing.T
	m     *Manager
	clock *fakeClock
	sinks *sinks
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	sk := newSinks()
	m, err := NewManager(cfg, Dependencies{Notifier: sk, Muter: sk, Recorder: sk}, zerolog.Nop())
	require.NoError(t, err)
	clk := newFakeClock()
	m.clock = clk
	return &harness{t: t, m: m, clock: clk, sinks: sk}
}

func humans(n int) []Member {
	out := make([]Member, n)
	for i := range out {
		out[i] = Member{ID: PlayerID(100 + i), Name: fmt.Sprintf("player%d", i+1)}
	}
	return out
}

// start creates a session of n humans and moves it past the lobby.
func (h *harness) start(chatID int64, n int, cfg Config) *Session {
	h.t.Helper()
	id, err := h.m.CreateSession(context.Background(), chatID, humans(n), cfg)
	require.NoError(h.t, err)
	s, err := h.m.lookup(id)
	require.NoError(h.t, err)
	require.True(h.t, h.clock.fireNext(), "lobby timer")
	require.Equal(h.t, PhaseNight, h.phase(s))
	return s
}

func (h *harness) phase(s *Session) Phase {
	h.t.Helper()
	snap, err := s.Snapshot(context.Background())
	require.NoError(h.t, err)
	return snap.Phase
}

// advanceTo fires timers until s reaches want.
func (h *harness) advanceTo(s *Session, want Phase) {
	h.t.Helper()
	for i := 0; i < 50 && h.phase(s) != want; i++ {
		require.True(h.t, h.clock.fireNext(), "no timer left before reaching %s", want)
	}
	require.Equal(h.t, want, h.phase(s))
}

func (h *harness) night(s *Session, actor PlayerID, kind ActionKind, targets ...PlayerID) error {
	a := NightAction{Actor: actor, Kind: kind}
	if len(targets) > 0 {
		a.Target = targets[0]
	}
	if len(targets) > 1 {
		a.Second = targets[1]
	}
	return s.SubmitNightAction(context.Background(), a)
}

// holder returns the first player holding role.
func holder(t *testing.T, s *Session, role RoleName) *Player {
	t.Helper()
	for _, p := range s.roster.Players() {
		if p.Role.Name == role {
			return p
		}
	}
	t.Fatalf("no %s in roster", role)
	return nil
}

// others returns living players outside the given roles, in seat order.
func others(s *Session, roles ...RoleName) []*Player {
	skip := make(map[RoleName]bool)
	for _, r := range roles {
		skip[r] = true
	}
	var out []*Player
	for _, p := range s.roster.Alive() {
		if !skip[p.Role.Name] {
			out = append(out, p)
		}
	}
	return out
}

// rosterWith seats players 1..n with the given roles.
func rosterWith(t *testing.T, roles ...RoleName) *Roster {
	t.Helper()
	members := make([]Member, len(roles))
	for i := range roles {
		members[i] = Member{ID: PlayerID(i + 1), Name: fmt.Sprintf("p%d", i+1)}
	}
	r, err := NewRoster(members)
	require.NoError(t, err)
	for i, name := range roles {
		r.players[i].Role = MustLookup(name)
	}
	return r
}

func seededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
