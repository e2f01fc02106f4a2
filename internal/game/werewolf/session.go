package werewolf

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"werewolf-bot/internal/pkg/lock"
)

// Session is one running game. Every mutation happens while holding the
// session's key in the shared KeyLock; host side effects are queued in an
// outbox and delivered after the lock is released.
type Session struct {
	id     string
	chatID int64
	cfg    Config
	log    zerolog.Logger
	rng    *rand.Rand
	policy Policy
	locks  *lock.KeyLock[string]
	clock  scheduler

	notifier Notifier
	muter    Muter
	recorder ResultRecorder
	onClose  func(*Session)
	// delivering is taken before the session lock is released and held
	// until the outbox is flushed, so outboxes reach the host in the order
	// they were filled.
	delivering sync.Mutex

	roster   *Roster
	humanIDs []PlayerID

	phase     Phase
	round     int
	epoch     uint64
	deadline  time.Time
	timers    []timer
	collector *Collector
	ballot    *Ballot

	// Death triggers waiting to be offered, and the holder currently
	// deciding. afterTriggers resumes the phase flow once both are empty.
	triggerQueue  []PlayerID
	pending       PlayerID
	afterTriggers func(*outbox)

	events    []Event
	startedAt time.Time
	endedAt   time.Time
	winner    Team
	recorded  bool
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ChatID returns the shared chat the session runs in.
func (s *Session) ChatID() int64 { return s.chatID }

// exec runs fn under the session lock, giving up after the configured
// lock timeout, then delivers whatever fn queued.
func (s *Session) exec(ctx context.Context, fn func(ob *outbox) error) error {
	ob := &outbox{}
	queued := false
	err := s.locks.WithLockContext(ctx, s.id, s.cfg.LockTimeout, func() error {
		defer s.queue(&queued)
		return fn(ob)
	})
	if queued {
		s.flush(ctx, ob)
	}
	return err
}

// fire runs a timer callback. Timer callbacks wait for the lock and are
// dropped when the epoch they were armed in has passed.
func (s *Session) fire(epoch uint64, fn func(ob *outbox)) {
	ob := &outbox{}
	queued := false
	_ = s.locks.WithLock(s.id, func() error {
		defer s.queue(&queued)
		if epoch != s.epoch || s.phase.Terminal() {
			s.log.Debug().Uint64("epoch", epoch).Msg("Stale timer dropped")
			return nil
		}
		fn(ob)
		return nil
	})
	if queued {
		s.flush(context.Background(), ob)
	}
}

// queue claims the delivery slot while the session lock is still held.
func (s *Session) queue(queued *bool) {
	s.delivering.Lock()
	*queued = true
}

// flush delivers ob and releases the slot taken by queue.
func (s *Session) flush(ctx context.Context, ob *outbox) {
	defer s.delivering.Unlock()
	s.deliver(ctx, ob)
}

func (s *Session) arm(d time.Duration, fn func(ob *outbox)) {
	epoch := s.epoch
	s.timers = append(s.timers, s.clock.AfterFunc(d, func() { s.fire(epoch, fn) }))
}

// disarm stops every timer and invalidates any callback already running.
func (s *Session) disarm() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.epoch++
}

func (s *Session) botDelay(d time.Duration) time.Duration {
	if s.cfg.BotLead >= d {
		return 0
	}
	return d - s.cfg.BotLead
}

func (s *Session) transition(next Phase) bool {
	if !s.phase.CanTransitionTo(next) {
		s.log.Error().Str("from", s.phase.String()).Str("to", next.String()).Msg("Illegal phase transition")
		return false
	}
	s.log.Info().Str("from", s.phase.String()).Str("to", next.String()).Int("round", s.round).Msg("Phase transition")
	s.phase = next
	return true
}

func (s *Session) event(kind EventKind, vis Visibility, audience ...PlayerID) Event {
	return Event{Kind: kind, Visibility: vis, Audience: audience, Round: s.round, Phase: s.phase}
}

// emit appends events to the log and queues them for delivery.
// Simulated players are dropped from private audiences.
func (s *Session) emit(ob *outbox, events ...Event) {
	for _, ev := range events {
		ev.At = s.clock.Now()
		s.events = append(s.events, ev)
		if ev.Visibility != Public {
			ev.Audience = s.humans(ev.Audience)
			if len(ev.Audience) == 0 {
				continue
			}
		}
		ob.events = append(ob.events, ev)
	}
}

func (s *Session) humans(ids []PlayerID) []PlayerID {
	out := make([]PlayerID, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.roster.Get(id); ok && !p.Simulated {
			out = append(out, id)
		}
	}
	return out
}

func (s *Session) aliveIDs(except PlayerID) []PlayerID {
	var out []PlayerID
	for _, p := range s.roster.Alive() {
		if p.ID != except {
			out = append(out, p.ID)
		}
	}
	return out
}

// start enters the lobby and deals the role reveals.
func (s *Session) start(ctx context.Context) error {
	return s.exec(ctx, func(ob *outbox) error {
		now := s.clock.Now()
		s.startedAt = now
		s.deadline = now.Add(s.cfg.LobbyDuration)

		ev := s.event(EventPhaseStarted, Public)
		ev.Deadline = s.deadline
		s.emit(ob, ev)

		var wolves []PlayerID
		for _, p := range s.roster.Players() {
			reveal := s.event(EventRoleReveal, Private, p.ID)
			reveal.Subject = p.ID
			reveal.Role = p.Role.Name
			reveal.Team = p.Team()
			s.emit(ob, reveal)
			if p.Team() == TeamWerewolf {
				wolves = append(wolves, p.ID)
			}
		}
		team := s.event(EventTeamReveal, TeamOnly, wolves...)
		team.Team = TeamWerewolf
		team.Candidates = wolves
		s.emit(ob, team)

		s.log.Info().Int("players", s.roster.Len()).Int("humans", len(s.humanIDs)).Msg("Session started")
		s.arm(s.cfg.LobbyDuration, s.enterNight)
		return nil
	})
}

func (s *Session) enterNight(ob *outbox) {
	if !s.transition(PhaseNight) {
		return
	}
	s.disarm()
	if s.round == 0 {
		s.round = 1
	}
	s.deadline = s.clock.Now().Add(s.cfg.NightDuration)
	s.collector = NewCollector(s.roster, s.round, s.deadline)
	s.ballot = nil

	for _, p := range s.roster.Alive() {
		if !p.Simulated && !p.Muted {
			p.Muted = true
			ob.mute(p.ID)
		}
	}

	ev := s.event(EventPhaseStarted, Public)
	ev.Deadline = s.deadline
	s.emit(ob, ev)

	for _, p := range s.roster.Alive() {
		if p.Simulated || !p.CanAct(s.round) {
			continue
		}
		prompt := s.event(EventActionPrompt, Private, p.ID)
		prompt.Role = p.Role.Name
		prompt.Action = p.Role.Action
		prompt.Deadline = s.deadline
		prompt.Candidates = s.aliveIDs(0)
		s.emit(ob, prompt)
	}

	s.arm(s.cfg.NightDuration, s.closeNight)
	s.arm(s.botDelay(s.cfg.NightDuration), s.nightBots)
}

// SubmitNightAction validates and stores a night action.
func (s *Session) SubmitNightAction(ctx context.Context, a NightAction) error {
	return s.exec(ctx, func(ob *outbox) error {
		if s.phase.Terminal() {
			return reject(a.Actor, ErrSessionFinished)
		}
		if s.phase != PhaseNight || s.collector == nil {
			return reject(a.Actor, ErrWrongPhase)
		}
		if err := s.collector.Submit(a, s.clock.Now()); err != nil {
			s.log.Debug().Err(err).Int64("actor", int64(a.Actor)).Str("kind", a.Kind.String()).Msg("Night action rejected")
			return err
		}
		s.log.Debug().Int64("actor", int64(a.Actor)).Str("kind", a.Kind.String()).Msg("Night action accepted")

		ack := s.event(EventActionAccepted, Private, a.Actor)
		ack.Action = a.Kind
		ack.Subject = a.Target
		ack.Second = a.Second
		s.emit(ob, ack)

		s.maybeResolveNight(ob)
		return nil
	})
}

func (s *Session) nightBots(ob *outbox) {
	if s.phase != PhaseNight || s.collector.Sealed() {
		return
	}
	now := s.clock.Now()
	for _, role := range s.collector.Pending() {
		actor := s.simulatedHolder(role)
		if actor == nil {
			continue
		}
		a := s.policy.NightAction(s.roster, actor, s.round, s.rng)
		if err := s.collector.Submit(a, now); err != nil {
			s.log.Warn().Err(err).Int64("actor", int64(actor.ID)).Str("role", string(role)).Msg("Bot action rejected")
		}
	}
	s.maybeResolveNight(ob)
}

func (s *Session) simulatedHolder(role RoleName) *Player {
	for _, p := range s.roster.Alive() {
		if p.Simulated && p.Role.Name == role && p.CanAct(s.round) {
			return p
		}
	}
	return nil
}

func (s *Session) maybeResolveNight(ob *outbox) {
	if !s.collector.Sealed() && s.collector.IsComplete(s.clock.Now()) {
		s.resolveNight(ob)
	}
}

func (s *Session) closeNight(ob *outbox) {
	if s.phase == PhaseNight && !s.collector.Sealed() {
		s.resolveNight(ob)
	}
}

func (s *Session) resolveNight(ob *outbox) {
	s.disarm()
	s.collector.Seal()

	out := ResolveNight(s.roster, s.round, s.collector.Actions(), s.policy, s.rng)
	if out.Stall != nil {
		s.log.Warn().Err(out.Stall).Msg("Mandatory action skipped")
	}
	s.emit(ob, out.Events...)
	s.log.Info().Int("round", s.round).Int("deaths", len(out.Deaths)).Msg("Night resolved")

	s.afterDeaths(ob, out.Triggers, s.enterDay)
}

// afterDeaths offers queued death triggers, then checks for a winner once
// the queue is empty and continues with next if there is none. A shot can
// still change the outcome, so the check waits for every trigger.
func (s *Session) afterDeaths(ob *outbox, triggers []PlayerID, next func(*outbox)) {
	s.triggerQueue = append(s.triggerQueue, triggers...)
	s.afterTriggers = func(ob *outbox) {
		if s.checkWin(ob) {
			return
		}
		next(ob)
	}
	s.drainTriggers(ob)
}

func (s *Session) drainTriggers(ob *outbox) {
	for len(s.triggerQueue) > 0 {
		holder, ok := s.roster.Get(s.triggerQueue[0])
		s.triggerQueue = s.triggerQueue[1:]
		if !ok || !holder.CanTrigger() {
			continue
		}

		if holder.Simulated {
			holder.TriggerUsed = true
			target, ok := s.policy.Shoot(s.roster, holder, s.rng)
			if !ok {
				s.forfeit(ob, holder)
				continue
			}
			s.shoot(ob, holder, target)
			continue
		}

		candidates := s.aliveIDs(holder.ID)
		if len(candidates) == 0 {
			holder.TriggerUsed = true
			s.forfeit(ob, holder)
			continue
		}
		s.disarm()
		s.pending = holder.ID
		prompt := s.event(EventTriggerPrompt, Private, holder.ID)
		prompt.Role = holder.Role.Name
		prompt.Deadline = s.clock.Now().Add(s.cfg.TriggerWindow)
		prompt.Candidates = candidates
		s.emit(ob, prompt)
		s.arm(s.cfg.TriggerWindow, s.triggerTimeout)
		return
	}

	next := s.afterTriggers
	s.afterTriggers = nil
	if next != nil {
		next(ob)
	}
}

// shoot kills target on behalf of holder. Triggers raised by the death
// join the queue.
func (s *Session) shoot(ob *outbox, holder *Player, target PlayerID) {
	died, events, triggers := applyDeaths(s.roster, []Death{{Player: target, Cause: CauseShot, Because: holder.ID}}, s.round, s.phase)
	s.emit(ob, events...)
	s.muteDead(ob, died)
	s.log.Info().Int64("holder", int64(holder.ID)).Int64("target", int64(target)).Msg("Death trigger used")
	s.triggerQueue = append(s.triggerQueue, triggers...)
}

func (s *Session) forfeit(ob *outbox, holder *Player) {
	ev := s.event(EventTriggerForfeited, Public)
	ev.Subject = holder.ID
	s.emit(ob, ev)
}

func (s *Session) triggerTimeout(ob *outbox) {
	holder, ok := s.roster.Get(s.pending)
	s.pending = 0
	if ok {
		holder.TriggerUsed = true
		s.forfeit(ob, holder)
	}
	s.drainTriggers(ob)
}

// SubmitDeathTrigger answers a pending death-trigger prompt.
func (s *Session) SubmitDeathTrigger(ctx context.Context, actor, target PlayerID) error {
	return s.exec(ctx, func(ob *outbox) error {
		if s.phase.Terminal() {
			return reject(actor, ErrSessionFinished)
		}
		if s.pending == 0 || s.pending != actor {
			return reject(actor, ErrNoPendingTrigger)
		}
		t, ok := s.roster.Get(target)
		switch {
		case !ok:
			return reject(actor, ErrInvalidTarget)
		case !t.Alive:
			return reject(actor, ErrPlayerDead)
		case target == actor:
			return reject(actor, ErrSelfTarget)
		}

		holder, _ := s.roster.Get(actor)
		holder.TriggerUsed = true
		s.pending = 0
		s.disarm()
		s.shoot(ob, holder, target)
		s.drainTriggers(ob)
		return nil
	})
}

func (s *Session) muteDead(ob *outbox, died []Death) {
	for _, d := range died {
		if p, ok := s.roster.Get(d.Player); ok && !p.Simulated && !p.Muted {
			p.Muted = true
			ob.mute(p.ID)
		}
	}
}

func (s *Session) enterDay(ob *outbox) {
	if !s.transition(PhaseDayDiscuss) {
		return
	}
	s.disarm()
	s.round++
	s.deadline = s.clock.Now().Add(s.cfg.DiscussDuration)

	for _, p := range s.roster.Alive() {
		if !p.Simulated && p.Muted {
			p.Muted = false
			ob.unmute(p.ID)
		}
	}

	ev := s.event(EventPhaseStarted, Public)
	ev.Deadline = s.deadline
	s.emit(ob, ev)
	s.arm(s.cfg.DiscussDuration, s.enterVote)
}

func (s *Session) enterVote(ob *outbox) {
	if !s.transition(PhaseDayVote) {
		return
	}
	s.disarm()
	s.deadline = s.clock.Now().Add(s.cfg.VoteDuration)
	s.ballot = NewBallot(s.roster, s.deadline)

	ev := s.event(EventPhaseStarted, Public)
	ev.Deadline = s.deadline
	s.emit(ob, ev)

	prompt := s.event(EventVotePrompt, Public)
	prompt.Deadline = s.deadline
	prompt.Candidates = s.aliveIDs(0)
	s.emit(ob, prompt)

	s.arm(s.cfg.VoteDuration, s.closeVote)
	s.arm(s.botDelay(s.cfg.VoteDuration), s.voteBots)
}

// SubmitVote casts or replaces voter's ballot.
func (s *Session) SubmitVote(ctx context.Context, voter, target PlayerID) error {
	return s.vote(ctx, voter, func(now time.Time) error {
		return s.ballot.Cast(voter, target, now)
	})
}

// SubmitAbstain records an explicit abstention for voter.
func (s *Session) SubmitAbstain(ctx context.Context, voter PlayerID) error {
	return s.vote(ctx, voter, func(now time.Time) error {
		return s.ballot.Abstain(voter, now)
	})
}

func (s *Session) vote(ctx context.Context, voter PlayerID, cast func(time.Time) error) error {
	return s.exec(ctx, func(ob *outbox) error {
		if s.phase.Terminal() {
			return reject(voter, ErrSessionFinished)
		}
		if s.phase != PhaseDayVote || s.ballot == nil {
			return reject(voter, ErrWrongPhase)
		}
		if err := cast(s.clock.Now()); err != nil {
			s.log.Debug().Err(err).Int64("voter", int64(voter)).Msg("Vote rejected")
			return err
		}
		s.log.Debug().Int64("voter", int64(voter)).Msg("Vote accepted")
		s.emit(ob, s.event(EventActionAccepted, Private, voter))
		s.maybeCloseVote(ob)
		return nil
	})
}

func (s *Session) voteBots(ob *outbox) {
	if s.phase != PhaseDayVote || s.ballot == nil {
		return
	}
	now := s.clock.Now()
	for _, p := range s.roster.Alive() {
		if !p.Simulated || s.ballot.Voted(p.ID) {
			continue
		}
		var err error
		if target, ok := s.policy.Vote(s.roster, p, s.rng); ok {
			err = s.ballot.Cast(p.ID, target, now)
		} else {
			err = s.ballot.Abstain(p.ID, now)
		}
		if err != nil {
			s.log.Warn().Err(err).Int64("voter", int64(p.ID)).Msg("Bot vote rejected")
		}
	}
	s.maybeCloseVote(ob)
}

func (s *Session) maybeCloseVote(ob *outbox) {
	if s.ballot.IsComplete(s.clock.Now()) {
		s.closeVote(ob)
	}
}

func (s *Session) closeVote(ob *outbox) {
	if s.phase != PhaseDayVote {
		return
	}
	s.disarm()
	s.ballot.Close()

	res := Tally(s.ballot.Votes(), len(s.roster.Alive()), s.cfg.QuorumRatio, s.cfg.TieBreak, s.rng)
	result := s.event(EventVoteResult, Public)
	result.Tally = res.Counts
	result.Candidates = res.Leaders
	s.emit(ob, result)

	if !res.HasLynch {
		ev := s.event(EventNoLynch, Public)
		ev.NoLynch = res.NoLynch
		s.emit(ob, ev)
		s.log.Info().Int("round", s.round).Str("reason", res.NoLynch.String()).Msg("No lynch")
		s.enterNight(ob)
		return
	}

	lynched, _ := s.roster.Get(res.Lynched)
	ev := s.event(EventLynch, Public)
	ev.Subject = lynched.ID
	ev.Role = lynched.Role.Name
	if res.TieBroken {
		ev.Detail = "tie broken at random"
	}
	s.emit(ob, ev)

	if lynched.Role.LynchPenalty() {
		revoked := applyLynchPenalty(s.roster)
		rev := s.event(EventPowersRevoked, Public)
		rev.Subject = lynched.ID
		rev.Candidates = revoked
		s.emit(ob, rev)
		s.log.Info().Int("revoked", len(revoked)).Msg("Lynch penalty applied")
	}

	died, events, triggers := applyDeaths(s.roster, []Death{{Player: lynched.ID, Cause: CauseLynch}}, s.round, s.phase)
	s.emit(ob, events...)
	s.muteDead(ob, died)
	s.log.Info().Int("round", s.round).Int64("lynched", int64(lynched.ID)).Int("deaths", len(died)).Msg("Lynch resolved")

	s.afterDeaths(ob, triggers, s.enterNight)
}

func (s *Session) checkWin(ob *outbox) bool {
	winner, ok := EvaluateWin(s.roster)
	if !ok {
		return false
	}
	s.finish(ob, winner)
	return true
}

func (s *Session) finish(ob *outbox, winner Team) {
	if !s.transition(PhaseEnded) {
		return
	}
	s.disarm()
	s.clearTriggers()
	s.winner = winner
	s.endedAt = s.clock.Now()

	ev := s.event(EventGameOver, Public)
	ev.Team = winner
	ev.Roster = s.roster.Outcomes(winner, true)
	s.emit(ob, ev)
	s.unmuteAll(ob)

	if !s.recorded {
		s.recorded = true
		ob.result = &Result{
			SessionID: s.id,
			ChatID:    s.chatID,
			Winner:    winner,
			Rounds:    s.round,
			StartedAt: s.startedAt,
			EndedAt:   s.endedAt,
			Players:   ev.Roster,
		}
	}
	ob.closed = true
	s.log.Info().Str("winner", winner.String()).Int("rounds", s.round).Msg("Game over")
}

func (s *Session) clearTriggers() {
	s.triggerQueue = nil
	s.pending = 0
	s.afterTriggers = nil
}

func (s *Session) unmuteAll(ob *outbox) {
	for _, p := range s.roster.Players() {
		if !p.Simulated && p.Muted {
			p.Muted = false
			ob.unmute(p.ID)
		}
	}
}

// Cancel stops the session without recording a result.
func (s *Session) Cancel(ctx context.Context, reason string) error {
	return s.exec(ctx, func(ob *outbox) error {
		if s.phase.Terminal() {
			return ErrSessionFinished
		}
		s.transition(PhaseCancelled)
		s.disarm()
		s.clearTriggers()
		s.endedAt = s.clock.Now()

		ev := s.event(EventCancelled, Public)
		ev.Detail = reason
		s.emit(ob, ev)
		s.unmuteAll(ob)
		ob.closed = true
		s.log.Info().Str("reason", reason).Msg("Session cancelled")
		return nil
	})
}

// PlayerView is the public face of a player.
type PlayerView struct {
	Seat      int
	ID        PlayerID
	Name      string
	Alive     bool
	Simulated bool
	// Role and Cause are only filled for dead players and once the game
	// is over.
	Role  RoleName
	Cause DeathCause
}

// Snapshot is a consistent public view of a session.
type Snapshot struct {
	ID             string
	ChatID         int64
	Phase          Phase
	Round          int
	Deadline       time.Time
	Players        []PlayerView
	PendingTrigger PlayerID
	Winner         Team
	Events         int
}

// Snapshot returns the public state of the session.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.locks.WithLockContext(ctx, s.id, s.cfg.LockTimeout, func() error {
		snap = Snapshot{
			ID:             s.id,
			ChatID:         s.chatID,
			Phase:          s.phase,
			Round:          s.round,
			Deadline:       s.deadline,
			PendingTrigger: s.pending,
			Winner:         s.winner,
			Events:         len(s.events),
		}
		for _, p := range s.roster.Players() {
			v := PlayerView{Seat: p.Seat, ID: p.ID, Name: p.Name, Alive: p.Alive, Simulated: p.Simulated}
			if !p.Alive || s.phase == PhaseEnded {
				v.Role = p.Role.Name
				v.Cause = p.Cause
			}
			snap.Players = append(snap.Players, v)
		}
		return nil
	})
	return snap, err
}

// EventsFor returns the logged events visible to player, oldest first.
func (s *Session) EventsFor(ctx context.Context, player PlayerID) ([]Event, error) {
	var out []Event
	err := s.locks.WithLockContext(ctx, s.id, s.cfg.LockTimeout, func() error {
		for _, ev := range s.events {
			if ev.VisibleTo(player) {
				out = append(out, ev)
			}
		}
		return nil
	})
	return out, err
}
