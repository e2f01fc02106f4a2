package werewolf

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"werewolf-bot/internal/pkg/lock"
)

// Manager is the registry of running sessions. It routes submissions by
// session id, chat and player identity. A player takes part in at most
// one running session, and a chat hosts at most one.
type Manager struct {
	cfg   Config
	deps  Dependencies
	locks *lock.KeyLock[string]
	clock scheduler
	log   zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	byChat   map[int64]string
	byPlayer map[PlayerID]string
	closed   bool
}

// NewManager creates a Manager with cfg as the default session config.
func NewManager(cfg Config, deps Dependencies, logger zerolog.Logger) (*Manager, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Notifier == nil {
		return nil, errors.New("werewolf: notifier is required")
	}
	if deps.Muter == nil {
		deps.Muter = noopMuter{}
	}
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}
	if deps.Policy == nil {
		deps.Policy = HeuristicPolicy{}
	}
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		locks:    lock.New[string](),
		clock:    wallClock{},
		log:      logger.With().Str("component", "werewolf").Logger(),
		sessions: make(map[string]*Session),
		byChat:   make(map[int64]string),
		byPlayer: make(map[PlayerID]string),
	}, nil
}

// Config returns the default session configuration.
func (m *Manager) Config() Config { return m.cfg }

// CreateSession seats members, fills the table with simulated players up
// to cfg.TargetPlayers, deals roles and opens the lobby. Zero fields of
// cfg take the manager defaults.
func (m *Manager) CreateSession(ctx context.Context, chatID int64, members []Member, cfg Config) (string, error) {
	cfg = m.merge(cfg)
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	seated := make([]Member, 0, max(len(members), cfg.TargetPlayers))
	seen := make(map[PlayerID]bool, len(members))
	var humans []PlayerID
	for _, mem := range members {
		if seen[mem.ID] {
			continue
		}
		seen[mem.ID] = true
		seated = append(seated, mem)
		if !mem.Simulated {
			humans = append(humans, mem.ID)
		}
	}
	if len(humans) == 0 {
		return "", &ConfigurationError{Reason: fmt.Errorf("%w: no human players", ErrNotEnoughPlayers)}
	}
	for bot := 1; len(seated) < cfg.TargetPlayers; bot++ {
		id := PlayerID(-bot)
		if seen[id] {
			continue
		}
		seated = append(seated, Member{ID: id, Name: fmt.Sprintf("Bot %d", bot), Simulated: true})
	}
	if len(seated) < cfg.MinPlayers {
		return "", &ConfigurationError{Reason: fmt.Errorf("%w: %d of %d", ErrNotEnoughPlayers, len(seated), cfg.MinPlayers)}
	}

	seed := cfg.Seed
	if seed == 0 || seed == ClockSeed {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	roster, err := AssignRoles(seated, cfg.RoleCounts, cfg.Thresholds, rng)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	s := &Session{
		id:       id,
		chatID:   chatID,
		cfg:      cfg,
		log:      m.log.With().Str("session_id", id).Int64("chat_id", chatID).Logger(),
		rng:      rng,
		policy:   m.deps.Policy,
		locks:    m.locks,
		clock:    m.clock,
		notifier: m.deps.Notifier,
		muter:    m.deps.Muter,
		recorder: m.deps.Recorder,
		onClose:  m.remove,
		roster:   roster,
		humanIDs: humans,
		phase:    PhaseLobby,
	}

	if err := m.register(s); err != nil {
		return "", err
	}
	if err := s.start(ctx); err != nil {
		m.remove(s)
		return "", fmt.Errorf("start session: %w", err)
	}
	m.log.Info().Str("session_id", id).Int64("chat_id", chatID).Int64("seed", seed).Msg("Session created")
	return id, nil
}

// merge fills zero fields of cfg from the manager defaults. Explicit
// values such as TieBreakNone, NoQuorum and ClockSeed are kept.
func (m *Manager) merge(cfg Config) Config {
	d := m.cfg
	if cfg.TargetPlayers == 0 {
		cfg.TargetPlayers = d.TargetPlayers
	}
	if cfg.MinPlayers == 0 {
		cfg.MinPlayers = d.MinPlayers
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = d.Thresholds
	}
	if cfg.RoleCounts == nil {
		cfg.RoleCounts = d.RoleCounts
	}
	if cfg.NightDuration == 0 {
		cfg.NightDuration = d.NightDuration
	}
	if cfg.DiscussDuration == 0 {
		cfg.DiscussDuration = d.DiscussDuration
	}
	if cfg.VoteDuration == 0 {
		cfg.VoteDuration = d.VoteDuration
	}
	if cfg.TriggerWindow == 0 {
		cfg.TriggerWindow = d.TriggerWindow
	}
	if cfg.LobbyDuration == 0 {
		cfg.LobbyDuration = d.LobbyDuration
	}
	if cfg.BotLead == 0 {
		cfg.BotLead = d.BotLead
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = d.LockTimeout
	}
	if cfg.TieBreak == TieBreakDefault {
		cfg.TieBreak = d.TieBreak
	}
	if cfg.QuorumRatio == 0 {
		cfg.QuorumRatio = d.QuorumRatio
	}
	if cfg.Seed == 0 {
		cfg.Seed = d.Seed
	}
	return cfg
}

func (m *Manager) register(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerShutdown
	}
	if _, busy := m.byChat[s.chatID]; busy {
		return ErrChatBusy
	}
	for _, id := range s.humanIDs {
		if _, playing := m.byPlayer[id]; playing {
			return fmt.Errorf("%w: %d", ErrPlayerInGame, id)
		}
	}
	m.sessions[s.id] = s
	m.byChat[s.chatID] = s.id
	for _, id := range s.humanIDs {
		m.byPlayer[id] = s.id
	}
	return nil
}

// remove forgets s. It runs after the session has been released.
func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessions[s.id] != s {
		return
	}
	delete(m.sessions, s.id)
	if m.byChat[s.chatID] == s.id {
		delete(m.byChat, s.chatID)
	}
	for _, id := range s.humanIDs {
		if m.byPlayer[id] == s.id {
			delete(m.byPlayer, id)
		}
	}
	m.log.Debug().Str("session_id", s.id).Msg("Session removed")
}

// StartFromRoster creates a session from the members the roster source
// reports for chatID.
func (m *Manager) StartFromRoster(ctx context.Context, chatID int64, cfg Config) (string, error) {
	if m.deps.Roster == nil {
		return "", errors.New("werewolf: no roster source configured")
	}
	members, err := m.deps.Roster.Members(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("load roster: %w", err)
	}
	return m.CreateSession(ctx, chatID, members, cfg)
}

func (m *Manager) lookup(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// SubmitNightAction routes a night action from actor to session id.
func (m *Manager) SubmitNightAction(ctx context.Context, id string, actor PlayerID, a NightAction) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	a.Actor = actor
	return s.SubmitNightAction(ctx, a)
}

// SubmitVote routes a vote.
func (m *Manager) SubmitVote(ctx context.Context, id string, voter, target PlayerID) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	return s.SubmitVote(ctx, voter, target)
}

// SubmitAbstain routes an abstention.
func (m *Manager) SubmitAbstain(ctx context.Context, id string, voter PlayerID) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	return s.SubmitAbstain(ctx, voter)
}

// SubmitDeathTrigger routes a death-trigger response.
func (m *Manager) SubmitDeathTrigger(ctx context.Context, id string, actor, target PlayerID) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	return s.SubmitDeathTrigger(ctx, actor, target)
}

// CancelSession stops session id without recording a result.
func (m *Manager) CancelSession(ctx context.Context, id, reason string) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	return s.Cancel(ctx, reason)
}

// SessionForPlayer returns the running session player takes part in.
func (m *Manager) SessionForPlayer(player PlayerID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPlayer[player]
	return id, ok
}

// SessionForChat returns the running session of chatID.
func (m *Manager) SessionForChat(chatID int64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byChat[chatID]
	return id, ok
}

// Snapshot returns the public state of session id.
func (m *Manager) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	s, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(ctx)
}

// Events returns the events of session id visible to player.
func (m *Manager) Events(ctx context.Context, id string, player PlayerID) ([]Event, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.EventsFor(ctx, player)
}

// Active returns the number of running sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown cancels every running session and refuses new ones.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	m.closed = true
	running := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		running = append(running, s)
	}
	m.mu.Unlock()

	for _, s := range running {
		if err := s.Cancel(ctx, "shutdown"); err != nil && !errors.Is(err, ErrSessionFinished) {
			m.log.Warn().Err(err).Str("session_id", s.id).Msg("Failed to cancel session on shutdown")
		}
	}
	m.log.Info().Int("cancelled", len(running)).Msg("Werewolf manager stopped")
}
