// Package bot wires the werewolf engine to Telegram: it registers the
// command handlers and delivers engine events to chats.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/config"
	"werewolf-bot/internal/game/werewolf"
	"werewolf-bot/internal/handler"
	"werewolf-bot/internal/lobby"
	"werewolf-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	manager  *werewolf.Manager
	access   *PrivateAccess
	werewolf *handler.WerewolfHandler
}

// Dependencies holds what the bot handlers need.
type Dependencies struct {
	Config  *config.Config
	Manager *werewolf.Manager
	Lobby   *lobby.Store
	Stats   *service.StatsService
}

// NewTeleBot creates the underlying telebot client. It is built before
// the engine because the transport sends through it.
func NewTeleBot(cfg *config.Config) (*tele.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	teleBot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New registers middleware and handlers on teleBot.
func New(teleBot *tele.Bot, deps *Dependencies) *Bot {
	b := &Bot{
		bot:      teleBot,
		cfg:      deps.Config,
		manager:  deps.Manager,
		access:   NewPrivateAccess(),
		werewolf: handler.NewWerewolfHandler(deps.Config, deps.Manager, deps.Lobby, deps.Stats, recapLine),
	}
	b.registerMiddleware()
	b.registerHandlers()
	return b
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.access))
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	h := b.werewolf

	b.bot.Handle("/start", b.handleStart)

	// Lobby
	b.bot.Handle("/ww_join", h.HandleJoin)
	b.bot.Handle("/ww_leave", h.HandleLeave)
	b.bot.Handle("/ww_start", h.HandleStart)
	b.bot.Handle("/ww_cancel", h.HandleCancel)

	// Night
	b.bot.Handle("/ww_kill", h.HandleKill)
	b.bot.Handle("/ww_see", h.HandleSee)
	b.bot.Handle("/ww_save", h.HandleSave)
	b.bot.Handle("/ww_poison", h.HandlePoison)
	b.bot.Handle("/ww_pair", h.HandlePair)
	b.bot.Handle("/ww_pass", h.HandlePass)

	// Day
	b.bot.Handle("/ww_vote", h.HandleVote)
	b.bot.Handle("/ww_abstain", h.HandleAbstain)
	b.bot.Handle("/ww_shoot", h.HandleShoot)

	b.bot.Handle("/ww_players", h.HandlePlayers)
	b.bot.Handle("/ww_log", h.HandleLog)
	b.bot.Handle("/ww_stats", h.HandleStats)
	b.bot.Handle("/ww_history", h.HandleHistory)
	b.bot.Handle(tele.OnCallback, h.HandleCallback)

	admin := b.bot.Group()
	admin.Use(AdminMiddleware(b.cfg))
	admin.Handle("/ww_active", b.handleActive)
}

func (b *Bot) handleStart(c tele.Context) error {
	chat := c.Chat()
	if chat != nil && chat.Type == tele.ChatPrivate {
		return c.Send("🐺 已就绪。游戏中的身份和夜间行动会在这里私聊发送给你。")
	}
	return c.Reply(
		"🐺 狼人杀\n" +
			"/ww_join 报名，/ww_start 开始\n" +
			"/ww_history 查看最近对局\n" +
			"报名前请先私聊机器人发送 /start")
}

// recapLine renders a logged event for /ww_log.
func recapLine(ev werewolf.Event, snap werewolf.Snapshot) string {
	return Render(ev, NewSeatBook(snap))
}

func (b *Bot) handleActive(c tele.Context) error {
	return c.Reply(fmt.Sprintf("📋 进行中的游戏：%d 局", b.manager.Active()))
}

// Start starts long polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops polling.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
