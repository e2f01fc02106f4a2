// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/config"
	"werewolf-bot/internal/game/werewolf"
	"werewolf-bot/internal/lobby"
	"werewolf-bot/internal/pkg/lock"
	"werewolf-bot/internal/service"
)

// Reply texts shared by several commands.
const (
	msgGroupOnly    = "❌ 请在群组中使用此命令"
	msgNoGame       = "❌ 你当前不在任何游戏中"
	msgNoChatGame   = "❌ 本群当前没有进行中的游戏"
	msgInternal     = "❌ 发生内部错误，请稍后重试"
	msgSeatRequired = "❌ 请提供座位号，例如 %s"
)

// WerewolfHandler handles the /ww_* commands.
type WerewolfHandler struct {
	cfg     *config.Config
	manager *werewolf.Manager
	lobbies *lobby.Store
	stats   *service.StatsService
	render  EventRenderer
}

// NewWerewolfHandler creates a new WerewolfHandler. render formats the
// /ww_log recap.
func NewWerewolfHandler(cfg *config.Config, manager *werewolf.Manager, lobbies *lobby.Store, stats *service.StatsService, render EventRenderer) *WerewolfHandler {
	return &WerewolfHandler{
		cfg:     cfg,
		manager: manager,
		lobbies: lobbies,
		stats:   stats,
		render:  render,
	}
}

func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("User%d", u.ID)
}

func isGroup(c tele.Context) bool {
	chat := c.Chat()
	return chat != nil && (chat.Type == tele.ChatGroup || chat.Type == tele.ChatSuperGroup)
}

// HandleJoin handles /ww_join.
func (h *WerewolfHandler) HandleJoin(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if !isGroup(c) {
		return c.Reply(msgGroupOnly)
	}
	if _, playing := h.manager.SessionForPlayer(werewolf.PlayerID(sender.ID)); playing {
		return c.Reply("❌ 你已经在一局游戏中了")
	}

	size, err := h.lobbies.Join(c.Chat().ID, werewolf.Member{
		ID:   werewolf.PlayerID(sender.ID),
		Name: displayName(sender),
	})
	switch {
	case errors.Is(err, lobby.ErrAlreadyJoined):
		return c.Reply("ℹ️ 你已经报名了")
	case errors.Is(err, lobby.ErrLobbyFull):
		return c.Reply("❌ 报名人数已满")
	case err != nil:
		return c.Reply(msgInternal)
	}

	return c.Reply(fmt.Sprintf(
		"✅ %s 已报名（%d人）\n"+
			"人数不足 %d 时由机器人补位，/ww_start 开始游戏\n"+
			"请先私聊机器人发送 /start，以便接收身份",
		displayName(sender), size, h.manager.Config().TargetPlayers,
	))
}

// HandleLeave handles /ww_leave.
func (h *WerewolfHandler) HandleLeave(c tele.Context) error {
	sender := c.Sender()
	if sender == nil || !isGroup(c) {
		return nil
	}
	size, err := h.lobbies.Leave(c.Chat().ID, werewolf.PlayerID(sender.ID))
	if errors.Is(err, lobby.ErrNotJoined) {
		return c.Reply("ℹ️ 你还没有报名")
	}
	return c.Reply(fmt.Sprintf("👋 %s 已退出报名（剩余%d人）", displayName(sender), size))
}

// HandleStart handles /ww_start. The chat's join list becomes the roster.
func (h *WerewolfHandler) HandleStart(c tele.Context) error {
	if !isGroup(c) {
		return c.Reply(msgGroupOnly)
	}
	chatID := c.Chat().ID

	id, err := h.manager.StartFromRoster(context.Background(), chatID, werewolf.Config{})
	if err != nil {
		if errors.Is(err, lobby.ErrEmptyLobby) {
			return c.Reply("❌ 还没有人报名，发送 /ww_join 报名")
		}
		return c.Reply(errorMessage(err))
	}
	h.lobbies.Clear(chatID)
	log.Info().Str("session_id", id).Int64("chat_id", chatID).Msg("Werewolf game started")
	return nil
}

// HandleCancel handles /ww_cancel. Admins and players of the game may
// cancel it.
func (h *WerewolfHandler) HandleCancel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil || !isGroup(c) {
		return nil
	}
	id, ok := h.manager.SessionForChat(c.Chat().ID)
	if !ok {
		return c.Reply(msgNoChatGame)
	}
	own, _ := h.manager.SessionForPlayer(werewolf.PlayerID(sender.ID))
	if own != id && !h.cfg.IsAdmin(sender.ID) {
		return c.Reply("❌ 只有本局玩家或管理员可以取消游戏")
	}
	if err := h.manager.CancelSession(context.Background(), id, "由 "+displayName(sender)+" 取消"); err != nil {
		return c.Reply(errorMessage(err))
	}
	return nil
}

// HandlePlayers handles /ww_players, listing the seats of the current
// game in this chat, or of the sender's game in a private chat. A group
// without a game gets the size of its join list.
func (h *WerewolfHandler) HandlePlayers(c tele.Context) error {
	var (
		id string
		ok bool
	)
	if isGroup(c) {
		id, ok = h.manager.SessionForChat(c.Chat().ID)
		if size := h.lobbies.Size(c.Chat().ID); !ok && size > 0 {
			return c.Reply(fmt.Sprintf("📝 本群报名中：%d人，/ww_start 开始游戏", size))
		}
	} else if sender := c.Sender(); sender != nil {
		id, ok = h.manager.SessionForPlayer(werewolf.PlayerID(sender.ID))
	}
	if !ok {
		return c.Reply(msgNoChatGame)
	}
	snap, err := h.manager.Snapshot(context.Background(), id)
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	return c.Reply(formatPlayers(snap))
}

// HandleStats handles /ww_stats.
func (h *WerewolfHandler) HandleStats(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := context.Background()

	top, err := h.stats.TopPlayers(ctx, service.DefaultTopLimit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load leaderboard")
		return c.Reply("❌ 获取排行榜失败，请稍后重试")
	}
	mine, err := h.stats.PlayerStats(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load player stats")
		return c.Reply("❌ 获取战绩失败，请稍后重试")
	}

	var sb strings.Builder
	sb.WriteString("🏆 狼人杀胜场榜\n━━━━━━━━━━━━━━━\n")
	if len(top) == 0 {
		sb.WriteString("暂无数据\n")
	}
	medals := []string{"🥇", "🥈", "🥉"}
	for i, s := range top {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&sb, "%s %s：%d胜 / %d局\n", rank, s.Username, s.Wins, s.Games)
	}
	fmt.Fprintf(&sb, "━━━━━━━━━━━━━━━\n你的战绩：%d胜 / %d局，胜率 %.0f%%，存活 %d 局",
		mine.Wins, mine.Games, mine.WinRate()*100, mine.Survived)
	return c.Reply(sb.String())
}

var errBadSeat = errors.New("bad seat")

// parseSeats reads exactly n 1-based seat numbers.
func parseSeats(args []string, n int) ([]int, error) {
	if len(args) < n {
		return nil, errBadSeat
	}
	seats := make([]int, n)
	for i := 0; i < n; i++ {
		seat, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(args[i]), "号"))
		if err != nil || seat < 1 {
			return nil, errBadSeat
		}
		seats[i] = seat
	}
	return seats, nil
}

func seatToID(snap werewolf.Snapshot, seat int) (werewolf.PlayerID, error) {
	for _, p := range snap.Players {
		if p.Seat == seat {
			return p.ID, nil
		}
	}
	return 0, werewolf.ErrInvalidTarget
}

func formatPlayers(snap werewolf.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 玩家列表（第%d轮）\n", snap.Round)
	for _, p := range snap.Players {
		status := "🟢"
		if !p.Alive {
			status = "💀"
		}
		line := fmt.Sprintf("%s %d号 %s", status, p.Seat, p.Name)
		if p.Role != "" {
			line += "（" + roleLabel(p.Role) + "）"
		}
		sb.WriteString(line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func roleLabel(r werewolf.RoleName) string {
	switch r {
	case werewolf.RoleWerewolf:
		return "狼人"
	case werewolf.RoleSeer:
		return "预言家"
	case werewolf.RoleDoctor:
		return "医生"
	case werewolf.RoleWitch:
		return "女巫"
	case werewolf.RoleCupid:
		return "丘比特"
	case werewolf.RoleHunter:
		return "猎人"
	case werewolf.RoleElder:
		return "长老"
	default:
		return "村民"
	}
}

// errorMessage translates an engine error into a reply. Unknown errors
// are logged and reported generically.
func errorMessage(err error) string {
	rules := []struct {
		target error
		msg    string
	}{
		{werewolf.ErrSessionNotFound, "❌ 游戏已结束"},
		{werewolf.ErrSessionFinished, "❌ 游戏已结束"},
		{werewolf.ErrChatBusy, "❌ 本群已有一局游戏在进行"},
		{werewolf.ErrPlayerInGame, "❌ 有玩家正在其他游戏中"},
		{werewolf.ErrNotEnoughPlayers, "❌ 玩家人数不足"},
		{werewolf.ErrManagerShutdown, "❌ 机器人正在维护，暂时无法开局"},
		{werewolf.ErrWrongPhase, "❌ 现在不是这个行动的阶段"},
		{werewolf.ErrSubmissionClosed, "❌ 行动时间已过"},
		{werewolf.ErrPlayerDead, "❌ 目标或你已经出局"},
		{werewolf.ErrPowersRevoked, "❌ 你的能力已被剥夺"},
		{werewolf.ErrRoleMismatch, "❌ 你的身份不能执行这个行动"},
		{werewolf.ErrAbilityUsed, "❌ 这个能力已经用过了"},
		{werewolf.ErrPairingClosed, "❌ 只能在第一夜连情侣"},
		{werewolf.ErrSelfTarget, "❌ 不能选择自己"},
		{werewolf.ErrAllyTarget, "❌ 不能选择同伴"},
		{werewolf.ErrSamePairTarget, "❌ 请选择两个不同的玩家"},
		{werewolf.ErrInvalidTarget, "❌ 无效的座位号"},
		{werewolf.ErrUnknownPlayer, "❌ 你不在这局游戏中"},
		{werewolf.ErrNoPendingTrigger, "❌ 你现在不能开枪"},
		{lock.ErrLockTimeout, "⏳ 操作繁忙，请稍后重试"},
	}
	for _, r := range rules {
		if errors.Is(err, r.target) {
			return r.msg
		}
	}
	log.Error().Err(err).Msg("Unhandled werewolf error")
	return msgInternal
}
