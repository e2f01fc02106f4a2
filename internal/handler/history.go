package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/game/werewolf"
)

// Sizes of the /ww_history and /ww_log replies.
const (
	historyLimit = 5
	recapLimit   = 20
)

// EventRenderer turns a logged event into chat text. An empty string
// leaves the event out.
type EventRenderer func(ev werewolf.Event, snap werewolf.Snapshot) string

var winnerLabels = map[string]string{
	werewolf.TeamVillage.String():  "好人胜利",
	werewolf.TeamWerewolf.String(): "狼人胜利",
	werewolf.TeamLovers.String():   "情侣胜利",
}

// recapSkips are events that only make sense while they are live.
var recapSkips = map[werewolf.EventKind]bool{
	werewolf.EventActionPrompt:   true,
	werewolf.EventVotePrompt:     true,
	werewolf.EventTriggerPrompt:  true,
	werewolf.EventActionAccepted: true,
}

// HandleHistory handles /ww_history, listing the chat's latest finished
// games.
func (h *WerewolfHandler) HandleHistory(c tele.Context) error {
	if !isGroup(c) {
		return c.Reply(msgGroupOnly)
	}
	chatID := c.Chat().ID

	games, err := h.stats.RecentGames(context.Background(), chatID, historyLimit)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to load game history")
		return c.Reply("❌ 获取对局记录失败，请稍后重试")
	}
	if len(games) == 0 {
		return c.Reply("📜 本群还没有完成的对局")
	}

	var sb strings.Builder
	sb.WriteString("📜 最近对局\n━━━━━━━━━━━━━━━\n")
	for _, g := range games {
		winner, ok := winnerLabels[g.Winner]
		if !ok {
			winner = g.Winner
		}
		fmt.Fprintf(&sb, "%s %s · %d轮 · %d人\n", g.EndedAt.Local().Format("01-02 15:04"), winner, g.Rounds, g.Players)
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}

// HandleLog handles /ww_log, replaying in private what the sender has
// seen of the current game.
func (h *WerewolfHandler) HandleLog(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if isGroup(c) {
		return c.Reply("❌ 请私聊机器人使用此命令")
	}
	player := werewolf.PlayerID(sender.ID)
	id, ok := h.manager.SessionForPlayer(player)
	if !ok {
		return c.Reply(msgNoGame)
	}

	ctx := context.Background()
	events, err := h.manager.Events(ctx, id, player)
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	snap, err := h.manager.Snapshot(ctx, id)
	if err != nil {
		return c.Reply(errorMessage(err))
	}

	var lines []string
	for _, ev := range events {
		if recapSkips[ev.Kind] {
			continue
		}
		if text := h.render(ev, snap); text != "" {
			lines = append(lines, text)
		}
	}
	if len(lines) > recapLimit {
		lines = lines[len(lines)-recapLimit:]
	}
	if len(lines) == 0 {
		return c.Reply("📖 暂无记录")
	}
	return c.Reply("📖 本局回顾\n━━━━━━━━━━━━━━━\n" + strings.Join(lines, "\n"))
}
