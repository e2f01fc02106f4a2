package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/game/werewolf"
)

// CallbackPrefix marks inline button data owned by the werewolf handler.
const CallbackPrefix = "ww_"

// EncodeCallback encodes an action and its seat, if any, into button
// data such as "ww_vote_3".
func EncodeCallback(action string, seat int) string {
	if seat > 0 {
		return CallbackPrefix + action + "_" + strconv.Itoa(seat)
	}
	return CallbackPrefix + action
}

// DecodeCallback is the inverse of EncodeCallback. ok is false for data
// that is not ours or is malformed.
func DecodeCallback(data string) (action string, seat int, ok bool) {
	data = strings.TrimPrefix(data, "\f")
	if !strings.HasPrefix(data, CallbackPrefix) {
		return "", 0, false
	}
	parts := strings.SplitN(strings.TrimPrefix(data, CallbackPrefix), "_", 2)
	spec, known := actions[parts[0]]
	if !known {
		return "", 0, false
	}
	if len(parts) == 1 {
		return parts[0], 0, spec.seats == 0
	}
	seat, err := strconv.Atoi(parts[1])
	if err != nil || seat < 1 || spec.seats != 1 {
		return "", 0, false
	}
	return parts[0], seat, true
}

// HandleCallback handles the inline buttons attached to prompts.
func (h *WerewolfHandler) HandleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil || cb.Sender == nil {
		return nil
	}

	action, seat, ok := DecodeCallback(cb.Data)
	if !ok {
		log.Debug().Str("data", cb.Data).Msg("Ignoring unknown callback")
		return c.Respond(&tele.CallbackResponse{Text: "❌ 无效的按钮"})
	}

	var seats []int
	if seat > 0 {
		seats = []int{seat}
	}
	msg := h.perform(context.Background(), werewolf.PlayerID(cb.Sender.ID), action, seats)
	if msg == "" {
		msg = "✅ 已收到"
	}
	return c.Respond(&tele.CallbackResponse{Text: msg})
}
