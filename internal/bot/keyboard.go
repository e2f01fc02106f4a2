package bot

import (
	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/game/werewolf"
	"werewolf-bot/internal/handler"
)

// buttonsPerRow is the width of the seat grid.
const buttonsPerRow = 3

// promptActions maps single-target night actions onto button actions.
// Pairing takes two seats and is command-only.
var promptActions = map[werewolf.ActionKind]string{
	werewolf.ActionKill:        handler.ActKill,
	werewolf.ActionInvestigate: handler.ActSee,
	werewolf.ActionProtect:     handler.ActSave,
	werewolf.ActionPoison:      handler.ActPoison,
}

// Keyboard builds the inline seat buttons for a prompt. It returns nil
// for events that take no button input or when no seats are known.
func Keyboard(ev werewolf.Event, book SeatBook) *tele.ReplyMarkup {
	var (
		action string
		extra  tele.InlineButton
	)
	switch ev.Kind {
	case werewolf.EventVotePrompt:
		action = handler.ActVote
		extra = tele.InlineButton{Text: "弃票", Data: handler.EncodeCallback(handler.ActAbstain, 0)}
	case werewolf.EventActionPrompt:
		var ok bool
		if action, ok = promptActions[ev.Action]; !ok {
			return nil
		}
		extra = tele.InlineButton{Text: "不行动", Data: handler.EncodeCallback(handler.ActPass, 0)}
	case werewolf.EventTriggerPrompt:
		action = handler.ActShoot
	default:
		return nil
	}

	var (
		rows [][]tele.InlineButton
		row  []tele.InlineButton
	)
	for _, id := range ev.Candidates {
		p, ok := book[id]
		if !ok {
			continue
		}
		row = append(row, tele.InlineButton{
			Text: book.Label(id),
			Data: handler.EncodeCallback(action, p.Seat),
		})
		if len(row) == buttonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}
	if extra.Data != "" {
		rows = append(rows, []tele.InlineButton{extra})
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}
