package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/game/werewolf"
)

// Action names shared by the /ww_* commands and the inline buttons.
const (
	ActKill    = "kill"
	ActSee     = "see"
	ActSave    = "save"
	ActPoison  = "poison"
	ActPair    = "pair"
	ActPass    = "pass"
	ActVote    = "vote"
	ActAbstain = "abstain"
	ActShoot   = "shoot"
)

type actionSpec struct {
	seats int
	usage string
	night werewolf.ActionKind
}

var actions = map[string]actionSpec{
	ActKill:    {seats: 1, usage: "/ww_kill 3", night: werewolf.ActionKill},
	ActSee:     {seats: 1, usage: "/ww_see 3", night: werewolf.ActionInvestigate},
	ActSave:    {seats: 1, usage: "/ww_save 3", night: werewolf.ActionProtect},
	ActPoison:  {seats: 1, usage: "/ww_poison 3", night: werewolf.ActionPoison},
	ActPair:    {seats: 2, usage: "/ww_pair 2 5", night: werewolf.ActionPair},
	ActPass:    {night: werewolf.ActionPass},
	ActVote:    {seats: 1, usage: "/ww_vote 3"},
	ActAbstain: {},
	ActShoot:   {seats: 1, usage: "/ww_shoot 3"},
}

// HandleKill handles /ww_kill <seat>.
func (h *WerewolfHandler) HandleKill(c tele.Context) error { return h.command(c, ActKill) }

// HandleSee handles /ww_see <seat>.
func (h *WerewolfHandler) HandleSee(c tele.Context) error { return h.command(c, ActSee) }

// HandleSave handles /ww_save <seat>.
func (h *WerewolfHandler) HandleSave(c tele.Context) error { return h.command(c, ActSave) }

// HandlePoison handles /ww_poison <seat>.
func (h *WerewolfHandler) HandlePoison(c tele.Context) error { return h.command(c, ActPoison) }

// HandlePair handles /ww_pair <seat> <seat>.
func (h *WerewolfHandler) HandlePair(c tele.Context) error { return h.command(c, ActPair) }

// HandlePass handles /ww_pass.
func (h *WerewolfHandler) HandlePass(c tele.Context) error { return h.command(c, ActPass) }

// HandleVote handles /ww_vote <seat>.
func (h *WerewolfHandler) HandleVote(c tele.Context) error { return h.command(c, ActVote) }

// HandleAbstain handles /ww_abstain.
func (h *WerewolfHandler) HandleAbstain(c tele.Context) error { return h.command(c, ActAbstain) }

// HandleShoot handles /ww_shoot <seat>.
func (h *WerewolfHandler) HandleShoot(c tele.Context) error { return h.command(c, ActShoot) }

func (h *WerewolfHandler) command(c tele.Context, act string) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	spec := actions[act]
	seats, err := parseSeats(c.Args(), spec.seats)
	if err != nil {
		if spec.seats == 2 {
			return c.Reply("❌ 请提供两个座位号，例如 " + spec.usage)
		}
		return c.Reply(fmt.Sprintf(msgSeatRequired, spec.usage))
	}
	if msg := h.perform(context.Background(), werewolf.PlayerID(sender.ID), act, seats); msg != "" {
		return c.Reply(msg)
	}
	return nil
}

// perform submits act for player in their running game. It returns the
// reply for a rejected submission, or "" when the engine accepted it.
func (h *WerewolfHandler) perform(ctx context.Context, player werewolf.PlayerID, act string, seats []int) string {
	spec, ok := actions[act]
	if !ok {
		return "❌ 未知操作"
	}
	id, ok := h.manager.SessionForPlayer(player)
	if !ok {
		return msgNoGame
	}

	var targets []werewolf.PlayerID
	if len(seats) > 0 {
		snap, err := h.manager.Snapshot(ctx, id)
		if err != nil {
			return errorMessage(err)
		}
		for _, seat := range seats {
			target, err := seatToID(snap, seat)
			if err != nil {
				return errorMessage(err)
			}
			targets = append(targets, target)
		}
	}

	var err error
	switch act {
	case ActVote:
		err = h.manager.SubmitVote(ctx, id, player, targets[0])
	case ActAbstain:
		err = h.manager.SubmitAbstain(ctx, id, player)
	case ActShoot:
		err = h.manager.SubmitDeathTrigger(ctx, id, player, targets[0])
	default:
		a := werewolf.NightAction{Kind: spec.night}
		if len(targets) > 0 {
			a.Target = targets[0]
		}
		if len(targets) > 1 {
			a.Second = targets[1]
		}
		err = h.manager.SubmitNightAction(ctx, id, player, a)
	}
	if err != nil {
		return errorMessage(err)
	}
	return ""
}
