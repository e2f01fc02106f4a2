package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"werewolf-bot/internal/game/werewolf"
)

var roleNames = map[werewolf.RoleName]string{
	werewolf.RoleWerewolf: "狼人",
	werewolf.RoleVillager: "村民",
	werewolf.RoleSeer:     "预言家",
	werewolf.RoleDoctor:   "医生",
	werewolf.RoleWitch:    "女巫",
	werewolf.RoleCupid:    "丘比特",
	werewolf.RoleHunter:   "猎人",
	werewolf.RoleElder:    "长老",
}

var teamNames = map[werewolf.Team]string{
	werewolf.TeamVillage:  "好人",
	werewolf.TeamWerewolf: "狼人",
	werewolf.TeamLovers:   "情侣",
}

var causeNames = map[werewolf.DeathCause]string{
	werewolf.CauseWerewolf:   "被狼人杀害",
	werewolf.CausePoison:     "被毒杀",
	werewolf.CauseLynch:      "被放逐",
	werewolf.CauseHeartbreak: "殉情",
	werewolf.CauseShot:       "被猎人带走",
}

// actionCommands is the command each night action is submitted with.
var actionCommands = map[werewolf.ActionKind]string{
	werewolf.ActionKill:        "/ww_kill <座位号>",
	werewolf.ActionInvestigate: "/ww_see <座位号>",
	werewolf.ActionProtect:     "/ww_save <座位号>",
	werewolf.ActionPoison:      "/ww_poison <座位号>",
	werewolf.ActionPair:        "/ww_pair <座位号> <座位号>",
}

// RoleLabel returns the display name of a role.
func RoleLabel(r werewolf.RoleName) string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return string(r)
}

// TeamLabel returns the display name of a team.
func TeamLabel(t werewolf.Team) string {
	if name, ok := teamNames[t]; ok {
		return name
	}
	return t.String()
}

// SeatBook resolves player ids to seats and names for rendering.
type SeatBook map[werewolf.PlayerID]werewolf.PlayerView

// NewSeatBook indexes a snapshot's players.
func NewSeatBook(snap werewolf.Snapshot) SeatBook {
	book := make(SeatBook, len(snap.Players))
	for _, p := range snap.Players {
		book[p.ID] = p
	}
	return book
}

// Label renders a player as "3号 alice".
func (b SeatBook) Label(id werewolf.PlayerID) string {
	p, ok := b[id]
	if !ok {
		return fmt.Sprintf("玩家%d", id)
	}
	name := p.Name
	if name == "" {
		name = fmt.Sprintf("玩家%d", p.Seat)
	}
	return fmt.Sprintf("%d号 %s", p.Seat, name)
}

func (b SeatBook) labels(ids []werewolf.PlayerID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, b.Label(id))
	}
	return strings.Join(parts, "、")
}

func remaining(ev werewolf.Event) string {
	if ev.Deadline.IsZero() {
		return ""
	}
	return ev.Deadline.Sub(ev.At).Round(time.Second).String()
}

// Render turns an engine event into chat text. It returns "" for events
// that have no chat representation.
func Render(ev werewolf.Event, book SeatBook) string {
	switch ev.Kind {
	case werewolf.EventPhaseStarted:
		return renderPhase(ev)
	case werewolf.EventRoleReveal:
		return fmt.Sprintf("🎭 你的身份：%s（%s阵营）", RoleLabel(ev.Role), TeamLabel(ev.Team))
	case werewolf.EventTeamReveal:
		return "🐺 你的狼人同伴：" + book.labels(ev.Candidates)
	case werewolf.EventActionPrompt:
		cmd, ok := actionCommands[ev.Action]
		if !ok {
			return ""
		}
		return fmt.Sprintf("🌙 第%d夜，%s请行动（%s内）：\n%s\n不行动请发送 /ww_pass\n可选：%s",
			ev.Round, RoleLabel(ev.Role), remaining(ev), cmd, book.labels(ev.Candidates))
	case werewolf.EventActionAccepted:
		return "✅ 已收到"
	case werewolf.EventPaired:
		return fmt.Sprintf("💘 %s 与 %s 成为了情侣，一人死去另一人将殉情", book.Label(ev.Subject), book.Label(ev.Second))
	case werewolf.EventNoAction:
		return fmt.Sprintf("⚠️ %s 今夜无法行动", RoleLabel(ev.Role))
	case werewolf.EventInvestigation:
		verdict := "好人"
		if ev.Team == werewolf.TeamWerewolf {
			verdict = "狼人"
		}
		return fmt.Sprintf("🔮 %s 的身份是：%s", book.Label(ev.Subject), verdict)
	case werewolf.EventSurvived:
		if ev.Detail == "immunity" {
			return "🛡 长老挺过了一次袭击"
		}
		return "🩺 昨夜有人遇袭，但被救了回来"
	case werewolf.EventDeath:
		cause, ok := causeNames[ev.Cause]
		if !ok {
			cause = "死亡"
		}
		return fmt.Sprintf("💀 %s %s，身份是%s", book.Label(ev.Subject), cause, RoleLabel(ev.Role))
	case werewolf.EventNoDeaths:
		return "🌅 昨夜是平安夜"
	case werewolf.EventVotePrompt:
		return fmt.Sprintf("🗳 请投票（%s内）：/ww_vote <座位号>，弃票 /ww_abstain\n可选：%s", remaining(ev), book.labels(ev.Candidates))
	case werewolf.EventVoteResult:
		return renderTally(ev, book)
	case werewolf.EventLynch:
		msg := fmt.Sprintf("⚖️ %s 被放逐", book.Label(ev.Subject))
		if ev.Detail != "" {
			msg += "（平票随机决定）"
		}
		return msg
	case werewolf.EventNoLynch:
		switch ev.NoLynch {
		case werewolf.NoLynchNoQuorum:
			return "🤷 投票人数不足，今天无人被放逐"
		case werewolf.NoLynchTie:
			return "🤝 平票，今天无人被放逐"
		default:
			return "🤷 无人投票，今天无人被放逐"
		}
	case werewolf.EventPowersRevoked:
		return "😱 长老被放逐，好人阵营的神职失去了能力：" + book.labels(ev.Candidates)
	case werewolf.EventTriggerPrompt:
		return fmt.Sprintf("🔫 你倒下了，可以开枪带走一人（%s内）：/ww_shoot <座位号>\n可选：%s", remaining(ev), book.labels(ev.Candidates))
	case werewolf.EventTriggerForfeited:
		return fmt.Sprintf("🔫 %s 放弃了开枪", book.Label(ev.Subject))
	case werewolf.EventGameOver:
		return renderGameOver(ev)
	case werewolf.EventCancelled:
		if ev.Detail == "" {
			return "🛑 游戏已取消"
		}
		return "🛑 游戏已取消：" + ev.Detail
	}
	return ""
}

func renderPhase(ev werewolf.Event) string {
	switch ev.Phase {
	case werewolf.PhaseLobby:
		return fmt.Sprintf("🐺 狼人杀开始！身份已私聊发送，%s后入夜", remaining(ev))
	case werewolf.PhaseNight:
		return fmt.Sprintf("🌙 第%d夜降临，请闭眼（%s）", ev.Round, remaining(ev))
	case werewolf.PhaseDayDiscuss:
		return fmt.Sprintf("☀️ 天亮了，第%d天自由讨论（%s）", ev.Round-1, remaining(ev))
	case werewolf.PhaseDayVote:
		return "🗳 讨论结束，开始投票"
	}
	return ""
}

func renderTally(ev werewolf.Event, book SeatBook) string {
	if len(ev.Tally) == 0 {
		return "📊 本轮无人投票"
	}
	ids := make([]werewolf.PlayerID, 0, len(ev.Tally))
	for id := range ev.Tally {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ev.Tally[ids[i]] != ev.Tally[ids[j]] {
			return ev.Tally[ids[i]] > ev.Tally[ids[j]]
		}
		return book[ids[i]].Seat < book[ids[j]].Seat
	})

	var sb strings.Builder
	sb.WriteString("📊 投票结果\n")
	for _, id := range ids {
		fmt.Fprintf(&sb, "%s：%d票\n", book.Label(id), ev.Tally[id])
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderGameOver(ev werewolf.Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏁 游戏结束，%s阵营获胜！\n━━━━━━━━━━━━━━━\n", TeamLabel(ev.Team))
	for _, p := range ev.Roster {
		status := "存活"
		if !p.Alive {
			status = "出局"
		}
		mark := ""
		if p.Won {
			mark = " 🏆"
		}
		fmt.Fprintf(&sb, "%d号 %s：%s（%s）%s\n", p.Seat, p.Name, RoleLabel(p.Role), status, mark)
	}
	sb.WriteString("━━━━━━━━━━━━━━━")
	return sb.String()
}
