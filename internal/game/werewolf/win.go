package werewolf

// EvaluateWin checks the terminal conditions in order: the linked lovers
// are the last two alive, no werewolf is alive (village), werewolves
// match or outnumber everyone else (werewolves).
func EvaluateWin(r *Roster) (Team, bool) {
	alive := r.Alive()
	if len(alive) == 2 && r.Linked(alive[0].ID, alive[1].ID, LinkLovers) {
		return TeamLovers, true
	}

	wolves := 0
	for _, p := range alive {
		if p.Team() == TeamWerewolf {
			wolves++
		}
	}
	if wolves == 0 {
		return TeamVillage, true
	}
	if wolves >= len(alive)-wolves {
		return TeamWerewolf, true
	}
	return 0, false
}
