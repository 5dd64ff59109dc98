package monopoly

// Rent returns what a visitor owes on space index for the given dice total.
// Unowned and mortgaged spaces charge nothing.
func (g *Game) Rent(index, diceSum int) int {
	if index < 0 || index >= len(g.Board) {
		return 0
	}
	s := &g.Board[index]
	if !s.Owned() || s.Mortgaged {
		return 0
	}
	switch s.Type {
	case SpaceUtility:
		if g.countOwned(s.Owner, SpaceUtility) >= 2 {
			return diceSum * 10
		}
		return diceSum * 4
	case SpaceStation:
		n := g.countOwned(s.Owner, SpaceStation)
		if n < 1 {
			return 0
		}
		if n > len(s.Rent) {
			n = len(s.Rent)
		}
		return s.Rent[n-1]
	case SpaceProperty:
		switch {
		case s.Hotels > 0:
			return s.Rent[5]
		case s.Houses > 0:
			return s.Rent[s.Houses]
		case g.ownsGroup(s.Owner, s.Group):
			return 2 * s.Rent[0]
		default:
			return s.Rent[0]
		}
	}
	return 0
}

func (g *Game) countOwned(owner string, t SpaceType) int {
	n := 0
	for i := range g.Board {
		if g.Board[i].Type == t && g.Board[i].Owner == owner {
			n++
		}
	}
	return n
}

// ownsGroup reports whether owner holds every space of the colour group.
func (g *Game) ownsGroup(owner, group string) bool {
	members := GroupMembers(group)
	if owner == "" || len(members) == 0 {
		return false
	}
	for _, idx := range members {
		if g.Board[idx].Owner != owner {
			return false
		}
	}
	return true
}

func (g *Game) groupHasBuildings(group string) bool {
	for _, idx := range GroupMembers(group) {
		if g.Board[idx].HasBuildings() {
			return true
		}
	}
	return false
}
