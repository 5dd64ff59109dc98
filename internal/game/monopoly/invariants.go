package monopoly

import "fmt"

// checkInvariants verifies the ledger and building stock. A failure means a
// rule implementation is wrong, never that a player did something invalid.
func (g *Game) checkInvariants() error {
	houses, hotels := 0, 0
	for i := range g.Board {
		s := &g.Board[i]
		if s.Houses < 0 || s.Houses > 4 || s.Hotels < 0 || s.Hotels > 1 {
			return fmt.Errorf("space %d has %d houses and %d hotels", i, s.Houses, s.Hotels)
		}
		if s.Houses > 0 && s.Hotels > 0 {
			return fmt.Errorf("space %d has both houses and a hotel", i)
		}
		if s.HasBuildings() && s.Type != SpaceProperty {
			return fmt.Errorf("space %d is not a property but has buildings", i)
		}
		if !s.Owned() && (s.Mortgaged || s.HasBuildings()) {
			return fmt.Errorf("unowned space %d is mortgaged or built on", i)
		}
		if s.Owned() && !s.IsPurchasable() {
			return fmt.Errorf("space %d cannot be owned", i)
		}
		if s.Owned() {
			owner, ok := g.Player(s.Owner)
			if !ok || owner.Bankrupt || !owner.owns(i) {
				return fmt.Errorf("space %d owner %s does not hold it", i, s.Owner)
			}
		}
		houses += s.Houses
		hotels += s.Hotels
	}
	if g.AvailableHouses+houses != TotalHouses {
		return fmt.Errorf("house stock %d + built %d != %d", g.AvailableHouses, houses, TotalHouses)
	}
	if g.AvailableHotels+hotels != TotalHotels {
		return fmt.Errorf("hotel stock %d + built %d != %d", g.AvailableHotels, hotels, TotalHotels)
	}

	for _, p := range g.Players {
		if p.Money < 0 {
			return fmt.Errorf("player %s has negative money", p.ID)
		}
		if p.Position < 0 || p.Position >= BoardSize {
			return fmt.Errorf("player %s is off the board", p.ID)
		}
		if p.Bankrupt && (p.Money != 0 || len(p.Properties) != 0) {
			return fmt.Errorf("bankrupt player %s still holds assets", p.ID)
		}
		for _, idx := range p.Properties {
			if idx < 0 || idx >= len(g.Board) || g.Board[idx].Owner != p.ID {
				return fmt.Errorf("player %s lists space %d it does not own", p.ID, idx)
			}
		}
	}

	if g.Current < 0 || g.Current >= len(g.Players) {
		return fmt.Errorf("current player index %d out of range", g.Current)
	}
	if g.Status == StatusActive && g.Players[g.Current].Bankrupt {
		return fmt.Errorf("current player %s is bankrupt", g.Players[g.Current].ID)
	}
	if g.Status == StatusFinished && g.Winner == "" {
		return fmt.Errorf("finished game has no winner")
	}
	if g.FreeParkingPot < 0 {
		return fmt.Errorf("free parking pot is negative")
	}
	return nil
}

// clone deep-copies the mutable state so a failed action can be rolled back.
func (g *Game) clone() *Game {
	c := *g
	c.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		cp := p.clone()
		c.Players[i] = &cp
	}
	c.Board = make([]Space, len(g.Board))
	copy(c.Board, g.Board)
	c.Chance = g.Chance.clone()
	c.Community = g.Community.clone()
	c.Trades = make([]*Trade, len(g.Trades))
	for i, t := range g.Trades {
		ct := t.clone()
		c.Trades[i] = &ct
	}
	c.Auction = g.Auction.clone()
	// History is append-only, so the old slice header already excludes
	// anything appended after the copy.
	c.History = g.History
	return &c
}
