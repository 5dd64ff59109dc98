package monopoly

import "monopoly/internal/game"

// PropertyResult describes a change to one space and its owner's balance.
type PropertyResult struct {
	PlayerID string `json:"playerId"`
	Space    Space  `json:"space"`
	Amount   int    `json:"amount"`
	Money    int    `json:"money"`
}

func (g *Game) propertyResult(p *Player, s *Space, amount int) *PropertyResult {
	return &PropertyResult{PlayerID: p.ID, Space: *s, Amount: amount, Money: p.Money}
}

// Buy purchases the unowned space the current player is standing on.
func (g *Game) Buy(playerID string) (*PropertyResult, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return nil, err
	}
	s := &g.Board[p.Position]
	if !s.IsPurchasable() {
		return nil, game.Validationf("%s cannot be bought", s.Name)
	}
	if s.Owned() {
		return nil, game.StateConflictf("%s is already owned", s.Name)
	}
	if g.PendingPurchase != s.Index {
		return nil, game.StateConflictf("no purchase decision pending for %s", s.Name)
	}
	if err := p.debit(s.Price); err != nil {
		return nil, err
	}
	s.Owner = p.ID
	p.addProperty(s.Index)
	g.PendingPurchase = NoSpace
	g.recordAt(s.Index, Record{Type: RecPurchase, PlayerID: p.ID, Amount: s.Price})
	return g.propertyResult(p, s, s.Price), nil
}

// DeclinePurchase passes on the pending purchase. The space goes to auction
// when auctions are enabled; the returned auction is nil otherwise.
func (g *Game) DeclinePurchase(playerID string) (*Auction, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return nil, err
	}
	if g.PendingPurchase == NoSpace {
		return nil, game.StateConflictf("no purchase decision pending")
	}
	idx := g.PendingPurchase
	g.PendingPurchase = NoSpace
	g.recordAt(idx, Record{Type: RecDeclined, PlayerID: p.ID})
	if !g.Rules.AuctionEnabled {
		return nil, nil
	}
	return g.StartAuction(idx)
}

// ownedDeed returns the space if p owns it.
func (g *Game) ownedDeed(p *Player, index int) (*Space, error) {
	s, err := g.space(index)
	if err != nil {
		return nil, err
	}
	if !s.IsPurchasable() {
		return nil, game.Validationf("%s cannot be owned", s.Name)
	}
	if s.Owner != p.ID {
		return nil, game.Authorizationf("%s is not your property", s.Name)
	}
	return s, nil
}

// Build adds a house, or a hotel on top of four houses.
func (g *Game) Build(playerID string, index int) (*PropertyResult, error) {
	p, err := g.requireSolvent(playerID)
	if err != nil {
		return nil, err
	}
	s, err := g.ownedDeed(p, index)
	if err != nil {
		return nil, err
	}
	if s.Type != SpaceProperty {
		return nil, game.Validationf("cannot build on %s", s.Name)
	}
	if !g.ownsGroup(p.ID, s.Group) {
		return nil, game.Validationf("you must own every %s property to build", s.Group)
	}
	minLevel := 5
	for _, idx := range GroupMembers(s.Group) {
		m := &g.Board[idx]
		if m.Mortgaged {
			return nil, game.Validationf("%s is mortgaged", m.Name)
		}
		if lvl := m.buildingLevel(); lvl < minLevel {
			minLevel = lvl
		}
	}
	if s.Hotels > 0 {
		return nil, game.Validationf("%s already has a hotel", s.Name)
	}
	if s.buildingLevel() > minLevel {
		return nil, game.Validationf("build evenly across the %s group", s.Group)
	}

	hotel := s.Houses == 4
	if hotel && g.AvailableHotels == 0 {
		return nil, game.StateConflictf("the bank has no hotels left")
	}
	if !hotel && g.AvailableHouses == 0 {
		return nil, game.StateConflictf("the bank has no houses left")
	}
	if err := p.debit(s.BuildCost); err != nil {
		return nil, err
	}
	if hotel {
		s.Houses = 0
		s.Hotels = 1
		g.AvailableHouses += 4
		g.AvailableHotels--
	} else {
		s.Houses++
		g.AvailableHouses--
	}
	text := "house"
	if hotel {
		text = "hotel"
	}
	g.recordAt(s.Index, Record{Type: RecBuild, PlayerID: p.ID, Amount: s.BuildCost, Text: text})
	return g.propertyResult(p, s, s.BuildCost), nil
}

// SellBuilding sells one house (or breaks a hotel back into four houses) to
// the bank for half the build cost.
func (g *Game) SellBuilding(playerID string, index int) (*PropertyResult, error) {
	p, err := g.requireSolvent(playerID)
	if err != nil {
		return nil, err
	}
	s, err := g.ownedDeed(p, index)
	if err != nil {
		return nil, err
	}
	if !s.HasBuildings() {
		return nil, game.Validationf("%s has no buildings", s.Name)
	}
	maxLevel := 0
	for _, idx := range GroupMembers(s.Group) {
		if lvl := g.Board[idx].buildingLevel(); lvl > maxLevel {
			maxLevel = lvl
		}
	}
	if s.buildingLevel() < maxLevel {
		return nil, game.Validationf("sell evenly across the %s group", s.Group)
	}
	text := "house"
	if s.Hotels > 0 {
		if g.AvailableHouses < 4 {
			return nil, game.StateConflictf("the bank has too few houses to break up the hotel")
		}
		s.Hotels = 0
		s.Houses = 4
		g.AvailableHotels++
		g.AvailableHouses -= 4
		text = "hotel"
	} else {
		s.Houses--
		g.AvailableHouses++
	}
	refund := s.BuildCost / 2
	p.credit(refund)
	g.recordAt(s.Index, Record{Type: RecSellBuilding, PlayerID: p.ID, Amount: refund, Text: text})
	return g.propertyResult(p, s, refund), nil
}

// Mortgage pays the owner half the price. The colour group must be free of
// buildings.
func (g *Game) Mortgage(playerID string, index int) (*PropertyResult, error) {
	p, err := g.requireSolvent(playerID)
	if err != nil {
		return nil, err
	}
	s, err := g.ownedDeed(p, index)
	if err != nil {
		return nil, err
	}
	if s.Mortgaged {
		return nil, game.StateConflictf("%s is already mortgaged", s.Name)
	}
	if s.HasBuildings() || (s.Group != "" && g.groupHasBuildings(s.Group)) {
		return nil, game.Validationf("sell the buildings in the %s group first", s.Group)
	}
	value := s.MortgageValue()
	s.Mortgaged = true
	p.credit(value)
	g.recordAt(s.Index, Record{Type: RecMortgage, PlayerID: p.ID, Amount: value})
	return g.propertyResult(p, s, value), nil
}

// Unmortgage lifts a mortgage for floor(price * 0.55).
func (g *Game) Unmortgage(playerID string, index int) (*PropertyResult, error) {
	p, err := g.requireSolvent(playerID)
	if err != nil {
		return nil, err
	}
	s, err := g.ownedDeed(p, index)
	if err != nil {
		return nil, err
	}
	if !s.Mortgaged {
		return nil, game.StateConflictf("%s is not mortgaged", s.Name)
	}
	cost := s.UnmortgageCost()
	if err := p.debit(cost); err != nil {
		return nil, err
	}
	s.Mortgaged = false
	g.recordAt(s.Index, Record{Type: RecUnmortgage, PlayerID: p.ID, Amount: cost})
	return g.propertyResult(p, s, cost), nil
}
