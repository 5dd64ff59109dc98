package monopoly

import "monopoly/internal/game"

// BankruptcyResult reports a bankruptcy and whether it ended the game.
type BankruptcyResult struct {
	PlayerID   string `json:"playerId"`
	Creditor   string `json:"creditor,omitempty"`
	Money      int    `json:"money"`
	Properties []int  `json:"properties"`
	GameOver   bool   `json:"gameOver"`
	Winner     string `json:"winner,omitempty"`
	NextPlayer string `json:"nextPlayer,omitempty"`
	TurnNumber int    `json:"turnNumber"`
}

// DeclareBankruptcy retires playerID. With a creditor, all money, properties
// and jail cards pass to them; otherwise properties return to the bank with
// buildings destroyed and mortgages cleared.
func (g *Game) DeclareBankruptcy(playerID, creditorID string) (*BankruptcyResult, error) {
	p, err := g.requireSolvent(playerID)
	if err != nil {
		return nil, err
	}
	var creditor *Player
	if creditorID != "" {
		c, ok := g.Player(creditorID)
		if !ok {
			return nil, game.NotFoundf("creditor %s is not in this game", creditorID)
		}
		if c.ID == p.ID {
			return nil, game.Validationf("cannot be your own creditor")
		}
		if c.Bankrupt {
			return nil, game.StateConflictf("creditor %s is bankrupt", c.Name)
		}
		creditor = c
	}
	return g.bankrupt(p, creditor), nil
}

func (g *Game) bankrupt(p *Player, creditor *Player) *BankruptcyResult {
	res := &BankruptcyResult{
		PlayerID:   p.ID,
		Money:      p.Money,
		Properties: append([]int{}, p.Properties...),
	}
	wasCurrent := g.CurrentPlayer() == p.ID

	if creditor != nil {
		res.Creditor = creditor.ID
		creditor.credit(p.Money)
		creditor.JailCards += p.JailCards
		for _, idx := range p.Properties {
			g.Board[idx].Owner = creditor.ID
			creditor.addProperty(idx)
		}
	} else {
		for _, idx := range p.Properties {
			s := &g.Board[idx]
			g.AvailableHouses += s.Houses
			g.AvailableHotels += s.Hotels
			s.clear()
		}
	}
	p.Money = 0
	p.Properties = []int{}
	p.JailCards = 0
	p.InJail = false
	p.JailTurns = 0
	p.Bankrupt = true
	p.BankruptTurn = g.TurnNumber
	g.recordAt(NoSpace, Record{Type: RecBankruptcy, PlayerID: p.ID, Target: res.Creditor, Amount: res.Money})

	g.dropTradesFor(p.ID)
	g.dropBidsFor(p.ID)

	if left := g.solvent(); len(left) == 1 {
		g.finish(left[0])
		res.GameOver = true
		res.Winner = g.Winner
	} else if wasCurrent {
		g.nextTurn()
	}
	res.NextPlayer = g.CurrentPlayer()
	res.TurnNumber = g.TurnNumber
	return res
}

func (g *Game) finish(winner *Player) {
	g.Status = StatusFinished
	g.Winner = winner.ID
	g.Auction = nil
	g.Trades = []*Trade{}
	g.PendingPurchase = NoSpace
	g.CanRollAgain = false
	for i, p := range g.Players {
		if p.ID == winner.ID {
			g.Current = i
		}
	}
	g.record(Record{Type: RecGameEnd, PlayerID: winner.ID})
}
