package monopoly

import (
	"time"

	"monopoly/internal/game"
)

// Bid is one accepted auction bid.
type Bid struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
	At       int64  `json:"at"`
}

// Auction is the single open auction of a room. Deadlines are wall-clock
// milliseconds; nothing blocks waiting for them.
type Auction struct {
	Space         int    `json:"propertyIndex"`
	CurrentBid    int    `json:"currentBid"`
	CurrentBidder string `json:"currentBidder,omitempty"`
	Bids          []Bid  `json:"bids"`
	StartedAt     int64  `json:"startedAt"`
	Deadline      int64  `json:"deadline"`
	Active        bool   `json:"isActive"`
}

func (a *Auction) clone() *Auction {
	if a == nil {
		return nil
	}
	c := *a
	c.Bids = append([]Bid{}, a.Bids...)
	return &c
}

// AuctionResult reports how an auction closed.
type AuctionResult struct {
	Space  int    `json:"propertyIndex"`
	Sold   bool   `json:"sold"`
	Winner string `json:"winner,omitempty"`
	Amount int    `json:"amount,omitempty"`
}

// StartAuction opens an auction for an unowned space.
func (g *Game) StartAuction(index int) (*Auction, error) {
	if err := g.requireActive(); err != nil {
		return nil, err
	}
	if g.Auction != nil {
		return nil, game.StateConflictf("an auction is already running")
	}
	s, err := g.space(index)
	if err != nil {
		return nil, err
	}
	if !s.IsPurchasable() || s.Owned() {
		return nil, game.Validationf("%s cannot be auctioned", s.Name)
	}
	now := g.nowMillis()
	g.Auction = &Auction{
		Space:     index,
		Bids:      []Bid{},
		StartedAt: now,
		Deadline:  now + g.Rules.AuctionDuration.Milliseconds(),
		Active:    true,
	}
	g.recordAt(index, Record{Type: RecAuctionStart, Text: s.Name})
	return g.Auction.clone(), nil
}

// PlaceBid raises the current bid. Every accepted bid pushes the deadline to
// now plus the extension window.
func (g *Game) PlaceBid(playerID string, amount int) (*Auction, error) {
	p, err := g.requireSolvent(playerID)
	if err != nil {
		return nil, err
	}
	a := g.Auction
	if a == nil || !a.Active {
		return nil, game.StateConflictf("no auction is running")
	}
	now := g.nowMillis()
	if now > a.Deadline {
		return nil, game.StateConflictf("the auction has closed")
	}
	if amount <= a.CurrentBid {
		return nil, game.Validationf("bid must exceed ৳%d", a.CurrentBid)
	}
	if amount > p.Money {
		return nil, game.InsufficientFundsf("%s cannot bid ৳%d, has ৳%d", p.Name, amount, p.Money)
	}
	a.CurrentBid = amount
	a.CurrentBidder = p.ID
	a.Bids = append(a.Bids, Bid{PlayerID: p.ID, Amount: amount, At: now})
	a.Deadline = now + g.Rules.AuctionExtension.Milliseconds()
	g.recordAt(a.Space, Record{Type: RecAuctionBid, PlayerID: p.ID, Amount: amount})
	return a.clone(), nil
}

// EndAuction closes an auction whose deadline has passed.
func (g *Game) EndAuction() (*AuctionResult, error) {
	if err := g.requireActive(); err != nil {
		return nil, err
	}
	if g.Auction == nil {
		return nil, game.StateConflictf("no auction is running")
	}
	if g.nowMillis() < g.Auction.Deadline {
		return nil, game.StateConflictf("the auction is still open")
	}
	return g.settleAuction(), nil
}

// Expire closes the auction if its deadline is past. It is the entry point
// for scheduled sweeps.
func (g *Game) Expire(now time.Time) (any, bool) {
	if g.Status != StatusActive || g.Auction == nil || now.UnixMilli() < g.Auction.Deadline {
		return nil, false
	}
	return g.settleAuction(), true
}

// settleAuction awards the space to the highest bidder who can still pay,
// or leaves it unowned.
func (g *Game) settleAuction() *AuctionResult {
	a := g.Auction
	g.Auction = nil
	res := &AuctionResult{Space: a.Space}
	s := &g.Board[a.Space]
	if a.CurrentBidder != "" {
		if w, ok := g.Player(a.CurrentBidder); ok && !w.Bankrupt && w.debit(a.CurrentBid) == nil {
			s.Owner = w.ID
			w.addProperty(s.Index)
			res.Sold = true
			res.Winner = w.ID
			res.Amount = a.CurrentBid
			g.recordAt(s.Index, Record{Type: RecAuctionWon, PlayerID: w.ID, Amount: a.CurrentBid})
			return res
		}
	}
	g.recordAt(s.Index, Record{Type: RecAuctionUnsold})
	return res
}

// dropBidsFor rewinds the auction to the best bid not placed by playerID.
// Bids only ever increase, so that is the latest remaining one.
func (g *Game) dropBidsFor(playerID string) {
	a := g.Auction
	if a == nil {
		return
	}
	kept := a.Bids[:0]
	for _, b := range a.Bids {
		if b.PlayerID != playerID {
			kept = append(kept, b)
		}
	}
	a.Bids = kept
	a.CurrentBid = 0
	a.CurrentBidder = ""
	if n := len(kept); n > 0 {
		a.CurrentBid = kept[n-1].Amount
		a.CurrentBidder = kept[n-1].PlayerID
	}
}
