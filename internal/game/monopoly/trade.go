package monopoly

import (
	"errors"

	"github.com/google/uuid"

	"monopoly/internal/game"
)

// TradeStatus is the lifecycle of a proposal.
type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeAccepted  TradeStatus = "accepted"
	TradeRejected  TradeStatus = "rejected"
	TradeCancelled TradeStatus = "cancelled"
)

// Offer is what a proposer puts on the table. Offered items move from the
// proposer to the counterparty; requested items move the other way.
type Offer struct {
	To                  string `json:"toPlayerId"`
	OfferedMoney        int    `json:"offeredMoney"`
	RequestedMoney      int    `json:"requestedMoney"`
	OfferedProperties   []int  `json:"offeredProperties"`
	RequestedProperties []int  `json:"requestedProperties"`
}

// Trade is a proposal between two players.
type Trade struct {
	ID                  string      `json:"id"`
	From                string      `json:"fromPlayerId"`
	To                  string      `json:"toPlayerId"`
	OfferedMoney        int         `json:"offeredMoney"`
	RequestedMoney      int         `json:"requestedMoney"`
	OfferedProperties   []int       `json:"offeredProperties"`
	RequestedProperties []int       `json:"requestedProperties"`
	Status              TradeStatus `json:"status"`
	CreatedAt           int64       `json:"createdAt"`
}

func (t Trade) clone() Trade {
	t.OfferedProperties = append([]int{}, t.OfferedProperties...)
	t.RequestedProperties = append([]int{}, t.RequestedProperties...)
	return t
}

// ProposeTrade records a pending trade from playerID.
func (g *Game) ProposeTrade(playerID string, offer Offer) (*Trade, error) {
	if _, err := g.requireSolvent(playerID); err != nil {
		return nil, err
	}
	t := &Trade{
		ID:                  uuid.NewString(),
		From:                playerID,
		To:                  offer.To,
		OfferedMoney:        offer.OfferedMoney,
		RequestedMoney:      offer.RequestedMoney,
		OfferedProperties:   append([]int{}, offer.OfferedProperties...),
		RequestedProperties: append([]int{}, offer.RequestedProperties...),
		Status:              TradePending,
		CreatedAt:           g.nowMillis(),
	}
	if err := g.validateTrade(t, false); err != nil {
		return nil, err
	}
	g.Trades = append(g.Trades, t)
	g.record(Record{Type: RecTradeProposed, PlayerID: t.From, Target: t.To, Text: t.ID})
	out := t.clone()
	return &out, nil
}

// validateTrade checks every transfer a trade would make. At acceptance the
// counterparty's side of the money is checked as well.
func (g *Game) validateTrade(t *Trade, accepting bool) error {
	from, ok := g.Player(t.From)
	if !ok {
		return game.NotFoundf("player %s is not in this game", t.From)
	}
	to, ok := g.Player(t.To)
	if !ok {
		return game.NotFoundf("player %s is not in this game", t.To)
	}
	if from.ID == to.ID {
		return game.Validationf("cannot trade with yourself")
	}
	if from.Bankrupt || to.Bankrupt {
		return game.StateConflictf("bankrupt players cannot trade")
	}
	if t.OfferedMoney < 0 || t.RequestedMoney < 0 {
		return game.Validationf("trade amounts must not be negative")
	}
	if t.OfferedMoney == 0 && t.RequestedMoney == 0 && len(t.OfferedProperties) == 0 && len(t.RequestedProperties) == 0 {
		return game.Validationf("trade is empty")
	}
	if t.OfferedMoney > from.Money {
		return game.InsufficientFundsf("%s cannot offer ৳%d, has ৳%d", from.Name, t.OfferedMoney, from.Money)
	}
	if accepting && t.RequestedMoney > to.Money {
		return game.InsufficientFundsf("%s cannot pay ৳%d, has ৳%d", to.Name, t.RequestedMoney, to.Money)
	}

	seen := make(map[int]bool)
	check := func(indices []int, owner *Player, offered bool) error {
		for _, idx := range indices {
			if seen[idx] {
				return game.Validationf("space %d listed twice", idx)
			}
			seen[idx] = true
			s, err := g.space(idx)
			if err != nil {
				return err
			}
			if !s.IsPurchasable() {
				return game.Validationf("%s cannot be traded", s.Name)
			}
			if s.Owner != owner.ID {
				return game.Validationf("%s is not owned by %s", s.Name, owner.Name)
			}
			if offered && s.Mortgaged {
				return game.Validationf("%s is mortgaged", s.Name)
			}
			if s.HasBuildings() || (s.Group != "" && g.groupHasBuildings(s.Group)) {
				return game.Validationf("sell the buildings in the %s group before trading %s", s.Group, s.Name)
			}
		}
		return nil
	}
	if err := check(t.OfferedProperties, from, true); err != nil {
		return err
	}
	return check(t.RequestedProperties, to, false)
}

func (g *Game) findTrade(id string) (int, *Trade, error) {
	for i, t := range g.Trades {
		if t.ID == id {
			return i, t, nil
		}
	}
	return -1, nil, game.NotFoundf("trade %s not found", id)
}

func (g *Game) removeTrade(i int) {
	g.Trades = append(g.Trades[:i], g.Trades[i+1:]...)
}

// RespondTrade accepts or rejects a pending trade addressed to playerID.
// Acceptance applies every transfer or none.
func (g *Game) RespondTrade(playerID, tradeID string, accept bool) (*Trade, error) {
	if err := g.requireActive(); err != nil {
		return nil, err
	}
	i, t, err := g.findTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if t.To != playerID {
		return nil, game.Authorizationf("trade %s is not addressed to you", tradeID)
	}
	if !accept {
		t.Status = TradeRejected
		g.removeTrade(i)
		g.record(Record{Type: RecTradeRejected, PlayerID: t.To, Target: t.From, Text: t.ID})
		out := t.clone()
		return &out, nil
	}

	if err := g.validateTrade(t, true); err != nil {
		var ge *game.Error
		if errors.As(err, &ge) && ge.Kind == game.KindValidation {
			return nil, game.StateConflictf("trade no longer valid: %s", ge.Message)
		}
		return nil, err
	}
	from, _ := g.Player(t.From)
	to, _ := g.Player(t.To)
	for _, idx := range t.OfferedProperties {
		g.Board[idx].Owner = to.ID
		from.removeProperty(idx)
		to.addProperty(idx)
	}
	for _, idx := range t.RequestedProperties {
		g.Board[idx].Owner = from.ID
		to.removeProperty(idx)
		from.addProperty(idx)
	}
	from.Money -= t.OfferedMoney
	to.Money += t.OfferedMoney
	to.Money -= t.RequestedMoney
	from.Money += t.RequestedMoney

	t.Status = TradeAccepted
	g.removeTrade(i)
	g.record(Record{Type: RecTradeCompleted, PlayerID: t.From, Target: t.To, Text: t.ID})
	out := t.clone()
	return &out, nil
}

// CancelTrade withdraws a pending trade; only the proposer may cancel.
func (g *Game) CancelTrade(playerID, tradeID string) (*Trade, error) {
	if err := g.requireActive(); err != nil {
		return nil, err
	}
	i, t, err := g.findTrade(tradeID)
	if err != nil {
		return nil, err
	}
	if t.From != playerID {
		return nil, game.Authorizationf("only the proposer can cancel trade %s", tradeID)
	}
	t.Status = TradeCancelled
	g.removeTrade(i)
	g.record(Record{Type: RecTradeCancelled, PlayerID: t.From, Target: t.To, Text: t.ID})
	out := t.clone()
	return &out, nil
}

// dropTradesFor removes every pending trade involving playerID.
func (g *Game) dropTradesFor(playerID string) {
	kept := g.Trades[:0]
	for _, t := range g.Trades {
		if t.From != playerID && t.To != playerID {
			kept = append(kept, t)
		}
	}
	g.Trades = kept
}
