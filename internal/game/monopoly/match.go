package monopoly

import (
	"encoding/json"
	"sort"

	"monopoly/internal/game"
)

// Action types accepted by ApplyAction.
const (
	ActionRoll         = "roll"
	ActionBuy          = "buy"
	ActionDecline      = "decline"
	ActionBuild        = "build"
	ActionSellBuilding = "sell_building"
	ActionMortgage     = "mortgage"
	ActionUnmortgage   = "unmortgage"
	ActionProposeTrade = "propose_trade"
	ActionRespondTrade = "respond_trade"
	ActionCancelTrade  = "cancel_trade"
	ActionBid          = "bid"
	ActionEndAuction   = "end_auction"
	ActionEndTurn      = "end_turn"
	ActionBankrupt     = "declare_bankruptcy"
	ActionPayJailFine  = "pay_jail_fine"
	ActionUseJailCard  = "use_jail_card"
)

var turnActions = map[string]bool{
	ActionRoll:        true,
	ActionBuy:         true,
	ActionDecline:     true,
	ActionEndTurn:     true,
	ActionPayJailFine: true,
	ActionUseJailCard: true,
}

// SpacePayload targets one board space.
type SpacePayload struct {
	Space int `json:"space"`
}

// TradeResponsePayload answers a pending trade.
type TradeResponsePayload struct {
	TradeID string `json:"tradeId"`
	Accept  bool   `json:"accept"`
}

// TradeIDPayload names a trade.
type TradeIDPayload struct {
	TradeID string `json:"tradeId"`
}

// BidPayload is an auction bid.
type BidPayload struct {
	Amount int `json:"amount"`
}

// BankruptcyPayload names the creditor, empty for the bank.
type BankruptcyPayload struct {
	CreditorID string `json:"creditorId,omitempty"`
}

// NewAction builds an Action with a JSON payload.
func NewAction(actionType string, payload any) game.Action {
	a := game.Action{Type: actionType}
	if payload != nil {
		a.Payload, _ = json.Marshal(payload)
	}
	return a
}

// RequiresTurn reports whether only the current player may submit action.
func (g *Game) RequiresTurn(action game.Action) bool {
	return turnActions[action.Type]
}

func decode(action game.Action, v any) error {
	if len(action.Payload) == 0 {
		return game.Validationf("%s requires a payload", action.Type)
	}
	if err := json.Unmarshal(action.Payload, v); err != nil {
		return game.Validationf("invalid %s payload: %v", action.Type, err)
	}
	return nil
}

// ApplyAction decodes action and runs the matching operation. Failed
// operations and operations that would break an invariant leave the game
// exactly as it was.
func (g *Game) ApplyAction(playerID string, action game.Action) (any, error) {
	backup := g.clone()
	out, err := g.apply(playerID, action)
	if err != nil {
		*g = *backup
		return nil, err
	}
	if verr := g.checkInvariants(); verr != nil {
		*g = *backup
		return nil, game.InvariantViolationf("%s rejected: %v", action.Type, verr)
	}
	return out, nil
}

func (g *Game) apply(playerID string, action game.Action) (any, error) {
	switch action.Type {
	case ActionRoll:
		return g.Roll(playerID)
	case ActionBuy:
		return g.Buy(playerID)
	case ActionDecline:
		return g.DeclinePurchase(playerID)
	case ActionBuild, ActionSellBuilding, ActionMortgage, ActionUnmortgage:
		var sp SpacePayload
		if err := decode(action, &sp); err != nil {
			return nil, err
		}
		switch action.Type {
		case ActionBuild:
			return g.Build(playerID, sp.Space)
		case ActionSellBuilding:
			return g.SellBuilding(playerID, sp.Space)
		case ActionMortgage:
			return g.Mortgage(playerID, sp.Space)
		default:
			return g.Unmortgage(playerID, sp.Space)
		}
	case ActionProposeTrade:
		var offer Offer
		if err := decode(action, &offer); err != nil {
			return nil, err
		}
		return g.ProposeTrade(playerID, offer)
	case ActionRespondTrade:
		var tr TradeResponsePayload
		if err := decode(action, &tr); err != nil {
			return nil, err
		}
		return g.RespondTrade(playerID, tr.TradeID, tr.Accept)
	case ActionCancelTrade:
		var tp TradeIDPayload
		if err := decode(action, &tp); err != nil {
			return nil, err
		}
		return g.CancelTrade(playerID, tp.TradeID)
	case ActionBid:
		var bp BidPayload
		if err := decode(action, &bp); err != nil {
			return nil, err
		}
		return g.PlaceBid(playerID, bp.Amount)
	case ActionEndAuction:
		if _, ok := g.Player(playerID); !ok {
			return nil, game.NotFoundf("player %s is not in this game", playerID)
		}
		return g.EndAuction()
	case ActionEndTurn:
		return g.EndTurn(playerID)
	case ActionBankrupt:
		var bp BankruptcyPayload
		if len(action.Payload) > 0 {
			if err := decode(action, &bp); err != nil {
				return nil, err
			}
		}
		return g.DeclareBankruptcy(playerID, bp.CreditorID)
	case ActionPayJailFine:
		return g.PayJailFine(playerID)
	case ActionUseJailCard:
		return g.UseJailCard(playerID)
	}
	return nil, game.Validationf("unknown action type: %s", action.Type)
}

// State returns the full public snapshot. Every part of a Monopoly game is
// visible to all players, so the view does not depend on playerID.
func (g *Game) State(playerID string) any {
	return Serialize(g)
}

// ValidActions lists the action types playerID can submit right now.
func (g *Game) ValidActions(playerID string) []game.Action {
	p, ok := g.Player(playerID)
	if !ok || p.Bankrupt || g.Status != StatusActive {
		return nil
	}
	var types []string
	if g.CurrentPlayer() == playerID {
		canRoll := g.Auction == nil && g.PendingPurchase == NoSpace && (!g.HasRolled || g.CanRollAgain)
		if canRoll {
			types = append(types, ActionRoll)
		}
		if g.PendingPurchase != NoSpace {
			if p.Money >= g.Board[g.PendingPurchase].Price {
				types = append(types, ActionBuy)
			}
			types = append(types, ActionDecline)
		}
		if p.InJail && !g.HasRolled {
			if p.Money >= g.Rules.JailFine {
				types = append(types, ActionPayJailFine)
			}
			if p.JailCards > 0 {
				types = append(types, ActionUseJailCard)
			}
		}
		if g.HasRolled && !g.CanRollAgain && g.PendingPurchase == NoSpace && g.Auction == nil {
			types = append(types, ActionEndTurn)
		}
	}
	if len(p.Properties) > 0 {
		types = append(types, ActionBuild, ActionSellBuilding, ActionMortgage, ActionUnmortgage)
	}
	types = append(types, ActionProposeTrade)
	for _, t := range g.Trades {
		if t.To == playerID {
			types = append(types, ActionRespondTrade)
			break
		}
	}
	if g.Auction != nil {
		if g.nowMillis() <= g.Auction.Deadline {
			types = append(types, ActionBid)
		} else {
			types = append(types, ActionEndAuction)
		}
	}
	types = append(types, ActionBankrupt)

	actions := make([]game.Action, len(types))
	for i, t := range types {
		actions[i] = game.Action{Type: t}
	}
	return actions
}

// IsOver reports whether a single solvent player remains.
func (g *Game) IsOver() bool {
	return g.Status == StatusFinished
}

// Results ranks solvent players by net worth, then bankrupt players from the
// most recent bankruptcy backwards.
func (g *Game) Results() []game.PlayerResult {
	players := make([]*Player, len(g.Players))
	copy(players, g.Players)
	worth := make(map[string]int, len(players))
	for _, p := range players {
		worth[p.ID] = p.NetWorth(g.Board)
	}
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.ID == g.Winner || b.ID == g.Winner {
			return a.ID == g.Winner
		}
		if a.Bankrupt != b.Bankrupt {
			return !a.Bankrupt
		}
		if a.Bankrupt {
			return a.BankruptTurn > b.BankruptTurn
		}
		return worth[a.ID] > worth[b.ID]
	})
	results := make([]game.PlayerResult, len(players))
	for i, p := range players {
		results[i] = game.PlayerResult{PlayerID: p.ID, Rank: i + 1, Score: worth[p.ID]}
	}
	return results
}

// Variant is a named rule set registered with the game registry.
type Variant struct {
	Name        string
	Description string
	Rules       Rules
	Options     []Option
}

// Classic is the standard rule set.
func Classic() Variant {
	return Variant{
		Name:        "classic",
		Description: "Standard rules with auctions for declined properties.",
		Rules:       DefaultRules(),
	}
}

// Jackpot pays taxes and fines into a pot collected on Free Parking.
func Jackpot() Variant {
	r := DefaultRules()
	r.FreeParkingJackpot = true
	return Variant{
		Name:        "jackpot",
		Description: "Taxes and fines collect on Free Parking for whoever lands there.",
		Rules:       r,
	}
}

func (v Variant) Info() game.GameInfo {
	return game.GameInfo{
		Name:        v.Name,
		Description: v.Description,
		MinPlayers:  MinPlayers,
		MaxPlayers:  MaxPlayers,
	}
}

func (v Variant) NewMatch(config game.MatchConfig) (game.Match, error) {
	g, err := New(config.RoomCode, config.Seats, v.Rules.With(config.Settings), v.Options...)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (v Variant) RestoreMatch(data []byte) (game.Match, error) {
	g, err := Decode(data, v.Options...)
	if err != nil {
		return nil, err
	}
	return g, nil
}
