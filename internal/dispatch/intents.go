package dispatch

import (
	"context"

	"monopoly/internal/game/monopoly"
)

func (d *Dispatcher) submit(ctx context.Context, code, playerID, actionType string, payload any) (*Event, error) {
	return d.Dispatch(ctx, code, playerID, monopoly.NewAction(actionType, payload))
}

func (d *Dispatcher) SubmitRoll(ctx context.Context, code, playerID string) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionRoll, nil)
}

func (d *Dispatcher) SubmitBuy(ctx context.Context, code, playerID string) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionBuy, nil)
}

// SubmitDecline passes on the pending purchase, opening an auction unless
// the room disabled them.
func (d *Dispatcher) SubmitDecline(ctx context.Context, code, playerID string) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionDecline, nil)
}

func (d *Dispatcher) SubmitBuild(ctx context.Context, code, playerID string, space int) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionBuild, monopoly.SpacePayload{Space: space})
}

func (d *Dispatcher) SubmitSellBuilding(ctx context.Context, code, playerID string, space int) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionSellBuilding, monopoly.SpacePayload{Space: space})
}

func (d *Dispatcher) SubmitMortgage(ctx context.Context, code, playerID string, space int) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionMortgage, monopoly.SpacePayload{Space: space})
}

func (d *Dispatcher) SubmitUnmortgage(ctx context.Context, code, playerID string, space int) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionUnmortgage, monopoly.SpacePayload{Space: space})
}

func (d *Dispatcher) SubmitTradeProposal(ctx context.Context, code, playerID string, offer monopoly.Offer) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionProposeTrade, offer)
}

func (d *Dispatcher) SubmitTradeResponse(ctx context.Context, code, playerID, tradeID string, accept bool) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionRespondTrade, monopoly.TradeResponsePayload{TradeID: tradeID, Accept: accept})
}

func (d *Dispatcher) CancelTrade(ctx context.Context, code, playerID, tradeID string) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionCancelTrade, monopoly.TradeIDPayload{TradeID: tradeID})
}

func (d *Dispatcher) SubmitAuctionBid(ctx context.Context, code, playerID string, amount int) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionBid, monopoly.BidPayload{Amount: amount})
}

// RequestEndAuction closes an auction whose deadline has passed. Any seated
// player may ask.
func (d *Dispatcher) RequestEndAuction(ctx context.Context, code, playerID string) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionEndAuction, nil)
}

func (d *Dispatcher) SubmitEndTurn(ctx context.Context, code, playerID string) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionEndTurn, nil)
}

// DeclareBankruptcy hands everything playerID owns to creditorID, or to the
// bank when creditorID is empty.
func (d *Dispatcher) DeclareBankruptcy(ctx context.Context, code, playerID, creditorID string) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionBankrupt, monopoly.BankruptcyPayload{CreditorID: creditorID})
}

func (d *Dispatcher) PayJailFine(ctx context.Context, code, playerID string) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionPayJailFine, nil)
}

func (d *Dispatcher) UseJailCard(ctx context.Context, code, playerID string) (*Event, error) {
	return d.submit(ctx, code, playerID, monopoly.ActionUseJailCard, nil)
}
