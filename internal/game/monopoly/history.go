package monopoly

// Record is one entry of the append-only effect log.
type Record struct {
	Seq      int    `json:"seq"`
	Turn     int    `json:"turn"`
	At       int64  `json:"at"`
	Type     string `json:"type"`
	PlayerID string `json:"playerId,omitempty"`
	Target   string `json:"target,omitempty"`
	Space    int    `json:"space"`
	Amount   int    `json:"amount,omitempty"`
	Text     string `json:"text,omitempty"`
}

// History record types.
const (
	RecGameStart      = "game_start"
	RecDiceRoll       = "dice_roll"
	RecPassedGo       = "passed_go"
	RecJailRelease    = "jail_release"
	RecJailFine       = "jail_fine"
	RecJailCard       = "jail_card_used"
	RecGoToJail       = "go_to_jail"
	RecPurchase       = "property_purchase"
	RecDeclined       = "purchase_declined"
	RecRent           = "rent_payment"
	RecTax            = "tax_paid"
	RecCard           = "card_drawn"
	RecJackpot        = "free_parking_jackpot"
	RecBuild          = "building_purchase"
	RecSellBuilding   = "building_sale"
	RecMortgage       = "mortgage"
	RecUnmortgage     = "unmortgage"
	RecTradeProposed  = "trade_proposed"
	RecTradeCompleted = "trade_completed"
	RecTradeRejected  = "trade_rejected"
	RecTradeCancelled = "trade_cancelled"
	RecAuctionStart   = "auction_started"
	RecAuctionBid     = "auction_bid"
	RecAuctionWon     = "auction_won"
	RecAuctionUnsold  = "auction_unsold"
	RecBankruptcy     = "bankruptcy"
	RecTurnEnd        = "turn_end"
	RecGameEnd        = "game_end"
)

// record stamps and appends r. Space defaults to NoSpace unless set by the
// caller through recordAt.
func (g *Game) record(r Record) {
	r.Space = NoSpace
	g.appendRecord(r)
}

func (g *Game) recordAt(space int, r Record) {
	r.Space = space
	g.appendRecord(r)
}

func (g *Game) appendRecord(r Record) {
	g.HistorySeq++
	r.Seq = g.HistorySeq
	r.Turn = g.TurnNumber
	r.At = g.nowMillis()
	g.History = append(g.History, r)
}

// RecentHistory returns at most n of the latest records.
func (g *Game) RecentHistory(n int) []Record {
	if n <= 0 || n >= len(g.History) {
		return g.History
	}
	return g.History[len(g.History)-n:]
}
