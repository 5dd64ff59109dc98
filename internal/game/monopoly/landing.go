package monopoly

// LandingKind classifies what happened on the space a player landed on.
type LandingKind string

const (
	LandNone         LandingKind = "none"
	LandBuyDecision  LandingKind = "buy-decision"
	LandOwnProperty  LandingKind = "own-property"
	LandMortgaged    LandingKind = "mortgaged"
	LandRentPaid     LandingKind = "rent-paid"
	LandTaxPaid      LandingKind = "tax-paid"
	LandCard         LandingKind = "card-drawn"
	LandGoToJail     LandingKind = "go-to-jail"
	LandFreeParking  LandingKind = "free-parking"
	LandJackpot      LandingKind = "free-parking-jackpot"
	LandJailVisiting LandingKind = "just-visiting"
)

// Landing is the resolved effect of arriving on a space.
type Landing struct {
	Space     int         `json:"space"`
	SpaceName string      `json:"spaceName"`
	Kind      LandingKind `json:"kind"`
	Owner     string      `json:"owner,omitempty"`
	Price     int         `json:"price,omitempty"`
	CanAfford bool        `json:"canAfford,omitempty"`
	Rent      int         `json:"rent,omitempty"`
	Amount    int         `json:"amount,omitempty"`
	Shortfall int         `json:"shortfall,omitempty"`
	// BankruptcyTriggered is set when the player could not cover what they
	// owed. Creditor is empty when the bank is owed.
	BankruptcyTriggered bool        `json:"bankruptcyTriggered,omitempty"`
	Creditor            string      `json:"creditor,omitempty"`
	Card                *CardResult `json:"card,omitempty"`
}

// resolveLanding applies the effect of the space p now occupies.
// multiplier scales rent (card-directed moves may double it).
func (g *Game) resolveLanding(p *Player, multiplier int) *Landing {
	s := &g.Board[p.Position]
	l := &Landing{Space: s.Index, SpaceName: s.Name, Kind: LandNone}

	switch s.Type {
	case SpaceProperty, SpaceStation, SpaceUtility:
		g.landOnDeed(p, s, multiplier, l)

	case SpaceTax:
		paid := p.pay(s.TaxAmount)
		g.toBank(paid)
		l.Kind = LandTaxPaid
		l.Amount = paid
		g.recordAt(s.Index, Record{Type: RecTax, PlayerID: p.ID, Amount: paid, Text: s.Name})
		if short := s.TaxAmount - paid; short > 0 {
			l.Shortfall = short
			l.BankruptcyTriggered = true
			if g.Rules.StrictDebts {
				g.bankrupt(p, nil)
			}
		}

	case SpaceChance:
		l.Kind = LandCard
		l.Card = g.drawCard(p, &g.Chance)

	case SpaceCommunityChest:
		l.Kind = LandCard
		l.Card = g.drawCard(p, &g.Community)

	case SpaceGoToJail:
		l.Kind = LandGoToJail
		g.sendToJail(p, "landed_on_space")

	case SpaceFreeParking:
		if g.Rules.FreeParkingJackpot && g.FreeParkingPot > 0 {
			l.Kind = LandJackpot
			l.Amount = g.FreeParkingPot
			p.credit(g.FreeParkingPot)
			g.recordAt(s.Index, Record{Type: RecJackpot, PlayerID: p.ID, Amount: g.FreeParkingPot})
			g.FreeParkingPot = 0
		} else {
			l.Kind = LandFreeParking
		}

	case SpaceJail:
		l.Kind = LandJailVisiting
	}
	return l
}

func (g *Game) landOnDeed(p *Player, s *Space, multiplier int, l *Landing) {
	if !s.Owned() {
		g.PendingPurchase = s.Index
		l.Kind = LandBuyDecision
		l.Price = s.Price
		l.CanAfford = p.Money >= s.Price
		return
	}
	l.Owner = s.Owner
	if s.Owner == p.ID {
		l.Kind = LandOwnProperty
		return
	}
	if s.Mortgaged {
		l.Kind = LandMortgaged
		return
	}
	owner, ok := g.Player(s.Owner)
	if !ok || owner.Bankrupt {
		return
	}

	rent := g.Rent(s.Index, g.Dice.Sum()) * multiplier
	paid := p.pay(rent)
	owner.credit(paid)
	l.Kind = LandRentPaid
	l.Rent = rent
	l.Amount = paid
	g.recordAt(s.Index, Record{Type: RecRent, PlayerID: p.ID, Target: owner.ID, Amount: paid})
	if short := rent - paid; short > 0 {
		l.Shortfall = short
		l.BankruptcyTriggered = true
		l.Creditor = owner.ID
		if g.Rules.StrictDebts {
			g.bankrupt(p, owner)
		}
	}
}
