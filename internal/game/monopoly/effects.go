package monopoly

// CardResult reports a drawn card and what it did.
type CardResult struct {
	Deck    DeckKind   `json:"deck"`
	Text    string     `json:"text"`
	Action  CardAction `json:"action"`
	Amount  int        `json:"amount,omitempty"`
	Skipped bool       `json:"skipped,omitempty"`
	// Moved is set when the card relocated the player; Landing then holds
	// the effect resolved at the destination.
	Moved    bool     `json:"moved,omitempty"`
	PassedGo bool     `json:"passedGo,omitempty"`
	Landing  *Landing `json:"landing,omitempty"`
}

func (g *Game) drawCard(p *Player, d *Deck) *CardResult {
	c := d.Draw(g.rng)
	g.recordAt(p.Position, Record{Type: RecCard, PlayerID: p.ID, Text: c.Text})
	res := &CardResult{Deck: d.Kind, Text: c.Text, Action: c.Action}
	g.applyCard(p, c, res)
	return res
}

func (g *Game) applyCard(p *Player, c Card, res *CardResult) {
	switch c.Action {
	case CardAddMoney:
		p.credit(c.Amount)
		res.Amount = c.Amount

	case CardRemoveMoney:
		paid := p.pay(c.Amount)
		g.toBank(paid)
		res.Amount = paid

	case CardMoveTo:
		from := p.Position
		p.Position = c.Target
		if c.CollectSalary && p.Position < from {
			g.paySalary(p)
			res.PassedGo = true
		}
		res.Moved = true
		res.Landing = g.resolveLanding(p, 1)

	case CardMoveRelative:
		p.Position = ((p.Position+c.Steps)%BoardSize + BoardSize) % BoardSize
		res.Moved = true
		res.Landing = g.resolveLanding(p, 1)

	case CardGoToJail:
		g.sendToJail(p, "card")

	case CardGetOutOfJailFree:
		p.JailCards++

	case CardPayEachPlayer:
		others := g.opponents(p)
		total := c.Amount * len(others)
		if p.Money < total {
			res.Skipped = true
			return
		}
		for _, o := range others {
			p.pay(c.Amount)
			o.credit(c.Amount)
		}
		res.Amount = total

	case CardCollectFromEachPlayer:
		total := 0
		for _, o := range g.opponents(p) {
			total += o.pay(c.Amount)
		}
		p.credit(total)
		res.Amount = total

	case CardMoveToNearest:
		from := p.Position
		dest := from
		for step := 1; step <= BoardSize; step++ {
			idx := (from + step) % BoardSize
			if g.Board[idx].Type == c.NearestType {
				dest = idx
				break
			}
		}
		p.Position = dest
		if dest < from {
			g.paySalary(p)
			res.PassedGo = true
		}
		mult := c.RentMultiplier
		if mult < 1 {
			mult = 1
		}
		res.Moved = true
		res.Landing = g.resolveLanding(p, mult)

	case CardRepairs:
		cost := 0
		for _, idx := range p.Properties {
			s := &g.Board[idx]
			cost += s.Houses*c.PerHouse + s.Hotels*c.PerHotel
		}
		paid := p.pay(cost)
		g.toBank(paid)
		res.Amount = paid
	}
}
