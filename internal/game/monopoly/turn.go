package monopoly

import (
	"fmt"

	"monopoly/internal/game"
)

// JailOutcome describes what a roll did to a jailed or jail-bound player.
type JailOutcome string

const (
	JailNone           JailOutcome = ""
	JailStayed         JailOutcome = "stayed"
	JailReleasedDouble JailOutcome = "released-double"
	JailReleasedFine   JailOutcome = "released-fine"
	JailThreeDoubles   JailOutcome = "three-doubles"
)

// RollResult is the outcome of one roll.
type RollResult struct {
	PlayerID     string      `json:"playerId"`
	Dice         Dice        `json:"dice"`
	From         int         `json:"from"`
	To           int         `json:"to"`
	PassedGo     bool        `json:"passedGo"`
	Salary       int         `json:"salary,omitempty"`
	Jail         JailOutcome `json:"jail,omitempty"`
	FinePaid     int         `json:"finePaid,omitempty"`
	Landing      *Landing    `json:"landing,omitempty"`
	CanRollAgain bool        `json:"canRollAgain"`
}

// Roll rolls the dice for the current player and resolves the result.
func (g *Game) Roll(playerID string) (*RollResult, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return nil, err
	}
	if g.Auction != nil {
		return nil, game.StateConflictf("an auction is in progress")
	}
	if g.PendingPurchase != NoSpace {
		return nil, game.StateConflictf("decide whether to buy %s first", g.Board[g.PendingPurchase].Name)
	}
	if g.HasRolled && !g.CanRollAgain {
		return nil, game.StateConflictf("already rolled this turn")
	}

	dice := g.roller.Roll()
	g.Dice = dice
	g.HasRolled = true
	g.CanRollAgain = false
	res := &RollResult{PlayerID: p.ID, Dice: dice, From: p.Position, To: p.Position}
	g.record(Record{Type: RecDiceRoll, PlayerID: p.ID, Amount: dice.Sum(), Text: fmt.Sprintf("%d+%d", dice[0], dice[1])})

	if p.InJail {
		g.rollInJail(p, res)
		return res, nil
	}

	if dice.IsDouble() {
		g.DoublesStreak++
		if g.DoublesStreak >= 3 {
			g.sendToJail(p, "three_doubles")
			res.Jail = JailThreeDoubles
			res.To = p.Position
			return res, nil
		}
	} else {
		g.DoublesStreak = 0
	}

	g.advance(p, dice.Sum(), res)
	res.Landing = g.resolveLanding(p, 1)
	res.To = p.Position
	g.CanRollAgain = dice.IsDouble() && !p.InJail && !p.Bankrupt && g.Status == StatusActive && g.CurrentPlayer() == p.ID
	res.CanRollAgain = g.CanRollAgain
	return res, nil
}

func (g *Game) rollInJail(p *Player, res *RollResult) {
	dice := g.Dice
	switch {
	case dice.IsDouble():
		p.InJail = false
		p.JailTurns = 0
		res.Jail = JailReleasedDouble
		g.record(Record{Type: RecJailRelease, PlayerID: p.ID, Text: "double"})
	case p.JailTurns+1 >= g.Rules.MaxJailTurns:
		paid := p.pay(g.Rules.JailFine)
		g.toBank(paid)
		p.InJail = false
		p.JailTurns = 0
		res.Jail = JailReleasedFine
		res.FinePaid = paid
		g.record(Record{Type: RecJailFine, PlayerID: p.ID, Amount: paid, Text: "forced"})
	default:
		p.JailTurns++
		res.Jail = JailStayed
		return
	}
	g.advance(p, dice.Sum(), res)
	res.Landing = g.resolveLanding(p, 1)
	res.To = p.Position
}

// advance moves p forward by steps, paying the salary once if Go is crossed.
func (g *Game) advance(p *Player, steps int, res *RollResult) {
	from := p.Position
	p.Position = (from + steps) % BoardSize
	if p.Position < from {
		g.paySalary(p)
		if res != nil {
			res.PassedGo = true
			res.Salary = g.Rules.GoSalary
		}
	}
}

func (g *Game) paySalary(p *Player) {
	p.credit(g.Rules.GoSalary)
	g.record(Record{Type: RecPassedGo, PlayerID: p.ID, Amount: g.Rules.GoSalary})
}

func (g *Game) sendToJail(p *Player, reason string) {
	p.Position = JailIndex
	p.InJail = true
	p.JailTurns = 0
	if g.CurrentPlayer() == p.ID {
		g.DoublesStreak = 0
		g.CanRollAgain = false
	}
	g.recordAt(JailIndex, Record{Type: RecGoToJail, PlayerID: p.ID, Text: reason})
}

// PayJailFine releases the current player before they roll.
func (g *Game) PayJailFine(playerID string) (*Player, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return nil, err
	}
	if !p.InJail {
		return nil, game.StateConflictf("%s is not in jail", p.Name)
	}
	if g.HasRolled {
		return nil, game.StateConflictf("already rolled this turn")
	}
	if err := p.debit(g.Rules.JailFine); err != nil {
		return nil, err
	}
	g.toBank(g.Rules.JailFine)
	p.InJail = false
	p.JailTurns = 0
	g.record(Record{Type: RecJailFine, PlayerID: p.ID, Amount: g.Rules.JailFine, Text: "paid"})
	return p, nil
}

// UseJailCard spends a get-out-of-jail-free card before rolling.
func (g *Game) UseJailCard(playerID string) (*Player, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return nil, err
	}
	if !p.InJail {
		return nil, game.StateConflictf("%s is not in jail", p.Name)
	}
	if g.HasRolled {
		return nil, game.StateConflictf("already rolled this turn")
	}
	if p.JailCards == 0 {
		return nil, game.StateConflictf("%s has no get out of jail free card", p.Name)
	}
	p.JailCards--
	p.InJail = false
	p.JailTurns = 0
	g.record(Record{Type: RecJailCard, PlayerID: p.ID})
	return p, nil
}

// TurnResult reports the hand-over to the next player.
type TurnResult struct {
	Previous   string `json:"previous"`
	Next       string `json:"next"`
	TurnNumber int    `json:"turnNumber"`
}

// EndTurn hands the turn to the next solvent player.
func (g *Game) EndTurn(playerID string) (*TurnResult, error) {
	if _, err := g.requireTurn(playerID); err != nil {
		return nil, err
	}
	switch {
	case !g.HasRolled:
		return nil, game.StateConflictf("roll before ending the turn")
	case g.CanRollAgain:
		return nil, game.StateConflictf("you rolled doubles, roll again")
	case g.PendingPurchase != NoSpace:
		return nil, game.StateConflictf("decide whether to buy %s first", g.Board[g.PendingPurchase].Name)
	case g.Auction != nil:
		return nil, game.StateConflictf("an auction is in progress")
	}
	g.record(Record{Type: RecTurnEnd, PlayerID: playerID})
	g.nextTurn()
	return &TurnResult{Previous: playerID, Next: g.CurrentPlayer(), TurnNumber: g.TurnNumber}, nil
}

// nextTurn resets per-turn state and moves to the next solvent seat.
func (g *Game) nextTurn() {
	g.Dice = Dice{}
	g.DoublesStreak = 0
	g.HasRolled = false
	g.CanRollAgain = false
	g.PendingPurchase = NoSpace
	n := len(g.Players)
	for i := 1; i <= n; i++ {
		idx := (g.Current + i) % n
		if !g.Players[idx].Bankrupt {
			g.Current = idx
			break
		}
	}
	g.TurnNumber++
}
