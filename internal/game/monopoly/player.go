package monopoly

import (
	"sort"

	"monopoly/internal/game"
)

// Player is one participant's ledger entry. Players are never removed from a
// match; bankrupt players stay in the list and are skipped in rotation.
type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color,omitempty"`
	Money        int    `json:"money"`
	Position     int    `json:"position"`
	Properties   []int  `json:"properties"`
	InJail       bool   `json:"inJail"`
	JailTurns    int    `json:"jailTurns"`
	JailCards    int    `json:"getOutOfJailFreeCards"`
	Bankrupt     bool   `json:"isBankrupt"`
	BankruptTurn int    `json:"bankruptTurn,omitempty"`
}

func (p *Player) credit(amount int) {
	p.Money += amount
}

// debit removes exactly amount or fails without touching the balance.
func (p *Player) debit(amount int) error {
	if amount > p.Money {
		return game.InsufficientFundsf("%s needs ৳%d, has ৳%d", p.Name, amount, p.Money)
	}
	p.Money -= amount
	return nil
}

// pay removes up to amount and returns what was actually taken.
func (p *Player) pay(amount int) int {
	if amount > p.Money {
		amount = p.Money
	}
	p.Money -= amount
	return amount
}

func (p *Player) owns(index int) bool {
	i := sort.SearchInts(p.Properties, index)
	return i < len(p.Properties) && p.Properties[i] == index
}

func (p *Player) addProperty(index int) {
	if p.owns(index) {
		return
	}
	p.Properties = append(p.Properties, index)
	sort.Ints(p.Properties)
}

func (p *Player) removeProperty(index int) {
	i := sort.SearchInts(p.Properties, index)
	if i < len(p.Properties) && p.Properties[i] == index {
		p.Properties = append(p.Properties[:i], p.Properties[i+1:]...)
	}
}

// NetWorth is cash plus the bank value of every holding: mortgage value for
// mortgaged spaces, full price otherwise, plus build cost of buildings.
func (p *Player) NetWorth(board []Space) int {
	total := p.Money
	for _, idx := range p.Properties {
		s := &board[idx]
		if s.Mortgaged {
			total += s.MortgageValue()
		} else {
			total += s.Price
		}
		total += (s.Houses + s.Hotels*5) * s.BuildCost
	}
	return total
}

func (p Player) clone() Player {
	p.Properties = append([]int{}, p.Properties...)
	return p
}
