package monopoly

import "fmt"

// CardAction is the closed set of card effects.
type CardAction int

const (
	CardAddMoney CardAction = iota
	CardRemoveMoney
	CardMoveTo
	CardMoveRelative
	CardGoToJail
	CardGetOutOfJailFree
	CardPayEachPlayer
	CardCollectFromEachPlayer
	CardMoveToNearest
	CardRepairs
)

var cardActionNames = [...]string{
	CardAddMoney:              "add_money",
	CardRemoveMoney:           "remove_money",
	CardMoveTo:                "move_to",
	CardMoveRelative:          "move_relative",
	CardGoToJail:              "go_to_jail",
	CardGetOutOfJailFree:      "get_out_of_jail_free",
	CardPayEachPlayer:         "pay_each_player",
	CardCollectFromEachPlayer: "collect_from_each_player",
	CardMoveToNearest:         "move_to_nearest",
	CardRepairs:               "repairs",
}

func (a CardAction) String() string {
	if a < 0 || int(a) >= len(cardActionNames) {
		return fmt.Sprintf("CardAction(%d)", int(a))
	}
	return cardActionNames[a]
}

func (a CardAction) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= len(cardActionNames) {
		return nil, fmt.Errorf("unknown card action %d", int(a))
	}
	return []byte(cardActionNames[a]), nil
}

func (a *CardAction) UnmarshalText(b []byte) error {
	for i, name := range cardActionNames {
		if name == string(b) {
			*a = CardAction(i)
			return nil
		}
	}
	return fmt.Errorf("unknown card action %q", string(b))
}

// Card is a declarative effect descriptor.
type Card struct {
	Text           string     `json:"text"`
	Action         CardAction `json:"action"`
	Amount         int        `json:"amount,omitempty"`
	Target         int        `json:"target,omitempty"`
	CollectSalary  bool       `json:"collectSalary,omitempty"`
	Steps          int        `json:"steps,omitempty"`
	NearestType    SpaceType  `json:"nearestType,omitempty"`
	RentMultiplier int        `json:"rentMultiplier,omitempty"`
	PerHouse       int        `json:"perHouse,omitempty"`
	PerHotel       int        `json:"perHotel,omitempty"`
}

// DeckKind names one of the two decks.
type DeckKind string

const (
	DeckChance    DeckKind = "chance"
	DeckCommunity DeckKind = "community-chest"
)

var chanceCards = []Card{
	{Text: "Advance to Go (Collect ৳2000).", Action: CardMoveTo, Target: 0, CollectSalary: true},
	{Text: "Advance to মতিঝিল.", Action: CardMoveTo, Target: 6},
	{Text: "Advance token to nearest Utility.", Action: CardMoveToNearest, NearestType: SpaceUtility},
	{Text: "Advance token to the nearest Station.", Action: CardMoveToNearest, NearestType: SpaceStation, RentMultiplier: 2},
	{Text: "Bank pays you dividend of ৳500.", Action: CardAddMoney, Amount: 500},
	{Text: "Get Out of Jail Free card.", Action: CardGetOutOfJailFree},
	{Text: "Go Back 3 Spaces.", Action: CardMoveRelative, Steps: -3},
	{Text: "Go to Jail.", Action: CardGoToJail},
	{Text: "Make general repairs on all your property. For each house pay ৳250, for each hotel ৳1000.", Action: CardRepairs, PerHouse: 250, PerHotel: 1000},
	{Text: "Pay poor tax of ৳150.", Action: CardRemoveMoney, Amount: 150},
	{Text: "Take a trip to কমলাপুর Station.", Action: CardMoveTo, Target: 5, CollectSalary: true},
	{Text: "Advance to জাফলং.", Action: CardMoveTo, Target: 39},
	{Text: "You have been elected Chairman of the Board. Pay each player ৳500.", Action: CardPayEachPlayer, Amount: 500},
	{Text: "Your building loan matures. Collect ৳1500.", Action: CardAddMoney, Amount: 1500},
}

var communityCards = []Card{
	{Text: "Advance to Go (Collect ৳2000).", Action: CardMoveTo, Target: 0, CollectSalary: true},
	{Text: "Bank error in your favor. Collect ৳2000.", Action: CardAddMoney, Amount: 2000},
	{Text: "Doctor's fee. Pay ৳500.", Action: CardRemoveMoney, Amount: 500},
	{Text: "From sale of stock you get ৳500.", Action: CardAddMoney, Amount: 500},
	{Text: "Get Out of Jail Free card.", Action: CardGetOutOfJailFree},
	{Text: "Go to Jail.", Action: CardGoToJail},
	{Text: "Holiday fund matures. Receive ৳1000.", Action: CardAddMoney, Amount: 1000},
	{Text: "Income tax refund. Collect ৳200.", Action: CardAddMoney, Amount: 200},
	{Text: "It is your birthday. Collect ৳100 from every player.", Action: CardCollectFromEachPlayer, Amount: 100},
	{Text: "Life insurance matures. Collect ৳1000.", Action: CardAddMoney, Amount: 1000},
	{Text: "Pay hospital fees of ৳1000.", Action: CardRemoveMoney, Amount: 1000},
	{Text: "Pay school fees of ৳500.", Action: CardRemoveMoney, Amount: 500},
	{Text: "Receive ৳250 consultancy fee.", Action: CardAddMoney, Amount: 250},
	{Text: "You are assessed for street repairs. ৳400 per house, ৳1150 per hotel.", Action: CardRepairs, PerHouse: 400, PerHotel: 1150},
	{Text: "You have won second prize in a beauty contest. Collect ৳100.", Action: CardAddMoney, Amount: 100},
	{Text: "You inherit ৳1000.", Action: CardAddMoney, Amount: 1000},
}

// Cards returns the fixed card list of a deck kind.
func Cards(kind DeckKind) []Card {
	switch kind {
	case DeckChance:
		return chanceCards
	case DeckCommunity:
		return communityCards
	}
	return nil
}

// Shuffler permutes n elements in place. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Deck is a cyclic draw order over a fixed card list. The order is reshuffled
// exactly when the cursor wraps back to the top, never mid-deck.
type Deck struct {
	Kind   DeckKind `json:"kind"`
	Order  []int    `json:"order"`
	Cursor int      `json:"cursor"`
}

// NewDeck returns a shuffled deck of the given kind.
func NewDeck(kind DeckKind, rng Shuffler) Deck {
	n := len(Cards(kind))
	d := Deck{Kind: kind, Order: make([]int, n)}
	for i := range d.Order {
		d.Order[i] = i
	}
	d.shuffle(rng)
	return d
}

func (d *Deck) shuffle(rng Shuffler) {
	rng.Shuffle(len(d.Order), func(i, j int) {
		d.Order[i], d.Order[j] = d.Order[j], d.Order[i]
	})
}

// Draw returns the card under the cursor and advances it.
func (d *Deck) Draw(rng Shuffler) Card {
	cards := Cards(d.Kind)
	c := cards[d.Order[d.Cursor]]
	d.Cursor++
	if d.Cursor == len(d.Order) {
		d.Cursor = 0
		d.shuffle(rng)
	}
	return c
}

// validate checks that Order is a permutation of the deck's cards.
func (d *Deck) validate() error {
	n := len(Cards(d.Kind))
	if n == 0 {
		return fmt.Errorf("unknown deck kind %q", d.Kind)
	}
	if len(d.Order) != n {
		return fmt.Errorf("%s deck has %d cards, want %d", d.Kind, len(d.Order), n)
	}
	seen := make([]bool, n)
	for _, idx := range d.Order {
		if idx < 0 || idx >= n || seen[idx] {
			return fmt.Errorf("%s deck order is not a permutation", d.Kind)
		}
		seen[idx] = true
	}
	if d.Cursor < 0 || d.Cursor >= n {
		return fmt.Errorf("%s deck cursor %d out of range", d.Kind, d.Cursor)
	}
	return nil
}

func (d Deck) clone() Deck {
	d.Order = append([]int(nil), d.Order...)
	return d
}
