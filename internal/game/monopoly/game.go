package monopoly

import (
	"fmt"
	"math/rand/v2"
	"time"

	"monopoly/internal/game"
)

// Status of a match.
type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// NoSpace marks an absent board index.
const NoSpace = -1

// Dice is one roll of two six-sided dice.
type Dice [2]int

func (d Dice) Sum() int       { return d[0] + d[1] }
func (d Dice) IsDouble() bool { return d[0] != 0 && d[0] == d[1] }

// Roller produces dice server-side.
type Roller interface {
	Roll() Dice
}

type randomRoller struct{ r *rand.Rand }

func (rr randomRoller) Roll() Dice {
	return Dice{rr.r.IntN(6) + 1, rr.r.IntN(6) + 1}
}

// Game is the authoritative state of one room's match. It is not safe for
// concurrent use; the owning room serializes every call.
type Game struct {
	RoomCode        string
	Status          Status
	Players         []*Player
	Current         int
	TurnNumber      int
	Board           []Space
	Dice            Dice
	DoublesStreak   int
	HasRolled       bool
	CanRollAgain    bool
	PendingPurchase int
	Chance          Deck
	Community       Deck
	AvailableHouses int
	AvailableHotels int
	FreeParkingPot  int
	Trades          []*Trade
	Auction         *Auction
	History         []Record
	HistorySeq      int
	Winner          string
	Rules           Rules

	roller Roller
	rng    Shuffler
	now    func() time.Time
}

// Option configures a Game.
type Option func(*Game)

// WithRoller replaces the dice source.
func WithRoller(r Roller) Option {
	return func(g *Game) { g.roller = r }
}

// WithShuffler replaces the deck shuffle source.
func WithShuffler(s Shuffler) Option {
	return func(g *Game) { g.rng = s }
}

// WithClock replaces the wall clock used for auction deadlines and history.
func WithClock(now func() time.Time) Option {
	return func(g *Game) { g.now = now }
}

var seatColors = []string{"#e53935", "#1e88e5", "#43a047", "#fdd835", "#8e24aa", "#fb8c00", "#00acc1", "#6d4c41"}

// New starts a match for the given seats in turn order.
func New(roomCode string, seats []game.Seat, rules Rules, opts ...Option) (*Game, error) {
	if len(seats) < MinPlayers || len(seats) > MaxPlayers {
		return nil, game.Validationf("need %d-%d players, have %d", MinPlayers, MaxPlayers, len(seats))
	}
	g := &Game{
		RoomCode:        roomCode,
		Status:          StatusActive,
		TurnNumber:      1,
		Board:           NewBoard(),
		PendingPurchase: NoSpace,
		AvailableHouses: TotalHouses,
		AvailableHotels: TotalHotels,
		Trades:          []*Trade{},
		History:         []Record{},
		Rules:           rules,
	}
	g.init(opts...)

	seen := make(map[string]bool, len(seats))
	for i, s := range seats {
		if s.ID == "" {
			return nil, game.Validationf("seat %d has no player id", i)
		}
		if seen[s.ID] {
			return nil, game.Validationf("duplicate player id %s", s.ID)
		}
		seen[s.ID] = true
		color := s.Color
		if color == "" {
			color = seatColors[i%len(seatColors)]
		}
		name := s.Name
		if name == "" {
			name = s.ID
		}
		g.Players = append(g.Players, &Player{
			ID:         s.ID,
			Name:       name,
			Color:      color,
			Money:      rules.StartingMoney,
			Properties: []int{},
		})
	}
	g.Chance = NewDeck(DeckChance, g.rng)
	g.Community = NewDeck(DeckCommunity, g.rng)
	g.record(Record{Type: RecGameStart, PlayerID: g.Players[0].ID, Amount: len(g.Players)})
	return g, nil
}

func (g *Game) init(opts ...Option) {
	r := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	g.roller = randomRoller{r: r}
	g.rng = r
	g.now = time.Now
	for _, opt := range opts {
		opt(g)
	}
}

// CurrentPlayer returns the id of the player whose turn it is.
func (g *Game) CurrentPlayer() string {
	if len(g.Players) == 0 {
		return ""
	}
	return g.Players[g.Current].ID
}

// Player looks up a player by id.
func (g *Game) Player(id string) (*Player, bool) {
	for _, p := range g.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (g *Game) requireActive() error {
	if g.Status != StatusActive {
		return game.StateConflictf("game is over")
	}
	return nil
}

// requireSolvent returns the player if they are seated and not bankrupt.
func (g *Game) requireSolvent(playerID string) (*Player, error) {
	if err := g.requireActive(); err != nil {
		return nil, err
	}
	p, ok := g.Player(playerID)
	if !ok {
		return nil, game.NotFoundf("player %s is not in this game", playerID)
	}
	if p.Bankrupt {
		return nil, game.StateConflictf("%s is bankrupt", p.Name)
	}
	return p, nil
}

// requireTurn returns the player if it is their turn.
func (g *Game) requireTurn(playerID string) (*Player, error) {
	p, err := g.requireSolvent(playerID)
	if err != nil {
		return nil, err
	}
	if g.CurrentPlayer() != playerID {
		return nil, game.Authorizationf("not your turn")
	}
	return p, nil
}

func (g *Game) space(index int) (*Space, error) {
	if index < 0 || index >= len(g.Board) {
		return nil, game.Validationf("space %d out of range", index)
	}
	return &g.Board[index], nil
}

// solvent returns the players still in the game.
func (g *Game) solvent() []*Player {
	var out []*Player
	for _, p := range g.Players {
		if !p.Bankrupt {
			out = append(out, p)
		}
	}
	return out
}

// opponents returns the solvent players other than p, in seat order.
func (g *Game) opponents(p *Player) []*Player {
	var out []*Player
	for _, o := range g.Players {
		if o.ID != p.ID && !o.Bankrupt {
			out = append(out, o)
		}
	}
	return out
}

// toBank routes money paid to the bank into the free-parking pot when the
// jackpot rule is on.
func (g *Game) toBank(amount int) {
	if g.Rules.FreeParkingJackpot {
		g.FreeParkingPot += amount
	}
}

func (g *Game) nowMillis() int64 {
	return g.now().UnixMilli()
}

func (g *Game) String() string {
	return fmt.Sprintf("game %s turn %d (%s)", g.RoomCode, g.TurnNumber, g.Status)
}
