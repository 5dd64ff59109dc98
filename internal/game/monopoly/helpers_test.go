package monopoly

import (
	"encoding/json"
	"testing"
	"time"

	"monopoly/internal/game"
)

// scriptedRoller returns the queued dice in order, then [1,2] forever.
type scriptedRoller struct {
	rolls []Dice
}

func (s *scriptedRoller) Roll() Dice {
	if len(s.rolls) == 0 {
		return Dice{1, 2}
	}
	d := s.rolls[0]
	s.rolls = s.rolls[1:]
	return d
}

func (s *scriptedRoller) queue(rolls ...Dice) {
	s.rolls = append(s.rolls, rolls...)
}

// countingShuffler leaves the order untouched and counts reshuffles.
type countingShuffler struct {
	calls int
}

func (c *countingShuffler) Shuffle(n int, swap func(i, j int)) {
	c.calls++
}

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type testGame struct {
	*Game
	dice  *scriptedRoller
	shuf  *countingShuffler
	clock *testClock
}

func newTestGame(t *testing.T, ids ...string) *testGame {
	t.Helper()
	if len(ids) == 0 {
		ids = []string{"alice", "bob"}
	}
	seats := make([]game.Seat, len(ids))
	for i, id := range ids {
		seats[i] = game.Seat{ID: id, Name: id}
	}
	tg := &testGame{
		dice:  &scriptedRoller{},
		shuf:  &countingShuffler{},
		clock: &testClock{t: time.UnixMilli(1_700_000_000_000)},
	}
	g, err := New("ROOM01", seats, DefaultRules(), WithRoller(tg.dice), WithShuffler(tg.shuf), WithClock(tg.clock.now))
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	tg.Game = g
	return tg
}

func (tg *testGame) player(t *testing.T, id string) *Player {
	t.Helper()
	p, ok := tg.Player(id)
	if !ok {
		t.Fatalf("player %s not found", id)
	}
	return p
}

// give hands spaces to a player directly.
func (tg *testGame) give(t *testing.T, id string, indices ...int) {
	t.Helper()
	p := tg.player(t, id)
	for _, idx := range indices {
		tg.Board[idx].Owner = id
		p.addProperty(idx)
	}
}

// setTurn makes id the current player at the start of a fresh turn.
func (tg *testGame) setTurn(t *testing.T, id string) {
	t.Helper()
	for i, p := range tg.Players {
		if p.ID == id {
			tg.Current = i
			tg.HasRolled = false
			tg.CanRollAgain = false
			tg.PendingPurchase = NoSpace
			return
		}
	}
	t.Fatalf("player %s not found", id)
}

func mustInvariants(t *testing.T, g *Game) {
	t.Helper()
	if err := g.checkInvariants(); err != nil {
		t.Fatalf("invariant broken: %v", err)
	}
}

func expectKind(t *testing.T, err error, kind game.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := game.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func action(t *testing.T, actionType string, payload any) game.Action {
	t.Helper()
	a := game.Action{Type: actionType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		a.Payload = data
	}
	return a
}
