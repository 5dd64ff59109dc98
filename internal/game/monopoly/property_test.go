package monopoly

import (
	"testing"

	"monopoly/internal/game"
)

func TestBuyRequiresPendingDecision(t *testing.T) {
	tg := newTestGame(t)
	tg.player(t, "alice").Position = 1
	_, err := tg.Buy("alice")
	expectKind(t, err, game.KindStateConflict)

	tg.player(t, "alice").Position = 2
	_, err = tg.Buy("alice")
	expectKind(t, err, game.KindValidation)
}

func TestBuyInsufficientFunds(t *testing.T) {
	tg := newTestGame(t)
	alice := tg.player(t, "alice")
	alice.Money = 100
	alice.Position = 32
	tg.dice.queue(Dice{3, 4})
	res, err := tg.Roll("alice")
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if res.Landing.CanAfford {
		t.Fatal("alice cannot afford 4000")
	}
	_, err = tg.Buy("alice")
	expectKind(t, err, game.KindInsufficientFunds)
	if alice.Money != 100 || tg.Board[39].Owned() {
		t.Fatal("failed purchase must not change anything")
	}
}

func TestDeclineWithoutAuctions(t *testing.T) {
	tg := newTestGame(t)
	tg.Rules.AuctionEnabled = false
	tg.player(t, "alice").Position = 32
	tg.dice.queue(Dice{3, 4})
	if _, err := tg.Roll("alice"); err != nil {
		t.Fatalf("roll: %v", err)
	}
	a, err := tg.DeclinePurchase("alice")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if a != nil || tg.Auction != nil || tg.PendingPurchase != NoSpace {
		t.Fatalf("expected no auction, got %+v", a)
	}
	if _, err := tg.EndTurn("alice"); err != nil {
		t.Fatalf("end turn: %v", err)
	}
}

func TestMortgageAndUnmortgage(t *testing.T) {
	tg := newTestGame(t)
	tg.give(t, "alice", 5)
	alice := tg.player(t, "alice")

	res, err := tg.Mortgage("alice", 5)
	if err != nil {
		t.Fatalf("mortgage: %v", err)
	}
	if res.Amount != 1000 || alice.Money != 16000 || !tg.Board[5].Mortgaged {
		t.Fatalf("mortgage: %+v", res)
	}
	_, err = tg.Mortgage("alice", 5)
	expectKind(t, err, game.KindStateConflict)

	res, err = tg.Unmortgage("alice", 5)
	if err != nil {
		t.Fatalf("unmortgage: %v", err)
	}
	if res.Amount != 1100 || alice.Money != 14900 || tg.Board[5].Mortgaged {
		t.Fatalf("unmortgage: %+v", res)
	}
	_, err = tg.Unmortgage("alice", 5)
	expectKind(t, err, game.KindStateConflict)

	_, err = tg.Mortgage("bob", 5)
	expectKind(t, err, game.KindAuthorization)
}

func TestUnmortgageInsufficientFunds(t *testing.T) {
	tg := newTestGame(t)
	tg.give(t, "alice", 39)
	if _, err := tg.Mortgage("alice", 39); err != nil {
		t.Fatalf("mortgage: %v", err)
	}
	tg.player(t, "alice").Money = 2199
	_, err := tg.Unmortgage("alice", 39)
	expectKind(t, err, game.KindInsufficientFunds)
	if !tg.Board[39].Mortgaged {
		t.Fatal("space should still be mortgaged")
	}
}

func TestMortgageBlockedByBuildingsInGroup(t *testing.T) {
	tg := newTestGame(t)
	tg.give(t, "alice", 1, 3)
	if _, err := tg.Build("alice", 1); err != nil {
		t.Fatalf("build: %v", err)
	}
	_, err := tg.Mortgage("alice", 3)
	expectKind(t, err, game.KindValidation)
}

func TestBuildRequiresMonopoly(t *testing.T) {
	tg := newTestGame(t)
	tg.give(t, "alice", 6, 8)
	_, err := tg.Build("alice", 6)
	expectKind(t, err, game.KindValidation)

	tg.give(t, "alice", 9, 5)
	_, err = tg.Build("alice", 5)
	expectKind(t, err, game.KindValidation)

	tg.Board[8].Mortgaged = true
	_, err = tg.Build("alice", 6)
	expectKind(t, err, game.KindValidation)
}

func TestBuildEvenlyUpToHotel(t *testing.T) {
	tg := newTestGame(t)
	tg.give(t, "alice", 6, 8, 9)
	alice := tg.player(t, "alice")

	if _, err := tg.Build("alice", 6); err != nil {
		t.Fatalf("build: %v", err)
	}
	_, err := tg.Build("alice", 6)
	expectKind(t, err, game.KindValidation)

	for round := 0; round < 4; round++ {
		for _, idx := range []int{6, 8, 9} {
			if round == 0 && idx == 6 {
				continue
			}
			if _, err := tg.Build("alice", idx); err != nil {
				t.Fatalf("round %d build %d: %v", round, idx, err)
			}
		}
	}
	if tg.AvailableHouses != TotalHouses-12 {
		t.Fatalf("houses left = %d", tg.AvailableHouses)
	}

	res, err := tg.Build("alice", 6)
	if err != nil {
		t.Fatalf("hotel: %v", err)
	}
	if res.Space.Hotels != 1 || res.Space.Houses != 0 {
		t.Fatalf("expected hotel: %+v", res.Space)
	}
	if tg.AvailableHouses != TotalHouses-8 || tg.AvailableHotels != TotalHotels-1 {
		t.Fatalf("stock = %d/%d", tg.AvailableHouses, tg.AvailableHotels)
	}
	_, err = tg.Build("alice", 6)
	expectKind(t, err, game.KindValidation)
	if alice.Money != 15000-13*500 {
		t.Fatalf("money = %d", alice.Money)
	}
	mustInvariants(t, tg.Game)
}

func TestBuildOutOfStock(t *testing.T) {
	tg := newTestGame(t)
	tg.give(t, "alice", 1, 3)
	tg.AvailableHouses = 0
	_, err := tg.Build("alice", 1)
	expectKind(t, err, game.KindStateConflict)
}

func TestSellBuilding(t *testing.T) {
	tg := newTestGame(t)
	tg.give(t, "alice", 1, 3)
	alice := tg.player(t, "alice")
	for _, idx := range []int{1, 3, 1} {
		if _, err := tg.Build("alice", idx); err != nil {
			t.Fatalf("build %d: %v", idx, err)
		}
	}
	_, err := tg.SellBuilding("alice", 3)
	expectKind(t, err, game.KindValidation)

	res, err := tg.SellBuilding("alice", 1)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if res.Amount != 250 || tg.Board[1].Houses != 1 || alice.Money != 15000-1500+250 {
		t.Fatalf("sell: %+v money=%d", res, alice.Money)
	}
	if tg.AvailableHouses != TotalHouses-2 {
		t.Fatalf("houses left = %d", tg.AvailableHouses)
	}
	mustInvariants(t, tg.Game)
}

func TestSellHotelNeedsHouses(t *testing.T) {
	tg := newTestGame(t)
	tg.give(t, "alice", 1, 3)
	for _, idx := range []int{1, 3} {
		tg.Board[idx].Hotels = 1
	}
	tg.AvailableHotels -= 2
	tg.AvailableHouses = 3
	_, err := tg.SellBuilding("alice", 1)
	expectKind(t, err, game.KindStateConflict)

	tg.AvailableHouses = 4
	if _, err := tg.SellBuilding("alice", 1); err != nil {
		t.Fatalf("sell hotel: %v", err)
	}
	if tg.Board[1].Houses != 4 || tg.Board[1].Hotels != 0 || tg.AvailableHouses != 0 {
		t.Fatalf("hotel not broken up: %+v", tg.Board[1])
	}
}
