package monopoly

import (
	"testing"

	"monopoly/internal/game"
)

func TestTradeAcceptMovesEverything(t *testing.T) {
	tg := newTestGame(t)
	tg.give(t, "alice", 1)
	tg.give(t, "bob", 3)

	tr, err := tg.ProposeTrade("alice", Offer{To: "bob", OfferedProperties: []int{1}, RequestedProperties: []int{3}, RequestedMoney: 500})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if tr.Status != TradePending || len(tg.Trades) != 1 || tr.From != "alice" {
		t.Fatalf("unexpected trade: %+v", tr)
	}

	_, err = tg.RespondTrade("alice", tr.ID, true)
	expectKind(t, err, game.KindAuthorization)

	done, err := tg.RespondTrade("bob", tr.ID, true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if done.Status != TradeAccepted || len(tg.Trades) != 0 {
		t.Fatalf("trade not closed: %+v", done)
	}
	alice, bob := tg.player(t, "alice"), tg.player(t, "bob")
	if tg.Board[1].Owner != "bob" || tg.Board[3].Owner != "alice" || !alice.owns(3) || !bob.owns(1) {
		t.Fatal("properties did not swap")
	}
	if alice.Money != 15500 || bob.Money != 14500 {
		t.Fatalf("money alice=%d bob=%d", alice.Money, bob.Money)
	}
	mustInvariants(t, tg.Game)
}

func TestTradeValidation(t *testing.T) {
	tg := newTestGame(t, "alice", "bob", "carol")
	tg.give(t, "alice", 1)
	tg.give(t, "bob", 3)

	cases := []struct {
		name  string
		offer Offer
		kind  game.Kind
	}{
		{"self", Offer{To: "alice", OfferedMoney: 10}, game.KindValidation},
		{"unknown", Offer{To: "dave", OfferedMoney: 10}, game.KindNotFound},
		{"empty", Offer{To: "bob"}, game.KindValidation},
		{"negative", Offer{To: "bob", OfferedMoney: -5}, game.KindValidation},
		{"too much money", Offer{To: "bob", OfferedMoney: 20000}, game.KindInsufficientFunds},
		{"not owned", Offer{To: "bob", OfferedProperties: []int{3}}, game.KindValidation},
		{"wrong counterparty", Offer{To: "carol", RequestedProperties: []int{3}}, game.KindValidation},
		{"not a deed", Offer{To: "bob", OfferedProperties: []int{0}}, game.KindValidation},
		{"duplicate", Offer{To: "bob", OfferedProperties: []int{1, 1}}, game.KindValidation},
	}
	for _, tc := range cases {
		_, err := tg.ProposeTrade("alice", tc.offer)
		if err == nil || game.KindOf(err) != tc.kind {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
	}
	if len(tg.Trades) != 0 {
		t.Fatalf("rejected proposals were stored: %d", len(tg.Trades))
	}

	tg.Board[1].Mortgaged = true
	_, err := tg.ProposeTrade("alice", Offer{To: "bob", OfferedProperties: []int{1}})
	expectKind(t, err, game.KindValidation)

	tg.Board[3].Mortgaged = true
	if _, err := tg.ProposeTrade("alice", Offer{To: "bob", RequestedProperties: []int{3}, OfferedMoney: 100}); err != nil {
		t.Fatalf("requesting a mortgaged space is allowed: %v", err)
	}
}

func TestTradeGoesStale(t *testing.T) {
	tg := newTestGame(t)
	tg.give(t, "alice", 1)
	tr, err := tg.ProposeTrade("alice", Offer{To: "bob", OfferedProperties: []int{1}, RequestedMoney: 100})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := tg.Mortgage("alice", 1); err != nil {
		t.Fatalf("mortgage: %v", err)
	}
	_, err = tg.RespondTrade("bob", tr.ID, true)
	expectKind(t, err, game.KindStateConflict)
	if tg.Board[1].Owner != "alice" || tg.player(t, "bob").Money != 15000 {
		t.Fatal("stale trade must not move anything")
	}

	tg.player(t, "bob").Money = 50
	tg.Board[1].Mortgaged = false
	_, err = tg.RespondTrade("bob", tr.ID, true)
	expectKind(t, err, game.KindInsufficientFunds)
}

func TestTradeRejectAndCancel(t *testing.T) {
	tg := newTestGame(t)
	first, err := tg.ProposeTrade("alice", Offer{To: "bob", OfferedMoney: 100})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	second, err := tg.ProposeTrade("alice", Offer{To: "bob", OfferedMoney: 200})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	rejected, err := tg.RespondTrade("bob", first.ID, false)
	if err != nil || rejected.Status != TradeRejected {
		t.Fatalf("reject: %+v %v", rejected, err)
	}
	if len(tg.Trades) != 1 || tg.Trades[0].ID != second.ID {
		t.Fatalf("wrong trade removed")
	}

	_, err = tg.CancelTrade("bob", second.ID)
	expectKind(t, err, game.KindAuthorization)
	cancelled, err := tg.CancelTrade("alice", second.ID)
	if err != nil || cancelled.Status != TradeCancelled {
		t.Fatalf("cancel: %+v %v", cancelled, err)
	}
	_, err = tg.CancelTrade("alice", second.ID)
	expectKind(t, err, game.KindNotFound)
	if tg.player(t, "alice").Money != 15000 {
		t.Fatal("rejected trades must not move money")
	}
}
