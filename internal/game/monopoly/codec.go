package monopoly

import (
	"encoding/json"
	"fmt"
	"strings"

	"monopoly/internal/game"
)

// SnapshotVersion is the document format version.
const SnapshotVersion = 1

// Document is the versioned, self-contained form of a Game used for
// persistence and client resynchronisation.
type Document struct {
	Version            int      `json:"version"`
	BoardVersion       int      `json:"boardVersion"`
	RoomCode           string   `json:"roomCode"`
	Status             Status   `json:"status"`
	Players            []Player `json:"players"`
	CurrentPlayerIndex int      `json:"currentPlayerIndex"`
	TurnNumber         int      `json:"turnNumber"`
	Board              []Space  `json:"board"`
	Dice               Dice     `json:"dice"`
	DoublesStreak      int      `json:"doublesStreak"`
	HasRolled          bool     `json:"hasRolled"`
	CanRollAgain       bool     `json:"canRollAgain"`
	PendingPurchase    int      `json:"pendingPurchase"`
	ChanceDeck         *Deck    `json:"chanceDeck"`
	CommunityDeck      *Deck    `json:"communityDeck"`
	AvailableHouses    int      `json:"availableHouses"`
	AvailableHotels    int      `json:"availableHotels"`
	FreeParkingPot     int      `json:"freeParkingPot"`
	ActiveTrades       []Trade  `json:"activeTrades"`
	ActiveAuction      *Auction `json:"activeAuction"`
	History            []Record `json:"history"`
	HistorySeq         int      `json:"historySeq"`
	Winner             string   `json:"winner,omitempty"`
	Rules              Rules    `json:"rules"`
}

var requiredFields = []string{
	"version", "boardVersion", "roomCode", "status", "players",
	"currentPlayerIndex", "turnNumber", "board", "chanceDeck",
	"communityDeck", "availableHouses", "availableHotels", "rules",
}

// Serialize captures g, keeping only the most recent history window.
func Serialize(g *Game) *Document {
	doc := &Document{
		Version:            SnapshotVersion,
		BoardVersion:       BoardVersion,
		RoomCode:           g.RoomCode,
		Status:             g.Status,
		Players:            make([]Player, len(g.Players)),
		CurrentPlayerIndex: g.Current,
		TurnNumber:         g.TurnNumber,
		Board:              make([]Space, len(g.Board)),
		Dice:               g.Dice,
		DoublesStreak:      g.DoublesStreak,
		HasRolled:          g.HasRolled,
		CanRollAgain:       g.CanRollAgain,
		PendingPurchase:    g.PendingPurchase,
		AvailableHouses:    g.AvailableHouses,
		AvailableHotels:    g.AvailableHotels,
		FreeParkingPot:     g.FreeParkingPot,
		ActiveTrades:       make([]Trade, len(g.Trades)),
		ActiveAuction:      g.Auction.clone(),
		HistorySeq:         g.HistorySeq,
		Winner:             g.Winner,
		Rules:              g.Rules,
	}
	for i, p := range g.Players {
		doc.Players[i] = p.clone()
	}
	for i, s := range g.Board {
		if s.Rent != nil {
			s.Rent = append([]int(nil), s.Rent...)
		}
		doc.Board[i] = s
	}
	chance, community := g.Chance.clone(), g.Community.clone()
	doc.ChanceDeck, doc.CommunityDeck = &chance, &community
	for i, t := range g.Trades {
		doc.ActiveTrades[i] = t.clone()
	}
	window := g.Rules.HistoryWindow
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	doc.History = append([]Record{}, g.RecentHistory(window)...)
	return doc
}

// Validate reports every structural problem with doc. An empty result means
// the document can be deserialized.
func Validate(doc *Document) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if doc == nil {
		return []error{fmt.Errorf("document is empty")}
	}
	if doc.Version != SnapshotVersion {
		add("unsupported snapshot version %d", doc.Version)
	}
	if doc.BoardVersion != BoardVersion {
		add("snapshot board version %d does not match %d", doc.BoardVersion, BoardVersion)
	}
	if doc.RoomCode == "" {
		add("roomCode is required")
	}
	if doc.Status != StatusActive && doc.Status != StatusFinished {
		add("unknown status %q", doc.Status)
	}
	if n := len(doc.Players); n < MinPlayers || n > MaxPlayers {
		add("player count %d outside %d-%d", n, MinPlayers, MaxPlayers)
	}
	ids := make(map[string]bool, len(doc.Players))
	for i, p := range doc.Players {
		if p.ID == "" {
			add("player %d has no id", i)
		} else if ids[p.ID] {
			add("duplicate player id %s", p.ID)
		}
		ids[p.ID] = true
	}
	if doc.CurrentPlayerIndex < 0 || doc.CurrentPlayerIndex >= len(doc.Players) {
		add("currentPlayerIndex %d out of range", doc.CurrentPlayerIndex)
	}
	if doc.TurnNumber < 1 {
		add("turnNumber must be positive")
	}
	if len(doc.Board) != BoardSize {
		add("board has %d spaces, want %d", len(doc.Board), BoardSize)
	} else {
		for i, s := range doc.Board {
			if s.Index != i {
				add("space at position %d has index %d", i, s.Index)
				continue
			}
			if err := checkTemplate(s); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, d := range []struct {
		deck *Deck
		kind DeckKind
	}{{doc.ChanceDeck, DeckChance}, {doc.CommunityDeck, DeckCommunity}} {
		switch {
		case d.deck == nil:
			add("%s deck is required", d.kind)
		case d.deck.Kind != d.kind:
			add("expected %s deck, got %q", d.kind, d.deck.Kind)
		default:
			if err := d.deck.validate(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if doc.AvailableHouses < 0 || doc.AvailableHouses > TotalHouses {
		add("availableHouses %d out of range", doc.AvailableHouses)
	}
	if doc.AvailableHotels < 0 || doc.AvailableHotels > TotalHotels {
		add("availableHotels %d out of range", doc.AvailableHotels)
	}
	for _, v := range doc.Dice {
		if v < 0 || v > 6 {
			add("die value %d out of range", v)
		}
	}
	if doc.DoublesStreak < 0 || doc.DoublesStreak > 2 {
		add("doublesStreak %d out of range", doc.DoublesStreak)
	}
	if doc.PendingPurchase != NoSpace && (doc.PendingPurchase < 0 || doc.PendingPurchase >= BoardSize) {
		add("pendingPurchase %d out of range", doc.PendingPurchase)
	}
	if doc.FreeParkingPot < 0 {
		add("freeParkingPot is negative")
	}
	for _, t := range doc.ActiveTrades {
		if t.ID == "" || !ids[t.From] || !ids[t.To] {
			add("trade %q references unknown players", t.ID)
		}
	}
	if a := doc.ActiveAuction; a != nil && (a.Space < 0 || a.Space >= BoardSize) {
		add("auction space %d out of range", a.Space)
	}
	if doc.Status == StatusFinished && !ids[doc.Winner] {
		add("finished game has unknown winner %q", doc.Winner)
	}
	return errs
}

// Deserialize rebuilds a Game from doc. Nothing is constructed unless the
// document validates, and the rebuilt game must satisfy every invariant.
func Deserialize(doc *Document, opts ...Option) (*Game, error) {
	if errs := Validate(doc); len(errs) > 0 {
		return nil, invalidSnapshot(errs)
	}
	g := &Game{
		RoomCode:        doc.RoomCode,
		Status:          doc.Status,
		Players:         make([]*Player, len(doc.Players)),
		Current:         doc.CurrentPlayerIndex,
		TurnNumber:      doc.TurnNumber,
		Board:           make([]Space, len(doc.Board)),
		Dice:            doc.Dice,
		DoublesStreak:   doc.DoublesStreak,
		HasRolled:       doc.HasRolled,
		CanRollAgain:    doc.CanRollAgain,
		PendingPurchase: doc.PendingPurchase,
		Chance:          doc.ChanceDeck.clone(),
		Community:       doc.CommunityDeck.clone(),
		AvailableHouses: doc.AvailableHouses,
		AvailableHotels: doc.AvailableHotels,
		FreeParkingPot:  doc.FreeParkingPot,
		Trades:          make([]*Trade, len(doc.ActiveTrades)),
		Auction:         doc.ActiveAuction.clone(),
		History:         append([]Record{}, doc.History...),
		HistorySeq:      doc.HistorySeq,
		Winner:          doc.Winner,
		Rules:           doc.Rules,
	}
	for i, p := range doc.Players {
		cp := p.clone()
		g.Players[i] = &cp
	}
	copy(g.Board, doc.Board)
	for i, t := range doc.ActiveTrades {
		ct := t.clone()
		g.Trades[i] = &ct
	}
	g.init(opts...)
	if err := g.checkInvariants(); err != nil {
		return nil, invalidSnapshot([]error{err})
	}
	return g, nil
}

func invalidSnapshot(errs []error) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return game.Validationf("invalid snapshot: %s", strings.Join(msgs, "; "))
}

// Encode serializes g to JSON.
func Encode(g *Game) ([]byte, error) {
	return json.Marshal(Serialize(g))
}

// Decode parses, validates and rebuilds a game from JSON.
func Decode(data []byte, opts ...Option) (*Game, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, game.Validationf("invalid snapshot: %v", err)
	}
	var missing []error
	for _, f := range requiredFields {
		if raw, ok := fields[f]; !ok || string(raw) == "null" {
			missing = append(missing, fmt.Errorf("%s is required", f))
		}
	}
	if len(missing) > 0 {
		return nil, invalidSnapshot(missing)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, game.Validationf("invalid snapshot: %v", err)
	}
	return Deserialize(&doc, opts...)
}

func (g *Game) MarshalJSON() ([]byte, error) {
	return Encode(g)
}

// UnmarshalJSON replaces g with the decoded game. Injected dice, shuffle and
// clock sources are kept. On error g is left untouched.
func (g *Game) UnmarshalJSON(data []byte) error {
	ng, err := Decode(data)
	if err != nil {
		return err
	}
	roller, rng, now := g.roller, g.rng, g.now
	*g = *ng
	if roller != nil {
		g.roller = roller
	}
	if rng != nil {
		g.rng = rng
	}
	if now != nil {
		g.now = now
	}
	return nil
}
