package game

import (
	"encoding/json"
	"time"
)

// GameInfo describes a rule variant for the lobby.
type GameInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MinPlayers  int    `json:"minPlayers"`
	MaxPlayers  int    `json:"maxPlayers"`
}

// Seat is one participant handed over by the room roster, in turn order.
type Seat struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Settings are per-room overrides. Zero values keep the variant default.
type Settings struct {
	StartingMoney      int  `json:"startingMoney,omitempty"`
	GoSalary           int  `json:"goSalary,omitempty"`
	JailFine           int  `json:"jailFine,omitempty"`
	FreeParkingJackpot bool `json:"freeParkingJackpot,omitempty"`
	DisableAuctions    bool `json:"disableAuctions,omitempty"`
	StrictDebts        bool `json:"strictDebts,omitempty"`
	MaxPlayers         int  `json:"maxPlayers,omitempty"`
	Public             bool `json:"public,omitempty"`
}

// MatchConfig holds settings for creating a new match.
type MatchConfig struct {
	RoomCode string
	Seats    []Seat
	Settings Settings
}

// Action represents an intent submitted by a player.
type Action struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PlayerResult holds the outcome for one player.
type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Rank     int    `json:"rank"` // 1 = first place
	Score    int    `json:"score"`
}

// Game describes a rule variant.
type Game interface {
	Info() GameInfo
	NewMatch(config MatchConfig) (Match, error)
	// RestoreMatch rebuilds a match from a persisted snapshot. It must reject
	// the document before constructing anything if it is not valid.
	RestoreMatch(data []byte) (Match, error)
}

// Match is one in-progress game.
type Match interface {
	State(playerID string) any
	ValidActions(playerID string) []Action
	CurrentPlayer() string
	// RequiresTurn reports whether only the current player may submit action.
	RequiresTurn(action Action) bool
	ApplyAction(playerID string, action Action) (any, error)
	IsOver() bool
	Results() []PlayerResult
	// MarshalJSON / UnmarshalJSON support for persistence
	MarshalJSON() ([]byte, error)
	UnmarshalJSON(data []byte) error
}

// Expirer is implemented by matches with wall-clock deadlines that a
// scheduled sweep has to close.
type Expirer interface {
	Expire(now time.Time) (any, bool)
}
