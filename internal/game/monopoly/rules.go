package monopoly

import (
	"time"

	"monopoly/internal/game"
)

const (
	MinPlayers = 2
	MaxPlayers = 8

	DefaultStartingMoney    = 15000
	DefaultGoSalary         = 2000
	DefaultJailFine         = 500
	DefaultMaxJailTurns     = 3
	DefaultAuctionDuration  = 30 * time.Second
	DefaultAuctionExtension = 10 * time.Second
	DefaultHistoryWindow    = 100
)

// Rules are the tunable parameters of a match.
type Rules struct {
	StartingMoney      int           `json:"startingMoney"`
	GoSalary           int           `json:"goSalary"`
	JailFine           int           `json:"jailFine"`
	MaxJailTurns       int           `json:"maxJailTurns"`
	FreeParkingJackpot bool          `json:"freeParkingJackpot"`
	AuctionEnabled     bool          `json:"auctionEnabled"`
	AuctionDuration    time.Duration `json:"auctionDuration"`
	AuctionExtension   time.Duration `json:"auctionExtension"`
	// StrictDebts makes a player who cannot cover rent or tax go bankrupt
	// immediately. When false the payment is capped at the payer's balance
	// and the shortfall is only reported.
	StrictDebts   bool `json:"strictDebts"`
	HistoryWindow int  `json:"historyWindow"`
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		StartingMoney:    DefaultStartingMoney,
		GoSalary:         DefaultGoSalary,
		JailFine:         DefaultJailFine,
		MaxJailTurns:     DefaultMaxJailTurns,
		AuctionEnabled:   true,
		AuctionDuration:  DefaultAuctionDuration,
		AuctionExtension: DefaultAuctionExtension,
		HistoryWindow:    DefaultHistoryWindow,
	}
}

// With applies room settings on top of the rules.
func (r Rules) With(s game.Settings) Rules {
	if s.StartingMoney > 0 {
		r.StartingMoney = s.StartingMoney
	}
	if s.GoSalary > 0 {
		r.GoSalary = s.GoSalary
	}
	if s.JailFine > 0 {
		r.JailFine = s.JailFine
	}
	if s.FreeParkingJackpot {
		r.FreeParkingJackpot = true
	}
	if s.DisableAuctions {
		r.AuctionEnabled = false
	}
	if s.StrictDebts {
		r.StrictDebts = true
	}
	return r
}
