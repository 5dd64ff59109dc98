package game

import (
	"encoding/json"
	"testing"
)

// stubGame is a minimal Game implementation for testing the registry.
type stubGame struct {
	name       string
	minPlayers int
	maxPlayers int
}

func (s stubGame) Info() GameInfo {
	return GameInfo{Name: s.name, MinPlayers: s.minPlayers, MaxPlayers: s.maxPlayers}
}

func (s stubGame) NewMatch(config MatchConfig) (Match, error) {
	return &stubMatch{}, nil
}

func (s stubGame) RestoreMatch(data []byte) (Match, error) {
	return &stubMatch{}, nil
}

// stubMatch is a minimal Match implementation.
type stubMatch struct{}

func (m *stubMatch) State(playerID string) any               { return nil }
func (m *stubMatch) ValidActions(playerID string) []Action   { return nil }
func (m *stubMatch) CurrentPlayer() string                   { return "" }
func (m *stubMatch) RequiresTurn(Action) bool                { return false }
func (m *stubMatch) ApplyAction(string, Action) (any, error) { return nil, nil }
func (m *stubMatch) IsOver() bool                            { return false }
func (m *stubMatch) Results() []PlayerResult                 { return nil }
func (m *stubMatch) MarshalJSON() ([]byte, error)            { return json.Marshal(struct{}{}) }
func (m *stubMatch) UnmarshalJSON(data []byte) error         { return nil }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	g := stubGame{name: "classic", minPlayers: 2, maxPlayers: 8}
	r.Register(g)

	got, ok := r.Get("classic")
	if !ok {
		t.Fatal("expected to find registered variant")
	}
	if got.Info().Name != "classic" {
		t.Fatalf("expected name classic, got %s", got.Info().Name)
	}

	_, ok = r.Get("nonexistent")
	if ok {
		t.Fatal("expected not found for unregistered variant")
	}
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(stubGame{name: "jackpot", minPlayers: 2, maxPlayers: 8})
	r.Register(stubGame{name: "classic", minPlayers: 2, maxPlayers: 8})

	infos := r.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(infos))
	}
	if infos[0].Name != "classic" || infos[1].Name != "jackpot" {
		t.Fatalf("expected sorted names, got %v", infos)
	}
}

func TestRegistryListEmpty(t *testing.T) {
	r := NewRegistry()
	infos := r.List()
	if len(infos) != 0 {
		t.Fatalf("expected 0 variants, got %d", len(infos))
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	g := stubGame{name: "classic", minPlayers: 2, maxPlayers: 8}
	r.Register(g)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	r.Register(g) // should panic
}

func TestRegistryUnnamedPanics(t *testing.T) {
	r := NewRegistry()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for an unnamed variant")
		}
	}()
	r.Register(stubGame{})
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(stubGame{name: "classic", minPlayers: 2, maxPlayers: 8})

	if g, err := r.Lookup("classic"); err != nil || g.Info().Name != "classic" {
		t.Fatalf("lookup classic: %v", err)
	}
	_, err := r.Lookup("speed")
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}
