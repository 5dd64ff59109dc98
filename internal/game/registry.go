package game

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry maps variant names ("classic", "jackpot") to their rule sets.
// Variants are registered once at startup and looked up on every room
// create and restore.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]Game
}

func NewRegistry() *Registry {
	return &Registry{variants: make(map[string]Game)}
}

// Register panics if the name is empty or taken, since both are wiring bugs.
func (r *Registry) Register(g Game) {
	name := g.Info().Name
	if name == "" {
		panic("variant registered without a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.variants[name]; dup {
		panic(fmt.Sprintf("variant %q already registered", name))
	}
	r.variants[name] = g
}

func (r *Registry) Get(name string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.variants[name]
	return g, ok
}

// Lookup is Get for callers that report to players: a missing variant is a
// NotFound error.
func (r *Registry) Lookup(name string) (Game, error) {
	g, ok := r.Get(name)
	if !ok {
		return nil, NotFoundf("unknown variant: %s", name)
	}
	return g, nil
}

// List describes every variant, ordered by name for stable API output.
func (r *Registry) List() []GameInfo {
	r.mu.RLock()
	infos := make([]GameInfo, 0, len(r.variants))
	for _, g := range r.variants {
		infos = append(infos, g.Info())
	}
	r.mu.RUnlock()
	slices.SortFunc(infos, func(a, b GameInfo) int { return strings.Compare(a.Name, b.Name) })
	return infos
}
