package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"monopoly/internal/game"
	"monopoly/internal/storage"
)

const (
	DefaultMaxRooms = 100
	codeLength      = 6
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Manager owns all live rooms.
type Manager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	registry *game.Registry
	store    storage.Store
	logger   *zap.Logger
	maxRooms int
	now      func() time.Time
}

// NewManager creates a room manager. maxRooms <= 0 uses DefaultMaxRooms.
func NewManager(registry *game.Registry, store storage.Store, logger *zap.Logger, maxRooms int) *Manager {
	if maxRooms <= 0 {
		maxRooms = DefaultMaxRooms
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		rooms:    make(map[string]*Room),
		registry: registry,
		store:    store,
		logger:   logger,
		maxRooms: maxRooms,
		now:      time.Now,
	}
}

// Create makes a new room and persists it.
func (m *Manager) Create(ctx context.Context, variant string, settings game.Settings) (*Room, error) {
	g, err := m.registry.Lookup(variant)
	if err != nil {
		return nil, err
	}
	info := g.Info()
	if settings.MaxPlayers != 0 && (settings.MaxPlayers < info.MinPlayers || settings.MaxPlayers > info.MaxPlayers) {
		return nil, game.Validationf("maxPlayers must be between %d and %d", info.MinPlayers, info.MaxPlayers)
	}
	if settings.StartingMoney < 0 || settings.GoSalary < 0 || settings.JailFine < 0 {
		return nil, game.Validationf("money settings must not be negative")
	}

	m.mu.Lock()
	if len(m.rooms) >= m.maxRooms {
		m.mu.Unlock()
		return nil, game.StateConflictf("server is full, try again later")
	}
	var code string
	for {
		c, err := generateCode()
		if err != nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := m.rooms[c]; !taken {
			code = c
			break
		}
	}
	r := NewRoom(code, variant, g, settings)
	r.CreatedAt = m.now()
	r.LastActive = r.CreatedAt
	m.rooms[code] = r
	m.mu.Unlock()

	if err := m.SaveState(ctx, r); err != nil {
		m.mu.Lock()
		delete(m.rooms, code)
		m.mu.Unlock()
		return nil, fmt.Errorf("persist room: %w", err)
	}
	m.logger.Info("room created", zap.String("room", code), zap.String("variant", variant))
	return r, nil
}

// Get returns a room by code.
func (m *Manager) Get(code string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	return r, ok
}

// Rooms returns a snapshot of all live rooms.
func (m *Manager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// List returns info for all live rooms, newest first.
func (m *Manager) List() []Info {
	rooms := m.Rooms()
	infos := make([]Info, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt != infos[j].CreatedAt {
			return infos[i].CreatedAt > infos[j].CreatedAt
		}
		return infos[i].Code < infos[j].Code
	})
	return infos
}

// ListPublic returns joinable public rooms.
func (m *Manager) ListPublic() []Info {
	var out []Info
	for _, info := range m.List() {
		if info.Public && info.Status == StatusWaiting && len(info.Members) < info.MaxPlayers {
			out = append(out, info)
		}
	}
	return out
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

type rosterEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Ready bool   `json:"ready"`
}

// SaveState persists the room and, once started, its match snapshot. The
// room read lock is held across the writes so snapshots reach the store in
// the order they were produced.
func (m *Manager) SaveState(ctx context.Context, r *Room) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roster := make([]rosterEntry, len(r.Members))
	for i, mem := range r.Members {
		roster[i] = rosterEntry{ID: mem.ID, Name: mem.Name, Color: mem.Color, Ready: mem.Ready}
	}
	rosterJSON, err := json.Marshal(roster)
	if err != nil {
		return fmt.Errorf("marshal roster: %w", err)
	}
	settingsJSON, err := json.Marshal(r.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	row := storage.RoomRow{
		Code:      r.Code,
		Variant:   r.Variant,
		Status:    string(r.Status),
		HostID:    r.HostID,
		Roster:    string(rosterJSON),
		Settings:  string(settingsJSON),
		CreatedAt: r.CreatedAt,
		UpdatedAt: m.now(),
	}
	if err := m.store.SaveRoom(ctx, row); err != nil {
		return err
	}
	if r.Match == nil {
		return nil
	}
	data, err := r.Match.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal match state: %w", err)
	}
	return m.store.SaveSnapshot(ctx, r.Code, data)
}

// SaveAll persists every live room, returning the first error.
func (m *Manager) SaveAll(ctx context.Context) error {
	var first error
	for _, r := range m.Rooms() {
		if err := m.SaveState(ctx, r); err != nil {
			m.logger.Error("save room", zap.String("room", r.Code), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Restore loads unfinished rooms from storage on startup. Members come back
// disconnected and rebind when they reconnect.
func (m *Manager) Restore(ctx context.Context) error {
	rows, err := m.store.ListRooms(ctx, "")
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	for _, row := range rows {
		if row.Status == string(StatusFinished) {
			continue
		}
		r, err := m.restoreRoom(ctx, row)
		if err != nil {
			m.logger.Warn("skipping room", zap.String("room", row.Code), zap.Error(err))
			continue
		}
		m.mu.Lock()
		m.rooms[row.Code] = r
		m.mu.Unlock()
	}
	m.logger.Info("rooms restored", zap.Int("count", m.Count()))
	return nil
}

func (m *Manager) restoreRoom(ctx context.Context, row storage.RoomRow) (*Room, error) {
	g, err := m.registry.Lookup(row.Variant)
	if err != nil {
		return nil, err
	}
	var settings game.Settings
	if row.Settings != "" {
		if err := json.Unmarshal([]byte(row.Settings), &settings); err != nil {
			return nil, fmt.Errorf("settings: %w", err)
		}
	}
	var roster []rosterEntry
	if row.Roster != "" {
		if err := json.Unmarshal([]byte(row.Roster), &roster); err != nil {
			return nil, fmt.Errorf("roster: %w", err)
		}
	}

	r := NewRoom(row.Code, row.Variant, g, settings)
	r.Status = Status(row.Status)
	r.HostID = row.HostID
	if !row.CreatedAt.IsZero() {
		r.CreatedAt = row.CreatedAt
	}
	r.LastActive = m.now()
	for _, e := range roster {
		r.Members = append(r.Members, &Member{ID: e.ID, Name: e.Name, Color: e.Color, Ready: e.Ready})
	}

	if r.Status == StatusPlaying {
		data, err := m.store.GetSnapshot(ctx, row.Code)
		if err != nil {
			return nil, fmt.Errorf("no match state: %w", err)
		}
		match, err := g.RestoreMatch(data)
		if err != nil {
			return nil, fmt.Errorf("restore match: %w", err)
		}
		r.Match = match
	}
	return r, nil
}

// Remove deletes a room from memory and storage and closes its connections.
func (m *Manager) Remove(ctx context.Context, code string) error {
	m.mu.Lock()
	r, ok := m.rooms[code]
	delete(m.rooms, code)
	m.mu.Unlock()
	if ok {
		r.mu.Lock()
		for _, mem := range r.Members {
			if mem.Send != nil {
				close(mem.Send)
				mem.Send = nil
				mem.Connected = false
			}
		}
		r.mu.Unlock()
	}
	if err := m.store.DeleteRoom(ctx, code); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// Sweep removes waiting rooms nobody is connected to that have been idle
// longer than idle, and finished rooms older than finished. Rooms with a
// match in progress are kept so they can be resumed. It returns the removed
// codes.
func (m *Manager) Sweep(ctx context.Context, idle, finished time.Duration) []string {
	now := m.now()
	var stale []string
	for _, r := range m.Rooms() {
		r.mu.RLock()
		connected := false
		for _, mem := range r.Members {
			if mem.Connected {
				connected = true
				break
			}
		}
		age := now.Sub(r.LastActive)
		status := r.Status
		r.mu.RUnlock()

		expired := status == StatusFinished && age > finished
		abandoned := status == StatusWaiting && !connected && age > idle
		if expired || abandoned {
			stale = append(stale, r.Code)
		}
	}
	sort.Strings(stale)
	for _, code := range stale {
		m.logger.Info("cleaning up room", zap.String("room", code))
		if err := m.Remove(ctx, code); err != nil {
			m.logger.Error("delete room", zap.String("room", code), zap.Error(err))
		}
	}
	return stale
}

func generateCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
