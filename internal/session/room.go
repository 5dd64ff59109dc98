package session

import (
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"monopoly/internal/game"
)

// Status represents the room lifecycle.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

const (
	DefaultMaxPlayers = 4
	MaxNameLength     = 20
	MaxChatLength     = 500
	sendBuffer        = 64
)

var memberColors = []string{"#e53935", "#1e88e5", "#43a047", "#fdd835", "#8e24aa", "#fb8c00", "#00acc1", "#6d4c41"}

// Member is one seat in a room. ID is stable across reconnects; Send is the
// outbound queue of the current connection, nil while disconnected.
type Member struct {
	ID        string
	Name      string
	Color     string
	Ready     bool
	Connected bool
	Send      chan []byte
	gen       uint64
}

// Room is one lobby and, once started, its match.
type Room struct {
	mu         sync.RWMutex
	Code       string
	Variant    string
	Status     Status
	HostID     string
	Members    []*Member
	Settings   game.Settings
	Match      game.Match
	CreatedAt  time.Time
	LastActive time.Time
	game       game.Game
	gen        uint64
}

// NewRoom creates a room in the waiting state.
func NewRoom(code, variant string, g game.Game, settings game.Settings) *Room {
	now := time.Now()
	return &Room{
		Code:       code,
		Variant:    variant,
		Status:     StatusWaiting,
		Settings:   settings,
		CreatedAt:  now,
		LastActive: now,
		game:       g,
	}
}

// Capacity is the seat limit from the room settings.
func (r *Room) Capacity() int {
	if r.Settings.MaxPlayers > 0 {
		return r.Settings.MaxPlayers
	}
	info := r.game.Info()
	if info.MaxPlayers < DefaultMaxPlayers {
		return info.MaxPlayers
	}
	return DefaultMaxPlayers
}

func (r *Room) member(id string) *Member {
	for _, m := range r.Members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (r *Room) touch() {
	r.LastActive = time.Now()
}

// TouchLocked records activity. Caller must hold the lock.
func (r *Room) TouchLocked() {
	r.touch()
}

// AddMember seats a new participant. The first member becomes host.
func (r *Room) AddMember(id, name, color string) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != StatusWaiting {
		return nil, game.StateConflictf("game has already started")
	}
	name = strings.TrimSpace(name)
	if id == "" {
		return nil, game.Validationf("player id is required")
	}
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return nil, game.Validationf("name must be 1-%d characters", MaxNameLength)
	}
	if len(r.Members) >= r.Capacity() {
		return nil, game.StateConflictf("room is full")
	}
	if r.member(id) != nil {
		return nil, game.StateConflictf("player %s already in room", id)
	}
	for _, m := range r.Members {
		if strings.EqualFold(m.Name, name) {
			return nil, game.Validationf("name %q is already taken", name)
		}
	}
	if color == "" {
		color = r.freeColor()
	}
	m := &Member{ID: id, Name: name, Color: color}
	r.Members = append(r.Members, m)
	if r.HostID == "" {
		r.HostID = id
	}
	r.touch()
	return m, nil
}

func (r *Room) freeColor() string {
	used := make(map[string]bool, len(r.Members))
	for _, m := range r.Members {
		used[m.Color] = true
	}
	for _, c := range memberColors {
		if !used[c] {
			return c
		}
	}
	return memberColors[len(r.Members)%len(memberColors)]
}

// RemoveMember drops a participant from a waiting room. If the host leaves,
// the longest-seated remaining member takes over.
func (r *Room) RemoveMember(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != StatusWaiting {
		return game.StateConflictf("cannot leave a game in progress")
	}
	for i, m := range r.Members {
		if m.ID != id {
			continue
		}
		if m.Send != nil {
			close(m.Send)
		}
		r.Members = append(r.Members[:i], r.Members[i+1:]...)
		if r.HostID == id {
			r.HostID = ""
			if len(r.Members) > 0 {
				r.HostID = r.Members[0].ID
			}
		}
		r.touch()
		return nil
	}
	return game.NotFoundf("player %s is not in room %s", id, r.Code)
}

// SetReady toggles a member's ready flag.
func (r *Room) SetReady(id string, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Status != StatusWaiting {
		return game.StateConflictf("game has already started")
	}
	m := r.member(id)
	if m == nil {
		return game.NotFoundf("player %s is not in room %s", id, r.Code)
	}
	m.Ready = ready
	r.touch()
	return nil
}

// Start creates the match from the roster in seating order. Only the host
// may start, and every member must be ready.
func (r *Room) Start(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.StartLocked(playerID)
}

// StartLocked is Start for callers already holding the lock.
func (r *Room) StartLocked(playerID string) error {
	if r.Status != StatusWaiting {
		return game.StateConflictf("room is not in waiting state")
	}
	if playerID != r.HostID {
		return game.Authorizationf("only the host can start the game")
	}
	info := r.game.Info()
	if len(r.Members) < info.MinPlayers {
		return game.Validationf("need at least %d players, have %d", info.MinPlayers, len(r.Members))
	}
	seats := make([]game.Seat, len(r.Members))
	for i, m := range r.Members {
		if !m.Ready {
			return game.StateConflictf("%s is not ready", m.Name)
		}
		seats[i] = game.Seat{ID: m.ID, Name: m.Name, Color: m.Color}
	}
	match, err := r.game.NewMatch(game.MatchConfig{RoomCode: r.Code, Seats: seats, Settings: r.Settings})
	if err != nil {
		return err
	}
	r.Match = match
	r.Status = StatusPlaying
	r.touch()
	return nil
}

// FinishLocked marks the room finished once its match is over.
func (r *Room) FinishLocked() {
	r.Status = StatusFinished
	r.touch()
}

// Connect binds a new connection to a seated member. The most recent
// connection wins: an older one has its queue closed. The returned
// generation must be handed back to Disconnect.
func (r *Room) Connect(id string, send chan []byte) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.member(id)
	if m == nil {
		return 0, game.NotFoundf("player %s is not in room %s", id, r.Code)
	}
	return r.connectLocked(m, send), nil
}

// Reclaim binds a connection to a seat only if nobody holds it. Callers that
// cannot prove who they are use it instead of Connect.
func (r *Room) Reclaim(id string, send chan []byte) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.member(id)
	if m == nil {
		return 0, game.NotFoundf("player %s is not in room %s", id, r.Code)
	}
	if m.Connected {
		return 0, game.Authorizationf("player %s is connected, a token is required to take over the seat", id)
	}
	return r.connectLocked(m, send), nil
}

func (r *Room) connectLocked(m *Member, send chan []byte) uint64 {
	if m.Send != nil {
		close(m.Send)
	}
	r.gen++
	m.gen = r.gen
	m.Send = send
	m.Connected = true
	r.touch()
	return m.gen
}

// Disconnect unbinds a connection if it is still the member's current one.
// It reports whether anything changed.
func (r *Room) Disconnect(id string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.member(id)
	if m == nil || m.gen != gen || !m.Connected {
		return false
	}
	close(m.Send)
	m.Send = nil
	m.Connected = false
	return true
}

// ClaimByElimination returns the only disconnected member. It refuses when
// zero or several members are disconnected, since the caller cannot be told
// apart.
func (r *Room) ClaimByElimination() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var candidates []string
	for _, m := range r.Members {
		if !m.Connected {
			candidates = append(candidates, m.ID)
		}
	}
	switch len(candidates) {
	case 0:
		return "", game.NotFoundf("no disconnected player to reconnect")
	case 1:
		return candidates[0], nil
	}
	return "", game.Validationf("%d players are disconnected, a player id is required", len(candidates))
}

// Broadcast sends a message to all connected members.
func (r *Room) Broadcast(msg []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.BroadcastLocked(msg)
}

// BroadcastLocked is Broadcast for callers already holding the lock.
func (r *Room) BroadcastLocked(msg []byte) {
	for _, m := range r.Members {
		if m.Send == nil {
			continue
		}
		select {
		case m.Send <- msg:
		default:
			// drop message if buffer full
		}
	}
}

// SendLocked queues a message for one member. Caller must hold the lock.
func (r *Room) SendLocked(id string, msg []byte) bool {
	m := r.member(id)
	if m == nil || m.Send == nil {
		return false
	}
	select {
	case m.Send <- msg:
		return true
	default:
		return false
	}
}

// HasMember reports whether id holds a seat.
func (r *Room) HasMember(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.member(id) != nil
}

// HasMemberLocked is HasMember for callers already holding the lock.
func (r *Room) HasMemberLocked(id string) bool {
	return r.member(id) != nil
}

// MemberInfo is the public view of a seat.
type MemberInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	IsHost    bool   `json:"isHost"`
}

// Info returns room info for the API.
type Info struct {
	Code       string        `json:"code"`
	Variant    string        `json:"variant"`
	Status     Status        `json:"status"`
	HostID     string        `json:"hostId"`
	Members    []MemberInfo  `json:"members"`
	MaxPlayers int           `json:"maxPlayers"`
	Public     bool          `json:"isPublic"`
	Settings   game.Settings `json:"settings"`
	CreatedAt  int64         `json:"createdAt"`
}

func (r *Room) Info() Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.infoLocked()
}

// InfoLocked returns info without acquiring the lock (caller must hold it).
func (r *Room) InfoLocked() Info {
	return r.infoLocked()
}

func (r *Room) infoLocked() Info {
	members := make([]MemberInfo, len(r.Members))
	for i, m := range r.Members {
		members[i] = MemberInfo{
			ID:        m.ID,
			Name:      m.Name,
			Color:     m.Color,
			Ready:     m.Ready,
			Connected: m.Connected,
			IsHost:    m.ID == r.HostID,
		}
	}
	return Info{
		Code:       r.Code,
		Variant:    r.Variant,
		Status:     r.Status,
		HostID:     r.HostID,
		Members:    members,
		MaxPlayers: r.Capacity(),
		Public:     r.Settings.Public,
		Settings:   r.Settings,
		CreatedAt:  r.CreatedAt.UnixMilli(),
	}
}

// Lock/RLock/Unlock/RUnlock expose the mutex to the dispatcher.
func (r *Room) Lock()    { r.mu.Lock() }
func (r *Room) Unlock()  { r.mu.Unlock() }
func (r *Room) RLock()   { r.mu.RLock() }
func (r *Room) RUnlock() { r.mu.RUnlock() }

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeChat strips markup and limits a chat message to MaxChatLength runes.
func SanitizeChat(msg string) string {
	msg = strings.TrimSpace(tagPattern.ReplaceAllString(msg, ""))
	if utf8.RuneCountInString(msg) > MaxChatLength {
		msg = string([]rune(msg)[:MaxChatLength])
	}
	return msg
}
