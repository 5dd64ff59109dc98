// Package dispatch turns player intents into match operations. It serializes
// every intent on its room, checks who may act, fans the outcome out to the
// room's connections and hands the new state to the persistence layer.
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"monopoly/internal/game"
	"monopoly/internal/session"
)

//go:generate go tool mockgen -destination=./mocks/dispatch_mock.go -package=mocks . Publisher,Saver,Tokens

// Event types besides the match action types, which are used verbatim.
const (
	EventGameStarted        = "game_started"
	EventGameOver           = "game_over"
	EventAuctionExpired     = "auction_expired"
	EventChat               = "chat"
	EventPlayerJoined       = "player_joined"
	EventPlayerLeft         = "player_left"
	EventPlayerReady        = "player_ready"
	EventPlayerConnected    = "player_connected"
	EventPlayerDisconnected = "player_disconnected"
)

// Event is what every connection in a room sees after an accepted intent.
type Event struct {
	Type     string              `json:"type"`
	Room     string              `json:"room"`
	PlayerID string              `json:"playerId,omitempty"`
	Delta    any                 `json:"delta,omitempty"`
	Snapshot any                 `json:"snapshot,omitempty"`
	Results  []game.PlayerResult `json:"results,omitempty"`
	Lobby    *session.Info       `json:"lobby,omitempty"`
	Message  string              `json:"message,omitempty"`
	At       int64               `json:"at"`
}

// Publisher fans an event out to a room. It is called with the room lock
// held and must neither block nor take the lock again.
type Publisher interface {
	Publish(room *session.Room, ev *Event)
}

// Saver persists a room after a change.
type Saver interface {
	SaveState(ctx context.Context, room *session.Room) error
}

// Tokens issues and checks reconnect tokens.
type Tokens interface {
	Issue(room, playerID string) (string, error)
	Verify(room, token string) (string, error)
}

// Rooms resolves room codes.
type Rooms interface {
	Get(code string) (*session.Room, bool)
	Rooms() []*session.Room
}

// Dispatcher routes intents to rooms.
type Dispatcher struct {
	rooms  Rooms
	pub    Publisher
	saver  Saver
	tokens Tokens
	logger *zap.Logger
	now    func() time.Time
}

// New creates a dispatcher.
func New(rooms Rooms, pub Publisher, saver Saver, tokens Tokens, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		rooms:  rooms,
		pub:    pub,
		saver:  saver,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

func (d *Dispatcher) room(code string) (*session.Room, error) {
	r, ok := d.rooms.Get(code)
	if !ok {
		return nil, game.NotFoundf("room %s not found", code)
	}
	return r, nil
}

func (d *Dispatcher) save(ctx context.Context, r *session.Room) {
	if err := d.saver.SaveState(ctx, r); err != nil {
		d.logger.Error("save room", zap.String("room", r.Code), zap.Error(err))
	}
}

func (d *Dispatcher) event(r *session.Room, typ, playerID string) *Event {
	return &Event{Type: typ, Room: r.Code, PlayerID: playerID, At: d.now().UnixMilli()}
}

// Dispatch applies one match action for playerID. The room stays locked
// from the authorization check until the event has been published, so every
// connection observes accepted actions in the order they were applied.
func (d *Dispatcher) Dispatch(ctx context.Context, code, playerID string, action game.Action) (*Event, error) {
	r, err := d.room(code)
	if err != nil {
		return nil, err
	}

	r.Lock()
	if !r.HasMemberLocked(playerID) {
		r.Unlock()
		return nil, game.Authorizationf("player %s is not in room %s", playerID, code)
	}
	if r.Match == nil || r.Status != session.StatusPlaying {
		r.Unlock()
		return nil, game.StateConflictf("game is not in progress")
	}
	if r.Match.RequiresTurn(action) && r.Match.CurrentPlayer() != playerID {
		r.Unlock()
		return nil, game.Authorizationf("not your turn")
	}
	delta, err := r.Match.ApplyAction(playerID, action)
	if err != nil {
		r.Unlock()
		if game.KindOf(err) == game.KindInvariantViolation {
			d.logger.Error("action rolled back",
				zap.String("room", code),
				zap.String("player", playerID),
				zap.String("action", action.Type),
				zap.Error(err))
		}
		return nil, err
	}
	ev := d.event(r, action.Type, playerID)
	ev.Delta = delta
	ev.Snapshot = r.Match.State(playerID)
	over := r.Match.IsOver()
	if over {
		r.FinishLocked()
		ev.Results = r.Match.Results()
	}
	r.TouchLocked()
	d.pub.Publish(r, ev)
	if over {
		end := d.event(r, EventGameOver, "")
		end.Results = ev.Results
		d.pub.Publish(r, end)
	}
	r.Unlock()

	d.save(ctx, r)
	return ev, nil
}

// StartGame starts the match on behalf of the host.
func (d *Dispatcher) StartGame(ctx context.Context, code, playerID string) (*Event, error) {
	r, err := d.room(code)
	if err != nil {
		return nil, err
	}
	r.Lock()
	if err := r.StartLocked(playerID); err != nil {
		r.Unlock()
		return nil, err
	}
	ev := d.event(r, EventGameStarted, playerID)
	ev.Snapshot = r.Match.State(playerID)
	info := r.InfoLocked()
	ev.Lobby = &info
	d.pub.Publish(r, ev)
	r.Unlock()

	d.logger.Info("game started", zap.String("room", code), zap.Int("players", len(info.Members)))
	d.save(ctx, r)
	return ev, nil
}

// RequestSnapshot returns the current match state without changing it.
func (d *Dispatcher) RequestSnapshot(ctx context.Context, code, playerID string) (any, error) {
	r, err := d.room(code)
	if err != nil {
		return nil, err
	}
	r.RLock()
	defer r.RUnlock()
	if !r.HasMemberLocked(playerID) {
		return nil, game.Authorizationf("player %s is not in room %s", playerID, code)
	}
	if r.Match == nil {
		return nil, game.StateConflictf("game has not started")
	}
	return r.Match.State(playerID), nil
}

// ValidActions lists what playerID may submit now.
func (d *Dispatcher) ValidActions(code, playerID string) ([]game.Action, error) {
	r, err := d.room(code)
	if err != nil {
		return nil, err
	}
	r.RLock()
	defer r.RUnlock()
	if r.Match == nil {
		return nil, nil
	}
	return r.Match.ValidActions(playerID), nil
}

// Chat relays a sanitized message to the room.
func (d *Dispatcher) Chat(ctx context.Context, code, playerID, text string) (*Event, error) {
	r, err := d.room(code)
	if err != nil {
		return nil, err
	}
	text = session.SanitizeChat(text)
	if text == "" {
		return nil, game.Validationf("message is empty")
	}
	r.RLock()
	defer r.RUnlock()
	if !r.HasMemberLocked(playerID) {
		return nil, game.Authorizationf("player %s is not in room %s", playerID, code)
	}
	ev := d.event(r, EventChat, playerID)
	ev.Message = text
	d.pub.Publish(r, ev)
	return ev, nil
}

// SweepAuctions settles every auction whose deadline has passed and returns
// how many it closed.
func (d *Dispatcher) SweepAuctions(ctx context.Context, now time.Time) int {
	closed := 0
	for _, r := range d.rooms.Rooms() {
		r.Lock()
		exp, ok := r.Match.(game.Expirer)
		if !ok || r.Status != session.StatusPlaying {
			r.Unlock()
			continue
		}
		delta, expired := exp.Expire(now)
		if !expired {
			r.Unlock()
			continue
		}
		ev := d.event(r, EventAuctionExpired, "")
		ev.Delta = delta
		ev.Snapshot = r.Match.State("")
		if r.Match.IsOver() {
			r.FinishLocked()
			ev.Results = r.Match.Results()
		}
		d.pub.Publish(r, ev)
		r.Unlock()

		closed++
		d.logger.Debug("auction expired", zap.String("room", r.Code))
		d.save(ctx, r)
	}
	return closed
}
