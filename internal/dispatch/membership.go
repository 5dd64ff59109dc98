package dispatch

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"monopoly/internal/game"
	"monopoly/internal/session"
)

// Identity is what a client presents when it (re)connects. Any field may be
// empty: a token is checked first, then the bare player id, and with neither
// the room's only disconnected seat is claimed. Only a token can take over a
// seat that is still connected.
type Identity struct {
	PlayerID string `json:"playerId,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Binding is a connection attached to a seat. Token is empty unless the
// client proved its identity with one.
type Binding struct {
	PlayerID string
	Token    string
	Gen      uint64
}

// Join seats a new player and returns the stable id and reconnect token.
func (d *Dispatcher) Join(ctx context.Context, code, name, color string) (Identity, error) {
	r, err := d.room(code)
	if err != nil {
		return Identity{}, err
	}
	id := uuid.NewString()
	if _, err := r.AddMember(id, name, color); err != nil {
		return Identity{}, err
	}
	token, err := d.tokens.Issue(code, id)
	if err != nil {
		r.RemoveMember(id)
		return Identity{}, err
	}
	d.publishLobby(r, EventPlayerJoined, id)
	d.logger.Info("player joined", zap.String("room", code), zap.String("player", id))
	d.save(ctx, r)
	return Identity{PlayerID: id, Token: token}, nil
}

// Leave removes a player from a room that has not started.
func (d *Dispatcher) Leave(ctx context.Context, code, playerID string) error {
	r, err := d.room(code)
	if err != nil {
		return err
	}
	if err := r.RemoveMember(playerID); err != nil {
		return err
	}
	d.publishLobby(r, EventPlayerLeft, playerID)
	d.save(ctx, r)
	return nil
}

// SetReady toggles a player's ready flag.
func (d *Dispatcher) SetReady(ctx context.Context, code, playerID string, ready bool) error {
	r, err := d.room(code)
	if err != nil {
		return err
	}
	if err := r.SetReady(playerID, ready); err != nil {
		return err
	}
	d.publishLobby(r, EventPlayerReady, playerID)
	d.save(ctx, r)
	return nil
}

// Bind attaches send to the seat the identity resolves to. A verified token
// wins over any older connection for that seat and closes it. A bare player
// id or the elimination fallback only binds a seat nobody holds, and never
// yields a token.
func (d *Dispatcher) Bind(ctx context.Context, code string, ident Identity, send chan []byte) (Binding, error) {
	r, err := d.room(code)
	if err != nil {
		return Binding{}, err
	}
	id, verified, err := d.resolve(r, ident)
	if err != nil {
		return Binding{}, err
	}
	var gen uint64
	if verified {
		gen, err = r.Connect(id, send)
	} else {
		gen, err = r.Reclaim(id, send)
	}
	if err != nil {
		return Binding{}, err
	}
	b := Binding{PlayerID: id, Gen: gen}
	if verified {
		b.Token = ident.Token
	}
	d.publishLobby(r, EventPlayerConnected, id)
	d.logger.Info("player connected",
		zap.String("room", code),
		zap.String("player", id),
		zap.Bool("verified", verified))
	return b, nil
}

// resolve maps an identity to a seat and reports whether a token backed it.
func (d *Dispatcher) resolve(r *session.Room, ident Identity) (string, bool, error) {
	if ident.Token != "" {
		id, err := d.tokens.Verify(r.Code, ident.Token)
		if err != nil {
			return "", false, game.Authorizationf("invalid token")
		}
		if ident.PlayerID != "" && ident.PlayerID != id {
			return "", false, game.Authorizationf("token does not match player %s", ident.PlayerID)
		}
		return id, true, nil
	}
	if ident.PlayerID != "" {
		if !r.HasMember(ident.PlayerID) {
			return "", false, game.NotFoundf("player %s is not in room %s", ident.PlayerID, r.Code)
		}
		return ident.PlayerID, false, nil
	}
	id, err := r.ClaimByElimination()
	return id, false, err
}

// Unbind detaches a connection if it is still the seat's current one.
func (d *Dispatcher) Unbind(code string, b Binding) {
	r, ok := d.rooms.Get(code)
	if !ok {
		return
	}
	if r.Disconnect(b.PlayerID, b.Gen) {
		d.publishLobby(r, EventPlayerDisconnected, b.PlayerID)
		d.logger.Info("player disconnected", zap.String("room", code), zap.String("player", b.PlayerID))
	}
}

func (d *Dispatcher) publishLobby(r *session.Room, typ, playerID string) {
	r.RLock()
	defer r.RUnlock()
	ev := d.event(r, typ, playerID)
	info := r.InfoLocked()
	ev.Lobby = &info
	d.pub.Publish(r, ev)
}
