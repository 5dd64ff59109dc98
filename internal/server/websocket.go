package server

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"monopoly/internal/dispatch"
	"monopoly/internal/game"
	"monopoly/internal/session"
)

// WSMessage is the JSON envelope for WebSocket messages.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// joinPayload is the first frame on a connection. A token or player id
// rebinds an existing seat, a name takes a new one, and an empty join claims
// the room's only disconnected seat.
type joinPayload struct {
	PlayerID string `json:"playerId,omitempty"`
	Token    string `json:"token,omitempty"`
	Name     string `json:"name,omitempty"`
	Color    string `json:"color,omitempty"`
}

type welcomePayload struct {
	PlayerID     string        `json:"playerId"`
	Token        string        `json:"token,omitempty"`
	Room         session.Info  `json:"room"`
	State        any           `json:"state,omitempty"`
	ValidActions []game.Action `json:"validActions,omitempty"`
}

type actionPayload struct {
	Action game.Action `json:"action"`
}

type readyPayload struct {
	Ready bool `json:"ready"`
}

type chatPayload struct {
	Message string `json:"message"`
}

// eventPayload is an event as one member sees it: the shared event plus what
// that member may do next.
type eventPayload struct {
	*dispatch.Event
	ValidActions []game.Action `json:"validActions,omitempty"`
}

func (s *Server) handleWebSocket(c *gin.Context) {
	code := c.Param("code")
	if _, ok := s.manager.Get(code); !ok {
		writeError(c, game.NotFoundf("room not found"))
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: s.allowAll,
		OriginPatterns:     originHosts(s.origins),
	})
	if err != nil {
		s.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// First message must be a join
	_, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "join" {
		sendWSError(ctx, conn, game.Validationf("first message must be a join"))
		return
	}
	var join joinPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &join); err != nil {
			sendWSError(ctx, conn, game.Validationf("invalid join payload"))
			return
		}
	}

	ident := dispatch.Identity{PlayerID: join.PlayerID, Token: join.Token}
	if ident.PlayerID == "" && ident.Token == "" && join.Name != "" {
		ident, err = s.dispatcher.Join(ctx, code, join.Name, join.Color)
		if err != nil {
			sendWSError(ctx, conn, err)
			return
		}
	}

	// send is owned by the room, which closes it when a newer connection
	// takes the seat or the seat is released. replies carries answers meant
	// for this connection only.
	send := make(chan []byte, 64)
	replies := make(chan []byte, 16)
	binding, err := s.dispatcher.Bind(ctx, code, ident, send)
	if err != nil {
		sendWSError(ctx, conn, err)
		return
	}
	defer s.dispatcher.Unbind(code, binding)
	s.sendWelcome(code, binding, replies)

	// Writer goroutine: send messages from the channels to the websocket
	go func() {
		defer cancel()
		for {
			var msg []byte
			select {
			case m, ok := <-send:
				if !ok {
					conn.Close(websocket.StatusPolicyViolation, "seat released")
					return
				}
				msg = m
			case msg = <-replies:
			case <-ctx.Done():
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader loop: handle incoming messages
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWSMsg(replies, "error", errorPayload{Kind: game.KindValidation, Message: "invalid message"})
			continue
		}
		s.handleMessage(ctx, code, binding.PlayerID, replies, msg)
	}

	// Player disconnected, keep the seat for a reconnect
	s.logger.Debug("websocket closed", zap.String("room", code), zap.String("player", binding.PlayerID))
}

func (s *Server) sendWelcome(code string, b dispatch.Binding, replies chan []byte) {
	room, ok := s.manager.Get(code)
	if !ok {
		return
	}
	room.RLock()
	w := welcomePayload{PlayerID: b.PlayerID, Token: b.Token, Room: room.InfoLocked()}
	if room.Match != nil {
		w.State = room.Match.State(b.PlayerID)
		w.ValidActions = room.Match.ValidActions(b.PlayerID)
	}
	room.RUnlock()
	sendWSMsg(replies, "welcome", w)
}

func (s *Server) handleMessage(ctx context.Context, code, playerID string, replies chan []byte, msg WSMessage) {
	var err error
	switch msg.Type {
	case "action":
		var ap actionPayload
		if err := json.Unmarshal(msg.Payload, &ap); err != nil {
			sendWSMsg(replies, "error", errorPayload{Kind: game.KindValidation, Message: "invalid action payload"})
			return
		}
		_, err = s.dispatcher.Dispatch(ctx, code, playerID, ap.Action)

	case "start":
		_, err = s.dispatcher.StartGame(ctx, code, playerID)

	case "ready":
		var rp readyPayload
		if err := json.Unmarshal(msg.Payload, &rp); err != nil {
			sendWSMsg(replies, "error", errorPayload{Kind: game.KindValidation, Message: "invalid ready payload"})
			return
		}
		err = s.dispatcher.SetReady(ctx, code, playerID, rp.Ready)

	case "leave":
		err = s.dispatcher.Leave(ctx, code, playerID)

	case "chat":
		var cp chatPayload
		if err := json.Unmarshal(msg.Payload, &cp); err != nil {
			sendWSMsg(replies, "error", errorPayload{Kind: game.KindValidation, Message: "invalid chat payload"})
			return
		}
		_, err = s.dispatcher.Chat(ctx, code, playerID, cp.Message)

	case "snapshot":
		var snap any
		snap, err = s.dispatcher.RequestSnapshot(ctx, code, playerID)
		if err == nil {
			sendWSMsg(replies, "snapshot", snap)
		}

	default:
		err = game.Validationf("unknown message type: %s", msg.Type)
	}
	if err != nil {
		if game.KindOf(err) == game.KindInvariantViolation {
			s.logger.Error("intent failed", zap.String("room", code), zap.String("type", msg.Type), zap.Error(err))
		}
		sendWSMsg(replies, "error", toErrorPayload(err))
	}
}

// Publisher delivers dispatcher events to every connected member of a room.
type Publisher struct{}

// NewPublisher returns the websocket event publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish is called with the room lock held.
func (p *Publisher) Publish(room *session.Room, ev *dispatch.Event) {
	for _, m := range room.Members {
		if m.Send == nil {
			continue
		}
		ep := eventPayload{Event: ev}
		if room.Match != nil {
			ep.ValidActions = room.Match.ValidActions(m.ID)
		}
		sendWSMsg(m.Send, "event", ep)
	}
}

func sendWSMsg(send chan []byte, msgType string, payload any) {
	p, _ := json.Marshal(payload)
	msg, _ := json.Marshal(WSMessage{Type: msgType, Payload: p})
	select {
	case send <- msg:
	default:
	}
}

func sendWSError(ctx context.Context, conn *websocket.Conn, err error) {
	p, _ := json.Marshal(toErrorPayload(err))
	msg, _ := json.Marshal(WSMessage{Type: "error", Payload: p})
	conn.Write(ctx, websocket.MessageText, msg)
}

// originHosts turns CORS origins into websocket origin patterns.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}
