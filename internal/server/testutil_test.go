package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"

	"monopoly/internal/auth"
	"monopoly/internal/dispatch"
	"monopoly/internal/game"
	"monopoly/internal/game/monopoly"
	"monopoly/internal/session"
	"monopoly/internal/storage"
)

// --- Test environment ---

// fixedRoller always rolls [1,2]: from Go that lands on the second brown
// property, which is unowned at the start.
type fixedRoller struct{}

func (fixedRoller) Roll() monopoly.Dice { return monopoly.Dice{1, 2} }

type testEnv struct {
	ts     *httptest.Server
	mgr    *session.Manager
	tokens *auth.Issuer
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := game.NewRegistry()
	reg.Register(monopoly.Variant{
		Name:        "classic",
		Description: "test rules",
		Rules:       monopoly.DefaultRules(),
		Options:     []monopoly.Option{monopoly.WithRoller(fixedRoller{})},
	})
	reg.Register(monopoly.Jackpot())
	mgr := session.NewManager(reg, store, nil, 0)
	tokens, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	d := dispatch.New(mgr, NewPublisher(), mgr, tokens, nil)
	srv := New(reg, mgr, d, tokens, nil, Options{CORSOrigins: []string{"*"}})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, mgr: mgr, tokens: tokens}
}

// --- Context helpers ---

func timeoutCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// --- REST API helpers ---

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

// createRoomViaAPI creates a room hosted by name.
func createRoomViaAPI(t *testing.T, ts *httptest.Server, name string) joinResponse {
	t.Helper()
	var resp joinResponse
	status := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", "", createRoomRequest{Name: name}, &resp)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	return resp
}

func joinRoomViaAPI(t *testing.T, ts *httptest.Server, code, name string) joinResponse {
	t.Helper()
	var resp joinResponse
	status := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/rooms/%s/join", ts.URL, code), "", joinRequest{Name: name}, &resp)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	return resp
}

// --- WebSocket helpers ---

func wsURL(ts *httptest.Server, code string) string {
	return strings.Replace(ts.URL, "http://", "ws://", 1) + "/api/rooms/" + code + "/ws"
}

// wsConnect dials a WebSocket, sends a join message and waits for the
// welcome. The connection is closed when the test ends.
func wsConnect(t *testing.T, ts *httptest.Server, code string, join joinPayload) (*websocket.Conn, welcomePayload) {
	t.Helper()
	ctx, cancel := timeoutCtx(t)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(ts, code), nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	if err := sendWS(ctx, conn, "join", join); err != nil {
		t.Fatalf("send join: %v", err)
	}
	var w welcomePayload
	decodePayload(t, readUntil(t, ctx, conn, "welcome"), &w)
	return conn, w
}

// sendWS marshals and sends a typed WebSocket message.
func sendWS(ctx context.Context, conn *websocket.Conn, msgType string, payload any) error {
	p, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(WSMessage{Type: msgType, Payload: p})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, msg)
}

func wsSend(ctx context.Context, t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	if err := sendWS(ctx, conn, msgType, payload); err != nil {
		t.Fatalf("ws write: %v", err)
	}
}

// readWS reads and unmarshals a single WebSocket message.
func readWS(ctx context.Context, conn *websocket.Conn) (WSMessage, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return WSMessage{}, err
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return WSMessage{}, err
	}
	return msg, nil
}

// readUntil skips messages until one of msgType arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string) WSMessage {
	t.Helper()
	for {
		msg, err := readWS(ctx, conn)
		if err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
}

// readEvent skips messages until an event of eventType arrives.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, eventType string) wireEvent {
	t.Helper()
	for {
		var ev wireEvent
		decodePayload(t, readUntil(t, ctx, conn, "event"), &ev)
		if ev.Type == eventType {
			return ev
		}
	}
}

// readError reads until an error message and returns its payload.
func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) errorPayload {
	t.Helper()
	var ep errorPayload
	decodePayload(t, readUntil(t, ctx, conn, "error"), &ep)
	return ep
}

func decodePayload(t *testing.T, msg WSMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		t.Fatalf("unmarshal %s payload: %v", msg.Type, err)
	}
}

// wireEvent is an event frame as a client decodes it.
type wireEvent struct {
	Type         string              `json:"type"`
	Room         string              `json:"room"`
	PlayerID     string              `json:"playerId"`
	Snapshot     *monopoly.Document  `json:"snapshot"`
	Results      []game.PlayerResult `json:"results"`
	Lobby        *session.Info       `json:"lobby"`
	Message      string              `json:"message"`
	ValidActions []game.Action       `json:"validActions"`
}

func hasAction(actions []game.Action, actionType string) bool {
	for _, a := range actions {
		if a.Type == actionType {
			return true
		}
	}
	return false
}

func action(t *testing.T, actionType string, payload any) actionPayload {
	t.Helper()
	return actionPayload{Action: monopoly.NewAction(actionType, payload)}
}
