package session

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"monopoly/internal/game"
	"monopoly/internal/game/monopoly"
	"monopoly/internal/storage"
)

func setupTest(t *testing.T) (*Manager, storage.Store) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	reg := game.NewRegistry()
	reg.Register(monopoly.Classic())
	reg.Register(monopoly.Jackpot())
	return NewManager(reg, store, nil, 0), store
}

func createRoom(t *testing.T, mgr *Manager, names ...string) *Room {
	t.Helper()
	r, err := mgr.Create(context.Background(), "classic", game.Settings{Public: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, name := range names {
		if _, err := r.AddMember(name, name, ""); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	return r
}

func readyAll(t *testing.T, r *Room) {
	t.Helper()
	for _, m := range r.Info().Members {
		if err := r.SetReady(m.ID, true); err != nil {
			t.Fatalf("ready %s: %v", m.ID, err)
		}
	}
}

func expectKind(t *testing.T, err error, kind game.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := game.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func TestCreateAndJoin(t *testing.T) {
	mgr, _ := setupTest(t)
	r := createRoom(t, mgr, "alice", "bob")

	info := r.Info()
	if len(info.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(info.Members))
	}
	if info.Status != StatusWaiting {
		t.Fatalf("expected waiting, got %s", info.Status)
	}
	if info.HostID != "alice" || !info.Members[0].IsHost {
		t.Fatalf("expected alice to host, got %q", info.HostID)
	}
	if info.Members[0].Color == info.Members[1].Color {
		t.Fatalf("expected distinct colors, got %s twice", info.Members[0].Color)
	}
	if info.MaxPlayers != DefaultMaxPlayers {
		t.Fatalf("expected capacity %d, got %d", DefaultMaxPlayers, info.MaxPlayers)
	}
}

func TestAddMemberValidation(t *testing.T) {
	mgr, _ := setupTest(t)
	r := createRoom(t, mgr, "alice")

	tests := []struct {
		name     string
		id, nick string
		kind     game.Kind
	}{
		{"empty name", "p2", "   ", game.KindValidation},
		{"long name", "p2", strings.Repeat("x", MaxNameLength+1), game.KindValidation},
		{"missing id", "", "bob", game.KindValidation},
		{"duplicate name", "p2", "ALICE", game.KindValidation},
		{"duplicate id", "alice", "someone", game.KindStateConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.AddMember(tt.id, tt.nick, "")
			expectKind(t, err, tt.kind)
		})
	}
	if n := len(r.Info().Members); n != 1 {
		t.Fatalf("rejected joins changed the roster: %d members", n)
	}
}

func TestRoomFull(t *testing.T) {
	mgr, _ := setupTest(t)
	r := createRoom(t, mgr, "a", "b", "c", "d")

	_, err := r.AddMember("e", "e", "")
	expectKind(t, err, game.KindStateConflict)
}

func TestRoomCapacityFromSettings(t *testing.T) {
	mgr, _ := setupTest(t)
	r, err := mgr.Create(context.Background(), "classic", game.Settings{MaxPlayers: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	r.AddMember("a", "a", "")
	r.AddMember("b", "b", "")
	if _, err := r.AddMember("c", "c", ""); err == nil {
		t.Fatal("expected a two-seat room to be full")
	}

	_, err = mgr.Create(context.Background(), "classic", game.Settings{MaxPlayers: 9})
	expectKind(t, err, game.KindValidation)
}

func TestStartRequiresHostAndReady(t *testing.T) {
	mgr, _ := setupTest(t)
	r := createRoom(t, mgr, "alice", "bob")

	expectKind(t, r.Start("bob"), game.KindAuthorization)
	expectKind(t, r.Start("alice"), game.KindStateConflict)

	readyAll(t, r)
	if err := r.Start("alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if r.Status != StatusPlaying || r.Match == nil {
		t.Fatalf("expected playing with a match, got %s", r.Status)
	}
	if got := r.Match.CurrentPlayer(); got != "alice" {
		t.Fatalf("expected alice to move first, got %s", got)
	}
	expectKind(t, r.Start("alice"), game.KindStateConflict)

	_, err := r.AddMember("carol", "carol", "")
	expectKind(t, err, game.KindStateConflict)
}

func TestStartNotEnoughPlayers(t *testing.T) {
	mgr, _ := setupTest(t)
	r := createRoom(t, mgr, "alice")
	readyAll(t, r)

	expectKind(t, r.Start("alice"), game.KindValidation)
}

func TestRemoveMemberReassignsHost(t *testing.T) {
	mgr, _ := setupTest(t)
	r := createRoom(t, mgr, "alice", "bob", "carol")

	if err := r.RemoveMember("alice"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if r.HostID != "bob" {
		t.Fatalf("expected bob to host, got %s", r.HostID)
	}
	expectKind(t, r.RemoveMember("alice"), game.KindNotFound)

	r.RemoveMember("bob")
	r.RemoveMember("carol")
	if r.HostID != "" {
		t.Fatalf("expected no host in an empty room, got %s", r.HostID)
	}
}

func TestConnectLatestWins(t *testing.T) {
	mgr, _ := setupTest(t)
	r := createRoom(t, mgr, "alice", "bob")

	first := make(chan []byte, 4)
	gen1, err := r.Connect("alice", first)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	second := make(chan []byte, 4)
	gen2, err := r.Connect("alice", second)
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if _, open := <-first; open {
		t.Fatal("expected the replaced connection's queue to be closed")
	}

	if r.Disconnect("alice", gen1) {
		t.Fatal("stale connection must not unbind the current one")
	}
	if !r.Info().Members[0].Connected {
		t.Fatal("expected alice to stay connected")
	}

	r.Broadcast([]byte("hello"))
	if got := string(<-second); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}

	if !r.Disconnect("alice", gen2) {
		t.Fatal("expected disconnect to unbind")
	}
	if r.Info().Members[0].Connected {
		t.Fatal("expected alice disconnected")
	}

	_, err = r.Connect("zed", make(chan []byte, 1))
	expectKind(t, err, game.KindNotFound)
}

func TestBroadcastBufferFull(t *testing.T) {
	mgr, _ := setupTest(t)
	r := createRoom(t, mgr, "alice")

	send := make(chan []byte, 1)
	r.Connect("alice", send)
	r.Broadcast([]byte("one"))
	r.Broadcast([]byte("two")) // dropped, must not block

	if got := string(<-send); got != "one" {
		t.Fatalf("expected one, got %q", got)
	}
}

func TestClaimByElimination(t *testing.T) {
	mgr, _ := setupTest(t)
	r := createRoom(t, mgr, "alice", "bob", "carol")

	if _, err := r.ClaimByElimination(); err == nil {
		t.Fatal("expected refusal with three disconnected players")
	}
	r.Connect("alice", make(chan []byte, 1))
	r.Connect("carol", make(chan []byte, 1))

	id, err := r.ClaimByElimination()
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if id != "bob" {
		t.Fatalf("expected bob, got %s", id)
	}

	r.Connect("bob", make(chan []byte, 1))
	_, err = r.ClaimByElimination()
	expectKind(t, err, game.KindNotFound)
}

func TestSanitizeChat(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"  <b>bold</b> move ", "bold move"},
		{"<script>alert(1)</script>", "alert(1)"},
		{strings.Repeat("é", MaxChatLength+10), strings.Repeat("é", MaxChatLength)},
	}
	for _, tt := range tests {
		if got := SanitizeChat(tt.in); got != tt.want {
			t.Errorf("SanitizeChat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPersistence(t *testing.T) {
	mgr, store := setupTest(t)
	ctx := context.Background()
	r := createRoom(t, mgr, "alice", "bob")
	readyAll(t, r)
	if err := r.Start("alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := r.Match.ApplyAction("alice", monopoly.NewAction(monopoly.ActionRoll, nil)); err != nil {
		t.Fatalf("roll: %v", err)
	}
	if err := mgr.SaveState(ctx, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	want, _ := r.Match.MarshalJSON()

	waiting := createRoom(t, mgr, "dave")
	mgr.SaveState(ctx, waiting)

	reg := game.NewRegistry()
	reg.Register(monopoly.Classic())
	mgr2 := NewManager(reg, store, nil, 0)
	if err := mgr2.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if mgr2.Count() != 2 {
		t.Fatalf("expected 2 rooms restored, got %d", mgr2.Count())
	}

	restored, ok := mgr2.Get(r.Code)
	if !ok {
		t.Fatal("room not restored")
	}
	if restored.Status != StatusPlaying || restored.HostID != "alice" {
		t.Fatalf("unexpected restored room: %+v", restored.Info())
	}
	info := restored.Info()
	if len(info.Members) != 2 || info.Members[0].Connected || !info.Members[1].Ready {
		t.Fatalf("unexpected restored roster: %+v", info.Members)
	}
	got, _ := restored.Match.MarshalJSON()
	if string(got) != string(want) {
		t.Fatal("restored match differs from the saved one")
	}

	w, ok := mgr2.Get(waiting.Code)
	if !ok || w.Match != nil || len(w.Members) != 1 {
		t.Fatal("waiting room not restored")
	}
}

func TestRestoreSkipsFinishedAndCorrupt(t *testing.T) {
	mgr, store := setupTest(t)
	ctx := context.Background()

	done := createRoom(t, mgr, "alice")
	done.Lock()
	done.FinishLocked()
	done.Unlock()
	mgr.SaveState(ctx, done)

	broken := createRoom(t, mgr, "bob")
	broken.Lock()
	broken.Status = StatusPlaying
	broken.Unlock()
	mgr.SaveState(ctx, broken)
	store.SaveSnapshot(ctx, broken.Code, []byte(`{"version":1}`))

	mgr2 := NewManager(mgr.registry, store, nil, 0)
	if err := mgr2.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if mgr2.Count() != 0 {
		t.Fatalf("expected nothing restored, got %d", mgr2.Count())
	}
}

func TestUnknownVariant(t *testing.T) {
	mgr, _ := setupTest(t)
	_, err := mgr.Create(context.Background(), "chess", game.Settings{})
	expectKind(t, err, game.KindNotFound)
}

func TestMaxRooms(t *testing.T) {
	mgr, _ := setupTest(t)
	mgr.maxRooms = 2
	createRoom(t, mgr)
	createRoom(t, mgr)

	_, err := mgr.Create(context.Background(), "classic", game.Settings{})
	expectKind(t, err, game.KindStateConflict)
}

func TestManagerListPublic(t *testing.T) {
	mgr, _ := setupTest(t)
	ctx := context.Background()
	public := createRoom(t, mgr, "alice")
	if _, err := mgr.Create(ctx, "jackpot", game.Settings{}); err != nil {
		t.Fatalf("create private: %v", err)
	}

	if n := len(mgr.List()); n != 2 {
		t.Fatalf("expected 2 rooms, got %d", n)
	}
	open := mgr.ListPublic()
	if len(open) != 1 || open[0].Code != public.Code {
		t.Fatalf("expected only %s listed, got %+v", public.Code, open)
	}
}

func TestManagerRemove(t *testing.T) {
	mgr, store := setupTest(t)
	ctx := context.Background()
	r := createRoom(t, mgr, "alice")
	send := make(chan []byte, 1)
	r.Connect("alice", send)

	if err := mgr.Remove(ctx, r.Code); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := mgr.Get(r.Code); ok {
		t.Fatal("expected room gone")
	}
	if _, open := <-send; open {
		t.Fatal("expected connection queue closed")
	}
	if _, err := store.GetRoom(ctx, r.Code); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected room deleted from storage, got %v", err)
	}
}

func TestManagerSweep(t *testing.T) {
	mgr, _ := setupTest(t)
	ctx := context.Background()
	now := time.Now()
	mgr.now = func() time.Time { return now }

	idle := createRoom(t, mgr, "alice")
	active := createRoom(t, mgr, "bob")
	active.Connect("bob", make(chan []byte, 1))
	finished := createRoom(t, mgr, "carol")
	finished.Lock()
	finished.FinishLocked()
	finished.Unlock()
	fresh := createRoom(t, mgr, "dave")
	playing := createRoom(t, mgr, "erin", "frank")
	readyAll(t, playing)
	if err := playing.Start("erin"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := mgr.SaveState(ctx, playing); err != nil {
		t.Fatalf("save: %v", err)
	}

	old := now.Add(-2 * time.Hour)
	idle.LastActive = old
	active.LastActive = old
	finished.LastActive = now.Add(-10 * time.Minute)
	fresh.LastActive = now
	playing.LastActive = old

	removed := mgr.Sweep(ctx, time.Hour, 5*time.Minute)
	if len(removed) != 2 {
		t.Fatalf("expected 2 rooms removed, got %v", removed)
	}
	for _, code := range []string{idle.Code, finished.Code} {
		if _, ok := mgr.Get(code); ok {
			t.Fatalf("expected %s removed", code)
		}
	}
	for _, code := range []string{active.Code, fresh.Code, playing.Code} {
		if _, ok := mgr.Get(code); !ok {
			t.Fatalf("expected %s kept", code)
		}
	}
	if _, err := mgr.store.GetSnapshot(ctx, playing.Code); err != nil {
		t.Fatalf("expected the abandoned match snapshot kept, got %v", err)
	}
}

func TestReclaimOnlyFreeSeat(t *testing.T) {
	mgr, _ := setupTest(t)
	r := createRoom(t, mgr, "alice", "bob")

	live := make(chan []byte, 1)
	if _, err := r.Connect("alice", live); err != nil {
		t.Fatalf("connect: %v", err)
	}
	_, err := r.Reclaim("alice", make(chan []byte, 1))
	expectKind(t, err, game.KindAuthorization)
	select {
	case _, open := <-live:
		if !open {
			t.Fatal("reclaim closed the live connection")
		}
	default:
	}

	if _, err := r.Reclaim("bob", make(chan []byte, 1)); err != nil {
		t.Fatalf("reclaim free seat: %v", err)
	}
	if !r.Info().Members[1].Connected {
		t.Fatal("expected bob connected")
	}
	_, err = r.Reclaim("zed", make(chan []byte, 1))
	expectKind(t, err, game.KindNotFound)
}

func TestGenerateCodeFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("bad code %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 90 {
		t.Fatalf("expected mostly unique codes, got %d distinct", len(seen))
	}
}
