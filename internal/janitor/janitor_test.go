package janitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeAuctions struct {
	calls atomic.Int32
	last  atomic.Int64
}

func (f *fakeAuctions) SweepAuctions(ctx context.Context, now time.Time) int {
	f.calls.Add(1)
	f.last.Store(now.UnixMilli())
	return 1
}

type fakeRooms struct {
	saves   atomic.Int32
	saveErr error
	idle    time.Duration
	done    time.Duration
}

func (f *fakeRooms) SaveAll(ctx context.Context) error {
	f.saves.Add(1)
	return f.saveErr
}

func (f *fakeRooms) Sweep(ctx context.Context, idle, finished time.Duration) []string {
	f.idle, f.done = idle, finished
	return []string{"ABC123"}
}

func TestJobsCallCollaborators(t *testing.T) {
	auctions := &fakeAuctions{}
	rooms := &fakeRooms{saveErr: errors.New("disk full")}
	j, err := New(DefaultConfig(), auctions, rooms, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	now := time.UnixMilli(1_700_000_000_000)
	j.now = func() time.Time { return now }

	j.SweepAuctions()
	if auctions.calls.Load() != 1 || auctions.last.Load() != now.UnixMilli() {
		t.Fatalf("expected one sweep at the janitor clock, got %d at %d", auctions.calls.Load(), auctions.last.Load())
	}
	j.Autosave()
	if rooms.saves.Load() != 1 {
		t.Fatalf("expected one autosave, got %d", rooms.saves.Load())
	}
	j.Cleanup()
	if rooms.idle != 30*time.Minute || rooms.done != 10*time.Minute {
		t.Fatalf("unexpected lifetimes: idle %v finished %v", rooms.idle, rooms.done)
	}
}

func TestNewRejectsBadSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutosaveSpec = "every minute"
	if _, err := New(cfg, &fakeAuctions{}, &fakeRooms{}, nil); err == nil {
		t.Fatal("expected an error for an unparsable schedule")
	}
}

func TestRunSchedulesUntilCancelled(t *testing.T) {
	auctions := &fakeAuctions{}
	cfg := Config{AuctionSpec: "@every 1s"}
	j, err := New(cfg, auctions, &fakeRooms{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for auctions.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("auction sweep never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
