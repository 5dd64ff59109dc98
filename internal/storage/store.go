package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a room or snapshot does not exist.
var ErrNotFound = errors.New("storage: not found")

// RoomRow is the persisted form of a room's lobby state. Roster and
// Settings are JSON documents owned by the session package.
type RoomRow struct {
	Code      string    `json:"code"`
	Variant   string    `json:"variant"`
	Status    string    `json:"status"` // "waiting", "playing", "finished"
	HostID    string    `json:"hostId"`
	Roster    string    `json:"roster"`
	Settings  string    `json:"settings"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists rooms and match snapshots.
type Store interface {
	// SaveRoom inserts or updates a room. CreatedAt is kept from the first save.
	SaveRoom(ctx context.Context, row RoomRow) error
	GetRoom(ctx context.Context, code string) (*RoomRow, error)
	// ListRooms returns rooms with the given status, or all rooms if status
	// is empty, newest first.
	ListRooms(ctx context.Context, status string) ([]RoomRow, error)
	SaveSnapshot(ctx context.Context, code string, data []byte) error
	GetSnapshot(ctx context.Context, code string) ([]byte, error)
	// DeleteRoom removes a room and its snapshot.
	DeleteRoom(ctx context.Context, code string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string // "sqlite", "postgres" or "redis"
	SQLitePath    string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// RedisTTL expires idle rooms in redis; zero keeps them forever.
	RedisTTL time.Duration
}

// Open returns the configured backend.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	switch opts.Backend {
	case "", "sqlite":
		return NewSQLite(opts.SQLitePath)
	case "postgres":
		return NewPostgres(opts.PostgresDSN, logger)
	case "redis":
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisTTL, logger)
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
