package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	redisRoomsKey       = "rooms"
	redisRoomPrefix     = "room:"
	redisSnapshotPrefix = "snapshot:"
)

// Redis keeps rooms as JSON values with an index set of room codes.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*Redis, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", addr))
	return &Redis{rdb: rdb, ttl: ttl, logger: logger}, nil
}

func (r *Redis) SaveRoom(ctx context.Context, row RoomRow) error {
	now := time.Now()
	if existing, err := r.GetRoom(ctx, row.Code); err == nil {
		row.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	row.Roster = orDefault(row.Roster, "[]")
	row.Settings = orDefault(row.Settings, "{}")
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, redisRoomPrefix+row.Code, data, r.ttl)
	pipe.SAdd(ctx, redisRoomsKey, row.Code)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) GetRoom(ctx context.Context, code string) (*RoomRow, error) {
	data, err := r.rdb.Get(ctx, redisRoomPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var row RoomRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", code, err)
	}
	return &row, nil
}

func (r *Redis) ListRooms(ctx context.Context, status string) ([]RoomRow, error) {
	codes, err := r.rdb.SMembers(ctx, redisRoomsKey).Result()
	if err != nil {
		return nil, err
	}
	var rows []RoomRow
	for _, code := range codes {
		row, err := r.GetRoom(ctx, code)
		if errors.Is(err, ErrNotFound) {
			// expired through the TTL
			r.rdb.SRem(ctx, redisRoomsKey, code)
			continue
		}
		if err != nil {
			r.logger.Warn("skipping unreadable room", zap.String("room", code), zap.Error(err))
			continue
		}
		if status == "" || row.Status == status {
			rows = append(rows, *row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (r *Redis) SaveSnapshot(ctx context.Context, code string, data []byte) error {
	return r.rdb.Set(ctx, redisSnapshotPrefix+code, data, r.ttl).Err()
}

func (r *Redis) GetSnapshot(ctx context.Context, code string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, redisSnapshotPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (r *Redis) DeleteRoom(ctx context.Context, code string) error {
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, redisRoomPrefix+code, redisSnapshotPrefix+code)
	pipe.SRem(ctx, redisRoomsKey, code)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
