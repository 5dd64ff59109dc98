package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the default single-node backend.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database and runs migrations.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rooms (
			code          TEXT PRIMARY KEY,
			variant       TEXT NOT NULL,
			status        TEXT NOT NULL DEFAULT 'waiting',
			host_id       TEXT NOT NULL DEFAULT '',
			roster_json   TEXT NOT NULL DEFAULT '[]',
			settings_json TEXT NOT NULL DEFAULT '{}',
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS snapshots (
			room_code  TEXT PRIMARY KEY REFERENCES rooms(code),
			data       TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	return err
}

// SaveRoom upserts a room row.
func (s *SQLite) SaveRoom(ctx context.Context, row RoomRow) error {
	now := time.Now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (code, variant, status, host_id, roster_json, settings_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			variant = excluded.variant,
			status = excluded.status,
			host_id = excluded.host_id,
			roster_json = excluded.roster_json,
			settings_json = excluded.settings_json,
			updated_at = excluded.updated_at
	`, row.Code, row.Variant, row.Status, row.HostID, orDefault(row.Roster, "[]"), orDefault(row.Settings, "{}"),
		millis(row.CreatedAt), millis(now))
	return err
}

const roomColumns = "code, variant, status, host_id, roster_json, settings_json, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(sc scanner) (*RoomRow, error) {
	var r RoomRow
	var created, updated int64
	if err := sc.Scan(&r.Code, &r.Variant, &r.Status, &r.HostID, &r.Roster, &r.Settings, &created, &updated); err != nil {
		return nil, err
	}
	r.CreatedAt, r.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &r, nil
}

// GetRoom retrieves a room by code.
func (s *SQLite) GetRoom(ctx context.Context, code string) (*RoomRow, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE code = ?", code)
	r, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// ListRooms returns all rooms with the given status (or all if status is empty).
func (s *SQLite) ListRooms(ctx context.Context, status string) ([]RoomRow, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.QueryContext(ctx, "SELECT "+roomColumns+" FROM rooms ORDER BY created_at DESC")
	} else {
		rows, err = s.db.QueryContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE status = ? ORDER BY created_at DESC", status)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []RoomRow
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

// SaveSnapshot upserts a room's match snapshot.
func (s *SQLite) SaveSnapshot(ctx context.Context, code string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (room_code, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(room_code) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, code, string(data), time.Now().UnixMilli())
	return err
}

// GetSnapshot retrieves a room's match snapshot.
func (s *SQLite) GetSnapshot(ctx context.Context, code string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM snapshots WHERE room_code = ?", code).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// DeleteRoom removes a room and its snapshot.
func (s *SQLite) DeleteRoom(ctx context.Context, code string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE room_code = ?", code); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM rooms WHERE code = ?", code)
	return err
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
