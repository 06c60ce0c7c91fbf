package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"jamroom/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
    room_id TEXT PRIMARY KEY,
    volume  INTEGER NOT NULL,
    muted   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
    room_id          TEXT NOT NULL,
    entry_id         TEXT NOT NULL,
    video_ref        TEXT NOT NULL,
    title            TEXT NOT NULL,
    author           TEXT NOT NULL,
    thumbnail_ref    TEXT NOT NULL,
    duration_display TEXT NOT NULL,
    position_key     REAL NOT NULL,
    added_at         TEXT NOT NULL,
    PRIMARY KEY (room_id, entry_id)
);
`

// DB is the SQLite persistence boundary: load room state at startup,
// rewrite a room's rows on every commit. A room absent from the file is
// an empty room.
type DB struct {
	db   *sql.DB
	path string
}

// Open connects to (or creates) the queue database and applies the
// schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &DB{db: db, path: path}, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SaveRoom rewrites the room's committed sequence in one transaction.
func (d *DB) SaveRoom(roomID domain.RoomID, entries []domain.Entry) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO rooms (room_id, volume, muted) VALUES (?, ?, ?)
         ON CONFLICT(room_id) DO NOTHING`,
		string(roomID), domain.DefaultVolume, 0,
	); err != nil {
		return fmt.Errorf("ensure room row: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM entries WHERE room_id = ?`, string(roomID)); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.Exec(
			`INSERT INTO entries (
                room_id, entry_id, video_ref, title, author,
                thumbnail_ref, duration_display, position_key, added_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(roomID),
			e.ID,
			e.VideoRef,
			e.Title,
			e.Author,
			e.ThumbnailRef,
			e.DurationDisplay,
			e.PositionKey,
			e.AddedAt.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// SaveRoomState upserts the ephemeral room fields worth keeping across
// restarts.
func (d *DB) SaveRoomState(roomID domain.RoomID, state domain.RoomState) error {
	muted := 0
	if state.Muted {
		muted = 1
	}
	_, err := d.db.Exec(
		`INSERT INTO rooms (room_id, volume, muted) VALUES (?, ?, ?)
         ON CONFLICT(room_id) DO UPDATE SET volume = excluded.volume, muted = excluded.muted`,
		string(roomID), state.Volume, muted,
	)
	if err != nil {
		return fmt.Errorf("save room state: %w", err)
	}
	return nil
}

// RoomRecord is one persisted room as loaded at startup.
type RoomRecord struct {
	State   domain.RoomState
	Entries []domain.Entry
}

// LoadAll rebuilds the room map from disk.
func (d *DB) LoadAll(ctx context.Context) (map[domain.RoomID]RoomRecord, error) {
	out := make(map[domain.RoomID]RoomRecord)

	rows, err := d.db.QueryContext(ctx, `SELECT room_id, volume, muted FROM rooms`)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var volume, muted int
		if err := rows.Scan(&id, &volume, &muted); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out[domain.RoomID(id)] = RoomRecord{
			State: domain.RoomState{Volume: volume, Muted: muted == 1},
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	entryRows, err := d.db.QueryContext(ctx,
		`SELECT room_id, entry_id, video_ref, title, author,
                thumbnail_ref, duration_display, position_key, added_at
         FROM entries ORDER BY room_id, position_key`)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer entryRows.Close()
	for entryRows.Next() {
		var roomID, addedAt string
		var e domain.Entry
		if err := entryRows.Scan(
			&roomID, &e.ID, &e.VideoRef, &e.Title, &e.Author,
			&e.ThumbnailRef, &e.DurationDisplay, &e.PositionKey, &addedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, addedAt); parseErr == nil {
			e.AddedAt = ts
		}
		rec := out[domain.RoomID(roomID)]
		rec.Entries = append(rec.Entries, e)
		out[domain.RoomID(roomID)] = rec
	}
	if err := entryRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return out, nil
}
