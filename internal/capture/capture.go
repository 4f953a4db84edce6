// Package capture records raw notification frames to SQLite so protocol
// traffic can be replayed through the decoders later.
package capture

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cubesense/smartcube/internal/protocol"
)

const schema = `
CREATE TABLE IF NOT EXISTS capture_sessions (
	session_id TEXT PRIMARY KEY,
	device     TEXT NOT NULL,
	vendor     TEXT NOT NULL,
	started_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS frames (
	frame_id       INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     TEXT NOT NULL REFERENCES capture_sessions(session_id) ON DELETE CASCADE,
	ts_ms          INTEGER NOT NULL,
	characteristic TEXT NOT NULL,
	data           BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_frames_session ON frames(session_id, ts_ms, frame_id);
`

// Store wraps the capture database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the capture database at the given path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("capture: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("capture: open database: %w", err)
	}
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("capture: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("capture: apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Session describes one recorded capture.
type Session struct {
	ID        string
	Device    string
	Vendor    string
	StartedAt time.Time
	Frames    int
}

// Begin starts a new capture session and returns its id.
func (s *Store) Begin(device, vendor string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO capture_sessions (session_id, device, vendor, started_ms)
		VALUES (?, ?, ?, ?)
	`, id, device, vendor, time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("capture: begin session: %w", err)
	}
	return id, nil
}

// Append records one raw frame under a session.
func (s *Store) Append(sessionID string, raw protocol.RawFrame) error {
	_, err := s.db.Exec(`
		INSERT INTO frames (session_id, ts_ms, characteristic, data)
		VALUES (?, ?, ?, ?)
	`, sessionID, raw.Time.UnixMilli(), raw.Characteristic, raw.Data)
	if err != nil {
		return fmt.Errorf("capture: append frame: %w", err)
	}
	return nil
}

// Sessions lists every recorded session, newest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT cs.session_id, cs.device, cs.vendor, cs.started_ms,
		       (SELECT COUNT(*) FROM frames f WHERE f.session_id = cs.session_id)
		FROM capture_sessions cs
		ORDER BY cs.started_ms DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("capture: list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var startedMs int64
		if err := rows.Scan(&sess.ID, &sess.Device, &sess.Vendor, &startedMs, &sess.Frames); err != nil {
			return nil, fmt.Errorf("capture: scan session: %w", err)
		}
		sess.StartedAt = time.UnixMilli(startedMs)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Frames returns a session's frames in recorded order.
func (s *Store) Frames(sessionID string) ([]protocol.RawFrame, error) {
	rows, err := s.db.Query(`
		SELECT cs.device, f.ts_ms, f.characteristic, f.data
		FROM frames f
		JOIN capture_sessions cs ON cs.session_id = f.session_id
		WHERE f.session_id = ?
		ORDER BY f.ts_ms, f.frame_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("capture: read frames: %w", err)
	}
	defer rows.Close()

	var out []protocol.RawFrame
	for rows.Next() {
		var raw protocol.RawFrame
		var tsMs int64
		if err := rows.Scan(&raw.Device, &tsMs, &raw.Characteristic, &raw.Data); err != nil {
			return nil, fmt.Errorf("capture: scan frame: %w", err)
		}
		raw.Time = time.UnixMilli(tsMs)
		out = append(out, raw)
	}
	return out, rows.Err()
}

// Replay feeds a session's frames to emit, preserving the recorded
// inter-frame timing scaled by speed. A speed of 0 or less replays
// without waiting.
func (s *Store) Replay(ctx context.Context, sessionID string, speed float64, emit func(protocol.RawFrame)) error {
	frames, err := s.Frames(sessionID)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("capture: session %s has no frames", sessionID)
	}
	prev := frames[0].Time
	for _, f := range frames {
		if speed > 0 {
			if gap := f.Time.Sub(prev); gap > 0 {
				timer := time.NewTimer(time.Duration(float64(gap) / speed))
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				}
			}
		}
		prev = f.Time
		emit(f)
	}
	return nil
}
