// Package recorder persists gaze samples to SQLite, grouped in sessions.
// A session is one run over one source; samples may carry the screen
// point the user was asked to look at, for building gaze datasets.
package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// ErrUnknownSession is returned when recording into a session that was
// never started.
var ErrUnknownSession = errors.New("recorder: unknown session")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS samples (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	captured_at  TEXT NOT NULL,
	face_found   INTEGER NOT NULL,
	located      INTEGER NOT NULL,
	focus_x      INTEGER,
	focus_y      INTEGER,
	l_pupil_x    INTEGER,
	l_pupil_y    INTEGER,
	r_pupil_x    INTEGER,
	r_pupil_y    INTEGER,
	l_eye_x      INTEGER,
	l_eye_y      INTEGER,
	r_eye_x      INTEGER,
	r_eye_y      INTEGER,
	horizontal   REAL,
	vertical     REAL,
	direction    TEXT,
	blinking     INTEGER NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS samples_session ON samples(session_id, id);
`

// Session is one recording run.
type Session struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`
	Samples   int       `json:"samples"`
}

// Entry is a stored sample.
type Entry struct {
	ID        int64       `json:"id"`
	SessionID string      `json:"session_id"`
	Focus     *gaze.Point `json:"focus,omitempty"`
	gaze.Sample
}

// Recorder stores samples in a SQLite database.
type Recorder struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// StartSession registers a new session for source and returns its id.
func (r *Recorder) StartSession(source string) (string, error) {
	id := uuid.New().String()
	_, err := r.db.Exec(
		`INSERT INTO sessions (session_id, source, started_at) VALUES (?, ?, ?)`,
		id, source, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// Record stores a sample.
func (r *Recorder) Record(sessionID string, s gaze.Sample) error {
	return r.insert(sessionID, s, nil)
}

// RecordFocus stores a sample together with the point the user was
// looking at.
func (r *Recorder) RecordFocus(sessionID string, s gaze.Sample, focus gaze.Point) error {
	return r.insert(sessionID, s, &focus)
}

func (r *Recorder) insert(sessionID string, s gaze.Sample, focus *gaze.Point) error {
	var exists int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE session_id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	if s.Time.IsZero() {
		s.Time = time.Now()
	}

	var fx, fy sql.NullInt64
	if focus != nil {
		fx = sql.NullInt64{Int64: int64(focus.X), Valid: true}
		fy = sql.NullInt64{Int64: int64(focus.Y), Valid: true}
	}

	_, err = r.db.Exec(
		`INSERT INTO samples (session_id, captured_at, face_found, located, focus_x, focus_y,
			l_pupil_x, l_pupil_y, r_pupil_x, r_pupil_y, l_eye_x, l_eye_y, r_eye_x, r_eye_y,
			horizontal, vertical, direction, blinking)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, s.Time.UTC().Format(time.RFC3339Nano), s.FaceFound, s.Located, fx, fy,
		s.LeftPupil.X, s.LeftPupil.Y, s.RightPupil.X, s.RightPupil.Y,
		s.LeftEye.X, s.LeftEye.Y, s.RightEye.X, s.RightEye.Y,
		s.Horizontal, s.Vertical, s.Direction, s.Blinking,
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// Samples returns every sample of a session in recording order.
func (r *Recorder) Samples(sessionID string) ([]Entry, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, captured_at, face_found, located, focus_x, focus_y,
			l_pupil_x, l_pupil_y, r_pupil_x, r_pupil_y, l_eye_x, l_eye_y, r_eye_x, r_eye_y,
			horizontal, vertical, direction, blinking
		 FROM samples WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			capturedAt string
			fx, fy     sql.NullInt64
			direction  sql.NullString
		)
		err := rows.Scan(&e.ID, &e.SessionID, &capturedAt, &e.FaceFound, &e.Located, &fx, &fy,
			&e.LeftPupil.X, &e.LeftPupil.Y, &e.RightPupil.X, &e.RightPupil.Y,
			&e.LeftEye.X, &e.LeftEye.Y, &e.RightEye.X, &e.RightEye.Y,
			&e.Horizontal, &e.Vertical, &direction, &e.Blinking)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		e.Time, _ = time.Parse(time.RFC3339Nano, capturedAt)
		if fx.Valid && fy.Valid {
			e.Focus = &gaze.Point{X: int(fx.Int64), Y: int(fy.Int64)}
		}
		e.Direction = direction.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Sessions lists all sessions, oldest first, with their sample counts.
func (r *Recorder) Sessions() ([]Session, error) {
	rows, err := r.db.Query(
		`SELECT s.session_id, s.source, s.started_at, COUNT(m.id)
		 FROM sessions s LEFT JOIN samples m ON m.session_id = s.session_id
		 GROUP BY s.session_id
		 ORDER BY s.started_at, s.rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			s         Session
			startedAt string
		)
		if err := rows.Scan(&s.ID, &s.Source, &startedAt, &s.Samples); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}
