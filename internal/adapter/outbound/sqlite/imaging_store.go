// Package sqlite provides SQLite-backed implementations of outbound ports.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/volview-xnat/volviewd/internal/domain/auth"
	"github.com/volview-xnat/volviewd/internal/domain/imaging"
)

// DefaultBusyTimeout is how long a statement waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// ImagingStore implements imaging.SessionStore and imaging.SessionWriter on
// a SQLite database. Visibility is decided in Go after the row is read, so
// the same rules apply as in the in-memory store.
type ImagingStore struct {
	db        *sql.DB
	path      string
	closeOnce sync.Once

	putStmt    *sql.Stmt
	getStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	listStmt   *sql.Stmt
}

// Open opens (creating if needed) the session database at path.
func Open(path string, busyTimeout time.Duration) (*ImagingStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &ImagingStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *ImagingStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS imaging_sessions (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		study_instance_uid TEXT NOT NULL DEFAULT '',
		shared_projects TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_imaging_sessions_project ON imaging_sessions(project_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *ImagingStore) prepareStatements() error {
	var err error

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO imaging_sessions (id, project_id, label, study_instance_uid, shared_projects, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			project_id = excluded.project_id,
			label = excluded.label,
			study_instance_uid = excluded.study_instance_uid,
			shared_projects = excluded.shared_projects,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare put statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT id, project_id, label, study_instance_uid, shared_projects
		FROM imaging_sessions
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare get statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM imaging_sessions WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, project_id, label, study_instance_uid, shared_projects
		FROM imaging_sessions
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("prepare list statement: %w", err)
	}
	return nil
}

// FindSession returns the session if it exists and user may see it.
func (s *ImagingStore) FindSession(ctx context.Context, sessionID string, user *auth.Identity) (*imaging.Session, error) {
	sess, err := scanSession(s.getStmt.QueryRowContext(ctx, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, imaging.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session %q: %w", sessionID, err)
	}
	if !imaging.VisibleTo(sess, user) {
		return nil, imaging.ErrSessionNotFound
	}
	return sess, nil
}

// Put inserts or replaces a session.
func (s *ImagingStore) Put(ctx context.Context, session *imaging.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("put session %q: %w", session.ID, err)
	}
	shared := session.SharedProjects
	if shared == nil {
		shared = []string{}
	}
	sharedJSON, err := json.Marshal(shared)
	if err != nil {
		return fmt.Errorf("marshal shared projects: %w", err)
	}
	_, err = s.putStmt.ExecContext(ctx,
		session.ID, session.ProjectID, session.Label, session.StudyInstanceUID,
		string(sharedJSON), time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("put session %q: %w", session.ID, err)
	}
	return nil
}

// Delete removes a session.
func (s *ImagingStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.deleteStmt.ExecContext(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session %q: %w", sessionID, err)
	}
	return nil
}

// List returns all sessions ordered by ID.
func (s *ImagingStore) List(ctx context.Context) ([]*imaging.Session, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*imaging.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		result = append(result, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return result, nil
}

// Ping verifies the database is reachable.
func (s *ImagingStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *ImagingStore) Path() string { return s.path }

// Close releases the prepared statements and the database handle.
func (s *ImagingStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.putStmt, s.getStmt, s.deleteStmt, s.listStmt} {
			if stmt != nil {
				_ = stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*imaging.Session, error) {
	var (
		sess       imaging.Session
		sharedJSON string
	)
	if err := row.Scan(&sess.ID, &sess.ProjectID, &sess.Label, &sess.StudyInstanceUID, &sharedJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sharedJSON), &sess.SharedProjects); err != nil {
		return nil, fmt.Errorf("decode shared projects of %q: %w", sess.ID, err)
	}
	return &sess, nil
}

// Compile-time interface verification.
var (
	_ imaging.SessionStore  = (*ImagingStore)(nil)
	_ imaging.SessionWriter = (*ImagingStore)(nil)
)
