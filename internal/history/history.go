// Package history provides the local SQLite execution journal. Every
// finished execution is recorded so past runs survive process restarts and
// can be inspected from the CLI.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/squadronhq/squadron/pkg/models"
)

// Store wraps the journal database.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the journal location under the user data directory.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "squadron", "history.db")
}

// Open opens the journal at the given path, creating parent directories and
// applying migrations. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the journal file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Executions},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Executions = `
CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	agent_type TEXT NOT NULL,
	project TEXT NOT NULL,
	description TEXT NOT NULL,
	state TEXT NOT NULL,
	error TEXT,
	result TEXT,
	workspace_path TEXT,
	started_at DATETIME NOT NULL,
	ended_at DATETIME,
	duration_seconds REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_executions_task_id ON executions(task_id);
CREATE INDEX IF NOT EXISTS idx_executions_project ON executions(project);
CREATE INDEX IF NOT EXISTS idx_executions_state ON executions(state);
`

// RecordExecution journals one finished execution. Re-recording the same
// execution ID overwrites the prior row.
func (s *Store) RecordExecution(rec *models.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var resultJSON []byte
	if rec.Result != nil {
		var err error
		resultJSON, err = json.Marshal(rec.Result)
		if err != nil {
			return fmt.Errorf("marshal execution result: %w", err)
		}
	}

	var endedAt any
	if rec.EndedAt != nil {
		endedAt = rec.EndedAt.UTC()
	}

	_, err := s.conn.Exec(`
		INSERT OR REPLACE INTO executions
			(id, task_id, agent_type, project, description, state, error, result, workspace_path, started_at, ended_at, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Task.ID, string(rec.Task.AgentType), rec.Task.Project,
		rec.Task.Description, string(rec.State), rec.Error, string(resultJSON),
		rec.WorkspacePath, rec.StartedAt.UTC(), endedAt, rec.Duration().Seconds(),
	)
	if err != nil {
		return fmt.Errorf("record execution %s: %w", rec.ID, err)
	}
	return nil
}

// Entry is one journaled execution.
type Entry struct {
	ID              string
	TaskID          string
	AgentType       models.AgentType
	Project         string
	Description     string
	State           models.ExecutionState
	Error           string
	StartedAt       time.Time
	DurationSeconds float64
}

// ListRecent returns the most recent executions, newest first.
func (s *Store) ListRecent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT id, task_id, agent_type, project, description, state, COALESCE(error, ''), started_at, duration_seconds
		FROM executions
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var agentType, state string
		if err := rows.Scan(&e.ID, &e.TaskID, &agentType, &e.Project, &e.Description, &state, &e.Error, &e.StartedAt, &e.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}
		e.AgentType = models.AgentType(agentType)
		e.State = models.ExecutionState(state)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AgentStats summarizes journaled executions for one agent type.
type AgentStats struct {
	AgentType   models.AgentType
	Total       int
	Completed   int
	Failed      int
	AvgDuration float64
}

// StatsByAgent aggregates execution counts and average duration per agent.
func (s *Store) StatsByAgent() ([]AgentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT agent_type,
			COUNT(*),
			SUM(CASE WHEN state = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN state = 'failed' THEN 1 ELSE 0 END),
			AVG(duration_seconds)
		FROM executions
		GROUP BY agent_type
		ORDER BY agent_type`)
	if err != nil {
		return nil, fmt.Errorf("aggregate executions: %w", err)
	}
	defer rows.Close()

	var stats []AgentStats
	for rows.Next() {
		var st AgentStats
		var agentType string
		if err := rows.Scan(&agentType, &st.Total, &st.Completed, &st.Failed, &st.AvgDuration); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		st.AgentType = models.AgentType(agentType)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
