package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentkit-dev/agentkit"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite persists session messages in a local SQLite database, one row per
// message ordered by insertion sequence. It survives process restarts.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite-backed store at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL improves concurrent reader behavior.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		name TEXT,
		tool_call_id TEXT,
		timestamp TEXT NOT NULL,
		metadata TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Append inserts messages in order within one transaction.
func (s *SQLite) Append(ctx context.Context, sessionID string, messages []agentkit.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages(session_id, role, content, name, tool_call_id, timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, m := range messages {
		metadata, err := json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		ts := m.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			sessionID, string(m.Role), m.Content, m.Name, m.ToolCallID,
			ts.Format(time.RFC3339Nano), string(metadata),
		); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	return tx.Commit()
}

// Load returns at most limit most-recent messages in chronological order.
func (s *SQLite) Load(ctx context.Context, sessionID string, limit int) ([]agentkit.Message, error) {
	query := `
		SELECT role, content, name, tool_call_id, timestamp, metadata
		FROM messages WHERE session_id = ? ORDER BY id DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var newestFirst []agentkit.Message
	for rows.Next() {
		var (
			role, content, ts, metadata string
			name, toolCallID            sql.NullString
		)
		if err := rows.Scan(&role, &content, &name, &toolCallID, &ts, &metadata); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		m := agentkit.Message{
			Role:       agentkit.Role(role),
			Content:    content,
			Name:       name.String,
			ToolCallID: toolCallID.String,
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			m.Timestamp = parsed
		}
		if metadata != "" && metadata != "null" {
			if err := json.Unmarshal([]byte(metadata), &m.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first for the caller.
	out := make([]agentkit.Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(out)-1-i] = m
	}
	return out, nil
}

// SummarizeIfNeeded compacts the session past the given budget, replacing
// the stored history atomically.
func (s *SQLite) SummarizeIfNeeded(ctx context.Context, sessionID string, budget int) error {
	messages, err := s.Load(ctx, sessionID, 0)
	if err != nil {
		return err
	}

	compacted, changed := compact(messages, budget)
	if !changed {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin compaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	for _, m := range compacted {
		metadata, err := json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		ts := m.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages(session_id, role, content, name, tool_call_id, timestamp, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, string(m.Role), m.Content, m.Name, m.ToolCallID,
			ts.Format(time.RFC3339Nano), string(metadata),
		); err != nil {
			return fmt.Errorf("insert compacted message: %w", err)
		}
	}

	return tx.Commit()
}

// Sessions lists stored sessions with their last message timestamp.
func (s *SQLite) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MAX(timestamp)
		FROM messages GROUP BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var infos []SessionInfo
	for rows.Next() {
		var (
			info SessionInfo
			ts   string
		)
		if err := rows.Scan(&info.ID, &info.MessageCount, &ts); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			info.LastActivity = parsed
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteSession removes a session and its history.
func (s *SQLite) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID)
	return err
}

var (
	_ Backend = (*SQLite)(nil)
	_ Pruner  = (*SQLite)(nil)
)
