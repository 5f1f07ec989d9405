package interaction

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/concierge/backend/internal/model/assistant"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS interaction_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	user_id TEXT,
	interaction_type TEXT NOT NULL,
	user_query TEXT NOT NULL,
	assistant_response TEXT NOT NULL,
	intent_detected TEXT,
	confidence_score REAL,
	metadata TEXT,
	created_at TEXT NOT NULL
)`

const createIndexSQL = `CREATE INDEX IF NOT EXISTS idx_interaction_logs_session ON interaction_logs(session_id, id)`

// SQLiteSink stores entries in the interaction_logs table.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
// ":memory:" is accepted for tests.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &SinkError{Op: "open", Err: err}
	}
	// One connection: SQLite serialises writers anyway, and :memory: is per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &SinkError{Op: "ping", Err: err}
	}
	for _, stmt := range []string{createTableSQL, createIndexSQL} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, &SinkError{Op: "migrate", Err: err}
		}
	}
	return &SQLiteSink{db: db}, nil
}

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, e assistant.InteractionLogEntry) error {
	var metadata sql.NullString
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return &SinkError{Op: "encode", Err: err}
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interaction_logs
			(session_id, user_id, interaction_type, user_query, assistant_response,
			 intent_detected, confidence_score, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, nullable(e.UserID), e.InteractionType, e.UserQuery, e.AssistantResponse,
		nullable(e.IntentDetected), e.ConfidenceScore, metadata, e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &SinkError{Op: "insert", Err: err}
	}
	return nil
}

// Recent returns the latest entries of a session, oldest first.
func (s *SQLiteSink) Recent(ctx context.Context, sessionID string, limit int) ([]assistant.InteractionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, interaction_type, user_query, assistant_response,
		       intent_detected, confidence_score, metadata, created_at
		FROM (
			SELECT * FROM interaction_logs WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, sessionID, limit)
	if err != nil {
		return nil, &SinkError{Op: "query", Err: err}
	}
	defer rows.Close()

	var out []assistant.InteractionLogEntry
	for rows.Next() {
		var (
			e                    assistant.InteractionLogEntry
			userID, intent, meta sql.NullString
			confidence           sql.NullFloat64
			createdAt            string
		)
		if err := rows.Scan(&e.SessionID, &userID, &e.InteractionType, &e.UserQuery, &e.AssistantResponse,
			&intent, &confidence, &meta, &createdAt); err != nil {
			return nil, &SinkError{Op: "scan", Err: err}
		}
		e.UserID = userID.String
		e.IntentDetected = intent.String
		e.ConfidenceScore = confidence.Float64
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &e.Metadata); err != nil {
				return nil, &SinkError{Op: "decode", Err: fmt.Errorf("metadata: %w", err)}
			}
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = ts
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &SinkError{Op: "query", Err: err}
	}
	return out, nil
}

// Close releases the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
