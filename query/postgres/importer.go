package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hupe1980/analystloop/logging"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
    id SERIAL PRIMARY KEY,
    session_id TEXT UNIQUE,
    source TEXT,
    memory_type TEXT,
    email TEXT
)`

const createMessagesTable = `
CREATE TABLE IF NOT EXISTS messages (
    id SERIAL PRIMARY KEY,
    session_id TEXT REFERENCES sessions(session_id),
    content TEXT,
    role TEXT,
    time TIMESTAMP,
    used_tools JSONB,
    file_annotations JSONB
)`

const insertSession = `
INSERT INTO sessions (session_id, source, memory_type, email)
VALUES ($1, $2, $3, $4)
ON CONFLICT (session_id) DO NOTHING`

const insertMessage = `
INSERT INTO messages (session_id, content, role, time, used_tools, file_annotations)
VALUES ($1, $2, $3, $4, $5, $6)`

// ChatSession is one conversation of a chat export file.
type ChatSession struct {
	SessionID  string        `json:"sessionId"`
	Source     string        `json:"source"`
	MemoryType *string       `json:"memoryType"`
	Email      string        `json:"email"`
	Messages   []ChatMessage `json:"messages"`
}

// ChatMessage is one message of a ChatSession.
type ChatMessage struct {
	Content         string          `json:"content"`
	Role            string          `json:"role"`
	Time            string          `json:"time"`
	UsedTools       json.RawMessage `json:"usedTools"`
	FileAnnotations json.RawMessage `json:"fileAnnotations"`
}

// ImportStats counts what an import wrote.
type ImportStats struct {
	Sessions int
	Messages int
}

// DecodeExport parses a chat export (a JSON array of sessions) and checks
// that every message timestamp parses.
func DecodeExport(r io.Reader) ([]ChatSession, error) {
	var sessions []ChatSession
	if err := json.NewDecoder(r).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("decode chat export: %w", err)
	}
	for _, s := range sessions {
		if s.SessionID == "" {
			return nil, fmt.Errorf("decode chat export: session without sessionId")
		}
		for i, m := range s.Messages {
			if _, err := parseTime(m.Time); err != nil {
				return nil, fmt.Errorf("decode chat export: session %s message %d: %w", s.SessionID, i, err)
			}
		}
	}
	return sessions, nil
}

// Importer loads chat exports into PostgreSQL.
type Importer struct {
	db     Querier
	logger logging.Logger
}

// NewImporter creates an Importer.
func NewImporter(db Querier, logger logging.Logger) *Importer {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Importer{db: db, logger: logger}
}

// Import creates the schema if needed and inserts all sessions and messages
// in a single transaction. Existing sessions are kept; any failure rolls the
// whole import back.
func (im *Importer) Import(ctx context.Context, sessions []ChatSession) (ImportStats, error) {
	tx, err := im.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ImportStats{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, ddl := range []string{createSessionsTable, createMessagesTable} {
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return ImportStats{}, fmt.Errorf("create schema: %w", err)
		}
	}

	batch := &pgx.Batch{}
	var stats ImportStats
	for _, s := range sessions {
		batch.Queue(insertSession, s.SessionID, s.Source, s.MemoryType, s.Email)
		stats.Sessions++
	}
	for _, s := range sessions {
		for _, m := range s.Messages {
			ts, err := parseTime(m.Time)
			if err != nil {
				return ImportStats{}, err
			}
			batch.Queue(insertMessage, s.SessionID, m.Content, m.Role, ts, jsonOrEmpty(m.UsedTools), jsonOrEmpty(m.FileAnnotations))
			stats.Messages++
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		im.logger.Error("postgres.import.failed", "error", err.Error())
		return ImportStats{}, fmt.Errorf("insert chat export: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ImportStats{}, fmt.Errorf("commit chat export: %w", err)
	}

	im.logger.Info("postgres.import.completed", "sessions", stats.Sessions, "messages", stats.Messages)

	return stats, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// jsonOrEmpty returns the raw JSON text, defaulting absent values to "[]".
func jsonOrEmpty(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "[]"
	}
	return string(raw)
}
