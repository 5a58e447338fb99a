// Package audit records an append-only trail of tool calls. Rows carry the
// names of the arguments a caller supplied, never their values.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Entry is one tool call.
type Entry struct {
	ID            string        `json:"id"`
	ToolCallID    string        `json:"tool_call_id,omitempty"`
	Operation     string        `json:"operation"`
	Outcome       string        `json:"outcome"`
	CalendarID    string        `json:"calendar_id,omitempty"`
	ArgumentNames []string      `json:"argument_names"`
	Duration      time.Duration `json:"duration_ns"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Store writes entries to the tool_call_audit table.
type Store struct {
	db *sql.DB
}

// NewStore creates a new audit store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ArgumentNames returns the sorted keys of args.
func ArgumentNames(args map[string]string) []string {
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Record inserts an entry, filling id and timestamp when unset.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.ArgumentNames == nil {
		e.ArgumentNames = []string{}
	}

	query := `
		INSERT INTO tool_call_audit (
			id, tool_call_id, operation, outcome, calendar_id,
			argument_names, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		nullString(e.ToolCallID),
		e.Operation,
		e.Outcome,
		nullString(e.CalendarID),
		pq.Array(e.ArgumentNames),
		e.Duration.Milliseconds(),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to record tool call: %w", err)
	}
	return nil
}

// Recent lists the newest entries first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	switch {
	case limit <= 0:
		limit = 100
	case limit > 500:
		limit = 500
	}
	query := `
		SELECT id, COALESCE(tool_call_id, ''), operation, outcome, COALESCE(calendar_id, ''),
			argument_names, duration_ms, created_at
		FROM tool_call_audit
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query tool calls: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			names pq.StringArray
			ms    int64
		)
		if err := rows.Scan(&e.ID, &e.ToolCallID, &e.Operation, &e.Outcome, &e.CalendarID, &names, &ms, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: failed to scan tool call: %w", err)
		}
		e.ArgumentNames = []string(names)
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
