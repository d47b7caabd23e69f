// Package audit records the lifecycle of every command queued to the bridge.
//
// A Recorder is installed as the store's observer. It turns queued,
// delivered and acked transitions into rows of the command_audit table,
// written by a background goroutine so the store never waits on SQLite.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lifecycle events.
const (
	EventQueued    = "queued"
	EventDelivered = "delivered"
	EventAcked     = "acked"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Entry is one lifecycle transition of one command.
type Entry struct {
	ID         string         `json:"id"`
	CommandID  string         `json:"command_id"`
	BridgeID   string         `json:"bridge_id"`
	DeviceID   string         `json:"device_id"`
	Action     string         `json:"action"`
	Params     map[string]any `json:"params"`
	Event      string         `json:"event"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	DeviceID  string // optional
	CommandID string // optional
	Event     string // optional
	Limit     int    // default 50, max 200
	Offset    int
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the persistence operations of the audit trail.
type Repository interface {
	CreateBatch(ctx context.Context, entries []Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRepository stores entries in the command_audit table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateBatch inserts entries in one transaction. IDs are generated when empty.
func (r *SQLiteRepository) CreateBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting audit transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO command_audit (id, command_id, bridge_id, device_id, action, params, event, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing audit insert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = "aud-" + uuid.NewString()
		}
		if e.OccurredAt.IsZero() {
			e.OccurredAt = time.Now().UTC()
		}
		params := e.Params
		if params == nil {
			params = map[string]any{}
		}
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshalling params of %s: %w", e.CommandID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			e.ID, e.CommandID, e.BridgeID, e.DeviceID, e.Action,
			string(paramsJSON), e.Event, e.OccurredAt.UTC().Format(timeLayout),
		); err != nil {
			return fmt.Errorf("inserting audit entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing audit entries: %w", err)
	}
	return nil
}

// List returns entries matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.CommandID != "" {
		conditions = append(conditions, "command_id = ?")
		args = append(args, filter.CommandID)
	}
	if filter.Event != "" {
		conditions = append(conditions, "event = ?")
		args = append(args, filter.Event)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM command_audit " + where //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}

	query := `SELECT id, command_id, bridge_id, device_id, action, params, event, occurred_at
		FROM command_audit ` + where + ` ORDER BY occurred_at DESC, rowid DESC LIMIT ? OFFSET ?` //nolint:gosec // as above
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var paramsJSON, occurredAt string
		if err := rows.Scan(&e.ID, &e.CommandID, &e.BridgeID, &e.DeviceID, &e.Action,
			&paramsJSON, &e.Event, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if err := json.Unmarshal([]byte(paramsJSON), &e.Params); err != nil {
			e.Params = map[string]any{}
		}
		t, err := time.Parse(timeLayout, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing audit timestamp %q: %w", occurredAt, err)
		}
		e.OccurredAt = t
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// Prune deletes entries that occurred before the cutoff and returns how many.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM command_audit WHERE occurred_at < ?",
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned entries: %w", err)
	}
	return n, nil
}
