// Package history provides access to the lifecycle history tables:
// controller state transitions and applied switch requests.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Transition represents one committed controller state transition.
type Transition struct {
	ID         string    `json:"id"`
	Controller string    `json:"controller"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	CreatedAt  time.Time `json:"created_at"`
}

// Switch represents one applied switch request.
type Switch struct {
	ID         string    `json:"id"`
	Started    []string  `json:"started"`
	Stopped    []string  `json:"stopped"`
	Strictness string    `json:"strictness"`
	StartASAP  bool      `json:"start_asap"`
	Error      string    `json:"error,omitempty"`
	StagedAt   time.Time `json:"staged_at"`
	AppliedAt  time.Time `json:"applied_at"`
}

// TransitionFilter controls which transitions to return.
type TransitionFilter struct {
	Controller string // optional: filter by controller name
	To         string // optional: filter by resulting state
	Limit      int    // default 50, max 200
	Offset     int    // pagination offset
}

// TransitionList contains the paginated transition results.
type TransitionList struct {
	Transitions []Transition `json:"transitions"`
	Total       int          `json:"total"`
	Limit       int          `json:"limit"`
	Offset      int          `json:"offset"`
}

// SwitchFilter controls which switch records to return.
type SwitchFilter struct {
	Strictness string // optional: filter by request strictness
	Limit      int    // default 50, max 200
	Offset     int    // pagination offset
}

// SwitchList contains the paginated switch results.
type SwitchList struct {
	Switches []Switch `json:"switches"`
	Total    int      `json:"total"`
	Limit    int      `json:"limit"`
	Offset   int      `json:"offset"`
}

// Repository defines the interface for lifecycle history operations.
type Repository interface {
	CreateTransition(ctx context.Context, tr *Transition) error
	CreateSwitch(ctx context.Context, sw *Switch) error
	ListTransitions(ctx context.Context, filter TransitionFilter) (*TransitionList, error)
	ListSwitches(ctx context.Context, filter SwitchFilter) (*SwitchList, error)
}

// SQLiteRepository stores lifecycle history in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new lifecycle history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateTransition inserts one transition record. The ID and CreatedAt are
// generated if empty.
func (r *SQLiteRepository) CreateTransition(ctx context.Context, tr *Transition) error {
	if tr.ID == "" {
		tr.ID = "trn-" + uuid.NewString()[:8]
	}
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO controller_transitions (id, controller, from_state, to_state, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		tr.ID, tr.Controller, tr.From, tr.To,
		tr.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting transition: %w", err)
	}
	return nil
}

// CreateSwitch inserts one switch record. The ID is generated if empty.
func (r *SQLiteRepository) CreateSwitch(ctx context.Context, sw *Switch) error {
	if sw.ID == "" {
		sw.ID = "swi-" + uuid.NewString()[:8]
	}

	started, err := json.Marshal(emptyNotNil(sw.Started))
	if err != nil {
		return fmt.Errorf("marshalling started set: %w", err)
	}
	stopped, err := json.Marshal(emptyNotNil(sw.Stopped))
	if err != nil {
		return fmt.Errorf("marshalling stopped set: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO switch_records (id, started, stopped, strictness, start_asap, error, staged_at, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sw.ID, string(started), string(stopped), sw.Strictness,
		sw.StartASAP, nullableString(sw.Error),
		sw.StagedAt.Format(time.RFC3339Nano),
		sw.AppliedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting switch record: %w", err)
	}
	return nil
}

// emptyNotNil normalises a nil slice so it marshals as [] rather than null.
func emptyNotNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// clampPage applies the default and maximum page size.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListTransitions returns transitions matching the filter, most recent first.
func (r *SQLiteRepository) ListTransitions(ctx context.Context, filter TransitionFilter) (*TransitionList, error) {
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)

	var conditions []string
	var args []any
	if filter.Controller != "" {
		conditions = append(conditions, "controller = ?")
		args = append(args, filter.Controller)
	}
	if filter.To != "" {
		conditions = append(conditions, "to_state = ?")
		args = append(args, filter.To)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE clause is assembled from parameterised conditions only.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM controller_transitions %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting transitions: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, controller, from_state, to_state, created_at FROM controller_transitions %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	transitions := []Transition{}
	for rows.Next() {
		var tr Transition
		var createdAt string
		if err := rows.Scan(&tr.ID, &tr.Controller, &tr.From, &tr.To, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing transition timestamp %q: %w", createdAt, err)
		}
		tr.CreatedAt = t
		transitions = append(transitions, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transitions: %w", err)
	}

	return &TransitionList{
		Transitions: transitions,
		Total:       total,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}, nil
}

// ListSwitches returns switch records matching the filter, most recent first.
func (r *SQLiteRepository) ListSwitches(ctx context.Context, filter SwitchFilter) (*SwitchList, error) {
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)

	var conditions []string
	var args []any
	if filter.Strictness != "" {
		conditions = append(conditions, "strictness = ?")
		args = append(args, filter.Strictness)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM switch_records %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting switch records: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, started, stopped, strictness, start_asap, error, staged_at, applied_at FROM switch_records %s ORDER BY applied_at DESC, id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying switch records: %w", err)
	}
	defer rows.Close()

	switches := []Switch{}
	for rows.Next() {
		var sw Switch
		var started, stopped, stagedAt, appliedAt string
		var swErr sql.NullString
		if err := rows.Scan(&sw.ID, &started, &stopped, &sw.Strictness,
			&sw.StartASAP, &swErr, &stagedAt, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning switch record: %w", err)
		}

		if err := json.Unmarshal([]byte(started), &sw.Started); err != nil {
			return nil, fmt.Errorf("parsing started set %q: %w", started, err)
		}
		if err := json.Unmarshal([]byte(stopped), &sw.Stopped); err != nil {
			return nil, fmt.Errorf("parsing stopped set %q: %w", stopped, err)
		}
		if swErr.Valid {
			sw.Error = swErr.String
		}

		staged, err := time.Parse(time.RFC3339Nano, stagedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing staged timestamp %q: %w", stagedAt, err)
		}
		applied, err := time.Parse(time.RFC3339Nano, appliedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing applied timestamp %q: %w", appliedAt, err)
		}
		sw.StagedAt = staged
		sw.AppliedAt = applied

		switches = append(switches, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating switch records: %w", err)
	}

	return &SwitchList{
		Switches: switches,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}
