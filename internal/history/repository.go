package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Repository stores and lists automation history.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, filter Filter) (*ListResult, error)
	RecordObserver(ctx context.Context, ev *ObserverEvent) error
	ListObservers(ctx context.Context, uri string, limit int) ([]ObserverEvent, error)
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRepository implements Repository on SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a history repository on an open, migrated
// database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a finished session. The ID and FinishedAt are generated
// if empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.URI == "" || rec.Kind == "" || rec.State == "" {
		return fmt.Errorf("%w: uri, kind and state are required", ErrInvalidRecord)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now().UTC()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.FinishedAt
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO automation_sessions
		 (id, host, session_id, kind, uri, attribute, method, mode, state,
		  applied, received, failures, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Host, rec.SessionID, rec.Kind, rec.URI,
		rec.Attribute, rec.Method, rec.Mode, rec.State,
		rec.Applied, rec.Received, rec.Failures, rec.Error,
		formatTime(rec.StartedAt), formatTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session record: %w", err)
	}
	return nil
}

const recordColumns = `id, host, session_id, kind, uri, attribute, method, mode, state,
	applied, received, failures, error, started_at, finished_at`

// Get returns one record by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM automation_sessions WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns records matching the filter, most recently finished first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.URI != "" {
		conditions = append(conditions, "uri = ?")
		args = append(args, filter.URI)
	}
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, filter.State)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM automation_sessions " + where //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting session records: %w", err)
	}

	query := "SELECT " + recordColumns + " FROM automation_sessions " + where + //nolint:gosec // WHERE built from parameterised conditions
		" ORDER BY finished_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying session records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session records: %w", err)
	}

	return &ListResult{
		Records: records,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// RecordObserver inserts an observer registration change.
func (r *SQLiteRepository) RecordObserver(ctx context.Context, ev *ObserverEvent) error {
	if ev.URI == "" || ev.ObserverID == "" {
		return fmt.Errorf("%w: uri and observer id are required", ErrInvalidRecord)
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO observer_events (uri, observer_id, address, status, at)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.URI, ev.ObserverID, ev.Address, ev.Status, formatTime(ev.At),
	)
	if err != nil {
		return fmt.Errorf("inserting observer event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		ev.ID = id
	}
	return nil
}

// ListObservers returns the latest observer events for uri, newest first.
// An empty uri lists every resource.
func (r *SQLiteRepository) ListObservers(ctx context.Context, uri string, limit int) ([]ObserverEvent, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	query := "SELECT id, uri, observer_id, address, status, at FROM observer_events"
	var args []any
	if uri != "" {
		query += " WHERE uri = ?"
		args = append(args, uri)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying observer events: %w", err)
	}
	defer rows.Close()

	events := []ObserverEvent{}
	for rows.Next() {
		var ev ObserverEvent
		var at string
		if err := rows.Scan(&ev.ID, &ev.URI, &ev.ObserverID, &ev.Address, &ev.Status, &at); err != nil {
			return nil, fmt.Errorf("scanning observer event: %w", err)
		}
		if ev.At, err = parseTime(at); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating observer events: %w", err)
	}
	return events, nil
}

// PruneBefore deletes session records that finished before the cutoff and
// returns how many were removed.
func (r *SQLiteRepository) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM automation_sessions WHERE finished_at < ?", formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("pruning session records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning session records: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var started, finished string
	err := s.Scan(&rec.ID, &rec.Host, &rec.SessionID, &rec.Kind, &rec.URI,
		&rec.Attribute, &rec.Method, &rec.Mode, &rec.State,
		&rec.Applied, &rec.Received, &rec.Failures, &rec.Error,
		&started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session record: %w", err)
	}
	if rec.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if rec.FinishedAt, err = parseTime(finished); err != nil {
		return nil, err
	}
	return &rec, nil
}

// timeLayout has a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
