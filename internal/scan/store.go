package scan

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seralin/baleen/internal/timewindow"
)

// Store persists what outlives a single session: the scan scope, the
// selected time range, and the record plus file inventory of the last
// completed scan.
type Store struct {
	db *sql.DB
}

// NewStore creates a scan store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveScope replaces the persisted scope wholesale.
func (s *Store) SaveScope(ctx context.Context, scope Scope) error {
	exclusions, err := json.Marshal(scope.CustomExclusions)
	if err != nil {
		return fmt.Errorf("encoding exclusions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_settings (id, use_recommended_exclusions, custom_exclusions, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			use_recommended_exclusions = excluded.use_recommended_exclusions,
			custom_exclusions = excluded.custom_exclusions,
			updated_at = excluded.updated_at
	`, boolInt(scope.UseRecommendedExclusions), string(exclusions), now)
	if err != nil {
		return fmt.Errorf("saving scan settings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scan_directories`); err != nil {
		return fmt.Errorf("clearing directories: %w", err)
	}
	for i, d := range scope.Directories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scan_directories (path, label, cloud_sync, position)
			VALUES (?, ?, ?, ?)
		`, d.Path, d.Label, boolInt(d.CloudSync), i)
		if err != nil {
			return fmt.Errorf("saving directory %s: %w", d.Path, err)
		}
	}

	return tx.Commit()
}

// LoadScope returns the persisted scope. A scope with no directories is
// returned when nothing has been saved yet.
func (s *Store) LoadScope(ctx context.Context) (Scope, error) {
	scope := Scope{UseRecommendedExclusions: true}

	var recommended int
	var exclusions string
	err := s.db.QueryRowContext(ctx, `
		SELECT use_recommended_exclusions, custom_exclusions FROM scan_settings WHERE id = 1
	`).Scan(&recommended, &exclusions)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return scope, nil
	case err != nil:
		return scope, fmt.Errorf("loading scan settings: %w", err)
	}
	scope.UseRecommendedExclusions = recommended != 0
	if err := json.Unmarshal([]byte(exclusions), &scope.CustomExclusions); err != nil {
		return scope, fmt.Errorf("decoding exclusions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, label, cloud_sync FROM scan_directories ORDER BY position
	`)
	if err != nil {
		return scope, fmt.Errorf("loading directories: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var d Directory
		var cloud int
		if err := rows.Scan(&d.Path, &d.Label, &cloud); err != nil {
			return scope, fmt.Errorf("scanning directory row: %w", err)
		}
		d.CloudSync = cloud != 0
		scope.Directories = append(scope.Directories, d)
	}
	return scope, rows.Err()
}

// SaveRange persists the currently selected time range.
func (s *Store) SaveRange(ctx context.Context, r timewindow.Range) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_settings (id, selector, year, custom_from, custom_to, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			selector = excluded.selector,
			year = excluded.year,
			custom_from = excluded.custom_from,
			custom_to = excluded.custom_to,
			updated_at = excluded.updated_at
	`, string(r.Selector), r.Year, nullableTime(r.From), nullableTime(r.To), now)
	if err != nil {
		return fmt.Errorf("saving selected range: %w", err)
	}
	return nil
}

// LoadRange returns the persisted selected range, defaulting to all-time.
func (s *Store) LoadRange(ctx context.Context) (timewindow.Range, error) {
	r := timewindow.Range{Selector: timewindow.SelectorAllTime}

	var selector string
	var year int
	var from, to sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT selector, year, custom_from, custom_to FROM scan_settings WHERE id = 1
	`).Scan(&selector, &year, &from, &to)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return r, nil
	case err != nil:
		return r, fmt.Errorf("loading selected range: %w", err)
	}

	r.Selector = timewindow.Selector(selector)
	r.Year = year
	r.From = parseNullableTime(from)
	r.To = parseNullableTime(to)
	if !r.Selector.Valid() {
		r = timewindow.Range{Selector: timewindow.SelectorAllTime}
	}
	return r, nil
}

// SaveRecord replaces the persisted scan record and its file inventory in
// one transaction. The record is only ever written whole; partial merges
// would leave the inventory inconsistent with the window it claims.
func (s *Store) SaveRecord(ctx context.Context, record *Record, files []File) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_record (id, selector, year, custom_from, custom_to,
			window_from, window_to, window_unbounded, completed_at, file_count)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			selector = excluded.selector,
			year = excluded.year,
			custom_from = excluded.custom_from,
			custom_to = excluded.custom_to,
			window_from = excluded.window_from,
			window_to = excluded.window_to,
			window_unbounded = excluded.window_unbounded,
			completed_at = excluded.completed_at,
			file_count = excluded.file_count
	`,
		string(record.Range.Selector), record.Range.Year,
		nullableTime(record.Range.From), nullableTime(record.Range.To),
		record.Window.From.UTC().Format(time.RFC3339),
		record.Window.To.UTC().Format(time.RFC3339),
		boolInt(record.Window.Unbounded),
		record.CompletedAt.UTC().Format(time.RFC3339),
		record.FileCount,
	)
	if err != nil {
		return fmt.Errorf("saving scan record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scanned_files`); err != nil {
		return fmt.Errorf("clearing scanned files: %w", err)
	}
	for _, f := range files {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scanned_files (path, name, parent, kind, size, modified_at, origin)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, f.Path, f.Name, f.Parent, string(f.Kind), f.Size,
			f.ModifiedAt.UTC().Format(time.RFC3339), string(f.Origin))
		if err != nil {
			return fmt.Errorf("saving scanned file %s: %w", f.Path, err)
		}
	}

	return tx.Commit()
}

// LoadRecord returns the persisted record and file inventory of the last
// completed scan, or nil when no scan has completed yet.
func (s *Store) LoadRecord(ctx context.Context) (*Record, []File, error) {
	var record Record
	var selector string
	var from, to sql.NullString
	var windowFrom, windowTo, completedAt string
	var unbounded int
	err := s.db.QueryRowContext(ctx, `
		SELECT selector, year, custom_from, custom_to,
			window_from, window_to, window_unbounded, completed_at, file_count
		FROM scan_record WHERE id = 1
	`).Scan(&selector, &record.Range.Year, &from, &to,
		&windowFrom, &windowTo, &unbounded, &completedAt, &record.FileCount)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil, nil
	case err != nil:
		return nil, nil, fmt.Errorf("loading scan record: %w", err)
	}

	record.Range.Selector = timewindow.Selector(selector)
	record.Range.From = parseNullableTime(from)
	record.Range.To = parseNullableTime(to)
	record.Window.Unbounded = unbounded != 0
	if record.Window.From, err = time.Parse(time.RFC3339, windowFrom); err != nil {
		return nil, nil, fmt.Errorf("parsing window from: %w", err)
	}
	if record.Window.To, err = time.Parse(time.RFC3339, windowTo); err != nil {
		return nil, nil, fmt.Errorf("parsing window to: %w", err)
	}
	if record.CompletedAt, err = time.Parse(time.RFC3339, completedAt); err != nil {
		return nil, nil, fmt.Errorf("parsing completed at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, name, parent, kind, size, modified_at, origin
		FROM scanned_files ORDER BY modified_at DESC
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("loading scanned files: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var files []File
	for rows.Next() {
		var f File
		var kind, origin, modified string
		if err := rows.Scan(&f.Path, &f.Name, &f.Parent, &kind, &f.Size, &modified, &origin); err != nil {
			return nil, nil, fmt.Errorf("scanning file row: %w", err)
		}
		f.Kind = Kind(kind)
		f.Origin = Origin(origin)
		if f.ModifiedAt, err = time.Parse(time.RFC3339, modified); err != nil {
			return nil, nil, fmt.Errorf("parsing modified at: %w", err)
		}
		files = append(files, f)
	}
	return &record, files, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
