package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ScanRecord is one completed (or in-flight) scan of the repository.
type ScanRecord struct {
	ID         string
	FromRev    string
	ToRev      string
	Mode       string
	StartedAt  string
	FinishedAt string
	EventCount int
}

const lastScanToKey = "last_scan_to"

// RecordScan persists a scan's outcome. Call within the same transaction
// as the chunk reconciliation and event upserts it summarizes, so a scan
// either fully lands or fully rolls back.
func (s *Store) RecordScan(ctx context.Context, tx *sql.Tx, rec ScanRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO scans (id, from_rev, to_rev, mode, started_at, finished_at, event_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.FromRev, rec.ToRev, rec.Mode, rec.StartedAt, nullString(rec.FinishedAt), rec.EventCount)
	if err != nil {
		return fmt.Errorf("recording scan %s: %w", rec.ID, err)
	}
	return s.setSetting(ctx, tx, lastScanToKey, rec.ToRev)
}

// ListScans returns scans newest-first.
func (s *Store) ListScans(ctx context.Context) ([]ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_rev, to_rev, mode, started_at, finished_at, event_count
		FROM scans ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var finishedAt sql.NullString
		if err := rows.Scan(&rec.ID, &rec.FromRev, &rec.ToRev, &rec.Mode, &rec.StartedAt, &finishedAt, &rec.EventCount); err != nil {
			return nil, fmt.Errorf("scanning scan record: %w", err)
		}
		rec.FinishedAt = finishedAt.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LastScanTo returns the `to` revision of the most recently recorded scan,
// or "" if no scan has run yet. Callers resolve "since last scan" mode
// into an explicit walker range using this.
func (s *Store) LastScanTo(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, lastScanToKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading last scan revision: %w", err)
	}
	return value, nil
}

func (s *Store) setSetting(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// Setting returns a raw configuration value stored in the settings table.
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting writes a raw configuration value outside of a scan transaction.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}
