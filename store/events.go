package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/c360studio/docsentinel/drift"
)

// UpsertEvents persists a scan's emitted events. Existing rows are matched
// by id; since event IDs are time-ordered UUIDs minted once per finding,
// this is effectively insert-only except when re-applying the same scan.
func (s *Store) UpsertEvents(ctx context.Context, tx *sql.Tx, events []drift.Event) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (
			id, kind, severity, confidence, description, evidence,
			related_code, related_doc, suggested_fix, status,
			ignore_reason, ignore_permanent, ignored_at_rev,
			created_revision, updated_revision
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description      = excluded.description,
			evidence         = excluded.evidence,
			suggested_fix    = excluded.suggested_fix,
			updated_revision = excluded.updated_revision
	`)
	if err != nil {
		return fmt.Errorf("preparing event upsert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		relatedCode, err := json.Marshal(ev.RelatedCode)
		if err != nil {
			return fmt.Errorf("marshalling related code for %s: %w", ev.ID, err)
		}
		relatedDoc, err := json.Marshal(ev.RelatedDoc)
		if err != nil {
			return fmt.Errorf("marshalling related doc for %s: %w", ev.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			ev.ID, string(ev.Kind), string(ev.Severity), ev.Confidence, ev.Description, ev.Evidence,
			string(relatedCode), string(relatedDoc), ev.SuggestedFix, string(ev.Status),
			ev.IgnoreReason, ev.IgnorePermanent, ev.IgnoredAtRev,
			ev.CreatedRev, ev.UpdatedRev,
		); err != nil {
			return fmt.Errorf("upserting event %s: %w", ev.ID, err)
		}
	}

	return nil
}

// GetEvent retrieves an event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (*drift.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, severity, confidence, description, evidence,
		       related_code, related_doc, suggested_fix, status,
		       ignore_reason, ignore_permanent, ignored_at_rev,
		       created_revision, updated_revision
		FROM events WHERE id = ?
	`, id)
	return scanEvent(row)
}

// EventFilter narrows ListEvents. Zero-value fields are unconstrained.
type EventFilter struct {
	Status drift.Status
	Kind   drift.Kind
}

// ListEvents returns events matching filter, most severe and most recently
// created first.
func (s *Store) ListEvents(ctx context.Context, filter EventFilter) ([]drift.Event, error) {
	query := `
		SELECT id, kind, severity, confidence, description, evidence,
		       related_code, related_doc, suggested_fix, status,
		       ignore_reason, ignore_permanent, ignored_at_rev,
		       created_revision, updated_revision
		FROM events WHERE 1=1
	`
	var args []any
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	query += " ORDER BY rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []drift.Event
	for rows.Next() {
		ev, err := scanEventRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return severityOrder(out[i].Severity) < severityOrder(out[j].Severity)
	})
	return out, nil
}

func severityOrder(sev drift.Severity) int {
	switch sev {
	case drift.SeverityCritical:
		return 0
	case drift.SeverityHigh:
		return 1
	case drift.SeverityMedium:
		return 2
	default:
		return 3
	}
}

// AcceptEvent transitions a pending event to accepted.
func (s *Store) AcceptEvent(ctx context.Context, id, revision string) error {
	return s.setEventStatus(ctx, id, drift.StatusAccepted, revision)
}

// ApplyFix transitions an event to fixed, recording the commit the fix
// landed in as updated_revision.
func (s *Store) ApplyFix(ctx context.Context, id, revision string) error {
	return s.setEventStatus(ctx, id, drift.StatusFixed, revision)
}

func (s *Store) setEventStatus(ctx context.Context, id string, status drift.Status, revision string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET status = ?, updated_revision = ? WHERE id = ?`,
		string(status), revision, id)
	if err != nil {
		return fmt.Errorf("updating event %s status: %w", id, err)
	}
	return checkRowAffected(res, id)
}

// IgnoreEvent transitions an event to ignored. If permanent is false, the
// ignore is scoped to revision: a later scan re-emits the same finding
// once its scan range advances past revision (see PriorIgnores).
func (s *Store) IgnoreEvent(ctx context.Context, id, reason string, permanent bool, revision string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET status = ?, ignore_reason = ?, ignore_permanent = ?, ignored_at_rev = ?, updated_revision = ?
		WHERE id = ?
	`, string(drift.StatusIgnored), reason, permanent, revision, revision, id)
	if err != nil {
		return fmt.Errorf("ignoring event %s: %w", id, err)
	}
	return checkRowAffected(res, id)
}

// PriorIgnores builds the dedup-key-to-ignore-record map the drift engine
// needs to suppress re-emission of previously ignored findings.
func (s *Store) PriorIgnores(ctx context.Context) (map[string]drift.IgnoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, related_code, related_doc, ignore_permanent, ignored_at_rev
		FROM events WHERE status = ?
	`, string(drift.StatusIgnored))
	if err != nil {
		return nil, fmt.Errorf("querying ignored events: %w", err)
	}
	defer rows.Close()

	out := make(map[string]drift.IgnoreRecord)
	for rows.Next() {
		var kind, relatedCodeJSON, relatedDocJSON, ignoredAtRev string
		var permanent bool
		if err := rows.Scan(&kind, &relatedCodeJSON, &relatedDocJSON, &permanent, &ignoredAtRev); err != nil {
			return nil, fmt.Errorf("scanning ignored event: %w", err)
		}

		var relatedCode, relatedDoc []string
		_ = json.Unmarshal([]byte(relatedCodeJSON), &relatedCode)
		_ = json.Unmarshal([]byte(relatedDocJSON), &relatedDoc)

		key := drift.Event{Kind: drift.Kind(kind), RelatedCode: relatedCode, RelatedDoc: relatedDoc}.DedupKey()
		out[key] = drift.IgnoreRecord{Permanent: permanent, PinnedRevision: ignoredAtRev}
	}
	return out, rows.Err()
}

func checkRowAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for event %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEvent(row *sql.Row) (*drift.Event, error) {
	return scanEventCommon(row)
}

func scanEventRows(rows *sql.Rows) (*drift.Event, error) {
	return scanEventCommon(rows)
}

func scanEventCommon(s scannable) (*drift.Event, error) {
	var ev drift.Event
	var kind, severity, status string
	var relatedCodeJSON, relatedDocJSON string

	if err := s.Scan(
		&ev.ID, &kind, &severity, &ev.Confidence, &ev.Description, &ev.Evidence,
		&relatedCodeJSON, &relatedDocJSON, &ev.SuggestedFix, &status,
		&ev.IgnoreReason, &ev.IgnorePermanent, &ev.IgnoredAtRev,
		&ev.CreatedRev, &ev.UpdatedRev,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	ev.Kind = drift.Kind(kind)
	ev.Severity = drift.Severity(severity)
	ev.Status = drift.Status(status)
	_ = json.Unmarshal([]byte(relatedCodeJSON), &ev.RelatedCode)
	_ = json.Unmarshal([]byte(relatedDocJSON), &ev.RelatedDoc)

	return &ev, nil
}
