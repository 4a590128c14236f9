package store_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/c360studio/docsentinel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordScanUpdatesLastScanTo(t *testing.T) {
	s, _ := setupTestStore(t)
	rec := store.ScanRecord{ID: "scan-1", FromRev: "rev0", ToRev: "rev1", Mode: "range", StartedAt: "2026-08-01T00:00:00Z", EventCount: 3}

	err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
		return s.RecordScan(context.Background(), tx, rec)
	})
	require.NoError(t, err)

	last, err := s.LastScanTo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rev1", last)

	scans, err := s.ListScans(context.Background())
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, 3, scans[0].EventCount)
}

func TestRecordScanRollsBackWithFailedTransaction(t *testing.T) {
	s, _ := setupTestStore(t)
	rec := store.ScanRecord{ID: "scan-1", ToRev: "rev1", Mode: "range", StartedAt: "t"}

	err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := s.RecordScan(context.Background(), tx, rec); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	scans, err := s.ListScans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, scans, "failed transaction must not leave a partial scan row")

	last, err := s.LastScanTo(context.Background())
	require.NoError(t, err)
	assert.Empty(t, last)
}
