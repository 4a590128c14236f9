package main

import (
	"bytes"
	"testing"

	"github.com/c360studio/docsentinel/drift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCodeForEventsIgnoresNonPending(t *testing.T) {
	events := []drift.Event{
		{Severity: drift.SeverityCritical, Status: drift.StatusIgnored},
		{Severity: drift.SeverityHigh, Status: drift.StatusPending},
	}
	assert.Equal(t, exitPendingHigh, exitCodeForEvents(events))
}

func TestExitCodeForEventsCriticalBeatsHigh(t *testing.T) {
	events := []drift.Event{
		{Severity: drift.SeverityHigh, Status: drift.StatusPending},
		{Severity: drift.SeverityCritical, Status: drift.StatusPending},
	}
	assert.Equal(t, exitPendingCritical, exitCodeForEvents(events))
}

func TestExitCodeForEventsCleanWhenOnlyMediumOrLow(t *testing.T) {
	events := []drift.Event{
		{Severity: drift.SeverityMedium, Status: drift.StatusPending},
		{Severity: drift.SeverityLow, Status: drift.StatusPending},
	}
	assert.Equal(t, exitClean, exitCodeForEvents(events))
}

func TestToWireEventOmitsEmptySuggestedFix(t *testing.T) {
	e := drift.Event{ID: "evt-1", Severity: drift.SeverityHigh, Kind: drift.KindSymbolAdded, Status: drift.StatusPending}
	w := toWireEvent(e)
	assert.Nil(t, w.SuggestedFix)
	assert.Equal(t, "High", w.Severity)
}

func TestToWireEventCarriesSuggestedFix(t *testing.T) {
	e := drift.Event{SuggestedFix: "update the README"}
	w := toWireEvent(e)
	require.NotNil(t, w.SuggestedFix)
	assert.Equal(t, "update the README", *w.SuggestedFix)
}

func TestWriteEventsJSONProducesArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEventsJSON(&buf, []drift.Event{{ID: "evt-1"}}))
	assert.Contains(t, buf.String(), `"id": "evt-1"`)
}
