package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/docsentinel/drift"
)

// wireEvent is the on-wire JSON representation of a drift.Event handed to
// CLI/TUI callers.
type wireEvent struct {
	ID                string   `json:"id"`
	Severity          string   `json:"severity"`
	Kind              string   `json:"kind"`
	Description       string   `json:"description"`
	Evidence          string   `json:"evidence"`
	Confidence        float64  `json:"confidence"`
	RelatedCodeChunks []string `json:"related_code_chunks"`
	RelatedDocChunks  []string `json:"related_doc_chunks"`
	SuggestedFix      *string  `json:"suggested_fix"`
	Status            string   `json:"status"`
}

func toWireEvent(e drift.Event) wireEvent {
	w := wireEvent{
		ID:                e.ID,
		Severity:          capitalize(string(e.Severity)),
		Kind:              string(e.Kind),
		Description:       e.Description,
		Evidence:          e.Evidence,
		Confidence:        e.Confidence,
		RelatedCodeChunks: e.RelatedCode,
		RelatedDocChunks:  e.RelatedDoc,
		Status:            string(e.Status),
	}
	if e.SuggestedFix != "" {
		fix := e.SuggestedFix
		w.SuggestedFix = &fix
	}
	return w
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writeEventsJSON(w io.Writer, events []drift.Event) error {
	wire := make([]wireEvent, len(events))
	for i, e := range events {
		wire[i] = toWireEvent(e)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(wire)
}

func printEventsText(w io.Writer, events []drift.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s  %-8s %-20s %s\n", e.ID, capitalize(string(e.Severity)), e.Kind, e.Description)
	}
}

// highestPendingSeverity returns the most severe pending event's severity,
// or "" if nothing is pending.
func highestPendingSeverity(events []drift.Event) drift.Severity {
	best := drift.Severity("")
	rank := map[drift.Severity]int{
		drift.SeverityCritical: 0,
		drift.SeverityHigh:     1,
		drift.SeverityMedium:   2,
		drift.SeverityLow:      3,
	}
	bestRank := 4
	for _, e := range events {
		if e.Status != drift.StatusPending {
			continue
		}
		if r := rank[e.Severity]; r < bestRank {
			bestRank = r
			best = e.Severity
		}
	}
	return best
}

func exitCodeForEvents(events []drift.Event) int {
	switch highestPendingSeverity(events) {
	case drift.SeverityCritical:
		return exitPendingCritical
	case drift.SeverityHigh:
		return exitPendingHigh
	default:
		return exitClean
	}
}
