package drift

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/docsentinel/llm"
)

// Enricher asks a language model for a refined description and suggested
// fix for a pending event. It drives llm.Client end to end (provider
// fallback chain, retry/backoff, fatal/transient classification) under the
// "reviewing" capability, since drift triage is a review task.
// Enrichment is strictly additive: severity, kind, and related-chunk sets
// are never touched, and a failure leaves the event untouched.
type Enricher struct {
	client *llm.Client
	logger *slog.Logger
}

// NewEnricher wraps an existing llm.Client for enrichment use.
func NewEnricher(client *llm.Client, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{client: client, logger: logger}
}

// Enrich attempts to fill Event.SuggestedFix and refine Event.Description.
// On any failure it logs and returns the event unchanged.
func (e *Enricher) Enrich(ctx context.Context, ev Event) Event {
	if e == nil || e.client == nil {
		return ev
	}

	resp, err := e.client.Complete(ctx, llm.Request{
		Capability: "reviewing",
		Messages: []llm.Message{
			{Role: "system", Content: "You triage documentation drift. Reply with two sections, DESCRIPTION: and SUGGESTED_FIX:, each one short paragraph. Do not change facts already stated in the evidence."},
			{Role: "user", Content: enrichmentPrompt(ev)},
		},
	})
	if err != nil {
		e.logger.Warn("enrichment failed, leaving event unchanged", "event_kind", ev.Kind, "error", err)
		return ev
	}

	description, fix := parseEnrichment(resp.Content)
	if description != "" {
		ev.Description = description
	}
	if fix != "" {
		ev.SuggestedFix = fix
	}
	return ev
}

func enrichmentPrompt(ev Event) string {
	return fmt.Sprintf("kind: %s\nseverity: %s\ndescription: %s\nevidence:\n%s",
		ev.Kind, ev.Severity, ev.Description, ev.Evidence)
}

func parseEnrichment(content string) (description, fix string) {
	const descMarker = "DESCRIPTION:"
	const fixMarker = "SUGGESTED_FIX:"

	descIdx := strings.Index(content, descMarker)
	fixIdx := strings.Index(content, fixMarker)
	if descIdx == -1 || fixIdx == -1 {
		return "", ""
	}

	if descIdx < fixIdx {
		description = strings.TrimSpace(content[descIdx+len(descMarker) : fixIdx])
		fix = strings.TrimSpace(content[fixIdx+len(fixMarker):])
	} else {
		fix = strings.TrimSpace(content[fixIdx+len(fixMarker) : descIdx])
		description = strings.TrimSpace(content[descIdx+len(descMarker):])
	}
	return description, fix
}
