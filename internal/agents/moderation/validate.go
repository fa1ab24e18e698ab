package moderation

import (
	"fmt"
	"strings"

	"event-assistant/internal/models"
)

// ValidationReport is the outcome of the post-hoc result sweep that
// sanitizes search/recommendation output before it reaches the user.
type ValidationReport struct {
	Status        string         `json:"status"` // ok | warnings
	FlaggedEvents []models.Event `json:"flaggedEvents,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	SafeCount     int            `json:"safeCount"`
	TotalCount    int            `json:"totalCount"`
}

// ValidateResults flags already-fetched events with a stored risk score
// above the flagged threshold or with heuristically suspicious content.
func (s *Scorer) ValidateResults(events []models.Event) ValidationReport {
	report := ValidationReport{Status: "ok", TotalCount: len(events)}

	for _, ev := range events {
		var reasons []string
		if ev.Flags.RiskScore > s.cfg.FlaggedThreshold {
			reasons = append(reasons, fmt.Sprintf("stored risk score %.2f", ev.Flags.RiskScore))
		}
		if len(ev.Flags.Warnings) > 0 {
			reasons = append(reasons, "pre-existing moderation warnings")
		}
		if len(strings.TrimSpace(ev.Description)) < 50 {
			reasons = append(reasons, "very thin description")
		}

		if len(reasons) > 0 {
			report.FlaggedEvents = append(report.FlaggedEvents, ev)
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s: %s", ev.Title, strings.Join(reasons, ", ")))
		} else {
			report.SafeCount++
		}
	}

	if len(report.FlaggedEvents) > 0 {
		report.Status = "warnings"
	}
	return report
}

// Safe returns the events ValidateResults did not flag, preserving order.
func (s *Scorer) Safe(events []models.Event) []models.Event {
	flagged := make(map[string]struct{})
	for _, ev := range s.ValidateResults(events).FlaggedEvents {
		flagged[ev.ID] = struct{}{}
	}
	var out []models.Event
	for _, ev := range events {
		if _, bad := flagged[ev.ID]; !bad {
			out = append(out, ev)
		}
	}
	return out
}
