// Package governance aggregates moderation outcomes into admin-facing
// summaries: the flagged-content digest, the prioritized review queue and
// the platform health score.
package governance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"event-assistant/internal/common/config"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/common/notify"
	"event-assistant/internal/models"
	"event-assistant/internal/store"
)

// QueueItem is one entry of the prioritized moderation queue.
type QueueItem struct {
	Event     models.Event `json:"event"`
	Priority  string       `json:"priority"` // high | medium | low
	WaitHours float64      `json:"waitHours"`
}

// HealthReport is the platform health summary for admins.
type HealthReport struct {
	Score       int      `json:"score"`
	Status      string   `json:"status"`
	TotalEvents int      `json:"totalEvents"`
	FlaggedRate float64  `json:"flaggedRate"`
	WeeklyNew   int      `json:"weeklyNew"`
	ActiveUsers int      `json:"activeUsers"`
	Concerns    []string `json:"concerns,omitempty"`
}

type Reporter struct {
	cfg      config.GovernanceConfig
	events   store.EventStore
	users    store.UserStore
	notifier notify.Notifier
	logger   logger.Logger
	now      func() time.Time
}

func NewReporter(cfg config.GovernanceConfig, events store.EventStore, users store.UserStore, notifier notify.Notifier, log logger.Logger) *Reporter {
	if notifier == nil {
		notifier = notify.NoOpNotifier{}
	}
	return &Reporter{
		cfg:      cfg,
		events:   events,
		users:    users,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "governance"}),
		now:      time.Now,
	}
}

// FlaggedDigest returns flagged events sorted by stored risk descending.
// Store failures degrade to an empty digest.
func (r *Reporter) FlaggedDigest(ctx context.Context) []models.Event {
	flagged, err := r.events.FindByStatus(ctx, []string{models.EventStatusFlagged}, 0)
	if err != nil {
		r.logger.Warn("flagged digest fetch failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].Flags.RiskScore > flagged[j].Flags.RiskScore
	})
	return flagged
}

// ModerationQueue prioritizes flagged and pending events by risk and wait
// time, sorted risk descending with creation time as the tie-break.
func (r *Reporter) ModerationQueue(ctx context.Context) []QueueItem {
	pending, err := r.events.FindByStatus(ctx,
		[]string{models.EventStatusFlagged, models.EventStatusPending}, 0)
	if err != nil {
		r.logger.Warn("moderation queue fetch failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	items := make([]QueueItem, 0, len(pending))
	for _, ev := range pending {
		wait := r.now().Sub(ev.CreatedAt).Hours()
		items = append(items, QueueItem{
			Event:     ev,
			Priority:  r.priorityFor(ev.Flags.RiskScore, wait),
			WaitHours: wait,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Event.Flags.RiskScore != items[j].Event.Flags.RiskScore {
			return items[i].Event.Flags.RiskScore > items[j].Event.Flags.RiskScore
		}
		return items[i].Event.CreatedAt.Before(items[j].Event.CreatedAt)
	})
	return items
}

func (r *Reporter) priorityFor(risk, waitHours float64) string {
	switch {
	case risk > r.cfg.HighRisk || waitHours > float64(r.cfg.HighWaitHours):
		return "high"
	case risk > r.cfg.MediumRisk || waitHours > float64(r.cfg.MediumWaitHours):
		return "medium"
	default:
		return "low"
	}
}

// Health computes the platform health score: 100 minus fixed deductions for
// a high flagged rate, low weekly event creation and low user activity.
func (r *Reporter) Health(ctx context.Context) HealthReport {
	report := HealthReport{Score: 100}

	counts, err := r.events.Counts(ctx)
	if err != nil {
		r.logger.Warn("event counts unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		report.TotalEvents = counts.Total
		report.WeeklyNew = counts.RecentWeek
		if counts.Total > 0 {
			report.FlaggedRate = float64(counts.Flagged) / float64(counts.Total)
		}
	}

	active, err := r.users.CountActiveSince(ctx, r.now().AddDate(0, 0, -7))
	if err != nil {
		r.logger.Warn("active user count unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		report.ActiveUsers = active
	}

	if report.FlaggedRate > 0.15 {
		report.Score -= 20
		report.Concerns = append(report.Concerns, "flagged-content rate above 15%")
	} else if report.FlaggedRate > 0.10 {
		report.Score -= 10
		report.Concerns = append(report.Concerns, "flagged-content rate above 10%")
	}
	if report.WeeklyNew < 5 {
		report.Score -= 15
		report.Concerns = append(report.Concerns, "fewer than 5 new events this week")
	}
	if report.ActiveUsers < 10 {
		report.Score -= 10
		report.Concerns = append(report.Concerns, "fewer than 10 active users this week")
	}

	switch {
	case report.Score < 60:
		report.Status = "Needs Attention"
	case report.Score < 80:
		report.Status = "Good"
	default:
		report.Status = "Excellent"
	}
	return report
}

// SendDigest mails the current queue and health summary to the configured
// admin recipients. Best-effort.
func (r *Reporter) SendDigest(ctx context.Context) {
	queue := r.ModerationQueue(ctx)
	health := r.Health(ctx)

	var b strings.Builder
	fmt.Fprintf(&b, "Platform health: %d (%s)\n", health.Score, health.Status)
	for _, c := range health.Concerns {
		fmt.Fprintf(&b, "  - %s\n", c)
	}
	fmt.Fprintf(&b, "\nModeration queue (%d items):\n", len(queue))
	for i, item := range queue {
		if i >= 20 {
			fmt.Fprintf(&b, "  ... and %d more\n", len(queue)-i)
			break
		}
		fmt.Fprintf(&b, "  [%s] %s (risk %.2f, waiting %.0fh)\n",
			item.Priority, item.Event.Title, item.Event.Flags.RiskScore, item.WaitHours)
	}

	r.notifier.SendDigest(ctx, "Event platform governance digest", b.String())
}
