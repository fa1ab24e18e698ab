package governance

import (
	"context"
	"errors"
	"testing"
	"time"

	"event-assistant/internal/common/config"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"
	"event-assistant/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

type fakeEventStore struct {
	events    []models.Event
	eventsErr error
	counts    store.EventCounts
	countsErr error
}

func (f *fakeEventStore) FindByStatus(ctx context.Context, statuses []string, limit int) ([]models.Event, error) {
	return f.events, f.eventsErr
}
func (f *fakeEventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	return nil, errors.New("not found")
}
func (f *fakeEventStore) UpdateFlags(ctx context.Context, id string, flags models.EventFlags, status string) error {
	return nil
}
func (f *fakeEventStore) Counts(ctx context.Context) (store.EventCounts, error) {
	return f.counts, f.countsErr
}

type fakeUserStore struct {
	active int
	err    error
}

func (f *fakeUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, errors.New("not found")
}
func (f *fakeUserStore) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error {
	return nil
}
func (f *fakeUserStore) AppendInteraction(ctx context.Context, id string, in models.Interaction, keep int) error {
	return nil
}
func (f *fakeUserStore) TouchLastActive(ctx context.Context, id string) error { return nil }
func (f *fakeUserStore) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	return f.active, f.err
}

type recordingNotifier struct {
	subject string
	body    string
	sent    int
}

func (r *recordingNotifier) AlertRejected(ctx context.Context, ev models.EventContent, v models.ModerationVerdict) {
}
func (r *recordingNotifier) SendDigest(ctx context.Context, subject, body string) {
	r.subject, r.body = subject, body
	r.sent++
}

func governanceConfig() config.GovernanceConfig {
	return config.GovernanceConfig{HighRisk: 0.8, MediumRisk: 0.6, HighWaitHours: 48, MediumWaitHours: 24}
}

func newReporter(events *fakeEventStore, users *fakeUserStore, n *recordingNotifier) *Reporter {
	if users == nil {
		users = &fakeUserStore{active: 50}
	}
	r := NewReporter(governanceConfig(), events, users, nil, logger.NewNoOpLogger())
	if n != nil {
		r.notifier = n
	}
	r.now = func() time.Time { return fixedNow }
	return r
}

func flaggedEvent(id string, risk float64, age time.Duration) models.Event {
	return models.Event{
		ID:        id,
		Title:     id,
		Status:    models.EventStatusFlagged,
		CreatedAt: fixedNow.Add(-age),
		Flags:     models.EventFlags{RiskScore: risk},
	}
}

func TestFlaggedDigestSortsByRisk(t *testing.T) {
	events := &fakeEventStore{events: []models.Event{
		flaggedEvent("mild", 0.62, time.Hour),
		flaggedEvent("severe", 0.91, time.Hour),
		flaggedEvent("middling", 0.75, time.Hour),
	}}
	r := newReporter(events, nil, nil)

	digest := r.FlaggedDigest(context.Background())

	require.Len(t, digest, 3)
	assert.Equal(t, "severe", digest[0].ID)
	assert.Equal(t, "mild", digest[2].ID)
}

func TestFlaggedDigestDegradesOnStoreFailure(t *testing.T) {
	r := newReporter(&fakeEventStore{eventsErr: errors.New("db down")}, nil, nil)
	assert.Empty(t, r.FlaggedDigest(context.Background()))
}

func TestModerationQueuePriorities(t *testing.T) {
	events := &fakeEventStore{events: []models.Event{
		flaggedEvent("high-risk", 0.85, time.Hour),
		flaggedEvent("stale", 0.1, 72*time.Hour),
		flaggedEvent("medium-risk", 0.65, time.Hour),
		flaggedEvent("aging", 0.1, 30*time.Hour),
		flaggedEvent("fresh-low", 0.1, time.Hour),
	}}
	r := newReporter(events, nil, nil)

	queue := r.ModerationQueue(context.Background())
	byID := map[string]string{}
	for _, item := range queue {
		byID[item.Event.ID] = item.Priority
	}

	assert.Equal(t, "high", byID["high-risk"])
	assert.Equal(t, "high", byID["stale"], "waiting over 48h escalates regardless of risk")
	assert.Equal(t, "medium", byID["medium-risk"])
	assert.Equal(t, "medium", byID["aging"])
	assert.Equal(t, "low", byID["fresh-low"])
}

func TestModerationQueueOrdering(t *testing.T) {
	events := &fakeEventStore{events: []models.Event{
		flaggedEvent("newer-same-risk", 0.7, time.Hour),
		flaggedEvent("older-same-risk", 0.7, 10*time.Hour),
		flaggedEvent("top-risk", 0.9, time.Hour),
	}}
	r := newReporter(events, nil, nil)

	queue := r.ModerationQueue(context.Background())

	require.Len(t, queue, 3)
	assert.Equal(t, "top-risk", queue[0].Event.ID)
	assert.Equal(t, "older-same-risk", queue[1].Event.ID, "ties break on older creation time")
}

func TestHealthScoreDeductions(t *testing.T) {
	tests := []struct {
		name       string
		counts     store.EventCounts
		active     int
		wantScore  int
		wantStatus string
	}{
		{"healthy", store.EventCounts{Total: 100, RecentWeek: 12, Flagged: 2}, 50, 100, "Excellent"},
		{"flag rate over 15%", store.EventCounts{Total: 100, RecentWeek: 12, Flagged: 20}, 50, 80, "Excellent"},
		{"flag rate over 10%", store.EventCounts{Total: 100, RecentWeek: 12, Flagged: 12}, 50, 90, "Excellent"},
		{"quiet week", store.EventCounts{Total: 100, RecentWeek: 2, Flagged: 2}, 50, 85, "Excellent"},
		{"ghost town", store.EventCounts{Total: 100, RecentWeek: 2, Flagged: 20}, 3, 55, "Needs Attention"},
		{"struggling", store.EventCounts{Total: 100, RecentWeek: 12, Flagged: 20}, 3, 70, "Good"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReporter(&fakeEventStore{counts: tt.counts}, &fakeUserStore{active: tt.active}, nil)

			health := r.Health(context.Background())

			assert.Equal(t, tt.wantScore, health.Score)
			assert.Equal(t, tt.wantStatus, health.Status)
		})
	}
}

func TestHealthDegradesOnStoreFailures(t *testing.T) {
	r := newReporter(
		&fakeEventStore{countsErr: errors.New("db down")},
		&fakeUserStore{err: errors.New("db down")},
		nil,
	)

	health := r.Health(context.Background())

	// Zero counts trip the weekly and active-user deductions.
	assert.Equal(t, 75, health.Score)
	assert.Equal(t, "Good", health.Status)
}

func TestSendDigestComposesSummary(t *testing.T) {
	notifier := &recordingNotifier{}
	events := &fakeEventStore{
		events: []models.Event{flaggedEvent("Suspicious Rave", 0.9, 50*time.Hour)},
		counts: store.EventCounts{Total: 10, RecentWeek: 6, Flagged: 1},
	}
	r := newReporter(events, nil, notifier)

	r.SendDigest(context.Background())

	assert.Equal(t, 1, notifier.sent)
	assert.Contains(t, notifier.body, "Suspicious Rave")
	assert.Contains(t, notifier.body, "Platform health")
	assert.Contains(t, notifier.body, "[high]")
}
