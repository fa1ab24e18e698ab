package moderation

import (
	"context"
	"errors"
	"strings"
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

type stubProse struct {
	reply string
	err   error
}

func (s stubProse) Complete(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

type panickySafety struct{}

func (panickySafety) Check(ctx context.Context, text string) (float64, []string, error) {
	panic("safety collaborator blew up")
}

type fakeEventStore struct {
	pool       []models.Event
	poolErr    error
	flaggedID  string
	flagged    models.EventFlags
	flaggedSt  string
	updateErr  error
	lastStatus []string
}

func (f *fakeEventStore) FindByStatus(ctx context.Context, statuses []string, limit int) ([]models.Event, error) {
	f.lastStatus = statuses
	return f.pool, f.poolErr
}
func (f *fakeEventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	return nil, errors.New("not found")
}
func (f *fakeEventStore) UpdateFlags(ctx context.Context, id string, flags models.EventFlags, status string) error {
	f.flaggedID, f.flagged, f.flaggedSt = id, flags, status
	return f.updateErr
}
func (f *fakeEventStore) Counts(ctx context.Context) (store.EventCounts, error) {
	return store.EventCounts{}, nil
}

func moderationConfig() config.ModerationConfig {
	return config.ModerationConfig{
		SpamWeight:          0.3,
		InappropriateWeight: 0.3,
		SuspiciousWeight:    0.2,
		AIGeneratedWeight:   0.1,
		ValidationWeight:    0.1,
		FlaggedThreshold:    0.6,
		ReviewThreshold:     0.8,
		RejectedThreshold:   0.9,
		DuplicateThreshold:  0.85,
	}
}

func newScorer(t *testing.T, prose stubProse, events *fakeEventStore) *Scorer {
	t.Helper()
	if events == nil {
		events = &fakeEventStore{}
	}
	s := NewScorer(moderationConfig(), time.Second, nil, nil, events, nil, logger.NewNoOpLogger())
	if prose != (stubProse{}) {
		s.prose = prose
	}
	s.now = func() time.Time { return fixedNow }
	return s
}

func futureDate(months int) *time.Time {
	d := fixedNow.AddDate(0, months, 0)
	return &d
}

func cleanContent() models.EventContent {
	price := 15.0
	return models.EventContent{
		Title:       "Community Jazz Evening",
		Description: "An evening of live jazz with local musicians, food trucks and a relaxed riverside atmosphere.",
		Category:    "music",
		Location:    "Riverside Park, Berlin",
		Date:        futureDate(2),
		Price:       &price,
	}
}

func TestModerateCleanContentIsSafe(t *testing.T) {
	s := newScorer(t, stubProse{}, nil)

	v := s.Moderate(context.Background(), cleanContent())

	assert.Equal(t, models.ModerationSafe, v.Status)
	assert.Less(t, v.RiskScore, 0.6)
	assert.Empty(t, v.Warnings)
}

func TestModerateSpamEscalatesToReview(t *testing.T) {
	s := newScorer(t, stubProse{}, nil)

	v := s.Moderate(context.Background(), models.EventContent{
		Title:       "FREE MONEY!!! ACT NOW!!!",
		Description: "guaranteed money make money fast",
	})

	assert.Contains(t, []string{models.ModerationRequiresReview, models.ModerationRejected}, v.Status)
	assert.Contains(t, v.Warnings, "excessive capitalization")

	spamPhraseWarnings := 0
	for _, w := range v.Warnings {
		if strings.HasPrefix(w, "spam phrase:") {
			spamPhraseWarnings++
		}
	}
	assert.GreaterOrEqual(t, spamPhraseWarnings, 1)
}

func TestModerateIsDeterministic(t *testing.T) {
	s := newScorer(t, stubProse{}, nil)
	content := models.EventContent{Title: "Gig TBD", Description: "short", Location: "tbd"}

	a := s.Moderate(context.Background(), content)
	b := s.Moderate(context.Background(), content)

	assert.Equal(t, a, b)
}

func TestModerateRiskScoreBounds(t *testing.T) {
	s := newScorer(t, stubProse{}, nil)
	pastDate := fixedNow.AddDate(0, -1, 0)
	negPrice := -10.0

	v := s.Moderate(context.Background(), models.EventContent{
		Title:       "FREE MONEY!!! ACT NOW!!! GET RICH!!!",
		Description: "guaranteed no risk double your money click here",
		Location:    "TBD",
		Date:        &pastDate,
		Price:       &negPrice,
	})

	assert.GreaterOrEqual(t, v.RiskScore, 0.0)
	assert.LessOrEqual(t, v.RiskScore, 1.0)
	assert.NotEqual(t, models.ModerationSafe, v.Status)
}

func TestModerateStatusThresholds(t *testing.T) {
	cfg := moderationConfig()
	tests := []struct {
		risk float64
		want string
	}{
		{0.0, models.ModerationSafe},
		{0.59, models.ModerationSafe},
		{0.6, models.ModerationFlagged},
		{0.79, models.ModerationFlagged},
		{0.8, models.ModerationRequiresReview},
		{0.89, models.ModerationRequiresReview},
		{0.9, models.ModerationRejected},
		{1.0, models.ModerationRejected},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.risk, cfg), "risk %.2f", tt.risk)
	}
}

func TestModerateAIDetectionDegradesOnBadReply(t *testing.T) {
	tests := []struct {
		name  string
		prose stubProse
	}{
		{"provider error", stubProse{err: errors.New("timeout")}},
		{"non-json reply", stubProse{reply: "I think this looks human-written."}},
		{"schema violation", stubProse{reply: `{"isAIGenerated": "yes", "confidence": 2}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScorer(t, tt.prose, nil)

			v := s.Moderate(context.Background(), cleanContent())
			assert.Zero(t, v.Subscores["ai_generated"])
			assert.Equal(t, models.ModerationSafe, v.Status)
		})
	}
}

func TestModerateAIDetectionContributes(t *testing.T) {
	prose := stubProse{reply: `{"isAIGenerated": true, "confidence": 0.9, "indicators": ["templated phrasing"]}`}
	s := newScorer(t, prose, nil)

	v := s.Moderate(context.Background(), cleanContent())

	assert.InDelta(t, 0.9, v.Subscores["ai_generated"], 1e-9)
	assert.Contains(t, v.Warnings, "templated phrasing")
}

func TestModeratePanicReturnsFailSafe(t *testing.T) {
	s := newScorer(t, stubProse{}, nil)
	s.safety = panickySafety{}

	v := s.Moderate(context.Background(), cleanContent())

	assert.InDelta(t, 0.5, v.RiskScore, 1e-9)
	assert.Equal(t, models.ModerationRequiresReview, v.Status)
	assert.NotEmpty(t, v.Warnings)
}

func TestScoreStoredEventWritesFlagsBack(t *testing.T) {
	events := &fakeEventStore{}
	s := newScorer(t, stubProse{}, events)

	v := s.ScoreStoredEvent(context.Background(), models.Event{
		ID:          "evt-1",
		Title:       "FREE MONEY!!! ACT NOW!!!",
		Description: "guaranteed money make money fast",
		Status:      models.EventStatusPending,
	})

	assert.Equal(t, "evt-1", events.flaggedID)
	assert.InDelta(t, v.RiskScore, events.flagged.RiskScore, 1e-9)
	assert.Equal(t, models.EventStatusFlagged, events.flaggedSt)
}

func TestValidateResultsSweep(t *testing.T) {
	s := newScorer(t, stubProse{}, nil)
	long := "A detailed description of a neighbourhood event with plenty of useful information for attendees."

	events := []models.Event{
		{ID: "ok", Title: "Fine Event", Description: long},
		{ID: "risky", Title: "Risky Event", Description: long, Flags: models.EventFlags{RiskScore: 0.7}},
		{ID: "thin", Title: "Thin Event", Description: "short"},
	}

	report := s.ValidateResults(events)

	assert.Equal(t, "warnings", report.Status)
	assert.Equal(t, 1, report.SafeCount)
	assert.Equal(t, 3, report.TotalCount)
	assert.Len(t, report.FlaggedEvents, 2)

	safe := s.Safe(events)
	require.Len(t, safe, 1)
	assert.Equal(t, "ok", safe[0].ID)
}
