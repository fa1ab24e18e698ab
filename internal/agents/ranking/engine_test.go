package ranking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"event-assistant/internal/common/config"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProse struct {
	reply string
	err   error
}

func (s stubProse) Complete(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

func rankingConfig() config.RankingConfig {
	return config.RankingConfig{
		CategoryWeight:   0.30,
		LocationWeight:   0.25,
		TimeWeight:       0.20,
		BehaviorWeight:   0.15,
		PopularityWeight: 0.10,
		MaxPerCategory:   2,
		MaxPerLocation:   3,
		MinResults:       5,
		MaxResults:       15,
	}
}

func newEngine() *Engine {
	return NewEngine(rankingConfig(), time.Second, nil, logger.NewNoOpLogger())
}

func TestRankEmptyInput(t *testing.T) {
	scored := newEngine().Rank(nil, models.UserMemory{}, nil)
	assert.Empty(t, scored)
}

func TestRankIsIdempotent(t *testing.T) {
	e := newEngine()
	mem := models.UserMemory{Preferences: models.Preferences{Categories: []string{"music"}}}
	events := []models.Event{
		{ID: "a", Category: "music", AttendeeCount: 10},
		{ID: "b", Category: "sports", AttendeeCount: 200},
		{ID: "c", Category: "music", AttendeeCount: 200},
		{ID: "d", Category: "food", AttendeeCount: 10},
	}

	first := e.Rank(events, mem, nil)

	reordered := make([]models.Event, len(first))
	for i, se := range first {
		reordered[i] = se.Event
	}
	second := e.Rank(reordered, mem, nil)

	for i := range first {
		assert.Equal(t, first[i].Event.ID, second[i].Event.ID)
		assert.Equal(t, first[i].TotalScore, second[i].TotalScore)
	}
}

func TestRankOrdersByTotalScore(t *testing.T) {
	e := newEngine()
	mem := models.UserMemory{Preferences: models.Preferences{Categories: []string{"music"}}}
	events := []models.Event{
		{ID: "low", Category: "business", AttendeeCount: 1},
		{ID: "high", Category: "music", AttendeeCount: 150},
	}

	scored := e.Rank(events, mem, nil)

	require.Len(t, scored, 2)
	assert.Equal(t, "high", scored[0].Event.ID)
	assert.Greater(t, scored[0].TotalScore, scored[1].TotalScore)
}

func TestCategoryMatchTiers(t *testing.T) {
	prefMusic := models.UserMemory{Preferences: models.Preferences{Categories: []string{"music"}}}

	assert.InDelta(t, 1.0, categoryMatch(models.Event{Category: "music"}, prefMusic), 1e-9)
	assert.InDelta(t, 0.7, categoryMatch(models.Event{Category: "art"}, prefMusic), 1e-9, "affinity of music")
	assert.InDelta(t, 0.1, categoryMatch(models.Event{Category: "sports"}, prefMusic), 1e-9)

	withHistory := models.UserMemory{History: []models.Interaction{
		{Action: "attended", Category: "sports"},
	}}
	assert.InDelta(t, 0.8, categoryMatch(models.Event{Category: "sports"}, withHistory), 1e-9)
}

func TestLocationProximityBuckets(t *testing.T) {
	berlin := models.GeoPoint{Lon: 13.405, Lat: 52.52}

	tests := []struct {
		name  string
		event *models.GeoPoint
		want  float64
	}{
		{"same spot", &models.GeoPoint{Lon: 13.405, Lat: 52.52}, 1.0},
		{"~11km away", &models.GeoPoint{Lon: 13.405, Lat: 52.62}, 0.8},
		{"~22km away", &models.GeoPoint{Lon: 13.405, Lat: 52.72}, 0.6},
		{"~44km away", &models.GeoPoint{Lon: 13.405, Lat: 52.92}, 0.4},
		{"far away", &models.GeoPoint{Lon: 10.0, Lat: 53.55}, 0.2},
		{"no coordinates", nil, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := models.Event{Coordinates: tt.event}
			assert.InDelta(t, tt.want, locationProximity(ev, &berlin), 1e-9)
		})
	}
}

func TestTimePreference(t *testing.T) {
	saturdayEvening := models.Event{Date: time.Date(2026, 8, 29, 19, 30, 0, 0, time.UTC)}

	both := models.Preferences{TimePreferences: []string{"evening", "weekend"}}
	assert.InDelta(t, 1.0, timePreference(saturdayEvening, both), 1e-9)

	evening := models.Preferences{TimePreferences: []string{"evening"}}
	assert.InDelta(t, 0.8, timePreference(saturdayEvening, evening), 1e-9)

	morning := models.Preferences{TimePreferences: []string{"morning"}}
	assert.InDelta(t, 0.5, timePreference(saturdayEvening, morning), 1e-9)

	none := models.Preferences{}
	assert.InDelta(t, 0.5, timePreference(saturdayEvening, none), 1e-9)
}

func TestBehaviorHistoryClamps(t *testing.T) {
	ev := models.Event{Category: "music", Location: "Berlin"}

	positive := make([]models.Interaction, 5)
	for i := range positive {
		positive[i] = models.Interaction{Action: "attended", Category: "music"}
	}
	assert.InDelta(t, 1.0, behaviorHistory(ev, positive), 1e-9)

	negative := make([]models.Interaction, 5)
	for i := range negative {
		negative[i] = models.Interaction{Action: "skipped", Category: "music"}
	}
	assert.InDelta(t, 0.1, behaviorHistory(ev, negative), 1e-9)

	assert.InDelta(t, 0.5, behaviorHistory(ev, nil), 1e-9)
}

func TestPopularityBuckets(t *testing.T) {
	assert.InDelta(t, 1.0, popularity(150), 1e-9)
	assert.InDelta(t, 0.8, popularity(60), 1e-9)
	assert.InDelta(t, 0.6, popularity(25), 1e-9)
	assert.InDelta(t, 0.4, popularity(7), 1e-9)
	assert.InDelta(t, 0.2, popularity(2), 1e-9)
}

func TestDiversityCaps(t *testing.T) {
	e := newEngine()

	var events []models.Event
	for i := 0; i < 8; i++ {
		events = append(events, models.Event{
			ID:            fmt.Sprintf("music-%d", i),
			Category:      "music",
			Location:      "Berlin",
			AttendeeCount: 200 - i,
		})
	}
	for i := 0; i < 8; i++ {
		events = append(events, models.Event{
			ID:            fmt.Sprintf("tech-%d", i),
			Category:      "technology",
			Location:      "Hamburg",
			AttendeeCount: 100 - i,
		})
	}

	result := e.applyDiversity(e.Rank(events, models.UserMemory{}, nil))

	perCategory := map[string]int{}
	for _, se := range result {
		perCategory[se.Event.Category]++
	}
	assert.LessOrEqual(t, perCategory["music"], 3, "cap 2 plus top-up allowance")
	assert.GreaterOrEqual(t, len(result), 5)
	assert.LessOrEqual(t, len(result), 15)
}

func TestDiversityTopsUpToMinimum(t *testing.T) {
	e := newEngine()

	// Six events all in one category/location: caps admit 2, top-up to 5.
	var events []models.Event
	for i := 0; i < 6; i++ {
		events = append(events, models.Event{
			ID:            fmt.Sprintf("evt-%d", i),
			Category:      "music",
			Location:      "Berlin",
			AttendeeCount: 100 - i,
		})
	}

	result := e.applyDiversity(e.Rank(events, models.UserMemory{}, nil))
	assert.Len(t, result, 5)
}

func TestDiversitySmallInputPassesThrough(t *testing.T) {
	e := newEngine()
	events := []models.Event{
		{ID: "a", Category: "music"},
		{ID: "b", Category: "music"},
		{ID: "c", Category: "music"},
	}

	result := e.applyDiversity(e.Rank(events, models.UserMemory{}, nil))
	assert.Len(t, result, 3)
}

func TestPersonalizeAttachesExplanations(t *testing.T) {
	e := newEngine()
	mem := models.UserMemory{Preferences: models.Preferences{Categories: []string{"music"}}}
	events := []models.Event{{ID: "a", Title: "Jazz Night", Category: "music", AttendeeCount: 150}}

	result := e.Personalize(context.Background(), events, mem, nil)

	require.Len(t, result, 1)
	assert.NotEmpty(t, result[0].Explanation)
	assert.Contains(t, result[0].Explanation[0], "music")
}

func TestPersonalizeEnrichmentFallback(t *testing.T) {
	e := newEngine()
	e.prose = stubProse{err: errors.New("llm down")}
	events := []models.Event{{ID: "a", Title: "Jazz Night", Category: "music"}}

	result := e.Personalize(context.Background(), events, models.UserMemory{}, nil)

	require.Len(t, result, 1)
	last := result[0].Explanation[len(result[0].Explanation)-1]
	assert.Contains(t, last, "Jazz Night")
}
