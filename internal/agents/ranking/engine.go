// Package ranking scores candidate events against a user's memory, orders
// them, and applies the diversity constraint. All scoring is deterministic;
// re-ranking an unchanged input yields the same order.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"event-assistant/internal/common/config"
	"event-assistant/internal/common/genai"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"
)

// affinityTable broadens category matching: a preferred category also gives
// partial credit to its listed neighbours.
var affinityTable = map[string][]string{
	"music":      {"art", "theater", "comedy"},
	"technology": {"business", "education", "networking"},
	"sports":     {"wellness", "outdoor"},
	"food":       {"music", "family"},
	"art":        {"music", "theater"},
	"wellness":   {"sports", "outdoor"},
	"business":   {"technology", "networking"},
	"family":     {"food", "outdoor"},
}

type Engine struct {
	cfg          config.RankingConfig
	prose        genai.Client
	proseTimeout time.Duration
	logger       logger.Logger
}

func NewEngine(cfg config.RankingConfig, proseTimeout time.Duration, prose genai.Client, log logger.Logger) *Engine {
	return &Engine{
		cfg:          cfg,
		prose:        prose,
		proseTimeout: proseTimeout,
		logger:       log.WithFields(map[string]interface{}{"component": "ranking"}),
	}
}

// Rank scores every event and returns them in descending total-score order.
// An empty input yields an empty output, never an error.
func (e *Engine) Rank(events []models.Event, mem models.UserMemory, userLocation *models.GeoPoint) []models.ScoredEvent {
	scored := make([]models.ScoredEvent, 0, len(events))
	for _, ev := range events {
		sub := models.Subscores{
			CategoryMatch:     categoryMatch(ev, mem),
			LocationProximity: locationProximity(ev, userLocation),
			TimePreference:    timePreference(ev, mem.Preferences),
			BehaviorHistory:   behaviorHistory(ev, mem.History),
			Popularity:        popularity(ev.AttendeeCount),
		}
		total := sub.CategoryMatch*e.cfg.CategoryWeight +
			sub.LocationProximity*e.cfg.LocationWeight +
			sub.TimePreference*e.cfg.TimeWeight +
			sub.BehaviorHistory*e.cfg.BehaviorWeight +
			sub.Popularity*e.cfg.PopularityWeight

		scored = append(scored, models.ScoredEvent{
			Event:      ev,
			Subscores:  sub,
			TotalScore: math.Round(total*1000) / 1000,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].TotalScore > scored[j].TotalScore
	})
	return scored
}

// --- subscores, each in [0,1] ---

func categoryMatch(ev models.Event, mem models.UserMemory) float64 {
	category := strings.ToLower(ev.Category)
	score := 0.1

	for _, preferred := range mem.Preferences.Categories {
		preferred = strings.ToLower(preferred)
		if preferred == category {
			return 1.0
		}
		for _, related := range affinityTable[preferred] {
			if related == category && score < 0.7 {
				score = 0.7
			}
		}
	}

	for _, in := range mem.History {
		if in.Positive() && strings.EqualFold(in.Category, category) && score < 0.8 {
			score = 0.8
		}
	}
	return score
}

func locationProximity(ev models.Event, user *models.GeoPoint) float64 {
	if ev.Coordinates == nil || user == nil {
		return 0.5
	}
	km := haversineKm(*user, *ev.Coordinates)
	switch {
	case km <= 5:
		return 1.0
	case km <= 15:
		return 0.8
	case km <= 30:
		return 0.6
	case km <= 50:
		return 0.4
	default:
		return 0.2
	}
}

func timePreference(ev models.Event, prefs models.Preferences) float64 {
	if ev.Date.IsZero() || len(prefs.TimePreferences) == 0 {
		return 0.5
	}
	score := 0.5

	bucket := "evening"
	switch h := ev.Date.Hour(); {
	case h < 12:
		bucket = "morning"
	case h < 18:
		bucket = "afternoon"
	}

	dayKind := "weekday"
	if wd := ev.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		dayKind = "weekend"
	}

	for _, p := range prefs.TimePreferences {
		switch strings.ToLower(p) {
		case bucket:
			score += 0.3
		case dayKind:
			score += 0.2
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func behaviorHistory(ev models.Event, history []models.Interaction) float64 {
	score := 0.5
	for _, in := range history {
		related := strings.EqualFold(in.Category, ev.Category) ||
			(in.Location != "" && strings.EqualFold(in.Location, ev.Location)) ||
			(in.Organizer != "" && strings.EqualFold(in.Organizer, ev.Organizer))
		if !related {
			continue
		}
		if in.Positive() {
			score += 0.2
		} else if in.Negative() {
			score -= 0.3
		}
	}
	if score < 0.1 {
		return 0.1
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

func popularity(attendees int) float64 {
	switch {
	case attendees >= 100:
		return 1.0
	case attendees >= 50:
		return 0.8
	case attendees >= 20:
		return 0.6
	case attendees >= 5:
		return 0.4
	default:
		return 0.2
	}
}

const earthRadiusKm = 6371.0

func haversineKm(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
