// Package retrieval builds candidate queries against the search backend.
// It returns whatever the store yields, unordered; ranking happens later.
// An empty result is a valid outcome, never an error.
package retrieval

import (
	"context"
	"strings"
	"time"

	"event-assistant/internal/common/config"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/common/vectorindex"
	"event-assistant/internal/models"
	"event-assistant/internal/store"
)

// categoryAliases maps colloquial filter terms onto stored category names.
var categoryAliases = map[string]string{
	"tech":   "technology",
	"sport":  "sports",
	"health": "wellness",
}

// Result distinguishes a real (possibly empty) answer from a degraded one
// produced after a backend failure.
type Result struct {
	Events   []models.Event
	Degraded bool
}

type Service struct {
	searcher store.EventSearcher
	events   store.EventStore
	index    vectorindex.Index
	cfg      config.RetrievalConfig
	logger   logger.Logger
}

// NewService wires the search backend plus the optional semantic index.
// index may be nil; the heuristic path works without it.
func NewService(cfg config.RetrievalConfig, searcher store.EventSearcher, events store.EventStore, index vectorindex.Index, log logger.Logger) *Service {
	return &Service{
		searcher: searcher,
		events:   events,
		index:    index,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "retrieval"}),
	}
}

// Search fetches candidates for a free-text query. Guests get a widened
// radius to compensate for the missing personalization signal.
func (s *Service) Search(ctx context.Context, text string, center *models.GeoPoint, filters map[string][]string, prefs *models.Preferences, personalized bool) Result {
	q := store.EventQuery{
		Text:     text,
		Center:   center,
		Statuses: []string{models.EventStatusApproved},
		Limit:    s.cfg.MaxResults,
	}
	if center != nil {
		if personalized {
			q.RadiusKm = s.cfg.DefaultRadiusKm
		} else {
			q.RadiusKm = s.cfg.GuestRadiusKm
		}
	}

	applyFilters(&q, filters)

	if personalized && prefs != nil {
		if len(q.Categories) == 0 {
			q.Categories = canonicalCategories(prefs.Categories)
		}
		if q.MaxPrice == nil && prefs.PriceRange != nil {
			maxPrice := prefs.PriceRange.Max
			q.MaxPrice = &maxPrice
		}
	}

	events, err := s.searcher.Search(ctx, q)
	if err != nil {
		s.logger.Warn("search backend failed, returning empty candidates", map[string]interface{}{
			"error": err.Error(),
		})
		return Result{Degraded: true}
	}

	if s.index != nil && text != "" {
		events = s.mergeSemanticMatches(ctx, text, events)
	}
	return Result{Events: events}
}

// RecommendationCandidates fetches candidates driven purely by preferences.
func (s *Service) RecommendationCandidates(ctx context.Context, center *models.GeoPoint, prefs models.Preferences) Result {
	q := store.EventQuery{
		Center:     center,
		Categories: canonicalCategories(prefs.Categories),
		Statuses:   []string{models.EventStatusApproved},
		Limit:      s.cfg.MaxResults,
	}
	if center != nil {
		q.RadiusKm = s.cfg.DefaultRadiusKm
	}
	if prefs.PriceRange != nil {
		maxPrice := prefs.PriceRange.Max
		q.MaxPrice = &maxPrice
	}

	events, err := s.searcher.Search(ctx, q)
	if err != nil {
		s.logger.Warn("recommendation retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
		return Result{Degraded: true}
	}
	return Result{Events: events}
}

// mergeSemanticMatches appends vector-index neighbours the keyword query
// missed. Entirely advisory: any failure keeps the keyword results as-is.
func (s *Service) mergeSemanticMatches(ctx context.Context, text string, events []models.Event) []models.Event {
	matches, err := s.index.Query(ctx, text, s.cfg.VectorTopK)
	if err != nil {
		s.logger.Debug("vector index unavailable", map[string]interface{}{"error": err.Error()})
		return events
	}

	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		seen[ev.ID] = struct{}{}
	}
	for _, m := range matches {
		if _, ok := seen[m.EventID]; ok {
			continue
		}
		ev, err := s.events.FindByID(ctx, m.EventID)
		if err != nil || ev == nil || ev.Status != models.EventStatusApproved {
			continue
		}
		seen[ev.ID] = struct{}{}
		events = append(events, *ev)
	}
	return events
}

func applyFilters(q *store.EventQuery, filters map[string][]string) {
	q.Categories = canonicalCategories(filters["categories"])

	for _, term := range filters["price"] {
		switch term {
		case "free":
			zero := 0.0
			q.MaxPrice = &zero
		case "cheap", "affordable":
			if q.MaxPrice == nil {
				cheap := 25.0
				q.MaxPrice = &cheap
			}
		}
	}

	now := time.Now()
	for _, term := range filters["timeframe"] {
		from, to, ok := timeframeRange(term, now)
		if !ok {
			continue
		}
		if q.From == nil || from.Before(*q.From) {
			q.From = &from
		}
		if q.To == nil || to.After(*q.To) {
			q.To = &to
		}
	}
}

func canonicalCategories(terms []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, term := range terms {
		c := strings.ToLower(term)
		if alias, ok := categoryAliases[c]; ok {
			c = alias
		}
		if _, dup := seen[c]; !dup {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// timeframeRange resolves a vocabulary term to an absolute window.
func timeframeRange(term string, now time.Time) (time.Time, time.Time, bool) {
	day := now.Truncate(24 * time.Hour)
	switch term {
	case "today":
		return day, day.AddDate(0, 0, 1), true
	case "tonight":
		evening := day.Add(18 * time.Hour)
		if now.After(evening) {
			evening = now
		}
		return evening, day.AddDate(0, 0, 1), true
	case "tomorrow":
		return day.AddDate(0, 0, 1), day.AddDate(0, 0, 2), true
	case "weekend":
		daysUntilSaturday := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
		saturday := day.AddDate(0, 0, daysUntilSaturday)
		if now.Weekday() == time.Sunday {
			saturday = day.AddDate(0, 0, -1)
		}
		return saturday, saturday.AddDate(0, 0, 2), true
	case "this week":
		return day, day.AddDate(0, 0, 7), true
	case "next week":
		return day.AddDate(0, 0, 7), day.AddDate(0, 0, 14), true
	default:
		return time.Time{}, time.Time{}, false
	}
}
