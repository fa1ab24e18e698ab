package moderation

import (
	"context"
	"sort"
	"strings"
	"time"

	"event-assistant/internal/models"
)

// DuplicateMatch pairs an existing event with its similarity to the
// submission under review.
type DuplicateMatch struct {
	Event      models.Event `json:"event"`
	Similarity float64      `json:"similarity"`
}

// DuplicateReport is the outcome of duplicate detection for one submission.
type DuplicateReport struct {
	IsDuplicate       bool             `json:"isDuplicate"`
	Duplicates        []DuplicateMatch `json:"duplicates,omitempty"`
	HighestSimilarity float64          `json:"highestSimilarity"`
	RiskLevel         string           `json:"riskLevel,omitempty"`
}

// DetectDuplicates compares a submission against the pool. A nil pool pulls
// all approved and pending events from the store; a store failure degrades
// to an empty pool (no duplicates found, never an error).
func (s *Scorer) DetectDuplicates(ctx context.Context, content models.EventContent, pool []models.Event) DuplicateReport {
	if pool == nil {
		fetched, err := s.events.FindByStatus(ctx,
			[]string{models.EventStatusApproved, models.EventStatusPending}, 0)
		if err != nil {
			s.logger.Warn("duplicate pool fetch failed", map[string]interface{}{
				"error": err.Error(),
			})
			return DuplicateReport{}
		}
		pool = fetched
	}

	report := DuplicateReport{}
	for _, candidate := range pool {
		sim := contentSimilarity(content, models.ContentOf(candidate))
		if sim > report.HighestSimilarity {
			report.HighestSimilarity = sim
		}
		if sim > s.cfg.DuplicateThreshold {
			report.Duplicates = append(report.Duplicates, DuplicateMatch{Event: candidate, Similarity: sim})
		}
	}

	sort.Slice(report.Duplicates, func(i, j int) bool {
		return report.Duplicates[i].Similarity > report.Duplicates[j].Similarity
	})

	if len(report.Duplicates) > 0 {
		report.IsDuplicate = true
		report.RiskLevel = duplicateRiskLevel(report.HighestSimilarity)
	}
	return report
}

// contentSimilarity is a weighted word-overlap score. Terms with a missing
// field on either side drop out together with their weight; the remainder
// is normalized by the weights actually applied.
func contentSimilarity(a, b models.EventContent) float64 {
	type term struct {
		weight float64
		value  float64
		ok     bool
	}

	terms := []term{
		{weight: 0.4},
		{weight: 0.3},
		{weight: 0.2},
		{weight: 0.1},
	}

	if a.Title != "" && b.Title != "" {
		terms[0].value = jaccard(wordSet(a.Title), wordSet(b.Title))
		terms[0].ok = true
	}
	if a.Description != "" && b.Description != "" {
		terms[1].value = jaccard(wordSet(a.Description), wordSet(b.Description))
		terms[1].ok = true
	}
	if a.Location != "" && b.Location != "" {
		terms[2].value = jaccard(wordSet(a.Location), wordSet(b.Location))
		terms[2].ok = true
	}
	if a.Date != nil && b.Date != nil {
		if sameCalendarDay(*a.Date, *b.Date) {
			terms[3].value = 1
		}
		terms[3].ok = true
	}

	sum, weightSum := 0.0, 0.0
	for _, t := range terms {
		if t.ok {
			sum += t.value * t.weight
			weightSum += t.weight
		}
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

func duplicateRiskLevel(similarity float64) string {
	switch {
	case similarity > 0.95:
		return "critical"
	case similarity > 0.9:
		return "high"
	case similarity > 0.85:
		return "medium"
	default:
		return "low"
	}
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, "!?.,:;\"'()")
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func sameCalendarDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
