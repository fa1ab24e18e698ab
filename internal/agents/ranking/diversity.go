package ranking

import (
	"context"
	"sort"
	"strings"

	"event-assistant/internal/models"
)

// Personalize ranks, applies the diversity filter and attaches
// explanations. This is the full treatment for recommendation responses.
func (e *Engine) Personalize(ctx context.Context, events []models.Event, mem models.UserMemory, userLocation *models.GeoPoint) []models.ScoredEvent {
	scored := e.Rank(events, mem, userLocation)
	diverse := e.applyDiversity(scored)
	return e.explainAll(ctx, diverse, mem)
}

// applyDiversity greedily walks the score-descending list, capping repeats
// per category and location. If the caps starve the list below the minimum,
// skipped events are re-admitted in score order.
func (e *Engine) applyDiversity(scored []models.ScoredEvent) []models.ScoredEvent {
	perCategory := make(map[string]int)
	perLocation := make(map[string]int)

	var admitted, skipped []models.ScoredEvent
	for _, se := range scored {
		if len(admitted) >= e.cfg.MaxResults {
			break
		}
		category := strings.ToLower(se.Event.Category)
		location := strings.ToLower(se.Event.Location)
		if perCategory[category] >= e.cfg.MaxPerCategory || perLocation[location] >= e.cfg.MaxPerLocation {
			skipped = append(skipped, se)
			continue
		}
		perCategory[category]++
		perLocation[location]++
		admitted = append(admitted, se)
	}

	for _, se := range skipped {
		if len(admitted) >= e.cfg.MinResults || len(admitted) >= e.cfg.MaxResults {
			break
		}
		admitted = append(admitted, se)
	}

	sort.SliceStable(admitted, func(i, j int) bool {
		return admitted[i].TotalScore > admitted[j].TotalScore
	})
	return admitted
}
