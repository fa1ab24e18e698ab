package ranking

import (
	"context"
	"fmt"

	"event-assistant/internal/common/genai"
	"event-assistant/internal/models"
)

// explainAll attaches local threshold-based explanations to every event and
// lets the prose service enrich the top result. The enrichment failing
// leaves the templated sentence in place.
func (e *Engine) explainAll(ctx context.Context, scored []models.ScoredEvent, mem models.UserMemory) []models.ScoredEvent {
	for i := range scored {
		scored[i].Explanation = localExplanation(scored[i])
	}
	if len(scored) > 0 && e.prose != nil {
		e.enrichTopExplanation(ctx, &scored[0])
	}
	return scored
}

func localExplanation(se models.ScoredEvent) []string {
	var reasons []string
	if se.Subscores.CategoryMatch >= 0.8 {
		reasons = append(reasons, fmt.Sprintf("Matches your interest in %s.", se.Event.Category))
	} else if se.Subscores.CategoryMatch >= 0.7 {
		reasons = append(reasons, fmt.Sprintf("Related to categories you follow (%s).", se.Event.Category))
	}
	if se.Subscores.LocationProximity >= 0.8 {
		reasons = append(reasons, "Close to your location.")
	}
	if se.Subscores.TimePreference >= 0.8 {
		reasons = append(reasons, "Fits your preferred times.")
	}
	if se.Subscores.BehaviorHistory >= 0.7 {
		reasons = append(reasons, "Similar to events you enjoyed before.")
	}
	if se.Subscores.Popularity >= 0.8 {
		reasons = append(reasons, fmt.Sprintf("Popular with %d people attending.", se.Event.AttendeeCount))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Worth a look based on your overall profile.")
	}
	return reasons
}

const enrichPromptTemplate = `In one friendly sentence, tell a user why this event suits them.
Event: %s (%s in %s). Reasons: %s`

func (e *Engine) enrichTopExplanation(ctx context.Context, se *models.ScoredEvent) {
	prompt := fmt.Sprintf(enrichPromptTemplate,
		se.Event.Title, se.Event.Category, se.Event.Location, se.Explanation)
	fallback := fmt.Sprintf("%s looks like a strong match for you.", se.Event.Title)

	text, degraded := genai.CompleteOrFallback(ctx, e.prose, prompt, fallback, e.proseTimeout)
	if degraded {
		e.logger.Debug("explanation enrichment degraded to template", map[string]interface{}{
			"eventId": se.Event.ID,
		})
	}
	se.Explanation = append(se.Explanation, text)
}
