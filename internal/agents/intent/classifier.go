// Package intent maps raw chat text to a coarse category with filters,
// entities and a confidence score. Pure keyword heuristics; the prose
// service is consulted only to second-guess low-confidence results.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"event-assistant/internal/common/config"
	"event-assistant/internal/common/genai"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"
)

var (
	dateSlashRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	dateDashRe  = regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`)
	numberRe    = regexp.MustCompile(`\b\d+\b`)
	locationRe  = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)*\b`)
)

type Classifier struct {
	prose        genai.Client
	enhanceBelow float64
	proseTimeout time.Duration
	logger       logger.Logger
}

func NewClassifier(cfg config.IntentConfig, proseTimeout time.Duration, prose genai.Client, log logger.Logger) *Classifier {
	return &Classifier{
		prose:        prose,
		enhanceBelow: cfg.EnhanceBelowConfidence,
		proseTimeout: proseTimeout,
		logger:       log.WithFields(map[string]interface{}{"component": "intent-classifier"}),
	}
}

// Classify never fails; the weakest outcome is the general category with
// low confidence.
func (c *Classifier) Classify(ctx context.Context, text string) models.IntentResult {
	lower := strings.ToLower(text)

	category, confidence := matchCategory(lower, len(text))

	result := models.IntentResult{
		Category:   category,
		Confidence: confidence,
		Filters:    extractFilters(lower),
		Entities:   extractEntities(text),
	}
	result.Context = deriveContext(lower, result)

	if confidence < c.enhanceBelow && category != models.IntentGreeting {
		result.EnhancedIntent = c.enhance(ctx, text)
	}

	c.logger.Debug("classified message", map[string]interface{}{
		"category":   string(result.Category),
		"confidence": result.Confidence,
	})
	return result
}

// matchCategory counts literal pattern hits per rule; the highest count
// wins, ties going to the earlier rule. Zero hits everywhere is general.
func matchCategory(lower string, textLen int) (models.IntentCategory, float64) {
	best := models.IntentGeneral
	bestCount := 0
	bestTotal := 1

	for _, rule := range intentRules {
		count := 0
		for _, p := range rule.patterns {
			if strings.Contains(lower, p) {
				count++
			}
		}
		if count > bestCount {
			best = rule.category
			bestCount = count
			bestTotal = len(rule.patterns)
		}
	}

	if bestCount == 0 {
		return models.IntentGeneral, 0.1
	}

	confidence := float64(bestCount)/float64(bestTotal) + 0.3
	if confidence > 1.0 {
		confidence = 1.0
	}
	if textLen < 10 {
		confidence *= 0.8
	}
	return best, math.Round(confidence*100) / 100
}

func extractFilters(lower string) map[string][]string {
	filters := make(map[string][]string)
	for group, vocabulary := range filterVocabularies {
		for _, term := range vocabulary {
			if strings.Contains(lower, term) {
				filters[group] = append(filters[group], term)
			}
		}
	}
	return filters
}

// PreferenceHints returns the category and location vocabulary terms found
// in a query. Session memory uses it to learn preferences from searches.
func PreferenceHints(text string) (categories, locations []string) {
	lower := strings.ToLower(text)
	for _, term := range filterVocabularies["categories"] {
		if strings.Contains(lower, term) {
			categories = append(categories, term)
		}
	}
	locations = locationRe.FindAllString(text, -1)
	return categories, locations
}

func extractEntities(text string) models.Entities {
	var e models.Entities
	e.Dates = append(e.Dates, dateSlashRe.FindAllString(text, -1)...)
	e.Dates = append(e.Dates, dateDashRe.FindAllString(text, -1)...)
	e.Numbers = numberRe.FindAllString(text, -1)
	e.Locations = locationRe.FindAllString(text, -1)
	return e
}

func deriveContext(lower string, r models.IntentResult) models.IntentContext {
	ctx := models.IntentContext{Urgency: "normal", Specificity: "general", Sentiment: "neutral"}

	for _, t := range urgentTerms {
		if strings.Contains(lower, t) {
			ctx.Urgency = "high"
			break
		}
	}
	if ctx.Urgency == "normal" {
		for _, t := range relaxedTerms {
			if strings.Contains(lower, t) {
				ctx.Urgency = "low"
				break
			}
		}
	}

	if len(r.Filters) > 0 || len(r.Entities.Dates) > 0 || len(r.Entities.Locations) > 0 {
		ctx.Specificity = "high"
	}

	pos, neg := 0, 0
	for _, t := range positiveTerms {
		if strings.Contains(lower, t) {
			pos++
		}
	}
	for _, t := range negativeTerms {
		if strings.Contains(lower, t) {
			neg++
		}
	}
	if pos > neg {
		ctx.Sentiment = "positive"
	} else if neg > pos {
		ctx.Sentiment = "negative"
	}
	return ctx
}

const enhancePromptTemplate = `Classify the purpose of this message from a user of an event-discovery platform.
Message: %q
Reply with JSON only: {"label": "<one word>", "reasoning": "<one sentence>"}`

// enhance asks the prose service for a secondary label. Any failure is
// swallowed; the caller sees nil.
func (c *Classifier) enhance(ctx context.Context, text string) *models.EnhancedIntent {
	if c.prose == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, c.proseTimeout)
	defer cancel()

	reply, err := c.prose.Complete(cctx, fmt.Sprintf(enhancePromptTemplate, text))
	if err != nil {
		c.logger.Debug("intent enhancement unavailable", map[string]interface{}{"error": err.Error()})
		return nil
	}

	var enhanced models.EnhancedIntent
	if err := json.Unmarshal([]byte(extractJSON(reply)), &enhanced); err != nil || enhanced.Label == "" {
		return nil
	}
	return &enhanced
}

// extractJSON trims prose the model sometimes wraps around its JSON reply.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
