// Package moderation computes composite risk verdicts for event content,
// detects duplicates against existing events, and sanitizes result sets.
// Its one hard rule: never silently pass unreviewed content and never crash
// the caller, so every internal failure degrades to a review verdict.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"event-assistant/internal/common/config"
	"event-assistant/internal/common/genai"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/common/notify"
	"event-assistant/internal/models"
	"event-assistant/internal/store"
)

var spamPhrases = []string{
	"free money", "act now", "guaranteed", "make money fast",
	"limited time", "click here", "no risk", "double your", "get rich",
}

var disallowedTopics = []string{
	"explicit", "nsfw", "adults only", "gambling", "narcotics", "weapons",
}

var punctRunRe = regexp.MustCompile(`[!?]{2,}`)

// SafetyChecker is the optional external content-safety collaborator.
// Failures contribute a zero score.
type SafetyChecker interface {
	Check(ctx context.Context, text string) (score float64, reasons []string, err error)
}

type subResult struct {
	name       string
	score      float64
	indicators []string
}

type Scorer struct {
	cfg          config.ModerationConfig
	prose        genai.Client
	proseTimeout time.Duration
	safety       SafetyChecker
	events       store.EventStore
	notifier     notify.Notifier
	logger       logger.Logger
	now          func() time.Time
}

// NewScorer wires the moderation collaborators. prose, safety and notifier
// may each be nil; the corresponding signal degrades to zero / no-op.
func NewScorer(cfg config.ModerationConfig, proseTimeout time.Duration, prose genai.Client, safety SafetyChecker, events store.EventStore, notifier notify.Notifier, log logger.Logger) *Scorer {
	if notifier == nil {
		notifier = notify.NoOpNotifier{}
	}
	return &Scorer{
		cfg:          cfg,
		prose:        prose,
		proseTimeout: proseTimeout,
		safety:       safety,
		events:       events,
		notifier:     notifier,
		logger:       log.WithFields(map[string]interface{}{"component": "moderation"}),
		now:          time.Now,
	}
}

// Moderate scores one piece of content. It recovers from any internal panic
// with the fixed fail-safe verdict.
func (s *Scorer) Moderate(ctx context.Context, content models.EventContent) (verdict models.ModerationVerdict) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("moderation panicked, returning fail-safe verdict", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
			verdict = failSafeVerdict(s.now())
		}
	}()

	checks := []func(context.Context, models.EventContent) subResult{
		s.spamCheck,
		s.inappropriateCheck,
		s.suspiciousCheck,
		s.aiGeneratedCheck,
		s.validationCheck,
	}

	// The sub-checks are independent and read-only; run them concurrently
	// and join before weighting. Each goroutine recovers for itself since a
	// goroutine panic would bypass the deferred recover above.
	results := make([]subResult, len(checks))
	var panicked atomic.Bool
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check func(context.Context, models.EventContent) subResult) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicked.Store(true)
				}
			}()
			results[i] = check(ctx, content)
		}(i, check)
	}
	wg.Wait()

	if panicked.Load() {
		s.logger.Error("moderation sub-check panicked, returning fail-safe verdict", nil)
		return failSafeVerdict(s.now())
	}

	weights := map[string]float64{
		"spam":          s.cfg.SpamWeight,
		"inappropriate": s.cfg.InappropriateWeight,
		"suspicious":    s.cfg.SuspiciousWeight,
		"ai_generated":  s.cfg.AIGeneratedWeight,
		"validation":    s.cfg.ValidationWeight,
	}

	risk := 0.0
	subscores := make(map[string]float64, len(results))
	var warnings []string
	for _, r := range results {
		subscores[r.name] = r.score
		risk += r.score * weights[r.name]
		warnings = append(warnings, r.indicators...)
	}
	risk = clamp01(risk)

	// A saturated spam signal alone warrants review even though the other
	// dimensions dilute the weighted sum.
	if subscores["spam"] >= 0.8 && risk < 0.85 {
		risk = 0.85
	}

	verdict = models.ModerationVerdict{
		RiskScore:       risk,
		Status:          statusFor(risk, s.cfg),
		Warnings:        warnings,
		Recommendations: recommendationsFor(results),
		Subscores:       subscores,
		CheckedAt:       s.now(),
	}
	return verdict
}

// ScoreStoredEvent re-moderates a stored event, writes the flags back, and
// alerts admins on rejection. Write-back failure only logs.
func (s *Scorer) ScoreStoredEvent(ctx context.Context, ev models.Event) models.ModerationVerdict {
	verdict := s.Moderate(ctx, models.ContentOf(ev))

	status := ev.Status
	switch verdict.Status {
	case models.ModerationRejected:
		status = models.EventStatusRejected
	case models.ModerationRequiresReview, models.ModerationFlagged:
		status = models.EventStatusFlagged
	}

	flags := models.EventFlags{RiskScore: verdict.RiskScore, Warnings: verdict.Warnings}
	if err := s.events.UpdateFlags(ctx, ev.ID, flags, status); err != nil {
		s.logger.Warn("flag write-back failed", map[string]interface{}{
			"eventId": ev.ID,
			"error":   err.Error(),
		})
	}

	if verdict.Status == models.ModerationRejected {
		s.notifier.AlertRejected(ctx, models.ContentOf(ev), verdict)
	}
	return verdict
}

// --- sub-checks ---

func (s *Scorer) spamCheck(_ context.Context, c models.EventContent) subResult {
	r := subResult{name: "spam"}
	combined := strings.ToLower(c.Title + " " + c.Description)

	for _, phrase := range spamPhrases {
		if strings.Contains(combined, phrase) {
			r.score += 0.2
			r.indicators = append(r.indicators, "spam phrase: "+phrase)
		}
	}

	if upperRatio(c.Title) > 0.5 {
		r.score += 0.3
		r.indicators = append(r.indicators, "excessive capitalization")
	}

	if len(punctRunRe.FindAllString(c.Title+" "+c.Description, -1)) >= 2 {
		r.score += 0.2
		r.indicators = append(r.indicators, "excessive punctuation")
	}

	if hasWordRepeatedOver(combined, 5) {
		r.score += 0.3
		r.indicators = append(r.indicators, "repeated words")
	}

	r.score = clamp01(r.score)
	return r
}

func (s *Scorer) inappropriateCheck(ctx context.Context, c models.EventContent) subResult {
	r := subResult{name: "inappropriate"}
	combined := strings.ToLower(c.Title + " " + c.Description)

	for _, topic := range disallowedTopics {
		if strings.Contains(combined, topic) {
			r.score += 0.4
			r.indicators = append(r.indicators, "disallowed topic: "+topic)
		}
	}

	if s.safety != nil {
		score, reasons, err := s.safety.Check(ctx, combined)
		if err != nil {
			s.logger.Debug("content-safety check unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			r.score += score
			r.indicators = append(r.indicators, reasons...)
		}
	}

	r.score = clamp01(r.score)
	return r
}

func (s *Scorer) suspiciousCheck(_ context.Context, c models.EventContent) subResult {
	r := subResult{name: "suspicious"}

	if len(strings.TrimSpace(c.Description)) < 50 {
		r.score += 0.3
		r.indicators = append(r.indicators, "description missing or very short")
	}
	loc := strings.ToLower(c.Location)
	if strings.Contains(loc, "tbd") || strings.Contains(loc, "to be determined") {
		r.score += 0.2
		r.indicators = append(r.indicators, "location to be determined")
	}
	if c.Price != nil && *c.Price < 0 {
		r.score += 0.4
		r.indicators = append(r.indicators, "negative price")
	}
	if c.Date != nil && c.Date.Before(s.now()) {
		r.score += 0.5
		r.indicators = append(r.indicators, "date in the past")
	}

	r.score = clamp01(r.score)
	return r
}

const aiDetectionSchema = `{
	"type": "object",
	"required": ["isAIGenerated", "confidence", "indicators"],
	"properties": {
		"isAIGenerated": {"type": "boolean"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"indicators": {"type": "array", "items": {"type": "string"}}
	}
}`

const aiDetectionPrompt = `Assess whether this event listing reads like machine-generated filler text.
Title: %q
Description: %q
Reply with JSON only: {"isAIGenerated": <bool>, "confidence": <0..1>, "indicators": [<strings>]}`

type aiDetectionReply struct {
	IsAIGenerated bool     `json:"isAIGenerated"`
	Confidence    float64  `json:"confidence"`
	Indicators    []string `json:"indicators"`
}

// aiGeneratedCheck asks the prose service for a detection verdict. Any
// failure, including schema-invalid replies, degrades to a zero signal.
func (s *Scorer) aiGeneratedCheck(ctx context.Context, c models.EventContent) subResult {
	r := subResult{name: "ai_generated"}
	if s.prose == nil {
		return r
	}

	cctx, cancel := context.WithTimeout(ctx, s.proseTimeout)
	defer cancel()

	reply, err := s.prose.Complete(cctx, fmt.Sprintf(aiDetectionPrompt, c.Title, c.Description))
	if err != nil {
		return r
	}

	payload := extractJSON(reply)
	validation, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(aiDetectionSchema),
		gojsonschema.NewStringLoader(payload),
	)
	if err != nil || !validation.Valid() {
		s.logger.Debug("ai-detection reply failed schema validation", nil)
		return r
	}

	var parsed aiDetectionReply
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return r
	}
	if parsed.IsAIGenerated {
		r.score = clamp01(parsed.Confidence)
		r.indicators = parsed.Indicators
	}
	return r
}

func (s *Scorer) validationCheck(_ context.Context, c models.EventContent) subResult {
	r := subResult{name: "validation"}

	if len(strings.TrimSpace(c.Title)) < 5 {
		r.score += 0.3
		r.indicators = append(r.indicators, "title missing or too short")
	}
	if len(strings.TrimSpace(c.Description)) < 20 {
		r.score += 0.3
		r.indicators = append(r.indicators, "description missing or too short")
	}
	if strings.TrimSpace(c.Location) == "" {
		r.score += 0.2
		r.indicators = append(r.indicators, "location missing")
	}
	switch {
	case c.Date == nil:
		r.score += 0.4
		r.indicators = append(r.indicators, "date missing")
	case c.Date.Before(s.now()):
		r.score += 0.5
		r.indicators = append(r.indicators, "date in the past")
	case c.Date.After(s.now().AddDate(1, 0, 0)):
		r.score += 0.2
		r.indicators = append(r.indicators, "date more than a year out")
	}

	r.score = clamp01(r.score)
	return r
}

// --- helpers ---

func statusFor(risk float64, cfg config.ModerationConfig) string {
	switch {
	case risk >= cfg.RejectedThreshold:
		return models.ModerationRejected
	case risk >= cfg.ReviewThreshold:
		return models.ModerationRequiresReview
	case risk >= cfg.FlaggedThreshold:
		return models.ModerationFlagged
	default:
		return models.ModerationSafe
	}
}

func recommendationsFor(results []subResult) []string {
	var recs []string
	for _, r := range results {
		switch r.name {
		case "spam":
			if r.score > 0.5 {
				recs = append(recs, "Rewrite the title and description without promotional language.")
			}
		case "suspicious":
			if r.score > 0.4 {
				recs = append(recs, "Add a fuller description, a confirmed location and a valid date.")
			}
		case "validation":
			if r.score > 0.3 {
				recs = append(recs, "Fill in the missing required fields before resubmitting.")
			}
		}
	}
	return recs
}

func failSafeVerdict(at time.Time) models.ModerationVerdict {
	return models.ModerationVerdict{
		RiskScore: 0.5,
		Status:    models.ModerationRequiresReview,
		Warnings:  []string{"automatic moderation failed, manual review required"},
		CheckedAt: at,
	}
}

func upperRatio(s string) float64 {
	letters, uppers := 0, 0
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			letters++
		} else if r >= 'A' && r <= 'Z' {
			letters++
			uppers++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(uppers) / float64(letters)
}

func hasWordRepeatedOver(text string, limit int) bool {
	counts := make(map[string]int)
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, "!?.,:;\"'")
		if len(w) < 3 {
			continue
		}
		counts[w]++
		if counts[w] > limit {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
