package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"event-assistant/internal/common/genai"
	"event-assistant/internal/models"
)

// handleGuest is the unified unauthenticated flow: the same discovery logic
// as the signed-in paths with personalization off and a widened radius.
func (o *Orchestrator) handleGuest(ctx context.Context, req Request, it models.IntentResult, role models.RoleContext, trace *[]string) Response {
	switch it.Category {
	case models.IntentGreeting:
		return Response{Reply: role.Greeting + " " + role.Help}
	case models.IntentSearch, models.IntentRecommend, models.IntentWhen,
		models.IntentWhere, models.IntentPrice, models.IntentAttend:
		resp := o.handleSearch(ctx, req, it, models.UserMemory{Anonymous: true}, false, trace)
		if resp.Reply != "" && role.Restriction != "" {
			resp.Reply += " " + role.Restriction
		}
		return resp
	default:
		return o.handleGeneral(ctx, req, it, role, models.UserMemory{Anonymous: true}, trace)
	}
}

// handleSearch retrieves, sanitizes and ranks candidates, then phrases the
// answer. personalized toggles preference-driven querying and the radius.
func (o *Orchestrator) handleSearch(ctx context.Context, req Request, it models.IntentResult, mem models.UserMemory, personalized bool, trace *[]string) Response {
	*trace = append(*trace, "retrieval")
	var prefs *models.Preferences
	if personalized {
		prefs = &mem.Preferences
	}
	result := o.retrieval.Search(ctx, req.Message, req.Location, it.Filters, prefs, personalized)
	if result.Degraded {
		o.obs.RecordDegraded(ctx, "retrieval")
	}

	*trace = append(*trace, "moderation-sweep")
	sweep := o.moderation.ValidateResults(result.Events)
	safe := o.moderation.Safe(result.Events)

	*trace = append(*trace, "ranking")
	scored := o.ranking.Personalize(ctx, safe, mem, req.Location)

	resp := Response{Events: scored, Degraded: result.Degraded}
	if sweep.Status == "warnings" {
		resp.SafetyStatus = "warnings"
	}

	fallback := searchFallbackText(scored)
	resp.Reply = o.phrase(ctx, searchPrompt(req.Message, scored), fallback)
	return resp
}

// handleCreate moderates the draft and checks it against existing events.
func (o *Orchestrator) handleCreate(ctx context.Context, req Request, trace *[]string) Response {
	if req.Draft == nil {
		return Response{
			Reply: "Tell me about the event you want to create: title, description, location, date and price.",
		}
	}

	*trace = append(*trace, "moderation")
	verdict := o.moderation.Moderate(ctx, *req.Draft)

	*trace = append(*trace, "duplicate-detection")
	duplicates := o.moderation.DetectDuplicates(ctx, *req.Draft, nil)

	resp := Response{Moderation: &verdict, Duplicates: &duplicates}
	switch {
	case verdict.Status == models.ModerationRejected:
		resp.SafetyStatus = "warnings"
		resp.Reply = "This draft can't be submitted as-is: " + strings.Join(verdict.Warnings, "; ") + "."
	case duplicates.IsDuplicate:
		resp.SafetyStatus = "warnings"
		resp.Reply = fmt.Sprintf(
			"This looks very similar to an existing event (similarity %.0f%%). Please check before submitting.",
			duplicates.HighestSimilarity*100)
	case verdict.Status != models.ModerationSafe:
		resp.Reply = "Your draft was submitted and is awaiting review: " + strings.Join(verdict.Warnings, "; ") + "."
	default:
		resp.Reply = "Your draft passed the automatic checks and was submitted for publication."
	}
	return resp
}

// handleModeration summarizes the admin review queue.
func (o *Orchestrator) handleModeration(ctx context.Context, req Request, trace *[]string) Response {
	*trace = append(*trace, "governance-queue")
	queue := o.governance.ModerationQueue(ctx)

	high := 0
	for _, item := range queue {
		if item.Priority == "high" {
			high++
		}
	}

	fallback := fmt.Sprintf("There are %d items in the review queue, %d of them high priority.", len(queue), high)
	return Response{
		Queue: queue,
		Reply: o.phrase(ctx, moderationPrompt(len(queue), high), fallback),
	}
}

// handleRecommend is the preference-driven flow for signed-in users.
func (o *Orchestrator) handleRecommend(ctx context.Context, req Request, mem models.UserMemory, trace *[]string) Response {
	*trace = append(*trace, "retrieval")
	result := o.retrieval.RecommendationCandidates(ctx, req.Location, mem.Preferences)
	if result.Degraded {
		o.obs.RecordDegraded(ctx, "retrieval")
	}

	*trace = append(*trace, "moderation-sweep")
	safe := o.moderation.Safe(result.Events)

	*trace = append(*trace, "ranking")
	scored := o.ranking.Personalize(ctx, safe, mem, req.Location)

	fallback := recommendFallbackText(scored)
	return Response{
		Events:   scored,
		Degraded: result.Degraded,
		Reply:    o.phrase(ctx, recommendPrompt(scored), fallback),
	}
}

// handleAnalysis reports platform health to analytics-capable roles.
func (o *Orchestrator) handleAnalysis(ctx context.Context, trace *[]string) Response {
	*trace = append(*trace, "governance-health")
	health := o.governance.Health(ctx)

	fallback := fmt.Sprintf("Platform health is %d/100 (%s): %d events total, %d new this week.",
		health.Score, health.Status, health.TotalEvents, health.WeeklyNew)
	return Response{
		Health: &health,
		Reply:  o.phrase(ctx, analysisPrompt(health.Score, health.Status), fallback),
	}
}

// handleGeneral is the conversational fallback for everything unrouted.
func (o *Orchestrator) handleGeneral(ctx context.Context, req Request, it models.IntentResult, role models.RoleContext, mem models.UserMemory, trace *[]string) Response {
	*trace = append(*trace, "general")

	fallback := role.Help
	if fallback == "" {
		fallback = "I can help you find, create and get recommendations for events. What are you looking for?"
	}
	if it.Category == models.IntentGreeting {
		return Response{Reply: role.Greeting + " " + role.Help}
	}
	return Response{Reply: o.phrase(ctx, generalPrompt(req.Message), fallback)}
}

// phrase delegates prose to the generation service with a deterministic
// fallback; degradation is recorded, never surfaced as an error.
func (o *Orchestrator) phrase(ctx context.Context, prompt, fallback string) string {
	text, degraded := genai.CompleteOrFallback(ctx, o.prose, prompt, fallback, o.proseTimeout)
	if degraded {
		o.obs.RecordDegraded(ctx, "prose-generation")
	}
	return text
}

// --- prompts and deterministic fallback text ---

func searchPrompt(message string, scored []models.ScoredEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A user asked: %q. Summarize these matching events in two friendly sentences:\n", message)
	for i, se := range scored {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s, %s)\n", se.Event.Title, se.Event.Category, se.Event.Location)
	}
	if len(scored) == 0 {
		b.WriteString("(no events matched)\n")
	}
	return b.String()
}

func searchFallbackText(scored []models.ScoredEvent) string {
	if len(scored) == 0 {
		return "I couldn't find events matching that. Try widening the area or a different category."
	}
	names := make([]string, 0, 3)
	for i, se := range scored {
		if i >= 3 {
			break
		}
		names = append(names, se.Event.Title)
	}
	return fmt.Sprintf("I found %d matching events. Top picks: %s.", len(scored), strings.Join(names, ", "))
}

func recommendPrompt(scored []models.ScoredEvent) string {
	var b strings.Builder
	b.WriteString("Recommend these events to the user in two warm sentences:\n")
	for i, se := range scored {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s)\n", se.Event.Title, se.Event.Category)
	}
	if len(scored) == 0 {
		b.WriteString("(nothing suitable found)\n")
	}
	return b.String()
}

func recommendFallbackText(scored []models.ScoredEvent) string {
	if len(scored) == 0 {
		return "I don't have good recommendations yet. Tell me what kinds of events you enjoy."
	}
	return fmt.Sprintf("Based on your preferences I picked %d events; %q looks like the best fit.",
		len(scored), scored[0].Event.Title)
}

func moderationPrompt(total, high int) string {
	return fmt.Sprintf(
		"Summarize for an admin in one sentence: the moderation queue has %d items, %d high priority.",
		total, high)
}

func analysisPrompt(score int, status string) string {
	return fmt.Sprintf(
		"Summarize for an admin in one sentence: platform health score %d/100, status %q.",
		score, status)
}

func generalPrompt(message string) string {
	return fmt.Sprintf(
		"You are an assistant for an event-discovery platform. Reply helpfully in two sentences to: %q",
		message)
}
