// Package orchestrator composes the pipeline: classify, resolve role, read
// memory, route by intent and role, write memory, assemble the reply. It is
// the single place where an unexpected failure is caught and converted into
// the degraded response; no request ever propagates a fault to the caller.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"event-assistant/internal/agents/governance"
	"event-assistant/internal/agents/moderation"
	"event-assistant/internal/agents/retrieval"
	"event-assistant/internal/common/genai"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/common/observability"
	"event-assistant/internal/models"
)

// Collaborator contracts, satisfied by the concrete agents and by test
// doubles.
type (
	IntentClassifier interface {
		Classify(ctx context.Context, text string) models.IntentResult
	}
	RoleResolver interface {
		Resolve(ctx context.Context, userID, claimedRole string) models.RoleContext
	}
	MemoryManager interface {
		Read(ctx context.Context, userID string) models.UserMemory
		Write(ctx context.Context, userID string, in models.Interaction)
	}
	Retriever interface {
		Search(ctx context.Context, text string, center *models.GeoPoint, filters map[string][]string, prefs *models.Preferences, personalized bool) retrieval.Result
		RecommendationCandidates(ctx context.Context, center *models.GeoPoint, prefs models.Preferences) retrieval.Result
	}
	Moderator interface {
		Moderate(ctx context.Context, content models.EventContent) models.ModerationVerdict
		DetectDuplicates(ctx context.Context, content models.EventContent, pool []models.Event) moderation.DuplicateReport
		ValidateResults(events []models.Event) moderation.ValidationReport
		Safe(events []models.Event) []models.Event
	}
	Ranker interface {
		Rank(events []models.Event, mem models.UserMemory, userLocation *models.GeoPoint) []models.ScoredEvent
		Personalize(ctx context.Context, events []models.Event, mem models.UserMemory, userLocation *models.GeoPoint) []models.ScoredEvent
	}
	Governor interface {
		FlaggedDigest(ctx context.Context) []models.Event
		ModerationQueue(ctx context.Context) []governance.QueueItem
		Health(ctx context.Context) governance.HealthReport
	}
)

// Request is one chat turn entering the pipeline.
type Request struct {
	UserID      string               `json:"userId"`
	ClaimedRole string               `json:"claimedRole,omitempty"`
	Message     string               `json:"message"`
	Location    *models.GeoPoint     `json:"location,omitempty"`
	Draft       *models.EventContent `json:"draft,omitempty"`
}

// Response is the assembled reply. SafetyStatus is "ok", "warnings" when
// the result sweep flagged content, or "error" for the degraded response.
type Response struct {
	Reply        string                       `json:"reply"`
	Intent       models.IntentResult          `json:"intent"`
	Role         string                       `json:"role"`
	Events       []models.ScoredEvent         `json:"events,omitempty"`
	Moderation   *models.ModerationVerdict    `json:"moderation,omitempty"`
	Duplicates   *moderation.DuplicateReport  `json:"duplicates,omitempty"`
	Queue        []governance.QueueItem       `json:"queue,omitempty"`
	Health       *governance.HealthReport     `json:"health,omitempty"`
	SafetyStatus string                       `json:"safetyStatus"`
	Confidence   float64                      `json:"confidence"`
	Degraded     bool                         `json:"degraded"`
	Trace        []string                     `json:"trace"`
}

type Orchestrator struct {
	intents      IntentClassifier
	roles        RoleResolver
	memory       MemoryManager
	retrieval    Retriever
	moderation   Moderator
	ranking      Ranker
	governance   Governor
	prose        genai.Client
	proseTimeout time.Duration
	obs          *observability.Observability
	logger       logger.Logger
}

func New(
	intents IntentClassifier,
	roleResolver RoleResolver,
	mem MemoryManager,
	retriever Retriever,
	moderator Moderator,
	ranker Ranker,
	governor Governor,
	prose genai.Client,
	proseTimeout time.Duration,
	obs *observability.Observability,
	log logger.Logger,
) *Orchestrator {
	if obs == nil {
		obs = &observability.Observability{}
	}
	return &Orchestrator{
		intents:      intents,
		roles:        roleResolver,
		memory:       mem,
		retrieval:    retriever,
		moderation:   moderator,
		ranking:      ranker,
		governance:   governor,
		prose:        prose,
		proseTimeout: proseTimeout,
		obs:          obs,
		logger:       log.WithFields(map[string]interface{}{"component": "orchestrator"}),
	}
}

// Handle runs one request through the pipeline. The single deferred recover
// here is the only top-level catch in the system.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	requestID := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline failure, returning degraded response", map[string]interface{}{
				"requestId": requestID,
				"panic":     fmt.Sprint(r),
			})
			o.obs.RecordDegraded(ctx, "pipeline")
			resp = degradedResponse()
		}
		o.obs.RecordStageDuration(ctx, "request", time.Since(start))
	}()

	trace := []string{"intent-classifier"}
	it := o.intents.Classify(ctx, req.Message)

	trace = append(trace, "role-resolver")
	role := o.roles.Resolve(ctx, req.UserID, req.ClaimedRole)

	trace = append(trace, "memory-read")
	mem := o.memory.Read(ctx, req.UserID)

	branch, resp := o.route(ctx, req, it, role, mem, &trace)
	o.obs.RecordRequest(ctx, string(it.Category), branch)

	trace = append(trace, "memory-write")
	o.memory.Write(ctx, req.UserID, models.Interaction{
		Timestamp: time.Now().UTC(),
		Action:    string(it.Category),
		Query:     req.Message,
	})

	resp.Intent = it
	resp.Role = role.Role
	resp.Trace = trace
	if resp.Confidence == 0 {
		resp.Confidence = it.Confidence
	}
	if resp.SafetyStatus == "" {
		resp.SafetyStatus = "ok"
	}

	o.logger.Info("request handled", map[string]interface{}{
		"requestId":  requestID,
		"intent":     string(it.Category),
		"branch":     branch,
		"role":       role.Role,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return resp
}

// route selects the flow; first match wins.
func (o *Orchestrator) route(ctx context.Context, req Request, it models.IntentResult, role models.RoleContext, mem models.UserMemory, trace *[]string) (string, Response) {
	switch {
	case role.Role == models.RoleGuest:
		return "guest", o.handleGuest(ctx, req, it, role, trace)
	case it.Category == models.IntentSearch:
		return "search", o.handleSearch(ctx, req, it, mem, true, trace)
	case it.Category == models.IntentCreate && role.CanCreateEvents:
		return "create", o.handleCreate(ctx, req, trace)
	case it.Category == models.IntentModerate && role.IsAdmin:
		return "moderation", o.handleModeration(ctx, req, trace)
	case it.Category == models.IntentRecommend:
		return "recommend", o.handleRecommend(ctx, req, mem, trace)
	case it.Category == models.IntentAnalyze && role.CanAnalyze:
		return "analysis", o.handleAnalysis(ctx, trace)
	default:
		return "general", o.handleGeneral(ctx, req, it, role, mem, trace)
	}
}

func degradedResponse() Response {
	return Response{
		Reply:        "Sorry, something went wrong on our side. Please try again in a moment.",
		SafetyStatus: "error",
		Confidence:   0.1,
		Degraded:     true,
	}
}
