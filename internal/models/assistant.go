package models

import "time"

// IntentCategory is the coarse classification of a chat message.
type IntentCategory string

const (
	IntentSearch    IntentCategory = "search"
	IntentCreate    IntentCategory = "create"
	IntentRecommend IntentCategory = "recommend"
	IntentModerate  IntentCategory = "moderate"
	IntentAnalyze   IntentCategory = "analyze"
	IntentWhen      IntentCategory = "when"
	IntentWhere     IntentCategory = "where"
	IntentPrice     IntentCategory = "price"
	IntentAttend    IntentCategory = "attend"
	IntentGreeting  IntentCategory = "greeting"
	IntentGeneral   IntentCategory = "general"
)

// Entities holds the naive extractions from a message. No NER: dates come
// from two literal formats, numbers from digit runs, locations from
// capitalized word runs.
type Entities struct {
	Locations []string `json:"locations,omitempty"`
	Dates     []string `json:"dates,omitempty"`
	Numbers   []string `json:"numbers,omitempty"`
}

// IntentContext is lightweight message metadata alongside the category.
type IntentContext struct {
	Urgency     string `json:"urgency"`     // low | normal | high
	Specificity string `json:"specificity"` // general | high
	Sentiment   string `json:"sentiment"`   // positive | neutral | negative
}

// EnhancedIntent is the secondary label from the prose service, requested
// only when heuristic confidence is low. Nil when the call failed.
type EnhancedIntent struct {
	Label     string `json:"label"`
	Reasoning string `json:"reasoning"`
}

// IntentResult is created fresh per request and immutable afterwards.
type IntentResult struct {
	Category       IntentCategory      `json:"category"`
	Confidence     float64             `json:"confidence"`
	Filters        map[string][]string `json:"filters"`
	Entities       Entities            `json:"entities"`
	Context        IntentContext       `json:"context"`
	EnhancedIntent *EnhancedIntent     `json:"enhancedIntent"`
}

// RoleContext is a user's permission tier with derived capability flags.
// The flags are a pure function of Role; they are never set independently.
type RoleContext struct {
	Role            string   `json:"role"`
	CanCreateEvents bool     `json:"canCreateEvents"`
	CanModerate     bool     `json:"canModerate"`
	CanAnalyze      bool     `json:"canAnalyze"`
	CanViewAll      bool     `json:"canViewAll"`
	IsAdmin         bool     `json:"isAdmin"`
	Permissions     []string `json:"permissions"`
	Greeting        string   `json:"greeting"`
	Help            string   `json:"help"`
	Restriction     string   `json:"restriction"`
}

// UserMemory is the merged view handed to ranking: durable preferences
// overlaid with session temporaries (session wins on key conflict),
// history always from the persisted store.
type UserMemory struct {
	UserID       string        `json:"userId"`
	Anonymous    bool          `json:"anonymous"`
	Preferences  Preferences   `json:"preferences"`
	History      []Interaction `json:"history"`
	SessionTurns []Interaction `json:"sessionTurns,omitempty"`
}

// Subscores are the per-dimension ranking scores, each in [0,1].
type Subscores struct {
	CategoryMatch     float64 `json:"categoryMatch"`
	LocationProximity float64 `json:"locationProximity"`
	TimePreference    float64 `json:"timePreference"`
	BehaviorHistory   float64 `json:"behaviorHistory"`
	Popularity        float64 `json:"popularity"`
}

// ScoredEvent is an event plus its ranking breakdown; ephemeral, produced
// and consumed within one request.
type ScoredEvent struct {
	Event       Event     `json:"event"`
	Subscores   Subscores `json:"subscores"`
	TotalScore  float64   `json:"totalScore"`
	Explanation []string  `json:"explanation,omitempty"`
}

// Moderation statuses in increasing severity.
const (
	ModerationSafe           = "safe"
	ModerationFlagged        = "flagged"
	ModerationRequiresReview = "requires_review"
	ModerationRejected       = "rejected"
)

// ModerationVerdict is the composite moderation outcome for one content
// check; a persisted copy of RiskScore/Warnings lives on the event.
type ModerationVerdict struct {
	RiskScore       float64            `json:"riskScore"`
	Status          string             `json:"status"`
	Warnings        []string           `json:"warnings,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
	Subscores       map[string]float64 `json:"subscores,omitempty"`
	CheckedAt       time.Time          `json:"checkedAt"`
}
