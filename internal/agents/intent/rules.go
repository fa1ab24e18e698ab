package intent

import "event-assistant/internal/models"

// intentRule binds a category to its literal keyword patterns. Matching is
// lower-cased substring containment; the table order is the tie-break order.
type intentRule struct {
	category models.IntentCategory
	patterns []string
}

var intentRules = []intentRule{
	{models.IntentSearch, []string{
		"find", "search", "show me", "look for", "looking for", "events",
		"what's happening", "whats happening", "discover",
	}},
	{models.IntentCreate, []string{
		"create", "organize", "host", "new event", "set up an event",
		"plan an event", "start an event",
	}},
	{models.IntentRecommend, []string{
		"recommend", "suggest", "what should", "interesting", "for me",
		"any ideas",
	}},
	{models.IntentModerate, []string{
		"moderate", "review", "flag", "approve", "reject", "report this",
	}},
	{models.IntentAnalyze, []string{
		"analytics", "statistics", "stats", "insights", "how many",
		"metrics", "trends", "platform health",
	}},
	{models.IntentWhen, []string{
		"when", "what time", "schedule", "start time", "date of",
	}},
	{models.IntentWhere, []string{
		"where", "venue", "address", "directions", "location of",
	}},
	{models.IntentPrice, []string{
		"price", "cost", "how much", "fee", "ticket", "expensive", "cheap",
	}},
	{models.IntentAttend, []string{
		"attend", "join", "rsvp", "going to", "sign up", "register",
		"count me in",
	}},
	{models.IntentGreeting, []string{
		"hello", "hi there", "hey", "good morning", "good afternoon",
		"good evening", "thanks", "thank you",
	}},
}

// Filter vocabularies. Each group is extracted independently; one message
// can populate several groups at once.
var filterVocabularies = map[string][]string{
	"categories": {
		"music", "tech", "technology", "sports", "sport", "food", "art",
		"business", "wellness", "health", "education", "networking",
		"comedy", "theater", "outdoor", "family",
	},
	"timeframe": {
		"today", "tonight", "tomorrow", "weekend", "this week", "next week",
		"morning", "afternoon", "evening",
	},
	"location": {
		"near me", "nearby", "close by", "downtown", "in town", "around here",
	},
	"price": {
		"free", "cheap", "affordable", "expensive", "under",
	},
}

var (
	urgentTerms  = []string{"urgent", "asap", "right now", "immediately", "tonight", "today"}
	relaxedTerms = []string{"sometime", "whenever", "eventually", "no rush"}

	positiveTerms = []string{"love", "great", "awesome", "excited", "amazing", "fun"}
	negativeTerms = []string{"hate", "bad", "terrible", "boring", "awful", "disappointed"}
)
