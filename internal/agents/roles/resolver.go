// Package roles maps a user identifier to a capability set. Resolution
// never fails: any lookup problem degrades to the guest context.
package roles

import (
	"context"

	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"
	"event-assistant/internal/store"
)

// capabilityTable is the static role → capabilities mapping. Flags are a
// pure function of the role and are never set from request data.
var capabilityTable = map[string]models.RoleContext{
	models.RoleGuest: {
		Role:        models.RoleGuest,
		Permissions: []string{"events:browse"},
		Greeting:    "Welcome! I can help you discover public events nearby.",
		Help:        "Try asking me to find events. Sign in to get personalized recommendations.",
		Restriction: "Sign in to create events or get recommendations tailored to you.",
	},
	models.RoleUser: {
		Role:        models.RoleUser,
		Permissions: []string{"events:browse", "events:attend", "recommendations:get"},
		Greeting:    "Welcome back! Ready to find your next event?",
		Help:        "I can search events, recommend ones you'll like, and remember your preferences.",
	},
	models.RoleOrganizer: {
		Role:            models.RoleOrganizer,
		CanCreateEvents: true,
		Permissions:     []string{"events:browse", "events:attend", "events:create", "recommendations:get"},
		Greeting:        "Hello! Want to create an event or check on your existing ones?",
		Help:            "Besides finding events, I can help you draft and submit new ones.",
	},
	models.RoleAdmin: {
		Role:            models.RoleAdmin,
		CanCreateEvents: true,
		CanModerate:     true,
		CanAnalyze:      true,
		CanViewAll:      true,
		IsAdmin:         true,
		Permissions: []string{
			"events:browse", "events:attend", "events:create",
			"recommendations:get", "moderation:review", "analytics:view",
		},
		Greeting: "Hello. Moderation queue and platform analytics are available.",
		Help:     "I can review flagged content, prioritize the moderation queue, and report platform health.",
	},
}

type Resolver struct {
	users  store.UserStore
	logger logger.Logger
}

func NewResolver(users store.UserStore, log logger.Logger) *Resolver {
	return &Resolver{
		users:  users,
		logger: log.WithFields(map[string]interface{}{"component": "role-resolver"}),
	}
}

// Resolve returns the capability context for a user. An empty userID is the
// guest path and never touches the store. A claimed role is accepted only
// when it matches the stored role.
func (r *Resolver) Resolve(ctx context.Context, userID, claimedRole string) models.RoleContext {
	if userID == "" {
		return Guest()
	}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		r.logger.Warn("user lookup failed, degrading to guest", map[string]interface{}{
			"userId": userID,
		})
		return Guest()
	}

	role := user.Role
	if claimedRole != "" && claimedRole != role {
		r.logger.Warn("claimed role does not match stored role", map[string]interface{}{
			"userId":  userID,
			"claimed": claimedRole,
			"stored":  role,
		})
	}

	rc, ok := capabilityTable[role]
	if !ok {
		return Guest()
	}
	return rc
}

// Guest returns the fixed unauthenticated context.
func Guest() models.RoleContext {
	return capabilityTable[models.RoleGuest]
}
