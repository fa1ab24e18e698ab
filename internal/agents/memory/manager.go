// Package memory implements the two-tier user memory: a TTL-evicted session
// cache layered over the persisted preference/history record. Memory is
// advisory; every store failure here degrades instead of propagating.
package memory

import (
	"context"
	"sync"

	"event-assistant/internal/agents/intent"
	"event-assistant/internal/common/config"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"
	"event-assistant/internal/store"
)

type Manager struct {
	users    store.UserStore
	sessions ShortTermStore
	window   int
	history  int
	locks    sync.Map // userID -> *sync.Mutex
	logger   logger.Logger
}

func NewManager(cfg config.MemoryConfig, users store.UserStore, sessions ShortTermStore, log logger.Logger) *Manager {
	return &Manager{
		users:    users,
		sessions: sessions,
		window:   cfg.SessionWindow,
		history:  cfg.HistoryCap,
		logger:   log.WithFields(map[string]interface{}{"component": "session-memory"}),
	}
}

// Anonymous is the fixed default memory for unauthenticated sessions.
func Anonymous() models.UserMemory {
	return models.UserMemory{Anonymous: true}
}

// Read returns the merged memory view for a user. Anonymous ids never touch
// the store. A session hit overlays the fresh persisted snapshot (session
// wins on key conflict); a miss seeds an empty session entry.
func (m *Manager) Read(ctx context.Context, userID string) models.UserMemory {
	if userID == "" {
		return Anonymous()
	}

	lock := m.sessionLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := m.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		m.logger.Warn("persisted memory unavailable", map[string]interface{}{
			"userId": userID,
		})
		mem := Anonymous()
		mem.UserID = userID
		return mem
	}

	mem := models.UserMemory{
		UserID:      userID,
		Preferences: user.Preferences,
		History:     user.InteractionHistory,
	}

	entry, err := m.sessions.Get(ctx, userID)
	if err != nil {
		m.logger.Warn("session cache read failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return mem
	}
	if entry == nil {
		if err := m.sessions.Put(ctx, userID, &SessionEntry{}); err != nil {
			m.logger.Warn("session seed failed", map[string]interface{}{"userId": userID})
		}
		return mem
	}

	mem.Preferences = overlayPreferences(user.Preferences, entry.TempPreferences)
	mem.SessionTurns = entry.Turns
	return mem
}

// Write records one interaction: rolling session window, persisted log with
// store-side truncation, then the best-effort preference learning step.
// Failures are logged and swallowed.
func (m *Manager) Write(ctx context.Context, userID string, in models.Interaction) {
	if userID == "" {
		return
	}

	lock := m.sessionLock(userID)
	lock.Lock()
	defer lock.Unlock()

	entry, err := m.sessions.Get(ctx, userID)
	if err != nil || entry == nil {
		entry = &SessionEntry{}
	}
	entry.Turns = append(entry.Turns, in)
	if len(entry.Turns) > m.window {
		entry.Turns = entry.Turns[len(entry.Turns)-m.window:]
	}
	if err := m.sessions.Put(ctx, userID, entry); err != nil {
		m.logger.Warn("session write failed", map[string]interface{}{"userId": userID})
	}

	if err := m.users.AppendInteraction(ctx, userID, in, m.history); err != nil {
		m.logger.Warn("interaction append failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
	if err := m.users.TouchLastActive(ctx, userID); err != nil {
		m.logger.Warn("last-active touch failed", map[string]interface{}{"userId": userID})
	}

	if in.Action == "search" && in.Query != "" {
		m.learn(ctx, userID, in.Query)
	}
}

// learn folds category/location hints from a search query into the
// persisted preference sets with set-union semantics.
func (m *Manager) learn(ctx context.Context, userID, query string) {
	categories, locations := intent.PreferenceHints(query)
	if len(categories) == 0 && len(locations) == 0 {
		return
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return
	}

	prefs := user.Preferences
	changed := false
	if merged, grew := union(prefs.Categories, categories); grew {
		prefs.Categories = merged
		changed = true
	}
	if merged, grew := union(prefs.Locations, locations); grew {
		prefs.Locations = merged
		changed = true
	}
	if !changed {
		return
	}

	if err := m.users.UpdatePreferences(ctx, userID, prefs); err != nil {
		m.logger.Warn("preference learning failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
}

func (m *Manager) sessionLock(userID string) *sync.Mutex {
	actual, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// overlayPreferences merges session temporaries over the persisted record;
// a non-empty session field replaces the persisted one wholesale.
func overlayPreferences(persisted, session models.Preferences) models.Preferences {
	merged := persisted
	if len(session.Categories) > 0 {
		merged.Categories = session.Categories
	}
	if len(session.Locations) > 0 {
		merged.Locations = session.Locations
	}
	if len(session.TimePreferences) > 0 {
		merged.TimePreferences = session.TimePreferences
	}
	if session.PriceRange != nil {
		merged.PriceRange = session.PriceRange
	}
	return merged
}

func union(existing, additions []string) ([]string, bool) {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	merged := existing
	grew := false
	for _, v := range additions {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			merged = append(merged, v)
			grew = true
		}
	}
	return merged, grew
}
