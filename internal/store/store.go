// Package store defines the persistence interfaces the pipeline depends on
// and their postgres/elasticsearch implementations. Agents receive these
// interfaces, never concrete clients, so tests substitute doubles.
package store

import (
	"context"
	"time"

	"event-assistant/internal/models"
)

// UserStore is the durable user-record collaborator used by role
// resolution and session memory.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error
	// AppendInteraction adds one row to the interaction log; the store
	// truncates the log to the newest `keep` rows.
	AppendInteraction(ctx context.Context, id string, in models.Interaction, keep int) error
	TouchLastActive(ctx context.Context, id string) error
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
}

// EventQuery describes a candidate search. Zero values mean "no filter".
type EventQuery struct {
	Text       string
	Center     *models.GeoPoint
	RadiusKm   float64
	Categories []string
	MaxPrice   *float64
	From       *time.Time
	To         *time.Time
	Statuses   []string
	Limit      int
}

// EventSearcher is the geospatial/free-text retrieval backend.
type EventSearcher interface {
	Search(ctx context.Context, q EventQuery) ([]models.Event, error)
}

// EventCounts aggregates the numbers governance reports on.
type EventCounts struct {
	Total      int
	RecentWeek int
	Flagged    int
}

// EventStore is the durable event-record collaborator: duplicate pools,
// flag write-back and governance aggregates.
type EventStore interface {
	FindByStatus(ctx context.Context, statuses []string, limit int) ([]models.Event, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	UpdateFlags(ctx context.Context, id string, flags models.EventFlags, status string) error
	Counts(ctx context.Context) (EventCounts, error)
}
