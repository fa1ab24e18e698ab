package models

import "time"

// Event statuses as stored on the events table.
const (
	EventStatusPending  = "pending"
	EventStatusApproved = "approved"
	EventStatusFlagged  = "flagged"
	EventStatusRejected = "rejected"
)

// GeoPoint is a lon/lat coordinate pair.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// EventFlags carries the moderation data written back to the store.
type EventFlags struct {
	RiskScore float64  `json:"riskScore"`
	Warnings  []string `json:"moderationWarnings,omitempty"`
}

// Event is a candidate event as the pipeline reads it. The pipeline never
// mutates events; only moderation writes flags back through the store.
type Event struct {
	ID            string     `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Category      string     `json:"category" db:"category"`
	Location      string     `json:"location" db:"location"`
	Coordinates   *GeoPoint  `json:"coordinates,omitempty"`
	Date          time.Time  `json:"date" db:"event_date"`
	Price         float64    `json:"price" db:"price"`
	Organizer     string     `json:"organizer" db:"organizer"`
	AttendeeCount int        `json:"attendeeCount" db:"attendee_count"`
	Status        string     `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	Flags         EventFlags `json:"aiFlags"`
}

// EventContent is the mutable draft shape moderation scores. Used both for
// new submissions and for re-checks of stored events.
type EventContent struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Location    string     `json:"location"`
	Date        *time.Time `json:"date,omitempty"`
	Price       *float64   `json:"price,omitempty"`
}

// ContentOf projects an event into the draft shape for re-moderation.
func ContentOf(e Event) EventContent {
	c := EventContent{
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Location:    e.Location,
	}
	if !e.Date.IsZero() {
		d := e.Date
		c.Date = &d
	}
	price := e.Price
	c.Price = &price
	return c
}
