package models

import "time"

// Roles recognised by the platform.
const (
	RoleGuest     = "guest"
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// PriceRange bounds a user's preferred price band.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Preferences is the durable preference record merged with session
// overlays during memory reads.
type Preferences struct {
	Categories           []string        `json:"categories,omitempty"`
	Locations            []string        `json:"locations,omitempty"`
	TimePreferences      []string        `json:"timePreferences,omitempty"`
	PriceRange           *PriceRange     `json:"priceRange,omitempty"`
	NotificationSettings map[string]bool `json:"notificationSettings,omitempty"`
}

// Interaction is one row of the persisted interaction log.
type Interaction struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"` // search, attended, interested, skipped, ...
	Query     string    `json:"query,omitempty"`
	Category  string    `json:"category,omitempty"`
	Location  string    `json:"location,omitempty"`
	Organizer string    `json:"organizer,omitempty"`
	Rating    int       `json:"rating,omitempty"` // 0 = unrated
}

// Positive reports whether the interaction counts as a positive signal for
// behavior scoring.
func (i Interaction) Positive() bool {
	return i.Action == "attended" || i.Action == "interested" || i.Rating >= 4
}

// Negative reports whether the interaction counts against similar events.
func (i Interaction) Negative() bool {
	return i.Action == "skipped" || (i.Rating > 0 && i.Rating <= 2)
}

// User is the persisted user record as the pipeline reads it.
type User struct {
	ID                 string        `json:"id" db:"id"`
	Name               string        `json:"name" db:"name"`
	Email              string        `json:"email" db:"email"`
	Role               string        `json:"role" db:"role"`
	Preferences        Preferences   `json:"preferences"`
	InteractionHistory []Interaction `json:"interactionHistory"`
	CreatedAt          time.Time     `json:"createdAt" db:"created_at"`
	LastActive         time.Time     `json:"lastActive" db:"last_active"`
}
