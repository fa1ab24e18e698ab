// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"
)

// PostgresEventStore implements EventStore on *sql.DB. It is split from
// PostgresStore only because Go cannot declare the user and event FindByID
// methods on the same receiver type.
type PostgresEventStore struct {
	db     *sql.DB
	logger logger.Logger
}

// PostgresStore implements UserStore and, via the embedded
// PostgresEventStore, EventStore on *sql.DB.
type PostgresStore struct {
	PostgresEventStore
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		PostgresEventStore: PostgresEventStore{
			db:     db,
			logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
		},
	}
}

// Events exposes the EventStore implementation; PostgresStore itself cannot
// satisfy EventStore because its user FindByID shadows the event one.
func (s *PostgresStore) Events() *PostgresEventStore {
	return &s.PostgresEventStore
}

// --- UserStore ---

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, preferences, created_at, last_active
		FROM users WHERE id = $1`, id)

	var u models.User
	var prefs []byte
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &prefs, &u.CreatedAt, &u.LastActive); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
		u.Preferences = models.Preferences{}
	}

	history, err := s.loadInteractions(ctx, id, 100)
	if err != nil {
		s.logger.Warn("failed to load interaction history", map[string]interface{}{
			"userId": id,
			"error":  err.Error(),
		})
	} else {
		u.InteractionHistory = history
	}

	return &u, nil
}

func (s *PostgresStore) loadInteractions(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, action, query, category, location, organizer, rating
		FROM user_interactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Interaction
	for rows.Next() {
		var in models.Interaction
		var query, category, location, organizer sql.NullString
		var rating sql.NullInt64
		if err := rows.Scan(&in.Timestamp, &in.Action, &query, &category, &location, &organizer, &rating); err != nil {
			return nil, err
		}
		in.Query = query.String
		in.Category = category.String
		in.Location = location.String
		in.Organizer = organizer.String
		in.Rating = int(rating.Int64)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET preferences = $2 WHERE id = $1`, id, data)
	return err
}

// AppendInteraction inserts one log row and trims the log store-side so the
// persisted history never exceeds the cap.
func (s *PostgresStore) AppendInteraction(ctx context.Context, id string, in models.Interaction, keep int) error {
	if keep <= 0 {
		keep = 100
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_interactions (user_id, created_at, action, query, category, location, organizer, rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, ts, in.Action, in.Query, in.Category, in.Location, in.Organizer, in.Rating)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM user_interactions
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM user_interactions
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)`, id, keep)
	return err
}

func (s *PostgresStore) TouchLastActive(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_active = $2 WHERE id = $1`, id, time.Now().UTC())
	return err
}

func (s *PostgresStore) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE last_active >= $1`, since).Scan(&n)
	return n, err
}

// --- EventStore ---

const eventColumns = `id, title, description, category, location, lon, lat,
	event_date, price, organizer, attendee_count, status, created_at,
	risk_score, moderation_warnings`

func (s *PostgresEventStore) FindByStatus(ctx context.Context, statuses []string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 500
	}
	statusJSON, _ := json.Marshal(statuses)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE status = ANY(SELECT json_array_elements_text($1::json))
		ORDER BY created_at ASC
		LIMIT $2`, statusJSON, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *PostgresEventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events WHERE id = $1`, id)
	ev, err := scanEvent(row)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *PostgresEventStore) UpdateFlags(ctx context.Context, id string, flags models.EventFlags, status string) error {
	warnings, err := json.Marshal(flags.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE events
		SET risk_score = $2, moderation_warnings = $3, status = $4
		WHERE id = $1`, id, flags.RiskScore, warnings, status)
	return err
}

func (s *PostgresEventStore) Counts(ctx context.Context) (EventCounts, error) {
	var c EventCounts
	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE created_at >= $1),
		       COUNT(*) FILTER (WHERE status = 'flagged')
		FROM events`, weekAgo).Scan(&c.Total, &c.RecentWeek, &c.Flagged)
	return c, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (models.Event, error) {
	var ev models.Event
	var lon, lat sql.NullFloat64
	var warnings []byte
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Category, &ev.Location,
		&lon, &lat, &ev.Date, &ev.Price, &ev.Organizer, &ev.AttendeeCount,
		&ev.Status, &ev.CreatedAt, &ev.Flags.RiskScore, &warnings)
	if err != nil {
		return ev, err
	}
	if lon.Valid && lat.Valid {
		ev.Coordinates = &models.GeoPoint{Lon: lon.Float64, Lat: lat.Float64}
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &ev.Flags.Warnings); err != nil {
			ev.Flags.Warnings = nil
		}
	}
	return ev, nil
}
