package store

import (
	"context"
	"testing"
	"time"

	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, logger.NewNoOpLogger()), mock
}

func TestFindUserByID(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()

	prefs := []byte(`{"categories":["music","tech"],"locations":["Berlin"]}`)
	mock.ExpectQuery(`SELECT id, name, email, role, preferences`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "preferences", "created_at", "last_active"}).
			AddRow("user-1", "Ada", "ada@example.com", "organizer", prefs, now, now))

	mock.ExpectQuery(`SELECT created_at, action, query`).
		WithArgs("user-1", 100).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "action", "query", "category", "location", "organizer", "rating"}).
			AddRow(now, "attended", "", "music", "Berlin", "", 5).
			AddRow(now, "search", "jazz tonight", "", "", "", 0))

	u, err := s.FindByID(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "organizer", u.Role)
	assert.Equal(t, []string{"music", "tech"}, u.Preferences.Categories)
	require.Len(t, u.InteractionHistory, 2)
	assert.True(t, u.InteractionHistory[0].Positive())
	assert.Equal(t, "jazz tonight", u.InteractionHistory[1].Query)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByIDCorruptPreferences(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, name, email, role, preferences`).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "preferences", "created_at", "last_active"}).
			AddRow("user-2", "Bob", "bob@example.com", "user", []byte(`{not json`), now, now))

	mock.ExpectQuery(`SELECT created_at, action, query`).
		WithArgs("user-2", 100).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "action", "query", "category", "location", "organizer", "rating"}))

	u, err := s.FindByID(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Empty(t, u.Preferences.Categories)
}

func TestAppendInteractionTrimsHistory(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO user_interactions`).
		WithArgs("user-1", sqlmock.AnyArg(), "search", "tech meetups", "", "", "", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM user_interactions`).
		WithArgs("user-1", 100).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := s.AppendInteraction(context.Background(), "user-1",
		models.Interaction{Action: "search", Query: "tech meetups"}, 100)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendInteractionDefaultsKeep(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO user_interactions`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM user_interactions`).
		WithArgs("user-1", 100).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.AppendInteraction(context.Background(), "user-1",
		models.Interaction{Action: "attended"}, 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFlags(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`UPDATE events`).
		WithArgs("evt-1", 0.85, []byte(`["excessive capitalization","spam phrase detected"]`), models.EventStatusFlagged).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpdateFlags(context.Background(), "evt-1", models.EventFlags{
		RiskScore: 0.85,
		Warnings:  []string{"excessive capitalization", "spam phrase detected"},
	}, models.EventStatusFlagged)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCounts(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "recent", "flagged"}).AddRow(120, 14, 9))

	c, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EventCounts{Total: 120, RecentWeek: 14, Flagged: 9}, c)
}

func TestFindEventsByStatus(t *testing.T) {
	s, mock := newTestStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "title", "description", "category", "location",
		"lon", "lat", "event_date", "price", "organizer", "attendee_count", "status",
		"created_at", "risk_score", "moderation_warnings"}).
		AddRow("evt-1", "Jazz Night", "Live jazz downtown", "music", "Berlin",
			13.4, 52.5, now, 15.0, "org-1", 42, "flagged", now, 0.72, []byte(`["spam phrase detected"]`))

	mock.ExpectQuery(`SELECT .+ FROM events`).
		WillReturnRows(rows)

	events, err := s.FindByStatus(context.Background(), []string{"flagged", "pending"}, 50)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Jazz Night", events[0].Title)
	require.NotNil(t, events[0].Coordinates)
	assert.InDelta(t, 52.5, events[0].Coordinates.Lat, 1e-9)
	assert.Equal(t, []string{"spam phrase detected"}, events[0].Flags.Warnings)
}
