package roles

import (
	"context"
	"errors"
	"testing"
	"time"

	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"

	"github.com/stretchr/testify/assert"
)

type stubUserStore struct {
	user *models.User
	err  error
}

func (s *stubUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.user, s.err
}
func (s *stubUserStore) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error {
	return nil
}
func (s *stubUserStore) AppendInteraction(ctx context.Context, id string, in models.Interaction, keep int) error {
	return nil
}
func (s *stubUserStore) TouchLastActive(ctx context.Context, id string) error { return nil }
func (s *stubUserStore) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	return 0, nil
}

func TestResolveGuestWithoutLookup(t *testing.T) {
	r := NewResolver(&stubUserStore{err: errors.New("must not be called")}, logger.NewNoOpLogger())

	rc := r.Resolve(context.Background(), "", "")

	assert.Equal(t, models.RoleGuest, rc.Role)
	assert.False(t, rc.IsAdmin)
	assert.False(t, rc.CanCreateEvents)
}

func TestResolveUnknownUserDegradesToGuest(t *testing.T) {
	r := NewResolver(&stubUserStore{err: errors.New("no rows")}, logger.NewNoOpLogger())

	rc := r.Resolve(context.Background(), "missing-user", "")

	assert.Equal(t, models.RoleGuest, rc.Role)
	assert.False(t, rc.IsAdmin)
	assert.False(t, rc.CanCreateEvents)
}

func TestResolveCapabilityFlagsPerRole(t *testing.T) {
	tests := []struct {
		role      string
		canCreate bool
		canMod    bool
		isAdmin   bool
	}{
		{models.RoleUser, false, false, false},
		{models.RoleOrganizer, true, false, false},
		{models.RoleAdmin, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			r := NewResolver(&stubUserStore{user: &models.User{ID: "u", Role: tt.role}}, logger.NewNoOpLogger())

			rc := r.Resolve(context.Background(), "u", "")

			assert.Equal(t, tt.role, rc.Role)
			assert.Equal(t, tt.canCreate, rc.CanCreateEvents)
			assert.Equal(t, tt.canMod, rc.CanModerate)
			assert.Equal(t, tt.isAdmin, rc.IsAdmin)
		})
	}
}

func TestResolveRejectsMismatchedClaim(t *testing.T) {
	r := NewResolver(&stubUserStore{user: &models.User{ID: "u", Role: models.RoleUser}}, logger.NewNoOpLogger())

	rc := r.Resolve(context.Background(), "u", models.RoleAdmin)

	assert.Equal(t, models.RoleUser, rc.Role)
	assert.False(t, rc.IsAdmin)
}

func TestResolveUnrecognizedStoredRole(t *testing.T) {
	r := NewResolver(&stubUserStore{user: &models.User{ID: "u", Role: "superuser"}}, logger.NewNoOpLogger())

	rc := r.Resolve(context.Background(), "u", "")
	assert.Equal(t, models.RoleGuest, rc.Role)
}
