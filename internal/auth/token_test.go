package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/timesheet-api/internal/models"
)

func TestManager_IssueAndParse(t *testing.T) {
	m := NewManager("0123456789abcdef", time.Hour)
	user := &models.User{ID: 42, Role: models.RoleManager}

	token, expiresAt, err := m.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), userID)
	assert.Equal(t, models.RoleManager, claims.Role)
}

func TestManager_Expired(t *testing.T) {
	m := NewManager("0123456789abcdef", time.Minute)
	token, _, err := m.Issue(&models.User{ID: 1, Role: models.RoleEmployee})
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestManager_WrongSecret(t *testing.T) {
	token, _, err := NewManager("0123456789abcdef", time.Hour).Issue(&models.User{ID: 1})
	require.NoError(t, err)

	_, err = NewManager("fedcba9876543210", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = NewManager("0123456789abcdef", time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
