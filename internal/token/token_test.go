package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("access", "refresh", 15*time.Minute, 24*time.Hour)

	pair, err := m.Issue("user-1", "FACTORY")
	require.NoError(t, err)

	c, err := m.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.UserID)
	assert.Equal(t, "FACTORY", c.Role)
	assert.NotEmpty(t, c.ID)

	r, err := m.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", r.UserID)
	assert.True(t, r.ExpiresAt.After(c.ExpiresAt))
}

func TestSecretsAreNotInterchangeable(t *testing.T) {
	m := NewManager("access", "refresh", time.Minute, time.Hour)
	pair, err := m.Issue("user-1", "SUPPLIER")
	require.NoError(t, err)

	_, err = m.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	m := NewManager("access", "refresh", time.Minute, time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issuedAt }

	pair, err := m.Issue("user-1", "ADMIN")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbage(t *testing.T) {
	m := NewManager("access", "refresh", time.Minute, time.Hour)
	_, err := m.ParseAccess("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotationProducesDistinctTokens(t *testing.T) {
	m := NewManager("access", "refresh", time.Minute, time.Hour)
	a, err := m.Issue("user-1", "ADMIN")
	require.NoError(t, err)
	b, err := m.Issue("user-1", "ADMIN")
	require.NoError(t, err)
	assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
}
