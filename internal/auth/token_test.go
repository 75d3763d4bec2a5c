package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metagrid-dev/metagrid/internal/config"
)

func testService() *Service {
	return NewService(config.AuthConfig{
		Secret:   "test-secret",
		Issuer:   "metagrid",
		TokenTTL: time.Hour,
	})
}

func TestIssueAndVerify(t *testing.T) {
	svc := testService()

	token, err := svc.Issue("user-1", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "admin", id.Role)
}

func TestIssueEmptyUserID(t *testing.T) {
	svc := testService()
	_, err := svc.Issue("", "user")
	assert.Error(t, err)
}

func TestVerifyEmptyToken(t *testing.T) {
	svc := testService()
	_, err := svc.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	svc := testService()
	_, err := svc.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	svc := testService()
	token, err := svc.Issue("user-1", "user")
	require.NoError(t, err)

	other := NewService(config.AuthConfig{
		Secret:   "different-secret",
		Issuer:   "metagrid",
		TokenTTL: time.Hour,
	})
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongIssuer(t *testing.T) {
	svc := testService()
	token, err := svc.Issue("user-1", "user")
	require.NoError(t, err)

	other := NewService(config.AuthConfig{
		Secret:   "test-secret",
		Issuer:   "someone-else",
		TokenTTL: time.Hour,
	})
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	svc := testService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.Issue("user-1", "user")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
