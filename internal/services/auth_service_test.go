package services

import (
	"testing"
	"time"

	pairchat_errors "pairchat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateRoundTrip(t *testing.T) {
	svc := NewAuthService(testConfig())

	want := Identity{
		UserID: uuid.New(),
		Email:  "alice@example.com",
		Name:   "Alice",
		Role:   "user",
	}

	token, err := svc.IssueAccessToken(want, time.Minute)
	require.NoError(t, err)

	got, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAuthenticateRejectsInvalid(t *testing.T) {
	svc := NewAuthService(testConfig())

	_, err := svc.Authenticate("")
	assert.ErrorIs(t, err, pairchat_errors.ErrAuth)

	_, err = svc.Authenticate("not-a-token")
	assert.ErrorIs(t, err, pairchat_errors.ErrAuth)
}

func TestAuthenticateRejectsExpired(t *testing.T) {
	svc := NewAuthService(testConfig())

	token, err := svc.IssueAccessToken(Identity{UserID: uuid.New()}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Authenticate(token)
	assert.ErrorIs(t, err, pairchat_errors.ErrAuth)
}

func TestAuthenticateRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService(testConfig())

	other := testConfig()
	other.JWTSecret = "different-secret"
	verifier := NewAuthService(other)

	token, err := issuer.IssueAccessToken(Identity{UserID: uuid.New()}, time.Minute)
	require.NoError(t, err)

	_, err = verifier.Authenticate(token)
	assert.ErrorIs(t, err, pairchat_errors.ErrAuth)
}
