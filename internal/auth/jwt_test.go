package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadsignal/roadsignal/internal/auth"
)

func TestTokenService_GenerateAndValidateDeviceToken(t *testing.T) {
	svc := auth.NewTokenService(auth.TokenConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.roadsignal.dev",
		Audience:   "roadsignal-api",
	})

	token, expiresAt, err := svc.GenerateDeviceToken("veh-001")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateDeviceToken(token)
	require.NoError(t, err)
	assert.Equal(t, "veh-001", claims.DeviceID)
	assert.Equal(t, "veh-001", claims.Subject)
	assert.Equal(t, "https://api.roadsignal.dev", claims.Issuer)
}

func TestTokenService_InvalidToken(t *testing.T) {
	svc := auth.NewTokenService(auth.TokenConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.roadsignal.dev",
		Audience:   "roadsignal-api",
	})

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateDeviceToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestTokenService_WrongSigningKey(t *testing.T) {
	svc1 := auth.NewTokenService(auth.TokenConfig{
		SigningKey: "key-one",
		Issuer:     "https://api.roadsignal.dev",
		Audience:   "roadsignal-api",
	})

	token, _, err := svc1.GenerateDeviceToken("veh-001")
	require.NoError(t, err)

	svc2 := auth.NewTokenService(auth.TokenConfig{
		SigningKey: "key-two",
		Issuer:     "https://api.roadsignal.dev",
		Audience:   "roadsignal-api",
	})

	_, err = svc2.ValidateDeviceToken(token)
	assert.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenService_WrongIssuer(t *testing.T) {
	svc1 := auth.NewTokenService(auth.TokenConfig{
		SigningKey: "test-key",
		Issuer:     "issuer-one",
		Audience:   "roadsignal-api",
	})

	token, _, err := svc1.GenerateDeviceToken("veh-001")
	require.NoError(t, err)

	svc2 := auth.NewTokenService(auth.TokenConfig{
		SigningKey: "test-key",
		Issuer:     "issuer-two",
		Audience:   "roadsignal-api",
	})

	_, err = svc2.ValidateDeviceToken(token)
	assert.Error(t, err)
}

func TestTokenService_WrongAudience(t *testing.T) {
	svc1 := auth.NewTokenService(auth.TokenConfig{
		SigningKey: "test-key",
		Issuer:     "https://api.roadsignal.dev",
		Audience:   "audience-one",
	})

	token, _, err := svc1.GenerateDeviceToken("veh-001")
	require.NoError(t, err)

	svc2 := auth.NewTokenService(auth.TokenConfig{
		SigningKey: "test-key",
		Issuer:     "https://api.roadsignal.dev",
		Audience:   "audience-two",
	})

	_, err = svc2.ValidateDeviceToken(token)
	assert.Error(t, err)
}
