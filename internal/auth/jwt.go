// Package auth issues and validates device access tokens. Devices get a
// long-lived bearer token at registration and present it on destructive
// endpoints; read and report endpoints stay open to the fleet.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DeviceTokenExpiry is how long device access tokens are valid. Roadside
// units run unattended for months, so tokens are rotated on re-register
// rather than on a short clock.
const DeviceTokenExpiry = 90 * 24 * time.Hour

// Predefined token errors.
var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrTokenExpired = errors.New("access token has expired")
)

// DeviceClaims represents the claims in a device access token.
type DeviceClaims struct {
	jwt.RegisteredClaims

	// DeviceID is the device's external identifier.
	DeviceID string `json:"did"`
}

// TokenService handles device token creation and validation.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
}

// TokenConfig holds configuration for the token service.
type TokenConfig struct {
	// SigningKey is the secret key used to sign tokens.
	SigningKey string

	// Issuer is the issuer claim (e.g. "https://api.roadsignal.dev").
	Issuer string

	// Audience is the audience claim (e.g. "roadsignal-api").
	Audience string
}

// NewTokenService creates a new token service.
func NewTokenService(cfg TokenConfig) *TokenService {
	return &TokenService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
	}
}

// GenerateDeviceToken creates an access token for the given device id.
func (s *TokenService) GenerateDeviceToken(deviceID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(DeviceTokenExpiry)

	claims := DeviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   deviceID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateTokenID(),
		},
		DeviceID: deviceID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing device token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateDeviceToken validates a token and returns its claims.
func (s *TokenService) ValidateDeviceToken(tokenString string) (*DeviceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DeviceClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
