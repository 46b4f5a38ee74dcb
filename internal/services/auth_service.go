package services

import (
	"time"

	"pairchat/config"
	pairchat_errors "pairchat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService validates bearer credentials issued by the external identity
// provider. This service never creates accounts; it only turns a signed
// token into a verified Identity.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{jwtSecret: []byte(cfg.JWTSecret)}
}

// Identity is the authenticated caller attached to every request and every
// relay connection.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   string
}

type AccessClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticate verifies the credential and returns the caller's identity.
// Any failure, malformed, badly signed or expired, collapses to ErrAuth.
func (s *AuthService) Authenticate(credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, pairchat_errors.ErrAuth
	}

	parsed, err := jwt.ParseWithClaims(credential, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pairchat_errors.ErrAuth
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return Identity{}, pairchat_errors.ErrAuth
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return Identity{}, pairchat_errors.ErrAuth
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, pairchat_errors.ErrAuth
	}

	return Identity{
		UserID: userID,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
	}, nil
}

// IssueAccessToken signs a token for the given identity. Used by local
// development and tests; production tokens come from the identity provider.
func (s *AuthService) IssueAccessToken(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email: id.Email,
		Name:  id.Name,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}
	return signed, nil
}
