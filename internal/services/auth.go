package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidToken indicates the presented API token does not match.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptyToken indicates no token was presented or supplied for hashing.
	ErrEmptyToken = errors.New("token is empty")
)

// AuthService verifies the shared API token guarding mutating endpoints.
type AuthService struct {
	tokenHash string
	cost      int
}

// NewAuthService creates an AuthService for the bcrypt hash of the API token.
// An empty hash disables authentication.
func NewAuthService(tokenHash string) *AuthService {
	return &AuthService{tokenHash: tokenHash, cost: bcrypt.DefaultCost}
}

// Enabled reports whether a token is required.
func (s *AuthService) Enabled() bool {
	return s.tokenHash != ""
}

// HashToken returns the bcrypt hash of token for use as auth.token_hash.
func (s *AuthService) HashToken(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(token), s.cost)
	return string(bytes), err
}

// CheckToken validates token against the configured hash.
func (s *AuthService) CheckToken(token string) error {
	if !s.Enabled() {
		return nil
	}
	if token == "" {
		return ErrEmptyToken
	}
	if bcrypt.CompareHashAndPassword([]byte(s.tokenHash), []byte(token)) != nil {
		return ErrInvalidToken
	}
	return nil
}

// GenerateToken returns a random URL-safe token of the given length.
func (s *AuthService) GenerateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}
