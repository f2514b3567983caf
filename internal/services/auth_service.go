package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"summitpass/internal/cache"
)

// ErrInvalidCredentials rejects a login with a wrong username or password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService checks the single admin credential: a fixed username and the
// mutable password held on the global row. A successful login mints a
// bearer token kept in process memory only. Changing the password does not
// invalidate a token already issued.
type AuthService struct {
	mu       sync.Mutex
	username string
	cache    *cache.Cache
	token    string
}

// NewAuthService creates the service for the given admin username.
func NewAuthService(username string, c *cache.Cache) *AuthService {
	return &AuthService{username: username, cache: c}
}

// Login validates the credential pair and returns a fresh bearer token.
func (a *AuthService) Login(username, password string) (string, error) {
	if username != a.username || password != a.cache.Global().AdminPassword {
		return "", ErrInvalidCredentials
	}

	// Stable within a session but not guessable across restarts.
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s-%d", password, time.Now().UnixNano())))
	token := hex.EncodeToString(hash[:])

	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
	return token, nil
}

// Validate reports whether the token matches the current session.
func (a *AuthService) Validate(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return token != "" && token == a.token
}

// Logout discards the current session token.
func (a *AuthService) Logout() {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
}
