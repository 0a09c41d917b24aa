// Package settings manages client-local settings that are not owned by the backend.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/dashboard/internal/config"
	"github.com/aristath/dashboard/internal/events"
	"github.com/rs/zerolog"
)

// TokenSource reports where the active API token came from.
type TokenSource string

const (
	TokenSourceStored TokenSource = "stored"
	TokenSourceEnv    TokenSource = "env"
	TokenSourceNone   TokenSource = "none"
)

// ErrEmptyToken is returned when saving a blank token.
var ErrEmptyToken = errors.New("api token must not be empty")

// TokenStore persists the saved token.
type TokenStore interface {
	GetString(key string) (string, bool, error)
	SetString(key, value string) error
	Delete(key string) error
}

// TokenSetter is the backend client whose credentials follow the saved token.
type TokenSetter interface {
	SetToken(token string)
}

// TokenStatus describes the active token without revealing it.
type TokenStatus struct {
	Source     TokenSource `json:"source"`
	Configured bool        `json:"configured"`
	EnvDefault bool        `json:"env_default"`
}

// TokenService saves the backend API token and applies it to the client
// without a restart. A saved token overrides the environment.
type TokenService struct {
	store    TokenStore
	client   TokenSetter
	envToken string
	events   *events.Manager
	log      zerolog.Logger
}

// NewTokenService creates a token service. envToken is the value from the
// environment, used whenever no token is saved.
func NewTokenService(store TokenStore, client TokenSetter, envToken string, eventManager *events.Manager, log zerolog.Logger) *TokenService {
	return &TokenService{
		store:    store,
		client:   client,
		envToken: envToken,
		events:   eventManager,
		log:      log.With().Str("service", "api_token").Logger(),
	}
}

// Save stores token and switches the client to it.
func (s *TokenService) Save(token string) (TokenStatus, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenStatus{}, ErrEmptyToken
	}
	if err := s.store.SetString(config.APITokenKey, token); err != nil {
		return TokenStatus{}, fmt.Errorf("failed to save api token: %w", err)
	}
	s.client.SetToken(token)
	s.log.Info().Msg("API token saved")
	return s.changed(TokenSourceStored), nil
}

// Clear forgets the saved token and falls back to the environment.
func (s *TokenService) Clear() (TokenStatus, error) {
	if err := s.store.Delete(config.APITokenKey); err != nil {
		return TokenStatus{}, fmt.Errorf("failed to clear api token: %w", err)
	}
	s.client.SetToken(s.envToken)
	s.log.Info().Bool("env_default", s.envToken != "").Msg("API token cleared")
	return s.changed(s.fallbackSource()), nil
}

// Status reports which token is in effect.
func (s *TokenService) Status() (TokenStatus, error) {
	token, ok, err := s.store.GetString(config.APITokenKey)
	if err != nil {
		return TokenStatus{}, fmt.Errorf("failed to read api token: %w", err)
	}
	if ok && token != "" {
		return s.status(TokenSourceStored), nil
	}
	return s.status(s.fallbackSource()), nil
}

func (s *TokenService) fallbackSource() TokenSource {
	if s.envToken != "" {
		return TokenSourceEnv
	}
	return TokenSourceNone
}

func (s *TokenService) status(source TokenSource) TokenStatus {
	return TokenStatus{
		Source:     source,
		Configured: source != TokenSourceNone,
		EnvDefault: s.envToken != "",
	}
}

func (s *TokenService) changed(source TokenSource) TokenStatus {
	if s.events != nil {
		s.events.EmitTyped(events.SettingsChanged, "settings", &events.SettingsChangedData{
			Key:   "api_token",
			Value: string(source),
		})
	}
	return s.status(source)
}
