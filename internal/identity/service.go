// Package identity supplies caller identity and role lookups. Session
// issuance lives in an upstream auth service; this package only answers
// "who is the caller" and "may they moderate".
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// Role is the privilege level of a staff user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleModerator
}

// StaffUser is one entry in the staff roster.
type StaffUser struct {
	ID     string `json:"id"`
	Handle string `json:"handle,omitempty"`
	Role   Role   `json:"role"`
	Note   string `json:"note,omitempty"`
}

// Config is the staff roster loaded from JSON.
type Config struct {
	Users []StaffUser `json:"users"`
}

// Validate checks that every roster entry names a known role.
func (c *Config) Validate() error {
	for _, user := range c.Users {
		if !user.Role.Valid() {
			return &ConfigError{
				Field:   "users",
				Message: "user " + user.ID + " references unknown role: " + string(user.Role),
			}
		}
	}
	return nil
}

// ConfigError represents a roster validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "staff roster error in " + e.Field + ": " + e.Message
}

// Service answers role-gating questions from the staff roster.
// If no roster is configured, every check returns false.
type Service struct {
	mu         sync.RWMutex
	configPath string

	// Quick lookup map built from config
	userRoles map[string]Role
}

// NewService creates a role service from the roster at configPath.
// An empty path yields a disabled service where all checks return false.
func NewService(configPath string) (*Service, error) {
	s := &Service{
		configPath: configPath,
		userRoles:  make(map[string]Role),
	}

	if configPath == "" {
		log.Info().Msg("identity: no staff roster configured, moderation access disabled")
		return s, nil
	}

	if err := s.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load staff roster: %w", err)
	}

	return s, nil
}

func (s *Service) loadConfig() error {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", s.configPath).Msg("identity: staff roster not found, moderation access disabled")
			return nil
		}
		return fmt.Errorf("failed to read roster file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse roster file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid roster: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.userRoles = make(map[string]Role, len(config.Users))
	for _, user := range config.Users {
		s.userRoles[user.ID] = user.Role
	}

	log.Info().
		Int("users", len(config.Users)).
		Str("path", s.configPath).
		Msg("identity: staff roster loaded")

	return nil
}

// Reload re-reads the roster from disk.
func (s *Service) Reload() error {
	if s.configPath == "" {
		return nil
	}
	return s.loadConfig()
}

// IsAdmin returns true if the given user id holds the admin role.
func (s *Service) IsAdmin(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userRoles[id] == RoleAdmin
}

// IsModerator returns true if the user may moderate. Admins hold every
// moderator privilege.
func (s *Service) IsModerator(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.userRoles[id]
	return ok
}

// RoleOf returns the user's role, if any.
func (s *Service) RoleOf(id string) (Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.userRoles[id]
	return role, ok
}
