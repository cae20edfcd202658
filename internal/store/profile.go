package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/farmsight/farmsight/internal/advisory"
)

// ProfileStore holds the single-tenant farm profile: one durable JSON record
// at a well-known path, outside the snapshot timeline. The struct is owned by
// the server's startup routine and injected into handlers, so tests can run
// independent stores.
type ProfileStore struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	profile advisory.Profile
}

// NewProfileStore loads the persisted profile, or starts with an empty one
// when no record exists yet.
func NewProfileStore(path string, logger *zap.Logger) (*ProfileStore, error) {
	s := &ProfileStore{path: path, logger: logger}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no persisted profile, starting empty", zap.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("reading profile: %w", err)
	default:
		if err := json.Unmarshal(content, &s.profile); err != nil {
			return nil, fmt.Errorf("decoding profile: %w", err)
		}
		logger.Info("profile loaded", zap.String("email", s.profile.Email))
	}
	return s, nil
}

// Get returns the current profile.
func (s *ProfileStore) Get() advisory.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Replace swaps in a whole new profile and persists it.
func (s *ProfileStore) Replace(p advisory.Profile) advisory.Profile {
	s.mu.Lock()
	s.profile = p
	out := s.profile
	s.mu.Unlock()

	s.persist()
	return out
}

// Apply merges a partial update into the profile and persists the result.
func (s *ProfileStore) Apply(patch advisory.ProfilePatch) advisory.Profile {
	s.mu.Lock()
	patch.Apply(&s.profile)
	out := s.profile
	s.mu.Unlock()

	s.persist()
	return out
}

// persist writes the profile to disk. Failures are logged and swallowed:
// profile persistence is never surfaced to HTTP callers.
func (s *ProfileStore) persist() {
	s.mu.RLock()
	content, err := json.MarshalIndent(s.profile, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error("failed to encode profile", zap.Error(err))
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Error("failed to create profile directory", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, content, 0o644); err != nil {
		s.logger.Error("failed to persist profile", zap.String("path", s.path), zap.Error(err))
	}
}
