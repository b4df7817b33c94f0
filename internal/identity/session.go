package identity

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/animewiki/internal/domain"
)

// KeyUser is the storage key holding the logged-in username
const KeyUser = "user"

// Session manages the self-declared username on this machine.
// There is no password; the name only namespaces local collections.
type Session struct {
	storage domain.Storage
	logger  *slog.Logger
}

// NewSession creates a session backed by storage
func NewSession(storage domain.Storage, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{storage: storage, logger: logger}
}

// Login records name as the current user
func (s *Session) Login(name string) (domain.UserHandle, error) {
	user := domain.UserHandle(name).Normalize()
	if user.Anonymous() {
		return "", fmt.Errorf("%w: username cannot be empty", domain.ErrInvalidInput)
	}
	if err := s.storage.Set(KeyUser, string(user)); err != nil {
		return "", err
	}
	s.logger.Info("logged in", "user", user)
	return user, nil
}

// Logout forgets the current user. Saved collections are kept.
func (s *Session) Logout() error {
	if err := s.storage.Delete(KeyUser); err != nil {
		return err
	}
	s.logger.Info("logged out")
	return nil
}

// Current returns the logged-in user, or the anonymous handle when nobody is
func (s *Session) Current() (domain.UserHandle, error) {
	v, ok, err := s.storage.Get(KeyUser)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return domain.UserHandle(v).Normalize(), nil
}
