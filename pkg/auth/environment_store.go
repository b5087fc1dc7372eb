package auth

import (
	"fmt"
	"os"
	"time"
)

// EnvironmentStore reads a session from SCRATCH_* environment variables.
// It is read-only and sits last in the manager chain for CI and scripting.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based session store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(session *Session) error {
	return fmt.Errorf("environment store: %w", ErrReadOnlyStore)
}

// Retrieve builds a session from the environment. An empty username
// matches whatever SCRATCH_USERNAME holds.
func (e *EnvironmentStore) Retrieve(username string) (*Session, error) {
	envUser := os.Getenv("SCRATCH_USERNAME")
	sessionID := os.Getenv("SCRATCH_SESSION_ID")
	token := os.Getenv("SCRATCH_TOKEN")

	if envUser == "" || (sessionID == "" && token == "") {
		return nil, ErrSessionNotFound
	}
	if username != "" && username != envUser {
		return nil, ErrSessionNotFound
	}

	return &Session{
		Username:     envUser,
		SessionID:    sessionID,
		Token:        token,
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Session, error) {
	session, err := e.Retrieve("")
	if err != nil {
		return []*Session{}, nil
	}
	return []*Session{session}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(username string) error {
	return fmt.Errorf("environment store: %w", ErrReadOnlyStore)
}

func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
