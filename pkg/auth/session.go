package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Session holds the persisted login state for one Scratch account.
// The password is never stored; only the derived session cookie and
// API token survive the login exchange.
type Session struct {
	Username     string    `json:"username"`
	SessionID    string    `json:"session_id"`
	Token        string    `json:"token"`
	LastModified time.Time `json:"last_modified"`
}

// SessionStore is the interface for persisting sessions.
type SessionStore interface {
	// Store saves the session for its account.
	Store(session *Session) error

	// Retrieve gets the session for a specific username.
	Retrieve(username string) (*Session, error)

	// List returns all stored sessions.
	List() ([]*Session, error)

	// Delete removes the session for a specific username.
	Delete(username string) error

	// Exists checks if a session exists for a username.
	Exists(username string) bool
}

// Manager chains session stores with fallback: system keyring first,
// encrypted file second, environment variables read-only last.
type Manager struct {
	stores []SessionStore
}

// NewManager creates a session manager with the available backends.
func NewManager() (*Manager, error) {
	var stores []SessionStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit stores, for tests
// and for the session receiver server.
func NewManagerWithStores(stores ...SessionStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the session using the first store that accepts it.
func (m *Manager) Store(session *Session) error {
	if session.Username == "" {
		return errors.New("username is required")
	}
	if session.SessionID == "" && session.Token == "" {
		return errors.New("session id or token is required")
	}

	session.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(session); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return errors.New("no available session stores")
}

// Retrieve gets the session from the first store that has it.
func (m *Manager) Retrieve(username string) (*Session, error) {
	for _, store := range m.stores {
		if session, err := store.Retrieve(username); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("no session found for user: %s", username)
}

// RetrieveDefault returns the session from the environment when set,
// otherwise the most recently stored account.
func (m *Manager) RetrieveDefault() (*Session, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if session, err := envStore.Retrieve(""); err == nil && session != nil {
			return session, nil
		}
	}

	sessions, err := m.List()
	if err == nil && len(sessions) > 0 {
		newest := sessions[0]
		for _, s := range sessions[1:] {
			if s.LastModified.After(newest.LastModified) {
				newest = s
			}
		}
		return newest, nil
	}

	return nil, ErrSessionNotFound
}

// List returns all stored sessions, deduplicated by username with the
// most recently modified version winning.
func (m *Manager) List() ([]*Session, error) {
	byUser := make(map[string]*Session)

	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, session := range sessions {
			if existing, ok := byUser[session.Username]; !ok || session.LastModified.After(existing.LastModified) {
				byUser[session.Username] = session
			}
		}
	}

	var result []*Session
	for _, session := range byUser {
		result = append(result, session)
	}
	return result, nil
}

// Delete removes the session from every store that has it. Stores
// that never held the session and read-only stores are not failures;
// without any hit the result wraps ErrSessionNotFound.
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		err := store.Delete(username)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrReadOnlyStore):
		default:
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	return fmt.Errorf("no session found for user %s: %w", username, ErrSessionNotFound)
}

// DeleteAll removes all stored sessions.
func (m *Manager) DeleteAll() error {
	sessions, err := m.List()
	if err != nil {
		return err
	}
	for _, session := range sessions {
		_ = m.Delete(session.Username)
	}
	return nil
}

// ConfigDir returns the per-user configuration directory, creating it
// with owner-only permissions if needed.
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "scratch-cli")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "scratch-cli")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "scratch-cli")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "scratch-cli")
		}
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Sanitize returns a copy of the session with secrets masked for display.
func Sanitize(session *Session) *Session {
	if session == nil {
		return nil
	}
	return &Session{
		Username:     session.Username,
		SessionID:    maskString(session.SessionID),
		Token:        maskString(session.Token),
		LastModified: session.LastModified,
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session")
	ErrReadOnlyStore   = errors.New("store is read-only")
)
