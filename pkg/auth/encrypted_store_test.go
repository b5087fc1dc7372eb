package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptedStore(t *testing.T) *EncryptedFileStore {
	t.Helper()
	t.Setenv("SCRATCH_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "sessions.enc"))
	require.NoError(t, err)
	return store
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	store := newTestEncryptedStore(t)

	session := &Session{Username: "kidslab", Token: "tok789", SessionID: "sess456"}
	require.NoError(t, store.Store(session))

	got, err := store.Retrieve("kidslab")
	require.NoError(t, err)
	assert.Equal(t, "tok789", got.Token)
	assert.Equal(t, "sess456", got.SessionID)

	assert.True(t, store.Exists("kidslab"))
	assert.False(t, store.Exists("nobody"))

	_, err = store.Retrieve("nobody")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEncryptedStoreFileIsOpaque(t *testing.T) {
	t.Setenv("SCRATCH_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "sessions.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Session{Username: "kidslab", Token: "very-secret-token"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "very-secret-token")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEncryptedStoreSurvivesReopen(t *testing.T) {
	t.Setenv("SCRATCH_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "sessions.enc")

	first, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Store(&Session{Username: "kidslab", Token: "tok"}))

	second, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	got, err := second.Retrieve("kidslab")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
}

func TestEncryptedStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")

	t.Setenv("SCRATCH_PASSPHRASE", "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Session{Username: "kidslab", Token: "tok"}))

	t.Setenv("SCRATCH_PASSPHRASE", "wrong")
	broken, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = broken.Retrieve("kidslab")
	require.Error(t, err)
}

func TestEncryptedStoreDeleteAndList(t *testing.T) {
	store := newTestEncryptedStore(t)

	require.NoError(t, store.Store(&Session{Username: "one", Token: "a"}))
	require.NoError(t, store.Store(&Session{Username: "two", Token: "b"}))

	sessions, err := store.List()
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, store.Delete("one"))
	assert.False(t, store.Exists("one"))
	assert.True(t, store.Exists("two"))

	assert.ErrorIs(t, store.Delete("one"), ErrSessionNotFound)
}
