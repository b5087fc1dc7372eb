package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerStoreAndRetrieve(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())

	session := &Session{Username: "kidslab", Token: "tok789", SessionID: "sess456"}
	require.NoError(t, manager.Store(session))

	got, err := manager.Retrieve("kidslab")
	require.NoError(t, err)
	assert.Equal(t, "kidslab", got.Username)
	assert.Equal(t, "tok789", got.Token)
	assert.False(t, got.LastModified.IsZero())
}

func TestManagerStoreRequiresCredentials(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())

	assert.Error(t, manager.Store(&Session{Token: "tok"}))
	assert.Error(t, manager.Store(&Session{Username: "kidslab"}))
	assert.NoError(t, manager.Store(&Session{Username: "kidslab", Token: "tok"}))
	assert.NoError(t, manager.Store(&Session{Username: "other", SessionID: "sess"}))
}

func TestManagerFallsBackWhenStoreFails(t *testing.T) {
	failing := NewMockStore()
	failing.FailStore = true
	backup := NewMockStore()
	manager := NewManagerWithStores(failing, backup)

	require.NoError(t, manager.Store(&Session{Username: "kidslab", Token: "tok"}))

	assert.False(t, failing.Exists("kidslab"))
	assert.True(t, backup.Exists("kidslab"))

	got, err := manager.Retrieve("kidslab")
	require.NoError(t, err)
	assert.Equal(t, "kidslab", got.Username)
}

func TestManagerRetrieveDefaultPicksNewest(t *testing.T) {
	store := NewMockStore()
	manager := NewManagerWithStores(store, NewEnvironmentStore())

	old := &Session{Username: "older", Token: "a"}
	require.NoError(t, store.Store(old))
	old.LastModified = time.Now().Add(-time.Hour)
	require.NoError(t, store.Store(old))

	require.NoError(t, store.Store(&Session{Username: "newer", Token: "b", LastModified: time.Now()}))

	got, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "newer", got.Username)
}

func TestManagerRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv("SCRATCH_USERNAME", "envuser")
	t.Setenv("SCRATCH_TOKEN", "envtoken")

	store := NewMockStore()
	require.NoError(t, store.Store(&Session{Username: "stored", Token: "x", LastModified: time.Now()}))
	manager := NewManagerWithStores(store, NewEnvironmentStore())

	got, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "envuser", got.Username)
	assert.Equal(t, "envtoken", got.Token)
}

func TestManagerDelete(t *testing.T) {
	store := NewMockStore()
	manager := NewManagerWithStores(store)

	require.NoError(t, store.Store(&Session{Username: "kidslab", Token: "tok"}))
	require.NoError(t, manager.Delete("kidslab"))
	assert.False(t, store.Exists("kidslab"))

	assert.ErrorIs(t, manager.Delete("kidslab"), ErrSessionNotFound)
}

func TestManagerDeleteThroughFileAndEnvironmentChain(t *testing.T) {
	manager := NewManagerWithStores(newTestEncryptedStore(t), NewEnvironmentStore())

	// The read-only environment store must not mask the not-found result.
	assert.ErrorIs(t, manager.Delete("nobody"), ErrSessionNotFound)

	require.NoError(t, manager.Store(&Session{Username: "kidslab", Token: "tok"}))
	assert.NoError(t, manager.Delete("kidslab"))
	assert.ErrorIs(t, manager.Delete("kidslab"), ErrSessionNotFound)
}

func TestManagerDeleteAll(t *testing.T) {
	store := NewMockStore()
	manager := NewManagerWithStores(store)

	require.NoError(t, store.Store(&Session{Username: "one", Token: "a"}))
	require.NoError(t, store.Store(&Session{Username: "two", Token: "b"}))

	require.NoError(t, manager.DeleteAll())

	sessions, err := manager.List()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSanitizeMasksSecrets(t *testing.T) {
	session := &Session{
		Username:  "kidslab",
		Token:     "abcdefghijklmnop",
		SessionID: "short",
	}

	sanitized := Sanitize(session)
	assert.Equal(t, "kidslab", sanitized.Username)
	assert.Equal(t, "abcd...mnop", sanitized.Token)
	assert.Equal(t, "********", sanitized.SessionID)

	// The original is untouched.
	assert.Equal(t, "abcdefghijklmnop", session.Token)

	assert.Nil(t, Sanitize(nil))
}

func TestEnvironmentStoreIsReadOnly(t *testing.T) {
	t.Setenv("SCRATCH_USERNAME", "envuser")
	t.Setenv("SCRATCH_TOKEN", "envtoken")

	store := NewEnvironmentStore()

	got, err := store.Retrieve("envuser")
	require.NoError(t, err)
	assert.Equal(t, "envtoken", got.Token)

	assert.Error(t, store.Store(&Session{Username: "x", Token: "y"}))
	assert.Error(t, store.Delete("envuser"))
}
