package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveBytes(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir, false)
	require.NoError(t, err)

	require.NoError(t, m.SaveBytes("game.sb3", []byte("zip data")))

	content, err := os.ReadFile(filepath.Join(dir, "game.sb3"))
	require.NoError(t, err)
	assert.Equal(t, []byte("zip data"), content)
	assert.True(t, m.Exists("game.sb3"))
	assert.Equal(t, 1, m.SavedCount())
}

func TestSaveRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir, false)
	require.NoError(t, err)

	require.NoError(t, m.SaveBytes("game.sb3", []byte("first")))

	err = m.SaveBytes("game.sb3", []byte("second"))
	require.ErrorIs(t, err, ErrAlreadyExists)

	content, err := os.ReadFile(filepath.Join(dir, "game.sb3"))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), content)
}

func TestSaveOverwriteEnabled(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir, true)
	require.NoError(t, err)

	require.NoError(t, m.SaveBytes("game.sb3", []byte("first")))
	require.NoError(t, m.SaveBytes("game.sb3", []byte("second")))

	content, err := os.ReadFile(filepath.Join(dir, "game.sb3"))
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), content)
}

func TestAbortLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir, false)
	require.NoError(t, err)

	pf, err := m.Create("game.sb3")
	require.NoError(t, err)
	_, err = pf.Write([]byte("partial"))
	require.NoError(t, err)
	pf.Abort()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, m.Exists("game.sb3"))
}

func TestSaveReader(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir, false)
	require.NoError(t, err)

	require.NoError(t, m.Save("project.json", bytes.NewReader([]byte(`{"targets": []}`))))
	assert.True(t, m.Exists("project.json"))
}

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	m, err := NewManager(dir, false)
	require.NoError(t, err)
	assert.Equal(t, dir, m.OutputDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
