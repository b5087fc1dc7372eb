// Package storage writes downloaded project files to the output
// directory. Writes go through a temp file and rename so an
// interrupted download never leaves a truncated bundle behind.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Manager handles output file placement and overwrite policy.
type Manager struct {
	outputDir string
	overwrite bool
	saved     map[string]bool
	mu        sync.Mutex
}

// NewManager creates a storage manager rooted at outputDir, creating
// the directory if needed.
func NewManager(outputDir string, overwrite bool) (*Manager, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		overwrite: overwrite,
		saved:     make(map[string]bool),
	}, nil
}

// OutputDir returns the output directory path.
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Path returns the absolute path a file name would be saved under.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// Exists reports whether a file with this name is already present.
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// SavedCount returns the number of files written this run.
func (m *Manager) SavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

// ErrAlreadyExists is returned by Create when the target file is
// present and overwriting is disabled.
var ErrAlreadyExists = fmt.Errorf("file already exists")

// Create opens a pending file for name. Callers write the content and
// then either Commit or Abort; the final name only appears on Commit.
func (m *Manager) Create(name string) (*PendingFile, error) {
	target := m.Path(name)
	if !m.overwrite {
		if _, err := os.Stat(target); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, target)
		}
	}

	f, err := os.CreateTemp(m.outputDir, filepath.Base(name)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return &PendingFile{manager: m, name: name, target: target, file: f}, nil
}

// Save writes data under name atomically.
func (m *Manager) Save(name string, r io.Reader) error {
	pf, err := m.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(pf, r); err != nil {
		pf.Abort()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return pf.Commit()
}

// SaveBytes writes data under name atomically.
func (m *Manager) SaveBytes(name string, data []byte) error {
	pf, err := m.Create(name)
	if err != nil {
		return err
	}
	if _, err := pf.Write(data); err != nil {
		pf.Abort()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return pf.Commit()
}

// PendingFile is an in-progress write that becomes visible on Commit.
type PendingFile struct {
	manager *Manager
	name    string
	target  string
	file    *os.File
	done    bool
}

func (p *PendingFile) Write(data []byte) (int, error) {
	return p.file.Write(data)
}

// Commit closes the temp file and renames it into place.
func (p *PendingFile) Commit() error {
	if p.done {
		return nil
	}
	p.done = true

	if err := p.file.Close(); err != nil {
		os.Remove(p.file.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(p.file.Name(), p.target); err != nil {
		os.Remove(p.file.Name())
		return fmt.Errorf("renaming temp file: %w", err)
	}

	p.manager.mu.Lock()
	p.manager.saved[p.name] = true
	p.manager.mu.Unlock()
	return nil
}

// Abort discards the pending write.
func (p *PendingFile) Abort() {
	if p.done {
		return
	}
	p.done = true
	p.file.Close()
	os.Remove(p.file.Name())
}
