// Package store keeps the client's single credential slot for the lifetime of
// a login session.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/atinyakov/cloudtty/internal/credential"
)

// Key is the fixed identifier of the credential slot. The file backend uses
// it as the file name.
const Key = "cloudtty_auth_credentials"

// Store holds at most one credential. Every write replaces the slot and every
// delete empties it; there are no partial updates.
type Store interface {
	// Get returns the stored credential and whether one was present.
	Get() (credential.Credential, bool, error)
	// Set replaces the slot with cred.
	Set(cred credential.Credential) error
	// Delete empties the slot. Deleting an empty slot is not an error.
	Delete() error
}

// entry is the on-disk representation of the slot.
type entry struct {
	Credential credential.Credential `json:"credential"`
	SavedAt    int64                 `json:"saved_at"`
}

// FileStore persists the slot as a JSON file inside a session directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a store rooted at dir. The directory is created on the
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file that backs the slot.
func (fs *FileStore) Path() string {
	return filepath.Join(fs.dir, Key)
}

func (fs *FileStore) Get() (credential.Credential, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("open credential file: %w", err)
	}
	defer f.Close()

	var e entry
	if err := json.NewDecoder(f).Decode(&e); err != nil {
		return "", false, fmt.Errorf("decode credential file: %w", err)
	}
	if e.Credential.IsZero() {
		return "", false, nil
	}
	return e.Credential, true, nil
}

// Set writes the slot through a temporary file and a rename so readers never
// observe a half-written credential.
func (fs *FileStore) Set(cred credential.Credential) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(fs.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(fs.dir, Key+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := json.NewEncoder(tmp).Encode(entry{Credential: cred, SavedAt: time.Now().Unix()}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.Path()); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

func (fs *FileStore) Delete() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}

// MemoryStore keeps the slot in process memory only.
type MemoryStore struct {
	mu   sync.Mutex
	cred credential.Credential
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (credential.Credential, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred, !m.cred.IsZero(), nil
}

func (m *MemoryStore) Set(cred credential.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = cred
	return nil
}

func (m *MemoryStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = ""
	return nil
}

// SessionDir returns the directory whose lifetime bounds the credential:
// $XDG_RUNTIME_DIR/cloudtty, which the system clears at logout, or a per-user
// directory under the temp dir when no runtime dir is set.
func SessionDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "cloudtty")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("cloudtty-%d", os.Getuid()))
}
