package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dshills/shopctl/internal/api"
)

// State is the persisted token and user identity. Nothing else is ever
// written to durable storage; cart and order data are always re-fetched.
type State struct {
	Token string   `json:"token"`
	User  api.User `json:"user"`
}

// Store persists session state across restarts.
type Store interface {
	// Load returns the stored state, or nil when nothing is stored.
	Load() (*State, error)
	Save(State) error
	Clear() error
}

// FileStore keeps the session in a JSON file under the state directory.
type FileStore struct {
	path string
}

// NewFileStore creates the state directory if needed and returns a store
// backed by session.json inside it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, "session.json")}, nil
}

func (s *FileStore) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	if st.Token == "" {
		return nil, nil
	}
	return &st, nil
}

func (s *FileStore) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
