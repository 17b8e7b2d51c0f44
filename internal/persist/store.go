// Package persist stores pipeline filter state in TOML files.
package persist

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/treeq/internal/debug"
	treeqerrors "github.com/standardbeagle/treeq/internal/errors"
)

// Store keeps one filter state value in a TOML file. Read and write
// failures are logged and skipped; the pipeline keeps running with
// in-memory state.
type Store[S any] struct {
	path string

	mu   sync.Mutex
	last []byte
}

// NewStore creates a store backed by path. The file need not exist.
func NewStore[S any](path string) *Store[S] {
	return &Store[S]{path: path}
}

// Path returns the backing file
func (s *Store[S]) Path() string { return s.path }

// Load reads the stored state. It reports false when the file is missing or
// unreadable.
func (s *Store[S]) Load() (S, bool) {
	var state S
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			debug.Warn("%v\n", treeqerrors.NewPersistError("load", s.path, err))
		}
		return state, false
	}
	if err := toml.Unmarshal(data, &state); err != nil {
		debug.Warn("%v\n", treeqerrors.NewPersistError("load", s.path, err))
		return state, false
	}

	s.mu.Lock()
	s.last = data
	s.mu.Unlock()
	return state, true
}

// Save writes state unless it encodes to what is already on disk
func (s *Store[S]) Save(state S) {
	if err := s.save(state); err != nil {
		debug.Warn("%v\n", treeqerrors.NewPersistError("save", s.path, err))
	}
}

func (s *Store[S]) save(state S) error {
	data, err := toml.Marshal(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && bytes.Equal(s.last, data) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	s.last = data
	debug.LogPipeline("saved filter state to %s\n", s.path)
	return nil
}
