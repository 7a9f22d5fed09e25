// Package runstore keeps the history of deployment runs in a JSON file next to
// the deployment artifacts.
package runstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileName is the store file inside an output directory.
const FileName = "runs.json"

// CurrentVersion is the store format version written by this package.
const CurrentVersion = 1

var (
	ErrRunNotFound    = errors.New("runstore: run not found")
	ErrRunExists      = errors.New("runstore: run already recorded")
	ErrStoreCorrupted = errors.New("runstore: store corrupted")
	ErrStorePersist   = errors.New("runstore: failed to persist")
)

// Run is one executed deployment or admin command.
type Run struct {
	ID              string    `json:"id"`
	Command         string    `json:"command"`
	ChainID         uint64    `json:"chain_id"`
	ParentChainID   uint64    `json:"parent_chain_id"`
	TransactionHash string    `json:"transaction_hash,omitempty"`
	Artifact        string    `json:"artifact,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type storeData struct {
	Version int             `json:"version"`
	Runs    map[string]*Run `json:"runs"`
}

// Store manages run records with atomic file persistence.
type Store struct {
	mu   sync.RWMutex
	path string
	data *storeData
}

// Open creates or opens the store at path. A missing file is an empty store;
// a missing directory is created.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: &storeData{Version: CurrentVersion, Runs: make(map[string]*Run)},
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	if err := s.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	// Empty file is an empty store.
	if len(raw) == 0 {
		return nil
	}

	var data storeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreCorrupted, err)
	}
	if data.Version > CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrStoreCorrupted, data.Version)
	}
	if data.Runs == nil {
		data.Runs = make(map[string]*Run)
	}
	s.data = &data
	return nil
}

// syncLocked must be called with the write lock held.
func (s *Store) syncLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := WriteFileAtomic(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrStorePersist, err)
	}
	return nil
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// Save records a run. Run ids are unique.
func (s *Store) Save(run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if run.Command == "" {
		return fmt.Errorf("run command is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.Runs[run.ID]; exists {
		return fmt.Errorf("%w: %s", ErrRunExists, run.ID)
	}
	cp := *run
	s.data.Runs[run.ID] = &cp
	if err := s.syncLocked(); err != nil {
		delete(s.data.Runs, run.ID)
		return err
	}
	return nil
}

// Get returns the run with the given id.
func (s *Store) Get(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data.Runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	cp := *run
	return &cp, nil
}

// List returns all runs, oldest first.
func (s *Store) List() []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Run, 0, len(s.data.Runs))
	for _, run := range s.data.Runs {
		cp := *run
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Latest returns the most recent run of command.
func (s *Store) Latest(command string) (*Run, error) {
	runs := s.List()
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Command == command {
			return runs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no %s run", ErrRunNotFound, command)
}

// Count returns the number of recorded runs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Runs)
}

// WriteFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
