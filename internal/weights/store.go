package weights

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// #region errors
// ErrVersionConflict means another writer updated the weights file between
// our read and write. Retryable.
var ErrVersionConflict = errors.New("weights version conflict")

// ErrLocked means the advisory lock could not be acquired in time.
var ErrLocked = errors.New("weights store locked")

// MalformedWeightsError reports an unparseable weights file. The store
// substitutes explicit defaults; the caller decides whether to proceed.
type MalformedWeightsError struct {
	Path string
	Err  error
}

func (e *MalformedWeightsError) Error() string {
	return fmt.Sprintf("malformed weights file %s: %v", e.Path, e.Err)
}

func (e *MalformedWeightsError) Unwrap() error { return e.Err }

// #endregion errors

// #region store
// Store persists a Config as a JSON file with an advisory lock file and an
// optimistic version check, so concurrent tuner invocations cannot silently
// lose updates.
type Store struct {
	path        string
	lockPath    string
	lockTimeout time.Duration
}

// NewStore creates a store for the given weights file path.
func NewStore(path string) *Store {
	return &Store{
		path:        path,
		lockPath:    path + ".lock",
		lockTimeout: 5 * time.Second,
	}
}

// Path returns the weights file location.
func (s *Store) Path() string { return s.path }

// #endregion store

// #region load
// Load reads the current weights. A missing file is created with explicit
// defaults. A malformed file yields defaults plus a MalformedWeightsError so
// the caller can log the warning instead of silently proceeding.
func (s *Store) Load() (Config, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if werr := s.write(cfg); werr != nil {
			return cfg, fmt.Errorf("init weights: %w", werr)
		}
		return cfg, nil
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("read weights: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), &MalformedWeightsError{Path: s.path, Err: err}
	}
	cfg.ensureMaps()
	return cfg, nil
}

// #endregion load

// #region update
// Update runs a read-modify-write cycle under the advisory lock. The mutator
// sees the current config; the result is clamped, version-bumped, and written
// atomically. A version change between read and write (a writer ignoring the
// lock) surfaces as ErrVersionConflict.
func (s *Store) Update(mutate func(*Config)) (Config, error) {
	unlock, err := s.acquireLock()
	if err != nil {
		return Config{}, err
	}
	defer unlock()

	cfg, err := s.Load()
	if err != nil {
		var malformed *MalformedWeightsError
		if !errors.As(err, &malformed) {
			return Config{}, err
		}
		// Malformed file: proceed from defaults, surfacing the error is the
		// caller's job via Load. Update repairs the file.
	}

	readVersion := cfg.Version
	mutate(&cfg)
	cfg.Clamp()
	cfg.Version = readVersion + 1

	// Optimistic check against the file as it exists now.
	if onDisk, err := s.peekVersion(); err == nil && onDisk != readVersion {
		return Config{}, fmt.Errorf("read v%d, found v%d: %w", readVersion, onDisk, ErrVersionConflict)
	}

	if err := s.write(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion update

// #region io
// write marshals and atomically replaces the weights file via tmp+rename.
func (s *Store) write(cfg Config) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir weights dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write weights tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace weights: %w", err)
	}
	return nil
}

// peekVersion reads only the version field from disk. Missing file is v0.
func (s *Store) peekVersion() (int, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var v struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, err
	}
	return v.Version, nil
}

// acquireLock creates the lock file exclusively, polling until the timeout.
func (s *Store) acquireLock() (func(), error) {
	deadline := time.Now().Add(s.lockTimeout)
	for {
		f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { os.Remove(s.lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire weights lock: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock %s held too long: %w", s.lockPath, ErrLocked)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// #endregion io
