package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	FileName = "dimensions.yaml"
	// LegacyFileName is read when FileName does not exist yet. JSON is
	// valid YAML, so the same decoder handles it.
	LegacyFileName = "dimensions.json"

	maxFileSize = 1 << 20
)

// Store reads dimension overrides from a file in dir. Parsed contents are
// cached and re-read when the file's size or modification time changes, so
// edits made while the game runs apply to the next dimension created.
type Store struct {
	dir    string
	logger zerolog.Logger

	mu      sync.RWMutex
	cached  Dimensions
	modTime time.Time
	size    int64
}

func NewStore(dir string, logger zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "config").Logger(),
	}
}

func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Load returns the overrides on disk. A missing, empty or unreadable file is
// replaced by Defaults, which are returned. The returned error only reports a
// failure to write the defaults; the dimensions are usable either way.
func (s *Store) Load() (Dimensions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dims, err := s.loadLocked()
	return dims.clone(), err
}

// Lookup returns the override for name, re-reading the file if it changed.
func (s *Store) Lookup(name string) (Bounds, bool) {
	info, err := os.Stat(s.Path())
	s.mu.RLock()
	var fresh bool
	switch {
	case s.cached == nil:
	case err == nil:
		fresh = info.ModTime().Equal(s.modTime) && info.Size() == s.size
	default:
		// Defaults that could not be written stay in use without retrying.
		fresh = s.size < 0
	}
	b, ok := s.cached[name]
	s.mu.RUnlock()
	if fresh {
		return b, ok
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.loadLocked(); err != nil {
		s.logger.Warn().Err(err).Msg("Keeping dimension defaults in memory")
	}
	b, ok = s.cached[name]
	return b, ok
}

// Save writes dims to the override file.
func (s *Store) Save(dims Dimensions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(dims)
}

// Reset overwrites the override file with Defaults.
func (s *Store) Reset() error {
	return s.Save(Defaults())
}

func (s *Store) loadLocked() (Dimensions, error) {
	data, err := s.readFile()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info().Str("path", s.Path()).Msg("No dimension config found, writing defaults")
	case err != nil:
		s.logger.Warn().Err(err).Str("path", s.Path()).Msg("Cannot read dimension config, writing defaults")
	case len(bytes.TrimSpace(data)) == 0:
		s.logger.Warn().Str("path", s.Path()).Msg("Dimension config is empty, writing defaults")
	default:
		var dims Dimensions
		if err = yaml.Unmarshal(data, &dims); err == nil && dims != nil {
			s.cached = dims
			return dims, nil
		}
		if err == nil {
			err = errors.New("no dimensions defined")
		}
		s.logger.Warn().Err(err).Str("path", s.Path()).Msg("Dimension config is corrupt, writing defaults")
	}

	defaults := Defaults()
	// Keep serving the defaults even if they cannot be persisted.
	s.cached = defaults
	s.modTime, s.size = time.Time{}, -1
	return defaults, s.saveLocked(defaults)
}

// readFile returns the current file, falling back to the legacy JSON file.
func (s *Store) readFile() ([]byte, error) {
	data, err := s.readStamped(s.Path())
	if !errors.Is(err, fs.ErrNotExist) {
		return data, err
	}
	legacy, lerr := readLimited(filepath.Join(s.dir, LegacyFileName))
	if lerr != nil {
		return nil, err
	}
	s.logger.Info().Str("from", LegacyFileName).Str("to", FileName).Msg("Migrating dimension config")
	var dims Dimensions
	if uerr := yaml.Unmarshal(legacy, &dims); uerr != nil || dims == nil {
		return legacy, nil
	}
	if serr := s.saveLocked(dims); serr != nil {
		s.logger.Warn().Err(serr).Msg("Cannot migrate dimension config")
	}
	return legacy, nil
}

func (s *Store) readStamped(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}
	s.modTime, s.size = info.ModTime(), info.Size()
	return data, nil
}

func readLimited(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("%s is too large (%d bytes)", path, info.Size())
	}
	return os.ReadFile(path)
}

func (s *Store) saveLocked(dims Dimensions) error {
	var buf bytes.Buffer
	buf.WriteString("# Build limits per dimension. Both values must be multiples of 16.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(dims); err != nil {
		return fmt.Errorf("encoding dimension config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding dimension config: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing dimension config: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing dimension config: %w", err)
	}

	s.cached = dims.clone()
	if info, err := os.Stat(s.Path()); err == nil {
		s.modTime, s.size = info.ModTime(), info.Size()
	}
	return nil
}
