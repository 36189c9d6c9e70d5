package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
)

// Store owns the configuration file. Writes go to the file settings only,
// so values that came from the environment are never persisted.
type Store struct {
	path string

	mu        sync.RWMutex
	file      *Config // defaults + file
	effective *Config // file + environment
}

// Open loads the configuration at path. On first run, when the file does not
// exist, it is created with the defaults.
func Open(path string) (*Store, error) {
	file, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := file.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := file.Save(path); err != nil {
			return nil, err
		}
	}

	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env")

	effective, err := withEnv(file)
	if err != nil {
		return nil, err
	}

	return &Store{path: path, file: file, effective: effective}, nil
}

func withEnv(file *Config) (*Config, error) {
	effective := *file
	if err := effective.applyEnv(); err != nil {
		return nil, err
	}
	if err := effective.Validate(); err != nil {
		return nil, err
	}
	return &effective, nil
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// SearchNum returns the configured result count, or the default (1).
func (s *Store) SearchNum() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.effective.Search.Num == 0 {
		return kwsearch.DefaultNum
	}
	return s.effective.Search.Num
}

// SetSearchNum validates n and persists it. Values outside 1..10 are
// rejected and leave both the file and the in-memory value unchanged.
func (s *Store) SetSearchNum(n int) error {
	if n < kwsearch.MinNum || n > kwsearch.MaxNum {
		return errors.Mark(
			errors.Newf("%s: search.num must be between %d and %d, got %d", ErrInvalid, kwsearch.MinNum, kwsearch.MaxNum, n),
			ErrInvalid,
		)
	}
	return s.Update(func(c *Config) {
		c.Search.Num = n
	})
}

// Update applies fn to a copy of the file settings, validates and saves the
// copy, and only then makes it current. fn is applied again on top of the
// environment overrides, so a value just written is the value read back.
// The environment wins again at the next Open.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.file
	fn(&next)

	if err := next.Validate(); err != nil {
		return err
	}

	effective, err := withEnv(&next)
	if err != nil {
		return err
	}
	fn(effective)
	if err := effective.Validate(); err != nil {
		return err
	}

	if err := next.Save(s.path); err != nil {
		return err
	}

	s.file = &next
	s.effective = effective
	return nil
}

// Snapshot returns a copy of the effective settings.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.effective
}
