// Package filecache persists the filter sources to a cache directory so the
// engine can start with the last known data while offline.
//
// All files are advisory. A missing file is reported as absent, not as an
// error, and callers fall back to built-in defaults on any load failure.
package filecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	renameio "github.com/google/renameio/v2"

	"github.com/haukened/adshield/internal/adblock/domain"
)

// File names inside the cache directory.
const (
	FiltersFile  = "filters-cache.json"
	HostsFile    = "hosts-cache.txt"
	EasyListFile = "easylist-cache.txt"
)

// RawKind names a raw-text list source.
type RawKind string

const (
	RawHosts    RawKind = "hosts"
	RawEasyList RawKind = "easylist"
)

// ErrUnknownKind is returned for a RawKind without a backing file.
var ErrUnknownKind = errors.New("unknown raw cache kind")

// Store reads and writes the cache directory.
type Store struct {
	dir string
}

// New returns a store rooted at dir. The directory is created lazily by
// EnsureDir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// EnsureDir creates the cache directory if needed.
func (s *Store) EnsureDir() error {
	return os.MkdirAll(s.dir, 0o700)
}

// filtersCache is the on-disk layout of FiltersFile.
type filtersCache struct {
	Filters   *domain.FilterConfig `json:"filters"`
	LastCheck time.Time            `json:"lastCheck"`
}

// LoadFilters returns the cached config and the time of the last successful
// check. A missing file yields a nil config and no error.
func (s *Store) LoadFilters() (cfg *domain.FilterConfig, lastCheck time.Time, err error) {
	data, err := os.ReadFile(s.path(FiltersFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, err
	}

	var fc filtersCache
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding json: %w", err)
	}
	if err := fc.Filters.Validate(); err != nil {
		return nil, time.Time{}, err
	}
	return fc.Filters, fc.LastCheck, nil
}

// SaveFilters atomically replaces the cached config.
func (s *Store) SaveFilters(cfg *domain.FilterConfig, lastCheck time.Time) error {
	data, err := json.MarshalIndent(filtersCache{Filters: cfg, LastCheck: lastCheck}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return renameio.WriteFile(s.path(FiltersFile), data, 0o600)
}

// LoadRaw returns the cached raw text for kind and the file's modification
// time. A missing file yields an empty string and a zero time.
func (s *Store) LoadRaw(kind RawKind) (string, time.Time, error) {
	name, err := rawFile(kind)
	if err != nil {
		return "", time.Time{}, err
	}
	p := s.path(name)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", time.Time{}, nil
		}
		return "", time.Time{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return string(data), time.Time{}, nil
	}
	return string(data), info.ModTime(), nil
}

// SaveRaw atomically replaces the cached raw text for kind.
func (s *Store) SaveRaw(kind RawKind, text string) error {
	name, err := rawFile(kind)
	if err != nil {
		return err
	}
	return renameio.WriteFile(s.path(name), []byte(text), 0o600)
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func rawFile(kind RawKind) (string, error) {
	switch kind {
	case RawHosts:
		return HostsFile, nil
	case RawEasyList:
		return EasyListFile, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
