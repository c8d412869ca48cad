// Package settings owns the dashboard's UI preferences. A Store is created by
// the caller and handed to every component that needs it; components read
// value snapshots, never a shared pointer.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github-repo-dashboard/internal/model"
)

// Store holds one set of preferences.
type Store struct {
	mu    sync.RWMutex
	prefs model.Preferences
}

// NewStore returns a Store seeded with prefs. An empty or unknown sort order
// falls back to the default.
func NewStore(prefs model.Preferences) *Store {
	prefs.SortOrder = normalizeSortOrder(prefs.SortOrder)
	return &Store{prefs: prefs}
}

func normalizeSortOrder(order model.SortOrder) model.SortOrder {
	parsed, err := model.ParseSortOrder(string(order))
	if err != nil {
		return model.SortByName
	}
	return parsed
}

// Load reads preferences from a YAML file. A missing file yields the defaults.
func Load(path string) (*Store, error) {
	prefs := model.DefaultPreferences()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewStore(prefs), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", path, err)
	}
	if prefs.SortOrder != "" {
		order, err := model.ParseSortOrder(string(prefs.SortOrder))
		if err != nil {
			return nil, fmt.Errorf("parse preferences %s: %w", path, err)
		}
		prefs.SortOrder = order
	}
	return NewStore(prefs), nil
}

// Save writes the current preferences to path, creating parent directories.
func (s *Store) Save(path string) error {
	data, err := yaml.Marshal(s.Snapshot())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Snapshot returns a copy of the current preferences.
func (s *Store) Snapshot() model.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// SetSortOrder stores order in its canonical form. An unknown order is
// stored as the default.
func (s *Store) SetSortOrder(order model.SortOrder) {
	order = normalizeSortOrder(order)
	s.update(func(p *model.Preferences) { p.SortOrder = order })
}

func (s *Store) SetShowTags(show bool) {
	s.update(func(p *model.Preferences) { p.ShowTags = show })
}

func (s *Store) SetShowRepoSize(show bool) {
	s.update(func(p *model.Preferences) { p.ShowRepoSize = show })
}

func (s *Store) SetDarkMode(on bool) {
	s.update(func(p *model.Preferences) { p.DarkMode = on })
}

// ToggleTags flips tag visibility and returns the new value.
func (s *Store) ToggleTags() bool {
	var v bool
	s.update(func(p *model.Preferences) { p.ShowTags = !p.ShowTags; v = p.ShowTags })
	return v
}

// ToggleRepoSize flips size visibility and returns the new value.
func (s *Store) ToggleRepoSize() bool {
	var v bool
	s.update(func(p *model.Preferences) { p.ShowRepoSize = !p.ShowRepoSize; v = p.ShowRepoSize })
	return v
}

// ToggleDarkMode flips dark mode and returns the new value.
func (s *Store) ToggleDarkMode() bool {
	var v bool
	s.update(func(p *model.Preferences) { p.DarkMode = !p.DarkMode; v = p.DarkMode })
	return v
}

func (s *Store) update(fn func(*model.Preferences)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.prefs)
}
