// Package preset persists named filter selections as YAML files.
package preset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/cohortdash/internal/filter"
	"github.com/KaramelBytes/cohortdash/internal/utils"
)

const fileExt = ".yaml"

var (
	// ErrNotFound is returned when no preset has the requested name.
	ErrNotFound = errors.New("preset not found")
	// ErrInvalidName is returned for names that cannot be used as file names.
	ErrInvalidName = errors.New("invalid preset name")
)

// Preset is a saved selection. Filters are keyed by facet key.
type Preset struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Filters     map[string]string `yaml:"filters" json:"filters"`
	CreatedAt   time.Time         `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `yaml:"updated_at" json:"updated_at"`
}

// New constructs an in-memory preset. Call Store.Save to persist.
func New(name, description string, sel filter.Selection) *Preset {
	now := time.Now()
	return &Preset{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Filters:     sel.Strings(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Selection parses the stored filters back into a selection.
func (p *Preset) Selection() (filter.Selection, error) {
	sel, err := filter.ParseSelection(p.Filters)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return sel, nil
}

// Store is a directory of presets, one file per name.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on first save.
func NewStore(dir string) *Store { return &Store{dir: dir} }

// Dir returns the store's directory.
func (s *Store) Dir() string { return s.dir }

// ValidateName accepts letters, digits, '-', '_' and '.', not starting with '.'.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("%w %q: only letters, digits, '-', '_' and '.' are allowed", ErrInvalidName, name)
		}
	}
	return nil
}

func (s *Store) path(name string) string { return filepath.Join(s.dir, name+fileExt) }

// Save writes p atomically, keeping the id and creation time of an existing
// preset with the same name.
func (s *Store) Save(p *Preset) error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if _, err := filter.ParseSelection(p.Filters); err != nil {
		return err
	}
	if prev, err := s.Load(p.Name); err == nil {
		p.ID = prev.ID
		p.CreatedAt = prev.CreatedAt
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()

	if err := utils.EnsureDir(s.dir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	b, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return utils.SafeWriteFile(s.path(p.Name), b)
}

// Load reads the named preset.
func (s *Store) Load(name string) (*Preset, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read preset: %w", err)
	}
	var p Preset
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	return &p, nil
}

// List returns every preset sorted by name. A missing directory is empty.
func (s *Store) List() ([]*Preset, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read presets dir: %w", err)
	}
	var out []*Preset
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		p, err := s.Load(strings.TrimSuffix(e.Name(), fileExt))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the named preset.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("delete preset: %w", err)
	}
	return nil
}
