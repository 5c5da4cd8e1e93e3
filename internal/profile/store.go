package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// ErrProfileNotFound is returned by Load when no profile was saved for the
// machine.
var ErrProfileNotFound = errors.New("profile not found")

// Profile holds the selections saved for one machine.
type Profile struct {
	Machine    string            `yaml:"machine"`
	Selections map[string]string `yaml:"selections"`
	UpdatedAt  time.Time         `yaml:"updated_at"`
}

// Store manages profile persistence at ~/.emucfg/profiles/
type Store struct {
	dir string
}

// NewStore creates a store in the default location
func NewStore() (*Store, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewStoreAt(filepath.Join(home, ".emucfg", "profiles"))
}

// NewStoreAt creates a store rooted at dir
func NewStoreAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profiles directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(machine string) (string, error) {
	if machine == "" || strings.ContainsAny(machine, `/\`) || strings.HasPrefix(machine, ".") {
		return "", fmt.Errorf("invalid machine name %q", machine)
	}
	return filepath.Join(s.dir, machine+".yaml"), nil
}

// Save persists a profile to disk, stamping its update time
func (s *Store) Save(p *Profile) error {
	path, err := s.path(p.Machine)
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}

	return nil
}

// Load reads the profile of a machine
func (s *Store) Load(machine string) (*Profile, error) {
	path, err := s.path(machine)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, machine)
		}
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	if p.Machine == "" {
		p.Machine = machine
	}
	if p.Selections == nil {
		p.Selections = make(map[string]string)
	}

	return &p, nil
}

// List returns all saved profiles ordered by machine name
func (s *Store) List() ([]*Profile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Profile{}, nil
		}
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}

	profiles := []*Profile{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		p, err := s.Load(strings.TrimSuffix(entry.Name(), ".yaml"))
		if err != nil {
			continue // Skip invalid profiles
		}
		profiles = append(profiles, p)
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Machine < profiles[j].Machine })
	return profiles, nil
}

// Delete removes a profile file
func (s *Store) Delete(machine string) error {
	path, err := s.path(machine)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete profile file: %w", err)
	}

	return nil
}

// Dir returns the profile storage directory
func (s *Store) Dir() string {
	return s.dir
}
