package session

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brogergvhs/branchd/internal/util"

	"gopkg.in/yaml.v3"
)

type Cookie struct {
	Name     string    `yaml:"name"`
	Value    string    `yaml:"value"`
	Domain   string    `yaml:"domain"`
	Path     string    `yaml:"path,omitempty"`
	Expires  time.Time `yaml:"expires,omitempty"`
	Secure   bool      `yaml:"secure,omitempty"`
	HTTPOnly bool      `yaml:"http_only,omitempty"`
}

// State is what session.yaml holds between runs.
type State struct {
	Expires time.Time `yaml:"expires"`
	Cookies []Cookie  `yaml:"cookies"`
}

func (st State) Empty() bool { return len(st.Cookies) == 0 }

// Store persists State as YAML at Path.
type Store struct {
	Path string
	Now  func() time.Time
}

func NewStore(path string) *Store {
	return &Store{Path: path, Now: time.Now}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Load returns the stored state. A missing or expired session loads empty.
func (s *Store) Load() (State, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("session: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(b, &st); err != nil {
		return State{}, fmt.Errorf("session: parse %s: %w", s.Path, err)
	}

	if !st.Expires.IsZero() && !s.now().Before(st.Expires) {
		return State{}, nil
	}

	return st, nil
}

func (s *Store) Save(st State) error {
	b, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	return util.WriteFileAtomic(s.Path, b)
}

func (s *Store) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}
