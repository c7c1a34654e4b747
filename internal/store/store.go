package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/explain-cli/internal/summary"
	"github.com/KaramelBytes/explain-cli/internal/utils"
)

const recordExt = ".json"

// ErrNotFound is returned when no saved run matches an id.
var ErrNotFound = errors.New("run not found")

// Record is one saved explanation run.
type Record struct {
	ID         string           `json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	Source     string           `json:"source"`
	Metric     string           `json:"metric,omitempty"`
	Classifier string           `json:"classifier"`
	Predicate  string           `json:"predicate,omitempty"`
	Result     summary.Snapshot `json:"explanation"`
}

// Store persists run records as one JSON file per run under a directory.
type Store struct {
	dir string
}

// Open returns a store rooted at dir. The directory is created on first Save.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("runs directory not set")
	}
	return &Store{dir: dir}, nil
}

// Dir returns the on-disk runs directory.
func (s *Store) Dir() string { return s.dir }

// NewID returns a fresh run id.
func NewID() string { return uuid.NewString() }

// Save writes r using an atomic rename. A missing ID or CreatedAt is filled in.
func (s *Store) Save(r *Record) error {
	if r.ID == "" {
		r.ID = NewID()
	} else if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", r.ID, err)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if err := utils.EnsureDir(s.dir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(r)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(s.dir, r.ID+recordExt), data)
}

// List returns all saved runs, newest first. A missing directory yields no runs.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var out []*Record
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != recordExt {
			continue
		}
		r, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Load returns the run with the given id. A unique id prefix is accepted.
func (s *Store) Load(id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	if _, err := uuid.Parse(id); err == nil {
		r, err := s.read(filepath.Join(s.dir, id+recordExt))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return r, err
	}
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var match *Record
	for _, r := range all {
		if strings.HasPrefix(r.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous run id prefix %q", id)
			}
			match = r
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

func (s *Store) read(path string) (*Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse run %s: %w", filepath.Base(path), err)
	}
	return &r, nil
}
