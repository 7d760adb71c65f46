package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PersistenceError reports a store read or write failure against the
// backing directory. Bulk loading is the one place it is not raised:
// a corrupt record there is skipped and logged so the rest of the
// library stays usable.
type PersistenceError struct {
	Op   string // "create", "save", "delete", "load"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("recipe store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store persists recipe definitions as one JSON file per recipe under
// a directory and serves them from an in-memory index. Reads are safe
// for concurrent executions; writers take the exclusive lock.
type Store struct {
	dir     string
	mu      sync.RWMutex
	recipes map[string]*Recipe
	logf    func(format string, args ...any)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogf overrides where the store writes load diagnostics
// (defaults to stderr).
func WithLogf(logf func(format string, args ...any)) StoreOption {
	return func(s *Store) { s.logf = logf }
}

// OpenStore creates the backing directory if needed and eagerly loads
// every persisted definition. A record that fails to parse is skipped
// and logged — a single corrupt file must not block access to the
// rest of the library.
func OpenStore(dir string, opts ...StoreOption) (*Store, error) {
	s := &Store{
		dir:     dir,
		recipes: make(map[string]*Recipe),
		logf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &PersistenceError{Op: "load", Path: dir, Err: err}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: dir, Err: err}
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logf("store: skipping unreadable recipe %s: %v", path, err)
			continue
		}
		r, err := DecodeJSON(data)
		if err != nil {
			s.logf("store: skipping corrupt recipe %s: %v", path, err)
			continue
		}
		if r.ID == "" {
			s.logf("store: skipping recipe %s: missing id", path)
			continue
		}
		s.recipes[r.ID] = r
	}

	return s, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

// Create builds a recipe with a generated identifier and fresh
// timestamps, persists it, and returns it.
func (s *Store) Create(name, description, category string, steps []Step, tags []string) (*Recipe, error) {
	now := time.Now().UTC()
	r := &Recipe{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Category:    category,
		Steps:       steps,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.applyDefaults()

	if errs := validateDomain(r); HasErrors(errs) {
		return nil, fmt.Errorf("invalid recipe: %w", errs[0])
	}
	// Persist directly: a freshly created recipe must keep
	// created_at == updated_at.
	if err := s.persist(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Save bumps updated_at and persists the full recipe, overwriting any
// prior version. Idempotent: saving the same recipe twice leaves one
// definition in the store.
func (s *Store) Save(r *Recipe) error {
	r.UpdatedAt = time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = r.UpdatedAt
	}
	r.applyDefaults()
	return s.persist(r)
}

func (s *Store) persist(r *Recipe) error {
	if r.ID == "" {
		return &PersistenceError{Op: "save", Path: s.dir, Err: fmt.Errorf("recipe has no id")}
	}
	data, err := EncodeJSON(r)
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path(r.ID), Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path(r.ID), data, 0o644); err != nil {
		return &PersistenceError{Op: "save", Path: s.path(r.ID), Err: err}
	}
	s.recipes[r.ID] = r.Clone()
	return nil
}

// Get returns a copy of the recipe, or ok=false when the identifier
// is unknown. Absence is not an error.
func (s *Store) Get(id string) (*Recipe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipes[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// List returns recipes matching the filters, most recently updated
// first. Filters are conjunctive: category AND any matching tag. Zero
// values disable a filter.
func (s *Store) List(category string, tags []string) []*Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		if category != "" && r.Category != category {
			continue
		}
		if len(tags) > 0 && !anyTag(r, tags) {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Delete removes the persisted definition. Deleting an unknown
// identifier is a no-op, not an error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[id]; !ok {
		return nil
	}
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return &PersistenceError{Op: "delete", Path: s.path(id), Err: err}
	}
	delete(s.recipes, id)
	return nil
}

// Len returns the number of loaded recipes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recipes)
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func anyTag(r *Recipe, tags []string) bool {
	for _, t := range tags {
		if r.HasTag(t) {
			return true
		}
	}
	return false
}
