package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

//go:generate go tool mockgen -destination=mock_store.go -package=settings . Store

// Store keeps configuration records in durable storage, by name.
type Store interface {
	// Load reads and decodes the named record.
	Load(name string) (Record, error)
	// Save replaces the named record.
	Save(name string, r Record) error
	// Raw returns the stored text of the named record.
	Raw(name string) ([]byte, error)
}

// FileStore keeps one JSON file per record in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("settings: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("settings: create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *FileStore) Load(name string) (Record, error) {
	data, err := s.Raw(name)
	if err != nil {
		return Record{}, err
	}
	r, err := decode(data)
	if err != nil {
		return Record{}, fmt.Errorf("settings: load %q: %w", name, err)
	}
	return r, nil
}

func (s *FileStore) Save(name string, r Record) error {
	data, err := r.Encode()
	if err != nil {
		return fmt.Errorf("settings: encode %q: %w", name, err)
	}

	// replace atomically
	tmp, err := os.CreateTemp(s.dir, filepath.Base(name)+".*")
	if err != nil {
		return fmt.Errorf("settings: save %q: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("settings: save %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: save %q: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("settings: save %q: %w", name, err)
	}
	return nil
}

func (s *FileStore) Raw(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnreadable, name, err)
	}
	return data, nil
}

// LoadOrDefault loads the named record. When it cannot be read or decoded
// the built-in defaults are returned and persisted as the live record, and
// fellBack is true. err reports a failure to persist the defaults.
func LoadOrDefault(s Store, name string) (r Record, fellBack bool, err error) {
	r, loadErr := s.Load(name)
	if loadErr == nil {
		return r, false, nil
	}
	r = Defaults()
	if err := s.Save(ConfigName, r); err != nil {
		return r, true, errors.Join(loadErr, err)
	}
	return r, true, nil
}
