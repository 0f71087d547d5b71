package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileVersion is the current version of the settings file format.
const FileVersion = 1

// File is the on-disk layout of a FileStore.
type File struct {
	// Version is the settings file format version.
	Version int `json:"version"`

	// SavedAt is when the file was last written.
	SavedAt time.Time `json:"saved_at"`

	// Devices in save order; the most recent save is last.
	Devices []DeviceSettings `json:"devices,omitempty"`
}

// FileStore keeps settings in a JSON file. Every mutation rewrites the file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store. When several records match an accessory identity,
// the most recently saved one wins.
func (s *FileStore) Get(id Identity) (DeviceSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return DeviceSettings{}, err
	}
	for i := len(f.Devices) - 1; i >= 0; i-- {
		if id.Matches(f.Devices[i]) {
			return f.Devices[i], nil
		}
	}
	return DeviceSettings{}, ErrNotFound
}

// Save implements Store.
func (s *FileStore) Save(ds DeviceSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	key := ds.Identity()
	kept := f.Devices[:0]
	for _, d := range f.Devices {
		if !key.Matches(d) {
			kept = append(kept, d)
		}
	}
	f.Devices = append(kept, ds)
	return s.write(f)
}

// Delete implements Store.
func (s *FileStore) Delete(id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	kept := f.Devices[:0]
	for _, d := range f.Devices {
		if !id.Matches(d) {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(f.Devices) {
		return nil
	}
	f.Devices = kept
	return s.write(f)
}

// List implements Store.
func (s *FileStore) List() ([]DeviceSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	return f.Devices, nil
}

// Clear removes the settings file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// load reads the file. A missing file is an empty store.
func (s *FileStore) load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &File{Version: FileVersion}, nil
	}
	if err != nil {
		return nil, err
	}

	f := &File{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, err
	}
	return f, nil
}

// write replaces the file via a temporary file in the same directory.
func (s *FileStore) write(f *File) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f.Version = FileVersion
	f.SavedAt = time.Now()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Compile-time interface satisfaction check.
var _ Store = (*FileStore)(nil)
