package favourites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/parkdir/parkdir/internal/registry"
)

// FileStore keeps favourites in a JSON file
type FileStore struct {
	path string
	// serializes writers sharing the temp file name
	mu sync.Mutex
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file
func (fs *FileStore) Path() string {
	return fs.path
}

// Load reads the favourites file. A missing, empty or malformed file is
// treated as "no favourites yet".
func (fs *FileStore) Load(ctx context.Context) []registry.Server {
	entries, err := fs.read()
	if err != nil {
		log.Printf("Ignoring favourites file %s: %v", fs.path, err)
		return []registry.Server{}
	}

	servers := make([]registry.Server, 0, len(entries))
	for _, e := range entries {
		if e.Address == "" {
			continue
		}
		servers = append(servers, e.server())
	}
	return servers
}

func (fs *FileStore) read() ([]entry, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read favourites: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode favourites: %w", err)
	}
	return entries, nil
}

// Save writes servers to the favourites file atomically.
func (fs *FileStore) Save(ctx context.Context, servers []registry.Server) error {
	entries := make([]entry, 0, len(servers))
	for _, s := range servers {
		entries = append(entries, toEntry(s))
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o750); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := fs.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open tmp: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode favourites: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}
