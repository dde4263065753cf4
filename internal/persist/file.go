package persist

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kaledh4/daily-alpha-loop/internal/utils"
)

// FileStore keeps one JSON file per key under a directory, the same
// layout the fetch pipeline uses for its on-disk cache.
type FileStore struct {
	dir       string
	namespace string
	mu        sync.Mutex
}

// NewFileStore creates the directory if needed. namespace prefixes every
// key so independent consumers can share one directory.
func NewFileStore(dir, namespace string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, namespace: namespace}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(s.namespace+"-"+key)+".json")
}

// Set implements Store.
func (s *FileStore) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(s.path(key), data, 0o644)
}

// Get implements Store. Unreadable or corrupt files read as absent.
func (s *FileStore) Get(ctx context.Context, key string, out interface{}) bool {
	s.mu.Lock()
	data, err := os.ReadFile(s.path(key))
	s.mu.Unlock()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		if utils.Debug {
			utils.Logger.Printf("discarding corrupt entry %q: %v", key, err)
		}
		return false
	}
	return true
}

// Remove implements Store.
func (s *FileStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// sanitizeKey maps cache keys onto safe file names, mirroring the key
// munging the fetchers apply to ticker symbols.
func sanitizeKey(key string) string {
	replacer := strings.NewReplacer("=", "_", "^", "_", "/", "_", ":", "_", " ", "_")
	return replacer.Replace(key)
}
