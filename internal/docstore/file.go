package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	fileExt          = ".json"
	watchDebounce    = 200 * time.Millisecond
	fileStorePerm    = 0644
	fileStoreDirPerm = 0755
)

// FileStore keeps one <key>.json file per document in a directory. Files
// can be edited by hand while the server runs; Watch reports such edits.
type FileStore struct {
	dir string

	mu      sync.Mutex
	written map[string][]byte
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, fileStoreDirPerm); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{dir: dir, written: make(map[string][]byte)}, nil
}

// Dir returns the directory holding the documents.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, ".") || filepath.Base(key) != key {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

func (s *FileStore) Get(_ context.Context, key string) (json.RawMessage, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return json.RawMessage(b), nil
}

// Set writes to a temp file and renames it over the document, so readers
// never observe a partial write.
func (s *FileStore) Set(_ context.Context, key string, value json.RawMessage) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Chmod(tmpName, fileStorePerm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", key, err)
	}

	s.mu.Lock()
	s.written[key] = append([]byte(nil), value...)
	s.mu.Unlock()

	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// Watch calls onChange after documents in the directory are changed by
// another writer. Bursts of events are debounced; writes made through this
// store are ignored. Watch blocks until ctx is cancelled, and once it has
// returned onChange is neither running nor called again.
func (s *FileStore) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	slog.Info("document watcher started",
		"component", "docstore",
		"dir", s.dir,
	)

	var (
		debounce *time.Timer
		fireMu   sync.Mutex
		stopped  bool
	)
	fire := func() {
		fireMu.Lock()
		defer fireMu.Unlock()
		if stopped || ctx.Err() != nil {
			return
		}
		onChange()
	}
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		fireMu.Lock()
		stopped = true
		fireMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("document watcher stopped", "component", "docstore")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !s.externalChange(event) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, fire)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("document watcher error",
				"component", "docstore",
				"error", err,
			)
		}
	}
}

// externalChange filters events down to document writes that did not come
// from Set.
func (s *FileStore) externalChange(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
		return false
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}

	key := strings.TrimSuffix(name, fileExt)
	current, err := os.ReadFile(event.Name)
	if err != nil {
		// Removed or renamed away; let the reload decide.
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return !bytes.Equal(current, s.written[key])
}
