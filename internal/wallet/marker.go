package wallet

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// MarkerStore persists whether the user was connected when the app last ran.
type MarkerStore interface {
	Connected() bool
	MarkConnected() error
	Clear() error
}

const markerValue = "1"

// FileMarker keeps the marker in a file.
type FileMarker struct {
	path string
}

// NewFileMarker returns a marker stored at path.
func NewFileMarker(path string) *FileMarker {
	return &FileMarker{path: path}
}

// Path returns the marker file location.
func (f *FileMarker) Path() string {
	return f.path
}

func (f *FileMarker) Connected() bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == markerValue
}

func (f *FileMarker) MarkConnected() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("wallet.MarkConnected: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(markerValue), 0o600); err != nil {
		return fmt.Errorf("wallet.MarkConnected: %w", err)
	}
	return nil
}

func (f *FileMarker) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("wallet.ClearMarker: %w", err)
	}
	return nil
}

// Watch calls onCleared whenever the marker file is removed or renamed away,
// until ctx is done. It watches the parent directory so the marker may not exist yet.
func (f *FileMarker) Watch(ctx context.Context, onCleared func()) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("wallet.Watch: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("wallet.Watch: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close() //nolint:errcheck
		return fmt.Errorf("wallet.Watch: %w", err)
	}

	target := filepath.Clean(f.path)
	go func() {
		defer w.Close() //nolint:errcheck
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					onCleared()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// MemoryMarker keeps the marker in memory.
type MemoryMarker struct {
	mu        sync.Mutex
	connected bool
}

func (m *MemoryMarker) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MemoryMarker) MarkConnected() error {
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryMarker) Clear() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}
