package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// Backend persists the serialised queue under a single key. Save must not
// return until the write has been acknowledged by the storage medium.
type Backend interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// Locker is implemented by backends that several processes may share.
// Lock guards one load-modify-save cycle and blocks until it is held.
// TryLockDrain claims the right to drain without blocking and reports false
// when another holder already has it.
type Locker interface {
	Lock() (unlock func(), err error)
	TryLockDrain() (unlock func(), ok bool, err error)
}

// FileBackend keeps the queue at <dir>/<namespace>.json. Writes go to a temp
// file that is synced and renamed over the previous snapshot. Advisory locks
// on <namespace>.lock and <namespace>.drain.lock coordinate processes that
// share the directory.
type FileBackend struct {
	path      string
	lockPath  string
	drainPath string
}

func NewFileBackend(dir, namespace string) (*FileBackend, error) {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" || strings.ContainsAny(namespace, `/\`) {
		return nil, fmt.Errorf("invalid queue namespace %q", namespace)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}

	return &FileBackend{
		path:      filepath.Join(dir, namespace+".json"),
		lockPath:  filepath.Join(dir, namespace+".lock"),
		drainPath: filepath.Join(dir, namespace+".drain.lock"),
	}, nil
}

func (b *FileBackend) Path() string {
	return b.path
}

// Load returns nil data when nothing has been saved yet.
func (b *FileBackend) Load() ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}
	return data, nil
}

func (b *FileBackend) Save(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp queue file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write queue file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close queue file: %w", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace queue file: %w", err)
	}

	return nil
}

// Lock opens its own handle on every call, so two queues in one process
// exclude each other the same way two processes do.
func (b *FileBackend) Lock() (func(), error) {
	fl := flock.New(b.lockPath)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock queue file: %w", err)
	}
	return func() { _ = fl.Unlock() }, nil
}

func (b *FileBackend) TryLockDrain() (func(), bool, error) {
	fl := flock.New(b.drainPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock queue drain: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() { _ = fl.Unlock() }, true, nil
}

// MemoryBackend holds the queue in process memory. Used by tests and by
// callers that only need a queue for the lifetime of the process.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

func (b *MemoryBackend) Load() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...), nil
}

func (b *MemoryBackend) Save(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	return nil
}
